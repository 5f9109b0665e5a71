package grid

import (
	"errors"
	"testing"

	"github.com/isoterra/sculpt/sculpt"
)

func newTestGrid(t *testing.T, extent sculpt.ChunkPoint3d, chunkSize int32) *Grid {
	g, err := New(extent, chunkSize)
	if err != nil {
		t.Fatalf("can't create grid: %v\n", err)
	}
	return g
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(sculpt.ChunkPoint3d{1, 1, 1}, 0); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected config error for zero chunk size, got %v\n", err)
	}
	if _, err := New(sculpt.ChunkPoint3d{2, 0, 2}, 8); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected config error for empty extent, got %v\n", err)
	}
}

func TestResolveBijection(t *testing.T) {
	g := newTestGrid(t, sculpt.ChunkPoint3d{3, 2, 2}, 4)
	voxels := g.VoxelExtent()
	if voxels != (sculpt.Point3d{12, 8, 8}) {
		t.Fatalf("bad voxel extent: %s\n", voxels)
	}

	type cell struct {
		chunk *Chunk
		index int
	}
	seen := make(map[cell]sculpt.Point3d)
	var p sculpt.Point3d
	for p[2] = 0; p[2] < voxels[2]; p[2]++ {
		for p[1] = 0; p[1] < voxels[1]; p[1]++ {
			for p[0] = 0; p[0] < voxels[0]; p[0]++ {
				chunk, local, err := g.Resolve(p)
				if err != nil {
					t.Fatalf("can't resolve %s: %v\n", p, err)
				}
				if got := chunk.Origin().Add(local); got != p {
					t.Fatalf("resolve of %s maps back to %s\n", p, got)
				}
				key := cell{chunk, chunk.Index(local)}
				if prev, found := seen[key]; found {
					t.Fatalf("voxels %s and %s resolve to the same cell\n", prev, p)
				}
				seen[key] = p

				again, local2, err := g.Resolve(p)
				if err != nil || again != chunk || local2 != local {
					t.Fatalf("second resolve of %s differs: %v %s %v\n", p, again, local2, err)
				}
			}
		}
	}
	if len(seen) != int(voxels.Prod()) {
		t.Errorf("expected %d distinct cells, got %d\n", voxels.Prod(), len(seen))
	}
}

func TestResolveOutOfRange(t *testing.T) {
	g := newTestGrid(t, sculpt.ChunkPoint3d{2, 3, 4}, 8)
	voxels := g.VoxelExtent()
	bad := []sculpt.Point3d{
		{voxels[0], 0, 0},
		{0, voxels[1], 0},
		{0, 0, voxels[2]},
		{-1, 0, 0},
		{0, -1, 0},
		{0, 0, -1},
	}
	for _, p := range bad {
		chunk, _, err := g.Resolve(p)
		if !errors.Is(err, sculpt.ErrOutOfRange) {
			t.Errorf("expected out-of-range for %s, got %v\n", p, err)
		}
		if chunk != nil {
			t.Errorf("out-of-range resolve of %s returned %s\n", p, chunk)
		}
	}
	last := voxels.Sub(sculpt.Point3d{1, 1, 1})
	if _, _, err := g.Resolve(last); err != nil {
		t.Errorf("last voxel %s should resolve: %v\n", last, err)
	}
	var rangeErr *sculpt.OutOfRangeError
	if _, err := g.Chunk(sculpt.ChunkPoint3d{2, 0, 0}); !errors.As(err, &rangeErr) {
		t.Fatalf("expected *OutOfRangeError, got %v\n", err)
	}
	if rangeErr.Extent != g.Extent() {
		t.Errorf("bad extent in error: %s\n", rangeErr.Extent)
	}
}

func TestViewsAliasStorage(t *testing.T) {
	g := newTestGrid(t, sculpt.ChunkPoint3d{2, 1, 1}, 4)
	p := sculpt.Point3d{5, 1, 2}
	iso, err := g.GetIso(p)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	chunk, local, _ := g.Resolve(p)
	iso[chunk.Index(local)] = 3.5
	if v, _ := g.IsoAt(p); v != 3.5 {
		t.Errorf("write through iso view not visible, got %g\n", v)
	}

	colors, err := g.GetColor(p)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	i := chunk.Index(local) * ColorStride
	copy(colors[i:i+ColorStride], []float32{1, 0.5, 0.25, 1})
	if c, _ := g.ColorAt(p); c != (sculpt.Color{1, 0.5, 0.25, 1}) {
		t.Errorf("write through color view not visible, got %s\n", c)
	}

	other, _, _ := g.Resolve(sculpt.Point3d{1, 1, 2})
	if other == chunk || other.Iso[chunk.Index(local)] != 0 {
		t.Errorf("write leaked into neighboring chunk\n")
	}
}

func TestFill(t *testing.T) {
	g := newTestGrid(t, sculpt.ChunkPoint3d{1, 2, 1}, 4)
	g.Fill(GroundPlane(4))
	for y := int32(0); y < 8; y++ {
		v, err := g.IsoAt(sculpt.Point3d{1, y, 2})
		if err != nil {
			t.Fatalf("%v\n", err)
		}
		if v != float32(4-y) {
			t.Errorf("y=%d: expected density %d, got %g\n", y, 4-y, v)
		}
	}
	g.FillColor(func(p sculpt.Point3d) sculpt.Color {
		return sculpt.Color{float32(p[0]), 0, 0, 1}
	})
	if c, _ := g.ColorAt(sculpt.Point3d{3, 7, 0}); c != (sculpt.Color{3, 0, 0, 1}) {
		t.Errorf("bad filled color %s\n", c)
	}
	var n int
	g.ForEachChunk(func(*Chunk) { n++ })
	if n != 2 {
		t.Errorf("expected 2 chunks, visited %d\n", n)
	}
	if g.MemoryFootprint() < uint64(2*g.CellsPerChunk()*5*4) {
		t.Errorf("memory footprint %d too small\n", g.MemoryFootprint())
	}
}

func TestRechunk(t *testing.T) {
	g := newTestGrid(t, sculpt.ChunkPoint3d{2, 1, 2}, 6)
	g.Fill(func(p sculpt.Point3d) float32 {
		return float32(p[0]) + 100*float32(p[1]) + 10000*float32(p[2])
	})
	g.FillColor(func(p sculpt.Point3d) sculpt.Color {
		return sculpt.Color{float32(p[0]), float32(p[1]), float32(p[2]), 1}
	})

	ng, err := g.Rechunk(4)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if ng.Extent() != (sculpt.ChunkPoint3d{3, 2, 3}) {
		t.Fatalf("expected rechunked extent (3,2,3), got %s\n", ng.Extent())
	}
	voxels := g.VoxelExtent()
	for _, p := range []sculpt.Point3d{{0, 0, 0}, {5, 3, 7}, {11, 5, 11}, {6, 0, 4}} {
		iso, err := ng.IsoAt(p)
		if err != nil {
			t.Fatalf("%v\n", err)
		}
		want, _ := g.IsoAt(p)
		if iso != want {
			t.Errorf("voxel %s: expected iso %g after rechunk, got %g\n", p, want, iso)
		}
		c, _ := ng.ColorAt(p)
		if c != (sculpt.Color{float32(p[0]), float32(p[1]), float32(p[2]), 1}) {
			t.Errorf("voxel %s: bad color %s after rechunk\n", p, c)
		}
	}
	// past the old extent on y
	if iso, _ := ng.IsoAt(sculpt.Point3d{0, voxels[1], 0}); iso != 0 {
		t.Errorf("expected zero sample outside old extent, got %g\n", iso)
	}
	if _, err := g.Rechunk(0); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected config error, got %v\n", err)
	}
}
