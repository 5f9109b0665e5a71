/*
	Package grid holds the chunked voxel volume sculpted by brushes.  Every chunk within
	the configured extent is allocated up front and lives as long as the grid, so a chunk
	reference resolved once stays valid for the life of the grid.
*/
package grid

import (
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"

	"github.com/isoterra/sculpt/sculpt"
)

// ColorStride is the number of float32 values per color cell (RGBA).
const ColorStride = 4

// Chunk is a cube of iso (density) and RGBA color samples.  Both arrays are flat and
// indexed by x + y*size + z*size*size.
type Chunk struct {
	coord sculpt.ChunkPoint3d
	size  int32

	Iso   []float32
	Color []float32
}

func newChunk(coord sculpt.ChunkPoint3d, chunkSize int32) *Chunk {
	cells := int(chunkSize) * int(chunkSize) * int(chunkSize)
	return &Chunk{
		coord: coord,
		size:  chunkSize,
		Iso:   make([]float32, cells),
		Color: make([]float32, cells*ColorStride),
	}
}

// Coord returns the chunk's coordinate in chunk space.
func (c *Chunk) Coord() sculpt.ChunkPoint3d {
	return c.coord
}

// Origin returns the voxel coordinate of the chunk's first cell.
func (c *Chunk) Origin() sculpt.Point3d {
	return c.coord.MinPoint(c.size)
}

// Size returns the side length of the chunk in voxels.
func (c *Chunk) Size() int32 {
	return c.size
}

// Index returns the flat cell index of a chunk-local coordinate.
func (c *Chunk) Index(local sculpt.Point3d) int {
	return int(local[0] + local[1]*c.size + local[2]*c.size*c.size)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk %s (%d^3)", c.coord, c.size)
}

// Grid is a fixed 3d extent of pre-allocated chunks starting at chunk (0,0,0).
type Grid struct {
	extent    sculpt.ChunkPoint3d
	chunkSize int32
	chunks    []*Chunk
}

// New allocates every chunk in the extent.  A non-positive extent or chunk size is a
// configuration error.
func New(extent sculpt.ChunkPoint3d, chunkSize int32) (*Grid, error) {
	if chunkSize <= 0 {
		return nil, sculpt.NewConfigError("grid", "chunk size must be positive, got %d", chunkSize)
	}
	if extent[0] <= 0 || extent[1] <= 0 || extent[2] <= 0 {
		return nil, sculpt.NewConfigError("grid", "extent must be positive on every axis, got %s", extent)
	}
	g := &Grid{
		extent:    extent,
		chunkSize: chunkSize,
		chunks:    make([]*Chunk, extent.Prod()),
	}
	var c sculpt.ChunkPoint3d
	for c[2] = 0; c[2] < extent[2]; c[2]++ {
		for c[1] = 0; c[1] < extent[1]; c[1]++ {
			for c[0] = 0; c[0] < extent[0]; c[0]++ {
				g.chunks[g.chunkIndex(c)] = newChunk(c, chunkSize)
			}
		}
	}
	sculpt.Infof("Allocated grid of %s chunks at %d^3 voxels: %s\n",
		extent, chunkSize, humanize.Bytes(g.MemoryFootprint()))
	return g, nil
}

func (g *Grid) chunkIndex(c sculpt.ChunkPoint3d) int {
	return int(c[0]) + int(c[1])*int(g.extent[0]) + int(c[2])*int(g.extent[0])*int(g.extent[1])
}

// Extent returns the number of chunks along each axis.
func (g *Grid) Extent() sculpt.ChunkPoint3d {
	return g.extent
}

// ChunkSize returns the side length of every chunk in voxels.
func (g *Grid) ChunkSize() int32 {
	return g.chunkSize
}

// CellsPerChunk returns the number of samples in one chunk.
func (g *Grid) CellsPerChunk() int {
	return int(g.chunkSize) * int(g.chunkSize) * int(g.chunkSize)
}

// VoxelExtent returns the number of voxels spanned along each axis.
func (g *Grid) VoxelExtent() sculpt.Point3d {
	return sculpt.Point3d{
		g.extent[0] * g.chunkSize,
		g.extent[1] * g.chunkSize,
		g.extent[2] * g.chunkSize,
	}
}

// Contains returns true if the chunk coordinate is within the grid extent.
func (g *Grid) Contains(c sculpt.ChunkPoint3d) bool {
	for i := 0; i < 3; i++ {
		if c[i] < 0 || c[i] >= g.extent[i] {
			return false
		}
	}
	return true
}

// Chunk returns the chunk at a chunk coordinate or an out-of-range error.  Neighbors
// are never aliased to an in-range chunk.
func (g *Grid) Chunk(c sculpt.ChunkPoint3d) (*Chunk, error) {
	if !g.Contains(c) {
		return nil, &sculpt.OutOfRangeError{Chunk: c, Extent: g.extent}
	}
	return g.chunks[g.chunkIndex(c)], nil
}

// Resolve maps a voxel coordinate to its owning chunk and the offset within that chunk.
func (g *Grid) Resolve(p sculpt.Point3d) (*Chunk, sculpt.Point3d, error) {
	chunk, err := g.Chunk(p.Chunk(g.chunkSize))
	if err != nil {
		return nil, sculpt.Point3d{}, fmt.Errorf("resolving voxel %s: %w", p, err)
	}
	return chunk, p.PointInChunk(g.chunkSize), nil
}

// GetIso returns the iso array of the chunk owning the voxel.  The slice aliases the
// chunk's storage so writes through it mutate the grid.
func (g *Grid) GetIso(p sculpt.Point3d) ([]float32, error) {
	chunk, _, err := g.Resolve(p)
	if err != nil {
		return nil, err
	}
	return chunk.Iso, nil
}

// GetColor returns the RGBA array of the chunk owning the voxel.  Like GetIso, the
// slice aliases chunk storage.
func (g *Grid) GetColor(p sculpt.Point3d) ([]float32, error) {
	chunk, _, err := g.Resolve(p)
	if err != nil {
		return nil, err
	}
	return chunk.Color, nil
}

// IsoAt returns the iso sample of a single voxel.
func (g *Grid) IsoAt(p sculpt.Point3d) (float32, error) {
	chunk, local, err := g.Resolve(p)
	if err != nil {
		return 0, err
	}
	return chunk.Iso[chunk.Index(local)], nil
}

// ColorAt returns the color sample of a single voxel.
func (g *Grid) ColorAt(p sculpt.Point3d) (sculpt.Color, error) {
	chunk, local, err := g.Resolve(p)
	if err != nil {
		return sculpt.Color{}, err
	}
	i := chunk.Index(local) * ColorStride
	var c sculpt.Color
	copy(c[:], chunk.Color[i:i+ColorStride])
	return c, nil
}

// ForEachChunk calls fn for every chunk in x-fastest order.
func (g *Grid) ForEachChunk(fn func(*Chunk)) {
	for _, chunk := range g.chunks {
		fn(chunk)
	}
}

// Fill sets every iso sample from a function of the voxel coordinate.
func (g *Grid) Fill(fn func(p sculpt.Point3d) float32) {
	g.forEachVoxel(func(chunk *Chunk, i int, p sculpt.Point3d) {
		chunk.Iso[i] = fn(p)
	})
}

// FillColor sets every color sample from a function of the voxel coordinate.
func (g *Grid) FillColor(fn func(p sculpt.Point3d) sculpt.Color) {
	g.forEachVoxel(func(chunk *Chunk, i int, p sculpt.Point3d) {
		c := fn(p)
		copy(chunk.Color[i*ColorStride:(i+1)*ColorStride], c[:])
	})
}

func (g *Grid) forEachVoxel(fn func(chunk *Chunk, i int, p sculpt.Point3d)) {
	n := g.chunkSize
	for _, chunk := range g.chunks {
		origin := chunk.Origin()
		var i int
		for z := int32(0); z < n; z++ {
			for y := int32(0); y < n; y++ {
				for x := int32(0); x < n; x++ {
					fn(chunk, i, sculpt.Point3d{origin[0] + x, origin[1] + y, origin[2] + z})
					i++
				}
			}
		}
	}
}

// Rechunk returns a new grid with a different chunk size covering at least the voxels
// of g.  Samples are copied by voxel coordinate; voxels past the old extent are zero.
func (g *Grid) Rechunk(chunkSize int32) (*Grid, error) {
	if chunkSize <= 0 {
		return nil, sculpt.NewConfigError("grid", "chunk size must be positive, got %d", chunkSize)
	}
	voxels := g.VoxelExtent()
	var extent sculpt.ChunkPoint3d
	for i := range extent {
		extent[i] = (voxels[i] + chunkSize - 1) / chunkSize
	}
	ng, err := New(extent, chunkSize)
	if err != nil {
		return nil, err
	}
	ng.forEachVoxel(func(chunk *Chunk, i int, p sculpt.Point3d) {
		if p[0] >= voxels[0] || p[1] >= voxels[1] || p[2] >= voxels[2] {
			return
		}
		src := g.chunks[g.chunkIndex(p.Chunk(g.chunkSize))]
		j := src.Index(p.PointInChunk(g.chunkSize))
		chunk.Iso[i] = src.Iso[j]
		copy(chunk.Color[i*ColorStride:(i+1)*ColorStride], src.Color[j*ColorStride:(j+1)*ColorStride])
	})
	return ng, nil
}

// MemoryFootprint returns the bytes held by chunk storage.
func (g *Grid) MemoryFootprint() uint64 {
	return uint64(size.Of(g.chunks))
}

// GroundPlane returns a fill function producing a signed distance to a horizontal
// surface at the given height: positive (solid) below, negative above.
func GroundPlane(height float32) func(p sculpt.Point3d) float32 {
	return func(p sculpt.Point3d) float32 {
		return height - float32(p[1])
	}
}
