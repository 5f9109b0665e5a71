package brush

import (
	"context"
	"errors"
	"fmt"

	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/grid"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

const (
	IsoStride   = 1
	ColorStride = grid.ColorStride
)

// terrain runs the gather, dispatch, scatter protocol for one stencil and cell stride.
type terrain struct {
	stencil  Stencil
	stride   int
	geometry bool
	hardness bool
	color    bool

	device compute.Device
	kernel compute.Kernel

	buf       *compute.Buffer
	chunkSize int32
}

func newTerrain(info VariantInfo, device compute.Device, kernel compute.Kernel) *terrain {
	t := &terrain{
		stencil:  info.Stencil,
		stride:   info.Stride,
		geometry: info.AffectsGeometry,
		device:   device,
		kernel:   kernel,
	}
	for _, r := range info.Roles {
		switch r {
		case property.RoleHardness:
			t.hardness = true
		case property.RoleColor:
			t.color = true
		}
	}
	return t
}

func (t *terrain) AffectsGeometry() bool {
	return t.geometry
}

func (t *terrain) SetBuffer(g *grid.Grid) error {
	t.ReleaseBuffer()
	buf, err := t.device.Acquire(len(t.stencil), t.stride, g.CellsPerChunk())
	if err != nil {
		return err
	}
	t.buf = buf
	t.chunkSize = g.ChunkSize()
	return nil
}

func (t *terrain) ReleaseBuffer() {
	if t.buf != nil {
		t.device.Release(t.buf)
		t.buf = nil
	}
}

// data returns the chunk array this variant operates on.
func (t *terrain) data(c *grid.Chunk) []float32 {
	if t.stride == ColorStride {
		return c.Color
	}
	return c.Iso
}

func (t *terrain) BeginDispatch(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	return t.dispatch(ctx, b, g, hit, sculpt.Vector3d{})
}

// dispatch gathers every stencil chunk, runs the kernel, and writes back only the
// center slot.  Any unresolvable chunk aborts before the buffer or the grid is touched.
func (t *terrain) dispatch(ctx context.Context, b *Brush, g *grid.Grid, hit Hit, normal sculpt.Vector3d) (Result, error) {
	timedLog := sculpt.NewTimeLog()
	if t.buf == nil || t.buf.Released() {
		return Result{}, sculpt.ErrBufferReleased
	}
	if g.ChunkSize() != t.chunkSize {
		return Result{}, fmt.Errorf("transfer buffer sized for chunk size %d but grid has %d", t.chunkSize, g.ChunkSize())
	}

	coords := t.stencil.Chunks(hit.Chunk)
	chunks := make([]*grid.Chunk, len(coords))
	for i, coord := range coords {
		c, err := g.Chunk(coord)
		if err != nil {
			return Result{}, fmt.Errorf("gather around chunk %s: %w", hit.Chunk, err)
		}
		chunks[i] = c
	}
	globals, err := t.globals(b, hit, normal)
	if err != nil {
		return Result{}, err
	}

	for i, c := range chunks {
		copy(t.buf.Slot(i), t.data(c))
	}
	if err := t.device.Dispatch(ctx, t.kernel, globals, t.buf); err != nil {
		return Result{}, err
	}
	center := t.stencil.Center()
	copy(t.data(chunks[center]), t.buf.Slot(center))

	timedLog.Debugf("%s dispatched %q at %s", b, t.kernel.Name(), hit)
	return Result{
		Chunk:           hit.Chunk,
		Dispatched:      true,
		AffectsGeometry: t.geometry,
		Elapsed:         timedLog.Elapsed(),
	}, nil
}

func (t *terrain) globals(b *Brush, hit Hit, normal sculpt.Vector3d) (compute.Globals, error) {
	g := compute.Globals{
		Position:     hit.Point,
		Normal:       normal,
		ChunkSize:    t.chunkSize,
		CenterOrigin: hit.Chunk.MinPoint(t.chunkSize),
		SlotOffsets:  t.stencil,
		CenterSlot:   t.stencil.Center(),
	}
	var err error
	if g.Size, err = b.Float(property.RoleSize); err != nil {
		return g, err
	}
	if g.Strength, err = b.Float(property.RoleStrength); err != nil {
		return g, err
	}

	// Hardness and color may go undeclared unless required.  A declared value of the
	// wrong type is always an error.
	if h, err := b.Float(property.RoleHardness); err == nil {
		g.Hardness = h
	} else if t.hardness || !errors.Is(err, sculpt.ErrUndeclaredProperty) {
		return g, err
	}
	if c, err := b.Color(property.RoleColor); err == nil {
		g.Color = c
	} else if t.color || !errors.Is(err, sculpt.ErrUndeclaredProperty) {
		return g, err
	}
	return g, nil
}

func (t *terrain) OnStart(b *Brush, hit Hit) error {
	if t.buf == nil {
		return fmt.Errorf("%s has no transfer buffer: %w", b, sculpt.ErrBufferReleased)
	}
	return nil
}

func (t *terrain) OnApply(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	return t.BeginDispatch(ctx, b, g, hit)
}

func (t *terrain) OnLeave(b *Brush) {}

// normals is the geometry variant that sculpts along a direction: world up when the
// use-vertical role is set, the normal captured at stroke start when cache-normals is
// set, and the per-sample hit normal otherwise.
type normals struct {
	*terrain

	startedWithNormal bool
	cachedNormal      sculpt.Vector3d
}

func (n *normals) OnStart(b *Brush, hit Hit) error {
	if err := n.terrain.OnStart(b, hit); err != nil {
		return err
	}
	cache, err := b.Bool(property.RoleCacheNormals)
	if err != nil {
		return err
	}
	if cache {
		n.cachedNormal = hit.Normal
		n.startedWithNormal = true
	}
	return nil
}

// strokeNormal picks the sculpt direction for a sample.
func (n *normals) strokeNormal(b *Brush, hit Hit) (sculpt.Vector3d, error) {
	vertical, err := b.Bool(property.RoleUseVertical)
	if err != nil {
		return sculpt.Vector3d{}, err
	}
	switch {
	case vertical:
		return sculpt.UpVector, nil
	case n.startedWithNormal:
		return n.cachedNormal, nil
	default:
		return hit.Normal, nil
	}
}

func (n *normals) BeginDispatch(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	normal, err := n.strokeNormal(b, hit)
	if err != nil {
		return Result{}, err
	}
	return n.dispatch(ctx, b, g, hit, normal)
}

func (n *normals) OnApply(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	return n.BeginDispatch(ctx, b, g, hit)
}

func (n *normals) OnLeave(b *Brush) {
	n.startedWithNormal = false
	n.cachedNormal = sculpt.Vector3d{}
}

// null is the no-tool sentinel.  Every operation is inert.
type null struct{}

func (null) AffectsGeometry() bool           { return false }
func (null) SetBuffer(g *grid.Grid) error    { return nil }
func (null) ReleaseBuffer()                  {}
func (null) OnStart(b *Brush, hit Hit) error { return nil }
func (null) OnLeave(b *Brush)                {}

func (null) BeginDispatch(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	return Result{Chunk: hit.Chunk}, nil
}

func (n null) OnApply(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error) {
	return n.BeginDispatch(ctx, b, g, hit)
}
