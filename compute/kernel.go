package compute

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blang/semver"

	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// Globals are the per-dispatch kernel parameters.
type Globals struct {
	// Position is the world-space hit point.
	Position sculpt.Vector3d

	// Normal is the sculpt direction for normal-aware brushes, else zero.
	Normal sculpt.Vector3d

	Size     float32
	Strength float32
	Hardness float32
	Color    sculpt.Color

	ChunkSize int32

	// CenterOrigin is the voxel coordinate of the center chunk's first cell.
	CenterOrigin sculpt.Point3d

	// SlotOffsets holds the chunk offset, relative to the center chunk, of each slot.
	SlotOffsets []sculpt.ChunkPoint3d

	// CenterSlot is the index of the slot that gets written.
	CenterSlot int
}

// Radius is half the brush size in voxels.
func (g *Globals) Radius() float32 {
	return g.Size / 2
}

// View is what a kernel workgroup sees: a read-only snapshot of every gathered slot and
// the writable center slot.
type View struct {
	Src []float32
	Dst []float32

	Stride        int
	CellsPerChunk int
	ChunkSize     int32

	globals *Globals
	slots   map[sculpt.ChunkPoint3d]int
}

func newView(g *Globals, src []float32, buf *Buffer) *View {
	v := &View{
		Src:           src,
		Dst:           buf.Slot(g.CenterSlot),
		Stride:        buf.Stride,
		CellsPerChunk: buf.CellsPerChunk,
		ChunkSize:     g.ChunkSize,
		globals:       g,
		slots:         make(map[sculpt.ChunkPoint3d]int, len(g.SlotOffsets)),
	}
	for i, off := range g.SlotOffsets {
		v.slots[off] = i
	}
	return v
}

// Index returns the flat cell index of a chunk-local coordinate.
func (v *View) Index(x, y, z int32) int {
	n := v.ChunkSize
	return int(x + y*n + z*n*n)
}

// World returns the world-space center of a center-chunk cell.
func (v *View) World(x, y, z int32) sculpt.Vector3d {
	o := v.globals.CenterOrigin
	return sculpt.Vector3d{float64(o[0] + x), float64(o[1] + y), float64(o[2] + z)}
}

// Cell returns the gathered values of the cell at a coordinate relative to the center
// chunk's origin.  Coordinates outside the center chunk are read from the neighbor slot
// that holds them; when no slot holds them, the coordinate is clamped into the center
// chunk.
func (v *View) Cell(p sculpt.Point3d) []float32 {
	local := p.PointInChunk(v.ChunkSize)
	slot, found := v.slots[p.Chunk(v.ChunkSize)]
	if !found {
		slot = v.globals.CenterSlot
		for i := 0; i < 3; i++ {
			local[i] = clampInt(p[i], 0, v.ChunkSize-1)
		}
	}
	i := (slot*v.CellsPerChunk + v.Index(local[0], local[1], local[2])) * v.Stride
	return v.Src[i : i+v.Stride]
}

// SampleLinear trilinearly interpolates the first value of each cell at a position
// relative to the center chunk's origin.
func (v *View) SampleLinear(p sculpt.Vector3d) float32 {
	base := p.Floor()
	fx := float32(p[0] - math.Floor(p[0]))
	fy := float32(p[1] - math.Floor(p[1]))
	fz := float32(p[2] - math.Floor(p[2]))
	var acc float32
	for dz := int32(0); dz < 2; dz++ {
		wz := lerpWeight(fz, dz)
		for dy := int32(0); dy < 2; dy++ {
			wy := lerpWeight(fy, dy)
			for dx := int32(0); dx < 2; dx++ {
				w := lerpWeight(fx, dx) * wy * wz
				if w == 0 {
					continue
				}
				acc += w * v.Cell(base.Add(sculpt.Point3d{dx, dy, dz}))[0]
			}
		}
	}
	return acc
}

func lerpWeight(f float32, d int32) float32 {
	if d == 0 {
		return 1 - f
	}
	return f
}

func clampInt(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Falloff returns the brush weight at a distance from the brush center.  Weight is 1 at
// the center, 0 at or beyond the radius, and ramps linearly in between with a plateau
// whose width grows with hardness.
func Falloff(dist, radius, hardness float32) float32 {
	if radius <= 0 || dist >= radius {
		return 0
	}
	if hardness >= 1 {
		return 1
	}
	return clamp01((1 - dist/radius) / (1 - hardness))
}

// Kernel is a compute program run over the center slot of a transfer buffer, one
// z-slice per workgroup.  Workgroups may run concurrently and must only write the
// z-slice they are given.
type Kernel interface {
	Name() string
	Version() semver.Version

	// Stride is the number of float32 values per cell the kernel operates on.
	Stride() int

	// Roles lists the brush roles whose values the kernel reads from Globals.  A brush
	// running the kernel must declare each of them.
	Roles() []property.Role

	Workgroup(g *Globals, v *View, z int32) error
}

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel makes a kernel available by name.  Registering the same name twice is
// a programming error.
func RegisterKernel(k Kernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	if _, dup := kernels[k.Name()]; dup {
		panic(fmt.Sprintf("compute kernel %q registered twice", k.Name()))
	}
	kernels[k.Name()] = k
}

// GetKernel returns a registered kernel.
func GetKernel(name string) (Kernel, error) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, found := kernels[name]
	if !found {
		return nil, sculpt.NewConfigError("compute", "no kernel %q registered", name)
	}
	return k, nil
}

// Kernels returns the sorted names of registered kernels.
func Kernels() []string {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
