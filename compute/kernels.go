package compute

import (
	"github.com/blang/semver"

	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// weighted kernels scale their effect by the falloff of size and strength.  Hardness is
// read too but a missing hardness means a soft brush.
var weighted = []property.Role{property.RoleSize, property.RoleStrength}

func init() {
	RegisterKernel(&identityKernel{newKernelInfo("identity", "1.0.0", 0)})
	RegisterKernel(&isoSphereKernel{newKernelInfo("iso-sphere", "1.0.0", 1, weighted...)})
	RegisterKernel(&smoothKernel{newKernelInfo("iso-smooth", "1.0.0", 1, weighted...)})
	RegisterKernel(&isoNormalKernel{newKernelInfo("iso-normal", "1.1.0", 1, weighted...)})
	RegisterKernel(&colorSphereKernel{newKernelInfo("color-sphere", "1.0.0", 4,
		append(weighted, property.RoleColor)...)})
	RegisterKernel(&smoothKernel{newKernelInfo("color-smooth", "1.0.0", 4, weighted...)})
}

type kernelInfo struct {
	name    string
	version semver.Version
	stride  int
	roles   []property.Role
}

func newKernelInfo(name, version string, stride int, roles ...property.Role) kernelInfo {
	return kernelInfo{name, semver.MustParse(version), stride, append([]property.Role(nil), roles...)}
}

func (k kernelInfo) Name() string            { return k.name }
func (k kernelInfo) Version() semver.Version { return k.version }

// Stride of zero means the kernel accepts any stride.
func (k kernelInfo) Stride() int { return k.stride }

func (k kernelInfo) Roles() []property.Role { return k.roles }

// faces are the six axis-aligned neighbors of a cell.
var faces = [6]sculpt.Point3d{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// weight returns the brush weight of a center-chunk cell.
func weight(g *Globals, v *View, x, y, z int32) float32 {
	d := float32(v.World(x, y, z).Distance(g.Position))
	return Falloff(d, g.Radius(), g.Hardness)
}

// identityKernel copies the center slot onto itself.
type identityKernel struct{ kernelInfo }

func (k *identityKernel) Workgroup(g *Globals, v *View, z int32) error {
	n := v.ChunkSize
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			i := v.Index(x, y, z) * v.Stride
			copy(v.Dst[i:i+v.Stride], v.Cell(sculpt.Point3d{x, y, z}))
		}
	}
	return nil
}

// isoSphereKernel adds strength-scaled falloff to density.  Negative strength digs.
type isoSphereKernel struct{ kernelInfo }

func (k *isoSphereKernel) Workgroup(g *Globals, v *View, z int32) error {
	n := v.ChunkSize
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			w := weight(g, v, x, y, z)
			if w == 0 {
				continue
			}
			v.Dst[v.Index(x, y, z)] = v.Cell(sculpt.Point3d{x, y, z})[0] + g.Strength*w
		}
	}
	return nil
}

// isoNormalKernel moves the surface along the sculpt normal by resampling density
// upstream of each cell.
type isoNormalKernel struct{ kernelInfo }

func (k *isoNormalKernel) Workgroup(g *Globals, v *View, z int32) error {
	normal := g.Normal.Normalize()
	if normal.Length() == 0 {
		return nil
	}
	n := v.ChunkSize
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			w := weight(g, v, x, y, z)
			if w == 0 {
				continue
			}
			upstream := sculpt.Point3d{x, y, z}.Vector3d().Subtract(normal.Scale(float64(g.Strength * w)))
			v.Dst[v.Index(x, y, z)] = v.SampleLinear(upstream)
		}
	}
	return nil
}

// colorSphereKernel blends RGBA toward the brush color.
type colorSphereKernel struct{ kernelInfo }

func (k *colorSphereKernel) Workgroup(g *Globals, v *View, z int32) error {
	n := v.ChunkSize
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			t := clamp01(g.Strength * weight(g, v, x, y, z))
			if t == 0 {
				continue
			}
			src := v.Cell(sculpt.Point3d{x, y, z})
			i := v.Index(x, y, z) * v.Stride
			for c := 0; c < 4; c++ {
				v.Dst[i+c] = src[c] + (g.Color[c]-src[c])*t
			}
		}
	}
	return nil
}

// smoothKernel blends each value toward the average of its six face neighbors, reading
// across chunk boundaries wherever a neighbor slot was gathered.
type smoothKernel struct{ kernelInfo }

func (k *smoothKernel) Workgroup(g *Globals, v *View, z int32) error {
	n := v.ChunkSize
	avg := make([]float32, v.Stride)
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			t := clamp01(g.Strength * weight(g, v, x, y, z))
			if t == 0 {
				continue
			}
			p := sculpt.Point3d{x, y, z}
			for c := range avg {
				avg[c] = 0
			}
			for _, f := range faces {
				nb := v.Cell(p.Add(f))
				for c := range avg {
					avg[c] += nb[c] / float32(len(faces))
				}
			}
			src := v.Cell(p)
			i := v.Index(x, y, z) * v.Stride
			for c := range avg {
				v.Dst[i+c] = src[c] + (avg[c]-src[c])*t
			}
		}
	}
	return nil
}
