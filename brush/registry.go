package brush

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// Factory builds a variant's behavior for one brush instance.
type Factory func(info VariantInfo, device compute.Device, kernel compute.Kernel) Behavior

// VariantInfo describes a registered variant.
type VariantInfo struct {
	Name            string
	Stencil         Stencil
	Stride          int
	AffectsGeometry bool
	NormalAware     bool

	// Roles lists the associator roles the variant reads.  Brushes of this variant must
	// declare the backing property of each.
	Roles []property.Role

	factory Factory
}

// NeedsKernel is true for every variant that dispatches.
func (v VariantInfo) NeedsKernel() bool {
	return len(v.Stencil) != 0
}

var (
	variantsMu sync.RWMutex
	variants   = make(map[string]VariantInfo)
)

// Register makes a variant available to New.  Registering the same name twice is a
// programming error.
func Register(info VariantInfo, f Factory) {
	variantsMu.Lock()
	defer variantsMu.Unlock()
	if _, dup := variants[info.Name]; dup {
		panic(fmt.Sprintf("brush variant %q registered twice", info.Name))
	}
	info.factory = f
	variants[info.Name] = info
}

// Variants returns the sorted names of registered variants.
func Variants() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a registered variant.
func Lookup(variant string) (VariantInfo, error) {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	info, found := variants[variant]
	if !found {
		return VariantInfo{}, sculpt.NewConfigError("brush", "no variant %q, expected one of: %s",
			variant, strings.Join(sortedKeys(variants), ", "))
	}
	return info, nil
}

func sortedKeys(m map[string]VariantInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New constructs an unselected brush.  It fails with a configuration error when the
// brush does not declare a property for a role its variant or kernel reads, or when the
// kernel cannot run over the variant's buffer layout.
func New(variant, name string, declared property.Descriptors, assoc property.Associator,
	device compute.Device, kernel compute.Kernel) (*Brush, error) {

	info, err := Lookup(variant)
	if err != nil {
		return nil, err
	}
	if info.NeedsKernel() && kernel != nil {
		info.Roles = mergeRoles(info.Roles, kernel.Roles())
	}
	for _, r := range info.Roles {
		id, err := assoc.RoleToIdentifier(r)
		if err != nil {
			return nil, sculpt.NewConfigError(name, "%v", err)
		}
		d, found := declared.Find(id)
		if !found {
			return nil, sculpt.NewConfigError(name, "%s brush reads role %q but does not declare %q", variant, r, id)
		}
		if d.Type != property.RoleType(r) {
			return nil, sculpt.NewConfigError(name, "role %q needs a %s property, %q is %s", r, property.RoleType(r), id, d.Type)
		}
	}
	if info.NeedsKernel() {
		if kernel == nil {
			return nil, sculpt.NewConfigError(name, "%s brush needs a compute kernel", variant)
		}
		if device == nil {
			return nil, sculpt.NewConfigError(name, "%s brush needs a compute device", variant)
		}
		if s := kernel.Stride(); s != 0 && s != info.Stride {
			return nil, sculpt.NewConfigError(name, "kernel %q works on stride %d, %s variant uses stride %d",
				kernel.Name(), s, variant, info.Stride)
		}
	}
	return &Brush{
		name:       name,
		variant:    variant,
		declared:   declared,
		associator: assoc,
		store:      property.NewStore(declared),
		behavior:   info.factory(info, device, kernel),
	}, nil
}

// NewFromLibrary constructs the named brush asset of a library.
func NewFromLibrary(lib *property.Library, name string, device compute.Device) (*Brush, error) {
	asset, found := lib.Brushes[name]
	if !found {
		return nil, sculpt.NewConfigError(lib.Source(), "no brush %q", name)
	}
	declared, err := lib.BrushDescriptors(name)
	if err != nil {
		return nil, err
	}
	var kernel compute.Kernel
	if asset.Kernel != "" {
		if kernel, err = compute.GetKernel(asset.Kernel); err != nil {
			return nil, err
		}
	}
	return New(asset.Variant, name, declared, lib.Associator, device, kernel)
}

// Hardness is read when declared and defaults to a soft brush otherwise.
var baseRoles = []property.Role{property.RoleSize, property.RoleStrength}

func roles(extra ...property.Role) []property.Role {
	return append(append([]property.Role{}, baseRoles...), extra...)
}

// mergeRoles appends the roles of extra missing from base into a new slice.
func mergeRoles(base, extra []property.Role) []property.Role {
	merged := append([]property.Role{}, base...)
	for _, r := range extra {
		found := false
		for _, have := range merged {
			if have == r {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, r)
		}
	}
	return merged
}

func terrainFactory(info VariantInfo, device compute.Device, kernel compute.Kernel) Behavior {
	return newTerrain(info, device, kernel)
}

func init() {
	Register(VariantInfo{Name: "null"}, func(VariantInfo, compute.Device, compute.Kernel) Behavior {
		return null{}
	})
	Register(VariantInfo{
		Name:            "iso-base",
		Stencil:         CenterStencil,
		Stride:          IsoStride,
		AffectsGeometry: true,
		Roles:           roles(),
	}, terrainFactory)
	Register(VariantInfo{
		Name:            "iso-all-sides",
		Stencil:         CrossStencil,
		Stride:          IsoStride,
		AffectsGeometry: true,
		Roles:           roles(),
	}, terrainFactory)
	Register(VariantInfo{
		Name:            "iso-normals",
		Stencil:         CenterStencil,
		Stride:          IsoStride,
		AffectsGeometry: true,
		NormalAware:     true,
		Roles:           roles(property.RoleCacheNormals, property.RoleUseVertical),
	}, func(info VariantInfo, device compute.Device, kernel compute.Kernel) Behavior {
		return &normals{terrain: newTerrain(info, device, kernel)}
	})
	Register(VariantInfo{
		Name:    "color-base",
		Stencil: CenterStencil,
		Stride:  ColorStride,
		Roles:   roles(property.RoleColor),
	}, terrainFactory)
	Register(VariantInfo{
		Name:    "color-all-sides",
		Stencil: CrossStencil,
		Stride:  ColorStride,
		Roles:   roles(),
	}, terrainFactory)
}
