package property

import (
	"fmt"
	"sort"

	"github.com/isoterra/sculpt/sculpt"
)

// Role is a semantic brush parameter independent of which descriptor backs it.
type Role string

const (
	RoleSize         Role = "size"
	RoleStrength     Role = "strength"
	RoleHardness     Role = "hardness"
	RoleColor        Role = "color"
	RoleCacheNormals Role = "cache-normals"
	RoleUseVertical  Role = "use-vertical"
)

// Roles lists every role an associator must map.
var Roles = []Role{RoleSize, RoleStrength, RoleHardness, RoleColor, RoleCacheNormals, RoleUseVertical}

// roleTypes is the value type each role must be backed by.
var roleTypes = map[Role]sculpt.ValueType{
	RoleSize:         sculpt.T_float,
	RoleStrength:     sculpt.T_float,
	RoleHardness:     sculpt.T_float,
	RoleColor:        sculpt.T_color,
	RoleCacheNormals: sculpt.T_bool,
	RoleUseVertical:  sculpt.T_bool,
}

// RoleType returns the value type required of the descriptor backing a role.
func RoleType(r Role) sculpt.ValueType {
	return roleTypes[r]
}

// Associator maps each role to exactly one descriptor identifier.  It is loaded once
// and read-only afterwards.
type Associator struct {
	ids map[Role]string
}

// NewAssociator builds an associator from role names.  Unknown roles and missing roles
// are configuration errors.
func NewAssociator(m map[string]string) (Associator, error) {
	a := Associator{ids: make(map[Role]string, len(Roles))}
	for name, id := range m {
		r := Role(name)
		if _, known := roleTypes[r]; !known {
			return Associator{}, sculpt.NewConfigError("associator", "unknown role %q", name)
		}
		if id == "" {
			return Associator{}, sculpt.NewConfigError("associator", "role %q maps to an empty identifier", name)
		}
		a.ids[r] = id
	}
	for _, r := range Roles {
		if _, found := a.ids[r]; !found {
			return Associator{}, sculpt.NewConfigError("associator", "role %q is not configured", r)
		}
	}
	return a, nil
}

// RoleToIdentifier returns the descriptor identifier backing the role.
func (a Associator) RoleToIdentifier(r Role) (string, error) {
	id, found := a.ids[r]
	if !found {
		return "", sculpt.NewConfigError("associator", "role %q is not configured", r)
	}
	return id, nil
}

// Map returns a copy of the role mapping keyed by role name.
func (a Associator) Map() map[string]string {
	m := make(map[string]string, len(a.ids))
	for r, id := range a.ids {
		m[string(r)] = id
	}
	return m
}

func (a Associator) String() string {
	roles := make([]string, 0, len(a.ids))
	for r := range a.ids {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	s := "associator{"
	for i, r := range roles {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", r, a.ids[Role(r)])
	}
	return s + "}"
}
