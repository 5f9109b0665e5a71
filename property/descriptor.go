/*
	Package property declares the typed properties a brush reads, the fixed mapping from
	semantic brush roles to property identifiers, and the per-brush property store.
*/
package property

import (
	"fmt"

	"github.com/isoterra/sculpt/sculpt"
)

// Descriptor declares a named, typed brush property with a default value.  Descriptors
// are immutable once loaded; identity is the ID string.
type Descriptor struct {
	ID      string
	Type    sculpt.ValueType
	Default sculpt.Value
}

// NewDescriptor returns a descriptor after checking the default matches the type.
func NewDescriptor(id string, def sculpt.Value) (Descriptor, error) {
	if id == "" {
		return Descriptor{}, sculpt.NewConfigError("descriptor", "empty property identifier")
	}
	if def.Type == sculpt.T_invalid {
		return Descriptor{}, sculpt.NewConfigError("descriptor", "property %q has no default value", id)
	}
	return Descriptor{ID: id, Type: def.Type, Default: def}, nil
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s, default %s)", d.ID, d.Type, d.Default)
}

// Descriptors is a brush's declared property list.  It is shared, never mutated.
type Descriptors []Descriptor

// IDs returns the declared identifiers in declaration order.
func (ds Descriptors) IDs() []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}

// Find returns the descriptor with the given identifier.
func (ds Descriptors) Find(id string) (Descriptor, bool) {
	for _, d := range ds {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Declares returns true if the identifier is declared.
func (ds Descriptors) Declares(id string) bool {
	_, found := ds.Find(id)
	return found
}
