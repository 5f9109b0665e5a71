package property

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tinylib/msgp/msgp"

	"github.com/isoterra/sculpt/sculpt"
)

// MsgPackContentType is the content type of msgpack encoded store snapshots.
const MsgPackContentType = "application/x-msgpack"

// Store is the per-brush-instance mutable property state.  It only ever holds
// identifiers its brush declares.
type Store struct {
	declared Descriptors
	values   map[string]sculpt.Value
}

// NewStore returns an empty store for the declared descriptors.  Call InitializeBrush
// before reading.
func NewStore(declared Descriptors) *Store {
	return &Store{
		declared: declared,
		values:   make(map[string]sculpt.Value, len(declared)),
	}
}

// Declared returns the descriptor list backing this store.
func (s *Store) Declared() Descriptors {
	return s.declared
}

// InitializeBrush inserts the default of every declared identifier not already present.
// It is idempotent and never overwrites an existing value.
func (s *Store) InitializeBrush() {
	for _, d := range s.declared {
		if _, found := s.values[d.ID]; !found {
			s.values[d.ID] = d.Default
		}
	}
}

// Reset restores every declared identifier to its default.
func (s *Store) Reset() {
	s.values = make(map[string]sculpt.Value, len(s.declared))
	s.InitializeBrush()
}

// Len returns the number of stored values.
func (s *Store) Len() int {
	return len(s.values)
}

// Has returns true if the identifier currently holds a value.
func (s *Store) Has(id string) bool {
	_, found := s.values[id]
	return found
}

// Set upserts a value, replacing whatever was stored regardless of its type.
// Identifiers the brush does not declare are rejected.
func (s *Store) Set(id string, v sculpt.Value) error {
	if !s.declared.Declares(id) {
		return fmt.Errorf("can't set %q: %w", id, sculpt.ErrUndeclaredProperty)
	}
	if v.Type == sculpt.T_invalid {
		return fmt.Errorf("can't set %q to an invalid value", id)
	}
	s.values[id] = v
	return nil
}

// Get returns the stored value.  Reading an identifier with no value is a programming
// error and returns ErrUndeclaredProperty.
func (s *Store) Get(id string) (sculpt.Value, error) {
	v, found := s.values[id]
	if !found {
		return sculpt.Value{}, fmt.Errorf("can't get %q: %w", id, sculpt.ErrUndeclaredProperty)
	}
	return v, nil
}

func (s *Store) typed(id string, want sculpt.ValueType) (sculpt.Value, error) {
	v, err := s.Get(id)
	if err != nil {
		return v, err
	}
	if v.Type != want {
		return v, &sculpt.TypeMismatchError{ID: id, Want: want, Got: v.Type}
	}
	return v, nil
}

func (s *Store) Bool(id string) (bool, error) {
	v, err := s.typed(id, sculpt.T_bool)
	return v.Bool, err
}

func (s *Store) Int(id string) (int64, error) {
	v, err := s.typed(id, sculpt.T_int)
	return v.Int, err
}

func (s *Store) Float(id string) (float32, error) {
	v, err := s.typed(id, sculpt.T_float)
	return v.Float, err
}

func (s *Store) Color(id string) (sculpt.Color, error) {
	v, err := s.typed(id, sculpt.T_color)
	return v.Color, err
}

// Kind constrains the Go types a property value can be read as.
type Kind interface {
	bool | int64 | float32 | sculpt.Color
}

func kindType[T Kind]() sculpt.ValueType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return sculpt.T_bool
	case int64:
		return sculpt.T_int
	case float32:
		return sculpt.T_float
	case sculpt.Color:
		return sculpt.T_color
	}
	return sculpt.T_invalid
}

// Get returns the stored value as T, failing with a *sculpt.TypeMismatchError if the
// stored type differs.
func Get[T Kind](s *Store, id string) (T, error) {
	var zero T
	v, err := s.typed(id, kindType[T]())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// Set stores a Go value under the identifier.
func Set[T Kind](s *Store, id string, value T) error {
	var v sculpt.Value
	switch x := any(value).(type) {
	case bool:
		v = sculpt.BoolValue(x)
	case int64:
		v = sculpt.IntValue(x)
	case float32:
		v = sculpt.FloatValue(x)
	case sculpt.Color:
		v = sculpt.ColorValue(x)
	}
	return s.Set(id, v)
}

// Entry is one identifier/value pair of a snapshot.
type Entry struct {
	ID    string
	Value sculpt.Value
}

// Snapshot returns the stored values sorted by identifier.
func (s *Store) Snapshot() []Entry {
	entries := make([]Entry, 0, len(s.values))
	for id, v := range s.values {
		entries = append(entries, Entry{id, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// MarshalJSON implements the json.Marshaler interface as an object keyed by identifier.
func (s *Store) MarshalJSON() ([]byte, error) {
	m := make(map[string]sculpt.Value, len(s.values))
	for id, v := range s.values {
		m[id] = v
	}
	return json.Marshal(m)
}

// MarshalMsg appends the msgpack encoding of the snapshot to b.  Each value is encoded
// as a two element array of type tag and payload.
func (s *Store) MarshalMsg(b []byte) ([]byte, error) {
	entries := s.Snapshot()
	b = msgp.AppendMapHeader(b, uint32(len(entries)))
	for _, e := range entries {
		b = msgp.AppendString(b, e.ID)
		b = msgp.AppendArrayHeader(b, 2)
		b = msgp.AppendUint8(b, uint8(e.Value.Type))
		switch e.Value.Type {
		case sculpt.T_bool:
			b = msgp.AppendBool(b, e.Value.Bool)
		case sculpt.T_int:
			b = msgp.AppendInt64(b, e.Value.Int)
		case sculpt.T_float:
			b = msgp.AppendFloat32(b, e.Value.Float)
		case sculpt.T_color:
			b = msgp.AppendArrayHeader(b, 4)
			for _, comp := range e.Value.Color {
				b = msgp.AppendFloat32(b, comp)
			}
		default:
			return b, fmt.Errorf("can't encode property %q with invalid type", e.ID)
		}
	}
	return b, nil
}

// UnmarshalMsg decodes a msgpack snapshot and applies every entry with Set, so
// undeclared identifiers are rejected.
func (s *Store) UnmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	decoded := make(map[string]sculpt.Value, n)
	for i := uint32(0); i < n; i++ {
		var id string
		if id, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		var v sculpt.Value
		if v, b, err = readValue(b); err != nil {
			return b, fmt.Errorf("property %q: %v", id, err)
		}
		if !s.declared.Declares(id) {
			return b, fmt.Errorf("can't set %q: %w", id, sculpt.ErrUndeclaredProperty)
		}
		if v.Type == sculpt.T_invalid {
			return b, fmt.Errorf("can't set %q to an invalid value", id)
		}
		decoded[id] = v
	}

	// Nothing is applied unless every entry decoded.
	for id, v := range decoded {
		s.values[id] = v
	}
	return b, nil
}

func readValue(b []byte) (v sculpt.Value, o []byte, err error) {
	var sz uint32
	if sz, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return v, b, err
	}
	if sz != 2 {
		return v, b, fmt.Errorf("expected [type, value] pair, got %d elements", sz)
	}
	var tag uint8
	if tag, b, err = msgp.ReadUint8Bytes(b); err != nil {
		return v, b, err
	}
	v.Type = sculpt.ValueType(tag)
	switch v.Type {
	case sculpt.T_bool:
		v.Bool, b, err = msgp.ReadBoolBytes(b)
	case sculpt.T_int:
		v.Int, b, err = msgp.ReadInt64Bytes(b)
	case sculpt.T_float:
		v.Float, b, err = msgp.ReadFloat32Bytes(b)
	case sculpt.T_color:
		if sz, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
			return v, b, err
		}
		if sz != 4 {
			return v, b, fmt.Errorf("expected 4 color components, got %d", sz)
		}
		for i := 0; i < 4 && err == nil; i++ {
			v.Color[i], b, err = msgp.ReadFloat32Bytes(b)
		}
	default:
		err = fmt.Errorf("unknown value type tag %d", tag)
	}
	return v, b, err
}
