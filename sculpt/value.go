/*
	This file handles the typed values held by brush property stores and declared as
	property defaults.
*/

package sculpt

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValueType is a unique ID for each kind of brush property value.
type ValueType uint8

const (
	T_invalid ValueType = iota
	T_bool
	T_int
	T_float
	T_color
)

var typeNames = map[ValueType]string{
	T_bool:  "bool",
	T_int:   "int",
	T_float: "float",
	T_color: "color",
}

func (t ValueType) String() string {
	if name, found := typeNames[t]; found {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseValueType returns the ValueType for names like "float" or "color".
func ParseValueType(name string) (ValueType, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return T_invalid, fmt.Errorf("unknown property value type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	if _, found := typeNames[t]; !found {
		return nil, fmt.Errorf("can't marshal invalid value type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so TOML and JSON configuration can
// name value types directly.
func (t *ValueType) UnmarshalText(b []byte) error {
	parsed, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Color is a linear RGBA color with components nominally in [0,1].
type Color [4]float32

func (c Color) String() string {
	return fmt.Sprintf("rgba(%g,%g,%g,%g)", c[0], c[1], c[2], c[3])
}

// Value is a tagged union over the property value types.  Only the field selected by
// Type is meaningful.
type Value struct {
	Type  ValueType
	Bool  bool
	Int   int64
	Float float32
	Color Color
}

func BoolValue(b bool) Value     { return Value{Type: T_bool, Bool: b} }
func IntValue(i int64) Value     { return Value{Type: T_int, Int: i} }
func FloatValue(f float32) Value { return Value{Type: T_float, Float: f} }
func ColorValue(c Color) Value   { return Value{Type: T_color, Color: c} }

// Interface returns the selected member as bool, int64, float32 or Color.
func (v Value) Interface() interface{} {
	switch v.Type {
	case T_bool:
		return v.Bool
	case T_int:
		return v.Int
	case T_float:
		return v.Float
	case T_color:
		return v.Color
	default:
		return nil
	}
}

// Equal compares the type tag and the selected member only.
func (v Value) Equal(x Value) bool {
	if v.Type != x.Type {
		return false
	}
	switch v.Type {
	case T_bool:
		return v.Bool == x.Bool
	case T_int:
		return v.Int == x.Int
	case T_float:
		return math.Float32bits(v.Float) == math.Float32bits(x.Float)
	case T_color:
		return v.Color == x.Color
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Type {
	case T_bool:
		return fmt.Sprintf("%t", v.Bool)
	case T_int:
		return fmt.Sprintf("%d", v.Int)
	case T_float:
		return fmt.Sprintf("%g", v.Float)
	case T_color:
		return v.Color.String()
	default:
		return "<invalid>"
	}
}

// AsBool returns the value if it holds a bool, else a *TypeMismatchError.
func (v Value) AsBool() (bool, error) {
	if v.Type != T_bool {
		return false, &TypeMismatchError{Want: T_bool, Got: v.Type}
	}
	return v.Bool, nil
}

// AsInt returns the value if it holds an int, else a *TypeMismatchError.
func (v Value) AsInt() (int64, error) {
	if v.Type != T_int {
		return 0, &TypeMismatchError{Want: T_int, Got: v.Type}
	}
	return v.Int, nil
}

// AsFloat returns the value if it holds a float, else a *TypeMismatchError.
func (v Value) AsFloat() (float32, error) {
	if v.Type != T_float {
		return 0, &TypeMismatchError{Want: T_float, Got: v.Type}
	}
	return v.Float, nil
}

// AsColor returns the value if it holds a color, else a *TypeMismatchError.
func (v Value) AsColor() (Color, error) {
	if v.Type != T_color {
		return Color{}, &TypeMismatchError{Want: T_color, Got: v.Type}
	}
	return v.Color, nil
}

// ValueFromInterface converts a decoded configuration value (TOML or JSON) into a Value
// of the declared type.  Integers are accepted for float properties; everything else
// must match exactly.
func ValueFromInterface(t ValueType, raw interface{}) (Value, error) {
	switch t {
	case T_bool:
		if b, ok := raw.(bool); ok {
			return BoolValue(b), nil
		}
	case T_int:
		switch n := raw.(type) {
		case int64:
			return IntValue(n), nil
		case int:
			return IntValue(int64(n)), nil
		case float64:
			if n == math.Trunc(n) {
				return IntValue(int64(n)), nil
			}
		}
	case T_float:
		switch n := raw.(type) {
		case float64:
			return FloatValue(float32(n)), nil
		case float32:
			return FloatValue(n), nil
		case int64:
			return FloatValue(float32(n)), nil
		case int:
			return FloatValue(float32(n)), nil
		}
	case T_color:
		var c Color
		switch elems := raw.(type) {
		case []interface{}:
			if len(elems) != 4 {
				return Value{}, fmt.Errorf("color value needs 4 components, got %d", len(elems))
			}
			for i, elem := range elems {
				comp, err := ValueFromInterface(T_float, elem)
				if err != nil {
					return Value{}, fmt.Errorf("color component %d: %v", i, err)
				}
				c[i] = comp.Float
			}
			return ColorValue(c), nil
		case []float64:
			if len(elems) != 4 {
				return Value{}, fmt.Errorf("color value needs 4 components, got %d", len(elems))
			}
			for i, f := range elems {
				c[i] = float32(f)
			}
			return ColorValue(c), nil
		case Color:
			return ColorValue(elems), nil
		}
	default:
		return Value{}, fmt.Errorf("can't convert to invalid value type %s", t)
	}
	return Value{}, &TypeMismatchError{Want: t, Got: guessType(raw)}
}

func guessType(raw interface{}) ValueType {
	switch raw.(type) {
	case bool:
		return T_bool
	case int, int64:
		return T_int
	case float32, float64:
		return T_float
	case []interface{}, []float64, Color:
		return T_color
	default:
		return T_invalid
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (v Value) MarshalJSON() ([]byte, error) {
	if _, found := typeNames[v.Type]; !found {
		return nil, fmt.Errorf("can't marshal invalid property value")
	}
	return json.Marshal(struct {
		Type  string
		Value interface{}
	}{v.Type.String(), v.Interface()})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (v *Value) UnmarshalJSON(b []byte) error {
	var m struct {
		Type  string
		Value interface{}
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	t, err := ParseValueType(m.Type)
	if err != nil {
		return err
	}
	parsed, err := ValueFromInterface(t, m.Value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
