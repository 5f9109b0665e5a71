package sculpt

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is matched by any *OutOfRangeError.
	ErrOutOfRange = errors.New("coordinate out of grid extent")

	// ErrTypeMismatch is matched by any *TypeMismatchError.
	ErrTypeMismatch = errors.New("property type mismatch")

	// ErrUndeclaredProperty is returned when a store is asked for an identifier its
	// brush never declared.
	ErrUndeclaredProperty = errors.New("undeclared brush property")

	// ErrConfig is matched by any *ConfigError.
	ErrConfig = errors.New("configuration error")

	// ErrInvalidState is matched by any *StateError.
	ErrInvalidState = errors.New("invalid brush state transition")

	// ErrBufferReleased is returned when dispatching against a released or missing
	// transfer buffer.
	ErrBufferReleased = errors.New("transfer buffer not acquired")
)

// OutOfRangeError describes a chunk coordinate that lies outside the grid extent.
type OutOfRangeError struct {
	Chunk  ChunkPoint3d
	Extent ChunkPoint3d
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("chunk %s outside grid extent %s", e.Chunk, e.Extent)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// TypeMismatchError describes a typed read of a property holding another type.
type TypeMismatchError struct {
	ID   string
	Want ValueType
	Got  ValueType
}

func (e *TypeMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("expected %s value, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("property %q holds %s value, requested %s", e.ID, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ConfigError is a construction-time mistake in authored configuration.  These are
// fatal at load and never defaulted.
type ConfigError struct {
	Source string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return "bad configuration: " + e.Reason
	}
	return fmt.Sprintf("bad configuration in %s: %s", e.Source, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError formats a *ConfigError.
func NewConfigError(source, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// StateError describes a lifecycle call made from a state that does not permit it.
type StateError struct {
	Op    string
	State fmt.Stringer
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed while brush is %s", e.Op, e.State)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
