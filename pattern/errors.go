package pattern

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownMarkerType is matched by every UnknownMarkerTypeError.
	ErrUnknownMarkerType = errors.New("unknown marker type")

	// ErrInvalidMarkerID is matched by every InvalidMarkerIDError.
	ErrInvalidMarkerID = errors.New("marker id outside the dictionary's id range")

	// ErrUnknownMarkerID is matched by every UnknownMarkerIDError.
	ErrUnknownMarkerID = errors.New("marker id has no configured position")
)

// An UnknownMarkerTypeError is returned when a marker type string names no known dictionary.
type UnknownMarkerTypeError struct {
	MarkerType string
}

func (e *UnknownMarkerTypeError) Error() string {
	return fmt.Sprintf("no marker dictionary named %q", e.MarkerType)
}

// Is reports whether target is ErrUnknownMarkerType.
func (e *UnknownMarkerTypeError) Is(target error) bool {
	return target == ErrUnknownMarkerType
}

// An InvalidMarkerIDError is returned when a configured id lies outside [0, IDRange).
type InvalidMarkerIDError struct {
	ID         int
	Dictionary Dictionary
}

func (e *InvalidMarkerIDError) Error() string {
	return fmt.Sprintf("marker id %d is outside [0, %d) of dictionary %s", e.ID, e.Dictionary.IDRange(), e.Dictionary)
}

// Is reports whether target is ErrInvalidMarkerID.
func (e *InvalidMarkerIDError) Is(target error) bool {
	return target == ErrInvalidMarkerID
}

// An UnknownMarkerIDError is returned when a layout is asked about an id it does not contain.
type UnknownMarkerIDError struct {
	ID int
}

func (e *UnknownMarkerIDError) Error() string {
	return fmt.Sprintf("there is no position defined for marker id %d", e.ID)
}

// Is reports whether target is ErrUnknownMarkerID.
func (e *UnknownMarkerIDError) Is(target error) bool {
	return target == ErrUnknownMarkerID
}
