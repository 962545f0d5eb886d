package config

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfigMissingKey is matched by every MissingKeyError.
	ErrConfigMissingKey = errors.New("configuration is missing a required key")

	// ErrConfigInvalidValue is matched by every InvalidValueError.
	ErrConfigInvalidValue = errors.New("configuration holds an invalid value")

	// ErrConfigIO is matched by every IOError.
	ErrConfigIO = errors.New("configuration file could not be read or written")
)

// A MissingKeyError is returned when a configuration fragment cannot find a required key.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required configuration key %q", e.Key)
}

// Is reports whether target is ErrConfigMissingKey.
func (e *MissingKeyError) Is(target error) bool {
	return target == ErrConfigMissingKey
}

// An InvalidValueError is returned when a key is present but its value has the wrong shape or range.
type InvalidValueError struct {
	Key    string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for configuration key %q: %s", e.Key, e.Reason)
}

// Is reports whether target is ErrConfigInvalidValue.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrConfigInvalidValue
}

// An IOError wraps any failure to read, parse, encode or write a configuration file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("configuration file %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying failure.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfigIO.
func (e *IOError) Is(target error) bool {
	return target == ErrConfigIO
}
