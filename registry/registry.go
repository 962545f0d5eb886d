// Package registry picks the detector kind for a configuration file from the file's name.
package registry

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/detector"
)

// ErrNoMatchingDetector is matched by every NoMatchingDetectorError.
var ErrNoMatchingDetector = errors.New("no detector registered for configuration file")

// A NoMatchingDetectorError is returned when no registered prefix starts a file's base name.
type NoMatchingDetectorError struct {
	Path     string
	Prefixes []string
}

func (e *NoMatchingDetectorError) Error() string {
	return fmt.Sprintf("no detector registered for %q, file name must start with one of %v", e.Path, e.Prefixes)
}

// Is reports whether target is ErrNoMatchingDetector.
func (e *NoMatchingDetectorError) Is(target error) bool {
	return target == ErrNoMatchingDetector
}

// A Constructor builds a detector from the configuration file at path.
type Constructor func(path string, deps detector.Dependencies) (*detector.Detector, error)

// Registration ties a file name prefix to a detector constructor.
type Registration struct {
	Prefix      string
	Constructor Constructor
}

// Registry holds registrations ordered longest prefix first, so "aruco_marker" wins over "aruco"
// whatever the registration order.
type Registry struct {
	regs []Registration
}

// New returns a registry holding regs.
func New(regs ...Registration) *Registry {
	r := &Registry{}
	for _, reg := range regs {
		r.Register(reg)
	}
	return r
}

// Default returns a registry of the built-in detector kinds.
func Default() *Registry {
	return New(
		Registration{Prefix: detector.KindCharuco.String(), Constructor: detector.NewCharucoDetector},
		Registration{Prefix: detector.KindArucoMarker.String(), Constructor: detector.NewArucoMarkerDetector},
		Registration{Prefix: detector.KindArucoPattern.String(), Constructor: detector.NewArucoPatternDetector},
	)
}

// Register adds a registration. It panics on an empty or duplicate prefix or a nil constructor.
func (r *Registry) Register(reg Registration) {
	if reg.Prefix == "" {
		panic(errors.New("cannot register a detector with an empty prefix"))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for detector prefix: %s", reg.Prefix))
	}
	for _, old := range r.regs {
		if old.Prefix == reg.Prefix {
			panic(errors.Errorf("trying to register two detectors with the same prefix: %s", reg.Prefix))
		}
	}
	r.regs = append(r.regs, reg)
	slices.SortStableFunc(r.regs, func(a, b Registration) int {
		return cmp.Compare(len(b.Prefix), len(a.Prefix))
	})
}

// Prefixes returns the registered prefixes in matching order.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		out = append(out, reg.Prefix)
	}
	return out
}

// Lookup returns the first registration whose prefix starts the base name of path.
func (r *Registry) Lookup(path string) (Registration, bool) {
	base := filepath.Base(path)
	for _, reg := range r.regs {
		if strings.HasPrefix(base, reg.Prefix) {
			return reg, true
		}
	}
	return Registration{}, false
}

// Create builds the detector registered for path.
func (r *Registry) Create(path string, deps detector.Dependencies) (*detector.Detector, error) {
	reg, ok := r.Lookup(path)
	if !ok {
		return nil, &NoMatchingDetectorError{Path: path, Prefixes: r.Prefixes()}
	}
	return reg.Constructor(path, deps)
}
