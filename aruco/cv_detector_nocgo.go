//go:build no_cgo

package aruco

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/pattern"
)

var errNotSupported = errors.New("marker detection is not supported on this build")

// CVDetector mimics the type in the cgo compiled code.
type CVDetector struct{}

// NewCVDetector returns a detector that always fails.
func NewCVDetector(logger logging.Logger) *CVDetector {
	return &CVDetector{}
}

// DetectMarkers refuses to detect markers without cgo.
func (d *CVDetector) DetectMarkers(img image.Image, dict pattern.Dictionary) ([]Detection, error) {
	return nil, errNotSupported
}

// Close is a no-op.
func (d *CVDetector) Close() error {
	return nil
}
