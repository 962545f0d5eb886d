package inject

import (
	"image"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/pattern"
)

// MarkerDetector is an injected marker detector.
type MarkerDetector struct {
	aruco.MarkerDetector
	DetectMarkersFunc func(img image.Image, dict pattern.Dictionary) ([]aruco.Detection, error)
}

// DetectMarkers calls the injected DetectMarkers or the real version.
func (md *MarkerDetector) DetectMarkers(img image.Image, dict pattern.Dictionary) ([]aruco.Detection, error) {
	if md.DetectMarkersFunc == nil {
		return md.MarkerDetector.DetectMarkers(img, dict)
	}
	return md.DetectMarkersFunc(img, dict)
}
