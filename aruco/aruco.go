// Package aruco defines the contract of a fiducial marker corner detector and ships an OpenCV
// backed implementation.
package aruco

import (
	"image"

	"github.com/golang/geo/r2"

	"go.viam.com/fiducialpose/pattern"
)

// Detection is one decoded marker: its id and its four pixel corners in the order top-left,
// top-right, bottom-right, bottom-left (clockwise in image coordinates).
type Detection struct {
	ID      int
	Corners [4]r2.Point
}

// A MarkerDetector finds the markers of one dictionary in an image. Detections are returned in
// the detector's own order; an image with no markers yields an empty slice and no error.
type MarkerDetector interface {
	DetectMarkers(img image.Image, dict pattern.Dictionary) ([]Detection, error)
}

// IDs returns the ids of the detections, in order.
func IDs(detections []Detection) []int {
	ids := make([]int, len(detections))
	for i, d := range detections {
		ids[i] = d.ID
	}
	return ids
}

// Corners returns the corner sets of the detections, in order.
func Corners(detections []Detection) [][4]r2.Point {
	corners := make([][4]r2.Point, len(detections))
	for i, d := range detections {
		corners[i] = d.Corners
	}
	return corners
}
