// Package correspondence pairs detected marker corners with the object points of a pattern. The
// matchers decide whether a frame holds enough of the pattern to solve for a pose; they never call
// a solver and never fail, a frame that does not qualify is simply reported as not found.
package correspondence

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/config"
	"go.viam.com/fiducialpose/pattern"
)

// MinMarkers is the fewest matched markers a multi-marker layout or Charuco board needs.
const MinMarkers = config.MinLayoutMarkers

// Correspondences are parallel object-space (meters) and image-space (pixels) points.
type Correspondences struct {
	ObjectPoints []r3.Vector
	ImagePoints  []r2.Point
}

// Len returns the number of point pairs.
func (c Correspondences) Len() int {
	return len(c.ObjectPoints)
}

// Center returns the midpoint of a marker's top-left and bottom-right corners.
func Center(corners [4]r2.Point) r2.Point {
	return corners[0].Add(corners[2]).Mul(0.5)
}

// MatchSingleMarker pairs the four corners of the first detection carrying the marker's id with
// the marker's object points.
func MatchSingleMarker(detections []aruco.Detection, marker *pattern.SingleMarker) (Correspondences, bool) {
	for _, det := range detections {
		if det.ID != marker.MarkerID() {
			continue
		}
		obj := marker.ObjectPoints()
		return Correspondences{
			ObjectPoints: obj[:],
			ImagePoints:  append([]r2.Point(nil), det.Corners[:]...),
		}, true
	}
	return Correspondences{}, false
}

// MatchMarkerLayout pairs the center of every detected layout marker with its configured position.
// Only the first detection of an id counts. Fewer than MinMarkers distinct matches is not found.
func MatchMarkerLayout(detections []aruco.Detection, layout *pattern.MarkerLayout) (Correspondences, bool) {
	var c Correspondences
	seen := map[int]struct{}{}
	for _, det := range detections {
		if _, dup := seen[det.ID]; dup {
			continue
		}
		obj, err := layout.ObjectPoint(det.ID)
		if err != nil {
			continue
		}
		seen[det.ID] = struct{}{}
		c.ObjectPoints = append(c.ObjectPoints, obj)
		c.ImagePoints = append(c.ImagePoints, Center(det.Corners))
	}
	if c.Len() < MinMarkers {
		return Correspondences{}, false
	}
	return c, true
}

// MatchCharucoBoard hands all detections to the board's own matcher once at least MinMarkers
// markers were detected.
func MatchCharucoBoard(detections []aruco.Detection, board *pattern.CharucoBoard) (Correspondences, bool) {
	if len(detections) < MinMarkers {
		return Correspondences{}, false
	}
	obj, img := board.MatchImagePoints(aruco.IDs(detections), aruco.Corners(detections))
	if len(obj) == 0 {
		return Correspondences{}, false
	}
	return Correspondences{ObjectPoints: obj, ImagePoints: img}, true
}
