package aruco

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestDetectionHelpers(t *testing.T) {
	test.That(t, IDs(nil), test.ShouldBeEmpty)

	square := [4]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	shifted := [4]r2.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 6}}
	dets := []Detection{{ID: 5, Corners: shifted}, {ID: 3, Corners: square}}

	test.That(t, IDs(dets), test.ShouldResemble, []int{5, 3})
	test.That(t, Corners(dets), test.ShouldResemble, [][4]r2.Point{shifted, square})
}
