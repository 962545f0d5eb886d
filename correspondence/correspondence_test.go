package correspondence

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/config"
	"go.viam.com/fiducialpose/pattern"
)

func square(x, y, side float64) [4]r2.Point {
	return [4]r2.Point{{X: x, Y: y}, {X: x + side, Y: y}, {X: x + side, Y: y + side}, {X: x, Y: y + side}}
}

func TestCenter(t *testing.T) {
	c := Center([4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}})
	test.That(t, c, test.ShouldResemble, r2.Point{X: 5, Y: 5})

	// only the top-left and bottom-right corners count
	c = Center([4]r2.Point{{X: 0, Y: 0}, {X: 100, Y: 3}, {X: 10, Y: 10}, {X: -50, Y: 10}})
	test.That(t, c, test.ShouldResemble, r2.Point{X: 5, Y: 5})
}

func TestMatchSingleMarker(t *testing.T) {
	marker, err := pattern.NewSingleMarker(&config.ArucoMarker{MarkerID: 3, MarkerSize: 50, MarkerType: "4x4_50"})
	test.That(t, err, test.ShouldBeNil)

	_, ok := MatchSingleMarker(nil, marker)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = MatchSingleMarker([]aruco.Detection{{ID: 5, Corners: square(0, 0, 1)}}, marker)
	test.That(t, ok, test.ShouldBeFalse)

	first := square(10, 10, 1)
	second := square(20, 20, 1)
	c, ok := MatchSingleMarker([]aruco.Detection{
		{ID: 5, Corners: square(0, 0, 1)},
		{ID: 3, Corners: first},
		{ID: 3, Corners: second},
	}, marker)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.Len(), test.ShouldEqual, 4)
	test.That(t, c.ImagePoints, test.ShouldResemble, first[:])
	obj := marker.ObjectPoints()
	test.That(t, c.ObjectPoints, test.ShouldResemble, obj[:])
}

func TestMatchMarkerLayout(t *testing.T) {
	layout, err := pattern.NewMarkerLayout(&config.ArucoPattern{
		MarkerSize:   20,
		MarkerType:   "4x4_50",
		MarkerLayout: map[int][2]int{0: {0, 0}, 1: {100, 0}, 2: {100, 100}, 3: {0, 100}, 4: {50, 50}},
	})
	test.That(t, err, test.ShouldBeNil)

	t.Run("three ids is not found", func(t *testing.T) {
		_, ok := MatchMarkerLayout([]aruco.Detection{
			{ID: 0, Corners: square(0, 0, 10)},
			{ID: 1, Corners: square(100, 0, 10)},
			{ID: 2, Corners: square(100, 100, 10)},
			{ID: 17, Corners: square(300, 300, 10)},
		}, layout)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("duplicates count once", func(t *testing.T) {
		_, ok := MatchMarkerLayout([]aruco.Detection{
			{ID: 0, Corners: square(0, 0, 10)},
			{ID: 1, Corners: square(100, 0, 10)},
			{ID: 2, Corners: square(100, 100, 10)},
			{ID: 2, Corners: square(200, 100, 10)},
		}, layout)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("four ids", func(t *testing.T) {
		c, ok := MatchMarkerLayout([]aruco.Detection{
			{ID: 3, Corners: square(0, 100, 10)},
			{ID: 9, Corners: square(60, 60, 10)},
			{ID: 0, Corners: square(0, 0, 10)},
			{ID: 1, Corners: square(100, 0, 10)},
			{ID: 0, Corners: square(500, 500, 10)},
			{ID: 2, Corners: square(100, 100, 10)},
		}, layout)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, c.Len(), test.ShouldEqual, 4)
		test.That(t, c.ImagePoints[0], test.ShouldResemble, r2.Point{X: 5, Y: 105})
		test.That(t, c.ObjectPoints[0], test.ShouldResemble, r3.Vector{X: 0, Y: 0.1})
		// first occurrence of id 0 wins
		test.That(t, c.ImagePoints[1], test.ShouldResemble, r2.Point{X: 5, Y: 5})
		test.That(t, c.ObjectPoints[3], test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.1})
	})
}

func TestMatchCharucoBoard(t *testing.T) {
	board, err := pattern.NewCharucoBoard(&config.Charuco{
		MarkerSize: 15, MarkerType: "4x4_50", CheckerSize: 20, CheckerGridSize: [2]int{5, 5},
	})
	test.That(t, err, test.ShouldBeNil)

	dets := []aruco.Detection{
		{ID: 0, Corners: square(0, 0, 10)},
		{ID: 1, Corners: square(20, 0, 10)},
		{ID: 2, Corners: square(40, 0, 10)},
	}
	_, ok := MatchCharucoBoard(dets, board)
	test.That(t, ok, test.ShouldBeFalse)

	dets = append(dets, aruco.Detection{ID: 3, Corners: square(60, 0, 10)})
	c, ok := MatchCharucoBoard(dets, board)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.Len(), test.ShouldEqual, 16)
	test.That(t, len(c.ImagePoints), test.ShouldEqual, 16)

	// detections of ids that are not on the board yield no points
	_, ok = MatchCharucoBoard([]aruco.Detection{
		{ID: 40, Corners: square(0, 0, 10)},
		{ID: 41, Corners: square(20, 0, 10)},
		{ID: 42, Corners: square(40, 0, 10)},
		{ID: 43, Corners: square(60, 0, 10)},
	}, board)
	test.That(t, ok, test.ShouldBeFalse)
}
