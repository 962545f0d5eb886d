package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fiducialpose/detector"
	"go.viam.com/fiducialpose/testutils/inject"
)

func record(name string, calls *[]string) Constructor {
	return func(path string, deps detector.Dependencies) (*detector.Detector, error) {
		*calls = append(*calls, name)
		return nil, nil
	}
}

func TestRegistryOrdersLongestPrefixFirst(t *testing.T) {
	var calls []string
	r := New(
		Registration{Prefix: "aruco", Constructor: record("aruco", &calls)},
		Registration{Prefix: "aruco_marker", Constructor: record("aruco_marker", &calls)},
		Registration{Prefix: "charuco", Constructor: record("charuco", &calls)},
	)
	test.That(t, r.Prefixes(), test.ShouldResemble, []string{"aruco_marker", "charuco", "aruco"})

	_, err := r.Create("/cfg/aruco_marker_front.yaml", detector.Dependencies{})
	test.That(t, err, test.ShouldBeNil)
	_, err = r.Create("aruco_pattern.yaml", detector.Dependencies{})
	test.That(t, err, test.ShouldBeNil)
	_, err = r.Create("charuco_board.yml", detector.Dependencies{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldResemble, []string{"aruco_marker", "aruco", "charuco"})

	// only the base name is matched
	_, err = r.Create("/aruco_marker/board.yaml", detector.Dependencies{})
	test.That(t, errors.Is(err, ErrNoMatchingDetector), test.ShouldBeTrue)
	var nomatch *NoMatchingDetectorError
	test.That(t, errors.As(err, &nomatch), test.ShouldBeTrue)
	test.That(t, nomatch.Path, test.ShouldEqual, "/aruco_marker/board.yaml")
}

func TestRegisterPanics(t *testing.T) {
	var calls []string
	r := New(Registration{Prefix: "aruco", Constructor: record("aruco", &calls)})
	test.That(t, func() { r.Register(Registration{Prefix: "aruco", Constructor: record("x", &calls)}) }, test.ShouldPanic)
	test.That(t, func() { r.Register(Registration{Prefix: "charuco"}) }, test.ShouldPanic)
	test.That(t, func() { r.Register(Registration{Constructor: record("x", &calls)}) }, test.ShouldPanic)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	test.That(t, r.Prefixes(), test.ShouldResemble, []string{"aruco_pattern", "aruco_marker", "charuco"})

	dir := t.TempDir()
	path := filepath.Join(dir, "aruco_marker_front.yaml")
	test.That(t, os.WriteFile(path, []byte("marker_id: 3\nmarker_size: 50\nmarker_type: 4x4_50\n"), 0o600), test.ShouldBeNil)

	deps := detector.Dependencies{Source: &inject.FrameSource{}, Markers: &inject.MarkerDetector{}, Solver: &inject.Solver{}}
	d, err := r.Create(path, deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Kind(), test.ShouldEqual, detector.KindArucoMarker)

	_, err = r.Create(filepath.Join(dir, "apriltag.yaml"), deps)
	test.That(t, errors.Is(err, ErrNoMatchingDetector), test.ShouldBeTrue)
}
