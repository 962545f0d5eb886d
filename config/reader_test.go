package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aruco_pattern_board.yaml")
	err := os.WriteFile(path, []byte(`
marker_size: 40
marker_type: 4x4_50
marker_layout:
  0: [0, 0]
  "1": [100, 0]
  2: ["100", 100.0]
  3: [0, 100]
offset:
  xyz: [0.0, 0.0, 0.05]
  xyzw: [0.0, 0.0, 0.0, 1.0]
`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	raw, err := Load(path)
	test.That(t, err, test.ShouldBeNil)

	pattern, err := NewArucoPattern(raw)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pattern.MarkerIDs(), test.ShouldResemble, []int{0, 1, 2, 3})
	test.That(t, pattern.MarkerLayout[2], test.ShouldResemble, [2]int{100, 100})

	offset, err := NewOffset(raw)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offset.XYZ, test.ShouldResemble, [3]float64{0, 0, 0.05})

	cfg := &Configuration{Offset: offset, ArucoPattern: pattern, Preprocessing: &Preprocessing{}}
	out := AdjustedPath(path)
	test.That(t, Write(out, cfg.ToMap()), test.ShouldBeNil)

	reloaded, err := Load(out)
	test.That(t, err, test.ShouldBeNil)
	pattern2, err := NewArucoPattern(reloaded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pattern2, test.ShouldResemble, pattern)
	offset2, err := NewOffset(reloaded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offset2, test.ShouldResemble, offset)
	test.That(t, reloaded["invert_img"], test.ShouldEqual, false)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	test.That(t, errors.Is(err, ErrConfigIO), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.yaml")
	var ioErr *IOError
	test.That(t, errors.As(err, &ioErr), test.ShouldBeTrue)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	bad := filepath.Join(dir, "bad.yaml")
	test.That(t, os.WriteFile(bad, []byte("marker_id: [1, 2"), 0o600), test.ShouldBeNil)
	_, err = Load(bad)
	test.That(t, errors.Is(err, ErrConfigIO), test.ShouldBeTrue)

	empty := filepath.Join(dir, "empty.yaml")
	test.That(t, os.WriteFile(empty, nil, 0o600), test.ShouldBeNil)
	raw, err := Load(empty)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, raw, test.ShouldBeEmpty)

	err = Write(filepath.Join(dir, "no", "such", "dir.yaml"), map[string]interface{}{})
	test.That(t, errors.Is(err, ErrConfigIO), test.ShouldBeTrue)
}

func TestAdjustedPath(t *testing.T) {
	test.That(t, AdjustedPath("aruco_marker.yaml"), test.ShouldEqual, "aruco_marker_adj.yaml")
	test.That(t, AdjustedPath(filepath.Join("cfg", "charuco.front.yml")), test.ShouldEqual,
		filepath.Join("cfg", "charuco.front_adj.yml"))
	test.That(t, AdjustedPath(filepath.Join("cfg", "charuco")), test.ShouldEqual, filepath.Join("cfg", "charuco_adj"))
}
