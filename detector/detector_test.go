package detector

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/camera"
	"go.viam.com/fiducialpose/config"
	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/pattern"
	"go.viam.com/fiducialpose/pnp"
	"go.viam.com/fiducialpose/rimage/transform"
	"go.viam.com/fiducialpose/spatialmath"
	"go.viam.com/fiducialpose/testutils/inject"
)

const markerConfig = `marker_id: 3
marker_size: 50
marker_type: 4x4_50
notes: front camera
offset:
  xyz: [0.0, 0.0, 0.1]
  xyzw: [0.0, 0.0, 0.7071068, 0.7071068]
`

const patternConfig = `marker_size: 20
marker_type: 4x4_50
marker_layout:
  0: [0, 0]
  1: [100, 0]
  2: [100, 100]
  3: [0, 100]
`

const charucoConfig = `marker_size: 15
marker_type: 4x4_50
checker_size: 20
checker_grid_size: [5, 5]
invert_img: false
`

var (
	solved  = pnp.Solution{RVec: r3.Vector{Y: 0.3}, TVec: r3.Vector{X: 0.1, Y: 0.2, Z: 0.5}}
	refined = pnp.Solution{RVec: r3.Vector{Y: 0.31}, TVec: r3.Vector{X: 0.1, Y: 0.2, Z: 0.51}}
)

func unitSquare(x, y float64) [4]r2.Point {
	return [4]r2.Point{{X: x, Y: y}, {X: x + 1, Y: y}, {X: x + 1, Y: y + 1}, {X: x, Y: y + 1}}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

type fakes struct {
	model   *transform.PinholeCameraModel
	source  *inject.FrameSource
	markers *inject.MarkerDetector
	solver  *inject.Solver

	solveMode pnp.SolveMode
	solveObj  []r3.Vector
	solveImg  []r2.Point
	refineIn  pnp.Solution
	criteria  pnp.TermCriteria
	seenImage image.Image
}

func newFakes(t *testing.T, detections []aruco.Detection) *fakes {
	t.Helper()
	f := &fakes{
		model: &transform.PinholeCameraModel{
			PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{Width: 8, Height: 8, Fx: 10, Fy: 10, Ppx: 4, Ppy: 4},
		},
	}
	static := &camera.StaticSource{Img: imaging.New(8, 8, color.White), Model: f.model}
	f.source = &inject.FrameSource{FrameSource: static}
	f.markers = &inject.MarkerDetector{
		DetectMarkersFunc: func(img image.Image, dict pattern.Dictionary) ([]aruco.Detection, error) {
			f.seenImage = img
			return detections, nil
		},
	}
	f.solver = &inject.Solver{
		SolveFunc: func(
			obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, mode pnp.SolveMode,
		) (pnp.Solution, error) {
			test.That(t, cam, test.ShouldEqual, f.model)
			f.solveObj, f.solveImg, f.solveMode = obj, img, mode
			return solved, nil
		},
		RefineFunc: func(
			obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, initial pnp.Solution, criteria pnp.TermCriteria,
		) (pnp.Solution, error) {
			f.refineIn, f.criteria = initial, criteria
			return refined, nil
		},
	}
	return f
}

func (f *fakes) deps(t *testing.T) Dependencies {
	return Dependencies{Source: f.source, Markers: f.markers, Solver: f.solver, Logger: logging.NewTestLogger(t)}
}

func configuredOffset(t *testing.T) spatialmath.Pose {
	t.Helper()
	q, err := spatialmath.NewQuaternionFromXYZW([4]float64{0, 0, 0.7071068, 0.7071068})
	test.That(t, err, test.ShouldBeNil)
	return spatialmath.NewPose(r3.Vector{Z: 0.1}, q)
}

func TestFindPoseSingleMarker(t *testing.T) {
	f := newFakes(t, []aruco.Detection{
		{ID: 5, Corners: unitSquare(10, 10)},
		{ID: 3, Corners: unitSquare(0, 0)},
	})
	d, err := NewArucoMarkerDetector(writeConfig(t, "aruco_marker_front.yaml", markerConfig), f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Kind(), test.ShouldEqual, KindArucoMarker)

	found, pose := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)

	sq := unitSquare(0, 0)
	test.That(t, f.solveMode, test.ShouldEqual, pnp.SolveIPPESquare)
	test.That(t, f.solveImg, test.ShouldResemble, sq[:])
	test.That(t, f.solveObj, test.ShouldHaveLength, 4)
	test.That(t, f.solveObj[0].X, test.ShouldAlmostEqual, -0.025)
	test.That(t, f.refineIn, test.ShouldResemble, solved)
	test.That(t, f.criteria, test.ShouldResemble, pnp.TermCriteria{MaxIter: 30, Epsilon: 0.001})

	offset := configuredOffset(t)
	want := spatialmath.Compose(refined.Pose(), offset)
	test.That(t, spatialmath.PoseAlmostEqualEps(pose, want, 1e-9), test.ShouldBeTrue)
	// the solved pose is composed first
	reversed := spatialmath.Compose(offset, refined.Pose())
	test.That(t, spatialmath.PoseAlmostEqualEps(pose, reversed, 1e-6), test.ShouldBeFalse)
}

func TestFindPoseNotFound(t *testing.T) {
	path := writeConfig(t, "aruco_marker.yaml", markerConfig)
	for _, tc := range []struct {
		name  string
		setup func(f *fakes)
	}{
		{"frame error", func(f *fakes) {
			f.source.NextFunc = func(ctx context.Context) (image.Image, func(), error) {
				return nil, nil, errors.New("camera unplugged")
			}
		}},
		{"detector error", func(f *fakes) {
			f.markers.DetectMarkersFunc = func(image.Image, pattern.Dictionary) ([]aruco.Detection, error) {
				return nil, errors.New("native failure")
			}
		}},
		{"marker not visible", func(f *fakes) {
			f.markers.DetectMarkersFunc = func(image.Image, pattern.Dictionary) ([]aruco.Detection, error) {
				return []aruco.Detection{{ID: 5, Corners: unitSquare(0, 0)}}, nil
			}
		}},
		{"solve error", func(f *fakes) {
			f.solver.SolveFunc = func([]r3.Vector, []r2.Point, *transform.PinholeCameraModel, pnp.SolveMode) (pnp.Solution, error) {
				return pnp.Solution{}, pnp.ErrSolveFailed
			}
		}},
		{"refine error", func(f *fakes) {
			f.solver.RefineFunc = func(
				[]r3.Vector, []r2.Point, *transform.PinholeCameraModel, pnp.Solution, pnp.TermCriteria,
			) (pnp.Solution, error) {
				return pnp.Solution{}, errors.New("diverged")
			}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
			tc.setup(f)
			logger, logs := logging.NewObservedTestLogger(t)
			deps := f.deps(t)
			deps.Logger = logger
			d, err := NewArucoMarkerDetector(path, deps)
			test.That(t, err, test.ShouldBeNil)

			found, pose := d.FindPose(context.Background())
			test.That(t, found, test.ShouldBeFalse)
			test.That(t, spatialmath.PoseAlmostEqual(pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)
			test.That(t, logs.FilterMessage("pose not found").Len(), test.ShouldEqual, 1)
		})
	}
}

func TestFindPoseInvertsImage(t *testing.T) {
	f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	d, err := NewArucoMarkerDetector(writeConfig(t, "aruco_marker.yaml", markerConfig+"invert_img: true\n"), f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	found, _ := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	r, g, b, _ := f.seenImage.At(2, 2).RGBA()
	test.That(t, []uint32{r, g, b}, test.ShouldResemble, []uint32{0, 0, 0})

	f = newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	d, err = NewArucoMarkerDetector(writeConfig(t, "aruco_marker.yaml", markerConfig), f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	d.FindPose(context.Background())
	r, _, _, _ = f.seenImage.At(2, 2).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))
}

func TestFindPoseArucoPattern(t *testing.T) {
	f := newFakes(t, []aruco.Detection{
		{ID: 0, Corners: unitSquare(0, 0)},
		{ID: 1, Corners: unitSquare(10, 0)},
		{ID: 2, Corners: unitSquare(10, 10)},
		{ID: 3, Corners: unitSquare(0, 10)},
		{ID: 7, Corners: unitSquare(5, 5)},
	})
	d, err := NewArucoPatternDetector(writeConfig(t, "aruco_pattern.yaml", patternConfig), f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Kind(), test.ShouldEqual, KindArucoPattern)

	found, pose := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, f.solveMode, test.ShouldEqual, pnp.SolveIPPE)
	test.That(t, f.solveObj, test.ShouldHaveLength, 4)
	test.That(t, f.solveImg[1], test.ShouldResemble, r2.Point{X: 10.5, Y: 0.5})
	test.That(t, f.solveObj[1], test.ShouldResemble, r3.Vector{X: 0.1})
	// no offset configured
	test.That(t, spatialmath.PoseAlmostEqualEps(pose, refined.Pose(), 1e-9), test.ShouldBeTrue)
}

func TestFindPoseCharuco(t *testing.T) {
	f := newFakes(t, []aruco.Detection{
		{ID: 0, Corners: unitSquare(0, 0)},
		{ID: 1, Corners: unitSquare(2, 0)},
		{ID: 2, Corners: unitSquare(4, 0)},
		{ID: 3, Corners: unitSquare(6, 0)},
	})
	d, err := NewCharucoDetector(writeConfig(t, "charuco.yaml", charucoConfig), f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Kind(), test.ShouldEqual, KindCharuco)

	found, _ := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, f.solveMode, test.ShouldEqual, pnp.SolveIPPE)
	test.That(t, f.solveObj, test.ShouldHaveLength, 16)
}

func TestConstructionErrors(t *testing.T) {
	f := newFakes(t, nil)
	deps := f.deps(t)

	_, err := NewArucoMarkerDetector(filepath.Join(t.TempDir(), "missing.yaml"), deps)
	test.That(t, errors.Is(err, config.ErrConfigIO), test.ShouldBeTrue)

	_, err = NewArucoMarkerDetector(writeConfig(t, "m.yaml", "marker_size: 50\nmarker_type: 4x4_50\n"), deps)
	test.That(t, errors.Is(err, config.ErrConfigMissingKey), test.ShouldBeTrue)

	_, err = NewArucoMarkerDetector(writeConfig(t, "m.yaml", "marker_id: 3\nmarker_size: 50\nmarker_type: 5x5_13\n"), deps)
	test.That(t, errors.Is(err, pattern.ErrUnknownMarkerType), test.ShouldBeTrue)

	_, err = NewArucoMarkerDetector(writeConfig(t, "m.yaml", "marker_id: 50\nmarker_size: 50\nmarker_type: 4x4_50\n"), deps)
	test.That(t, errors.Is(err, pattern.ErrInvalidMarkerID), test.ShouldBeTrue)

	_, err = NewArucoPatternDetector(writeConfig(t, "p.yaml", "marker_size: 20\nmarker_type: 4x4_50\nmarker_layout:\n  0: [0, 0]\n  1: [100, 0]\n  2: [100, 100]\n  60: [0, 100]\n"), deps)
	test.That(t, errors.Is(err, pattern.ErrInvalidMarkerID), test.ShouldBeTrue)

	_, err = NewCharucoDetector(writeConfig(t, "c.yaml", "marker_size: 15\nmarker_type: 4x4_50\nchecker_size: 20\n"), deps)
	test.That(t, errors.Is(err, config.ErrConfigMissingKey), test.ShouldBeTrue)

	_, err = NewArucoMarkerDetector(
		writeConfig(t, "m.yaml", "marker_id: 3\nmarker_size: 50\nmarker_type: 4x4_50\noffset:\n  xyz: [0, 0, 0]\n"), deps)
	test.That(t, errors.Is(err, config.ErrConfigMissingKey), test.ShouldBeTrue)

	_, err = NewArucoMarkerDetector(writeConfig(t, "m.yaml", markerConfig), Dependencies{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAdjustOffset(t *testing.T) {
	f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	path := writeConfig(t, "aruco_marker_front.yaml", markerConfig)
	d, err := NewArucoMarkerDetector(path, f.deps(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ConfigPath(), test.ShouldEqual, path)

	out, err := d.AdjustOffset(&r3.Vector{X: 1, Y: 2, Z: 3}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, filepath.Join(filepath.Dir(path), "aruco_marker_front_adj.yaml"))
	test.That(t, d.Offset().XYZ, test.ShouldResemble, [3]float64{1, 2, 3})

	written, err := config.Load(out)
	test.That(t, err, test.ShouldBeNil)
	offset, err := config.NewOffset(written)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offset.XYZ, test.ShouldResemble, [3]float64{1, 2, 3})
	test.That(t, offset.XYZW, test.ShouldResemble, [4]float64{0, 0, 0.7071068, 0.7071068})
	test.That(t, written["notes"], test.ShouldEqual, "front camera")
	test.That(t, written["marker_id"], test.ShouldEqual, 3)

	original, err := config.Load(path)
	test.That(t, err, test.ShouldBeNil)
	offset, err = config.NewOffset(original)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offset.XYZ, test.ShouldResemble, [3]float64{0, 0, 0.1})

	q, err := spatialmath.NewQuaternionFromXYZW([4]float64{0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	_, err = d.AdjustOffset(nil, q)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Offset().XYZW, test.ShouldResemble, [4]float64{0, 0, 0, 1})
	test.That(t, d.Config()["offset"], test.ShouldResemble, map[string]interface{}{
		"xyz":  []float64{1, 2, 3},
		"xyzw": []float64{0, 0, 0, 1},
	})

	found, pose := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	want := spatialmath.Compose(refined.Pose(), spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3}))
	test.That(t, spatialmath.PoseAlmostEqualEps(pose, want, 1e-9), test.ShouldBeTrue)
}

func TestFindPoseDebugMode(t *testing.T) {
	f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	logger, logs := logging.NewObservedTestLogger(t)
	logger.SetLevel(logging.INFO)
	deps := f.deps(t)
	deps.Logger = logger
	d, err := NewArucoMarkerDetector(writeConfig(t, "aruco_marker.yaml", markerConfig), deps)
	test.That(t, err, test.ShouldBeNil)

	found, _ := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, logs.FilterMessage("pose found").Len(), test.ShouldEqual, 0)

	found, _ = d.FindPose(logging.EnableDebugMode(context.Background(), ""))
	test.That(t, found, test.ShouldBeTrue)
	entries := logs.FilterMessage("pose found").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields, test.ShouldContainKey, "reprojection_rms_px")
	test.That(t, fields, test.ShouldContainKey, "reprojection_max_px")
	test.That(t, fields["points"], test.ShouldEqual, int64(4))

	f.markers.DetectMarkersFunc = func(image.Image, pattern.Dictionary) ([]aruco.Detection, error) {
		return nil, nil
	}
	found, _ = d.FindPose(logging.EnableDebugMode(context.Background(), "frame-7"))
	test.That(t, found, test.ShouldBeFalse)
	test.That(t, logs.FilterMessage("pose not found").Len(), test.ShouldEqual, 1)
}

func TestAdjustOffsetWriteFailureKeepsOffset(t *testing.T) {
	f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	path := writeConfig(t, "aruco_marker.yaml", markerConfig)
	d, err := NewArucoMarkerDetector(path, f.deps(t))
	test.That(t, err, test.ShouldBeNil)

	// a directory in the way makes the write fail
	test.That(t, os.Mkdir(config.AdjustedPath(path), 0o700), test.ShouldBeNil)

	_, err = d.AdjustOffset(&r3.Vector{X: 1, Y: 2, Z: 3}, nil)
	test.That(t, errors.Is(err, config.ErrConfigIO), test.ShouldBeTrue)
	test.That(t, d.Offset().XYZ, test.ShouldResemble, [3]float64{0, 0, 0.1})
	test.That(t, d.Config()["offset"], test.ShouldResemble, map[string]interface{}{
		"xyz":  []float64{0, 0, 0.1},
		"xyzw": []float64{0, 0, 0.7071068, 0.7071068},
	})

	found, pose := d.FindPose(context.Background())
	test.That(t, found, test.ShouldBeTrue)
	offset := config.Offset{XYZ: [3]float64{0, 0, 0.1}, XYZW: [4]float64{0, 0, 0.7071068, 0.7071068}}
	want := spatialmath.Compose(refined.Pose(), offset.Pose())
	test.That(t, spatialmath.PoseAlmostEqualEps(pose, want, 1e-9), test.ShouldBeTrue)
}

func TestConfigReturnsDeepCopy(t *testing.T) {
	f := newFakes(t, nil)
	d, err := NewArucoMarkerDetector(writeConfig(t, "aruco_marker.yaml", markerConfig+"extra:\n  a: 1\n"), f.deps(t))
	test.That(t, err, test.ShouldBeNil)

	cfg := d.Config()
	extra, ok := cfg["extra"].(map[string]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	extra["a"] = 99
	cfg["offset"].(map[string]interface{})["xyz"].([]float64)[0] = 5

	again := d.Config()
	test.That(t, again["extra"], test.ShouldResemble, map[string]interface{}{"a": 1})
	test.That(t, d.Offset().XYZ, test.ShouldResemble, [3]float64{0, 0, 0.1})
}

func TestPoll(t *testing.T) {
	f := newFakes(t, []aruco.Detection{{ID: 3, Corners: unitSquare(0, 0)}})
	d, err := NewArucoMarkerDetector(writeConfig(t, "aruco_marker.yaml", markerConfig), f.deps(t))
	test.That(t, err, test.ShouldBeNil)

	mock := clock.NewMock()
	test.That(t, d.Poll(context.Background(), mock, 0, nil), test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan bool, 10)
	done := make(chan error, 1)
	go func() {
		done <- d.Poll(ctx, mock, 200*time.Millisecond, func(found bool, _ spatialmath.Pose) {
			results <- found
		})
	}()

	test.That(t, <-results, test.ShouldBeTrue)
	mock.Add(200 * time.Millisecond)
	test.That(t, <-results, test.ShouldBeTrue)

	cancel()
	test.That(t, <-done, test.ShouldEqual, context.Canceled)
}
