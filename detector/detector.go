// Package detector estimates the pose of an object carrying a fiducial pattern.
//
// Every detector runs the same pipeline: take a frame, optionally invert it, detect markers,
// match detections against the pattern, solve and refine the pattern pose, then compose the
// configured offset onto it. The three pattern kinds differ only in how detections become
// correspondences and which solve mode is used.
package detector

import (
	"context"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r3"
	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/camera"
	"go.viam.com/fiducialpose/config"
	"go.viam.com/fiducialpose/correspondence"
	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/pattern"
	"go.viam.com/fiducialpose/pnp"
	"go.viam.com/fiducialpose/spatialmath"
)

// Kind names one of the supported pattern kinds.
type Kind int

const (
	// KindArucoMarker detects a single square marker.
	KindArucoMarker Kind = iota
	// KindArucoPattern detects a layout of markers with known centers.
	KindArucoPattern
	// KindCharuco detects a Charuco board.
	KindCharuco
)

func (k Kind) String() string {
	switch k {
	case KindArucoMarker:
		return "aruco_marker"
	case KindArucoPattern:
		return "aruco_pattern"
	case KindCharuco:
		return "charuco"
	default:
		return "unknown"
	}
}

// Dependencies are the collaborators a detector drives. The detector does not own them and never
// closes them.
type Dependencies struct {
	Source  camera.FrameSource
	Markers aruco.MarkerDetector
	Solver  pnp.Solver
	Logger  logging.Logger
}

func (deps Dependencies) validate() error {
	if deps.Source == nil {
		return errors.New("detector needs a frame source")
	}
	if deps.Markers == nil {
		return errors.New("detector needs a marker detector")
	}
	if deps.Solver == nil {
		return errors.New("detector needs a pose solver")
	}
	return nil
}

type correspondenceFunc func([]aruco.Detection) (correspondence.Correspondences, bool)

// A Detector finds the pose of one configured pattern. FindPose must not be called concurrently on
// the same Detector; AdjustOffset and the accessors may be called at any time.
type Detector struct {
	kind            Kind
	path            string
	dict            pattern.Dictionary
	mode            pnp.SolveMode
	correspondences correspondenceFunc

	source  camera.FrameSource
	markers aruco.MarkerDetector
	solver  pnp.Solver
	logger  logging.Logger

	mu  sync.Mutex
	raw map[string]interface{}
	cfg config.Configuration
}

// loadCommon reads the file and the fragments shared by every kind.
func loadCommon(path string, deps Dependencies) (map[string]interface{}, config.Configuration, error) {
	if err := deps.validate(); err != nil {
		return nil, config.Configuration{}, err
	}
	raw, err := config.Load(path)
	if err != nil {
		return nil, config.Configuration{}, err
	}
	offset, err := config.NewOffset(raw)
	if err != nil {
		return nil, config.Configuration{}, errors.Wrapf(err, "invalid configuration %q", path)
	}
	pre, err := config.NewPreprocessing(raw)
	if err != nil {
		return nil, config.Configuration{}, errors.Wrapf(err, "invalid configuration %q", path)
	}
	return raw, config.Configuration{Offset: offset, Preprocessing: pre}, nil
}

func newDetector(
	kind Kind,
	path string,
	raw map[string]interface{},
	cfg config.Configuration,
	dict pattern.Dictionary,
	mode pnp.SolveMode,
	correspondences correspondenceFunc,
	deps Dependencies,
) *Detector {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("detector")
	}
	logger = logger.Sublogger(kind.String())
	logger.Debugw("detector ready", "config", path, "dictionary", dict.Name(), "mode", mode.String())
	return &Detector{
		kind:            kind,
		path:            path,
		dict:            dict,
		mode:            mode,
		correspondences: correspondences,
		source:          deps.Source,
		markers:         deps.Markers,
		solver:          deps.Solver,
		logger:          logger,
		raw:             raw,
		cfg:             cfg,
	}
}

// NewArucoMarkerDetector builds a single marker detector from the configuration file at path.
func NewArucoMarkerDetector(path string, deps Dependencies) (*Detector, error) {
	raw, cfg, err := loadCommon(path, deps)
	if err != nil {
		return nil, err
	}
	markerCfg, err := config.NewArucoMarker(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	marker, err := pattern.NewSingleMarker(markerCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	cfg.ArucoMarker = markerCfg
	match := func(dets []aruco.Detection) (correspondence.Correspondences, bool) {
		return correspondence.MatchSingleMarker(dets, marker)
	}
	return newDetector(KindArucoMarker, path, raw, cfg, marker.Dictionary(), pnp.SolveIPPESquare, match, deps), nil
}

// NewArucoPatternDetector builds a multi-marker layout detector from the configuration file at path.
func NewArucoPatternDetector(path string, deps Dependencies) (*Detector, error) {
	raw, cfg, err := loadCommon(path, deps)
	if err != nil {
		return nil, err
	}
	patternCfg, err := config.NewArucoPattern(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	layout, err := pattern.NewMarkerLayout(patternCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	cfg.ArucoPattern = patternCfg
	match := func(dets []aruco.Detection) (correspondence.Correspondences, bool) {
		return correspondence.MatchMarkerLayout(dets, layout)
	}
	return newDetector(KindArucoPattern, path, raw, cfg, layout.Dictionary(), pnp.SolveIPPE, match, deps), nil
}

// NewCharucoDetector builds a Charuco board detector from the configuration file at path.
func NewCharucoDetector(path string, deps Dependencies) (*Detector, error) {
	raw, cfg, err := loadCommon(path, deps)
	if err != nil {
		return nil, err
	}
	charucoCfg, err := config.NewCharuco(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	board, err := pattern.NewCharucoBoard(charucoCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %q", path)
	}
	cfg.Charuco = charucoCfg
	match := func(dets []aruco.Detection) (correspondence.Correspondences, bool) {
		return correspondence.MatchCharucoBoard(dets, board)
	}
	return newDetector(KindCharuco, path, raw, cfg, board.Dictionary(), pnp.SolveIPPE, match, deps), nil
}

// Kind returns the pattern kind.
func (d *Detector) Kind() Kind {
	return d.kind
}

// ConfigPath returns the configuration file the detector was built from.
func (d *Detector) ConfigPath() string {
	return d.path
}

// Config returns a deep copy of the file's content with the current fragments merged over it.
func (d *Detector) Config() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied, err := copystructure.Copy(lo.Assign(d.raw, d.cfg.ToMap()))
	if err != nil {
		panic(err)
	}
	return copied.(map[string]interface{})
}

// Offset returns a copy of the current offset.
func (d *Detector) Offset() config.Offset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.cfg.Offset
}

// FindPose runs one detection pass. Every per-frame failure is logged at debug level and reported
// as not found together with the zero pose. A ctx from logging.EnableDebugMode turns on the
// per-frame debug lines regardless of the logger's level.
func (d *Detector) FindPose(ctx context.Context) (bool, spatialmath.Pose) {
	pose, err := d.findPose(ctx)
	if err != nil {
		d.logger.CDebugw(ctx, "pose not found", "error", err)
		return false, spatialmath.NewZeroPose()
	}
	return true, pose
}

func (d *Detector) findPose(ctx context.Context) (spatialmath.Pose, error) {
	img, release, err := d.source.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get frame")
	}
	if release != nil {
		defer release()
	}

	d.mu.Lock()
	invert := d.cfg.Preprocessing.InvertImg
	offset := d.cfg.Offset.Pose()
	d.mu.Unlock()

	if invert {
		img = imaging.Invert(img)
	}

	detections, err := d.markers.DetectMarkers(img, d.dict)
	if err != nil {
		return nil, errors.Wrap(err, "marker detection failed")
	}
	corr, ok := d.correspondences(detections)
	if !ok {
		return nil, errors.Errorf("not enough of the pattern in view, detected ids %v", aruco.IDs(detections))
	}

	cam := d.source.Intrinsics()
	initial, err := d.solver.Solve(corr.ObjectPoints, corr.ImagePoints, cam, d.mode)
	if err != nil {
		return nil, errors.Wrap(err, "solve failed")
	}
	refined, err := d.solver.Refine(corr.ObjectPoints, corr.ImagePoints, cam, initial, pnp.DefaultTermCriteria)
	if err != nil {
		return nil, errors.Wrap(err, "refine failed")
	}
	fields := []interface{}{"points", corr.Len(), "rvec", refined.RVec, "tvec", refined.TVec}
	if reproj, err := pnp.ComputeReprojectionError(corr.ObjectPoints, corr.ImagePoints, refined, cam); err == nil {
		fields = append(fields, "reprojection_rms_px", reproj.RMS, "reprojection_max_px", reproj.Max)
	}
	d.logger.CDebugw(ctx, "pose found", fields...)
	return spatialmath.Compose(refined.Pose(), offset), nil
}

// AdjustOffset replaces the offset position and/or orientation (nil keeps the current value) and
// writes the merged configuration next to the original file with an "_adj" suffix. The original
// file is left untouched. It returns the path written. If the write fails the previous offset is
// kept.
func (d *Detector) AdjustOffset(position *r3.Vector, orientation *spatialmath.Quaternion) (string, error) {
	if orientation != nil {
		if _, err := spatialmath.NewQuaternionFromXYZW(orientation.XYZW()); err != nil {
			return "", err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	previous := *d.cfg.Offset
	d.cfg.Offset.Adjust(position, orientation)
	adjusted := *d.cfg.Offset

	out := config.AdjustedPath(d.path)
	if err := config.Write(out, lo.Assign(d.raw, d.cfg.ToMap())); err != nil {
		*d.cfg.Offset = previous
		return "", err
	}
	d.logger.Infow("offset adjusted", "path", out, "xyz", adjusted.XYZ, "xyzw", adjusted.XYZW)
	return out, nil
}
