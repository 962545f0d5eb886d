//go:build !no_cgo

package aruco

import (
	"image"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/pattern"
)

// CVDetector detects markers with OpenCV's ArUco module. One native detector is created per
// dictionary on first use and kept until Close.
type CVDetector struct {
	logger logging.Logger

	mu        sync.Mutex
	detectors map[pattern.Dictionary]*gocv.ArucoDetector
	closed    bool
}

// NewCVDetector returns a detector using OpenCV's default detection parameters.
func NewCVDetector(logger logging.Logger) *CVDetector {
	return &CVDetector{
		logger:    logger,
		detectors: map[pattern.Dictionary]*gocv.ArucoDetector{},
	}
}

// DetectMarkers converts img to a native matrix and runs marker detection for dict.
func (d *CVDetector) DetectMarkers(img image.Image, dict pattern.Dictionary) ([]Detection, error) {
	detector, err := d.detectorFor(dict)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert image for marker detection")
	}
	defer func() {
		if err := mat.Close(); err != nil {
			d.logger.Debugw("closing image matrix failed", "error", err)
		}
	}()
	if mat.Empty() {
		return nil, errors.New("image is empty")
	}

	corners, ids, _ := detector.DetectMarkers(mat)
	if len(corners) != len(ids) {
		return nil, errors.Errorf("detector returned %d corner sets for %d ids", len(corners), len(ids))
	}
	detections := make([]Detection, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			return nil, errors.Errorf("marker %d has %d corners, expected 4", id, len(corners[i]))
		}
		det := Detection{ID: id}
		for j, pt := range corners[i] {
			det.Corners[j] = r2.Point{X: float64(pt.X), Y: float64(pt.Y)}
		}
		detections = append(detections, det)
	}
	d.logger.Debugw("markers detected", "dictionary", dict.Name(), "ids", IDs(detections))
	return detections, nil
}

func (d *CVDetector) detectorFor(dict pattern.Dictionary) (*gocv.ArucoDetector, error) {
	if dict.IDRange() == 0 {
		return nil, errors.Errorf("unsupported marker dictionary %d", int(dict))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("marker detector is closed")
	}
	if det, ok := d.detectors[dict]; ok {
		return det, nil
	}
	det := gocv.NewArucoDetectorWithParams(
		gocv.GetPredefinedDictionary(gocv.ArucoDictionaryCode(dict)),
		gocv.NewArucoDetectorParameters(),
	)
	d.detectors[dict] = &det
	return &det, nil
}

// Close releases every native detector.
func (d *CVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs error
	for dict, det := range d.detectors {
		errs = multierr.Append(errs, det.Close())
		delete(d.detectors, dict)
	}
	d.closed = true
	return errs
}
