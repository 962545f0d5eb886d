package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/fiducialpose/aruco"
	"go.viam.com/fiducialpose/camera"
	"go.viam.com/fiducialpose/detector"
	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/pnp"
	"go.viam.com/fiducialpose/registry"
	"go.viam.com/fiducialpose/rimage/transform"
	"go.viam.com/fiducialpose/spatialmath"
)

type options struct {
	configPath  string
	intrinsics  string
	images      []string
	interval    time.Duration
	count       int
	watch       bool
	debugFrames bool
}

func findPoses(ctx context.Context, opts options, logger logging.Logger) error {
	model, err := transform.NewPinholeCameraModelFromJSONFile(opts.intrinsics)
	if err != nil {
		return err
	}
	source, err := camera.NewImageFileSource(model, opts.images...)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(func() error { return source.Close(context.Background()) })
	markers := aruco.NewCVDetector(logger.Sublogger("aruco"))
	defer utils.UncheckedErrorFunc(markers.Close)

	deps := detector.Dependencies{
		Source:  source,
		Markers: markers,
		Solver:  pnp.NewPlanarSolver(logger.Sublogger("pnp")),
		Logger:  logger,
	}
	return poll(ctx, registry.Default(), deps, clock.New(), opts, logger)
}

// poll runs the detector built for opts.configPath until ctx is done or opts.count poses were
// found. With opts.debugFrames every pass logs at debug level. With opts.watch the detector is rebuilt whenever the configuration file is written; a
// file that fails to load keeps the previous detector running.
func poll(
	ctx context.Context,
	reg *registry.Registry,
	deps detector.Dependencies,
	clk clock.Clock,
	opts options,
	logger logging.Logger,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.debugFrames {
		ctx = logging.EnableDebugMode(ctx, "")
	}

	found := 0
	handle := func(ok bool, pose spatialmath.Pose) {
		if !ok {
			return
		}
		found++
		q := spatialmath.Quaternion(pose.Orientation().Quaternion())
		logger.Infow("found pose", "point", pose.Point(), "xyzw", q.XYZW())
		if opts.count > 0 && found >= opts.count {
			cancel()
		}
	}

	d, err := reg.Create(opts.configPath, deps)
	if err != nil {
		return err
	}
	if !opts.watch {
		return ignoreCanceled(d.Poll(ctx, clk, opts.interval, handle))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot watch configuration")
	}
	defer utils.UncheckedErrorFunc(watcher.Close)
	// editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(opts.configPath)); err != nil {
		return errors.Wrap(err, "cannot watch configuration")
	}
	target := filepath.Clean(opts.configPath)

	for {
		pollCtx, stop := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(d *detector.Detector) {
			done <- d.Poll(pollCtx, clk, opts.interval, handle)
		}(d)

		next, err := waitForReload(ctx, reg, deps, watcher, target, done, logger)
		stop()
		if next == nil {
			return ignoreCanceled(err)
		}
		<-done
		d = next
	}
}

// waitForReload returns a rebuilt detector once the watched file changes and loads, or nil and the
// poll error once polling ends.
func waitForReload(
	ctx context.Context,
	reg *registry.Registry,
	deps detector.Dependencies,
	watcher *fsnotify.Watcher,
	target string,
	done <-chan error,
	logger logging.Logger,
) (*detector.Detector, error) {
	for {
		select {
		case err := <-done:
			return nil, err
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil, <-done
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			next, err := reg.Create(target, deps)
			if err != nil {
				logger.Warnw("cannot reload configuration, keeping the previous one", "error", err)
				continue
			}
			logger.Infow("configuration reloaded", "path", target)
			return next, nil
		case err, ok := <-watcher.Errors:
			if ok {
				logger.Warnw("configuration watch error", "error", err)
			}
		case <-ctx.Done():
			return nil, <-done
		}
	}
}

func adjust(configPath, xyz, xyzw string, logger logging.Logger) error {
	if xyz == "" && xyzw == "" {
		return errors.Errorf("nothing to adjust, pass --%s and/or --%s", flagXYZ, flagXYZW)
	}
	var position *r3.Vector
	if xyz != "" {
		v, err := parseFloats(xyz, 3)
		if err != nil {
			return err
		}
		position = &r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	}
	var orientation *spatialmath.Quaternion
	if xyzw != "" {
		v, err := parseFloats(xyzw, 4)
		if err != nil {
			return err
		}
		q, err := spatialmath.NewQuaternionFromXYZW([4]float64{v[0], v[1], v[2], v[3]})
		if err != nil {
			return err
		}
		orientation = q
	}

	// the offset is adjusted without ever polling, so the collaborators stay idle.
	markers := aruco.NewCVDetector(logger.Sublogger("aruco"))
	defer utils.UncheckedErrorFunc(markers.Close)
	d, err := registry.Default().Create(configPath, detector.Dependencies{
		Source:  &camera.StaticSource{},
		Markers: markers,
		Solver:  pnp.NewPlanarSolver(logger.Sublogger("pnp")),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	out, err := d.AdjustOffset(position, orientation)
	if err != nil {
		return err
	}
	logger.Infow("wrote adjusted configuration", "path", out)
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
