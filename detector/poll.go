package detector

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/spatialmath"
)

// Poll calls FindPose once immediately and then on every tick of clk until ctx is done, passing
// each result to handle. It returns ctx's error.
func (d *Detector) Poll(
	ctx context.Context,
	clk clock.Clock,
	interval time.Duration,
	handle func(found bool, pose spatialmath.Pose),
) error {
	if interval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", interval)
	}
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle(d.FindPose(ctx))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
