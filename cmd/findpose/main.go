// Package main is the findpose command: it polls a fiducial detector over image files and logs
// every pose it finds.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"

	"go.viam.com/fiducialpose/logging"
)

const (
	// Flags.
	flagIntrinsics  = "intrinsics"
	flagImage       = "image"
	flagInterval    = "interval"
	flagCount       = "count"
	flagWatch       = "watch"
	flagDebug       = "debug"
	flagDebugFrames = "debug-frames"
	flagXYZ         = "xyz"
	flagXYZW        = "xyzw"
	defaultInterval = 200 * time.Millisecond
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:      "findpose",
		Usage:     "estimate the pose of a fiducial pattern in camera frames",
		ArgsUsage: "<config.yaml>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagDebugFrames,
				Usage: "log every detection pass without enabling debug logging elsewhere",
			},
			&cli.StringFlag{
				Name:  flagIntrinsics,
				Usage: "camera model JSON `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  flagImage,
				Usage: "image `FILE` to read frames from, repeat to cycle through several",
			},
			&cli.DurationFlag{
				Name:  flagInterval,
				Value: defaultInterval,
				Usage: "time between detection passes",
			},
			&cli.IntFlag{
				Name:  flagCount,
				Usage: "stop after this many poses are found, 0 runs until interrupted",
			},
			&cli.BoolFlag{
				Name:  flagWatch,
				Usage: "rebuild the detector when the configuration file changes",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("findpose")
			} else {
				logger = logging.NewLogger("findpose")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			configPath, err := configArg(c)
			if err != nil {
				return err
			}
			if c.String(flagIntrinsics) == "" || len(c.StringSlice(flagImage)) == 0 {
				return errors.Errorf("--%s and at least one --%s are required", flagIntrinsics, flagImage)
			}
			return findPoses(c.Context, options{
				configPath:  configPath,
				intrinsics:  c.String(flagIntrinsics),
				images:      c.StringSlice(flagImage),
				interval:    c.Duration(flagInterval),
				count:       c.Int(flagCount),
				watch:       c.Bool(flagWatch),
				debugFrames: c.Bool(flagDebugFrames),
			}, logger)
		},
		Commands: []*cli.Command{
			{
				Name:      "adjust",
				Usage:     "write a copy of the configuration with a new offset",
				ArgsUsage: "<config.yaml>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagXYZ,
						Usage: "offset position as `x,y,z` in meters",
					},
					&cli.StringFlag{
						Name:  flagXYZW,
						Usage: "offset orientation as a quaternion `x,y,z,w`",
					},
				},
				Action: func(c *cli.Context) error {
					configPath, err := configArg(c)
					if err != nil {
						return err
					}
					return adjust(configPath, c.String(flagXYZ), c.String(flagXYZW), logger)
				},
			},
		},
	}
}

func configArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("expected exactly one configuration file argument")
	}
	return c.Args().First(), nil
}

// parseFloats parses a comma separated list of exactly n numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errors.Errorf("expected %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number in %q", s)
		}
		out[i] = v
	}
	return out, nil
}
