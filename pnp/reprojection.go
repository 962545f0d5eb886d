package pnp

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/rimage/transform"
)

// ReprojectionError summarizes the pixel distance between observed image points and the object
// points projected through a solution.
type ReprojectionError struct {
	Mean float64
	RMS  float64
	Max  float64
}

// Reproject projects every object point through the solution and camera model.
func Reproject(obj []r3.Vector, sol Solution, cam *transform.PinholeCameraModel) ([]r2.Point, error) {
	out := make([]r2.Point, len(obj))
	for i, pt := range obj {
		px, err := cam.ProjectPoint(sol.Transform(pt))
		if err != nil {
			return nil, err
		}
		out[i] = px
	}
	return out, nil
}

// ComputeReprojectionError measures how well sol explains the correspondences.
func ComputeReprojectionError(
	obj []r3.Vector, img []r2.Point, sol Solution, cam *transform.PinholeCameraModel,
) (ReprojectionError, error) {
	if len(obj) != len(img) || len(obj) == 0 {
		return ReprojectionError{}, errors.Errorf("cannot measure %d object points against %d image points", len(obj), len(img))
	}
	projected, err := Reproject(obj, sol, cam)
	if err != nil {
		return ReprojectionError{}, err
	}
	dists := make([]float64, len(img))
	squares := make([]float64, len(img))
	for i := range img {
		dists[i] = projected[i].Sub(img[i]).Norm()
		squares[i] = dists[i] * dists[i]
	}
	mean, err := stats.Mean(dists)
	if err != nil {
		return ReprojectionError{}, err
	}
	meanSquare, err := stats.Mean(squares)
	if err != nil {
		return ReprojectionError{}, err
	}
	maxDist, err := stats.Max(dists)
	if err != nil {
		return ReprojectionError{}, err
	}
	return ReprojectionError{Mean: mean, RMS: math.Sqrt(meanSquare), Max: maxDist}, nil
}
