package inject

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/fiducialpose/pnp"
	"go.viam.com/fiducialpose/rimage/transform"
)

// Solver is an injected pose solver.
type Solver struct {
	pnp.Solver
	SolveFunc func(
		obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, mode pnp.SolveMode,
	) (pnp.Solution, error)
	RefineFunc func(
		obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, initial pnp.Solution, criteria pnp.TermCriteria,
	) (pnp.Solution, error)
}

// Solve calls the injected Solve or the real version.
func (s *Solver) Solve(
	obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, mode pnp.SolveMode,
) (pnp.Solution, error) {
	if s.SolveFunc == nil {
		return s.Solver.Solve(obj, img, cam, mode)
	}
	return s.SolveFunc(obj, img, cam, mode)
}

// Refine calls the injected Refine or the real version.
func (s *Solver) Refine(
	obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, initial pnp.Solution, criteria pnp.TermCriteria,
) (pnp.Solution, error) {
	if s.RefineFunc == nil {
		return s.Solver.Refine(obj, img, cam, initial, criteria)
	}
	return s.RefineFunc(obj, img, cam, initial, criteria)
}
