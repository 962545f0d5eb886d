package pnp

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/fiducialpose/logging"
	"go.viam.com/fiducialpose/rimage/transform"
	"go.viam.com/fiducialpose/spatialmath"
)

const (
	lmInitialDamping  = 1e-3
	lmMaxDampingTries = 10
	jacobianStep      = 1e-7
)

// PlanarSolver solves coplanar pose problems from a homography and refines them with
// Levenberg-Marquardt on the pixel reprojection error.
type PlanarSolver struct {
	logger logging.Logger
}

// NewPlanarSolver returns a PlanarSolver.
func NewPlanarSolver(logger logging.Logger) *PlanarSolver {
	return &PlanarSolver{logger: logger}
}

// Solve estimates the pattern pose. SolveIPPESquare requires exactly four correspondences.
func (s *PlanarSolver) Solve(
	obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, mode SolveMode,
) (Solution, error) {
	if err := checkCorrespondences(obj, img, cam); err != nil {
		return Solution{}, err
	}
	switch mode {
	case SolveIPPE:
	case SolveIPPESquare:
		if len(obj) != 4 {
			return Solution{}, errors.Wrapf(ErrSolveFailed, "%s needs exactly 4 points, got %d", mode, len(obj))
		}
	default:
		return Solution{}, errors.Errorf("unknown solve mode %d", int(mode))
	}

	normalized, err := cam.NormalizedPoints(img)
	if err != nil {
		return Solution{}, err
	}
	frame, err := newPlaneFrame(obj)
	if err != nil {
		return Solution{}, err
	}
	h, err := estimateHomography(frame.local, normalized)
	if err != nil {
		return Solution{}, errors.Wrap(ErrSolveFailed, err.Error())
	}
	planeRot, planeT, err := decomposeHomography(h)
	if err != nil {
		return Solution{}, err
	}

	// X_cam = R_plane*B^T*(p - origin) + t_plane
	var rot mat.Dense
	rot.Mul(planeRot, frame.basis.T())
	rm, err := spatialmath.NewRotationMatrix(rowMajor(&rot))
	if err != nil {
		return Solution{}, errors.Wrap(ErrSolveFailed, err.Error())
	}
	tvec := planeT.Sub(rotate(rm, frame.origin))
	sol := Solution{RVec: r3.Vector(rm.RotationVector()), TVec: tvec}
	if s.logger != nil {
		s.logger.Debugw("planar solve", "mode", mode.String(), "points", len(obj), "rvec", sol.RVec, "tvec", sol.TVec)
	}
	return sol, nil
}

// Refine minimizes the pixel reprojection error starting from initial.
func (s *PlanarSolver) Refine(
	obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, initial Solution, criteria TermCriteria,
) (Solution, error) {
	if err := checkCorrespondences(obj, img, cam); err != nil {
		return Solution{}, err
	}
	if criteria.MaxIter <= 0 {
		return Solution{}, errors.Errorf("refinement needs a positive iteration count, got %d", criteria.MaxIter)
	}

	params := toParams(initial)
	res, err := residuals(obj, img, cam, params)
	if err != nil {
		return Solution{}, errors.Wrap(ErrSolveFailed, err.Error())
	}
	cost := sumSquares(res)
	damping := lmInitialDamping

	iter := 0
	for ; iter < criteria.MaxIter && cost > 0; iter++ {
		jac, err := jacobian(obj, img, cam, params, res)
		if err != nil {
			return Solution{}, errors.Wrap(ErrSolveFailed, err.Error())
		}
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), mat.NewVecDense(len(res), res))

		accepted := false
		var step []float64
		for try := 0; try < lmMaxDampingTries; try++ {
			step, err = lmStep(&jtj, &jtr, damping)
			if err != nil {
				damping *= 10
				continue
			}
			candidate := addParams(params, step)
			candRes, err := residuals(obj, img, cam, candidate)
			if err == nil {
				if candCost := sumSquares(candRes); candCost < cost {
					params, res, cost = candidate, candRes, candCost
					damping = math.Max(damping/10, 1e-12)
					accepted = true
					break
				}
			}
			damping *= 10
		}
		if !accepted || norm(step) < criteria.Epsilon*norm(params) {
			break
		}
	}

	sol := fromParams(params)
	if s.logger != nil {
		s.logger.Debugw("refined pose", "iterations", iter, "rms_px", math.Sqrt(cost/float64(len(obj))))
	}
	return sol, nil
}

// lmStep solves (JᵀJ + damping*diag(JᵀJ)) step = -Jᵀr.
func lmStep(jtj *mat.Dense, jtr *mat.VecDense, damping float64) ([]float64, error) {
	var a mat.Dense
	a.CloneFrom(jtj)
	for i := 0; i < 6; i++ {
		a.Set(i, i, jtj.At(i, i)*(1+damping)+1e-12)
	}
	var b mat.VecDense
	b.ScaleVec(-1, jtr)
	var step mat.VecDense
	if err := step.SolveVec(&a, &b); err != nil {
		return nil, err
	}
	return step.RawVector().Data, nil
}

// residuals are the stacked (projected - observed) pixel differences.
func residuals(obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, params []float64) ([]float64, error) {
	projected, err := Reproject(obj, fromParams(params), cam)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, 2*len(img))
	for i, p := range projected {
		out = append(out, p.X-img[i].X, p.Y-img[i].Y)
	}
	return out, nil
}

// jacobian approximates d(residuals)/d(params) with forward differences.
func jacobian(
	obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, params, base []float64,
) (*mat.Dense, error) {
	jac := mat.NewDense(len(base), 6, nil)
	for j := 0; j < 6; j++ {
		h := jacobianStep * math.Max(1, math.Abs(params[j]))
		shifted := append([]float64(nil), params...)
		shifted[j] += h
		res, err := residuals(obj, img, cam, shifted)
		if err != nil {
			return nil, err
		}
		for i := range res {
			jac.Set(i, j, (res[i]-base[i])/h)
		}
	}
	return jac, nil
}

func toParams(s Solution) []float64 {
	return []float64{s.RVec.X, s.RVec.Y, s.RVec.Z, s.TVec.X, s.TVec.Y, s.TVec.Z}
}

func fromParams(p []float64) Solution {
	return Solution{
		RVec: r3.Vector{X: p[0], Y: p[1], Z: p[2]},
		TVec: r3.Vector{X: p[3], Y: p[4], Z: p[5]},
	}
}

func addParams(p, step []float64) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i] + step[i]
	}
	return out
}

func sumSquares(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x * x
	}
	return total
}

func norm(v []float64) float64 {
	return math.Sqrt(sumSquares(v))
}

func rowMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
