// Package pnp recovers the rigid transform from a planar pattern to a camera given matched
// object points, image points and the camera model.
//
// Solutions are expressed the way a camera sees the pattern: a Rodrigues rotation vector and a
// translation in the object points' units, together mapping object coordinates into the camera
// frame.
package pnp

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/fiducialpose/rimage/transform"
	"go.viam.com/fiducialpose/spatialmath"
)

// ErrSolveFailed is returned when no pose can be recovered from the correspondences.
var ErrSolveFailed = errors.New("pose solve failed")

// SolveMode selects the planar solving strategy.
type SolveMode int

const (
	// SolveIPPE handles four or more coplanar points.
	SolveIPPE SolveMode = iota
	// SolveIPPESquare handles exactly the four corners of a square marker.
	SolveIPPESquare
)

func (m SolveMode) String() string {
	switch m {
	case SolveIPPE:
		return "ippe"
	case SolveIPPESquare:
		return "ippe_square"
	default:
		return "unknown"
	}
}

// TermCriteria bounds an iterative refinement: it stops after MaxIter iterations or once the
// relative parameter change drops below Epsilon, whichever comes first.
type TermCriteria struct {
	MaxIter int
	Epsilon float64
}

// DefaultTermCriteria are the refinement bounds used by detectors.
var DefaultTermCriteria = TermCriteria{MaxIter: 30, Epsilon: 0.001}

// Solution is a rotation vector and translation mapping object coordinates into the camera frame.
type Solution struct {
	RVec r3.Vector
	TVec r3.Vector
}

// Pose converts the solution to a pose.
func (s Solution) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromRotationVector(s.RVec, s.TVec)
}

// Transform maps an object point into the camera frame.
func (s Solution) Transform(pt r3.Vector) r3.Vector {
	return rotate(spatialmath.RotationVector(s.RVec).RotationMatrix(), pt).Add(s.TVec)
}

// Solver solves and refines planar pose problems.
type Solver interface {
	Solve(obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, mode SolveMode) (Solution, error)
	Refine(
		obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel, initial Solution, criteria TermCriteria,
	) (Solution, error)
}

func checkCorrespondences(obj []r3.Vector, img []r2.Point, cam *transform.PinholeCameraModel) error {
	if len(obj) != len(img) {
		return errors.Errorf("have %d object points but %d image points", len(obj), len(img))
	}
	if len(obj) < 4 {
		return errors.Wrapf(ErrSolveFailed, "need at least 4 correspondences, got %d", len(obj))
	}
	return cam.CheckValid()
}

func rotate(rm *spatialmath.RotationMatrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.At(0, 0)*v.X + rm.At(0, 1)*v.Y + rm.At(0, 2)*v.Z,
		Y: rm.At(1, 0)*v.X + rm.At(1, 1)*v.Y + rm.At(1, 2)*v.Z,
		Z: rm.At(2, 0)*v.X + rm.At(2, 1)*v.Y + rm.At(2, 2)*v.Z,
	}
}
