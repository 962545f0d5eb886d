package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Pose represents a rigid transform: a 3D point and an orientation. Units of the point are meters.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type pose struct {
	point       r3.Vector
	orientation Quaternion
}

// NewZeroPose returns a pose at (0, 0, 0) with the same orientation as the frame it is expressed in.
// It is the value reported when no pose could be found.
func NewZeroPose() Pose {
	return &pose{orientation: Quaternion{Real: 1}}
}

// NewPose builds a pose from a point and any orientation representation. The orientation is stored as
// a normalized quaternion.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		o = NewZeroOrientation()
	}
	return &pose{point: point, orientation: Quaternion(fromMgl(toMgl(o.Quaternion())))}
}

// NewPoseFromPoint returns a pose with the given point and no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, nil)
}

// NewPoseFromRotationVector converts a solver's (rotation vector, translation vector) pair to a pose.
func NewPoseFromRotationVector(rvec, tvec r3.Vector) Pose {
	return NewPose(tvec, RotationVector(rvec))
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	q := p.orientation
	return &q
}

func (p *pose) String() string {
	xyzw := p.orientation.XYZW()
	return fmt.Sprintf("{xyz: [%.6f %.6f %.6f], xyzw: [%.6f %.6f %.6f %.6f]}",
		p.point.X, p.point.Y, p.point.Z, xyzw[0], xyzw[1], xyzw[2], xyzw[3])
}

// Compose treats a as the transform from frame 1 to frame 2 and b as the transform from frame 2 to
// frame 3, and returns the transform from frame 1 to frame 3. It is the homogeneous product
// T_a * T_b: the rotation blocks multiply and the translation is R_a * t_b + t_a.
// Compose is not commutative.
func Compose(a, b Pose) Pose {
	m := poseToMat4(a).Mul4(poseToMat4(b))
	col := m.Col(3)
	return &pose{
		point:       r3.Vector{X: col[0], Y: col[1], Z: col[2]},
		orientation: Quaternion(fromMgl(mgl64.Mat4ToQuat(m))),
	}
}

// PoseInverse returns the transform that undoes p.
func PoseInverse(p Pose) Pose {
	q := toMgl(p.Orientation().Quaternion()).Inverse()
	pt := p.Point()
	t := q.Rotate(mgl64.Vec3{pt.X, pt.Y, pt.Z}).Mul(-1)
	return &pose{point: r3.Vector{X: t[0], Y: t[1], Z: t[2]}, orientation: Quaternion(fromMgl(q))}
}

// PoseAlmostEqual returns whether two poses are within 1e-8 in position and 1e-5 in orientation.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps compares positions component-wise with epsilon and orientations with 1e-5.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	pa, pb := a.Point(), b.Point()
	if math.Abs(pa.X-pb.X) > epsilon || math.Abs(pa.Y-pb.Y) > epsilon || math.Abs(pa.Z-pb.Z) > epsilon {
		return false
	}
	return OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

func poseToMat4(p Pose) mgl64.Mat4 {
	m := toMgl(p.Orientation().Quaternion()).Mat4()
	pt := p.Point()
	m.SetCol(3, mgl64.Vec4{pt.X, pt.Y, pt.Z, 1})
	return m
}
