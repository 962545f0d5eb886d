package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// An orientation can be expressed by an axis on the unit sphere, (rx, ry, rz), and a rotation theta
// around it. These four numbers can be used as-is (R4AA), or multiplied together into a single vector
// whose length is theta and whose direction is the axis (RotationVector). The latter is the form a
// perspective-n-point solver reports.

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// AxisAngles returns the orientation in axis angle representation.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// Quaternion returns orientation in quaternion representation.
func (r4 *R4AA) Quaternion() quat.Number {
	return r4.ToQuat()
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(r4.Quaternion())
}

// RotationVector returns the orientation as a Rodrigues rotation vector.
func (r4 *R4AA) RotationVector() RotationVector {
	return RotationVector(r4.ToR3())
}

// ToR3 converts an R4 angle axis to R3.
func (r4 *R4AA) ToR3() r3.Vector {
	n := r4.axisNorm()
	if n == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: r4.RX * r4.Theta / n, Y: r4.RY * r4.Theta / n, Z: r4.RZ * r4.Theta / n}
}

// ToQuat converts an R4 axis angle to a unit quaternion
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/index.htm
func (r4 *R4AA) ToQuat() quat.Number {
	n := r4.axisNorm()
	if n == 0 || r4.Theta == 0 {
		return quat.Number{Real: 1}
	}
	sinA := math.Sin(r4.Theta/2) / n
	return quat.Number{
		Real: math.Cos(r4.Theta / 2),
		Imag: r4.RX * sinA,
		Jmag: r4.RY * sinA,
		Kmag: r4.RZ * sinA,
	}
}

func (r4 *R4AA) axisNorm() float64 {
	return math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
}

// QuatToR4AA converts a quat to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR4AA(q quat.Number) R4AA {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < 1e-12 {
		return R4AA{0, 0, 0, 1}
	}
	return R4AA{angle, q.Imag / denom, q.Jmag / denom, q.Kmag / denom}
}

// RotationVector is a Rodrigues rotation vector: the axis of rotation scaled by the angle in radians.
type RotationVector r3.Vector

// Quaternion returns orientation in quaternion representation.
func (rv RotationVector) Quaternion() quat.Number {
	v := r3.Vector(rv)
	theta := v.Norm()
	if theta < 1e-12 {
		// first order expansion keeps tiny rotations from collapsing to identity
		q := quat.Number{Real: 1, Imag: v.X / 2, Jmag: v.Y / 2, Kmag: v.Z / 2}
		return quat.Scale(1/quat.Abs(q), q)
	}
	s := math.Sin(theta/2) / theta
	return quat.Number{Real: math.Cos(theta / 2), Imag: v.X * s, Jmag: v.Y * s, Kmag: v.Z * s}
}

// AxisAngles returns the orientation in axis angle representation.
func (rv RotationVector) AxisAngles() *R4AA {
	v := r3.Vector(rv)
	theta := v.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{Theta: theta, RX: v.X / theta, RY: v.Y / theta, RZ: v.Z / theta}
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rv RotationVector) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(rv.Quaternion())
}

// RotationVector returns itself.
func (rv RotationVector) RotationVector() RotationVector {
	return rv
}

// QuatToRotationVector converts a quat to a rotation vector whose angle lies in [0, pi].
func QuatToRotationVector(q quat.Number) RotationVector {
	if q.Real < 0 {
		q = Flip(q)
	}
	denom := Norm(q)
	if denom < 1e-12 {
		return RotationVector{X: 2 * q.Imag, Y: 2 * q.Jmag, Z: 2 * q.Kmag}
	}
	angle := 2 * math.Atan2(denom, q.Real)
	return RotationVector{X: angle * q.Imag / denom, Y: angle * q.Jmag / denom, Z: angle * q.Kmag / denom}
}

// Axis names a principal axis for RotateRotationVector.
type Axis int

// The principal axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// RotateRotationVector applies an additional rotation of angle radians about one principal axis of the
// frame rvec describes, and returns the result as a rotation vector.
func RotateRotationVector(rvec RotationVector, axis Axis, angle float64) RotationVector {
	var extra RotationVector
	switch axis {
	case AxisX:
		extra = RotationVector{X: angle}
	case AxisY:
		extra = RotationVector{Y: angle}
	case AxisZ:
		extra = RotationVector{Z: angle}
	}
	return QuatToRotationVector(quat.Mul(rvec.Quaternion(), extra.Quaternion()))
}
