package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is a unit quaternion. Real holds w, Imag/Jmag/Kmag hold x/y/z.
//
// All configuration and every exported component slice use the (x, y, z, w) order; see XYZW and
// NewQuaternionFromXYZW. The gonum layout is an in-memory detail only.
type Quaternion quat.Number

// ErrZeroQuaternion is returned when a quaternion with no magnitude is asked to represent a rotation.
var ErrZeroQuaternion = errors.New("quaternion has zero norm and cannot represent a rotation")

// NewQuaternionFromXYZW builds a normalized quaternion from components in (x, y, z, w) order.
func NewQuaternionFromXYZW(xyzw [4]float64) (*Quaternion, error) {
	q := quat.Number{Real: xyzw[3], Imag: xyzw[0], Jmag: xyzw[1], Kmag: xyzw[2]}
	norm := quat.Abs(q)
	if norm < 1e-12 || math.IsNaN(norm) {
		return nil, errors.Wrapf(ErrZeroQuaternion, "components (x, y, z, w) = %v", xyzw)
	}
	normalized := Quaternion(quat.Scale(1/norm, q))
	return &normalized, nil
}

// XYZW returns the components in (x, y, z, w) order.
func (q *Quaternion) XYZW() [4]float64 {
	return [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// Quaternion returns orientation in quaternion representation.
func (q *Quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// AxisAngles returns the orientation in axis angle representation.
func (q *Quaternion) AxisAngles() *R4AA {
	aa := QuatToR4AA(q.Quaternion())
	return &aa
}

// RotationVector returns the orientation as a Rodrigues rotation vector.
func (q *Quaternion) RotationVector() RotationVector {
	return QuatToRotationVector(q.Quaternion())
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *Quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// Rotate applies the rotation to a vector.
func (q *Quaternion) Rotate(v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q.Quaternion(), quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q.Quaternion()))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// QuaternionAlmostEqual is an equality test for two quaternions. q and -q describe the same rotation
// and compare equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if quatWithin(a, b, tol) {
		return true
	}
	return quatWithin(a, Flip(b), tol)
}

func quatWithin(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// QuatToRotationMatrix converts a quat to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	m := toMgl(q).Mat4()
	rm := &RotationMatrix{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			rm.mat[3*row+col] = m.At(row, col)
		}
	}
	return rm
}

func toMgl(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Normalize()
}

func fromMgl(q mgl64.Quat) quat.Number {
	q = q.Normalize()
	// keep w non-negative so equal rotations print the same way
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}
