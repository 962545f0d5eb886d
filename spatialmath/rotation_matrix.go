package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// orthonormalTolerance bounds how far R^T R may drift from identity and det(R) from 1.
const orthonormalTolerance = 1e-6

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 values in row major order.
// The values must describe a proper rotation: orthonormal with determinant +1.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	rm := &RotationMatrix{}
	copy(rm.mat[:], m)
	if err := rm.checkValid(); err != nil {
		return nil, err
	}
	return rm, nil
}

func (rm *RotationMatrix) checkValid() error {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += rm.At(k, i) * rm.At(k, j)
			}
			want := 0.
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > orthonormalTolerance {
				return errors.Errorf("rotation matrix is not orthonormal: column %d . column %d = %f", i, j, dot)
			}
		}
	}
	if det := rm.mgl().Det(); math.Abs(det-1) > orthonormalTolerance {
		return errors.Errorf("rotation matrix determinant is %f, need +1", det)
	}
	return nil
}

// At returns the element at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Quaternion returns orientation in quaternion representation.
func (rm *RotationMatrix) Quaternion() quat.Number {
	return fromMgl(mgl64.Mat4ToQuat(rm.mgl()))
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	aa := QuatToR4AA(rm.Quaternion())
	return &aa
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// RotationVector returns the orientation as a Rodrigues rotation vector.
func (rm *RotationMatrix) RotationVector() RotationVector {
	return QuatToRotationVector(rm.Quaternion())
}

// mgl embeds the rotation in the upper left block of a homogeneous transform.
func (rm *RotationMatrix) mgl() mgl64.Mat4 {
	m := mgl64.Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, rm.At(row, col))
		}
	}
	return m
}
