package transform

import "math"

// BrownConrady is the five coefficient radial and tangential lens model. Coefficients are named
// after their role rather than OpenCV's k1,k2,p1,p2,k3 ordering.
//
//	x_d = x_u*(1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u*(1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	p, err := padParameters(inp, 5)
	if err != nil {
		return nil, err
	}
	return &BrownConrady{p[0], p[1], p[2], p[3], p[4]}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	for _, p := range bc.Parameters() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return InvalidDistortionError("BrownConrady parameters must be finite")
		}
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the undistorted normalized point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radial := bc.radial(r2)
	xd := x*radial + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radial + 2*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2*y*y)
	return xd, yd
}

// Undistort finds the undistorted normalized point that Transform maps onto (xd, yd).
func (bc *BrownConrady) Undistort(xd, yd float64) (float64, float64) {
	return newtonUndistort(bc, xd, yd)
}

func (bc *BrownConrady) radial(r2 float64) float64 {
	return 1 + r2*(bc.RadialK1+r2*(bc.RadialK2+r2*bc.RadialK3))
}

// jacobian returns the partial derivatives of Transform at (x, y) in row major order.
func (bc *BrownConrady) jacobian(x, y float64) (dxdx, dxdy, dydx, dydy float64) {
	r2 := x*x + y*y
	radial := bc.radial(r2)
	// d(radial)/d(r²)
	dRadial := bc.RadialK1 + 2*bc.RadialK2*r2 + 3*bc.RadialK3*r2*r2
	p1, p2 := bc.TangentialP1, bc.TangentialP2

	dxdx = radial + 2*x*x*dRadial + 2*p1*y + 6*p2*x
	dxdy = 2*x*y*dRadial + 2*p1*x + 2*p2*y
	dydx = 2*x*y*dRadial + 2*p2*y + 2*p1*x
	dydy = radial + 2*y*y*dRadial + 2*p2*x + 6*p1*y
	return dxdx, dxdy, dydx, dydy
}
