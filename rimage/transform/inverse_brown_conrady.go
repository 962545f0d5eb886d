package transform

const (
	undistortMaxIterations = 20
	undistortTolerance     = 1e-10
)

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model: Transform takes
// distorted normalized points to undistorted ones.
type InverseBrownConrady struct {
	BrownConrady
}

// NewInverseBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	bc, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return &InverseBrownConrady{*bc}, nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return ibc.BrownConrady.CheckValid()
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.BrownConrady.Parameters()
}

// Transform undistorts the distorted normalized point (xd, yd).
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	return newtonUndistort(&ibc.BrownConrady, xd, yd)
}

// Undistort applies the forward model, which undoes Transform.
func (ibc *InverseBrownConrady) Undistort(x, y float64) (float64, float64) {
	if ibc == nil {
		return x, y
	}
	return ibc.BrownConrady.Transform(x, y)
}

// newtonUndistort solves bc.Transform(x, y) = (xd, yd) for (x, y) by Newton-Raphson, starting
// from the distorted point.
func newtonUndistort(bc *BrownConrady, xd, yd float64) (float64, float64) {
	if bc == nil {
		return xd, yd
	}
	x, y := xd, yd
	for i := 0; i < undistortMaxIterations; i++ {
		ex, ey := bc.Transform(x, y)
		ex -= xd
		ey -= yd
		if ex*ex+ey*ey < undistortTolerance*undistortTolerance {
			break
		}
		a, b, c, d := bc.jacobian(x, y)
		det := a*d - b*c
		if det == 0 {
			break
		}
		x -= (d*ex - b*ey) / det
		y -= (a*ey - c*ex) / det
	}
	return x, y
}
