package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// PinholeCameraModel is the model of a pinhole camera. Distortion maps undistorted normalized
// coordinates to distorted ones and may be nil for an ideal lens.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

type pinholeCameraModelJSON struct {
	Intrinsics *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion *distortionJSON          `json:"distortion"`
}

// distortionJSON is a distortion block. Both supported models share the Brown-Conrady
// coefficients; model defaults to brown_conrady.
type distortionJSON struct {
	Model DistortionType `json:"model"`
	BrownConrady
}

// UnmarshalJSON reads the intrinsic parameters and an optional distortion block.
func (params *PinholeCameraModel) UnmarshalJSON(data []byte) error {
	var raw pinholeCameraModelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	params.PinholeCameraIntrinsics = raw.Intrinsics
	params.Distortion = nil
	if raw.Distortion == nil {
		return nil
	}
	model := raw.Distortion.Model
	if model == "" {
		model = BrownConradyDistortionType
	}
	distorter, err := NewDistorter(model, raw.Distortion.BrownConrady.Parameters())
	if err != nil {
		return err
	}
	params.Distortion = distorter
	return nil
}

// NewPinholeCameraModelFromJSONFile takes in a file path to a JSON and turns it into a validated
// PinholeCameraModel.
func NewPinholeCameraModelFromJSONFile(jsonPath string) (*PinholeCameraModel, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)

	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	model := &PinholeCameraModel{}
	if err := json.Unmarshal(byteValue, model); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	return model, nil
}

// CheckValid checks the intrinsics and, when present, the distortion model.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion != nil {
		return params.Distortion.CheckValid()
	}
	return nil
}

// ProjectPoint projects a point in the camera frame onto the image, applying distortion.
func (params *PinholeCameraModel) ProjectPoint(pt r3.Vector) (r2.Point, error) {
	if pt.Z <= 0 {
		return r2.Point{}, errors.Errorf("point %v is behind the camera", pt)
	}
	x, y := pt.X/pt.Z, pt.Y/pt.Z
	if params.Distortion != nil {
		x, y = params.Distortion.Transform(x, y)
	}
	return params.FromNormalized(r2.Point{X: x, Y: y}), nil
}

// NormalizedPoints maps pixel coordinates to undistorted normalized image coordinates.
func (params *PinholeCameraModel) NormalizedPoints(pts []r2.Point) ([]r2.Point, error) {
	var undistort func(x, y float64) (float64, float64)
	if params.Distortion != nil {
		u, ok := params.Distortion.(Undistorter)
		if !ok {
			return nil, errors.Errorf("cannot invert %q distortion model", params.Distortion.ModelType())
		}
		undistort = u.Undistort
	}
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		n := params.ToNormalized(p)
		if undistort != nil {
			n.X, n.Y = undistort(n.X, n.Y)
		}
		out[i] = n
	}
	return out, nil
}

// UndistortPoints removes lens distortion from pixel coordinates, keeping them in pixels.
func (params *PinholeCameraModel) UndistortPoints(pts []r2.Point) ([]r2.Point, error) {
	norm, err := params.NormalizedPoints(pts)
	if err != nil {
		return nil, err
	}
	for i, n := range norm {
		norm[i] = params.FromNormalized(n)
	}
	return norm, nil
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// ToNormalized maps a pixel to the z=1 plane of the camera frame.
func (params *PinholeCameraIntrinsics) ToNormalized(p r2.Point) r2.Point {
	return r2.Point{X: (p.X - params.Ppx) / params.Fx, Y: (p.Y - params.Ppy) / params.Fy}
}

// FromNormalized maps a point on the z=1 plane of the camera frame to a pixel.
func (params *PinholeCameraIntrinsics) FromNormalized(n r2.Point) r2.Point {
	return r2.Point{X: n.X*params.Fx + params.Ppx, Y: n.Y*params.Fy + params.Ppy}
}
