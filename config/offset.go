package config

import (
	"github.com/golang/geo/r3"
	"github.com/spf13/cast"

	"go.viam.com/fiducialpose/spatialmath"
)

const offsetKey = "offset"

// Offset is the static transform from the detected pattern's frame to the frame of the object the
// caller cares about. XYZ is in meters and XYZW is a quaternion in (x, y, z, w) order.
type Offset struct {
	XYZ  [3]float64
	XYZW [4]float64
}

// NewIdentityOffset returns an offset that leaves a pose unchanged.
func NewIdentityOffset() *Offset {
	return &Offset{XYZW: [4]float64{0, 0, 0, 1}}
}

type offsetAttrs struct {
	XYZ  []float64 `json:"xyz"`
	XYZW []float64 `json:"xyzw"`
}

// NewOffset reads the optional "offset" mapping. When absent the identity offset is returned; when
// present both offset.xyz and offset.xyzw are required.
func NewOffset(raw map[string]interface{}) (*Offset, error) {
	val, ok := raw[offsetKey]
	if !ok || val == nil {
		return NewIdentityOffset(), nil
	}

	nested, err := cast.ToStringMapE(val)
	if err != nil {
		return nil, invalid(offsetKey, "expected a mapping with xyz and xyzw, got %T", val)
	}
	if _, ok := nested["xyz"]; !ok {
		return nil, &MissingKeyError{Key: "offset.xyz"}
	}
	if _, ok := nested["xyzw"]; !ok {
		return nil, &MissingKeyError{Key: "offset.xyzw"}
	}

	var attrs offsetAttrs
	if err := decode(nested, &attrs); err != nil {
		return nil, wrapDecode(err, offsetKey)
	}
	if len(attrs.XYZ) != 3 {
		return nil, invalid("offset.xyz", "expected 3 values, got %d", len(attrs.XYZ))
	}
	if len(attrs.XYZW) != 4 {
		return nil, invalid("offset.xyzw", "expected 4 values, got %d", len(attrs.XYZW))
	}

	o := &Offset{}
	copy(o.XYZ[:], attrs.XYZ)
	copy(o.XYZW[:], attrs.XYZW)
	if _, err := spatialmath.NewQuaternionFromXYZW(o.XYZW); err != nil {
		return nil, invalid("offset.xyzw", "%v", err)
	}
	return o, nil
}

// ToMap returns the nested offset mapping.
func (o *Offset) ToMap() map[string]interface{} {
	return map[string]interface{}{
		offsetKey: map[string]interface{}{
			"xyz":  append([]float64(nil), o.XYZ[:]...),
			"xyzw": append([]float64(nil), o.XYZW[:]...),
		},
	}
}

// Adjust replaces the position and/or the orientation. A nil argument keeps the current value.
func (o *Offset) Adjust(position *r3.Vector, orientation *spatialmath.Quaternion) {
	if position != nil {
		o.XYZ = [3]float64{position.X, position.Y, position.Z}
	}
	if orientation != nil {
		o.XYZW = orientation.XYZW()
	}
}

// Pose returns the offset as a pose with a normalized orientation.
func (o *Offset) Pose() spatialmath.Pose {
	point := r3.Vector{X: o.XYZ[0], Y: o.XYZ[1], Z: o.XYZ[2]}
	q, err := spatialmath.NewQuaternionFromXYZW(o.XYZW)
	if err != nil {
		// only reachable for an Offset built by hand with a zero quaternion
		return spatialmath.NewPoseFromPoint(point)
	}
	return spatialmath.NewPose(point, q)
}
