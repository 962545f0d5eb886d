// Package config turns the flat key-value content of a pattern configuration file into typed
// fragments, and merges those fragments back into one map for persisting.
//
// Every fragment constructor takes the whole file's map and picks the keys it owns, so a single
// file can hold the offset, the preprocessing flags and one pattern description side by side:
//
//	marker_id: 3
//	marker_size: 50
//	marker_type: 4x4_50
//	invert_img: false
//	offset:
//	  xyz: [0.0, 0.0, 0.1]
//	  xyzw: [0.0, 0.0, 0.0, 1.0]
//
// offset.xyz is in meters and offset.xyzw is a quaternion in (x, y, z, w) order. Pattern lengths
// (marker_size, checker_size, marker_layout) are in millimeters.
package config

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// A Fragment is one typed part of a configuration file. ToMap returns exactly the keys the
// fragment's constructor consumes.
type Fragment interface {
	ToMap() map[string]interface{}
}

// Configuration is the set of fragments a detector was built from. Unset fields are not persisted.
type Configuration struct {
	Offset        *Offset
	Preprocessing *Preprocessing
	ArucoMarker   *ArucoMarker
	ArucoPattern  *ArucoPattern
	Charuco       *Charuco
}

// Fragments returns the populated fragments.
func (c *Configuration) Fragments() []Fragment {
	var frags []Fragment
	if c.Offset != nil {
		frags = append(frags, c.Offset)
	}
	if c.Preprocessing != nil {
		frags = append(frags, c.Preprocessing)
	}
	if c.ArucoMarker != nil {
		frags = append(frags, c.ArucoMarker)
	}
	if c.ArucoPattern != nil {
		frags = append(frags, c.ArucoPattern)
	}
	if c.Charuco != nil {
		frags = append(frags, c.Charuco)
	}
	return frags
}

// ToMap merges the maps of all populated fragments.
func (c *Configuration) ToMap() map[string]interface{} {
	merged := map[string]interface{}{}
	for _, frag := range c.Fragments() {
		for k, v := range frag.ToMap() {
			merged[k] = v
		}
	}
	return merged
}

// requireKeys fails with a MissingKeyError naming the first absent key.
func requireKeys(raw map[string]interface{}, keys ...string) error {
	for _, key := range keys {
		if _, ok := raw[key]; !ok {
			return &MissingKeyError{Key: key}
		}
	}
	return nil
}

// decode fills out from raw, converting loosely typed values such as "12" or 12.0 for int fields.
// Fractional values for int fields are rejected rather than truncated. Keys out does not declare
// are ignored since they belong to other fragments.
func decode(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       rejectFractionalInts,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func rejectFractionalInts(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, errors.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

func invalid(key, format string, args ...interface{}) error {
	return &InvalidValueError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

func wrapDecode(err error, fragment string) error {
	return &InvalidValueError{Key: fragment, Reason: errors.Wrap(err, "decoding failed").Error()}
}
