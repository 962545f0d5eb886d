package pattern

import (
	"github.com/golang/geo/r3"

	"go.viam.com/fiducialpose/config"
)

// SingleMarker is one square marker centered on the pattern origin.
type SingleMarker struct {
	dict Dictionary
	id   int
	size float64
}

// NewSingleMarker resolves the marker dictionary and checks the id against it.
func NewSingleMarker(cfg *config.ArucoMarker) (*SingleMarker, error) {
	dict, err := ParseDictionary(cfg.MarkerType)
	if err != nil {
		return nil, err
	}
	if err := dict.checkID(cfg.MarkerID); err != nil {
		return nil, err
	}
	return &SingleMarker{dict: dict, id: cfg.MarkerID, size: mmToMeters(cfg.MarkerSize)}, nil
}

// Dictionary returns the marker dictionary to detect with.
func (m *SingleMarker) Dictionary() Dictionary {
	return m.dict
}

// MarkerID returns the id of the marker.
func (m *SingleMarker) MarkerID() int {
	return m.id
}

// Size returns the side length in meters.
func (m *SingleMarker) Size() float64 {
	return m.size
}

// ObjectPoints returns the marker corners in meters on the z = 0 plane, in the order a corner
// detector reports them: top-left, top-right, bottom-right, bottom-left.
func (m *SingleMarker) ObjectPoints() [4]r3.Vector {
	h := m.size / 2
	return [4]r3.Vector{
		{X: -h, Y: h},
		{X: h, Y: h},
		{X: h, Y: -h},
		{X: -h, Y: -h},
	}
}

func mmToMeters(mm int) float64 {
	return float64(mm) / 1000
}
