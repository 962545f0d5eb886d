package pattern

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/fiducialpose/config"
)

// MarkerLayout is a set of markers at fixed planar positions. Positions are the marker centers.
type MarkerLayout struct {
	dict      Dictionary
	size      float64
	positions map[int][2]int
	ids       []int
}

// NewMarkerLayout resolves the dictionary and checks every configured id against it. All invalid
// ids are reported together.
func NewMarkerLayout(cfg *config.ArucoPattern) (*MarkerLayout, error) {
	dict, err := ParseDictionary(cfg.MarkerType)
	if err != nil {
		return nil, err
	}

	ids := lo.Keys(cfg.MarkerLayout)
	sort.Ints(ids)
	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, dict.checkID(id))
	}
	if errs != nil {
		return nil, errs
	}

	return &MarkerLayout{
		dict:      dict,
		size:      mmToMeters(cfg.MarkerSize),
		positions: lo.Assign(cfg.MarkerLayout),
		ids:       ids,
	}, nil
}

// Dictionary returns the marker dictionary to detect with.
func (l *MarkerLayout) Dictionary() Dictionary {
	return l.dict
}

// MarkerSize returns the marker side length in meters.
func (l *MarkerLayout) MarkerSize() float64 {
	return l.size
}

// MarkerIDs returns the configured ids in ascending order.
func (l *MarkerLayout) MarkerIDs() []int {
	return append([]int(nil), l.ids...)
}

// Contains reports whether id has a configured position.
func (l *MarkerLayout) Contains(id int) bool {
	_, ok := l.positions[id]
	return ok
}

// MarkerPosition returns the configured (x, y) of the marker center in millimeters.
func (l *MarkerLayout) MarkerPosition(id int) ([2]int, error) {
	pos, ok := l.positions[id]
	if !ok {
		return [2]int{}, &UnknownMarkerIDError{ID: id}
	}
	return pos, nil
}

// ObjectPoint returns the marker center in meters on the z = 0 plane.
func (l *MarkerLayout) ObjectPoint(id int) (r3.Vector, error) {
	pos, err := l.MarkerPosition(id)
	if err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{X: mmToMeters(pos[0]), Y: mmToMeters(pos[1])}, nil
}
