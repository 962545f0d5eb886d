package config

import (
	"sort"
)

// ArucoMarker describes a single square marker.
type ArucoMarker struct {
	MarkerID   int    `json:"marker_id"`
	MarkerSize int    `json:"marker_size"`
	MarkerType string `json:"marker_type"`
}

// NewArucoMarker reads marker_id, marker_size (mm) and marker_type, all required.
func NewArucoMarker(raw map[string]interface{}) (*ArucoMarker, error) {
	if err := requireKeys(raw, "marker_id", "marker_size", "marker_type"); err != nil {
		return nil, err
	}
	m := &ArucoMarker{}
	if err := decode(raw, m); err != nil {
		return nil, wrapDecode(err, "aruco marker")
	}
	if m.MarkerID < 0 {
		return nil, invalid("marker_id", "must not be negative, got %d", m.MarkerID)
	}
	if err := validateMarker(m.MarkerSize, m.MarkerType); err != nil {
		return nil, err
	}
	return m, nil
}

// ToMap returns marker_id, marker_size and marker_type.
func (m *ArucoMarker) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"marker_id":   m.MarkerID,
		"marker_size": m.MarkerSize,
		"marker_type": m.MarkerType,
	}
}

// MinLayoutMarkers is the fewest markers a layout needs for its pose to be solvable.
const MinLayoutMarkers = 4

// ArucoPattern describes several markers laid out on one plane. MarkerLayout maps each marker id
// to the (x, y) position of its center in millimeters.
type ArucoPattern struct {
	MarkerSize   int            `json:"marker_size"`
	MarkerType   string         `json:"marker_type"`
	MarkerLayout map[int][2]int `json:"-"`
}

type arucoPatternAttrs struct {
	MarkerSize   int           `json:"marker_size"`
	MarkerType   string        `json:"marker_type"`
	MarkerLayout map[int][]int `json:"marker_layout"`
}

// NewArucoPattern reads marker_size (mm), marker_type and marker_layout, all required. Layout keys
// and coordinates may be given as any integer-looking value, e.g. "12" or 12.0. The layout must
// hold at least MinLayoutMarkers markers.
func NewArucoPattern(raw map[string]interface{}) (*ArucoPattern, error) {
	if err := requireKeys(raw, "marker_size", "marker_type", "marker_layout"); err != nil {
		return nil, err
	}
	var attrs arucoPatternAttrs
	if err := decode(raw, &attrs); err != nil {
		return nil, wrapDecode(err, "aruco pattern")
	}
	if err := validateMarker(attrs.MarkerSize, attrs.MarkerType); err != nil {
		return nil, err
	}

	p := &ArucoPattern{
		MarkerSize:   attrs.MarkerSize,
		MarkerType:   attrs.MarkerType,
		MarkerLayout: make(map[int][2]int, len(attrs.MarkerLayout)),
	}
	for id, pos := range attrs.MarkerLayout {
		if len(pos) != 2 {
			return nil, invalid("marker_layout", "marker %d: expected [x, y], got %d values", id, len(pos))
		}
		p.MarkerLayout[id] = [2]int{pos[0], pos[1]}
	}
	if len(p.MarkerLayout) < MinLayoutMarkers {
		return nil, invalid("marker_layout", "need at least %d markers, got %d", MinLayoutMarkers, len(p.MarkerLayout))
	}
	return p, nil
}

// ToMap returns marker_size, marker_type and marker_layout.
func (p *ArucoPattern) ToMap() map[string]interface{} {
	layout := make(map[int][]int, len(p.MarkerLayout))
	for id, pos := range p.MarkerLayout {
		layout[id] = []int{pos[0], pos[1]}
	}
	return map[string]interface{}{
		"marker_size":   p.MarkerSize,
		"marker_type":   p.MarkerType,
		"marker_layout": layout,
	}
}

// MarkerIDs returns the configured ids in ascending order.
func (p *ArucoPattern) MarkerIDs() []int {
	ids := make([]int, 0, len(p.MarkerLayout))
	for id := range p.MarkerLayout {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func validateMarker(size int, markerType string) error {
	if size <= 0 {
		return invalid("marker_size", "must be positive, got %d", size)
	}
	if markerType == "" {
		return invalid("marker_type", "must not be empty")
	}
	return nil
}
