// Package pattern describes the geometry of the planar fiducial patterns a detector can locate:
// a single square marker, several markers at configured positions, and a Charuco board. Each
// descriptor is built from its configuration fragment, validates the configured ids against its
// marker dictionary, and produces object-space points in meters.
package pattern

import (
	"strings"
)

// Dictionary selects a predefined marker dictionary. The values follow OpenCV's predefined
// dictionary enumeration so they can be handed to a corner detector as-is.
type Dictionary int

// The predefined dictionaries.
const (
	Dict4x4_50 Dictionary = iota
	Dict4x4_100
	Dict4x4_250
	Dict4x4_1000
	Dict5x5_50
	Dict5x5_100
	Dict5x5_250
	Dict5x5_1000
	Dict6x6_50
	Dict6x6_100
	Dict6x6_250
	Dict6x6_1000
	Dict7x7_50
	Dict7x7_100
	Dict7x7_250
	Dict7x7_1000
	DictArucoOriginal
	DictAprilTag16h5
	DictAprilTag25h9
	DictAprilTag36h10
	DictAprilTag36h11
	DictArucoMIP36h12
)

type dictionaryInfo struct {
	name    string
	idRange int
}

var dictionaries = map[Dictionary]dictionaryInfo{
	Dict4x4_50:        {"4x4_50", 50},
	Dict4x4_100:       {"4x4_100", 100},
	Dict4x4_250:       {"4x4_250", 250},
	Dict4x4_1000:      {"4x4_1000", 1000},
	Dict5x5_50:        {"5x5_50", 50},
	Dict5x5_100:       {"5x5_100", 100},
	Dict5x5_250:       {"5x5_250", 250},
	Dict5x5_1000:      {"5x5_1000", 1000},
	Dict6x6_50:        {"6x6_50", 50},
	Dict6x6_100:       {"6x6_100", 100},
	Dict6x6_250:       {"6x6_250", 250},
	Dict6x6_1000:      {"6x6_1000", 1000},
	Dict7x7_50:        {"7x7_50", 50},
	Dict7x7_100:       {"7x7_100", 100},
	Dict7x7_250:       {"7x7_250", 250},
	Dict7x7_1000:      {"7x7_1000", 1000},
	DictArucoOriginal: {"aruco_original", 1024},
	DictAprilTag16h5:  {"apriltag_16h5", 30},
	DictAprilTag25h9:  {"apriltag_25h9", 35},
	DictAprilTag36h10: {"apriltag_36h10", 2320},
	DictAprilTag36h11: {"apriltag_36h11", 587},
	DictArucoMIP36h12: {"aruco_mip_36h12", 250},
}

// aliases are the additional accepted spellings, all lower case and without a "dict_" prefix.
var aliases = map[string]Dictionary{
	"original":    DictArucoOriginal,
	"mip_36h12":   DictArucoMIP36h12,
	"april_16h5":  DictAprilTag16h5,
	"april_25h9":  DictAprilTag25h9,
	"april_36h10": DictAprilTag36h10,
	"april_36h11": DictAprilTag36h11,
}

var byName = func() map[string]Dictionary {
	m := make(map[string]Dictionary, len(dictionaries)+len(aliases))
	for d, info := range dictionaries {
		m[info.name] = d
	}
	for alias, d := range aliases {
		m[alias] = d
	}
	return m
}()

// ParseDictionary resolves a marker type such as "4x4_50", "DICT_6X6_250" or "apriltag_36h11".
// Matching ignores case and an optional "DICT_" prefix.
func ParseDictionary(markerType string) (Dictionary, error) {
	key := strings.ToLower(strings.TrimSpace(markerType))
	key = strings.TrimPrefix(key, "dict_")
	if d, ok := byName[key]; ok {
		return d, nil
	}
	return -1, &UnknownMarkerTypeError{MarkerType: markerType}
}

// IDRange returns the number of distinct ids in the dictionary; valid ids are [0, IDRange).
func (d Dictionary) IDRange() int {
	return dictionaries[d].idRange
}

// Name returns the canonical lower case name, e.g. "4x4_50".
func (d Dictionary) Name() string {
	if info, ok := dictionaries[d]; ok {
		return info.name
	}
	return "unknown"
}

func (d Dictionary) String() string {
	return d.Name()
}

// ValidID reports whether id is in [0, IDRange).
func (d Dictionary) ValidID(id int) bool {
	return id >= 0 && id < d.IDRange()
}

func (d Dictionary) checkID(id int) error {
	if !d.ValidID(id) {
		return &InvalidMarkerIDError{ID: id, Dictionary: d}
	}
	return nil
}
