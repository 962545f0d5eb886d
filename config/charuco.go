package config

// Charuco describes a checkerboard whose white squares carry markers. CheckerGridSize is
// [columns, rows].
type Charuco struct {
	MarkerSize      int    `json:"marker_size"`
	MarkerType      string `json:"marker_type"`
	CheckerSize     int    `json:"checker_size"`
	CheckerGridSize [2]int `json:"-"`
}

type charucoAttrs struct {
	MarkerSize      int    `json:"marker_size"`
	MarkerType      string `json:"marker_type"`
	CheckerSize     int    `json:"checker_size"`
	CheckerGridSize []int  `json:"checker_grid_size"`
}

// NewCharuco reads marker_size, checker_size (both mm), marker_type and checker_grid_size, all
// required.
func NewCharuco(raw map[string]interface{}) (*Charuco, error) {
	if err := requireKeys(raw, "marker_size", "marker_type", "checker_size", "checker_grid_size"); err != nil {
		return nil, err
	}
	var attrs charucoAttrs
	if err := decode(raw, &attrs); err != nil {
		return nil, wrapDecode(err, "charuco")
	}
	if err := validateMarker(attrs.MarkerSize, attrs.MarkerType); err != nil {
		return nil, err
	}
	if attrs.CheckerSize <= attrs.MarkerSize {
		return nil, invalid("checker_size", "must be larger than marker_size %d, got %d", attrs.MarkerSize, attrs.CheckerSize)
	}
	if len(attrs.CheckerGridSize) != 2 {
		return nil, invalid("checker_grid_size", "expected [columns, rows], got %d values", len(attrs.CheckerGridSize))
	}
	if attrs.CheckerGridSize[0] < 1 || attrs.CheckerGridSize[1] < 1 {
		return nil, invalid("checker_grid_size", "columns and rows must be at least 1, got %v", attrs.CheckerGridSize)
	}
	return &Charuco{
		MarkerSize:      attrs.MarkerSize,
		MarkerType:      attrs.MarkerType,
		CheckerSize:     attrs.CheckerSize,
		CheckerGridSize: [2]int{attrs.CheckerGridSize[0], attrs.CheckerGridSize[1]},
	}, nil
}

// ToMap returns marker_size, marker_type, checker_size and checker_grid_size.
func (c *Charuco) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"marker_size":       c.MarkerSize,
		"marker_type":       c.MarkerType,
		"checker_size":      c.CheckerSize,
		"checker_grid_size": []int{c.CheckerGridSize[0], c.CheckerGridSize[1]},
	}
}

// CheckerSizeMeters returns the checker square side in meters.
func (c *Charuco) CheckerSizeMeters() float64 {
	return float64(c.CheckerSize) / 1000
}

// MarkerSizeMeters returns the marker side in meters.
func (c *Charuco) MarkerSizeMeters() float64 {
	return float64(c.MarkerSize) / 1000
}
