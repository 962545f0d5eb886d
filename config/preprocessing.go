package config

// Preprocessing holds the flags applied to a frame before marker detection.
type Preprocessing struct {
	InvertImg bool `json:"invert_img"`
}

// NewPreprocessing reads the optional invert_img flag, false by default.
func NewPreprocessing(raw map[string]interface{}) (*Preprocessing, error) {
	p := &Preprocessing{}
	if raw["invert_img"] == nil {
		return p, nil
	}
	if err := decode(raw, p); err != nil {
		return nil, wrapDecode(err, "invert_img")
	}
	return p, nil
}

// ToMap returns the invert_img flag.
func (p *Preprocessing) ToMap() map[string]interface{} {
	return map[string]interface{}{"invert_img": p.InvertImg}
}
