package weather

// RawPayload is the locationforecast 2.0 GeoJSON document as delivered by
// the API. Only the parts the normalizer reads are typed.
type RawPayload struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties RawProperties `json:"properties"`
}

type RawProperties struct {
	Meta       RawMeta        `json:"meta"`
	Timeseries []RawTimeserie `json:"timeseries"`
}

type RawMeta struct {
	UpdatedAt string            `json:"updated_at"`
	Units     map[string]string `json:"units"`
}

// RawTimeserie is one entry of properties.timeseries. Time is kept as the
// source string and parsed during normalization.
type RawTimeserie struct {
	Time string                   `json:"time"`
	Data map[Horizon]HorizonBlock `json:"data"`
}

// HorizonBlock is the summary/details pair of a single horizon. Values are
// decoded loosely; a null or mistyped field is dropped during normalization
// instead of failing the whole document.
type HorizonBlock struct {
	Summary map[string]any `json:"summary,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HasTimeseries reports whether the payload carries any forecast entries.
func (p *RawPayload) HasTimeseries() bool {
	return p != nil && len(p.Properties.Timeseries) > 0
}
