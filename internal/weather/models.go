package weather

import (
	"encoding/json"
	"time"

	"github.com/metno-forecast/norwegianweather/internal/common"
)

// Horizon is one of the forecast granularities delivered per timestamp.
type Horizon string

const (
	HorizonInstant    Horizon = "instant"
	HorizonNext1Hour  Horizon = "next_1_hours"
	HorizonNext6Hour  Horizon = "next_6_hours"
	HorizonNext12Hour Horizon = "next_12_hours"
)

// Horizons lists every recognized horizon in the order intervals are stored.
var Horizons = [...]Horizon{HorizonInstant, HorizonNext1Hour, HorizonNext6Hour, HorizonNext12Hour}

// Valid reports whether h is a recognized horizon tag.
func (h Horizon) Valid() bool {
	for _, known := range Horizons {
		if h == known {
			return true
		}
	}
	return false
}

// Attributes is the flat field → value view of forecast data.
// Numeric source fields are float64, summary fields are strings and the
// derived wind fields carry their own types (Beaufort, string, float64).
type Attributes map[string]any

// Float returns the numeric value stored under key.
func (a Attributes) Float(key string) (float64, bool) {
	v, ok := a[key].(float64)
	return v, ok
}

// Text returns the string value stored under key.
func (a Attributes) Text(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Clone returns a shallow copy that can be handed to callers.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// merge copies src into a; keys already present are overwritten.
func (a Attributes) merge(src Attributes) {
	for k, v := range src {
		a[k] = v
	}
}

// Interval holds the data for one (timestamp, horizon) pair.
type Interval struct {
	Horizon Horizon    `json:"horizon"`
	Data    Attributes `json:"data"`
}

// Empty reports whether the source payload carried nothing for this horizon.
func (i Interval) Empty() bool {
	return len(i.Data) == 0
}

// Timeserie is one forecast timestamp with exactly one interval per horizon.
type Timeserie struct {
	Time      time.Time               `json:"time"` // always UTC
	Intervals [len(Horizons)]Interval `json:"intervals"`

	// Hourly is instant merged with next_1_hours, computed once at construction.
	Hourly Attributes `json:"hourly"`
}

// Interval returns the interval for horizon h.
func (t Timeserie) Interval(h Horizon) Interval {
	for _, iv := range t.Intervals {
		if iv.Horizon == h {
			return iv
		}
	}
	return Interval{Horizon: h, Data: Attributes{}}
}

// Value looks attr up in the instant interval and falls back to next_1_hours.
func (t Timeserie) Value(attr string) (any, bool) {
	if v, ok := t.Interval(HorizonInstant).Data[attr]; ok {
		return v, true
	}
	v, ok := t.Interval(HorizonNext1Hour).Data[attr]
	return v, ok
}

// Location is the normalized forecast for one configured point. A Location
// is treated as immutable once built; updates replace it wholesale.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  *int    `json:"altitude,omitempty"`

	// Units maps a metric name to its display unit.
	Units      map[string]string `json:"units"`
	TimeSeries []Timeserie       `json:"timeseries"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// NewLocation returns a Location identity with coordinates rounded to the
// precision accepted by the forecast API.
func NewLocation(name string, lat, lon float64, alt *float64) Location {
	loc := Location{
		Name:      name,
		Latitude:  common.Round(lat, 4),
		Longitude: common.Round(lon, 4),
		Units:     map[string]string{},
	}
	if alt != nil {
		meters := int(common.Round(*alt, 0))
		loc.Altitude = &meters
	}
	return loc
}

// Empty reports whether the location has no forecast data.
func (l Location) Empty() bool {
	return len(l.TimeSeries) == 0
}

// Unit returns the display unit for a metric, or "" when unknown.
func (l Location) Unit(name string) string {
	return l.Units[name]
}

// identity returns a copy of l without units or timeseries.
func (l Location) identity() Location {
	return Location{
		Name:      l.Name,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Altitude:  l.Altitude,
		Units:     map[string]string{},
	}
}

// FreshnessLayout is the fixed format used when persisting the freshness pair.
const FreshnessLayout = "2006-01-02T15:04:05-0700"

// Freshness is the (expires, last_modified) pair governing conditional
// refetch. A zero field is unset.
type Freshness struct {
	Expires      time.Time
	LastModified time.Time
}

// Expired reports whether a new request is needed at now.
func (f Freshness) Expired(now time.Time) bool {
	return f.Expires.IsZero() || now.After(f.Expires)
}

type freshnessJSON struct {
	Expires      string `json:"expires,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

func (f Freshness) MarshalJSON() ([]byte, error) {
	var out freshnessJSON
	if !f.Expires.IsZero() {
		out.Expires = f.Expires.Format(FreshnessLayout)
	}
	if !f.LastModified.IsZero() {
		out.LastModified = f.LastModified.Format(FreshnessLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses each field independently; a field that does not
// parse is left unset.
func (f *Freshness) UnmarshalJSON(b []byte) error {
	var in freshnessJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*f = Freshness{}
	if t, err := time.Parse(FreshnessLayout, in.Expires); err == nil {
		f.Expires = t
	}
	if t, err := time.Parse(FreshnessLayout, in.LastModified); err == nil {
		f.LastModified = t
	}
	return nil
}
