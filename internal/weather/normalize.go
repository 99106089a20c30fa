package weather

import (
	"time"
)

// displayUnits maps API unit names to the units shown to users.
var displayUnits = map[string]string{
	"celsius": "°C",
	"degrees": "°",
	"1":       "",
}

// DisplayUnit returns the display form of an API unit; unknown units pass
// through unchanged.
func DisplayUnit(raw string) string {
	if u, ok := displayUnits[raw]; ok {
		return u
	}
	return raw
}

// timeLayouts are tried in order when parsing a timeserie timestamp.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05-0700"}

func parseForecastTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize builds a fresh Location from raw, keeping the identity of base.
// It never fails: missing blocks become empty intervals and entries whose
// timestamp does not parse are skipped. A nil or timeseries-less payload
// yields a Location without forecast data.
func Normalize(raw *RawPayload, base Location) Location {
	loc := base.identity()
	if raw == nil {
		return loc
	}

	for name, unit := range raw.Properties.Meta.Units {
		loc.Units[name] = DisplayUnit(unit)
	}
	if ts, ok := parseForecastTime(raw.Properties.Meta.UpdatedAt); ok {
		loc.UpdatedAt = ts
	}

	loc.TimeSeries = make([]Timeserie, 0, len(raw.Properties.Timeseries))
	for _, entry := range raw.Properties.Timeseries {
		ts, ok := parseForecastTime(entry.Time)
		if !ok {
			continue
		}
		loc.TimeSeries = append(loc.TimeSeries, newTimeserie(ts, entry.Data))
	}
	return loc
}

func newTimeserie(ts time.Time, data map[Horizon]HorizonBlock) Timeserie {
	t := Timeserie{Time: ts}
	for i, h := range Horizons {
		block, ok := data[h]
		t.Intervals[i] = newInterval(h, block, ok)
	}

	// The hourly view only combines instant and next_1_hours; the longer
	// horizons stay available per interval.
	t.Hourly = Attributes{}
	t.Hourly.merge(t.Interval(HorizonInstant).Data)
	t.Hourly.merge(t.Interval(HorizonNext1Hour).Data)
	return t
}

func newInterval(h Horizon, block HorizonBlock, present bool) Interval {
	data := Attributes{}
	if present {
		for k, v := range block.Summary {
			if text, ok := v.(string); ok {
				data[k] = text
			}
		}
		// details are merged last and win on conflict
		for k, v := range block.Details {
			if n, ok := v.(float64); ok {
				data[k] = n
			}
		}
		deriveWind(data)
	}
	return Interval{Horizon: h, Data: data}
}
