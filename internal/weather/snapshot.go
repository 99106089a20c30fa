package weather

import "time"

// HourlyView is the hourly attribute view of one timestamp.
type HourlyView struct {
	Time time.Time  `json:"time"`
	Data Attributes `json:"data"`
}

// Select returns the hourly view of the timeserie bracketing at, i.e. the
// first i with time[i] < at < time[i+1]. Both bounds are exclusive, so an
// instant equal to a stored timestamp selects nothing.
func Select(loc Location, at time.Time) (Attributes, bool) {
	ts := loc.TimeSeries
	for i := 0; i+1 < len(ts); i++ {
		if ts[i].Time.Before(at) && at.Before(ts[i+1].Time) {
			return ts[i].Hourly.Clone(), true
		}
	}
	return nil, false
}

// Series returns the hourly views of the first maxCount timeseries in stored
// order. maxCount <= 0 returns all of them.
func Series(loc Location, maxCount int) []HourlyView {
	n := limit(len(loc.TimeSeries), maxCount)
	out := make([]HourlyView, 0, n)
	for _, t := range loc.TimeSeries[:n] {
		out = append(out, HourlyView{Time: t.Time, Data: t.Hourly.Clone()})
	}
	return out
}

// HorizonSeries returns the data of horizon h for the first maxCount timeseries
// that carry it.
func HorizonSeries(loc Location, h Horizon, maxCount int) []HourlyView {
	var out []HourlyView
	for _, t := range loc.TimeSeries {
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
		iv := t.Interval(h)
		if iv.Empty() {
			continue
		}
		out = append(out, HourlyView{Time: t.Time, Data: iv.Data.Clone()})
	}
	return out
}

func limit(n, maxCount int) int {
	if maxCount > 0 && maxCount < n {
		return maxCount
	}
	return n
}
