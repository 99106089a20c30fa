package weather

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/metno-forecast/norwegianweather/internal/common"
)

// Source and derived attribute names.
const (
	AttrWindSpeed         = "wind_speed"
	AttrWindFromDirection = "wind_from_direction"
	AttrWindSpeedBeaufort = "wind_speed_bf"
	AttrWindSpeedBfDesc   = "wind_speed_bf_desc"
	AttrWindSpeedKnot     = "wind_speed_knot"
	AttrWindDirCardinal   = "wind_from_direction_cardinal"
	AttrSymbolCode        = "symbol_code"
)

// Beaufort is a wind force on the WMO 0–12 scale.
type Beaufort int

// BeaufortUndefined is returned for speeds that fall in none of the
// breakpoint ranges.
const BeaufortUndefined Beaufort = -1

var beaufortScale = [...]struct {
	min, max float64
	desc     string
}{
	{math.Inf(-1), 0.2, "Calm"},
	{0.3, 1.5, "Light air"},
	{1.6, 3.3, "Light breeze"},
	{3.4, 5.4, "Gentle breeze"},
	{5.5, 7.9, "Moderate breeze"},
	{8.0, 10.7, "Fresh breeze"},
	{10.8, 13.8, "Strong breeze"},
	{13.9, 17.1, "Near gale"},
	{17.2, 20.7, "Gale"},
	{20.8, 24.4, "Strong gale"},
	{24.5, 28.4, "Storm"},
	{28.5, 32.6, "Violent storm"},
	{32.7, math.Inf(1), "Hurricane"},
}

// ToBeaufort rounds speedMs to one decimal and maps it onto the Beaufort scale.
func ToBeaufort(speedMs float64) Beaufort {
	return lookupBeaufort(common.Round(speedMs, 1))
}

// lookupBeaufort matches v against the closed breakpoint ranges. The table
// has gaps between consecutive ranges (e.g. 0.2–0.3); v inside a gap is
// BeaufortUndefined.
func lookupBeaufort(v float64) Beaufort {
	for i, r := range beaufortScale {
		if v >= r.min && v <= r.max {
			return Beaufort(i)
		}
	}
	return BeaufortUndefined
}

// Defined reports whether b is a scale value.
func (b Beaufort) Defined() bool {
	return b >= 0 && int(b) < len(beaufortScale)
}

// Description is the English name of the wind force.
func (b Beaufort) Description() string {
	if !b.Defined() {
		return "undefined"
	}
	return beaufortScale[b].desc
}

func (b Beaufort) String() string {
	if !b.Defined() {
		return "undefined"
	}
	return strconv.Itoa(int(b))
}

// MarshalJSON encodes a defined force as a number and anything else as
// the string "undefined".
func (b Beaufort) MarshalJSON() ([]byte, error) {
	if !b.Defined() {
		return json.Marshal("undefined")
	}
	return json.Marshal(int(b))
}

// MsToKnots converts metres per second to knots (1 nmi = 1852 m), rounded
// to one decimal.
func MsToKnots(speedMs float64) float64 {
	return common.Round(speedMs*3600/1852, 1)
}

// KnotsToMs is the unrounded inverse of MsToKnots.
func KnotsToMs(knots float64) float64 {
	return knots * 1852 / 3600
}

var compassPoints = [...]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// Compass maps a bearing in degrees to one of 16 cardinal labels. Each
// label covers 22.5° centred on its direction; a sector boundary belongs
// to the clockwise neighbour. NaN and infinite bearings have no label.
func Compass(bearing float64) (string, bool) {
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return "", false
	}
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	sector := 360.0 / float64(len(compassPoints))
	ix := int(math.Floor(b/sector+0.5)) % len(compassPoints)
	return compassPoints[ix], true
}

// deriveWind adds the derived wind fields to data. A derived field is only
// written when its source field is present.
func deriveWind(data Attributes) {
	if speed, ok := data.Float(AttrWindSpeed); ok {
		bf := ToBeaufort(speed)
		data[AttrWindSpeedBeaufort] = bf
		data[AttrWindSpeedBfDesc] = bf.Description()
		data[AttrWindSpeedKnot] = MsToKnots(speed)
	}
	if bearing, ok := data.Float(AttrWindFromDirection); ok {
		if cardinal, ok := Compass(bearing); ok {
			data[AttrWindDirCardinal] = cardinal
		}
	}
}
