package weather

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBeaufort(t *testing.T) {
	tests := []struct {
		speed float64
		want  Beaufort
	}{
		{0, 0},
		{0.2, 0},
		{0.24, 0},
		{0.3, 1},
		{1.5, 1},
		{1.6, 2},
		{3.35, 3},
		{5.6, 4},
		{7.9, 4},
		{10.75, 6},
		{17.1, 7},
		{32.6, 11},
		{32.7, 12},
		{60, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToBeaufort(tt.speed), "speed %v", tt.speed)
	}
}

func TestLookupBeaufortGap(t *testing.T) {
	assert.Equal(t, BeaufortUndefined, lookupBeaufort(0.25))
	assert.Equal(t, BeaufortUndefined, lookupBeaufort(5.45))
	assert.Equal(t, BeaufortUndefined, ToBeaufort(math.NaN()))
}

func TestBeaufortDescriptionAndJSON(t *testing.T) {
	assert.Equal(t, "Calm", Beaufort(0).Description())
	assert.Equal(t, "Moderate breeze", Beaufort(4).Description())
	assert.Equal(t, "Hurricane", Beaufort(12).Description())
	assert.Equal(t, "undefined", BeaufortUndefined.Description())
	assert.Equal(t, "undefined", Beaufort(13).String())
	assert.Equal(t, "4", Beaufort(4).String())

	b, err := json.Marshal(Beaufort(4))
	require.NoError(t, err)
	assert.JSONEq(t, `4`, string(b))

	b, err = json.Marshal(BeaufortUndefined)
	require.NoError(t, err)
	assert.JSONEq(t, `"undefined"`, string(b))
}

func TestKnots(t *testing.T) {
	assert.Equal(t, 0.0, MsToKnots(0))
	assert.Equal(t, 10.9, MsToKnots(5.6))
	assert.Equal(t, 19.4, MsToKnots(10))
	assert.InDelta(t, 1.0, KnotsToMs(3600.0/1852.0), 1e-12)
	assert.InDelta(t, 5.6, KnotsToMs(5.6*3600/1852), 1e-12)
}

func TestCompass(t *testing.T) {
	tests := []struct {
		bearing float64
		want    string
	}{
		{0, "N"},
		{11.2, "N"},
		{11.25, "NNE"},
		{22.5, "NNE"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{202.5, "SSW"},
		{270, "W"},
		{348.74, "NNW"},
		{348.75, "N"},
		{359.9, "N"},
		{360, "N"},
		{450, "E"},
		{-90, "W"},
	}
	for _, tt := range tests {
		got, ok := Compass(tt.bearing)
		require.True(t, ok, "bearing %v", tt.bearing)
		assert.Equal(t, tt.want, got, "bearing %v", tt.bearing)
	}

	for _, b := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, ok := Compass(b)
		assert.False(t, ok)
	}
}

func TestCompassPeriodic(t *testing.T) {
	for _, b := range []float64{3, 47.5, 133, 260.1, 301} {
		want, _ := Compass(b)
		got, _ := Compass(b + 720)
		assert.Equal(t, want, got)
		got, _ = Compass(b - 360)
		assert.Equal(t, want, got)
	}
}

func TestDeriveWind(t *testing.T) {
	data := Attributes{AttrWindSpeed: 5.6, AttrWindFromDirection: 90.0}
	deriveWind(data)
	assert.Equal(t, Beaufort(4), data[AttrWindSpeedBeaufort])
	assert.Equal(t, "Moderate breeze", data[AttrWindSpeedBfDesc])
	assert.Equal(t, 10.9, data[AttrWindSpeedKnot])
	assert.Equal(t, "E", data[AttrWindDirCardinal])

	onlySpeed := Attributes{AttrWindSpeed: 0.0}
	deriveWind(onlySpeed)
	assert.Contains(t, onlySpeed, AttrWindSpeedBeaufort)
	assert.NotContains(t, onlySpeed, AttrWindDirCardinal)

	none := Attributes{"air_temperature": 12.3}
	deriveWind(none)
	assert.Len(t, none, 1)
}
