package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSWEREF99TM_CentralMeridianOnEquator(t *testing.T) {
	x, y := ToSWEREF99TM(0, 15)
	assert.InDelta(t, 500000, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestToSWEREF99TM_Stockholm(t *testing.T) {
	x, y := ToSWEREF99TM(59.3293, 18.0686)
	assert.InDelta(t, 674000, x, 2000)
	assert.InDelta(t, 6580800, y, 2000)
}

func TestToSWEREF99TM_WestOfMeridian(t *testing.T) {
	x, _ := ToSWEREF99TM(57.7, 11.9)
	assert.Less(t, x, 500000.0)
}

func TestSWEREF99TM_RoundTrip(t *testing.T) {
	points := []struct{ lat, lon float64 }{
		{55.6050, 13.0038},
		{56.0, 16.5},
		{59.3293, 18.0686},
		{63.8258, 20.2630},
		{67.8558, 20.2253},
		{0, 15},
	}

	for _, p := range points {
		x, y := ToSWEREF99TM(p.lat, p.lon)
		lat, lon := FromSWEREF99TM(x, y)
		assert.InDelta(t, p.lat, lat, 1e-7, "lat for %v", p)
		assert.InDelta(t, p.lon, lon, 1e-7, "lon for %v", p)
	}
}

func TestIsWGS84(t *testing.T) {
	for _, d := range []string{"WGS84", "wgs 84", "WGS-84", "EPSG:4326", "4326"} {
		assert.True(t, IsWGS84(d), d)
	}
	for _, d := range []string{"SWEREF99", "RT90", ""} {
		assert.False(t, IsWGS84(d), d)
	}
}
