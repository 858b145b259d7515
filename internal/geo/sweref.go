// Package geo converts station coordinates between WGS84 (EPSG:4326) and
// SWEREF 99 TM (EPSG:3006).
package geo

import "math"

// Gauss–Krüger parameters of SWEREF 99 TM on the GRS 80 ellipsoid.
const (
	semiMajorAxis   = 6378137.0
	flattening      = 1.0 / 298.257222101
	centralMeridian = 15.0
	scale           = 0.9996
	falseNorthing   = 0.0
	falseEasting    = 500000.0
)

// Datum names as written in the stations CSV.
const (
	DatumWGS84     = "WGS84"
	DatumSWEREF99  = "SWEREF99"
	EPSGWGS84      = 4326
	EPSGSWEREF99TM = 3006
)

type projection struct {
	aRoof          float64
	a, b, c, d     float64
	beta           [4]float64
	delta          [4]float64
	aS, bS, cS, dS float64
}

var sweref99TM = newProjection()

func newProjection() projection {
	e2 := flattening * (2 - flattening)
	n := flattening / (2 - flattening)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n

	return projection{
		aRoof: semiMajorAxis / (1 + n) * (1 + n2/4 + n4/64),

		a: e2,
		b: (5*e2*e2 - e2*e2*e2) / 6,
		c: (104*math.Pow(e2, 3) - 45*math.Pow(e2, 4)) / 120,
		d: 1237 * math.Pow(e2, 4) / 1260,

		beta: [4]float64{
			n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180,
			13*n2/48 - 3*n3/5 + 557*n4/1440,
			61*n3/240 - 103*n4/140,
			49561 * n4 / 161280,
		},
		delta: [4]float64{
			n/2 - 2*n2/3 + 37*n3/96 - n4/360,
			n2/48 + n3/15 - 437*n4/1440,
			17*n3/480 - 37*n4/840,
			4397 * n4 / 161280,
		},

		aS: e2 + e2*e2 + math.Pow(e2, 3) + math.Pow(e2, 4),
		bS: -(7*e2*e2 + 17*math.Pow(e2, 3) + 30*math.Pow(e2, 4)) / 6,
		cS: (224*math.Pow(e2, 3) + 889*math.Pow(e2, 4)) / 120,
		dS: -4279 * math.Pow(e2, 4) / 1260,
	}
}

// ToSWEREF99TM projects a WGS84 latitude/longitude in degrees to SWEREF 99 TM.
// x is the easting and y the northing, both in metres.
func ToSWEREF99TM(lat, lon float64) (x, y float64) {
	p := sweref99TM

	phi := radians(lat)
	dLambda := radians(lon - centralMeridian)

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	s2 := sinPhi * sinPhi
	phiStar := phi - sinPhi*cosPhi*(p.a+p.b*s2+p.c*s2*s2+p.d*s2*s2*s2)

	xiP := math.Atan2(math.Tan(phiStar), math.Cos(dLambda))
	etaP := math.Atanh(math.Cos(phiStar) * math.Sin(dLambda))

	north, east := xiP, etaP
	for i, beta := range p.beta {
		k := float64(2 * (i + 1))
		north += beta * math.Sin(k*xiP) * math.Cosh(k*etaP)
		east += beta * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	x = scale*p.aRoof*east + falseEasting
	y = scale*p.aRoof*north + falseNorthing
	return x, y
}

// FromSWEREF99TM is the inverse of ToSWEREF99TM.
func FromSWEREF99TM(x, y float64) (lat, lon float64) {
	p := sweref99TM

	xi := (y - falseNorthing) / (scale * p.aRoof)
	eta := (x - falseEasting) / (scale * p.aRoof)

	xiP, etaP := xi, eta
	for i, delta := range p.delta {
		k := float64(2 * (i + 1))
		xiP -= delta * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= delta * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	phiStar := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	dLambda := math.Atan(math.Sinh(etaP) / math.Cos(xiP))

	sinPhi, cosPhi := math.Sin(phiStar), math.Cos(phiStar)
	s2 := sinPhi * sinPhi
	phi := phiStar + sinPhi*cosPhi*(p.aS+p.bS*s2+p.cS*s2*s2+p.dS*s2*s2*s2)

	return degrees(phi), centralMeridian + degrees(dLambda)
}

// IsWGS84 reports whether a geodetic datum string names WGS84 or EPSG:4326.
func IsWGS84(datum string) bool {
	switch normalizeDatum(datum) {
	case "WGS84", "EPSG4326", "4326":
		return true
	}
	return false
}

func normalizeDatum(datum string) string {
	out := make([]byte, 0, len(datum))
	for i := 0; i < len(datum); i++ {
		c := datum[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		}
	}
	return string(out)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
