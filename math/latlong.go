// math/latlong.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	gomath "math"
)

const NMPerLatitude = 60

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float64

// LL returns the Point2LL for the given latitude and longitude, taken in
// the order used on the wire.
func LL(lat, lng float64) Point2LL {
	return Point2LL{lng, lat}
}

func (p Point2LL) Longitude() float64 {
	return p[0]
}

func (p Point2LL) Latitude() float64 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// NMDistance2LL returns the distance in nautical miles between two
// provided lat-long coordinates.
func NMDistance2LL(a Point2LL, b Point2LL) float64 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	const R = 6371000 // metres
	lat1, lon1 := Radians(a[1]), Radians(a[0])
	lat2, lon2 := Radians(b[1]), Radians(b[0])
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	dm := R * c // in metres

	return dm * 0.000539957
}

///////////////////////////////////////////////////////////////////////////
// Fixed-point wire encodings

// The vehicle reports most quantities as scaled integers.
const (
	PositionScale = 1e-7 // degE7 -> degrees
	AltitudeScale = 1e-3 // mm -> m
	VelocityScale = 1e-2 // cm/s -> m/s
	HeadingScale  = 1e-2 // cdeg -> degrees
)

// DecodeLL converts degE7 latitude and longitude integers to a Point2LL.
func DecodeLL(lat, lon int64) Point2LL {
	return LL(float64(lat)*PositionScale, float64(lon)*PositionScale)
}
