// math/math_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"
	"slices"
	"testing"
)

func reversed(p []Point2LL) []Point2LL {
	r := slices.Clone(p)
	slices.Reverse(r)
	return r
}

func TestIsCounterClockwise(t *testing.T) {
	for _, tc := range []struct {
		name string
		pts  []Point2LL
		ccw  bool
	}{
		{name: "triangle", pts: []Point2LL{LL(1, 1), LL(1, 2), LL(2, 2)}, ccw: false},
		{name: "triangle reversed", pts: []Point2LL{LL(2, 2), LL(1, 2), LL(1, 1)}, ccw: true},
		{name: "square", pts: []Point2LL{LL(0, 0), LL(0, 1), LL(1, 1), LL(1, 0)}, ccw: false},
		{name: "square reversed", pts: []Point2LL{LL(1, 0), LL(1, 1), LL(0, 1), LL(0, 0)}, ccw: true},
		{name: "two points", pts: []Point2LL{LL(0, 0), LL(1, 1)}, ccw: false},
		{name: "empty", pts: nil, ccw: false},
	} {
		if got := IsCounterClockwise(tc.pts); got != tc.ccw {
			t.Errorf("%s: IsCounterClockwise = %v, expected %v", tc.name, got, tc.ccw)
		}
	}
}

func TestIsCounterClockwiseReversalFlips(t *testing.T) {
	polys := [][]Point2LL{
		{LL(37.1, -122.1), LL(37.1, -122.0), LL(37.2, -122.0)},
		{LL(0, 0), LL(0, 1), LL(1, 1), LL(1, 0)},
		{LL(10, 20), LL(10.5, 20.2), LL(10.7, 21), LL(10.1, 20.9)},
		{LL(-33.9, 151.2), LL(-33.8, 151.3), LL(-33.95, 151.35)},
	}
	for _, p := range polys {
		a, b := IsCounterClockwise(p), IsCounterClockwise(reversed(p))
		if a == b {
			t.Errorf("%v: reversal did not flip the result (%v)", p, a)
		}
	}
}

func TestCounterClockwise(t *testing.T) {
	cw := []Point2LL{LL(1, 1), LL(1, 2), LL(2, 2)}
	got := CounterClockwise(cw)
	if !slices.Equal(got, reversed(cw)) {
		t.Errorf("CounterClockwise(%v) = %v", cw, got)
	}
	if !slices.Equal(cw, []Point2LL{LL(1, 1), LL(1, 2), LL(2, 2)}) {
		t.Errorf("input modified: %v", cw)
	}

	ccw := reversed(cw)
	if got := CounterClockwise(ccw); !slices.Equal(got, ccw) {
		t.Errorf("already counter-clockwise ring changed: %v", got)
	}
}

func TestDecodeLL(t *testing.T) {
	p := DecodeLL(371234567, -1221234567)
	if gomath.Abs(p.Latitude()-37.1234567) > 1e-9 || gomath.Abs(p.Longitude()+122.1234567) > 1e-9 {
		t.Errorf("DecodeLL = %v", p)
	}
}

func TestNMDistance2LL(t *testing.T) {
	// One degree of latitude is 60nm.
	d := NMDistance2LL(LL(10, 20), LL(11, 20))
	if gomath.Abs(d-60) > 0.5 {
		t.Errorf("NMDistance2LL = %f, expected ~60", d)
	}
}

func TestNormalizeHeading(t *testing.T) {
	for _, tc := range [][2]float64{{0, 0}, {360, 0}, {-90, 270}, {725, 5}} {
		if h := NormalizeHeading(tc[0]); gomath.Abs(h-tc[1]) > 1e-9 {
			t.Errorf("NormalizeHeading(%f) = %f, expected %f", tc[0], h, tc[1])
		}
	}
}
