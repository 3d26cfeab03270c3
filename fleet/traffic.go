// fleet/traffic.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	gomath "math"
	"strconv"
	"time"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/math"
)

// TrafficContact is another aircraft reported near one of ours, either by
// the vehicle's sensors, ADS-B, or the simulator.
type TrafficContact struct {
	ID          int
	Callsign    string
	Position    math.Point2LL
	Alt         float64
	VX, VY, VZ  float64
	Vel         float64 // ground speed, m/s
	Heading     float64
	Source      av.TrafficSource
	EmitterCode int
	InFlight    bool
	LastUpdate  time.Time
}

func (tc *TrafficContact) EntityID() int { return tc.ID }

func (tc *TrafficContact) EntityName() string {
	if tc.Callsign != "" {
		return tc.Callsign
	}
	return strconv.Itoa(tc.ID)
}

// TrafficReport is a decoded TRAFFIC message.
type TrafficReport struct {
	ID          int
	Callsign    string
	Position    math.Point2LL
	Alt         float64
	VX, VY, VZ  float64 // m/s, NED
	Source      av.TrafficSource
	EmitterCode int
	OnGround    bool
}

// UpsertTraffic updates the contact with the report's id or adds a new
// one; the second result is true if the contact was new.
func (ac *Aircraft) UpsertTraffic(r TrafficReport, now time.Time) (*TrafficContact, bool) {
	tc, ok := ac.Traffic.Get(r.ID)
	if !ok {
		tc = &TrafficContact{ID: r.ID}
		ac.Traffic.Insert(tc)
	}

	if r.Callsign != "" {
		tc.Callsign = r.Callsign
	}
	tc.Position = r.Position
	tc.Alt = r.Alt
	tc.VX, tc.VY, tc.VZ = r.VX, r.VY, r.VZ
	tc.Vel = gomath.Hypot(r.VX, r.VY)
	tc.Heading = math.NormalizeHeading(math.Degrees(gomath.Atan2(r.VY, r.VX)))
	tc.Source = r.Source
	tc.EmitterCode = r.EmitterCode
	tc.InFlight = !r.OnGround
	tc.LastUpdate = now

	return tc, !ok
}

func (ac *Aircraft) RemoveTraffic(id int) bool {
	return ac.Traffic.RemoveByID(id)
}

// staleTraffic removes and returns the airborne contacts that haven't
// been updated for longer than timeout. Contacts on the ground are kept.
func (ac *Aircraft) staleTraffic(now time.Time, timeout time.Duration) []*TrafficContact {
	var stale []*TrafficContact
	for _, tc := range ac.Traffic.All() {
		if tc.InFlight && now.Sub(tc.LastUpdate) > timeout {
			ac.Traffic.RemoveByID(tc.ID)
			stale = append(stale, tc)
		}
	}
	return stale
}
