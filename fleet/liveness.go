// fleet/liveness.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmp/gcs/util"
)

// CheckComms marks aircraft that haven't been heard from within the comms
// timeout as having lost comms and returns their ids. Their GPS fix is
// no longer trusted either.
func (f *Fleet) CheckComms(now time.Time) []int {
	var lost []int
	for _, ac := range f.Aircraft.All() {
		if !ac.HasComms || now.Sub(ac.CommsLast) < f.CommsTimeout {
			continue
		}

		ac.HasComms = false
		ac.GPSValid = false
		lost = append(lost, ac.ID)

		f.lg.Warn("lost comms", slog.Int("aircraft", ac.ID),
			slog.Duration("since", now.Sub(ac.CommsLast)))
		f.post(Event{Type: CommsLostEvent, Time: now, Aircraft: ac.ID, Position: ac.Position})
	}
	return lost
}

type ExpiredTraffic struct {
	Aircraft int
	Contact  *TrafficContact
}

// EffectiveTrafficTimeout is how long an airborne contact may go without
// an update before it is dropped.
func (f *Fleet) EffectiveTrafficTimeout() time.Duration {
	return util.Select(f.MultiVehicleSim, f.SimTrafficTimeout, f.TrafficTimeout)
}

// ExpireTraffic removes stale airborne traffic from every aircraft.
func (f *Fleet) ExpireTraffic(now time.Time) []ExpiredTraffic {
	timeout := f.EffectiveTrafficTimeout()

	var expired []ExpiredTraffic
	for _, ac := range f.Aircraft.All() {
		for _, tc := range ac.staleTraffic(now, timeout) {
			f.rememberCallsign(tc)
			expired = append(expired, ExpiredTraffic{Aircraft: ac.ID, Contact: tc})
			f.post(Event{Type: TrafficExpiredEvent, Time: now, Aircraft: ac.ID, Traffic: tc.ID,
				Position: tc.Position, Alt: tc.Alt})
		}
	}
	if len(expired) > 0 {
		f.lg.Debug("expired traffic", slog.Int("count", len(expired)))
	}
	return expired
}

// TrafficRelayCommands returns, when running against simulated vehicles,
// one INPUT_TRAFFIC command per ordered pair of distinct aircraft that
// tells the second about the first.
func (f *Fleet) TrafficRelayCommands() []string {
	if !f.SimMode {
		return nil
	}

	all := f.Aircraft.All()
	var cmds []string
	for _, a := range all {
		for _, b := range all {
			if a.ID == b.ID {
				continue
			}
			cmds = append(cmds, fmt.Sprintf("AIRCRAFT %d INPUT_TRAFFIC %d %s %s %s %s %s %s", b.ID, a.ID,
				util.FormatFloat(a.Position.Latitude()), util.FormatFloat(a.Position.Longitude()),
				util.FormatFloat(a.Alt), util.FormatFloat(a.VX), util.FormatFloat(a.VY), util.FormatFloat(a.VZ)))
		}
	}
	return cmds
}
