// fleet/fleet.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/brunoga/deep"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/math"
)

type Options struct {
	// FlyByFile disables creating aircraft when a heartbeat arrives from
	// an unknown vehicle; aircraft are only created by the script.
	FlyByFile bool
	// SimMode enables relaying each simulated vehicle's position to the
	// others as traffic.
	SimMode         bool
	MultiVehicleSim bool

	CommsTimeout      time.Duration
	TrafficTimeout    time.Duration
	SimTrafficTimeout time.Duration // used when MultiVehicleSim is set

	// CallsignMemory is the number of traffic callsigns remembered after
	// their contacts expire.
	CallsignMemory int
}

func DefaultOptions() Options {
	return Options{
		CommsTimeout:      10 * time.Second,
		TrafficTimeout:    5 * time.Second,
		SimTrafficTimeout: 2 * time.Second,
		CallsignMemory:    256,
	}
}

// PlaybackState is the log player's most recent status report.
type PlaybackState struct {
	State string
	Time  float64
}

// Fleet holds everything the client knows about the vehicles it is
// talking to. It is not safe for concurrent use; all access happens on
// the client's event loop.
type Fleet struct {
	Options

	Aircraft Registry[*Aircraft]
	Playback PlaybackState
	Events   *EventStream

	// callsigns remembers the callsigns of traffic by id, so that a
	// contact that reappears after expiring has its name back before the
	// next callsign-bearing report.
	callsigns *lru.Cache[int, string]
	lg        *log.Logger
}

func New(opts Options, lg *log.Logger) *Fleet {
	def := DefaultOptions()
	if opts.CommsTimeout == 0 {
		opts.CommsTimeout = def.CommsTimeout
	}
	if opts.TrafficTimeout == 0 {
		opts.TrafficTimeout = def.TrafficTimeout
	}
	if opts.SimTrafficTimeout == 0 {
		opts.SimTrafficTimeout = def.SimTrafficTimeout
	}
	if opts.CallsignMemory <= 0 {
		opts.CallsignMemory = def.CallsignMemory
	}

	callsigns, err := lru.New[int, string](opts.CallsignMemory)
	if err != nil {
		// Only possible with a nonpositive size.
		panic(err)
	}

	return &Fleet{
		Options:   opts,
		Events:    NewEventStream(lg),
		callsigns: callsigns,
		lg:        lg,
	}
}

func (f *Fleet) Destroy() {
	f.Events.Destroy()
}

func (f *Fleet) post(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	f.Events.Post(e)
}

// Post adds an event to the fleet's event stream.
func (f *Fleet) Post(e Event) {
	f.post(e)
}

// NewAircraft adds an aircraft at pos. If id is 0, the smallest unused id
// is chosen.
func (f *Fleet) NewAircraft(id int, pos math.Point2LL) (*Aircraft, error) {
	if id == 0 {
		id = f.Aircraft.NextID()
	} else if _, ok := f.Aircraft.Get(id); ok {
		return nil, fmt.Errorf("aircraft %d: %w", id, ErrDuplicateAircraft)
	}

	ac := NewAircraft(id, pos)
	f.Aircraft.Insert(ac)
	if _, ok := f.Aircraft.Active(); !ok {
		f.Aircraft.SetActive(id)
	}

	f.lg.Info("new aircraft", slog.Any("aircraft", ac))
	f.post(Event{Type: AircraftCreatedEvent, Aircraft: id, Position: pos})
	return ac, nil
}

// Shutdown removes the aircraft along with its fences and traffic,
// returning what was removed so the caller can clean up its drawings.
func (f *Fleet) Shutdown(id int) (*Aircraft, error) {
	ac, ok := f.Aircraft.Get(id)
	if !ok {
		return nil, fmt.Errorf("aircraft %d: %w", id, ErrUnknownAircraft)
	}

	f.Aircraft.RemoveByID(id)
	for _, tc := range ac.Traffic.All() {
		f.rememberCallsign(tc)
	}

	f.lg.Info("aircraft shut down", slog.Any("aircraft", ac))
	f.post(Event{Type: AircraftRemovedEvent, Aircraft: id, Position: ac.Position})
	return ac, nil
}

// Get returns the aircraft with the given id.
func (f *Fleet) Get(id int) (*Aircraft, bool) {
	return f.Aircraft.Get(id)
}

// Active returns the currently selected aircraft.
func (f *Fleet) Active() (*Aircraft, bool) {
	return f.Aircraft.Active()
}

// Select makes the aircraft with the given id the active one.
func (f *Fleet) Select(id int) error {
	if !f.Aircraft.SetActive(id) {
		return fmt.Errorf("aircraft %d: %w", id, ErrUnknownAircraft)
	}
	return nil
}

func (f *Fleet) rememberCallsign(tc *TrafficContact) {
	if tc.Callsign != "" {
		f.callsigns.Add(tc.ID, tc.Callsign)
	}
}

// TrafficCallsign returns the callsign last seen for the traffic id.
func (f *Fleet) TrafficCallsign(id int) (string, bool) {
	return f.callsigns.Get(id)
}

// UpsertTraffic records a traffic report for ac, restoring a remembered
// callsign for contacts that reappear without one.
func (f *Fleet) UpsertTraffic(ac *Aircraft, r TrafficReport, now time.Time) (*TrafficContact, bool) {
	if r.Callsign == "" {
		if cs, ok := f.callsigns.Get(r.ID); ok {
			r.Callsign = cs
		}
	}
	tc, added := ac.UpsertTraffic(r, now)
	f.rememberCallsign(tc)
	return tc, added
}

// Snapshot returns a deep copy of the fleet's aircraft for use outside
// the event loop.
func (f *Fleet) Snapshot() []*Aircraft {
	return deep.MustCopy(f.Aircraft.All())
}

func (f *Fleet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("aircraft", f.Aircraft.Len()),
		slog.Bool("fly_by_file", f.FlyByFile),
		slog.Bool("sim", f.SimMode),
		slog.Bool("multi_vehicle", f.MultiVehicleSim))
}
