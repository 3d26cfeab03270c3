// fleet/fleet_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/math"
)

func newTestFleet(t *testing.T, opts Options) *Fleet {
	f := New(opts, log.Discard())
	t.Cleanup(f.Destroy)
	return f
}

func mustAircraft(t *testing.T, f *Fleet, id int, pos math.Point2LL) *Aircraft {
	t.Helper()
	ac, err := f.NewAircraft(id, pos)
	if err != nil {
		t.Fatalf("NewAircraft(%d): %v", id, err)
	}
	return ac
}

func TestRegistry(t *testing.T) {
	var r Registry[*Aircraft]
	for _, id := range []int{1, 2, 4} {
		r.Insert(NewAircraft(id, math.Point2LL{}))
	}

	if got := r.NextID(); got != 3 {
		t.Errorf("NextID = %d, expected 3", got)
	}
	if _, ok := r.Get(5); ok {
		t.Errorf("Get(5) unexpectedly found an aircraft")
	}
	if ac, ok := r.GetByName("4"); !ok || ac.ID != 4 {
		t.Errorf("GetByName(\"4\") = %v, %v", ac, ok)
	}

	if _, ok := r.Active(); ok {
		t.Errorf("expected no active aircraft initially")
	}
	if r.SetActive(7) {
		t.Errorf("SetActive of unknown id succeeded")
	}
	r.SetActive(2)
	r.SetActive(4)
	if r.IsActive(2) || !r.IsActive(4) {
		t.Errorf("active selection is not exclusive")
	}

	if !r.RemoveByID(4) {
		t.Errorf("RemoveByID(4) returned false")
	}
	if r.RemoveByID(4) {
		t.Errorf("second RemoveByID(4) returned true")
	}
	if _, ok := r.Active(); ok {
		t.Errorf("removed aircraft is still active")
	}
	if ids := r.IDs(); !slices.Equal(ids, []int{1, 2}) {
		t.Errorf("IDs = %v, expected [1 2]", ids)
	}

	all := r.All()
	r.Insert(NewAircraft(9, math.Point2LL{}))
	if len(all) != 2 {
		t.Errorf("All result changed after Insert: %d entries", len(all))
	}
}

func TestStatus(t *testing.T) {
	for s := StatusPlanning; s <= StatusPostFlight; s++ {
		if !s.Valid() {
			t.Errorf("%s: expected valid", s)
		}
	}
	if Status(4).Valid() || Status(-1).Valid() {
		t.Errorf("out of range status reported valid")
	}
}

func TestFlightPlanLifecycle(t *testing.T) {
	f := newTestFleet(t, Options{})
	ac := mustAircraft(t, f, 1, math.LL(10, 20))

	if _, err := ac.SubmitFlightPlan(1, "SITL"); !errors.Is(err, ErrEmptyFlightPlan) {
		t.Errorf("submit empty plan: got %v", err)
	}
	if err := ac.StartFlight(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start from planning: got %v", err)
	}

	ac.AddWaypoint(av.Waypoint{Position: math.LL(10, 20), Alt: 0})
	ac.AddWaypoint(av.Waypoint{Position: math.LL(10.1, 20.1), Alt: 50})
	cmd, err := ac.SubmitFlightPlan(1, "SITL")
	if err != nil {
		t.Fatalf("SubmitFlightPlan: %v", err)
	}
	if expected := "LOAD_FLIGHT_PLAN AC_ID 1 VEL 1 SITL WP 10 20 0 10.1 20.1 50"; cmd != expected {
		t.Errorf("got command %q, expected %q", cmd, expected)
	}
	if ac.Status != StatusPreFlight {
		t.Errorf("status %s after submit", ac.Status)
	}
	if _, err := ac.SubmitFlightPlan(1, "SITL"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double submit: got %v", err)
	}

	// The vehicle echoes back a three-point plan.
	ac.ReplaceFlightPlan([]av.Waypoint{
		{Position: math.LL(10, 20)}, {Position: math.LL(10.1, 20.1)}, {Position: math.LL(10.2, 20.2)},
	}, false)
	if ac.Status != StatusPreFlight {
		t.Errorf("status %s after vehicle plan, expected PRE-FLIGHT", ac.Status)
	}

	// Editing withdraws the plan.
	if err := ac.AddWaypoint(av.Waypoint{Position: math.LL(10.3, 20.3)}); err != nil {
		t.Errorf("AddWaypoint in pre-flight: %v", err)
	}
	if ac.Status != StatusPlanning || len(ac.FlightPlan) != 4 {
		t.Errorf("after edit: status %s, %d waypoints", ac.Status, len(ac.FlightPlan))
	}

	if _, err := ac.SubmitFlightPlan(2, "SITL"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	ac.FlightPlanFailed()
	if ac.Status != StatusPlanning {
		t.Errorf("status %s after failed load", ac.Status)
	}

	ac.SubmitFlightPlan(2, "SITL")
	if err := ac.StartFlight(); err != nil {
		t.Errorf("StartFlight: %v", err)
	}
	if err := ac.AddWaypoint(av.Waypoint{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("editing in flight: got %v", err)
	}
	if err := ac.StopFlight(); err != nil || ac.Status != StatusPostFlight {
		t.Errorf("StopFlight: %v, status %s", err, ac.Status)
	}
}

func TestReplaceFlightPlan(t *testing.T) {
	two := []av.Waypoint{{Position: math.LL(1, 1)}, {Position: math.LL(2, 2)}}
	one := two[:1]

	for _, tc := range []struct {
		wps      []av.Waypoint
		fromFile bool
		status   Status
	}{
		{two, false, StatusPreFlight},
		{one, false, StatusPlanning},
		{two, true, StatusPlanning},
		{nil, false, StatusPlanning},
	} {
		ac := NewAircraft(1, math.Point2LL{})
		ac.Status = StatusPreFlight
		ac.ReplaceFlightPlan(tc.wps, tc.fromFile)
		if ac.Status != tc.status {
			t.Errorf("%d waypoints fromFile=%v: status %s, expected %s", len(tc.wps), tc.fromFile,
				ac.Status, tc.status)
		}
	}
}

func TestCallsign(t *testing.T) {
	ac := NewAircraft(3, math.Point2LL{})
	if ac.Name != "3" {
		t.Errorf("default name %q", ac.Name)
	}
	if ac.SetCallsignFromStatusText("PreArm: GPS not healthy") {
		t.Errorf("non-callsign text accepted")
	}
	for _, text := range []string{"CALLSIGN:N123", "callsign N123", " Callsign: N123 "} {
		ac.Name = "3"
		if !ac.SetCallsignFromStatusText(text) || ac.Name != "N123" {
			t.Errorf("%q: name %q", text, ac.Name)
		}
	}
}

func TestParameters(t *testing.T) {
	ac := NewAircraft(1, math.Point2LL{})
	if ac.ParametersComplete() {
		t.Errorf("complete with no parameters")
	}

	ac.SetParameter(2, 3, "C", 3)
	ac.SetParameter(0, 3, "A", 1)
	if ac.ParametersComplete() {
		t.Errorf("complete with a missing parameter")
	}
	if m := ac.MissingParameters(); !slices.Equal(m, []int{1}) {
		t.Errorf("missing = %v, expected [1]", m)
	}
	ac.SetParameter(1, 3, "B", 2)
	if !ac.ParametersComplete() {
		t.Errorf("expected parameters to be complete")
	}

	ac.SetParameter(-1, 0, "B", 20)
	if v, ok := ac.Parameter("B"); !ok || v != 20 {
		t.Errorf("B = %v, %v after by-name update", v, ok)
	}
	if _, ok := ac.Parameter("D"); ok {
		t.Errorf("found unknown parameter")
	}
}

func TestHeartbeatAndGPS(t *testing.T) {
	ac := NewAircraft(1, math.Point2LL{})
	if !ac.UpdateHeartbeat(217) || ac.FlightMode != "GUIDED ARMED" {
		t.Errorf("mode %q", ac.FlightMode)
	}
	if ac.UpdateHeartbeat(217) {
		t.Errorf("unchanged mode reported as changed")
	}
	ac.UpdateGPS(9, 1)
	if ac.GPSValid {
		t.Errorf("no-fix GPS reported valid")
	}
	ac.UpdateGPS(9, 3)
	if !ac.GPSValid {
		t.Errorf("3D fix GPS reported invalid")
	}
}

///////////////////////////////////////////////////////////////////////////
// Fences

func makeFence(ac *Aircraft, pts ...math.Point2LL) *Fence {
	f := ac.NewFence(pts[0], av.FenceInclusion, 0, 100)
	for _, p := range pts[1:] {
		f.AddPoint(p)
	}
	return f
}

func TestFencePoints(t *testing.T) {
	ac := NewAircraft(1, math.Point2LL{})
	f := ac.NewFence(math.LL(1, 1), av.FenceInclusion, 0, 100)

	if f.RemovePoint(0) {
		t.Errorf("removed the only point")
	}
	if len(f.Points) != 1 {
		t.Errorf("%d points after removing the only point", len(f.Points))
	}

	f.AddPoint(math.LL(1, 2))
	f.AddPoint(math.LL(2, 2))
	if f.RemovePoint(7) {
		t.Errorf("removed unknown point")
	}
	if !f.RemovePoint(1) {
		t.Errorf("RemovePoint(1) failed")
	}
	for i, p := range f.Points {
		if p.ID != i {
			t.Errorf("point %d has id %d", i, p.ID)
		}
	}
	if f.Points[1].Position != math.LL(2, 2) {
		t.Errorf("wrong point removed: %v", f.Points)
	}
}

func TestSubmitFence(t *testing.T) {
	ac := NewAircraft(1, math.Point2LL{})

	small := makeFence(ac, math.LL(1, 1), math.LL(1, 2))
	if _, err := ac.SubmitFence(small); !errors.Is(err, ErrDegenerateGeofence) {
		t.Errorf("two-point fence: got %v", err)
	}
	if small.Submitted || small.Seq != 0 {
		t.Errorf("degenerate fence was modified: %+v", small)
	}
	ac.RemoveFence(small.ID)

	f := makeFence(ac, math.LL(1, 1), math.LL(1, 2), math.LL(2, 2))
	cmd, err := ac.SubmitFence(f)
	if err != nil {
		t.Fatalf("SubmitFence: %v", err)
	}
	if expected := "LOAD_GEOFENCE AC_ID 1 F_ID 1 TYPE 0 FLOOR 0 ROOF 100 2 2 1 2 1 1"; cmd != expected {
		t.Errorf("got %q, expected %q", cmd, expected)
	}
	if !f.Submitted || f.Seq != 1 {
		t.Errorf("after submit: seq %d submitted %v", f.Seq, f.Submitted)
	}

	// Submitting again keeps the sequence number and the (now
	// counter-clockwise) order.
	cmd2, err := ac.SubmitFence(f)
	if err != nil || cmd2 != cmd || f.Seq != 1 {
		t.Errorf("resubmit: %q, %v, seq %d", cmd2, err, f.Seq)
	}

	g := makeFence(ac, math.LL(5, 5), math.LL(5, 6), math.LL(6, 6))
	ac.SubmitFence(g)
	if g.Seq != 2 {
		t.Errorf("second fence seq %d, expected 2", g.Seq)
	}
}

func TestFenceReversal(t *testing.T) {
	in := []math.Point2LL{math.LL(37.1, -122.1), math.LL(37.1, -122.0), math.LL(37.2, -122.0), math.LL(37.2, -122.1)}
	ac := NewAircraft(1, math.Point2LL{})
	f := makeFence(ac, in...)

	ccw := math.IsCounterClockwise(in)
	if _, err := ac.SubmitFence(f); err != nil {
		t.Fatal(err)
	}
	got := f.Vertices()
	if ccw {
		if !slices.Equal(got, in) {
			t.Errorf("counter-clockwise fence was reordered: %v", got)
		}
	} else {
		rev := slices.Clone(in)
		slices.Reverse(rev)
		if !slices.Equal(got, rev) {
			t.Errorf("clockwise fence was not reversed: %v", got)
		}
	}
}

func TestReconcileFences(t *testing.T) {
	records := []av.FenceRecord{
		{Seq: 1, Type: av.FenceInclusion, Floor: 0, Roof: 100,
			Vertices: []math.Point2LL{math.LL(1, 1), math.LL(1, 2), math.LL(2, 2)}},
		{Seq: 2, Type: av.FenceExclusion, Floor: 10, Roof: 50,
			Vertices: []math.Point2LL{math.LL(3, 3), math.LL(3, 4), math.LL(4, 4), math.LL(4, 3)}},
		{Seq: 3, Type: av.FenceInclusion},
	}

	summarize := func(ac *Aircraft) []string {
		var s []string
		for _, f := range ac.Fences.All() {
			var b strings.Builder
			b.WriteString(FenceCommand(ac.ID, f.Record()))
			if f.Submitted {
				b.WriteString(" submitted")
			}
			s = append(s, b.String())
		}
		slices.Sort(s)
		return s
	}

	ac := NewAircraft(1, math.Point2LL{})
	u := ac.ReconcileFences(records, false)
	if len(u.Added) != 2 || len(u.Removed) != 0 || !slices.Equal(u.Skipped, []int{2}) {
		t.Errorf("first reconcile: %d added %d removed skipped %v", len(u.Added), len(u.Removed), u.Skipped)
	}
	once := summarize(ac)

	u = ac.ReconcileFences(records, false)
	if len(u.Removed) != 2 {
		t.Errorf("second reconcile removed %d fences, expected 2", len(u.Removed))
	}
	if twice := summarize(ac); !slices.Equal(once, twice) {
		t.Errorf("reconcile not idempotent:\n%v\n%v", once, twice)
	}
	if ac.Fences.Len() != 2 {
		t.Errorf("%d fences, expected 2", ac.Fences.Len())
	}
	for _, f := range ac.Fences.All() {
		if !f.Submitted || f.Seq == 0 {
			t.Errorf("server fence %d: seq %d submitted %v", f.ID, f.Seq, f.Submitted)
		}
	}

	// Fences from a file are drafts that don't replace anything.
	u = ac.ReconcileFences(records[:1], true)
	if len(u.Removed) != 0 || ac.Fences.Len() != 3 {
		t.Errorf("file reconcile: removed %d, now %d fences", len(u.Removed), ac.Fences.Len())
	}
	if d := u.Added[0]; d.Submitted || d.Seq != 0 {
		t.Errorf("file fence: seq %d submitted %v", d.Seq, d.Submitted)
	}
	if u.Added[0].ID != 3 {
		t.Errorf("file fence got id %d, expected 3", u.Added[0].ID)
	}
}

func TestReconcileFencesWithoutSeq(t *testing.T) {
	records := []av.FenceRecord{
		{Seq: 0, Vertices: []math.Point2LL{math.LL(1, 1), math.LL(1, 2), math.LL(2, 2)}},
		{Seq: -1, Vertices: []math.Point2LL{math.LL(3, 3), math.LL(3, 4), math.LL(4, 4)}},
	}

	ac := NewAircraft(1, math.Point2LL{})
	for range 2 {
		u := ac.ReconcileFences(records, false)
		if len(u.Added) != 0 || !slices.Equal(u.Skipped, []int{0, 1}) {
			t.Errorf("added %d skipped %v", len(u.Added), u.Skipped)
		}
	}
	if ac.Fences.Len() != 0 {
		t.Errorf("%d fences, expected none", ac.Fences.Len())
	}

	// The same records from a file are drafts.
	if u := ac.ReconcileFences(records, true); len(u.Added) != 2 || len(u.Skipped) != 0 {
		t.Errorf("file reconcile: added %d skipped %v", len(u.Added), u.Skipped)
	}
}

func TestFenceFailed(t *testing.T) {
	ac := NewAircraft(1, math.Point2LL{})
	f := makeFence(ac, math.LL(1, 1), math.LL(1, 2), math.LL(2, 2))
	ac.SubmitFence(f)

	if _, ok := ac.FenceFailed(9); ok {
		t.Errorf("FenceFailed found unknown seq")
	}
	if got, ok := ac.FenceFailed(1); !ok || got != f || f.Submitted {
		t.Errorf("FenceFailed(1): %v %v submitted %v", got, ok, f.Submitted)
	}
	if f.Seq != 1 {
		t.Errorf("failed fence lost its seq")
	}
}

///////////////////////////////////////////////////////////////////////////
// Fleet

func TestShutdown(t *testing.T) {
	f := newTestFleet(t, Options{})
	ac1 := mustAircraft(t, f, 1, math.LL(10, 20))
	ac2 := mustAircraft(t, f, 2, math.LL(11, 21))
	makeFence(ac1, math.LL(1, 1), math.LL(1, 2), math.LL(2, 2))
	makeFence(ac2, math.LL(1, 1), math.LL(1, 2), math.LL(2, 2))
	ac2.AddWaypoint(av.Waypoint{Position: math.LL(11, 21)})

	if _, err := f.NewAircraft(2, math.Point2LL{}); !errors.Is(err, ErrDuplicateAircraft) {
		t.Errorf("duplicate aircraft: got %v", err)
	}

	removed, err := f.Shutdown(1)
	if err != nil || removed != ac1 {
		t.Fatalf("Shutdown(1): %v %v", removed, err)
	}
	if _, ok := f.Get(1); ok {
		t.Errorf("aircraft 1 still present")
	}
	if got, ok := f.Get(2); !ok || got.Fences.Len() != 1 || len(got.FlightPlan) != 1 {
		t.Errorf("aircraft 2 was disturbed: %v", got)
	}
	if _, err := f.Shutdown(1); !errors.Is(err, ErrUnknownAircraft) {
		t.Errorf("second Shutdown(1): %v", err)
	}

	// Ids are reused.
	if ac, _ := f.NewAircraft(0, math.Point2LL{}); ac.ID != 1 {
		t.Errorf("new aircraft got id %d, expected 1", ac.ID)
	}
}

func TestCheckComms(t *testing.T) {
	f := newTestFleet(t, Options{})
	ac := mustAircraft(t, f, 1, math.LL(10, 20))

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ac.MarkComms(t0)
	ac.UpdateGPS(10, 3)

	if lost := f.CheckComms(t0.Add(9 * time.Second)); len(lost) != 0 {
		t.Errorf("lost comms after 9s: %v", lost)
	}
	if lost := f.CheckComms(t0.Add(10 * time.Second)); !slices.Equal(lost, []int{1}) {
		t.Errorf("CheckComms after 10s = %v", lost)
	}
	if ac.HasComms || ac.GPSValid {
		t.Errorf("after demotion: comms %v gps %v", ac.HasComms, ac.GPSValid)
	}
	if lost := f.CheckComms(t0.Add(20 * time.Second)); len(lost) != 0 {
		t.Errorf("demoted twice: %v", lost)
	}

	ac.MarkComms(t0.Add(21 * time.Second))
	if !ac.HasComms {
		t.Errorf("telemetry did not restore comms")
	}
}

func TestExpireTraffic(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		multi    bool
		age      time.Duration
		onGround bool
		expired  bool
	}{
		{false, 6 * time.Second, false, true},
		{false, 6 * time.Second, true, false},
		{false, time.Hour, true, false},
		{false, 4 * time.Second, false, false},
		{true, 3 * time.Second, false, true},
		{true, time.Second, false, false},
	} {
		f := newTestFleet(t, Options{MultiVehicleSim: tc.multi})
		ac := mustAircraft(t, f, 1, math.Point2LL{})
		f.UpsertTraffic(ac, TrafficReport{ID: 77, Callsign: "N77", OnGround: tc.onGround}, now.Add(-tc.age))

		exp := f.ExpireTraffic(now)
		if tc.expired {
			if len(exp) != 1 || exp[0].Aircraft != 1 || exp[0].Contact.ID != 77 {
				t.Errorf("%+v: expected contact to expire, got %v", tc, exp)
			}
			if ac.Traffic.Len() != 0 {
				t.Errorf("%+v: contact still present", tc)
			}
		} else if len(exp) != 0 || ac.Traffic.Len() != 1 {
			t.Errorf("%+v: contact unexpectedly expired", tc)
		}
	}
}

func TestTrafficCallsignMemory(t *testing.T) {
	f := newTestFleet(t, Options{})
	ac := mustAircraft(t, f, 1, math.Point2LL{})
	now := time.Now()

	tc, added := f.UpsertTraffic(ac, TrafficReport{ID: 5, Callsign: "UAL12", VX: 10, VY: 10}, now)
	if !added {
		t.Errorf("first report not reported as new")
	}
	if h := tc.Heading; h < 44.9 || h > 45.1 {
		t.Errorf("heading %f, expected 45", h)
	}
	if _, added := f.UpsertTraffic(ac, TrafficReport{ID: 5}, now); added {
		t.Errorf("second report reported as new")
	}
	if tc.Callsign != "UAL12" {
		t.Errorf("callsign lost on update: %q", tc.Callsign)
	}

	f.ExpireTraffic(now.Add(time.Minute))
	tc, _ = f.UpsertTraffic(ac, TrafficReport{ID: 5}, now.Add(2*time.Minute))
	if tc.Callsign != "UAL12" {
		t.Errorf("callsign not restored: %q", tc.Callsign)
	}
}

func TestTrafficRelayCommands(t *testing.T) {
	f := newTestFleet(t, Options{})
	a := mustAircraft(t, f, 1, math.LL(10, 20))
	mustAircraft(t, f, 2, math.LL(11, 21))
	a.Alt = 100
	a.VX = 1.5

	if cmds := f.TrafficRelayCommands(); cmds != nil {
		t.Errorf("relay without sim mode: %v", cmds)
	}

	f.SimMode = true
	cmds := f.TrafficRelayCommands()
	expected := []string{
		"AIRCRAFT 2 INPUT_TRAFFIC 1 10 20 100 1.5 0 0",
		"AIRCRAFT 1 INPUT_TRAFFIC 2 11 21 0 0 0 0",
	}
	if !slices.Equal(cmds, expected) {
		t.Errorf("got %v, expected %v", cmds, expected)
	}
}

func TestEvents(t *testing.T) {
	f := newTestFleet(t, Options{})
	// Nothing is recorded without subscribers.
	mustAircraft(t, f, 1, math.Point2LL{})

	sub := f.Events.Subscribe()
	defer sub.Unsubscribe()

	mustAircraft(t, f, 2, math.LL(1, 2))
	f.Shutdown(1)

	ev := sub.Get()
	if len(ev) != 2 {
		t.Fatalf("got %d events, expected 2: %v", len(ev), ev)
	}
	if ev[0].Type != AircraftCreatedEvent || ev[0].Aircraft != 2 {
		t.Errorf("unexpected first event %v", ev[0])
	}
	if ev[1].Type != AircraftRemovedEvent || ev[1].Aircraft != 1 {
		t.Errorf("unexpected second event %v", ev[1])
	}
	if len(sub.Get()) != 0 {
		t.Errorf("events delivered twice")
	}
}

func TestSnapshot(t *testing.T) {
	f := newTestFleet(t, Options{})
	ac := mustAircraft(t, f, 1, math.LL(10, 20))
	makeFence(ac, math.LL(1, 1), math.LL(1, 2), math.LL(2, 2))

	snap := f.Snapshot()
	if len(snap) != 1 || snap[0] == ac {
		t.Fatalf("snapshot did not copy the aircraft")
	}

	ac.Name = "changed"
	ac.Fences.All()[0].AddPoint(math.LL(3, 3))
	if snap[0].Name != "1" {
		t.Errorf("snapshot name changed to %q", snap[0].Name)
	}
	if sf := snap[0].Fences.All(); len(sf) != 1 || len(sf[0].Points) != 3 {
		t.Errorf("snapshot fence changed")
	}
}
