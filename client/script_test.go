// client/script_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
)

func TestParseScript(t *testing.T) {
	cmds, err := ParseScript(strings.NewReader(`
# demo flight
aircraft 37.1 -76.38 ALPHA
FLIGHTPLAN plan.waypoints

PARAM RTL_ALT 1500
WAIT 2.5
SEND GET_PARAMETERS
`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}

	expected := []ScriptCommand{
		{Line: 3, Verb: "AIRCRAFT", Args: []string{"37.1", "-76.38", "ALPHA"}},
		{Line: 4, Verb: "FLIGHTPLAN", Args: []string{"plan.waypoints"}},
		{Line: 6, Verb: "PARAM", Args: []string{"RTL_ALT", "1500"}},
		{Line: 7, Verb: "WAIT", Args: []string{"2.5"}},
		{Line: 8, Verb: "SEND", Args: []string{"GET_PARAMETERS"}},
	}
	if len(cmds) != len(expected) {
		t.Fatalf("got %d commands, expected %d: %v", len(cmds), len(expected), cmds)
	}
	for i := range cmds {
		if cmds[i].Line != expected[i].Line || cmds[i].Verb != expected[i].Verb ||
			!slices.Equal(cmds[i].Args, expected[i].Args) {
			t.Errorf("command %d: got %+v, expected %+v", i, cmds[i], expected[i])
		}
	}
	if cmds[0].String() != "AIRCRAFT 37.1 -76.38 ALPHA" {
		t.Errorf("String() = %q", cmds[0].String())
	}
}

func TestParseScriptErrors(t *testing.T) {
	_, err := ParseScript(strings.NewReader("AIRCRAFT 1 2\n" +
		"fly away\n" +
		"AIRCRAFT north 2\n" +
		"PARAM RTL_ALT high\n" +
		"WAIT -1\n" +
		"START now\n"))
	if err == nil {
		t.Fatalf("expected errors")
	}

	for _, want := range []string{
		"line 2: fly: unknown command",
		"line 3: north 2: invalid position",
		"line 4: high: invalid parameter value",
		"line 5: -1: invalid wait",
		"line 6: START: wrong number of arguments (1)",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %q", want, err.Error())
		}
	}
	if strings.Contains(err.Error(), "line 1") {
		t.Errorf("valid line reported: %q", err.Error())
	}
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

const scriptWaypoints = "QGC WPL 110\n" +
	"0\t1\t0\t16\t0\t0\t0\t0\t37.1\t-76.38\t0\t1\n" +
	"1\t0\t3\t16\t0\t0\t0\t0\t37.102\t-76.382\t50\t1\n"

const scriptFence = `<geofences>
  <fence>
    <type>0</type><num_vertices>3</num_vertices><floor>0</floor><roof>100</roof>
    <vertex><lat>2</lat><lon>2</lon></vertex>
    <vertex><lat>1</lat><lon>2</lon></vertex>
    <vertex><lat>1</lat><lon>1</lon></vertex>
  </fence>
</geofences>
`

func TestScriptRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plan.waypoints", scriptWaypoints)
	writeFile(t, dir, "fence.xml", scriptFence)
	writeFile(t, dir, "demo.script", "AIRCRAFT 37.1 -76.38 ALPHA\n"+
		"FLIGHTPLAN plan.waypoints\n"+
		"GEOFENCE fence.xml\n"+
		"PARAM RTL_ALT 1500\n"+
		"SUBMIT\n"+
		"WAIT 5\n"+
		"START\n")

	td := newTestDispatcher(t, fleet.Options{FlyByFile: true})
	s, err := LoadScript(filepath.Join(dir, "demo.script"), td.Dispatcher, log.Discard())
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if s.State() != ScriptReady {
		t.Errorf("state %s", s.State())
	}

	start := td.now
	s.Step(start)
	if !s.Waiting() || s.Cursor() != 6 {
		t.Fatalf("state %s cursor %d err %v", s.State(), s.Cursor(), s.Err())
	}
	if deadline, ok := s.Deadline(); !ok || !deadline.Equal(start.Add(5*time.Second)) {
		t.Errorf("deadline %v %v", deadline, ok)
	}

	ac, ok := td.Fleet.Get(1)
	if !ok {
		t.Fatalf("script did not create an aircraft")
	}
	if ac.Name != "ALPHA" || ac.Status != fleet.StatusPreFlight || len(ac.FlightPlan) != 2 {
		t.Errorf("aircraft %s status %s, %d waypoints", ac.Name, ac.Status, len(ac.FlightPlan))
	}
	if ac.Fences.Len() != 1 || !ac.Fences.All()[0].Submitted {
		t.Errorf("fence not submitted")
	}

	expected := []string{
		"NEW_AIRCRAFT 1 37.1 -76.38",
		"AIRCRAFT 1 SET_PARAM RTL_ALT 1500",
		"LOAD_GEOFENCE AC_ID 1 F_ID 1 TYPE 0 FLOOR 0 ROOF 100 2 2 1 2 1 1",
		"AIRCRAFT 1 GET_GEOFENCES",
		"LOAD_FLIGHT_PLAN AC_ID 1 VEL 1 SITL WP 37.1 -76.38 0 37.102 -76.382 50",
	}
	if !slices.Equal(td.sender.sent, expected) {
		t.Errorf("sent %q\nexpected %q", td.sender.sent, expected)
	}

	td.sender.reset()
	s.Step(start.Add(time.Second))
	if !s.Waiting() || len(td.sender.sent) != 0 {
		t.Errorf("script ran before its wait finished")
	}

	s.Step(start.Add(5 * time.Second))
	if s.State() != ScriptFinished || !s.Done() {
		t.Errorf("state %s err %v", s.State(), s.Err())
	}
	if !slices.Equal(td.sender.sent, []string{"AIRCRAFT 1 START_MISSION"}) {
		t.Errorf("sent %q", td.sender.sent)
	}
}

func TestScriptFailure(t *testing.T) {
	for _, tc := range []struct {
		name, script, want string
	}{
		{"no aircraft", "START\n", "line 1: START: no aircraft has been created"},
		{"missing file", "AIRCRAFT 1 2\nFLIGHTPLAN missing.waypoints\n", "line 2: FLIGHTPLAN missing.waypoints"},
		{"empty plan", "AIRCRAFT 1 2\nSUBMIT\n", "line 2: SUBMIT"},
		{"after shutdown", "AIRCRAFT 1 2\nSHUTDOWN\nSTART\n", "line 3: START: no aircraft"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cmds, err := ParseScript(strings.NewReader(tc.script))
			if err != nil {
				t.Fatalf("ParseScript: %v", err)
			}
			td := newTestDispatcher(t, fleet.Options{})
			s := NewScriptRunner(cmds, t.TempDir(), td.Dispatcher, log.Discard())

			s.Step(td.now)
			if s.State() != ScriptFailed || s.Err() == nil {
				t.Fatalf("state %s err %v", s.State(), s.Err())
			}
			if !strings.HasPrefix(s.Err().Error(), tc.want) {
				t.Errorf("error %q, expected prefix %q", s.Err(), tc.want)
			}
			if !td.renderer.has("banner error line") {
				t.Errorf("failure not shown: %v", td.renderer.calls)
			}

			// Further steps do nothing.
			td.sender.reset()
			s.Step(td.now.Add(time.Hour))
			if len(td.sender.sent) != 0 {
				t.Errorf("failed script sent %v", td.sender.sent)
			}
		})
	}
}

func TestScriptStop(t *testing.T) {
	cmds, err := ParseScript(strings.NewReader("WAIT 10\nRAW PLAYBACK PLAY\n"))
	if err != nil {
		t.Fatal(err)
	}
	td := newTestDispatcher(t, fleet.Options{})
	s := NewScriptRunner(cmds, "", td.Dispatcher, log.Discard())

	s.Step(td.now)
	if !s.Waiting() {
		t.Fatalf("state %s", s.State())
	}
	s.Stop()
	s.Step(td.now.Add(time.Minute))
	if s.State() != ScriptStopped || len(td.sender.sent) != 0 {
		t.Errorf("state %s sent %v", s.State(), td.sender.sent)
	}
}
