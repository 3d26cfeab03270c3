// client/script.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

// ScriptCommand is one line of a fly-by-file script.
type ScriptCommand struct {
	Line int
	Verb string
	Args []string
}

func (c ScriptCommand) String() string {
	return strings.Join(append([]string{c.Verb}, c.Args...), " ")
}

// scriptVerbs gives the minimum and maximum number of arguments for each
// command; -1 means no limit.
var scriptVerbs = map[string][2]int{
	"AIRCRAFT":   {2, 3},
	"FLIGHTPLAN": {1, 1},
	"GEOFENCE":   {1, 1},
	"PARAM":      {2, 2},
	"SUBMIT":     {0, 0},
	"START":      {0, 0},
	"WAIT":       {1, 1},
	"SEND":       {1, -1},
	"RAW":        {1, -1},
	"SHUTDOWN":   {0, 0},
}

// ParseScript reads a script: one command per line, with blank lines and
// lines starting with # ignored. All problems in the script are reported
// together.
func ParseScript(r io.Reader) ([]ScriptCommand, error) {
	var e util.ErrorLogger
	var cmds []ScriptCommand

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		f := strings.Fields(text)
		cmd := ScriptCommand{Line: line, Verb: strings.ToUpper(f[0]), Args: f[1:]}

		e.Push("line " + strconv.Itoa(line))
		if n, ok := scriptVerbs[cmd.Verb]; !ok {
			e.ErrorString("%s: unknown command", f[0])
		} else if len(cmd.Args) < n[0] || (n[1] >= 0 && len(cmd.Args) > n[1]) {
			e.ErrorString("%s: wrong number of arguments (%d)", cmd.Verb, len(cmd.Args))
		} else {
			switch cmd.Verb {
			case "AIRCRAFT":
				if !isNumber(cmd.Args[0]) || !isNumber(cmd.Args[1]) {
					e.ErrorString("%s %s: invalid position", cmd.Args[0], cmd.Args[1])
				}
			case "PARAM":
				if !isNumber(cmd.Args[1]) {
					e.ErrorString("%s: invalid parameter value", cmd.Args[1])
				}
			case "WAIT":
				if s, err := util.Atof(cmd.Args[0]); err != nil || s < 0 {
					e.ErrorString("%s: invalid wait", cmd.Args[0])
				}
			}
			cmds = append(cmds, cmd)
		}
		e.Pop()
	}
	if err := sc.Err(); err != nil {
		e.Error(err)
	}

	if e.HaveErrors() {
		return nil, e.Err()
	}
	return cmds, nil
}

func isNumber(s string) bool {
	_, err := util.Atof(s)
	return err == nil
}

// atof parses arguments that ParseScript has already validated.
func atof(s string) float64 {
	v, _ := util.Atof(s)
	return v
}

type ScriptState int

const (
	ScriptReady ScriptState = iota
	ScriptRunning
	ScriptWaiting
	ScriptFinished
	ScriptStopped
	ScriptFailed
)

func (s ScriptState) String() string {
	return [...]string{"ready", "running", "waiting", "finished", "stopped", "failed"}[s]
}

// ScriptRunner executes a script against a Dispatcher. Commands run in
// order until a WAIT; the runner then stays in the waiting state until
// Step is called at or after the wait's deadline.
type ScriptRunner struct {
	cmds      []ScriptCommand
	cursor    int
	state     ScriptState
	waitUntil time.Time
	err       error

	// acID is the aircraft created by the most recent AIRCRAFT command.
	acID int
	dir  string
	d    *Dispatcher
	lg   *log.Logger
}

// NewScriptRunner returns a runner for cmds; relative file names in the
// script are resolved with respect to dir.
func NewScriptRunner(cmds []ScriptCommand, dir string, d *Dispatcher, lg *log.Logger) *ScriptRunner {
	return &ScriptRunner{cmds: cmds, dir: dir, d: d, lg: lg}
}

// LoadScript parses the script file at path.
func LoadScript(path string, d *Dispatcher, lg *log.Logger) (*ScriptRunner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cmds, err := ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewScriptRunner(cmds, filepath.Dir(path), d, lg), nil
}

func (s *ScriptRunner) State() ScriptState { return s.state }
func (s *ScriptRunner) Cursor() int        { return s.cursor }
func (s *ScriptRunner) Err() error         { return s.err }
func (s *ScriptRunner) Waiting() bool      { return s.state == ScriptWaiting }

func (s *ScriptRunner) Done() bool {
	return s.state == ScriptFinished || s.state == ScriptStopped || s.state == ScriptFailed
}

// Deadline returns when the runner next needs Step to be called, if it is
// waiting.
func (s *ScriptRunner) Deadline() (time.Time, bool) {
	return s.waitUntil, s.state == ScriptWaiting
}

// Stop halts the script. Commands that have already been sent are not
// undone.
func (s *ScriptRunner) Stop() {
	if !s.Done() {
		s.state = ScriptStopped
		s.lg.Info("script stopped", slog.Int("cursor", s.cursor))
	}
}

// Step runs commands until the script waits, ends, or fails.
func (s *ScriptRunner) Step(now time.Time) {
	if s.Done() {
		return
	}
	if s.state == ScriptWaiting {
		if now.Before(s.waitUntil) {
			return
		}
		s.waitUntil = time.Time{}
	}
	s.state = ScriptRunning

	for s.cursor < len(s.cmds) {
		cmd := s.cmds[s.cursor]
		s.cursor++

		wait, err := s.exec(cmd)
		if err != nil {
			s.err = fmt.Errorf("line %d: %s: %w", cmd.Line, cmd, err)
			s.state = ScriptFailed
			s.lg.Error("script failed", slog.Any("error", s.err))
			s.d.renderer.ShowBanner(BannerError, s.err.Error())
			return
		}
		if wait > 0 {
			s.waitUntil = now.Add(wait)
			s.state = ScriptWaiting
			return
		}
	}
	s.state = ScriptFinished
	s.lg.Info("script finished")
}

func (s *ScriptRunner) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *ScriptRunner) exec(cmd ScriptCommand) (time.Duration, error) {
	s.lg.Debug("script", slog.Int("line", cmd.Line), slog.String("command", cmd.String()))

	if cmd.Verb != "AIRCRAFT" && cmd.Verb != "SEND" && cmd.Verb != "RAW" && cmd.Verb != "WAIT" && s.acID == 0 {
		return 0, fmt.Errorf("no aircraft has been created")
	}

	switch cmd.Verb {
	case "AIRCRAFT":
		name := ""
		if len(cmd.Args) > 2 {
			name = cmd.Args[2]
		}
		pos := math.LL(atof(cmd.Args[0]), atof(cmd.Args[1]))
		ac, err := s.d.NewAircraft(0, pos, name)
		if err != nil {
			return 0, err
		}
		s.acID = ac.ID

	case "FLIGHTPLAN":
		f, err := os.Open(s.path(cmd.Args[0]))
		if err != nil {
			return 0, err
		}
		defer f.Close()

		wps, err := av.ParseWaypoints(f)
		if err != nil {
			return 0, err
		}
		return 0, s.d.LoadFlightPlan(s.acID, wps)

	case "GEOFENCE":
		f, err := os.Open(s.path(cmd.Args[0]))
		if err != nil {
			return 0, err
		}
		defer f.Close()

		recs, err := av.ParseGeofenceXML(f)
		if err != nil {
			return 0, err
		}
		_, err = s.d.LoadFences(s.acID, recs)
		return 0, err

	case "PARAM":
		return 0, s.d.SetParam(s.acID, cmd.Args[0], atof(cmd.Args[1]))

	case "SUBMIT":
		ac, err := s.d.lookup(s.acID)
		if err != nil {
			return 0, err
		}
		for _, f := range ac.Fences.All() {
			if !f.Submitted {
				if err := s.d.SubmitFence(ac.ID, f.ID); err != nil {
					return 0, err
				}
			}
		}
		return 0, s.d.SubmitFlightPlan(ac.ID)

	case "START":
		return 0, s.d.StartFlight(s.acID)

	case "WAIT":
		secs := atof(cmd.Args[0])
		return time.Duration(secs * float64(time.Second)), nil

	case "SEND":
		s.d.Send(strings.Join(cmd.Args, " "))

	case "RAW":
		s.d.SendRaw(strings.Join(cmd.Args, " "))

	case "SHUTDOWN":
		err := s.d.ShutdownAircraft(s.acID)
		s.acID = 0
		return 0, err

	default:
		return 0, fmt.Errorf("%s: unknown command", cmd.Verb)
	}
	return 0, nil
}
