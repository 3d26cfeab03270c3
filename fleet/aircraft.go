// fleet/aircraft.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

// Status is where an aircraft is in its planning/flight lifecycle.
type Status int

const (
	StatusPlanning Status = iota
	StatusPreFlight
	StatusInFlight
	StatusPostFlight
)

func (s Status) String() string {
	switch s {
	case StatusPlanning:
		return "PLANNING"
	case StatusPreFlight:
		return "PRE-FLIGHT"
	case StatusInFlight:
		return "IN-FLIGHT"
	case StatusPostFlight:
		return "POST-FLIGHT"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Status) Valid() bool {
	return s >= StatusPlanning && s <= StatusPostFlight
}

// Parameter is a single vehicle parameter as reported by PARAM_VALUE.
type Parameter struct {
	Name  string
	Value float64
	Set   bool
}

// Band is one of the kinematic conflict bands reported by the vehicle's
// detect-and-avoid logic.
type Band struct {
	Type int
	Min  float64
	Max  float64
}

type Aircraft struct {
	ID   int
	Name string

	Position          math.Point2LL
	Alt               float64 // m MSL
	RelAlt            float64 // m above home
	VX, VY, VZ        float64 // m/s, NED
	Heading           float64 // degrees
	Roll, Pitch, Yaw  float64 // degrees
	RollSpeed         float64 // degrees/s
	PitchSpeed        float64
	YawSpeed          float64
	BatteryRemaining  int // percent, -1 if unknown
	RadioPercent      int
	RadioMissing      int
	SatellitesVisible int
	GPSFixType        int
	GPSValid          bool

	Status         Status
	BaseMode       int
	FlightMode     string
	HasComms       bool
	CommsLast      time.Time
	MissionCurrent int

	FlightPlan []av.Waypoint
	Replan     []av.Waypoint
	// Parameters is indexed by the vehicle's parameter index; entries
	// that haven't been reported yet have Set == false.
	Parameters []Parameter
	ParamCount int
	Bands      []Band

	Fences  Registry[*Fence]
	Traffic Registry[*TrafficContact]
}

func NewAircraft(id int, pos math.Point2LL) *Aircraft {
	return &Aircraft{
		ID:               id,
		Name:             strconv.Itoa(id),
		Position:         pos,
		BatteryRemaining: -1,
		Status:           StatusPlanning,
		FlightMode:       av.DecodeFlightMode(0),
	}
}

func (ac *Aircraft) EntityID() int      { return ac.ID }
func (ac *Aircraft) EntityName() string { return ac.Name }

func (ac *Aircraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", ac.ID),
		slog.String("name", ac.Name),
		slog.String("status", ac.Status.String()),
		slog.String("mode", ac.FlightMode),
		slog.Bool("comms", ac.HasComms),
		slog.String("position", ac.Position.DDString()),
		slog.Int("waypoints", len(ac.FlightPlan)),
		slog.Int("fences", ac.Fences.Len()),
		slog.Int("traffic", ac.Traffic.Len()))
}

///////////////////////////////////////////////////////////////////////////
// Telemetry

// MarkComms records that the vehicle was just heard from. Only the
// liveness check clears HasComms.
func (ac *Aircraft) MarkComms(now time.Time) {
	ac.HasComms = true
	ac.CommsLast = now
}

// GlobalPosition is a decoded GLOBAL_POSITION_INT report.
type GlobalPosition struct {
	Position   math.Point2LL
	Alt        float64
	RelAlt     float64
	VX, VY, VZ float64
	Heading    float64
}

func (ac *Aircraft) UpdatePosition(gp GlobalPosition) {
	ac.Position = gp.Position
	ac.Alt = gp.Alt
	ac.RelAlt = gp.RelAlt
	ac.VX, ac.VY, ac.VZ = gp.VX, gp.VY, gp.VZ
	ac.Heading = gp.Heading
}

// Attitude is a decoded ATTITUDE report; angles are in degrees.
type Attitude struct {
	Roll, Pitch, Yaw                 float64
	RollSpeed, PitchSpeed, YawSpeed float64
}

func (ac *Aircraft) UpdateAttitude(a Attitude) {
	ac.Roll, ac.Pitch, ac.Yaw = a.Roll, a.Pitch, a.Yaw
	ac.RollSpeed, ac.PitchSpeed, ac.YawSpeed = a.RollSpeed, a.PitchSpeed, a.YawSpeed
}

// UpdateHeartbeat decodes the flight mode from a HEARTBEAT base_mode and
// reports whether it changed.
func (ac *Aircraft) UpdateHeartbeat(baseMode int) bool {
	mode := av.DecodeFlightMode(baseMode)
	changed := mode != ac.FlightMode
	ac.BaseMode = baseMode
	ac.FlightMode = mode
	return changed
}

func (ac *Aircraft) UpdateGPS(satellites, fixType int) {
	ac.SatellitesVisible = satellites
	ac.GPSFixType = fixType
	ac.GPSValid = fixType >= 2
}

var callsignRE = regexp.MustCompile(`(?i)^\s*callsign\s*[: ]\s*([A-Za-z0-9_\-]+)\s*$`)

// SetCallsignFromStatusText takes the aircraft's name from STATUSTEXT
// messages of the form "CALLSIGN:FOO" or "callsign FOO"; it reports
// whether the text held a callsign.
func (ac *Aircraft) SetCallsignFromStatusText(text string) bool {
	m := callsignRE.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	ac.Name = m[1]
	return true
}

// SetParameter records a PARAM_VALUE report. The parameter index may
// arrive in any order; the slice grows as needed.
func (ac *Aircraft) SetParameter(index, count int, name string, value float64) {
	if count > 0 {
		ac.ParamCount = count
	}
	if index < 0 {
		// Replies to a by-name set carry index -1 (65535 as uint16).
		for i, p := range ac.Parameters {
			if p.Set && p.Name == name {
				ac.Parameters[i].Value = value
				return
			}
		}
		return
	}
	if index >= len(ac.Parameters) {
		ac.Parameters = append(ac.Parameters, make([]Parameter, index+1-len(ac.Parameters))...)
	}
	ac.Parameters[index] = Parameter{Name: name, Value: value, Set: true}
}

// ParametersComplete reports whether every parameter the vehicle
// advertised has been received.
func (ac *Aircraft) ParametersComplete() bool {
	if ac.ParamCount == 0 || len(ac.Parameters) < ac.ParamCount {
		return false
	}
	for _, p := range ac.Parameters[:ac.ParamCount] {
		if !p.Set {
			return false
		}
	}
	return true
}

func (ac *Aircraft) Parameter(name string) (float64, bool) {
	for _, p := range ac.Parameters {
		if p.Set && p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

// MissingParameters returns the indices of advertised parameters that
// haven't been received.
func (ac *Aircraft) MissingParameters() []int {
	var missing []int
	for i := range ac.ParamCount {
		if i >= len(ac.Parameters) || !ac.Parameters[i].Set {
			missing = append(missing, i)
		}
	}
	return missing
}

///////////////////////////////////////////////////////////////////////////
// Flight plan state machine

func (ac *Aircraft) transition(from, to Status) error {
	if ac.Status != from {
		return fmt.Errorf("%s -> %s from %s: %w", from, to, ac.Status, ErrInvalidTransition)
	}
	ac.Status = to
	return nil
}

// AddWaypoint appends a waypoint to the flight plan. Editing a plan that
// has been submitted but not flown sends the aircraft back to planning;
// once the aircraft is flying the plan can only be replaced by the
// vehicle.
func (ac *Aircraft) AddWaypoint(wp av.Waypoint) error {
	if err := ac.prepareEdit(); err != nil {
		return err
	}
	ac.FlightPlan = append(ac.FlightPlan, wp)
	return nil
}

func (ac *Aircraft) RemoveWaypoint(index int) error {
	if index < 0 || index >= len(ac.FlightPlan) {
		return fmt.Errorf("waypoint %d: out of range", index)
	}
	if err := ac.prepareEdit(); err != nil {
		return err
	}
	ac.FlightPlan = append(ac.FlightPlan[:index:index], ac.FlightPlan[index+1:]...)
	return nil
}

func (ac *Aircraft) prepareEdit() error {
	switch ac.Status {
	case StatusPlanning, StatusPostFlight:
		return nil
	case StatusPreFlight:
		return ac.EditFlightPlan()
	default:
		return fmt.Errorf("editing flight plan while %s: %w", ac.Status, ErrInvalidTransition)
	}
}

// SubmitFlightPlan moves a planning aircraft to pre-flight and returns
// the command that loads its plan onto the vehicle.
func (ac *Aircraft) SubmitFlightPlan(vel float64, simType string) (string, error) {
	if len(ac.FlightPlan) == 0 {
		return "", ErrEmptyFlightPlan
	}
	if err := ac.transition(StatusPlanning, StatusPreFlight); err != nil {
		return "", err
	}
	return FlightPlanCommand(ac.ID, vel, simType, ac.FlightPlan), nil
}

// FlightPlanCommand formats the LOAD_FLIGHT_PLAN command.
func FlightPlanCommand(id int, vel float64, simType string, wps []av.Waypoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOAD_FLIGHT_PLAN AC_ID %d VEL %s %s WP", id, util.FormatFloat(vel), simType)
	for _, wp := range wps {
		b.WriteString(" " + util.FormatFloat(wp.Position.Latitude()) + " " +
			util.FormatFloat(wp.Position.Longitude()) + " " + util.FormatFloat(wp.Alt))
	}
	return b.String()
}

func (ac *Aircraft) StartFlight() error {
	return ac.transition(StatusPreFlight, StatusInFlight)
}

func (ac *Aircraft) StopFlight() error {
	return ac.transition(StatusInFlight, StatusPostFlight)
}

// UpdateLanded ends the flight of an airborne aircraft whose vehicle has
// disarmed; it reports whether the status changed.
func (ac *Aircraft) UpdateLanded() bool {
	if ac.Status != StatusInFlight || ac.BaseMode == 0 || av.IsArmed(ac.BaseMode) {
		return false
	}
	return ac.StopFlight() == nil
}

// EditFlightPlan withdraws a submitted plan. The waypoints are kept.
func (ac *Aircraft) EditFlightPlan() error {
	return ac.transition(StatusPreFlight, StatusPlanning)
}

// FlightPlanFailed is called when the vehicle reports that loading the
// plan failed.
func (ac *Aircraft) FlightPlanFailed() {
	if ac.Status == StatusPreFlight {
		ac.Status = StatusPlanning
	}
}

// ReplaceFlightPlan installs a complete plan reported by the vehicle or
// read from a file.
func (ac *Aircraft) ReplaceFlightPlan(wps []av.Waypoint, fromFile bool) {
	ac.FlightPlan = wps
	if fromFile {
		ac.Status = StatusPlanning
	} else if len(wps) > 1 {
		ac.Status = StatusPreFlight
	} else {
		ac.Status = StatusPlanning
	}
}

func (ac *Aircraft) SetReplan(wps []av.Waypoint) {
	ac.Replan = wps
}

// AcceptReplan makes the vehicle-proposed plan the current one.
func (ac *Aircraft) AcceptReplan() bool {
	if len(ac.Replan) == 0 {
		return false
	}
	ac.FlightPlan, ac.Replan = ac.Replan, nil
	return true
}
