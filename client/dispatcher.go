// client/dispatcher.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

// Sender delivers outbound command strings to the vehicles.
type Sender interface {
	Send(msg string) error
}

// Dispatcher applies inbound messages to the fleet and formats outbound
// commands. It is not safe for concurrent use; the Engine calls it from
// its event loop.
type Dispatcher struct {
	Fleet    *fleet.Fleet
	Velocity float64
	SimType  string
	// Now gives the time used for comms and traffic bookkeeping.
	Now func() time.Time

	sender   Sender
	renderer Renderer
	lg       *log.Logger
}

func NewDispatcher(f *fleet.Fleet, s Sender, r Renderer, lg *log.Logger) *Dispatcher {
	if r == nil {
		r = NullRenderer{}
	}
	return &Dispatcher{
		Fleet:    f,
		Velocity: 1,
		SimType:  "SITL",
		Now:      time.Now,
		sender:   s,
		renderer: r,
		lg:       lg,
	}
}

// Marker returns the renderer marker name for an entity that belongs to
// an aircraft.
func Marker(acID, id int) string {
	return strconv.Itoa(acID) + "/" + strconv.Itoa(id)
}

///////////////////////////////////////////////////////////////////////////
// Outbound

// Send sends a command addressed to the active aircraft.
func (d *Dispatcher) Send(cmd string) {
	target := "None"
	if ac, ok := d.Fleet.Active(); ok {
		target = strconv.Itoa(ac.ID)
	}
	d.SendRaw("AIRCRAFT " + target + " " + cmd)
}

// SendRaw sends a command exactly as given.
func (d *Dispatcher) SendRaw(cmd string) {
	d.lg.Debug("send", slog.String("command", cmd))
	if err := d.sender.Send(cmd); err != nil {
		d.lg.Warnf("%s: send failed: %v", cmd, err)
	}
}

func (d *Dispatcher) sendTo(ac *fleet.Aircraft, cmd string) {
	d.Fleet.Aircraft.SetActive(ac.ID)
	d.Send(cmd)
}

// RelayTraffic tells each simulated vehicle where the others are.
func (d *Dispatcher) RelayTraffic() {
	for _, cmd := range d.Fleet.TrafficRelayCommands() {
		d.SendRaw(cmd)
	}
}

///////////////////////////////////////////////////////////////////////////
// Liveness

// CheckComms demotes aircraft that have gone quiet.
func (d *Dispatcher) CheckComms(now time.Time) {
	for _, id := range d.Fleet.CheckComms(now) {
		if ac, ok := d.Fleet.Get(id); ok {
			d.renderer.UpdatePosition(ac)
			d.renderer.ShowBanner(BannerWarning, fmt.Sprintf("Lost communication with aircraft %s", ac.Name))
		}
	}
}

// ExpireTraffic drops stale traffic and its markers.
func (d *Dispatcher) ExpireTraffic(now time.Time) {
	for _, e := range d.Fleet.ExpireTraffic(now) {
		d.renderer.RemoveMarker(LayerTraffic, Marker(e.Aircraft, e.Contact.ID))
	}
}

///////////////////////////////////////////////////////////////////////////
// Operator actions

func (d *Dispatcher) lookup(acID int) (*fleet.Aircraft, error) {
	ac, ok := d.Fleet.Get(acID)
	if !ok {
		return nil, fmt.Errorf("aircraft %d: %w", acID, fleet.ErrUnknownAircraft)
	}
	return ac, nil
}

// NewAircraft creates an aircraft at pos and asks the simulator to start
// a vehicle for it. If id is 0, the next free id is used.
func (d *Dispatcher) NewAircraft(id int, pos math.Point2LL, name string) (*fleet.Aircraft, error) {
	ac, err := d.Fleet.NewAircraft(id, pos)
	if err != nil {
		return nil, err
	}
	if name != "" {
		ac.Name = name
	}
	d.Fleet.Aircraft.SetActive(ac.ID)

	d.SendRaw(fmt.Sprintf("NEW_AIRCRAFT %d %s %s", ac.ID, util.FormatFloat(pos.Latitude()),
		util.FormatFloat(pos.Longitude())))
	d.renderer.UpdatePosition(ac)
	d.renderer.ActivatePanel(ac, PanelFlightPlan)
	return ac, nil
}

// ShutdownAircraft tells the vehicle to shut down and stops tracking it.
func (d *Dispatcher) ShutdownAircraft(acID int) error {
	if _, err := d.lookup(acID); err != nil {
		return err
	}
	d.SendRaw("SHUTDOWN " + strconv.Itoa(acID))
	return d.removeAircraft(acID)
}

func (d *Dispatcher) removeAircraft(acID int) error {
	ac, err := d.Fleet.Shutdown(acID)
	if err != nil {
		return err
	}

	for _, f := range ac.Fences.All() {
		d.renderer.RemoveMarker(LayerFence, Marker(ac.ID, f.ID))
	}
	for _, tc := range ac.Traffic.All() {
		d.renderer.RemoveMarker(LayerTraffic, Marker(ac.ID, tc.ID))
	}
	d.renderer.RemoveMarker(LayerFlightPlan, strconv.Itoa(ac.ID))
	d.renderer.RemoveMarker(LayerAircraft, strconv.Itoa(ac.ID))
	d.renderer.ActivatePanel(nil, PanelNone)
	d.renderer.ShowBanner(BannerInfo, fmt.Sprintf("Aircraft %s shut down", ac.Name))
	return nil
}

func (d *Dispatcher) SubmitFlightPlan(acID int) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	cmd, err := ac.SubmitFlightPlan(d.Velocity, d.SimType)
	if err != nil {
		return err
	}

	d.Fleet.Aircraft.SetActive(ac.ID)
	d.SendRaw(cmd)
	d.statusChanged(ac)
	d.renderer.ActivatePanel(ac, PanelFlight)
	return nil
}

func (d *Dispatcher) EditFlightPlan(acID int) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	if err := ac.EditFlightPlan(); err != nil {
		return err
	}
	d.statusChanged(ac)
	d.renderer.ActivatePanel(ac, PanelFlightPlan)
	return nil
}

// LoadFlightPlan installs a flight plan read from a file as a draft.
func (d *Dispatcher) LoadFlightPlan(acID int, wps []av.Waypoint) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	if ac.Status == fleet.StatusInFlight {
		return fmt.Errorf("loading a flight plan while %s: %w", ac.Status, fleet.ErrInvalidTransition)
	}
	prev := ac.Status
	ac.ReplaceFlightPlan(wps, true)
	if ac.Status != prev {
		d.statusChanged(ac)
	}
	d.Fleet.Post(fleet.Event{Type: fleet.FlightPlanUpdatedEvent, Aircraft: ac.ID})
	d.renderer.ActivatePanel(ac, PanelFlightPlan)
	return nil
}

// StartFlight asks the vehicle to start its mission; the aircraft is
// considered in flight once the vehicle acknowledges.
func (d *Dispatcher) StartFlight(acID int) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	if ac.Status != fleet.StatusPreFlight {
		return fmt.Errorf("starting flight while %s: %w", ac.Status, fleet.ErrInvalidTransition)
	}
	d.sendTo(ac, "START_MISSION")
	return nil
}

// SubmitFence loads a fence onto the vehicle and then asks for the
// vehicle's fences so that the local copy matches what was accepted.
func (d *Dispatcher) SubmitFence(acID, fenceID int) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	f, ok := ac.Fences.Get(fenceID)
	if !ok {
		return fmt.Errorf("aircraft %d fence %d: %w", acID, fenceID, fleet.ErrUnknownFence)
	}
	cmd, err := ac.SubmitFence(f)
	if err != nil {
		return err
	}

	d.Fleet.Aircraft.SetActive(ac.ID)
	d.SendRaw(cmd)
	d.Send("GET_GEOFENCES")

	d.Fleet.Post(fleet.Event{Type: fleet.FenceSubmittedEvent, Aircraft: ac.ID, Fence: f.ID})
	d.renderer.DrawGeofences(ac)
	return nil
}

// LoadFences adds fences read from a file as drafts.
func (d *Dispatcher) LoadFences(acID int, recs []av.FenceRecord) ([]*fleet.Fence, error) {
	ac, err := d.lookup(acID)
	if err != nil {
		return nil, err
	}
	u := d.reconcile(ac, recs, true)
	return u.Added, nil
}

func (d *Dispatcher) RemoveFence(acID, fenceID int) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	if !ac.RemoveFence(fenceID) {
		return fmt.Errorf("aircraft %d fence %d: %w", acID, fenceID, fleet.ErrUnknownFence)
	}
	d.renderer.RemoveMarker(LayerFence, Marker(ac.ID, fenceID))
	d.renderer.DrawGeofences(ac)
	d.Fleet.Post(fleet.Event{Type: fleet.FenceRemovedEvent, Aircraft: ac.ID, Fence: fenceID})
	return nil
}

func (d *Dispatcher) SetParam(acID int, name string, value float64) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	if strings.ContainsAny(name, " \t\n") || name == "" {
		return fmt.Errorf("%q: invalid parameter name", name)
	}
	d.sendTo(ac, "SET_PARAM "+name+" "+util.FormatFloat(value))
	return nil
}

func (d *Dispatcher) RequestParameters(acID int) error { return d.request(acID, "GET_PARAMETERS") }
func (d *Dispatcher) RequestWaypoints(acID int) error  { return d.request(acID, "GET_WAYPOINTS") }
func (d *Dispatcher) RequestFences(acID int) error     { return d.request(acID, "GET_GEOFENCES") }

func (d *Dispatcher) request(acID int, cmd string) error {
	ac, err := d.lookup(acID)
	if err != nil {
		return err
	}
	d.sendTo(ac, cmd)
	return nil
}

// Playback controls the log player: PLAY, PAUSE, STOP or SEEK <seconds>.
func (d *Dispatcher) Playback(args ...string) {
	d.SendRaw(strings.Join(append([]string{"PLAYBACK"}, args...), " "))
}

func (d *Dispatcher) statusChanged(ac *fleet.Aircraft) {
	d.Fleet.Post(fleet.Event{Type: fleet.StatusChangedEvent, Aircraft: ac.ID, Status: ac.Status,
		Position: ac.Position, Alt: ac.Alt})
	d.renderer.UpdatePosition(ac)
}

///////////////////////////////////////////////////////////////////////////
// Inbound

type telemetryHandler func(d *Dispatcher, ac *fleet.Aircraft, raw []byte) error

var telemetryHandlers = map[string]telemetryHandler{
	"HEARTBEAT":               (*Dispatcher).onHeartbeat,
	"GLOBAL_POSITION_INT":     (*Dispatcher).onGlobalPosition,
	"ATTITUDE":                (*Dispatcher).onAttitude,
	"BATTERY_STATUS":          (*Dispatcher).onBattery,
	"RADIO_QUALITY":           (*Dispatcher).onRadio,
	"GPS_RAW_INT":             (*Dispatcher).onGPS,
	"TRAFFIC":                 (*Dispatcher).onTraffic,
	"ICAROUS_KINEMATIC_BANDS": (*Dispatcher).onBands,
	"COMMAND_ACK":             (*Dispatcher).onCommandAck,
	"COMMAND_LONG":            (*Dispatcher).onCommandLong,
	"STATUSTEXT":              (*Dispatcher).onStatusText,
	"WP":                      (*Dispatcher).onWaypoints,
	"REPLAN":                  (*Dispatcher).onReplan,
	"GF":                      (*Dispatcher).onFences,
	"PARAM_VALUE":             (*Dispatcher).onParamValue,
	"MISSION_CURRENT":         (*Dispatcher).onMissionCurrent,
	"WAYPOINTLOAD":            (*Dispatcher).onWaypointLoad,
	"GEOFENCELOAD":            (*Dispatcher).onGeofenceLoad,
	"STARTFLIGHT":             (*Dispatcher).onStartFlight,
}

// OnMessage applies a single inbound message. Malformed messages and
// messages about aircraft that aren't being tracked are logged and
// dropped.
func (d *Dispatcher) OnMessage(raw []byte) {
	var h header
	if err := util.UnmarshalJSONBytes(raw, &h); err != nil {
		d.lg.Warnf("inbound message: %v", err)
		return
	}

	if h.Name != "" {
		d.onControl(h, raw)
		return
	}
	if h.Type == "" {
		d.lg.Debug("message with neither name nor TYPE", slog.String("message", string(raw)))
		return
	}

	id := int(h.Aircraft)
	ac, ok := d.Fleet.Get(id)
	if !ok {
		if h.Type != "HEARTBEAT" || d.Fleet.FlyByFile || id <= 0 {
			d.lg.Debug("message for unknown aircraft", slog.Int("aircraft", id), slog.String("type", h.Type))
			return
		}
		var err error
		if ac, err = d.Fleet.NewAircraft(id, math.Point2LL{}); err != nil {
			d.lg.Warnf("aircraft %d: %v", id, err)
			return
		}
	}

	ac.MarkComms(d.Now())

	handler, ok := telemetryHandlers[h.Type]
	if !ok {
		d.lg.Debug("unhandled message type", slog.Int("aircraft", id), slog.String("type", h.Type))
		return
	}
	if err := handler(d, ac, raw); err != nil {
		d.lg.Warn("bad message", slog.Int("aircraft", id), slog.String("type", h.Type),
			slog.Any("error", err))
	}
}

func decode[T any](raw []byte) (T, error) {
	var m T
	err := util.UnmarshalJSONBytes(raw, &m)
	return m, err
}

func (d *Dispatcher) onControl(h header, raw []byte) {
	m, err := decode[controlMsg](raw)
	if err != nil {
		d.lg.Warnf("%s: %v", h.Name, err)
		return
	}

	switch {
	case h.Name == "SHUT_DOWN":
		if err := d.removeAircraft(int(h.Aircraft)); err != nil {
			d.lg.Debug("shutdown", slog.Any("error", err))
		}

	case h.Name == "HITL":
		d.renderer.ShowBanner(BannerInfo, m.Info)

	case h.Name == "LOGPLAYER":
		d.Fleet.Playback = fleet.PlaybackState{State: m.State, Time: float64(m.Time)}
		d.Fleet.Post(fleet.Event{Type: fleet.PlaybackEvent, Text: m.State})
		d.renderer.ActivatePanel(nil, PanelPlayback)

	case h.Name == "SAVE" || h.Name == "LOAD":
		d.renderer.ShowBanner(util.Select(bool(m.Fail), BannerError, BannerSuccess), m.Info)

	case strings.HasPrefix(h.Name, "USER_SETTINGS"):
		d.lg.Info("user settings", slog.String("name", h.Name), slog.String("message", string(raw)))
		d.Fleet.Post(fleet.Event{Type: fleet.SettingsEvent, Text: string(raw)})

	default:
		d.lg.Debug("unhandled control message", slog.String("name", h.Name))
	}
}

func (d *Dispatcher) onHeartbeat(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[heartbeatMsg](raw)
	if err != nil {
		return err
	}
	if ac.UpdateHeartbeat(int(m.BaseMode)) {
		d.Fleet.Post(fleet.Event{Type: fleet.FlightModeChangedEvent, Aircraft: ac.ID, Text: ac.FlightMode})
		d.renderer.UpdatePosition(ac)
	}
	if ac.UpdateLanded() {
		d.statusChanged(ac)
		d.renderer.ShowBanner(BannerInfo, fmt.Sprintf("Aircraft %s landed", ac.Name))
	}
	return nil
}

func (d *Dispatcher) onGlobalPosition(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[globalPositionMsg](raw)
	if err != nil {
		return err
	}
	ac.UpdatePosition(m.decode())
	d.renderer.UpdatePosition(ac)
	return nil
}

func (d *Dispatcher) onAttitude(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[attitudeMsg](raw)
	if err != nil {
		return err
	}
	ac.UpdateAttitude(m.decode())
	return nil
}

func (d *Dispatcher) onBattery(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[batteryMsg](raw)
	if err != nil {
		return err
	}
	ac.BatteryRemaining = int(m.Remaining)
	return nil
}

func (d *Dispatcher) onRadio(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[radioMsg](raw)
	if err != nil {
		return err
	}
	ac.RadioPercent, ac.RadioMissing = int(m.Percent), int(m.Missing)
	return nil
}

func (d *Dispatcher) onGPS(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[gpsMsg](raw)
	if err != nil {
		return err
	}
	ac.UpdateGPS(int(m.Satellites), int(m.FixType))
	return nil
}

// Traffic contacts are drawn with their aircraft, so an update redraws
// the aircraft.
func (d *Dispatcher) onTraffic(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[trafficMsg](raw)
	if err != nil {
		return err
	}
	d.Fleet.UpsertTraffic(ac, m.decode(), d.Now())
	d.renderer.UpdatePosition(ac)
	return nil
}

func (d *Dispatcher) onBands(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[bandsMsg](raw)
	if err != nil {
		return err
	}
	ac.Bands = m.decode()
	return nil
}

func (d *Dispatcher) onCommandAck(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[commandAckMsg](raw)
	if err != nil {
		return err
	}
	if m.Result != 0 {
		d.renderer.ShowBanner(BannerWarning, fmt.Sprintf("Aircraft %s rejected command %d (result %d)",
			ac.Name, m.Command, m.Result))
	}
	return nil
}

func (d *Dispatcher) onCommandLong(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[commandLongMsg](raw)
	if err != nil {
		return err
	}
	d.lg.Debug("COMMAND_LONG", slog.Int("aircraft", ac.ID), slog.Int("command", int(m.Command)),
		slog.Float64("param1", float64(m.Param1)), slog.Float64("param2", float64(m.Param2)))
	return nil
}

func (d *Dispatcher) onStatusText(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[statusTextMsg](raw)
	if err != nil {
		return err
	}
	if ac.SetCallsignFromStatusText(m.Text) {
		d.renderer.UpdatePosition(ac)
		return nil
	}
	d.Fleet.Post(fleet.Event{Type: fleet.StatusMessageEvent, Aircraft: ac.ID, Text: m.Text})
	d.renderer.ShowBanner(BannerInfo, ac.Name+": "+m.Text)
	return nil
}

func (d *Dispatcher) onWaypoints(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[waypointsMsg](raw)
	if err != nil {
		return err
	}
	prev := ac.Status
	ac.ReplaceFlightPlan(m.decode(), bool(m.File))
	if ac.Status != prev {
		d.statusChanged(ac)
	}
	d.Fleet.Post(fleet.Event{Type: fleet.FlightPlanUpdatedEvent, Aircraft: ac.ID})
	if m.File {
		d.renderer.ActivatePanel(ac, PanelFlightPlan)
	}
	return nil
}

func (d *Dispatcher) onReplan(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[waypointsMsg](raw)
	if err != nil {
		return err
	}
	ac.SetReplan(m.decode())
	d.renderer.ShowBanner(BannerInfo, fmt.Sprintf("Aircraft %s proposed a new flight plan", ac.Name))
	return nil
}

func (d *Dispatcher) onFences(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[fencesMsg](raw)
	if err != nil {
		return err
	}
	d.reconcile(ac, m.decode(), bool(m.File))
	return nil
}

func (d *Dispatcher) reconcile(ac *fleet.Aircraft, recs []av.FenceRecord, fromFile bool) fleet.FenceUpdate {
	u := ac.ReconcileFences(recs, fromFile)

	for _, i := range u.Skipped {
		d.lg.Warn("skipping fence without vertices or sequence number", slog.Int("aircraft", ac.ID),
			slog.Int("seq", recs[i].Seq), slog.Int("vertices", len(recs[i].Vertices)))
	}
	for _, f := range u.Removed {
		d.renderer.RemoveMarker(LayerFence, Marker(ac.ID, f.ID))
	}
	if fromFile {
		if len(u.Added) > 0 {
			ac.Fences.SetActive(u.Added[0].ID)
			d.renderer.ActivatePanel(ac, PanelFence)
		}
	} else if len(u.Added) > 0 {
		// The vehicle's fences are now authoritative; stop editing.
		ac.Fences.ClearActive()
		d.renderer.ActivatePanel(ac, PanelNone)
	}

	d.Fleet.Post(fleet.Event{Type: fleet.FencesUpdatedEvent, Aircraft: ac.ID})
	d.renderer.DrawGeofences(ac)
	return u
}

func (d *Dispatcher) onParamValue(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[paramValueMsg](raw)
	if err != nil {
		return err
	}
	idx, count := int(m.Index), int(m.Count)
	if idx == 65535 {
		idx = -1
	} else if idx < 0 || idx > 65535 {
		return fmt.Errorf("param_index %d: out of range", idx)
	}
	if count < 0 || count >= 65535 {
		return fmt.Errorf("param_count %d: out of range", count)
	}
	wasComplete := ac.ParametersComplete()
	ac.SetParameter(idx, count, strings.TrimRight(m.ID, "\x00"), float64(m.Value))
	if !wasComplete && ac.ParametersComplete() {
		d.renderer.ShowBanner(BannerSuccess, fmt.Sprintf("Received %d parameters from aircraft %s",
			ac.ParamCount, ac.Name))
	}
	return nil
}

func (d *Dispatcher) onMissionCurrent(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[missionCurrentMsg](raw)
	if err != nil {
		return err
	}
	ac.MissionCurrent = int(m.Seq)
	return nil
}

var errLoadFailed = errors.New("load failed")

func loadSucceeded(info string) (bool, error) {
	switch strings.ToUpper(info) {
	case "SUCCESS":
		return true, nil
	case "FAIL", "FAILED", "TIMEOUT":
		return false, nil
	default:
		return false, fmt.Errorf("%q: unknown INFO: %w", info, errLoadFailed)
	}
}

func (d *Dispatcher) onWaypointLoad(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[loadResultMsg](raw)
	if err != nil {
		return err
	}
	ok, err := loadSucceeded(m.Info)
	if err != nil {
		return err
	}
	if ok {
		d.renderer.ShowBanner(BannerSuccess, fmt.Sprintf("Flight plan loaded on aircraft %s", ac.Name))
		return nil
	}

	ac.FlightPlanFailed()
	d.statusChanged(ac)
	d.renderer.ShowBanner(BannerError, fmt.Sprintf("Aircraft %s: flight plan load %s", ac.Name,
		strings.ToLower(m.Info)))
	d.renderer.ActivatePanel(ac, PanelFlightPlan)
	return nil
}

func (d *Dispatcher) onGeofenceLoad(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[loadResultMsg](raw)
	if err != nil {
		return err
	}
	ok, err := loadSucceeded(m.Info)
	if err != nil {
		return err
	}
	if ok {
		d.renderer.ShowBanner(BannerSuccess, fmt.Sprintf("Geofence %d loaded on aircraft %s", m.Fence, ac.Name))
		return nil
	}

	if f, found := ac.FenceFailed(int(m.Fence)); found {
		ac.Fences.SetActive(f.ID)
		d.renderer.ActivatePanel(ac, PanelFence)
	}
	d.renderer.DrawGeofences(ac)
	d.renderer.ShowBanner(BannerError, fmt.Sprintf("Aircraft %s: geofence %d load %s", ac.Name, m.Fence,
		strings.ToLower(m.Info)))
	return nil
}

func (d *Dispatcher) onStartFlight(ac *fleet.Aircraft, raw []byte) error {
	m, err := decode[loadResultMsg](raw)
	if err != nil {
		return err
	}
	ok, err := loadSucceeded(m.Info)
	if err != nil {
		return err
	}
	if !ok {
		d.renderer.ShowBanner(BannerError, fmt.Sprintf("Aircraft %s: start flight %s", ac.Name,
			strings.ToLower(m.Info)))
		return nil
	}

	if err := ac.StartFlight(); err != nil {
		return err
	}
	d.statusChanged(ac)
	d.renderer.ActivatePanel(ac, PanelFlight)
	return nil
}
