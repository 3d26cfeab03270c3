// client/wire.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/math"
)

// The vehicles report ids and flags inconsistently, sometimes as JSON
// numbers and sometimes as strings; these types accept either.

type wireInt int

func (w *wireInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" || string(b) == "None" {
		*w = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*w = wireInt(f)
	return nil
}

type wireFloat float64

func (w *wireFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*w = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*w = wireFloat(f)
	return nil
}

type wireBool bool

func (w *wireBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(string(bytes.Trim(b, `"`))) {
	case "true", "1", "yes":
		*w = true
	default:
		*w = false
	}
	return nil
}

// header holds the fields used to route an inbound message.
type header struct {
	Name     string  `json:"name"`
	Type     string  `json:"TYPE"`
	Aircraft wireInt `json:"AIRCRAFT"`
}

type controlMsg struct {
	Info  string    `json:"INFO"`
	Fail  wireBool  `json:"FAIL"`
	State string    `json:"STATE"`
	Time  wireFloat `json:"TIME"`
}

type heartbeatMsg struct {
	BaseMode wireInt `json:"base_mode"`
}

type globalPositionMsg struct {
	Lat         wireInt   `json:"lat"`
	Lon         wireInt   `json:"lon"`
	Alt         wireFloat `json:"alt"`
	RelativeAlt wireFloat `json:"relative_alt"`
	VX          wireFloat `json:"vx"`
	VY          wireFloat `json:"vy"`
	VZ          wireFloat `json:"vz"`
	Hdg         wireFloat `json:"hdg"`
}

func (m globalPositionMsg) decode() fleet.GlobalPosition {
	return fleet.GlobalPosition{
		Position: math.DecodeLL(int64(m.Lat), int64(m.Lon)),
		Alt:      float64(m.Alt) * math.AltitudeScale,
		RelAlt:   float64(m.RelativeAlt) * math.AltitudeScale,
		VX:       float64(m.VX) * math.VelocityScale,
		VY:       float64(m.VY) * math.VelocityScale,
		VZ:       float64(m.VZ) * math.VelocityScale,
		Heading:  float64(m.Hdg) * math.HeadingScale,
	}
}

type attitudeMsg struct {
	Roll       wireFloat `json:"roll"`
	Pitch      wireFloat `json:"pitch"`
	Yaw        wireFloat `json:"yaw"`
	RollSpeed  wireFloat `json:"rollspeed"`
	PitchSpeed wireFloat `json:"pitchspeed"`
	YawSpeed   wireFloat `json:"yawspeed"`
}

func (m attitudeMsg) decode() fleet.Attitude {
	return fleet.Attitude{
		Roll:       math.Degrees(float64(m.Roll)),
		Pitch:      math.Degrees(float64(m.Pitch)),
		Yaw:        math.Degrees(float64(m.Yaw)),
		RollSpeed:  math.Degrees(float64(m.RollSpeed)),
		PitchSpeed: math.Degrees(float64(m.PitchSpeed)),
		YawSpeed:   math.Degrees(float64(m.YawSpeed)),
	}
}

type batteryMsg struct {
	Remaining wireInt `json:"battery_remaining"`
}

type radioMsg struct {
	Percent wireInt `json:"percent"`
	Missing wireInt `json:"missing"`
}

type gpsMsg struct {
	Satellites wireInt `json:"satellites_visible"`
	FixType    wireInt `json:"fix_type"`
}

type trafficMsg struct {
	ICAO     wireInt   `json:"ICAO"`
	Lat      wireFloat `json:"lat"`
	Lon      wireFloat `json:"lon"`
	Alt      wireFloat `json:"alt"`
	VX       wireFloat `json:"vx1"`
	VY       wireFloat `json:"vy1"`
	VZ       wireFloat `json:"vz1"`
	Callsign string    `json:"callsign"`
	Source   string    `json:"source"`
	Emitter  wireInt   `json:"emitter"`
	OnGround wireBool  `json:"on_ground"`
}

func (m trafficMsg) decode() fleet.TrafficReport {
	return fleet.TrafficReport{
		ID:          int(m.ICAO),
		Callsign:    strings.TrimSpace(m.Callsign),
		Position:    math.LL(float64(m.Lat), float64(m.Lon)),
		Alt:         float64(m.Alt),
		VX:          float64(m.VX),
		VY:          float64(m.VY),
		VZ:          float64(m.VZ),
		Source:      av.ParseTrafficSource(m.Source),
		EmitterCode: int(m.Emitter),
		OnGround:    bool(m.OnGround),
	}
}

// bandsMsg holds up to five kinematic bands in numbered fields.
type bandsMsg struct {
	NumBands wireInt
	fields   map[string]json.RawMessage
}

func (m *bandsMsg) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &m.fields); err != nil {
		return err
	}
	if raw, ok := m.fields["numBands"]; ok {
		return json.Unmarshal(raw, &m.NumBands)
	}
	return nil
}

func (m bandsMsg) decode() []fleet.Band {
	get := func(key string) float64 {
		var f wireFloat
		if raw, ok := m.fields[key]; ok {
			_ = json.Unmarshal(raw, &f)
		}
		return float64(f)
	}

	var bands []fleet.Band
	for i := 1; i <= min(int(m.NumBands), 5); i++ {
		n := strconv.Itoa(i)
		bands = append(bands, fleet.Band{
			Type: int(get("type" + n)),
			Min:  get("min" + n),
			Max:  get("max" + n),
		})
	}
	return bands
}

type commandAckMsg struct {
	Command wireInt `json:"command"`
	Result  wireInt `json:"result"`
}

type commandLongMsg struct {
	Command wireInt   `json:"command"`
	Param1  wireFloat `json:"param1"`
	Param2  wireFloat `json:"param2"`
	Param3  wireFloat `json:"param3"`
	Param4  wireFloat `json:"param4"`
	Param5  wireFloat `json:"param5"`
	Param6  wireFloat `json:"param6"`
	Param7  wireFloat `json:"param7"`
}

type statusTextMsg struct {
	Text     string  `json:"text"`
	Severity wireInt `json:"severity"`
}

type wireWaypoint struct {
	Lat wireFloat `json:"lat"`
	Lng wireFloat `json:"lng"`
	Alt wireFloat `json:"alt"`
}

type waypointsMsg struct {
	List []wireWaypoint `json:"LIST"`
	File wireBool       `json:"FILE"`
}

func (m waypointsMsg) decode() []av.Waypoint {
	wps := make([]av.Waypoint, 0, len(m.List))
	for _, w := range m.List {
		wps = append(wps, av.Waypoint{Position: math.LL(float64(w.Lat), float64(w.Lng)), Alt: float64(w.Alt)})
	}
	return wps
}

type wireVertex struct {
	Lat wireFloat `json:"lat"`
	Lng wireFloat `json:"lng"`
}

type wireFence struct {
	ID       wireInt      `json:"id"`
	Type     wireInt      `json:"type"`
	Floor    wireFloat    `json:"floor"`
	Roof     wireFloat    `json:"roof"`
	Vertices []wireVertex `json:"vertices"`
}

type fencesMsg struct {
	List []wireFence `json:"LIST"`
	File wireBool    `json:"FILE"`
}

func (m fencesMsg) decode() []av.FenceRecord {
	recs := make([]av.FenceRecord, 0, len(m.List))
	for _, f := range m.List {
		r := av.FenceRecord{
			Seq:   int(f.ID),
			Type:  av.FenceType(f.Type),
			Floor: float64(f.Floor),
			Roof:  float64(f.Roof),
		}
		for _, v := range f.Vertices {
			r.Vertices = append(r.Vertices, math.LL(float64(v.Lat), float64(v.Lng)))
		}
		recs = append(recs, r)
	}
	return recs
}

type paramValueMsg struct {
	ID    string    `json:"param_id"`
	Value wireFloat `json:"param_value"`
	Index wireInt   `json:"param_index"`
	Count wireInt   `json:"param_count"`
}

type missionCurrentMsg struct {
	Seq wireInt `json:"seq"`
}

type loadResultMsg struct {
	Info  string  `json:"INFO"`
	Fence wireInt `json:"F_ID"`
}
