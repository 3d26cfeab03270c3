// client/renderer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"log/slog"

	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
)

type BannerLevel int

const (
	BannerInfo BannerLevel = iota
	BannerSuccess
	BannerWarning
	BannerError
)

func (b BannerLevel) String() string {
	return [...]string{"info", "success", "warning", "error"}[b]
}

// Marker layers used with Renderer.RemoveMarker.
const (
	LayerAircraft   = "aircraft"
	LayerFence      = "fence"
	LayerTraffic    = "traffic"
	LayerFlightPlan = "flightplan"
)

// Panels used with Renderer.ActivatePanel.
const (
	PanelFlightPlan = "flightplan"
	PanelFence      = "fence"
	PanelFlight     = "flight"
	PanelPlayback   = "playback"
	PanelNone       = ""
)

// Renderer is how the client tells whatever is presenting the fleet that
// something changed. It is called from the client's event loop after the
// fleet state has been updated and must not block.
type Renderer interface {
	DrawGeofences(ac *fleet.Aircraft)
	UpdatePosition(ac *fleet.Aircraft)
	RemoveMarker(layer, marker string)
	ShowBanner(level BannerLevel, text string)
	ActivatePanel(ac *fleet.Aircraft, panel string)
}

type NullRenderer struct{}

func (NullRenderer) DrawGeofences(*fleet.Aircraft)         {}
func (NullRenderer) UpdatePosition(*fleet.Aircraft)        {}
func (NullRenderer) RemoveMarker(string, string)           {}
func (NullRenderer) ShowBanner(BannerLevel, string)        {}
func (NullRenderer) ActivatePanel(*fleet.Aircraft, string) {}

// LogRenderer writes renderer notifications to the log; it is used when
// running headless.
type LogRenderer struct {
	lg *log.Logger
}

func NewLogRenderer(lg *log.Logger) *LogRenderer {
	return &LogRenderer{lg: lg}
}

func (r *LogRenderer) DrawGeofences(ac *fleet.Aircraft) {
	r.lg.Debug("draw geofences", slog.Int("aircraft", ac.ID), slog.Int("fences", ac.Fences.Len()))
}

func (r *LogRenderer) UpdatePosition(ac *fleet.Aircraft) {
	r.lg.Debug("position", slog.Int("aircraft", ac.ID), slog.String("position", ac.Position.DDString()),
		slog.Float64("alt", ac.Alt))
}

func (r *LogRenderer) RemoveMarker(layer, marker string) {
	r.lg.Debug("remove marker", slog.String("layer", layer), slog.String("marker", marker))
}

func (r *LogRenderer) ShowBanner(level BannerLevel, text string) {
	switch level {
	case BannerError:
		r.lg.Error(text)
	case BannerWarning:
		r.lg.Warn(text)
	default:
		r.lg.Info(text, slog.String("level", level.String()))
	}
}

func (r *LogRenderer) ActivatePanel(ac *fleet.Aircraft, panel string) {
	if ac == nil {
		r.lg.Debug("panel", slog.String("panel", panel))
	} else {
		r.lg.Debug("panel", slog.Int("aircraft", ac.ID), slog.String("panel", panel))
	}
}

// EventRenderer turns position updates and banners into fleet events so
// that subscribers such as the track store see them.
type EventRenderer struct {
	Fleet *fleet.Fleet
}

func (r EventRenderer) DrawGeofences(ac *fleet.Aircraft) {
	r.Fleet.Post(fleet.Event{Type: fleet.FencesUpdatedEvent, Aircraft: ac.ID})
}

func (r EventRenderer) UpdatePosition(ac *fleet.Aircraft) {
	r.Fleet.Post(fleet.Event{
		Type:     fleet.PositionEvent,
		Aircraft: ac.ID,
		Position: ac.Position,
		Alt:      ac.Alt,
		Status:   ac.Status,
	})
}

func (r EventRenderer) RemoveMarker(layer, marker string) {}

func (r EventRenderer) ShowBanner(level BannerLevel, text string) {
	r.Fleet.Post(fleet.Event{Type: fleet.BannerEvent, Text: level.String() + ": " + text})
}

func (r EventRenderer) ActivatePanel(ac *fleet.Aircraft, panel string) {}

// MultiRenderer forwards each notification to all of its renderers.
type MultiRenderer []Renderer

func (m MultiRenderer) DrawGeofences(ac *fleet.Aircraft) {
	for _, r := range m {
		r.DrawGeofences(ac)
	}
}

func (m MultiRenderer) UpdatePosition(ac *fleet.Aircraft) {
	for _, r := range m {
		r.UpdatePosition(ac)
	}
}

func (m MultiRenderer) RemoveMarker(layer, marker string) {
	for _, r := range m {
		r.RemoveMarker(layer, marker)
	}
}

func (m MultiRenderer) ShowBanner(level BannerLevel, text string) {
	for _, r := range m {
		r.ShowBanner(level, text)
	}
}

func (m MultiRenderer) ActivatePanel(ac *fleet.Aircraft, panel string) {
	for _, r := range m {
		r.ActivatePanel(ac, panel)
	}
}
