// aviation/traffic.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"strings"
)

// TrafficSource identifies where a traffic report came from.
type TrafficSource int

const (
	TrafficSourceSim TrafficSource = iota
	TrafficSourceADSB
	TrafficSourceSensor
)

func (s TrafficSource) String() string {
	switch s {
	case TrafficSourceSim:
		return "SIM"
	case TrafficSourceADSB:
		return "ADSB"
	case TrafficSourceSensor:
		return "SENSOR"
	default:
		return "UNKNOWN"
	}
}

// ParseTrafficSource accepts either the textual name or the numeric code
// of a source; anything unrecognized is treated as simulated traffic.
func ParseTrafficSource(s string) TrafficSource {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADSB", "ADS-B", "1":
		return TrafficSourceADSB
	case "SENSOR", "RADAR", "2":
		return TrafficSourceSensor
	default:
		return TrafficSourceSim
	}
}

// ADS-B emitter categories, as reported in ADSB_VEHICLE emitter_type.
var emitterCategories = []string{
	"NO_INFO", "LIGHT", "SMALL", "LARGE", "HIGH_VORTEX_LARGE", "HEAVY",
	"HIGHLY_MANUV", "ROTOCRAFT", "UNASSIGNED", "GLIDER", "LIGHTER_AIR",
	"PARACHUTE", "ULTRA_LIGHT", "UNASSIGNED2", "UAV", "SPACE",
	"UNASSIGNED3", "EMERGENCY_SURFACE", "SERVICE_SURFACE", "POINT_OBSTACLE",
}

func EmitterCategory(code int) string {
	if code < 0 || code >= len(emitterCategories) {
		return "NO_INFO"
	}
	return emitterCategories[code]
}
