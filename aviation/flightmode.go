// aviation/flightmode.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

// HEARTBEAT base_mode flags.
const (
	ModeFlagCustomModeEnabled = 1
	ModeFlagTestEnabled       = 2
	ModeFlagAutoEnabled       = 4
	ModeFlagGuidedEnabled     = 8
	ModeFlagStabilizeEnabled  = 16
	ModeFlagHILEnabled        = 32
	ModeFlagManualInput       = 64
	ModeFlagSafetyArmed       = 128
)

const UnknownFlightMode = "UNKNOWN"

// flightModes maps the base_mode values the vehicles actually report to
// the text shown to the operator.
var flightModes = map[int]string{
	0:   "PRE-FLIGHT",
	65:  "MANUAL DISARMED",
	193: "MANUAL ARMED",
	81:  "STABILIZE DISARMED",
	209: "STABILIZE ARMED",
	89:  "GUIDED DISARMED",
	217: "GUIDED ARMED",
	93:  "AUTO DISARMED",
	221: "AUTO ARMED",
	97:  "HIL DISARMED",
	225: "HIL ARMED",
}

// DecodeFlightMode returns the display string for a HEARTBEAT base_mode;
// codes outside the table give UnknownFlightMode.
func DecodeFlightMode(baseMode int) string {
	if m, ok := flightModes[baseMode]; ok {
		return m
	}
	return UnknownFlightMode
}

// IsArmed reports whether the base_mode has the safety-armed flag set.
func IsArmed(baseMode int) bool {
	return baseMode&ModeFlagSafetyArmed != 0
}
