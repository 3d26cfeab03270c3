// fleet/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"errors"
)

var (
	ErrDegenerateGeofence = errors.New("Geofence needs at least three points")
	ErrDuplicateAircraft  = errors.New("Aircraft with that id already exists")
	ErrEmptyFlightPlan    = errors.New("Flight plan has no waypoints")
	ErrInvalidTransition  = errors.New("Invalid aircraft status transition")
	ErrUnknownAircraft    = errors.New("Unknown aircraft")
	ErrUnknownFence       = errors.New("Unknown geofence")
)
