// aviation/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
)

var (
	ErrBadWaypointHeader = errors.New("Missing \"QGC WPL 110\" header")
	ErrNoFences          = errors.New("No <fence> elements found")
	ErrNoWaypoints       = errors.New("No waypoints found")
)
