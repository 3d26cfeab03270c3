// util/ids.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"golang.org/x/exp/constraints"
)

// AllocateID returns the smallest positive integer that is not present
// in used. Ids vacated by removal are thus handed out again before any
// larger id is.
func AllocateID[T constraints.Integer](used []T) T {
	if len(used) == 0 {
		return 1
	}

	seen := make(map[T]struct{}, len(used))
	for _, id := range used {
		seen[id] = struct{}{}
	}

	id := T(1)
	for {
		if _, ok := seen[id]; !ok {
			return id
		}
		id++
	}
}
