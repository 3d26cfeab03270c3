// util/ids_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"testing"
)

func TestAllocateID(t *testing.T) {
	for _, tc := range []struct {
		used []int
		want int
	}{
		{nil, 1},
		{[]int{}, 1},
		{[]int{1, 2, 4}, 3},
		{[]int{2, 3}, 1},
		{[]int{1, 2, 3}, 4},
		{[]int{3, 1, 2, 2}, 4},
		{[]int{5}, 1},
		{[]int{-1, 0, 1}, 2},
	} {
		if got := AllocateID(tc.used); got != tc.want {
			t.Errorf("AllocateID(%v) = %d; expected %d", tc.used, got, tc.want)
		}
	}
}

func TestAllocateIDReusesVacated(t *testing.T) {
	ids := []uint16{1, 2, 3, 4}
	ids = FilterSlice(ids, func(id uint16) bool { return id != 2 })
	if got := AllocateID(ids); got != 2 {
		t.Errorf("expected vacated id 2 to be reused, got %d", got)
	}
}
