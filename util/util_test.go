// util/util_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"
	"strings"
	"testing"
)

func TestSortedMapKeys(t *testing.T) {
	m := map[int]string{3: "c", 1: "a", 2: "b"}
	if k := SortedMapKeys(m); !slices.Equal(k, []int{1, 2, 3}) {
		t.Errorf("SortedMapKeys = %v", k)
	}
}

func TestFilterMapSlice(t *testing.T) {
	s := []int{1, 2, 3, 4, 5}
	even := FilterSlice(s, func(v int) bool { return v%2 == 0 })
	if !slices.Equal(even, []int{2, 4}) {
		t.Errorf("FilterSlice = %v", even)
	}
	sq := MapSlice(even, func(v int) string { return strings.Repeat("x", v) })
	if !slices.Equal(sq, []string{"xx", "xxxx"}) {
		t.Errorf("MapSlice = %v", sq)
	}
}

func TestUnmarshalJSONBytesErrors(t *testing.T) {
	var v map[string]any
	err := UnmarshalJSONBytes([]byte("{\n  \"TYPE\": \"HEARTBEAT\",,\n}"), &v)
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line number in error, got %q", err)
	}

	var s struct {
		ID int `json:"id"`
	}
	if err := UnmarshalJSONBytes([]byte(`{"id": "one"}`), &s); err == nil {
		t.Errorf("expected type error")
	}
}

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.Err() != nil {
		t.Errorf("expected no errors")
	}
	e.Push("fence.xml")
	e.Push("vertex 2")
	e.ErrorString("bad latitude %q", "abc")
	e.Pop()
	e.ErrorString("num_vertices mismatch")
	e.Pop()

	if !e.HaveErrors() {
		t.Fatalf("expected errors")
	}
	want := "fence.xml / vertex 2: bad latitude \"abc\"\nfence.xml: num_vertices mismatch"
	if e.String() != want {
		t.Errorf("got %q, expected %q", e.String(), want)
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("depth %d", e.CurrentDepth())
	}
}
