// fleet/fence.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	av "github.com/mmp/gcs/aviation"
	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

type FencePoint struct {
	ID       int
	Position math.Point2LL
}

// Fence is a geofence polygon attached to an aircraft. A fence is a draft
// until it is submitted; once submitted it has the nonzero Seq that the
// vehicle knows it by.
type Fence struct {
	ID        int
	Seq       int
	Type      av.FenceType
	Floor     float64
	Roof      float64
	Points    []FencePoint
	Submitted bool
}

func (f *Fence) EntityID() int      { return f.ID }
func (f *Fence) EntityName() string { return strconv.Itoa(f.ID) }

func (f *Fence) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", f.ID),
		slog.Int("seq", f.Seq),
		slog.String("type", f.Type.String()),
		slog.Float64("floor", f.Floor),
		slog.Float64("roof", f.Roof),
		slog.Int("points", len(f.Points)),
		slog.Bool("submitted", f.Submitted))
}

// AddPoint appends a vertex to the fence.
func (f *Fence) AddPoint(p math.Point2LL) FencePoint {
	f.Points = append(f.Points, FencePoint{Position: p})
	f.renumber()
	return f.Points[len(f.Points)-1]
}

// RemovePoint removes the vertex with the given id. A fence always keeps
// at least one vertex, so removing the last one is refused.
func (f *Fence) RemovePoint(id int) bool {
	if len(f.Points) <= 1 {
		return false
	}
	idx := slices.IndexFunc(f.Points, func(p FencePoint) bool { return p.ID == id })
	if idx == -1 {
		return false
	}
	f.Points = slices.Delete(f.Points, idx, idx+1)
	f.renumber()
	return true
}

// MovePoint relocates a vertex; a moved submitted fence has to be
// submitted again.
func (f *Fence) MovePoint(id int, p math.Point2LL) bool {
	for i := range f.Points {
		if f.Points[i].ID == id {
			f.Points[i].Position = p
			f.Submitted = false
			return true
		}
	}
	return false
}

func (f *Fence) renumber() {
	for i := range f.Points {
		f.Points[i].ID = i
	}
}

func (f *Fence) Vertices() []math.Point2LL {
	return util.MapSlice(f.Points, func(p FencePoint) math.Point2LL { return p.Position })
}

func (f *Fence) Record() av.FenceRecord {
	return av.FenceRecord{
		Seq:      f.Seq,
		Type:     f.Type,
		Floor:    f.Floor,
		Roof:     f.Roof,
		Vertices: f.Vertices(),
	}
}

// NewFence starts a draft fence on the aircraft with a single vertex.
func (ac *Aircraft) NewFence(seed math.Point2LL, t av.FenceType, floor, roof float64) *Fence {
	f := &Fence{
		ID:    ac.Fences.NextID(),
		Type:  t,
		Floor: floor,
		Roof:  roof,
	}
	f.AddPoint(seed)
	ac.Fences.Insert(f)
	return f
}

func (ac *Aircraft) RemoveFence(id int) bool {
	return ac.Fences.RemoveByID(id)
}

func (ac *Aircraft) FenceBySeq(seq int) (*Fence, bool) {
	if seq == 0 {
		return nil, false
	}
	for _, f := range ac.Fences.All() {
		if f.Seq == seq {
			return f, true
		}
	}
	return nil, false
}

// SubmitFence prepares f for loading onto the vehicle and returns the
// LOAD_GEOFENCE command to send. A fence that was never submitted gets the
// sequence number after the largest one in use on the aircraft; the
// vertices are reordered if necessary so that the vehicle sees them
// counter-clockwise.
func (ac *Aircraft) SubmitFence(f *Fence) (string, error) {
	if len(f.Points) < 3 {
		return "", fmt.Errorf("fence %d has %d points: %w", f.ID, len(f.Points), ErrDegenerateGeofence)
	}
	if !f.Type.Valid() {
		return "", fmt.Errorf("fence %d: %s: invalid type", f.ID, f.Type)
	}

	if f.Seq == 0 {
		maxSeq := 0
		for _, other := range ac.Fences.All() {
			if other != f {
				maxSeq = max(maxSeq, other.Seq)
			}
		}
		f.Seq = maxSeq + 1
	}

	if !math.IsCounterClockwise(f.Vertices()) {
		slices.Reverse(f.Points)
		f.renumber()
	}
	f.Submitted = true

	return FenceCommand(ac.ID, f.Record()), nil
}

// FenceCommand formats the LOAD_GEOFENCE command for a fence.
func FenceCommand(acID int, r av.FenceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOAD_GEOFENCE AC_ID %d F_ID %d TYPE %d FLOOR %s ROOF %s", acID, r.Seq, int(r.Type),
		util.FormatFloat(r.Floor), util.FormatFloat(r.Roof))
	for _, v := range r.Vertices {
		b.WriteString(" " + util.FormatFloat(v.Latitude()) + " " + util.FormatFloat(v.Longitude()))
	}
	return b.String()
}

// FenceFailed marks the submitted fence with the given sequence number as
// a draft again after the vehicle rejected it.
func (ac *Aircraft) FenceFailed(seq int) (*Fence, bool) {
	f, ok := ac.FenceBySeq(seq)
	if ok {
		f.Submitted = false
	}
	return f, ok
}

// FenceUpdate describes what ReconcileFences changed.
type FenceUpdate struct {
	Removed []*Fence
	Added   []*Fence
	Skipped []int // indices of records without vertices or, from the vehicle, a sequence number
}

// ReconcileFences installs fences reported by the vehicle or read from a
// file.
//
// Fences reported by the vehicle replace any fence with the same sequence
// number and are marked submitted; vehicle records without a sequence
// number are skipped. Fences from a file are always added as new drafts.
func (ac *Aircraft) ReconcileFences(records []av.FenceRecord, fromFile bool) FenceUpdate {
	var u FenceUpdate
	for i, r := range records {
		if len(r.Vertices) == 0 || (!fromFile && r.Seq <= 0) {
			u.Skipped = append(u.Skipped, i)
			continue
		}

		if !fromFile {
			for _, old := range ac.Fences.All() {
				if old.Seq != 0 && old.Seq == r.Seq {
					ac.Fences.RemoveByID(old.ID)
					u.Removed = append(u.Removed, old)
				}
			}
		}

		f := ac.NewFence(r.Vertices[0], r.Type, r.Floor, r.Roof)
		for _, v := range r.Vertices[1:] {
			f.AddPoint(v)
		}
		if !fromFile {
			f.Seq = r.Seq
			f.Submitted = true
		}
		u.Added = append(u.Added, f)
	}
	return u
}
