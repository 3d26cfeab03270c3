// aviation/geofence.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

type FenceType int

const (
	FenceInclusion FenceType = 0
	FenceExclusion FenceType = 1
)

func (t FenceType) String() string {
	switch t {
	case FenceInclusion:
		return "INCLUSION"
	case FenceExclusion:
		return "EXCLUSION"
	default:
		return "FenceType(" + strconv.Itoa(int(t)) + ")"
	}
}

func (t FenceType) Valid() bool {
	return t == FenceInclusion || t == FenceExclusion
}

// FenceRecord is a geofence as it is described by a file or reported by
// the vehicle, before it has been turned into an editable fence.
type FenceRecord struct {
	Seq      int
	Type     FenceType
	Floor    float64
	Roof     float64
	Vertices []math.Point2LL
}

type xmlVertex struct {
	ID  *int    `xml:"id,omitempty"`
	Lat float64 `xml:"lat"`
	Lon float64 `xml:"lon"`
}

type xmlFence struct {
	XMLName     xml.Name    `xml:"fence"`
	ID          *int        `xml:"id,omitempty"`
	Type        int         `xml:"type"`
	NumVertices int         `xml:"num_vertices"`
	Floor       float64     `xml:"floor"`
	Roof        float64     `xml:"roof"`
	Vertices    []xmlVertex `xml:"vertex"`
}

// ParseGeofenceXML reads every <fence> element in r, wherever it appears
// in the document. Fences with problems are reported but the valid ones
// are still returned.
func ParseGeofenceXML(r io.Reader) ([]FenceRecord, error) {
	var e util.ErrorLogger
	var fences []FenceRecord

	dec := xml.NewDecoder(r)
	for n := 1; ; {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fences, fmt.Errorf("geofence XML: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "fence" {
			continue
		}

		var xf xmlFence
		if err := dec.DecodeElement(&xf, &se); err != nil {
			return fences, fmt.Errorf("geofence XML: %w", err)
		}

		e.Push("fence " + strconv.Itoa(n))
		if rec, ok := xf.record(&e); ok {
			fences = append(fences, rec)
		}
		e.Pop()
		n++
	}

	if e.HaveErrors() {
		return fences, e.Err()
	}
	if len(fences) == 0 {
		return nil, ErrNoFences
	}
	return fences, nil
}

func (xf xmlFence) record(e *util.ErrorLogger) (FenceRecord, bool) {
	ok := true
	if !FenceType(xf.Type).Valid() {
		e.ErrorString("invalid fence type %d", xf.Type)
		ok = false
	}
	if len(xf.Vertices) == 0 {
		e.ErrorString("no vertices")
		ok = false
	} else if xf.NumVertices != 0 && xf.NumVertices != len(xf.Vertices) {
		e.ErrorString("num_vertices is %d but %d vertices were given", xf.NumVertices, len(xf.Vertices))
		ok = false
	}
	if xf.Roof < xf.Floor {
		e.ErrorString("roof %g is below floor %g", xf.Roof, xf.Floor)
		ok = false
	}
	if !ok {
		return FenceRecord{}, false
	}

	rec := FenceRecord{
		Type:  FenceType(xf.Type),
		Floor: xf.Floor,
		Roof:  xf.Roof,
	}
	for _, v := range xf.Vertices {
		rec.Vertices = append(rec.Vertices, math.LL(v.Lat, v.Lon))
	}
	return rec, true
}

type xmlFenceList struct {
	XMLName xml.Name   `xml:"geofences"`
	Fences  []xmlFence `xml:"fence"`
}

// WriteGeofenceXML writes the fences in the format read by
// ParseGeofenceXML.
func WriteGeofenceXML(w io.Writer, fences []FenceRecord) error {
	var list xmlFenceList
	for i, f := range fences {
		id := i
		xf := xmlFence{
			ID:          &id,
			Type:        int(f.Type),
			NumVertices: len(f.Vertices),
			Floor:       f.Floor,
			Roof:        f.Roof,
		}
		for j, v := range f.Vertices {
			vid := j
			xf.Vertices = append(xf.Vertices, xmlVertex{ID: &vid, Lat: v.Latitude(), Lon: v.Longitude()})
		}
		list.Fences = append(list.Fences, xf)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(list); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
