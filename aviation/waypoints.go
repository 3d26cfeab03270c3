// aviation/waypoints.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmp/gcs/math"
	"github.com/mmp/gcs/util"
)

// Waypoint is a single flight plan point. Speed is the commanded ground
// speed for the leg that starts at the waypoint; zero means that the
// previous speed is kept.
type Waypoint struct {
	Position math.Point2LL
	Alt      float64
	Speed    float64
}

const waypointFileHeader = "QGC WPL 110"

// MAV_CMD values that show up in waypoint files.
const (
	CmdNavWaypoint   = 16
	CmdNavTakeoff    = 22
	CmdDoChangeSpeed = 178
)

// ParseWaypoints reads a QGC WPL 110 file. Each row is tab-separated:
//
//	index current frame command p1 p2 p3 p4 lat lon alt autocontinue
//
// NAV_WAYPOINT and NAV_TAKEOFF rows hold a position in the lat/lon/alt
// columns; DO_CHANGE_SPEED rows hold the speed in p2, which is applied to
// the next waypoint. Other commands are skipped.
func ParseWaypoints(r io.Reader) ([]Waypoint, error) {
	var e util.ErrorLogger
	var wps []Waypoint
	var speed float64

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if line == 1 {
			if !strings.HasPrefix(text, waypointFileHeader) {
				return nil, ErrBadWaypointHeader
			}
			continue
		}
		if text == "" {
			continue
		}

		e.Push("line " + strconv.Itoa(line))
		fields := strings.Split(text, "\t")
		if len(fields) < 12 {
			// Be lenient about files that were hand-edited with spaces.
			fields = strings.Fields(text)
		}
		if len(fields) < 12 {
			e.ErrorString("expected 12 columns, found %d", len(fields))
			e.Pop()
			continue
		}

		cmd, err := strconv.Atoi(fields[3])
		if err != nil {
			e.ErrorString("invalid command %q", fields[3])
			e.Pop()
			continue
		}

		switch cmd {
		case CmdNavWaypoint, CmdNavTakeoff:
			var v [3]float64
			ok := true
			for i, f := range fields[8:11] {
				if v[i], err = util.Atof(f); err != nil {
					e.ErrorString("column %d: %v", 9+i, err)
					ok = false
				}
			}
			if ok {
				wps = append(wps, Waypoint{Position: math.LL(v[0], v[1]), Alt: v[2], Speed: speed})
				speed = 0
			}

		case CmdDoChangeSpeed:
			if speed, err = util.Atof(fields[5]); err != nil {
				e.ErrorString("speed: %v", err)
				speed = 0
			}
		}
		e.Pop()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if line == 0 {
		return nil, ErrBadWaypointHeader
	}

	if e.HaveErrors() {
		return wps, e.Err()
	}
	if len(wps) == 0 {
		return nil, ErrNoWaypoints
	}
	return wps, nil
}

// WriteWaypoints writes the waypoints in the format read by
// ParseWaypoints, emitting a DO_CHANGE_SPEED row before every waypoint
// with a nonzero speed.
func WriteWaypoints(w io.Writer, wps []Waypoint) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, waypointFileHeader)

	idx := 0
	row := func(current, cmd int, p2, lat, lon, alt float64) {
		fmt.Fprintf(bw, "%d\t%d\t3\t%d\t0\t%s\t0\t0\t%s\t%s\t%s\t1\n", idx, current, cmd,
			util.FormatFloat(p2), util.FormatFloat(lat), util.FormatFloat(lon), util.FormatFloat(alt))
		idx++
	}
	for i, wp := range wps {
		if wp.Speed != 0 {
			row(0, CmdDoChangeSpeed, wp.Speed, 0, 0, 0)
		}
		row(util.Select(i == 0, 1, 0), CmdNavWaypoint, 0, wp.Position.Latitude(), wp.Position.Longitude(), wp.Alt)
	}
	return bw.Flush()
}
