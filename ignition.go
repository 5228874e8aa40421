/*
Copyright © 2021 the fuelmap authors.
This file is part of fuelmap.

fuelmap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fuelmap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fuelmap.  If not, see <http://www.gnu.org/licenses/>.
*/

package fuelmap

import (
	"fmt"
	"math"
)

// Waypoint is a point of a walking ignition line together with the time
// the fire front reaches it.
type Waypoint struct {
	X, Y float64 // m
	Time float64 // s
}

// WalkingIgnitionLine is a fire front moving along a polyline. Cells away
// from the line ignite after the front passes the nearest point of the
// line, delayed by the distance to that point divided by LateralSpeed.
type WalkingIgnitionLine struct {
	Waypoints []Waypoint

	// LateralSpeed is the speed at which the front spreads away from the
	// line, m/s.
	LateralSpeed float64
}

// Policy implements Role. Walking ignition can only make cells ignite
// earlier.
func (WalkingIgnitionLine) Policy() MergePolicy { return Minimum }

func (l WalkingIgnitionLine) String() string {
	return fmt.Sprintf("walking ignition (%d waypoints)", len(l.Waypoints))
}

// Validate returns an error wrapping ErrDegenerateLine if l has fewer
// than two waypoints, decreasing times, non-finite values or a
// non-positive lateral speed.
func (l WalkingIgnitionLine) Validate() error {
	if len(l.Waypoints) < 2 {
		return fmt.Errorf("%w: %d waypoints but at least 2 are needed", ErrDegenerateLine, len(l.Waypoints))
	}
	for i, w := range l.Waypoints {
		for _, v := range []float64{w.X, w.Y, w.Time} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: waypoint %d (%g, %g, %g) is not finite", ErrDegenerateLine, i, w.X, w.Y, w.Time)
			}
		}
		if i > 0 && w.Time < l.Waypoints[i-1].Time {
			return fmt.Errorf("%w: time decreases from %g to %g at waypoint %d",
				ErrDegenerateLine, l.Waypoints[i-1].Time, w.Time, i)
		}
	}
	if !(l.LateralSpeed > 0) || math.IsInf(l.LateralSpeed, 0) {
		return fmt.Errorf("%w: lateral speed %g should be >0", ErrDegenerateLine, l.LateralSpeed)
	}
	return nil
}

// projectionCase says which part of a segment is nearest to a point.
type projectionCase int

const (
	beforeStart projectionCase = iota // the start waypoint
	interior                          // a point between the waypoints
	afterEnd                          // the end waypoint
)

func (c projectionCase) String() string {
	switch c {
	case beforeStart:
		return "before start"
	case interior:
		return "interior"
	case afterEnd:
		return "after end"
	default:
		return fmt.Sprintf("projectionCase(%d)", int(c))
	}
}

// segmentProjection is the nearest point of a segment to a cell center.
type segmentProjection struct {
	Case     projectionCase
	S        float64 // normalized position of the projection on the segment line
	Time     float64 // front arrival time at the nearest point
	Distance float64 // distance from the cell center to the nearest point
}

// arrival returns the time the front reaches the projected point when it
// spreads away from the segment at speed v.
func (p segmentProjection) arrival(v float64) float64 {
	return p.Time + p.Distance/v
}

// projectOnSegment projects (x, y) on the segment from a to b.
// Zero-length segments are handled as the beforeStart case.
func projectOnSegment(x, y float64, a, b Waypoint) segmentProjection {
	ux, uy := b.X-a.X, b.Y-a.Y
	l2 := ux*ux + uy*uy
	var s float64
	if l2 > 0 {
		s = ((x-a.X)*ux + (y-a.Y)*uy) / l2
	}
	switch {
	case l2 == 0 || s < 0:
		return segmentProjection{
			Case:     beforeStart,
			S:        s,
			Time:     a.Time,
			Distance: math.Hypot(x-a.X, y-a.Y),
		}
	case s > 1:
		return segmentProjection{
			Case:     afterEnd,
			S:        s,
			Time:     b.Time,
			Distance: math.Hypot(x-b.X, y-b.Y),
		}
	default:
		px, py := a.X+s*ux, a.Y+s*uy
		return segmentProjection{
			Case:     interior,
			S:        s,
			Time:     a.Time + s*(b.Time-a.Time),
			Distance: math.Hypot(x-px, y-py),
		}
	}
}

// arrivalTime returns the earliest time the front of l reaches (x, y).
func (l WalkingIgnitionLine) arrivalTime(x, y float64) float64 {
	t := math.Inf(1)
	for k := 0; k < len(l.Waypoints)-1; k++ {
		p := projectOnSegment(x, y, l.Waypoints[k], l.Waypoints[k+1])
		t = math.Min(t, p.arrival(l.LateralSpeed))
	}
	return t
}

// WalkingIgnition lowers the walking ignition time of every cell of g to
// the time the front of line reaches it, if that is earlier. The
// resulting field does not depend on the order in which lines are
// submitted. Invalid lines are rejected before any cell is changed.
func (g *Grid) WalkingIgnition(line WalkingIgnitionLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	a := g.fields.WalkingIgnitionTime
	p := line.Policy()
	for i, x := range g.xc {
		for j, y := range g.yc {
			n := i*g.ny + j
			a.Elements[n] = p.merge(a.Elements[n], line.arrivalTime(x, y))
		}
	}
	return nil
}
