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
	"io"
	"io/ioutil"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
)

// Cell identifies a fire grid cell.
type Cell struct{ I, J int }

// Region is the geometric part of a patch: the set of fire cells it
// covers. Cells outside of the grid are never returned.
type Region interface {
	Cells(g *Grid) []Cell
}

// RectanglePatch covers the cells whose centers lie within
// [XMin, XMax] × [YMin, YMax], bounds included.
type RectanglePatch struct {
	XMin, XMax, YMin, YMax float64
}

// Cells implements Region.
func (r RectanglePatch) Cells(g *Grid) []Cell {
	var o []Cell
	for i, x := range g.xc {
		if x < r.XMin || x > r.XMax {
			continue
		}
		for j, y := range g.yc {
			if y >= r.YMin && y <= r.YMax {
				o = append(o, Cell{I: i, J: j})
			}
		}
	}
	return o
}

func (r RectanglePatch) String() string {
	return fmt.Sprintf("rectangle [%g, %g]×[%g, %g]", r.XMin, r.XMax, r.YMin, r.YMax)
}

// PolygonPatch covers the cells whose centers are inside of or on the
// edge of Polygon.
type PolygonPatch struct {
	Polygon geom.Polygonal
}

// Cells implements Region.
func (p PolygonPatch) Cells(g *Grid) []Cell {
	if p.Polygon == nil {
		return nil
	}
	b := p.Polygon.Bounds()
	var o []Cell
	for i, x := range g.xc {
		if x < b.Min.X || x > b.Max.X {
			continue
		}
		for j, y := range g.yc {
			if y < b.Min.Y || y > b.Max.Y {
				continue
			}
			if (geom.Point{X: x, Y: y}).Within(p.Polygon) != geom.Outside {
				o = append(o, Cell{I: i, J: j})
			}
		}
	}
	return o
}

func (p PolygonPatch) String() string {
	if p.Polygon == nil {
		return "empty polygon"
	}
	b := p.Polygon.Bounds()
	return fmt.Sprintf("polygon within [%g, %g]×[%g, %g]", b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
}

// ReadGeoJSONPatch reads a Polygon or MultiPolygon GeoJSON geometry.
func ReadGeoJSONPatch(r io.Reader) (PolygonPatch, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return PolygonPatch{}, fmt.Errorf("fuelmap: reading GeoJSON patch: %w", err)
	}
	g, err := geojson.Decode(b)
	if err != nil {
		return PolygonPatch{}, fmt.Errorf("fuelmap: decoding GeoJSON patch: %w", err)
	}
	var poly geom.Polygon
	if err := appendPolygons(&poly, g); err != nil {
		return PolygonPatch{}, err
	}
	return PolygonPatch{Polygon: poly}, nil
}

// ReadShapefilePatch reads every polygon in a shapefile into a single
// patch.
func ReadShapefilePatch(path string) (PolygonPatch, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return PolygonPatch{}, fmt.Errorf("fuelmap: opening shapefile patch: %w", err)
	}
	defer d.Close()
	var poly geom.Polygon
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if err := appendPolygons(&poly, g); err != nil {
			return PolygonPatch{}, fmt.Errorf("%v in %s", err, path)
		}
	}
	if err := d.Error(); err != nil {
		return PolygonPatch{}, fmt.Errorf("fuelmap: decoding shapefile patch %s: %w", path, err)
	}
	return PolygonPatch{Polygon: poly}, nil
}

// appendPolygons adds the rings of g to poly. Polygons of a MultiPolygon
// are kept as separate rings, so overlapping parts cancel out as holes
// would.
func appendPolygons(poly *geom.Polygon, g geom.Geom) error {
	switch t := g.(type) {
	case geom.Polygon:
		*poly = append(*poly, t...)
	case geom.MultiPolygon:
		for _, p := range t {
			*poly = append(*poly, p...)
		}
	default:
		return fmt.Errorf("fuelmap: invalid patch geometry type %T", g)
	}
	return nil
}

// LinePatch covers the cells crossed by the segment from (X0, Y0) to
// (X1, Y1), rasterized with Bresenham's algorithm between the cells
// containing its end points. The segment is first clipped to the grid.
type LinePatch struct {
	X0, Y0, X1, Y1 float64
}

// Cells implements Region.
func (l LinePatch) Cells(g *Grid) []Cell {
	vals := []float64{l.X0, l.Y0, l.X1, l.Y1}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	x0, y0, x1, y1, ok := clipSegment(g.Bounds(), l.X0, l.Y0, l.X1, l.Y1)
	if !ok {
		return nil
	}
	i0, j0 := g.clampedCellIndex(x0, y0)
	i1, j1 := g.clampedCellIndex(x1, y1)
	var o []Cell
	bresenham(i0, j0, i1, j1, func(i, j int) {
		if i >= 0 && i < g.nx && j >= 0 && j < g.ny {
			o = append(o, Cell{I: i, J: j})
		}
	})
	return o
}

func (l LinePatch) String() string {
	return fmt.Sprintf("line (%g, %g)-(%g, %g)", l.X0, l.Y0, l.X1, l.Y1)
}

// Outcodes of a point relative to a bounding box.
const (
	outLeft = 1 << iota
	outRight
	outBottom
	outTop
)

// clipSegment clips the segment from (x0, y0) to (x1, y1) to b with the
// Cohen-Sutherland algorithm. Points on the edges of b are kept. ok is
// false if no part of the segment is within b. A clipped end point is
// interpolated from the other end point so that far away end points do
// not cost precision.
func clipSegment(b *geom.Bounds, x0, y0, x1, y1 float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	code := func(x, y float64) int {
		c := 0
		if x < b.Min.X {
			c |= outLeft
		} else if x > b.Max.X {
			c |= outRight
		}
		if y < b.Min.Y {
			c |= outBottom
		} else if y > b.Max.Y {
			c |= outTop
		}
		return c
	}
	// move moves (x, y) along the segment towards (ox, oy) onto the edge
	// given by c.
	move := func(c int, x, y, ox, oy float64) (float64, float64) {
		switch {
		case c&outTop != 0:
			return ox + (x-ox)*(b.Max.Y-oy)/(y-oy), b.Max.Y
		case c&outBottom != 0:
			return ox + (x-ox)*(b.Min.Y-oy)/(y-oy), b.Min.Y
		case c&outRight != 0:
			return b.Max.X, oy + (y-oy)*(b.Max.X-ox)/(x-ox)
		default:
			return b.Min.X, oy + (y-oy)*(b.Min.X-ox)/(x-ox)
		}
	}
	c0, c1 := code(x0, y0), code(x1, y1)
	for i := 0; i < 8 && c0|c1 != 0; i++ {
		if c0&c1 != 0 {
			return 0, 0, 0, 0, false
		}
		if c0 != 0 {
			x0, y0 = move(c0, x0, y0, x1, y1)
			c0 = code(x0, y0)
		} else {
			x1, y1 = move(c1, x1, y1, x0, y0)
			c1 = code(x1, y1)
		}
	}
	if c0&c1 != 0 {
		return 0, 0, 0, 0, false
	}
	for _, v := range []float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, 0, false
		}
	}
	return x0, y0, x1, y1, true
}

// clampedCellIndex is CellIndex without the bounds check. Indices are
// limited to one cell beyond each edge of the grid.
func (g *Grid) clampedCellIndex(x, y float64) (i, j int) {
	clamp := func(v float64, n int) int {
		return int(math.Max(-1, math.Min(float64(n), math.Floor(v))))
	}
	return clamp((x-g.cfg.Xo)/g.dx, g.nx), clamp((y-g.cfg.Yo)/g.dy, g.ny)
}

// bresenham calls plot for every integer point of the line from (x0, y0)
// to (x1, y1), end points included.
func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
