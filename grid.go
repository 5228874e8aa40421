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

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// NoFuel is the fuel index of cells that carry no fuel. Fuel indices
// resolved from a fuel database start at 1.
const NoFuel = 0

// NeverIgnite is the ignition time of cells that never ignite. It is larger
// than any simulated time.
const NeverIgnite = math.MaxFloat64

// GridConfig holds the parameters needed to build a fire grid nested in an
// atmospheric mesh.
type GridConfig struct {
	Nx, Ny         int     // number of atmospheric cells in x and y
	GammaX, GammaY int     // fire cells per atmospheric cell in x and y
	Dx, Dy         float64 // atmospheric cell size, m
	Xo, Yo         float64 // lower left corner of the atmospheric mesh, m
}

// Validate checks that c describes a usable grid.
func (c GridConfig) Validate() error {
	ints := []int{c.Nx, c.Ny, c.GammaX, c.GammaY}
	intNames := []string{"Nx", "Ny", "GammaX", "GammaY"}
	for i, v := range ints {
		if v < 1 {
			return fmt.Errorf("%w: %s=%d but should be >=1", ErrInvalidDimension, intNames[i], v)
		}
	}
	sizes := []float64{c.Dx, c.Dy}
	sizeNames := []string{"Dx", "Dy"}
	for i, v := range sizes {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%g but should be >0", ErrInvalidDimension, sizeNames[i], v)
		}
	}
	if math.IsNaN(c.Xo) || math.IsNaN(c.Yo) || math.IsInf(c.Xo, 0) || math.IsInf(c.Yo, 0) {
		return fmt.Errorf("%w: origin (%g, %g) is not finite", ErrInvalidDimension, c.Xo, c.Yo)
	}
	return nil
}

// Grid is a fire grid refined from an atmospheric mesh. Its geometry is
// fixed at construction; only its fields change afterwards.
type Grid struct {
	cfg    GridConfig
	nx, ny int
	dx, dy float64
	xc, yc []float64

	fields *FieldSet
}

// NewGrid builds the fire grid described by cfg, with every field set to
// its default value. It returns an error wrapping ErrInvalidDimension if
// cfg is not valid.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		cfg: cfg,
		nx:  cfg.Nx * cfg.GammaX,
		ny:  cfg.Ny * cfg.GammaY,
		dx:  cfg.Dx / float64(cfg.GammaX),
		dy:  cfg.Dy / float64(cfg.GammaY),
	}
	g.xc = cellCenters(g.nx, cfg.Xo, g.dx)
	g.yc = cellCenters(g.ny, cfg.Yo, g.dy)
	g.fields = newFieldSet(g.nx, g.ny)
	return g, nil
}

// cellCenters returns the centers of n cells of size d starting at o.
func cellCenters(n int, o, d float64) []float64 {
	c := make([]float64, n)
	if n == 1 {
		c[0] = o + 0.5*d
		return c
	}
	return floats.Span(c, o+0.5*d, o+(float64(n)-0.5)*d)
}

// Config returns the configuration g was built from.
func (g *Grid) Config() GridConfig { return g.cfg }

// Shape returns the number of fire cells in x and y.
func (g *Grid) Shape() (nx, ny int) { return g.nx, g.ny }

// AtmShape returns the number of atmospheric cells in x and y.
func (g *Grid) AtmShape() (nx, ny int) { return g.cfg.Nx, g.cfg.Ny }

// CellSize returns the size of a fire cell in x and y.
func (g *Grid) CellSize() (dx, dy float64) { return g.dx, g.dy }

// XCenters returns the x coordinates of the fire cell centers.
func (g *Grid) XCenters() []float64 { return append([]float64(nil), g.xc...) }

// YCenters returns the y coordinates of the fire cell centers.
func (g *Grid) YCenters() []float64 { return append([]float64(nil), g.yc...) }

// Center returns the center of fire cell (i, j).
func (g *Grid) Center(i, j int) geom.Point {
	return geom.Point{X: g.xc[i], Y: g.yc[j]}
}

// Bounds returns the spatial extent of the grid.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.cfg.Xo, Y: g.cfg.Yo},
		Max: geom.Point{
			X: g.cfg.Xo + g.cfg.Dx*float64(g.cfg.Nx),
			Y: g.cfg.Yo + g.cfg.Dy*float64(g.cfg.Ny),
		},
	}
}

// CellIndex returns the fire cell containing the point (x, y). Cells
// include their lower and left edges. ok is false when the point is
// outside of the grid.
func (g *Grid) CellIndex(x, y float64) (i, j int, ok bool) {
	fi := math.Floor((x - g.cfg.Xo) / g.dx)
	fj := math.Floor((y - g.cfg.Yo) / g.dy)
	if !(fi >= 0 && fi < float64(g.nx) && fj >= 0 && fj < float64(g.ny)) {
		return 0, 0, false
	}
	return int(fi), int(fj), true
}

// Layout returns the mapping between the fire grid and the padded 3-D
// layout of the atmospheric model.
func (g *Grid) Layout() Layout {
	return Layout{Nx: g.cfg.Nx, Ny: g.cfg.Ny, GammaX: g.cfg.GammaX, GammaY: g.cfg.GammaY}
}

// Fields returns the fields owned by g.
func (g *Grid) Fields() *FieldSet { return g.fields }

// AllocateField returns the property array called name, creating a
// zero-valued array the first time the name is requested.
func (g *Grid) AllocateField(name string) *sparse.DenseArray {
	return g.fields.property(name)
}

// FieldSet holds the per-cell values of a fire grid. All arrays have shape
// (nx, ny) and are indexed by (i, j).
type FieldSet struct {
	// FuelIndex holds the fuel of each cell, or NoFuel.
	FuelIndex *sparse.DenseArrayInt

	// Properties holds one array for each fuel property referenced so far.
	Properties map[string]*sparse.DenseArray

	// IgnitionTime is the static ignition time, s.
	IgnitionTime *sparse.DenseArray

	// WalkingIgnitionTime is the time a walking ignition line reaches
	// each cell, s.
	WalkingIgnitionTime *sparse.DenseArray

	nx, ny int
}

func newFieldSet(nx, ny int) *FieldSet {
	f := &FieldSet{
		FuelIndex:           sparse.ZerosDenseInt(nx, ny),
		Properties:          make(map[string]*sparse.DenseArray),
		IgnitionTime:        sparse.ZerosDense(nx, ny),
		WalkingIgnitionTime: sparse.ZerosDense(nx, ny),
		nx:                  nx,
		ny:                  ny,
	}
	for i := range f.FuelIndex.Elements {
		f.FuelIndex.Elements[i] = NoFuel
		f.IgnitionTime.Elements[i] = NeverIgnite
		f.WalkingIgnitionTime.Elements[i] = NeverIgnite
	}
	return f
}

func (f *FieldSet) property(name string) *sparse.DenseArray {
	if a, ok := f.Properties[name]; ok {
		return a
	}
	a := sparse.ZerosDense(f.nx, f.ny)
	f.Properties[name] = a
	return a
}
