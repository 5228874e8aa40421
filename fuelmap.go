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

// Package fuelmap builds the fuel, property and ignition maps read by a
// wildfire spread model coupled to the MesoNH atmospheric model.
package fuelmap

import (
	"fmt"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Version gives the version number.
const Version = "1.0.0"

// DefaultMesoNHVersion is the MesoNH version written to fuel map files
// when none is given.
const DefaultMesoNHVersion = "5.5.0"

// FuelMap holds a fire grid together with the fuel database and fuel class
// that its fuel patches refer to.
type FuelMap struct {
	Grid     *Grid
	Database FuelDatabase
	Class    FuelClass

	// MesoNHVersion is the version of MesoNH the files are written for,
	// as "major.minor.bugfix".
	MesoNHVersion string

	Log logrus.FieldLogger
}

// NewFuelMap returns a fuel map on a new grid built from cfg.
func NewFuelMap(cfg GridConfig, db FuelDatabase, class FuelClass) (*FuelMap, error) {
	g, err := NewGrid(cfg)
	if err != nil {
		return nil, err
	}
	return &FuelMap{
		Grid:          g,
		Database:      db,
		Class:         class,
		MesoNHVersion: DefaultMesoNHVersion,
		Log:           logrus.StandardLogger(),
	}, nil
}

// Step is an operation on a fuel map.
type Step func(*FuelMap) error

// PatchStep returns a step that applies role to region.
func PatchStep(region Region, role Role) Step {
	return func(fm *FuelMap) error {
		return fm.Apply(region, role)
	}
}

// FuelPatch returns a step that sets the fuel of the cells of region to
// the fuel that the fuel map database resolves key to.
func FuelPatch(region Region, key string) Step {
	return func(fm *FuelMap) error {
		return fm.Apply(region, FuelAssignment{Key: key, Database: fm.Database})
	}
}

// WalkingIgnitionStep returns a step that adds a walking ignition line.
func WalkingIgnitionStep(line WalkingIgnitionLine) Step {
	return func(fm *FuelMap) error {
		return fm.WalkingIgnition(line)
	}
}

// Run applies steps in order, stopping at the first error.
func (fm *FuelMap) Run(steps ...Step) error {
	for i, s := range steps {
		if err := s(fm); err != nil {
			return fmt.Errorf("fuelmap: step %d: %w", i+1, err)
		}
	}
	return nil
}

func (fm *FuelMap) log() logrus.FieldLogger {
	if fm.Log == nil {
		return logrus.StandardLogger()
	}
	return fm.Log
}

// Apply applies role to region on the grid of fm.
func (fm *FuelMap) Apply(region Region, role Role) error {
	if err := fm.Grid.Apply(region, role); err != nil {
		return err
	}
	fm.log().WithFields(logrus.Fields{
		"patch": region,
		"role":  role,
	}).Debug("applied patch")
	return nil
}

// WalkingIgnition adds line to the walking ignition field of fm.
func (fm *FuelMap) WalkingIgnition(line WalkingIgnitionLine) error {
	if err := fm.Grid.WalkingIgnition(line); err != nil {
		return err
	}
	fm.log().WithFields(logrus.Fields{
		"role":  line,
		"speed": line.LateralSpeed,
	}).Debug("added walking ignition line")
	return nil
}

// mesoNHVersion parses the MesoNH version into its three components.
func (fm *FuelMap) mesoNHVersion() ([]int32, error) {
	v := fm.MesoNHVersion
	if v == "" {
		v = DefaultMesoNHVersion
	}
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("fuelmap: MesoNH version %q should be major.minor.bugfix", v)
	}
	o := make([]int32, 3)
	for i, p := range parts {
		n, err := cast.ToInt32E(p)
		if err != nil {
			return nil, fmt.Errorf("fuelmap: MesoNH version %q: %v", v, err)
		}
		o[i] = n
	}
	return o, nil
}

func pad16(s string) string {
	return fmt.Sprintf("%-16s", s)
}

// header returns a dataset holding the MesoNH file metadata and the
// atmospheric grid shared by both fuel map files.
func (fm *FuelMap) header() (*Dataset, error) {
	version, err := fm.mesoNHVersion()
	if err != nil {
		return nil, err
	}
	cfg := fm.Grid.Config()
	d := &Dataset{
		Dims: []Dimension{{"X", cfg.Nx}, {"Y", cfg.Ny}},
		Attrs: []Attribute{
			{"Conventions", "CF-1.7 COMODO-1.4"},
			{"MNH_REAL", "8"},
			{"MNH_INT", "4"},
			{"MNH_cleanly_closed", "yes"},
			{"NREFINX", []int32{int32(cfg.GammaX)}},
			{"NREFINY", []int32{int32(cfg.GammaY)}},
		},
	}
	d.Vars = []*Variable{
		{
			Name: "MNHVERSION", Dims: []string{"size3"}, Data: version,
			Attrs: []Attribute{
				{"long_name", "MesoNH version"},
				{"valid_min", []int32{-2147483646}},
				{"valid_max", []int32{2147483647}},
			},
		},
		{
			Name: "MASDEV", Data: []int32{version[0]*10 + version[1]},
			Attrs: []Attribute{{"long_name", "MesoNH version (without bugfix)"}},
		},
		{
			Name: "BUGFIX", Data: []int32{version[2]},
			Attrs: []Attribute{{"long_name", "MesoNH bugfix number"}},
		},
		{
			Name: "STORAGE_TYPE", Dims: []string{"char16"}, Data: pad16("TT"),
			Attrs: []Attribute{
				{"long_name", "STORAGE_TYPE"},
				{"comment", "Storage type for the information written in the FM files"},
			},
		},
		{
			Name: "FILETYPE", Dims: []string{"char16"}, Data: pad16("BlazeData"),
			Attrs: []Attribute{{"long_name", "type of this file"}},
		},
		atmCoordinate("X", "x", atmEdges(cfg.Nx, cfg.Xo, cfg.Dx)),
		atmCoordinate("Y", "y", atmEdges(cfg.Ny, cfg.Yo, cfg.Dy)),
	}
	return d, nil
}

// atmEdges returns the lower edges of n atmospheric cells, as in the
// MesoNH XHAT and YHAT variables.
func atmEdges(n int, o, d float64) []float64 {
	e := make([]float64, n)
	for i := range e {
		e[i] = o + float64(i)*d
	}
	return e
}

func atmCoordinate(name, axis string, v []float64) *Variable {
	return &Variable{
		Name: name, Dims: []string{name}, Data: v,
		Attrs: []Attribute{
			{"COMMENT", axis + "-dimension"},
			{"GRID", []int32{0}},
			{"standard_name", axis + " coordinates"},
			{"units", "m"},
			{"axis", name},
		},
	}
}

// fireField is a named 2-D field of the fire grid together with the
// attributes it is written with.
type fireField struct {
	name  string
	attrs []Attribute
	data  *sparse.DenseArray
}

func fireAttrs(comment, standardName string) []Attribute {
	o := []Attribute{{"COMMENT", comment}, {"GRID", []int32{4}}}
	if standardName != "" {
		o = append(o, Attribute{"standard_name", standardName})
	}
	return o
}

// fireFields returns the fields written to fuel map files, in file order.
// Properties of the fuel class that no patch has set are written as
// zeros.
func (fm *FuelMap) fireFields() []fireField {
	fs := fm.Grid.Fields()
	nx, ny := fm.Grid.Shape()
	fuel := sparse.ZerosDense(nx, ny)
	for i, v := range fs.FuelIndex.Elements {
		fuel.Elements[i] = float64(v)
	}
	o := []fireField{
		{"Ignition", fireAttrs("Ignition map", "Ignition"), fs.IgnitionTime},
		{"WalkingIgnition", fireAttrs("WalkingIgnition map", "WalkingIgnition"), fs.WalkingIgnitionTime},
		{FuelVarName, fireAttrs("Fuel type", ""), fuel},
	}
	for _, p := range fm.Class.Stored() {
		data, ok := fs.Properties[p.Name]
		if !ok {
			data = sparse.ZerosDense(nx, ny)
		}
		attrs := []Attribute{
			{"standard_name", p.Name},
			{"COMMENT", p.Description},
			{"units", p.Unit},
			{"GRID", []int32{4}},
		}
		o = append(o, fireField{p.VarName(), attrs, data})
	}
	return o
}

// Dataset3D returns the content of the FuelMap.nc file read by MesoNH,
// where fire fields use the padded (F, Y, X) layout.
func (fm *FuelMap) Dataset3D() (*Dataset, error) {
	d, err := fm.header()
	if err != nil {
		return nil, err
	}
	l := fm.Grid.Layout()
	d.Dims = append(d.Dims, Dimension{"F", l.Refinement()}, Dimension{"size3", 3}, Dimension{"char16", 16})
	f := make([]float64, l.Refinement())
	for k := range f {
		f[k] = float64(k)
	}
	d.Vars = append(d.Vars, &Variable{
		Name: "F", Dims: []string{"F"}, Data: f,
		Attrs: []Attribute{
			{"COMMENT", "fire-dimension"},
			{"GRID", []int32{0}},
			{"standard_name", "Fire dimension"},
			{"axis", "F"},
		},
	})
	idx := l.fileIndex()
	for _, ff := range fm.fireFields() {
		data := make([]float64, len(idx))
		for p, q := range idx {
			// p indexes a row-major (ny, nx) array; ff.data is (nx, ny).
			data[q] = ff.data.Elements[fm.transposed(p)]
		}
		d.Vars = append(d.Vars, &Variable{
			Name: ff.name, Dims: []string{"F", "Y", "X"}, Attrs: ff.attrs, Data: data,
		})
	}
	return d, nil
}

// transposed converts the index of cell (i, j) in a row-major (ny, nx)
// array to its index in a row-major (nx, ny) array.
func (fm *FuelMap) transposed(p int) int {
	nx, ny := fm.Grid.Shape()
	j, i := p/nx, p%nx
	return i*ny + j
}

// Dataset2D returns the content of the FuelMap2d.nc file, where fire
// fields are stored on the (YFIRE, XFIRE) fire grid.
func (fm *FuelMap) Dataset2D() (*Dataset, error) {
	d, err := fm.header()
	if err != nil {
		return nil, err
	}
	nx, ny := fm.Grid.Shape()
	d.Dims = append(d.Dims, Dimension{"XFIRE", nx}, Dimension{"YFIRE", ny},
		Dimension{"size3", 3}, Dimension{"char16", 16})
	for _, c := range []struct {
		name, axis, atm string
		v               []float64
	}{
		{"XFIRE", "x", "X", fm.Grid.XCenters()},
		{"YFIRE", "y", "Y", fm.Grid.YCenters()},
	} {
		d.Vars = append(d.Vars, &Variable{
			Name: c.name, Dims: []string{c.name}, Data: c.v,
			Attrs: []Attribute{
				{"COMMENT", c.axis + "-fire-dimension"},
				{"GRID", []int32{0}},
				{"standard_name", c.axis + " Fire dimension"},
				{"axis", c.atm},
				{"units", "m"},
			},
		})
	}
	for _, ff := range fm.fireFields() {
		data := make([]float64, nx*ny)
		for p := range data {
			data[p] = ff.data.Elements[fm.transposed(p)]
		}
		d.Vars = append(d.Vars, &Variable{
			Name: ff.name, Dims: []string{"YFIRE", "XFIRE"}, Attrs: ff.attrs, Data: data,
		})
	}
	return d, nil
}
