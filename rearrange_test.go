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
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// mesoNHOutput returns a dataset shaped like a MesoNH output file with one
// fire field over 2 records, an atmospheric mesh of 3x2 cells and a
// refinement of (2,2).
func mesoNHOutput() *Dataset {
	const nrec, nf, ny, nx = 2, 4, 2, 3
	lsphi := make([]float64, nrec*nf*ny*nx)
	for i := range lsphi {
		lsphi[i] = float64(i)
	}
	return &Dataset{
		Dims:    []Dimension{{"time", 0}, {"F", nf}, {"nj", ny}, {"ni", nx}},
		NumRecs: nrec,
		Attrs:   []Attribute{{"title", "MesoNH output"}},
		Vars: []*Variable{
			{Name: "ni_u", Dims: []string{"ni"}, Data: []float64{0, 10, 20}},
			{Name: "nj_v", Dims: []string{"nj"}, Data: []float64{100, 150}},
			{Name: "time", Dims: []string{"time"}, Data: []float64{0, 60}},
			{
				Name: "LSPHI", Dims: []string{"time", "F", "nj", "ni"}, Data: lsphi,
				Attrs: []Attribute{{"comment", "Level set function on fire grid (2,2)"}},
			},
			{Name: "THT", Dims: []string{"nj", "ni"}, Data: []float32{1, 2, 3, 4, 5, 6}},
		},
	}
}

func TestRearrangeMesoNH(t *testing.T) {
	d := mesoNHOutput()
	r := Rearranger{YDim: "nj", XDim: "ni"}
	d2, err := r.To2D(d)
	if err != nil {
		t.Fatal(err)
	}
	if xf, ok := d2.Dim("xfire"); !ok || xf.Len != 6 {
		t.Errorf("xfire: have %v, %v", xf, ok)
	}
	if yf, ok := d2.Dim("yfire"); !ok || yf.Len != 4 {
		t.Errorf("yfire: have %v, %v", yf, ok)
	}
	v := d2.Var("LSPHI")
	if want := []string{"time", "yfire", "xfire"}; !reflect.DeepEqual(v.Dims, want) {
		t.Errorf("dimensions: want %v, have %v", want, v.Dims)
	}
	l := Layout{Nx: 3, Ny: 2, GammaX: 2, GammaY: 2}
	data := v.Data.([]float64)
	for rec := 0; rec < 2; rec++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 6; i++ {
				I, J, k := l.MacroCell(i, j)
				want := float64(rec*24 + (k*2+J)*3 + I)
				if have := data[rec*24+j*6+i]; have != want {
					t.Errorf("record %d, fire cell (%d, %d): want %g, have %g", rec, i, j, want, have)
				}
			}
		}
	}

	xf := d2.Var("xfire").Data.([]float64)
	if want := []float64{2.5, 7.5, 12.5, 17.5, 22.5, 27.5}; !floats.EqualApprox(xf, want, testTolerance) {
		t.Errorf("xfire: want %v, have %v", want, xf)
	}
	yf := d2.Var("yfire").Data.([]float64)
	if want := []float64{112.5, 137.5, 162.5, 187.5}; !floats.EqualApprox(yf, want, testTolerance) {
		t.Errorf("yfire: want %v, have %v", want, yf)
	}
	if d2.Var("THT") != d.Var("THT") {
		t.Error("variables other than fire fields should be kept")
	}
	if d.Var("LSPHI").Dims[1] != "F" {
		t.Error("the input dataset was modified")
	}

	d3, err := r.To3D(d2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d, d3) {
		t.Errorf("to3D(to2D(d)) != d:\nwant %+v\nhave %+v", d, d3)
	}
}

func TestRearrangeFuelMap(t *testing.T) {
	fm := testFuelMap(t)
	d, err := fm.Dataset3D()
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Rearranger{}.To2D(d)
	if err != nil {
		t.Fatal(err)
	}
	want2D, err := fm.Dataset2D()
	if err != nil {
		t.Fatal(err)
	}
	var r Rearranger
	for _, w := range want2D.Vars {
		if !r.IsFireField(w.Name) {
			continue
		}
		h := d2.Var(w.Name)
		if h == nil {
			t.Errorf("missing variable %s", w.Name)
			continue
		}
		if !reflect.DeepEqual(w.Data, h.Data) {
			t.Errorf("%s: want %v, have %v", w.Name, w.Data, h.Data)
		}
	}
	if xf := d2.Var("xfire").Data.([]float64); !floats.EqualApprox(xf, fm.Grid.XCenters(), testTolerance) {
		t.Errorf("xfire: want %v, have %v", fm.Grid.XCenters(), xf)
	}

	d3, err := Rearranger{}.To3D(d2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d, d3) {
		t.Error("to3D(to2D(d)) != d")
	}
}

func TestRearrangeFuelMap2D(t *testing.T) {
	fm := testFuelMap(t)
	want, err := fm.Dataset3D()
	if err != nil {
		t.Fatal(err)
	}
	d2, err := fm.Dataset2D()
	if err != nil {
		t.Fatal(err)
	}
	have, err := Rearranger{}.To3D(d2)
	if err != nil {
		t.Fatal(err)
	}
	var r Rearranger
	for _, w := range want.Vars {
		if !r.IsFireField(w.Name) {
			continue
		}
		h := have.Var(w.Name)
		if h == nil {
			t.Errorf("missing variable %s", w.Name)
			continue
		}
		if !reflect.DeepEqual(w.Dims, h.Dims) {
			t.Errorf("%s dimensions: want %v, have %v", w.Name, w.Dims, h.Dims)
		}
		if !reflect.DeepEqual(w.Data, h.Data) {
			t.Errorf("%s: want %v, have %v", w.Name, w.Data, h.Data)
		}
	}
	for _, name := range []string{"XFIRE", "YFIRE"} {
		if _, ok := have.Dim(name); ok {
			t.Errorf("dimension %s should be removed", name)
		}
		if have.Var(name) != nil {
			t.Errorf("variable %s should be removed", name)
		}
	}
}

func TestRearrangeRatioFromDimensions(t *testing.T) {
	d := mesoNHOutput()
	d.Var("LSPHI").Attrs = nil
	r := Rearranger{GammaX: 2, GammaY: 2, YDim: "nj", XDim: "ni"}
	d2, err := r.To2D(d)
	if err != nil {
		t.Fatal(err)
	}
	r.GammaX, r.GammaY = 0, 0
	d3, err := r.To3D(d2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Var("LSPHI"), d3.Var("LSPHI")) {
		t.Error("round trip with the refinement ratio from dimension lengths failed")
	}
}

func TestRearrangeErrors(t *testing.T) {
	t.Run("no ratio", func(t *testing.T) {
		d := mesoNHOutput()
		d.Var("LSPHI").Attrs = nil
		if _, err := (Rearranger{}).To2D(d); err == nil {
			t.Error("want an error")
		}
	})
	t.Run("wrong ratio", func(t *testing.T) {
		d := mesoNHOutput()
		if _, err := (Rearranger{GammaX: 3, GammaY: 2}).To2D(d); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("want ErrShapeMismatch, have %v", err)
		}
	})
	t.Run("too few dimensions", func(t *testing.T) {
		d := mesoNHOutput()
		d.Vars = append(d.Vars, &Variable{Name: "BMAP", Dims: []string{"nj", "ni"}, Data: make([]float64, 6)})
		if _, err := (Rearranger{}).To2D(d); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("want ErrShapeMismatch, have %v", err)
		}
	})
	t.Run("not 2-D", func(t *testing.T) {
		d := mesoNHOutput()
		if _, err := (Rearranger{}).To3D(d); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("want ErrShapeMismatch, have %v", err)
		}
	})
	t.Run("already rearranged", func(t *testing.T) {
		d, err := (Rearranger{}).To2D(mesoNHOutput())
		if err != nil {
			t.Fatal(err)
		}
		d.Var("LSPHI").Dims = []string{"time", "F", "nj", "ni"}
		if _, err := (Rearranger{}).To2D(d); err == nil {
			t.Error("want an error")
		}
	})
}

func TestRearrangeNoFireFields(t *testing.T) {
	d := &Dataset{
		Dims: []Dimension{{"x", 2}},
		Vars: []*Variable{{Name: "a", Dims: []string{"x"}, Data: []float64{1, 2}}},
	}
	d2, err := Rearranger{}.To2D(d)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d, d2) {
		t.Error("datasets without fire fields should be unchanged")
	}
}

func TestIsFireField(t *testing.T) {
	r := Rearranger{}
	for name, want := range map[string]bool{
		"LSPHI": true, "Fuel01": true, "Fuel22": true, "Ignition": true,
		"THT": false, "Fuel1": false, "XFIRE": false,
	} {
		if have := r.IsFireField(name); have != want {
			t.Errorf("%s: want %v, have %v", name, want, have)
		}
	}
	r.FireFields = []string{"FM*"}
	if !r.IsFireField("FMR0") || r.IsFireField("LSPHI") {
		t.Error("custom patterns are not used")
	}
}
