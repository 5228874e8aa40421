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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// testDataset returns a dataset with a record dimension and variables of
// every supported type.
func testDataset() *Dataset {
	return &Dataset{
		Dims:    []Dimension{{"time", 0}, {"x", 3}, {"y", 2}, {"char4", 4}},
		NumRecs: 2,
		Attrs: []Attribute{
			{"title", "test"},
			{"NREFINX", []int32{2}},
		},
		Vars: []*Variable{
			{Name: "scalar", Data: []int32{7}},
			{Name: "name", Dims: []string{"char4"}, Data: "abcd"},
			{
				Name: "x", Dims: []string{"x"}, Data: []float64{0.5, 1.5, 2.5},
				Attrs: []Attribute{{"units", "m"}, {"GRID", []int32{0}}},
			},
			{Name: "mask", Dims: []string{"y", "x"}, Data: []uint8{1, 0, 1, 0, 1, 0}},
			{Name: "counts", Dims: []string{"x"}, Data: []int16{-1, 2, 3}},
			{Name: "time", Dims: []string{"time"}, Data: []float64{0, 60}},
			{
				Name: "temp", Dims: []string{"time", "y", "x"},
				Data:  []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
				Attrs: []Attribute{{"scale", []float32{0.5}}},
			},
			{Name: "flag", Dims: []string{"time", "x"}, Data: []uint8{1, 2, 3, 4, 5, 6}},
		},
	}
}

func writeAndRead(t *testing.T, d *Dataset) *Dataset {
	path := filepath.Join(t.TempDir(), "test.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d2, err := OpenDataset(f)
	if err != nil {
		t.Fatal(err)
	}
	return d2
}

func compareDatasets(t *testing.T, want, have *Dataset) {
	t.Helper()
	if !reflect.DeepEqual(want.Dims, have.Dims) {
		t.Errorf("dimensions: want %v, have %v", want.Dims, have.Dims)
	}
	if want.NumRecs != have.NumRecs {
		t.Errorf("records: want %d, have %d", want.NumRecs, have.NumRecs)
	}
	if !reflect.DeepEqual(want.Attrs, have.Attrs) {
		t.Errorf("attributes: want %v, have %v", want.Attrs, have.Attrs)
	}
	if len(want.Vars) != len(have.Vars) {
		t.Fatalf("want %d variables, have %d", len(want.Vars), len(have.Vars))
	}
	for i, w := range want.Vars {
		if h := have.Vars[i]; !reflect.DeepEqual(w, h) {
			t.Errorf("variable %d: want %+v, have %+v", i, w, h)
		}
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	d := testDataset()
	compareDatasets(t, d, writeAndRead(t, d))
}

func TestDatasetNoRecords(t *testing.T) {
	d := testDataset()
	d.NumRecs = 0
	var vars []*Variable
	for _, v := range d.Vars {
		if len(v.Dims) == 0 || v.Dims[0] != "time" {
			vars = append(vars, v)
		}
	}
	d.Vars = vars
	compareDatasets(t, d, writeAndRead(t, d))
}

func TestDatasetWriteFixedSize(t *testing.T) {
	// Each variable ends exactly where its data does, and the last one
	// ends the file.
	tests := []struct {
		name string
		d    *Dataset
	}{
		{name: "scalar", d: &Dataset{Vars: []*Variable{{Name: "LAT0", Data: []float64{43.5}}}}},
		{
			name: "one element",
			d: &Dataset{
				Dims: []Dimension{{"n", 1}},
				Vars: []*Variable{{Name: "v", Dims: []string{"n"}, Data: []float32{-1}}},
			},
		},
		{
			name: "grid",
			d: &Dataset{
				Dims: []Dimension{{"y", 2}, {"x", 3}},
				Vars: []*Variable{
					{Name: "a", Dims: []string{"y", "x"}, Data: []float64{1, 2, 3, 4, 5, 6}},
					{Name: "b", Dims: []string{"x"}, Data: []int32{7, 8, 9}},
				},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			compareDatasets(t, test.d, writeAndRead(t, test.d))
		})
	}
}

func TestDatasetCheck(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Dataset)
		shape  bool
	}{
		{name: "repeated dimension", modify: func(d *Dataset) { d.Dims = append(d.Dims, Dimension{"x", 3}) }},
		{name: "two record dimensions", modify: func(d *Dataset) { d.Dims = append(d.Dims, Dimension{"t2", 0}) }},
		{name: "repeated variable", modify: func(d *Dataset) { d.Vars = append(d.Vars, d.Vars[0]) }},
		{name: "missing dimension", modify: func(d *Dataset) { d.Vars[2].Dims = []string{"z"} }},
		{name: "record not outermost", modify: func(d *Dataset) { d.Vars[7].Dims = []string{"x", "time"} }},
		{name: "bad data type", modify: func(d *Dataset) { d.Vars[0].Data = []int{1} }},
		{name: "bad attribute", modify: func(d *Dataset) { d.Attrs = append(d.Attrs, Attribute{"bad", 1.5}) }},
		{name: "wrong length", modify: func(d *Dataset) { d.Vars[2].Data = []float64{1} }, shape: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := testDataset()
			test.modify(d)
			err := d.check()
			if err == nil {
				t.Fatal("want an error")
			}
			if test.shape && !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("want ErrShapeMismatch, have %v", err)
			}
		})
	}
}

func TestDatasetAddDim(t *testing.T) {
	d := testDataset()
	if err := d.AddDim("x", 3); err != nil {
		t.Error(err)
	}
	if err := d.AddDim("x", 4); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("want ErrShapeMismatch, have %v", err)
	}
	if err := d.AddDim("z", 5); err != nil {
		t.Error(err)
	}
	if dim, ok := d.Dim("z"); !ok || dim.Len != 5 {
		t.Errorf("have %v, %v", dim, ok)
	}
}
