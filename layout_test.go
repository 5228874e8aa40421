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
	"fmt"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

func TestLayoutCells(t *testing.T) {
	l := Layout{Nx: 3, Ny: 2, GammaX: 2, GammaY: 3}
	seen := make(map[[2]int]bool)
	for I := 0; I < l.Nx; I++ {
		for J := 0; J < l.Ny; J++ {
			for k := 0; k < l.Refinement(); k++ {
				i, j := l.FireCell(I, J, k)
				if seen[[2]int{i, j}] {
					t.Fatalf("fire cell (%d, %d) mapped twice", i, j)
				}
				seen[[2]int{i, j}] = true
				if I2, J2, k2 := l.MacroCell(i, j); I2 != I || J2 != J || k2 != k {
					t.Errorf("(%d, %d, %d) -> (%d, %d) -> (%d, %d, %d)", I, J, k, i, j, I2, J2, k2)
				}
			}
		}
	}
	if len(seen) != 6*6 {
		t.Errorf("want 36 fire cells, have %d", len(seen))
	}
	// Sub-index k runs along x first.
	if i, j := l.FireCell(1, 1, 3); i != 3 || j != 4 {
		t.Errorf("want (3, 4), have (%d, %d)", i, j)
	}
}

func sequence(shape ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	for i := range a.Elements {
		a.Elements[i] = float64(i)
	}
	return a
}

func TestLayoutRoundTrip(t *testing.T) {
	for _, l := range []Layout{
		{Nx: 1, Ny: 1, GammaX: 1, GammaY: 1},
		{Nx: 4, Ny: 3, GammaX: 1, GammaY: 1},
		{Nx: 4, Ny: 4, GammaX: 2, GammaY: 2},
		{Nx: 3, Ny: 5, GammaX: 4, GammaY: 2},
		{Nx: 2, Ny: 1, GammaX: 1, GammaY: 3},
	} {
		t.Run(fmt.Sprintf("%+v", l), func(t *testing.T) {
			f := l.FireShape()
			x := sequence(f[0], f[1])
			p, err := l.To3D(x)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(p.Shape, l.PaddedShape()) {
				t.Errorf("padded shape: want %v, have %v", l.PaddedShape(), p.Shape)
			}
			x2, err := l.To2D(p)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(x.Elements, x2.Elements) {
				t.Error("to2D(to3D(x)) != x")
			}

			ps := l.PaddedShape()
			y := sequence(ps[0], ps[1], ps[2])
			y2d, err := l.To2D(y)
			if err != nil {
				t.Fatal(err)
			}
			y2, err := l.To3D(y2d)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(y.Elements, y2.Elements) {
				t.Error("to3D(to2D(y)) != y")
			}
		})
	}
}

func TestLayoutIdentity(t *testing.T) {
	l := Layout{Nx: 5, Ny: 3, GammaX: 1, GammaY: 1}
	x := sequence(5, 3)
	p, err := l.To3D(x)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Elements, x.Elements) {
		t.Errorf("padded layout should equal 2-D layout when GammaX=GammaY=1: want %v, have %v", x.Elements, p.Elements)
	}
}

func TestLayoutInt(t *testing.T) {
	l := Layout{Nx: 2, Ny: 3, GammaX: 3, GammaY: 2}
	f := l.FireShape()
	x := sparse.ZerosDenseInt(f[0], f[1])
	for i := range x.Elements {
		x.Elements[i] = i % 7
	}
	p, err := l.To3DInt(x)
	if err != nil {
		t.Fatal(err)
	}
	x2, err := l.To2DInt(p)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(x.Elements, x2.Elements) {
		t.Error("integer round trip failed")
	}
}

func TestLayoutShapeMismatch(t *testing.T) {
	l := Layout{Nx: 2, Ny: 2, GammaX: 2, GammaY: 2}
	if _, err := l.To3D(sparse.ZerosDense(4, 5)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("To3D: want ErrShapeMismatch, have %v", err)
	}
	if _, err := l.To2D(sparse.ZerosDense(4, 4)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("To2D: want ErrShapeMismatch, have %v", err)
	}
	if _, err := l.To2DInt(sparse.ZerosDenseInt(2, 2, 3)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("To2DInt: want ErrShapeMismatch, have %v", err)
	}
	bad := Layout{Nx: 0, Ny: 2, GammaX: 1, GammaY: 1}
	if _, err := bad.To3D(sparse.ZerosDense(1, 2)); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("invalid layout: want ErrInvalidDimension, have %v", err)
	}
}

func TestFileIndex(t *testing.T) {
	l := Layout{Nx: 2, Ny: 2, GammaX: 2, GammaY: 1}
	// Fire cell (i, j) is at position j*4+i of a (ny, nx) file array, and
	// at (k*Ny+J)*Nx+I of an (F, Ny, Nx) file array.
	want := []int{0, 4, 1, 5, 2, 6, 3, 7}
	if have := l.fileIndex(); !reflect.DeepEqual(have, want) {
		t.Errorf("want %v, have %v", want, have)
	}
}

func TestEndToEnd(t *testing.T) {
	g, err := NewGrid(GridConfig{Nx: 4, Ny: 4, GammaX: 2, GammaY: 2, Dx: 10, Dy: 10})
	if err != nil {
		t.Fatal(err)
	}
	db := testDatabase(t)
	if err := g.Apply(RectanglePatch{XMin: 0, XMax: 40, YMin: 0, YMax: 40}, FuelAssignment{Key: "grass", Database: db}); err != nil {
		t.Fatal(err)
	}
	if err := g.Apply(RectanglePatch{XMin: 0, XMax: 20, YMin: 0, YMax: 20}, StaticIgnition{Time: 5}); err != nil {
		t.Fatal(err)
	}
	l := g.Layout()
	fs := g.Fields()
	fields := map[string]*sparse.DenseArray{"ignition": fs.IgnitionTime}
	for name, a := range fs.Properties {
		fields[name] = a
	}
	for name, a := range fields {
		p, err := l.To3D(a)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(p.Shape, []int{4, 4, 4}) {
			t.Errorf("%s: padded shape: have %v", name, p.Shape)
		}
		b, err := l.To2D(p)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(b.Shape, []int{8, 8}) {
			t.Errorf("%s: 2-D shape: have %v", name, b.Shape)
		}
		if !reflect.DeepEqual(a.Elements, b.Elements) {
			t.Errorf("%s: round trip changed values", name)
		}
	}
	fuel, err := l.To3DInt(fs.FuelIndex)
	if err != nil {
		t.Fatal(err)
	}
	fuel2, err := l.To2DInt(fuel)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fs.FuelIndex.Elements, fuel2.Elements) {
		t.Error("fuel index round trip changed values")
	}
	ignited := 0
	for _, v := range fs.IgnitionTime.Elements {
		if v == 5 {
			ignited++
		}
	}
	if ignited != 16 {
		t.Errorf("want 16 ignited cells, have %d", ignited)
	}
}
