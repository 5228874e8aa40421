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

	"github.com/ctessum/sparse"
)

// Layout relates the 2-D fire grid to the padded 3-D layout used by the
// atmospheric model, where the fire cells of each atmospheric cell are
// stored along a trailing sub-index k, 0 <= k < GammaX*GammaY.
type Layout struct {
	Nx, Ny         int
	GammaX, GammaY int
}

func (l Layout) validate() error {
	if l.Nx < 1 || l.Ny < 1 || l.GammaX < 1 || l.GammaY < 1 {
		return fmt.Errorf("%w: layout %+v", ErrInvalidDimension, l)
	}
	return nil
}

// Refinement returns the number of fire cells in each atmospheric cell.
func (l Layout) Refinement() int { return l.GammaX * l.GammaY }

// FireShape returns the shape (nx, ny) of the 2-D layout.
func (l Layout) FireShape() []int { return []int{l.Nx * l.GammaX, l.Ny * l.GammaY} }

// PaddedShape returns the shape (Nx, Ny, GammaX*GammaY) of the 3-D layout.
func (l Layout) PaddedShape() []int { return []int{l.Nx, l.Ny, l.Refinement()} }

// FireCell returns the fire cell (i, j) stored at sub-index k of
// atmospheric cell (I, J).
func (l Layout) FireCell(I, J, k int) (i, j int) {
	return I*l.GammaX + k%l.GammaX, J*l.GammaY + k/l.GammaX
}

// MacroCell is the inverse of FireCell.
func (l Layout) MacroCell(i, j int) (I, J, k int) {
	I, a := i/l.GammaX, i%l.GammaX
	J, b := j/l.GammaY, j%l.GammaY
	return I, J, b*l.GammaX + a
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// To3D converts a (nx, ny) array into the padded (Nx, Ny, GammaX*GammaY)
// layout.
func (l Layout) To3D(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := l.check(a.Shape, l.FireShape()); err != nil {
		return nil, err
	}
	p := l.PaddedShape()
	o := sparse.ZerosDense(p[0], p[1], p[2])
	l.each(func(I, J, k, i, j int) {
		o.Set(a.Get(i, j), I, J, k)
	})
	return o, nil
}

// To2D converts a padded (Nx, Ny, GammaX*GammaY) array into the (nx, ny)
// layout.
func (l Layout) To2D(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := l.check(a.Shape, l.PaddedShape()); err != nil {
		return nil, err
	}
	f := l.FireShape()
	o := sparse.ZerosDense(f[0], f[1])
	l.each(func(I, J, k, i, j int) {
		o.Set(a.Get(I, J, k), i, j)
	})
	return o, nil
}

// To3DInt is the integer version of To3D.
func (l Layout) To3DInt(a *sparse.DenseArrayInt) (*sparse.DenseArrayInt, error) {
	if err := l.check(a.Shape, l.FireShape()); err != nil {
		return nil, err
	}
	p := l.PaddedShape()
	o := sparse.ZerosDenseInt(p[0], p[1], p[2])
	l.each(func(I, J, k, i, j int) {
		o.Set(a.Get(i, j), I, J, k)
	})
	return o, nil
}

// To2DInt is the integer version of To2D.
func (l Layout) To2DInt(a *sparse.DenseArrayInt) (*sparse.DenseArrayInt, error) {
	if err := l.check(a.Shape, l.PaddedShape()); err != nil {
		return nil, err
	}
	f := l.FireShape()
	o := sparse.ZerosDenseInt(f[0], f[1])
	l.each(func(I, J, k, i, j int) {
		o.Set(a.Get(I, J, k), i, j)
	})
	return o, nil
}

func (l Layout) check(have, want []int) error {
	if err := l.validate(); err != nil {
		return err
	}
	if !sameShape(have, want) {
		return fmt.Errorf("%w: array shape is %v but should be %v", ErrShapeMismatch, have, want)
	}
	return nil
}

// each calls f for every atmospheric cell (I, J), sub-index k and the
// corresponding fire cell (i, j).
func (l Layout) each(f func(I, J, k, i, j int)) {
	for I := 0; I < l.Nx; I++ {
		for J := 0; J < l.Ny; J++ {
			for k := 0; k < l.Refinement(); k++ {
				i, j := l.FireCell(I, J, k)
				f(I, J, k, i, j)
			}
		}
	}
}

// fileIndex returns, for each element of a row-major (ny, nx) array as
// stored in files, the index of the same cell in a row-major
// (GammaX*GammaY, Ny, Nx) file array.
func (l Layout) fileIndex() []int {
	nx := l.Nx * l.GammaX
	idx := make([]int, nx*l.Ny*l.GammaY)
	l.each(func(I, J, k, i, j int) {
		idx[j*nx+i] = (k*l.Ny+J)*l.Nx + I
	})
	return idx
}
