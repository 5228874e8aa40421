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
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// DefaultFireFields are the variables that the rearranger treats as fire
// fields when Rearranger.FireFields is empty: the fire fields written by
// MesoNH/Blaze and the fields of fuel map files. Names are matched with
// path.Match.
var DefaultFireFields = []string{
	"LSPHI", "BMAP", "FMR0", "FIRERW", "FMASE", "FMAWC",
	"FMFLUXHDH", "FMFLUXHDW", "FMWINDU", "FMWINDV", "FMGRADRHOX", "FMGRADRHOY",
	"Ignition", "WalkingIgnition", "Fuel[0-9][0-9]",
}

// Rearranger converts the fire fields of datasets between the padded 3-D
// layout (..., F, Y, X) and the 2-D fire grid layout (..., YFIRE, XFIRE).
// Leading dimensions such as time are kept. All other dimensions,
// attributes and variables are copied unchanged and in order.
type Rearranger struct {
	// GammaX and GammaY are the refinement ratios. When zero, they are read
	// from the NREFINX and NREFINY global attributes or from a fire field
	// comment of the form "... fire grid (GammaX,GammaY)".
	GammaX, GammaY int

	// FireFields are patterns of the names of fire field variables.
	// DefaultFireFields is used if it is empty.
	FireFields []string

	// XFireDim and YFireDim name the fire grid dimensions and their
	// coordinate variables. The defaults are "xfire" and "yfire". To3D
	// also accepts dimensions whose names differ only in case.
	XFireDim, YFireDim string

	// FireDim, YDim and XDim name the padded dimensions created by To3D.
	// The defaults are "F", "Y" and "X".
	FireDim, YDim, XDim string

	// XCoord and YCoord are the atmospheric coordinate variables the fire
	// grid coordinates are derived from. The first of "ni_u" and "X" (and
	// "nj_v" and "Y") present in the dataset is used by default.
	XCoord, YCoord string

	Log logrus.FieldLogger
}

func (r *Rearranger) setDefaults() {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&r.XFireDim, "xfire")
	def(&r.YFireDim, "yfire")
	def(&r.FireDim, "F")
	def(&r.YDim, "Y")
	def(&r.XDim, "X")
	if len(r.FireFields) == 0 {
		r.FireFields = DefaultFireFields
	}
	if r.Log == nil {
		r.Log = logrus.StandardLogger()
	}
}

// IsFireField returns whether the variable called name is a fire field.
func (r *Rearranger) IsFireField(name string) bool {
	patterns := r.FireFields
	if len(patterns) == 0 {
		patterns = DefaultFireFields
	}
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

var fireGridComment = regexp.MustCompile(`fire grid \(\s*(\d+)\s*,\s*(\d+)\s*\)`)

// refinement returns the refinement ratios of d.
func (r *Rearranger) refinement(d *Dataset, fire []*Variable) (gx, gy int, ok bool) {
	if r.GammaX > 0 && r.GammaY > 0 {
		return r.GammaX, r.GammaY, true
	}
	gx, okx := attrInt(d.Attr("NREFINX"))
	gy, oky := attrInt(d.Attr("NREFINY"))
	if okx && oky {
		return gx, gy, true
	}
	for _, v := range fire {
		for _, name := range []string{"comment", "COMMENT"} {
			s, isString := v.Attr(name).(string)
			if !isString {
				continue
			}
			m := fireGridComment.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			gx, _ = strconv.Atoi(m[1])
			gy, _ = strconv.Atoi(m[2])
			return gx, gy, true
		}
	}
	return 0, 0, false
}

func attrInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case []int32:
		if len(t) == 1 {
			return int(t[0]), true
		}
	case []int16:
		if len(t) == 1 {
			return int(t[0]), true
		}
	case []uint8:
		if len(t) == 1 {
			return int(t[0]), true
		}
	}
	return 0, false
}

// fireVars returns the fire fields of d.
func (r *Rearranger) fireVars(d *Dataset) []*Variable {
	var o []*Variable
	for _, v := range d.Vars {
		if r.IsFireField(v.Name) {
			o = append(o, v)
		}
	}
	return o
}

// To2D returns a copy of d with every fire field converted from the
// padded 3-D layout to the 2-D fire grid layout. The fire grid dimensions
// are added, along with fire grid coordinate variables when the
// atmospheric coordinates are available. d is not modified; variables
// that are not converted share their data with d.
func (r Rearranger) To2D(d *Dataset) (*Dataset, error) {
	r.setDefaults()
	fire := r.fireVars(d)
	if len(fire) == 0 {
		r.Log.Info("no fire fields to rearrange")
		return d.clone(), nil
	}
	var nx, ny, nf int
	var trailing []string
	for _, v := range fire {
		if len(v.Dims) < 3 {
			return nil, fmt.Errorf("%w: fire field %s has dimensions %v; at least 3 are needed",
				ErrShapeMismatch, v.Name, v.Dims)
		}
		t := v.Dims[len(v.Dims)-3:]
		shape, err := d.Shape(&Variable{Name: v.Name, Dims: t})
		if err != nil {
			return nil, err
		}
		if trailing == nil {
			trailing = t
			nf, ny, nx = shape[0], shape[1], shape[2]
		} else if !sameNames(t, trailing) {
			return nil, fmt.Errorf("%w: fire field %s has trailing dimensions %v but %s has %v",
				ErrShapeMismatch, v.Name, t, fire[0].Name, trailing)
		}
	}
	gx, gy, ok := r.refinement(d, fire)
	if !ok {
		return nil, fmt.Errorf("fuelmap: unable to determine the fire grid refinement ratio")
	}
	l := Layout{Nx: nx, Ny: ny, GammaX: gx, GammaY: gy}
	if err := l.validate(); err != nil {
		return nil, err
	}
	if nf != l.Refinement() {
		return nil, fmt.Errorf("%w: fire dimension %s has length %d but refinement (%d,%d) needs %d",
			ErrShapeMismatch, trailing[0], nf, gx, gy, l.Refinement())
	}
	if d.Var(r.XFireDim) != nil || d.Var(r.YFireDim) != nil {
		return nil, fmt.Errorf("fuelmap: dataset already has fire grid coordinates %s, %s", r.XFireDim, r.YFireDim)
	}

	o := d.clone()
	fs := l.FireShape()
	if err := o.AddDim(r.XFireDim, fs[0]); err != nil {
		return nil, err
	}
	if err := o.AddDim(r.YFireDim, fs[1]); err != nil {
		return nil, err
	}
	coords := r.fireCoordinates(d, fs[0], fs[1], gx, gy)
	idx := l.fileIndex()
	vars := make([]*Variable, 0, len(o.Vars)+len(coords))
	vars = append(vars, coords...)
	for _, v := range o.Vars {
		if r.IsFireField(v.Name) {
			data, err := permute(v.Data, idx, true)
			if err != nil {
				return nil, fmt.Errorf("fuelmap: fire field %s: %w", v.Name, err)
			}
			dims := append(append([]string(nil), v.Dims[:len(v.Dims)-3]...), r.YFireDim, r.XFireDim)
			v = &Variable{Name: v.Name, Dims: dims, Attrs: v.Attrs, Data: data}
		}
		vars = append(vars, v)
	}
	o.Vars = vars
	r.Log.WithFields(logrus.Fields{
		"fields": len(fire),
		"nx":     fs[0],
		"ny":     fs[1],
	}).Info("rearranged fire fields to 2-D")
	return o, nil
}

// fireCoordinates returns the coordinate variables of the fire grid, or
// nil if the atmospheric coordinates are missing.
func (r *Rearranger) fireCoordinates(d *Dataset, nx, ny, gx, gy int) []*Variable {
	x := r.coordinate(d, r.XCoord, "ni_u", "X")
	y := r.coordinate(d, r.YCoord, "nj_v", "Y")
	if len(x) < 2 || len(y) < 2 {
		r.Log.Warn("atmospheric coordinates not found; fire grid coordinates are not written")
		return nil
	}
	xf := fireCenters(x, nx, gx)
	yf := fireCenters(y, ny, gy)
	attrs := func(axis, name string) []Attribute {
		return []Attribute{
			{Name: "long_name", Value: axis + "-dimension fire grid"},
			{Name: "standard_name", Value: axis + " coordinates fire grid"},
			{Name: "units", Value: "m"},
			{Name: "axis", Value: name},
		}
	}
	return []*Variable{
		{Name: r.XFireDim, Dims: []string{r.XFireDim}, Attrs: attrs("x", r.XFireDim), Data: xf},
		{Name: r.YFireDim, Dims: []string{r.YFireDim}, Attrs: attrs("y", r.YFireDim), Data: yf},
	}
}

// fireCenters returns n fire cell centers refining the regularly spaced
// atmospheric coordinates c by gamma.
func fireCenters(c []float64, n, gamma int) []float64 {
	d := (c[1] - c[0]) / float64(gamma)
	return floats.Span(make([]float64, n), c[0]+0.5*d, c[0]+(float64(n)-0.5)*d)
}

// coordinate returns the values of the first 1-D variable found among
// names.
func (r *Rearranger) coordinate(d *Dataset, names ...string) []float64 {
	for _, name := range names {
		if name == "" {
			continue
		}
		v := d.Var(name)
		if v == nil || len(v.Dims) != 1 {
			continue
		}
		switch t := v.Data.(type) {
		case []float64:
			return t
		case []float32:
			o := make([]float64, len(t))
			for i, f := range t {
				o[i] = float64(f)
			}
			return o
		}
	}
	return nil
}

// To3D is the inverse of To2D: it returns a copy of d with every fire
// field converted from the 2-D fire grid layout back to the padded 3-D
// layout. The fire grid dimensions and coordinate variables are removed
// when nothing else uses them.
func (r Rearranger) To3D(d *Dataset) (*Dataset, error) {
	r.setDefaults()
	r.XFireDim, r.YFireDim = d.matchDim(r.XFireDim), d.matchDim(r.YFireDim)
	fire := r.fireVars(d)
	if len(fire) == 0 {
		r.Log.Info("no fire fields to rearrange")
		return d.clone(), nil
	}
	for _, v := range fire {
		n := len(v.Dims)
		if n < 2 || v.Dims[n-2] != r.YFireDim || v.Dims[n-1] != r.XFireDim {
			return nil, fmt.Errorf("%w: fire field %s has dimensions %v but should end with (%s, %s)",
				ErrShapeMismatch, v.Name, v.Dims, r.YFireDim, r.XFireDim)
		}
	}
	xf, okx := d.Dim(r.XFireDim)
	yf, oky := d.Dim(r.YFireDim)
	if !okx || !oky {
		return nil, fmt.Errorf("%w: missing fire grid dimensions %s, %s", ErrShapeMismatch, r.XFireDim, r.YFireDim)
	}
	gx, gy, ok := r.refinement(d, fire)
	if !ok {
		xd, okx := d.Dim(r.XDim)
		yd, oky := d.Dim(r.YDim)
		if !okx || !oky || xd.Len == 0 || yd.Len == 0 {
			return nil, fmt.Errorf("fuelmap: unable to determine the fire grid refinement ratio")
		}
		gx, gy = xf.Len/xd.Len, yf.Len/yd.Len
	}
	if gx < 1 || gy < 1 || xf.Len%gx != 0 || yf.Len%gy != 0 {
		return nil, fmt.Errorf("%w: fire grid (%d, %d) is not divisible by refinement (%d, %d)",
			ErrShapeMismatch, xf.Len, yf.Len, gx, gy)
	}
	l := Layout{Nx: xf.Len / gx, Ny: yf.Len / gy, GammaX: gx, GammaY: gy}
	if err := l.validate(); err != nil {
		return nil, err
	}

	o := d.clone()
	for _, dim := range []Dimension{{r.FireDim, l.Refinement()}, {r.YDim, l.Ny}, {r.XDim, l.Nx}} {
		if err := o.AddDim(dim.Name, dim.Len); err != nil {
			return nil, err
		}
	}
	idx := l.fileIndex()
	vars := make([]*Variable, 0, len(o.Vars))
	for _, v := range o.Vars {
		switch {
		case r.IsFireField(v.Name):
			data, err := permute(v.Data, idx, false)
			if err != nil {
				return nil, fmt.Errorf("fuelmap: fire field %s: %w", v.Name, err)
			}
			dims := append(append([]string(nil), v.Dims[:len(v.Dims)-2]...), r.FireDim, r.YDim, r.XDim)
			v = &Variable{Name: v.Name, Dims: dims, Attrs: v.Attrs, Data: data}
		case (v.Name == r.XFireDim || v.Name == r.YFireDim) && len(v.Dims) == 1 && v.Dims[0] == v.Name:
			continue
		}
		vars = append(vars, v)
	}
	o.Vars = vars
	o.dropUnusedDims(r.XFireDim, r.YFireDim)
	r.Log.WithFields(logrus.Fields{
		"fields": len(fire),
		"nx":     l.Nx,
		"ny":     l.Ny,
	}).Info("rearranged fire fields to 3-D")
	return o, nil
}

// clone returns a shallow copy of d with its own slices of dimensions,
// attributes and variables.
func (d *Dataset) clone() *Dataset {
	return &Dataset{
		Dims:    append([]Dimension(nil), d.Dims...),
		NumRecs: d.NumRecs,
		Attrs:   append([]Attribute(nil), d.Attrs...),
		Vars:    append([]*Variable(nil), d.Vars...),
	}
}

// dropUnusedDims removes the named dimensions if no variable uses them.
func (d *Dataset) dropUnusedDims(names ...string) {
	used := make(map[string]bool)
	for _, v := range d.Vars {
		for _, dim := range v.Dims {
			used[dim] = true
		}
	}
	drop := make(map[string]bool)
	for _, n := range names {
		drop[n] = !used[n]
	}
	dims := d.Dims[:0]
	for _, dim := range d.Dims {
		if !drop[dim.Name] {
			dims = append(dims, dim)
		}
	}
	d.Dims = dims
}

// matchDim returns name if d has a dimension called name. Otherwise it
// returns the name of a dimension of d equal to name ignoring case, such
// as the XFIRE and YFIRE dimensions of fuel map files.
func (d *Dataset) matchDim(name string) string {
	if _, ok := d.Dim(name); ok {
		return name
	}
	for _, dim := range d.Dims {
		if strings.EqualFold(dim.Name, name) {
			return dim.Name
		}
	}
	return name
}

func sameNames(a, b []string) bool {
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

// permute reorders the trailing block of each leading slab of data. When
// to2D is true element idx[p] of each slab moves to position p, otherwise
// element p moves to position idx[p].
func permute(data interface{}, idx []int, to2D bool) (interface{}, error) {
	switch t := data.(type) {
	case []float64:
		return permuteSlice(t, idx, to2D)
	case []float32:
		return permuteSlice(t, idx, to2D)
	case []int32:
		return permuteSlice(t, idx, to2D)
	case []int16:
		return permuteSlice(t, idx, to2D)
	case []uint8:
		return permuteSlice(t, idx, to2D)
	}
	return nil, fmt.Errorf("unsupported data type %T", data)
}

func permuteSlice[T any](s []T, idx []int, to2D bool) ([]T, error) {
	n := len(idx)
	if n == 0 || len(s)%n != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of %d fire cells", ErrShapeMismatch, len(s), n)
	}
	o := make([]T, len(s))
	for off := 0; off < len(s); off += n {
		for p, q := range idx {
			if to2D {
				o[off+p] = s[off+q]
			} else {
				o[off+q] = s[off+p]
			}
		}
	}
	return o, nil
}
