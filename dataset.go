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
	"os"

	"github.com/ctessum/cdf"
)

// Dimension is a NetCDF dimension. The record (unlimited) dimension has
// Len 0.
type Dimension struct {
	Name string
	Len  int
}

// Attribute is a NetCDF attribute. Value is one of []uint8, string,
// []int16, []int32, []float32 or []float64.
type Attribute struct {
	Name  string
	Value interface{}
}

// Variable is a NetCDF variable held in memory.
type Variable struct {
	Name  string
	Dims  []string
	Attrs []Attribute

	// Data holds the row-major values of the variable, as one of
	// []uint8, string (for CHAR variables), []int16, []int32, []float32
	// or []float64.
	Data interface{}
}

// Attr returns the value of attribute name, or nil.
func (v *Variable) Attr(name string) interface{} { return findAttr(v.Attrs, name) }

// Dataset is the content of a NetCDF classic file. Dimensions, attributes
// and variables keep their file order.
type Dataset struct {
	Dims    []Dimension
	NumRecs int // number of records along the record dimension
	Attrs   []Attribute
	Vars    []*Variable
}

func findAttr(attrs []Attribute, name string) interface{} {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

// Attr returns the value of global attribute name, or nil.
func (d *Dataset) Attr(name string) interface{} { return findAttr(d.Attrs, name) }

// Var returns the variable called name, or nil.
func (d *Dataset) Var(name string) *Variable {
	for _, v := range d.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Dim returns the dimension called name.
func (d *Dataset) Dim(name string) (Dimension, bool) {
	for _, dim := range d.Dims {
		if dim.Name == name {
			return dim, true
		}
	}
	return Dimension{}, false
}

// AddDim adds a dimension, or returns an error if one with the same name
// but a different length already exists.
func (d *Dataset) AddDim(name string, n int) error {
	if dim, ok := d.Dim(name); ok {
		if dim.Len != n {
			return fmt.Errorf("%w: dimension %s has length %d, not %d", ErrShapeMismatch, name, dim.Len, n)
		}
		return nil
	}
	d.Dims = append(d.Dims, Dimension{Name: name, Len: n})
	return nil
}

// Shape returns the lengths of the dimensions of v, using NumRecs for the
// record dimension.
func (d *Dataset) Shape(v *Variable) ([]int, error) {
	o := make([]int, len(v.Dims))
	for i, name := range v.Dims {
		dim, ok := d.Dim(name)
		if !ok {
			return nil, fmt.Errorf("fuelmap: variable %s: no dimension %s", v.Name, name)
		}
		o[i] = dim.Len
		if dim.Len == 0 {
			o[i] = d.NumRecs
		}
	}
	return o, nil
}

func product(s []int) int {
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}

func dataLen(data interface{}) (int, bool) {
	switch t := data.(type) {
	case []uint8:
		return len(t), true
	case string:
		return len(t), true
	case []int16:
		return len(t), true
	case []int32:
		return len(t), true
	case []float32:
		return len(t), true
	case []float64:
		return len(t), true
	}
	return 0, false
}

// check returns an error for any content that cannot be written to a
// NetCDF classic file.
func (d *Dataset) check() error {
	dims := make(map[string]bool)
	var record string
	for _, dim := range d.Dims {
		if dims[dim.Name] {
			return fmt.Errorf("fuelmap: repeated dimension %s", dim.Name)
		}
		dims[dim.Name] = true
		if dim.Len < 0 {
			return fmt.Errorf("fuelmap: dimension %s has negative length", dim.Name)
		}
		if dim.Len == 0 {
			if record != "" {
				return fmt.Errorf("fuelmap: more than one record dimension (%s, %s)", record, dim.Name)
			}
			record = dim.Name
		}
	}
	if err := checkAttrs("", d.Attrs); err != nil {
		return err
	}
	vars := make(map[string]bool)
	for _, v := range d.Vars {
		if vars[v.Name] {
			return fmt.Errorf("fuelmap: repeated variable %s", v.Name)
		}
		vars[v.Name] = true
		for i, name := range v.Dims {
			if !dims[name] {
				return fmt.Errorf("fuelmap: variable %s: no dimension %s", v.Name, name)
			}
			if name == record && i != 0 {
				return fmt.Errorf("fuelmap: variable %s: record dimension %s is not outermost", v.Name, name)
			}
		}
		if err := checkAttrs(v.Name, v.Attrs); err != nil {
			return err
		}
		n, ok := dataLen(v.Data)
		if !ok {
			return fmt.Errorf("fuelmap: variable %s: invalid data type %T", v.Name, v.Data)
		}
		shape, err := d.Shape(v)
		if err != nil {
			return err
		}
		if want := product(shape); n != want {
			return fmt.Errorf("%w: variable %s has %d values but dimensions %v need %d",
				ErrShapeMismatch, v.Name, n, shape, want)
		}
	}
	return nil
}

func checkAttrs(v string, attrs []Attribute) error {
	names := make(map[string]bool)
	for _, a := range attrs {
		if names[a.Name] {
			return fmt.Errorf("fuelmap: variable %q: repeated attribute %s", v, a.Name)
		}
		names[a.Name] = true
		if _, ok := dataLen(a.Value); !ok {
			return fmt.Errorf("fuelmap: variable %q: attribute %s has invalid type %T", v, a.Name, a.Value)
		}
	}
	return nil
}

// OpenDataset reads the whole content of a NetCDF classic file.
func OpenDataset(f *os.File) (*Dataset, error) {
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("fuelmap: opening %s: %w", f.Name(), err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	h := cf.Header
	d := &Dataset{NumRecs: int(h.NumRecs(fi.Size()))}
	lengths := h.Lengths("")
	for i, name := range h.Dimensions("") {
		d.Dims = append(d.Dims, Dimension{Name: name, Len: lengths[i]})
	}
	d.Attrs = readAttrs(h, "")
	for _, name := range h.Variables() {
		v := &Variable{
			Name:  name,
			Dims:  h.Dimensions(name),
			Attrs: readAttrs(h, name),
		}
		if len(v.Dims) == 0 {
			v.Dims = nil
		}
		shape, err := d.Shape(v)
		if err != nil {
			return nil, err
		}
		n := product(shape)
		buf := h.ZeroValue(name, n)
		if _, isChar := buf.(string); isChar {
			buf = make([]uint8, n)
		}
		if n > 0 {
			if err := readVar(cf, name, shape, buf); err != nil {
				return nil, fmt.Errorf("fuelmap: reading variable %s from %s: %w", name, f.Name(), err)
			}
		}
		if _, isChar := h.ZeroValue(name, 0).(string); isChar {
			v.Data = string(buf.([]uint8))
		} else {
			v.Data = buf
		}
		d.Vars = append(d.Vars, v)
	}
	return d, nil
}

// readVar reads variable name into buf. Record variables are read one
// record at a time.
func readVar(cf *cdf.File, name string, shape []int, buf interface{}) error {
	if !cf.Header.IsRecordVariable(name) {
		_, err := cf.Reader(name, nil, nil).Read(buf)
		return err
	}
	recLen := product(shape[1:])
	begin := make([]int, len(shape))
	end := make([]int, len(shape))
	for i := 1; i < len(shape); i++ {
		end[i] = shape[i] - 1
	}
	for rec := 0; rec < shape[0]; rec++ {
		begin[0], end[0] = rec, rec
		if _, err := cf.Reader(name, begin, end).Read(sliceOf(buf, rec*recLen, (rec+1)*recLen)); err != nil {
			return err
		}
	}
	return nil
}

// sliceOf returns data[a:b] for any of the NetCDF slice types.
func sliceOf(data interface{}, a, b int) interface{} {
	switch t := data.(type) {
	case []uint8:
		return t[a:b]
	case []int16:
		return t[a:b]
	case []int32:
		return t[a:b]
	case []float32:
		return t[a:b]
	case []float64:
		return t[a:b]
	case string:
		return t[a:b]
	}
	panic(fmt.Errorf("fuelmap: invalid data type %T", data))
}

func readAttrs(h *cdf.Header, v string) []Attribute {
	var o []Attribute
	for _, a := range h.Attributes(v) {
		o = append(o, Attribute{Name: a, Value: h.GetAttribute(v, a)})
	}
	return o
}

// Write writes d to w as a NetCDF classic file.
func (d *Dataset) Write(w *os.File) error {
	if err := d.check(); err != nil {
		return err
	}
	names := make([]string, len(d.Dims))
	lengths := make([]int, len(d.Dims))
	for i, dim := range d.Dims {
		names[i], lengths[i] = dim.Name, dim.Len
	}
	h := cdf.NewHeader(names, lengths)
	for _, a := range d.Attrs {
		h.AddAttribute("", a.Name, a.Value)
	}
	hasRecords := false
	for _, v := range d.Vars {
		h.AddVariable(v.Name, v.Dims, v.Data)
		for _, a := range v.Attrs {
			h.AddAttribute(v.Name, a.Name, a.Value)
		}
		if len(v.Dims) > 0 {
			if dim, _ := d.Dim(v.Dims[0]); dim.Len == 0 {
				hasRecords = true
			}
		}
	}
	h.Define()

	cf, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, v := range d.Vars {
		if n, _ := dataLen(v.Data); n == 0 {
			continue
		}
		if err := writeVar(cf, v.Name, v.Data); err != nil {
			return fmt.Errorf("fuelmap: writing variable %s to netcdf file: %w", v.Name, err)
		}
	}
	if hasRecords && d.NumRecs > 0 {
		if err := padRecords(w, h, int64(d.NumRecs)); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// writeVar writes data to variable name. Record variables are written
// without an end so that the file is extended as needed.
func writeVar(cf *cdf.File, name string, data interface{}) error {
	var begin, end []int
	if !cf.Header.IsRecordVariable(name) {
		end = cf.Header.Lengths(name)
		begin = make([]int, len(end))
	}
	_, err := cf.Writer(name, begin, end).Write(data)
	if err == io.EOF {
		// Returned once the last element of a scalar has been written.
		return nil
	}
	return err
}

// padRecords extends w so that its last record is complete. The last
// record variable is not padded to a 4-byte boundary when it is written.
func padRecords(w *os.File, h *cdf.Header, numRecs int64) error {
	fi, err := w.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	var pad int64
	for pad < 4 && h.NumRecs(size+pad) < numRecs {
		pad++
	}
	if pad == 0 {
		return nil
	}
	return w.Truncate(size + pad)
}
