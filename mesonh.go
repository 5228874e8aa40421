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
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/spf13/cast"
)

// Namelist holds the MesoNH namelist (EXSEG1.nam) entries needed to
// build a fuel map.
type Namelist struct {
	// IniFile is the name of the MesoNH initialization file, without
	// extension.
	IniFile string

	// PropagationModel is the rate of spread model of the fire
	// simulator (CPROPAG_MODEL).
	PropagationModel string

	// RefinementX and RefinementY are the fire grid refinement ratios
	// (NREFINX, NREFINY).
	RefinementX, RefinementY int
}

var namelistEntry = regexp.MustCompile(`(?i)\b(C?INIFILE|CPROPAG_MODEL|NREFINX|NREFINY)\s*=\s*('[^']*'|"[^"]*"|[^,\s/]+)`)

// ReadNamelist reads the fuel map entries of a MesoNH namelist. Entries
// that are absent keep their default values: SANTONI2011 and refinement
// ratios of 1.
func ReadNamelist(r io.Reader) (*Namelist, error) {
	nl := &Namelist{
		PropagationModel: "SANTONI2011",
		RefinementX:      1,
		RefinementY:      1,
	}
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := s.Text()
		if i := strings.Index(text, "!"); i >= 0 {
			text = text[:i]
		}
		for _, m := range namelistEntry.FindAllStringSubmatch(text, -1) {
			v := strings.Trim(m[2], `'"`)
			var err error
			switch strings.ToUpper(m[1]) {
			case "INIFILE", "CINIFILE":
				nl.IniFile = v
			case "CPROPAG_MODEL":
				nl.PropagationModel = v
			case "NREFINX":
				nl.RefinementX, err = cast.ToIntE(v)
			case "NREFINY":
				nl.RefinementY, err = cast.ToIntE(v)
			}
			if err != nil {
				return nil, fmt.Errorf("fuelmap: namelist line %d: %s: %v", line, m[1], err)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("fuelmap: reading namelist: %w", err)
	}
	if nl.IniFile == "" {
		return nil, fmt.Errorf("fuelmap: namelist does not set INIFILE")
	}
	return nl, nil
}

// AtmosphericMesh holds the atmospheric mesh coordinates read from a
// MesoNH initialization file.
type AtmosphericMesh struct {
	XHAT, YHAT []float64

	// Projection is read from the LAT0, LON0, LATORI, LONORI, RPK and
	// BETA variables. It is nil if the file has no LAT0 variable.
	Projection *Projection
}

// ReadAtmosphericMesh reads the XHAT and YHAT coordinates of a MesoNH
// initialization file.
func ReadAtmosphericMesh(f *os.File) (*AtmosphericMesh, error) {
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("fuelmap: opening MesoNH file %s: %w", f.Name(), err)
	}
	m := new(AtmosphericMesh)
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{{"XHAT", &m.XHAT}, {"YHAT", &m.YHAT}} {
		if *v.dst, err = readCoordinate(cf, v.name); err != nil {
			return nil, fmt.Errorf("fuelmap: MesoNH file %s: %w", f.Name(), err)
		}
	}
	if m.Projection, err = readProjection(cf); err != nil {
		return nil, fmt.Errorf("fuelmap: MesoNH file %s: %w", f.Name(), err)
	}
	return m, nil
}

// readProjection reads the projection parameters of a MesoNH file. RPK
// and BETA are zero when missing.
func readProjection(cf *cdf.File) (*Projection, error) {
	has := make(map[string]bool)
	for _, v := range cf.Header.Variables() {
		has[v] = true
	}
	if !has["LAT0"] {
		return nil, nil
	}
	p := new(Projection)
	for _, v := range []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"LAT0", &p.Lat0, true},
		{"LON0", &p.Lon0, true},
		{"LATORI", &p.LatOri, true},
		{"LONORI", &p.LonOri, true},
		{"RPK", &p.RPK, false},
		{"BETA", &p.Beta, false},
	} {
		if !has[v.name] {
			if v.required {
				return nil, fmt.Errorf("missing variable %s", v.name)
			}
			continue
		}
		vals, err := readFloats(cf, v.name, 1)
		if err != nil {
			return nil, err
		}
		*v.dst = vals[0]
	}
	return p, nil
}

func readCoordinate(cf *cdf.File, name string) ([]float64, error) {
	dims := cf.Header.Lengths(name)
	if dims == nil {
		return nil, fmt.Errorf("missing variable %s", name)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("variable %s has %d dimensions but should have 1", name, len(dims))
	}
	n := dims[0]
	if n == 0 {
		return nil, fmt.Errorf("variable %s is empty", name)
	}
	return readFloats(cf, name, n)
}

// readFloats reads the first n values of a floating point variable.
func readFloats(cf *cdf.File, name string, n int) ([]float64, error) {
	switch data := cf.Header.ZeroValue(name, n).(type) {
	case []float64:
		if _, err := cf.Reader(name, nil, nil).Read(data); err != nil {
			return nil, err
		}
		return data, nil
	case []float32:
		if _, err := cf.Reader(name, nil, nil).Read(data); err != nil {
			return nil, err
		}
		o := make([]float64, n)
		for i, v := range data {
			o[i] = float64(v)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("variable %s has type %T but should be floating point", name, data)
	}
}

// GridConfig returns the configuration of the fire grid refining mesh by
// the ratios of nl.
func (nl *Namelist) GridConfig(mesh *AtmosphericMesh) (GridConfig, error) {
	if len(mesh.XHAT) < 2 || len(mesh.YHAT) < 2 {
		return GridConfig{}, fmt.Errorf("%w: atmospheric mesh has %dx%d points; at least 2x2 are needed",
			ErrInvalidDimension, len(mesh.XHAT), len(mesh.YHAT))
	}
	c := GridConfig{
		Nx:     len(mesh.XHAT),
		Ny:     len(mesh.YHAT),
		GammaX: nl.RefinementX,
		GammaY: nl.RefinementY,
		Dx:     mesh.XHAT[1] - mesh.XHAT[0],
		Dy:     mesh.YHAT[1] - mesh.YHAT[0],
		Xo:     mesh.XHAT[0],
		Yo:     mesh.YHAT[0],
	}
	return c, c.Validate()
}
