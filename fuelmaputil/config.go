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

package fuelmaputil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fuelmap"
	"github.com/spf13/cast"
)

// BuildConfig holds the information needed to build fuel map files.
type BuildConfig struct {
	Grid  fuelmap.GridConfig
	Class fuelmap.FuelClass

	// FuelDatabases are the paths of the fuel database files.
	FuelDatabases []string

	// Scenario is the path of the scenario file. No patches are applied
	// if it is empty.
	Scenario string

	LateralSpeed  float64
	MesoNHVersion string

	// Projection converts lon/lat scenario patches. It is read from the
	// MesoNH initialization file when a namelist is given.
	Projection *fuelmap.Projection

	OutputDir string
	Write2D   bool

	// DesFile is the MesoNH description file copied to FuelMap.des,
	// if not empty.
	DesFile string

	Log logrus.FieldLogger
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// BuildConfigFromViper unmarshals a viper configuration for the build
// command.
func BuildConfigFromViper(cfg *viper.Viper) (*BuildConfig, error) {
	c := &BuildConfig{
		FuelDatabases: expandStringSlice(cfg.GetStringSlice("FuelDatabases")),
		Scenario:      os.ExpandEnv(cfg.GetString("Scenario")),
		MesoNHVersion: cfg.GetString("MesoNHVersion"),
		OutputDir:     os.ExpandEnv(cfg.GetString("OutputDir")),
		Write2D:       cfg.GetBool("Write2D"),
		Log:           logrus.StandardLogger(),
	}
	var err error
	if c.LateralSpeed, err = cast.ToFloat64E(cfg.Get("Ignition.LateralSpeed")); err != nil {
		return nil, fmt.Errorf("fuelmap: Ignition.LateralSpeed: %v", err)
	}
	model := cfg.GetString("PropagationModel")

	if nam := os.ExpandEnv(cfg.GetString("Namelist")); nam != "" {
		var nl *fuelmap.Namelist
		var mesh *fuelmap.AtmosphericMesh
		c.Grid, nl, mesh, err = gridFromNamelist(nam)
		if err != nil {
			return nil, err
		}
		c.Projection = mesh.Projection
		model = nl.PropagationModel
		des := filepath.Join(filepath.Dir(nam), nl.IniFile+".des")
		if _, err := os.Stat(des); err == nil {
			c.DesFile = des
		} else {
			c.Log.WithField("file", des).Warn("MesoNH description file not found; FuelMap.des will not be written")
		}
	} else {
		if c.Grid, err = GridConfig(cfg); err != nil {
			return nil, err
		}
	}
	if c.Class, err = fuelmap.ClassForModel(model); err != nil {
		return nil, err
	}
	return c, nil
}

// GridConfig unmarshals a viper configuration for a fire grid.
func GridConfig(cfg *viper.Viper) (fuelmap.GridConfig, error) {
	c := fuelmap.GridConfig{
		Nx:     cfg.GetInt("Grid.Nx"),
		Ny:     cfg.GetInt("Grid.Ny"),
		GammaX: cfg.GetInt("Grid.GammaX"),
		GammaY: cfg.GetInt("Grid.GammaY"),
		Dx:     cfg.GetFloat64("Grid.Dx"),
		Dy:     cfg.GetFloat64("Grid.Dy"),
		Xo:     cfg.GetFloat64("Grid.Xo"),
		Yo:     cfg.GetFloat64("Grid.Yo"),
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("fuelmap: parsing grid configuration: %w", err)
	}
	return c, nil
}

// gridFromNamelist reads the MesoNH namelist at path and the
// initialization file it names.
func gridFromNamelist(path string) (fuelmap.GridConfig, *fuelmap.Namelist, *fuelmap.AtmosphericMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return fuelmap.GridConfig{}, nil, nil, fmt.Errorf("fuelmap: opening namelist: %w", err)
	}
	nl, err := fuelmap.ReadNamelist(f)
	f.Close()
	if err != nil {
		return fuelmap.GridConfig{}, nil, nil, err
	}
	ini, err := os.Open(filepath.Join(filepath.Dir(path), nl.IniFile+".nc"))
	if err != nil {
		return fuelmap.GridConfig{}, nil, nil, fmt.Errorf("fuelmap: opening MesoNH initialization file: %w", err)
	}
	defer ini.Close()
	mesh, err := fuelmap.ReadAtmosphericMesh(ini)
	if err != nil {
		return fuelmap.GridConfig{}, nil, nil, err
	}
	c, err := nl.GridConfig(mesh)
	return c, nl, mesh, err
}

// LoadDatabases loads the fuels of class from the database files at
// paths.
func LoadDatabases(class fuelmap.FuelClass, paths []string) (*fuelmap.Database, error) {
	db := fuelmap.NewDatabase(class)
	for _, p := range paths {
		if err := db.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// RearrangerFromViper unmarshals a viper configuration for the post and
// pad commands.
func RearrangerFromViper(cfg *viper.Viper) fuelmap.Rearranger {
	return fuelmap.Rearranger{
		GammaX:     cfg.GetInt("Rearrange.GammaX"),
		GammaY:     cfg.GetInt("Rearrange.GammaY"),
		FireFields: cfg.GetStringSlice("Rearrange.FireFields"),
		XFireDim:   cfg.GetString("Rearrange.XFireDim"),
		YFireDim:   cfg.GetString("Rearrange.YFireDim"),
		Log:        logrus.StandardLogger(),
	}
}
