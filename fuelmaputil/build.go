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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fuelmap"
)

// Names of the files written by Build.
const (
	FuelMapFile   = "FuelMap.nc"
	FuelMap2DFile = "FuelMap2d.nc"
	FuelMapDes    = "FuelMap.des"
)

// Build creates a fuel map as specified by c and writes it to the
// output directory.
func Build(c *BuildConfig) error {
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := LoadDatabases(c.Class, c.FuelDatabases)
	if err != nil {
		return err
	}
	fm, err := fuelmap.NewFuelMap(c.Grid, db, c.Class)
	if err != nil {
		return err
	}
	fm.Log = log
	if c.MesoNHVersion != "" {
		fm.MesoNHVersion = c.MesoNHVersion
	}
	nx, ny := fm.Grid.Shape()
	log.WithFields(logrus.Fields{
		"nx":    nx,
		"ny":    ny,
		"class": c.Class.Name,
		"fuels": len(db.Keys()),
	}).Info("created fire grid")

	if c.Scenario != "" {
		s, err := fuelmap.LoadScenario(c.Scenario, fm.Grid, fuelmap.ScenarioOptions{
			LateralSpeed: c.LateralSpeed,
			Projection:   c.Projection,
		})
		if err != nil {
			return err
		}
		for i, d := range s.Descriptions {
			log.WithField("patch", i+1).Info(d)
		}
		if err := fm.Run(s.Steps...); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("fuelmap: creating output directory: %w", err)
	}
	type output struct {
		name    string
		dataset func() (*fuelmap.Dataset, error)
	}
	files := []output{{FuelMapFile, fm.Dataset3D}}
	if c.Write2D {
		files = append(files, output{FuelMap2DFile, fm.Dataset2D})
	}
	for _, file := range files {
		d, err := file.dataset()
		if err != nil {
			return err
		}
		path := filepath.Join(c.OutputDir, file.name)
		if err := writeDataset(path, d); err != nil {
			return err
		}
		log.WithField("file", path).Info("wrote fuel map")
	}

	if c.DesFile != "" {
		path := filepath.Join(c.OutputDir, FuelMapDes)
		if err := copyFile(path, c.DesFile); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"from": c.DesFile, "file": path}).Info("copied MesoNH description file")
	}
	return nil
}

// writeDataset writes d to a new file at path. The file is removed if
// writing fails.
func writeDataset(path string, d *fuelmap.Dataset) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fuelmap: creating output file: %w", err)
	}
	if err := d.Write(w); err != nil {
		w.Close()
		os.Remove(path)
		return fmt.Errorf("fuelmap: writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("fuelmap: writing %s: %w", path, err)
	}
	return nil
}

func copyFile(dst, src string) error {
	r, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fuelmap: copying %s: %w", src, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("fuelmap: copying %s: %w", src, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("fuelmap: copying %s: %w", src, err)
	}
	return w.Close()
}

// ListFuels writes the keys and properties of the fuels of db to w.
func ListFuels(w io.Writer, db *fuelmap.Database) error {
	names := make([]string, 0, len(db.Infos))
	for name := range db.Infos {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if info := db.Infos[name]; info != "" {
			if _, err := fmt.Fprintf(w, "# %s: %s\n", name, info); err != nil {
				return err
			}
		}
	}
	for _, key := range db.Keys() {
		props, err := db.Properties(key)
		if err != nil {
			return err
		}
		var s []string
		for _, p := range db.Class.Stored() {
			s = append(s, fmt.Sprintf("%s=%g", p.Name, props[p.Name]))
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", key, strings.Join(s, " ")); err != nil {
			return err
		}
	}
	return nil
}

// ListClasses writes the supported propagation models and the
// properties of their fuel classes to w.
func ListClasses(w io.Writer) error {
	models := make([]string, 0, len(fuelmap.PropagationModels))
	for m := range fuelmap.PropagationModels {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		c := fuelmap.PropagationModels[m]
		if _, err := fmt.Fprintf(w, "# %s: %s\n", m, c.Name); err != nil {
			return err
		}
		for _, p := range c.Properties {
			v := "-"
			if p.Index > 0 {
				v = p.VarName()
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\n", p.Name, v, p.Default, p.Unit, p.Description); err != nil {
				return err
			}
		}
	}
	return nil
}
