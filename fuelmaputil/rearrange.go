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
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fuelmap"
)

// OutputName returns the name of the file that the rearranged content of
// the file at path is written to.
func OutputName(path string, to2D bool) string {
	suffix := "-padded"
	if to2D {
		suffix = "-post"
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// RearrangeFiles converts the fire fields of each file in files to the
// 2-D layout (if to2D is true) or to the padded 3-D layout, writing the
// result next to the input file. Input files are deleted after their
// output has been written if remove is true.
func RearrangeFiles(files []string, r fuelmap.Rearranger, to2D, remove bool) error {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, path := range files {
		path = os.ExpandEnv(path)
		out := OutputName(path, to2D)
		if err := rearrangeFile(path, out, r, to2D); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"from": path, "file": out}).Info("wrote rearranged file")
		if remove {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("fuelmap: removing input file: %w", err)
			}
			log.WithField("file", path).Debug("removed input file")
		}
	}
	return nil
}

func rearrangeFile(path, out string, r fuelmap.Rearranger, to2D bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fuelmap: opening input file: %w", err)
	}
	d, err := fuelmap.OpenDataset(f)
	f.Close()
	if err != nil {
		return err
	}
	if to2D {
		d, err = r.To2D(d)
	} else {
		d, err = r.To3D(d)
	}
	if err != nil {
		return fmt.Errorf("fuelmap: rearranging %s: %w", path, err)
	}
	return writeDataset(out, d)
}
