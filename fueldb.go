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
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// FuelDatabase resolves fuel keys to fuel indices and property values.
// A key must resolve to the same index every time during one fuel map
// build.
type FuelDatabase interface {
	// Resolve returns the index and properties of the fuel called key,
	// or an error wrapping ErrUnknownFuelKey.
	Resolve(key string) (index int, properties map[string]float64, err error)
}

// Database is a FuelDatabase holding fuels of a single fuel class, read
// from fuel database files. Fuel indices are assigned in the order in
// which keys are first resolved, starting at 1.
type Database struct {
	Class FuelClass

	// Infos holds the description of each loaded database file.
	Infos map[string]string

	fuels map[string]map[string]float64
	index map[string]int
	order []string
}

// NewDatabase returns an empty database of fuels of class c.
func NewDatabase(c FuelClass) *Database {
	return &Database{
		Class: c,
		Infos: make(map[string]string),
		fuels: make(map[string]map[string]float64),
		index: make(map[string]int),
	}
}

// dbFile is the content of a fuel database file.
type dbFile struct {
	Infos     string                          `yaml:"infos" toml:"infos"`
	IsCompact *bool                           `yaml:"is_compact" toml:"is_compact"`
	Fuels     map[string]map[string]fuelEntry `yaml:"fuels" toml:"fuels"`
}

type fuelEntry struct {
	Class      string                 `yaml:"class" toml:"class"`
	Properties map[string]interface{} `yaml:"properties" toml:"properties"`
}

// LoadFile adds the fuels in the YAML (.yml, .yaml) or TOML (.toml) file
// at path. Keys are prefixed with the file name without its extension.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fuelmap: opening fuel database: %w", err)
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch ext {
	case ".yml", ".yaml":
		return db.LoadYAML(name, f)
	case ".toml":
		return db.LoadTOML(name, f)
	default:
		return fmt.Errorf("fuelmap: fuel database %s: unsupported file type %q", path, ext)
	}
}

// LoadYAML adds the fuels of the YAML database called name read from r.
func (db *Database) LoadYAML(name string, r io.Reader) error {
	var f dbFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("fuelmap: decoding fuel database %s: %w", name, err)
	}
	return db.add(name, &f)
}

// LoadTOML adds the fuels of the TOML database called name read from r.
func (db *Database) LoadTOML(name string, r io.Reader) error {
	var f dbFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return fmt.Errorf("fuelmap: decoding fuel database %s: %w", name, err)
	}
	return db.add(name, &f)
}

func (db *Database) add(name string, f *dbFile) error {
	if f.IsCompact == nil || f.Fuels == nil {
		return fmt.Errorf("fuelmap: fuel database %s: missing 'fuels' or 'is_compact'", name)
	}
	// Every fuel is checked before any is added.
	parsed := make(map[string]map[string]float64)
	for desc, classes := range f.Fuels {
		for className, e := range classes {
			class := e.Class
			if class == "" {
				class = className
			}
			if class != db.Class.Name {
				continue
			}
			props, err := db.properties(e.Properties, *f.IsCompact)
			if err != nil {
				return fmt.Errorf("fuelmap: fuel database %s, fuel %s: %w", name, desc, err)
			}
			key := name + "_" + desc
			if parsed[key], err = db.values(key, props); err != nil {
				return fmt.Errorf("fuelmap: fuel database %s: %w", name, err)
			}
		}
	}
	for k, v := range parsed {
		db.fuels[k] = v
	}
	db.Infos[name] = f.Infos
	return nil
}

// properties converts file property values, which are numbers in compact
// files and {Value, unit, description} tables otherwise.
func (db *Database) properties(in map[string]interface{}, compact bool) (map[string]float64, error) {
	o := make(map[string]float64, len(in))
	for k, v := range in {
		if !compact {
			m, err := cast.ToStringMapE(v)
			if err != nil {
				return nil, fmt.Errorf("property %s: %v", k, err)
			}
			var ok bool
			if v, ok = m["Value"]; !ok {
				return nil, fmt.Errorf("property %s has no Value", k)
			}
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %v", k, err)
		}
		o[k] = f
	}
	return o, nil
}

// Add adds a fuel with the given property values; properties of the
// fuel class not in props take their default values. Adding a key that
// has already been resolved is an error, since its properties are
// already in use.
func (db *Database) Add(key string, props map[string]float64) error {
	o, err := db.values(key, props)
	if err != nil {
		return err
	}
	db.fuels[key] = o
	return nil
}

// values returns the stored property values of a fuel called key with
// properties props, without adding it to db.
func (db *Database) values(key string, props map[string]float64) (map[string]float64, error) {
	if _, ok := db.index[key]; ok {
		return nil, fmt.Errorf("fuelmap: fuel %q is in use and cannot be redefined", key)
	}
	o := make(map[string]float64)
	for _, p := range db.Class.Stored() {
		o[p.Name] = p.Default
	}
	for k, v := range props {
		p, ok := db.Class.Property(k)
		if !ok {
			return nil, fmt.Errorf("fuelmap: fuel %q: %s has no property %q", key, db.Class.Name, k)
		}
		if p.Index > 0 {
			o[k] = v
		}
	}
	return o, nil
}

// Resolve implements FuelDatabase.
func (db *Database) Resolve(key string) (int, map[string]float64, error) {
	props, err := db.Properties(key)
	if err != nil {
		return 0, nil, err
	}
	i, ok := db.index[key]
	if !ok {
		db.order = append(db.order, key)
		i = len(db.order)
		db.index[key] = i
	}
	return i, props, nil
}

// Properties returns a copy of the property values of the fuel called
// key without assigning it an index.
func (db *Database) Properties(key string) (map[string]float64, error) {
	props, ok := db.fuels[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFuelKey, key)
	}
	o := make(map[string]float64, len(props))
	for k, v := range props {
		o[k] = v
	}
	return o, nil
}

// Keys returns the sorted keys of every fuel in db.
func (db *Database) Keys() []string {
	o := make([]string, 0, len(db.fuels))
	for k := range db.fuels {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// Resolved returns the keys resolved so far, ordered by fuel index.
func (db *Database) Resolved() []string {
	return append([]string(nil), db.order...)
}
