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
	"math"
	"os"
	"path/filepath"
	"testing"
)

const testScenario = `
# Grass everywhere.
patch "fuel" {
  x        = [grid.x_min, grid.x_max]
  y        = [grid.y_min, grid.y_max]
  fuel_key = "grass"
}

patch "fuel" {
  line     = [0, 0, 10, 0]
  fuel_key = "shrub"
}

patch "unburnable" {
  x = [0, 2]
  y = [2, 3]
}

patch "ignition" {
  geojson = "ignition.geojson"
  time    = 5
}

patch "walking_ignition" {
  waypoints = [[0, 0, 0], [10, 0, 10]]
}
`

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	const poly = `{"type":"Polygon","coordinates":[[[-0.5,-0.5],[1.5,-0.5],[1.5,1.5],[-0.5,1.5],[-0.5,-0.5]]]}`
	if err := os.WriteFile(filepath.Join(dir, "ignition.geojson"), []byte(poly), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scenario.hcl")
	if err := os.WriteFile(path, []byte(testScenario), 0644); err != nil {
		t.Fatal(err)
	}

	fm, err := NewFuelMap(lineTestGrid(t).Config(), testDatabase(t), BalbiFuel)
	if err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path, fm.Grid, ScenarioOptions{LateralSpeed: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Steps) != 5 || len(s.Descriptions) != 5 {
		t.Fatalf("want 5 steps, have %d (%d descriptions)", len(s.Steps), len(s.Descriptions))
	}
	if err := fm.Run(s.Steps...); err != nil {
		t.Fatal(err)
	}

	fs := fm.Grid.Fields()
	get := func(x, y float64) (int, float64, float64) {
		i, j, ok := fm.Grid.CellIndex(x, y)
		if !ok {
			t.Fatalf("(%g, %g) is outside of the grid", x, y)
		}
		return fs.FuelIndex.Get(i, j), fs.IgnitionTime.Get(i, j), fs.WalkingIgnitionTime.Get(i, j)
	}
	tests := []struct {
		name       string
		x, y       float64
		fuel       int
		ignition   float64
		walkingIgn float64
	}{
		{name: "shrub line", x: 5, y: 0, fuel: 2, ignition: NeverIgnite, walkingIgn: 5},
		{name: "grass", x: 8, y: 3, fuel: 1, ignition: NeverIgnite, walkingIgn: 8 + 3/0.5},
		{name: "unburnable", x: 1, y: 2, fuel: NoFuel, ignition: NeverIgnite, walkingIgn: 1 + 2/0.5},
		{name: "ignited", x: 1, y: 1, fuel: 1, ignition: 5, walkingIgn: 1 + 1/0.5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fuel, ign, walking := get(test.x, test.y)
			if fuel != test.fuel {
				t.Errorf("fuel: want %d, have %d", test.fuel, fuel)
			}
			if ign != test.ignition {
				t.Errorf("ignition: want %g, have %g", test.ignition, ign)
			}
			if math.Abs(walking-test.walkingIgn) > testTolerance {
				t.Errorf("walking ignition: want %g, have %g", test.walkingIgn, walking)
			}
		})
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name, src string
		err       error
	}{
		{name: "unknown role", src: "patch \"water\" {\n x = [0, 1]\n y = [0, 1]\n}"},
		{name: "no fuel key", src: "patch \"fuel\" {\n x = [0, 1]\n y = [0, 1]\n}"},
		{name: "two selectors", src: "patch \"unburnable\" {\n x = [0, 1]\n y = [0, 1]\n line = [0, 0, 1, 1]\n}"},
		{name: "no selector", src: "patch \"unburnable\" {}"},
		{name: "no time", src: "patch \"ignition\" {\n line = [0, 0, 1, 1]\n}"},
		{name: "bad rectangle", src: "patch \"unburnable\" {\n x = [0, 1, 2]\n y = [0, 1]\n}"},
		{name: "waypoints outside walking ignition", src: "patch \"ignition\" {\n line = [0, 0, 1, 1]\n time = 1\n waypoints = [[0, 0, 0], [1, 1, 1]]\n}"},
		{name: "region in walking ignition", src: "patch \"walking_ignition\" {\n line = [0, 0, 1, 1]\n waypoints = [[0, 0, 0], [1, 1, 1]]\n lateral_speed = 1\n}"},
		{name: "no lateral speed", src: "patch \"walking_ignition\" {\n waypoints = [[0, 0, 0], [1, 1, 1]]\n}", err: ErrDegenerateLine},
		{name: "short waypoint", src: "patch \"walking_ignition\" {\n waypoints = [[0, 0], [1, 1, 1]]\n lateral_speed = 1\n}", err: ErrDegenerateLine},
		{name: "undefined variable", src: "patch \"unburnable\" {\n x = [0, mesh.x_max]\n y = [0, 1]\n}"},
		{name: "syntax", src: "patch \"unburnable\" {"},
		{name: "missing file", src: "patch \"unburnable\" {\n geojson = \"nope.geojson\"\n}"},
		{name: "lon lat without projection", src: "patch \"unburnable\" {\n lon = [0, 1]\n lat = [0, 1]\n}"},
		{name: "bad lon lat", src: "projection {\n lat0 = 0\n lon0 = 0\n lat_ori = 0\n lon_ori = 0\n}\npatch \"unburnable\" {\n lon = [0]\n lat = [0, 1]\n}"},
		{name: "rotated projection", src: "projection {\n lat0 = 0\n lon0 = 0\n lat_ori = 0\n lon_ori = 0\n beta = 10\n}\npatch \"unburnable\" {\n lon = [0, 1]\n lat = [0, 1]\n}"},
		{name: "lon lat in walking ignition", src: "patch \"walking_ignition\" {\n lon = [0, 1]\n lat = [0, 1]\n waypoints = [[0, 0, 0], [1, 1, 1]]\n lateral_speed = 1\n}"},
	}
	g := lineTestGrid(t)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(test.src), filepath.Join(t.TempDir(), "s.hcl"), g, ScenarioOptions{})
			if err == nil {
				t.Fatal("want an error")
			}
			if test.err != nil && !errors.Is(err, test.err) {
				t.Errorf("want %v, have %v", test.err, err)
			}
		})
	}
}

func TestScenarioLonLat(t *testing.T) {
	// 1e-5 degrees is about 1.1 m at the equator.
	const lonlatScenario = `
patch "fuel" {
  x        = [grid.x_min, grid.x_max]
  y        = [grid.y_min, grid.y_max]
  fuel_key = "grass"
}

patch "unburnable" {
  lon = [0, 2e-5]
  lat = [0, 2e-5]
}
`
	const block = `
projection {
  lat0    = 0
  lon0    = 0
  lat_ori = 0
  lon_ori = 0
}
`
	deg := EarthRadius * math.Pi / 180 * 2e-5

	tests := []struct {
		name string
		src  string
		opts ScenarioOptions
	}{
		{name: "block", src: block + lonlatScenario},
		{name: "option", src: lonlatScenario, opts: ScenarioOptions{Projection: &Projection{}}},
		{
			name: "block overrides option", src: block + lonlatScenario,
			opts: ScenarioOptions{Projection: &Projection{LonOri: 50, LatOri: 50}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fm, err := NewFuelMap(lineTestGrid(t).Config(), testDatabase(t), BalbiFuel)
			if err != nil {
				t.Fatal(err)
			}
			s, err := ParseScenario([]byte(test.src), filepath.Join(t.TempDir(), "s.hcl"), fm.Grid, test.opts)
			if err != nil {
				t.Fatal(err)
			}
			if err := fm.Run(s.Steps...); err != nil {
				t.Fatal(err)
			}
			fs := fm.Grid.Fields()
			for _, pt := range [][2]float64{{0, 0}, {1, 1}, {2, 1}} {
				i, j, _ := fm.Grid.CellIndex(pt[0], pt[1])
				if have := fs.FuelIndex.Get(i, j); have != NoFuel {
					t.Errorf("(%g, %g): want no fuel, have %d", pt[0], pt[1], have)
				}
			}
			for _, pt := range [][2]float64{{-1, 0}, {4, 1}, {1, 3}} {
				i, j, _ := fm.Grid.CellIndex(pt[0], pt[1])
				if have := fs.FuelIndex.Get(i, j); have == NoFuel {
					t.Errorf("(%g, %g): want fuel", pt[0], pt[1])
				}
			}
		})
	}

	tr, err := Projection{}.Transformer()
	if err != nil {
		t.Fatal(err)
	}
	p := &patchBlock{Lon: []float64{0, 2e-5}, Lat: []float64{0, 2e-5}}
	r, err := p.region("", tr)
	if err != nil {
		t.Fatal(err)
	}
	rect, ok := r.(RectanglePatch)
	if !ok {
		t.Fatalf("want a RectanglePatch, have %T", r)
	}
	if rect.XMin != 0 || rect.YMin != 0 || math.Abs(rect.XMax-deg) > 1e-6 || math.Abs(rect.YMax-deg) > 1e-6 {
		t.Errorf("want [0, %g] x [0, %g], have %+v", deg, deg, rect)
	}
}
