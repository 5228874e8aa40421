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
	"os"
	"path/filepath"

	"github.com/ctessum/geom/proj"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Scenario is an ordered list of patch operations read from a scenario
// file.
type Scenario struct {
	Steps []Step

	// Descriptions describe each step, for logging.
	Descriptions []string
}

// ScenarioOptions holds the values used for attributes that scenario
// files omit.
type ScenarioOptions struct {
	// LateralSpeed is used by walking ignition patches without a
	// lateral_speed attribute. Zero means no default.
	LateralSpeed float64

	// Projection converts the lon and lat attributes of patches when the
	// scenario file has no projection block.
	Projection *Projection
}

type scenarioFile struct {
	Projection *Projection   `hcl:"projection,block"`
	Patches    []*patchBlock `hcl:"patch,block"`
}

// patchBlock is a patch block of a scenario file.
type patchBlock struct {
	Role string `hcl:"role,label"`

	X         []float64 `hcl:"x,optional"`
	Y         []float64 `hcl:"y,optional"`
	Lon       []float64 `hcl:"lon,optional"`
	Lat       []float64 `hcl:"lat,optional"`
	Line      []float64 `hcl:"line,optional"`
	GeoJSON   string    `hcl:"geojson,optional"`
	Shapefile string    `hcl:"shapefile,optional"`

	FuelKey      string      `hcl:"fuel_key,optional"`
	Time         *float64    `hcl:"time,optional"`
	Waypoints    [][]float64 `hcl:"waypoints,optional"`
	LateralSpeed *float64    `hcl:"lateral_speed,optional"`
}

// Patch roles in scenario files.
const (
	roleFuel            = "fuel"
	roleUnburnable      = "unburnable"
	roleIgnition        = "ignition"
	roleWalkingIgnition = "walking_ignition"
)

// LoadScenario reads the HCL scenario file at path. Expressions may refer
// to the extent of g as grid.x_min, grid.x_max, grid.y_min, grid.y_max
// and to its cell sizes as grid.dx, grid.dy (atmospheric) and grid.dxf,
// grid.dyf (fire). Rectangles may be given in degrees with lon and lat
// attributes, which are converted with the projection block of the file
// or opts.Projection. Relative GeoJSON and shapefile paths are relative to
// the directory of the scenario file.
func LoadScenario(path string, g *Grid, opts ScenarioOptions) (*Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fuelmap: reading scenario: %w", err)
	}
	return ParseScenario(src, path, g, opts)
}

// ParseScenario parses the scenario in src. filename is used in error
// messages and to resolve relative paths.
func ParseScenario(src []byte, filename string, g *Grid, opts ScenarioOptions) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("fuelmap: parsing scenario %s: %w", filename, diags)
	}
	var sf scenarioFile
	diags = gohcl.DecodeBody(file.Body, scenarioContext(g), &sf)
	if diags.HasErrors() {
		return nil, fmt.Errorf("fuelmap: decoding scenario %s: %w", filename, diags)
	}
	if sf.Projection != nil {
		opts.Projection = sf.Projection
	}
	var lonlat proj.Transformer
	if opts.Projection != nil {
		var err error
		if lonlat, err = opts.Projection.Transformer(); err != nil {
			return nil, fmt.Errorf("fuelmap: scenario %s: %w", filename, err)
		}
	}
	dir := filepath.Dir(filename)
	s := new(Scenario)
	for i, p := range sf.Patches {
		step, desc, err := p.step(dir, opts, lonlat)
		if err != nil {
			return nil, fmt.Errorf("fuelmap: scenario %s, patch %d (%s): %w", filename, i+1, p.Role, err)
		}
		s.Steps = append(s.Steps, step)
		s.Descriptions = append(s.Descriptions, desc)
	}
	return s, nil
}

func scenarioContext(g *Grid) *hcl.EvalContext {
	b := g.Bounds()
	cfg := g.Config()
	dxf, dyf := g.CellSize()
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"grid": cty.ObjectVal(map[string]cty.Value{
				"x_min": cty.NumberFloatVal(b.Min.X),
				"x_max": cty.NumberFloatVal(b.Max.X),
				"y_min": cty.NumberFloatVal(b.Min.Y),
				"y_max": cty.NumberFloatVal(b.Max.Y),
				"dx":    cty.NumberFloatVal(cfg.Dx),
				"dy":    cty.NumberFloatVal(cfg.Dy),
				"dxf":   cty.NumberFloatVal(dxf),
				"dyf":   cty.NumberFloatVal(dyf),
			}),
		},
	}
}

func (p *patchBlock) step(dir string, opts ScenarioOptions, lonlat proj.Transformer) (Step, string, error) {
	if p.Role == roleWalkingIgnition {
		line, err := p.walkingIgnition(opts)
		if err != nil {
			return nil, "", err
		}
		return WalkingIgnitionStep(line), line.String(), nil
	}
	if len(p.Waypoints) > 0 || p.LateralSpeed != nil {
		return nil, "", fmt.Errorf("waypoints and lateral_speed are only allowed in walking_ignition patches")
	}
	r, err := p.region(dir, lonlat)
	if err != nil {
		return nil, "", err
	}
	switch p.Role {
	case roleFuel:
		if p.FuelKey == "" {
			return nil, "", fmt.Errorf("missing fuel_key")
		}
		return FuelPatch(r, p.FuelKey), fmt.Sprintf("fuel %q on %v", p.FuelKey, r), nil
	case roleUnburnable:
		role := UnburnableAssignment{}
		return PatchStep(r, role), fmt.Sprintf("%v on %v", role, r), nil
	case roleIgnition:
		if p.Time == nil {
			return nil, "", fmt.Errorf("missing time")
		}
		role := StaticIgnition{Time: *p.Time}
		return PatchStep(r, role), fmt.Sprintf("%v on %v", role, r), nil
	default:
		return nil, "", fmt.Errorf("unknown patch role %q; valid roles are %q, %q, %q and %q",
			p.Role, roleFuel, roleUnburnable, roleIgnition, roleWalkingIgnition)
	}
}

// region returns the region selected by p. Exactly one selector must be
// set. lonlat converts lon and lat, and may be nil if they are not used.
func (p *patchBlock) region(dir string, lonlat proj.Transformer) (Region, error) {
	var regions []Region
	if p.X != nil || p.Y != nil {
		if len(p.X) != 2 || len(p.Y) != 2 {
			return nil, fmt.Errorf("x and y should both be [min, max]")
		}
		regions = append(regions, RectanglePatch{XMin: p.X[0], XMax: p.X[1], YMin: p.Y[0], YMax: p.Y[1]})
	}
	if p.Lon != nil || p.Lat != nil {
		if len(p.Lon) != 2 || len(p.Lat) != 2 {
			return nil, fmt.Errorf("lon and lat should both be [min, max]")
		}
		if lonlat == nil {
			return nil, fmt.Errorf("lon and lat need a projection")
		}
		x0, y0, err := lonlat(p.Lon[0], p.Lat[0])
		if err != nil {
			return nil, err
		}
		x1, y1, err := lonlat(p.Lon[1], p.Lat[1])
		if err != nil {
			return nil, err
		}
		regions = append(regions, RectanglePatch{XMin: x0, XMax: x1, YMin: y0, YMax: y1})
	}
	if p.Line != nil {
		if len(p.Line) != 4 {
			return nil, fmt.Errorf("line should be [x0, y0, x1, y1]")
		}
		regions = append(regions, LinePatch{X0: p.Line[0], Y0: p.Line[1], X1: p.Line[2], Y1: p.Line[3]})
	}
	if p.GeoJSON != "" {
		f, err := os.Open(resolvePath(dir, p.GeoJSON))
		if err != nil {
			return nil, err
		}
		r, err := ReadGeoJSONPatch(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.GeoJSON, err)
		}
		regions = append(regions, r)
	}
	if p.Shapefile != "" {
		r, err := ReadShapefilePatch(resolvePath(dir, p.Shapefile))
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	if len(regions) != 1 {
		return nil, fmt.Errorf("exactly one of x/y, lon/lat, line, geojson or shapefile should be set, but %d are", len(regions))
	}
	return regions[0], nil
}

func resolvePath(dir, p string) string {
	p = os.ExpandEnv(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (p *patchBlock) walkingIgnition(opts ScenarioOptions) (WalkingIgnitionLine, error) {
	if p.X != nil || p.Y != nil || p.Lon != nil || p.Lat != nil || p.Line != nil || p.GeoJSON != "" || p.Shapefile != "" ||
		p.FuelKey != "" || p.Time != nil {
		return WalkingIgnitionLine{}, fmt.Errorf("walking_ignition patches only accept waypoints and lateral_speed")
	}
	line := WalkingIgnitionLine{LateralSpeed: opts.LateralSpeed}
	if p.LateralSpeed != nil {
		line.LateralSpeed = *p.LateralSpeed
	}
	for i, w := range p.Waypoints {
		if len(w) != 3 {
			return WalkingIgnitionLine{}, fmt.Errorf("%w: waypoint %d should be [x, y, time]", ErrDegenerateLine, i)
		}
		line.Waypoints = append(line.Waypoints, Waypoint{X: w[0], Y: w[1], Time: w[2]})
	}
	return line, line.Validate()
}
