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
	"sort"
	"strings"
)

// Property describes a physical property of a fuel class.
type Property struct {
	Name        string
	Default     float64
	Unit        string
	Description string

	// Index is the position of the property in fuel map files, where it is
	// stored as variable FuelNN with NN = Index+1. Properties with
	// Index 0 are not stored.
	Index int
}

// VarName returns the name of the fuel map variable holding p.
func (p Property) VarName() string { return fmt.Sprintf("Fuel%02d", p.Index+1) }

// FuelVarName is the fuel map variable holding the fuel index.
const FuelVarName = "Fuel01"

// FuelClass is a set of properties used by a rate of spread model.
type FuelClass struct {
	Name       string
	Properties []Property
}

// Stored returns the properties of c that are stored in fuel map files,
// ordered by index.
func (c FuelClass) Stored() []Property {
	var o []Property
	for _, p := range c.Properties {
		if p.Index > 0 {
			o = append(o, p)
		}
	}
	sort.Slice(o, func(i, j int) bool { return o[i].Index < o[j].Index })
	return o
}

// Property returns the property called name.
func (c FuelClass) Property(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// BalbiFuel holds the properties of the Balbi rate of spread model.
var BalbiFuel = FuelClass{
	Name: "BalbiFuel",
	Properties: []Property{
		{Name: "rhod", Default: 400, Unit: "kg m-3", Description: "Dead fuel density", Index: 1},
		{Name: "rhol", Default: 400, Unit: "kg m-3", Description: "Living fuel density", Index: 2},
		{Name: "Md", Default: 0.1, Unit: "-", Description: "Dead fuel moisture", Index: 3},
		{Name: "Ml", Default: 1, Unit: "-", Description: "Living fuel moisture", Index: 4},
		{Name: "sd", Default: 5000, Unit: "m-1", Description: "Dead SAV ratio", Index: 5},
		{Name: "sl", Default: 5000, Unit: "m-1", Description: "Living SAV ratio", Index: 6},
		{Name: "sigmad", Default: 0.95, Unit: "kg m-2", Description: "Dead fuel load", Index: 7},
		{Name: "sigmal", Default: 0.05, Unit: "kg m-2", Description: "Living fuel load", Index: 8},
		{Name: "e", Default: 1, Unit: "m", Description: "Fuel height", Index: 9},
		{Name: "Ti", Default: 500, Unit: "K", Description: "Ignition temperature", Index: 10},
		{Name: "Ta", Default: 300, Unit: "K", Description: "Air temperature", Index: 11},
		{Name: "DeltaH", Default: 15.43e6, Unit: "J kg-1", Description: "Combustion enthalpy", Index: 12},
		{Name: "Deltah", Default: 2.3e6, Unit: "J kg-1", Description: "Water evaporation enthalpy", Index: 13},
		{Name: "tau0", Default: 75590, Unit: "s m-1", Description: "Model constant", Index: 14},
		{Name: "stoch", Default: 8.3, Unit: "-", Description: "Stochiometry", Index: 15},
		{Name: "rhoa", Default: 1.2, Unit: "kg m-3", Description: "Air density", Index: 16},
		{Name: "cp", Default: 1912, Unit: "J K-1 kg-1", Description: "Fuel calorific capacity", Index: 17},
		{Name: "cpa", Default: 1004, Unit: "J K-1 kg-1", Description: "Air calorific capacity", Index: 18},
		{Name: "X0", Default: 0.3, Unit: "-", Description: "Fraction of radiant energy", Index: 19},
		{Name: "LAI", Default: 4, Unit: "-", Description: "Leaf area index", Index: 20},
		{Name: "r00", Default: 2e-5, Unit: "-", Description: "Model constant", Index: 21},
		{Name: "wind", Default: 0, Unit: "m/s", Description: "Wind at mid-flame"},
		{Name: "slope", Default: 0, Unit: "deg", Description: "Slope"},
	},
}

// PropagationModels maps the rate of spread models of the fire simulator
// to the fuel classes they read.
var PropagationModels = map[string]FuelClass{
	"SANTONI2011": BalbiFuel,
}

// ClassForModel returns the fuel class used by the named rate of spread
// model.
func ClassForModel(model string) (FuelClass, error) {
	c, ok := PropagationModels[strings.ToUpper(strings.TrimSpace(model))]
	if !ok {
		models := make([]string, 0, len(PropagationModels))
		for m := range PropagationModels {
			models = append(models, m)
		}
		sort.Strings(models)
		return FuelClass{}, fmt.Errorf("fuelmap: unsupported propagation model %q; valid models are %v", model, models)
	}
	return c, nil
}
