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
	"math"

	"github.com/ctessum/sparse"
)

// MergePolicy specifies how a patch value is combined with the value
// already stored in a cell.
type MergePolicy int

const (
	// LastWins overwrites the stored value.
	LastWins MergePolicy = iota

	// Minimum keeps the smaller of the stored and new values, so the
	// stored value can only decrease.
	Minimum
)

func (p MergePolicy) merge(old, new float64) float64 {
	if p == Minimum && old <= new {
		return old
	}
	return new
}

func (p MergePolicy) String() string {
	switch p {
	case LastWins:
		return "last wins"
	case Minimum:
		return "minimum"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// Role specifies what a patch does to the cells it covers.
type Role interface {
	// Policy returns the way the role combines its values with
	// existing ones.
	Policy() MergePolicy
	String() string
}

// FuelAssignment sets the fuel of the covered cells to the fuel that
// Database resolves Key to, along with every property of that fuel.
type FuelAssignment struct {
	Key      string
	Database FuelDatabase
}

// Policy implements Role.
func (FuelAssignment) Policy() MergePolicy { return LastWins }

func (f FuelAssignment) String() string { return fmt.Sprintf("fuel %q", f.Key) }

// UnburnableAssignment removes the fuel of the covered cells. Property
// values are left as they are.
type UnburnableAssignment struct{}

// Policy implements Role.
func (UnburnableAssignment) Policy() MergePolicy { return LastWins }

func (UnburnableAssignment) String() string { return "unburnable" }

// StaticIgnition sets the ignition time of the covered cells.
type StaticIgnition struct {
	Time float64 // s
}

// Policy implements Role.
func (StaticIgnition) Policy() MergePolicy { return LastWins }

func (s StaticIgnition) String() string { return fmt.Sprintf("ignition at %gs", s.Time) }

// Apply applies role to the cells of g covered by r. Either the whole
// patch is applied or, when an error is returned, none of it is.
func (g *Grid) Apply(r Region, role Role) error {
	if r == nil {
		return fmt.Errorf("fuelmap: applying %v: nil region", role)
	}
	switch role := role.(type) {
	case FuelAssignment:
		if role.Database == nil {
			return fmt.Errorf("%w: %q: no fuel database", ErrUnknownFuelKey, role.Key)
		}
		index, props, err := role.Database.Resolve(role.Key)
		if err != nil {
			return err
		}
		if index < 1 {
			return fmt.Errorf("fuelmap: fuel %q resolved to invalid index %d", role.Key, index)
		}
		cells := r.Cells(g)
		if len(cells) == 0 {
			return nil
		}
		for name, v := range props {
			g.fields.setFloat(g.AllocateField(name), cells, v, role.Policy())
		}
		g.fields.setInt(g.fields.FuelIndex, cells, index)
	case UnburnableAssignment:
		g.fields.setInt(g.fields.FuelIndex, r.Cells(g), NoFuel)
	case StaticIgnition:
		if math.IsNaN(role.Time) {
			return fmt.Errorf("fuelmap: applying %v: invalid ignition time", role)
		}
		g.fields.setFloat(g.fields.IgnitionTime, r.Cells(g), role.Time, role.Policy())
	case nil:
		return fmt.Errorf("fuelmap: applying patch: nil role")
	default:
		return fmt.Errorf("fuelmap: applying patch: unsupported role %v", role)
	}
	return nil
}

func (f *FieldSet) setFloat(a *sparse.DenseArray, cells []Cell, v float64, p MergePolicy) {
	for _, c := range cells {
		n := c.I*f.ny + c.J
		a.Elements[n] = p.merge(a.Elements[n], v)
	}
}

func (f *FieldSet) setInt(a *sparse.DenseArrayInt, cells []Cell, v int) {
	for _, c := range cells {
		a.Elements[c.I*f.ny+c.J] = v
	}
}
