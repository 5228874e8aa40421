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

import "errors"

// Errors returned by grid construction, patch application and layout
// conversion. Callers should test for them with errors.Is, as they are
// usually wrapped with additional context.
var (
	// ErrInvalidDimension is returned when a grid is built with a
	// non-positive extent, refinement ratio or cell size.
	ErrInvalidDimension = errors.New("fuelmap: invalid grid dimension")

	// ErrUnknownFuelKey is returned when a fuel patch references a key
	// that the fuel database cannot resolve.
	ErrUnknownFuelKey = errors.New("fuelmap: unknown fuel key")

	// ErrDegenerateLine is returned for malformed walking ignition lines.
	ErrDegenerateLine = errors.New("fuelmap: degenerate walking ignition line")

	// ErrShapeMismatch is returned when an array or dataset variable does
	// not have the shape required by a layout conversion.
	ErrShapeMismatch = errors.New("fuelmap: shape mismatch")
)
