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

	"github.com/ctessum/geom/proj"
)

// EarthRadius is the radius of the Earth used by MesoNH, in m.
const EarthRadius = 6371229.0

// Projection is the conformal projection of a MesoNH domain, as given by
// the NAM_CONF_PROJ namelist. Only the Mercator projection without
// rotation (RPK = 0 and Beta = 0) is supported.
type Projection struct {
	// Lat0 and Lon0 are the reference latitude and longitude, in degrees.
	Lat0 float64 `hcl:"lat0"`
	Lon0 float64 `hcl:"lon0"`

	// LatOri and LonOri are the latitude and longitude of the domain
	// origin (x = 0, y = 0), in degrees.
	LatOri float64 `hcl:"lat_ori"`
	LonOri float64 `hcl:"lon_ori"`

	// RPK is the cone factor and Beta the rotation angle.
	RPK  float64 `hcl:"rpk,optional"`
	Beta float64 `hcl:"beta,optional"`
}

// Transformer returns a function converting longitude and latitude, in
// degrees, to domain coordinates in m.
func (p Projection) Transformer() (proj.Transformer, error) {
	if p.RPK != 0 || p.Beta != 0 {
		return nil, fmt.Errorf("fuelmap: unsupported projection with RPK = %g and BETA = %g; only Mercator without rotation is supported",
			p.RPK, p.Beta)
	}
	lonlat, err := proj.Parse(fmt.Sprintf("+proj=longlat +a=%g +b=%g +no_defs", EarthRadius, EarthRadius))
	if err != nil {
		return nil, err
	}
	merc, err := proj.Parse(fmt.Sprintf("+proj=merc +lon_0=%g +lat_ts=%g +a=%g +b=%g +units=m +no_defs",
		p.Lon0, p.Lat0, EarthRadius, EarthRadius))
	if err != nil {
		return nil, err
	}
	t, err := lonlat.NewTransform(merc)
	if err != nil {
		return nil, err
	}
	xo, yo, err := t(p.LonOri, p.LatOri)
	if err != nil {
		return nil, fmt.Errorf("fuelmap: projecting domain origin: %w", err)
	}
	return func(lon, lat float64) (x, y float64, err error) {
		x, y, err = t(lon, lat)
		if err != nil {
			return 0, 0, err
		}
		return x - xo, y - yo, nil
	}, nil
}
