/*
Copyright © 2024 the wrfhail authors.
This file is part of wrfhail.

wrfhail is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfhail is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfhail.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfhail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// ErrTerrainNotConstant is returned when terrain height changes between
// time steps of a file.
var ErrTerrainNotConstant = errors.New("terrain is not constant")

// BasicFields are the fields the basic post-processor can compute, in
// the order they are computed.
var BasicFields = []string{
	"pressure", "temperature", "rh", "u", "v", "w", "z", "z_agl",
	"mixing_ratio", "pw", "ter", "td",
	"hailcast_diam_max", "hailnc", "graupelnc", "hail_maxk1", "hail_max2d", "graupel_max",
	"specific_humidity",
}

// rawFields are output fields copied from WRF variables.
var rawFields = map[string]string{
	"mixing_ratio":      "QVAPOR",
	"hailcast_diam_max": "HAILCAST_DIAM_MAX",
	"hailnc":            "HAILNC",
	"graupelnc":         "GRAUPELNC",
	"hail_maxk1":        "HAIL_MAXK1",
	"hail_max2d":        "HAIL_MAX2D",
	"graupel_max":       "GRPL_MAX",
}

// Output dimension names.
const (
	timeDim      = "time"
	levelDim     = "bottom_top"
	southNorth   = "south_north"
	westEast     = "west_east"
	wrfTimeDim   = "Time"
	levelStagDim = "bottom_top_stag"
)

var (
	massDims4 = []string{timeDim, levelDim, southNorth, westEast}
	massDims3 = []string{timeDim, southNorth, westEast}
)

// CheckBasicFields returns an error if any of fields cannot be computed
// by the basic post-processor.
func CheckBasicFields(fields []string) error {
	known := make(map[string]bool, len(BasicFields))
	for _, f := range BasicFields {
		known[f] = true
	}
	var unknown []string
	for _, f := range fields {
		if !known[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("wrfhail: unknown basic field(s) %s; valid fields are %s",
			strings.Join(unknown, ", "), strings.Join(BasicFields, ", "))
	}
	return nil
}

// Basic computes basic atmospheric fields from WRF output files.
type Basic struct {
	// Fields to compute. All BasicFields are computed if Fields is empty.
	Fields []string

	// Derived are fields calculated from the computed fields and any
	// other BasicFields. They are added to the output.
	Derived []DerivedField

	Log logrus.FieldLogger
}

// OutputName returns the name of the file Basic writes for input file
// in: the first "wrfout" in the file name is replaced by "basic_params"
// and ".nc" is appended.
func (b *Basic) OutputName(in string) string {
	dir, name := filepath.Split(in)
	return dir + strings.Replace(name, "wrfout", "basic_params", 1) + ".nc"
}

// ProcessFile implements Processor.
func (b *Basic) ProcessFile(ctx context.Context, in string, out *os.File) (err error) {
	f, err := OpenFile(in)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	d, err := b.Process(ctx, f)
	if err != nil {
		return err
	}
	return d.Write(out)
}

// Process computes the fields from WRF dataset ds. Time, level and
// horizontal dimensions are named time, bottom_top, south_north and
// west_east in the result, and the map projection is stored as the
// global attribute "projection".
func (b *Basic) Process(ctx context.Context, ds Dataset) (*Data, error) {
	fields := b.Fields
	if len(fields) == 0 {
		fields = BasicFields
	}
	if err := CheckBasicFields(fields); err != nil {
		return nil, err
	}
	w := &wrfFields{ds: ds}
	if _, err := w.terrain(); err != nil {
		return nil, fmt.Errorf("wrfhail: %w", err)
	}
	o := NewData()
	o.TimeDim = timeDim
	for _, name := range fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := w.field(name)
		if err != nil {
			return nil, fmt.Errorf("wrfhail: computing %s: %w", name, err)
		}
		o.Vars[name] = v
	}
	for name, wrfName := range map[string]string{"latitude": "XLAT", "longitude": "XLONG"} {
		v, err := w.coordinate(wrfName)
		if err != nil {
			return nil, fmt.Errorf("wrfhail: reading coordinates: %w", err)
		}
		o.Vars[name] = v
	}
	for _, d := range b.Derived {
		v, err := d.evaluate(func(name string) (*Variable, error) {
			if v, ok := o.Vars[name]; ok {
				return v, nil
			}
			if CheckBasicFields([]string{name}) != nil {
				return nil, fmt.Errorf("%w: unknown field %s", ErrMissingVariable, name)
			}
			return w.field(name)
		})
		if err != nil {
			return nil, err
		}
		o.Vars[d.Name] = v
	}
	times, err := ds.Times()
	if err != nil {
		return nil, err
	}
	o.TimeStrings = times
	o.Attrs["projection"] = Projection(ds)
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"fields": len(o.Vars), "times": len(times)}).Debug("computed basic fields")
	}
	return o, nil
}

// wrfFields computes fields from a WRF dataset, keeping intermediate
// results that are needed by more than one field.
type wrfFields struct {
	ds Dataset

	p, tk, zStag, z, hgt *sparse.DenseArray
}

func (w *wrfFields) read(name string) (*Variable, error) {
	return w.ds.Variable(name)
}

func (w *wrfFields) readData(name string) (*sparse.DenseArray, error) {
	v, err := w.read(name)
	if err != nil {
		return nil, err
	}
	return v.Data, nil
}

// pressure returns full pressure [Pa].
func (w *wrfFields) pressure() (*sparse.DenseArray, error) {
	if w.p != nil {
		return w.p, nil
	}
	p, err := w.readData("P")
	if err != nil {
		return nil, err
	}
	pb, err := w.readData("PB")
	if err != nil {
		return nil, err
	}
	w.p, err = fullPressure(p, pb)
	return w.p, err
}

func (w *wrfFields) temperature() (*sparse.DenseArray, error) {
	if w.tk != nil {
		return w.tk, nil
	}
	theta, err := w.readData("T")
	if err != nil {
		return nil, err
	}
	p, err := w.pressure()
	if err != nil {
		return nil, err
	}
	w.tk, err = temperature(theta, p)
	return w.tk, err
}

func (w *wrfFields) heightStaggered() (*sparse.DenseArray, error) {
	if w.zStag != nil {
		return w.zStag, nil
	}
	ph, err := w.readData("PH")
	if err != nil {
		return nil, err
	}
	phb, err := w.readData("PHB")
	if err != nil {
		return nil, err
	}
	w.zStag, err = geopotentialHeight(ph, phb)
	return w.zStag, err
}

func (w *wrfFields) height() (*sparse.DenseArray, error) {
	if w.z != nil {
		return w.z, nil
	}
	zStag, err := w.heightStaggered()
	if err != nil {
		return nil, err
	}
	w.z, err = destagger(zStag, 1)
	return w.z, err
}

// terrain returns HGT after checking that it does not change over time.
func (w *wrfFields) terrain() (*sparse.DenseArray, error) {
	if w.hgt != nil {
		return w.hgt, nil
	}
	hgt, err := w.readData("HGT")
	if err != nil {
		return nil, err
	}
	if !constantOver(hgt, 0) {
		return nil, ErrTerrainNotConstant
	}
	w.hgt = hgt
	return hgt, nil
}

func (w *wrfFields) qvapor() (*sparse.DenseArray, error) {
	return w.readData("QVAPOR")
}

func newVariable(dims []string, description, units string, data *sparse.DenseArray) *Variable {
	return &Variable{
		Dims:        append([]string{}, dims...),
		Description: description,
		Units:       units,
		Data:        data,
	}
}

func (w *wrfFields) field(name string) (*Variable, error) {
	if wrfName, ok := rawFields[name]; ok {
		v, err := w.read(wrfName)
		if err != nil {
			return nil, err
		}
		v = v.Copy()
		v.Attrs = nil
		renameDims(v.Dims)
		return v, nil
	}
	switch name {
	case "pressure":
		p, err := w.pressure()
		if err != nil {
			return nil, err
		}
		hPa := p.ScaleCopy(0.01)
		return newVariable(massDims4, "pressure", "hPa", hPa), nil
	case "temperature":
		tk, err := w.temperature()
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "temperature", "K", tk), nil
	case "rh":
		qv, err := w.qvapor()
		if err != nil {
			return nil, err
		}
		p, err := w.pressure()
		if err != nil {
			return nil, err
		}
		tk, err := w.temperature()
		if err != nil {
			return nil, err
		}
		rh, err := relativeHumidity(qv, p, tk)
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "relative humidity", "%", rh), nil
	case "u", "v", "w":
		return w.wind(name)
	case "z":
		z, err := w.height()
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "model height - [MSL] (mass grid)", "m", z), nil
	case "z_agl":
		z, err := w.height()
		if err != nil {
			return nil, err
		}
		hgt, err := w.terrain()
		if err != nil {
			return nil, err
		}
		agl, err := heightAGL(z, hgt)
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "model height - [AGL] (mass grid)", "m", agl), nil
	case "pw":
		qv, err := w.qvapor()
		if err != nil {
			return nil, err
		}
		p, err := w.pressure()
		if err != nil {
			return nil, err
		}
		tk, err := w.temperature()
		if err != nil {
			return nil, err
		}
		zStag, err := w.heightStaggered()
		if err != nil {
			return nil, err
		}
		pw, err := precipitableWater(qv, p, tk, zStag)
		if err != nil {
			return nil, err
		}
		return newVariable(massDims3, "precipitable water", "kg m-2", pw), nil
	case "ter":
		hgt, err := w.terrain()
		if err != nil {
			return nil, err
		}
		ter, err := lowestLevel(hgt, 0)
		if err != nil {
			return nil, err
		}
		return newVariable([]string{southNorth, westEast}, "terrain height", "m", ter), nil
	case "td":
		qv, err := w.qvapor()
		if err != nil {
			return nil, err
		}
		p, err := w.pressure()
		if err != nil {
			return nil, err
		}
		td, err := dewPoint(qv, p)
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "dew point temperature", "degC", td), nil
	case "specific_humidity":
		qv, err := w.qvapor()
		if err != nil {
			return nil, err
		}
		return newVariable(massDims4, "specific humidity", "dimensionless", specificHumidity(qv)), nil
	}
	return nil, fmt.Errorf("unknown field %s", name)
}

// wind returns a wind component on the mass grid.
func (w *wrfFields) wind(name string) (*Variable, error) {
	var wrfName, dim, desc string
	switch name {
	case "u":
		wrfName, dim, desc = "U", "west_east_stag", "destaggered u-wind component"
	case "v":
		wrfName, dim, desc = "V", "south_north_stag", "destaggered v-wind component"
	default:
		wrfName, dim, desc = "W", levelStagDim, "destaggered w-wind component"
	}
	v, err := w.read(wrfName)
	if err != nil {
		return nil, err
	}
	i := v.dimIndex(dim)
	if i < 0 {
		return nil, fmt.Errorf("variable %s has no dimension %s", wrfName, dim)
	}
	data, err := destagger(v.Data, i)
	if err != nil {
		return nil, err
	}
	return newVariable(massDims4, desc, "m s-1", data), nil
}

// coordinate reads XLAT or XLONG. It is returned as [south_north,
// west_east] when it does not change over time, which is the case
// unless the domain moves.
func (w *wrfFields) coordinate(name string) (*Variable, error) {
	v, err := w.read(name)
	if err != nil {
		return nil, err
	}
	desc, units := "latitude, south is negative", "degree_north"
	if name == "XLONG" {
		desc, units = "longitude, west is negative", "degree_east"
	}
	if len(v.Dims) == 3 && v.Dims[0] == wrfTimeDim && constantOver(v.Data, 0) {
		data, err := lowestLevel(v.Data, 0)
		if err != nil {
			return nil, err
		}
		return newVariable([]string{southNorth, westEast}, desc, units, data), nil
	}
	o := newVariable(v.Dims, desc, units, v.Data.Copy())
	renameDims(o.Dims)
	return o, nil
}

// renameDims renames the WRF time dimension in place.
func renameDims(dims []string) {
	for i, d := range dims {
		if d == wrfTimeDim {
			dims[i] = timeDim
		}
	}
}

// Projection describes the map projection of WRF dataset ds, e.g.
//
//	LambertConformal(stand_lon=150.0, moad_cen_lat=-30.5, truelat1=-30.5, truelat2=-30.5, pole_lat=90.0, pole_lon=0.0)
func Projection(ds Dataset) string {
	code, err := AttributeInt(ds, "MAP_PROJ")
	if err != nil {
		return "NullProjection()"
	}
	attr := func(name string) string {
		v, err := AttributeFloat(ds, name)
		if err != nil {
			return "None"
		}
		return formatFloat32(v)
	}
	var name string
	switch code {
	case 1:
		name = "LambertConformal"
	case 2:
		name = "PolarStereographic"
	case 3:
		name = "Mercator"
	case 6:
		name = "LatLon"
		if poleLat, err := AttributeFloat(ds, "POLE_LAT"); err == nil && poleLat != 90 {
			name = "RotatedLatLon"
		}
	default:
		return "NullProjection()"
	}
	return fmt.Sprintf("%s(stand_lon=%s, moad_cen_lat=%s, truelat1=%s, truelat2=%s, pole_lat=%s, pole_lon=%s)",
		name, attr("STAND_LON"), attr("MOAD_CEN_LAT"), attr("TRUELAT1"), attr("TRUELAT2"),
		attr("POLE_LAT"), attr("POLE_LON"))
}
