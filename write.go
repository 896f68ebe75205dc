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
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Write writes d to w as a NetCDF classic file. Variables are stored in
// single precision and written in sorted order so output is reproducible.
func (d *Data) Write(w *os.File) error {
	names := d.Variables()
	dims, lengths, err := d.dimensions(names)
	if err != nil {
		return err
	}
	h := cdf.NewHeader(dims, lengths)

	for _, name := range d.AttributeNames() {
		val, err := cdfAttribute(d.Attrs[name])
		if err != nil {
			return fmt.Errorf("wrfhail: global attribute %s: %v", name, err)
		}
		h.AddAttribute("", name, val)
	}
	for _, name := range names {
		v := d.Vars[name]
		h.AddVariable(name, v.Dims, []float32{0})
		if v.Description != "" {
			h.AddAttribute(name, "description", v.Description)
		}
		if v.Units != "" {
			h.AddAttribute(name, "units", v.Units)
		}
		keys := make([]string, 0, len(v.Attrs))
		for k := range v.Attrs {
			if k != "description" && k != "units" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.AddAttribute(name, k, v.Attrs[k])
		}
	}
	if len(d.TimeStrings) > 0 {
		h.AddVariable(timesVar, []string{d.TimeDim, "DateStrLen"}, "")
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("wrfhail: writing netcdf header: %v", err)
	}
	for _, name := range names {
		if err = writeNCF(f, name, d.Vars[name].Data); err != nil {
			return fmt.Errorf("wrfhail: writing variable %s to netcdf file: %v", name, err)
		}
	}
	if len(d.TimeStrings) > 0 {
		var b strings.Builder
		for _, t := range d.TimeStrings {
			b.WriteString(padDate(t))
		}
		end := f.Header.Lengths(timesVar)
		if _, err = f.Writer(timesVar, make([]int, len(end)), end).Write(b.String()); err != nil {
			return fmt.Errorf("wrfhail: writing variable %s to netcdf file: %v", timesVar, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// dimensions collects the dimensions used by the variables in names, in
// order of first use, with the time dimension first.
func (d *Data) dimensions(names []string) ([]string, []int, error) {
	var dims []string
	length := make(map[string]int)
	add := func(dim string, n int, user string) error {
		if l, ok := length[dim]; ok {
			if l != n {
				return fmt.Errorf("wrfhail: dimension %s has length %d in %s but %d elsewhere", dim, n, user, l)
			}
			return nil
		}
		length[dim] = n
		dims = append(dims, dim)
		return nil
	}
	if len(d.TimeStrings) > 0 {
		if err := add(d.TimeDim, len(d.TimeStrings), timesVar); err != nil {
			return nil, nil, err
		}
		if err := add("DateStrLen", dateStrLen, timesVar); err != nil {
			return nil, nil, err
		}
	}
	for _, name := range names {
		v := d.Vars[name]
		if len(v.Dims) != len(v.Data.Shape) {
			return nil, nil, fmt.Errorf("wrfhail: variable %s has %d dimensions but data has %d",
				name, len(v.Dims), len(v.Data.Shape))
		}
		for i, dim := range v.Dims {
			if err := add(dim, v.Data.Shape[i], name); err != nil {
				return nil, nil, err
			}
		}
	}
	lengths := make([]int, len(dims))
	for i, dim := range dims {
		lengths[i] = length[dim]
	}
	return dims, lengths, nil
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	_, err := f.Writer(Var, start, end).Write(data32)
	return err
}

// cdfAttribute converts an attribute value to one of the types the NetCDF
// writer accepts.
func cdfAttribute(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case string, []float64, []float32, []int32, []int16, []uint8:
		return v, nil
	case float64:
		return []float64{v}, nil
	case float32:
		return []float32{v}, nil
	case int:
		return []int32{int32(v)}, nil
	case int32:
		return []int32{v}, nil
	case int16:
		return []int16{v}, nil
	case int8:
		return []uint8{uint8(v)}, nil
	case []int:
		o := make([]int32, len(v))
		for i, x := range v {
			o[i] = int32(x)
		}
		return o, nil
	case int64:
		return []int32{int32(v)}, nil
	case []int64:
		o := make([]int32, len(v))
		for i, x := range v {
			o[i] = int32(x)
		}
		return o, nil
	case []int8:
		o := make([]uint8, len(v))
		for i, x := range v {
			o[i] = uint8(x)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}

// padDate pads or truncates s to dateStrLen characters.
func padDate(s string) string {
	if len(s) >= dateStrLen {
		return s[:dateStrLen]
	}
	return s + strings.Repeat(" ", dateStrLen-len(s))
}
