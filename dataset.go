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
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

var (
	// ErrMissingVariable is returned when a dataset does not contain a
	// required variable.
	ErrMissingVariable = errors.New("variable not found")

	// ErrMissingAttribute is returned when a dataset does not contain a
	// required global attribute.
	ErrMissingAttribute = errors.New("attribute not found")
)

// timesVar is the name of the WRF variable holding the date strings.
const timesVar = "Times"

// dateStrLen is the length of a WRF date string.
const dateStrLen = 19

// Variable is a gridded field.
type Variable struct {
	Dims        []string // netcdf dimensions for this variable
	Description string   // variable description
	Units       string   // variable units

	// Attrs holds any other text attributes, e.g. "stagger".
	Attrs map[string]string

	Data *sparse.DenseArray
}

// Copy returns a deep copy of v.
func (v *Variable) Copy() *Variable {
	o := &Variable{
		Dims:        append([]string{}, v.Dims...),
		Description: v.Description,
		Units:       v.Units,
		Data:        v.Data.Copy(),
	}
	if v.Attrs != nil {
		o.Attrs = make(map[string]string, len(v.Attrs))
		for k, a := range v.Attrs {
			o.Attrs[k] = a
		}
	}
	return o
}

// dimIndex returns the index of dimension dim in v, or -1.
func (v *Variable) dimIndex(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Dataset is a read-only view of a model file.
type Dataset interface {
	// Attribute returns the global attribute called name.
	Attribute(name string) (interface{}, bool)

	// AttributeNames returns the names of the global attributes.
	AttributeNames() []string

	// Variables returns the names of the gridded variables, not including
	// the Times variable.
	Variables() []string

	// Variable reads the variable called name. The error wraps
	// ErrMissingVariable if there is no such variable.
	Variable(name string) (*Variable, error)

	// Times returns the date string of each time step.
	Times() ([]string, error)

	Close() error
}

// File is a NetCDF file opened for reading. Both classic and NetCDF-4
// files are supported.
type File struct {
	path string
	nc   api.Group
}

// OpenFile opens the NetCDF file at path.
func OpenFile(path string) (*File, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: opening %s: %v", path, err)
	}
	return &File{path: path, nc: nc}, nil
}

// Attribute implements Dataset.
func (f *File) Attribute(name string) (interface{}, bool) {
	return f.nc.Attributes().Get(name)
}

// AttributeNames implements Dataset.
func (f *File) AttributeNames() []string {
	return f.nc.Attributes().Keys()
}

// Variables implements Dataset.
func (f *File) Variables() []string {
	var names []string
	for _, n := range f.nc.ListVariables() {
		if n != timesVar {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Variable implements Dataset.
func (f *File) Variable(name string) (*Variable, error) {
	vg, err := f.nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %s: %s: %w", f.path, name, ErrMissingVariable)
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %s: reading %s: %v", f.path, name, err)
	}
	shape := nestedShape(reflect.ValueOf(vals))
	if len(shape) != len(vg.Dimensions()) {
		return nil, fmt.Errorf("wrfhail: %s: %s has %d dimensions but its values are nested %d deep",
			f.path, name, len(vg.Dimensions()), len(shape))
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	elements := make([]float64, 0, n)
	elements, err = flatten(reflect.ValueOf(vals), elements)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %s: reading %s: %v", f.path, name, err)
	}
	if len(elements) != n {
		return nil, fmt.Errorf("wrfhail: %s: %s: dims are %d but array length is %d",
			f.path, name, n, len(elements))
	}
	data := sparse.ZerosDense(shape...)
	copy(data.Elements, elements)

	v := &Variable{
		Dims: append([]string{}, vg.Dimensions()...),
		Data: data,
	}
	if len(v.Dims) == 0 {
		v.Dims = []string{"scalar"}
	}
	attrs := vg.Attributes()
	for _, k := range attrs.Keys() {
		val, _ := attrs.Get(k)
		s, ok := val.(string)
		if !ok {
			continue
		}
		switch k {
		case "description":
			v.Description = s
		case "units":
			v.Units = s
		default:
			if v.Attrs == nil {
				v.Attrs = make(map[string]string)
			}
			v.Attrs[k] = s
		}
	}
	return v, nil
}

// Times implements Dataset.
func (f *File) Times() ([]string, error) {
	vg, err := f.nc.GetVarGetter(timesVar)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %s: %s: %w", f.path, timesVar, ErrMissingVariable)
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %s: reading %s: %v", f.path, timesVar, err)
	}
	return dateStrings(vals)
}

// Close implements Dataset.
func (f *File) Close() error {
	f.nc.Close()
	return nil
}

// nestedShape returns the lengths of the nested slices in v, taking the
// first element at each level. Levels below an empty slice have length 0.
func nestedShape(v reflect.Value) []int {
	var shape []int
	if !v.IsValid() {
		return shape
	}
	t := v.Type()
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		n := 0
		if v.IsValid() {
			n = v.Len()
		}
		shape = append(shape, n)
		if n > 0 {
			v = v.Index(0)
		} else {
			v = reflect.Value{}
		}
		t = t.Elem()
	}
	return shape
}

// flatten appends the numbers in the (possibly nested) slice v to dst in
// row-major order.
func flatten(v reflect.Value, dst []float64) ([]float64, error) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		var err error
		for i := 0; i < v.Len(); i++ {
			if dst, err = flatten(v.Index(i), dst); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case reflect.Float32, reflect.Float64:
		return append(dst, v.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(dst, float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(dst, float64(v.Uint())), nil
	case reflect.Interface:
		return flatten(v.Elem(), dst)
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type())
	}
}

// dateStrings converts the values of a character variable to strings of
// dateStrLen characters.
func dateStrings(vals interface{}) ([]string, error) {
	switch t := vals.(type) {
	case []string:
		return t, nil
	case string:
		var o []string
		for i := 0; i+dateStrLen <= len(t); i += dateStrLen {
			o = append(o, t[i:i+dateStrLen])
		}
		return o, nil
	case []byte:
		return dateStrings(string(t))
	case [][]byte:
		o := make([]string, len(t))
		for i, b := range t {
			o[i] = string(b)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("wrfhail: unsupported %s type %T", timesVar, vals)
	}
}

// AttributeInt returns the global attribute name of ds as an integer.
func AttributeInt(ds Dataset, name string) (int, error) {
	f, err := AttributeFloat(ds, name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("wrfhail: attribute %s = %v is not an integer", name, f)
	}
	return int(f), nil
}

// AttributeFloat returns the global attribute name of ds as a float. If
// the attribute holds several values the first is used.
func AttributeFloat(ds Dataset, name string) (float64, error) {
	val, ok := ds.Attribute(name)
	if !ok {
		return 0, fmt.Errorf("wrfhail: %s: %w", name, ErrMissingAttribute)
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.String {
		return 0, fmt.Errorf("wrfhail: attribute %s is text, not a number", name)
	}
	vals, err := flatten(rv, nil)
	if err != nil {
		return 0, fmt.Errorf("wrfhail: attribute %s: %v", name, err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("wrfhail: attribute %s is empty", name)
	}
	return vals[0], nil
}

// AttributeString returns the text attribute name of ds.
func AttributeString(ds Dataset, name string) (string, error) {
	val, ok := ds.Attribute(name)
	if !ok {
		return "", fmt.Errorf("wrfhail: %s: %w", name, ErrMissingAttribute)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("wrfhail: attribute %s is %T, not text", name, val)
	}
	return strings.TrimRight(s, "\x00"), nil
}

// Data is an in-memory dataset. It can be built up variable by variable
// and written to a NetCDF file.
type Data struct {
	// Attrs are the global attributes. Values may be strings or numbers,
	// or slices of numbers.
	Attrs map[string]interface{}

	// Vars are the gridded variables, with the keys being the variable
	// names.
	Vars map[string]*Variable

	// TimeStrings are the date strings of each time step. They are
	// written to a Times variable along dimension TimeDim.
	TimeStrings []string
	TimeDim     string
}

// NewData returns an empty dataset.
func NewData() *Data {
	return &Data{
		Attrs:   make(map[string]interface{}),
		Vars:    make(map[string]*Variable),
		TimeDim: "Time",
	}
}

// ReadAll reads every variable and global attribute of ds into memory.
// A missing Times variable is not an error.
func ReadAll(ds Dataset) (*Data, error) {
	d := NewData()
	for _, name := range ds.AttributeNames() {
		d.Attrs[name], _ = ds.Attribute(name)
	}
	for _, name := range ds.Variables() {
		v, err := ds.Variable(name)
		if err != nil {
			return nil, err
		}
		d.Vars[name] = v
	}
	times, err := ds.Times()
	if err != nil && !errors.Is(err, ErrMissingVariable) {
		return nil, err
	}
	d.TimeStrings = times
	if len(times) > 0 {
		if f, ok := ds.(*File); ok {
			if vg, err := f.nc.GetVarGetter(timesVar); err == nil && len(vg.Dimensions()) > 0 {
				d.TimeDim = vg.Dimensions()[0]
			}
		}
	}
	return d, nil
}

// Attribute implements Dataset.
func (d *Data) Attribute(name string) (interface{}, bool) {
	v, ok := d.Attrs[name]
	return v, ok
}

// AttributeNames implements Dataset.
func (d *Data) AttributeNames() []string {
	names := make([]string, 0, len(d.Attrs))
	for n := range d.Attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Variables implements Dataset.
func (d *Data) Variables() []string {
	names := make([]string, 0, len(d.Vars))
	for n := range d.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Variable implements Dataset.
func (d *Data) Variable(name string) (*Variable, error) {
	v, ok := d.Vars[name]
	if !ok {
		return nil, fmt.Errorf("wrfhail: %s: %w", name, ErrMissingVariable)
	}
	return v, nil
}

// Times implements Dataset.
func (d *Data) Times() ([]string, error) {
	return d.TimeStrings, nil
}

// Close implements Dataset.
func (d *Data) Close() error { return nil }

// Rename renames variable oldName to newName.
func (d *Data) Rename(oldName, newName string) error {
	v, ok := d.Vars[oldName]
	if !ok {
		return fmt.Errorf("wrfhail: renaming %s: %w", oldName, ErrMissingVariable)
	}
	if _, ok := d.Vars[newName]; ok {
		return fmt.Errorf("wrfhail: renaming %s: variable %s already exists", oldName, newName)
	}
	delete(d.Vars, oldName)
	d.Vars[newName] = v
	return nil
}

// RenameDims renames dimensions in every variable. Keys of dims are the
// old names.
func (d *Data) RenameDims(dims map[string]string) {
	for _, v := range d.Vars {
		for i, dim := range v.Dims {
			if n, ok := dims[dim]; ok {
				v.Dims[i] = n
			}
		}
	}
	if n, ok := dims[d.TimeDim]; ok {
		d.TimeDim = n
	}
}
