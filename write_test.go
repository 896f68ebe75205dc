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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteRead(t *testing.T) {
	d := NewData()
	d.TimeDim = "time"
	d.TimeStrings = []string{"2020-01-15_00:00:00", "2020-01-15_00:10:00"}
	d.Attrs["projection"] = "LambertConformal()"
	d.Attrs["DX"] = 1000.0
	d.Attrs["MP_PHYSICS"] = 17
	d.Vars["pressure"] = &Variable{
		Dims:        []string{"time", "bottom_top", "south_north", "west_east"},
		Description: "pressure",
		Units:       "hPa",
		Attrs:       map[string]string{"coordinates": "XLONG XLAT"},
		Data:        denseArray([]int{2, 1, 1, 2}, 1000, 999.5, 998, 997.25),
	}
	d.Vars["ter"] = &Variable{
		Dims:  []string{"south_north", "west_east"},
		Units: "m",
		Data:  denseArray([]int{1, 2}, 10, 20),
	}

	path := filepath.Join(t.TempDir(), "out.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Write(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	have, err := ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have.Variables(), []string{"pressure", "ter"}) {
		t.Errorf("variables %v", have.Variables())
	}
	if !reflect.DeepEqual(have.TimeStrings, d.TimeStrings) {
		t.Errorf("times %v", have.TimeStrings)
	}
	if have.TimeDim != "time" {
		t.Errorf("time dimension %s", have.TimeDim)
	}
	p := have.Vars["pressure"]
	if !reflect.DeepEqual(p.Dims, d.Vars["pressure"].Dims) {
		t.Errorf("pressure dims %v", p.Dims)
	}
	if p.Units != "hPa" || p.Description != "pressure" {
		t.Errorf("pressure attributes %q %q", p.Units, p.Description)
	}
	if !reflect.DeepEqual(p.Data.Shape, []int{2, 1, 1, 2}) {
		t.Errorf("pressure shape %v", p.Data.Shape)
	}
	if s := have.Vars["ter"].Data.Shape; !reflect.DeepEqual(s, []int{1, 2}) {
		t.Errorf("ter shape %v", s)
	}
	arrayCompare(p.Data, d.Vars["pressure"].Data, 1e-6, "pressure", t)
	arrayCompare(have.Vars["ter"].Data, d.Vars["ter"].Data, 1e-6, "ter", t)

	if proj, err := AttributeString(have, "projection"); err != nil || proj != "LambertConformal()" {
		t.Errorf("projection %q, %v", proj, err)
	}
	if dx, err := AttributeFloat(have, "DX"); err != nil || dx != 1000 {
		t.Errorf("DX %g, %v", dx, err)
	}
	if mp, err := AttributeInt(have, "MP_PHYSICS"); err != nil || mp != 17 {
		t.Errorf("MP_PHYSICS %d, %v", mp, err)
	}
}

func TestNestedShape(t *testing.T) {
	for _, test := range []struct {
		name string
		vals interface{}
		want []int
	}{
		{"scalar", float32(1), nil},
		{"1d", []int32{1, 2, 3}, []int{3}},
		{"3d", [][][]float32{{{1, 2}, {3, 4}, {5, 6}}}, []int{1, 3, 2}},
		{"empty", [][]float64{}, []int{0, 0}},
	} {
		t.Run(test.name, func(t *testing.T) {
			have := nestedShape(reflect.ValueOf(test.vals))
			if !reflect.DeepEqual(have, test.want) {
				t.Errorf("have %v, want %v", have, test.want)
			}
		})
	}
}

func TestWriteDimensionMismatch(t *testing.T) {
	d := NewData()
	d.Vars["a"] = &Variable{Dims: []string{"x"}, Data: denseArray([]int{2})}
	d.Vars["b"] = &Variable{Dims: []string{"x"}, Data: denseArray([]int{3})}
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := d.Write(f); err == nil {
		t.Error("expected an error for inconsistent dimension lengths")
	}
}

func TestRename(t *testing.T) {
	d := testWRFData()
	if err := d.Rename("QVAPOR", "qv"); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Vars["qv"]; !ok {
		t.Error("renamed variable missing")
	}
	if err := d.Rename("QVAPOR", "x"); err == nil {
		t.Error("expected an error renaming a missing variable")
	}
	if err := d.Rename("qv", "P"); err == nil {
		t.Error("expected an error renaming onto an existing variable")
	}
	d.RenameDims(map[string]string{"Time": "time"})
	if d.TimeDim != "time" || d.Vars["P"].Dims[0] != "time" {
		t.Error("dimensions not renamed")
	}
}
