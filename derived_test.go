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
	"reflect"
	"testing"

	"github.com/kr/pretty"
)

func TestParseDerivedFields(t *testing.T) {
	have, err := ParseDerivedFields([]string{
		"hail_in[in] = hailcast_diam_max / 25.4",
		"p_pa=pressure*100",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []DerivedField{
		{Name: "hail_in", Expression: "hailcast_diam_max / 25.4", Units: "in"},
		{Name: "p_pa", Expression: "pressure*100"},
	}
	if diff := pretty.Diff(have, want); len(diff) != 0 {
		t.Error(diff)
	}

	for _, def := range []string{
		"hail_in",
		"1hail = hailnc",
		"pressure = pressure * 100",
		"latitude = latitude",
		"x = pressure +",
		"x = 2 * 3",
	} {
		if _, err := ParseDerivedFields([]string{def}); err == nil {
			t.Errorf("%q: expected an error", def)
		}
	}
	if _, err := ParseDerivedFields([]string{"x = hailnc", "x = graupelnc"}); err == nil {
		t.Error("expected an error for a duplicate name")
	}
}

func TestBasicDerived(t *testing.T) {
	b := &Basic{
		Fields: []string{"pressure"},
		Derived: []DerivedField{
			{Name: "p_pa", Expression: "pressure * 100", Units: "Pa"},
			{Name: "hail_in", Expression: "hailcast_diam_max / 25.4", Units: "in"},
			{Name: "p_ratio", Expression: "min(p_pa / 100000, 1)"},
		},
	}
	o, err := b.Process(context.Background(), testWRFData())
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Vars) != 6 {
		t.Errorf("have variables %v", o.Variables())
	}
	if _, ok := o.Vars["hailcast_diam_max"]; ok {
		t.Error("hailcast_diam_max should only be used, not written")
	}
	checks := []struct {
		name string
		have float64
		want float64
	}{
		{"p_pa", o.Vars["p_pa"].Data.Get(1, 2, 0, 1), 80000},
		{"hail_in", o.Vars["hail_in"].Data.Get(1, 0, 0), 1 / 25.4},
		{"p_ratio", o.Vars["p_ratio"].Data.Get(0, 0, 0, 0), 1},
		{"p_ratio", o.Vars["p_ratio"].Data.Get(0, 1, 0, 0), 0.9},
	}
	for _, c := range checks {
		if different(c.have, c.want, 1e-9) {
			t.Errorf("%s: have %g, want %g", c.name, c.have, c.want)
		}
	}
	if have := o.Vars["hail_in"].Dims; !reflect.DeepEqual(have, []string{"time", "south_north", "west_east"}) {
		t.Errorf("hail_in dims %v", have)
	}
	if o.Vars["p_pa"].Units != "Pa" || o.Vars["p_pa"].Description != "pressure * 100" {
		t.Errorf("p_pa attributes %+v", o.Vars["p_pa"])
	}
}

func TestBasicDerivedErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		is   error
	}{
		{name: "dimension mismatch", expr: "pressure + ter"},
		{name: "unknown field", expr: "reflectivity * 2", is: ErrMissingVariable},
		{name: "not a number", expr: "pressure > 500"},
		{name: "boolean argument", expr: "sqrt(pressure > 500)"},
		{name: "boolean second argument", expr: "max(pressure, pressure > 500)"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := &Basic{
				Fields:  []string{"pressure"},
				Derived: []DerivedField{{Name: "x", Expression: test.expr}},
			}
			_, err := b.Process(context.Background(), testWRFData())
			if err == nil {
				t.Fatal("expected an error")
			}
			if test.is != nil && !errors.Is(err, test.is) {
				t.Errorf("have error %v, want %v", err, test.is)
			}
		})
	}
}

func TestDerivedFuncsArgumentType(t *testing.T) {
	for name, f := range derivedFuncs {
		args := []interface{}{true}
		if name == "max" || name == "min" {
			args = []interface{}{1.0, false}
		}
		if _, err := f(args...); err == nil {
			t.Errorf("%s: expected an error for a boolean argument", name)
		}
	}
}
