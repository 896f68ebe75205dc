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
	"math"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// DerivedField is an output field calculated element by element from
// other fields with an arithmetic expression, for example
// "hailcast_diam_max / 25.4" for the maximum hail diameter in inches.
// The fields used in an expression must all have the same dimensions.
type DerivedField struct {
	Name, Expression, Units string
}

var fieldName = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// derivedFuncs are the functions available in expressions in addition
// to the govaluate operators.
var derivedFuncs = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"log":  unaryFunc("log", math.Log),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
	"max": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("wrfhail: got %d arguments for function 'max', but needs 2", len(args))
		}
		a, b, err := floatArgs2("max", args)
		if err != nil {
			return nil, err
		}
		return math.Max(a, b), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("wrfhail: got %d arguments for function 'min', but needs 2", len(args))
		}
		a, b, err := floatArgs2("min", args)
		if err != nil {
			return nil, err
		}
		return math.Min(a, b), nil
	},
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrfhail: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, err := floatArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return f(x), nil
	}
}

// floatArg returns arg as a number. Comparisons and logical operators
// in an argument give booleans, which are rejected.
func floatArg(name string, arg interface{}) (float64, error) {
	x, ok := arg.(float64)
	if !ok {
		return 0, fmt.Errorf("wrfhail: function '%s' argument is %T, not a number", name, arg)
	}
	return x, nil
}

func floatArgs2(name string, args []interface{}) (a, b float64, err error) {
	if a, err = floatArg(name, args[0]); err != nil {
		return
	}
	b, err = floatArg(name, args[1])
	return
}

// ParseDerivedFields parses derived field definitions of the form
// "name=expression" or "name[units]=expression".
func ParseDerivedFields(defs []string) ([]DerivedField, error) {
	var o []DerivedField
	seen := make(map[string]bool)
	for _, def := range defs {
		parts := strings.SplitN(def, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("wrfhail: derived field %q should be in the form name=expression", def)
		}
		d := DerivedField{
			Name:       strings.TrimSpace(parts[0]),
			Expression: strings.TrimSpace(parts[1]),
		}
		if i := strings.Index(d.Name, "["); i != -1 && strings.HasSuffix(d.Name, "]") {
			d.Units = strings.TrimSpace(d.Name[i+1 : len(d.Name)-1])
			d.Name = strings.TrimSpace(d.Name[:i])
		}
		if err := d.check(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("wrfhail: derived field %s is defined more than once", d.Name)
		}
		seen[d.Name] = true
		o = append(o, d)
	}
	return o, nil
}

// check makes sure d has a valid name that does not hide a computed
// field and that its expression can be parsed.
func (d DerivedField) check() error {
	if !fieldName.MatchString(d.Name) {
		return fmt.Errorf("wrfhail: invalid derived field name %q", d.Name)
	}
	for _, f := range append([]string{"latitude", "longitude"}, BasicFields...) {
		if d.Name == f {
			return fmt.Errorf("wrfhail: derived field %s has the same name as a computed field", d.Name)
		}
	}
	_, _, err := d.compile()
	return err
}

func (d DerivedField) compile() (*govaluate.EvaluableExpression, []string, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(d.Expression, derivedFuncs)
	if err != nil {
		return nil, nil, fmt.Errorf("wrfhail: derived field %s: %v", d.Name, err)
	}
	var vars []string
	seen := make(map[string]bool)
	for _, v := range expr.Vars() {
		if !seen[v] {
			vars = append(vars, v)
			seen[v] = true
		}
	}
	if len(vars) == 0 {
		return nil, nil, fmt.Errorf("wrfhail: derived field %s does not use any fields", d.Name)
	}
	return expr, vars, nil
}

// evaluate calculates d from the fields returned by get.
func (d DerivedField) evaluate(get func(name string) (*Variable, error)) (*Variable, error) {
	expr, vars, err := d.compile()
	if err != nil {
		return nil, err
	}
	inputs := make([]*Variable, len(vars))
	for i, name := range vars {
		v, err := get(name)
		if err != nil {
			return nil, fmt.Errorf("wrfhail: derived field %s: %w", d.Name, err)
		}
		if i > 0 && (!equalStrings(v.Dims, inputs[0].Dims) || sameShape(v.Data, inputs[0].Data) != nil) {
			return nil, fmt.Errorf("wrfhail: derived field %s: %s has dimensions %v but %s has %v",
				d.Name, name, v.Dims, vars[0], inputs[0].Dims)
		}
		inputs[i] = v
	}
	out := sparse.ZerosDense(inputs[0].Data.Shape...)
	params := make(map[string]interface{}, len(vars))
	for i := range out.Elements {
		for j, name := range vars {
			params[name] = inputs[j].Data.Elements[i]
		}
		r, err := expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("wrfhail: derived field %s: %v", d.Name, err)
		}
		f, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("wrfhail: derived field %s: expression result %v is not a number", d.Name, r)
		}
		out.Elements[i] = f
	}
	return newVariable(inputs[0].Dims, d.Expression, d.Units, out), nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
