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

	"github.com/ctessum/sparse"
)

// Physical constants used for diagnostics.
const (
	g     = 9.81     // m/s2, gravitational acceleration
	rd    = 287.0    // J/kg/K, gas constant for dry air
	cp    = 1004.5   // J/kg/K, specific heat of dry air
	p0    = 100000.0 // Pa, reference pressure for potential temperature
	t0    = 300.0    // K, base state potential temperature in WRF
	eps   = 0.622    // ratio of molecular weights of water and dry air
	kappa = rd / cp
)

// fullPressure returns total pressure [Pa] from perturbation pressure p
// and base state pressure pb.
func fullPressure(p, pb *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(p, pb); err != nil {
		return nil, fmt.Errorf("pressure: %v", err)
	}
	P := pb.Copy()
	P.AddDense(p)
	return P, nil
}

// temperature converts perturbation potential temperature to ambient
// temperature [K] at pressure pFull [Pa].
func temperature(thetaPerturb, pFull *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(thetaPerturb, pFull); err != nil {
		return nil, fmt.Errorf("temperature: %v", err)
	}
	T := sparse.ZerosDense(thetaPerturb.Shape...)
	for i, tp := range thetaPerturb.Elements {
		T.Elements[i] = thetaPerturbToTemperature(tp, pFull.Elements[i])
	}
	return T, nil
}

func thetaPerturbToTemperature(thetaPerturb, p float64) float64 {
	// potential temperature, K
	θ := thetaPerturb + t0
	return θ * math.Pow(p/p0, kappa)
}

// destagger averages adjacent values along dimension dim, so that a field
// on a staggered grid is returned on the mass grid.
func destagger(a *sparse.DenseArray, dim int) (*sparse.DenseArray, error) {
	if dim < 0 || dim >= len(a.Shape) || a.Shape[dim] < 2 {
		return nil, fmt.Errorf("cannot destagger dimension %d of array with shape %v", dim, a.Shape)
	}
	shape := append([]int{}, a.Shape...)
	shape[dim]--
	o := sparse.ZerosDense(shape...)
	idx := make([]int, len(shape))
	for n := range o.Elements {
		copy(idx, o.IndexNd(n))
		v0 := a.Get(idx...)
		idx[dim]++
		v1 := a.Get(idx...)
		o.Elements[n] = (v0 + v1) / 2
	}
	return o, nil
}

// geopotentialHeight returns height above sea level [m] on the staggered
// vertical grid from perturbation and base geopotential [m2/s2].
func geopotentialHeight(ph, phb *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(ph, phb); err != nil {
		return nil, fmt.Errorf("height: %v", err)
	}
	z := ph.Copy()
	z.AddDense(phb)
	z.Scale(1 / g)
	return z, nil
}

// heightAGL subtracts terrain height hgt [time, y, x] from heights z
// [time, z, y, x].
func heightAGL(z, hgt *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(z.Shape) != 4 || len(hgt.Shape) != 3 || z.Shape[0] != hgt.Shape[0] ||
		z.Shape[2] != hgt.Shape[1] || z.Shape[3] != hgt.Shape[2] {
		return nil, fmt.Errorf("height above ground: shapes %v and %v do not match", z.Shape, hgt.Shape)
	}
	o := sparse.ZerosDense(z.Shape...)
	for t := 0; t < z.Shape[0]; t++ {
		for k := 0; k < z.Shape[1]; k++ {
			for j := 0; j < z.Shape[2]; j++ {
				for i := 0; i < z.Shape[3]; i++ {
					o.Set(z.Get(t, k, j, i)-hgt.Get(t, j, i), t, k, j, i)
				}
			}
		}
	}
	return o, nil
}

// relativeHumidity returns relative humidity [%] from water vapor mixing
// ratio qv [kg/kg], pressure p [Pa] and temperature tk [K]. Results are
// limited to the range 0-100.
func relativeHumidity(qv, p, tk *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(qv, p, tk); err != nil {
		return nil, fmt.Errorf("relative humidity: %v", err)
	}
	o := sparse.ZerosDense(qv.Shape...)
	for n := range o.Elements {
		t := tk.Elements[n]
		es := 6.112 * math.Exp(17.67*(t-273.15)/(t-29.65)) // hPa
		pHPa := p.Elements[n] / 100
		qvs := eps * es / (pHPa - (1-eps)*es)
		rh := 100 * math.Max(qv.Elements[n], 0) / qvs
		o.Elements[n] = math.Max(math.Min(rh, 100), 0)
	}
	return o, nil
}

// specificHumidity converts mixing ratio to specific humidity.
func specificHumidity(qv *sparse.DenseArray) *sparse.DenseArray {
	o := sparse.ZerosDense(qv.Shape...)
	for n, q := range qv.Elements {
		o.Elements[n] = q / (1 + q)
	}
	return o
}

// dewPoint returns dew point temperature [°C] from mixing ratio qv
// [kg/kg] and pressure p [Pa].
func dewPoint(qv, p *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(qv, p); err != nil {
		return nil, fmt.Errorf("dew point: %v", err)
	}
	o := sparse.ZerosDense(qv.Shape...)
	for n, q := range qv.Elements {
		q = math.Max(q, 0)
		// vapor pressure, hPa
		tdc := math.Max(q*(p.Elements[n]/100)/(eps+q), 0.001)
		o.Elements[n] = (243.5*math.Log(tdc) - 440.8) / (19.48 - math.Log(tdc))
	}
	return o, nil
}

// precipitableWater integrates water vapor over each column, returning
// [time, y, x] in kg/m2. qv, p and tk are on the mass grid and zStag is
// height on the staggered vertical grid.
func precipitableWater(qv, p, tk, zStag *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := sameShape(qv, p, tk); err != nil {
		return nil, fmt.Errorf("precipitable water: %v", err)
	}
	if len(qv.Shape) != 4 || len(zStag.Shape) != 4 || zStag.Shape[1] != qv.Shape[1]+1 {
		return nil, fmt.Errorf("precipitable water: shapes %v and %v do not match", qv.Shape, zStag.Shape)
	}
	nt, nz, ny, nx := qv.Shape[0], qv.Shape[1], qv.Shape[2], qv.Shape[3]
	o := sparse.ZerosDense(nt, ny, nx)
	for t := 0; t < nt; t++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				var pw float64
				for k := 0; k < nz; k++ {
					q := qv.Get(t, k, j, i)
					tv := tk.Get(t, k, j, i) * (eps + q) / (eps * (1 + q))
					dz := zStag.Get(t, k+1, j, i) - zStag.Get(t, k, j, i)
					pw += p.Get(t, k, j, i) / (rd * tv) * q * dz
				}
				o.Set(pw, t, j, i)
			}
		}
	}
	return o, nil
}

// lowestLevel returns level 0 of dimension dim of a.
func lowestLevel(a *sparse.DenseArray, dim int) (*sparse.DenseArray, error) {
	if dim < 0 || dim >= len(a.Shape) {
		return nil, fmt.Errorf("array with shape %v has no dimension %d", a.Shape, dim)
	}
	shape := make([]int, 0, len(a.Shape)-1)
	shape = append(shape, a.Shape[:dim]...)
	shape = append(shape, a.Shape[dim+1:]...)
	if len(shape) == 0 {
		shape = []int{1}
	}
	o := sparse.ZerosDense(shape...)
	idx := make([]int, len(a.Shape))
	for n := range o.Elements {
		sub := o.IndexNd(n)
		copy(idx[:dim], sub[:dim])
		idx[dim] = 0
		copy(idx[dim+1:], sub[dim:])
		o.Elements[n] = a.Get(idx...)
	}
	return o, nil
}

// constantOver reports whether every value of a is the same along
// dimension dim.
func constantOver(a *sparse.DenseArray, dim int) bool {
	for n, v := range a.Elements {
		idx := a.IndexNd(n)
		if idx[dim] == 0 {
			continue
		}
		idx[dim] = 0
		if a.Get(idx...) != v {
			return false
		}
	}
	return true
}

func sameShape(arrays ...*sparse.DenseArray) error {
	for _, a := range arrays[1:] {
		if len(a.Shape) != len(arrays[0].Shape) {
			return fmt.Errorf("shapes %v and %v do not match", arrays[0].Shape, a.Shape)
		}
		for i, s := range a.Shape {
			if s != arrays[0].Shape[i] {
				return fmt.Errorf("shapes %v and %v do not match", arrays[0].Shape, a.Shape)
			}
		}
	}
	return nil
}
