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
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Quantity is a value with units.
type Quantity struct {
	Value float64
	Units string
}

func (q Quantity) String() string {
	return formatFloat32(q.Value) + " " + q.Units
}

// SchemeSetting is the description of one physics option in a file.
type SchemeSetting struct {
	Label       string
	Description string // e.g. "9 (Milbrandt 2-moment)"

	// Turbulence is true for the diffusion options, which are reported
	// separately from the physics schemes.
	Turbulence bool
}

// Metadata summarizes the setup of a WRF simulation as recorded in one
// of its input or output files.
type Metadata struct {
	SST, TSK, TMN Quantity // lowest values in the file

	DX, DY float64 // m

	// Domain size in mass points.
	WestEast, SouthNorth, BottomTop int

	// ModelTop is the largest domain-mean geopotential height [m] at the
	// first time step.
	ModelTop float64

	// Minimum, mean and maximum distance [m] between vertical levels.
	LevelDistMin, LevelDistMean, LevelDistMax float64

	// PTop is the model-top pressure at the first time step.
	PTop Quantity

	Schemes []SchemeSetting
}

// ReadMetadata gathers the simulation setup from ds. Any physics option
// code that is not in its lookup table is an error wrapping
// ErrUnknownScheme, and no metadata is returned. The shallow cumulus
// scheme is only read when shallowCumulus is true and the file records
// one.
func ReadMetadata(ds Dataset, shallowCumulus bool) (*Metadata, error) {
	m := new(Metadata)
	var err error
	for _, q := range []struct {
		name string
		dst  *Quantity
	}{{"SST", &m.SST}, {"TSK", &m.TSK}, {"TMN", &m.TMN}} {
		v, err := ds.Variable(q.name)
		if err != nil {
			return nil, err
		}
		if len(v.Data.Elements) == 0 {
			return nil, fmt.Errorf("wrfhail: variable %s is empty", q.name)
		}
		*q.dst = Quantity{Value: floats.Min(v.Data.Elements), Units: v.Units}
	}
	if m.DX, err = AttributeFloat(ds, "DX"); err != nil {
		return nil, err
	}
	if m.DY, err = AttributeFloat(ds, "DY"); err != nil {
		return nil, err
	}
	for _, d := range []struct {
		attr string
		dst  *int
	}{
		{"WEST-EAST_GRID_DIMENSION", &m.WestEast},
		{"SOUTH-NORTH_GRID_DIMENSION", &m.SouthNorth},
		{"BOTTOM-TOP_GRID_DIMENSION", &m.BottomTop},
	} {
		n, err := AttributeInt(ds, d.attr)
		if err != nil {
			return nil, err
		}
		*d.dst = n - 1
	}

	hgt, err := meanLevelHeights(ds)
	if err != nil {
		return nil, err
	}
	m.ModelTop = floats.Max(hgt)
	diffs := make([]float64, len(hgt)-1)
	for k := range diffs {
		diffs[k] = hgt[k+1] - hgt[k]
	}
	m.LevelDistMin = floats.Min(diffs)
	m.LevelDistMean = floats.Sum(diffs) / float64(len(diffs))
	m.LevelDistMax = floats.Max(diffs)

	ptop, err := ds.Variable("P_TOP")
	if err != nil {
		return nil, err
	}
	m.PTop = Quantity{Value: ptop.Data.Elements[0], Units: ptop.Units}

	for _, t := range SchemeTables() {
		if t.Attribute == ShallowCumulusSchemes.Attribute {
			if !shallowCumulus {
				continue
			}
			if _, ok := ds.Attribute(t.Attribute); !ok {
				continue
			}
		}
		desc, err := t.FromDataset(ds)
		if err != nil {
			return nil, err
		}
		m.Schemes = append(m.Schemes, SchemeSetting{
			Label:       t.Label,
			Description: desc,
			Turbulence:  t.Attribute == DiffusionOptions.Attribute || t.Attribute == EddyCoefficientOptions.Attribute,
		})
	}
	return m, nil
}

// meanLevelHeights returns the horizontal mean of geopotential height
// (PH+PHB)/g on each staggered level at the first time step.
func meanLevelHeights(ds Dataset) ([]float64, error) {
	ph, err := ds.Variable("PH")
	if err != nil {
		return nil, err
	}
	phb, err := ds.Variable("PHB")
	if err != nil {
		return nil, err
	}
	z, err := geopotentialHeight(ph.Data, phb.Data)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: %v", err)
	}
	if len(z.Shape) != 4 || z.Shape[1] < 2 {
		return nil, fmt.Errorf("wrfhail: geopotential has shape %v; need [time, levels>1, y, x]", z.Shape)
	}
	nz, ny, nx := z.Shape[1], z.Shape[2], z.Shape[3]
	hgt := make([]float64, nz)
	for k := 0; k < nz; k++ {
		level := z.Elements[k*ny*nx : (k+1)*ny*nx]
		hgt[k] = floats.Sum(level) / float64(len(level))
	}
	return hgt, nil
}

// round1 rounds v to one decimal place.
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// reportLabel pads label with tabs so that values line up at column 48
// with 8-column tab stops.
func reportLabel(label string) string {
	const col = 48
	n := len(label)
	if strings.HasPrefix(label, "\t") {
		n += 7
	}
	var b strings.Builder
	b.WriteString(label)
	for n < col {
		b.WriteByte('\t')
		n = (n/8 + 1) * 8
	}
	return b.String()
}

// Write prints m as a labelled report.
func (m *Metadata) Write(w io.Writer) error {
	b := bufio.NewWriter(w)
	line := func(label, value string) {
		fmt.Fprintln(b, reportLabel(label)+value)
	}
	line("Sea surface temperature (SST):", m.SST.String())
	line("Surface skin temperature (TSK):", m.TSK.String())
	line("Soil temperature at lower boundary (TMN):", m.TMN.String())
	line("Horizontal grid spacing (DX):", formatFloat32(m.DX)+" m")
	line("Horizontal (S-N) grid spacing (DY):", formatFloat32(m.DY)+" m")
	line("Horizontal (W-E) domain size:", fmt.Sprintf("%d mass points", m.WestEast))
	line("Horizontal (S-N) domain size:", fmt.Sprintf("%d mass points", m.SouthNorth))
	line("Vertical domain size:", fmt.Sprintf("%d mass points", m.BottomTop))
	line("Maximum geopotential height (model-top):", formatFloat32(round1(m.ModelTop))+" m")
	line("Min, mean, max vertical dist. between mass pts:", fmt.Sprintf("%s, %s, %s m",
		formatFloat32(round1(m.LevelDistMin)), formatFloat32(round1(m.LevelDistMean)),
		formatFloat32(round1(m.LevelDistMax))))
	line("Model-top pressure:", Quantity{Value: round1(m.PTop.Value), Units: m.PTop.Units}.String())
	fmt.Fprintln(b, "Physics schemes:")
	for _, s := range m.Schemes {
		if !s.Turbulence {
			line("\t"+s.Label+":", s.Description)
		}
	}
	fmt.Fprintln(b, "Turbulence options:")
	for _, s := range m.Schemes {
		if s.Turbulence {
			line("\t"+s.Label+":", s.Description)
		}
	}
	return b.Flush()
}

// Describe reads the metadata of the WRF file at path and writes the
// report to w. See ReadMetadata for shallowCumulus.
func Describe(path string, w io.Writer, shallowCumulus bool) (err error) {
	f, err := OpenFile(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	m, err := ReadMetadata(f, shallowCumulus)
	if err != nil {
		return fmt.Errorf("wrfhail: describing %s: %w", path, err)
	}
	return m.Write(w)
}
