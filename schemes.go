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
	"sort"
	"strings"
)

// ErrUnknownScheme is returned when a physics option code is not present in
// the relevant lookup table.
var ErrUnknownScheme = errors.New("unknown physics scheme code")

// SchemeTable maps the integer codes WRF uses for one physics option to
// human-readable scheme names. Tables are created once and never modified.
type SchemeTable struct {
	// Category is a short name for the physics category, e.g. "mp".
	Category string

	// Label is the description used in reports, e.g. "Microphysics".
	Label string

	// Attribute is the global attribute of WRF files that holds the code.
	Attribute string

	names map[int]string
}

// Describe returns "<code> (<name>)" for the given code. If the code is not
// in the table, the returned error wraps ErrUnknownScheme.
func (t SchemeTable) Describe(code int) (string, error) {
	name, ok := t.names[code]
	if !ok {
		return "", fmt.Errorf("wrfhail: %s code %d: %w", t.Attribute, code, ErrUnknownScheme)
	}
	return fmt.Sprintf("%d (%s)", code, name), nil
}

// Name returns the scheme name for code and whether it exists.
func (t SchemeTable) Name(code int) (string, bool) {
	name, ok := t.names[code]
	return name, ok
}

// Codes returns the codes in the table in increasing order.
func (t SchemeTable) Codes() []int {
	codes := make([]int, 0, len(t.names))
	for c := range t.names {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// FromDataset looks up the code stored in ds under t.Attribute and
// describes it.
func (t SchemeTable) FromDataset(ds Dataset) (string, error) {
	code, err := AttributeInt(ds, t.Attribute)
	if err != nil {
		return "", err
	}
	return t.Describe(code)
}

// The lookup tables. Codes follow the WRF namelist documentation.
var (
	MPSchemes = SchemeTable{
		Category:  "mp",
		Label:     "Microphysics",
		Attribute: "MP_PHYSICS",
		names: map[int]string{
			1:  "Kessler",
			2:  "Purdue Lin",
			3:  "WSM3",
			4:  "WSM5",
			5:  "Eta (Ferrier)",
			6:  "WSM6",
			7:  "Goddard",
			8:  "Thompson",
			9:  "Milbrandt 2-moment",
			10: "Morrison 2-moment",
			11: "CAM 5.1",
			13: "SBU-YLin",
			14: "WDM5",
			16: "WDM6",
			17: "NSSL 2-moment",
			18: "NSSL 2-moment with CCN prediction",
			19: "NSSL 1-moment",
			21: "NSSL 1-moment lfo",
			22: "NSSL 2-moment without hail",
			28: "Thompson aerosol- aware",
			30: "HUJI SBM fast",
			32: "HUJI SBM full",
			40: "Morrison+CESM aerosol",
			50: "P3",
			51: "P3 nc",
			52: "P3 2ice",
			53: "P3 3M",
		},
	}

	RALWSchemes = SchemeTable{
		Category:  "ra_lw",
		Label:     "Radiation (longwave)",
		Attribute: "RA_LW_PHYSICS",
		names: map[int]string{
			1:  "RRTM",
			3:  "CAM",
			4:  "RRTMG",
			24: "RRTMG fast",
			14: "RRTMG-K",
			5:  "New Goddard",
			7:  "FLG",
			31: "Held-Suarez",
			99: "GFDL",
		},
	}

	RASWSchemes = SchemeTable{
		Category:  "ra_sw",
		Label:     "Radiation (shortwave)",
		Attribute: "RA_SW_PHYSICS",
		names: map[int]string{
			1:  "Dudhia",
			2:  "Goddard",
			3:  "CAM",
			4:  "RRTMG",
			24: "RRTMG",
			14: "RRTMG-K",
			5:  "New Goddard",
			7:  "FLG",
			99: "GFDL",
		},
	}

	SurfaceLayerSchemes = SchemeTable{
		Category:  "sf_sfclay",
		Label:     "Surface layer",
		Attribute: "SF_SFCLAY_PHYSICS",
		names: map[int]string{
			0:  "No surface-layer",
			1:  "Revised MM5 Monin-Obukhov",
			2:  "Monin-Obukhov (Janjic Eta)",
			3:  "NCEP GFS",
			4:  "QNSE",
			5:  "MYNN",
			7:  "Pleim-Xiu",
			91: "Old MM5 surface layer",
		},
	}

	LandSurfaceSchemes = SchemeTable{
		Category:  "sf_surface",
		Label:     "Land-surface",
		Attribute: "SF_SURFACE_PHYSICS",
		names: map[int]string{
			0: "No surface temp prediction",
			1: "Thermal diffusion",
			2: "Unified Noah",
			3: "RUC",
			4: "Noah-MP",
			5: "CLM4",
			7: "Pleim-Xiu",
			8: "SSiB",
		},
	}

	PBLSchemes = SchemeTable{
		Category:  "bl_pbl",
		Label:     "PBL",
		Attribute: "BL_PBL_PHYSICS",
		names: map[int]string{
			0:  "No PBL scheme",
			1:  "YSU",
			2:  "MYJ",
			3:  "GFS (hwrf)",
			4:  "QNSE-EDMF",
			5:  "MYNN2",
			6:  "MYNN3",
			7:  "ACM2",
			8:  "BouLac",
			9:  "UW",
			10: "TEMF",
			11: "Shin-Hong",
			12: "GBM",
			99: "MRF",
		},
	}

	CumulusSchemes = SchemeTable{
		Category:  "cu",
		Label:     "Cumulus",
		Attribute: "CU_PHYSICS",
		names: map[int]string{
			0:  "No cumulus parameterisation",
			1:  "Kain-Fritsch (new Eta)",
			2:  "Betts-Miller-Janjic",
			3:  "Grell-Freitas",
			4:  "Scale-aware GFS Simplified Arakawa-Schubert (SAS)",
			5:  "New Grell (G3)",
			6:  "Tiedtke",
			7:  "Zhang-McFarlane from CESM",
			10: "Modified Kain-Fritsch",
			11: "Multi-scale Kain-Fritsch",
			14: "New GFS SAS from YSU",
			16: "A newer Tiedke",
			93: "Grell-Devenyi ensemble",
			94: "2015 GFS Simplified Arakawa-Schubert (HWRF)",
			95: "Previous GFS Simplified Arakawa-Schubert (HWRF)",
			99: "Previous Kain-Fritsch",
		},
	}

	ShallowCumulusSchemes = SchemeTable{
		Category:  "shcu",
		Label:     "Shallow cumulus",
		Attribute: "SHCU_PHYSICS",
		names: map[int]string{
			0: "No independent shallow cumulus",
			2: "Park and Bretherton from CAM5",
			3: "GRIMS",
		},
	}

	DiffusionOptions = SchemeTable{
		Category:  "diff_opt",
		Label:     "Diffusion (diff_opt)",
		Attribute: "DIFF_OPT",
		names: map[int]string{
			0: "No turbulence",
			1: "Simple diffusion",
			2: "Full diffusion",
		},
	}

	EddyCoefficientOptions = SchemeTable{
		Category:  "km_opt",
		Label:     "Eddy coefficient (km_opt)",
		Attribute: "KM_OPT",
		names: map[int]string{
			1: "Constant K",
			2: "3D TKE",
			3: "3D Smagorinsky",
			4: "2D (horiz) Smagorinsky",
		},
	}
)

// SchemeTables returns every lookup table, in the order they appear in
// metadata reports.
func SchemeTables() []SchemeTable {
	return []SchemeTable{
		MPSchemes, RALWSchemes, RASWSchemes, SurfaceLayerSchemes,
		LandSurfaceSchemes, PBLSchemes, CumulusSchemes, ShallowCumulusSchemes,
		DiffusionOptions, EddyCoefficientOptions,
	}
}

// SchemeTableByName returns the table whose Category or Attribute matches
// name, ignoring case.
func SchemeTableByName(name string) (SchemeTable, error) {
	for _, t := range SchemeTables() {
		if strings.EqualFold(t.Category, name) || strings.EqualFold(t.Attribute, name) {
			return t, nil
		}
	}
	return SchemeTable{}, fmt.Errorf("wrfhail: no physics category named %q", name)
}

// TrueFalse returns "False" if v is zero and "True" otherwise.
func TrueFalse(v int) string {
	if v == 0 {
		return "False"
	}
	return "True"
}
