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
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// WRFTimeFormat is the date format used in WRF and WPS namelists and in the
// Times variable of WRF files.
const WRFTimeFormat = "2006-01-02_15:04:05"

// Event identifies one simulated hail event.
type Event struct {
	Lat, Lon float64

	Year, Month, Day, Hour, Minute int

	// Start and End are the simulation start and end times.
	Start, End time.Time
}

// Dir returns the simulation directory for e under simsDir.
func (e Event) Dir(simsDir string) string {
	return SimDirectory(e.Lat, e.Lon, e.Year, e.Month, e.Day, e.Hour, e.Minute, simsDir)
}

// String returns a short description of e suitable for logging.
func (e Event) String() string {
	return fmt.Sprintf("lat=%s lon=%s %d-%d-%d %02d:%02d", formatFloat(e.Lat), formatFloat(e.Lon),
		e.Year, e.Month, e.Day, e.Hour, e.Minute)
}

// SimDirectory returns the directory in which the simulation of the event
// at the given location and time is set up:
//
//	<simsDir>/lat_<lat>_lon_<lon>_<year>-<month>-<day>_<HH>:<MM>
//
// Month and day are not zero padded; hour and minute are.
func SimDirectory(lat, lon float64, year, month, day, hour, minute int, simsDir string) string {
	name := fmt.Sprintf("lat_%s_lon_%s_%d-%d-%d_%02d:%02d", formatFloat(lat), formatFloat(lon),
		year, month, day, hour, minute)
	if simsDir == "" {
		return name
	}
	return strings.TrimSuffix(simsDir, "/") + "/" + name
}

// formatFloat formats v using the shortest representation that round-trips,
// always including a decimal point, e.g. 150.2 or -30.0. Values below 1e-4
// or from 1e16 in magnitude use exponent notation, e.g. 1e-05.
func formatFloat(v float64) string { return formatFloatBits(v, 64) }

// formatFloat32 is like formatFloat for values that were stored in single
// precision.
func formatFloat32(v float64) string { return formatFloatBits(v, 32) }

func formatFloatBits(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, bitSize)
	}
	s := strconv.FormatFloat(v, 'f', -1, bitSize)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseWRFTime parses a time in the namelist format "2006-01-02_15:04:05".
func ParseWRFTime(s string) (time.Time, error) {
	t, err := time.Parse(WRFTimeFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("wrfhail: parsing time %q: %v", s, err)
	}
	return t, nil
}

// wpsDir and wrfDir return the WPS directory and the WRF directory for one
// scheme variant of a simulation.
func wpsDir(simDir string) string { return filepath.Join(simDir, "WPS") }

func wrfDir(simDir, variant string) string { return filepath.Join(simDir, "WRF", variant) }
