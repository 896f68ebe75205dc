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

package wrfhailutil

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/wrfhail"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in each element
// of s.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkDir expands any environment variables in dir and makes sure it
// is an existing directory. name is the configuration variable dir was
// read from.
func checkDir(name, dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable", name)
	}
	dir = os.ExpandEnv(dir)
	fi, err := os.Stat(dir)
	if err != nil {
		return dir, fmt.Errorf("wrfhail: checking %s: %v", name, err)
	}
	if !fi.IsDir() {
		return dir, fmt.Errorf("wrfhail: %s=%s is not a directory", name, dir)
	}
	return dir, nil
}

// checkTime parses t, which must be in the WRF date format.
func checkTime(name, t string) (time.Time, error) {
	if t == "" {
		return time.Time{}, fmt.Errorf("you need to specify the %s configuration variable (for example: %s=\"2020-01-15_00:00:00\")", name, name)
	}
	tt, err := wrfhail.ParseWRFTime(os.ExpandEnv(t))
	if err != nil {
		return time.Time{}, fmt.Errorf("wrfhail: parsing %s: %v", name, err)
	}
	return tt, nil
}

// checkSchemes converts the microphysics variant configuration, a list
// of NAME=CODE pairs, into schemes sorted by name.
func checkSchemes(vars []string) ([]wrfhail.Scheme, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no microphysics variants specified. Please fill in " +
			"the Scaffold.MPSchemes configuration and try again")
	}
	schemes := make([]wrfhail.Scheme, 0, len(vars))
	seen := make(map[string]bool)
	for _, v := range vars {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("wrfhail: microphysics variant %q should be in the form NAME=CODE", v)
		}
		name := strings.TrimSpace(parts[0])
		if !wrfhail.ValidSchemeName(name) {
			return nil, fmt.Errorf("wrfhail: invalid variant name %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("wrfhail: variant %s is specified more than once", name)
		}
		seen[name] = true
		code, err := cast.ToIntE(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("wrfhail: mp_physics code %q for variant %s: %v", parts[1], name, err)
		}
		if _, err := wrfhail.MPSchemes.Describe(code); err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		schemes = append(schemes, wrfhail.Scheme{Name: name, Code: code})
	}
	sort.Slice(schemes, func(i, j int) bool { return schemes[i].Name < schemes[j].Name })
	return schemes, nil
}

// checkEvent builds the event described by the Scaffold options.
func checkEvent(cfg *viper.Viper) (wrfhail.Event, error) {
	e := wrfhail.Event{
		Lat:    cfg.GetFloat64("Scaffold.Lat"),
		Lon:    cfg.GetFloat64("Scaffold.Lon"),
		Year:   cfg.GetInt("Scaffold.Year"),
		Month:  cfg.GetInt("Scaffold.Month"),
		Day:    cfg.GetInt("Scaffold.Day"),
		Hour:   cfg.GetInt("Scaffold.Hour"),
		Minute: cfg.GetInt("Scaffold.Minute"),
	}
	var err error
	if e.Start, err = checkTime("Scaffold.Start", cfg.GetString("Scaffold.Start")); err != nil {
		return e, err
	}
	if e.End, err = checkTime("Scaffold.End", cfg.GetString("Scaffold.End")); err != nil {
		return e, err
	}
	return e, validateEvent(e)
}

// validateEvent checks that the fields of e are in range.
func validateEvent(e wrfhail.Event) error {
	switch {
	case e.Lat < -90 || e.Lat > 90:
		return fmt.Errorf("wrfhail: latitude %g is out of range", e.Lat)
	case e.Lon < -180 || e.Lon > 360:
		return fmt.Errorf("wrfhail: longitude %g is out of range", e.Lon)
	case e.Year < 1:
		return fmt.Errorf("wrfhail: event year %d is invalid", e.Year)
	case e.Month < 1 || e.Month > 12:
		return fmt.Errorf("wrfhail: event month %d is invalid", e.Month)
	case e.Day < 1 || e.Day > 31:
		return fmt.Errorf("wrfhail: event day %d is invalid", e.Day)
	case e.Hour < 0 || e.Hour > 23:
		return fmt.Errorf("wrfhail: event hour %d is invalid", e.Hour)
	case e.Minute < 0 || e.Minute > 59:
		return fmt.Errorf("wrfhail: event minute %d is invalid", e.Minute)
	case e.End.Before(e.Start):
		return fmt.Errorf("wrfhail: simulation end %s is before start %s",
			e.End.Format(wrfhail.WRFTimeFormat), e.Start.Format(wrfhail.WRFTimeFormat))
	}
	return nil
}
