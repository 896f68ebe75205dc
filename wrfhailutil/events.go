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
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/wrfhail"
)

// eventsFile is the layout of an events file:
//
//	[[event]]
//	lat = -30.5
//	lon = 150.2
//	year = 2020
//	month = 1
//	day = 15
//	hour = 6
//	minute = 30
//	start = "2020-01-15_00:00:00"
//	end = "2020-01-16_12:00:00"
type eventsFile struct {
	Event []struct {
		Lat    float64 `toml:"lat"`
		Lon    float64 `toml:"lon"`
		Year   int     `toml:"year"`
		Month  int     `toml:"month"`
		Day    int     `toml:"day"`
		Hour   int     `toml:"hour"`
		Minute int     `toml:"minute"`
		Start  string  `toml:"start"`
		End    string  `toml:"end"`
	} `toml:"event"`
}

// ReadEvents reads the events listed in the TOML file at path.
func ReadEvents(path string) ([]wrfhail.Event, error) {
	path = os.ExpandEnv(path)
	var f eventsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: reading events file: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("wrfhail: events file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if len(f.Event) == 0 {
		return nil, fmt.Errorf("wrfhail: events file %s contains no [[event]] tables", path)
	}
	events := make([]wrfhail.Event, len(f.Event))
	for i, fe := range f.Event {
		e := wrfhail.Event{
			Lat: fe.Lat, Lon: fe.Lon,
			Year: fe.Year, Month: fe.Month, Day: fe.Day, Hour: fe.Hour, Minute: fe.Minute,
		}
		if e.Start, err = checkTime("start", fe.Start); err != nil {
			return nil, fmt.Errorf("event %d: %v", i+1, err)
		}
		if e.End, err = checkTime("end", fe.End); err != nil {
			return nil, fmt.Errorf("event %d: %v", i+1, err)
		}
		if err := validateEvent(e); err != nil {
			return nil, fmt.Errorf("event %d: %v", i+1, err)
		}
		events[i] = e
	}
	return events, nil
}
