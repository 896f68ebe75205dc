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
	"math"
	"testing"
	"time"
)

func TestSimDirectory(t *testing.T) {
	tests := []struct {
		lat, lon                       float64
		year, month, day, hour, minute int
		simsDir, want                  string
	}{
		{-30.5, 150.2, 2020, 1, 15, 6, 30, "/sims", "/sims/lat_-30.5_lon_150.2_2020-1-15_06:30"},
		{-30, 150, 2020, 12, 1, 23, 0, "/sims/", "/sims/lat_-30.0_lon_150.0_2020-12-1_23:00"},
		{-33.8688, 151.2093, 2021, 11, 28, 4, 5, "sims", "sims/lat_-33.8688_lon_151.2093_2021-11-28_04:05"},
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			have := SimDirectory(test.lat, test.lon, test.year, test.month, test.day,
				test.hour, test.minute, test.simsDir)
			if have != test.want {
				t.Errorf("have %q, want %q", have, test.want)
			}
		})
	}
}

func TestEventDir(t *testing.T) {
	e := Event{Lat: -30.5, Lon: 150.2, Year: 2020, Month: 1, Day: 15, Hour: 6, Minute: 30}
	if have, want := e.Dir("/sims"), "/sims/lat_-30.5_lon_150.2_2020-1-15_06:30"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		150.2:   "150.2",
		-30:     "-30.0",
		0:       "0.0",
		1e-05:   "1e-05",
		-2.5e-7: "-2.5e-07",
		0.0001:  "0.0001",
		1e15:    "1000000000000000.0",
		1e16:    "1e+16",
	}
	for v, want := range tests {
		if have := formatFloat(v); have != want {
			t.Errorf("%g: have %q, want %q", v, have, want)
		}
	}
	if have := formatFloat32(float64(float32(0.1))); have != "0.1" {
		t.Errorf("float32: have %q", have)
	}
	if have := formatFloat32(float64(float32(1e-5))); have != "1e-05" {
		t.Errorf("float32 small: have %q", have)
	}
	for v, want := range map[float64]string{math.Inf(1): "inf", math.Inf(-1): "-inf", math.NaN(): "nan"} {
		if have := formatFloat(v); have != want {
			t.Errorf("%g: have %q, want %q", v, have, want)
		}
	}
}

func TestParseWRFTime(t *testing.T) {
	have, err := ParseWRFTime("2020-01-15_06:30:00")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2020, 1, 15, 6, 30, 0, 0, time.UTC); !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}
	if _, err := ParseWRFTime("2020-01-15 06:30"); err == nil {
		t.Error("expected an error")
	}
}
