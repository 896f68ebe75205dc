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
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testWPSNamelist = `&share
 wrf_core = 'ARW',
 max_dom = 3,
 start_date = '2000-01-01_00:00:00','2000-01-01_00:00:00','2000-01-01_00:00:00',
 end_date   = '2000-01-02_00:00:00','2000-01-02_00:00:00','2000-01-02_00:00:00',
 interval_seconds = 10800
/

&geogrid
 parent_id         =   1,   1,  2,
 ref_lat   =  -33.0,
 ref_lon   =  151.0,
 truelat1  =  -33.0,
 truelat2  =  -40.0, ! not rewritten
 stand_lon =  151.0,
 geog_data_path = '/data/geog'
/
`

const testWRFNamelist = `&time_control
 run_days                            = 0,
 start_year                          = 2000, 2000, 2000,
 start_month                         = 01,   01,   01,
 start_day                           = 01,   01,   01,
 start_hour                          = 00,   00,   00,
 end_year                            = 2000, 2000, 2000,
 end_month                           = 01,   01,   01,
 end_day                             = 02,   02,   02,
 end_hour                            = 00,   00,   00,
/

&domains
 max_dom                             = 3,
/

&physics
 mp_physics                          = 8,     8,     8,
 mp_physics_dfi                      = -1,
/
`

func testEvent() Event {
	return Event{
		Lat: -30.5, Lon: 150.2,
		Year: 2020, Month: 1, Day: 15, Hour: 6, Minute: 30,
		Start: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestRewriteNamelistStartDate(t *testing.T) {
	var out bytes.Buffer
	replaced, err := RewriteNamelist(strings.NewReader(testWPSNamelist), &out,
		wpsSubstitutions(testEvent(), 3))
	if err != nil {
		t.Fatal(err)
	}
	inLines := strings.Split(testWPSNamelist, "\n")
	outLines := strings.Split(out.String(), "\n")
	if len(inLines) != len(outLines) {
		t.Fatalf("have %d lines, want %d", len(outLines), len(inLines))
	}
	var startLines int
	for i, line := range outLines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "start_date"):
			startLines++
			want := " start_date = '2020-01-15_00:00:00', '2020-01-15_00:00:00', '2020-01-15_00:00:00',"
			if line != want {
				t.Errorf("have %q, want %q", line, want)
			}
		case strings.HasPrefix(trimmed, "end_date"):
			want := " end_date = '2020-01-16_12:00:00', '2020-01-16_12:00:00', '2020-01-16_12:00:00',"
			if line != want {
				t.Errorf("have %q, want %q", line, want)
			}
		case strings.HasPrefix(trimmed, "ref_lat"):
			if line != " ref_lat = -30.5" {
				t.Errorf("ref_lat line %q", line)
			}
		case strings.HasPrefix(trimmed, "ref_lon"):
			if line != " ref_lon = 150.2" {
				t.Errorf("ref_lon line %q", line)
			}
		case strings.HasPrefix(trimmed, "truelat1"):
			if line != " truelat1 = -30.5" {
				t.Errorf("truelat1 line %q", line)
			}
		case strings.HasPrefix(trimmed, "stand_lon"):
			if line != " stand_lon = 150.2" {
				t.Errorf("stand_lon line %q", line)
			}
		default:
			if line != inLines[i] {
				t.Errorf("line %d changed from %q to %q", i, inLines[i], line)
			}
		}
	}
	if startLines != 1 {
		t.Errorf("have %d start_date lines, want 1", startLines)
	}
	for key, n := range replaced {
		if n != 1 {
			t.Errorf("%s replaced %d times", key, n)
		}
	}
}

func TestRewriteNamelistWRF(t *testing.T) {
	var out bytes.Buffer
	replaced, err := RewriteNamelist(strings.NewReader(testWRFNamelist), &out,
		wrfSubstitutions(testEvent(), 17, 3))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"start_year":  " start_year = 2020, 2020, 2020,",
		"start_month": " start_month = 01, 01, 01,",
		"start_day":   " start_day = 15, 15, 15,",
		"start_hour":  " start_hour = 00, 00, 00,",
		"end_year":    " end_year = 2020, 2020, 2020,",
		"end_month":   " end_month = 01, 01, 01,",
		"end_day":     " end_day = 16, 16, 16,",
		"end_hour":    " end_hour = 12, 12, 12,",
		"mp_physics":  " mp_physics = 17, 17, 17,",
	}
	for _, line := range strings.Split(out.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if w, ok := want[fields[0]]; ok && line != w {
			t.Errorf("have %q, want %q", line, w)
		}
	}
	if !strings.Contains(out.String(), " mp_physics_dfi                      = -1,\n") {
		t.Error("mp_physics_dfi should not be rewritten")
	}
	if !strings.Contains(out.String(), " run_days                            = 0,\n") {
		t.Error("run_days should not be rewritten")
	}
	for key := range want {
		if replaced[key] != 1 {
			t.Errorf("%s replaced %d times", key, replaced[key])
		}
	}
}

func TestRewriteNamelistKeepsLineEndings(t *testing.T) {
	in := "&share\r\n\tmax_dom = 2,\r\n/"
	var out bytes.Buffer
	replaced, err := RewriteNamelist(strings.NewReader(in), &out,
		[]Substitution{{Key: "max_dom", Value: "1,"}, {Key: "missing", Value: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if have, want := out.String(), "&share\r\n\tmax_dom = 1,\r\n/"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	if replaced["missing"] != 0 {
		t.Errorf("missing key replaced %d times", replaced["missing"])
	}
}

func TestRewriteNamelistFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "namelist.input")
	if err := os.WriteFile(path, []byte(testWRFNamelist), 0640); err != nil {
		t.Fatal(err)
	}
	if _, err := RewriteNamelistFile(path, []Substitution{{Key: "mp_physics", Value: "9, 9, 9,"}}); err != nil {
		t.Fatal(err)
	}
	nl, err := ParseNamelistFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := nl["mp_physics"], []string{"9", "9", "9"}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("mode changed to %v", info.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestParseNamelist(t *testing.T) {
	nl, err := ParseNamelist(strings.NewReader(testWPSNamelist))
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string][]string{
		"wrf_core":       {"ARW"},
		"max_dom":        {"3"},
		"start_date":     {"2000-01-01_00:00:00", "2000-01-01_00:00:00", "2000-01-01_00:00:00"},
		"parent_id":      {"1", "1", "2"},
		"truelat2":       {"-40.0"},
		"geog_data_path": {"/data/geog"},
	}
	for key, want := range tests {
		if have := nl[key]; !reflect.DeepEqual(have, want) {
			t.Errorf("%s: have %v, want %v", key, have, want)
		}
	}
	if _, ok := nl["&share"]; ok {
		t.Error("group header parsed as a variable")
	}
	n, err := NamelistInt(nl, "max_dom")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("max_dom = %d", n)
	}
	if _, err := NamelistInt(nl, "e_we"); err == nil {
		t.Error("expected an error for a missing variable")
	}
}
