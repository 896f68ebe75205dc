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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spatialmodel/wrfhail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventsFile = `
[[event]]
lat = -30.5
lon = 150.2
year = 2020
month = 1
day = 15
hour = 6
minute = 30
start = "2020-01-15_00:00:00"
end = "2020-01-16_12:00:00"

[[event]]
lat = -27.0
lon = 153.0
year = 2021
month = 10
day = 2
hour = 23
minute = 0
start = "2021-10-02_12:00:00"
end = "2021-10-03_06:00:00"
`

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadEvents(t *testing.T) {
	events, err := ReadEvents(writeTemp(t, "events.toml", testEventsFile))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, wrfhail.Event{
		Lat: -30.5, Lon: 150.2,
		Year: 2020, Month: 1, Day: 15, Hour: 6, Minute: 30,
		Start: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 16, 12, 0, 0, 0, time.UTC),
	}, events[0])
	assert.Equal(t, "/sims/lat_-27.0_lon_153.0_2021-10-2_23:00", events[1].Dir("/sims"))
}

func TestReadEvents_errors(t *testing.T) {
	tests := []struct {
		name, contents, want string
	}{
		{name: "empty", contents: "", want: "no [[event]]"},
		{name: "unknown key", contents: "[[event]]\nlatitude = 3.0\n", want: "latitude"},
		{name: "bad time", contents: "[[event]]\nlat = 1.0\nlon = 1.0\nyear = 2020\nmonth = 1\nday = 1\nstart = \"2020-01-01\"\nend = \"2020-01-02_00:00:00\"\n", want: "event 1"},
		{name: "invalid event", contents: "[[event]]\nlat = 1.0\nlon = 1.0\nyear = 2020\nmonth = 0\nday = 1\nstart = \"2020-01-01_00:00:00\"\nend = \"2020-01-02_00:00:00\"\n", want: "month"},
		{name: "bad toml", contents: "[[event]\n", want: "reading events file"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadEvents(writeTemp(t, "events.toml", test.contents))
			assert.ErrorContains(t, err, test.want)
		})
	}

	_, err := ReadEvents(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
