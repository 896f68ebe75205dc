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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/wrfhail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWRFDir creates a minimal WPS and WRF installation.
func testWRFDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"WPS/Vtable":              "vtable",
		"WPS/geogrid/GEOGRID.TBL": "tbl",
		"WPS/ungrib/ungrib.exe":   "exe",
		"WPS/metgrid/METGRID.TBL": "tbl",
		"WPS/namelist.wps": "&share\n max_dom = 2,\n start_date = '2000-01-01_00:00:00',\n" +
			" end_date = '2000-01-02_00:00:00',\n/\n&geogrid\n ref_lat = 0.0,\n ref_lon = 0.0,\n" +
			" truelat1 = 0.0,\n stand_lon = 0.0,\n/\n",
		"WRF/run/wrf.exe": "exe",
		"WRF/run/namelist.input": "&time_control\n start_year = 2000,\n start_month = 01,\n" +
			" start_day = 01,\n start_hour = 00,\n end_year = 2000,\n end_month = 01,\n" +
			" end_day = 02,\n end_hour = 00,\n/\n&domains\n max_dom = 2,\n/\n" +
			"&physics\n mp_physics = 8, 8,\n/\n",
	}
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return dir
}

// execute runs the root command with args and returns its standard
// output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	Root.SetOutput(&out)
	defer Root.SetOutput(nil)
	Root.SetArgs(args)
	err := Root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("wrfhail v%s\n", wrfhail.Version), out)
}

func TestSchemes(t *testing.T) {
	out, err := execute(t, "schemes", "mp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Microphysics (mp, MP_PHYSICS):\n"), out)
	assert.Contains(t, out, "    9  Milbrandt 2-moment\n")
	assert.Contains(t, out, "   53  P3 3M\n")
	assert.NotContains(t, out, "PBL")

	out, err = execute(t, "schemes")
	require.NoError(t, err)
	for _, table := range wrfhail.SchemeTables() {
		assert.Contains(t, out, table.Attribute)
	}

	_, err = execute(t, "schemes", "nonsense")
	assert.Error(t, err)
}

func TestDescribe_missingFile(t *testing.T) {
	_, err := execute(t, "describe", filepath.Join(t.TempDir(), "wrfinput_d01"))
	assert.Error(t, err)

	_, err = execute(t, "describe")
	assert.Error(t, err)
}

func TestDescribe_shallowCumulusFlag(t *testing.T) {
	assert.NotNil(t, describeCmd.Flags().Lookup("Describe.ShallowCumulus"))
	assert.False(t, Cfg.GetBool("Describe.ShallowCumulus"))
}

func TestScaffold(t *testing.T) {
	wrfDir := testWRFDir(t)
	simsDir := t.TempDir()
	Cfg.Set("Scaffold.WRFDir", wrfDir)
	Cfg.Set("Scaffold.SimsDir", simsDir)
	Cfg.Set("Scaffold.EventsFile", "")
	Cfg.Set("Scaffold.MPSchemes", []string{"NSSL=17", "MY2=9"})
	Cfg.Set("Scaffold.MaxDom", 0)
	Cfg.Set("Scaffold.Lat", -30.5)
	Cfg.Set("Scaffold.Lon", 150.2)
	Cfg.Set("Scaffold.Year", 2020)
	Cfg.Set("Scaffold.Month", 1)
	Cfg.Set("Scaffold.Day", 15)
	Cfg.Set("Scaffold.Hour", 6)
	Cfg.Set("Scaffold.Minute", 30)
	Cfg.Set("Scaffold.Start", "2020-01-15_00:00:00")
	Cfg.Set("Scaffold.End", "2020-01-16_12:00:00")

	_, err := execute(t, "scaffold")
	require.NoError(t, err)

	simDir := filepath.Join(simsDir, "lat_-30.5_lon_150.2_2020-1-15_06:30")
	assert.True(t, wrfhail.IsComplete(filepath.Join(simDir, "WPS")))
	assert.True(t, wrfhail.IsComplete(filepath.Join(simDir, "WRF", "MY2")))
	assert.True(t, wrfhail.IsComplete(filepath.Join(simDir, "WRF", "NSSL")))
	assert.NoDirExists(t, filepath.Join(simDir, "WRF", "P3-3M"))

	nl, err := wrfhail.ParseNamelistFile(filepath.Join(simDir, "WRF", "NSSL", "namelist.input"))
	require.NoError(t, err)
	assert.Equal(t, []string{"17", "17"}, nl["mp_physics"])

	t.Run("events file", func(t *testing.T) {
		Cfg.Set("Scaffold.EventsFile", writeTemp(t, "events.toml", testEventsFile))
		defer Cfg.Set("Scaffold.EventsFile", "")
		_, err := execute(t, "scaffold")
		require.NoError(t, err)
		assert.DirExists(t, filepath.Join(simsDir, "lat_-27.0_lon_153.0_2021-10-2_23:00", "WRF", "MY2"))
	})

	t.Run("bad schemes", func(t *testing.T) {
		Cfg.Set("Scaffold.MPSchemes", []string{"MY2=1000"})
		defer Cfg.Set("Scaffold.MPSchemes", []string{"NSSL=17", "MY2=9"})
		_, err := execute(t, "scaffold")
		assert.ErrorIs(t, err, wrfhail.ErrUnknownScheme)
	})

	t.Run("missing WRF directory", func(t *testing.T) {
		Cfg.Set("Scaffold.WRFDir", filepath.Join(wrfDir, "missing"))
		defer Cfg.Set("Scaffold.WRFDir", wrfDir)
		_, err := execute(t, "scaffold")
		assert.Error(t, err)
	})
}

func TestScaffold_configFile(t *testing.T) {
	wrfDir := testWRFDir(t)
	simsDir := t.TempDir()
	cfgFile := writeTemp(t, "config.toml", fmt.Sprintf(`
[Scaffold]
WRFDir = %q
SimsDir = %q
EventsFile = %q
MaxDom = 1
MPSchemes = ["P3-3M=53"]
`, wrfDir, simsDir, writeTemp(t, "events.toml", testEventsFile)))

	// Overrides from other tests take precedence over the file.
	for _, key := range []string{"Scaffold.WRFDir", "Scaffold.SimsDir", "Scaffold.EventsFile", "Scaffold.MaxDom", "Scaffold.MPSchemes"} {
		Cfg.Set(key, nil)
	}
	Cfg.Set("config", cfgFile)
	defer Cfg.Set("config", "")

	_, err := execute(t, "scaffold")
	require.NoError(t, err)

	nl, err := wrfhail.ParseNamelistFile(filepath.Join(simsDir,
		"lat_-30.5_lon_150.2_2020-1-15_06:30", "WRF", "P3-3M", "namelist.input"))
	require.NoError(t, err)
	assert.Equal(t, []string{"53"}, nl["mp_physics"])
	assert.Equal(t, []string{"2020"}, nl["start_year"])
}

func TestPostproc(t *testing.T) {
	dir := t.TempDir()
	Cfg.Set("Post.Dir", dir)

	t.Run("basic no files", func(t *testing.T) {
		out, err := execute(t, "postproc", "basic")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("basic unknown field", func(t *testing.T) {
		Cfg.Set("Post.Basic.Fields", []string{"pressure", "dbz"})
		defer Cfg.Set("Post.Basic.Fields", []string{})
		_, err := execute(t, "postproc", "basic")
		assert.ErrorContains(t, err, "dbz")
	})

	t.Run("basic bad derived field", func(t *testing.T) {
		Cfg.Set("Post.Basic.Derived", []string{"hail_in = hailcast_diam_max /"})
		defer Cfg.Set("Post.Basic.Derived", []string{})
		_, err := execute(t, "postproc", "basic")
		assert.ErrorContains(t, err, "hail_in")
	})

	t.Run("basic bad file", func(t *testing.T) {
		bad := filepath.Join(dir, "wrfout_d03_2020-01-15_00:00:00")
		require.NoError(t, os.WriteFile(bad, []byte("not netcdf"), 0644))
		defer os.Remove(bad)
		_, err := execute(t, "postproc", "basic")
		assert.Error(t, err)
		assert.NoFileExists(t, bad+".nc")
		assert.NoFileExists(t, filepath.Join(dir, "basic_params_d03_2020-01-15_00:00:00.nc"))
	})

	t.Run("conv needs command", func(t *testing.T) {
		Cfg.Set("Post.Conv.Command", []string{})
		_, err := execute(t, "postproc", "conv")
		assert.ErrorContains(t, err, "Post.Conv.Command")
	})

	t.Run("missing directory", func(t *testing.T) {
		Cfg.Set("Post.Dir", filepath.Join(dir, "missing"))
		defer Cfg.Set("Post.Dir", dir)
		_, err := execute(t, "postproc", "basic")
		assert.Error(t, err)
	})
}
