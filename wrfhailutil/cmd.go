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
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/wrfhail"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to wrfhail.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the log file. Log messages are written
              to standard error if it is empty. Log files are rotated once
              they grow large.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of the messages logged: one of
              debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scaffold.WRFDir",
			usage: `
              Scaffold.WRFDir is the directory holding the compiled model:
              WPS/ with namelist.wps and the WPS programs, and WRF/run/ with
              namelist.input and the WRF programs and tables. It can contain
              environment variables.`,
			defaultVal: "${HOME}/WRF_compile",
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.SimsDir",
			usage: `
              Scaffold.SimsDir is the directory in which simulation directories
              are created. It can contain environment variables.`,
			defaultVal: "${HOME}/sims",
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Lat",
			usage: `
              Scaffold.Lat is the latitude of the event [degrees north].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Lon",
			usage: `
              Scaffold.Lon is the longitude of the event [degrees east].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Year",
			usage: `
              Scaffold.Year is the year of the event.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Month",
			usage: `
              Scaffold.Month is the month of the event (1-12).`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Day",
			usage: `
              Scaffold.Day is the day of the month of the event.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Hour",
			usage: `
              Scaffold.Hour is the hour of the event (UTC).`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Minute",
			usage: `
              Scaffold.Minute is the minute of the event.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.Start",
			usage: `
              Scaffold.Start is the simulation start time, in the format
              2006-01-02_15:04:05.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.End",
			usage: `
              Scaffold.End is the simulation end time, in the format
              2006-01-02_15:04:05.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.MPSchemes",
			usage: `
              Scaffold.MPSchemes lists the microphysics variants as
              NAME=CODE pairs, where CODE is the mp_physics option. Each
              variant is set up in its own directory under WRF/.`,
			defaultVal: []string{"MY2=9", "NSSL=17", "P3-3M=53"},
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.MaxDom",
			usage: `
              Scaffold.MaxDom is the number of domains. If it is zero,
              max_dom is read from the template namelists, and 3 is used
              if they do not set it.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Scaffold.EventsFile",
			usage: `
              Scaffold.EventsFile is the path to a TOML file listing events
              to set up as [[event]] tables. If it is set, the single-event
              options (Scaffold.Lat ... Scaffold.End) are ignored.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{scaffoldCmd.Flags()},
		},
		{
			name: "Describe.ShallowCumulus",
			usage: `
              Describe.ShallowCumulus specifies whether to include the
              shallow cumulus scheme in the report of files that record one.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "Post.Dir",
			usage: `
              Post.Dir is the directory holding the files to post-process.
              Output files are written to the same directory.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{postprocCmd.PersistentFlags()},
		},
		{
			name: "Post.Workers",
			usage: `
              Post.Workers is the number of files processed at once.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{postprocCmd.PersistentFlags()},
		},
		{
			name: "Post.ContinueOnError",
			usage: `
              Post.ContinueOnError specifies whether to keep processing the
              remaining files after one fails. All failures are reported at
              the end.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{postprocCmd.PersistentFlags()},
		},
		{
			name: "Post.Basic.Pattern",
			usage: `
              Post.Basic.Pattern matches the names of the WRF output files
              processed by 'postproc basic'.`,
			defaultVal: "wrfout_d03*",
			flagsets:   []*pflag.FlagSet{postprocBasicCmd.Flags()},
		},
		{
			name: "Post.Basic.Fields",
			usage: `
              Post.Basic.Fields are the fields computed by 'postproc basic'.
              All fields are computed if it is empty.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{postprocBasicCmd.Flags()},
		},
		{
			name: "Post.Basic.Derived",
			usage: `
              Post.Basic.Derived are additional output fields calculated
              from the basic fields, each given as name=expression or
              name[units]=expression, for example
              "hail_in[in]=hailcast_diam_max/25.4". Expressions can use
              arithmetic and comparison operators and the functions exp,
              log, sqrt, abs, min and max. On the command line, quote
              definitions that contain commas.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{postprocBasicCmd.Flags()},
		},
		{
			name: "Post.Conv.Pattern",
			usage: `
              Post.Conv.Pattern matches the names of the files processed by
              'postproc conv'.`,
			defaultVal: "basic_params*.nc",
			flagsets:   []*pflag.FlagSet{postprocConvCmd.Flags()},
		},
		{
			name: "Post.Conv.Command",
			usage: `
              Post.Conv.Command is the parcel program and its leading
              arguments. It is run as
              <command> <input.nc> <output.nc> <vertical dimension>.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{postprocConvCmd.Flags()},
		},
		{
			name: "Post.Conv.VertDim",
			usage: `
              Post.Conv.VertDim is the vertical dimension passed to the
              parcel program.`,
			defaultVal: "bottom_top",
			flagsets:   []*pflag.FlagSet{postprocConvCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("WRFHAIL")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(scaffoldCmd)
	Root.AddCommand(describeCmd)
	Root.AddCommand(schemesCmd)
	Root.AddCommand(postprocCmd)
	postprocCmd.AddCommand(postprocBasicCmd)
	postprocCmd.AddCommand(postprocConvCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("wrfhail: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "wrfhail",
	Short: "Tools for WRF hail simulations.",
	Long: `wrfhail sets up WRF simulations of hail events, reports the physics
settings of WRF files, and post-processes WRF output into files of derived
atmospheric properties. Use the subcommands specified below to access this
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'WRFHAIL_var' where 'var' is
the name of the variable to be set, with '.' replaced by '_'
(for example WRFHAIL_POST_WORKERS). Path options can contain environment
variables.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of wrfhail.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wrfhail v%s\n", wrfhail.Version)
	},
	DisableAutoGenTag: true,
}

// scaffoldCmd sets up simulation directories.
var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Set up WPS and WRF directories for hail events.",
	Long: `scaffold creates a simulation directory for each event, named after the
event's location and time, containing a WPS directory and one WRF directory
per microphysics variant. Programs and tables are linked from Scaffold.WRFDir
and the template namelists are copied and rewritten for the event.
Directories that were completely set up before are left alone; directories
whose setup was interrupted are set up again.

The event is given either by the Scaffold.Lat ... Scaffold.End options or,
for several events, by Scaffold.EventsFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := setLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		ctx, cancel := signalContext()
		defer cancel()
		return Scaffold(ctx, log)
	},
	DisableAutoGenTag: true,
}

// describeCmd prints the metadata report of WRF files.
var describeCmd = &cobra.Command{
	Use:   "describe FILE...",
	Short: "Describe the settings of WRF files.",
	Long: `describe prints the surface temperatures, grid spacing and dimensions,
vertical level spacing, model top, and physics schemes of each WRF input or
output file given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Describe(cmd.OutOrStdout(), expandStringSlice(args), Cfg.GetBool("Describe.ShallowCumulus"))
	},
	DisableAutoGenTag: true,
}

// schemesCmd prints the physics scheme lookup tables.
var schemesCmd = &cobra.Command{
	Use:   "schemes [CATEGORY]",
	Short: "List the physics scheme codes.",
	Long: `schemes prints the physics scheme codes known to wrfhail and their
names. If a category (for example 'mp' or 'BL_PBL_PHYSICS') is given, only
that table is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Schemes(cmd.OutOrStdout(), args)
	},
	DisableAutoGenTag: true,
}

var postprocCmd = &cobra.Command{
	Use:   "postproc",
	Short: "Post-process WRF output.",
	Long: `postproc computes derived properties from simulation output. Use the
subcommands specified below to choose the processing step. Each processes
every matching file in Post.Dir, in name order.`,
	DisableAutoGenTag: true,
}

// postprocBasicCmd computes basic atmospheric fields.
var postprocBasicCmd = &cobra.Command{
	Use:   "basic",
	Short: "Compute basic atmospheric fields from WRF output.",
	Long: `basic computes pressure, temperature, humidity, winds, heights,
precipitable water, and the hail diagnostics from each WRF output file and
writes them to a basic_params file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := setLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		ctx, cancel := signalContext()
		defer cancel()
		written, err := PostBasic(ctx, log)
		for _, w := range written {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return err
	},
	DisableAutoGenTag: true,
}

// postprocConvCmd computes convective properties.
var postprocConvCmd = &cobra.Command{
	Use:   "conv",
	Short: "Compute convective properties from basic_params files.",
	Long: `conv prepares each basic_params file for parcel calculations, runs the
parcel program given by Post.Conv.Command on it, and writes the result to a
conv_params file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := setLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		ctx, cancel := signalContext()
		defer cancel()
		written, err := PostConv(ctx, log)
		for _, w := range written {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return err
	},
	DisableAutoGenTag: true,
}
