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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfhail"
)

// Scaffold sets up the simulation directories for the events given by
// the configuration.
func Scaffold(ctx context.Context, log logrus.FieldLogger) error {
	wrfDir, err := checkDir("Scaffold.WRFDir", Cfg.GetString("Scaffold.WRFDir"))
	if err != nil {
		return err
	}
	simsDir := os.ExpandEnv(Cfg.GetString("Scaffold.SimsDir"))
	if simsDir == "" {
		return fmt.Errorf("you need to specify the Scaffold.SimsDir configuration variable")
	}
	schemes, err := checkSchemes(cleanSlice(Cfg.GetStringSlice("Scaffold.MPSchemes")))
	if err != nil {
		return err
	}
	maxDom := Cfg.GetInt("Scaffold.MaxDom")
	if maxDom < 0 {
		return fmt.Errorf("wrfhail: Scaffold.MaxDom=%d but should be >= 0", maxDom)
	}

	var events []wrfhail.Event
	if f := Cfg.GetString("Scaffold.EventsFile"); f != "" {
		if events, err = ReadEvents(f); err != nil {
			return err
		}
	} else {
		e, err := checkEvent(Cfg)
		if err != nil {
			return err
		}
		events = []wrfhail.Event{e}
	}

	s := &wrfhail.Scaffolder{
		WRFDir:  wrfDir,
		SimsDir: simsDir,
		Schemes: schemes,
		MaxDom:  maxDom,
		Log:     log,
	}
	log.WithField("events", len(events)).Info("scaffolding simulations")
	return s.ScaffoldEvents(ctx, events)
}

// Describe writes the metadata report of each WRF file in files to w.
// It stops at the first file that cannot be described. shallowCumulus
// adds the shallow cumulus scheme to the reports.
func Describe(w io.Writer, files []string, shallowCumulus bool) error {
	for _, f := range files {
		if err := wrfhail.Describe(f, w, shallowCumulus); err != nil {
			return err
		}
	}
	return nil
}

// Schemes writes the physics scheme tables to w. If args holds a
// category, only that table is written.
func Schemes(w io.Writer, args []string) error {
	tables := wrfhail.SchemeTables()
	if len(args) > 0 {
		t, err := wrfhail.SchemeTableByName(args[0])
		if err != nil {
			return err
		}
		tables = []wrfhail.SchemeTable{t}
	}
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s, %s):\n", t.Label, t.Category, t.Attribute)
		for _, c := range t.Codes() {
			name, _ := t.Name(c)
			fmt.Fprintf(w, "  %3d  %s\n", c, name)
		}
	}
	return nil
}

// batch returns the batch runner configured by the Post options.
func batch(patternOption string, log logrus.FieldLogger) (*wrfhail.Batch, error) {
	dir, err := checkDir("Post.Dir", Cfg.GetString("Post.Dir"))
	if err != nil {
		return nil, err
	}
	pattern := os.ExpandEnv(Cfg.GetString(patternOption))
	if pattern == "" {
		return nil, fmt.Errorf("you need to specify the %s configuration variable", patternOption)
	}
	workers := Cfg.GetInt("Post.Workers")
	if workers < 1 {
		return nil, fmt.Errorf("wrfhail: Post.Workers=%d but should be >= 1", workers)
	}
	return &wrfhail.Batch{
		Dir:             dir,
		Pattern:         pattern,
		Workers:         workers,
		ContinueOnError: Cfg.GetBool("Post.ContinueOnError"),
		Log:             log,
	}, nil
}

// PostBasic runs the basic post-processor on the WRF output files given
// by the configuration and returns the files written.
func PostBasic(ctx context.Context, log logrus.FieldLogger) ([]string, error) {
	fields := cleanSlice(Cfg.GetStringSlice("Post.Basic.Fields"))
	if err := wrfhail.CheckBasicFields(fields); err != nil {
		return nil, err
	}
	derived, err := wrfhail.ParseDerivedFields(cleanSlice(Cfg.GetStringSlice("Post.Basic.Derived")))
	if err != nil {
		return nil, err
	}
	b, err := batch("Post.Basic.Pattern", log)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, &wrfhail.Basic{Fields: fields, Derived: derived, Log: log})
}

// PostConv runs the convective post-processor on the basic_params files
// given by the configuration and returns the files written.
func PostConv(ctx context.Context, log logrus.FieldLogger) ([]string, error) {
	command := cleanSlice(Cfg.GetStringSlice("Post.Conv.Command"))
	if len(command) == 0 {
		return nil, fmt.Errorf("you need to specify the parcel program in the Post.Conv.Command configuration variable")
	}
	b, err := batch("Post.Conv.Pattern", log)
	if err != nil {
		return nil, err
	}
	c := &wrfhail.Conv{
		Parcel:  &wrfhail.ExternalParcel{Command: command, Log: log},
		VertDim: Cfg.GetString("Post.Conv.VertDim"),
		Log:     log,
	}
	return b.Run(ctx, c)
}

// cleanSlice expands environment variables in s and drops empty
// elements.
func cleanSlice(s []string) []string {
	var o []string
	for _, v := range expandStringSlice(s) {
		if v = strings.TrimSpace(v); v != "" {
			o = append(o, v)
		}
	}
	return o
}
