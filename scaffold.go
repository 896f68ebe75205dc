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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// CompletionMarker is the name of the file written last in each
// simulation sub-directory once it has been fully set up.
const CompletionMarker = ".wrfhail-complete"

// DefaultMaxDom is the number of domains assumed when neither the
// configuration nor the template namelist sets max_dom.
const DefaultMaxDom = 3

// Scheme is a microphysics variant of a simulation. Each variant is run in
// its own directory under WRF/.
type Scheme struct {
	Name string
	Code int // mp_physics option
}

// DefaultSchemes are the microphysics variants set up when none are
// configured.
var DefaultSchemes = []Scheme{
	{Name: "MY2", Code: 9},
	{Name: "NSSL", Code: 17},
	{Name: "P3-3M", Code: 53},
}

// wpsLinks are the entries of the WPS installation linked into each
// simulation.
var wpsLinks = []string{"Vtable", "geogrid", "ungrib", "metgrid"}

// Scaffolder sets up the directories needed to run WPS and WRF for
// hail events.
type Scaffolder struct {
	// WRFDir holds the compiled model in WPS/ and WRF/run/, together with
	// the template namelists.
	WRFDir string

	// SimsDir is the directory in which simulation directories are created.
	SimsDir string

	// Schemes are the microphysics variants. DefaultSchemes is used if
	// Schemes is empty.
	Schemes []Scheme

	// MaxDom is the number of domains. If zero, max_dom is read from each
	// template namelist, falling back to DefaultMaxDom.
	MaxDom int

	Log   logrus.FieldLogger
	Clock clockwork.Clock
}

// marker is the contents of a completion marker.
type marker struct {
	Lat       float64   `toml:"lat"`
	Lon       float64   `toml:"lon"`
	Start     time.Time `toml:"start"`
	End       time.Time `toml:"end"`
	Scheme    string    `toml:"scheme,omitempty"`
	MPPhysics int       `toml:"mp_physics,omitempty"`
	Completed time.Time `toml:"completed"`
}

func (s *Scaffolder) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Scaffolder) clock() clockwork.Clock {
	if s.Clock == nil {
		return clockwork.NewRealClock()
	}
	return s.Clock
}

// ValidSchemeName reports whether name can be used as the directory of a
// microphysics variant under WRF/: it must be a single path element other
// than "." and "..".
func ValidSchemeName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Clean(name) == name
}

func (s *Scaffolder) schemes() []Scheme {
	if len(s.Schemes) == 0 {
		return DefaultSchemes
	}
	return s.Schemes
}

// Scaffold creates the simulation directory for e: a WPS directory and one
// WRF/<scheme> directory per microphysics variant, each holding links to
// the model executables and a namelist rewritten for the event.
//
// A directory that carries a completion marker is skipped. A directory
// without one, for instance left behind by an interrupted run, is set up
// again. There is no rollback: if a step fails the files already created
// are left in place and the error is returned.
func (s *Scaffolder) Scaffold(ctx context.Context, e Event) error {
	if e.End.Before(e.Start) {
		return fmt.Errorf("wrfhail: scaffolding %v: end time %v is before start time %v",
			e, e.End.Format(WRFTimeFormat), e.Start.Format(WRFTimeFormat))
	}
	for _, scheme := range s.schemes() {
		if !ValidSchemeName(scheme.Name) {
			return fmt.Errorf("wrfhail: scaffolding %v: invalid variant name %q", e, scheme.Name)
		}
	}
	simDir := e.Dir(s.SimsDir)
	if err := os.MkdirAll(filepath.Join(simDir, "WRF"), os.ModePerm); err != nil {
		return fmt.Errorf("wrfhail: scaffolding %v: %v", e, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.setUpWPS(e, simDir); err != nil {
		return fmt.Errorf("wrfhail: scaffolding %v: %w", e, err)
	}
	for _, scheme := range s.schemes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.setUpWRF(e, simDir, scheme); err != nil {
			return fmt.Errorf("wrfhail: scaffolding %v: %w", e, err)
		}
	}
	return nil
}

// ScaffoldEvents calls Scaffold for each event. A failure for one event
// does not prevent the others from being set up; all errors are returned
// together.
func (s *Scaffolder) ScaffoldEvents(ctx context.Context, events []Event) error {
	var errs []error
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Scaffold(ctx, e); err != nil {
			s.log().WithError(err).WithField("event", e.String()).Error("scaffolding failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scaffolder) setUpWPS(e Event, simDir string) error {
	dir := wpsDir(simDir)
	logger := s.log().WithField("dir", dir)
	if IsComplete(dir) {
		logger.Info("skipping existing WPS")
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	src := filepath.Join(s.WRFDir, "WPS")
	for _, name := range wpsLinks {
		if err := forceSymlink(filepath.Join(src, name), filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	nl := filepath.Join(dir, "namelist.wps")
	if err := copyFile(filepath.Join(src, "namelist.wps"), nl); err != nil {
		return err
	}
	maxDom, err := s.maxDom(nl)
	if err != nil {
		return err
	}
	if err := s.rewrite(nl, wpsSubstitutions(e, maxDom)); err != nil {
		return err
	}
	if err := s.writeMarker(dir, e, Scheme{}); err != nil {
		return err
	}
	logger.Info("set up WPS")
	return nil
}

func (s *Scaffolder) setUpWRF(e Event, simDir string, scheme Scheme) error {
	dir := wrfDir(simDir, scheme.Name)
	logger := s.log().WithFields(logrus.Fields{"dir": dir, "scheme": scheme.Name})
	if IsComplete(dir) {
		logger.Infof("skipping existing WRF/%s", scheme.Name)
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	run := filepath.Join(s.WRFDir, "WRF", "run")
	entries, err := os.ReadDir(run)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if skipRunEntry(ent.Name()) {
			continue
		}
		if err := forceSymlink(filepath.Join(run, ent.Name()), filepath.Join(dir, ent.Name())); err != nil {
			return err
		}
	}
	nl := filepath.Join(dir, "namelist.input")
	if err := copyFile(filepath.Join(run, "namelist.input"), nl); err != nil {
		return err
	}
	maxDom, err := s.maxDom(nl)
	if err != nil {
		return err
	}
	if err := s.rewrite(nl, wrfSubstitutions(e, scheme.Code, maxDom)); err != nil {
		return err
	}
	if err := s.writeMarker(dir, e, scheme); err != nil {
		return err
	}
	logger.Info("set up WRF")
	return nil
}

// skipRunEntry reports whether an entry of WRF/run is left out of the
// links: namelists are copied instead and scripts are not needed.
func skipRunEntry(name string) bool {
	for _, pattern := range []string{"namelist.*", "*.sh"} {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Scaffolder) maxDom(namelist string) (int, error) {
	if s.MaxDom > 0 {
		return s.MaxDom, nil
	}
	nl, err := ParseNamelistFile(namelist)
	if err != nil {
		return 0, err
	}
	if n, err := NamelistInt(nl, "max_dom"); err == nil && n > 0 {
		return n, nil
	}
	return DefaultMaxDom, nil
}

func (s *Scaffolder) rewrite(path string, subs []Substitution) error {
	replaced, err := RewriteNamelistFile(path, subs)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if replaced[sub.Key] == 0 {
			s.log().WithFields(logrus.Fields{"namelist": path, "key": sub.Key}).
				Warn("namelist variable not found in template")
		}
	}
	return nil
}

func (s *Scaffolder) writeMarker(dir string, e Event, scheme Scheme) error {
	m := marker{
		Lat:       e.Lat,
		Lon:       e.Lon,
		Start:     e.Start,
		End:       e.End,
		Scheme:    scheme.Name,
		MPPhysics: scheme.Code,
		Completed: s.clock().Now().UTC(),
	}
	return writeAtomic(filepath.Join(dir, CompletionMarker), func(f *os.File) error {
		return toml.NewEncoder(f).Encode(m)
	})
}

// IsComplete reports whether dir carries a completion marker.
func IsComplete(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, CompletionMarker))
	return err == nil
}

// forceSymlink links dst to src, replacing whatever is at dst, as
// "ln -sf" does.
func forceSymlink(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	return os.Symlink(abs, dst)
}

// copyFile copies src to dst, keeping the permission bits of src.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		// A stale link would otherwise be followed.
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeAtomic writes a file by calling write on a temporary file in the
// same directory and renaming it to path once write succeeds.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
