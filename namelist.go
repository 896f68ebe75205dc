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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Substitution replaces the value of a namelist entry.
type Substitution struct {
	Key   string // namelist variable name, e.g. "start_date"
	Value string // text that will follow "Key = "
}

// RewriteNamelist copies the namelist in r to w, replacing every line that
// assigns one of the keys in subs with "key = value". Indentation before the
// key and the line ending are kept; all other lines are copied unchanged.
// It returns the number of lines replaced for each key.
func RewriteNamelist(r io.Reader, w io.Writer, subs []Substitution) (map[string]int, error) {
	replaced := make(map[string]int, len(subs))
	for _, s := range subs {
		replaced[s.Key] = 0
	}
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = rewriteLine(line, subs, replaced)
			if _, werr := bw.WriteString(line); werr != nil {
				return nil, fmt.Errorf("wrfhail: writing namelist: %v", werr)
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("wrfhail: reading namelist: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("wrfhail: writing namelist: %v", err)
	}
	return replaced, nil
}

func rewriteLine(line string, subs []Substitution, replaced map[string]int) string {
	body := strings.TrimRight(line, "\r\n")
	ending := line[len(body):]
	trimmed := strings.TrimLeft(body, " \t")
	indent := body[:len(body)-len(trimmed)]
	for _, s := range subs {
		if !assigns(trimmed, s.Key) {
			continue
		}
		replaced[s.Key]++
		return indent + s.Key + " = " + s.Value + ending
	}
	return line
}

// assigns reports whether the namelist line (without indentation) assigns
// key.
func assigns(line, key string) bool {
	if !strings.HasPrefix(line, key) {
		return false
	}
	return strings.HasPrefix(strings.TrimLeft(line[len(key):], " \t"), "=")
}

// RewriteNamelistFile applies subs to the namelist file at path. The new
// contents are written to a temporary file that then replaces the original,
// so the file is never left half written.
func RewriteNamelistFile(path string, subs []Substitution) (map[string]int, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: opening namelist: %v", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("wrfhail: opening namelist: %v", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("wrfhail: rewriting namelist %s: %v", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	replaced, err := RewriteNamelist(in, tmp, subs)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("wrfhail: rewriting namelist %s: %v", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("wrfhail: rewriting namelist %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("wrfhail: rewriting namelist %s: %v", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("wrfhail: rewriting namelist %s: %v", path, err)
	}
	return replaced, nil
}

// ParseNamelist reads the "name = value, value," assignments in a namelist.
// Group headers, group terminators and comments are skipped. Values are
// returned without surrounding quotes.
func ParseNamelist(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)
	f := bufio.NewReader(r)
	for {
		line, err := f.ReadString('\n')
		if i := strings.Index(line, "!"); i != -1 {
			line = line[:i]
		}
		if i := strings.Index(line, "="); i != -1 {
			name := strings.Trim(line[:i], " \t,")
			var vals []string
			for _, v := range strings.Split(line[i+1:], ",") {
				v = strings.Trim(v, " \t\r\n'\"")
				if v != "" {
					vals = append(vals, v)
				}
			}
			out[name] = vals
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("wrfhail: parsing namelist: %v", err)
		}
	}
	return out, nil
}

// ParseNamelistFile is ParseNamelist for a file.
func ParseNamelistFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: opening namelist: %v", err)
	}
	defer f.Close()
	return ParseNamelist(f)
}

// NamelistInt returns the first value of key in nl as an integer.
func NamelistInt(nl map[string][]string, key string) (int, error) {
	vals, ok := nl[key]
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("wrfhail: namelist variable %s is not set", key)
	}
	v, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0, fmt.Errorf("wrfhail: namelist variable %s: %v", key, err)
	}
	return v, nil
}

// repeatValue returns v repeated n times, each followed by a comma and
// separated by spaces: "v, v, v,".
func repeatValue(v string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = v + ","
	}
	return strings.Join(parts, " ")
}

// wpsSubstitutions returns the namelist.wps changes for event e.
func wpsSubstitutions(e Event, maxDom int) []Substitution {
	quote := func(s string) string { return "'" + s + "'" }
	lat, lon := formatFloat(e.Lat), formatFloat(e.Lon)
	return []Substitution{
		{Key: "start_date", Value: repeatValue(quote(e.Start.Format(WRFTimeFormat)), maxDom)},
		{Key: "end_date", Value: repeatValue(quote(e.End.Format(WRFTimeFormat)), maxDom)},
		{Key: "ref_lat", Value: lat},
		{Key: "ref_lon", Value: lon},
		{Key: "truelat1", Value: lat},
		{Key: "stand_lon", Value: lon},
	}
}

// wrfSubstitutions returns the namelist.input changes for event e run with
// microphysics option mpPhysics.
func wrfSubstitutions(e Event, mpPhysics, maxDom int) []Substitution {
	var subs []Substitution
	for _, t := range []struct {
		prefix string
		time   string
	}{
		{"start", e.Start.Format(WRFTimeFormat)},
		{"end", e.End.Format(WRFTimeFormat)},
	} {
		// Fields are sliced from the formatted time so they keep their
		// zero padding.
		subs = append(subs,
			Substitution{Key: t.prefix + "_year", Value: repeatValue(t.time[0:4], maxDom)},
			Substitution{Key: t.prefix + "_month", Value: repeatValue(t.time[5:7], maxDom)},
			Substitution{Key: t.prefix + "_day", Value: repeatValue(t.time[8:10], maxDom)},
			Substitution{Key: t.prefix + "_hour", Value: repeatValue(t.time[11:13], maxDom)},
		)
	}
	subs = append(subs, Substitution{Key: "mp_physics", Value: repeatValue(strconv.Itoa(mpPhysics), maxDom)})
	return subs
}
