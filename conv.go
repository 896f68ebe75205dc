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
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParcelModel computes convective properties of every column of a
// dataset by lifting air parcels along vertical dimension vertDim.
type ParcelModel interface {
	Run(ctx context.Context, d *Data, vertDim string) (*Data, error)
}

// ExternalParcel is a ParcelModel that runs an external program as
//
//	Command... <input.nc> <output.nc> <vertDim>
//
// The prepared dataset is written to input.nc, and the program must write
// its results to output.nc.
type ExternalParcel struct {
	// Command is the program and any leading arguments.
	Command []string

	// TempDir holds the exchange files. The system temporary directory is
	// used if TempDir is empty.
	TempDir string

	Log logrus.FieldLogger
}

// Run implements ParcelModel.
func (e *ExternalParcel) Run(ctx context.Context, d *Data, vertDim string) (result *Data, err error) {
	if len(e.Command) == 0 {
		return nil, errors.New("wrfhail: no parcel command configured")
	}
	dir, err := os.MkdirTemp(e.TempDir, "wrfhail-parcel-")
	if err != nil {
		return nil, fmt.Errorf("wrfhail: parcel model: %v", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.nc")
	out := filepath.Join(dir, "output.nc")
	f, err := os.Create(in)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: parcel model: %v", err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("wrfhail: parcel model: %v", err)
	}

	args := append(append([]string{}, e.Command[1:]...), in, out, vertDim)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if e.Log != nil {
		e.Log.WithField("command", strings.Join(cmd.Args, " ")).Debug("running parcel model")
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("wrfhail: parcel model %s: %v: %s", e.Command[0], err,
			strings.TrimSpace(stderr.String()))
	}

	of, err := OpenFile(out)
	if err != nil {
		return nil, fmt.Errorf("wrfhail: parcel model %s wrote no readable output: %w", e.Command[0], err)
	}
	defer func() {
		err = errors.Join(err, of.Close())
	}()
	return ReadAll(of)
}

// Conv computes convective properties from the files written by Basic.
type Conv struct {
	Parcel ParcelModel

	// VertDim is the vertical dimension. "bottom_top" is used if it is
	// empty.
	VertDim string

	Log logrus.FieldLogger
}

// OutputName returns the name of the file Conv writes for input file
// in: the first "basic_" in the file name is replaced by "conv_".
func (c *Conv) OutputName(in string) string {
	dir, name := filepath.Split(in)
	return dir + strings.Replace(name, "basic_", "conv_", 1)
}

func (c *Conv) vertDim() string {
	if c.VertDim == "" {
		return levelDim
	}
	return c.VertDim
}

// Prepare renames and adds the variables the parcel model expects:
// z, u and v become height_asl, wind_u and wind_v; surface_wind_u and
// surface_wind_v hold the winds on the lowest level; and
// wind_height_above_surface is a copy of z_agl.
func (c *Conv) Prepare(d *Data) error {
	for _, r := range [][2]string{{"z", "height_asl"}, {"u", "wind_u"}, {"v", "wind_v"}} {
		if err := d.Rename(r[0], r[1]); err != nil {
			return err
		}
	}
	vert := c.vertDim()
	for _, s := range [][2]string{{"wind_u", "surface_wind_u"}, {"wind_v", "surface_wind_v"}} {
		v := d.Vars[s[0]]
		i := v.dimIndex(vert)
		if i < 0 {
			return fmt.Errorf("wrfhail: variable %s has no dimension %s", s[0], vert)
		}
		data, err := lowestLevel(v.Data, i)
		if err != nil {
			return fmt.Errorf("wrfhail: %s: %v", s[1], err)
		}
		dims := make([]string, 0, len(v.Dims)-1)
		dims = append(dims, v.Dims[:i]...)
		dims = append(dims, v.Dims[i+1:]...)
		d.Vars[s[1]] = &Variable{
			Dims:        dims,
			Description: "surface " + v.Description,
			Units:       v.Units,
			Data:        data,
		}
	}
	agl, err := d.Variable("z_agl")
	if err != nil {
		return err
	}
	d.Vars["wind_height_above_surface"] = agl.Copy()
	return nil
}

// Process prepares d and runs the parcel model on it.
func (c *Conv) Process(ctx context.Context, d *Data) (*Data, error) {
	if c.Parcel == nil {
		return nil, errors.New("wrfhail: no parcel model configured")
	}
	if err := c.Prepare(d); err != nil {
		return nil, err
	}
	return c.Parcel.Run(ctx, d, c.vertDim())
}

// ProcessFile implements Processor.
func (c *Conv) ProcessFile(ctx context.Context, in string, out *os.File) error {
	f, err := OpenFile(in)
	if err != nil {
		return err
	}
	d, err := ReadAll(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	conv, err := c.Process(ctx, d)
	if err != nil {
		return err
	}
	return conv.Write(out)
}
