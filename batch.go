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
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Processor turns one input file into one output file.
type Processor interface {
	// OutputName returns the output file name for input file in.
	OutputName(in string) string

	// ProcessFile reads in and writes the result to out.
	ProcessFile(ctx context.Context, in string, out *os.File) error
}

// Batch runs a Processor on every file matching a pattern.
type Batch struct {
	// Dir is the directory searched for input files. Output files are
	// written alongside the inputs.
	Dir string

	// Pattern is a filepath.Match pattern for input file names, e.g.
	// "wrfout_d03*".
	Pattern string

	// Workers is the number of files processed at once. Values below 1
	// mean one.
	Workers int

	// ContinueOnError makes the failure of one file not stop the others.
	// All failures are then returned together at the end. Otherwise the
	// first failure stops the batch.
	ContinueOnError bool

	Log logrus.FieldLogger
}

// Files returns the input files in sorted order.
func (b *Batch) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(b.Dir, b.Pattern))
	if err != nil {
		return nil, fmt.Errorf("wrfhail: finding input files: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

func (b *Batch) log() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

// Run processes the input files with p and returns the names of the
// output files written. Each output is written to a temporary file and
// renamed into place only once it is complete, so a failure never leaves
// a partial output behind.
func (b *Batch) Run(ctx context.Context, p Processor) ([]string, error) {
	files, err := b.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		b.log().WithFields(logrus.Fields{"dir": b.Dir, "pattern": b.Pattern}).Warn("no input files found")
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	var (
		mu      sync.Mutex
		written []string
		errs    []error
	)
	for _, in := range files {
		if gctx.Err() != nil {
			break
		}
		in := in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := b.processOne(gctx, p, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if b.ContinueOnError {
					errs = append(errs, err)
					return nil
				}
				return err
			}
			written = append(written, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return written, err
	}
	if err := ctx.Err(); err != nil {
		return written, err
	}
	sort.Strings(written)
	return written, errors.Join(errs...)
}

func (b *Batch) processOne(ctx context.Context, p Processor, in string) (string, error) {
	out := p.OutputName(in)
	logger := b.log().WithFields(logrus.Fields{"input": in, "output": out})
	logger.Info("processing")
	err := writeAtomic(out, func(f *os.File) error {
		return p.ProcessFile(ctx, in, f)
	})
	if err != nil {
		logger.WithError(err).Error("processing failed")
		return "", fmt.Errorf("wrfhail: processing %s: %w", in, err)
	}
	return out, nil
}
