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
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger returns a logger writing messages at or above level. If
// file is not empty, messages go to a rotating log file at that path and
// the returned closer closes it; otherwise they go to stderr.
func newLogger(level, file string, stderr io.Writer) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, nil, fmt.Errorf("wrfhail: invalid LogLevel: %v", err)
	}
	log := &logrus.Logger{
		Out:       stderr,
		Formatter: &logrus.TextFormatter{FullTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     lvl,
	}
	if file == "" {
		return log, nopCloser{}, nil
	}
	w := &lumberjack.Logger{
		Filename:   os.ExpandEnv(file),
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.Out = w
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
	return log, w, nil
}

// setLogger creates the logger for cmd from the LogLevel and LogFile
// options. The returned function must be called when the command is
// finished.
func setLogger(cmd *cobra.Command) (logrus.FieldLogger, func(), error) {
	log, c, err := newLogger(Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"), os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return log.WithField("cmd", cmd.Name()), func() { c.Close() }, nil
}

// signalContext returns a context that is canceled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
