// Package log configures the process-wide logrus logger. The TUI owns the
// terminal, so records go to a file under the XDG state directory.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options controls logger setup.
type Options struct {
	Path  string // log file; empty discards all output
	Debug bool
	JSON  bool
}

// Setup points the standard logrus logger at opts.Path. The returned closer
// releases the file handle.
func Setup(opts Options) (io.Closer, error) {
	logger := logrus.StandardLogger()

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	if opts.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if opts.Path == "" {
		logger.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(opts.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return f, nil
}

// With returns an entry tagged with the emitting component.
func With(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
