package logs

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var (
	logger *log.Logger
	sink   io.Writer
	debug  bool
)

// InitLogger initializes the global logger. If w is nil, logs to stderr.
func InitLogger(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	sink, debug = w, verbose
	logger = newLogger(w, verbose)
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{Level: level})
}

// Tee copies log output to w as well, until the returned func is called.
// It must not race with logging calls; before InitLogger it does nothing.
func Tee(w io.Writer) (restore func()) {
	if logger == nil {
		return func() {}
	}
	prev := logger
	logger = newLogger(io.MultiWriter(sink, w), debug)
	return func() { logger = prev }
}

func Debug(msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
