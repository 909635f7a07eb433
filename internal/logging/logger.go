package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// New creates a logfmt logger writing to w at the given level. An invalid
// level falls back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
	})
}

// OpenFile creates a logger that appends to path. The terminal UI owns
// stdout, so interactive commands log here instead.
func OpenFile(path, level string) (*log.Logger, io.Closer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Or returns l, or a discarding logger when l is nil.
func Or(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
