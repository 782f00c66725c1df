// Package logging provides structured file logging for linkpeek.
//
// The terminal host owns stdout and stderr while the UI is running, so log
// output always goes to a file under the XDG state directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"charm.land/log/v2"
	"github.com/adrg/xdg"
)

// Logger is the structured logging interface used across linkpeek.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a logger that adds the given key-value pairs to every entry.
	With(args ...any) Logger
	// Close flushes and releases the underlying file, if any.
	Close() error
}

// Options configures New.
type Options struct {
	// Enabled turns logging on. A disabled configuration yields a no-op logger.
	Enabled bool
	// Level is one of debug, info, warn, error.
	Level string
	// Path overrides the log file location. Empty means DefaultPath.
	Path string
}

// DefaultPath returns $XDG_STATE_HOME/linkpeek/linkpeek.log.
func DefaultPath() (string, error) {
	return xdg.StateFile("linkpeek/linkpeek.log")
}

type fileLogger struct {
	l    *log.Logger
	sink *sink
}

// sink is shared by every logger derived from the same New call.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

// New opens (or creates) the log file and returns a logger writing logfmt
// lines to it.
func New(opts Options) (Logger, error) {
	if !opts.Enabled {
		return Noop(), nil
	}

	path := opts.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve log path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// #nosec G304 - path is the user's own state file
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := newLogger(f, opts.Level).With("pid", os.Getpid())
	return &fileLogger{l: l, sink: &sink{file: f}}, nil
}

// NewWriter returns a logger writing to w. It never owns w.
func NewWriter(w io.Writer, level string) Logger {
	return &fileLogger{l: newLogger(w, level), sink: &sink{}}
}

func newLogger(w io.Writer, level string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           ParseLevel(level),
	})
	l.SetFormatter(log.LogfmtFormatter)
	return l
}

// ParseLevel converts a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (f *fileLogger) Debug(msg string, args ...any) { f.l.Debug(msg, args...) }
func (f *fileLogger) Info(msg string, args ...any)  { f.l.Info(msg, args...) }
func (f *fileLogger) Warn(msg string, args ...any)  { f.l.Warn(msg, args...) }
func (f *fileLogger) Error(msg string, args ...any) { f.l.Error(msg, args...) }

func (f *fileLogger) With(args ...any) Logger {
	return &fileLogger{l: f.l.With(args...), sink: f.sink}
}

// Close closes the log file. Loggers derived through With share the file, so
// closing any of them closes it for all.
func (f *fileLogger) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	if f.sink.file == nil {
		return nil
	}
	err := f.sink.file.Close()
	f.sink.file = nil
	return err
}

type noopLogger struct{}

// Noop returns a logger that discards everything.
func Noop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }
func (noopLogger) Close() error         { return nil }
