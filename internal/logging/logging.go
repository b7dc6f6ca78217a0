// Package logging builds the zerolog logger shared by the store, the draft
// session and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Build collects logger settings. The zero value is not usable; start
// from New.
type Build struct {
	writer io.Writer
	path   string
	level  string
	format string
}

// New starts a build writing console lines at info level to stderr.
func New() *Build {
	return &Build{writer: os.Stderr, level: "info", format: FormatConsole}
}

// ToWriter sends log lines to w.
func (b *Build) ToWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// ToFile appends log lines to the file at path instead of the writer.
func (b *Build) ToFile(path string) *Build {
	b.path = path
	return b
}

// Level sets the minimum level by name (debug, info, warn, error).
func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// Format selects console or json output.
func (b *Build) Format(format string) *Build {
	b.format = format
	return b
}

// Logger is a built logger and the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// Close closes the log file. It is a no-op for writer-backed loggers.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Make builds the logger.
func (b *Build) Make() (*Logger, error) {
	level, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	out := &Logger{}
	w := b.writer
	if b.path != "" {
		out.file, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(out.file)
	}

	switch b.format {
	case FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	default:
		out.Close()
		return nil, fmt.Errorf("unknown log format %q (expected console|json)", b.format)
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}
