// SPDX-License-Identifier: MPL-2.0

// Package logging builds the slog loggers used across appcraft. Records are
// rendered by a charmbracelet/log handler so CLI output stays readable.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// LevelDebug logs every inspected dependency.
	LevelDebug Level = "debug"
	// LevelInfo logs build stages. This is the default.
	LevelInfo Level = "info"
	// LevelWarn logs only soft failures.
	LevelWarn Level = "warn"
	// LevelError logs only fatal errors.
	LevelError Level = "error"
)

// ErrInvalidLevel is the sentinel error wrapped by InvalidLevelError.
var ErrInvalidLevel = errors.New("invalid log level")

type (
	// Level is a textual log level as written in a recipe.
	Level string

	// InvalidLevelError is returned when a Level is not recognized.
	InvalidLevelError struct {
		Value Level
	}
)

// Error implements the error interface.
func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLevel for errors.Is.
func (e *InvalidLevelError) Unwrap() error { return ErrInvalidLevel }

// Validate returns an error when the level is not one of the known values.
// The zero value is valid and means LevelInfo.
func (l Level) Validate() error {
	switch Level(strings.ToLower(string(l))) {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
		return nil
	default:
		return &InvalidLevelError{Value: l}
	}
}

func (l Level) charm() log.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New returns a logger writing to w at the given level. A nil writer means
// os.Stderr. The prefix is printed before every message when non-empty.
func New(w io.Writer, level Level, prefix string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  level.charm(),
		Prefix: prefix,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
