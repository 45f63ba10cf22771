// Package logging builds the process logger. The TUI owns the terminal, so
// logs go to a file or nowhere.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps debug, info, warn and error to a slog level. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New returns a text logger writing to file, or a discarding logger when file
// is empty. The returned close function is never nil.
func New(level, file string, verbose bool) (*slog.Logger, func() error, error) {
	lvl := ParseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	var (
		w       io.Writer = io.Discard
		closeFn           = func() error { return nil }
	)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
			return nil, closeFn, err
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, closeFn, err
		}
		w, closeFn = f, f.Close
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), closeFn, nil
}
