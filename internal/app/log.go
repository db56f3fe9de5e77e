package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// binrepHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<command>\t<message>\t<key=value ...>
type binrepHandler struct {
	w       io.Writer
	command string
	attrs   []slog.Attr
}

func (h *binrepHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *binrepHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	level := r.Level.String()

	if _, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, level, h.command, r.Message); err != nil {
		return err
	}

	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err := fmt.Fprintln(h.w)
	return err
}

func (h *binrepHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &binrepHandler{
		w:       h.w,
		command: h.command,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *binrepHandler) WithGroup(string) slog.Handler { return h }

// NewLogger creates a structured logger that writes to both
// logDir/binrep.log and stderr, tagging every record with the CLI
// command that produced it. It returns the binrep.Logger, the open log
// file (the caller must Close it when done), and any error.
func NewLogger(logDir, command string) (*slogAdapter, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("app: create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "binrep.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("app: open log file: %w", err)
	}

	w := io.MultiWriter(f, os.Stderr)
	handler := &binrepHandler{w: w, command: command}
	return &slogAdapter{l: slog.New(handler)}, f, nil
}

// slogAdapter wraps *slog.Logger to satisfy binrep.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
