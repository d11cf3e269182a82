package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// fanout writes every record to each sink whose level admits it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range f {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps writing to the remaining sinks when one fails.
// Params: ctx context and record to write.
// Returns: joined sink errors.
func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range f {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (f fanout) derive(apply func(slog.Handler) slog.Handler) fanout {
	next := make(fanout, len(f))
	for i, handler := range f {
		next[i] = apply(handler)
	}
	return next
}

const (
	ansiReset  = "\x1b[0m"
	ansiBlue   = "\x1b[34m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiGray   = "\x1b[90m"
)

var levelTones = map[string]string{
	"DEBUG": ansiGray,
	"INFO":  ansiBlue,
	"WARN":  ansiYellow,
	"ERROR": ansiRed,
}

// colorLineWriter tints each rendered text line by its level token.
type colorLineWriter struct {
	dst io.Writer
}

func (w *colorLineWriter) Write(payload []byte) (int, error) {
	tone, ok := levelTones[levelToken(string(payload))]
	if !ok {
		return w.dst.Write(payload)
	}
	var line strings.Builder
	line.Grow(len(payload) + len(tone) + len(ansiReset))
	line.WriteString(tone)
	line.WriteString(strings.TrimSuffix(string(payload), "\n"))
	line.WriteString(ansiReset)
	line.WriteByte('\n')
	if _, err := io.WriteString(w.dst, line.String()); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// levelToken extracts the value of the level= field from a text record.
func levelToken(line string) string {
	_, rest, found := strings.Cut(line, "level=")
	if !found {
		return ""
	}
	token, _, _ := strings.Cut(rest, " ")
	return strings.TrimSpace(token)
}
