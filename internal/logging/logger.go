package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"alerttrigger/internal/config"
)

const (
	formatLine = "line"
	formatJSON = "json"
)

// New builds a logger for configured sinks and returns a cleanup function.
// Params: cfg contains console/file sink settings.
// Returns: slog logger, cleanup callback, and setup error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	return newWithConsole(cfg, os.Stdout)
}

func newWithConsole(cfg config.LogConfig, console io.Writer) (*slog.Logger, func(), error) {
	var (
		outputs fanout
		files   []*os.File
	)
	closeFiles := func() {
		for _, file := range files {
			_ = file.Close()
		}
	}

	if cfg.Console.Enabled {
		// Console records drop the timestamp; the collector stamps them.
		handler, err := newHandler(cfg.Console, &colorLineWriter{dst: console}, console, dropTime)
		if err != nil {
			return nil, nil, fmt.Errorf("console sink: %w", err)
		}
		outputs = append(outputs, handler)
	}

	if cfg.File.Enabled {
		file, err := os.OpenFile(cfg.File.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("file sink: open %q: %w", cfg.File.Path, err)
		}
		files = append(files, file)
		handler, err := newHandler(cfg.File, file, file, nil)
		if err != nil {
			closeFiles()
			return nil, nil, fmt.Errorf("file sink: %w", err)
		}
		outputs = append(outputs, handler)
	}

	switch len(outputs) {
	case 0:
		return nil, nil, errors.New("no log sinks enabled")
	case 1:
		return slog.New(outputs[0]), closeFiles, nil
	default:
		return slog.New(outputs), closeFiles, nil
	}
}

// Component returns child logger tagged with component name.
// Params: parent logger (nil yields a discard logger) and component name.
// Returns: logger with "component" attribute.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("component", name)
}

// Discard returns logger dropping every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHandler renders one sink in its configured format.
// Params: sink settings, writers for line and json output, optional attr rewriter.
// Returns: slog handler or invalid level/format error.
func newHandler(sink config.LogSinkConfig, lineDst, jsonDst io.Writer, replace func([]string, slog.Attr) slog.Attr) (slog.Handler, error) {
	level, err := parseLevel(sink.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replace}
	switch sink.Format {
	case formatLine:
		return slog.NewTextHandler(lineDst, opts), nil
	case formatJSON:
		return slog.NewJSONHandler(jsonDst, opts), nil
	}
	return nil, fmt.Errorf("unsupported format %q", sink.Format)
}

func dropTime(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return attr
}

// parseLevel accepts slog level names (debug, info, warn, error), case-insensitive.
func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unsupported level %q", value)
	}
	return level, nil
}
