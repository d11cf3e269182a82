package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads configuration when the source changes and hands it to onChange.
// Params: context, config source, logger, and callback receiving validated snapshots.
// Returns: watcher setup error; runs until ctx is cancelled.
//
// A snapshot that fails to load is logged and skipped; the previous config stays active.
func Watch(ctx context.Context, src ConfigSource, logger *slog.Logger, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the parent dir for file sources: editors replace files on save.
	watchPath := src.Dir
	if src.File != "" {
		watchPath = filepath.Dir(src.File)
	}
	if err := watcher.Add(watchPath); err != nil {
		return err
	}
	logger.Info("config watch started", "path", src.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(src, event) {
				continue
			}
			cfg, err := LoadSnapshot(src)
			if err != nil {
				logger.Error("config reload failed, keeping previous config", "path", src.Path(), "error", err.Error())
				continue
			}
			logger.Info("config reloaded", "path", src.Path())
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher error", "error", err.Error())
		}
	}
}

// relevantEvent filters watcher events down to writes of the configured source.
// Params: config source and fsnotify event.
// Returns: true when snapshot should be reloaded.
func relevantEvent(src ConfigSource, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if src.File != "" {
		return filepath.Clean(event.Name) == filepath.Clean(src.File)
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".toml")
}
