package config

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file content changes. It runs until ctx is cancelled.
//
// A reload that fails to parse or validate is logged and skipped. A reload
// that yields a Config equal to the last one seen is skipped as well, so
// editors that write the file several times per save report once.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	last, err := Load(path)
	if err != nil {
		slog.Warn("config: initial load for watch failed", "path", path, "err", err)
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

			if last != nil && reflect.DeepEqual(last, cfg) {
				continue
			}
			last = cfg

			slog.Info("config: reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
