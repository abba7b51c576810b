package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange receives each successfully reloaded config. Invalid files
	// are logged and skipped so the previous config stays in effect.
	OnChange func(*Config)
}

// Run watches until ctx is done. The parent directory is watched so that
// editors that replace the file with a rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(w.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-timer.C:
			cfg, err := LoadFrom(target)
			if err != nil {
				logger.Warn("config reload failed; keeping previous config", "path", target, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", target)
			if w.OnChange != nil {
				w.OnChange(cfg)
			}
		}
	}
}
