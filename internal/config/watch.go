package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchParams reloads the params file whenever it is written or replaced
// and hands the result to apply. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself because most
// editors save by renaming a temp file over the original.
func WatchParams(ctx context.Context, path string, logger zerolog.Logger, apply func(Params)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create params watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve params path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch params dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := LoadParams(abs)
			if err != nil {
				logger.Warn().Err(err).Str("path", abs).Msg("params reload failed")
				continue
			}
			logger.Info().Str("path", abs).Msg("params file reloaded")
			apply(p)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("params watcher error")
		}
	}
}
