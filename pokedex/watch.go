package pokedex

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the dataset whenever one of the CSV files is written, created or
// renamed, once Options.Debounce has passed without further events. It blocks until
// ctx is cancelled and returns nil then.
//
// The parent directories are watched rather than the files so that editors which
// replace a file by rename keep triggering reloads.
func (s *Service) Watch(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	targets := map[string]bool{}
	for _, path := range []string{s.opts.PokemonPath, s.opts.EvolutionsPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", path, err)
		}
		targets[abs] = true
	}
	dirs := map[string]bool{}
	for target := range targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	s.logger.Info().Int("files", len(targets)).Dur("debounce", s.opts.Debounce).Msg("watching dataset files")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !targets[name] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug().Str("file", name).Str("op", event.Op.String()).Msg("dataset file changed")
			timer.Reset(s.opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("file watcher error")
		case <-timer.C:
			// Failures are logged by Reload and the previous snapshot stays in place.
			_, _, _ = s.Reload(ctx)
		}
	}
}
