// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long Watch waits for a burst of file system events
// to settle before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a profile whenever its file changes.
type Watcher struct {
	Path     string
	Section  string
	Debounce time.Duration
	Logger   zerolog.Logger

	// OnChange is called with every successfully reloaded profile.
	OnChange func(Profile)
}

// Watch blocks until ctx is canceled, calling w.OnChange after every change
// to the file.
// Profiles that fail to load are logged and skipped.
func (w Watcher) Watch(ctx context.Context) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	path := filepath.Clean(w.Path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watching %s: %w", path, err)
	}
	w.Logger.Info().Str("path", path).Msg("watching config file for changes")

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path ||
				!(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				continue
			}
			w.Logger.Debug().Str("op", event.Op.String()).Msg("config file changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			p, err := Load(w.Path, w.Section)
			if err != nil {
				w.Logger.Error().Err(err).Msg("reloading config failed")
				continue
			}
			w.Logger.Info().Msg("config reloaded")
			if w.OnChange != nil {
				w.OnChange(p)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
