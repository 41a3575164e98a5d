// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package roster

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// reloadOps are the file events that invalidate the cached roster.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Watcher clears a Store's cache when its roster file changes on disk.
//
// Description:
//
//	The parent directory is watched rather than the file itself so that
//	editors which replace the file (write temp, rename over) are seen.
//	Only events naming the roster file trigger a reload.
//
// Thread Safety: Safe for concurrent use. Close may be called once.
type Watcher struct {
	store   *Store
	target  string
	fs      *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	closeMu sync.Once
}

// Watch starts watching path on behalf of store.
//
// Inputs:
//   - store: The store whose cache is cleared on change.
//   - path: The roster file. Its directory must exist.
//   - logger: Optional. nil uses slog.Default().
//
// Outputs:
//   - *Watcher: Running watcher. Call Close to stop it.
//   - error: Non-nil if the watch could not be registered.
func Watch(store *Store, path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("roster watcher: resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("roster watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("roster watcher: watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		store:  store,
		target: abs,
		fs:     fw,
		logger: logger.With("component", "roster_watcher"),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&reloadOps == 0 {
				continue
			}
			if name, err := filepath.Abs(ev.Name); err != nil || name != w.target {
				continue
			}
			w.store.ClearCache()
			w.logger.Info("roster file changed, cache cleared",
				slog.String("path", w.target),
				slog.String("op", ev.Op.String()))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("roster watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeMu.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}
