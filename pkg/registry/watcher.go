package registry

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever the models file changes, until the
// context is cancelled. The parent directory is watched rather than the
// file itself because editors and config tooling replace files by rename.
// A failed reload keeps the previous snapshot.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create models watcher: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Printf("registry: reload %s: %v", r.path, err)
					continue
				}
				log.Printf("registry: reloaded %s", r.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("registry: watch error: %v", err)
			}
		}
	}()

	return nil
}
