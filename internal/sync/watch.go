package sync

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conorfennell/revisa/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of edits to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watch reconciles local sources whenever markdown files under them change.
// Git sources are not watched. It blocks until ctx is cancelled.
func (s *Syncer) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	sources, err := s.db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	var local []storage.Source
	for _, source := range sources {
		if source.Type != SourceLocal {
			continue
		}
		if err := addTree(watcher, source.Path); err != nil {
			s.log.Warn("Cannot watch source", "path", source.Path, "error", err)
			continue
		}
		local = append(local, source)
	}
	if len(local) == 0 {
		s.log.Info("No local sources to watch")
		<-ctx.Done()
		return nil
	}
	s.log.Info("Watching sources for changes", "sources", len(local))

	pending := make(map[int64]storage.Source)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// New directories need their own watch.
				_ = addTree(watcher, event.Name)
			}
			if !isMarkdown(event.Name) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			source, ok := owningSource(local, event.Name)
			if !ok {
				continue
			}
			pending[source.ID] = source
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Watcher error", "error", err)

		case <-timerC:
			timerC = nil
			for id, source := range pending {
				delete(pending, id)
				if _, err := s.Reconcile(ctx, source, source.Path); err != nil {
					s.log.Error("Error reconciling source", "path", source.Path, "error", err)
				}
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func owningSource(sources []storage.Source, path string) (storage.Source, bool) {
	for _, source := range sources {
		rel, err := filepath.Rel(source.Path, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return source, true
		}
	}
	return storage.Source{}, false
}
