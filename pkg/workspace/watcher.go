package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-ingests files as they change, blocking until the context is
// canceled. The workspace directory and its subdirectories are watched;
// directories created while watching are added on the fly.
func (s *Syncer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: creating watcher: %v", ErrWorkspace, err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(s.config.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: watching %s: %v", ErrWorkspace, s.config.Dir, err)
	}

	s.logger.Info("watching workspace", zap.String("dir", s.config.Dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (s *Syncer) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				s.logger.Warn("could not watch new directory",
					zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
		fallthrough

	case event.Op.Has(fsnotify.Write):
		if !s.matches(event.Name) {
			return
		}
		if s.syncFile(ctx, event.Name) == synced {
			if err := s.saveState(); err != nil {
				s.logger.Warn("could not persist tracking state", zap.Error(err))
			}
		}

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if s.matches(event.Name) {
			s.Untrack(s.sourceName(event.Name))
		}
	}
}
