package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/safetube/internal/store"
	"github.com/franz/safetube/internal/util"
	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a local source's videos table in step with filesystem
// changes between full scans: new files get rows, removed files get
// flagged unavailable.
type Watcher struct {
	store   *store.Store
	scanner *Scanner
	fw      *fsnotify.Watcher
}

// NewWatcher creates a Watcher over the given store
func NewWatcher(st *store.Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	return &Watcher{store: st, scanner: New(st), fw: fw}, nil
}

// Watch blocks handling events for one local source until ctx is done.
// Subdirectories present at start are watched up to the source's max depth.
func (w *Watcher) Watch(ctx context.Context, src *store.Source) error {
	if src.Type != "local" {
		return fmt.Errorf("source %s is not a local source: %w", src.ID, util.ErrInvalidConfig)
	}

	root, err := filepath.Abs(src.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	if err := w.addDirs(root, src.MaxDepth); err != nil {
		return err
	}

	util.InfoLog("Watching %q for changes", src.Title)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, src, root, event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, src *store.Source, root string, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if src.MaxDepth <= 0 || pathDepth(root, event.Name) < src.MaxDepth {
				if err := w.fw.Add(event.Name); err != nil {
					util.WarnLog("Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}
		if !w.scanner.isVideoFile(event.Name) {
			return
		}
		if _, err := w.scanner.upsertFile(ctx, src, event.Name); err != nil {
			util.WarnLog("Failed to index %s: %v", event.Name, err)
			return
		}
		if err := w.store.UpdateSourceVideoCount(ctx, src.ID); err != nil {
			util.WarnLog("Failed to refresh video count: %v", err)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !w.scanner.isVideoFile(event.Name) {
			return
		}
		video, err := w.store.GetVideoByURL(ctx, src.ID, event.Name)
		if err != nil || video == nil {
			return
		}
		if err := w.store.SetVideoAvailability(ctx, video.ID, false); err != nil {
			util.WarnLog("Failed to flag %s unavailable: %v", event.Name, err)
		}
	}
}

// addDirs registers root and its subdirectories up to maxDepth
func (w *Watcher) addDirs(root string, maxDepth int) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if maxDepth > 0 && pathDepth(root, path) >= maxDepth {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the underlying filesystem watcher
func (w *Watcher) Close() error {
	return w.fw.Close()
}
