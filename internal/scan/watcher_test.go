package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/safetube/internal/store"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startWatcher(t *testing.T, st *store.Store, src *store.Source) (context.CancelFunc, chan error) {
	t.Helper()

	w, err := NewWatcher(st)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx, src) }()

	// Give the watcher a moment to register its directories
	time.Sleep(200 * time.Millisecond)
	return cancel, errCh
}

func stopWatcher(t *testing.T, cancel context.CancelFunc, errCh chan error) {
	t.Helper()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchIndexesNewFiles(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "shows"), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	src := localSource(t, st, root, 2)
	cancel, errCh := startWatcher(t, st, src)

	clip := filepath.Join(root, "new_clip.mp4")
	writeFile(t, clip)
	waitFor(t, "new file to be indexed", func() bool {
		v, err := st.GetVideoByURL(ctx, src.ID, clip)
		return err == nil && v != nil
	})

	// Files appearing in a watched subdirectory are picked up too
	episode := filepath.Join(root, "shows", "episode.mkv")
	writeFile(t, episode)
	waitFor(t, "subdirectory file to be indexed", func() bool {
		v, err := st.GetVideoByURL(ctx, src.ID, episode)
		return err == nil && v != nil
	})

	// Non-video files are ignored
	writeFile(t, filepath.Join(root, "notes.txt"))
	if count, _ := st.CountVideosBySource(ctx, src.ID); count != 2 {
		t.Errorf("expected 2 indexed videos, got %d", count)
	}

	// The cached count on the source tracks the additions
	fresh, err := st.GetSource(ctx, src.ID)
	if err != nil || fresh == nil {
		t.Fatalf("failed to get source: %v", err)
	}
	if fresh.TotalVideos != 2 {
		t.Errorf("expected cached count 2, got %d", fresh.TotalVideos)
	}

	stopWatcher(t, cancel, errCh)
}

func TestWatchFlagsRemovedFiles(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	root := t.TempDir()

	clip := filepath.Join(root, "vanishing.mp4")
	writeFile(t, clip)

	src := localSource(t, st, root, 1)
	if _, err := New(st).ScanSource(ctx, src, nil); err != nil {
		t.Fatalf("initial scan failed: %v", err)
	}

	cancel, errCh := startWatcher(t, st, src)

	if err := os.Remove(clip); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	waitFor(t, "removed file to be flagged", func() bool {
		v, err := st.GetVideoByURL(ctx, src.ID, clip)
		return err == nil && v != nil && !v.IsAvailable
	})

	// The row survives so view history is preserved
	v, err := st.GetVideoByURL(ctx, src.ID, clip)
	if err != nil || v == nil {
		t.Fatalf("row deleted instead of flagged: %v", err)
	}

	stopWatcher(t, cancel, errCh)
}

func TestWatchRejectsRemoteSource(t *testing.T) {
	st := testStore(t)

	w, err := NewWatcher(st)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Close()

	err = w.Watch(context.Background(), &store.Source{
		ID:   "remote",
		Type: "youtube_channel",
		URL:  "https://youtube.com/@kids",
	})
	if err == nil {
		t.Fatal("expected error watching a remote source")
	}
}
