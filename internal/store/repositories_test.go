package store

import (
	"context"
	"encoding/json"
	"testing"
)

func TestSettingsRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.SetSetting(ctx, "pagination.page_size", 100); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	var size int
	found, err := st.GetSetting(ctx, "pagination.page_size", &size)
	if err != nil || !found {
		t.Fatalf("failed to get: found=%v err=%v", found, err)
	}
	if size != 100 {
		t.Errorf("expected 100, got %d", size)
	}

	// Overwrite with a different type
	if err := st.SetSetting(ctx, "main.theme", "dark"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	var theme string
	if _, err := st.GetSetting(ctx, "main.theme", &theme); err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if theme != "dark" {
		t.Errorf("expected dark, got %q", theme)
	}

	var missing string
	found, err = st.GetSetting(ctx, "main.does_not_exist", &missing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found: false for absent key")
	}

	if err := st.DeleteSetting(ctx, "main.theme"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if found, _ := st.GetSetting(ctx, "main.theme", &theme); found {
		t.Error("setting still present after delete")
	}
}

func TestSettingsByPrefix(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	settings, err := st.GetSettingsByPrefix(ctx, "pagination")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	// The two seeded pagination defaults
	if len(settings) != 2 {
		t.Fatalf("expected 2 pagination settings, got %d: %v", len(settings), settings)
	}
	var pageSize int
	if err := json.Unmarshal(settings["pagination.page_size"], &pageSize); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if pageSize != 50 {
		t.Errorf("expected seeded page size 50, got %d", pageSize)
	}
}

func TestUsageAccounting(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	const day = "2026-08-31"

	if used, err := st.GetUsage(ctx, day); err != nil || used != 0 {
		t.Fatalf("expected zero usage on a fresh day: used=%d err=%v", used, err)
	}

	if err := st.LogUsage(ctx, day, 600); err != nil {
		t.Fatalf("failed to log usage: %v", err)
	}
	if err := st.LogUsage(ctx, day, 300); err != nil {
		t.Fatalf("failed to log usage: %v", err)
	}
	used, err := st.GetUsage(ctx, day)
	if err != nil {
		t.Fatalf("failed to read usage: %v", err)
	}
	if used != 900 {
		t.Errorf("expected accumulated 900s, got %d", used)
	}

	if err := st.AddExtraTime(ctx, day, 10, "finished homework", "dad"); err != nil {
		t.Fatalf("failed to add extra time: %v", err)
	}
	if err := st.AddExtraTime(ctx, day, 5, "", ""); err != nil {
		t.Fatalf("failed to add extra time: %v", err)
	}
	extra, err := st.GetExtraTime(ctx, day)
	if err != nil {
		t.Fatalf("failed to read extra time: %v", err)
	}
	if extra != 15 {
		t.Errorf("expected 15 extra minutes, got %d", extra)
	}

	// 30 min limit + 15 extra = 2700s, minus 900s used
	remaining, err := st.RemainingSeconds(ctx, day, 30)
	if err != nil {
		t.Fatalf("failed to compute remaining: %v", err)
	}
	if remaining != 1800 {
		t.Errorf("expected 1800s remaining, got %d", remaining)
	}

	// Overrun clamps to zero rather than going negative
	if err := st.LogUsage(ctx, day, 10000); err != nil {
		t.Fatalf("failed to log usage: %v", err)
	}
	remaining, err = st.RemainingSeconds(ctx, day, 30)
	if err != nil {
		t.Fatalf("failed to compute remaining: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0s remaining after overrun, got %d", remaining)
	}

	usage, err := st.UsageForDates(ctx, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("failed to read range: %v", err)
	}
	if usage[day] != 10900 {
		t.Errorf("expected 10900s for %s, got %d", day, usage[day])
	}
}

func TestViewRecordsAccumulate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	addTestSource(t, st, "src", "local", "Videos")
	addTestVideo(t, st, "v1", "src", "Movie", "")

	if r, err := st.GetViewRecord(ctx, "v1"); err != nil || r != nil {
		t.Fatalf("expected no record yet: r=%v err=%v", r, err)
	}

	if err := st.RecordProgress(ctx, "v1", "src", 120.5, 120.5, 600, false); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := st.RecordProgress(ctx, "v1", "src", 300, 179.5, 600, true); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	r, err := st.GetViewRecord(ctx, "v1")
	if err != nil || r == nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if r.Position != 300 {
		t.Errorf("expected resume position 300, got %v", r.Position)
	}
	if r.TimeWatched != 300 {
		t.Errorf("expected accumulated 300s watched, got %v", r.TimeWatched)
	}
	if !r.Watched {
		t.Error("expected watched flag to stick")
	}

	// A later partial rewatch never clears the watched flag
	if err := st.RecordProgress(ctx, "v1", "src", 50, 10, 600, false); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	r, err = st.GetViewRecord(ctx, "v1")
	if err != nil || r == nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if !r.Watched {
		t.Error("watched flag cleared by rewatch")
	}

	history, err := st.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 1 || history[0].VideoID != "v1" {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestFavorites(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	addTestSource(t, st, "src", "local", "Videos")
	addTestVideo(t, st, "v1", "src", "Starred", "")

	if fav, err := st.IsFavorite(ctx, "v1"); err != nil || fav {
		t.Fatalf("expected not starred: fav=%v err=%v", fav, err)
	}

	if err := st.AddFavorite(ctx, "v1", "src"); err != nil {
		t.Fatalf("failed to star: %v", err)
	}
	// Starring twice is a no-op
	if err := st.AddFavorite(ctx, "v1", "src"); err != nil {
		t.Fatalf("second star failed: %v", err)
	}

	if fav, err := st.IsFavorite(ctx, "v1"); err != nil || !fav {
		t.Fatalf("expected starred: fav=%v err=%v", fav, err)
	}
	videos, err := st.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("failed to list favorites: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "v1" {
		t.Errorf("unexpected favorites: %+v", videos)
	}

	if err := st.RemoveFavorite(ctx, "v1"); err != nil {
		t.Fatalf("failed to unstar: %v", err)
	}
	if fav, _ := st.IsFavorite(ctx, "v1"); fav {
		t.Error("still starred after removal")
	}
}

func TestWishlistModeration(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	item := &WishlistItem{
		VideoID:     "yt-abc",
		Title:       "Minecraft Tutorial",
		ChannelName: "BlockChannel",
		URL:         "https://youtube.com/watch?v=abc",
	}
	if err := st.AddWishlistItem(ctx, item); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	// A repeated request keeps the original
	if err := st.AddWishlistItem(ctx, &WishlistItem{VideoID: "yt-abc", Title: "Renamed"}); err != nil {
		t.Fatalf("duplicate add failed: %v", err)
	}

	pending, err := st.ListWishlistByStatus(ctx, WishlistPending)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "Minecraft Tutorial" {
		t.Errorf("unexpected pending list: %+v", pending)
	}
	if pending[0].ReviewedAt.Valid {
		t.Error("pending item already reviewed")
	}

	if err := st.ApproveWishlistItem(ctx, "yt-abc", "mom"); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}
	approved, err := st.ListWishlistByStatus(ctx, WishlistApproved)
	if err != nil {
		t.Fatalf("failed to list approved: %v", err)
	}
	if len(approved) != 1 || approved[0].ReviewedBy != "mom" {
		t.Errorf("unexpected approved list: %+v", approved)
	}
	if !approved[0].ReviewedAt.Valid {
		t.Error("approved item missing review timestamp")
	}

	// Decisions are final: a second review of the same request fails
	if err := st.DenyWishlistItem(ctx, "yt-abc", "dad", "already approved"); err == nil {
		t.Error("expected error reviewing a non-pending item")
	}

	if err := st.DenyWishlistItem(ctx, "yt-missing", "dad", ""); err == nil {
		t.Error("expected error denying an unknown request")
	}
}

func TestDownloadLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	addTestSource(t, st, "src", "local", "Videos")

	if d, err := st.GetDownload(ctx, "v1"); err != nil || d != nil {
		t.Fatalf("expected no download yet: d=%v err=%v", d, err)
	}

	if err := st.StartDownload(ctx, "v1", "src"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := st.UpdateDownloadProgress(ctx, "v1", 40); err != nil {
		t.Fatalf("failed to update progress: %v", err)
	}
	d, err := st.GetDownload(ctx, "v1")
	if err != nil || d == nil {
		t.Fatalf("failed to get download: %v", err)
	}
	if d.Status != DownloadDownloading || d.Progress != 40 {
		t.Errorf("unexpected state: %+v", d)
	}

	if err := st.FailDownload(ctx, "v1", "network unreachable"); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}
	failed, err := st.ListDownloadsByStatus(ctx, DownloadFailed)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "network unreachable" {
		t.Errorf("unexpected failed list: %+v", failed)
	}

	// A retry resets the failed state
	if err := st.StartDownload(ctx, "v1", "src"); err != nil {
		t.Fatalf("failed to restart: %v", err)
	}
	d, _ = st.GetDownload(ctx, "v1")
	if d.Status != DownloadDownloading || d.Progress != 0 || d.ErrorMessage != "" {
		t.Errorf("retry did not reset state: %+v", d)
	}

	if err := st.CompleteDownload(ctx, "v1", "/downloads/v1.mp4"); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}
	d, _ = st.GetDownload(ctx, "v1")
	if d.Status != DownloadCompleted || d.Progress != 100 || d.FilePath != "/downloads/v1.mp4" {
		t.Errorf("unexpected completed state: %+v", d)
	}
}

func TestSearchHistoryAndCache(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for _, q := range []string{"cats", "dogs", "cats"} {
		if err := st.RecordSearch(ctx, q, "database", 3); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
	}
	recent, err := st.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list recent: %v", err)
	}
	// Deduplicated, two distinct queries
	if len(recent) != 2 {
		t.Errorf("expected 2 distinct queries, got %v", recent)
	}

	payload := json.RawMessage(`{"id":"yt-1","title":"Cats Compilation"}`)
	if err := st.CacheSearchResult(ctx, "cats", "yt-1", payload, 0, "youtube"); err != nil {
		t.Fatalf("failed to cache: %v", err)
	}
	// Re-caching the same hit refreshes rather than duplicates
	if err := st.CacheSearchResult(ctx, "cats", "yt-1", payload, 2, "youtube"); err != nil {
		t.Fatalf("failed to re-cache: %v", err)
	}
	if err := st.CacheSearchResult(ctx, "cats", "yt-2", json.RawMessage(`{"id":"yt-2"}`), 1, "youtube"); err != nil {
		t.Fatalf("failed to cache: %v", err)
	}

	cached, err := st.CachedSearchResults(ctx, "cats", "youtube")
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached results, got %d", len(cached))
	}
	var first struct{ ID string }
	if err := json.Unmarshal(cached[0], &first); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if first.ID != "yt-2" {
		t.Errorf("expected position order, got %s first", first.ID)
	}

	// Nothing is old enough to expire yet
	removed, err := st.ClearSearchCache(ctx, 7)
	if err != nil {
		t.Fatalf("failed to clear cache: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 expired rows, got %d", removed)
	}
}
