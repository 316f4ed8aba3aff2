package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// seedLegacyDatabase writes a database in the pre-position layout: a
// schema_version table with the old per-step phase rows and a sources table
// carrying the text sort_order column.
func seedLegacyDatabase(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE schema_version (
			version TEXT NOT NULL,
			phase TEXT NOT NULL
		);
		INSERT INTO schema_version (version, phase) VALUES ('1', 'started');
		INSERT INTO schema_version (version, phase) VALUES ('1', 'complete');

		CREATE TABLE sources (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			path TEXT,
			channel_id TEXT,
			sort_order TEXT,
			total_videos INTEGER DEFAULT 0
		);
		INSERT INTO sources (id, type, title, url, path, channel_id, sort_order, total_videos)
		VALUES ('src-yt', 'youtube_channel', 'Science Kids', 'https://youtube.com/@sciencekids', NULL, 'UC123', '3', 42);
		INSERT INTO sources (id, type, title, url, path, channel_id, sort_order, total_videos)
		VALUES ('src-pl', 'youtube_playlist', 'Bedtime Stories', 'https://youtube.com/playlist?list=PL1', NULL, NULL, '1', 12);
		INSERT INTO sources (id, type, title, url, path, channel_id, sort_order, total_videos)
		VALUES ('src-local', 'local', 'Family Movies', NULL, '/media/movies', NULL, 'oldest', 7);
	`)
	if err != nil {
		t.Fatalf("failed to seed legacy database: %v", err)
	}
}

func TestFreshDatabaseSchemaVersion(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	var id int
	var version string
	found, err := st.Get(ctx, "SELECT id, version FROM schema_version", nil, &id, &version)
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if !found {
		t.Fatal("no schema version row")
	}
	if id != 1 || version != schemaVersionCurrent {
		t.Errorf("expected row (1, %q), got (%d, %q)", schemaVersionCurrent, id, version)
	}
}

func TestReinitializePreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safetube.db")
	ctx := context.Background()

	st := New(Config{Path: path})
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	addTestSource(t, st, "keep-me", "local", "Keepers")

	// A parent's customization must survive the INSERT OR IGNORE reseed
	tl, err := st.GetTimeLimits(ctx)
	if err != nil {
		t.Fatalf("failed to read time limits: %v", err)
	}
	tl.Monday = 45
	if err := st.UpdateTimeLimits(ctx, tl); err != nil {
		t.Fatalf("failed to update time limits: %v", err)
	}
	if err := st.SetSetting(ctx, "main.allow_youtube_clicks", true); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	st.Close()

	st = New(Config{Path: path})
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("re-initialize failed: %v", err)
	}
	defer st.Close()

	src, err := st.GetSource(ctx, "keep-me")
	if err != nil || src == nil {
		t.Fatalf("source lost across restart: %v", err)
	}
	tl, err = st.GetTimeLimits(ctx)
	if err != nil {
		t.Fatalf("failed to read time limits: %v", err)
	}
	if tl.Monday != 45 {
		t.Errorf("expected monday limit 45, got %d", tl.Monday)
	}
	var allow bool
	if _, err := st.GetSetting(ctx, "main.allow_youtube_clicks", &allow); err != nil {
		t.Fatalf("failed to read setting: %v", err)
	}
	if !allow {
		t.Error("customized setting reverted to default")
	}

	// Repeated boots never stack version rows
	var count int
	if _, err := st.Get(ctx, "SELECT COUNT(*) FROM schema_version", nil, &count); err != nil {
		t.Fatalf("failed to count version rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 schema_version row, got %d", count)
	}
}

func TestLegacySourcesMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safetube.db")
	seedLegacyDatabase(t, path)
	ctx := context.Background()

	st := New(Config{Path: path})
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("failed to initialize over legacy database: %v", err)
	}
	defer st.Close()

	// Numeric sort_order text becomes an integer position
	src, err := st.GetSource(ctx, "src-yt")
	if err != nil || src == nil {
		t.Fatalf("migrated source missing: %v", err)
	}
	if src.Position != 3 {
		t.Errorf("expected position 3, got %d", src.Position)
	}
	if src.SortPreference != "newestFirst" {
		t.Errorf("expected inferred sort preference newestFirst, got %q", src.SortPreference)
	}
	if src.TotalVideos != 42 {
		t.Errorf("expected total_videos 42, got %d", src.TotalVideos)
	}
	if src.ChannelID != "UC123" {
		t.Errorf("channel id lost in migration: %q", src.ChannelID)
	}
	if src.MaxDepth != 2 {
		t.Errorf("expected default max_depth 2, got %d", src.MaxDepth)
	}

	src, err = st.GetSource(ctx, "src-pl")
	if err != nil || src == nil {
		t.Fatalf("migrated source missing: %v", err)
	}
	if src.Position != 1 {
		t.Errorf("expected position 1, got %d", src.Position)
	}
	if src.SortPreference != "playlistOrder" {
		t.Errorf("expected inferred sort preference playlistOrder, got %q", src.SortPreference)
	}

	// Non-numeric sort_order has no positional meaning and is dropped
	src, err = st.GetSource(ctx, "src-local")
	if err != nil || src == nil {
		t.Fatalf("migrated source missing: %v", err)
	}
	if src.Position != 0 {
		t.Errorf("expected position 0 for non-numeric sort_order, got %d", src.Position)
	}
	if src.SortPreference != "alphabetical" {
		t.Errorf("expected inferred sort preference alphabetical, got %q", src.SortPreference)
	}
	if src.Path != "/media/movies" {
		t.Errorf("path lost in migration: %q", src.Path)
	}

	// Version table collapsed to the single-row shape at the current version
	var count int
	if _, err := st.Get(ctx, "SELECT COUNT(*) FROM schema_version", nil, &count); err != nil {
		t.Fatalf("failed to count version rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 schema_version row, got %d", count)
	}
	var version string
	if _, err := st.Get(ctx, "SELECT version FROM schema_version WHERE id = 1", nil, &version); err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != schemaVersionCurrent {
		t.Errorf("expected version %q, got %q", schemaVersionCurrent, version)
	}

	// The rebuilt table enforces the new constraint
	err = st.CreateSource(ctx, &Source{ID: "bad", Type: "local", Title: "No Path"})
	if err == nil {
		t.Error("expected CHECK violation on local source without path")
	}

	// And the migration does not run twice: a second boot is clean
	st.Close()
	st = New(Config{Path: path})
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("second boot after migration failed: %v", err)
	}
	st.Close()
}

func TestLegacyVersionTableAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safetube.db")

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE schema_version (version TEXT NOT NULL, phase TEXT NOT NULL);
		INSERT INTO schema_version (version, phase) VALUES ('1', 'complete');
	`)
	db.Close()
	if err != nil {
		t.Fatalf("failed to seed database: %v", err)
	}

	ctx := context.Background()
	st := New(Config{Path: path})
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	defer st.Close()

	var id int
	var version string
	found, err := st.Get(ctx, "SELECT id, version FROM schema_version", nil, &id, &version)
	if err != nil || !found {
		t.Fatalf("failed to read version row: found=%v err=%v", found, err)
	}
	if id != 1 || version != schemaVersionCurrent {
		t.Errorf("expected row (1, %q), got (%d, %q)", schemaVersionCurrent, id, version)
	}
}

func TestDefaultRowsSeeded(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	tl, err := st.GetTimeLimits(ctx)
	if err != nil {
		t.Fatalf("failed to read time limits: %v", err)
	}
	if tl.Monday != 30 || tl.Saturday != 60 {
		t.Errorf("unexpected default limits: monday=%d saturday=%d", tl.Monday, tl.Saturday)
	}

	var hash string
	found, err := st.GetSetting(ctx, "main.admin_password_hash", &hash)
	if err != nil {
		t.Fatalf("failed to read setting: %v", err)
	}
	if !found || len(hash) != 64 {
		t.Errorf("expected a seeded sha-256 password hash, found=%v len=%d", found, len(hash))
	}
}
