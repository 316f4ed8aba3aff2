package store

// Current schema. Every statement is idempotent (IF NOT EXISTS / INSERT OR
// IGNORE) so re-running on every boot is a no-op. Dependency order:
// sources before videos, videos before everything referencing them.
const schemaDDL = `
-- Schema version tracking: exactly one row, id fixed at 1
CREATE TABLE IF NOT EXISTS schema_version (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Content origins: remote channels/playlists, DLNA servers, local folders.
-- Local sources require a path, remote ones a url.
CREATE TABLE IF NOT EXISTS sources (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  url TEXT,
  path TEXT,
  channel_id TEXT,
  sort_preference TEXT,
  position INTEGER,
  total_videos INTEGER DEFAULT 0,
  max_depth INTEGER DEFAULT 2,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  CHECK (
    (type = 'local' AND path IS NOT NULL) OR
    (type != 'local' AND url IS NOT NULL)
  )
);

CREATE INDEX IF NOT EXISTS idx_sources_type ON sources(type);
CREATE INDEX IF NOT EXISTS idx_sources_position ON sources(position);

CREATE TABLE IF NOT EXISTS videos (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  thumbnail TEXT,
  duration INTEGER,
  url TEXT,
  published_at TEXT,
  is_available INTEGER NOT NULL DEFAULT 1,
  source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_videos_source_id ON videos(source_id);
CREATE INDEX IF NOT EXISTS idx_videos_published_at ON videos(published_at);
CREATE INDEX IF NOT EXISTS idx_videos_is_available ON videos(is_available);

-- Full-text shadow index over videos, kept in sync purely by the triggers
-- below. Application code never writes it directly.
CREATE VIRTUAL TABLE IF NOT EXISTS videos_fts USING fts5(
  title,
  description,
  content=videos,
  content_rowid=rowid
);

CREATE TRIGGER IF NOT EXISTS videos_fts_ai AFTER INSERT ON videos BEGIN
  INSERT INTO videos_fts(rowid, title, description)
  VALUES (new.rowid, new.title, new.description);
END;

CREATE TRIGGER IF NOT EXISTS videos_fts_ad AFTER DELETE ON videos BEGIN
  INSERT INTO videos_fts(videos_fts, rowid, title, description)
  VALUES ('delete', old.rowid, old.title, old.description);
END;

-- FTS5 has no in-place update; delete the old row then reinsert
CREATE TRIGGER IF NOT EXISTS videos_fts_au AFTER UPDATE ON videos BEGIN
  INSERT INTO videos_fts(videos_fts, rowid, title, description)
  VALUES ('delete', old.rowid, old.title, old.description);
  INSERT INTO videos_fts(rowid, title, description)
  VALUES (new.rowid, new.title, new.description);
END;

-- One row per video ever watched
CREATE TABLE IF NOT EXISTS view_records (
  video_id TEXT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
  source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
  position REAL DEFAULT 0,
  time_watched REAL DEFAULT 0,
  duration INTEGER,
  watched INTEGER NOT NULL DEFAULT 0,
  first_watched DATETIME,
  last_watched DATETIME
);

CREATE INDEX IF NOT EXISTS idx_view_records_source_id ON view_records(source_id);
CREATE INDEX IF NOT EXISTS idx_view_records_last_watched ON view_records(last_watched);

CREATE TABLE IF NOT EXISTS favorites (
  video_id TEXT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
  source_id TEXT REFERENCES sources(id) ON DELETE CASCADE,
  date_added DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_favorites_source_id ON favorites(source_id);

-- Daily screen-time allowance in minutes, one row
CREATE TABLE IF NOT EXISTS time_limits (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  monday INTEGER NOT NULL DEFAULT 0,
  tuesday INTEGER NOT NULL DEFAULT 0,
  wednesday INTEGER NOT NULL DEFAULT 0,
  thursday INTEGER NOT NULL DEFAULT 0,
  friday INTEGER NOT NULL DEFAULT 0,
  saturday INTEGER NOT NULL DEFAULT 0,
  sunday INTEGER NOT NULL DEFAULT 0,
  warning_threshold_minutes INTEGER DEFAULT 3,
  countdown_warning_seconds INTEGER DEFAULT 60,
  audio_warning_seconds INTEGER DEFAULT 10,
  time_up_message TEXT DEFAULT 'Time''s up for today!',
  use_system_beep INTEGER DEFAULT 0,
  custom_beep_sound TEXT,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Seconds watched per calendar day
CREATE TABLE IF NOT EXISTS usage_logs (
  date TEXT PRIMARY KEY,
  seconds_used INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Parent-granted extra minutes on top of the daily limit
CREATE TABLE IF NOT EXISTS time_extra (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  minutes_added INTEGER NOT NULL,
  reason TEXT,
  added_by TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_time_extra_date ON time_extra(date);

CREATE TABLE IF NOT EXISTS downloads (
  video_id TEXT PRIMARY KEY,
  source_id TEXT REFERENCES sources(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'pending',
  progress INTEGER NOT NULL DEFAULT 0,
  start_time DATETIME,
  end_time DATETIME,
  error_message TEXT,
  file_path TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);

-- Child search history
CREATE TABLE IF NOT EXISTS searches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  query TEXT NOT NULL,
  search_type TEXT NOT NULL DEFAULT 'database',
  result_count INTEGER DEFAULT 0,
  timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_searches_timestamp ON searches(timestamp);

-- Cached remote search results, keyed by query + video + search type
CREATE TABLE IF NOT EXISTS search_results_cache (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  search_query TEXT NOT NULL,
  video_id TEXT NOT NULL,
  video_data TEXT NOT NULL,
  position INTEGER DEFAULT 0,
  search_type TEXT NOT NULL DEFAULT 'youtube',
  fetch_timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (search_query, video_id, search_type)
);

CREATE INDEX IF NOT EXISTS idx_search_results_cache_query ON search_results_cache(search_query);

-- Child video requests awaiting parent moderation
CREATE TABLE IF NOT EXISTS wishlist (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  video_id TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  thumbnail TEXT,
  description TEXT,
  channel_id TEXT,
  channel_name TEXT,
  url TEXT,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'denied')),
  requested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  reviewed_at DATETIME,
  reviewed_by TEXT,
  denial_reason TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wishlist_status ON wishlist(status);

-- Generic key/value configuration, JSON-encoded values, dotted-prefix keys
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  type TEXT NOT NULL,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Default rows for singleton tables. INSERT OR IGNORE keeps re-runs from
// duplicating or clobbering what a parent already configured. The admin
// password default is sha256("admin"); the admin UI forces a change on
// first login.
const schemaDefaults = `
INSERT OR IGNORE INTO time_limits (id, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
VALUES (1, 30, 30, 30, 30, 30, 60, 60);

INSERT OR IGNORE INTO settings (key, value, type) VALUES
  ('main.admin_password_hash', '"8c6976e5b5410415bde908bd4dee15dfb167a9c873fc4bb8a81f6f2ab448a918"', 'string'),
  ('main.allow_youtube_clicks', 'false', 'boolean'),
  ('main.audio_warning_enabled', 'true', 'boolean'),
  ('pagination.page_size', '50', 'number'),
  ('pagination.cache_pages', '5', 'number');
`

// recreated after the sources column migration swaps the table
const sourcesIndexDDL = `
CREATE INDEX IF NOT EXISTS idx_sources_type ON sources(type);
CREATE INDEX IF NOT EXISTS idx_sources_position ON sources(position);
`
