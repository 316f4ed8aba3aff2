package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/franz/safetube/internal/util"
)

const (
	// Only compatibility marker external tooling should trust before
	// assuming a column layout.
	schemaVersionCurrent = "2"

	// The single known prior revision: sources still carried the text
	// sort_order column.
	schemaVersionLegacy = "1"
)

// initializeSchema brings the on-disk database from absent or any prior
// supported version to the current schema. Idempotent; runs once per
// Initialize. Failure here is fatal to startup.
func (s *Store) initializeSchema(ctx context.Context) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(conn)

	if err := migrateVersionTable(ctx, conn); err != nil {
		return fmt.Errorf("schema version table migration failed: %w", err)
	}

	version, err := readSchemaVersion(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == schemaVersionLegacy {
		util.InfoLog("Schema version %s on disk, checking sources table layout", version)
	}

	// Column-layout migration must run before the main transaction:
	// CREATE TABLE IF NOT EXISTS cannot retroactively fix types or
	// order on an existing table.
	if err := migrateSourcesTable(ctx, conn); err != nil {
		return fmt.Errorf("sources table migration failed: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}

	err = func() error {
		if _, err := conn.ExecContext(ctx, schemaDDL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if _, err := conn.ExecContext(ctx, schemaDefaults); err != nil {
			return fmt.Errorf("failed to seed default rows: %w", err)
		}
		_, err := conn.ExecContext(ctx, `
			INSERT INTO schema_version (id, version, updated_at)
			VALUES (1, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				version = excluded.version,
				updated_at = CURRENT_TIMESTAMP
		`, schemaVersionCurrent)
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	}()
	if err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			util.ErrorLog("Schema rollback failed: %v", rbErr)
		}
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	if version != schemaVersionCurrent {
		util.DebugLog("Schema at version %s", schemaVersionCurrent)
	}
	return nil
}

type columnInfo struct {
	Name string
	Type string
}

// tableColumns returns live column metadata; empty when the table is absent
func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]columnInfo, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid       int
			col       columnInfo
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func hasColumn(cols []columnInfo, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

// readSchemaVersion returns the recorded version, or "" on a fresh database
func readSchemaVersion(ctx context.Context, conn *sql.Conn) (string, error) {
	var exists int
	err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_version'
	`).Scan(&exists)
	if err != nil {
		return "", err
	}
	if exists == 0 {
		return "", nil
	}

	var version string
	err = conn.QueryRowContext(ctx, "SELECT version FROM schema_version WHERE id = 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return version, nil
}

// migrateVersionTable rewrites the obsolete schema_version shape (an early
// layout carried an extra phase column and one row per applied step) into
// the current single-row form. Runs in its own transaction, skipped on a
// fresh database or when the shape is already current.
func migrateVersionTable(ctx context.Context, conn *sql.Conn) error {
	cols, err := tableColumns(ctx, conn, "schema_version")
	if err != nil {
		return err
	}
	if len(cols) == 0 || !hasColumn(cols, "phase") {
		return nil
	}

	util.InfoLog("Migrating legacy schema_version table shape")

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}

	err = func() error {
		// The legacy shape recorded one row per step; the highest
		// rowid is the version that actually stuck.
		version := schemaVersionLegacy
		err := conn.QueryRowContext(ctx,
			"SELECT version FROM schema_version ORDER BY rowid DESC LIMIT 1",
		).Scan(&version)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if _, err := conn.ExecContext(ctx, "DROP TABLE schema_version"); err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx, `
			CREATE TABLE schema_version (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				version TEXT NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx,
			"INSERT INTO schema_version (id, version) VALUES (1, ?)", version)
		return err
	}()
	if err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			util.ErrorLog("Version table rollback failed: %v", rbErr)
		}
		return err
	}

	_, err = conn.ExecContext(ctx, "COMMIT")
	return err
}

const sourcesReplacementDDL = `
CREATE TABLE sources_new (
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
)`

// migrateSourcesTable rebuilds the sources table when the legacy column
// layout is on disk: a text sort_order column and no position column. The
// decision is made from live column metadata rather than the recorded
// version, so a stale or inconsistent version row cannot strand the table
// in the old shape.
//
// Backup, copy, drop, rename and reindex all run inside one IMMEDIATE
// transaction so a crash mid-swap cannot lose the table. Foreign-key
// enforcement is suspended around the rebuild, as required for table-swap
// migrations with dependent tables.
func migrateSourcesTable(ctx context.Context, conn *sql.Conn) error {
	cols, err := tableColumns(ctx, conn, "sources")
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil // fresh database
	}
	if !hasColumn(cols, "sort_order") || hasColumn(cols, "position") {
		return nil // already current
	}

	util.InfoLog("Migrating legacy sources table layout")

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			util.ErrorLog("Failed to re-enable foreign keys: %v", err)
		}
	}()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}

	err = func() error {
		backup, err := backupRows(ctx, conn, "SELECT * FROM sources")
		if err != nil {
			return fmt.Errorf("failed to back up sources: %w", err)
		}

		if _, err := conn.ExecContext(ctx, sourcesReplacementDDL); err != nil {
			return fmt.Errorf("failed to create replacement table: %w", err)
		}

		for _, row := range backup {
			srcType := rowString(row, "type")
			sortPref := rowString(row, "sort_preference")
			if sortPref == "" {
				sortPref = defaultSortPreference(srcType)
			}

			var position any
			if raw := rowString(row, "sort_order"); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil {
					position = n
				}
			}

			_, err := conn.ExecContext(ctx, `
				INSERT INTO sources_new
					(id, type, title, url, path, channel_id, sort_preference,
					 position, total_videos, max_depth, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
					COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
			`,
				rowString(row, "id"), srcType, rowString(row, "title"),
				nullable(rowString(row, "url")), nullable(rowString(row, "path")),
				nullable(rowString(row, "channel_id")), sortPref,
				position, rowInt(row, "total_videos"), rowIntDefault(row, "max_depth", 2),
				nullable(rowString(row, "created_at")), nullable(rowString(row, "updated_at")))
			if err != nil {
				return fmt.Errorf("failed to copy source %s: %w", rowString(row, "id"), err)
			}
		}

		if _, err := conn.ExecContext(ctx, "DROP TABLE sources"); err != nil {
			return fmt.Errorf("failed to drop legacy table: %w", err)
		}
		if _, err := conn.ExecContext(ctx, "ALTER TABLE sources_new RENAME TO sources"); err != nil {
			return fmt.Errorf("failed to rename replacement table: %w", err)
		}
		if _, err := conn.ExecContext(ctx, sourcesIndexDDL); err != nil {
			return fmt.Errorf("failed to recreate indexes: %w", err)
		}
		return nil
	}()
	if err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			util.ErrorLog("Sources migration rollback failed: %v", rbErr)
		}
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return err
	}

	util.SuccessLog("Sources table migrated (%s -> %s)", schemaVersionLegacy, schemaVersionCurrent)
	return nil
}

// defaultSortPreference infers the ordering a source of the given type
// started with before sort preferences were persisted per source
func defaultSortPreference(srcType string) string {
	switch srcType {
	case "local", "dlna":
		return "alphabetical"
	case "youtube_playlist":
		return "playlistOrder"
	default:
		return "newestFirst"
	}
}

// backupRows reads an arbitrary-shape result set into memory as one map
// per row, keyed by column name
func backupRows(ctx context.Context, conn *sql.Conn, query string) ([]map[string]any, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var backup []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, name := range cols {
			row[name] = values[i]
		}
		backup = append(backup, row)
	}
	return backup, rows.Err()
}

func rowString(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func rowInt(row map[string]any, key string) int64 {
	return rowIntDefault(row, key, 0)
}

func rowIntDefault(row map[string]any, key string, def int64) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
