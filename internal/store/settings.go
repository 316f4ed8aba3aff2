package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SetSetting stores a JSON-encoded value under a dotted key (main.*,
// pagination.*, ...) with a declared type tag
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	_, err = s.Run(ctx, `
		INSERT INTO settings (key, value, type)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			type = excluded.type,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(encoded), settingType(value))
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// GetSetting decodes a setting into out. Returns false when the key is
// absent, leaving out untouched.
func (s *Store) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	found, err := s.Get(ctx, "SELECT value FROM settings WHERE key = ?", []any{key}, &raw)
	if err != nil {
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// GetSettingsByPrefix returns all settings under a dotted namespace, e.g.
// "pagination." Raw JSON values keyed by full key.
func (s *Store) GetSettingsByPrefix(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}

	settings := make(map[string]json.RawMessage)
	err := s.All(ctx,
		"SELECT key, value FROM settings WHERE key LIKE ? ORDER BY key",
		[]any{prefix + "%"},
		func(rows *sql.Rows) error {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return fmt.Errorf("failed to scan setting: %w", err)
			}
			settings[key] = json.RawMessage(value)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// DeleteSetting removes a setting; deleting an absent key is not an error
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.Run(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func settingType(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	default:
		return "object"
	}
}
