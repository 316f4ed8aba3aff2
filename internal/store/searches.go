package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// RecordSearch appends a query to the child's search history
func (s *Store) RecordSearch(ctx context.Context, query, searchType string, resultCount int) error {
	_, err := s.Run(ctx, `
		INSERT INTO searches (query, search_type, result_count)
		VALUES (?, ?, ?)
	`, query, searchType, resultCount)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// RecentSearches returns the latest history entries, newest first
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	var queries []string
	err := s.All(ctx, `
		SELECT query FROM searches
		GROUP BY query
		ORDER BY MAX(timestamp) DESC
		LIMIT ?
	`, []any{limit},
		func(rows *sql.Rows) error {
			var q string
			if err := rows.Scan(&q); err != nil {
				return fmt.Errorf("failed to scan search: %w", err)
			}
			queries = append(queries, q)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	return queries, nil
}

// CacheSearchResult stores one remote search hit so repeated queries spare
// the API quota. Re-caching the same hit refreshes its payload.
func (s *Store) CacheSearchResult(ctx context.Context, query, videoID string, videoData json.RawMessage, position int, searchType string) error {
	_, err := s.Run(ctx, `
		INSERT INTO search_results_cache
			(search_query, video_id, video_data, position, search_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(search_query, video_id, search_type) DO UPDATE SET
			video_data = excluded.video_data,
			position = excluded.position,
			fetch_timestamp = CURRENT_TIMESTAMP
	`, query, videoID, string(videoData), position, searchType)
	if err != nil {
		return fmt.Errorf("failed to cache search result: %w", err)
	}
	return nil
}

// CachedSearchResults returns a query's cached payloads in result order
func (s *Store) CachedSearchResults(ctx context.Context, query, searchType string) ([]json.RawMessage, error) {
	var results []json.RawMessage
	err := s.All(ctx, `
		SELECT video_data FROM search_results_cache
		WHERE search_query = ? AND search_type = ?
		ORDER BY position
	`, []any{query, searchType},
		func(rows *sql.Rows) error {
			var data string
			if err := rows.Scan(&data); err != nil {
				return fmt.Errorf("failed to scan cached result: %w", err)
			}
			results = append(results, json.RawMessage(data))
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read search cache: %w", err)
	}
	return results, nil
}

// ClearSearchCache drops cached results older than the given number of days
func (s *Store) ClearSearchCache(ctx context.Context, olderThanDays int) (int64, error) {
	res, err := s.Run(ctx, `
		DELETE FROM search_results_cache
		WHERE fetch_timestamp < datetime('now', ?)
	`, fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("failed to clear search cache: %w", err)
	}
	return res.RowsAffected, nil
}
