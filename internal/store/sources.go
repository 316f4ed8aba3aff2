package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Source represents a content origin: a remote channel or playlist, a DLNA
// server, or a local directory
type Source struct {
	ID             string
	Type           string
	Title          string
	URL            string
	Path           string
	ChannelID      string
	SortPreference string
	Position       int
	TotalVideos    int
	MaxDepth       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const sourceColumns = `id, type, title, COALESCE(url, ''), COALESCE(path, ''),
	COALESCE(channel_id, ''), COALESCE(sort_preference, ''), COALESCE(position, 0),
	COALESCE(total_videos, 0), COALESCE(max_depth, 2), created_at, updated_at`

func scanSource(row *sql.Rows) (*Source, error) {
	src := &Source{}
	err := row.Scan(
		&src.ID, &src.Type, &src.Title, &src.URL, &src.Path,
		&src.ChannelID, &src.SortPreference, &src.Position,
		&src.TotalVideos, &src.MaxDepth, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	return src, nil
}

// CreateSource inserts a source. The schema's CHECK constraint rejects
// local sources without a path and remote sources without a url.
func (s *Store) CreateSource(ctx context.Context, src *Source) error {
	if src.SortPreference == "" {
		src.SortPreference = defaultSortPreference(src.Type)
	}
	_, err := s.Run(ctx, `
		INSERT INTO sources
			(id, type, title, url, path, channel_id, sort_preference, position, max_depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, src.ID, src.Type, src.Title, nullable(src.URL), nullable(src.Path),
		nullable(src.ChannelID), src.SortPreference, src.Position, src.MaxDepth)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// GetSource retrieves a source by id, nil when absent
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	src := &Source{}
	found, err := s.Get(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE id = ?",
		[]any{id},
		&src.ID, &src.Type, &src.Title, &src.URL, &src.Path,
		&src.ChannelID, &src.SortPreference, &src.Position,
		&src.TotalVideos, &src.MaxDepth, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	if !found {
		return nil, nil
	}
	return src, nil
}

// ListSources returns all sources in display order
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	var sources []*Source
	err := s.All(ctx,
		"SELECT "+sourceColumns+" FROM sources ORDER BY position, title",
		nil,
		func(rows *sql.Rows) error {
			src, err := scanSource(rows)
			if err != nil {
				return err
			}
			sources = append(sources, src)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// ListSourcesByType returns sources of one type in display order
func (s *Store) ListSourcesByType(ctx context.Context, srcType string) ([]*Source, error) {
	var sources []*Source
	err := s.All(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE type = ? ORDER BY position, title",
		[]any{srcType},
		func(rows *sql.Rows) error {
			src, err := scanSource(rows)
			if err != nil {
				return err
			}
			sources = append(sources, src)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// UpdateSourcePositions persists a parent's reordering of the source list
// atomically
func (s *Store) UpdateSourcePositions(ctx context.Context, orderedIDs []string) error {
	stmts := make([]Statement, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		stmts = append(stmts, Statement{
			SQL:  "UPDATE sources SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			Args: []any{i, id},
		})
	}
	return s.ExecuteTransaction(ctx, stmts, &TxOptions{Silent: true})
}

// UpdateSourceVideoCount refreshes the cached total-video count
func (s *Store) UpdateSourceVideoCount(ctx context.Context, id string) error {
	_, err := s.Run(ctx, `
		UPDATE sources SET
			total_videos = (SELECT COUNT(*) FROM videos WHERE source_id = sources.id),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to update video count: %w", err)
	}
	return nil
}

// DeleteSource removes a source; videos, view records and favorites
// referencing it go with it via cascade
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.Run(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}
