package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Video represents one piece of media belonging to a source
type Video struct {
	ID          string
	Title       string
	Description string
	Thumbnail   string
	Duration    int
	URL         string
	PublishedAt string
	IsAvailable bool
	SourceID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const videoColumns = `id, title, COALESCE(description, ''), COALESCE(thumbnail, ''),
	COALESCE(duration, 0), COALESCE(url, ''), COALESCE(published_at, ''),
	is_available, source_id, created_at, updated_at`

func scanVideo(rows *sql.Rows) (*Video, error) {
	v := &Video{}
	err := rows.Scan(
		&v.ID, &v.Title, &v.Description, &v.Thumbnail,
		&v.Duration, &v.URL, &v.PublishedAt,
		&v.IsAvailable, &v.SourceID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}
	return v, nil
}

// UpsertVideo inserts a video or refreshes its mutable fields. The FTS
// triggers keep the search index in step on either path.
func (s *Store) UpsertVideo(ctx context.Context, v *Video) error {
	_, err := s.Run(ctx, `
		INSERT INTO videos
			(id, title, description, thumbnail, duration, url, published_at, is_available, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail = excluded.thumbnail,
			duration = excluded.duration,
			url = excluded.url,
			published_at = excluded.published_at,
			is_available = excluded.is_available,
			updated_at = CURRENT_TIMESTAMP
	`, v.ID, v.Title, nullable(v.Description), nullable(v.Thumbnail),
		v.Duration, nullable(v.URL), nullable(v.PublishedAt),
		boolToInt(v.IsAvailable), v.SourceID)
	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}
	return nil
}

// GetVideo retrieves a video by id, nil when absent
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	v := &Video{}
	found, err := s.Get(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE id = ?",
		[]any{id},
		&v.ID, &v.Title, &v.Description, &v.Thumbnail,
		&v.Duration, &v.URL, &v.PublishedAt,
		&v.IsAvailable, &v.SourceID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

// GetVideoByURL retrieves a source's video by its url (local sources store
// the file path there), nil when absent
func (s *Store) GetVideoByURL(ctx context.Context, sourceID, url string) (*Video, error) {
	v := &Video{}
	found, err := s.Get(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE source_id = ? AND url = ?",
		[]any{sourceID, url},
		&v.ID, &v.Title, &v.Description, &v.Thumbnail,
		&v.Duration, &v.URL, &v.PublishedAt,
		&v.IsAvailable, &v.SourceID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

// ListVideosBySource returns a source's videos ordered per its sort
// preference
func (s *Store) ListVideosBySource(ctx context.Context, sourceID string, sortPreference string) ([]*Video, error) {
	order := "published_at DESC"
	switch sortPreference {
	case "alphabetical":
		order = "title COLLATE NOCASE"
	case "oldestFirst":
		order = "published_at"
	case "playlistOrder":
		order = "rowid"
	}

	var videos []*Video
	err := s.All(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE source_id = ? ORDER BY "+order,
		[]any{sourceID},
		func(rows *sql.Rows) error {
			v, err := scanVideo(rows)
			if err != nil {
				return err
			}
			videos = append(videos, v)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// SetVideoAvailability flags a video as playable or gone (file removed,
// remote video deleted)
func (s *Store) SetVideoAvailability(ctx context.Context, id string, available bool) error {
	_, err := s.Run(ctx,
		"UPDATE videos SET is_available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		boolToInt(available), id)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	return nil
}

// DeleteVideo removes a video; the delete trigger clears its FTS entry
func (s *Store) DeleteVideo(ctx context.Context, id string) error {
	_, err := s.Run(ctx, "DELETE FROM videos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// CountVideosBySource returns the live (non-cached) video count
func (s *Store) CountVideosBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	_, err := s.Get(ctx,
		"SELECT COUNT(*) FROM videos WHERE source_id = ?",
		[]any{sourceID}, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return count, nil
}

// SearchVideos runs a full-text match over titles and descriptions. This
// is the only read path into the shadow index.
func (s *Store) SearchVideos(ctx context.Context, query string, limit int) ([]*Video, error) {
	if limit <= 0 {
		limit = 50
	}

	var videos []*Video
	err := s.All(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE rowid IN (SELECT rowid FROM videos_fts WHERE videos_fts MATCH ?)
		  AND is_available = 1
		ORDER BY title COLLATE NOCASE
		LIMIT ?
	`, []any{query, limit},
		func(rows *sql.Rows) error {
			v, err := scanVideo(rows)
			if err != nil {
				return err
			}
			videos = append(videos, v)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return videos, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
