package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AddFavorite stars a video. Already-starred is a no-op.
func (s *Store) AddFavorite(ctx context.Context, videoID, sourceID string) error {
	_, err := s.Run(ctx, `
		INSERT OR IGNORE INTO favorites (video_id, source_id)
		VALUES (?, ?)
	`, videoID, nullable(sourceID))
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unstars a video
func (s *Store) RemoveFavorite(ctx context.Context, videoID string) error {
	_, err := s.Run(ctx, "DELETE FROM favorites WHERE video_id = ?", videoID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether a video is starred
func (s *Store) IsFavorite(ctx context.Context, videoID string) (bool, error) {
	var one int
	found, err := s.Get(ctx,
		"SELECT 1 FROM favorites WHERE video_id = ?",
		[]any{videoID}, &one)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return found, nil
}

// ListFavorites returns starred videos, most recently starred first
func (s *Store) ListFavorites(ctx context.Context) ([]*Video, error) {
	var videos []*Video
	err := s.All(ctx, `
		SELECT videos.id, videos.title, COALESCE(videos.description, ''),
		       COALESCE(videos.thumbnail, ''), COALESCE(videos.duration, 0),
		       COALESCE(videos.url, ''), COALESCE(videos.published_at, ''),
		       videos.is_available, videos.source_id, videos.created_at, videos.updated_at
		FROM videos
		JOIN favorites ON favorites.video_id = videos.id
		ORDER BY favorites.date_added DESC
	`, nil,
		func(rows *sql.Rows) error {
			v, err := scanVideo(rows)
			if err != nil {
				return err
			}
			videos = append(videos, v)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return videos, nil
}
