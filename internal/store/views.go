package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ViewRecord tracks playback state for one video: resume position,
// cumulative time watched and the watched flag
type ViewRecord struct {
	VideoID      string
	SourceID     string
	Position     float64
	TimeWatched  float64
	Duration     int
	Watched      bool
	FirstWatched time.Time
	LastWatched  time.Time
}

// RecordProgress upserts playback progress for a video. first_watched is
// set once; time_watched accumulates across sessions.
func (s *Store) RecordProgress(ctx context.Context, videoID, sourceID string, position, timeWatched float64, duration int, watched bool) error {
	_, err := s.Run(ctx, `
		INSERT INTO view_records
			(video_id, source_id, position, time_watched, duration, watched, first_watched, last_watched)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(video_id) DO UPDATE SET
			position = excluded.position,
			time_watched = view_records.time_watched + excluded.time_watched,
			duration = excluded.duration,
			watched = MAX(view_records.watched, excluded.watched),
			last_watched = CURRENT_TIMESTAMP
	`, videoID, sourceID, position, timeWatched, duration, boolToInt(watched))
	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// GetViewRecord retrieves playback state for a video, nil when never
// watched
func (s *Store) GetViewRecord(ctx context.Context, videoID string) (*ViewRecord, error) {
	r := &ViewRecord{}
	found, err := s.Get(ctx, `
		SELECT video_id, source_id, COALESCE(position, 0), COALESCE(time_watched, 0),
		       COALESCE(duration, 0), watched, first_watched, last_watched
		FROM view_records WHERE video_id = ?
	`, []any{videoID},
		&r.VideoID, &r.SourceID, &r.Position, &r.TimeWatched,
		&r.Duration, &r.Watched, &r.FirstWatched, &r.LastWatched,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get view record: %w", err)
	}
	if !found {
		return nil, nil
	}
	return r, nil
}

// GetHistory returns the most recently watched videos, newest first
func (s *Store) GetHistory(ctx context.Context, limit int) ([]*ViewRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*ViewRecord
	err := s.All(ctx, `
		SELECT video_id, source_id, COALESCE(position, 0), COALESCE(time_watched, 0),
		       COALESCE(duration, 0), watched, first_watched, last_watched
		FROM view_records
		ORDER BY last_watched DESC
		LIMIT ?
	`, []any{limit},
		func(rows *sql.Rows) error {
			r := &ViewRecord{}
			err := rows.Scan(
				&r.VideoID, &r.SourceID, &r.Position, &r.TimeWatched,
				&r.Duration, &r.Watched, &r.FirstWatched, &r.LastWatched,
			)
			if err != nil {
				return fmt.Errorf("failed to scan view record: %w", err)
			}
			records = append(records, r)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}
