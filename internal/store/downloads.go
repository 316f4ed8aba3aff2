package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Download states written by the download orchestrator
const (
	DownloadPending     = "pending"
	DownloadDownloading = "downloading"
	DownloadCompleted   = "completed"
	DownloadFailed      = "failed"
)

// Download tracks one video's offline copy
type Download struct {
	VideoID      string
	SourceID     string
	Status       string
	Progress     int
	FilePath     string
	ErrorMessage string
}

// StartDownload registers a download attempt, resetting any prior failed
// state for the same video
func (s *Store) StartDownload(ctx context.Context, videoID, sourceID string) error {
	_, err := s.Run(ctx, `
		INSERT INTO downloads (video_id, source_id, status, progress, start_time)
		VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)
		ON CONFLICT(video_id) DO UPDATE SET
			status = excluded.status,
			progress = 0,
			start_time = CURRENT_TIMESTAMP,
			end_time = NULL,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, videoID, nullable(sourceID), DownloadDownloading)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}
	return nil
}

// UpdateDownloadProgress records percent complete
func (s *Store) UpdateDownloadProgress(ctx context.Context, videoID string, progress int) error {
	_, err := s.Run(ctx, `
		UPDATE downloads SET progress = ?, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = ?
	`, progress, videoID)
	if err != nil {
		return fmt.Errorf("failed to update download progress: %w", err)
	}
	return nil
}

// CompleteDownload marks a download finished and records where the file
// landed
func (s *Store) CompleteDownload(ctx context.Context, videoID, filePath string) error {
	_, err := s.Run(ctx, `
		UPDATE downloads SET
			status = ?, progress = 100, file_path = ?,
			end_time = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = ?
	`, DownloadCompleted, filePath, videoID)
	if err != nil {
		return fmt.Errorf("failed to complete download: %w", err)
	}
	return nil
}

// FailDownload marks a download failed with the orchestrator's error text
func (s *Store) FailDownload(ctx context.Context, videoID, message string) error {
	_, err := s.Run(ctx, `
		UPDATE downloads SET
			status = ?, error_message = ?,
			end_time = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = ?
	`, DownloadFailed, message, videoID)
	if err != nil {
		return fmt.Errorf("failed to mark download failed: %w", err)
	}
	return nil
}

// GetDownload retrieves download state for a video, nil when none exists
func (s *Store) GetDownload(ctx context.Context, videoID string) (*Download, error) {
	d := &Download{}
	found, err := s.Get(ctx, `
		SELECT video_id, COALESCE(source_id, ''), status, progress,
		       COALESCE(file_path, ''), COALESCE(error_message, '')
		FROM downloads WHERE video_id = ?
	`, []any{videoID},
		&d.VideoID, &d.SourceID, &d.Status, &d.Progress,
		&d.FilePath, &d.ErrorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get download: %w", err)
	}
	if !found {
		return nil, nil
	}
	return d, nil
}

// ListDownloadsByStatus returns downloads in a given state
func (s *Store) ListDownloadsByStatus(ctx context.Context, status string) ([]*Download, error) {
	var downloads []*Download
	err := s.All(ctx, `
		SELECT video_id, COALESCE(source_id, ''), status, progress,
		       COALESCE(file_path, ''), COALESCE(error_message, '')
		FROM downloads WHERE status = ? ORDER BY created_at
	`, []any{status},
		func(rows *sql.Rows) error {
			d := &Download{}
			err := rows.Scan(
				&d.VideoID, &d.SourceID, &d.Status, &d.Progress,
				&d.FilePath, &d.ErrorMessage,
			)
			if err != nil {
				return fmt.Errorf("failed to scan download: %w", err)
			}
			downloads = append(downloads, d)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return downloads, nil
}
