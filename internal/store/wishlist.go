package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Wishlist moderation states
const (
	WishlistPending  = "pending"
	WishlistApproved = "approved"
	WishlistDenied   = "denied"
)

// WishlistItem is a child's video request awaiting parent moderation
type WishlistItem struct {
	ID           int64
	VideoID      string
	Title        string
	Thumbnail    string
	Description  string
	ChannelID    string
	ChannelName  string
	URL          string
	Status       string
	RequestedAt  time.Time
	ReviewedAt   sql.NullTime
	ReviewedBy   string
	DenialReason string
}

const wishlistColumns = `id, video_id, title, COALESCE(thumbnail, ''),
	COALESCE(description, ''), COALESCE(channel_id, ''), COALESCE(channel_name, ''),
	COALESCE(url, ''), status, requested_at, reviewed_at,
	COALESCE(reviewed_by, ''), COALESCE(denial_reason, '')`

func scanWishlistItem(rows *sql.Rows) (*WishlistItem, error) {
	item := &WishlistItem{}
	err := rows.Scan(
		&item.ID, &item.VideoID, &item.Title, &item.Thumbnail,
		&item.Description, &item.ChannelID, &item.ChannelName,
		&item.URL, &item.Status, &item.RequestedAt, &item.ReviewedAt,
		&item.ReviewedBy, &item.DenialReason,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
	}
	return item, nil
}

// AddWishlistItem records a request. Asking twice for the same video keeps
// the original request and its status.
func (s *Store) AddWishlistItem(ctx context.Context, item *WishlistItem) error {
	_, err := s.Run(ctx, `
		INSERT OR IGNORE INTO wishlist
			(video_id, title, thumbnail, description, channel_id, channel_name, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.VideoID, item.Title, nullable(item.Thumbnail), nullable(item.Description),
		nullable(item.ChannelID), nullable(item.ChannelName), nullable(item.URL))
	if err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

// ApproveWishlistItem marks a pending request approved
func (s *Store) ApproveWishlistItem(ctx context.Context, videoID, reviewedBy string) error {
	return s.reviewWishlistItem(ctx, videoID, WishlistApproved, reviewedBy, "")
}

// DenyWishlistItem marks a pending request denied with an optional reason
func (s *Store) DenyWishlistItem(ctx context.Context, videoID, reviewedBy, reason string) error {
	return s.reviewWishlistItem(ctx, videoID, WishlistDenied, reviewedBy, reason)
}

func (s *Store) reviewWishlistItem(ctx context.Context, videoID, status, reviewedBy, reason string) error {
	res, err := s.Run(ctx, `
		UPDATE wishlist SET
			status = ?,
			reviewed_at = CURRENT_TIMESTAMP,
			reviewed_by = ?,
			denial_reason = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE video_id = ? AND status = ?
	`, status, nullable(reviewedBy), nullable(reason), videoID, WishlistPending)
	if err != nil {
		return fmt.Errorf("failed to review wishlist item: %w", err)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no pending wishlist item for video %s", videoID)
	}
	return nil
}

// ListWishlistByStatus returns requests in one moderation state, newest
// request first
func (s *Store) ListWishlistByStatus(ctx context.Context, status string) ([]*WishlistItem, error) {
	var items []*WishlistItem
	err := s.All(ctx,
		"SELECT "+wishlistColumns+" FROM wishlist WHERE status = ? ORDER BY requested_at DESC",
		[]any{status},
		func(rows *sql.Rows) error {
			item, err := scanWishlistItem(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	return items, nil
}

// RemoveWishlistItem deletes a request outright (admin cleanup)
func (s *Store) RemoveWishlistItem(ctx context.Context, videoID string) error {
	_, err := s.Run(ctx, "DELETE FROM wishlist WHERE video_id = ?", videoID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}
