package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/safetube/internal/util"
)

// TimeLimits holds the per-weekday screen-time allowance in minutes plus
// the warning behavior around it
type TimeLimits struct {
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int

	WarningThresholdMinutes int
	CountdownWarningSeconds int
	AudioWarningSeconds     int
	TimeUpMessage           string
	UseSystemBeep           bool
	CustomBeepSound         string
}

// GetTimeLimits reads the singleton time-limits row
func (s *Store) GetTimeLimits(ctx context.Context) (*TimeLimits, error) {
	tl := &TimeLimits{}
	found, err := s.Get(ctx, `
		SELECT monday, tuesday, wednesday, thursday, friday, saturday, sunday,
		       COALESCE(warning_threshold_minutes, 3),
		       COALESCE(countdown_warning_seconds, 60),
		       COALESCE(audio_warning_seconds, 10),
		       COALESCE(time_up_message, ''),
		       COALESCE(use_system_beep, 0),
		       COALESCE(custom_beep_sound, '')
		FROM time_limits WHERE id = 1
	`, nil,
		&tl.Monday, &tl.Tuesday, &tl.Wednesday, &tl.Thursday,
		&tl.Friday, &tl.Saturday, &tl.Sunday,
		&tl.WarningThresholdMinutes, &tl.CountdownWarningSeconds,
		&tl.AudioWarningSeconds, &tl.TimeUpMessage,
		&tl.UseSystemBeep, &tl.CustomBeepSound,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get time limits: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("time limits row: %w", util.ErrNotFound)
	}
	return tl, nil
}

// UpdateTimeLimits overwrites the singleton time-limits row
func (s *Store) UpdateTimeLimits(ctx context.Context, tl *TimeLimits) error {
	_, err := s.Run(ctx, `
		UPDATE time_limits SET
			monday = ?, tuesday = ?, wednesday = ?, thursday = ?,
			friday = ?, saturday = ?, sunday = ?,
			warning_threshold_minutes = ?, countdown_warning_seconds = ?,
			audio_warning_seconds = ?, time_up_message = ?,
			use_system_beep = ?, custom_beep_sound = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, tl.Monday, tl.Tuesday, tl.Wednesday, tl.Thursday,
		tl.Friday, tl.Saturday, tl.Sunday,
		tl.WarningThresholdMinutes, tl.CountdownWarningSeconds,
		tl.AudioWarningSeconds, tl.TimeUpMessage,
		boolToInt(tl.UseSystemBeep), nullable(tl.CustomBeepSound))
	if err != nil {
		return fmt.Errorf("failed to update time limits: %w", err)
	}
	return nil
}

// LogUsage adds watched seconds to a calendar day (date formatted
// YYYY-MM-DD)
func (s *Store) LogUsage(ctx context.Context, date string, seconds int) error {
	_, err := s.Run(ctx, `
		INSERT INTO usage_logs (date, seconds_used)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET
			seconds_used = usage_logs.seconds_used + excluded.seconds_used,
			updated_at = CURRENT_TIMESTAMP
	`, date, seconds)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// GetUsage returns seconds watched on a day, zero when nothing was logged
func (s *Store) GetUsage(ctx context.Context, date string) (int, error) {
	var seconds int
	_, err := s.Get(ctx,
		"SELECT seconds_used FROM usage_logs WHERE date = ?",
		[]any{date}, &seconds)
	if err != nil {
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}
	return seconds, nil
}

// AddExtraTime records a parent-granted extension for a day
func (s *Store) AddExtraTime(ctx context.Context, date string, minutes int, reason, addedBy string) error {
	_, err := s.Run(ctx, `
		INSERT INTO time_extra (date, minutes_added, reason, added_by)
		VALUES (?, ?, ?, ?)
	`, date, minutes, nullable(reason), nullable(addedBy))
	if err != nil {
		return fmt.Errorf("failed to add extra time: %w", err)
	}
	return nil
}

// GetExtraTime returns the total extra minutes granted for a day
func (s *Store) GetExtraTime(ctx context.Context, date string) (int, error) {
	var minutes int
	_, err := s.Get(ctx,
		"SELECT COALESCE(SUM(minutes_added), 0) FROM time_extra WHERE date = ?",
		[]any{date}, &minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to get extra time: %w", err)
	}
	return minutes, nil
}

// RemainingSeconds computes what is left of a day's allowance: the weekday
// limit plus grants minus logged usage. Negative values clamp to zero.
func (s *Store) RemainingSeconds(ctx context.Context, date string, weekdayMinutes int) (int, error) {
	used, err := s.GetUsage(ctx, date)
	if err != nil {
		return 0, err
	}
	extra, err := s.GetExtraTime(ctx, date)
	if err != nil {
		return 0, err
	}
	remaining := (weekdayMinutes+extra)*60 - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// UsageForDates returns logged seconds per day for a date range, for the
// admin usage report
func (s *Store) UsageForDates(ctx context.Context, from, to string) (map[string]int, error) {
	usage := make(map[string]int)
	err := s.All(ctx,
		"SELECT date, seconds_used FROM usage_logs WHERE date BETWEEN ? AND ? ORDER BY date",
		[]any{from, to},
		func(rows *sql.Rows) error {
			var date string
			var seconds int
			if err := rows.Scan(&date, &seconds); err != nil {
				return fmt.Errorf("failed to scan usage row: %w", err)
			}
			usage[date] = seconds
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return usage, nil
}
