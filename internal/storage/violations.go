package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type UserViolation struct {
	GuildID      string
	UserID       string
	Category     string
	CountTotal   int
	LastAt       time.Time
	LastReason   string
	LastSeverity int
	ResetAt      *time.Time
}

func (s *Store) GetViolation(ctx context.Context, guildID, userID, category string) (UserViolation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, category, count_total, last_at, last_reason, last_severity, reset_at
		FROM user_violations
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`, guildID, userID, category)

	var violation UserViolation
	var lastAt int64
	var resetAt sql.NullInt64
	err := row.Scan(&violation.GuildID, &violation.UserID, &violation.Category,
		&violation.CountTotal, &lastAt, &violation.LastReason, &violation.LastSeverity, &resetAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserViolation{}, nil
		}
		return UserViolation{}, err
	}
	violation.LastAt = time.Unix(lastAt, 0)
	if resetAt.Valid {
		value := time.Unix(resetAt.Int64, 0)
		violation.ResetAt = &value
	}
	return violation, nil
}

// IncrementViolation advances the persisted counter, applying the lapsed
// reset_at before counting, and returns the new count.
func (s *Store) IncrementViolation(ctx context.Context, guildID, userID, category, reason string, severity int, forgiveAfter time.Duration) (int, error) {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	var resetAt sql.NullInt64
	row := tx.QueryRowContext(ctx, `
		SELECT count_total, reset_at
		FROM user_violations
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`, guildID, userID, category)
	scanErr := row.Scan(&count, &resetAt)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}
	if scanErr == nil && resetAt.Valid && now.Unix() >= resetAt.Int64 {
		count = 0
	}

	count++
	var nextReset any
	if forgiveAfter > 0 {
		nextReset = now.Add(forgiveAfter).Unix()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_violations (guild_id, user_id, category, count_total, last_at, last_reason, last_severity, reset_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, category) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at,
			last_reason = excluded.last_reason,
			last_severity = excluded.last_severity,
			reset_at = excluded.reset_at
	`, guildID, userID, category, count, now.Unix(), reason, severity, nextReset)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ResetViolations(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_violations WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return err
}
