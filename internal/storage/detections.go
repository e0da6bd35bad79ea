package storage

import (
	"context"
	"time"
)

type DetectionRecord struct {
	ID         string
	GuildID    string
	UserID     string
	ChannelID  string
	MessageID  string
	Category   string
	Action     string
	Confidence int
	Severity   int
	Reasons    string
	CreatedAt  time.Time
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func (s *Store) AddDetection(ctx context.Context, record DetectionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detections (id, guild_id, user_id, channel_id, message_id, category, action, confidence, severity, reasons, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.GuildID, record.UserID, record.ChannelID, record.MessageID,
		record.Category, record.Action, record.Confidence, record.Severity, record.Reasons,
		record.CreatedAt.Unix())
	return err
}

func (s *Store) ListDetections(ctx context.Context, guildID string, since time.Time) ([]DetectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, channel_id, message_id, category, action, confidence, severity, reasons, created_at
		FROM detections
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DetectionRecord
	for rows.Next() {
		var record DetectionRecord
		var created int64
		if err := rows.Scan(&record.ID, &record.GuildID, &record.UserID, &record.ChannelID,
			&record.MessageID, &record.Category, &record.Action, &record.Confidence,
			&record.Severity, &record.Reasons, &created); err != nil {
			return nil, err
		}
		record.CreatedAt = time.Unix(created, 0)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// CleanupExpired drops detections and audit logs older than the retention
// window.
func (s *Store) CleanupExpired(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM detections WHERE created_at < ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff)
	return err
}
