package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type GuildSettings struct {
	GuildID             string
	SecurityLogChannel  string
	Mode                string
	RetentionDays       int
	SpamEnabled         bool
	SpamMaxDuplicates   int
	SpamMaxPerMinute    int
	MaxMentions         int
	RaidEnabled         bool
	RaidJoinThreshold   int
	RaidWindowSeconds   int
	RaidMinAgeHours     int
	RaidLockdown        bool
	RaidLockdownMinutes int
	RaidAlert           bool
	ContentEnabled      bool
	ContentStrict       bool
	ContentLanguages    []string
	ContentMaxFileSize  int64
	SecurityEnabled     bool
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT security_log_channel, mode, retention_days,
		spam_enabled, spam_max_duplicates, spam_max_per_minute, max_mentions,
		raid_enabled, raid_join_threshold, raid_window_seconds, raid_min_age_hours,
		raid_lockdown, raid_lockdown_minutes, raid_alert,
		content_enabled, content_strict, content_languages, content_max_file_size,
		security_enabled
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var spamEnabled, raidEnabled, raidLockdown, raidAlert int
	var contentEnabled, contentStrict, securityEnabled int
	var languages string
	err := row.Scan(
		&result.SecurityLogChannel,
		&result.Mode,
		&result.RetentionDays,
		&spamEnabled,
		&result.SpamMaxDuplicates,
		&result.SpamMaxPerMinute,
		&result.MaxMentions,
		&raidEnabled,
		&result.RaidJoinThreshold,
		&result.RaidWindowSeconds,
		&result.RaidMinAgeHours,
		&raidLockdown,
		&result.RaidLockdownMinutes,
		&raidAlert,
		&contentEnabled,
		&contentStrict,
		&languages,
		&result.ContentMaxFileSize,
		&securityEnabled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}

	result.SpamEnabled = spamEnabled == 1
	result.RaidEnabled = raidEnabled == 1
	result.RaidLockdown = raidLockdown == 1
	result.RaidAlert = raidAlert == 1
	result.ContentEnabled = contentEnabled == 1
	result.ContentStrict = contentStrict == 1
	result.SecurityEnabled = securityEnabled == 1
	result.ContentLanguages = splitCSV(languages)
	if len(result.ContentLanguages) == 0 {
		result.ContentLanguages = defaults.ContentLanguages
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, security_log_channel, mode, retention_days,
			spam_enabled, spam_max_duplicates, spam_max_per_minute, max_mentions,
			raid_enabled, raid_join_threshold, raid_window_seconds, raid_min_age_hours,
			raid_lockdown, raid_lockdown_minutes, raid_alert,
			content_enabled, content_strict, content_languages, content_max_file_size,
			security_enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			security_log_channel = excluded.security_log_channel,
			mode = excluded.mode,
			retention_days = excluded.retention_days,
			spam_enabled = excluded.spam_enabled,
			spam_max_duplicates = excluded.spam_max_duplicates,
			spam_max_per_minute = excluded.spam_max_per_minute,
			max_mentions = excluded.max_mentions,
			raid_enabled = excluded.raid_enabled,
			raid_join_threshold = excluded.raid_join_threshold,
			raid_window_seconds = excluded.raid_window_seconds,
			raid_min_age_hours = excluded.raid_min_age_hours,
			raid_lockdown = excluded.raid_lockdown,
			raid_lockdown_minutes = excluded.raid_lockdown_minutes,
			raid_alert = excluded.raid_alert,
			content_enabled = excluded.content_enabled,
			content_strict = excluded.content_strict,
			content_languages = excluded.content_languages,
			content_max_file_size = excluded.content_max_file_size,
			security_enabled = excluded.security_enabled
	`,
		settings.GuildID,
		settings.SecurityLogChannel,
		settings.Mode,
		settings.RetentionDays,
		boolToInt(settings.SpamEnabled),
		settings.SpamMaxDuplicates,
		settings.SpamMaxPerMinute,
		settings.MaxMentions,
		boolToInt(settings.RaidEnabled),
		settings.RaidJoinThreshold,
		settings.RaidWindowSeconds,
		settings.RaidMinAgeHours,
		boolToInt(settings.RaidLockdown),
		settings.RaidLockdownMinutes,
		boolToInt(settings.RaidAlert),
		boolToInt(settings.ContentEnabled),
		boolToInt(settings.ContentStrict),
		strings.Join(settings.ContentLanguages, ","),
		settings.ContentMaxFileSize,
		boolToInt(settings.SecurityEnabled),
	)
	return err
}

func (s *Store) AddLinkWhitelist(ctx context.Context, guildID, domain string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO link_whitelist (guild_id, domain) VALUES (?, ?)`,
		guildID, strings.ToLower(domain))
	return err
}

func (s *Store) RemoveLinkWhitelist(ctx context.Context, guildID, domain string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM link_whitelist WHERE guild_id = ? AND domain = ?`,
		guildID, strings.ToLower(domain))
	return err
}

func (s *Store) ListLinkWhitelist(ctx context.Context, guildID string) ([]string, error) {
	return s.listValues(ctx, `SELECT domain FROM link_whitelist WHERE guild_id = ? ORDER BY domain`, guildID)
}

func (s *Store) AddCustomWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO custom_words (guild_id, word) VALUES (?, ?)`,
		guildID, strings.ToLower(word))
	return err
}

func (s *Store) RemoveCustomWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_words WHERE guild_id = ? AND word = ?`,
		guildID, strings.ToLower(word))
	return err
}

func (s *Store) ListCustomWords(ctx context.Context, guildID string) ([]string, error) {
	return s.listValues(ctx, `SELECT word FROM custom_words WHERE guild_id = ? ORDER BY word`, guildID)
}

func (s *Store) AddUserWhitelist(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO user_whitelist (guild_id, user_id) VALUES (?, ?)`,
		guildID, userID)
	return err
}

func (s *Store) RemoveUserWhitelist(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_whitelist WHERE guild_id = ? AND user_id = ?`,
		guildID, userID)
	return err
}

func (s *Store) ListUserWhitelist(ctx context.Context, guildID string) ([]string, error) {
	return s.listValues(ctx, `SELECT user_id FROM user_whitelist WHERE guild_id = ? ORDER BY user_id`, guildID)
}

func (s *Store) listValues(ctx context.Context, query, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func splitCSV(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
