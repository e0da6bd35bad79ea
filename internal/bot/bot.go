// Package bot connects the detection engine to Discord: it converts gateway
// events, merges stored guild settings over the configured defaults, and
// executes the engine's decisions.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/engine"
	"github.com/Denny519/security-bot/internal/modules/audit"
	"github.com/Denny519/security-bot/internal/modules/raid"
	"github.com/Denny519/security-bot/internal/storage"
)

type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *storage.Store
	engine  *engine.Aggregator
	audit   *audit.Logger
	session *discordgo.Session

	lockdownMu sync.Mutex
}

type lockdownSnapshot struct {
	channels map[string]channelSnapshot
}

type channelSnapshot struct {
	slowmode int
	allow    int64
	deny     int64
	hasPerm  bool
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, aggregator *engine.Aggregator, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		engine:  aggregator,
		audit:   auditLogger,
		session: session,
	}

	aggregator.Raid().SetEnforcer(b)
	if auditLogger != nil {
		auditLogger.SetNotifier(b.notifyAudit)
	}
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)

	return b.session.Open()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// guildConfig layers the guild's stored settings and lists over the
// configured defaults.
func (b *Bot) guildConfig(ctx context.Context, guildID string) config.GuildConfig {
	defaults := b.cfg.Guild
	stored, err := b.store.GetGuildSettings(ctx, guildID, settingsDefaults(guildID, b.cfg))
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}

	cfg := defaults
	cfg.Spam.Enabled = stored.SpamEnabled
	cfg.Spam.MaxDuplicateMessages = stored.SpamMaxDuplicates
	cfg.Spam.MaxMessagesPerMinute = stored.SpamMaxPerMinute
	cfg.Mentions.MaxMentions = stored.MaxMentions
	cfg.RaidProtection.Enabled = stored.RaidEnabled
	cfg.RaidProtection.JoinThreshold = stored.RaidJoinThreshold
	cfg.RaidProtection.TimeWindowSeconds = stored.RaidWindowSeconds
	cfg.RaidProtection.AccountAge.MinimumAgeHours = stored.RaidMinAgeHours
	cfg.RaidProtection.Actions.Lockdown = stored.RaidLockdown
	cfg.RaidProtection.Actions.LockdownMinutes = stored.RaidLockdownMinutes
	cfg.RaidProtection.Actions.Alert = stored.RaidAlert
	cfg.ContentFilter.Enabled = stored.ContentEnabled
	cfg.ContentFilter.StrictMode = stored.ContentStrict
	if len(stored.ContentLanguages) > 0 {
		cfg.ContentFilter.Languages = stored.ContentLanguages
	}
	if stored.ContentMaxFileSize > 0 {
		cfg.ContentFilter.MaxFileSize = stored.ContentMaxFileSize
	}
	cfg.Security.Enabled = stored.SecurityEnabled

	if domains, err := b.store.ListLinkWhitelist(ctx, guildID); err == nil && len(domains) > 0 {
		cfg.Links.Whitelist = append(cfg.Links.Whitelist, domains...)
	}
	if words, err := b.store.ListCustomWords(ctx, guildID); err == nil && len(words) > 0 {
		cfg.ContentFilter.CustomWords = append(cfg.ContentFilter.CustomWords, words...)
	}
	if users, err := b.store.ListUserWhitelist(ctx, guildID); err == nil && len(users) > 0 {
		cfg.ContentFilter.Whitelist = append(cfg.ContentFilter.Whitelist, users...)
	}
	return cfg
}

func settingsDefaults(guildID string, cfg config.Config) storage.GuildSettings {
	guild := cfg.Guild
	return storage.GuildSettings{
		GuildID:             guildID,
		SecurityLogChannel:  cfg.DefaultSecurityLogChannel,
		Mode:                cfg.Mode,
		RetentionDays:       cfg.RetentionDays,
		SpamEnabled:         guild.Spam.Enabled,
		SpamMaxDuplicates:   guild.Spam.MaxDuplicateMessages,
		SpamMaxPerMinute:    guild.Spam.MaxMessagesPerMinute,
		MaxMentions:         guild.Mentions.MaxMentions,
		RaidEnabled:         guild.RaidProtection.Enabled,
		RaidJoinThreshold:   guild.RaidProtection.JoinThreshold,
		RaidWindowSeconds:   guild.RaidProtection.TimeWindowSeconds,
		RaidMinAgeHours:     guild.RaidProtection.AccountAge.MinimumAgeHours,
		RaidLockdown:        guild.RaidProtection.Actions.Lockdown,
		RaidLockdownMinutes: guild.RaidProtection.Actions.LockdownMinutes,
		RaidAlert:           guild.RaidProtection.Actions.Alert,
		ContentEnabled:      guild.ContentFilter.Enabled,
		ContentStrict:       guild.ContentFilter.StrictMode,
		ContentLanguages:    guild.ContentFilter.Languages,
		ContentMaxFileSize:  guild.ContentFilter.MaxFileSize,
		SecurityEnabled:     guild.Security.Enabled,
	}
}

func (b *Bot) auditMode(ctx context.Context, guildID string) bool {
	stored, err := b.store.GetGuildSettings(ctx, guildID, settingsDefaults(guildID, b.cfg))
	if err != nil {
		return b.cfg.Mode == "audit"
	}
	return stored.Mode == "audit"
}

func (b *Bot) securityLogChannel(ctx context.Context, guildID string) string {
	stored, err := b.store.GetGuildSettings(ctx, guildID, settingsDefaults(guildID, b.cfg))
	if err != nil || stored.SecurityLogChannel == "" {
		return b.cfg.DefaultSecurityLogChannel
	}
	return stored.SecurityLogChannel
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.Level == audit.LevelInfo {
		return
	}
	channelID := b.securityLogChannel(ctx, entry.GuildID)
	if channelID == "" {
		return
	}
	message := fmt.Sprintf("[%s] %s %s", entry.Level, entry.Event, entry.Details)
	if _, err := b.session.ChannelMessageSend(channelID, message); err != nil {
		b.logger.Warn("audit notify failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

// Lockdown implements raid.Enforcer. It snapshots every text channel's
// @everyone overwrite and slowmode before denying sends.
func (b *Bot) Lockdown(ctx context.Context, guildID string) (raid.Snapshot, error) {
	b.lockdownMu.Lock()
	defer b.lockdownMu.Unlock()

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return nil, err
	}

	snapshot := &lockdownSnapshot{channels: make(map[string]channelSnapshot)}
	for _, channel := range channels {
		if channel == nil {
			continue
		}
		if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		snap := channelSnapshot{slowmode: channel.RateLimitPerUser}
		for _, overwrite := range channel.PermissionOverwrites {
			if overwrite.Type == discordgo.PermissionOverwriteTypeRole && overwrite.ID == guildID {
				snap.allow = overwrite.Allow
				snap.deny = overwrite.Deny
				snap.hasPerm = true
				break
			}
		}
		snapshot.channels[channel.ID] = snap

		deny := snap.deny | discordgo.PermissionSendMessages
		if err := b.session.ChannelPermissionSet(channel.ID, guildID, discordgo.PermissionOverwriteTypeRole, snap.allow, deny); err != nil {
			b.logger.Warn("lockdown permission set failed", zap.String("channel_id", channel.ID), zap.Error(err))
		}
	}

	b.audit.Log(ctx, audit.LevelCrit, guildID, "", "lockdown_applied",
		fmt.Sprintf("%d channels locked", len(snapshot.channels)))
	return snapshot, nil
}

// Restore implements raid.Enforcer, reverting the snapshot taken by Lockdown.
func (b *Bot) Restore(ctx context.Context, guildID string, snap raid.Snapshot) error {
	b.lockdownMu.Lock()
	defer b.lockdownMu.Unlock()

	snapshot, ok := snap.(*lockdownSnapshot)
	if !ok || snapshot == nil {
		return nil
	}

	for channelID, channel := range snapshot.channels {
		if channel.hasPerm {
			if err := b.session.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, channel.allow, channel.deny); err != nil {
				b.logger.Warn("lockdown permission restore failed", zap.String("channel_id", channelID), zap.Error(err))
			}
		} else if err := b.session.ChannelPermissionDelete(channelID, guildID); err != nil {
			b.logger.Warn("lockdown permission delete failed", zap.String("channel_id", channelID), zap.Error(err))
		}
		slowmode := channel.slowmode
		if _, err := b.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{RateLimitPerUser: &slowmode}); err != nil {
			b.logger.Warn("slowmode restore failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}

	b.audit.Log(ctx, audit.LevelWarn, guildID, "", "lockdown_lifted",
		fmt.Sprintf("%d channels restored", len(snapshot.channels)))
	return nil
}

const timeoutDuration = 10 * time.Minute

var _ raid.Enforcer = (*Bot)(nil)
