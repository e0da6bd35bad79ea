package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/modules/audit"
	"github.com/Denny519/security-bot/internal/modules/security"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	event := eventFromMessage(msg)
	cfg := b.guildConfig(ctx, msg.GuildID)

	decision, err := b.engine.ProcessMessage(ctx, event, cfg)
	if err != nil {
		b.logger.Warn("message rejected", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}
	if decision.Action == moderation.ActionNone {
		return
	}
	b.executeDecision(ctx, decision)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.User == nil || event.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg := b.guildConfig(ctx, event.GuildID)

	assessment, err := b.engine.ProcessJoin(ctx, eventFromJoin(event), cfg)
	if err != nil {
		b.logger.Warn("join rejected", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}
	if assessment.AlertDue {
		channelID := b.securityLogChannel(ctx, event.GuildID)
		if channelID != "" {
			message := fmt.Sprintf("Raid suspected: %d joins. %s",
				assessment.JoinCount, strings.Join(assessment.Recommendations, "; "))
			if _, err := b.session.ChannelMessageSend(channelID, message); err != nil {
				b.logger.Warn("raid alert failed", zap.String("guild_id", event.GuildID), zap.Error(err))
			}
		}
	}
}

func eventFromMessage(msg *discordgo.MessageCreate) moderation.Event {
	event := moderation.Event{
		Kind:             moderation.EventMessage,
		GuildID:          msg.GuildID,
		AuthorID:         msg.Author.ID,
		AuthorTag:        msg.Author.Username,
		Username:         msg.Author.Username,
		ChannelID:        msg.ChannelID,
		MessageID:        msg.ID,
		Timestamp:        msg.Timestamp,
		Content:          msg.Content,
		MentionsEveryone: msg.MentionEveryone,
		HasDefaultAvatar: msg.Author.Avatar == "",
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, attachment := range msg.Attachments {
		event.Attachments = append(event.Attachments, moderation.Attachment{
			Filename: attachment.Filename,
			Size:     int64(attachment.Size),
		})
	}
	for _, user := range msg.Mentions {
		event.MentionedUserIDs = append(event.MentionedUserIDs, user.ID)
	}
	if created, ok := security.SnowflakeTime(msg.Author.ID); ok {
		event.AccountCreatedAt = created
	}
	return event
}

func eventFromJoin(member *discordgo.GuildMemberAdd) moderation.Event {
	event := moderation.Event{
		Kind:             moderation.EventJoin,
		GuildID:          member.GuildID,
		AuthorID:         member.User.ID,
		AuthorTag:        member.User.Username,
		Username:         member.User.Username,
		Timestamp:        member.JoinedAt,
		HasDefaultAvatar: member.User.Avatar == "",
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if created, ok := security.SnowflakeTime(member.User.ID); ok {
		event.AccountCreatedAt = created
	}
	return event
}

// executeDecision applies the engine's verdict. In audit mode every action is
// logged but nothing is enforced.
func (b *Bot) executeDecision(ctx context.Context, decision moderation.Decision) {
	details := fmt.Sprintf("action=%s category=%s confidence=%d violations=%d reasons=%s",
		decision.Action, decision.Category, decision.Confidence, decision.ViolationCount,
		strings.Join(decision.Reasons, "; "))
	level := audit.LevelWarn
	if decision.Action == moderation.ActionKick || decision.Action == moderation.ActionBan {
		level = audit.LevelCrit
	}
	b.audit.Log(ctx, level, decision.GuildID, decision.UserID, "decision", details)

	if b.auditMode(ctx, decision.GuildID) {
		b.audit.Log(ctx, audit.LevelInfo, decision.GuildID, decision.UserID, "audit_mode", "action simulated")
		return
	}

	if decision.DeleteMessage && decision.MessageID != "" {
		if err := b.session.ChannelMessageDelete(decision.ChannelID, decision.MessageID); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, decision.GuildID, decision.UserID, "action_failed", "message delete failed")
		}
	}

	reason := "security policy: " + string(decision.Category)
	switch decision.Action {
	case moderation.ActionWarn:
		b.warnUser(decision.UserID, fmt.Sprintf("Your message violated this server's rules (%s). Repeated violations escalate.", decision.Category))
	case moderation.ActionTimeout:
		until := time.Now().Add(timeoutDuration)
		if err := b.session.GuildMemberTimeout(decision.GuildID, decision.UserID, &until); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, decision.GuildID, decision.UserID, "action_failed", "timeout failed")
		}
	case moderation.ActionKick:
		if err := b.session.GuildMemberDeleteWithReason(decision.GuildID, decision.UserID, reason); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, decision.GuildID, decision.UserID, "action_failed", "kick failed")
		}
	case moderation.ActionBan:
		if err := b.session.GuildBanCreateWithReason(decision.GuildID, decision.UserID, reason, 0); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, decision.GuildID, decision.UserID, "action_failed", "ban failed")
		}
	}
}

func (b *Bot) warnUser(userID, message string) {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return
	}
	_, _ = b.session.ChannelMessageSend(channel.ID, message)
}
