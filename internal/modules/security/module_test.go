package security

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
)

func securityConfig() (config.SecurityConfig, config.LinkConfig, config.MentionConfig) {
	return config.SecurityConfig{Enabled: true}, config.LinkConfig{}, config.MentionConfig{MaxMentions: 5}
}

func message(content string) moderation.Event {
	return moderation.Event{
		Kind:      moderation.EventMessage,
		GuildID:   "g1",
		AuthorID:  "u1",
		Timestamp: time.Unix(1_700_000_000, 0),
		Content:   content,
	}
}

func TestNitroScamScoring(t *testing.T) {
	module := New(zap.NewNop())
	sec, links, mentions := securityConfig()

	result := module.Evaluate(message("FREE NITRO!! click this link discord.gg/abc123"), sec, links, mentions)
	if !result.Triggered {
		t.Fatalf("expected trigger")
	}
	// invite 30 + scam 50 + click/link 40 = 120 -> critical.
	if result.Severity != 120 {
		t.Fatalf("expected score 120, got %d", result.Severity)
	}
	if result.Confidence != 100 {
		t.Fatalf("confidence must cap at 100, got %d", result.Confidence)
	}
	found := false
	for _, reason := range result.Reasons {
		if strings.Contains(reason, "critical") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected critical threat level, got %v", result.Reasons)
	}
}

func TestThreatLevels(t *testing.T) {
	cases := []struct {
		score int
		want  ThreatLevel
	}{
		{10, ThreatLow},
		{30, ThreatMedium},
		{60, ThreatHigh},
		{85, ThreatCritical},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.score); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestMassMention(t *testing.T) {
	module := New(zap.NewNop())
	sec, links, mentions := securityConfig()

	event := message("hey @everyone")
	event.MentionsEveryone = true
	if result := module.Evaluate(event, sec, links, mentions); !result.Triggered {
		t.Fatalf("expected @everyone trigger")
	}

	event = message("hi all")
	for i := 0; i < 6; i++ {
		event.MentionedUserIDs = append(event.MentionedUserIDs, strconv.Itoa(i))
	}
	if result := module.Evaluate(event, sec, links, mentions); !result.Triggered {
		t.Fatalf("expected mass-mention trigger above max_mentions")
	}
}

func TestSuspiciousURLWhitelist(t *testing.T) {
	module := New(zap.NewNop())
	sec, links, mentions := securityConfig()

	if result := module.Evaluate(message("get it at https://free-nitro.example.ru/claim"), sec, links, mentions); !result.Triggered {
		t.Fatalf("expected suspicious url trigger")
	}

	if result := module.Evaluate(message("see http://10.0.0.1/payload"), sec, links, mentions); !result.Triggered {
		t.Fatalf("expected bare-ip trigger")
	}

	links.Whitelist = []string{"example.ru"}
	result := module.Evaluate(message("get it at https://free-nitro.example.ru/claim"), sec, links, mentions)
	if result.Triggered {
		t.Fatalf("whitelisted domain must not score: %v", result.Reasons)
	}
}

func TestAccountAgeBrackets(t *testing.T) {
	module := New(zap.NewNop())
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		age  time.Duration
		want int
	}{
		{30 * time.Minute, 40},
		{10 * time.Hour, 25},
		{3 * 24 * time.Hour, 10},
		{30 * 24 * time.Hour, 0},
	}
	for _, tc := range cases {
		event := moderation.Event{
			Kind:             moderation.EventJoin,
			GuildID:          "g1",
			AuthorID:         "not-a-snowflake",
			Username:         "somebody",
			Timestamp:        now,
			AccountCreatedAt: now.Add(-tc.age),
		}
		risk := module.EvaluateAccount(event)
		if risk.Score != tc.want {
			t.Fatalf("age %v: expected %d, got %d (%v)", tc.age, tc.want, risk.Score, risk.Reasons)
		}
	}
}

func TestSuspiciousUsername(t *testing.T) {
	module := New(zap.NewNop())
	now := time.Unix(1_700_000_000, 0)

	event := moderation.Event{
		Kind:             moderation.EventJoin,
		GuildID:          "g1",
		AuthorID:         "not-a-snowflake",
		Username:         "Discord Staff",
		Timestamp:        now,
		AccountCreatedAt: now.Add(-365 * 24 * time.Hour),
	}
	risk := module.EvaluateAccount(event)
	if risk.Score != 15 {
		t.Fatalf("expected 15 for username only, got %d (%v)", risk.Score, risk.Reasons)
	}
}

func TestSnowflakeConsistency(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	created := now.Add(-30 * 24 * time.Hour)
	id := strconv.FormatUint(uint64(created.UnixMilli()-discordEpoch)<<22, 10)

	fromID, ok := SnowflakeTime(id)
	if !ok {
		t.Fatalf("expected snowflake parse")
	}
	if drift := fromID.Sub(created); drift > time.Second || drift < -time.Second {
		t.Fatalf("snowflake time drift %v", drift)
	}

	module := New(zap.NewNop())
	// Claimed creation matches the id: no consistency penalty.
	event := moderation.Event{
		Kind:             moderation.EventJoin,
		GuildID:          "g1",
		AuthorID:         id,
		Username:         "somebody",
		Timestamp:        now,
		AccountCreatedAt: created,
	}
	if risk := module.EvaluateAccount(event); risk.Score != 0 {
		t.Fatalf("expected 0 for consistent account, got %d (%v)", risk.Score, risk.Reasons)
	}

	// Claimed creation drifts beyond tolerance.
	event.AccountCreatedAt = created.Add(5 * time.Minute)
	if risk := module.EvaluateAccount(event); risk.Score != 20 {
		t.Fatalf("expected 20 for drifted account, got %d (%v)", risk.Score, risk.Reasons)
	}
}

func TestDisabledSecurity(t *testing.T) {
	module := New(zap.NewNop())
	_, links, mentions := securityConfig()
	result := module.Evaluate(message("free nitro discord.gg/x"), config.SecurityConfig{}, links, mentions)
	if result.Triggered {
		t.Fatalf("disabled detector must not trigger")
	}
}
