package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
)

func message(content string, at time.Time) moderation.Event {
	return moderation.Event{
		Kind:      moderation.EventMessage,
		GuildID:   "g1",
		AuthorID:  "u1",
		ChannelID: "c1",
		MessageID: "m1",
		Timestamp: at,
		Content:   content,
	}
}

func TestCleanMessage(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)
	cfg := config.DefaultGuildConfig()

	decision, err := aggregator.ProcessMessage(context.Background(), message("good morning everyone", time.Now()), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if decision.Action != moderation.ActionNone || decision.DeleteMessage {
		t.Fatalf("expected no action, got %+v", decision)
	}
	if decision.ID == "" {
		t.Fatalf("expected decision id")
	}
}

func TestInvalidEvent(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)

	_, err := aggregator.ProcessMessage(context.Background(), moderation.Event{Content: "hi"}, config.DefaultGuildConfig())
	if !errors.Is(err, moderation.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	_, err = aggregator.ProcessJoin(context.Background(), moderation.Event{}, config.DefaultGuildConfig())
	if !errors.Is(err, moderation.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestDuplicateSpamEscalates(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)
	cfg := config.DefaultGuildConfig()
	cfg.Spam.MaxDuplicateMessages = 1

	now := time.Now()
	first, err := aggregator.ProcessMessage(context.Background(), message("hello", now), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if first.Action != moderation.ActionNone {
		t.Fatalf("first send must pass, got %s", first.Action)
	}

	second, err := aggregator.ProcessMessage(context.Background(), message("hello", now.Add(time.Second)), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if second.Action != moderation.ActionWarn {
		t.Fatalf("expected warn on second duplicate, got %s", second.Action)
	}
	if second.Category != moderation.CategorySpam || second.ViolationCount != 1 {
		t.Fatalf("unexpected decision: %+v", second)
	}

	third, err := aggregator.ProcessMessage(context.Background(), message("hello", now.Add(2*time.Second)), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if third.Action != moderation.ActionTimeout {
		t.Fatalf("expected timeout on third duplicate, got %s", third.Action)
	}
	if third.ViolationCount != 2 {
		t.Fatalf("expected violation count 2, got %d", third.ViolationCount)
	}
}

func TestProfanityDeletesMessage(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)
	cfg := config.DefaultGuildConfig()

	decision, err := aggregator.ProcessMessage(context.Background(), message("well damn", time.Now()), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if decision.Action != moderation.ActionDelete || !decision.DeleteMessage {
		t.Fatalf("expected delete, got %+v", decision)
	}
	if decision.Category != moderation.CategoryContent {
		t.Fatalf("expected content category, got %s", decision.Category)
	}
}

func TestNitroScamBansImmediately(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)
	cfg := config.DefaultGuildConfig()

	decision, err := aggregator.ProcessMessage(context.Background(),
		message("free nitro here, click here to claim https://dlscord-nitro.xyz/gift", time.Now()), cfg)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if decision.Action != moderation.ActionBan {
		t.Fatalf("expected ban for critical threat, got %s", decision.Action)
	}
	if decision.Category != moderation.CategorySecurity {
		t.Fatalf("expected security category, got %s", decision.Category)
	}
}

func TestProcessJoinDeclaresRaid(t *testing.T) {
	aggregator := New(zap.NewNop(), nil, nil)
	cfg := config.DefaultGuildConfig()

	now := time.Now()
	var declared int
	for i := 0; i < 6; i++ {
		event := moderation.Event{
			Kind:             moderation.EventJoin,
			GuildID:          "g1",
			AuthorID:         fmt.Sprintf("joiner-%d", i),
			Username:         fmt.Sprintf("member%c", 'a'+rune(i)),
			Timestamp:        now.Add(time.Duration(i) * time.Second),
			AccountCreatedAt: now.Add(-30 * time.Minute),
		}
		assessment, err := aggregator.ProcessJoin(context.Background(), event, cfg)
		if err != nil {
			t.Fatalf("process join: %v", err)
		}
		if assessment.Declared {
			declared++
		}
	}
	if declared != 1 {
		t.Fatalf("expected exactly one declaration, got %d", declared)
	}
	if !aggregator.Raid().RaidActive("g1") {
		t.Fatalf("expected raid still active")
	}
}
