package spam

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func spamConfig() config.SpamConfig {
	return config.SpamConfig{Enabled: true, MaxDuplicateMessages: 3, MaxMessagesPerMinute: 10}
}

func message(content string, at time.Time) moderation.Event {
	return moderation.Event{
		Kind:      moderation.EventMessage,
		GuildID:   "g1",
		AuthorID:  "u1",
		Timestamp: at,
		Content:   content,
	}
}

func TestDuplicateThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module := New(zap.NewNop())
	module.WithClock(clock)
	cfg := spamConfig()

	// maxDuplicateMessages sends stay clean; the N+1th triggers.
	for i := 0; i < cfg.MaxDuplicateMessages; i++ {
		result := module.Evaluate(message("buy my stuff", clock.now), cfg)
		if result.Triggered {
			t.Fatalf("send %d should not trigger: %v", i+1, result.Reasons)
		}
		clock.now = clock.now.Add(20 * time.Second)
	}
	result := module.Evaluate(message("buy my stuff", clock.now), cfg)
	if !result.Triggered {
		t.Fatalf("expected duplicate trigger on send %d", cfg.MaxDuplicateMessages+1)
	}
}

func TestDuplicateScenario(t *testing.T) {
	// "hello" 3 times in 10 seconds with maxDuplicateMessages=1: the 2nd send
	// scores confidence 40 severity 30, the 3rd confidence 60, and burst does
	// not contribute with only 3 messages.
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module := New(zap.NewNop())
	module.WithClock(clock)
	cfg := config.SpamConfig{Enabled: true, MaxDuplicateMessages: 1, MaxMessagesPerMinute: 20}

	if result := module.Evaluate(message("hello", clock.now), cfg); result.Triggered {
		t.Fatalf("first send should be clean")
	}

	clock.now = clock.now.Add(4 * time.Second)
	second := module.Evaluate(message("hello", clock.now), cfg)
	if !second.Triggered || second.Confidence != 40 || second.Severity != 30 {
		t.Fatalf("second send: expected 40/30, got %d/%d triggered=%t", second.Confidence, second.Severity, second.Triggered)
	}

	clock.now = clock.now.Add(4 * time.Second)
	third := module.Evaluate(message("hello", clock.now), cfg)
	if third.Confidence != 60 {
		t.Fatalf("third send: expected confidence 60, got %d", third.Confidence)
	}
	for _, reason := range third.Reasons {
		if strings.Contains(reason, "burst") {
			t.Fatalf("burst should not trigger with 3 messages: %v", third.Reasons)
		}
	}
}

func TestFrequencyAndBurst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module := New(zap.NewNop())
	module.WithClock(clock)
	cfg := config.SpamConfig{Enabled: true, MaxDuplicateMessages: 50, MaxMessagesPerMinute: 4}

	var last moderation.DetectionResult
	for i := 0; i < 6; i++ {
		last = module.Evaluate(message(strings.Repeat("m", i+1), clock.now), cfg)
		clock.now = clock.now.Add(time.Second)
	}
	if !last.Triggered {
		t.Fatalf("expected frequency trigger")
	}
	foundFrequency, foundBurst := false, false
	for _, reason := range last.Reasons {
		if strings.Contains(reason, "last minute") {
			foundFrequency = true
		}
		if strings.Contains(reason, "burst") {
			foundBurst = true
		}
	}
	if !foundFrequency || !foundBurst {
		t.Fatalf("expected frequency and burst reasons, got %v", last.Reasons)
	}
}

func TestPatternChecks(t *testing.T) {
	module := New(zap.NewNop())
	module.WithClock(&fakeClock{now: time.Unix(1000, 0)})
	cfg := spamConfig()

	cases := []struct {
		name    string
		content string
		hint    string
	}{
		{"repeat run", "aaaaaaaa ok", "repeated character"},
		{"caps", "STOPSCAMMINGEVERYONE RIGHT NOW PLEASE", "capitalization"},
		{"emoji", "🚀🚀🚀🚀🚀🚀🚀🚀🚀🚀🚀", "emoji"},
		{"byte order marks", "o\ufeffk\ufeff \ufefft\ufeffh\ufeffe\ufeffn", "invisible"},
		{"zero width", "h​i​ ​t​h​e​r​e", "invisible"},
	}
	for _, tc := range cases {
		event := message(tc.content, time.Unix(1000, 0))
		event.AuthorID = "user-" + tc.name
		result := module.Evaluate(event, cfg)
		if !result.Triggered {
			t.Fatalf("%s: expected trigger", tc.name)
		}
		found := false
		for _, reason := range result.Reasons {
			if strings.Contains(reason, tc.hint) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s: expected reason containing %q, got %v", tc.name, tc.hint, result.Reasons)
		}
	}
}

func TestSimilarityCheck(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module := New(zap.NewNop())
	module.WithClock(clock)
	cfg := spamConfig()

	module.Evaluate(message("join my server for free stuff today", clock.now), cfg)
	clock.now = clock.now.Add(30 * time.Second)
	result := module.Evaluate(message("join my server for free stuff toda", clock.now), cfg)
	if !result.Triggered {
		t.Fatalf("expected similarity trigger")
	}
	found := false
	for _, reason := range result.Reasons {
		if strings.Contains(reason, "near-duplicate") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected near-duplicate reason, got %v", result.Reasons)
	}
}

func TestDisabledConfig(t *testing.T) {
	module := New(zap.NewNop())
	result := module.Evaluate(message("hi", time.Unix(1000, 0)), config.SpamConfig{Enabled: false})
	if result.Triggered {
		t.Fatalf("disabled detector must not trigger")
	}
	// Missing thresholds fail closed too.
	result = module.Evaluate(message("hi", time.Unix(1000, 0)), config.SpamConfig{Enabled: true})
	if result.Triggered {
		t.Fatalf("unconfigured detector must fail closed")
	}
}
