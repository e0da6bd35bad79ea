package content

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

func filterConfig() config.ContentFilterConfig {
	return config.ContentFilterConfig{
		Enabled:     true,
		Languages:   []string{"en"},
		MaxFileSize: 1 << 20,
	}
}

func message(content string) moderation.Event {
	return moderation.Event{
		Kind:      moderation.EventMessage,
		GuildID:   "g1",
		AuthorID:  "u1",
		Timestamp: time.Unix(1000, 0),
		Content:   content,
	}
}

func TestBuiltinWordExact(t *testing.T) {
	module := New(zap.NewNop())
	result := module.Evaluate(message("what the shit"), filterConfig())
	if !result.Triggered {
		t.Fatalf("expected detection")
	}
	if result.Severity < 1 || result.Severity > 4 {
		t.Fatalf("severity out of tier range: %d", result.Severity)
	}
}

func TestBuiltinWordEvasion(t *testing.T) {
	module := New(zap.NewNop())
	result := module.Evaluate(message("what the sh1t"), filterConfig())
	if !result.Triggered {
		t.Fatalf("expected leetspeak detection for built-in word")
	}
	found := false
	for _, reason := range result.Reasons {
		if strings.Contains(reason, "evasion") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected evasion match, got %v", result.Reasons)
	}
}

func TestCustomWordExactOnly(t *testing.T) {
	module := New(zap.NewNop())
	cfg := filterConfig()
	cfg.Languages = nil
	cfg.CustomWords = []string{"flooble"}

	if result := module.Evaluate(message("you total FLOOBLE"), cfg); !result.Triggered {
		t.Fatalf("expected custom word detection")
	}
	// Custom words never fuzzy-match leetspeak variants.
	if result := module.Evaluate(message("you total fl00ble"), cfg); result.Triggered {
		t.Fatalf("custom words must not leet-match: %v", result.Reasons)
	}
}

func TestStrictModeStopsAfterFirst(t *testing.T) {
	module := New(zap.NewNop())
	cfg := filterConfig()
	cfg.StrictMode = true

	result := module.Evaluate(message("shit fuck damn"), cfg)
	if !result.Triggered {
		t.Fatalf("expected detection")
	}
	if len(result.Reasons) != 1 {
		t.Fatalf("strict mode should stop after first detection, got %v", result.Reasons)
	}
}

func TestWhitelistBypass(t *testing.T) {
	module := New(zap.NewNop())
	cfg := filterConfig()
	cfg.Whitelist = []string{"u1"}

	result := module.Evaluate(message("shit fuck"), cfg)
	if result.Triggered {
		t.Fatalf("whitelisted user must bypass analysis")
	}
}

func TestAttachmentScoring(t *testing.T) {
	module := New(zap.NewNop())
	cfg := filterConfig()

	event := message("")
	event.Attachments = []moderation.Attachment{
		{Filename: "photo.jpg.exe", Size: 100},
	}
	result := module.Evaluate(event, cfg)
	if !result.Triggered {
		t.Fatalf("expected attachment detection")
	}
	if result.Severity != 3 {
		t.Fatalf("masquerading executable should score severity 3, got %d", result.Severity)
	}

	event.Attachments = []moderation.Attachment{
		{Filename: "big.png", Size: 2 << 20},
	}
	result = module.Evaluate(event, cfg)
	if !result.Triggered {
		t.Fatalf("expected oversize detection")
	}

	event.Attachments = []moderation.Attachment{
		{Filename: "free_nitro_generator.zip", Size: 10},
	}
	result = module.Evaluate(event, cfg)
	if !result.Triggered {
		t.Fatalf("expected keyword detection")
	}

	// Compound findings accumulate confidence, but severity stays on the
	// word-tier scale: the strongest finding wins, findings never stack
	// past their tier.
	event.Attachments = []moderation.Attachment{
		{Filename: "photo.jpg.exe", Size: 100},
		{Filename: "free_nitro_generator.zip", Size: 100},
	}
	result = module.Evaluate(event, cfg)
	if result.Severity != 3 {
		t.Fatalf("expected severity pinned at strongest tier 3, got %d", result.Severity)
	}
	if result.Confidence != 100 {
		t.Fatalf("expected compound confidence capped at 100, got %d", result.Confidence)
	}
	if len(result.Reasons) < 3 {
		t.Fatalf("expected every finding reported, got %v", result.Reasons)
	}
}

func TestResultCache(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	module := New(zap.NewNop())
	module.WithClock(clock)
	cfg := filterConfig()

	first := module.Evaluate(message("shit happens"), cfg)
	second := module.Evaluate(message("shit happens"), cfg)
	if first.Triggered != second.Triggered || first.Severity != second.Severity {
		t.Fatalf("cached result mismatch: %+v vs %+v", first, second)
	}

	module.cache.mu.Lock()
	size := len(module.cache.entries)
	module.cache.mu.Unlock()
	if size != 1 {
		t.Fatalf("expected one cache entry, got %d", size)
	}

	clock.now = clock.now.Add(cacheTTL + time.Minute)
	module.Sweep()
	module.cache.mu.Lock()
	size = len(module.cache.entries)
	module.cache.mu.Unlock()
	if size != 0 {
		t.Fatalf("expected cache swept, got %d entries", size)
	}
}

func TestDisabled(t *testing.T) {
	module := New(zap.NewNop())
	result := module.Evaluate(message("shit"), config.ContentFilterConfig{Enabled: false})
	if result.Triggered {
		t.Fatalf("disabled filter must not trigger")
	}
}
