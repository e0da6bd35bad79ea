// Package spam scores messages against duplicate, frequency, burst, pattern
// and similarity signals over a rolling per-user window.
package spam

import (
	"fmt"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/utils"
)

const (
	retention          = 5 * time.Minute
	burstWindow        = 10 * time.Second
	minuteWindow       = time.Minute
	burstThreshold     = 5
	similarityLookback = 5
)

type Module struct {
	window *utils.ActivityWindow[string]
	logger *zap.Logger
}

func New(logger *zap.Logger) *Module {
	return &Module{
		window: utils.NewActivityWindow[string](retention),
		logger: logger,
	}
}

func (m *Module) WithClock(clock utils.Clock) {
	m.window.WithClock(clock)
}

// Evaluate scores one message. Sub-check confidences are additive and capped
// at 100; severities are additive and uncapped because the escalation engine
// owns the final mapping.
func (m *Module) Evaluate(event moderation.Event, cfg config.SpamConfig) moderation.DetectionResult {
	if !cfg.Enabled || cfg.MaxDuplicateMessages <= 0 || cfg.MaxMessagesPerMinute <= 0 {
		return moderation.Disabled(moderation.CategorySpam)
	}

	key := event.GuildID + ":" + event.AuthorID
	prior := m.window.Recent(key, retention)
	if !m.window.RecordAt(key, event.Timestamp, event.Content) {
		// Out-of-order entry: dropped, window state stays intact.
		m.logger.Warn("out-of-order message dropped from spam window",
			zap.String("guild_id", event.GuildID), zap.String("user_id", event.AuthorID))
	}

	result := moderation.DetectionResult{Category: moderation.CategorySpam}
	confidence := 0

	// Duplicate check: exact matches in the window, current message included.
	duplicates := 1
	for _, entry := range prior {
		if entry.Payload == event.Content {
			duplicates++
		}
	}
	if duplicates > cfg.MaxDuplicateMessages {
		confidence += capInt(duplicates*20, 80)
		result.Severity += capInt(duplicates*15, 60)
		result.Reasons = append(result.Reasons, fmt.Sprintf("duplicate message x%d", duplicates))
	}

	// Frequency over the trailing minute.
	perMinute := 1
	perBurst := 1
	for _, entry := range prior {
		age := event.Timestamp.Sub(entry.At)
		if age <= minuteWindow {
			perMinute++
		}
		if age <= burstWindow {
			perBurst++
		}
	}
	if overflow := perMinute - cfg.MaxMessagesPerMinute; overflow > 0 {
		confidence += capInt(overflow*10, 70)
		result.Severity += capInt(overflow*8, 50)
		result.Reasons = append(result.Reasons, fmt.Sprintf("%d messages in the last minute", perMinute))
	}
	if perBurst >= burstThreshold {
		confidence += capInt(perBurst*8, 40)
		result.Severity += capInt(perBurst*6, 30)
		result.Reasons = append(result.Reasons, fmt.Sprintf("burst of %d messages in 10s", perBurst))
	}

	patternConf, patternSev, patternReasons := scorePatterns(event.Content)
	confidence += patternConf
	result.Severity += patternSev
	result.Reasons = append(result.Reasons, patternReasons...)

	simConf, simSev, simReason := m.scoreSimilarity(event.Content, prior)
	confidence += simConf
	result.Severity += simSev
	if simReason != "" {
		result.Reasons = append(result.Reasons, simReason)
	}

	result.Confidence = capInt(confidence, 100)
	result.Triggered = len(result.Reasons) > 0
	return result
}

// Sweep drops idle user windows; the host scheduler calls it periodically.
func (m *Module) Sweep() {
	m.window.Sweep(retention)
}

func (m *Module) scoreSimilarity(content string, prior []utils.Entry[string]) (int, int, string) {
	if content == "" || len(prior) == 0 {
		return 0, 0, ""
	}

	start := len(prior) - similarityLookback
	if start < 0 {
		start = 0
	}

	maxSim := 0.0
	nearMatches := 0
	for _, entry := range prior[start:] {
		if entry.Payload == content {
			continue
		}
		sim := utils.Similarity(content, entry.Payload)
		if sim > maxSim {
			maxSim = sim
		}
		if sim > 0.8 {
			nearMatches++
		}
	}

	if maxSim > 0.85 || nearMatches >= 2 {
		conf := capInt(int(maxSim*60), 50)
		sev := capInt(int(maxSim*40), 35)
		return conf, sev, fmt.Sprintf("near-duplicate messages (similarity %.2f)", maxSim)
	}
	return 0, 0, ""
}

func scorePatterns(content string) (int, int, []string) {
	conf, sev := 0, 0
	var reasons []string

	if run := longestRepeatRun(content); run >= 5 {
		conf += 25
		sev += 20
		reasons = append(reasons, fmt.Sprintf("repeated character run of %d", run))
	}

	runes := []rune(content)
	if len(runes) > 20 {
		upper, letters, upperRun := 0, 0, 0
		run := 0
		for _, r := range runes {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
					run++
					if run > upperRun {
						upperRun = run
					}
					continue
				}
			}
			run = 0
		}
		if upperRun >= 10 && letters > 0 && float64(upper)/float64(letters) > 0.7 {
			conf += 20
			sev += 15
			reasons = append(reasons, "excessive capitalization")
		}
	}

	if n := countEmoji(content); n > 10 {
		conf += 30
		sev += 25
		reasons = append(reasons, fmt.Sprintf("%d emoji", n))
	}

	if n := countCombining(content); n > 20 {
		conf += 35
		sev += 35
		reasons = append(reasons, "zalgo text")
	}

	if n := countInvisible(content); n > 5 {
		conf += 35
		sev += 30
		reasons = append(reasons, fmt.Sprintf("%d invisible characters", n))
	}

	return conf, sev, reasons
}

func longestRepeatRun(content string) int {
	best, run := 0, 0
	var prev rune
	for i, r := range content {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = r
	}
	return best
}

func countEmoji(content string) int {
	n := 0
	for _, r := range content {
		if (r >= 0x1F000 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF) || r == 0x2764 {
			n++
		}
	}
	return n
}

func countCombining(content string) int {
	n := 0
	for _, r := range content {
		if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) {
			n++
		}
	}
	return n
}

var invisibleRunes = map[rune]struct{}{
	'\u200b': {}, '\u200c': {}, '\u200d': {}, '\u200e': {}, '\u200f': {},
	'\u2060': {}, '\u2061': {}, '\u2062': {}, '\u2063': {}, '\ufeff': {},
}

func countInvisible(content string) int {
	n := 0
	for _, r := range content {
		if _, ok := invisibleRunes[r]; ok {
			n++
		}
	}
	return n
}

func capInt(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}
