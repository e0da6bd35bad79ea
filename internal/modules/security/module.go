// Package security scores message text for scam/phishing signals and account
// metadata for bot-likeness.
package security

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/patterns"
	"github.com/Denny519/security-bot/internal/utils"
)

type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

func LevelFor(score int) ThreatLevel {
	switch {
	case score >= 80:
		return ThreatCritical
	case score >= 60:
		return ThreatHigh
	case score >= 30:
		return ThreatMedium
	default:
		return ThreatLow
	}
}

type Module struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Module {
	return &Module{logger: logger}
}

// Evaluate runs the message-threat pass: additive points per signal, mapped
// to a four-level threat rating.
func (m *Module) Evaluate(event moderation.Event, cfg config.SecurityConfig, links config.LinkConfig, mentions config.MentionConfig) moderation.DetectionResult {
	if !cfg.Enabled {
		return moderation.Disabled(moderation.CategorySecurity)
	}

	result := moderation.DetectionResult{Category: moderation.CategorySecurity}
	lower := strings.ToLower(event.Content)
	score := 0

	if invites := patterns.InviteLink.FindAllString(event.Content, -1); len(invites) > 0 {
		score += 30 * len(invites)
		result.Reasons = append(result.Reasons, fmt.Sprintf("%d invite link(s)", len(invites)))
	}

	for _, phrase := range patterns.NitroScamPhrases {
		if strings.Contains(lower, phrase) {
			score += 50
			result.Reasons = append(result.Reasons, "nitro scam phrasing")
			break
		}
	}

	if strings.Contains(lower, "click") && strings.Contains(lower, "link") {
		score += 40
		result.Reasons = append(result.Reasons, "phishing phrasing")
	}

	for _, phrase := range patterns.DMSolicitations {
		if strings.Contains(lower, phrase) {
			score += 25
			result.Reasons = append(result.Reasons, "dm solicitation")
			break
		}
	}

	if event.MentionsEveryone || (mentions.MaxMentions > 0 && len(event.MentionedUserIDs) > mentions.MaxMentions) {
		score += 35
		result.Reasons = append(result.Reasons, "mass mention")
	}

	if hits := m.suspiciousURLs(event.Content, links.Whitelist); hits > 0 {
		score += 45 * hits
		result.Reasons = append(result.Reasons, fmt.Sprintf("%d suspicious url(s)", hits))
	}

	result.Severity = score
	result.Confidence = capInt(score, 100)
	result.Triggered = len(result.Reasons) > 0
	if result.Triggered {
		result.Reasons = append(result.Reasons, "threat level "+string(LevelFor(score)))
	}
	return result
}

func (m *Module) suspiciousURLs(content string, whitelist []string) int {
	hits := 0
	for _, raw := range utils.ExtractURLs(content) {
		if patterns.BareIPURL.MatchString(raw) {
			hits++
			continue
		}
		host, err := utils.NormalizeHost(raw)
		if err != nil {
			continue
		}
		if utils.HostWhitelisted(host, whitelist) {
			continue
		}
		if hostSuspicious(host) || urlKeywordHit(raw) {
			hits++
		}
	}
	return hits
}

func hostSuspicious(host string) bool {
	for _, fragment := range patterns.SuspiciousDomains {
		if strings.Contains(host, fragment) {
			return true
		}
	}
	return false
}

func urlKeywordHit(raw string) bool {
	lower := strings.ToLower(raw)
	for _, keyword := range patterns.SuspiciousURLKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func capInt(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}
