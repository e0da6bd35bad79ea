package security

import (
	"strconv"
	"time"

	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/patterns"
)

// discordEpoch is the millisecond offset snowflake IDs count from. The
// ID-vs-claimed-creation consistency check only applies to platforms whose
// IDs encode a timestamp this way; non-numeric IDs skip it.
const discordEpoch = 1420070400000

const snowflakeTolerance = time.Minute

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func riskLevelFor(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AccountRisk is the account-metadata verdict, consumed standalone for join
// analysis and as raid-detector input.
type AccountRisk struct {
	Score   int
	Level   RiskLevel
	Reasons []string
}

func (r AccountRisk) Suspicious() bool {
	return r.Score > 30
}

// EvaluateAccount scores account metadata: age brackets, username patterns,
// default avatar, and snowflake consistency. Ages are measured at the event
// timestamp so replayed history scores identically.
func (m *Module) EvaluateAccount(event moderation.Event) AccountRisk {
	risk := AccountRisk{}

	created := event.AccountCreatedAt
	if created.IsZero() {
		if fromID, ok := SnowflakeTime(event.AuthorID); ok {
			created = fromID
		}
	}
	if !created.IsZero() {
		age := event.Timestamp.Sub(created)
		switch {
		case age < time.Hour:
			risk.Score += 40
			risk.Reasons = append(risk.Reasons, "account younger than 1 hour")
		case age < 24*time.Hour:
			risk.Score += 25
			risk.Reasons = append(risk.Reasons, "account younger than 24 hours")
		case age < 7*24*time.Hour:
			risk.Score += 10
			risk.Reasons = append(risk.Reasons, "account younger than 7 days")
		}
	}

	for _, pattern := range patterns.SuspiciousUsernames {
		if pattern.MatchString(event.Username) {
			risk.Score += 15
			risk.Reasons = append(risk.Reasons, "suspicious username")
			break
		}
	}

	if event.HasDefaultAvatar {
		risk.Score += 10
		risk.Reasons = append(risk.Reasons, "default avatar")
	}

	if fromID, ok := SnowflakeTime(event.AuthorID); ok && !event.AccountCreatedAt.IsZero() {
		drift := event.AccountCreatedAt.Sub(fromID)
		if drift < 0 {
			drift = -drift
		}
		if drift > snowflakeTolerance {
			risk.Score += 20
			risk.Reasons = append(risk.Reasons, "claimed creation time disagrees with id")
		}
	}

	risk.Level = riskLevelFor(risk.Score)
	return risk
}

// SnowflakeTime extracts the creation timestamp embedded in a snowflake ID.
func SnowflakeTime(id string) (time.Time, bool) {
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil || parsed == 0 {
		return time.Time{}, false
	}
	ms := int64(parsed>>22) + discordEpoch
	return time.UnixMilli(ms), true
}

// AccountResult adapts the account verdict into the generic result shape
// used by join processing.
func (m *Module) AccountResult(event moderation.Event) moderation.DetectionResult {
	risk := m.EvaluateAccount(event)
	return moderation.DetectionResult{
		Triggered:  risk.Score >= 25,
		Category:   moderation.CategorySecurity,
		Confidence: capInt(risk.Score, 100),
		Severity:   risk.Score,
		Reasons:    risk.Reasons,
	}
}
