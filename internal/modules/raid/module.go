// Package raid correlates guild join events to detect coordinated raids and
// drives the lockdown state machine.
package raid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/modules/security"
	"github.com/Denny519/security-bot/internal/utils"
)

const (
	windowRetention    = 10 * time.Minute
	alertCooldown      = 5 * time.Minute
	usernameSimilarity = 0.8
)

type JoinSample struct {
	UserID     string
	Username   string
	AccountAge time.Duration
	RiskScore  int
	Suspicious bool
}

// Assessment is the guild-level verdict for one join.
type Assessment struct {
	IsRaid          bool
	Confidence      int
	JoinCount       int
	Reasons         []string
	Recommendations []string
	AccountRisk     security.AccountRisk
	SuspiciousJoin  bool
	Declared        bool
	AlertDue        bool
	LockdownStarted bool
}

type guildState struct {
	raidActive  bool
	lockdown    bool
	snapshot    Snapshot
	lastAlertAt time.Time
	timer       Timer
}

type Module struct {
	mu       sync.Mutex
	logger   *zap.Logger
	security *security.Module
	clock    Clock
	joins    *utils.ActivityWindow[JoinSample]
	states   map[string]*guildState
	enforcer Enforcer
}

func New(logger *zap.Logger, securityModule *security.Module) *Module {
	m := &Module{
		logger:   logger,
		security: securityModule,
		clock:    realClock{},
		joins:    utils.NewActivityWindow[JoinSample](windowRetention),
		states:   make(map[string]*guildState),
	}
	m.joins.WithClock(m.clock)
	return m
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
	m.joins.WithClock(clock)
}

// SetEnforcer wires the external collaborator that applies and reverts the
// actual permission changes.
func (m *Module) SetEnforcer(enforcer Enforcer) {
	m.enforcer = enforcer
}

// EvaluateJoin scores the joining account, appends it to the guild window and
// evaluates the raid conditions over the pruned window.
func (m *Module) EvaluateJoin(ctx context.Context, event moderation.Event, cfg config.RaidConfig) Assessment {
	if !cfg.Enabled || cfg.JoinThreshold <= 0 || cfg.TimeWindowSeconds <= 0 {
		return Assessment{Reasons: []string{"detector disabled"}}
	}

	window := time.Duration(cfg.TimeWindowSeconds) * time.Second
	risk := m.security.EvaluateAccount(event)

	prior := m.joins.Recent(event.GuildID, window)
	coordinated := false
	for _, entry := range prior {
		if entry.Payload.UserID == event.AuthorID {
			continue
		}
		if utils.Similarity(event.Username, entry.Payload.Username) >= usernameSimilarity {
			coordinated = true
			break
		}
	}

	accountAge := time.Duration(-1)
	if created := accountCreation(event); !created.IsZero() {
		accountAge = event.Timestamp.Sub(created)
	}

	sample := JoinSample{
		UserID:     event.AuthorID,
		Username:   event.Username,
		AccountAge: accountAge,
		RiskScore:  risk.Score,
		Suspicious: risk.Suspicious() || coordinated,
	}
	if !m.joins.RecordAt(event.GuildID, event.Timestamp, sample) {
		m.logger.Warn("out-of-order join dropped from raid window",
			zap.String("guild_id", event.GuildID), zap.String("user_id", event.AuthorID))
	}

	samples := m.joins.Recent(event.GuildID, window)
	assessment := Assessment{
		JoinCount:      len(samples),
		AccountRisk:    risk,
		SuspiciousJoin: sample.Suspicious,
	}
	if coordinated {
		assessment.Reasons = append(assessment.Reasons, "username similar to other recent joins")
	}

	confidence := 0
	count := len(samples)
	if count >= cfg.JoinThreshold {
		confidence += 30
		assessment.Reasons = append(assessment.Reasons, fmt.Sprintf("%d joins within %ds", count, cfg.TimeWindowSeconds))
	}

	risky, young, total := 0, 0, 0
	for _, entry := range samples {
		total += entry.Payload.RiskScore
		if entry.Payload.RiskScore > 30 {
			risky++
		}
		if entry.Payload.AccountAge >= 0 && entry.Payload.AccountAge < 24*time.Hour {
			young++
		}
	}
	if count > 0 {
		if risky*100 >= 60*count {
			confidence += 40
			assessment.Recommendations = append(assessment.Recommendations, "enable verification requirements")
		}
		if total > 40*count {
			confidence += 30
			assessment.Recommendations = append(assessment.Recommendations, "restrict new member permissions")
		}
		if young*100 >= 70*count {
			confidence += 35
			assessment.Recommendations = append(assessment.Recommendations, "gate joins on minimum account age")
		}
	}

	assessment.Confidence = confidence
	assessment.IsRaid = count >= cfg.JoinThreshold && confidence >= 60
	if assessment.IsRaid {
		m.declareRaid(ctx, event.GuildID, cfg, &assessment)
	} else {
		m.clearRaidIfQuiet(event.GuildID)
	}
	return assessment
}

// declareRaid is idempotent while a raid is already active and rate-limits
// alert emission to one per cooldown window.
func (m *Module) declareRaid(ctx context.Context, guildID string, cfg config.RaidConfig, assessment *Assessment) {
	m.mu.Lock()
	state := m.stateLocked(guildID)
	firstDeclare := !state.raidActive
	state.raidActive = true
	assessment.Declared = firstDeclare

	now := m.clock.Now()
	if cfg.Actions.Alert && (state.lastAlertAt.IsZero() || now.Sub(state.lastAlertAt) >= alertCooldown) {
		state.lastAlertAt = now
		assessment.AlertDue = true
	}
	m.mu.Unlock()

	if firstDeclare && cfg.Actions.Lockdown {
		minutes := cfg.Actions.LockdownMinutes
		if minutes <= 0 {
			minutes = 10
		}
		if m.TriggerLockdown(ctx, guildID, time.Duration(minutes)*time.Minute) {
			assessment.LockdownStarted = true
		}
	}
}

func (m *Module) clearRaidIfQuiet(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.states[guildID]
	if state != nil && state.raidActive && !state.lockdown {
		state.raidActive = false
	}
}

// RaidActive reports whether a declared raid is still in effect.
func (m *Module) RaidActive(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.states[guildID]
	return state != nil && state.raidActive
}

// Sweep drops idle join windows; the host scheduler calls it periodically.
func (m *Module) Sweep() {
	m.joins.Sweep(windowRetention)
}

func (m *Module) stateLocked(guildID string) *guildState {
	state := m.states[guildID]
	if state == nil {
		state = &guildState{}
		m.states[guildID] = state
	}
	return state
}

func accountCreation(event moderation.Event) time.Time {
	if !event.AccountCreatedAt.IsZero() {
		return event.AccountCreatedAt
	}
	if fromID, ok := security.SnowflakeTime(event.AuthorID); ok {
		return fromID
	}
	return time.Time{}
}
