// Package escalation maps detector findings and per-user violation history to
// graduated enforcement actions.
package escalation

import (
	"sync"
	"time"

	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/utils"
)

// ForgiveAfter is how long a user must stay quiet before their violation
// count hard-resets to zero. Checked lazily at read time.
const ForgiveAfter = time.Hour

type ViolationRecord struct {
	Count           int
	LastViolationAt time.Time
	LastReason      string
	LastSeverity    int
}

// Tier is one row of an escalation table: the action applies once either
// threshold is reached. Count thresholds run lower than severity thresholds
// so repeat minor offenders still escalate.
type Tier struct {
	Action      moderation.Action
	MinSeverity int
	MinCount    int
}

// Policy is an ordered escalation table, strongest action first. Each
// detector family supplies its own.
type Policy struct {
	Name  string
	Tiers []Tier
}

func DefaultPolicy() Policy {
	return Policy{
		Name: "default",
		Tiers: []Tier{
			{Action: moderation.ActionBan, MinSeverity: 80, MinCount: 5},
			{Action: moderation.ActionKick, MinSeverity: 60, MinCount: 3},
			{Action: moderation.ActionTimeout, MinSeverity: 40, MinCount: 2},
			{Action: moderation.ActionWarn, MinSeverity: 20, MinCount: 1},
		},
	}
}

// ContentPolicy works on the content filter's 1-4 word-severity scale.
func ContentPolicy() Policy {
	return Policy{
		Name: "content",
		Tiers: []Tier{
			{Action: moderation.ActionBan, MinSeverity: 4, MinCount: 5},
			{Action: moderation.ActionKick, MinSeverity: 3, MinCount: 4},
			{Action: moderation.ActionTimeout, MinSeverity: 2, MinCount: 2},
			{Action: moderation.ActionDelete, MinSeverity: 1, MinCount: 1},
		},
	}
}

type Engine struct {
	mu      sync.Mutex
	clock   utils.Clock
	records map[string]*ViolationRecord
}

func NewEngine() *Engine {
	return &Engine{
		clock:   utils.RealClock(),
		records: make(map[string]*ViolationRecord),
	}
}

func (e *Engine) WithClock(clock utils.Clock) {
	e.clock = clock
}

// RecordViolation increments the user's count and stores the latest finding.
// A record untouched for longer than ForgiveAfter restarts from zero.
func (e *Engine) RecordViolation(guildID, userID, reason string, severity int) ViolationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := guildID + ":" + userID
	now := e.clock.Now()

	record := e.records[key]
	if record == nil || now.Sub(record.LastViolationAt) > ForgiveAfter {
		record = &ViolationRecord{}
		e.records[key] = record
	}

	record.Count++
	record.LastViolationAt = now
	record.LastReason = reason
	record.LastSeverity = severity
	return *record
}

// Violations returns the current record, applying the lazy expiry reset.
func (e *Engine) Violations(guildID, userID string) ViolationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := guildID + ":" + userID
	record := e.records[key]
	if record == nil {
		return ViolationRecord{}
	}
	if e.clock.Now().Sub(record.LastViolationAt) > ForgiveAfter {
		delete(e.records, key)
		return ViolationRecord{}
	}
	return *record
}

// Decide evaluates instantaneous severity and cumulative count against the
// policy; whichever reaches a tier first wins.
func (e *Engine) Decide(guildID, userID string, severity int, policy Policy) moderation.Action {
	record := e.Violations(guildID, userID)
	for _, tier := range policy.Tiers {
		if severity >= tier.MinSeverity || (tier.MinCount > 0 && record.Count >= tier.MinCount) {
			return tier.Action
		}
	}
	return moderation.ActionNone
}

// Sweep drops records past the forgiveness horizon to bound memory.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for key, record := range e.records {
		if now.Sub(record.LastViolationAt) > ForgiveAfter {
			delete(e.records, key)
		}
	}
}
