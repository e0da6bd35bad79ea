// Package engine runs every detector over an inbound event and merges their
// verdicts into a single enforcement decision.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/escalation"
	"github.com/Denny519/security-bot/internal/metrics"
	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/modules/audit"
	"github.com/Denny519/security-bot/internal/modules/content"
	"github.com/Denny519/security-bot/internal/modules/raid"
	"github.com/Denny519/security-bot/internal/modules/security"
	"github.com/Denny519/security-bot/internal/modules/spam"
	"github.com/Denny519/security-bot/internal/storage"
)

const persistTimeout = 5 * time.Second

// Aggregator owns the detector set and the escalation state. Persistence and
// audit are optional collaborators; without them decisions are still made,
// just not recorded.
type Aggregator struct {
	logger     *zap.Logger
	spam       *spam.Module
	content    *content.Module
	security   *security.Module
	raid       *raid.Module
	escalation *escalation.Engine
	store      *storage.Store
	audit      *audit.Logger
}

func New(logger *zap.Logger, store *storage.Store, auditLog *audit.Logger) *Aggregator {
	securityModule := security.New(logger)
	return &Aggregator{
		logger:     logger,
		spam:       spam.New(logger),
		content:    content.New(logger),
		security:   securityModule,
		raid:       raid.New(logger, securityModule),
		escalation: escalation.NewEngine(),
		store:      store,
		audit:      auditLog,
	}
}

// Raid exposes the raid module so the host can wire its enforcement
// collaborator and query lockdown state.
func (a *Aggregator) Raid() *raid.Module {
	return a.raid
}

func (a *Aggregator) Escalation() *escalation.Engine {
	return a.escalation
}

// ProcessMessage runs the message-scoped detectors, escalates each triggered
// family and returns the merged decision. The decision is committed before
// any persistence happens; storage failures never change it.
func (a *Aggregator) ProcessMessage(ctx context.Context, event moderation.Event, cfg config.GuildConfig) (moderation.Decision, error) {
	if err := event.Validate(); err != nil {
		metrics.InvalidEventsTotal.Inc()
		return moderation.Decision{}, err
	}
	metrics.EventsTotal.WithLabelValues(string(moderation.EventMessage)).Inc()

	results := []moderation.DetectionResult{
		a.security.Evaluate(event, cfg.Security, cfg.Links, cfg.Mentions),
		a.content.Evaluate(event, cfg.ContentFilter),
		a.spam.Evaluate(event, cfg.Spam),
	}

	decision := moderation.Decision{
		ID:        uuid.NewString(),
		GuildID:   event.GuildID,
		UserID:    event.AuthorID,
		ChannelID: event.ChannelID,
		MessageID: event.MessageID,
		Action:    moderation.ActionNone,
	}

	for _, result := range results {
		if !result.Triggered {
			continue
		}
		metrics.DetectionsTotal.WithLabelValues(string(result.Category)).Inc()

		reason := strings.Join(result.Reasons, "; ")
		record := a.escalation.RecordViolation(event.GuildID, event.AuthorID, reason, result.Severity)
		action := a.escalation.Decide(event.GuildID, event.AuthorID, result.Severity, policyFor(result.Category))

		decision.Reasons = append(decision.Reasons, result.Reasons...)
		if action.AtLeast(decision.Action) {
			if action != decision.Action || result.Confidence > decision.Confidence {
				decision.Category = result.Category
				decision.Severity = result.Severity
				decision.Confidence = result.Confidence
			}
			decision.Action = action
		}
		decision.ViolationCount = record.Count
	}

	if decision.Action.AtLeast(moderation.ActionDelete) && event.MessageID != "" {
		decision.DeleteMessage = true
	}

	if decision.Action != moderation.ActionNone {
		metrics.ActionsTotal.WithLabelValues(string(decision.Action)).Inc()
		a.logger.Info("decision",
			zap.String("decision_id", decision.ID),
			zap.String("guild_id", decision.GuildID),
			zap.String("user_id", decision.UserID),
			zap.String("action", string(decision.Action)),
			zap.String("category", string(decision.Category)),
			zap.Int("confidence", decision.Confidence),
			zap.Int("violations", decision.ViolationCount))
		go a.persistDecision(decision)
	}
	return decision, nil
}

// ProcessJoin feeds the join into the raid correlator and returns its
// guild-level assessment.
func (a *Aggregator) ProcessJoin(ctx context.Context, event moderation.Event, cfg config.GuildConfig) (raid.Assessment, error) {
	if err := event.Validate(); err != nil {
		metrics.InvalidEventsTotal.Inc()
		return raid.Assessment{}, err
	}
	metrics.EventsTotal.WithLabelValues(string(moderation.EventJoin)).Inc()

	assessment := a.raid.EvaluateJoin(ctx, event, cfg.RaidProtection)
	if assessment.Declared {
		metrics.RaidsDeclaredTotal.Inc()
		metrics.DetectionsTotal.WithLabelValues(string(moderation.CategoryRaid)).Inc()
		if a.audit != nil {
			a.audit.Log(ctx, audit.LevelCrit, event.GuildID, "", "raid_declared",
				strings.Join(append(assessment.Reasons, assessment.Recommendations...), "; "))
		}
	}
	if assessment.LockdownStarted {
		metrics.LockdownsTotal.Inc()
	}
	return assessment, nil
}

// Sweep is the periodic cleanup pass; the host scheduler drives it.
func (a *Aggregator) Sweep() {
	a.spam.Sweep()
	a.content.Sweep()
	a.raid.Sweep()
	a.escalation.Sweep()
}

func (a *Aggregator) persistDecision(decision moderation.Decision) {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	record := storage.DetectionRecord{
		ID:         decision.ID,
		GuildID:    decision.GuildID,
		UserID:     decision.UserID,
		ChannelID:  decision.ChannelID,
		MessageID:  decision.MessageID,
		Category:   string(decision.Category),
		Action:     string(decision.Action),
		Confidence: decision.Confidence,
		Severity:   decision.Severity,
		Reasons:    strings.Join(decision.Reasons, "; "),
		CreatedAt:  time.Now(),
	}
	if err := a.store.AddDetection(ctx, record); err != nil {
		a.logger.Warn("detection persist failed", zap.String("decision_id", decision.ID), zap.Error(err))
	}
	if _, err := a.store.IncrementViolation(ctx, decision.GuildID, decision.UserID,
		string(decision.Category), record.Reasons, decision.Severity, escalation.ForgiveAfter); err != nil {
		a.logger.Warn("violation persist failed", zap.String("decision_id", decision.ID), zap.Error(err))
	}
}

func policyFor(category moderation.Category) escalation.Policy {
	if category == moderation.CategoryContent {
		return escalation.ContentPolicy()
	}
	return escalation.DefaultPolicy()
}
