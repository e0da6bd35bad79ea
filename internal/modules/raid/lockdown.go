package raid

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the pre-lockdown permission state captured by the enforcement
// collaborator. The module holds it opaquely while lockdown is active so the
// Inactive transition can restore it exactly.
type Snapshot any

// Enforcer applies and reverts the platform-side lockdown side effects.
type Enforcer interface {
	Lockdown(ctx context.Context, guildID string) (Snapshot, error)
	Restore(ctx context.Context, guildID string, snapshot Snapshot) error
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

// TriggerLockdown moves the guild Inactive -> Active. Returns false when
// lockdown is already active. The timer drives the automatic return to
// Inactive; Unlock handles the manual path.
func (m *Module) TriggerLockdown(ctx context.Context, guildID string, duration time.Duration) bool {
	m.mu.Lock()
	state := m.stateLocked(guildID)
	if state.lockdown {
		m.mu.Unlock()
		return false
	}
	state.lockdown = true
	m.mu.Unlock()

	var snapshot Snapshot
	if m.enforcer != nil {
		snap, err := m.enforcer.Lockdown(ctx, guildID)
		if err != nil {
			m.logger.Warn("lockdown apply failed", zap.String("guild_id", guildID), zap.Error(err))
		} else {
			snapshot = snap
		}
	}

	m.mu.Lock()
	state.snapshot = snapshot
	state.timer = m.clock.AfterFunc(duration, func() {
		m.Unlock(context.Background(), guildID)
	})
	m.mu.Unlock()

	m.logger.Info("lockdown active", zap.String("guild_id", guildID), zap.Duration("duration", duration))
	return true
}

// Unlock moves the guild Active -> Inactive, restoring the captured
// permission snapshot. Safe to call when no lockdown is active.
func (m *Module) Unlock(ctx context.Context, guildID string) {
	m.mu.Lock()
	state := m.states[guildID]
	if state == nil || !state.lockdown {
		m.mu.Unlock()
		return
	}
	state.lockdown = false
	state.raidActive = false
	snapshot := state.snapshot
	state.snapshot = nil
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	m.mu.Unlock()

	if m.enforcer != nil && snapshot != nil {
		if err := m.enforcer.Restore(ctx, guildID, snapshot); err != nil {
			m.logger.Warn("lockdown restore failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	m.logger.Info("lockdown ended", zap.String("guild_id", guildID))
}

// LockdownActive reports the state machine position for a guild.
func (m *Module) LockdownActive(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.states[guildID]
	return state != nil && state.lockdown
}
