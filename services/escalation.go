package services

import (
	"time"

	"line-register-bot/models"
)

// EscalationPolicy configures the warn-then-block ladder
type EscalationPolicy struct {
	Threshold     int
	BlockDuration time.Duration
}

// DefaultEscalationPolicy blocks for 3 minutes after 3 flagged messages
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{Threshold: 3, BlockDuration: 3 * time.Minute}
}

// Escalation is what the tracker decided for one flagged message
type Escalation struct {
	Blocked      bool
	Count        int // running count after this message; 0 once blocked
	Threshold    int
	BlockedUntil time.Time
}

// EscalationTracker turns repeated moderation failures into a temporary block
// All decisions are made relative to the now passed in; there is no timer
type EscalationTracker struct {
	policy EscalationPolicy
}

// NewEscalationTracker creates a tracker for the given policy
func NewEscalationTracker(policy EscalationPolicy) *EscalationTracker {
	return &EscalationTracker{policy: policy}
}

// Gate is called first for every inbound message. While the block is active it
// returns the remaining duration and leaves rec untouched. A lapsed block is
// cleared together with the bad counter, and lapsed reports true so the caller
// knows rec changed
func (t *EscalationTracker) Gate(rec *models.UserRecord, now time.Time) (remaining time.Duration, lapsed bool) {
	until := rec.Moderation.BlockedUntil
	if until == nil {
		return 0, false
	}
	if now.Before(*until) {
		return until.Sub(now), false
	}
	rec.Moderation.BlockedUntil = nil
	rec.Moderation.BadCount = 0
	return 0, true
}

// Register records one spam/profane message and blocks the user once the
// threshold is reached
func (t *EscalationTracker) Register(rec *models.UserRecord, now time.Time) Escalation {
	rec.Moderation.BadCount++
	if rec.Moderation.BadCount < t.policy.Threshold {
		return Escalation{Count: rec.Moderation.BadCount, Threshold: t.policy.Threshold}
	}
	until := now.Add(t.policy.BlockDuration)
	rec.Moderation.BlockedUntil = &until
	rec.Moderation.BadCount = 0
	return Escalation{Blocked: true, Threshold: t.policy.Threshold, BlockedUntil: until}
}
