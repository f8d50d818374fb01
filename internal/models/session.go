package models

import "time"

// Phase represents the state of a conflict session's pipeline run.
type Phase string

const (
	PhaseTriggered          Phase = "triggered"
	PhaseContextGathered    Phase = "context_gathered"
	PhaseAnalyzed           Phase = "analyzed"
	PhaseEscalated          Phase = "escalated"
	PhaseApplying           Phase = "applying"
	PhaseValidating         Phase = "validating"
	PhaseValidated          Phase = "validated"
	PhaseValidationTimedOut Phase = "validation_timed_out"
	PhaseNotified           Phase = "notified"
)

// Terminal reports whether the phase ends a session.
func (p Phase) Terminal() bool {
	return p == PhaseNotified
}

// TriggerReason describes why a conflict session was started.
type TriggerReason string

const (
	TriggerOpened  TriggerReason = "opened"
	TriggerUpdated TriggerReason = "updated"
	TriggerManual  TriggerReason = "manual"
)

// Outcome classifies how a session ended.
type Outcome string

const (
	OutcomeResolved          Outcome = "resolved"
	OutcomeEscalated         Outcome = "escalated"
	OutcomeApplyFailed       Outcome = "apply_failed"
	OutcomeValidationFailed  Outcome = "validation_failed"
	OutcomeValidationTimeout Outcome = "validation_timeout"
)

// ConflictSession represents one full pipeline run for a single
// pull-request trigger. A fresh trigger always creates a new session;
// stalled sessions are never resumed.
type ConflictSession struct {
	ID        string
	Owner     string
	Repo      string
	PRNumber  int
	Reason    TriggerReason
	Phase     Phase
	Outcome   Outcome
	Branch    string // resolution branch, set on the apply path
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
