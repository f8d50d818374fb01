// Package orchestrator owns per-pull-request conflict sessions and
// sequences the resolution pipeline:
//
//	TRIGGERED -> CONTEXT_GATHERED -> ANALYZED ->
//	  ESCALATED -> NOTIFIED
//	  APPLYING -> VALIDATING -> VALIDATED | VALIDATION_TIMED_OUT -> NOTIFIED
//
// Sessions for different pull requests are independent and may run
// concurrently. A fresh trigger always starts a new session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattsre/conflux/internal/aggregate"
	"github.com/mattsre/conflux/internal/analyzer"
	"github.com/mattsre/conflux/internal/applier"
	"github.com/mattsre/conflux/internal/escalate"
	"github.com/mattsre/conflux/internal/gate"
	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/notify"
	"github.com/mattsre/conflux/internal/poller"
	"github.com/mattsre/conflux/internal/store"
)

// ResolveCommand is the comment command that manually triggers a run.
const ResolveCommand = "/resolve-conflicts"

// Config holds orchestrator tuning knobs.
type Config struct {
	ConfidenceThreshold int
	ForceThreshold      int // used instead of ConfidenceThreshold on forced manual triggers
	ValidationTimeout   time.Duration
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: gate.DefaultThreshold,
		ForceThreshold:      50,
		ValidationTimeout:   20 * time.Minute,
	}
}

// TriggerEvent is a source-host pull-request event.
type TriggerEvent struct {
	Owner    string
	Repo     string
	PRNumber int
	Action   string // opened, synchronize, reopened
}

// Orchestrator sequences the pipeline for one session at a time per
// call; callers may run many concurrently.
type Orchestrator struct {
	host       githost.Client
	store      store.Store
	aggregator *aggregate.Aggregator
	analyzer   *analyzer.Analyzer
	applier    *applier.Applier
	poller     *poller.Poller
	escalator  *escalate.Handler
	notifier   *notify.Notifier
	cfg        Config
	logger     *slog.Logger
}

// New wires an Orchestrator from its collaborators.
func New(host githost.Client, st store.Store, agg *aggregate.Aggregator, an *analyzer.Analyzer,
	ap *applier.Applier, pl *poller.Poller, esc *escalate.Handler, nt *notify.Notifier,
	cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		host: host, store: st, aggregator: agg, analyzer: an,
		applier: ap, poller: pl, escalator: esc, notifier: nt,
		cfg: cfg, logger: logger,
	}
}

// HandleTriggerEvent is the webhook entry point. It is idempotent with
// respect to non-dirty mergeable state: if the host does not report the
// PR as conflicted, no session is created and nothing happens.
func (o *Orchestrator) HandleTriggerEvent(ctx context.Context, ev TriggerEvent) (*models.ConflictSession, error) {
	pr, err := o.host.GetPullRequest(ctx, ev.Owner, ev.Repo, ev.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	if !pr.Dirty() {
		o.logger.Debug("pull request not dirty, skipping",
			"pr", ev.PRNumber, "state", pr.MergeableState)
		return nil, nil
	}

	reason := models.TriggerUpdated
	if ev.Action == "opened" {
		reason = models.TriggerOpened
	}
	return o.run(ctx, ev.Owner, ev.Repo, pr, reason, o.cfg.ConfidenceThreshold)
}

// HandleManualCommand processes a comment-driven trigger. The command
// string must match ResolveCommand; the force modifier lowers the
// decision threshold for this invocation only.
func (o *Orchestrator) HandleManualCommand(ctx context.Context, owner, repo string, number int, command string) (*models.ConflictSession, error) {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) == 0 || fields[0] != ResolveCommand {
		return nil, nil
	}
	force := len(fields) > 1 && fields[1] == "--force"

	pr, err := o.host.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	if !pr.Dirty() {
		o.logger.Info("manual trigger on non-dirty pull request, skipping", "pr", number)
		return nil, nil
	}

	threshold := o.cfg.ConfidenceThreshold
	if force {
		threshold = o.cfg.ForceThreshold
	}
	return o.run(ctx, owner, repo, pr, models.TriggerManual, threshold)
}

// run executes the pipeline for one session. Every terminal path
// notifies exactly once; the pipeline never fails silently.
func (o *Orchestrator) run(ctx context.Context, owner, repo string, pr *githost.PullRequest, reason models.TriggerReason, threshold int) (*models.ConflictSession, error) {
	session := &models.ConflictSession{
		Owner:    owner,
		Repo:     repo,
		PRNumber: pr.Number,
		Reason:   reason,
		Phase:    models.PhaseTriggered,
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	o.logger.Info("conflict session started",
		"session", session.ID, "pr", pr.Number, "reason", reason)

	files, err := o.materializeConflicts(ctx, owner, repo, pr)
	if err != nil {
		return session, o.fail(ctx, session, fmt.Errorf("materialize conflicts: %w", err))
	}
	if len(files) == 0 {
		return session, o.fail(ctx, session, errors.New("host reports dirty state but no conflicted files found"))
	}

	// Context aggregation never aborts; failed sources degrade.
	bundle := o.aggregator.Aggregate(ctx, owner, repo, pr)
	o.setPhase(ctx, session, models.PhaseContextGathered)

	result := o.analyzer.Analyze(ctx, pr, bundle, files)
	o.setPhase(ctx, session, models.PhaseAnalyzed)
	o.logger.Info("analysis complete",
		"session", session.ID, "confidence", result.Confidence, "risk", result.Risk)

	if gate.Decide(result.Confidence, threshold) == gate.Escalate {
		return session, o.escalatePath(ctx, session, result,
			fmt.Sprintf("Analysis confidence %d is below the automation threshold %d.", result.Confidence, threshold))
	}
	return session, o.applyPath(ctx, session, pr, bundle, result, files)
}

// escalatePath finishes a session through human escalation.
func (o *Orchestrator) escalatePath(ctx context.Context, session *models.ConflictSession, result *models.AnalysisResult, why string) error {
	if session.Outcome == "" {
		session.Outcome = models.OutcomeEscalated
	}
	if err := o.escalator.Escalate(ctx, session, result, why); err != nil {
		// The comment failing must not leave the session silent; the
		// notifier still carries the outcome.
		o.logger.Error("escalation failed", "session", session.ID, "error", err)
		session.LastError = err.Error()
	}
	o.setPhase(ctx, session, models.PhaseEscalated)

	o.notifier.Notify(ctx, session, why)
	o.setPhase(ctx, session, models.PhaseNotified)
	return nil
}

// applyPath resolves every file, applies the resolution branch, and
// validates it.
func (o *Orchestrator) applyPath(ctx context.Context, session *models.ConflictSession, pr *githost.PullRequest, bundle *models.ContextBundle, result *models.AnalysisResult, files []models.ConflictedFile) error {
	records, errs := o.analyzer.ResolveAll(ctx, files, result, bundle)
	if len(errs) > 0 || len(records) != len(files) {
		// A partial set of resolutions is never applied; a resolution
		// branch with half the files rewritten is worse than none.
		session.Outcome = models.OutcomeApplyFailed
		return o.escalatePath(ctx, session, result,
			fmt.Sprintf("Could not produce resolutions for all %d conflicted files: %s", len(files), joinErrors(errs)))
	}

	o.setPhase(ctx, session, models.PhaseApplying)
	applied, err := o.applier.Apply(ctx, session.Owner, session.Repo, pr, records)
	if err != nil {
		session.Outcome = models.OutcomeApplyFailed
		session.LastError = err.Error()
		return o.escalatePath(ctx, session, result,
			fmt.Sprintf("Automated apply aborted: %v. No partial resolution was left behind.", err))
	}
	session.Branch = applied.Branch

	o.setPhase(ctx, session, models.PhaseValidating)
	outcome, err := o.poller.Poll(ctx, session.Owner, session.Repo, applied.Branch, o.cfg.ValidationTimeout)
	switch {
	case errors.Is(err, poller.ErrValidationTimeout):
		session.Outcome = models.OutcomeValidationTimeout
		o.setPhase(ctx, session, models.PhaseValidationTimedOut)
		return o.escalatePath(ctx, session, result,
			fmt.Sprintf("Validation checks on %s never completed within %s; the resolution at %s needs investigation.",
				applied.Branch, o.cfg.ValidationTimeout, applied.PRURL))
	case err != nil:
		session.Outcome = models.OutcomeValidationFailed
		session.LastError = err.Error()
		return o.escalatePath(ctx, session, result,
			fmt.Sprintf("Validation polling failed: %v", err))
	case !outcome.Passed():
		session.Outcome = models.OutcomeValidationFailed
		o.setPhase(ctx, session, models.PhaseValidated)
		return o.escalatePath(ctx, session, result,
			fmt.Sprintf("Resolution checks completed but failed: %s (see %s)", outcome.ErrorText, applied.PRURL))
	}

	session.Outcome = models.OutcomeResolved
	o.setPhase(ctx, session, models.PhaseValidated)

	o.notifier.Notify(ctx, session,
		fmt.Sprintf("All checks passed on the resolution branch. Review and merge %s.", applied.PRURL))
	o.setPhase(ctx, session, models.PhaseNotified)
	return nil
}

// fail ends a session that broke before reaching a decision. Still
// produces exactly one human-visible message.
func (o *Orchestrator) fail(ctx context.Context, session *models.ConflictSession, err error) error {
	session.Outcome = models.OutcomeApplyFailed
	session.LastError = err.Error()
	o.logger.Error("session failed", "session", session.ID, "error", err)

	o.notifier.Notify(ctx, session, fmt.Sprintf("Pipeline error before analysis: %v", err))
	o.setPhase(ctx, session, models.PhaseNotified)
	return err
}

// setPhase persists a phase transition. Persistence failures are logged
// rather than aborting the pipeline mid-flight.
func (o *Orchestrator) setPhase(ctx context.Context, session *models.ConflictSession, phase models.Phase) {
	session.Phase = phase
	if err := o.store.UpdateSession(ctx, session); err != nil {
		o.logger.Warn("persist phase failed",
			"session", session.ID, "phase", phase, "error", err)
	}
}

func joinErrors(errs []error) string {
	if len(errs) == 0 {
		return "fewer resolutions than files"
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
