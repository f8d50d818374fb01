// Package poller waits for the source-host's check runs on a ref to
// reach terminal status and evaluates them once.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
)

// ErrValidationTimeout indicates the checks never all completed within
// the bound. Distinct from a completed-but-failing outcome: the caller
// frames it as "needs investigation", not as a definite test failure.
var ErrValidationTimeout = errors.New("validation timed out")

// DefaultInterval is the fixed polling interval.
const DefaultInterval = 30 * time.Second

// Poller polls check-run status for a ref.
type Poller struct {
	host     githost.Client
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Poller. A zero interval uses DefaultInterval.
func New(host githost.Client, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{host: host, interval: interval, logger: logger}
}

// Poll blocks until every check run on ref completes, the timeout
// elapses, or ctx is cancelled. Each iteration re-fetches the full
// check-run list. Individual failing conclusions do not stop polling
// early; conclusions are evaluated once after all runs complete.
func (p *Poller) Poll(ctx context.Context, owner, repo, ref string, timeout time.Duration) (*models.ValidationOutcome, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		runs, err := p.host.ListCheckRuns(ctx, owner, repo, ref)
		if err != nil {
			return &models.ValidationOutcome{
				Reason:    models.ValidationErrored,
				ErrorText: err.Error(),
			}, fmt.Errorf("list check runs: %w", err)
		}

		if allCompleted(runs) {
			outcome := evaluate(runs)
			p.logger.Info("validation completed",
				"ref", ref, "runs", len(runs), "passed", outcome.Passed())
			return outcome, nil
		}

		p.logger.Debug("checks still running", "ref", ref, "pending", pendingCount(runs))

		select {
		case <-ctx.Done():
			return &models.ValidationOutcome{
				Reason:    models.ValidationErrored,
				ErrorText: ctx.Err().Error(),
			}, ctx.Err()
		case <-deadline.C:
			return &models.ValidationOutcome{
				Reason:    models.ValidationTimedOut,
				ErrorText: fmt.Sprintf("checks on %s did not complete within %s", ref, timeout),
			}, ErrValidationTimeout
		case <-ticker.C:
		}
	}
}

func allCompleted(runs []githost.CheckRun) bool {
	if len(runs) == 0 {
		return false
	}
	for _, r := range runs {
		if !r.Completed() {
			return false
		}
	}
	return true
}

func pendingCount(runs []githost.CheckRun) int {
	n := 0
	for _, r := range runs {
		if !r.Completed() {
			n++
		}
	}
	return n
}

// evaluate maps completed check runs onto the validation dimensions by
// run name, defaulting a dimension to pass when no run covers it.
func evaluate(runs []githost.CheckRun) *models.ValidationOutcome {
	outcome := &models.ValidationOutcome{
		SyntaxValid:   true,
		TestsPass:     true,
		BuildSucceeds: true,
		SecurityCheck: true,
		Reason:        models.ValidationCompleted,
	}

	var failures []string
	for _, r := range runs {
		if r.Passing() {
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Conclusion))

		name := strings.ToLower(r.Name)
		switch {
		case strings.Contains(name, "lint") || strings.Contains(name, "syntax"):
			outcome.SyntaxValid = false
		case strings.Contains(name, "build") || strings.Contains(name, "compile"):
			outcome.BuildSucceeds = false
		case strings.Contains(name, "security") || strings.Contains(name, "scan"):
			outcome.SecurityCheck = false
		default:
			outcome.TestsPass = false
		}
	}

	if len(failures) > 0 {
		outcome.ErrorText = strings.Join(failures, "; ")
	}
	return outcome
}
