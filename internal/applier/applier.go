// Package applier writes resolved file contents to an isolated branch
// and proposes them back against the pull request's head branch.
package applier

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

// ErrApplyConflict indicates a conditional file write was rejected or
// the apply step otherwise could not complete consistently. The branch
// is rolled back; a half-rewritten resolution branch is worse than none.
var ErrApplyConflict = errors.New("apply conflict")

// Result describes a successfully opened resolution change-request.
type Result struct {
	Branch   string
	PRNumber int
	PRURL    string
}

// Applier creates resolution branches and change-requests.
type Applier struct {
	host   githost.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Applier.
func New(host githost.Client, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{host: host, logger: logger, now: time.Now}
}

// BranchName derives the resolution branch name from the PR number and
// a timestamp. Collision avoidance, not cryptographic uniqueness.
func (a *Applier) BranchName(prNumber int) string {
	return fmt.Sprintf("conflict-resolution/pr-%d-%d", prNumber, a.now().Unix())
}

// Apply creates the resolution branch off the base branch, writes every
// resolution record with a conditional write addressed against the base
// branch's current file SHA, and opens a change-request onto the
// original PR's head branch. Any single write failure aborts the whole
// step and deletes the branch.
func (a *Applier) Apply(ctx context.Context, owner, repo string, pr *githost.PullRequest, records []models.ResolutionRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no resolution records to apply", ErrApplyConflict)
	}

	baseSHA, err := a.host.BranchHead(ctx, owner, repo, pr.BaseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base branch head: %w", err)
	}

	branch := a.BranchName(pr.Number)
	if err := a.host.CreateBranch(ctx, owner, repo, branch, baseSHA); err != nil {
		return nil, fmt.Errorf("create resolution branch: %w", err)
	}

	for _, rec := range records {
		if err := a.writeResolution(ctx, owner, repo, branch, pr, rec); err != nil {
			a.rollback(ctx, owner, repo, branch)
			return nil, fmt.Errorf("%w: %v", ErrApplyConflict, err)
		}
	}

	title := fmt.Sprintf("Resolve merge conflicts for #%d", pr.Number)
	body := resolutionBody(pr, records)

	// The change-request targets the PR's head branch, not the default
	// branch: the resolution addresses the conflict, not the feature.
	created, err := a.host.CreatePullRequest(ctx, owner, repo, branch, pr.HeadRef, title, body)
	if err != nil {
		a.rollback(ctx, owner, repo, branch)
		return nil, fmt.Errorf("%w: create change-request: %v", ErrApplyConflict, err)
	}

	a.logger.Info("resolution change-request opened",
		"pr", pr.Number, "branch", branch, "resolution_pr", created.Number)

	return &Result{
		Branch:   branch,
		PRNumber: created.Number,
		PRURL:    created.URL,
	}, nil
}

// writeResolution commits one record. The expected SHA is read from the
// base branch so a concurrent change to the file rejects the write
// loudly instead of being silently overwritten. A file absent on the
// base branch is a create, not an update.
func (a *Applier) writeResolution(ctx context.Context, owner, repo, branch string, pr *githost.PullRequest, rec models.ResolutionRecord) error {
	_, sha, err := a.host.FileContent(ctx, owner, repo, pr.BaseRef, rec.Path)
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("read base file %s: %w", rec.Path, err)
		}
		sha = ""
	}

	message := fmt.Sprintf("Resolve conflict in %s (%s)", rec.Path, rec.Strategy)
	if err := a.host.WriteFile(ctx, owner, repo, branch, rec.Path, rec.Content, sha, message); err != nil {
		return fmt.Errorf("write %s: %w", rec.Path, err)
	}
	return nil
}

// rollback deletes the resolution branch after a failed apply. Best
// effort; a leftover branch is cosmetic, a half-applied one is not.
func (a *Applier) rollback(ctx context.Context, owner, repo, branch string) {
	if err := a.host.DeleteBranch(ctx, owner, repo, branch); err != nil {
		a.logger.Warn("rollback branch delete failed", "branch", branch, "error", err)
	}
}

func resolutionBody(pr *githost.PullRequest, records []models.ResolutionRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated conflict resolution for #%d.\n\n", pr.Number)
	for _, rec := range records {
		fmt.Fprintf(&sb, "- `%s` (%s): %s\n", rec.Path, rec.Strategy, rec.Explanation)
	}
	sb.WriteString("\nReview before merging; this branch was generated by conflux.")
	return sb.String()
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found") ||
		strings.Contains(err.Error(), "404")
}
