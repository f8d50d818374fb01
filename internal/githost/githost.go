// Package githost wraps the source-host API used by the resolution
// pipeline. The interface covers exactly the calls the pipeline makes;
// tests substitute fakes.
package githost

import "context"

// PullRequest holds the pull-request detail the pipeline needs.
type PullRequest struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	State          string `json:"state"`
	HeadRef        string `json:"headRefName"`
	HeadSHA        string `json:"headRefOid"`
	BaseRef        string `json:"baseRefName"`
	MergeableState string `json:"mergeStateStatus"` // DIRTY means conflicted
	URL            string `json:"url"`
}

// Dirty reports whether the host considers the PR unmergeable due to
// conflicts.
func (pr PullRequest) Dirty() bool {
	return pr.MergeableState == "DIRTY"
}

// Commit is one commit on a pull request.
type Commit struct {
	SHA     string `json:"oid"`
	Message string `json:"messageHeadline"`
	Author  string `json:"authorName"`
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// SearchResult is a change-request returned by query search.
type SearchResult struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// CheckRun is a named CI/status entry on a ref.
type CheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`     // queued, in_progress, completed
	Conclusion string `json:"conclusion"` // success, neutral, failure, cancelled, timed_out
}

// Completed reports whether the run has reached a terminal status.
func (c CheckRun) Completed() bool {
	return c.Status == "completed"
}

// Passing reports whether a completed run's conclusion counts as a pass.
func (c CheckRun) Passing() bool {
	return c.Conclusion == "success" || c.Conclusion == "neutral"
}

// Client is the source-host surface consumed by the pipeline.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)
	ListCommits(ctx context.Context, owner, repo string, number int) ([]Commit, error)
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
	SearchPullRequests(ctx context.Context, owner, repo, query string) ([]SearchResult, error)

	// FileContent reads a file's content and blob SHA on a branch.
	FileContent(ctx context.Context, owner, repo, branch, path string) (content string, sha string, err error)

	// BranchHead returns the commit SHA a branch currently points at.
	BranchHead(ctx context.Context, owner, repo, branch string) (string, error)

	CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error
	DeleteBranch(ctx context.Context, owner, repo, name string) error

	// WriteFile commits content to path on branch. expectedSHA is the
	// blob SHA the caller read; the host rejects the write when the file
	// changed underneath (conditional-write semantics).
	WriteFile(ctx context.Context, owner, repo, branch, path, content, expectedSHA, message string) error

	CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error)
	Comment(ctx context.Context, owner, repo string, number int, body string) error
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	ListCheckRuns(ctx context.Context, owner, repo, ref string) ([]CheckRun, error)
}
