// Package aggregate assembles the per-session context bundle from five
// independent sources. A single source's failure never aborts
// aggregation; that slice degrades to empty and the failure is recorded
// on the bundle for diagnostics.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/tracker"
)

// maxLinkDepth bounds the breadth-first walk of linked tickets.
const maxLinkDepth = 2

// Aggregator fans out to the context sources and joins the results.
type Aggregator struct {
	host    githost.Client
	tracker tracker.Client
	logger  *slog.Logger
}

// New creates an Aggregator. The tracker client should be the cached
// variant; the aggregator re-reads tickets during the link walk.
func New(host githost.Client, tc tracker.Client, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{host: host, tracker: tc, logger: logger}
}

// Aggregate builds a fresh bundle for the pull request. All five
// sub-fetches run concurrently and the join waits for every one to
// settle; this is a fan-in, not a race.
func (a *Aggregator) Aggregate(ctx context.Context, owner, repo string, pr *githost.PullRequest) *models.ContextBundle {
	bundle := &models.ContextBundle{
		SourceFailures: make(map[string]string),
		AssembledAt:    time.Now().UTC(),
	}

	var mu sync.Mutex
	fail := func(source string, err error) {
		mu.Lock()
		defer mu.Unlock()
		bundle.SourceFailures[source] = err.Error()
		a.logger.Warn("context source failed", "source", source, "error", err)
	}

	// Goroutines always return nil: a failed source degrades to its
	// zero value instead of cancelling the group.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		issues, err := a.fetchIssueHierarchy(gctx, pr)
		if err != nil {
			fail("issue-tracker", err)
			return nil
		}
		bundle.Issues = issues
		return nil
	})

	g.Go(func() error {
		changes, commits, err := a.fetchHistory(gctx, owner, repo, pr)
		if err != nil {
			fail("source-host-history", err)
			return nil
		}
		bundle.RelatedChanges = changes
		bundle.RecentCommits = commits
		return nil
	})

	g.Go(func() error {
		patterns, err := a.scanCodePatterns(gctx, owner, repo, pr.Number)
		if err != nil {
			fail("code-patterns", err)
			return nil
		}
		bundle.CodePatterns = patterns
		return nil
	})

	g.Go(func() error {
		coverage, err := a.scanCoverage(gctx, owner, repo, pr.Number)
		if err != nil {
			fail("coverage", err)
			return nil
		}
		bundle.Coverage = coverage
		return nil
	})

	g.Go(func() error {
		prefs, err := a.fetchResolutionHistory(gctx, owner, repo)
		if err != nil {
			fail("resolution-history", err)
			return nil
		}
		bundle.TeamPreferences = prefs
		return nil
	})

	_ = g.Wait()
	return bundle
}

var ticketKeyRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)

// fetchIssueHierarchy extracts ticket keys from the PR title and walks
// linked tickets breadth-first up to maxLinkDepth. The link graph is
// not guaranteed acyclic, so the walk dedupes with a visited set.
func (a *Aggregator) fetchIssueHierarchy(ctx context.Context, pr *githost.PullRequest) ([]models.IssueRecord, error) {
	roots := ticketKeyRe.FindAllString(pr.Title+" "+pr.HeadRef, -1)
	if len(roots) == 0 {
		return nil, nil
	}

	type queued struct {
		key   string
		depth int
	}

	visited := make(map[string]bool)
	queue := make([]queued, 0, len(roots))
	for _, key := range roots {
		if !visited[key] {
			visited[key] = true
			queue = append(queue, queued{key: key, depth: 0})
		}
	}

	var records []models.IssueRecord
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		ticket, err := a.tracker.GetTicket(ctx, item.key)
		if err != nil {
			if item.depth == 0 {
				return nil, fmt.Errorf("get ticket %s: %w", item.key, err)
			}
			// Linked tickets are best-effort.
			continue
		}

		records = append(records, models.IssueRecord{
			Key:     ticket.Key,
			Summary: ticket.Summary,
			Status:  ticket.Status,
			Depth:   item.depth,
		})

		if item.depth >= maxLinkDepth {
			continue
		}
		for _, linked := range ticket.Links {
			if visited[linked] {
				continue
			}
			visited[linked] = true
			queue = append(queue, queued{key: linked, depth: item.depth + 1})
		}
	}

	return records, nil
}

// fetchHistory returns related change-requests and the PR's recent
// commits.
func (a *Aggregator) fetchHistory(ctx context.Context, owner, repo string, pr *githost.PullRequest) ([]models.ChangeRecord, []models.CommitRecord, error) {
	commits, err := a.host.ListCommits(ctx, owner, repo, pr.Number)
	if err != nil {
		return nil, nil, fmt.Errorf("list commits: %w", err)
	}

	var commitRecords []models.CommitRecord
	for _, c := range commits {
		commitRecords = append(commitRecords, models.CommitRecord{
			SHA:     c.SHA,
			Message: c.Message,
			Author:  c.Author,
		})
	}

	query := searchTerms(pr.Title)
	var changeRecords []models.ChangeRecord
	if query != "" {
		results, err := a.host.SearchPullRequests(ctx, owner, repo, query)
		if err != nil {
			return nil, commitRecords, fmt.Errorf("search related changes: %w", err)
		}
		for _, r := range results {
			if r.Number == pr.Number {
				continue
			}
			changeRecords = append(changeRecords, models.ChangeRecord{
				Number: r.Number,
				Title:  r.Title,
				State:  r.State,
				URL:    r.URL,
			})
		}
	}

	return changeRecords, commitRecords, nil
}

// scanCodePatterns classifies the change by file types and size.
func (a *Aggregator) scanCodePatterns(ctx context.Context, owner, repo string, number int) (models.CodePatternSummary, error) {
	files, err := a.host.ListChangedFiles(ctx, owner, repo, number)
	if err != nil {
		return models.CodePatternSummary{}, fmt.Errorf("list changed files: %w", err)
	}

	counts := make(map[string]int)
	totalLines := 0
	for _, f := range files {
		ext := strings.TrimPrefix(filepath.Ext(f.Path), ".")
		if ext == "" {
			ext = "none"
		}
		counts[ext]++
		totalLines += f.Additions + f.Deletions
	}

	size := "small"
	switch {
	case totalLines > 500:
		size = "large"
	case totalLines > 100:
		size = "medium"
	}

	return models.CodePatternSummary{
		FileTypeCounts: counts,
		ChangeSize:     size,
		TotalFiles:     len(files),
	}, nil
}

// scanCoverage estimates how much of the change is covered by tests,
// using the presence of test files among the changed files.
func (a *Aggregator) scanCoverage(ctx context.Context, owner, repo string, number int) (models.CoverageSummary, error) {
	files, err := a.host.ListChangedFiles(ctx, owner, repo, number)
	if err != nil {
		return models.CoverageSummary{}, fmt.Errorf("list changed files: %w", err)
	}

	var testFiles []string
	for _, f := range files {
		if isTestFile(f.Path) {
			testFiles = append(testFiles, f.Path)
		}
	}

	ratio := 0.0
	if len(files) > 0 {
		ratio = float64(len(testFiles)) / float64(len(files))
	}
	return models.CoverageSummary{Ratio: ratio, TestFiles: testFiles}, nil
}

// fetchResolutionHistory mines previously merged resolution branches
// for team preferences.
func (a *Aggregator) fetchResolutionHistory(ctx context.Context, owner, repo string) ([]string, error) {
	results, err := a.host.SearchPullRequests(ctx, owner, repo, "conflict-resolution in:title is:merged")
	if err != nil {
		return nil, fmt.Errorf("search resolution history: %w", err)
	}

	var prefs []string
	for _, r := range results {
		prefs = append(prefs, fmt.Sprintf("previously accepted: %s", r.Title))
		if len(prefs) >= 5 {
			break
		}
	}
	return prefs, nil
}

func isTestFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_")
}

// searchTerms picks a few significant words from a title for related-
// change search.
func searchTerms(title string) string {
	var terms []string
	for _, word := range strings.Fields(title) {
		word = strings.Trim(word, ".,:;()[]")
		if len(word) >= 5 {
			terms = append(terms, word)
		}
		if len(terms) == 3 {
			break
		}
	}
	return strings.Join(terms, " ")
}
