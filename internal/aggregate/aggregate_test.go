package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/tracker"
)

// fakeHost overrides only the calls aggregation makes; anything else
// panics through the embedded nil interface.
type fakeHost struct {
	githost.Client

	commits    []githost.Commit
	commitsErr error
	files      []githost.ChangedFile
	filesErr   error
	search     []githost.SearchResult
	searchErr  error
}

func (f *fakeHost) ListCommits(ctx context.Context, owner, repo string, number int) ([]githost.Commit, error) {
	return f.commits, f.commitsErr
}

func (f *fakeHost) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]githost.ChangedFile, error) {
	return f.files, f.filesErr
}

func (f *fakeHost) SearchPullRequests(ctx context.Context, owner, repo, query string) ([]githost.SearchResult, error) {
	return f.search, f.searchErr
}

type fakeTracker struct {
	mu      sync.Mutex
	tickets map[string]*tracker.Ticket
	gets    []string
}

func (f *fakeTracker) GetTicket(ctx context.Context, key string) (*tracker.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, key)
	t, ok := f.tickets[key]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	return t, nil
}

func (f *fakeTracker) Search(ctx context.Context, query string) ([]tracker.Ticket, error) {
	return nil, nil
}

func dirtyPR(title string) *githost.PullRequest {
	return &githost.PullRequest{
		Number:         7,
		Title:          title,
		HeadRef:        "feature/thing",
		BaseRef:        "main",
		MergeableState: "DIRTY",
	}
}

func TestAggregate_AllSourcesSucceed(t *testing.T) {
	host := &fakeHost{
		commits: []githost.Commit{{SHA: "abc123", Message: "add thing", Author: "dev"}},
		files: []githost.ChangedFile{
			{Path: "handler.go", Additions: 40, Deletions: 10},
			{Path: "handler_test.go", Additions: 30, Deletions: 0},
		},
		search: []githost.SearchResult{{Number: 9, Title: "related change", State: "MERGED"}},
	}
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{
		"PROJ-101": {Key: "PROJ-101", Summary: "rate limiting", Status: "In Progress"},
	}}

	bundle := New(host, tc, nil).Aggregate(context.Background(), "acme", "api", dirtyPR("PROJ-101 rate limiting"))

	assert.Empty(t, bundle.SourceFailures)
	require.Len(t, bundle.Issues, 1)
	assert.Equal(t, "PROJ-101", bundle.Issues[0].Key)
	assert.Len(t, bundle.RecentCommits, 1)
	assert.NotEmpty(t, bundle.RelatedChanges)
	assert.Equal(t, 2, bundle.CodePatterns.TotalFiles)
	assert.InDelta(t, 0.5, bundle.Coverage.Ratio, 0.001)
	assert.False(t, bundle.AssembledAt.IsZero())
}

func TestAggregate_SingleSourceFailureDegrades(t *testing.T) {
	host := &fakeHost{
		commitsErr: errors.New("host unavailable"),
		files:      []githost.ChangedFile{{Path: "a.go", Additions: 5}},
	}
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{}}

	bundle := New(host, tc, nil).Aggregate(context.Background(), "acme", "api", dirtyPR("no ticket here"))

	// History failed, the other sources still populated.
	assert.Contains(t, bundle.SourceFailures, "source-host-history")
	assert.Empty(t, bundle.RecentCommits)
	assert.Equal(t, 1, bundle.CodePatterns.TotalFiles)
	assert.NotNil(t, bundle.Coverage)
}

func TestAggregate_AllSourcesFailStillReturnsBundle(t *testing.T) {
	host := &fakeHost{
		commitsErr: errors.New("down"),
		filesErr:   errors.New("down"),
		searchErr:  errors.New("down"),
	}
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{}}

	bundle := New(host, tc, nil).Aggregate(context.Background(), "acme", "api", dirtyPR("PROJ-1 broken"))

	require.NotNil(t, bundle)
	assert.Len(t, bundle.SourceFailures, 5)
}

func TestFetchIssueHierarchy_WalksLinksBreadthFirst(t *testing.T) {
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{
		"PROJ-1": {Key: "PROJ-1", Summary: "root", Links: []string{"PROJ-2"}},
		"PROJ-2": {Key: "PROJ-2", Summary: "child", Links: []string{"PROJ-3", "PROJ-1"}},
		"PROJ-3": {Key: "PROJ-3", Summary: "grandchild", Links: []string{"PROJ-4"}},
		"PROJ-4": {Key: "PROJ-4", Summary: "too deep"},
	}}
	a := New(&fakeHost{}, tc, nil)

	records, err := a.fetchIssueHierarchy(context.Background(), dirtyPR("PROJ-1 fix the thing"))
	require.NoError(t, err)

	keys := make([]string, len(records))
	depths := make(map[string]int)
	for i, r := range records {
		keys[i] = r.Key
		depths[r.Key] = r.Depth
	}
	assert.Equal(t, []string{"PROJ-1", "PROJ-2", "PROJ-3"}, keys, "depth bound stops before PROJ-4")
	assert.Equal(t, 0, depths["PROJ-1"])
	assert.Equal(t, 2, depths["PROJ-3"])

	// The PROJ-2 -> PROJ-1 back-link must not refetch the root.
	count := 0
	for _, k := range tc.gets {
		if k == "PROJ-1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "visited set dedupes cyclic links")
}

func TestFetchIssueHierarchy_LinkedTicketFailureIsBestEffort(t *testing.T) {
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{
		"PROJ-1": {Key: "PROJ-1", Summary: "root", Links: []string{"PROJ-404"}},
	}}
	a := New(&fakeHost{}, tc, nil)

	records, err := a.fetchIssueHierarchy(context.Background(), dirtyPR("PROJ-1 fix"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchIssueHierarchy_RootFailureErrors(t *testing.T) {
	tc := &fakeTracker{tickets: map[string]*tracker.Ticket{}}
	a := New(&fakeHost{}, tc, nil)

	_, err := a.fetchIssueHierarchy(context.Background(), dirtyPR("PROJ-9 fix"))
	require.Error(t, err)
}

func TestFetchIssueHierarchy_NoKeysIsEmpty(t *testing.T) {
	a := New(&fakeHost{}, &fakeTracker{}, nil)

	records, err := a.fetchIssueHierarchy(context.Background(), dirtyPR("plain title, no ticket"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanCodePatterns_Size(t *testing.T) {
	host := &fakeHost{files: []githost.ChangedFile{
		{Path: "a.go", Additions: 400, Deletions: 200},
		{Path: "b.py", Additions: 10},
	}}
	a := New(host, &fakeTracker{}, nil)

	patterns, err := a.scanCodePatterns(context.Background(), "acme", "api", 7)
	require.NoError(t, err)
	assert.Equal(t, "large", patterns.ChangeSize)
	assert.Equal(t, 1, patterns.FileTypeCounts["go"])
	assert.Equal(t, 1, patterns.FileTypeCounts["py"])
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, "implement limiting middleware",
		searchTerms("implement rate limiting middleware (v2)"))
	assert.Equal(t, "", searchTerms("fix bug"))
}
