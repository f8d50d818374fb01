package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/orchestrator"
)

// fakeHost records pull-request lookups and always reports the PR as
// mergeable, so the pipeline stops right after the trigger check.
type fakeHost struct {
	githost.Client

	mu      sync.Mutex
	lookups []int
}

func (f *fakeHost) GetPullRequest(ctx context.Context, owner, repo string, number int) (*githost.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, number)
	return &githost.PullRequest{Number: number, MergeableState: "CLEAN"}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeHost) {
	t.Helper()
	host := &fakeHost{}
	orch := orchestrator.New(host, nil, nil, nil, nil, nil, nil, nil, orchestrator.DefaultConfig(), nil)
	return New(context.Background(), orch, nil), host
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_PullRequestEvent(t *testing.T) {
	srv, host := newTestServer(t)

	body := `{
		"action": "synchronize",
		"pull_request": {"number": 42},
		"repository": {"name": "api", "owner": {"login": "acme"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	srv.Wait()
	assert.Equal(t, []int{42}, host.lookups)
}

func TestWebhook_IgnoredPullRequestAction(t *testing.T) {
	srv, host := newTestServer(t)

	body := `{
		"action": "labeled",
		"pull_request": {"number": 42},
		"repository": {"name": "api", "owner": {"login": "acme"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	srv.Wait()
	assert.Empty(t, host.lookups)
}

func TestWebhook_ResolveComment(t *testing.T) {
	srv, host := newTestServer(t)

	body := `{
		"action": "created",
		"issue": {"number": 7, "pull_request": {"url": "https://example.com/pr/7"}},
		"comment": {"body": "/resolve-conflicts"},
		"repository": {"name": "api", "owner": {"login": "acme"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issue_comment")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	srv.Wait()
	assert.Equal(t, []int{7}, host.lookups)
}

func TestWebhook_CommentOnPlainIssueIgnored(t *testing.T) {
	srv, host := newTestServer(t)

	body := `{
		"action": "created",
		"issue": {"number": 7},
		"comment": {"body": "/resolve-conflicts"},
		"repository": {"name": "api", "owner": {"login": "acme"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issue_comment")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	srv.Wait()
	assert.Empty(t, host.lookups)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("X-GitHub-Event", "pull_request")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
