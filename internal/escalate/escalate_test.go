package escalate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/store"
)

type fakeHost struct {
	githost.Client

	comments   []string
	labels     []string
	commentErr error
}

func (f *fakeHost) Comment(ctx context.Context, owner, repo string, number int, body string) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeHost) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	f.labels = append(f.labels, labels...)
	return nil
}

// fakeStore tracks escalation records in memory.
type fakeStore struct {
	store.Store

	recorded map[string]bool
}

func (f *fakeStore) RecordEscalation(ctx context.Context, sessionID, outcomeHash string) (bool, error) {
	key := sessionID + ":" + outcomeHash
	if f.recorded[key] {
		return false, nil
	}
	if f.recorded == nil {
		f.recorded = make(map[string]bool)
	}
	f.recorded[key] = true
	return true, nil
}

func escalatedSession() *models.ConflictSession {
	return &models.ConflictSession{
		ID:       "01TEST",
		Owner:    "acme",
		Repo:     "api",
		PRNumber: 42,
		Reason:   models.TriggerUpdated,
		Outcome:  models.OutcomeEscalated,
	}
}

func lowConfidenceResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Confidence:           40,
		Summary:              "overlapping edits to the retry loop",
		Risk:                 models.RiskHigh,
		LowConfidenceReasons: []string{"both sides change control flow"},
		Alternatives: []models.Alternative{
			{Description: "keep head's backoff", Diff: "-old\n+new"},
			{Description: "keep base's backoff"},
			{Description: "merge manually"},
			{Description: "a fourth idea that should be cut"},
		},
	}
}

func TestEscalate_PostsCommentAndLabels(t *testing.T) {
	host := &fakeHost{}
	h := New(host, &fakeStore{recorded: map[string]bool{}}, nil)

	err := h.Escalate(context.Background(), escalatedSession(), lowConfidenceResult(), "Confidence below threshold.")
	require.NoError(t, err)

	require.Len(t, host.comments, 1)
	body := host.comments[0]
	assert.Contains(t, body, "Confidence below threshold.")
	assert.Contains(t, body, "**Confidence:** 40/100")
	assert.Contains(t, body, "both sides change control flow")
	assert.Contains(t, body, "keep head's backoff")
	assert.Contains(t, body, "```diff")
	assert.NotContains(t, body, "a fourth idea", "alternatives are capped")

	assert.ElementsMatch(t, []string{"needs-human-review", "has-conflicts"}, host.labels)
}

func TestEscalate_DedupesSameSessionState(t *testing.T) {
	host := &fakeHost{}
	h := New(host, &fakeStore{recorded: map[string]bool{}}, nil)
	session := escalatedSession()
	result := lowConfidenceResult()

	require.NoError(t, h.Escalate(context.Background(), session, result, "same reason"))
	require.NoError(t, h.Escalate(context.Background(), session, result, "same reason"))

	assert.Len(t, host.comments, 1, "identical escalation posts once")
}

func TestEscalate_DistinctOutcomesPostSeparately(t *testing.T) {
	host := &fakeHost{}
	h := New(host, &fakeStore{recorded: map[string]bool{}}, nil)
	session := escalatedSession()
	result := lowConfidenceResult()

	require.NoError(t, h.Escalate(context.Background(), session, result, "low confidence"))

	session.Outcome = models.OutcomeValidationTimeout
	require.NoError(t, h.Escalate(context.Background(), session, result, "checks never finished"))

	assert.Len(t, host.comments, 2)
}

func TestEscalate_NilResultStillEscalates(t *testing.T) {
	host := &fakeHost{}
	h := New(host, &fakeStore{recorded: map[string]bool{}}, nil)

	err := h.Escalate(context.Background(), escalatedSession(), nil, "pipeline error before analysis")
	require.NoError(t, err)
	require.Len(t, host.comments, 1)
	assert.Contains(t, host.comments[0], "pipeline error before analysis")
}

func TestEscalate_CommentFailureSurfaces(t *testing.T) {
	host := &fakeHost{commentErr: errors.New("403")}
	h := New(host, &fakeStore{recorded: map[string]bool{}}, nil)

	err := h.Escalate(context.Background(), escalatedSession(), lowConfidenceResult(), "reason")
	require.Error(t, err)
	assert.Empty(t, host.labels, "labels are not applied when the comment fails")
}
