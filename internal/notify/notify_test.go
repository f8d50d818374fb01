package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/models"
)

type fakeChannel struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Message
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func finishedSession(outcome models.Outcome) *models.ConflictSession {
	return &models.ConflictSession{
		ID:       "01TEST",
		Owner:    "acme",
		Repo:     "api",
		PRNumber: 42,
		Outcome:  outcome,
	}
}

func TestNotify_FansOutToAllChannels(t *testing.T) {
	chat := &fakeChannel{name: "chat"}
	email := &fakeChannel{name: "email"}
	n := New(nil, chat, email)

	n.Notify(context.Background(), finishedSession(models.OutcomeResolved), "merged clean")

	require.Len(t, chat.sent, 1)
	require.Len(t, email.sent, 1)
	assert.Equal(t, chat.sent[0].Subject, email.sent[0].Subject)
	assert.Contains(t, chat.sent[0].Body, "merged clean")
}

func TestNotify_ChannelFailureDoesNotBlockOthers(t *testing.T) {
	broken := &fakeChannel{name: "chat", err: errors.New("webhook 500")}
	working := &fakeChannel{name: "comment"}
	n := New(nil, broken, working)

	n.Notify(context.Background(), finishedSession(models.OutcomeEscalated), "needs review")

	assert.Len(t, working.sent, 1, "one channel failing never suppresses the others")
}

func TestNotify_NoChannelsIsNoop(t *testing.T) {
	n := New(nil)
	n.Notify(context.Background(), finishedSession(models.OutcomeResolved), "detail")
}

func TestRender_SubjectByOutcome(t *testing.T) {
	tests := []struct {
		outcome models.Outcome
		want    string
	}{
		{models.OutcomeResolved, "resolved automatically"},
		{models.OutcomeValidationTimeout, "needs investigation"},
		{models.OutcomeEscalated, "need human review"},
		{models.OutcomeApplyFailed, "need human review"},
	}

	for _, tt := range tests {
		msg := render(finishedSession(tt.outcome), "detail")
		assert.Contains(t, msg.Subject, tt.want)
		assert.Contains(t, msg.Subject, "acme/api#42")
	}
}
