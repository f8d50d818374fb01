// Package notify dispatches outcome summaries to configured channels.
// Delivery is independent best-effort per channel: a channel failing is
// logged and never fails the overall notification.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mattsre/conflux/internal/models"
)

// Message is one rendered outcome summary.
type Message struct {
	Subject  string
	Body     string
	Owner    string
	Repo     string
	PRNumber int
}

// Channel delivers a message somewhere. Fire-and-forget from the
// orchestrator's perspective.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Notifier fans a message out to zero or more channels in parallel.
type Notifier struct {
	channels []Channel
	logger   *slog.Logger
}

// New creates a Notifier over the given channels.
func New(logger *slog.Logger, channels ...Channel) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{channels: channels, logger: logger}
}

// Notify renders the session outcome and dispatches it. All channels
// are attempted; there is no all-or-nothing transaction.
func (n *Notifier) Notify(ctx context.Context, session *models.ConflictSession, detail string) {
	msg := render(session, detail)

	var wg sync.WaitGroup
	for _, ch := range n.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, msg); err != nil {
				n.logger.Warn("notification channel failed",
					"channel", ch.Name(), "session", session.ID, "error", err)
				return
			}
			n.logger.Debug("notification sent", "channel", ch.Name(), "session", session.ID)
		}(ch)
	}
	wg.Wait()
}

func render(session *models.ConflictSession, detail string) Message {
	var subject string
	switch session.Outcome {
	case models.OutcomeResolved:
		subject = fmt.Sprintf("Conflicts on %s/%s#%d resolved automatically", session.Owner, session.Repo, session.PRNumber)
	case models.OutcomeValidationTimeout:
		subject = fmt.Sprintf("Conflict resolution for %s/%s#%d needs investigation", session.Owner, session.Repo, session.PRNumber)
	default:
		subject = fmt.Sprintf("Conflicts on %s/%s#%d need human review", session.Owner, session.Repo, session.PRNumber)
	}

	body := fmt.Sprintf("Session %s finished with outcome %q.\n\n%s", session.ID, session.Outcome, detail)
	return Message{
		Subject:  subject,
		Body:     body,
		Owner:    session.Owner,
		Repo:     session.Repo,
		PRNumber: session.PRNumber,
	}
}
