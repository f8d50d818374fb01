package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// EmailChannel sends outcome summaries through Resend.
type EmailChannel struct {
	client *resend.Client
	from   string
	to     []string
}

// NewEmailChannel creates an email channel.
func NewEmailChannel(apiKey, from string, to []string) *EmailChannel {
	return &EmailChannel{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(ctx context.Context, msg Message) error {
	html := fmt.Sprintf("<h3>%s</h3><pre>%s</pre>", msg.Subject, msg.Body)
	_, err := e.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from,
		To:      e.to,
		Subject: msg.Subject,
		Text:    msg.Body,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(e.to, ","), err)
	}
	return nil
}
