package notify

import (
	"context"
	"fmt"

	"github.com/mattsre/conflux/internal/githost"
)

// CommentChannel posts the outcome summary as a comment on the pull
// request itself.
type CommentChannel struct {
	host githost.Client
}

// NewCommentChannel creates a host-native comment channel.
func NewCommentChannel(host githost.Client) *CommentChannel {
	return &CommentChannel{host: host}
}

func (c *CommentChannel) Name() string { return "comment" }

func (c *CommentChannel) Send(ctx context.Context, msg Message) error {
	body := fmt.Sprintf("**%s**\n\n%s", msg.Subject, msg.Body)
	if err := c.host.Comment(ctx, msg.Owner, msg.Repo, msg.PRNumber, body); err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	return nil
}
