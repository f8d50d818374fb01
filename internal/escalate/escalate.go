// Package escalate posts a human-readable summary when the pipeline
// decides a human must resolve the conflict.
package escalate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/store"
)

// Routing labels applied to every escalated pull request.
var routingLabels = []string{"needs-human-review", "has-conflicts"}

// maxAlternatives bounds how many suggested diffs go into the comment.
const maxAlternatives = 3

// Handler posts escalation comments and applies routing labels.
type Handler struct {
	host   githost.Client
	store  store.Store
	logger *slog.Logger
}

// New creates a Handler.
func New(host githost.Client, st store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{host: host, store: st, logger: logger}
}

// Escalate posts one structured comment and applies the routing labels.
// Idempotent per (session, outcome): re-running escalation for the same
// session state records nothing and posts nothing.
func (h *Handler) Escalate(ctx context.Context, session *models.ConflictSession, result *models.AnalysisResult, reason string) error {
	hash := outcomeHash(session, result, reason)
	fresh, err := h.store.RecordEscalation(ctx, session.ID, hash)
	if err != nil {
		return fmt.Errorf("record escalation: %w", err)
	}
	if !fresh {
		h.logger.Info("escalation already posted for this session state",
			"session", session.ID, "hash", hash)
		return nil
	}

	body := buildComment(session, result, reason)
	if err := h.host.Comment(ctx, session.Owner, session.Repo, session.PRNumber, body); err != nil {
		return fmt.Errorf("post escalation comment: %w", err)
	}
	if err := h.host.AddLabels(ctx, session.Owner, session.Repo, session.PRNumber, routingLabels); err != nil {
		return fmt.Errorf("apply routing labels: %w", err)
	}

	h.logger.Info("escalated to human review", "session", session.ID, "pr", session.PRNumber)
	return nil
}

// outcomeHash keys deduplication by session id plus the content that
// would go into the comment.
func outcomeHash(session *models.ConflictSession, result *models.AnalysisResult, reason string) string {
	var sb strings.Builder
	sb.WriteString(string(session.Outcome))
	sb.WriteString(reason)
	if result != nil {
		fmt.Fprintf(&sb, "%d%s", result.Confidence, result.Summary)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}

func buildComment(session *models.ConflictSession, result *models.AnalysisResult, reason string) string {
	var sb strings.Builder
	sb.WriteString("## Merge conflict needs human review\n\n")
	fmt.Fprintf(&sb, "%s\n\n", reason)

	if result != nil {
		fmt.Fprintf(&sb, "**Confidence:** %d/100 (risk: %s)\n\n", result.Confidence, result.Risk)
		if result.Summary != "" {
			fmt.Fprintf(&sb, "%s\n\n", result.Summary)
		}
		if len(result.LowConfidenceReasons) > 0 {
			sb.WriteString("**Why automation held back:**\n")
			for _, r := range result.LowConfidenceReasons {
				fmt.Fprintf(&sb, "- %s\n", r)
			}
			sb.WriteString("\n")
		}
		if len(result.Alternatives) > 0 {
			sb.WriteString("**Suggested resolutions:**\n\n")
			for i, alt := range result.Alternatives {
				if i >= maxAlternatives {
					break
				}
				fmt.Fprintf(&sb, "%d. %s\n", i+1, alt.Description)
				if alt.Diff != "" {
					fmt.Fprintf(&sb, "```diff\n%s\n```\n", alt.Diff)
				}
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "_Session `%s`, triggered by %s._", session.ID, session.Reason)
	return sb.String()
}
