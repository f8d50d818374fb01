package store

import (
	"context"

	"github.com/mattsre/conflux/internal/models"
)

// Store defines the persistence interface for conflux. Sessions are
// persisted so a restart can inspect stalled runs; a fresh trigger
// always creates a new session rather than resuming one.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.ConflictSession) error
	GetSession(ctx context.Context, id string) (*models.ConflictSession, error)
	ListSessions(ctx context.Context, limit int) ([]*models.ConflictSession, error)
	ListSessionsForPR(ctx context.Context, owner, repo string, number int) ([]*models.ConflictSession, error)
	UpdateSession(ctx context.Context, s *models.ConflictSession) error

	// RecordEscalation registers an escalation keyed by session id and
	// outcome hash. It returns false when the same escalation was
	// already recorded, so repeated triggers do not duplicate comments.
	RecordEscalation(ctx context.Context, sessionID, outcomeHash string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
