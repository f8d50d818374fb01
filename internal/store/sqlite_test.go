package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsre/conflux/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newSession() *models.ConflictSession {
	return &models.ConflictSession{
		Owner:    "acme",
		Repo:     "api",
		PRNumber: 42,
		Reason:   models.TriggerUpdated,
		Phase:    models.PhaseTriggered,
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	err := s.Migrate(context.Background())
	assert.NoError(t, err)
}

func TestSessionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cs := newSession()
	err := s.CreateSession(ctx, cs)
	require.NoError(t, err)
	assert.NotEmpty(t, cs.ID)
	assert.False(t, cs.CreatedAt.IsZero())

	got, err := s.GetSession(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Owner)
	assert.Equal(t, 42, got.PRNumber)
	assert.Equal(t, models.PhaseTriggered, got.Phase)

	cs.Phase = models.PhaseValidated
	cs.Outcome = models.OutcomeResolved
	cs.Branch = "conflict-resolution/pr-42-1"
	err = s.UpdateSession(ctx, cs)
	require.NoError(t, err)

	got, err = s.GetSession(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseValidated, got.Phase)
	assert.Equal(t, models.OutcomeResolved, got.Outcome)
	assert.Equal(t, "conflict-resolution/pr-42-1", got.Branch)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateSession_NotFound(t *testing.T) {
	s := newTestStore(t)

	cs := newSession()
	cs.ID = "missing"
	err := s.UpdateSession(context.Background(), cs)
	require.Error(t, err)
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cs := newSession()
		cs.PRNumber = 100 + i
		require.NoError(t, s.CreateSession(ctx, cs))
	}

	sessions, err := s.ListSessions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	all, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit falls back to a default")
}

func TestListSessionsForPR(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newSession()
	require.NoError(t, s.CreateSession(ctx, first))

	second := newSession()
	require.NoError(t, s.CreateSession(ctx, second))

	other := newSession()
	other.PRNumber = 7
	require.NoError(t, s.CreateSession(ctx, other))

	sessions, err := s.ListSessionsForPR(ctx, "acme", "api", 42)
	require.NoError(t, err)
	assert.Len(t, sessions, 2, "each trigger is its own session")
}

func TestRecordEscalation_Dedupes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cs := newSession()
	require.NoError(t, s.CreateSession(ctx, cs))

	fresh, err := s.RecordEscalation(ctx, cs.ID, "hash-1")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.RecordEscalation(ctx, cs.ID, "hash-1")
	require.NoError(t, err)
	assert.False(t, fresh, "same session state records once")

	fresh, err = s.RecordEscalation(ctx, cs.ID, "hash-2")
	require.NoError(t, err)
	assert.True(t, fresh, "a different outcome hash is a new escalation")
}
