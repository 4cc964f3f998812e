package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

func completedSession(t *testing.T, path string) *domain.DeltaSession {
	t.Helper()
	session := domain.NewDeltaSession(path, domain.ModeIncremental)
	require.NoError(t, session.Transition(domain.StatusCompleted))
	return session
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session := completedSession(t, "/docs/a.md")
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestSessionStore_GetNotFound(t *testing.T) {
	store := NewSessionStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_ListByPathMostRecentFirst(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	first := completedSession(t, "/docs/a.md")
	second := completedSession(t, "/docs/a.md")
	other := completedSession(t, "/docs/b.md")
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, other))

	sessions, err := store.ListByPath(ctx, "/docs/a.md", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	limited, err := store.ListByPath(ctx, "/docs/a.md", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func TestSessionStore_ListAll(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	first := completedSession(t, "/docs/a.md")
	second := completedSession(t, "/docs/b.md")
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	sessions, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestSessionStore_ResaveKeepsOrder(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session := domain.NewDeltaSession("/docs/a.md", domain.ModeIncremental)
	require.NoError(t, session.Transition(domain.StatusFailed))
	require.NoError(t, store.Save(ctx, session))

	// A rollback re-persists the same id without duplicating it.
	require.NoError(t, session.Transition(domain.StatusRolledBack))
	require.NoError(t, store.Save(ctx, session))

	sessions, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.StatusRolledBack, sessions[0].Status)
}
