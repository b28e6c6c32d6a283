package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repository "goally/repositories"
)

func TestSessionManager_IsolatesPrincipals(t *testing.T) {
	ctx := context.Background()
	manager := NewSessionManager(repository.NewMemoryFactory(), nil, nil)

	alice, err := manager.Session(ctx, "alice")
	require.NoError(t, err)
	_, err = alice.CreateGoal(ctx, "Alice's goal")
	require.NoError(t, err)

	bob, err := manager.Session(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.Snapshot().Goals)

	again, err := manager.Session(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, again.Snapshot().Goals, 1)
	assert.Equal(t, 2, manager.Len())
}

func TestSessionManager_EmptyPrincipalIsAnonymous(t *testing.T) {
	ctx := context.Background()
	manager := NewSessionManager(repository.NewMemoryFactory(), nil, nil)

	a, err := manager.Session(ctx, "")
	require.NoError(t, err)
	b, err := manager.Session(ctx, AnonymousPrincipal)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestSessionManager_RetriesFailedLoad(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.FailLoads(errors.New("unreachable"))
	manager := NewSessionManager(func(string) repository.SnapshotRepository { return repo }, nil, nil)

	svc, err := manager.Session(ctx, "alice")
	require.ErrorIs(t, err, ErrLoadIntegrity)
	assert.Equal(t, StateLoadFailed, svc.State())

	repo.FailLoads(nil)
	svc, err = manager.Session(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, svc.State())
	assert.Equal(t, 2, repo.Loads())

	_, err = manager.Session(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Loads(), "loaded sessions are not reloaded")
}

func TestSessionManager_ConcurrentFirstRequestsLoadOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	manager := NewSessionManager(func(string) repository.SnapshotRepository { return repo }, nil, nil)

	svc, err := manager.Session(ctx, "alice")
	require.NoError(t, err)
	repo.FailSaves(errors.New("offline"))
	goal, err := svc.CreateGoal(ctx, "Unsaved")
	require.ErrorIs(t, err, ErrPersistence)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := manager.Session(ctx, "alice")
			assert.NoError(t, err)
			_ = s.Load(ctx)
		}()
	}
	wg.Wait()

	_, ok := svc.FindGoal(goal.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, repo.Loads())
}
