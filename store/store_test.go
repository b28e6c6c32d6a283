package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goally/models"
)

func TestFindMissingReturnsFalse(t *testing.T) {
	s := New()
	_, ok := s.FindGoal("nope")
	assert.False(t, ok)
	_, ok = s.FindKr("nope")
	assert.False(t, ok)
	_, ok = s.FindInitiative("nope")
	assert.False(t, ok)
	assert.Empty(t, s.KrsOf("nope"))
	assert.NotNil(t, s.InitiativesOf("nope"))
}

func TestChildrenKeepInsertionOrder(t *testing.T) {
	s := New()
	s.InsertGoal(models.Goal{ID: "g"})
	s.InsertKr(models.KeyResult{ID: "k2", GoalID: "g"})
	s.InsertKr(models.KeyResult{ID: "other", GoalID: "x"})
	s.InsertKr(models.KeyResult{ID: "k1", GoalID: "g"})

	krs := s.KrsOf("g")
	require.Len(t, krs, 2)
	assert.Equal(t, "k2", krs[0].ID)
	assert.Equal(t, "k1", krs[1].ID)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New()
	s.InsertGoal(models.Goal{ID: "g", Title: "before"})

	snap := s.Snapshot()
	snap.Goals[0].Title = "after"

	g, ok := s.FindGoal("g")
	require.True(t, ok)
	assert.Equal(t, "before", g.Title)
	assert.NotNil(t, snap.KeyResults)
	assert.NotNil(t, snap.Initiatives)
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	in := models.Snapshot{
		Goals:       []models.Goal{{ID: "g"}},
		KeyResults:  []models.KeyResult{{ID: "k", GoalID: "g", Weight: 50}},
		Initiatives: []models.Initiative{{ID: "i", KrID: "k", WeightLevel: 2, Status: models.StatusDone}},
	}
	s := FromSnapshot(in)
	in.Goals[0].ID = "mutated"

	_, ok := s.FindGoal("g")
	assert.True(t, ok)
	assert.Len(t, s.InitiativesOf("k"), 1)
}

func TestReplaceAndRemove(t *testing.T) {
	s := New()
	s.InsertKr(models.KeyResult{ID: "k", Description: "old"})

	assert.True(t, s.ReplaceKr(models.KeyResult{ID: "k", Description: "new"}))
	assert.False(t, s.ReplaceKr(models.KeyResult{ID: "missing"}))
	kr, _ := s.FindKr("k")
	assert.Equal(t, "new", kr.Description)

	s.InsertInitiative(models.Initiative{ID: "a", KrID: "k"})
	s.InsertInitiative(models.Initiative{ID: "b", KrID: "k"})
	s.InsertInitiative(models.Initiative{ID: "c", KrID: "z"})
	n := s.RemoveInitiatives(func(in models.Initiative) bool { return in.KrID == "k" })
	assert.Equal(t, 2, n)
	assert.Len(t, s.Snapshot().Initiatives, 1)
}

func TestSanitize(t *testing.T) {
	t.Run("drops orphans transitively", func(t *testing.T) {
		snap := models.Snapshot{
			Goals: []models.Goal{{ID: "goal-1"}},
			KeyResults: []models.KeyResult{
				{ID: "kr-1", GoalID: "goal-1"},
				{ID: "kr-2", GoalID: "goal-missing"},
			},
			Initiatives: []models.Initiative{
				{ID: "init-1", KrID: "kr-1"},
				{ID: "init-2", KrID: "kr-2"},
				{ID: "init-3", KrID: "kr-missing"},
			},
			LastModified: 42,
		}

		clean, pruned, err := Sanitize(snap)
		require.NoError(t, err)
		assert.Equal(t, Pruned{KeyResults: 1, Initiatives: 2}, pruned)
		assert.True(t, pruned.Any())
		assert.Equal(t, []models.KeyResult{{ID: "kr-1", GoalID: "goal-1"}}, clean.KeyResults)
		assert.Equal(t, []models.Initiative{{ID: "init-1", KrID: "kr-1"}}, clean.Initiatives)
		assert.Equal(t, int64(42), clean.LastModified)
	})

	t.Run("consistent snapshot is unchanged", func(t *testing.T) {
		snap := models.Snapshot{
			Goals:       []models.Goal{{ID: "goal-1"}},
			KeyResults:  []models.KeyResult{{ID: "kr-1", GoalID: "goal-1"}},
			Initiatives: []models.Initiative{{ID: "init-1", KrID: "kr-1"}},
		}
		clean, pruned, err := Sanitize(snap)
		require.NoError(t, err)
		assert.False(t, pruned.Any())
		assert.Equal(t, snap, clean)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		for _, snap := range []models.Snapshot{
			{Goals: []models.Goal{{ID: "goal-1"}, {ID: "goal-1"}}},
			{Goals: []models.Goal{{ID: "goal-1"}}, KeyResults: []models.KeyResult{{ID: "kr-1", GoalID: "goal-1"}, {ID: "kr-1", GoalID: "goal-1"}}},
			{Initiatives: []models.Initiative{{ID: "init-1"}, {ID: "init-1"}}},
		} {
			_, _, err := Sanitize(snap)
			require.ErrorIs(t, err, ErrDuplicateID)
		}
	})
}
