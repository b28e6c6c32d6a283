package completion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goally/models"
	"goally/store"
)

func scenarioStore() *store.Store {
	s := store.New()
	s.InsertGoal(models.Goal{ID: "g1", Title: "Learn X"})
	s.InsertKr(models.KeyResult{ID: "kr1", GoalID: "g1", Weight: 60})
	s.InsertInitiative(models.Initiative{ID: "i1", KrID: "kr1", WeightLevel: 3, Status: models.StatusDone})
	s.InsertInitiative(models.Initiative{ID: "i2", KrID: "kr1", WeightLevel: 2, Status: models.StatusPending})
	return s
}

func TestKrCompletion_WeightedByLevel(t *testing.T) {
	s := scenarioStore()
	assert.InDelta(t, 60.0, KrCompletion(s, "kr1"), 1e-9)
	assert.InDelta(t, 36.0, GoalCompletion(s, "g1"), 1e-9)
}

func TestGoalCompletion_SecondKr(t *testing.T) {
	s := scenarioStore()
	s.InsertKr(models.KeyResult{ID: "kr2", GoalID: "g1", Weight: 40})
	s.InsertInitiative(models.Initiative{ID: "i3", KrID: "kr2", WeightLevel: 5, Status: models.StatusDone})

	assert.InDelta(t, 100.0, KrCompletion(s, "kr2"), 1e-9)
	assert.InDelta(t, 76.0, GoalCompletion(s, "g1"), 1e-9)
}

func TestGoalCompletion_NotClampedWhenWeightsExceed100(t *testing.T) {
	s := store.New()
	s.InsertGoal(models.Goal{ID: "g"})
	s.InsertKr(models.KeyResult{ID: "a", GoalID: "g", Weight: 60})
	s.InsertKr(models.KeyResult{ID: "b", GoalID: "g", Weight: 90})
	s.InsertInitiative(models.Initiative{ID: "ia", KrID: "a", WeightLevel: 1, Status: models.StatusDone})
	s.InsertInitiative(models.Initiative{ID: "ib", KrID: "b", WeightLevel: 4, Status: models.StatusDone})

	assert.InDelta(t, 150.0, GoalCompletion(s, "g"), 1e-9)
}

func TestEmptyChildrenYieldZero(t *testing.T) {
	s := store.New()
	s.InsertGoal(models.Goal{ID: "g"})
	s.InsertKr(models.KeyResult{ID: "kr", GoalID: "g", Weight: 100})

	assert.Zero(t, KrCompletion(s, "kr"))
	assert.Zero(t, GoalCompletion(s, "g"))
	assert.Zero(t, GoalCompletion(s, "missing"))
	assert.Zero(t, KrCompletion(s, "missing"))
}

func TestKrCompletion_ZeroTotalWeight(t *testing.T) {
	s := store.New()
	s.InsertInitiative(models.Initiative{ID: "i", KrID: "kr", WeightLevel: 0, Status: models.StatusDone})
	assert.Zero(t, KrCompletion(s, "kr"))
}

func TestKrCompletion_RoundsToTwoDecimals(t *testing.T) {
	s := store.New()
	s.InsertInitiative(models.Initiative{ID: "a", KrID: "kr", WeightLevel: 1, Status: models.StatusDone})
	s.InsertInitiative(models.Initiative{ID: "b", KrID: "kr", WeightLevel: 1, Status: models.StatusInProgress})
	s.InsertInitiative(models.Initiative{ID: "c", KrID: "kr", WeightLevel: 1, Status: models.StatusPending})

	assert.Equal(t, 33.33, KrCompletion(s, "kr"))
}

func TestKrCompletion_RandomSetsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := []models.Status{models.StatusPending, models.StatusInProgress, models.StatusDone}

	for n := 0; n < 200; n++ {
		s := store.New()
		var total, done int
		count := 1 + rng.Intn(12)
		for i := 0; i < count; i++ {
			level := 1 + rng.Intn(5)
			status := statuses[rng.Intn(len(statuses))]
			total += level
			if status == models.StatusDone {
				done += level
			}
			s.InsertInitiative(models.Initiative{ID: string(rune('a' + i)), KrID: "kr", WeightLevel: level, Status: status})
		}

		got := KrCompletion(s, "kr")
		require.GreaterOrEqual(t, got, 0.0)
		require.LessOrEqual(t, got, 100.0)
		require.Equal(t, Round2(float64(done)/float64(total)*100), got)
		require.Equal(t, got, KrCompletion(s, "kr"), "calculator must be pure")
	}
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		p    float64
		want Tier
	}{
		{0, TierLow},
		{33.99, TierLow},
		{34, TierMedium},
		{66.99, TierMedium},
		{67, TierHigh},
		{150, TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierOf(tt.p), "p=%v", tt.p)
	}
}
