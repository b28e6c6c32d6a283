package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"goally/models"
	"goally/store"

	"github.com/google/uuid"
)

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func validateWeight(weight float64) error {
	if math.IsNaN(weight) || weight < 0 || weight > 100 {
		return fmt.Errorf("%w: weight must be between 0 and 100, got %v", ErrValidation, weight)
	}
	return nil
}

func validateWeightLevel(level int) error {
	if level < models.MinWeightLevel || level > models.MaxWeightLevel {
		return fmt.Errorf("%w: weight level must be between %d and %d, got %d",
			ErrValidation, models.MinWeightLevel, models.MaxWeightLevel, level)
	}
	return nil
}

func validateStatus(status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return nil
}

func required(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return trimmed, nil
}

func (s *goalService) CreateGoal(ctx context.Context, title string) (models.Goal, error) {
	title, err := required("title", title)
	if err != nil {
		return models.Goal{}, err
	}

	var created models.Goal
	_, err = s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		created = models.Goal{
			ID:        newID("goal"),
			Title:     title,
			CreatedAt: s.now().UnixMilli(),
		}
		st.InsertGoal(created)
		return &ChangeEvent{Entity: EntityGoal, Kind: ChangeCreated, ID: created.ID}, nil
	})
	return created, err
}

func (s *goalService) UpdateGoal(ctx context.Context, id, title string) (bool, error) {
	title, err := required("title", title)
	if err != nil {
		return false, err
	}

	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		g, ok := st.FindGoal(id)
		if !ok {
			return nil, nil
		}
		g.Title = title
		st.ReplaceGoal(g)
		return &ChangeEvent{Entity: EntityGoal, Kind: ChangeUpdated, ID: id}, nil
	})
}

// DeleteGoal removes the goal, its key results and their initiatives.
func (s *goalService) DeleteGoal(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		if _, ok := st.FindGoal(id); !ok {
			return nil, nil
		}
		krIDs := map[string]struct{}{}
		for _, kr := range st.KrsOf(id) {
			krIDs[kr.ID] = struct{}{}
		}
		removedInitiatives := st.RemoveInitiatives(func(in models.Initiative) bool {
			_, owned := krIDs[in.KrID]
			return owned
		})
		removedKrs := st.RemoveKrs(func(kr models.KeyResult) bool { return kr.GoalID == id })
		st.RemoveGoals(func(g models.Goal) bool { return g.ID == id })

		s.logger.Debug("goal deleted", "goal_id", id,
			"key_results", removedKrs, "initiatives", removedInitiatives)
		return &ChangeEvent{Entity: EntityGoal, Kind: ChangeDeleted, ID: id}, nil
	})
}

func (s *goalService) CreateKr(ctx context.Context, goalID, description string, weight float64) (models.KeyResult, error) {
	description, err := required("description", description)
	if err != nil {
		return models.KeyResult{}, err
	}
	if err := validateWeight(weight); err != nil {
		return models.KeyResult{}, err
	}

	var created models.KeyResult
	_, err = s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		if _, ok := st.FindGoal(goalID); !ok {
			return nil, fmt.Errorf("%w: goal %s", ErrParentNotFound, goalID)
		}
		created = models.KeyResult{
			ID:          newID("kr"),
			GoalID:      goalID,
			Description: description,
			Weight:      weight,
			CreatedAt:   s.now().UnixMilli(),
		}
		st.InsertKr(created)
		return &ChangeEvent{Entity: EntityKeyResult, Kind: ChangeCreated, ID: created.ID}, nil
	})
	return created, err
}

func (s *goalService) UpdateKr(ctx context.Context, id, description string, weight float64) (bool, error) {
	description, err := required("description", description)
	if err != nil {
		return false, err
	}
	if err := validateWeight(weight); err != nil {
		return false, err
	}

	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		kr, ok := st.FindKr(id)
		if !ok {
			return nil, nil
		}
		kr.Description = description
		kr.Weight = weight
		st.ReplaceKr(kr)
		return &ChangeEvent{Entity: EntityKeyResult, Kind: ChangeUpdated, ID: id}, nil
	})
}

// DeleteKr removes the key result and its initiatives.
func (s *goalService) DeleteKr(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		if _, ok := st.FindKr(id); !ok {
			return nil, nil
		}
		st.RemoveInitiatives(func(in models.Initiative) bool { return in.KrID == id })
		st.RemoveKrs(func(kr models.KeyResult) bool { return kr.ID == id })
		return &ChangeEvent{Entity: EntityKeyResult, Kind: ChangeDeleted, ID: id}, nil
	})
}

// CreateInitiative adds an initiative under krID. An empty status defaults to
// Pending.
func (s *goalService) CreateInitiative(ctx context.Context, krID, description string, weightLevel int, status models.Status) (models.Initiative, error) {
	description, err := required("description", description)
	if err != nil {
		return models.Initiative{}, err
	}
	if err := validateWeightLevel(weightLevel); err != nil {
		return models.Initiative{}, err
	}
	if status == "" {
		status = models.StatusPending
	}
	if err := validateStatus(status); err != nil {
		return models.Initiative{}, err
	}

	var created models.Initiative
	_, err = s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		if _, ok := st.FindKr(krID); !ok {
			return nil, fmt.Errorf("%w: key result %s", ErrParentNotFound, krID)
		}
		created = models.Initiative{
			ID:          newID("init"),
			KrID:        krID,
			Description: description,
			WeightLevel: weightLevel,
			Status:      status,
			CreatedAt:   s.now().UnixMilli(),
		}
		st.InsertInitiative(created)
		return &ChangeEvent{Entity: EntityInitiative, Kind: ChangeCreated, ID: created.ID}, nil
	})
	return created, err
}

// UpdateInitiative applies the non-nil fields of patch. An empty patch is a
// no-op.
func (s *goalService) UpdateInitiative(ctx context.Context, id string, patch models.InitiativePatch) (bool, error) {
	var description string
	if patch.Description != nil {
		d, err := required("description", *patch.Description)
		if err != nil {
			return false, err
		}
		description = d
	}
	if patch.WeightLevel != nil {
		if err := validateWeightLevel(*patch.WeightLevel); err != nil {
			return false, err
		}
	}
	if patch.Status != nil {
		if err := validateStatus(*patch.Status); err != nil {
			return false, err
		}
	}

	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		in, ok := st.FindInitiative(id)
		if !ok || patch.Empty() {
			return nil, nil
		}
		if patch.Description != nil {
			in.Description = description
		}
		if patch.WeightLevel != nil {
			in.WeightLevel = *patch.WeightLevel
		}
		if patch.Status != nil {
			in.Status = *patch.Status
		}
		st.ReplaceInitiative(in)
		return &ChangeEvent{Entity: EntityInitiative, Kind: ChangeUpdated, ID: id}, nil
	})
}

func (s *goalService) DeleteInitiative(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		if st.RemoveInitiatives(func(in models.Initiative) bool { return in.ID == id }) == 0 {
			return nil, nil
		}
		return &ChangeEvent{Entity: EntityInitiative, Kind: ChangeDeleted, ID: id}, nil
	})
}

// SetInitiativeStatus changes only the status. Setting the status an
// initiative already has is a no-op and triggers no save.
func (s *goalService) SetInitiativeStatus(ctx context.Context, id string, status models.Status) (bool, error) {
	if err := validateStatus(status); err != nil {
		return false, err
	}

	return s.apply(ctx, func(st *store.Store) (*ChangeEvent, error) {
		in, ok := st.FindInitiative(id)
		if !ok || in.Status == status {
			return nil, nil
		}
		in.Status = status
		st.ReplaceInitiative(in)
		return &ChangeEvent{Entity: EntityInitiative, Kind: ChangeStatus, ID: id}, nil
	})
}
