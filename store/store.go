// Package store holds the in-memory Goal → Key Result → Initiative hierarchy.
//
// The store keeps three flat, insertion-ordered collections linked by foreign
// keys. It performs no validation; referential integrity is maintained by the
// mutation layer in package services.
package store

import (
	"errors"
	"fmt"
	"slices"

	"goally/models"
)

type Store struct {
	goals       []models.Goal
	keyResults  []models.KeyResult
	initiatives []models.Initiative
}

func New() *Store {
	return &Store{}
}

// FromSnapshot builds a store from a flat snapshot. Nil collections are
// treated as empty. The snapshot slices are copied.
func FromSnapshot(snap models.Snapshot) *Store {
	return &Store{
		goals:       slices.Clone(snap.Goals),
		keyResults:  slices.Clone(snap.KeyResults),
		initiatives: slices.Clone(snap.Initiatives),
	}
}

func (s *Store) FindGoal(id string) (models.Goal, bool) {
	for _, g := range s.goals {
		if g.ID == id {
			return g, true
		}
	}
	return models.Goal{}, false
}

func (s *Store) FindKr(id string) (models.KeyResult, bool) {
	for _, kr := range s.keyResults {
		if kr.ID == id {
			return kr, true
		}
	}
	return models.KeyResult{}, false
}

func (s *Store) FindInitiative(id string) (models.Initiative, bool) {
	for _, in := range s.initiatives {
		if in.ID == id {
			return in, true
		}
	}
	return models.Initiative{}, false
}

// Goals returns all goals in insertion order.
func (s *Store) Goals() []models.Goal {
	return slices.Clone(s.goals)
}

// KrsOf returns the key results of a goal in insertion order.
func (s *Store) KrsOf(goalID string) []models.KeyResult {
	out := []models.KeyResult{}
	for _, kr := range s.keyResults {
		if kr.GoalID == goalID {
			out = append(out, kr)
		}
	}
	return out
}

// InitiativesOf returns the initiatives of a key result in insertion order.
func (s *Store) InitiativesOf(krID string) []models.Initiative {
	out := []models.Initiative{}
	for _, in := range s.initiatives {
		if in.KrID == krID {
			out = append(out, in)
		}
	}
	return out
}

// Snapshot returns a copy of the three flat collections. LastModified is left
// for the persistence layer to stamp.
func (s *Store) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		Goals:       slices.Clone(s.goals),
		KeyResults:  slices.Clone(s.keyResults),
		Initiatives: slices.Clone(s.initiatives),
	}
	if snap.Goals == nil {
		snap.Goals = []models.Goal{}
	}
	if snap.KeyResults == nil {
		snap.KeyResults = []models.KeyResult{}
	}
	if snap.Initiatives == nil {
		snap.Initiatives = []models.Initiative{}
	}
	return snap
}

func (s *Store) InsertGoal(g models.Goal) {
	s.goals = append(s.goals, g)
}

func (s *Store) InsertKr(kr models.KeyResult) {
	s.keyResults = append(s.keyResults, kr)
}

func (s *Store) InsertInitiative(in models.Initiative) {
	s.initiatives = append(s.initiatives, in)
}

// ReplaceGoal overwrites the goal with the same ID in place.
// It reports false when no such goal exists.
func (s *Store) ReplaceGoal(g models.Goal) bool {
	i := slices.IndexFunc(s.goals, func(x models.Goal) bool { return x.ID == g.ID })
	if i < 0 {
		return false
	}
	s.goals[i] = g
	return true
}

func (s *Store) ReplaceKr(kr models.KeyResult) bool {
	i := slices.IndexFunc(s.keyResults, func(x models.KeyResult) bool { return x.ID == kr.ID })
	if i < 0 {
		return false
	}
	s.keyResults[i] = kr
	return true
}

func (s *Store) ReplaceInitiative(in models.Initiative) bool {
	i := slices.IndexFunc(s.initiatives, func(x models.Initiative) bool { return x.ID == in.ID })
	if i < 0 {
		return false
	}
	s.initiatives[i] = in
	return true
}

// RemoveGoals drops every goal for which match returns true and reports how
// many were removed.
func (s *Store) RemoveGoals(match func(models.Goal) bool) int {
	before := len(s.goals)
	s.goals = slices.DeleteFunc(s.goals, match)
	return before - len(s.goals)
}

func (s *Store) RemoveKrs(match func(models.KeyResult) bool) int {
	before := len(s.keyResults)
	s.keyResults = slices.DeleteFunc(s.keyResults, match)
	return before - len(s.keyResults)
}

func (s *Store) RemoveInitiatives(match func(models.Initiative) bool) int {
	before := len(s.initiatives)
	s.initiatives = slices.DeleteFunc(s.initiatives, match)
	return before - len(s.initiatives)
}

// ErrDuplicateID marks a snapshot in which two entities of one kind share an ID.
var ErrDuplicateID = errors.New("duplicate id")

// Pruned counts the entities Sanitize dropped because their parent was missing.
type Pruned struct {
	KeyResults  int
	Initiatives int
}

func (p Pruned) Any() bool {
	return p.KeyResults > 0 || p.Initiatives > 0
}

// Sanitize checks a loaded snapshot. Duplicate IDs within a collection are an
// error. Key results whose goal is missing are dropped, then initiatives whose
// key result is missing, so the result has no dangling foreign keys.
func Sanitize(snap models.Snapshot) (models.Snapshot, Pruned, error) {
	goalIDs, err := uniqueIDs("goal", snap.Goals, func(g models.Goal) string { return g.ID })
	if err != nil {
		return models.Snapshot{}, Pruned{}, err
	}
	if _, err := uniqueIDs("key result", snap.KeyResults, func(kr models.KeyResult) string { return kr.ID }); err != nil {
		return models.Snapshot{}, Pruned{}, err
	}
	if _, err := uniqueIDs("initiative", snap.Initiatives, func(in models.Initiative) string { return in.ID }); err != nil {
		return models.Snapshot{}, Pruned{}, err
	}

	var pruned Pruned
	krs := make([]models.KeyResult, 0, len(snap.KeyResults))
	krIDs := make(map[string]struct{}, len(snap.KeyResults))
	for _, kr := range snap.KeyResults {
		if _, ok := goalIDs[kr.GoalID]; !ok {
			pruned.KeyResults++
			continue
		}
		krs = append(krs, kr)
		krIDs[kr.ID] = struct{}{}
	}

	initiatives := make([]models.Initiative, 0, len(snap.Initiatives))
	for _, in := range snap.Initiatives {
		if _, ok := krIDs[in.KrID]; !ok {
			pruned.Initiatives++
			continue
		}
		initiatives = append(initiatives, in)
	}

	return models.Snapshot{
		Goals:        slices.Clone(snap.Goals),
		KeyResults:   krs,
		Initiatives:  initiatives,
		LastModified: snap.LastModified,
	}, pruned, nil
}

func uniqueIDs[T any](kind string, items []T, id func(T) string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := id(item)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, key)
		}
		seen[key] = struct{}{}
	}
	return seen, nil
}
