package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"goally/completion"
	"goally/metrics"
	"goally/models"
	repository "goally/repositories"
	"goally/store"
)

// LoadState gates saving. Only a session in StateLoaded accepts mutations.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoaded
	StateLoadFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateLoadFailed:
		return "load_failed"
	default:
		return "uninitialized"
	}
}

type GoalService interface {
	Load(ctx context.Context) error
	State() LoadState
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())

	FindGoal(id string) (models.Goal, bool)
	FindKr(id string) (models.KeyResult, bool)
	FindInitiative(id string) (models.Initiative, bool)
	KrsOf(goalID string) []models.KeyResult
	InitiativesOf(krID string) []models.Initiative
	KrCompletion(krID string) float64
	GoalCompletion(goalID string) float64
	Snapshot() models.Snapshot
	Tree() []models.GoalTree
	GoalTree(id string) (models.GoalTree, bool)
	KrTree(id string) (models.KeyResultTree, bool)
	TierStats() []models.TierStats

	CreateGoal(ctx context.Context, title string) (models.Goal, error)
	UpdateGoal(ctx context.Context, id, title string) (bool, error)
	DeleteGoal(ctx context.Context, id string) (bool, error)
	CreateKr(ctx context.Context, goalID, description string, weight float64) (models.KeyResult, error)
	UpdateKr(ctx context.Context, id, description string, weight float64) (bool, error)
	DeleteKr(ctx context.Context, id string) (bool, error)
	CreateInitiative(ctx context.Context, krID, description string, weightLevel int, status models.Status) (models.Initiative, error)
	UpdateInitiative(ctx context.Context, id string, patch models.InitiativePatch) (bool, error)
	DeleteInitiative(ctx context.Context, id string) (bool, error)
	SetInitiativeStatus(ctx context.Context, id string, status models.Status) (bool, error)
}

type Option func(*goalService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *goalService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.GoalMetrics) Option {
	return func(s *goalService) { s.metrics = m }
}

// WithClock overrides the time source used for createdAt and lastModified.
func WithClock(now func() time.Time) Option {
	return func(s *goalService) {
		if now != nil {
			s.now = now
		}
	}
}

type goalService struct {
	mu        sync.RWMutex
	store     *store.Store
	state     LoadState
	repo      repository.SnapshotRepository
	listeners map[int]func(ChangeEvent)
	nextSub   int
	logger    *slog.Logger
	metrics   *metrics.GoalMetrics
	now       func() time.Time
}

// NewGoalService returns a session over repo. Call Load before mutating.
func NewGoalService(repo repository.SnapshotRepository, opts ...Option) GoalService {
	s := &goalService{
		store:     store.New(),
		state:     StateUninitialized,
		repo:      repo,
		listeners: map[int]func(ChangeEvent){},
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory hierarchy with the stored snapshot. An absent
// snapshot loads as empty. On failure the store is left as it was and the
// session moves to StateLoadFailed; Load may be retried. Once loaded, further
// calls are no-ops so unsaved changes are never discarded.
//
// A snapshot with duplicate IDs is a load failure. Key results and
// initiatives whose parent is missing are dropped.
func (s *goalService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoaded {
		return nil
	}

	snap, found, err := s.repo.Load(ctx)
	if err == nil && found {
		var pruned store.Pruned
		snap, pruned, err = store.Sanitize(snap)
		if pruned.Any() {
			s.logger.Warn("dropped orphaned entities from stored snapshot",
				"key_results", pruned.KeyResults, "initiatives", pruned.Initiatives)
		}
	}
	s.metrics.RecordLoad(err)
	if err != nil {
		s.state = StateLoadFailed
		s.logger.Error("snapshot load failed", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadIntegrity, err)
	}

	if found {
		s.store = store.FromSnapshot(snap)
	} else {
		s.store = store.New()
	}
	s.state = StateLoaded
	s.logger.Info("snapshot loaded", "found", found,
		"goals", len(snap.Goals), "key_results", len(snap.KeyResults), "initiatives", len(snap.Initiatives))
	return nil
}

func (s *goalService) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *goalService) Subscribe(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *goalService) FindGoal(id string) (models.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FindGoal(id)
}

func (s *goalService) FindKr(id string) (models.KeyResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FindKr(id)
}

func (s *goalService) FindInitiative(id string) (models.Initiative, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FindInitiative(id)
}

func (s *goalService) KrsOf(goalID string) []models.KeyResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.KrsOf(goalID)
}

func (s *goalService) InitiativesOf(krID string) []models.Initiative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.InitiativesOf(krID)
}

func (s *goalService) KrCompletion(krID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return completion.KrCompletion(s.store, krID)
}

func (s *goalService) GoalCompletion(goalID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return completion.GoalCompletion(s.store, goalID)
}

func (s *goalService) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot()
}

// Tree returns every goal nested with its key results and initiatives,
// completion values computed on the spot.
func (s *goalService) Tree() []models.GoalTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goals := s.store.Goals()
	out := make([]models.GoalTree, 0, len(goals))
	for _, g := range goals {
		out = append(out, s.goalTree(g))
	}
	return out
}

func (s *goalService) GoalTree(id string) (models.GoalTree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.store.FindGoal(id)
	if !ok {
		return models.GoalTree{}, false
	}
	return s.goalTree(g), true
}

func (s *goalService) KrTree(id string) (models.KeyResultTree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kr, ok := s.store.FindKr(id)
	if !ok {
		return models.KeyResultTree{}, false
	}
	return s.krTree(kr), true
}

func (s *goalService) goalTree(g models.Goal) models.GoalTree {
	krs := s.store.KrsOf(g.ID)
	tree := models.GoalTree{Goal: g, KRs: make([]models.KeyResultTree, 0, len(krs))}
	for _, kr := range krs {
		tree.KRs = append(tree.KRs, s.krTree(kr))
	}
	tree.Completion = completion.GoalCompletion(s.store, g.ID)
	tree.Tier = string(completion.TierOf(tree.Completion))
	return tree
}

func (s *goalService) krTree(kr models.KeyResult) models.KeyResultTree {
	pct := completion.KrCompletion(s.store, kr.ID)
	return models.KeyResultTree{
		KeyResult:   kr,
		Completion:  pct,
		Tier:        string(completion.TierOf(pct)),
		Initiatives: s.store.InitiativesOf(kr.ID),
	}
}

// TierStats groups goals by progress tier, always listing low, medium and high.
func (s *goalService) TierStats() []models.TierStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := []completion.Tier{completion.TierLow, completion.TierMedium, completion.TierHigh}
	stats := map[completion.Tier]*models.TierStats{}
	for _, t := range order {
		stats[t] = &models.TierStats{Tier: string(t)}
	}
	sums := map[completion.Tier]float64{}
	for _, g := range s.store.Goals() {
		pct := completion.GoalCompletion(s.store, g.ID)
		t := completion.TierOf(pct)
		stats[t].Count++
		stats[t].TotalKRs += len(s.store.KrsOf(g.ID))
		sums[t] += pct
	}

	out := make([]models.TierStats, 0, len(order))
	for _, t := range order {
		st := *stats[t]
		if st.Count > 0 {
			st.AvgCompletion = completion.Round2(sums[t] / float64(st.Count))
		}
		out = append(out, st)
	}
	return out
}

// apply runs fn under the write lock. fn returns the event describing the
// change, or nil when nothing changed. A change is saved before the lock is
// released so no other mutation can interleave with the save; subscribers are
// notified after the lock is released.
func (s *goalService) apply(ctx context.Context, fn func(st *store.Store) (*ChangeEvent, error)) (bool, error) {
	s.mu.Lock()
	if s.state != StateLoaded {
		state := s.state
		s.mu.Unlock()
		return false, fmt.Errorf("%w: session is %s", ErrLoadIntegrity, state)
	}

	ev, err := fn(s.store)
	if err != nil || ev == nil {
		s.mu.Unlock()
		return false, err
	}
	s.metrics.RecordMutation(string(ev.Entity), string(ev.Kind))

	saveErr := s.save(ctx)
	ev.Saved = saveErr == nil
	listeners := slices.Collect(maps.Values(s.listeners))
	s.mu.Unlock()

	for _, l := range listeners {
		l(*ev)
	}
	return true, saveErr
}

func (s *goalService) save(ctx context.Context) error {
	snap := s.store.Snapshot()
	snap.LastModified = s.now().UnixMilli()

	start := time.Now()
	err := s.repo.Save(ctx, snap)
	s.metrics.RecordSave(err, time.Since(start))
	if err != nil {
		s.logger.Warn("snapshot save failed, memory kept", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
