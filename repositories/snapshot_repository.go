package repository

import (
	"context"
	"sync"

	"goally/models"
)

// SnapshotRepository loads and saves one principal's flat snapshot.
//
// Load reports found=false with a nil error when nothing has been stored yet.
// Any read failure or undecodable payload is returned as an error so callers
// never mistake it for an empty hierarchy.
type SnapshotRepository interface {
	Load(ctx context.Context) (snap models.Snapshot, found bool, err error)
	Save(ctx context.Context, snap models.Snapshot) error
}

// Factory returns the repository that targets the given principal's document.
type Factory func(owner string) SnapshotRepository

// MemoryRepository keeps a snapshot in process memory. It backs the "memory"
// storage driver and is handy in tests, where failures can be injected.
type MemoryRepository struct {
	mu      sync.Mutex
	snap    *models.Snapshot
	saves   int
	loads   int
	loadErr error
	saveErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(ctx context.Context) (models.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return models.Snapshot{}, false, r.loadErr
	}
	if r.snap == nil {
		return models.Snapshot{}, false, nil
	}
	return cloneSnapshot(*r.snap), true, nil
}

func (r *MemoryRepository) Save(ctx context.Context, snap models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	c := cloneSnapshot(snap)
	r.snap = &c
	return nil
}

// Saves returns how many Save calls were made, failed ones included.
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *MemoryRepository) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

// Stored returns the last successfully saved snapshot.
func (r *MemoryRepository) Stored() (models.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap == nil {
		return models.Snapshot{}, false
	}
	return cloneSnapshot(*r.snap), true
}

func (r *MemoryRepository) Seed(snap models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cloneSnapshot(snap)
	r.snap = &c
}

// FailLoads makes every subsequent Load return err. Pass nil to recover.
func (r *MemoryRepository) FailLoads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErr = err
}

func (r *MemoryRepository) FailSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// NewMemoryFactory hands out one MemoryRepository per owner.
func NewMemoryFactory() Factory {
	var mu sync.Mutex
	repos := map[string]*MemoryRepository{}
	return func(owner string) SnapshotRepository {
		mu.Lock()
		defer mu.Unlock()
		repo, ok := repos[owner]
		if !ok {
			repo = NewMemoryRepository()
			repos[owner] = repo
		}
		return repo
	}
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	return models.Snapshot{
		Goals:        append([]models.Goal{}, s.Goals...),
		KeyResults:   append([]models.KeyResult{}, s.KeyResults...),
		Initiatives:  append([]models.Initiative{}, s.Initiatives...),
		LastModified: s.LastModified,
	}
}

// normalize replaces nil collections with empty ones after decoding.
func normalize(s *models.Snapshot) {
	if s.Goals == nil {
		s.Goals = []models.Goal{}
	}
	if s.KeyResults == nil {
		s.KeyResults = []models.KeyResult{}
	}
	if s.Initiatives == nil {
		s.Initiatives = []models.Initiative{}
	}
}
