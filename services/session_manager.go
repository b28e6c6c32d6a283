package services

import (
	"context"
	"log/slog"
	"sync"

	"goally/metrics"
	repository "goally/repositories"
)

// AnonymousPrincipal is used when a request carries no identity.
const AnonymousPrincipal = "anonymous"

// SessionManager keeps one GoalService per principal, each bound to that
// principal's stored snapshot. The data model itself knows nothing of
// principals; they only pick the document a session reads and writes.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]GoalService
	repos    repository.Factory
	opts     []Option
	logger   *slog.Logger
	metrics  *metrics.GoalMetrics
}

func NewSessionManager(repos repository.Factory, logger *slog.Logger, m *metrics.GoalMetrics, opts ...Option) *SessionManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionManager{
		sessions: map[string]GoalService{},
		repos:    repos,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// Session returns the principal's session, loading it on first use. A session
// whose earlier load failed is loaded again. The session is returned even when
// loading fails so callers can still report its state; the error wraps
// ErrLoadIntegrity.
func (m *SessionManager) Session(ctx context.Context, principal string) (GoalService, error) {
	if principal == "" {
		principal = AnonymousPrincipal
	}

	m.mu.Lock()
	svc, ok := m.sessions[principal]
	if !ok {
		logger := m.logger.With("principal", principal)
		opts := append([]Option{WithLogger(logger), WithMetrics(m.metrics)}, m.opts...)
		svc = NewGoalService(m.repos(principal), opts...)
		m.sessions[principal] = svc
		m.metrics.SetSessions(len(m.sessions))
	}
	m.mu.Unlock()

	if svc.State() != StateLoaded {
		if err := svc.Load(ctx); err != nil {
			return svc, err
		}
	}
	return svc, nil
}

// Len reports how many principals currently have a session.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
