// Package session holds per-user application state: the source registry, review
// pointer, report and chat log, and a TTL-bounded manager of sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/registry"
	"github.com/hyperjump/medscribe/internal/workflow"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Session is one user's working state. Callers hold Lock for the duration of an
// action; nothing inside a session is safe for concurrent use on its own.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	Registry  *registry.Registry
	Review    *workflow.Review
	Report    *Report
	Chat      *ChatLog
}

// New returns an empty session with the given id.
func New(id string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	reg := registry.New(registry.WithClock(now))
	return &Session{
		ID:        id,
		CreatedAt: now(),
		Registry:  reg,
		Review:    workflow.NewReview(reg),
		Report:    &Report{},
		Chat:      &ChatLog{},
	}
}

// Lock acquires the session for one action.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager keeps sessions in memory and expires them after a period of inactivity.
type Manager struct {
	store  *cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for session lifecycle events.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock sets the clock handed to new sessions.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a manager that drops sessions idle for ttl, sweeping every
// cleanup interval.
func NewManager(ttl, cleanup time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = utils.OrNop(m.logger)
	m.store = cache.New(ttl, cleanup)
	m.store.OnEvicted(func(id string, _ interface{}) {
		m.logger.Debug("session evicted", zap.String("session_id", id))
	})
	return m
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.now)
	m.store.Set(s.ID, s, cache.DefaultExpiration)
	m.logger.Info("session created", zap.String("session_id", s.ID))
	return s
}

// Get returns the session with the given id and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	v, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	m.store.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete drops a session. Returns false if it did not exist.
func (m *Manager) Delete(id string) bool {
	if _, ok := m.store.Get(id); !ok {
		return false
	}
	m.store.Delete(id)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.store.ItemCount()
}
