package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"powerstats-server/internal/modules/electricity/types"
)

var ErrNotFound = errors.New("session not found")

// Store owns the live sessions and evicts the idle ones.
type Store struct {
	dash     *Dashboard
	ttl      time.Duration
	now      func() time.Time
	onSelect func(types.SelectionEvent)
	logger   *slog.Logger
	max      int

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Store)

// WithSelectionHook is called after every country drilldown, outside the
// session lock.
func WithSelectionHook(fn func(types.SelectionEvent)) Option {
	return func(s *Store) { s.onSelect = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMaxSessions caps the live sessions. Creating one more evicts the least
// recently used. n <= 0 means no cap.
func WithMaxSessions(n int) Option {
	return func(s *Store) { s.max = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(dash *Dashboard, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		dash:     dash,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dashboard() *Dashboard { return s.dash }

func (s *Store) Create() *Session {
	now := s.now()
	sess := newSession(uuid.NewString(), s.dash, now, s.onSelect)
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldestLocked(now)
	}
	s.sessions[sess.id] = sess
	return sess
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) evictOldestLocked(now time.Time) {
	var (
		oldest string
		idle   time.Duration = -1
	)
	for id, sess := range s.sessions {
		if d := sess.idleSince(now); d > idle {
			oldest, idle = id, d
		}
	}
	delete(s.sessions, oldest)
	s.logger.Debug("session evicted", "session_id", oldest, "idle", idle)
}

// Sweep removes sessions idle for longer than the TTL and returns how many.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n, "live", s.Len())
			}
		}
	}
}
