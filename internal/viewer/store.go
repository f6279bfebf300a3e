package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/id"
)

// Store keeps sessions in memory and evicts those idle longer than the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	observer Observer
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewStore creates a Store. A non-positive ttl disables eviction.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create registers a new empty session.
func (s *Store) Create() (*Session, error) {
	sid, err := id.Generate(id.Session)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create session")
	}
	s.mu.Lock()
	sess := newSession(sid, s.now(), s.observer)
	s.sessions[sid] = sess
	s.mu.Unlock()

	return sess, nil
}

// Observe registers o for state changes of sessions created afterwards.
func (s *Store) Observe(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Get returns a session and marks it as recently used.
func (s *Store) Get(sid string) (*Session, error) {
	if !id.Valid(id.Session, sid) {
		return nil, errors.NotFoundf("session %q not found", sid)
	}

	s.mu.RLock()
	sess, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("session %q not found", sid)
	}

	sess.touch(s.now())
	return sess, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sid, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps on interval until ctx is done or Close is called.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("evicted idle sessions", "count", n, "remaining", s.Len())
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the janitor, if running.
func (s *Store) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
	})
}
