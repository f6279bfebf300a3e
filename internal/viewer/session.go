package viewer

import (
	"encoding/json"
	"sync"
	"time"
)

// Observer is told about every state change of a session. It is called with
// the session lock held and must not block.
type Observer interface {
	SessionChanged(sessionID string, state State)
}

// Session is one viewer's state, safe for concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	lastSeen time.Time
	observer Observer
}

func newSession(id string, now time.Time, observer Observer) *Session {
	return &Session{ID: id, state: NewState(), lastSeen: now, observer: observer}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update applies fn to the state under the session lock and returns the
// resulting snapshot.
func (s *Session) Update(fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(&s.state)
	snapshot := s.state.Clone()
	if err == nil {
		s.changed(snapshot)
	}
	return snapshot, err
}

// changed must be called with s.mu held.
func (s *Session) changed(snapshot State) {
	if s.observer != nil {
		s.observer.SessionChanged(s.ID, snapshot)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// sink routes lookup results into the session, tagged with the generation
// they were started under.
type sink struct {
	session *Session
	gen     uint64
	stale   func()
}

func (k sink) apply(fn func(*State) bool) {
	k.session.mu.Lock()
	applied := fn(&k.session.state)
	if applied {
		k.session.changed(k.session.state.Clone())
	}
	k.session.mu.Unlock()
	if !applied && k.stale != nil {
		k.stale()
	}
}

func (k sink) RecognitionLoaded(raw json.RawMessage) {
	k.apply(func(s *State) bool { return s.RecognitionLoaded(k.gen, raw) })
}

func (k sink) CatalogLoaded(raw json.RawMessage) {
	k.apply(func(s *State) bool { return s.CatalogLoaded(k.gen, raw) })
}

func (k sink) ArtistsLoaded(details []json.RawMessage) {
	k.apply(func(s *State) bool { return s.ArtistsLoaded(k.gen, details) })
}
