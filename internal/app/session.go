package app

import (
	"sync"
	"time"
)

// Session is one participant's connection to the contest. It owns the
// wrong-answer locks of that participant; locks are never shared between
// sessions and never persisted.
type Session struct {
	id          string
	userID      string
	displayName string
	createdAt   time.Time
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]time.Time
}

// NewSession is exported for infrastructure layers that need to rebuild sessions.
func NewSession(id, userID, displayName string) *Session {
	return NewSessionWithClock(id, userID, displayName, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id, userID, displayName string, now func() time.Time) *Session {
	return &Session{
		id:          id,
		userID:      userID,
		displayName: displayName,
		createdAt:   now(),
		now:         now,
		locks:       make(map[string]time.Time),
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) DisplayName() string { return s.displayName }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LockedUntil returns the expiry of a live lock on problemID. An expired lock is
// discarded on the way.
func (s *Session) LockedUntil(problemID string, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.locks[problemID]
	if !ok {
		return time.Time{}, false
	}
	if !now.Before(until) {
		delete(s.locks, problemID)
		return time.Time{}, false
	}
	return until, true
}

func (s *Session) lock(problemID string, until time.Time) {
	s.mu.Lock()
	s.locks[problemID] = until
	s.mu.Unlock()
}

func (s *Session) unlock(problemID string) {
	s.mu.Lock()
	delete(s.locks, problemID)
	s.mu.Unlock()
}

// clearLocks drops every lock; called once the contest is seen outside Active.
func (s *Session) clearLocks() {
	s.mu.Lock()
	if len(s.locks) > 0 {
		s.locks = make(map[string]time.Time)
	}
	s.mu.Unlock()
}

// ActiveLocks reports the number of locks still held, expired ones excluded.
func (s *Session) ActiveLocks() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, until := range s.locks {
		if now.Before(until) {
			n++
		} else {
			delete(s.locks, id)
		}
	}
	return n
}
