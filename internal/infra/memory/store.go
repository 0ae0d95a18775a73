package memory

import (
	"context"
	"sync"

	"contest-service/internal/domain"
)

// Store is an in-process implementation of app.Store. Rows keep insertion order.
type Store struct {
	mu       sync.RWMutex
	users    []domain.User
	problems []domain.Problem
	settings domain.Settings
}

func NewStore() *Store {
	return &Store{settings: domain.Settings{Status: domain.StatusWaiting}}
}

// NewStoreWithProblems returns a store preloaded with problems (useful for tests/demos).
func NewStoreWithProblems(problems []domain.Problem) *Store {
	s := NewStore()
	s.problems = append(s.problems, problems...)
	return s
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	for i, u := range s.users {
		out[i] = cloneUser(u)
	}
	return out, nil
}

func (s *Store) FindUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(userID); i >= 0 {
		return cloneUser(s.users[i]), nil
	}
	return domain.User{}, domain.ErrParticipantNotFound
}

func (s *Store) AppendUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(user.UserID) >= 0 {
		return domain.ErrUserExists
	}
	user = cloneUser(user)
	user.Version = 1
	s.users = append(s.users, user)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(user.UserID)
	if i < 0 {
		return domain.User{}, domain.ErrParticipantNotFound
	}
	current := &s.users[i]
	if current.Version != user.Version {
		return domain.User{}, domain.ErrVersionConflict
	}
	current.Score = user.Score
	current.Solved = append(domain.SolvedSet{}, user.Solved...)
	current.Version++
	return cloneUser(*current), nil
}

func (s *Store) ResetScores(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		s.users[i].Score = 0
		s.users[i].Solved = domain.SolvedSet{}
		s.users[i].Version++
	}
	return nil
}

func (s *Store) ListProblems(_ context.Context) ([]domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Problem(nil), s.problems...), nil
}

func (s *Store) AppendProblem(_ context.Context, problem domain.Problem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.problems {
		if p.InstanceID() == problem.InstanceID() {
			return domain.ErrDuplicateProblem
		}
	}
	s.problems = append(s.problems, problem)
	return nil
}

func (s *Store) LoadSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *Store) indexOf(userID string) int {
	for i := range s.users {
		if s.users[i].UserID == userID {
			return i
		}
	}
	return -1
}

func cloneUser(u domain.User) domain.User {
	solved := make(domain.SolvedSet, len(u.Solved))
	copy(solved, u.Solved)
	u.Solved = solved
	return u
}
