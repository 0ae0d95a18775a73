package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"contest-service/internal/domain"
)

// Defaults applied by admin front-ends when a field is left blank.
const (
	DefaultPoints   = 100
	DefaultDuration = 30 * time.Minute
)

// StartContest activates contestID for duration from now.
func (s *ContestService) StartContest(ctx context.Context, contestID string, duration time.Duration) (domain.Settings, error) {
	contestID = strings.TrimSpace(contestID)
	if err := domain.CheckContestID(contestID); err != nil {
		return domain.Settings{}, err
	}
	if duration <= 0 {
		return domain.Settings{}, domain.Validationf("duration must be positive, got %s", duration)
	}

	current, err := s.loadSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	next, err := startSettings(current, contestID, duration, s.now(), s.loc)
	if err != nil {
		return current, fmt.Errorf("contest %s is already active, stop it first: %w", current.ContestID, err)
	}
	if err := s.saveSettings(ctx, next); err != nil {
		return current, err
	}
	s.log.Info("contest started", "contest_id", contestID, "end_time", next.EndTime)
	s.changed(ctx, ChangeSettings)
	return next, nil
}

// StopContest ends the contest regardless of its timer.
func (s *ContestService) StopContest(ctx context.Context) (domain.Settings, error) {
	current, err := s.loadSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	next := stopSettings(current)
	if err := s.saveSettings(ctx, next); err != nil {
		return current, err
	}
	s.log.Info("contest stopped", "contest_id", next.ContestID)
	s.changed(ctx, ChangeSettings)
	return next, nil
}

// ResetScores zeroes every user's score and solved set. Status is left alone.
func (s *ContestService) ResetScores(ctx context.Context) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.ResetScores(ctx); err != nil {
		return writeErr("reset scores", err)
	}
	s.log.Info("scores reset")
	s.changed(ctx, ChangeScores)
	return nil
}

// AddProblem validates and appends a problem.
func (s *ContestService) AddProblem(ctx context.Context, problem domain.Problem) (domain.Problem, error) {
	problem.ContestID = strings.TrimSpace(problem.ContestID)
	problem.Answer = strings.TrimSpace(problem.Answer)
	if err := domain.CheckContestID(problem.ContestID); err != nil {
		return problem, err
	}
	switch {
	case problem.Answer == "":
		return problem, domain.Validationf("answer is required")
	case problem.Sequence < 1:
		return problem, domain.Validationf("sequence number must be at least 1")
	case problem.Points < 1:
		return problem, domain.Validationf("points must be positive")
	}

	existing, err := s.listProblems(ctx)
	if err != nil {
		return problem, err
	}
	for _, p := range existing {
		if p.InstanceID() == problem.InstanceID() {
			return problem, fmt.Errorf("%s: %w", problem.InstanceID(), domain.ErrDuplicateProblem)
		}
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.AppendProblem(ctx, problem); err != nil {
		return problem, writeErr("append problem", err)
	}
	s.log.Info("problem added", "problem_id", problem.InstanceID(), "points", problem.Points)
	s.changed(ctx, ChangeProblems)
	return problem, nil
}

// RegisterUsers adds participants in bulk. The whole batch is validated before
// anything is written.
func (s *ContestService) RegisterUsers(ctx context.Context, users []domain.User) ([]domain.User, error) {
	if len(users) == 0 {
		return nil, domain.Validationf("no users given")
	}

	existing, err := s.listUsers(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing)+len(users))
	for _, u := range existing {
		taken[u.UserID] = true
	}

	batch := make([]domain.User, 0, len(users))
	for i, u := range users {
		id := strings.TrimSpace(u.UserID)
		if id == "" {
			return nil, domain.Validationf("user %d: id is required", i+1)
		}
		if taken[id] {
			return nil, fmt.Errorf("%s: %w", id, domain.ErrUserExists)
		}
		taken[id] = true
		batch = append(batch, domain.User{
			UserID:      id,
			DisplayName: strings.TrimSpace(u.DisplayName),
			Solved:      domain.SolvedSet{},
		})
	}

	registered := make([]domain.User, 0, len(batch))
	for _, u := range batch {
		if err := s.appendUser(ctx, u); err != nil {
			if len(registered) > 0 {
				s.changed(ctx, ChangeUsers)
			}
			return registered, fmt.Errorf("register %s: %w", u.UserID, err)
		}
		registered = append(registered, u)
	}
	s.log.Info("participants registered", "count", len(registered))
	s.changed(ctx, ChangeUsers)
	return registered, nil
}

// ListContests returns the contest ids known from the problem set, plus the
// active one even if it has no problems yet.
func (s *ContestService) ListContests(ctx context.Context) ([]string, error) {
	problems, err := s.listProblems(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, p := range problems {
		if !seen[p.ContestID] {
			seen[p.ContestID] = true
			ids = append(ids, p.ContestID)
		}
	}
	sort.Strings(ids)
	if settings.ContestID != "" && !seen[settings.ContestID] {
		ids = append(ids, settings.ContestID)
	}
	return ids, nil
}
