package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contest-service/internal/domain"
)

// CheckAnswer compares a submission with the stored answer: exact, case-sensitive
// match after trimming surrounding whitespace from both.
func CheckAnswer(raw, expected string) bool {
	return strings.TrimSpace(raw) == strings.TrimSpace(expected)
}

// Submit evaluates an answer to one problem instance of the active contest.
//
// A live wrong-answer lock rejects the attempt before any store access. Wrong
// answers cost no points and lock the problem for this session. Correct answers
// credit score and solved set in one conditional write; a problem already in the
// solved set is never credited twice.
func (s *ContestService) Submit(ctx context.Context, session *Session, problemID, answer string) (domain.SubmissionOutcome, error) {
	now := s.now()
	outcome := domain.SubmissionOutcome{ProblemID: problemID}

	if until, locked := session.LockedUntil(problemID, now); locked {
		outcome.Verdict = domain.VerdictLocked
		outcome.LockedUntil = &until
		return outcome, nil
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return outcome, err
	}
	state := Observe(settings, now, s.loc)
	if state.Status != domain.StatusActive {
		session.clearLocks()
		return outcome, domain.ErrContestNotActive
	}
	if state.TimeUp {
		return outcome, domain.ErrTimeUp
	}

	problem, err := s.activeProblem(ctx, state.ContestID, problemID)
	if err != nil {
		return outcome, err
	}

	user, err := s.findUser(ctx, session.UserID())
	if err != nil {
		return outcome, err
	}
	outcome.Score = user.Score
	if user.Solved.Contains(problemID) {
		session.unlock(problemID)
		outcome.Verdict = domain.VerdictAlreadySolved
		return outcome, nil
	}

	if !CheckAnswer(answer, problem.Answer) {
		until := now.Add(s.lockDuration)
		session.lock(problemID, until)
		outcome.Verdict = domain.VerdictWrong
		outcome.LockedUntil = &until
		s.log.Info("wrong answer", "user_id", user.UserID, "problem_id", problemID)
		return outcome, nil
	}

	stored, credited, err := s.credit(ctx, user, problem)
	if err != nil {
		s.log.Warn("crediting solve failed", "user_id", user.UserID, "problem_id", problemID, "error", err)
		return outcome, err
	}
	session.unlock(problemID)
	outcome.Score = stored.Score
	if !credited {
		outcome.Verdict = domain.VerdictAlreadySolved
		return outcome, nil
	}

	outcome.Verdict = domain.VerdictAccepted
	outcome.Awarded = problem.Points
	s.log.Info("answer accepted", "user_id", user.UserID, "problem_id", problemID, "score", stored.Score)
	s.changed(ctx, ChangeSubmission)
	return outcome, nil
}

// credit adds problem to user with optimistic retries. On a version conflict the
// row is re-read and the solved check repeated, so a concurrent credit for the
// same problem turns this call into a no-op.
func (s *ContestService) credit(ctx context.Context, user domain.User, problem domain.Problem) (domain.User, bool, error) {
	id := problem.InstanceID()
	for attempt := 1; ; attempt++ {
		next := user
		next.Score = user.Score + problem.Points
		next.Solved = user.Solved.Add(id)

		stored, err := s.updateUser(ctx, next)
		if err == nil {
			return stored, true, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return user, false, err
		}
		if attempt >= s.maxWriteAttempts {
			return user, false, fmt.Errorf("%w: %w", domain.ErrTransientWrite, err)
		}

		user, err = s.findUser(ctx, user.UserID)
		if err != nil {
			return user, false, err
		}
		if user.Solved.Contains(id) {
			return user, false, nil
		}
	}
}

func (s *ContestService) activeProblem(ctx context.Context, contestID, problemID string) (domain.Problem, error) {
	problems, err := s.listProblems(ctx)
	if err != nil {
		return domain.Problem{}, err
	}
	for _, p := range problems {
		if p.ContestID == contestID && p.InstanceID() == problemID {
			return p, nil
		}
	}
	return domain.Problem{}, domain.ErrProblemNotFound
}
