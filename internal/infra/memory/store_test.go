package memory

import (
	"context"
	"errors"
	"testing"

	"contest-service/internal/domain"
)

func TestStoreUpdateUserChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.AppendUser(ctx, domain.User{UserID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	user, err := store.FindUser(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	stale := user

	user.Score = 100
	user.Solved = user.Solved.Add("A001_1")
	stored, err := store.UpdateUser(ctx, user)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if stored.Version != user.Version+1 || stored.Score != 100 {
		t.Fatalf("unexpected stored row %+v", stored)
	}

	stale.Score = 50
	if _, err := store.UpdateUser(ctx, stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if _, err := store.UpdateUser(ctx, domain.User{UserID: "ghost"}); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestStoreKeepsInsertionOrderAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		if err := store.AppendUser(ctx, domain.User{UserID: id}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	if err := store.AppendUser(ctx, domain.User{UserID: "a"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate user error, got %v", err)
	}

	users, _ := store.ListUsers(ctx)
	if len(users) != 3 || users[0].UserID != "c" || users[1].UserID != "a" || users[2].UserID != "b" {
		t.Fatalf("unexpected order %+v", users)
	}

	p := domain.Problem{ContestID: "A001", Sequence: 1, Answer: "4", Points: 100}
	if err := store.AppendProblem(ctx, p); err != nil {
		t.Fatalf("append problem: %v", err)
	}
	if err := store.AppendProblem(ctx, p); !errors.Is(err, domain.ErrDuplicateProblem) {
		t.Fatalf("expected duplicate problem error, got %v", err)
	}
}

func TestStoreResetScoresBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.AppendUser(ctx, domain.User{UserID: "u1"})
	user, _ := store.FindUser(ctx, "u1")
	user.Score = 100
	user.Solved = domain.SolvedSet{"A001_1"}
	if _, err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}
	before, _ := store.FindUser(ctx, "u1")

	if err := store.ResetScores(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	after, _ := store.FindUser(ctx, "u1")
	if after.Score != 0 || len(after.Solved) != 0 {
		t.Fatalf("expected zeroed user, got %+v", after)
	}
	if after.Version <= before.Version {
		t.Fatalf("expected version bump, before=%d after=%d", before.Version, after.Version)
	}
}
