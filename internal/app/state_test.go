package app

import (
	"errors"
	"testing"
	"time"

	"contest-service/internal/domain"
)

func TestObserve(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	active := func(end string) domain.Settings {
		return domain.Settings{Status: domain.StatusActive, ContestID: "A001", EndTime: end}
	}

	cases := []struct {
		name      string
		settings  domain.Settings
		accepting bool
		timeUp    bool
		remaining *int64
	}{
		{name: "waiting", settings: domain.Settings{Status: domain.StatusWaiting}},
		{name: "ended", settings: domain.Settings{Status: domain.StatusEnded, ContestID: "A001"}},
		{name: "running", settings: active("2026-01-01 10:00:30"), accepting: true, remaining: int64Ptr(30)},
		{name: "at the end instant", settings: active("2026-01-01 10:00:00"), timeUp: true, remaining: int64Ptr(0)},
		{name: "past deadline", settings: active("2026-01-01 09:00:00"), timeUp: true, remaining: int64Ptr(0)},
		{name: "malformed end time fails open", settings: active("soon"), accepting: true},
		{name: "missing end time fails open", settings: active(""), accepting: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Observe(tc.settings, now, time.UTC)
			if got.Accepting != tc.accepting || got.TimeUp != tc.timeUp {
				t.Fatalf("accepting=%v timeUp=%v, want %v %v", got.Accepting, got.TimeUp, tc.accepting, tc.timeUp)
			}
			switch {
			case tc.remaining == nil && got.RemainingSeconds != nil:
				t.Fatalf("expected unknown remaining, got %d", *got.RemainingSeconds)
			case tc.remaining != nil && (got.RemainingSeconds == nil || *got.RemainingSeconds != *tc.remaining):
				t.Fatalf("expected remaining %d, got %v", *tc.remaining, got.RemainingSeconds)
			}
			if got.Status != tc.settings.Status || got.ContestID != tc.settings.ContestID {
				t.Fatalf("unexpected identity %+v", got)
			}
		})
	}
}

func TestStartAndStopSettings(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := startSettings(domain.Settings{Status: domain.StatusEnded, ContestID: "A000"}, "A001", 30*time.Minute, now, time.UTC)
	if err != nil {
		t.Fatalf("start from ended: %v", err)
	}
	if next.Status != domain.StatusActive || next.ContestID != "A001" || next.EndTime != "2026-01-01 10:30:00" {
		t.Fatalf("unexpected settings %+v", next)
	}

	if _, err := startSettings(next, "A002", time.Minute, now, time.UTC); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	stopped := stopSettings(next)
	if stopped.Status != domain.StatusEnded || stopped.ContestID != "A001" || stopped.EndTime != "" {
		t.Fatalf("unexpected stopped settings %+v", stopped)
	}
}

func int64Ptr(v int64) *int64 { return &v }
