package app

import (
	"time"

	"contest-service/internal/domain"
)

// ContestState is the contest as seen at one instant. It is derived from the
// settings record on every observation and never stored.
type ContestState struct {
	Status    domain.Status `json:"status"`
	ContestID string        `json:"contestId"`
	// RemainingSeconds is nil when the deadline is unknown (not active, or an
	// end time that does not parse).
	RemainingSeconds *int64 `json:"remainingSeconds"`
	TimeUp           bool   `json:"timeUp"`
	// Accepting reports whether submissions are allowed right now.
	Accepting bool `json:"accepting"`
}

// Observe evaluates settings against now. A missing or malformed end time on an
// active contest leaves the remaining time unknown and keeps submissions open.
func Observe(settings domain.Settings, now time.Time, loc *time.Location) ContestState {
	state := ContestState{Status: settings.Status, ContestID: settings.ContestID}
	if settings.Status != domain.StatusActive {
		return state
	}

	end, err := ParseEndTime(settings.EndTime, loc)
	if err != nil {
		state.Accepting = true
		return state
	}

	remaining, timeUp := EvaluateDeadline(end, now)
	secs := int64(remaining / time.Second)
	state.RemainingSeconds = &secs
	state.TimeUp = timeUp
	state.Accepting = !timeUp
	return state
}

// startSettings computes the settings written by an admin start.
func startSettings(current domain.Settings, contestID string, duration time.Duration, now time.Time, loc *time.Location) (domain.Settings, error) {
	if current.Status == domain.StatusActive {
		return current, domain.ErrInvalidTransition
	}
	return domain.Settings{
		Status:    domain.StatusActive,
		ContestID: contestID,
		EndTime:   FormatEndTime(now.Add(duration), loc),
	}, nil
}

// stopSettings computes the settings written by an admin stop. Stop applies from
// any status and keeps the contest id so the final standings stay attributable.
func stopSettings(current domain.Settings) domain.Settings {
	return domain.Settings{
		Status:    domain.StatusEnded,
		ContestID: current.ContestID,
	}
}
