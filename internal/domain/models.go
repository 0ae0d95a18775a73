package domain

import (
	"strconv"
	"time"
)

// Status is the lifecycle state stored in the settings record.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// ParseStatus maps a stored status string to a Status. An empty value means the
// settings record was never written and reads as waiting.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case "":
		return StatusWaiting, nil
	case StatusWaiting, StatusActive, StatusEnded:
		return Status(raw), nil
	}
	return "", CorruptRecordf("settings", "status", raw)
}

// User is a participant row: identity, score and the problems credited to them.
type User struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	Solved      SolvedSet `json:"solved"`
	// Version is bumped by the store on every write and checked by UpdateUser.
	Version int64 `json:"version"`
}

// Name returns the display name, falling back to the user id when it is blank.
func (u User) Name() string {
	if u.DisplayName == "" {
		return u.UserID
	}
	return u.DisplayName
}

// Problem is one question of a contest.
type Problem struct {
	ContestID string `json:"contestId"`
	Sequence  int    `json:"sequence"`
	Body      string `json:"body"`
	Answer    string `json:"answer"`
	Points    int    `json:"points"`
}

// InstanceID is the solve-tracking key of a problem: "{contest_id}_{sequence}".
func (p Problem) InstanceID() string {
	return InstanceID(p.ContestID, p.Sequence)
}

// InstanceID builds a problem instance id from its parts.
func InstanceID(contestID string, sequence int) string {
	return contestID + "_" + strconv.Itoa(sequence)
}

// Settings is the singleton contest configuration written by the admin.
// EndTime is kept in its stored string form; it is parsed on every observation so
// a malformed value can be handled instead of failing the read.
type Settings struct {
	Status    Status `json:"status"`
	ContestID string `json:"contestId"`
	EndTime   string `json:"endTime"`
}

// Standing is one row of the ranked leaderboard.
type Standing struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Board bundles standings with per-problem solver counts.
type Board struct {
	Standings    []Standing     `json:"standings"`
	SolverCounts map[string]int `json:"solverCounts"`
}

// Verdict is the result class of a submission that reached the scoring engine.
type Verdict string

const (
	VerdictAccepted      Verdict = "accepted"
	VerdictWrong         Verdict = "wrong"
	VerdictAlreadySolved Verdict = "already_solved"
	VerdictLocked        Verdict = "locked"
)

// SubmissionOutcome summarizes the handling of one answer submission.
type SubmissionOutcome struct {
	ProblemID   string     `json:"problemId"`
	Verdict     Verdict    `json:"verdict"`
	Awarded     int        `json:"awarded"`
	Score       int        `json:"score"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// ProblemView is a problem as shown to a participant. The answer is never included.
type ProblemView struct {
	InstanceID    string `json:"id"`
	Sequence      int    `json:"sequence"`
	Body          string `json:"body"`
	Points        int    `json:"points"`
	Solvers       int    `json:"solvers"`
	Solved        bool   `json:"solved"`
	LockedSeconds int64  `json:"lockedSeconds"`
}

// ViewModel is everything the presentation layer needs to render one participant's screen.
type ViewModel struct {
	Status           Status        `json:"status"`
	ContestID        string        `json:"contestId"`
	RemainingSeconds *int64        `json:"remainingSeconds"`
	TimeUp           bool          `json:"timeUp"`
	Accepting        bool          `json:"accepting"`
	UserID           string        `json:"userId"`
	DisplayName      string        `json:"displayName"`
	MyScore          int           `json:"myScore"`
	MySolved         SolvedSet     `json:"mySolved"`
	Problems         []ProblemView `json:"problems"`
	Standings        []Standing    `json:"standings"`
}
