package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"contest-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UserTable is the Users record set.
type UserTable interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	FindUser(ctx context.Context, userID string) (domain.User, error)
	AppendUser(ctx context.Context, user domain.User) error
	// UpdateUser writes Score and Solved together, only if the stored Version
	// still equals user.Version. It returns the row as stored, with the new version.
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
	// ResetScores zeroes every score and solved set.
	ResetScores(ctx context.Context) error
}

// ProblemTable is the Problems record set.
type ProblemTable interface {
	ListProblems(ctx context.Context) ([]domain.Problem, error)
	AppendProblem(ctx context.Context, problem domain.Problem) error
}

// SettingsTable holds the singleton settings record.
type SettingsTable interface {
	LoadSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) error
}

// Store abstracts the shared tabular store (in-memory, Redis, Postgres).
type Store interface {
	UserTable
	ProblemTable
	SettingsTable
}

// Roster supplies the users snapshot used for standings and solver counts.
// Implementations may serve it from a short-lived cache.
type Roster interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Invalidator is implemented by cached rosters that can drop their snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// SessionRepository abstracts how participant sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, session *Session)
	Get(ctx context.Context, sessionID string) (*Session, bool)
	Delete(ctx context.Context, sessionID string)
}

// Options tunes a ContestService. Zero values fall back to defaults.
type Options struct {
	Location         *time.Location
	LockDuration     time.Duration
	StoreTimeout     time.Duration
	MaxWriteAttempts int
	SelfRegister     bool
	Roster           Roster
	Logger           *slog.Logger
	Now              func() time.Time
}

const (
	defaultLockDuration     = 10 * time.Second
	defaultStoreTimeout     = 5 * time.Second
	defaultMaxWriteAttempts = 3
)

// ContestService contains the contest use cases.
type ContestService struct {
	store    Store
	roster   Roster
	sessions SessionRepository
	changes  *notifier
	log      *slog.Logger
	now      func() time.Time

	loc              *time.Location
	lockDuration     time.Duration
	storeTimeout     time.Duration
	maxWriteAttempts int
	selfRegister     bool
}

func NewContestService(store Store, sessions SessionRepository, opts Options) *ContestService {
	s := &ContestService{
		store:            store,
		roster:           opts.Roster,
		sessions:         sessions,
		changes:          newNotifier(),
		log:              opts.Logger,
		now:              opts.Now,
		loc:              opts.Location,
		lockDuration:     opts.LockDuration,
		storeTimeout:     opts.StoreTimeout,
		maxWriteAttempts: opts.MaxWriteAttempts,
		selfRegister:     opts.SelfRegister,
	}
	if s.roster == nil {
		s.roster = store
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.lockDuration <= 0 {
		s.lockDuration = defaultLockDuration
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.maxWriteAttempts <= 0 {
		s.maxWriteAttempts = defaultMaxWriteAttempts
	}
	return s
}

// Location is the timezone deadlines are stored and compared in.
func (s *ContestService) Location() *time.Location {
	return s.loc
}

// Join opens a session for userID, registering the user first when
// self-registration is enabled and the user is unknown.
func (s *ContestService) Join(ctx context.Context, userID, displayName string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	displayName = strings.TrimSpace(displayName)
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}

	user, err := s.findUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrParticipantNotFound) && s.selfRegister:
		user = domain.User{UserID: userID, DisplayName: displayName, Solved: domain.SolvedSet{}}
		if err := s.appendUser(ctx, user); err != nil && !errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		s.log.Info("participant self-registered", "user_id", userID)
		s.changed(ctx, ChangeUsers)
	default:
		return nil, err
	}

	session := NewSessionWithClock(uuid.NewString(), user.UserID, user.Name(), s.now)
	s.sessions.Save(ctx, session)
	return session, nil
}

// Session looks up an open session.
func (s *ContestService) Session(ctx context.Context, sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(ctx, sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Leave closes a session and drops its locks.
func (s *ContestService) Leave(ctx context.Context, sessionID string) {
	s.sessions.Delete(ctx, sessionID)
}

// Subscribe returns a channel of change notifications for this process.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ContestService) Subscribe(_ context.Context) (<-chan Change, func()) {
	return s.changes.subscribe()
}

// State observes the settings record now.
func (s *ContestService) State(ctx context.Context) (ContestState, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return ContestState{}, err
	}
	return Observe(settings, s.now(), s.loc), nil
}

// Board returns standings and solver counts, possibly from the roster cache.
func (s *ContestService) Board(ctx context.Context) (domain.Board, error) {
	users, err := s.listRoster(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	return ComputeBoard(users), nil
}

// View builds the screen of one participant. Settings are read fresh on every
// call; standings may lag by the roster cache TTL.
func (s *ContestService) View(ctx context.Context, session *Session) (domain.ViewModel, error) {
	var (
		settings domain.Settings
		problems []domain.Problem
		users    []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		settings, err = s.loadSettings(gctx)
		return err
	})
	g.Go(func() (err error) {
		problems, err = s.listProblems(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.listRoster(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ViewModel{}, err
	}

	now := s.now()
	state := Observe(settings, now, s.loc)
	if state.Status != domain.StatusActive {
		session.clearLocks()
	}

	me, ok := lookupUser(users, session.UserID())
	if !ok {
		// The cached snapshot may predate a fresh registration.
		var err error
		if me, err = s.findUser(ctx, session.UserID()); err != nil {
			return domain.ViewModel{}, err
		}
	}

	vm := domain.ViewModel{
		Status:           state.Status,
		ContestID:        state.ContestID,
		RemainingSeconds: state.RemainingSeconds,
		TimeUp:           state.TimeUp,
		Accepting:        state.Accepting,
		UserID:           me.UserID,
		DisplayName:      me.Name(),
		MyScore:          me.Score,
		MySolved:         me.Solved,
		Problems:         []domain.ProblemView{},
		Standings:        ComputeStandings(users),
	}
	if vm.MySolved == nil {
		vm.MySolved = domain.SolvedSet{}
	}
	if state.Status != domain.StatusActive {
		return vm, nil
	}

	counts := ComputeSolverCounts(users)
	for _, p := range contestProblems(problems, state.ContestID) {
		id := p.InstanceID()
		pv := domain.ProblemView{
			InstanceID: id,
			Sequence:   p.Sequence,
			Body:       p.Body,
			Points:     p.Points,
			Solvers:    counts[id],
			Solved:     me.Solved.Contains(id),
		}
		if until, locked := session.LockedUntil(id, now); locked && !pv.Solved {
			pv.LockedSeconds = int64((until.Sub(now) + time.Second - 1) / time.Second)
		}
		vm.Problems = append(vm.Problems, pv)
	}
	return vm, nil
}

// contestProblems returns the problems of contestID ordered by sequence.
func contestProblems(problems []domain.Problem, contestID string) []domain.Problem {
	out := make([]domain.Problem, 0, len(problems))
	for _, p := range problems {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func lookupUser(users []domain.User, userID string) (domain.User, bool) {
	for _, u := range users {
		if u.UserID == userID {
			return u, true
		}
	}
	return domain.User{}, false
}

func (s *ContestService) changed(ctx context.Context, kind ChangeKind) {
	if inv, ok := s.roster.(Invalidator); ok {
		inv.Invalidate(ctx)
	}
	s.changes.publish(Change{Kind: kind, At: s.now()})
}

// passThrough lists store errors that already carry their meaning and must
// reach the caller unchanged.
var passThrough = []error{
	domain.ErrParticipantNotFound,
	domain.ErrUserExists,
	domain.ErrDuplicateProblem,
	domain.ErrVersionConflict,
	domain.ErrCorruptRecord,
	domain.ErrValidation,
}

func classify(op string, err error, kind error) error {
	for _, known := range passThrough {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func readErr(op string, err error) error { return classify(op, err, domain.ErrStoreUnavailable) }
func writeErr(op string, err error) error { return classify(op, err, domain.ErrTransientWrite) }

func (s *ContestService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *ContestService) loadSettings(ctx context.Context) (domain.Settings, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return domain.Settings{}, readErr("load settings", err)
	}
	return settings, nil
}

func (s *ContestService) saveSettings(ctx context.Context, settings domain.Settings) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return writeErr("save settings", err)
	}
	return nil
}

func (s *ContestService) listProblems(ctx context.Context) ([]domain.Problem, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	problems, err := s.store.ListProblems(ctx)
	if err != nil {
		return nil, readErr("list problems", err)
	}
	return problems, nil
}

func (s *ContestService) listRoster(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	users, err := s.roster.ListUsers(ctx)
	if err != nil {
		return nil, readErr("list users", err)
	}
	return users, nil
}

func (s *ContestService) listUsers(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, readErr("list users", err)
	}
	return users, nil
}

func (s *ContestService) findUser(ctx context.Context, userID string) (domain.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return domain.User{}, readErr("find user", err)
	}
	return user, nil
}

func (s *ContestService) appendUser(ctx context.Context, user domain.User) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.AppendUser(ctx, user); err != nil {
		return writeErr("append user", err)
	}
	return nil
}

func (s *ContestService) updateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	stored, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return domain.User{}, writeErr("update user", err)
	}
	return stored, nil
}
