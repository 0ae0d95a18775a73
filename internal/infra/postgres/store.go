package postgres

import (
	"context"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Store keeps the contest tables in Postgres (see migrations). Rows are read back
// in insertion order; user updates are conditional on the version column.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `user_id, display_name, score, solved, version`

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM contest_users ORDER BY row_no`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) FindUser(ctx context.Context, userID string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM contest_users WHERE user_id=$1`, userID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Store) AppendUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contest_users (user_id, display_name, score, solved, version) VALUES ($1, $2, $3, $4, 1)`,
		user.UserID, user.DisplayName, user.Score, user.Solved.Encode())
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("append user: %w", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE contest_users SET score=$1, solved=$2, version=version+1
		 WHERE user_id=$3 AND version=$4
		 RETURNING `+userColumns,
		user.Score, user.Solved.Encode(), user.UserID, user.Version)
	stored, err := scanUser(row)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contest_users WHERE user_id=$1)`, user.UserID).Scan(&exists); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if !exists {
		return domain.User{}, domain.ErrParticipantNotFound
	}
	return domain.User{}, domain.ErrVersionConflict
}

func (s *Store) ResetScores(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE contest_users SET score=0, solved='', version=version+1`); err != nil {
		return fmt.Errorf("reset scores: %w", err)
	}
	return nil
}

func (s *Store) ListProblems(ctx context.Context) ([]domain.Problem, error) {
	rows, err := s.pool.Query(ctx, `SELECT contest_id, seq, body, answer, points FROM contest_problems ORDER BY row_no`)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var problems []domain.Problem
	for rows.Next() {
		var p domain.Problem
		if err := rows.Scan(&p.ContestID, &p.Sequence, &p.Body, &p.Answer, &p.Points); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

func (s *Store) AppendProblem(ctx context.Context, problem domain.Problem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contest_problems (contest_id, seq, body, answer, points) VALUES ($1, $2, $3, $4, $5)`,
		problem.ContestID, problem.Sequence, problem.Body, problem.Answer, problem.Points)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateProblem
	}
	if err != nil {
		return fmt.Errorf("append problem: %w", err)
	}
	return nil
}

// Settings are stored as key/value rows: status, contest_id, end_time.
func (s *Store) LoadSettings(ctx context.Context) (domain.Settings, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM contest_settings`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	status, err := domain.ParseStatus(values["status"])
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{
		Status:    status,
		ContestID: values["contest_id"],
		EndTime:   values["end_time"],
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	values := [][2]string{
		{"status", string(settings.Status)},
		{"contest_id", settings.ContestID},
		{"end_time", settings.EndTime},
	}
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, kv := range values {
			if _, err := tx.Exec(ctx,
				`INSERT INTO contest_settings (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
				kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		solved string
	)
	if err := row.Scan(&u.UserID, &u.DisplayName, &u.Score, &solved, &u.Version); err != nil {
		return domain.User{}, err
	}
	u.Solved = domain.ParseSolvedSet(solved)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
