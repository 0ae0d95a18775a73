package redis

import (
	"context"
	"errors"
	"strconv"

	"contest-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store keeps the contest tables in Redis. Each row is a hash and each table
// keeps a list of row keys in insertion order:
//
//	RPUSH contest:users {userID}             HSET contest:user:{userID} user_id name score solved version
//	RPUSH contest:problems {contest_seq}     HSET contest:problem:{contest_seq} contest_id seq body answer points
//	HSET  contest:settings status contest_id end_time
//
// User updates are conditional on the version field (WATCH/MULTI).
type Store struct {
	client *redis.Client
}

const (
	usersKey    = "contest:users"
	problemsKey = "contest:problems"
	settingsKey = "contest:settings"
)

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func userKey(userID string) string {
	return "contest:user:" + userID
}

func problemKey(instanceID string) string {
	return "contest:problem:" + instanceID
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, ids, err := s.readRows(ctx, usersKey, userKey)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			return nil, domain.CorruptRecordf("users", "row", ids[i])
		}
		u, err := decodeUser(fields)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) FindUser(ctx context.Context, userID string) (domain.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return domain.User{}, err
	}
	if len(fields) == 0 {
		return domain.User{}, domain.ErrParticipantNotFound
	}
	return decodeUser(fields)
}

func (s *Store) AppendUser(ctx context.Context, user domain.User) error {
	key := userKey(user.UserID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrUserExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"user_id": user.UserID,
				"name":    user.DisplayName,
				"score":   user.Score,
				"solved":  user.Solved.Encode(),
				"version": 1,
			})
			pipe.RPush(ctx, usersKey, user.UserID)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrUserExists
	}
	return err
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	key := userKey(user.UserID)
	var stored domain.User
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return domain.ErrParticipantNotFound
		}
		current, err := decodeUser(fields)
		if err != nil {
			return err
		}
		if current.Version != user.Version {
			return domain.ErrVersionConflict
		}

		stored = current
		stored.Score = user.Score
		stored.Solved = user.Solved
		stored.Version = current.Version + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "score", stored.Score, "solved", stored.Solved.Encode(), "version", stored.Version)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.User{}, domain.ErrVersionConflict
	}
	if err != nil {
		return domain.User{}, err
	}
	return stored, nil
}

func (s *Store) ResetScores(ctx context.Context) error {
	ids, err := s.client.LRange(ctx, usersKey, 0, -1).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			key := userKey(id)
			pipe.HSet(ctx, key, "score", 0, "solved", "")
			pipe.HIncrBy(ctx, key, "version", 1)
		}
		return nil
	})
	return err
}

func (s *Store) ListProblems(ctx context.Context) ([]domain.Problem, error) {
	rows, ids, err := s.readRows(ctx, problemsKey, problemKey)
	if err != nil {
		return nil, err
	}
	problems := make([]domain.Problem, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			return nil, domain.CorruptRecordf("problems", "row", ids[i])
		}
		p, err := decodeProblem(fields)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, nil
}

func (s *Store) AppendProblem(ctx context.Context, problem domain.Problem) error {
	id := problem.InstanceID()
	key := problemKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateProblem
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"contest_id": problem.ContestID,
				"seq":        problem.Sequence,
				"body":       problem.Body,
				"answer":     problem.Answer,
				"points":     problem.Points,
			})
			pipe.RPush(ctx, problemsKey, id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrDuplicateProblem
	}
	return err
}

func (s *Store) LoadSettings(ctx context.Context) (domain.Settings, error) {
	fields, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return domain.Settings{}, err
	}
	status, err := domain.ParseStatus(fields["status"])
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{
		Status:    status,
		ContestID: fields["contest_id"],
		EndTime:   fields["end_time"],
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.client.HSet(ctx, settingsKey,
		"status", string(settings.Status),
		"contest_id", settings.ContestID,
		"end_time", settings.EndTime,
	).Err()
}

// readRows loads every hash named by the list at listKey in one pipeline.
func (s *Store) readRows(ctx context.Context, listKey string, rowKey func(string) string) ([]map[string]string, []string, error) {
	ids, err := s.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, rowKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, err
	}
	rows := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		rows[i] = cmd.Val()
	}
	return rows, ids, nil
}

func decodeUser(fields map[string]string) (domain.User, error) {
	score, err := strconv.Atoi(fields["score"])
	if err != nil {
		return domain.User{}, domain.CorruptRecordf("users", "score", fields["score"])
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return domain.User{}, domain.CorruptRecordf("users", "version", fields["version"])
	}
	return domain.User{
		UserID:      fields["user_id"],
		DisplayName: fields["name"],
		Score:       score,
		Solved:      domain.ParseSolvedSet(fields["solved"]),
		Version:     version,
	}, nil
}

func decodeProblem(fields map[string]string) (domain.Problem, error) {
	seq, err := strconv.Atoi(fields["seq"])
	if err != nil {
		return domain.Problem{}, domain.CorruptRecordf("problems", "seq", fields["seq"])
	}
	points, err := strconv.Atoi(fields["points"])
	if err != nil {
		return domain.Problem{}, domain.CorruptRecordf("problems", "points", fields["points"])
	}
	return domain.Problem{
		ContestID: fields["contest_id"],
		Sequence:  seq,
		Body:      fields["body"],
		Answer:    fields["answer"],
		Points:    points,
	}, nil
}
