package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/config"
	"contest-service/internal/domain"
	"contest-service/internal/infra/memory"
	pgstore "contest-service/internal/infra/postgres"
	redisinfra "contest-service/internal/infra/redis"
	"github.com/go-chi/httplog/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// runtime holds the wired service and the connections it owns.
type runtime struct {
	service *app.ContestService
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newLogger(cfg config.Config) (*httplog.Logger, error) {
	level := slog.LevelInfo
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
	}
	logger := httplog.NewLogger("contest-service", httplog.Options{
		LogLevel:         level,
		JSON:             cfg.Log.JSON,
		Concise:          true,
		MessageFieldName: "message",
	})
	slog.SetDefault(logger.Logger)
	return logger, nil
}

// contestDuration is the length used when a start command gives none.
func contestDuration(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Contest.DefaultDuration, app.DefaultDuration)
}

// openRuntime picks the store by configuration: Postgres, then Redis, then an
// in-memory store seeded with a sample contest. Redis, when configured, also
// backs the roster cache and session liveness.
func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{}

	loc, err := cfg.Location(app.DefaultLocation)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	var store app.Store
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		store = pgstore.NewStore(pool)
		logger.Info("using postgres store")
	case redisClient != nil:
		store = redisinfra.NewStore(redisClient)
		logger.Info("using redis store", "addr", cfg.Redis.Addr)
	default:
		store = memory.NewStoreWithProblems(sampleProblems())
		logger.Info("using in-memory store with sample contest", "contest_id", sampleContestID)
	}

	cacheTTL := config.TTLDuration(cfg.Contest.CacheTTL, 4*time.Second)
	sessionTTL := config.TTLDuration(cfg.Contest.SessionTTL, 2*time.Hour)

	var roster app.Roster
	var sessions app.SessionRepository
	if redisClient != nil {
		roster = redisinfra.NewRosterCache(redisClient, store, cacheTTL)
		sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, sessionTTL))
	} else {
		roster = memory.NewRosterCache(store, cacheTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}

	rt.service = app.NewContestService(store, sessions, app.Options{
		Location:     loc,
		LockDuration: config.TTLDuration(cfg.Contest.LockDuration, 10*time.Second),
		StoreTimeout: config.TTLDuration(cfg.Contest.StoreTimeout, 5*time.Second),
		SelfRegister: cfg.SelfRegister(),
		Roster:       roster,
		Logger:       logger,
	})
	return rt, nil
}

const sampleContestID = "A001"

// sampleProblems seeds the in-memory store so the service is usable without a database.
func sampleProblems() []domain.Problem {
	return []domain.Problem{
		{ContestID: sampleContestID, Sequence: 1, Body: "What is $2 + 2$?", Answer: "4", Points: 100},
		{ContestID: sampleContestID, Sequence: 2, Body: "Solve $3x = 12$ for $x$.", Answer: "4", Points: 100},
		{ContestID: sampleContestID, Sequence: 3, Body: "What is the capital of Japan?", Answer: "Tokyo", Points: 200},
	}
}
