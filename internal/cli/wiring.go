package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/infra/catalog"
	"quiz-session-service/internal/infra/memory"
	pgstore "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/infra/sqlite"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backends holds the connections and stores shared by every command.
type backends struct {
	quizzes   app.QuizRepository
	snapshots app.SnapshotStore
	closers   []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects the quiz source, the quiz cache and the snapshot
// store described by cfg. Postgres wins over the catalog file as quiz source.
func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
	}

	var loader memory.QuizLoader
	switch {
	case pool != nil:
		loader = pgstore.NewQuizLoader(pool)
	case cfg.Quiz.Catalog != "":
		static, err := catalog.NewLoader(cfg.Quiz.Catalog)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		log.Printf("loaded %d quizzes from %s", len(static.IDs()), cfg.Quiz.Catalog)
		loader = static
	default:
		b.Close()
		return nil, fmt.Errorf("no quiz source: set quiz.catalog or postgres.url")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		b.quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	snapshotTTL := config.TTLDuration(cfg.Snapshot.TTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	switch driver := cfg.SnapshotDriver(); driver {
	case config.DriverMemory:
		b.snapshots = memory.NewSnapshotStore()
	case config.DriverRedis:
		if redisClient == nil {
			b.Close()
			return nil, fmt.Errorf("snapshot driver %q requires redis.addr", driver)
		}
		b.snapshots = redisstore.NewSnapshotStore(redisClient, snapshotTTL)
	case config.DriverPostgres:
		if pool == nil {
			b.Close()
			return nil, fmt.Errorf("snapshot driver %q requires postgres.url", driver)
		}
		b.snapshots = pgstore.NewSnapshotStore(pool)
	case config.DriverSQLite:
		store, err := sqlite.NewSnapshotStore(cfg.SQLite.Path)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.snapshots = store
	default:
		b.Close()
		return nil, fmt.Errorf("unknown snapshot driver %q", driver)
	}
	log.Printf("snapshot store: %s", cfg.SnapshotDriver())
	return b, nil
}

// newService builds a SessionService over b with the configured tick interval.
func newService(b *backends, cfg config.Config, opts ...app.Option) *app.SessionService {
	interval, scaled := cfg.TickInterval()
	if scaled {
		log.Printf("session.tickInterval is %s: one second of quiz time passes every %s", interval, interval)
	}
	opts = append([]app.Option{app.WithTickInterval(interval)}, opts...)
	return app.NewSessionService(b.quizzes, memory.NewSessionRegistry(), b.snapshots, opts...)
}
