package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const maxConnectWait = 30 * time.Second

func retryPolicy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxConnectWait
	policy.MaxInterval = 5 * time.Second
	return backoff.WithContext(policy, ctx)
}

// Open opens a SQLite database, sets recommended pragmas, and validates connectivity.
// The ping is retried while the file is locked by another process.
func Open(ctx context.Context, dbPath string, logger *zap.Logger) (*sql.DB, error) {
	const operation = "db.Open"

	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite database: %w", operation, err)
	}

	err = backoff.RetryNotify(
		func() error {
			if _, err := db.ExecContext(ctx, `
				PRAGMA journal_mode = WAL;
				PRAGMA foreign_keys = ON;
				PRAGMA busy_timeout = 5000;
			`); err != nil {
				return fmt.Errorf("set sqlite pragmas: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping sqlite database: %w", err)
			}
			return nil
		},
		retryPolicy(ctx),
		func(err error, next time.Duration) {
			logger.Warn("sqlite not ready, retrying",
				zap.String("path", dbPath),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	return db, nil
}

// RedisOptions selects the Redis server used by the redis history backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects to Redis and retries the initial ping until the server answers.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*redis.Client, error) {
	const operation = "db.OpenRedis"

	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	err := backoff.RetryNotify(
		func() error {
			return client.Ping(ctx).Err()
		},
		retryPolicy(ctx),
		func(err error, next time.Duration) {
			logger.Warn("redis not ready, retrying",
				zap.String("addr", opts.Addr),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: ping %s: %w", operation, opts.Addr, err)
	}

	return client, nil
}
