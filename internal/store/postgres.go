// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store manages the PostgreSQL connection and schema for accounts.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectAttempts is how many times Connect tries to reach the
// database before giving up.
const DefaultConnectAttempts = 5

// connectBackoffBase is the first delay between connection attempts.
// Later delays double.
var connectBackoffBase = 500 * time.Millisecond

// Connect opens a pgx pool for dsn and pings it, retrying with exponential
// backoff up to attempts times.
func Connect(ctx context.Context, dsn string, attempts int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if attempts < 1 {
		attempts = 1
	}

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(connectBackoffBase)) //nolint:gosec // attempts >= 1
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.WarnContext(ctx, "database not reachable, retrying",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
