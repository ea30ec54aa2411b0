package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Connect opens a pool against databaseURL and pings it until the database
// answers or wait elapses. Startup in a container usually races the database
// container, so a refused connection is retried rather than fatal.
func Connect(ctx context.Context, databaseURL string, wait time.Duration, logger *slog.Logger) (*pgxpool.Pool, error) {
	// pgxpool.New does not open connections; only a malformed URL fails here.
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("repo.Connect: %w", err)
	}

	backoff := retry.WithMaxDuration(wait, retry.NewConstant(time.Second))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database unavailable, waiting", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("repo.Connect: database not reachable after %s: %w", wait, err)
	}
	return pool, nil
}
