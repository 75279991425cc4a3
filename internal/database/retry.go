package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	pingAttempts = 5
	pingBackoff  = 500 * time.Millisecond
)

// pingWithRetry calls ping until it succeeds, doubling the wait between
// attempts.
func pingWithRetry(ctx context.Context, log zerolog.Logger, target string, attempts int, backoff time.Duration, ping func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", i).
			Dur("retry_in", backoff).
			Msg("Ping failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping %s: %w", target, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("ping %s after %d attempts: %w", target, attempts, err)
}
