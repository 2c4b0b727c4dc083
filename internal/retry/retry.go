// Package retry provides the bounded retry policy applied to every outbound
// HTTP call: 3 attempts with exponential backoff, transient failures only.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sevigo/review-relay/internal/core"
)

const (
	// MaxAttempts bounds the total number of tries, not the number of retries.
	MaxAttempts = 3
	baseDelay   = time.Second
)

// Do runs op up to MaxAttempts times. Between attempt n and n+1 it sleeps
// 2^n * baseDelay (2s, 4s). Only errors classified transient by
// core.IsTransient are retried; permanent failures and context cancellation
// surface immediately.
func Do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << uint(attempt) // 2^n seconds
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		err = op()
		if err == nil {
			return nil
		}
		if !core.IsTransient(err) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", MaxAttempts, err)
}
