/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/models"
)

// Retry runs a load with exponential backoff.
type Retry struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func(ctx context.Context, key string)
}

// NewRetry builds a Retry from configuration. Zero delays fall back to the
// defaults. An unset or negative MaxRetries uses the default; 0 disables
// retries.
func NewRetry(cfg models.RetryConfig) Retry {
	r := Retry{
		MaxRetries: models.DefaultMaxRetries,
		BaseDelay:  time.Duration(cfg.BaseDelay),
		MaxDelay:   time.Duration(cfg.MaxDelay),
	}

	if cfg.MaxRetries != nil && *cfg.MaxRetries >= 0 {
		r.MaxRetries = *cfg.MaxRetries
	}

	if r.BaseDelay <= 0 {
		r.BaseDelay = models.DefaultRetryBaseDelay
	}

	if r.MaxDelay <= 0 {
		r.MaxDelay = models.DefaultRetryMaxDelay
	}

	return r
}

// Backoff returns the wait before retry number attempt (1-based): base,
// 2*base, 4*base and so on, capped at MaxDelay.
func (r Retry) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := r.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}

	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}

	return delay
}

// Do calls fn until it succeeds, the retries are used up or the error is not
// worth retrying. Exhausted retries yield a *TransientFetchError.
func (r Retry) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error

	attempts := 0

	for attempts <= r.MaxRetries {
		attempts++

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		if attempts > r.MaxRetries {
			break
		}

		if err := sleep(ctx, r.Backoff(attempts)); err != nil {
			return err
		}

		if r.onRetry != nil {
			r.onRetry(ctx, key)
		}
	}

	return &TransientFetchError{Key: key, Attempts: attempts, Err: lastErr}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, db.ErrEntityNotFound):
		return false
	default:
		return true
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
