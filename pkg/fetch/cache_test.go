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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/models"
)

func TestCacheTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewCache(20 * time.Second)
	c.nowFn = func() time.Time { return now }

	key := Key{ServiceID: "svc-1", Scope: "all", Window: time.Hour}
	c.Put(key, Result{Samples: []models.Sample{{SourceID: "a"}}})

	res, ok := c.Get(key)
	require.True(t, ok)
	assert.False(t, res.IsStale)
	assert.Len(t, res.Samples, 1)

	now = now.Add(20 * time.Second)

	_, ok = c.Get(key)
	assert.False(t, ok)

	stale, ok := c.GetStale(key)
	require.True(t, ok)
	assert.True(t, stale.IsStale)
}

func TestCacheInvalidateService(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)

	c.Put(Key{ServiceID: "svc-1", Scope: "all"}, Result{})
	c.Put(Key{ServiceID: "svc-1", Scope: "default"}, Result{})
	c.Put(Key{ServiceID: "svc-2", Scope: "all"}, Result{})

	assert.Equal(t, 2, c.InvalidateService("svc-1"))
	assert.Equal(t, 1, c.Len())

	c.Invalidate(Key{ServiceID: "svc-2", Scope: "all"})
	assert.Zero(t, c.Len())

	_, ok := c.GetStale(Key{ServiceID: "svc-2", Scope: "all"})
	assert.False(t, ok)
}

func TestKeyDistinguishesScopeAndType(t *testing.T) {
	t.Parallel()

	a := Key{ServiceID: "svc-1", Scope: "all", Window: time.Hour, ServiceType: "http"}
	b := a
	b.ServiceType = "icmp"

	assert.NotEqual(t, a.String(), b.String())
	assert.Equal(t, "svc-1|all|1h0m0s|http", a.String())
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	r := NewRetry(models.RetryConfig{})

	assert.Equal(t, time.Second, r.Backoff(1))
	assert.Equal(t, 2*time.Second, r.Backoff(2))
	assert.Equal(t, 4*time.Second, r.Backoff(3))
	assert.Equal(t, 8*time.Second, r.Backoff(4))
	assert.Equal(t, 10*time.Second, r.Backoff(5))
	assert.Equal(t, 10*time.Second, r.Backoff(30))
}

func recordingRetry(delays *[]time.Duration) Retry {
	r := NewRetry(models.RetryConfig{})
	r.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}

	return r
}

func TestRetryDoExhausts(t *testing.T) {
	t.Parallel()

	var delays []time.Duration

	r := recordingRetry(&delays)
	boom := errors.New("connection reset")
	calls := 0

	err := r.Do(context.Background(), "svc-1/default", func(context.Context) error {
		calls++
		return boom
	})

	var transient *TransientFetchError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 4, transient.Attempts)
	assert.Equal(t, "svc-1/default", transient.Key)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestRetryDoRecovers(t *testing.T) {
	t.Parallel()

	var delays []time.Duration

	r := recordingRetry(&delays)
	calls := 0

	err := r.Do(context.Background(), "k", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestRetryDoStopsOnPermanentErrors(t *testing.T) {
	t.Parallel()

	var delays []time.Duration

	r := recordingRetry(&delays)

	err := r.Do(context.Background(), "k", func(context.Context) error {
		return db.ErrEntityNotFound
	})
	require.ErrorIs(t, err, db.ErrEntityNotFound)

	var transient *TransientFetchError
	assert.False(t, errors.As(err, &transient))
	assert.Empty(t, delays)
}

func TestRetryDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetry(models.RetryConfig{BaseDelay: models.Duration(time.Hour)})

	err := r.Do(ctx, "k", func(context.Context) error {
		cancel()
		return errors.New("down")
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRetryMaxRetries(t *testing.T) {
	t.Parallel()

	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name string
		in   *int
		want int
	}{
		{name: "unset", in: nil, want: models.DefaultMaxRetries},
		{name: "disabled", in: intPtr(0), want: 0},
		{name: "negative", in: intPtr(-2), want: models.DefaultMaxRetries},
		{name: "explicit", in: intPtr(5), want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, NewRetry(models.RetryConfig{MaxRetries: tt.in}).MaxRetries)
		})
	}
}

func TestRetryDoWithoutRetries(t *testing.T) {
	t.Parallel()

	var delays []time.Duration

	zero := 0
	r := NewRetry(models.RetryConfig{MaxRetries: &zero})
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	calls := 0
	err := r.Do(context.Background(), "svc-1/default", func(context.Context) error {
		calls++
		return errors.New("connection reset")
	})

	var transient *TransientFetchError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 1, transient.Attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}
