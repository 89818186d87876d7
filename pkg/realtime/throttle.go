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

// Package realtime merges throttled push events into a view's working set.
package realtime

import (
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/carverauto/timeline/pkg/models"
)

// ErrSubscription wraps failures to open a push subscription. Views treat it
// as a signal to continue in poll-only mode.
var ErrSubscription = errors.New("push subscription failed")

// Throttle is a per-kind cooldown: once an event of a kind is accepted,
// further events of that kind are refused until the window has passed.
// Refused events are dropped, never queued.
type Throttle struct {
	mu       sync.Mutex
	window   time.Duration
	limiters map[models.EventKind]*rate.Limiter
	nowFn    func() time.Time
	refused  metric.Int64Counter
}

// NewThrottle builds a throttle with the given cooldown window.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = models.DefaultThrottleWindow
	}

	return &Throttle{
		window:   window,
		limiters: make(map[models.EventKind]*rate.Limiter),
		nowFn:    time.Now,
		refused:  newThrottledCounter(nil),
	}
}

// Allow reports whether an event of kind may be applied now, consuming the
// window when it may.
func (t *Throttle) Allow(kind models.EventKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limiters[kind]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.window), 1)
		t.limiters[kind] = lim
	}

	if !lim.AllowN(t.nowFn(), 1) {
		recordThrottled(t.refused, kind)

		return false
	}

	return true
}

// SetClock replaces the time source.
func (t *Throttle) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nowFn = now
}

// SetMeterProvider records refused events through mp instead of the global
// provider.
func (t *Throttle) SetMeterProvider(mp metric.MeterProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refused = newThrottledCounter(mp)
}

// Reset forgets every accepted event, reopening all kinds.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limiters = make(map[models.EventKind]*rate.Limiter)
}
