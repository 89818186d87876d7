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

package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/natsutil"
)

var errRegistryClosed = errors.New("subscription registry is closed")

type subscriptionKey struct {
	kind      models.EventKind
	serviceID string
	scope     string
}

// Registry tracks the live subscriptions of one view. Each (service, scope)
// holds at most one subscription per kind.
type Registry struct {
	mu     sync.Mutex
	source natsutil.Subscriber
	subs   map[subscriptionKey]natsutil.Subscription
	closed bool
}

// NewRegistry creates a registry opening subscriptions on source.
func NewRegistry(source natsutil.Subscriber) *Registry {
	return &Registry{
		source: source,
		subs:   make(map[subscriptionKey]natsutil.Subscription),
	}
}

// Acquire returns the subscription for kind, opening it on first use.
// Failures are wrapped in ErrSubscription.
func (r *Registry) Acquire(
	ctx context.Context, kind models.EventKind, serviceID string, scope models.SourceScope,
) (natsutil.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: %w", ErrSubscription, errRegistryClosed)
	}

	if r.source == nil {
		return nil, fmt.Errorf("%w: no push source configured", ErrSubscription)
	}

	key := subscriptionKey{kind: kind, serviceID: serviceID, scope: scope.String()}
	if sub, ok := r.subs[key]; ok {
		return sub, nil
	}

	sub, err := r.source.Subscribe(ctx, kind, serviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %w", ErrSubscription, kind, serviceID, err)
	}

	r.subs[key] = sub

	return sub, nil
}

// ReleaseAll unsubscribes everything acquired so far. It may be called any
// number of times.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[subscriptionKey]natsutil.Subscription)
	r.mu.Unlock()

	var errs []error

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close releases everything and refuses further acquisitions.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	return r.ReleaseAll()
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subs)
}
