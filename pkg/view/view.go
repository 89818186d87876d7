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

// Package view keeps the live timeline of one service and source scope up to
// date from fetches, polls and push events.
package view

//go:generate mockgen -destination=mock_view.go -package=view github.com/carverauto/timeline/pkg/view Loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/timeline/pkg/fetch"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/natsutil"
	"github.com/carverauto/timeline/pkg/realtime"
	"github.com/carverauto/timeline/pkg/timeline"
)

const eventBuffer = 32

var (
	errNotMounted = errors.New("view is not mounted")
	errViewClosed = errors.New("view is closed")
	errNilLoader  = errors.New("view loader is nil")
)

// Loader is the fetch side a view reads history from. *fetch.Fetcher
// satisfies it.
type Loader interface {
	FetchAll(ctx context.Context, req fetch.Request) (fetch.Result, error)
}

// Option configures a View.
type Option func(*View)

// WithClock overrides the time source of the pipeline and the throttle.
func WithClock(now func() time.Time) Option {
	return func(v *View) {
		v.nowFn = now
	}
}

// View is the live timeline of one mounted service.
type View struct {
	loader     Loader
	subscriber natsutil.Subscriber
	logger     logger.Logger
	cfg        models.TimelineConfig
	nowFn      func() time.Time
	reducer    *realtime.Reducer
	registry   *realtime.Registry

	// mountMu serializes Mount, SetScope and Close so subscriptions of one
	// mount are never mixed with another's.
	mountMu sync.Mutex

	mu          sync.Mutex
	generation  uint64
	mounted     bool
	closed      bool
	loading     bool
	stale       bool
	live        bool
	lastError   string
	failures    []string
	serviceType string
	state       realtime.State
	preserved   []models.Slot
	snapshot    models.Snapshot
	stopForward chan struct{}

	events  chan models.PushEvent
	updates chan models.Snapshot
}

// New creates an unmounted view. subscriber may be nil, in which case the
// view runs in poll-only mode.
func New(loader Loader, subscriber natsutil.Subscriber, cfg models.TimelineConfig, log logger.Logger, opts ...Option) (*View, error) {
	if loader == nil {
		return nil, errNilLoader
	}

	if cfg.Slots <= 0 {
		cfg.Slots = models.DefaultSlots
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = models.Duration(models.DefaultPollInterval)
	}

	if cfg.DefaultCheckInterval <= 0 {
		cfg.DefaultCheckInterval = models.Duration(models.DefaultCheckInterval)
	}

	v := &View{
		loader:     loader,
		subscriber: subscriber,
		logger:     log,
		cfg:        cfg,
		nowFn:      time.Now,
		reducer:    realtime.NewReducer(cfg),
		registry:   realtime.NewRegistry(subscriber),
		events:     make(chan models.PushEvent, eventBuffer),
		updates:    make(chan models.Snapshot, 1),
	}

	for _, opt := range opts {
		opt(v)
	}

	v.reducer.Throttle.SetClock(v.nowFn)

	return v, nil
}

// Updates delivers the latest snapshot after every effective change. Only
// the newest undelivered snapshot is kept.
func (v *View) Updates() <-chan models.Snapshot {
	return v.updates
}

// Snapshot returns the current display state.
func (v *View) Snapshot() models.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.snapshot
}

// Mount points the view at a service and scope, opens push subscriptions and
// loads history. The timeline shows placeholders while loading.
func (v *View) Mount(ctx context.Context, serviceID, serviceType string, scope models.SourceScope) error {
	v.mountMu.Lock()

	gen, err := v.reset(serviceID, serviceType, scope)
	if err != nil {
		v.mountMu.Unlock()
		return err
	}

	v.subscribe(ctx, gen, serviceID, scope)
	v.mountMu.Unlock()

	return v.load(ctx, gen, false)
}

// SetScope switches the source scope of the mounted service. The previous
// scope's data is cleared before the new load starts.
func (v *View) SetScope(ctx context.Context, scope models.SourceScope) error {
	v.mu.Lock()
	mounted := v.mounted
	serviceID, serviceType := v.state.ServiceID, v.serviceType
	v.mu.Unlock()

	if !mounted {
		return errNotMounted
	}

	return v.Mount(ctx, serviceID, serviceType, scope)
}

// Refetch reloads history now, bypassing both the fresh cache entry and the
// throttle window.
func (v *View) Refetch(ctx context.Context) error {
	gen, err := v.issue()
	if err != nil {
		return err
	}

	return v.load(ctx, gen, true)
}

// Run consumes push events and polls until ctx is done or the view is
// closed.
func (v *View) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(v.cfg.PollInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-v.events:
			v.applyEvent(ev)
		case <-ticker.C:
			if err := v.poll(ctx); errors.Is(err, errViewClosed) {
				return nil
			}
		}
	}
}

// Close releases every subscription. Further operations fail.
func (v *View) Close() error {
	v.mountMu.Lock()
	defer v.mountMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}

	v.closed = true
	v.stopForwardersLocked()
	v.mu.Unlock()

	return v.registry.Close()
}

// reset starts a new generation for serviceID/scope and clears the
// timeline.
func (v *View) reset(serviceID, serviceType string, scope models.SourceScope) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, errViewClosed
	}

	entity := models.Entity{ID: serviceID}
	if v.mounted && v.state.ServiceID == serviceID {
		entity = v.state.Entity
	}

	v.generation++
	v.mounted = true
	v.serviceType = serviceType
	v.state = realtime.State{ServiceID: serviceID, Scope: scope, Entity: entity}
	v.preserved = nil
	v.loading = true
	v.stale = false
	v.live = false
	v.lastError = ""
	v.failures = nil
	v.reducer.Throttle.Reset()
	v.stopForwardersLocked()
	v.rebuildLocked()

	return v.generation, nil
}

// issue starts a new request generation for the current mount.
func (v *View) issue() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case v.closed:
		return 0, errViewClosed
	case !v.mounted:
		return 0, errNotMounted
	}

	v.generation++

	return v.generation, nil
}

// subscribe opens both push streams. Any failure releases what was opened
// and leaves the view polling.
func (v *View) subscribe(ctx context.Context, gen uint64, serviceID string, scope models.SourceScope) {
	if err := v.registry.ReleaseAll(); err != nil {
		v.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Failed to release subscriptions")
	}

	if v.subscriber == nil {
		return
	}

	subs := make([]natsutil.Subscription, 0, 2)

	for _, kind := range []models.EventKind{models.EventKindSample, models.EventKindEntity} {
		sub, err := v.registry.Acquire(ctx, kind, serviceID, scope)
		if err != nil {
			v.logger.Warn().
				Err(err).
				Str("service_id", serviceID).
				Str("scope", scope.String()).
				Msg("Push updates unavailable, continuing in poll-only mode")

			_ = v.registry.ReleaseAll()

			return
		}

		subs = append(subs, sub)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation || v.closed {
		return
	}

	stop := make(chan struct{})
	v.stopForward = stop
	v.live = true

	for _, sub := range subs {
		go v.forward(sub, stop)
	}
}

func (v *View) forward(sub natsutil.Subscription, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			select {
			case v.events <- ev:
			case <-stop:
				return
			}
		}
	}
}

func (v *View) stopForwardersLocked() {
	if v.stopForward != nil {
		close(v.stopForward)
		v.stopForward = nil
	}
}

// poll reloads history when the sample throttle window is open. Pushes and
// polls share that window, so both inside one window make one update.
func (v *View) poll(ctx context.Context) error {
	v.mu.Lock()

	switch {
	case v.closed:
		v.mu.Unlock()
		return errViewClosed
	case !v.mounted:
		v.mu.Unlock()
		return nil
	}

	if !v.reducer.Throttle.Allow(models.EventKindSample) {
		v.mu.Unlock()
		return nil
	}

	v.generation++
	gen := v.generation
	v.mu.Unlock()

	err := v.load(ctx, gen, false)
	if err != nil {
		v.logger.Debug().Err(err).Msg("Poll refresh failed")
	}

	return err
}

// load fetches history for generation gen. Results of a superseded
// generation are discarded.
func (v *View) load(ctx context.Context, gen uint64, force bool) error {
	v.mu.Lock()
	req := fetch.Request{
		ServiceID:   v.state.ServiceID,
		Scope:       v.state.Scope,
		ServiceType: v.serviceType,
		Force:       force,
	}
	v.mu.Unlock()

	res, err := v.loader.FetchAll(ctx, req)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation || v.closed {
		v.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", v.generation).
			Msg("Discarding superseded fetch result")

		return nil
	}

	v.loading = false
	v.failures = v.failures[:0]

	for _, f := range res.Failures {
		v.failures = append(v.failures, f.Source)
	}

	switch {
	case err == nil:
		v.applyResultLocked(res)
		v.stale = res.IsStale
		v.lastError = ""
	case res.IsStale:
		v.applyResultLocked(res)
		v.stale = true
		v.lastError = err.Error()
	default:
		// nothing to show but placeholders
		v.state.Samples = nil
		v.stale = false
		v.lastError = err.Error()
	}

	v.rebuildLocked()

	if err != nil {
		return fmt.Errorf("load %s: %w", req.ServiceID, err)
	}

	return nil
}

func (v *View) applyResultLocked(res fetch.Result) {
	v.state.Samples = res.Samples

	if res.Entity != nil {
		v.state.Entity = *res.Entity
	}
}

func (v *View) applyEvent(ev models.PushEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted || v.closed {
		return
	}

	next, outcome := v.reducer.Apply(v.state, ev, v.nowFn())

	v.logger.Debug().
		Str("service_id", ev.ServiceID).
		Str("kind", string(ev.Kind)).
		Str("outcome", outcome.String()).
		Msg("Push event")

	if outcome != realtime.Applied {
		return
	}

	v.state = next
	v.rebuildLocked()
}

func (v *View) rebuildLocked() {
	interval := time.Duration(v.state.Entity.CheckInterval)
	if interval <= 0 {
		interval = time.Duration(v.cfg.DefaultCheckInterval)
	}

	now := v.nowFn()

	out := timeline.Build(timeline.Input{
		ServiceID:     v.state.ServiceID,
		Samples:       v.state.Samples,
		LiveStatus:    v.state.Entity.LiveStatus(),
		CheckInterval: interval,
		Slots:         v.cfg.Slots,
		Now:           now,
		Preserved:     v.preserved,
	})

	v.preserved = out.Preserved

	entity := v.state.Entity

	v.snapshot = models.Snapshot{
		ServiceID:        v.state.ServiceID,
		Scope:            v.state.Scope.String(),
		Timeline:         out.Timeline,
		RollupPercentage: out.Rollup,
		IsLoading:        v.loading,
		IsStale:          v.stale,
		LastError:        v.lastError,
		PartialFailures:  append([]string(nil), v.failures...),
		Entity:           &entity,
		Live:             v.live,
		Generation:       v.generation,
		UpdatedAt:        now,
	}

	v.publishLocked(v.snapshot)
}

func (v *View) publishLocked(s models.Snapshot) {
	select {
	case v.updates <- s:
		return
	default:
	}

	select {
	case <-v.updates:
	default:
	}

	select {
	case v.updates <- s:
	default:
	}
}
