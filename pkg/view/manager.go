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

package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/natsutil"
)

const defaultIdleTimeout = 5 * time.Minute

var errManagerClosed = errors.New("view manager is closed")

type viewKey struct {
	serviceID   string
	serviceType string
	scope       string
}

func (k viewKey) String() string {
	return k.serviceID + "|" + k.serviceType + "|" + k.scope
}

type managedView struct {
	view     *View
	cancel   context.CancelFunc
	lastUsed time.Time
}

// Manager owns the shared views behind the request/response API. Views are
// created on first use, run in the background and closed after sitting idle.
type Manager struct {
	loader      Loader
	subscriber  natsutil.Subscriber
	cfg         models.TimelineConfig
	logger      logger.Logger
	idleTimeout time.Duration
	viewOpts    []Option
	nowFn       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu     sync.Mutex
	views  map[viewKey]*managedView
	closed bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIdleTimeout sets how long an unused shared view is kept.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithViewOptions passes options to every view the manager creates.
func WithViewOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.viewOpts = append(m.viewOpts, opts...)
	}
}

// NewManager creates a manager. subscriber may be nil for poll-only views.
func NewManager(loader Loader, subscriber natsutil.Subscriber, cfg models.TimelineConfig, log logger.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		loader:      loader,
		subscriber:  subscriber,
		cfg:         cfg,
		logger:      log,
		idleTimeout: defaultIdleTimeout,
		nowFn:       time.Now,
		ctx:         ctx,
		cancel:      cancel,
		views:       make(map[viewKey]*managedView),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Get returns the shared view of a service and scope, mounting it on first
// use. An unknown service is reported as db.ErrEntityNotFound and not kept.
func (m *Manager) Get(ctx context.Context, serviceID, serviceType string, scope models.SourceScope) (*View, error) {
	key := viewKey{serviceID: serviceID, serviceType: serviceType, scope: scope.String()}

	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	res, err, _ := m.group.Do(key.String(), func() (interface{}, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}

		return m.create(ctx, key, serviceID, serviceType, scope)
	})
	if err != nil {
		return nil, err
	}

	return res.(*View), nil
}

// Open mounts a private view for a single consumer such as a stream. The
// caller must Close it; its Run loop stops with ctx.
func (m *Manager) Open(ctx context.Context, serviceID, serviceType string, scope models.SourceScope) (*View, error) {
	v, err := New(m.loader, m.subscriber, m.cfg, m.logger, m.viewOpts...)
	if err != nil {
		return nil, err
	}

	if err := v.Mount(ctx, serviceID, serviceType, scope); err != nil {
		if errors.Is(err, db.ErrEntityNotFound) {
			_ = v.Close()

			return nil, err
		}

		m.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Initial load failed")
	}

	go func() {
		if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Stream view stopped")
		}
	}()

	return v, nil
}

// InvalidateService forgets the shared views of a service so the next Get
// rebuilds them.
func (m *Manager) InvalidateService(serviceID string) {
	m.mu.Lock()

	var drop []*managedView

	for key, mv := range m.views {
		if key.serviceID == serviceID {
			drop = append(drop, mv)
			delete(m.views, key)
		}
	}

	m.mu.Unlock()

	for _, mv := range drop {
		m.stop(mv)
	}
}

// Len returns the number of shared views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.views)
}

// Run evicts idle views until ctx is done, then closes everything.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.idleTimeout / 2
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()

			return ctx.Err()
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// Close stops and closes every shared view.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	m.closed = true
	views := m.views
	m.views = make(map[viewKey]*managedView)
	m.mu.Unlock()

	m.cancel()

	for _, mv := range views {
		m.stop(mv)
	}
}

func (m *Manager) lookup(key viewKey) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mv, ok := m.views[key]
	if !ok {
		return nil, false
	}

	mv.lastUsed = m.nowFn()

	return mv.view, true
}

func (m *Manager) create(ctx context.Context, key viewKey, serviceID, serviceType string, scope models.SourceScope) (*View, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, errManagerClosed
	}

	v, err := New(m.loader, m.subscriber, m.cfg, m.logger, m.viewOpts...)
	if err != nil {
		return nil, err
	}

	if err := v.Mount(ctx, serviceID, serviceType, scope); err != nil {
		if errors.Is(err, db.ErrEntityNotFound) {
			_ = v.Close()

			return nil, err
		}

		// the snapshot carries the error; keep serving placeholders
		m.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Initial load failed")
	}

	runCtx, cancel := context.WithCancel(m.ctx)

	mv := &managedView{view: v, cancel: cancel, lastUsed: m.nowFn()}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.stop(mv)

		return nil, errManagerClosed
	}

	m.views[key] = mv
	m.mu.Unlock()

	go func() {
		if err := v.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn().Err(err).Str("service_id", serviceID).Msg("View stopped")
		}
	}()

	return v, nil
}

func (m *Manager) evictIdle() {
	cutoff := m.nowFn().Add(-m.idleTimeout)

	m.mu.Lock()

	var drop []*managedView

	for key, mv := range m.views {
		if mv.lastUsed.Before(cutoff) {
			drop = append(drop, mv)
			delete(m.views, key)
		}
	}

	m.mu.Unlock()

	for _, mv := range drop {
		m.stop(mv)
	}

	if len(drop) > 0 {
		m.logger.Debug().Int("evicted", len(drop)).Msg("Closed idle views")
	}
}

func (m *Manager) stop(mv *managedView) {
	mv.cancel()

	if err := mv.view.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close view")
	}
}
