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

// Package fetch loads sample history for a service from every source in
// scope, with caching, retries and stale fallback.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/timeline"
)

const (
	tracerName         = "github.com/carverauto/timeline/pkg/fetch"
	defaultMaxParallel = 8
	entitySourceLabel  = "entity"
	regionsSourceLabel = "regions"
)

// Config tunes the fetcher.
type Config struct {
	QueryLimit         int
	Window             time.Duration
	SourceOnlineWithin time.Duration
	MaxParallel        int
}

// ConfigFrom extracts the fetcher settings from the service configuration.
func ConfigFrom(cfg *models.ServiceConfig) Config {
	return Config{
		QueryLimit:         cfg.Timeline.QueryLimit,
		Window:             time.Duration(cfg.Timeline.Window),
		SourceOnlineWithin: time.Duration(cfg.Timeline.SourceOnlineWithin),
	}
}

func (c *Config) applyDefaults() {
	if c.QueryLimit <= 0 {
		c.QueryLimit = models.DefaultQueryLimit
	}

	if c.Window <= 0 {
		c.Window = models.DefaultWindow
	}

	if c.SourceOnlineWithin <= 0 {
		c.SourceOnlineWithin = models.DefaultSourceOnlineWithin
	}

	if c.MaxParallel <= 0 {
		c.MaxParallel = defaultMaxParallel
	}
}

// Request selects what a scatter-gather loads.
type Request struct {
	ServiceID   string
	Scope       models.SourceScope
	ServiceType string
	// Force skips a fresh cache entry.
	Force bool
}

// Fetcher loads and caches sample history.
type Fetcher struct {
	src    Source
	cache  *Cache
	retry  Retry
	cfg    Config
	group  singleflight.Group
	logger logger.Logger
	tracer trace.Tracer
	meters metric.MeterProvider
	stats  *fetchMetrics
	nowFn  func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache replaces the default cache.
func WithCache(c *Cache) Option {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// WithRetry replaces the default retry policy.
func WithRetry(r Retry) Option {
	return func(f *Fetcher) {
		f.retry = r
	}
}

// WithClock overrides the time source used for query windows.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.nowFn = now
	}
}

// WithMeterProvider records fetch metrics through mp instead of the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(f *Fetcher) {
		f.meters = mp
	}
}

// NewFetcher builds a Fetcher reading from src.
func NewFetcher(src Source, cfg Config, log logger.Logger, opts ...Option) (*Fetcher, error) {
	if src == nil {
		return nil, errNilSource
	}

	cfg.applyDefaults()

	f := &Fetcher{
		src:    src,
		cfg:    cfg,
		cache:  NewCache(models.DefaultCacheTTL),
		retry:  NewRetry(models.RetryConfig{}),
		logger: log,
		tracer: otel.Tracer(tracerName),
		nowFn:  time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.stats = newFetchMetrics(f.meters)
	f.retry.onRetry = f.stats.recordRetry

	return f, nil
}

// Cache exposes the fetch cache so writers can invalidate it.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// KeyFor returns the cache key of req.
func (f *Fetcher) KeyFor(req Request) Key {
	return Key{
		ServiceID:   req.ServiceID,
		Scope:       req.Scope.String(),
		Window:      f.cfg.Window,
		ServiceType: req.ServiceType,
	}
}

// Fetch loads and normalizes the samples of a single source.
func (f *Fetcher) Fetch(ctx context.Context, serviceID string, src models.Source) (timeline.NormalizeResult, error) {
	ctx, span := f.tracer.Start(ctx, "fetch.source", trace.WithAttributes(
		attribute.String("service.id", serviceID),
		attribute.String("source", src.Name()),
	))
	defer span.End()

	start := f.nowFn().Add(-f.cfg.Window)
	query := &db.SampleQuery{
		ServiceID: serviceID,
		Limit:     f.cfg.QueryLimit,
		Start:     &start,
		Source:    &src,
	}

	var records []models.RawRecord

	err := f.retry.Do(ctx, serviceID+"/"+src.Name(), func(ctx context.Context) error {
		var err error

		records, err = f.src.QuerySamples(ctx, query)

		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")

		return timeline.NormalizeResult{}, err
	}

	res := timeline.NormalizeAll(records)
	if res.Dropped > 0 {
		f.stats.recordDropped(ctx, src.Name(), res.Dropped)
		f.logger.Debug().
			Str("service_id", serviceID).
			Str("source", src.Name()).
			Int("dropped", res.Dropped).
			Msg("Dropped malformed sample records")
	}

	span.SetAttributes(attribute.Int("samples", len(res.Samples)))

	return res, nil
}

// FetchAll loads every source in scope concurrently. A failing source adds a
// PartialSourceFailure and contributes nothing. When every source fails the
// last good result is returned marked stale, together with the error.
func (f *Fetcher) FetchAll(ctx context.Context, req Request) (Result, error) {
	key := f.KeyFor(req)

	if !req.Force {
		if res, ok := f.cache.Get(key); ok {
			f.stats.recordRequest(ctx, "hit")

			return res, nil
		}
	}

	f.stats.recordRequest(ctx, "miss")

	// the shared load outlives any single caller
	shared := context.WithoutCancel(ctx)

	ch := f.group.DoChan(key.String(), func() (interface{}, error) {
		return f.load(shared, req, key)
	})

	var (
		v   interface{}
		err error
	)

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		v, err = r.Val, r.Err
	}

	if err != nil {
		if stale, ok := f.cache.GetStale(key); ok {
			stale.IsStale = true
			f.stats.recordStaleServe(ctx, key.Scope)

			f.logger.Warn().
				Err(err).
				Str("service_id", req.ServiceID).
				Str("scope", key.Scope).
				Msg("Serving stale timeline data")

			return stale, err
		}

		return Result{}, err
	}

	return v.(Result), nil
}

func (f *Fetcher) load(ctx context.Context, req Request, key Key) (Result, error) {
	started := time.Now()

	ctx, span := f.tracer.Start(ctx, "fetch.all", trace.WithAttributes(
		attribute.String("service.id", req.ServiceID),
		attribute.String("scope", key.Scope),
	))
	defer span.End()

	res, err := f.gather(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		f.stats.recordLoad(ctx, time.Since(started), "error")

		return Result{}, err
	}

	f.cache.Put(key, res)
	f.stats.recordLoad(ctx, time.Since(started), "success")

	return res, nil
}

func (f *Fetcher) gather(ctx context.Context, req Request) (Result, error) {
	now := f.nowFn()
	out := Result{FetchedAt: now}

	entity, err := f.loadEntity(ctx, req.ServiceID)

	switch {
	case errors.Is(err, db.ErrEntityNotFound):
		return Result{}, err
	case err != nil:
		out.Failures = append(out.Failures, f.partial(ctx, req.ServiceID, entitySourceLabel, err))
	default:
		out.Entity = entity
	}

	sources, err := f.sourcesFor(ctx, req, now)
	if err != nil {
		out.Failures = append(out.Failures, f.partial(ctx, req.ServiceID, regionsSourceLabel, err))
	}

	results := make([]timeline.NormalizeResult, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxParallel)

	for i, src := range sources {
		g.Go(func() error {
			results[i], errs[i] = f.Fetch(gctx, req.ServiceID, src)

			return nil
		})
	}

	_ = g.Wait()

	var firstErr error

	failed := 0

	for i, src := range sources {
		if errs[i] != nil {
			failed++

			if firstErr == nil {
				firstErr = errs[i]
			}

			out.Failures = append(out.Failures, f.partial(ctx, req.ServiceID, src.Name(), errs[i]))

			continue
		}

		out.Samples = append(out.Samples, results[i].Samples...)
		out.Dropped += results[i].Dropped
	}

	if len(sources) > 0 && failed == len(sources) {
		return Result{}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, firstErr)
	}

	return out, nil
}

func (f *Fetcher) loadEntity(ctx context.Context, serviceID string) (*models.Entity, error) {
	var entity *models.Entity

	err := f.retry.Do(ctx, serviceID+"/"+entitySourceLabel, func(ctx context.Context) error {
		var err error

		entity, err = f.src.GetEntity(ctx, serviceID)

		return err
	})

	return entity, err
}

// sourcesFor lists the sources of the scope, default first. A failed region
// listing degrades to the default source alone.
func (f *Fetcher) sourcesFor(ctx context.Context, req Request, now time.Time) ([]models.Source, error) {
	switch req.Scope.Kind {
	case models.ScopeDefault:
		return []models.Source{{}}, nil
	case models.ScopeRegion:
		return []models.Source{{RegionName: req.Scope.Region, AgentID: req.Scope.AgentID}}, nil
	}

	sources := []models.Source{{}}

	var regions []models.Source

	err := f.retry.Do(ctx, req.ServiceID+"/"+regionsSourceLabel, func(ctx context.Context) error {
		var err error

		regions, err = f.src.ListRegionalSources(ctx, req.ServiceID, now.Add(-f.cfg.SourceOnlineWithin))

		return err
	})
	if err != nil {
		return sources, err
	}

	for _, r := range regions {
		if !r.IsDefault() {
			sources = append(sources, r)
		}
	}

	return sources, nil
}

func (f *Fetcher) partial(ctx context.Context, serviceID, source string, err error) PartialSourceFailure {
	f.stats.recordSourceFailure(ctx, source)

	f.logger.Warn().
		Err(err).
		Str("service_id", serviceID).
		Str("source", source).
		Msg("Source contributed no data")

	return PartialSourceFailure{Source: source, Err: err}
}
