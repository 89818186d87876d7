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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
)

var fetchNow = time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

func record(ts time.Time, status, region, agent string) models.RawRecord {
	rt := int64(25)
	rec := models.RawRecord{
		ServiceID:      "svc-1",
		Timestamp:      &ts,
		Status:         models.Some(status),
		ResponseTimeMs: &rt,
		AgentID:        models.Some(agent),
	}

	if region != "" {
		rec.RegionName = models.Some(region)
	}

	return rec
}

func newTestFetcher(t *testing.T, src Source, opts ...Option) *Fetcher {
	t.Helper()

	retry := NewRetry(models.RetryConfig{})
	retry.sleep = func(context.Context, time.Duration) error { return nil }

	cache := NewCache(20 * time.Second)
	cache.nowFn = func() time.Time { return fetchNow }

	opts = append([]Option{WithRetry(retry), WithCache(cache), WithClock(func() time.Time { return fetchNow })}, opts...)

	f, err := NewFetcher(src, Config{}, logger.NewTestLogger(), opts...)
	require.NoError(t, err)

	return f
}

func isSource(region string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		q, ok := x.(*db.SampleQuery)
		return ok && q.Source != nil && q.Source.RegionName == region
	})
}

func TestFetchAllScatterGather(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	east := models.Source{RegionName: "us-east", AgentID: "2"}

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1", Status: models.StatusUp}, nil)
	src.EXPECT().ListRegionalSources(gomock.Any(), "svc-1", fetchNow.Add(-models.DefaultSourceOnlineWithin)).
		Return([]models.Source{east}, nil)
	src.EXPECT().QuerySamples(gomock.Any(), isSource("")).DoAndReturn(
		func(_ context.Context, q *db.SampleQuery) ([]models.RawRecord, error) {
			assert.Equal(t, models.DefaultQueryLimit, q.Limit)
			require.NotNil(t, q.Start)
			assert.Equal(t, fetchNow.Add(-time.Hour), *q.Start)

			return []models.RawRecord{
				record(fetchNow.Add(-time.Minute), "up", "", "1"),
				{ServiceID: "svc-1"},
			}, nil
		})
	src.EXPECT().QuerySamples(gomock.Any(), isSource("us-east")).
		Return([]models.RawRecord{record(fetchNow.Add(-time.Minute), "down", "us-east", "2")}, nil)

	res, err := f.FetchAll(context.Background(), Request{ServiceID: "svc-1", Scope: models.AllSources()})
	require.NoError(t, err)

	require.Len(t, res.Samples, 2)
	assert.Equal(t, "Default (Agent 1)", res.Samples[0].SourceID)
	assert.Equal(t, "us-east (Agent 2)", res.Samples[1].SourceID)
	assert.Equal(t, 1, res.Dropped)
	assert.Empty(t, res.Failures)
	assert.False(t, res.IsStale)
	assert.Equal(t, models.StatusUp, res.Entity.LiveStatus())

	// served from cache, no further calls expected
	again, err := f.FetchAll(context.Background(), Request{ServiceID: "svc-1", Scope: models.AllSources()})
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestFetchAllPartialSourceFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	east := models.Source{RegionName: "us-east", AgentID: "2"}
	boom := errors.New("timeout")

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1"}, nil)
	src.EXPECT().ListRegionalSources(gomock.Any(), "svc-1", gomock.Any()).Return([]models.Source{east}, nil)
	src.EXPECT().QuerySamples(gomock.Any(), isSource("")).
		Return([]models.RawRecord{record(fetchNow.Add(-time.Minute), "up", "", "1")}, nil)
	src.EXPECT().QuerySamples(gomock.Any(), isSource("us-east")).Return(nil, boom).Times(4)

	res, err := f.FetchAll(context.Background(), Request{ServiceID: "svc-1", Scope: models.AllSources()})
	require.NoError(t, err)

	assert.Len(t, res.Samples, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "region:us-east:2", res.Failures[0].Source)
	assert.ErrorIs(t, &res.Failures[0], boom)
}

func TestFetchAllServesStaleWhenEverySourceFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	req := Request{ServiceID: "svc-1", Scope: models.SourceScope{Kind: models.ScopeDefault}}

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1"}, nil).Times(2)

	gomock.InOrder(
		src.EXPECT().QuerySamples(gomock.Any(), gomock.Any()).
			Return([]models.RawRecord{record(fetchNow.Add(-time.Minute), "up", "", "1")}, nil),
		src.EXPECT().QuerySamples(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")).Times(4),
	)

	first, err := f.FetchAll(context.Background(), req)
	require.NoError(t, err)

	req.Force = true

	stale, err := f.FetchAll(context.Background(), req)
	require.ErrorIs(t, err, ErrAllSourcesFailed)

	var transient *TransientFetchError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 4, transient.Attempts)

	assert.True(t, stale.IsStale)
	assert.Equal(t, first.Samples, stale.Samples)
}

func TestFetchAllWithoutCacheReturnsError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(nil, errors.New("db down")).Times(4)
	src.EXPECT().QuerySamples(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")).Times(4)

	res, err := f.FetchAll(context.Background(), Request{
		ServiceID: "svc-1",
		Scope:     models.SourceScope{Kind: models.ScopeRegion, Region: "eu-west", AgentID: "7"},
	})

	require.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Empty(t, res.Samples)
	assert.False(t, res.IsStale)
}

func TestFetchAllUnknownEntity(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	src.EXPECT().GetEntity(gomock.Any(), "ghost").Return(nil, db.ErrEntityNotFound)

	_, err := f.FetchAll(context.Background(), Request{ServiceID: "ghost", Scope: models.AllSources()})
	require.ErrorIs(t, err, db.ErrEntityNotFound)
}

func TestFetchAllRegionListingFailureKeepsDefault(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1"}, nil)
	src.EXPECT().ListRegionalSources(gomock.Any(), "svc-1", gomock.Any()).Return(nil, errors.New("nope")).Times(4)
	src.EXPECT().QuerySamples(gomock.Any(), isSource("")).
		Return([]models.RawRecord{record(fetchNow.Add(-time.Minute), "up", "", "1")}, nil)

	res, err := f.FetchAll(context.Background(), Request{ServiceID: "svc-1", Scope: models.AllSources()})
	require.NoError(t, err)

	assert.Len(t, res.Samples, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, regionsSourceLabel, res.Failures[0].Source)
}

func TestFetchAllCollapsesConcurrentLoads(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	release := make(chan struct{})

	var loads atomic.Int32

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").DoAndReturn(
		func(context.Context, string) (*models.Entity, error) {
			loads.Add(1)
			<-release

			return &models.Entity{ID: "svc-1"}, nil
		}).MinTimes(1).MaxTimes(2)
	src.EXPECT().QuerySamples(gomock.Any(), gomock.Any()).Return(nil, nil).MinTimes(1).MaxTimes(2)

	req := Request{ServiceID: "svc-1", Scope: models.SourceScope{Kind: models.ScopeDefault}}

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.FetchAll(context.Background(), req)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return loads.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int32(2))
}

func TestNewFetcherRequiresSource(t *testing.T) {
	t.Parallel()

	_, err := NewFetcher(nil, Config{}, logger.NewTestLogger())
	require.ErrorIs(t, err, errNilSource)
}

func TestFetchAllSharedLoadOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src)

	started := make(chan struct{})
	release := make(chan struct{})
	queryErr := make(chan error, 1)

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1"}, nil)
	src.EXPECT().QuerySamples(gomock.Any(), isSource("")).DoAndReturn(
		func(ctx context.Context, _ *db.SampleQuery) ([]models.RawRecord, error) {
			close(started)
			<-release
			queryErr <- ctx.Err()

			return []models.RawRecord{record(fetchNow.Add(-time.Minute), "up", "", "1")}, nil
		})

	req := Request{ServiceID: "svc-1", Scope: models.SourceScope{Kind: models.ScopeDefault}}

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)

	go func() {
		_, err := f.FetchAll(ctx, req)
		leaderErr <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	require.NoError(t, <-queryErr)

	require.Eventually(t, func() bool {
		_, ok := f.Cache().Get(f.KeyFor(req))
		return ok
	}, time.Second, 5*time.Millisecond)

	res, err := f.FetchAll(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Samples, 1)
}
