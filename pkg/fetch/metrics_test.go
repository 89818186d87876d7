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
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/timeline/pkg/models"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := make(map[string]int64)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	return totals
}

func TestFetcherMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	f := newTestFetcher(t, src, WithMeterProvider(provider))

	boom := errors.New("db down")

	src.EXPECT().GetEntity(gomock.Any(), "svc-1").Return(&models.Entity{ID: "svc-1"}, nil).Times(2)
	gomock.InOrder(
		src.EXPECT().QuerySamples(gomock.Any(), isSource("")).Return(nil, boom).Times(2),
		src.EXPECT().QuerySamples(gomock.Any(), isSource("")).Return([]models.RawRecord{
			record(fetchNow.Add(-time.Minute), "up", "", "1"),
			{ServiceID: "svc-1"},
		}, nil),
		src.EXPECT().QuerySamples(gomock.Any(), isSource("")).Return(nil, boom).Times(4),
	)

	req := Request{ServiceID: "svc-1", Scope: models.SourceScope{Kind: models.ScopeDefault}}

	res, err := f.FetchAll(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)

	req.Force = true
	stale, err := f.FetchAll(context.Background(), req)
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.True(t, stale.IsStale)

	totals := collect(t, reader)
	assert.Equal(t, int64(2), totals[metricRequestsTotal])
	assert.Equal(t, int64(5), totals[metricRetriesTotal])
	assert.Equal(t, int64(1), totals[metricDroppedRecordsTotal])
	assert.Equal(t, int64(1), totals[metricStaleServesTotal])
	assert.Equal(t, int64(1), totals[metricSourceFailuresTotal])
}
