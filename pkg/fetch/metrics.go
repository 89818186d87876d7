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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	fetchMeterName            = "timeline.fetch"
	metricRequestsTotal       = "timeline_fetch_requests_total"
	metricSourceFailuresTotal = "timeline_fetch_source_failures_total"
	metricLoadDuration        = "timeline_fetch_load_duration_seconds"
	metricRetriesTotal        = "timeline_fetch_retries_total"
	metricStaleServesTotal    = "timeline_fetch_stale_serves_total"
	metricDroppedRecordsTotal = "timeline_fetch_dropped_records_total"
)

// fetchMetrics holds the fetcher's instruments. A nil instrument is skipped.
type fetchMetrics struct {
	requests    metric.Int64Counter
	failures    metric.Int64Counter
	retries     metric.Int64Counter
	staleServes metric.Int64Counter
	dropped     metric.Int64Counter
	loadLatency metric.Float64Histogram
}

func newFetchMetrics(mp metric.MeterProvider) *fetchMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(fetchMeterName)
	m := &fetchMetrics{}

	m.requests = int64Counter(meter, metricRequestsTotal, "Timeline fetch requests by cache outcome")
	m.failures = int64Counter(meter, metricSourceFailuresTotal, "Sources that contributed nothing to a scatter-gather")
	m.retries = int64Counter(meter, metricRetriesTotal, "Source queries retried after a transient failure")
	m.staleServes = int64Counter(meter, metricStaleServesTotal, "Timelines served from an expired cache entry")
	m.dropped = int64Counter(meter, metricDroppedRecordsTotal, "Malformed sample records dropped during normalization")

	if hist, err := meter.Float64Histogram(
		metricLoadDuration,
		metric.WithDescription("Latency of uncached timeline loads"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	} else {
		m.loadLatency = hist
	}

	return m
}

func int64Counter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)

		return nil
	}

	return counter
}

func (m *fetchMetrics) recordRequest(ctx context.Context, outcome string) {
	if m == nil || m.requests == nil {
		return
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *fetchMetrics) recordSourceFailure(ctx context.Context, source string) {
	if m == nil || m.failures == nil {
		return
	}

	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *fetchMetrics) recordRetry(ctx context.Context, _ string) {
	if m == nil || m.retries == nil {
		return
	}

	m.retries.Add(ctx, 1)
}

func (m *fetchMetrics) recordStaleServe(ctx context.Context, scope string) {
	if m == nil || m.staleServes == nil {
		return
	}

	m.staleServes.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func (m *fetchMetrics) recordDropped(ctx context.Context, source string, n int) {
	if m == nil || m.dropped == nil || n <= 0 {
		return
	}

	m.dropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (m *fetchMetrics) recordLoad(ctx context.Context, duration time.Duration, status string) {
	if m == nil || m.loadLatency == nil {
		return
	}

	if duration < 0 {
		duration = 0
	}

	m.loadLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
