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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/timeline/pkg/models"
)

const (
	realtimeMeterName      = "timeline.realtime"
	metricThrottledEvents  = "timeline_realtime_throttled_events_total"
	attributeEventKindName = "kind"
)

func newThrottledCounter(mp metric.MeterProvider) metric.Int64Counter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	counter, err := mp.Meter(realtimeMeterName).Int64Counter(
		metricThrottledEvents,
		metric.WithDescription("Refreshes refused inside the cooldown window, by event kind"),
	)
	if err != nil {
		otel.Handle(err)

		return nil
	}

	return counter
}

func recordThrottled(counter metric.Int64Counter, kind models.EventKind) {
	if counter == nil {
		return
	}

	counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String(attributeEventKindName, string(kind))))
}
