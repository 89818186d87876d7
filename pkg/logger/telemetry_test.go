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

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeMetricsDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *OTelConfig
	}{
		{name: "nil config"},
		{name: "disabled", cfg: &OTelConfig{Endpoint: "collector:4317"}},
		{name: "no endpoint", cfg: &OTelConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, err := InitializeMetrics(context.Background(), MetricsConfig{OTel: tt.cfg})
			require.ErrorIs(t, err, ErrOTelMetricsDisabled)
			assert.Nil(t, mp)
		})
	}
}

func TestShutdownMetricsWithoutProvider(t *testing.T) {
	require.NoError(t, ShutdownMetrics(context.Background()))
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	tp, ctx, span, err := InitializeTracing(context.Background(), TracingConfig{
		ServiceName: "timeline-test",
		Debug:       true,
		Logger:      NewTestLogger(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	require.NotNil(t, ctx)
	assert.True(t, span.SpanContext().IsValid())

	span.End()
}
