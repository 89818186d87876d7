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

package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/timeline/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestResolveSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		region      models.Optional[string]
		agent       models.Optional[string]
		wantLabel   string
		wantDefault bool
	}{
		{"regional agent", models.Some("eu-west"), models.Some("7"), "eu-west (Agent 7)", false},
		{"default with agent", models.None[string](), models.Some("1"), "Default (Agent 1)", true},
		{"empty region string", models.Some(""), models.Some("3"), "Default (Agent 3)", true},
		{"undefined sentinel region", models.Some("undefined"), models.Some("3"), "Default (Agent 3)", true},
		{"both empty", models.None[string](), models.None[string](), FallbackSourceLabel, true},
		{"both blank strings", models.Some("  "), models.Some(""), FallbackSourceLabel, true},
		{"region without agent", models.Some("ap-south"), models.None[string](), FallbackSourceLabel, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			label, isDefault := ResolveSource(tc.region, tc.agent)
			assert.Equal(t, tc.wantLabel, label)
			assert.Equal(t, tc.wantDefault, isDefault)
		})
	}
}

func TestResolveSourceFromDecodedJSON(t *testing.T) {
	t.Parallel()

	payloads := []string{
		`{"service_id":"svc","agent_id":1}`,
		`{"service_id":"svc","agent_id":"1","region_name":null}`,
		`{"service_id":"svc","agent_id":"1","region_name":{"_type":"undefined"}}`,
		`{"service_id":"svc","agent_id":"1","region_name":"undefined"}`,
	}

	for _, payload := range payloads {
		var rec models.RawRecord
		require.NoError(t, json.Unmarshal([]byte(payload), &rec), payload)

		label, isDefault := ResolveSource(rec.RegionName, rec.AgentID)
		assert.Equal(t, "Default (Agent 1)", label, payload)
		assert.True(t, isDefault, payload)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 10, 4, 31, 500, time.UTC)

	sample, err := Normalize(&models.RawRecord{
		ServiceID:      "svc-1",
		Timestamp:      &ts,
		Status:         models.Some(" UP "),
		ResponseTimeMs: ptr(int64(120)),
		AgentID:        models.Some("1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.Sample{
		SourceID:        "Default (Agent 1)",
		ServiceID:       "svc-1",
		Timestamp:       ts,
		Status:          models.StatusUp,
		ResponseTimeMs:  120,
		IsDefaultSource: true,
	}, sample)
}

func TestNormalizeRejectsMalformedRecords(t *testing.T) {
	t.Parallel()

	ts := time.Now()

	tests := []struct {
		name string
		rec  *models.RawRecord
	}{
		{"nil record", nil},
		{"missing timestamp", &models.RawRecord{Status: models.Some("up")}},
		{"zero timestamp", &models.RawRecord{Timestamp: &time.Time{}, Status: models.Some("up")}},
		{"missing status", &models.RawRecord{Timestamp: &ts}},
		{"empty status", &models.RawRecord{Timestamp: &ts, Status: models.Some("")}},
		{"unknown status", &models.RawRecord{Timestamp: &ts, Status: models.Some("pending")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Normalize(tc.rec)
			require.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestNormalizeClampsNegativeResponseTime(t *testing.T) {
	t.Parallel()

	ts := time.Now()

	sample, err := Normalize(&models.RawRecord{Timestamp: &ts, Status: models.Some("down"), ResponseTimeMs: ptr(int64(-5))})
	require.NoError(t, err)
	assert.Zero(t, sample.ResponseTimeMs)
}

func TestNormalizeAllCountsDropped(t *testing.T) {
	t.Parallel()

	ts := time.Now()

	result := NormalizeAll([]models.RawRecord{
		{ServiceID: "svc", Timestamp: &ts, Status: models.Some("up")},
		{ServiceID: "svc", Status: models.Some("up")},
		{ServiceID: "svc", Timestamp: &ts},
		{ServiceID: "svc", Timestamp: &ts, Status: models.Some("warning")},
	})

	assert.Len(t, result.Samples, 2)
	assert.Equal(t, 2, result.Dropped)
	assert.Equal(t, models.StatusWarning, result.Samples[1].Status)
}
