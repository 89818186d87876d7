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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/timeline/pkg/models"
)

const testServiceID = "svc-1"

var testNow = time.Date(2025, 3, 1, 12, 30, 42, 0, time.UTC)

func sampleAt(ts time.Time, source string, isDefault bool, status models.Status, rt int64) models.Sample {
	return models.Sample{
		SourceID:        source,
		ServiceID:       testServiceID,
		Timestamp:       ts,
		Status:          status,
		ResponseTimeMs:  rt,
		IsDefaultSource: isDefault,
	}
}

// minutesAgo returns n default-source samples, one per minute, newest first.
func minutesAgo(n int, status models.Status) []models.Sample {
	out := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		ts := testNow.Add(-time.Duration(i) * time.Minute).Add(-5 * time.Second)
		out = append(out, sampleAt(ts, "Default (Agent 1)", true, status, int64(100+i)))
	}

	return out
}

func buildInput(samples []models.Sample, live models.Status) Input {
	return Input{
		ServiceID:     testServiceID,
		Samples:       samples,
		LiveStatus:    live,
		CheckInterval: time.Minute,
		Slots:         models.DefaultSlots,
		Now:           testNow,
	}
}

func assertMonotonicUnique(t *testing.T, slots []models.Slot) {
	t.Helper()

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].Timestamp.Before(slots[i-1].Timestamp),
			"slot %d (%s) is not older than slot %d (%s)", i, slots[i].Timestamp, i-1, slots[i-1].Timestamp)
	}
}

func assertNoDuplicateSources(t *testing.T, slots []models.Slot) {
	t.Helper()

	for i, slot := range slots {
		seen := map[string]bool{}
		for _, s := range slot.Samples {
			assert.False(t, seen[s.SourceID], "slot %d holds %q twice", i, s.SourceID)
			seen[s.SourceID] = true
		}
	}
}

func TestBuildFixedLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, models.DefaultSlots - 1, models.DefaultSlots, models.DefaultSlots + 15} {
		t.Run(fmt.Sprintf("%d_real_samples", n), func(t *testing.T) {
			t.Parallel()

			for _, live := range []models.Status{models.StatusUp, models.StatusPaused, ""} {
				out := Build(buildInput(minutesAgo(n, models.StatusUp), live))

				require.Len(t, out.Timeline, models.DefaultSlots, "live status %q", live)
				assertMonotonicUnique(t, out.Timeline)
				assertNoDuplicateSources(t, out.Timeline)
			}
		})
	}
}

func TestBuildSingleDefaultSample(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 12, 29, 0, 0, time.UTC)
	rec := models.RawRecord{
		ServiceID:      testServiceID,
		Timestamp:      ptr(ts.Add(17 * time.Second)),
		Status:         models.Some("up"),
		ResponseTimeMs: ptr(int64(120)),
		AgentID:        models.Some("1"),
	}

	norm := NormalizeAll([]models.RawRecord{rec})
	out := Build(buildInput(norm.Samples, models.StatusUp))

	require.Len(t, out.Timeline, 20)

	first, ok := out.Timeline[0].Primary()
	require.True(t, ok)
	assert.Equal(t, ts, out.Timeline[0].Timestamp)
	assert.Equal(t, models.StatusUp, first.Status)
	assert.Equal(t, int64(120), first.ResponseTimeMs)
	assert.Equal(t, "Default (Agent 1)", first.SourceID)
	assert.False(t, out.Timeline[0].Synthetic)

	for i := 1; i < 20; i++ {
		slot := out.Timeline[i]
		require.Len(t, slot.Samples, 1)
		assert.Equal(t, ts.Add(-time.Duration(i)*time.Minute), slot.Timestamp)
		assert.True(t, slot.Synthetic)
		assert.Equal(t, models.StatusUp, slot.Samples[0].Status)
		assert.Zero(t, slot.Samples[0].ResponseTimeMs)
	}

	assert.InDelta(t, 100.0, out.Rollup, 0.0001)
}

func TestBuildTwoSourcesSameMinute(t *testing.T) {
	t.Parallel()

	minute := time.Date(2025, 3, 1, 12, 20, 0, 0, time.UTC)

	samples := []models.Sample{
		sampleAt(minute.Add(40*time.Second), "eu-west (Agent 7)", false, models.StatusDown, 0),
		sampleAt(minute.Add(10*time.Second), "Default (Agent 1)", true, models.StatusUp, 50),
	}

	out := Build(buildInput(samples, models.StatusUp))

	slot := out.Timeline[0]
	assert.Equal(t, minute, slot.Timestamp)
	require.Len(t, slot.Samples, 2)
	assert.Equal(t, "Default (Agent 1)", slot.Samples[0].SourceID)
	assert.Equal(t, "eu-west (Agent 7)", slot.Samples[1].SourceID)
	assert.InDelta(t, 50.0, out.Rollup, 0.0001)
}

func TestBuildPauseReplacesOnlyNewestSlot(t *testing.T) {
	t.Parallel()

	samples := minutesAgo(models.DefaultSlots, models.StatusUp)

	active := Build(buildInput(samples, models.StatusUp))
	paused := Build(buildInput(samples, models.StatusPaused))

	require.Len(t, paused.Timeline, models.DefaultSlots)

	head, ok := paused.Timeline[0].Primary()
	require.True(t, ok)
	assert.Equal(t, models.StatusPaused, head.Status)
	assert.Zero(t, head.ResponseTimeMs)
	assert.Equal(t, BucketKey(testNow), paused.Timeline[0].Timestamp)

	activeTail, err := json.Marshal(active.Timeline[1:])
	require.NoError(t, err)
	pausedTail, err := json.Marshal(paused.Timeline[1:])
	require.NoError(t, err)
	assert.JSONEq(t, string(activeTail), string(pausedTail))
}

func TestBuildPauseLocalityWithFewRealSlots(t *testing.T) {
	t.Parallel()

	samples := minutesAgo(3, models.StatusDown)

	active := Build(buildInput(samples, models.StatusUp))
	paused := Build(buildInput(samples, models.StatusPaused))

	assert.Equal(t, active.Timeline[1:], paused.Timeline[1:])
	assert.NotEqual(t, active.Timeline[0], paused.Timeline[0])
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	samples := append(minutesAgo(7, models.StatusUp),
		sampleAt(testNow.Add(-3*time.Minute), "eu-west (Agent 7)", false, models.StatusWarning, 80))

	for _, live := range []models.Status{models.StatusUp, models.StatusPaused} {
		in := buildInput(samples, live)

		first, err := json.Marshal(Build(in))
		require.NoError(t, err)
		second, err := json.Marshal(Build(in))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	}
}

func TestBuildEmptyUsesLiveStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		live models.Status
		want models.Status
	}{
		{models.StatusUp, models.StatusUp},
		{models.StatusDown, models.StatusDown},
		{"", models.StatusPaused},
		{models.Status("maintenance"), models.StatusPaused},
	}

	for _, tc := range tests {
		out := Build(buildInput(nil, tc.live))

		require.Len(t, out.Timeline, models.DefaultSlots)

		for i, slot := range out.Timeline {
			assert.Equal(t, BucketKey(testNow).Add(-time.Duration(i)*time.Minute), slot.Timestamp)
			assert.Equal(t, tc.want, slot.Samples[0].Status)
		}

		assert.Zero(t, out.Rollup)
	}
}

func TestBuildPreservesPausedSlotAfterResume(t *testing.T) {
	t.Parallel()

	// nothing real in the current minute
	history := minutesAgo(5, models.StatusUp)[1:]

	pausedRun := Build(buildInput(history, models.StatusPaused))
	require.Len(t, pausedRun.Preserved, 1)

	// resumed before any new sample arrived
	in := buildInput(history, models.StatusUp)
	in.Now = testNow.Add(30 * time.Second)
	in.Preserved = pausedRun.Preserved

	resumed := Build(in)

	head, ok := resumed.Timeline[0].Primary()
	require.True(t, ok)
	assert.Equal(t, models.StatusPaused, head.Status)
	assert.Equal(t, BucketKey(testNow), resumed.Timeline[0].Timestamp)
	assert.Len(t, resumed.Preserved, 1)
	assertMonotonicUnique(t, resumed.Timeline)

	// real data for the paused bucket wins
	fresh := append([]models.Sample{sampleAt(testNow.Add(5*time.Second), "Default (Agent 1)", true, models.StatusUp, 90)}, history...)
	in.Samples = fresh
	in.Preserved = resumed.Preserved

	refreshed := Build(in)

	head, ok = refreshed.Timeline[0].Primary()
	require.True(t, ok)
	assert.Equal(t, models.StatusUp, head.Status)
	assert.False(t, head.Synthetic)
	assert.Empty(t, refreshed.Preserved)
}

func TestBuildAccumulatesPausedSlotsWhilePaused(t *testing.T) {
	t.Parallel()

	history := minutesAgo(10, models.StatusUp)[1:]

	var preserved []models.Slot

	for i := 0; i < 3; i++ {
		in := buildInput(history, models.StatusPaused)
		in.Now = testNow.Add(time.Duration(i) * time.Minute)
		in.Preserved = preserved

		preserved = Build(in).Preserved
	}

	require.Len(t, preserved, 3)

	in := buildInput(history, models.StatusUp)
	in.Now = testNow.Add(3 * time.Minute)
	in.Preserved = preserved

	out := Build(in)

	for i := 0; i < 3; i++ {
		head, ok := out.Timeline[i].Primary()
		require.True(t, ok)
		assert.Equal(t, models.StatusPaused, head.Status, "slot %d", i)
	}

	assertMonotonicUnique(t, out.Timeline)
	require.Len(t, out.Timeline, models.DefaultSlots)
}

func TestBuildIgnoresZeroSlotCount(t *testing.T) {
	t.Parallel()

	in := buildInput(minutesAgo(2, models.StatusUp), models.StatusUp)
	in.Slots = 0

	assert.Len(t, Build(in).Timeline, models.DefaultSlots)
}

func TestRollup(t *testing.T) {
	t.Parallel()

	slot := func(statuses ...models.Status) models.Slot {
		s := models.Slot{}
		for i, st := range statuses {
			s.Samples = append(s.Samples, models.Sample{SourceID: fmt.Sprint(i), Status: st})
		}

		return s
	}

	assert.Zero(t, Rollup(nil))
	assert.InDelta(t, 66.67, Rollup([]models.Slot{slot(models.StatusUp, models.StatusUp, models.StatusDown)}), 0.0001)
	assert.InDelta(t, 33.33, Rollup([]models.Slot{slot(models.StatusUp), slot(models.StatusWarning, models.StatusPaused)}), 0.0001)

	synthetic := slot(models.StatusDown)
	synthetic.Samples[0].Synthetic = true
	assert.InDelta(t, 100.0, Rollup([]models.Slot{slot(models.StatusUp), synthetic}), 0.0001)
}
