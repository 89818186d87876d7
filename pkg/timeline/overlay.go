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
	"time"

	"github.com/carverauto/timeline/pkg/models"
)

// PausedSlot builds the synthetic slot shown while a service is paused.
func PausedSlot(serviceID string, now time.Time) models.Slot {
	key := BucketKey(now)

	return models.Slot{
		Timestamp: key,
		Synthetic: true,
		Samples: []models.Sample{{
			SourceID:        FallbackSourceLabel,
			ServiceID:       serviceID,
			Timestamp:       key,
			Status:          models.StatusPaused,
			IsDefaultSource: true,
			Synthetic:       true,
		}},
	}
}

// ApplyPause replaces slot[0] with a paused slot keyed to now. The remaining
// slots are returned untouched. The paused slot is also returned so callers
// can carry it into later runs.
func ApplyPause(slots []models.Slot, serviceID string, now time.Time) ([]models.Slot, models.Slot) {
	paused := PausedSlot(serviceID, now)

	out := make([]models.Slot, len(slots))
	copy(out, slots)

	if len(out) == 0 {
		return append(out, paused), paused
	}

	out[0] = paused

	return out, paused
}

// MergePreserved adds previously shown paused slots back into the bucket set
// of a resumed service. A preserved slot whose key now has real data is
// discarded and the real bucket wins. The preserved slots that were merged
// are returned.
func MergePreserved(buckets []Bucket, preserved []models.Slot) ([]Bucket, []models.Slot) {
	if len(preserved) == 0 {
		return buckets, nil
	}

	occupied := make(map[int64]struct{}, len(buckets))
	for _, b := range buckets {
		occupied[keyOf(b.Key)] = struct{}{}
	}

	out := append([]Bucket(nil), buckets...)

	var kept []models.Slot

	for _, p := range preserved {
		key := BucketKey(p.Timestamp)
		if _, collides := occupied[keyOf(key)]; collides {
			continue
		}

		occupied[keyOf(key)] = struct{}{}
		kept = append(kept, p)
		out = append(out, Bucket{Key: key, Samples: append([]models.Sample(nil), p.Samples...)})
	}

	return out, kept
}

// retainDisplayed keeps the preserved slots that are still part of the
// displayed timeline.
func retainDisplayed(displayed, preserved []models.Slot) []models.Slot {
	shown := make(map[int64]struct{}, len(displayed))
	for _, s := range displayed {
		shown[keyOf(s.Timestamp)] = struct{}{}
	}

	var out []models.Slot

	for _, s := range preserved {
		if _, ok := shown[keyOf(s.Timestamp)]; ok {
			out = append(out, s.Clone())
		}
	}

	return out
}

// accumulatePaused prepends the newest paused slot to the preserved set,
// dropping duplicate keys and keeping at most limit entries.
func accumulatePaused(preserved []models.Slot, latest models.Slot, limit int) []models.Slot {
	seen := map[int64]struct{}{keyOf(latest.Timestamp): {}}
	out := []models.Slot{latest.Clone()}

	for _, s := range preserved {
		if limit > 0 && len(out) >= limit {
			break
		}

		if _, ok := seen[keyOf(s.Timestamp)]; ok {
			continue
		}

		seen[keyOf(s.Timestamp)] = struct{}{}
		out = append(out, s.Clone())
	}

	return out
}

func keyOf(t time.Time) int64 {
	return t.UnixNano()
}
