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
	"sort"

	"github.com/carverauto/timeline/pkg/models"
)

// Consolidate turns buckets into display slots: newest first, default-source
// samples ahead of regional ones, at most k slots.
func Consolidate(buckets []Bucket, k int) []models.Slot {
	slots := make([]models.Slot, 0, len(buckets))

	for _, b := range buckets {
		samples := append([]models.Sample(nil), b.Samples...)

		sort.SliceStable(samples, func(i, j int) bool {
			return samples[i].IsDefaultSource && !samples[j].IsDefaultSource
		})

		slots = append(slots, models.Slot{
			Timestamp: b.Key,
			Samples:   samples,
			Synthetic: allSynthetic(samples),
		})
	}

	sortNewestFirst(slots)

	if k >= 0 && len(slots) > k {
		slots = slots[:k]
	}

	return slots
}

func sortNewestFirst(slots []models.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Timestamp.After(slots[j].Timestamp)
	})
}

func allSynthetic(samples []models.Sample) bool {
	if len(samples) == 0 {
		return false
	}

	for _, s := range samples {
		if !s.Synthetic {
			return false
		}
	}

	return true
}
