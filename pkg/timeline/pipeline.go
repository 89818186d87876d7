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

// Package timeline turns health-check samples from several sources into a
// fixed-length, newest-first display timeline. Everything in this package is
// synchronous and free of side effects.
package timeline

import (
	"math"
	"time"

	"github.com/carverauto/timeline/pkg/models"
)

// Input is everything one pipeline run depends on.
type Input struct {
	ServiceID     string
	Samples       []models.Sample
	LiveStatus    models.Status
	CheckInterval time.Duration
	Slots         int
	Now           time.Time
	// Preserved holds paused slots produced by earlier runs.
	Preserved []models.Slot
}

// Output is the result of one pipeline run.
type Output struct {
	Timeline []models.Slot
	Rollup   float64
	// Preserved is the paused-slot memory to pass into the next run.
	Preserved []models.Slot
}

// Build runs dedup, consolidation, padding and the pause overlay.
func Build(in Input) Output {
	k := in.Slots
	if k <= 0 {
		k = models.DefaultSlots
	}

	paused := in.LiveStatus == models.StatusPaused
	buckets := Deduplicate(in.Samples)

	var merged []models.Slot
	if !paused {
		buckets, merged = MergePreserved(buckets, in.Preserved)
	}

	padOpts := PadOptions{
		ServiceID:  in.ServiceID,
		Slots:      k,
		Interval:   in.CheckInterval,
		Now:        in.Now,
		LiveStatus: in.LiveStatus,
	}

	slots := Pad(Consolidate(buckets, k), padOpts)

	var preserved []models.Slot

	if paused {
		var latest models.Slot

		slots, latest = ApplyPause(slots, in.ServiceID, in.Now)
		sortNewestFirst(slots)
		preserved = accumulatePaused(in.Preserved, latest, k)
	}

	slots = EnsureUnique(slots)
	if len(slots) < k {
		slots = Pad(slots, padOpts)
	}

	if !paused {
		preserved = retainDisplayed(slots, merged)
	}

	return Output{
		Timeline:  slots,
		Rollup:    Rollup(slots),
		Preserved: preserved,
	}
}

// Rollup returns the share of up samples among the real samples of the
// timeline, as a percentage rounded to two decimals. Synthetic samples are
// ignored; an empty window yields 0.
func Rollup(slots []models.Slot) float64 {
	var up, total int

	for _, slot := range slots {
		for _, s := range slot.Samples {
			if s.Synthetic {
				continue
			}

			total++

			if s.Status == models.StatusUp {
				up++
			}
		}
	}

	if total == 0 {
		return 0
	}

	return math.Round(float64(up)/float64(total)*100*100) / 100
}
