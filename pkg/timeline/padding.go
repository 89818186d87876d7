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

// PadOptions controls placeholder generation.
type PadOptions struct {
	ServiceID  string
	Slots      int
	Interval   time.Duration
	Now        time.Time
	LiveStatus models.Status
}

func (o PadOptions) interval() time.Duration {
	if o.Interval <= 0 {
		return models.DefaultCheckInterval
	}

	return o.Interval
}

// Pad extends slots to exactly opts.Slots entries. With no real slots the
// placeholders count back from now and carry the live status (paused when
// the live status is unknown). Otherwise only the deficit is filled, counting
// back from the oldest slot and repeating its status.
func Pad(slots []models.Slot, opts PadOptions) []models.Slot {
	if len(slots) >= opts.Slots {
		return slots
	}

	out := make([]models.Slot, len(slots), opts.Slots)
	copy(out, slots)

	step := opts.interval()

	if len(out) == 0 {
		status := opts.LiveStatus
		if !status.Valid() {
			status = models.StatusPaused
		}

		start := BucketKey(opts.Now)
		for i := 0; i < opts.Slots; i++ {
			out = append(out, placeholder(opts.ServiceID, FallbackSourceLabel, true,
				start.Add(-time.Duration(i)*step), status))
		}

		return out
	}

	oldest := out[len(out)-1]

	status := models.StatusPaused
	source := FallbackSourceLabel
	isDefault := true

	if last, ok := oldest.Primary(); ok {
		status = last.Status
		source = last.SourceID
		isDefault = last.IsDefaultSource
	}

	for i := 1; len(out) < opts.Slots; i++ {
		out = append(out, placeholder(opts.ServiceID, source, isDefault,
			oldest.Timestamp.Add(-time.Duration(i)*step), status))
	}

	return out
}

func placeholder(serviceID, source string, isDefault bool, ts time.Time, status models.Status) models.Slot {
	return models.Slot{
		Timestamp: ts,
		Synthetic: true,
		Samples: []models.Sample{{
			SourceID:        source,
			ServiceID:       serviceID,
			Timestamp:       ts,
			Status:          status,
			IsDefaultSource: isDefault,
			Synthetic:       true,
		}},
	}
}

// EnsureUnique drops every slot whose timestamp already appeared earlier in
// the list, keeping the first.
func EnsureUnique(slots []models.Slot) []models.Slot {
	seen := make(map[int64]struct{}, len(slots))
	out := make([]models.Slot, 0, len(slots))

	for _, s := range slots {
		key := keyOf(s.Timestamp)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, s)
	}

	return out
}
