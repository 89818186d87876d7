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

package models

import "time"

// Slot is one display position of a timeline: a minute bucket with at most
// one sample per source, default-source samples first.
type Slot struct {
	Timestamp time.Time `json:"timestamp"`
	Samples   []Sample  `json:"samples"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// Primary returns the first sample of the slot, which is the default source
// when one reported in this bucket.
func (s Slot) Primary() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}

	return s.Samples[0], true
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	out := s
	out.Samples = append([]Sample(nil), s.Samples...)

	return out
}

// Snapshot is what the display layer receives for one view.
type Snapshot struct {
	ServiceID        string    `json:"service_id"`
	Scope            string    `json:"scope"`
	Timeline         []Slot    `json:"timeline"`
	RollupPercentage float64   `json:"rollup_percentage"`
	IsLoading        bool      `json:"is_loading"`
	IsStale          bool      `json:"is_stale"`
	LastError        string    `json:"last_error,omitempty"`
	PartialFailures  []string  `json:"partial_failures,omitempty"`
	Entity           *Entity   `json:"entity,omitempty"`
	Live             bool      `json:"live"`
	Generation       uint64    `json:"generation"`
	UpdatedAt        time.Time `json:"updated_at"`
}
