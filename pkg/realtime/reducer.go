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
	"time"

	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/timeline"
)

// Outcome tells what Apply did with an event.
type Outcome int

const (
	// Applied means the state changed and the pipeline should rerun.
	Applied Outcome = iota
	// Filtered events belong to another service or another scope.
	Filtered
	// Throttled events arrived inside the cooldown window of their kind.
	Throttled
	// Rejected events were malformed or fell outside the displayed window.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Filtered:
		return "filtered"
	case Throttled:
		return "throttled"
	default:
		return "rejected"
	}
}

// State is the working set a view renders from.
type State struct {
	ServiceID string
	Scope     models.SourceScope
	Entity    models.Entity
	// Samples are kept newest first.
	Samples []models.Sample
}

// Filter reports whether ev targets the displayed service.
func Filter(ev *models.PushEvent, serviceID string) bool {
	return ev != nil && serviceID != "" && ev.ServiceID == serviceID
}

// Reducer applies push events to a State.
type Reducer struct {
	Throttle   *Throttle
	MaxSamples int
	Window     time.Duration
}

// NewReducer builds a reducer from the timeline configuration.
func NewReducer(cfg models.TimelineConfig) *Reducer {
	r := &Reducer{
		Throttle:   NewThrottle(time.Duration(cfg.ThrottleWindow)),
		MaxSamples: cfg.MaxSamples,
		Window:     time.Duration(cfg.Window),
	}

	if r.MaxSamples <= 0 {
		r.MaxSamples = models.DefaultMaxSamples
	}

	if r.Window <= 0 {
		r.Window = models.DefaultWindow
	}

	return r
}

// Apply folds ev into state. The returned state shares nothing mutable with
// the input.
func (r *Reducer) Apply(state State, ev models.PushEvent, now time.Time) (State, Outcome) {
	if !Filter(&ev, state.ServiceID) {
		return state, Filtered
	}

	switch ev.Kind {
	case models.EventKindSample:
		return r.applySample(state, ev, now)
	case models.EventKindEntity:
		if ev.Patch.Empty() {
			return state, Rejected
		}

		if !r.Throttle.Allow(models.EventKindEntity) {
			return state, Throttled
		}

		state.Entity = ev.Patch.Apply(state.Entity)

		return state, Applied
	default:
		return state, Rejected
	}
}

func (r *Reducer) applySample(state State, ev models.PushEvent, now time.Time) (State, Outcome) {
	if ev.Record == nil {
		return state, Rejected
	}

	sample, err := timeline.Normalize(ev.Record)
	if err != nil {
		return state, Rejected
	}

	if sample.Timestamp.Before(now.Add(-r.Window)) {
		return state, Rejected
	}

	src := models.Source{
		RegionName: models.ResolveString(ev.Record.RegionName),
		AgentID:    models.ResolveString(ev.Record.AgentID),
	}
	if sample.IsDefaultSource {
		src.RegionName = ""
	}

	if !state.Scope.Includes(src) {
		return state, Filtered
	}

	if !r.Throttle.Allow(models.EventKindSample) {
		return state, Throttled
	}

	state.Samples = Prepend(state.Samples, sample, r.MaxSamples)

	return state, Applied
}

// Prepend returns a new slice with s in front of samples, capped at limit.
func Prepend(samples []models.Sample, s models.Sample, limit int) []models.Sample {
	n := len(samples) + 1
	if limit > 0 && n > limit {
		n = limit
	}

	out := make([]models.Sample, 0, n)
	out = append(out, s)

	for _, existing := range samples {
		if len(out) == n {
			break
		}

		out = append(out, existing)
	}

	return out
}
