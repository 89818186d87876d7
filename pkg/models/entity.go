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

// Entity is the monitored service as configured by an operator, together
// with its most recent live fields.
type Entity struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Status         Status     `json:"status"`
	CheckInterval  Duration   `json:"check_interval"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
	ResponseTimeMs *int64     `json:"response_time_ms,omitempty"`
}

// LiveStatus returns the entity's current status, or "" when it is not one
// of the known statuses.
func (e *Entity) LiveStatus() Status {
	if e == nil || !e.Status.Valid() {
		return ""
	}

	return e.Status
}

// IsPaused reports whether an operator has paused monitoring.
func (e *Entity) IsPaused() bool {
	return e.LiveStatus() == StatusPaused
}

// EntityPatch is a partial update delivered by a push event. Nil fields were
// not part of the push and must be left untouched.
type EntityPatch struct {
	Status         *Status    `json:"status,omitempty"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
	ResponseTimeMs *int64     `json:"response_time_ms,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p *EntityPatch) Empty() bool {
	return p == nil || (p.Status == nil && p.LastCheckedAt == nil && p.ResponseTimeMs == nil)
}

// Apply returns a copy of e with the fields present on p merged in.
func (p *EntityPatch) Apply(e Entity) Entity {
	if p == nil {
		return e
	}

	if p.Status != nil {
		e.Status = *p.Status
	}

	if p.LastCheckedAt != nil {
		t := *p.LastCheckedAt
		e.LastCheckedAt = &t
	}

	if p.ResponseTimeMs != nil {
		rt := *p.ResponseTimeMs
		e.ResponseTimeMs = &rt
	}

	return e
}
