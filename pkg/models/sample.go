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

// Package models holds the shared types of the timeline service.
package models

import (
	"strings"
	"time"
)

// Status is the health state reported by a check.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusWarning Status = "warning"
	StatusPaused  Status = "paused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusWarning, StatusPaused:
		return true
	default:
		return false
	}
}

// ParseStatus maps a raw status string onto a Status. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", false
	}

	return s, true
}

// Sample is one normalized health-check result. Samples are never mutated
// after normalization; callers copy them by value.
type Sample struct {
	SourceID        string    `json:"source"`
	ServiceID       string    `json:"service_id"`
	Timestamp       time.Time `json:"timestamp"`
	Status          Status    `json:"status"`
	ResponseTimeMs  int64     `json:"response_time"`
	IsDefaultSource bool      `json:"is_default_source"`
	Synthetic       bool      `json:"synthetic,omitempty"`
}

// Source describes an origin of samples for a service: the default checker
// or a regional agent.
type Source struct {
	RegionName string    `json:"region_name,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
}

// IsDefault reports whether the source is the default checker.
func (s Source) IsDefault() bool {
	return s.RegionName == ""
}

// Name returns a stable short identifier used in cache keys and logs.
func (s Source) Name() string {
	if s.IsDefault() {
		return "default"
	}

	return "region:" + s.RegionName + ":" + s.AgentID
}
