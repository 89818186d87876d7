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

// RawRecord is a health-check row as retrieved from storage or received in a
// push event. Every field except ServiceID may be missing.
type RawRecord struct {
	ServiceID      string           `json:"service_id"`
	Timestamp      *time.Time       `json:"timestamp,omitempty"`
	Status         Optional[string] `json:"status"`
	ResponseTimeMs *int64           `json:"response_time_ms,omitempty"`
	RegionName     Optional[string] `json:"region_name"`
	AgentID        Optional[string] `json:"agent_id"`
}
