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

import (
	"encoding/json"
	"time"
)

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL           string     `json:"url"`
	SubjectPrefix string     `json:"subject_prefix,omitempty"`
	Name          string     `json:"name,omitempty"`
	Timeout       Duration   `json:"timeout,omitempty"`
	TLS           *TLSConfig `json:"tls,omitempty"`
}

// TLSConfig holds client certificate paths for mTLS connections. Relative
// paths are resolved against CertDir when the config is loaded.
type TLSConfig struct {
	CertDir    string `json:"cert_dir,omitempty"`
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	CAFile     string `json:"ca_file"`
	ServerName string `json:"server_name,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}

	return nil
}

const (
	// DefaultSubjectPrefix is the root of every subject the service uses.
	DefaultSubjectPrefix = "timeline"

	EventTypeEntityChanged  = "com.carverauto.timeline.entity.changed"
	EventTypeSampleInserted = "com.carverauto.timeline.sample.inserted"
)

// EventKind separates the two push streams a view consumes.
type EventKind string

const (
	EventKindEntity EventKind = "entity"
	EventKindSample EventKind = "sample"
)

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// InboundCloudEvent is the decoding side of CloudEvent; Data is decoded
// later according to Type.
type InboundCloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        string          `json:"type"`
	Subject     string          `json:"subject,omitempty"`
	Time        *time.Time      `json:"time,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// EntityChangedData is the payload of an entity-level push.
type EntityChangedData struct {
	ServiceID string      `json:"service_id"`
	Patch     EntityPatch `json:"patch"`
}

// SampleInsertedData is the payload of a new-sample push.
type SampleInsertedData struct {
	ServiceID string    `json:"service_id"`
	Record    RawRecord `json:"record"`
}

// PushEvent is a decoded push delivered to a view's consumer loop.
type PushEvent struct {
	ID         string       `json:"id"`
	Kind       EventKind    `json:"kind"`
	ServiceID  string       `json:"service_id"`
	Patch      *EntityPatch `json:"patch,omitempty"`
	Record     *RawRecord   `json:"record,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
}
