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

// Package natsutil carries timeline push events over NATS.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/timeline/pkg/models"
)

const (
	cloudEventsVersion = "1.0"
	eventSource        = "timeline/api"
	samplesToken       = "samples"
	entityToken        = "entity"
)

var (
	errNilConn          = errors.New("nats connection is nil")
	errServiceIDMissing = errors.New("service id is required")
	errUnknownEventKind = errors.New("unknown event kind")
)

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Subject returns the subject carrying events of kind for a service.
func Subject(prefix string, kind models.EventKind, serviceID string) (string, error) {
	if prefix == "" {
		prefix = models.DefaultSubjectPrefix
	}

	switch kind {
	case models.EventKindSample:
		return prefix + "." + samplesToken + "." + serviceID, nil
	case models.EventKindEntity:
		return prefix + "." + entityToken + "." + serviceID, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownEventKind, kind)
	}
}

// EventPublisher publishes CloudEvents describing sample inserts and entity
// changes.
type EventPublisher struct {
	conn   Publisher
	prefix string
	nowFn  func() time.Time
}

// NewEventPublisher creates a publisher writing under prefix.
func NewEventPublisher(conn Publisher, prefix string) (*EventPublisher, error) {
	if conn == nil {
		return nil, errNilConn
	}

	if prefix == "" {
		prefix = models.DefaultSubjectPrefix
	}

	return &EventPublisher{conn: conn, prefix: prefix, nowFn: time.Now}, nil
}

// PublishSampleInserted announces a newly stored sample.
func (p *EventPublisher) PublishSampleInserted(ctx context.Context, rec *models.RawRecord) error {
	if rec == nil || rec.ServiceID == "" {
		return errServiceIDMissing
	}

	return p.publish(ctx, models.EventKindSample, rec.ServiceID, models.EventTypeSampleInserted,
		models.SampleInsertedData{ServiceID: rec.ServiceID, Record: *rec})
}

// PublishEntityChanged announces a partial update of a monitored service.
func (p *EventPublisher) PublishEntityChanged(ctx context.Context, serviceID string, patch *models.EntityPatch) error {
	if serviceID == "" {
		return errServiceIDMissing
	}

	data := models.EntityChangedData{ServiceID: serviceID}
	if patch != nil {
		data.Patch = *patch
	}

	return p.publish(ctx, models.EventKindEntity, serviceID, models.EventTypeEntityChanged, data)
}

func (p *EventPublisher) publish(ctx context.Context, kind models.EventKind, serviceID, eventType string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, err := Subject(p.prefix, kind, serviceID)
	if err != nil {
		return err
	}

	now := p.nowFn().UTC()

	event := models.CloudEvent{
		SpecVersion:     cloudEventsVersion,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &now,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}

	return nil
}

// DecodeEvent turns a CloudEvent payload into a PushEvent.
func DecodeEvent(payload []byte, receivedAt time.Time) (models.PushEvent, error) {
	var in models.InboundCloudEvent
	if err := json.Unmarshal(payload, &in); err != nil {
		return models.PushEvent{}, fmt.Errorf("decode cloud event: %w", err)
	}

	out := models.PushEvent{ID: in.ID, ReceivedAt: receivedAt}

	switch in.Type {
	case models.EventTypeEntityChanged:
		var data models.EntityChangedData
		if err := json.Unmarshal(in.Data, &data); err != nil {
			return models.PushEvent{}, fmt.Errorf("decode entity change: %w", err)
		}

		out.Kind = models.EventKindEntity
		out.ServiceID = data.ServiceID
		out.Patch = &data.Patch
	case models.EventTypeSampleInserted:
		var data models.SampleInsertedData
		if err := json.Unmarshal(in.Data, &data); err != nil {
			return models.PushEvent{}, fmt.Errorf("decode sample insert: %w", err)
		}

		if data.Record.ServiceID == "" {
			data.Record.ServiceID = data.ServiceID
		}

		out.Kind = models.EventKindSample
		out.ServiceID = data.ServiceID
		out.Record = &data.Record
	default:
		return models.PushEvent{}, fmt.Errorf("%w: %q", errUnknownEventKind, in.Type)
	}

	return out, nil
}
