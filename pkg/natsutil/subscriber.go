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

package natsutil

//go:generate mockgen -destination=mock_natsutil.go -package=natsutil github.com/carverauto/timeline/pkg/natsutil Subscriber,Subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
)

const defaultBuffer = 64

// Subscriber opens push subscriptions for one service and event kind.
type Subscriber interface {
	Subscribe(ctx context.Context, kind models.EventKind, serviceID string) (Subscription, error)
}

// Subscription delivers decoded events until it is unsubscribed.
type Subscription interface {
	Events() <-chan models.PushEvent
	// Unsubscribe is safe to call more than once.
	Unsubscribe() error
}

// NATSSubscriber subscribes on a core NATS connection.
type NATSSubscriber struct {
	nc     *nats.Conn
	prefix string
	buffer int
	logger logger.Logger
	nowFn  func() time.Time
}

// NewSubscriber creates a subscriber reading under prefix.
func NewSubscriber(nc *nats.Conn, prefix string, log logger.Logger) (*NATSSubscriber, error) {
	if nc == nil {
		return nil, errNilConn
	}

	if prefix == "" {
		prefix = models.DefaultSubjectPrefix
	}

	return &NATSSubscriber{nc: nc, prefix: prefix, buffer: defaultBuffer, logger: log, nowFn: time.Now}, nil
}

// Subscribe implements Subscriber. Events that cannot be decoded, that belong
// to another service, or that arrive while the buffer is full are dropped.
func (s *NATSSubscriber) Subscribe(ctx context.Context, kind models.EventKind, serviceID string) (Subscription, error) {
	if serviceID == "" {
		return nil, errServiceIDMissing
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject, err := Subject(s.prefix, kind, serviceID)
	if err != nil {
		return nil, err
	}

	sub := &natsSubscription{
		events: make(chan models.PushEvent, s.buffer),
		done:   make(chan struct{}),
	}

	handler := func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data, s.nowFn())
		if err != nil {
			s.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping undecodable event")
			return
		}

		if ev.Kind != kind || ev.ServiceID != serviceID {
			return
		}

		select {
		case <-sub.done:
		case sub.events <- ev:
		default:
			s.logger.Warn().Str("subject", msg.Subject).Str("event_id", ev.ID).Msg("Event buffer full, dropping event")
		}
	}

	ns, err := s.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	if err := s.nc.Flush(); err != nil {
		_ = ns.Unsubscribe()

		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	sub.sub = ns

	return sub, nil
}

type natsSubscription struct {
	sub    *nats.Subscription
	events chan models.PushEvent
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *natsSubscription) Events() <-chan models.PushEvent {
	return s.events
}

func (s *natsSubscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.done)

		if s.sub != nil {
			s.err = s.sub.Unsubscribe()
		}
	})

	return s.err
}
