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

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	srHttp "github.com/carverauto/timeline/pkg/http"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/view"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Stream message types.
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
	MessagePing     = "ping"

	ClientScope   = "scope"
	ClientRefetch = "refetch"
)

// StreamMessage is sent to stream clients.
type StreamMessage struct {
	Type      string            `json:"type"`
	Data      *TimelineResponse `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ClientMessage is a command from a stream client.
type ClientMessage struct {
	Type  string `json:"type"`
	Scope string `json:"scope,omitempty"`
}

func (s *Server) streamTimeline(w http.ResponseWriter, r *http.Request) {
	p, err := parseViewParams(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkWebSocketOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := s.views.Open(ctx, p.serviceID, p.serviceType, p.scope)
	if err != nil {
		_ = sendMessage(conn, StreamMessage{Type: MessageError, Error: err.Error()})
		return
	}

	defer func() { _ = v.Close() }()

	s.logger.Info().
		Str("service_id", p.serviceID).
		Str("scope", p.scope.String()).
		Str("remote_addr", r.RemoteAddr).
		Msg("Timeline stream opened")

	failures := make(chan error, 1)

	go s.handleClientMessages(ctx, conn, v, failures, cancel)

	if err := s.streamSnapshots(ctx, conn, v, failures); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Timeline stream ended")
	}
}

// streamSnapshots is the only writer on conn.
func (*Server) streamSnapshots(ctx context.Context, conn *websocket.Conn, v *view.View, failures <-chan error) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	snap := v.Snapshot()
	if err := sendSnapshot(conn, &snap); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-v.Updates():
			if err := sendSnapshot(conn, &snap); err != nil {
				return err
			}
		case err := <-failures:
			if err := sendMessage(conn, StreamMessage{Type: MessageError, Error: err.Error()}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := sendMessage(conn, StreamMessage{Type: MessagePing}); err != nil {
				return err
			}
		}
	}
}

// handleClientMessages applies client commands until the connection drops.
func (s *Server) handleClientMessages(
	ctx context.Context, conn *websocket.Conn, v *view.View, failures chan<- error, cancel context.CancelFunc,
) {
	defer cancel()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Unexpected stream close")
			}

			return
		}

		var err error

		switch msg.Type {
		case ClientScope:
			var scope models.SourceScope

			if scope, err = models.ParseSourceScope(msg.Scope); err == nil {
				err = v.SetScope(ctx, scope)
			}
		case ClientRefetch:
			err = v.Refetch(ctx)
		default:
			err = errUnknownMessage
		}

		if err != nil {
			select {
			case failures <- err:
			default:
			}
		}
	}
}

// checkWebSocketOrigin validates the origin against the CORS configuration.
func (s *Server) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if srHttp.OriginAllowed(origin, s.corsConfig) {
		return true
	}

	s.logger.Warn().
		Str("origin", origin).
		Interface("allowed_origins", s.corsConfig.AllowedOrigins).
		Msg("WebSocket CORS: Origin not allowed")

	return false
}

func sendSnapshot(conn *websocket.Conn, snap *models.Snapshot) error {
	data := newTimelineResponse(snap)

	return sendMessage(conn, StreamMessage{Type: MessageSnapshot, Data: &data})
}

func sendMessage(conn *websocket.Conn, msg StreamMessage) error {
	msg.Timestamp = time.Now()

	if err := conn.SetWriteDeadline(msg.Timestamp.Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(msg)
}
