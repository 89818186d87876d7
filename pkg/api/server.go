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

// Package api serves service timelines over HTTP and websocket streams and
// accepts sample ingest and status changes.
package api

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/timeline/pkg/api Publisher,CacheInvalidator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/timeline/pkg/db"
	srHttp "github.com/carverauto/timeline/pkg/http"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/view"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxBodyBytes        = 1 << 20
)

// Publisher announces stored changes to push subscribers.
// natsutil.EventPublisher satisfies it.
type Publisher interface {
	PublishSampleInserted(ctx context.Context, rec *models.RawRecord) error
	PublishEntityChanged(ctx context.Context, serviceID string, patch *models.EntityPatch) error
}

// CacheInvalidator drops cached fetch results of a service.
// fetch.Cache satisfies it.
type CacheInvalidator interface {
	InvalidateService(serviceID string) int
}

// Views hands out timeline views. view.Manager satisfies it.
type Views interface {
	Get(ctx context.Context, serviceID, serviceType string, scope models.SourceScope) (*view.View, error)
	Open(ctx context.Context, serviceID, serviceType string, scope models.SourceScope) (*view.View, error)
	InvalidateService(serviceID string)
}

// Server is the timeline HTTP API.
type Server struct {
	router     *mux.Router
	store      db.Service
	views      Views
	publisher  Publisher
	cache      CacheInvalidator
	logger     logger.Logger
	corsConfig models.CORSConfig
	apiKey     string
	window     time.Duration
	nowFn      func() time.Time
	srv        *http.Server
}

// NewServer creates a server. store and views are required; the other
// collaborators are set through options.
func NewServer(store db.Service, views Views, log logger.Logger, options ...func(*Server)) *Server {
	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		views:  views,
		logger: log,
		window: models.DefaultWindow,
		nowFn:  time.Now,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithPublisher publishes ingested samples and status changes.
func WithPublisher(p Publisher) func(*Server) {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithCacheInvalidator invalidates cached history on writes.
func WithCacheInvalidator(c CacheInvalidator) func(*Server) {
	return func(s *Server) {
		s.cache = c
	}
}

// WithCORS sets the allowed origins for requests and streams.
func WithCORS(cfg models.CORSConfig) func(*Server) {
	return func(s *Server) {
		s.corsConfig = cfg
	}
}

// WithAPIKey protects the write endpoints.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithWindow sets how far back an ingested sample is still announced live.
func WithWindow(d time.Duration) func(*Server) {
	return func(s *Server) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) func(*Server) {
	return func(s *Server) {
		s.nowFn = now
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	read := s.router.PathPrefix("/api/services/{id}").Subrouter()
	read.HandleFunc("/timeline", s.getTimeline).Methods(http.MethodGet)
	read.HandleFunc("/stream", s.streamTimeline).Methods(http.MethodGet)

	write := s.router.PathPrefix("/api/services/{id}").Subrouter()
	write.Use(srHttp.APIKeyMiddleware(s.apiKey, s.logger))
	write.HandleFunc("/refetch", s.refetch).Methods(http.MethodPost)
	write.HandleFunc("/samples", s.ingestSample).Methods(http.MethodPost)
	write.HandleFunc("/status", s.updateStatus).Methods(http.MethodPatch)
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("Starting timeline API")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (*Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.ErrorResponse{Message: message, Status: statusCode})
}
