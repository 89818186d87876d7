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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/timeline"
)

// TimelineResponse is the body of the timeline endpoints.
type TimelineResponse struct {
	ServiceID        string         `json:"service_id"`
	Scope            string         `json:"scope"`
	Timeline         []models.Slot  `json:"timeline"`
	RollupPercentage float64        `json:"rollup_percentage"`
	IsLoading        bool           `json:"is_loading"`
	IsStale          bool           `json:"is_stale"`
	LastError        string         `json:"last_error,omitempty"`
	PartialFailures  []string       `json:"partial_failures,omitempty"`
	Entity           *models.Entity `json:"entity,omitempty"`
	Live             bool           `json:"live"`
	Generation       uint64         `json:"generation"`
}

func newTimelineResponse(s *models.Snapshot) TimelineResponse {
	return TimelineResponse{
		ServiceID:        s.ServiceID,
		Scope:            s.Scope,
		Timeline:         s.Timeline,
		RollupPercentage: s.RollupPercentage,
		IsLoading:        s.IsLoading,
		IsStale:          s.IsStale,
		LastError:        s.LastError,
		PartialFailures:  s.PartialFailures,
		Entity:           s.Entity,
		Live:             s.Live,
		Generation:       s.Generation,
	}
}

type viewParams struct {
	serviceID   string
	serviceType string
	scope       models.SourceScope
}

func parseViewParams(r *http.Request) (viewParams, error) {
	scope, err := models.ParseSourceScope(r.URL.Query().Get("scope"))
	if err != nil {
		return viewParams{}, err
	}

	return viewParams{
		serviceID:   mux.Vars(r)["id"],
		serviceType: r.URL.Query().Get("type"),
		scope:       scope,
	}, nil
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	p, err := parseViewParams(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.views.Get(r.Context(), p.serviceID, p.serviceType, p.scope)
	if err != nil {
		s.writeStoreError(w, p.serviceID, err)
		return
	}

	snap := v.Snapshot()
	writeJSON(w, http.StatusOK, newTimelineResponse(&snap))
}

func (s *Server) refetch(w http.ResponseWriter, r *http.Request) {
	p, err := parseViewParams(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.views.Get(r.Context(), p.serviceID, p.serviceType, p.scope)
	if err != nil {
		s.writeStoreError(w, p.serviceID, err)
		return
	}

	if err := v.Refetch(r.Context()); err != nil {
		if errors.Is(err, db.ErrEntityNotFound) {
			s.views.InvalidateService(p.serviceID)
			s.writeStoreError(w, p.serviceID, err)

			return
		}

		// the snapshot carries the failure
		s.logger.Warn().Err(err).Str("service_id", p.serviceID).Msg("Refetch failed")
	}

	snap := v.Snapshot()
	writeJSON(w, http.StatusOK, newTimelineResponse(&snap))
}

func (s *Server) ingestSample(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]

	var rec models.RawRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, "Invalid sample body", http.StatusBadRequest)
		return
	}

	switch rec.ServiceID {
	case "":
		rec.ServiceID = serviceID
	case serviceID:
	default:
		writeError(w, "Sample belongs to another service", http.StatusBadRequest)
		return
	}

	sample, err := timeline.Normalize(&rec)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetEntity(r.Context(), serviceID); err != nil {
		s.writeStoreError(w, serviceID, err)
		return
	}

	if err := s.store.InsertSample(r.Context(), &rec); err != nil {
		s.writeStoreError(w, serviceID, err)
		return
	}

	s.invalidate(serviceID)

	// older samples only matter to the next history load
	if s.publisher != nil && !sample.Timestamp.Before(s.nowFn().Add(-s.window)) {
		if err := s.publisher.PublishSampleInserted(r.Context(), &rec); err != nil {
			s.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Failed to publish sample")
		}
	}

	writeJSON(w, http.StatusCreated, sample)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["id"]

	var patch models.EntityPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeError(w, "Invalid status body", http.StatusBadRequest)
		return
	}

	if patch.Empty() {
		writeError(w, db.ErrPatchEmpty.Error(), http.StatusBadRequest)
		return
	}

	if patch.Status != nil {
		status, ok := models.ParseStatus(string(*patch.Status))
		if !ok {
			writeError(w, "Unknown status", http.StatusBadRequest)
			return
		}

		patch.Status = &status
	}

	entity, err := s.store.UpdateEntityStatus(r.Context(), serviceID, &patch)
	if err != nil {
		s.writeStoreError(w, serviceID, err)
		return
	}

	s.invalidate(serviceID)

	if s.publisher != nil {
		if err := s.publisher.PublishEntityChanged(r.Context(), serviceID, &patch); err != nil {
			s.logger.Warn().Err(err).Str("service_id", serviceID).Msg("Failed to publish status change")
		}
	}

	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) invalidate(serviceID string) {
	if s.cache == nil {
		return
	}

	n := s.cache.InvalidateService(serviceID)

	s.logger.Debug().Str("service_id", serviceID).Int("entries", n).Msg("Invalidated cached history")
}

func (s *Server) writeStoreError(w http.ResponseWriter, serviceID string, err error) {
	switch {
	case errors.Is(err, db.ErrEntityNotFound):
		writeError(w, "Service not found", http.StatusNotFound)
	case errors.Is(err, db.ErrServiceIDRequired), errors.Is(err, db.ErrPatchEmpty):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Str("service_id", serviceID).Msg("Store operation failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
