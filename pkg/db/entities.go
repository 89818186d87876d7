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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/timeline/pkg/models"
)

const (
	entityColumns = `id, name, service_type, status, check_interval_seconds, last_checked_at, response_time_ms`

	getEntitySQL = `SELECT ` + entityColumns + ` FROM monitored_services WHERE id = $1`

	// COALESCE keeps columns the patch does not carry.
	updateEntitySQL = `UPDATE monitored_services SET
		status = COALESCE($2, status),
		last_checked_at = COALESCE($3, last_checked_at),
		response_time_ms = COALESCE($4, response_time_ms)
		WHERE id = $1
		RETURNING ` + entityColumns
)

// GetEntity loads a monitored service.
func (db *DB) GetEntity(ctx context.Context, serviceID string) (*models.Entity, error) {
	if serviceID == "" {
		return nil, ErrServiceIDRequired
	}

	entity, err := scanEntity(db.executor.QueryRow(ctx, getEntitySQL, serviceID))
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", serviceID, err)
	}

	return entity, nil
}

// UpdateEntityStatus applies the fields present on patch and returns the
// updated service.
func (db *DB) UpdateEntityStatus(ctx context.Context, serviceID string, patch *models.EntityPatch) (*models.Entity, error) {
	if serviceID == "" {
		return nil, ErrServiceIDRequired
	}

	if patch.Empty() {
		return nil, ErrPatchEmpty
	}

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	row := db.executor.QueryRow(ctx, updateEntitySQL, serviceID, status, patch.LastCheckedAt, patch.ResponseTimeMs)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("%w service %s: %w", ErrFailedToUpdate, serviceID, err)
	}

	return entity, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var (
		e               models.Entity
		status          string
		intervalSeconds int32
	)

	err := row.Scan(&e.ID, &e.Name, &e.Type, &status, &intervalSeconds, &e.LastCheckedAt, &e.ResponseTimeMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w service: %w", ErrFailedToScan, err)
	}

	e.Status = models.Status(status)
	e.CheckInterval = models.Duration(time.Duration(intervalSeconds) * time.Second)

	return &e, nil
}
