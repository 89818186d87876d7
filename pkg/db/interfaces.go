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

// Package db stores monitored services, their health-check samples and the
// regional agents that report them in Postgres.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/timeline/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/timeline/pkg/db Service

// SampleQuery selects stored samples of one service, newest first.
type SampleQuery struct {
	ServiceID string
	Limit     int
	Start     *time.Time
	End       *time.Time
	// Source restricts the query to one origin. Nil means every origin.
	Source *models.Source
}

// Service represents all database operations of the timeline service.
type Service interface {
	Close()

	// Sample operations.

	QuerySamples(ctx context.Context, q *SampleQuery) ([]models.RawRecord, error)
	InsertSample(ctx context.Context, rec *models.RawRecord) error
	ListRegionalSources(ctx context.Context, serviceID string, onlineSince time.Time) ([]models.Source, error)

	// Entity operations.

	GetEntity(ctx context.Context, serviceID string) (*models.Entity, error)
	UpdateEntityStatus(ctx context.Context, serviceID string, patch *models.EntityPatch) (*models.Entity, error)
}

// executor is the subset of pgxpool.Pool the store uses.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
