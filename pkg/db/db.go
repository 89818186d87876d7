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
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
)

// DB is the Postgres-backed Service.
type DB struct {
	pool     *pgxpool.Pool
	executor executor
	logger   logger.Logger
}

// New opens a pool for cfg and brings the schema up to date.
func New(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*DB, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: ping: %w", ErrFailedOpenDB, err)
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()

		return nil, err
	}

	return &DB{pool: pool, executor: pool, logger: log}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

var _ Service = (*DB)(nil)
