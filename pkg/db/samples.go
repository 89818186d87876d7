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
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/timeline/pkg/models"
)

const (
	defaultSampleLimit = 100

	insertSampleSQL = `INSERT INTO service_samples
		(service_id, checked_at, status, response_time_ms, region_name, agent_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	touchAgentSQL = `INSERT INTO regional_agents (service_id, region_name, agent_id, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service_id, region_name, agent_id)
		DO UPDATE SET last_seen = GREATEST(regional_agents.last_seen, EXCLUDED.last_seen)`

	listAgentsSQL = `SELECT region_name, agent_id, last_seen
		FROM regional_agents
		WHERE service_id = $1 AND last_seen >= $2
		ORDER BY region_name, agent_id`
)

// buildSampleQuery renders q as SQL with positional arguments.
func buildSampleQuery(q *SampleQuery) (string, []any) {
	var sb strings.Builder

	args := []any{q.ServiceID}

	sb.WriteString(`SELECT service_id, checked_at, status, response_time_ms, region_name, agent_id
		FROM service_samples
		WHERE service_id = $1`)

	arg := func(v any) string {
		args = append(args, v)

		return "$" + strconv.Itoa(len(args))
	}

	if q.Start != nil {
		sb.WriteString(" AND checked_at >= " + arg(q.Start.UTC()))
	}

	if q.End != nil {
		sb.WriteString(" AND checked_at <= " + arg(q.End.UTC()))
	}

	if q.Source != nil {
		if q.Source.IsDefault() {
			sb.WriteString(" AND COALESCE(region_name, '') = ''")
		} else {
			sb.WriteString(" AND region_name = " + arg(q.Source.RegionName))
			sb.WriteString(" AND agent_id = " + arg(q.Source.AgentID))
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSampleLimit
	}

	sb.WriteString(" ORDER BY checked_at DESC LIMIT " + arg(limit))

	return sb.String(), args
}

// QuerySamples returns raw sample records, newest first. Records are not
// validated here.
func (db *DB) QuerySamples(ctx context.Context, q *SampleQuery) ([]models.RawRecord, error) {
	if q == nil || q.ServiceID == "" {
		return nil, ErrServiceIDRequired
	}

	sql, args := buildSampleQuery(q)

	rows, err := db.executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w samples: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return gatherSamples(rows)
}

func gatherSamples(rows pgx.Rows) ([]models.RawRecord, error) {
	var out []models.RawRecord

	for rows.Next() {
		var (
			rec       models.RawRecord
			checkedAt time.Time
			status    *string
			region    *string
			agent     *string
		)

		if err := rows.Scan(&rec.ServiceID, &checkedAt, &status, &rec.ResponseTimeMs, &region, &agent); err != nil {
			return nil, fmt.Errorf("%w sample: %w", ErrFailedToScan, err)
		}

		rec.Timestamp = &checkedAt
		rec.Status = models.FromPtr(status)
		rec.RegionName = models.FromPtr(region)
		rec.AgentID = models.FromPtr(agent)

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w samples: %w", ErrFailedToQuery, err)
	}

	return out, nil
}

// InsertSample stores rec and, for regional records, marks the agent as seen.
func (db *DB) InsertSample(ctx context.Context, rec *models.RawRecord) error {
	if rec == nil {
		return ErrSampleNil
	}

	if rec.ServiceID == "" {
		return ErrServiceIDRequired
	}

	if rec.Timestamp == nil {
		return ErrSampleTimestamp
	}

	ts := rec.Timestamp.UTC()

	status := optionalArg(rec.Status)
	region := optionalArg(rec.RegionName)
	agent := optionalArg(rec.AgentID)

	batch := &pgx.Batch{}
	batch.Queue(insertSampleSQL, rec.ServiceID, ts, status, rec.ResponseTimeMs, region, agent)

	if region != nil && agent != nil {
		batch.Queue(touchAgentSQL, rec.ServiceID, *region, *agent, ts)
	}

	if err := sendBatchExecAll(ctx, db.executor, batch, "service_samples"); err != nil {
		return fmt.Errorf("%w sample: %w", ErrFailedToInsert, err)
	}

	return nil
}

func optionalArg(field models.Optional[string]) *string {
	v, ok := models.ResolveOptional(field)
	if !ok {
		return nil
	}

	return &v
}

// ListRegionalSources returns the regional agents of a service seen at or
// after onlineSince.
func (db *DB) ListRegionalSources(ctx context.Context, serviceID string, onlineSince time.Time) ([]models.Source, error) {
	if serviceID == "" {
		return nil, ErrServiceIDRequired
	}

	rows, err := db.executor.Query(ctx, listAgentsSQL, serviceID, onlineSince.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w regional agents: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Source

	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.RegionName, &src.AgentID, &src.LastSeen); err != nil {
			return nil, fmt.Errorf("%w regional agent: %w", ErrFailedToScan, err)
		}

		out = append(out, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w regional agents: %w", ErrFailedToQuery, err)
	}

	return out, nil
}

func sendBatchExecAll(ctx context.Context, exec executor, batch *pgx.Batch, operation string) (err error) {
	br := exec.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", operation, i, err)
		}
	}

	return nil
}
