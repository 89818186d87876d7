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

package fetch

//go:generate mockgen -destination=mock_fetch.go -package=fetch github.com/carverauto/timeline/pkg/fetch Source

import (
	"context"
	"time"

	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/models"
)

// Source is the read side of the sample store. db.Service satisfies it.
type Source interface {
	QuerySamples(ctx context.Context, q *db.SampleQuery) ([]models.RawRecord, error)
	GetEntity(ctx context.Context, serviceID string) (*models.Entity, error)
	ListRegionalSources(ctx context.Context, serviceID string, onlineSince time.Time) ([]models.Source, error)
}
