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

package timeline

import (
	"errors"
	"fmt"

	"github.com/carverauto/timeline/pkg/models"
)

// FallbackSourceLabel identifies samples that carry neither a region nor an
// agent id.
const FallbackSourceLabel = "Default System Check (Agent 1)"

var (
	// ErrMalformedRecord is returned for records that cannot become a Sample.
	ErrMalformedRecord = errors.New("malformed record")

	errMissingTimestamp = fmt.Errorf("%w: missing timestamp", ErrMalformedRecord)
	errMissingStatus    = fmt.Errorf("%w: missing status", ErrMalformedRecord)
	errUnknownStatus    = fmt.Errorf("%w: unknown status", ErrMalformedRecord)
)

// ResolveSource derives the source label of a record from its optional
// region and agent fields.
func ResolveSource(regionName, agentID models.Optional[string]) (label string, isDefault bool) {
	region, hasRegion := models.ResolveOptional(regionName)
	agent, hasAgent := models.ResolveOptional(agentID)

	// a region is only meaningful together with its agent
	switch {
	case hasRegion && hasAgent:
		return fmt.Sprintf("%s (Agent %s)", region, agent), false
	case hasAgent:
		return fmt.Sprintf("Default (Agent %s)", agent), true
	default:
		return FallbackSourceLabel, true
	}
}

// Normalize converts one raw record into a Sample.
func Normalize(rec *models.RawRecord) (models.Sample, error) {
	if rec == nil || rec.Timestamp == nil || rec.Timestamp.IsZero() {
		return models.Sample{}, errMissingTimestamp
	}

	rawStatus, ok := models.ResolveOptional(rec.Status)
	if !ok {
		return models.Sample{}, errMissingStatus
	}

	status, ok := models.ParseStatus(rawStatus)
	if !ok {
		return models.Sample{}, fmt.Errorf("%w %q", errUnknownStatus, rawStatus)
	}

	label, isDefault := ResolveSource(rec.RegionName, rec.AgentID)

	var responseTime int64
	if rec.ResponseTimeMs != nil && *rec.ResponseTimeMs > 0 {
		responseTime = *rec.ResponseTimeMs
	}

	return models.Sample{
		SourceID:        label,
		ServiceID:       rec.ServiceID,
		Timestamp:       rec.Timestamp.UTC(),
		Status:          status,
		ResponseTimeMs:  responseTime,
		IsDefaultSource: isDefault,
	}, nil
}

// NormalizeResult is the outcome of normalizing a batch of records.
type NormalizeResult struct {
	Samples []models.Sample
	Dropped int
}

// NormalizeAll normalizes records in order, dropping malformed ones.
func NormalizeAll(records []models.RawRecord) NormalizeResult {
	result := NormalizeResult{Samples: make([]models.Sample, 0, len(records))}

	for i := range records {
		sample, err := Normalize(&records[i])
		if err != nil {
			result.Dropped++
			continue
		}

		result.Samples = append(result.Samples, sample)
	}

	return result
}
