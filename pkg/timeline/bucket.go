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
	"time"

	"github.com/carverauto/timeline/pkg/models"
)

// Bucket groups the samples of one minute. No two samples in a bucket share
// a SourceID.
type Bucket struct {
	Key     time.Time
	Samples []models.Sample
}

// BucketKey floors t to the minute.
func BucketKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// Deduplicate groups samples into minute buckets, keeping the first sample
// encountered for each source in a bucket. Input order therefore decides
// which duplicate survives, even when a later duplicate is fresher. Buckets
// are returned in order of first appearance.
func Deduplicate(samples []models.Sample) []Bucket {
	index := make(map[int64]int)
	seen := make(map[int64]map[string]struct{})

	var buckets []Bucket

	for _, s := range samples {
		key := BucketKey(s.Timestamp)
		k := keyOf(key)

		pos, ok := index[k]
		if !ok {
			pos = len(buckets)
			index[k] = pos
			seen[k] = make(map[string]struct{})

			buckets = append(buckets, Bucket{Key: key})
		}

		if _, dup := seen[k][s.SourceID]; dup {
			continue
		}

		seen[k][s.SourceID] = struct{}{}
		buckets[pos].Samples = append(buckets[pos].Samples, s)
	}

	return buckets
}
