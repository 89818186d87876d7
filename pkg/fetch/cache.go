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

import (
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/timeline/pkg/models"
)

// Key identifies one cached scatter-gather.
type Key struct {
	ServiceID   string
	Scope       string
	Window      time.Duration
	ServiceType string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.ServiceID, k.Scope, k.Window, k.ServiceType)
}

// Result is the outcome of one scatter-gather, ready for the pipeline.
type Result struct {
	Entity    *models.Entity
	Samples   []models.Sample
	Dropped   int
	Failures  []PartialSourceFailure
	FetchedAt time.Time
	IsStale   bool
}

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// Cache is a TTL cache of fetch results. Expired entries stay around so they
// can be served as stale data when a reload fails.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[Key]cacheEntry
	nowFn   func() time.Time
}

// NewCache builds a cache whose entries are fresh for ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = models.DefaultCacheTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[Key]cacheEntry),
		nowFn:   time.Now,
	}
}

// Get returns the entry for key if it has not expired.
func (c *Cache) Get(key Key) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.nowFn().Before(entry.expiresAt) {
		return Result{}, false
	}

	return entry.result, true
}

// GetStale returns the entry for key regardless of age, marked stale when it
// has expired.
func (c *Cache) GetStale(key Key) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}

	res := entry.result
	if !c.nowFn().Before(entry.expiresAt) {
		res.IsStale = true
	}

	return res, true
}

// Put stores res under key.
func (c *Cache) Put(key Key, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res.IsStale = false
	c.entries[key] = cacheEntry{result: res, expiresAt: c.nowFn().Add(c.ttl)}
}

// Invalidate drops a single entry.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// InvalidateService drops every entry of a service, across scopes and
// windows.
func (c *Cache) InvalidateService(serviceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for key := range c.entries {
		if key.ServiceID == serviceID {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
