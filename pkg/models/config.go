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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/timeline/pkg/logger"
)

// Duration is a time.Duration that decodes from "30s" style strings or from
// nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

var (
	errInvalidDuration      = errors.New("invalid duration")
	errListenAddrRequired   = errors.New("listen address is required")
	errDatabaseRequired     = errors.New("database configuration is required")
	errDatabaseHostRequired = errors.New("database host is required")
	errDatabaseNameRequired = errors.New("database name is required")
	errNATSURLRequired      = errors.New("nats url is required")
	errSlotsInvalid         = errors.New("timeline.slots must be positive")
	errNegativeDuration     = errors.New("durations must be non-negative")
	errRetriesInvalid       = errors.New("retry.max_retries must be non-negative")
)

// Defaults for the timeline service.
const (
	DefaultSlots              = 20
	DefaultThrottleWindow     = 30 * time.Second
	DefaultMaxSamples         = 100
	DefaultQueryLimit         = 100
	DefaultWindow             = time.Hour
	DefaultCheckInterval      = 60 * time.Second
	DefaultPollInterval       = 30 * time.Second
	DefaultSourceOnlineWithin = 5 * time.Minute
	DefaultViewIdleTimeout    = 5 * time.Minute
	DefaultCacheTTL           = 20 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBaseDelay     = time.Second
	DefaultRetryMaxDelay      = 10 * time.Second
)

// DatabaseConfig describes the Postgres/Timescale cluster holding samples.
type DatabaseConfig struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password,omitempty"`
	SSLMode            string            `json:"ssl_mode,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration          `json:"health_check_period,omitempty"`
	StatementTimeout   Duration          `json:"statement_timeout,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

// TimelineConfig tunes the display pipeline and the realtime merger.
type TimelineConfig struct {
	Slots                int      `json:"slots"`
	ThrottleWindow       Duration `json:"throttle_window"`
	MaxSamples           int      `json:"max_samples"`
	QueryLimit           int      `json:"query_limit"`
	Window               Duration `json:"window"`
	DefaultCheckInterval Duration `json:"default_check_interval"`
	PollInterval         Duration `json:"poll_interval"`
	SourceOnlineWithin   Duration `json:"source_online_within"`
	ViewIdleTimeout      Duration `json:"view_idle_timeout"`
}

// CacheConfig configures the fetch cache.
type CacheConfig struct {
	TTL Duration `json:"ttl"`
}

// RetryConfig configures fetch retries.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt. Unset
	// means DefaultMaxRetries; 0 disables retries.
	MaxRetries *int     `json:"max_retries,omitempty"`
	BaseDelay  Duration `json:"base_delay"`
	MaxDelay   Duration `json:"max_delay"`
}

// CORSConfig lists origins allowed to call the API and open streams.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// ServiceConfig is the top-level configuration of the timeline service.
type ServiceConfig struct {
	ListenAddr string          `json:"listen_addr"`
	Logging    *logger.Config  `json:"logging,omitempty"`
	Database   *DatabaseConfig `json:"database"`
	NATS       *NATSConfig     `json:"nats,omitempty"`
	Timeline   TimelineConfig  `json:"timeline"`
	Cache      CacheConfig     `json:"cache"`
	Retry      RetryConfig     `json:"retry"`
	CORS       CORSConfig      `json:"cors"`
	// APIKey guards the write endpoints when set.
	APIKey string `json:"api_key,omitempty"`
}

// ApplyDefaults fills zero values with the service defaults.
func (c *ServiceConfig) ApplyDefaults() {
	t := &c.Timeline

	if t.Slots == 0 {
		t.Slots = DefaultSlots
	}

	if t.ThrottleWindow == 0 {
		t.ThrottleWindow = Duration(DefaultThrottleWindow)
	}

	if t.MaxSamples == 0 {
		t.MaxSamples = DefaultMaxSamples
	}

	if t.QueryLimit == 0 {
		t.QueryLimit = DefaultQueryLimit
	}

	if t.Window == 0 {
		t.Window = Duration(DefaultWindow)
	}

	if t.DefaultCheckInterval == 0 {
		t.DefaultCheckInterval = Duration(DefaultCheckInterval)
	}

	if t.PollInterval == 0 {
		t.PollInterval = Duration(DefaultPollInterval)
	}

	if t.SourceOnlineWithin == 0 {
		t.SourceOnlineWithin = Duration(DefaultSourceOnlineWithin)
	}

	if t.ViewIdleTimeout == 0 {
		t.ViewIdleTimeout = Duration(DefaultViewIdleTimeout)
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}

	if c.Retry.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Retry.MaxRetries = &retries
	}

	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = Duration(DefaultRetryBaseDelay)
	}

	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = Duration(DefaultRetryMaxDelay)
	}

	if c.Database != nil && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
}

// Validate implements config.Validator. Defaults are applied first.
func (c *ServiceConfig) Validate() error {
	c.ApplyDefaults()

	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.Database == nil {
		return errDatabaseRequired
	}

	if c.Database.Host == "" {
		return errDatabaseHostRequired
	}

	if c.Database.Database == "" {
		return errDatabaseNameRequired
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	if c.Timeline.Slots < 0 {
		return errSlotsInvalid
	}

	if *c.Retry.MaxRetries < 0 {
		return errRetriesInvalid
	}

	for _, d := range []Duration{
		c.Timeline.ThrottleWindow, c.Timeline.Window, c.Timeline.DefaultCheckInterval,
		c.Timeline.PollInterval, c.Timeline.ViewIdleTimeout, c.Cache.TTL, c.Retry.BaseDelay, c.Retry.MaxDelay,
	} {
		if d < 0 {
			return errNegativeDuration
		}
	}

	return nil
}
