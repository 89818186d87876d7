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

// Package app wires the timeline service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/timeline/pkg/api"
	"github.com/carverauto/timeline/pkg/config"
	"github.com/carverauto/timeline/pkg/db"
	"github.com/carverauto/timeline/pkg/fetch"
	"github.com/carverauto/timeline/pkg/logger"
	"github.com/carverauto/timeline/pkg/models"
	"github.com/carverauto/timeline/pkg/natsutil"
	"github.com/carverauto/timeline/pkg/view"
)

const (
	serviceName     = "timeline"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the timeline service and blocks until SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg models.ServiceConfig
	if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
	}

	err := logger.InitializeLogExport(ctx, logCfg)
	if err != nil && !errors.Is(err, logger.ErrOTelLoggingDisabled) && !errors.Is(err, logger.ErrOTelEndpointRequired) {
		return fmt.Errorf("initialize log export: %w", err)
	}

	mainLogger, err := logger.NewComponent("timeline-main", logCfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := logger.ShutdownLogExport(context.Background()); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down log export")
		}
	}()

	tp, ctx, rootSpan, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Debug:          logCfg.Debug,
		Logger:         mainLogger,
		OTel:           &logCfg.OTel,
	})
	if err != nil {
		return err
	}

	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down tracer provider")
		}

		rootSpan.End()
	}()

	if _, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		OTel:           &logCfg.OTel,
	}); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return err
	}

	defer func() {
		if err := logger.ShutdownMetrics(context.Background()); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down metrics")
		}
	}()

	store, err := db.New(ctx, cfg.Database, component("db", logCfg, mainLogger))
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		subscriber natsutil.Subscriber
		apiOptions []func(*api.Server)
	)

	if cfg.NATS != nil {
		nc, err := natsutil.Connect(cfg.NATS, component("nats", logCfg, mainLogger))
		if err != nil {
			return err
		}
		defer drain(nc, mainLogger)

		sub, err := natsutil.NewSubscriber(nc, cfg.NATS.SubjectPrefix, component("realtime", logCfg, mainLogger))
		if err != nil {
			return err
		}

		pub, err := natsutil.NewEventPublisher(nc, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}

		subscriber = sub
		apiOptions = append(apiOptions, api.WithPublisher(pub))
	} else {
		mainLogger.Warn().Msg("NATS not configured, views refresh by polling only")
	}

	fetcher, err := fetch.NewFetcher(store, fetch.ConfigFrom(&cfg), component("fetch", logCfg, mainLogger),
		fetch.WithCache(fetch.NewCache(time.Duration(cfg.Cache.TTL))),
		fetch.WithRetry(fetch.NewRetry(cfg.Retry)),
	)
	if err != nil {
		return err
	}

	manager := view.NewManager(fetcher, subscriber, cfg.Timeline, component("view", logCfg, mainLogger),
		view.WithIdleTimeout(time.Duration(cfg.Timeline.ViewIdleTimeout)))

	go func() {
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			mainLogger.Error().Err(err).Msg("View manager stopped")
		}
	}()

	apiOptions = append(apiOptions,
		api.WithCacheInvalidator(fetcher.Cache()),
		api.WithCORS(cfg.CORS),
		api.WithAPIKey(cfg.APIKey),
		api.WithWindow(time.Duration(cfg.Timeline.Window)),
	)

	server := api.NewServer(store, manager, component("api", logCfg, mainLogger), apiOptions...)

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Start(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		manager.Close()

		return err
	case <-ctx.Done():
	}

	mainLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error().Err(err).Msg("HTTP shutdown failed")
	}

	manager.Close()

	return nil
}

// component returns a logger tagged for one subsystem, falling back to the
// main logger.
func component(name string, cfg *logger.Config, fallback logger.Logger) logger.Logger {
	log, err := logger.NewComponent(name, cfg)
	if err != nil {
		return fallback
	}

	return log
}

func drain(nc *nats.Conn, log logger.Logger) {
	if err := nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
	}
}
