// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/switchboard/internal/api"
	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/channel"
	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/ratelimit"
	"github.com/tomtom215/switchboard/internal/realtime"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
	"github.com/tomtom215/switchboard/internal/store/memory"
	"github.com/tomtom215/switchboard/internal/store/postgres"
	"github.com/tomtom215/switchboard/internal/supervisor"
	"github.com/tomtom215/switchboard/internal/supervisor/services"
	"github.com/tomtom215/switchboard/internal/webhook"
)

// app holds the wired components. close releases them in reverse order of
// construction.
type app struct {
	store      store.Store
	limiter    ratelimit.Limiter
	queue      scheduler.Queue
	scheduler  *scheduler.Scheduler
	bus        *events.Bus
	dispatcher *webhook.Dispatcher
	gateway    *realtime.Gateway
	channels   *channel.Manager
	messages   *message.Pipeline
	server     *http.Server

	closers []func() error
}

// newApp builds every component from cfg. On error, anything already opened
// is closed.
//
//nolint:gocyclo // sequential wiring
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.store = pg
	default:
		a.store = memory.New()
	}
	a.closers = append(a.closers, a.store.Close)
	logging.Info().Str("driver", cfg.Database.Driver).Msg("Store initialized")

	az, err := authz.NewEnforcer(nil)
	if err != nil {
		return nil, fmt.Errorf("authz: %w", err)
	}
	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	if cfg.Redis.Addr != "" {
		rl, err := ratelimit.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.limiter = rl
		a.closers = append(a.closers, rl.Close)
		logging.Info().Str("addr", cfg.Redis.Addr).Msg("Slow-mode limiter backed by Redis")
	} else {
		a.limiter = ratelimit.NewMemoryLimiter()
	}

	switch cfg.Scheduler.Driver {
	case config.SchedulerBadger:
		q, err := scheduler.OpenBadgerQueue(cfg.Scheduler.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open task queue: %w", err)
		}
		a.queue = q
	default:
		a.queue = scheduler.NewMemoryQueue()
	}
	a.closers = append(a.closers, a.queue.Close)
	a.scheduler = scheduler.New(a.queue, scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		LeaseTimeout: cfg.Scheduler.LeaseTimeout,
	})

	a.dispatcher, err = webhook.New(cfg.Webhook, a.store, a.scheduler)
	if err != nil {
		return nil, fmt.Errorf("webhook dispatcher: %w", err)
	}
	a.closers = append(a.closers, a.dispatcher.Close)

	// The gateway needs the pipeline and the pipeline needs the bus, so the
	// broadcaster is attached after the gateway exists.
	a.bus = events.NewBus(nil, a.dispatcher, 0)
	locks := events.NewChannelLocks()
	a.channels = channel.NewManager(a.store, az, a.bus, locks, channel.WithScheduler(a.scheduler))
	a.messages = message.NewPipeline(a.store, a.channels, az, a.limiter, a.bus, locks, message.WithScheduler(a.scheduler))
	a.gateway = realtime.New(cfg.Realtime, tokens, a.channels, a.messages)
	a.bus.SetBroadcaster(a.gateway)

	if err := a.registerTasks(cfg); err != nil {
		return nil, err
	}

	router := api.NewRouter(
		api.NewHandler(a.channels, a.messages, a.dispatcher, a.store),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)),
		auth.NewMiddleware(tokens, api.WriteError),
		az,
		a.gateway,
	)
	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

func (a *app) registerTasks(cfg *config.Config) error {
	handlers := []struct {
		kind    scheduler.Kind
		workers int
		handler scheduler.Handler
	}{
		{scheduler.KindWebhookDeliver, cfg.Webhook.Workers, a.dispatcher.HandleDeliver},
		{scheduler.KindScheduledSend, 2, a.messages.HandleScheduledSend},
		{scheduler.KindBanExpire, 1, a.channels.HandleBanExpire},
	}
	for _, h := range handlers {
		if err := a.scheduler.Register(h.kind, h.workers, h.handler); err != nil {
			return fmt.Errorf("register %s: %w", h.kind, err)
		}
	}
	return nil
}

// supervise adds every long-running component to tree.
func (a *app) supervise(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	tree.AddDataService(services.NewSchedulerService(a.scheduler, "scheduler"))

	tree.AddMessagingService(a.bus)
	tree.AddMessagingService(a.dispatcher)
	tree.AddMessagingService(a.gateway)

	tree.AddAPIService(services.NewHTTPServerService(a.server, shutdownTimeout))
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
