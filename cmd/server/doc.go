// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package main is the Switchboard server.

# Startup

main loads configuration (Koanf v2: defaults, optional config.yaml, .env,
environment), initializes zerolog, wires the components and runs them under
a suture supervisor tree until SIGINT or SIGTERM:

	data layer       scheduler (memory or BadgerDB task queue)
	messaging layer  event bus, webhook dispatcher, realtime gateway
	api layer        HTTP server (REST + /ws)

Backends are selected by configuration:

	DATABASE_DRIVER=memory|postgres   DATABASE_DSN=postgres://...
	REDIS_ADDR=host:6379              slow-mode limiter in Redis (memory if unset)
	SCHEDULER_DRIVER=memory|badger    SCHEDULER_BADGER_PATH=/data/scheduler
	WEBHOOK_NATS_URL=nats://...       webhook fan-out over NATS (in-process if unset)

JWT_SECRET (32+ characters) is required; it verifies the tenant
issued user tokens accepted by the REST API and the gateway.

# Shutdown

Cancelling the signal context stops the tree. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, the scheduler waits for in-flight tasks, and the
store, limiter, queue and webhook transport are closed afterwards.
*/
package main
