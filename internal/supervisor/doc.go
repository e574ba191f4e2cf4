// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package supervisor runs the server's long-lived components under a suture v4
supervisor tree.

Tree layout:

	switchboard (root)
	├── data-layer        task scheduler (ban expiry, scheduled sends, webhook attempts)
	├── messaging-layer   event bus drain, webhook dispatcher, realtime gateway
	└── api-layer         HTTP server

Each layer is its own supervisor, so a crash loop in one (for example the
webhook dispatcher losing its NATS connection) backs off without restarting
the others. Supervisor events are logged through sutureslog on the zerolog
slog bridge.

Services implement suture.Service:

	Serve(ctx context.Context) error

and fmt.Stringer for log identification. Components that expose Start/Stop
instead (the scheduler) are wrapped in package services.

Shutdown: cancelling the context passed to Serve stops every layer; services
still running after ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
