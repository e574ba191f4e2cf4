// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package services adapts components with blocking or Start/Stop lifecycles
// to suture.Service.
//
//   - HTTPServerService: *http.Server (ListenAndServe / Shutdown)
//   - SchedulerService: *scheduler.Scheduler (Start / Stop)
//
// The event bus, webhook dispatcher and realtime gateway implement
// Serve(ctx) themselves and are added to the tree directly.
package services
