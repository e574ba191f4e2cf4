// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package metrics provides Prometheus instrumentation for Switchboard.

All collectors are registered with the default registry through promauto and
exposed by the API router at /metrics.

Metric families:

  - api_*: request count, latency, in-flight requests, IP rate-limit hits
  - chat_messages_*: send outcomes, slow-mode rejections, pin cap rejections
  - chat_events_published_total: domain events handed to the fan-out bus
  - realtime_*: connections, frames in/out, queue overflows, presence transitions
  - webhook_*: delivery attempts by result, attempt latency, dropped triggers
  - circuit_breaker_*: per-subscription breaker state and transitions
  - scheduler_*: delayed task executions and queue depth

Label values are bounded: event types, statuses and results come from fixed
sets, and breaker names are webhook subscription ids.
*/
package metrics
