// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package webhook delivers domain events to tenant HTTP endpoints.

Flow:

	events.Bus ──Trigger──► watermill topic ──► fan-out handler
	                                              │ one task per matching subscription
	                                              ▼
	                                     scheduler (webhook.deliver)
	                                              │
	                                              ▼
	                               signed POST ──► DeliveryLog row
	                                              │ non-2xx or timeout
	                                              ▼
	                                 retry task at now + backoff

The trigger topic runs on an in-process GoChannel, or on NATS JetStream when
WebhookConfig.NATSURL is set so several nodes share one fan-out.

Every attempt writes one DeliveryLog row. Attempt 0 is the first delivery;
attempt n is retried while n < RetryCount, after min(2^n * BaseDelay,
MaxDelay). The last row for an event has Final set. A subscription with
RetryCount 3 that never answers produces exactly four rows.

Each request carries:

	X-Webhook-Signature: sha256=<hex HMAC-SHA256 of the raw body>
	X-Webhook-Event:     message.new
	X-Webhook-Id:        <event id, stable across retries>
	X-Webhook-Attempt:   0

The body is {"event", "timestamp", "data"} and data.eventId repeats the
event id so receivers can drop duplicates. Delivery is at-least-once.

A circuit breaker per subscription stops hammering an endpoint that keeps
failing; attempts refused by an open breaker are logged and retried like any
other failure.
*/
package webhook
