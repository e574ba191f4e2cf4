// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package events fans committed domain events out to the realtime gateway
// and the webhook dispatcher.
//
// Publish hands the event to the Broadcaster synchronously, so callers that
// publish while holding a per-channel lock get commit-order delivery to
// connected subscribers. Webhook-eligible events are then placed on a
// bounded in-memory queue drained by Serve; a full queue drops the event
// (counted and logged) rather than slowing the originating mutation.
package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
)

// DefaultQueueSize bounds the webhook trigger queue.
const DefaultQueueSize = 4096

// Broadcaster delivers an event to connected realtime subscribers.
// Implementations must not block on slow consumers.
type Broadcaster interface {
	Broadcast(e *models.Event)
}

// Sink receives webhook-eligible events asynchronously.
type Sink interface {
	Trigger(ctx context.Context, e *models.Event) error
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(e *models.Event)
}

// Bus implements Publisher.
type Bus struct {
	broadcaster Broadcaster
	sink        Sink
	queue       chan *models.Event
	logger      zerolog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus. Either collaborator may be nil.
func NewBus(broadcaster Broadcaster, sink Sink, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		broadcaster: broadcaster,
		sink:        sink,
		queue:       make(chan *models.Event, queueSize),
		logger:      logging.WithComponent("event-bus"),
	}
}

// SetBroadcaster attaches the realtime fan-out. It must be called before the
// first Publish.
func (b *Bus) SetBroadcaster(broadcaster Broadcaster) {
	b.broadcaster = broadcaster
}

// Publish validates e, broadcasts it and queues it for webhooks.
// Invalid events are logged and discarded.
func (b *Bus) Publish(e *models.Event) {
	if err := e.Validate(); err != nil {
		b.logger.Error().Err(err).Str("event_type", string(e.Type)).Msg("Discarding invalid event")
		return
	}
	metrics.RecordEvent(string(e.Type))

	if b.broadcaster != nil {
		b.broadcaster.Broadcast(e)
	}

	if b.sink == nil || !e.Type.IsWebhookEvent() || e.Shadow {
		return
	}
	select {
	case b.queue <- e:
	default:
		metrics.WebhookTriggersDropped.Inc()
		b.logger.Warn().
			Str("event_id", e.ID).
			Str("event_type", string(e.Type)).
			Msg("Webhook trigger queue full, dropping event")
	}
}

// Serve drains the webhook queue until ctx is done. Implements
// suture.Service.
func (b *Bus) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-b.queue:
			if err := b.sink.Trigger(ctx, e); err != nil {
				b.logger.Error().Err(err).
					Str("event_id", e.ID).
					Str("event_type", string(e.Type)).
					Msg("Failed to trigger webhooks")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (b *Bus) String() string {
	return "event-bus"
}
