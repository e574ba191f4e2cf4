// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/switchboard/internal/cache"
	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

// TaskScheduler enqueues delivery attempts.
type TaskScheduler interface {
	Schedule(ctx context.Context, task *scheduler.Task) error
}

// Dispatcher matches events to subscriptions and delivers them. It
// implements events.Sink and runs as a supervised service.
type Dispatcher struct {
	store     store.WebhookStore
	tasks     TaskScheduler
	cfg       config.WebhookConfig
	client    *http.Client
	transport *transport
	now       func() time.Time
	logger    zerolog.Logger
	wmLogger  watermill.LoggerAdapter

	readyOnce sync.Once
	ready     chan struct{}

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker[int]

	// active memoizes ListActiveWebhooks per app and event type.
	active *cache.LRU[[]*models.WebhookSubscription]
}

// Subscription lookups are cached for this long. Local writes purge the
// cache; subscriptions created on another instance are seen after at most
// this delay.
const (
	subscriptionCacheTTL  = 5 * time.Second
	subscriptionCacheSize = 4096
)

var _ events.Sink = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the delivery client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithClock overrides the time source for log rows and retry times.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a dispatcher. The trigger topic runs on NATS when
// cfg.NATSURL is set and in-process otherwise.
func New(cfg config.WebhookConfig, st store.WebhookStore, tasks TaskScheduler, opts ...Option) (*Dispatcher, error) {
	logger := logging.WithComponent("webhook-dispatcher")
	d := &Dispatcher{
		store:    st,
		tasks:    tasks,
		cfg:      cfg,
		client:   &http.Client{},
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		wmLogger: logging.NewWatermillLogger(logger),
		ready:    make(chan struct{}),
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
		active:   cache.NewLRU[[]*models.WebhookSubscription](subscriptionCacheSize, subscriptionCacheTTL),
	}
	for _, opt := range opts {
		opt(d)
	}

	if cfg.NATSURL != "" {
		t, err := newNATSTransport(cfg.NATSURL, d.wmLogger)
		if err != nil {
			return nil, err
		}
		d.transport = t
	} else {
		d.transport = newGoChannelTransport(d.wmLogger)
	}
	return d, nil
}

// Trigger publishes a webhook-eligible event to the fan-out topic. It waits
// for the fan-out router to come up so early events are not lost.
func (d *Dispatcher) Trigger(ctx context.Context, e *models.Event) error {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	msg := message.NewMessage(e.ID, payload)
	if err := d.transport.publisher.Publish(TriggerTopic, msg); err != nil {
		return fmt.Errorf("publish trigger %s: %w", e.ID, err)
	}
	return nil
}

// Serve runs the fan-out router until ctx is done.
func (d *Dispatcher) Serve(ctx context.Context) error {
	router, err := newRouter(d.wmLogger)
	if err != nil {
		return err
	}
	router.AddConsumerHandler(fanoutHandlerName, TriggerTopic, d.transport.subscriber, d.handleTrigger)

	go func() {
		select {
		case <-router.Running():
			d.readyOnce.Do(func() { close(d.ready) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("webhook router: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("webhook router stopped")
}

// String implements fmt.Stringer for suture logging.
func (d *Dispatcher) String() string {
	return "webhook-dispatcher"
}

// Close releases the transport.
func (d *Dispatcher) Close() error {
	return d.transport.Close()
}

// handleTrigger fans one event out. Undecodable messages are dropped;
// scheduling failures are returned so the router retries the message.
func (d *Dispatcher) handleTrigger(msg *message.Message) error {
	var e models.Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		d.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable webhook trigger")
		return nil
	}
	return d.fanout(msg.Context(), &e)
}

// fanout schedules the first attempt for every matching subscription. Task
// ids are derived from the subscription and event, so a redelivered trigger
// does not duplicate attempts that are still pending.
func (d *Dispatcher) fanout(ctx context.Context, e *models.Event) error {
	subs, err := d.activeSubscriptions(ctx, e.AppID, e.Type)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := renderBody(e)
	if err != nil {
		d.logger.Error().Err(err).Str("event_id", e.ID).Msg("Failed to render webhook body")
		return nil
	}

	now := d.now()
	for _, sub := range subs {
		job := deliveryJob{WebhookID: sub.ID, EventID: e.ID, EventType: e.Type, Body: body}
		task, err := scheduler.NewTask(taskID(sub.ID, e.ID, 0), scheduler.KindWebhookDeliver, now, job)
		if err != nil {
			return err
		}
		if err := d.tasks.Schedule(ctx, task); err != nil {
			return fmt.Errorf("schedule delivery to %s: %w", sub.ID, err)
		}
	}
	d.logger.Debug().Str("event_id", e.ID).Str("event_type", string(e.Type)).Int("subscriptions", len(subs)).Msg("webhook fan-out scheduled")
	return nil
}

func (d *Dispatcher) activeSubscriptions(ctx context.Context, appID string, eventType models.EventType) ([]*models.WebhookSubscription, error) {
	key := appID + "\x00" + string(eventType)
	if subs, ok := d.active.Get(key); ok {
		return subs, nil
	}
	epoch := d.active.Epoch()
	subs, err := d.store.ListActiveWebhooks(ctx, appID, eventType)
	if err != nil {
		return nil, fmt.Errorf("list webhooks for %s: %w", appID, err)
	}
	d.active.AddAt(epoch, key, subs)
	return subs, nil
}

func taskID(webhookID, eventID string, attempt int) string {
	return fmt.Sprintf("wh:%s:%s:%d", webhookID, eventID, attempt)
}

// Payload is the JSON body posted to subscribers.
type Payload struct {
	Event     models.EventType `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      PayloadData      `json:"data"`
}

// PayloadData carries the event. EventID is the receiver's idempotency key.
type PayloadData struct {
	EventID    string                `json:"eventId"`
	AppID      string                `json:"appId"`
	ChannelID  string                `json:"channelId,omitempty"`
	UserID     string                `json:"userId,omitempty"`
	Message    *models.Message       `json:"message,omitempty"`
	Channel    *models.Channel       `json:"channel,omitempty"`
	Member     *models.ChannelMember `json:"member,omitempty"`
	Reaction   *models.Reaction      `json:"reaction,omitempty"`
	LastReadAt *time.Time            `json:"lastReadAt,omitempty"`
	Extra      models.Metadata       `json:"extra,omitempty"`
}

func renderBody(e *models.Event) (json.RawMessage, error) {
	return json.Marshal(Payload{
		Event:     e.Type,
		Timestamp: e.CreatedAt.UTC(),
		Data: PayloadData{
			EventID:    e.ID,
			AppID:      e.AppID,
			ChannelID:  e.ChannelID,
			UserID:     e.UserID,
			Message:    e.Message,
			Channel:    e.Channel,
			Member:     e.Member,
			Reaction:   e.Reaction,
			LastReadAt: e.LastReadAt,
			Extra:      e.Extra,
		},
	})
}
