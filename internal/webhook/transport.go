// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// TriggerTopic carries webhook-eligible events from the bus to the fan-out
// handler.
const TriggerTopic = "switchboard.webhook.triggers"

const (
	fanoutHandlerName = "webhook-fanout"
	natsQueueGroup    = "webhook-dispatcher"

	// TriggerStream holds TriggerTopic on JetStream. Stream names cannot
	// contain dots, so the stream is created up front and bound by name
	// instead of auto-provisioned from the topic.
	TriggerStream = "SWITCHBOARD_WEBHOOK_TRIGGERS"
)

// transport is the pub/sub pair the trigger topic runs on.
type transport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	shared     bool
}

func newGoChannelTransport(logger watermill.LoggerAdapter) *transport {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)
	return &transport{publisher: pubsub, subscriber: pubsub, shared: true}
}

// newNATSTransport connects the trigger topic to NATS JetStream. A queue
// group spreads triggers across nodes so each event fans out once.
func newNATSTransport(url string, logger watermill.LoggerAdapter) (*transport, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	if err := ensureTriggerStream(url); err != nil {
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: natsQueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: natsQueueGroup,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(TriggerStream),
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return &transport{publisher: pub, subscriber: sub}, nil
}

// ensureTriggerStream creates or updates TriggerStream. Triggers older than
// a day are dropped; duplicate publishes of one event id within two minutes
// are stored once.
func ensureTriggerStream(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nc, err := natsgo.Connect(url, natsgo.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       TriggerStream,
		Subjects:   []string{TriggerTopic},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("provision stream %s: %w", TriggerStream, err)
	}
	return nil
}

func (t *transport) Close() error {
	pubErr := t.publisher.Close()
	if !t.shared {
		if err := t.subscriber.Close(); err != nil {
			return err
		}
	}
	return pubErr
}

// newRouter builds the fan-out router: panics become errors and failed
// fan-outs are retried with backoff before the message is nacked.
func newRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)
	return router, nil
}
