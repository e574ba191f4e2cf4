// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

// Limits on subscription settings.
const (
	MaxRetryCount      = 10
	MaxTimeout         = 30 * time.Second
	DefaultLogPageSize = 50
	MaxLogPageSize     = 500
	secretBytes        = 32
)

// SubscribeParams describes a new subscription. Zero RetryCount and Timeout
// take the configured defaults; an empty Secret is generated.
type SubscribeParams struct {
	AppID      string
	URL        string
	EventTypes []string
	Secret     string
	RetryCount *int
	Timeout    time.Duration
}

// Subscribe registers an endpoint. The returned subscription is the only
// place the secret is ever exposed.
func (d *Dispatcher) Subscribe(ctx context.Context, p SubscribeParams) (*models.WebhookSubscription, error) {
	if err := validateURL(p.URL); err != nil {
		return nil, err
	}
	if len(p.EventTypes) == 0 {
		return nil, models.Validation("at least one event type is required", nil)
	}
	seen := make(map[string]struct{}, len(p.EventTypes))
	types := make([]string, 0, len(p.EventTypes))
	for _, t := range p.EventTypes {
		if t != models.WildcardEvent && !models.EventType(t).IsWebhookEvent() {
			return nil, models.Validation("unknown event type", map[string]any{"event": t})
		}
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}

	retries := d.cfg.DefaultRetryCount
	if p.RetryCount != nil {
		retries = *p.RetryCount
	}
	if retries < 0 || retries > MaxRetryCount {
		return nil, models.Validation("retryCount out of range", map[string]any{"max": MaxRetryCount})
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = d.cfg.DefaultTimeout
	}
	if timeout < 0 || timeout > MaxTimeout {
		return nil, models.Validation("timeout out of range", map[string]any{"maxMs": MaxTimeout.Milliseconds()})
	}

	secret := p.Secret
	if secret == "" {
		var err error
		if secret, err = generateSecret(); err != nil {
			return nil, models.StorageUnavailable(err)
		}
	}

	w := &models.WebhookSubscription{
		ID:         uuid.NewString(),
		AppID:      p.AppID,
		URL:        p.URL,
		Secret:     secret,
		EventTypes: types,
		IsActive:   true,
		RetryCount: retries,
		TimeoutMs:  int(timeout / time.Millisecond),
		CreatedAt:  d.now(),
	}
	if err := d.store.CreateWebhook(ctx, w); err != nil {
		return nil, store.Translate(err, "webhook", w.ID)
	}
	d.active.Purge()
	d.logger.Info().Str("app_id", w.AppID).Str("webhook_id", w.ID).Strs("events", types).Msg("webhook subscribed")
	return w, nil
}

// get loads a subscription scoped to appID.
func (d *Dispatcher) get(ctx context.Context, appID, id string) (*models.WebhookSubscription, error) {
	w, err := d.store.GetWebhook(ctx, id)
	if err != nil {
		return nil, store.Translate(err, "webhook", id)
	}
	if w.AppID != appID {
		return nil, models.NotFound("webhook", id)
	}
	return w, nil
}

// Unsubscribe deactivates a subscription. Its delivery log is kept and
// pending retries are dropped when they fire.
func (d *Dispatcher) Unsubscribe(ctx context.Context, appID, id string) error {
	w, err := d.get(ctx, appID, id)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return nil
	}
	w.IsActive = false
	if err := d.store.UpdateWebhook(ctx, w); err != nil {
		return store.Translate(err, "webhook", id)
	}
	d.active.Purge()
	d.dropBreaker(id)
	d.logger.Info().Str("app_id", appID).Str("webhook_id", id).Msg("webhook unsubscribed")
	return nil
}

// List returns an app's subscriptions.
func (d *Dispatcher) List(ctx context.Context, appID string) ([]*models.WebhookSubscription, error) {
	subs, err := d.store.ListWebhooks(ctx, appID)
	if err != nil {
		return nil, store.Translate(err, "webhook", appID)
	}
	return subs, nil
}

// DeliveryLogs returns the newest attempts for a subscription, newest first.
func (d *Dispatcher) DeliveryLogs(ctx context.Context, appID, id string, limit int) ([]*models.DeliveryLog, error) {
	if _, err := d.get(ctx, appID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogPageSize
	}
	if limit > MaxLogPageSize {
		limit = MaxLogPageSize
	}
	logs, err := d.store.ListDeliveryLogs(ctx, id, limit)
	if err != nil {
		return nil, store.Translate(err, "webhook", id)
	}
	return logs, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.Validation("url must be an absolute http or https URL", map[string]any{"url": raw})
	}
	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
