// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import (
	"slices"
	"time"
)

// WildcardEvent subscribes to every webhook-eligible event type.
const WildcardEvent = "*"

// WebhookSubscription is an external endpoint receiving signed event deliveries.
// Secret is never serialized; it is returned once on creation by the API layer.
type WebhookSubscription struct {
	ID         string    `json:"id"`
	AppID      string    `json:"appId"`
	URL        string    `json:"url"`
	Secret     string    `json:"-"`
	EventTypes []string  `json:"events"`
	IsActive   bool      `json:"isActive"`
	RetryCount int       `json:"retryCount"`
	TimeoutMs  int       `json:"timeoutMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Matches reports whether the subscription wants eventType.
func (w *WebhookSubscription) Matches(eventType EventType) bool {
	if !w.IsActive {
		return false
	}
	return slices.Contains(w.EventTypes, WildcardEvent) || slices.Contains(w.EventTypes, string(eventType))
}

// Timeout returns the per-attempt delivery timeout.
func (w *WebhookSubscription) Timeout() time.Duration {
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// DeliveryLog is an append-only record of one delivery attempt.
// ResponseStatus is zero when no HTTP response was received.
type DeliveryLog struct {
	ID             string        `json:"id"`
	WebhookID      string        `json:"webhookId"`
	EventID        string        `json:"eventId"`
	EventType      EventType     `json:"eventType"`
	Attempt        int           `json:"attempt"`
	ResponseStatus int           `json:"responseStatus,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"durationNs"`
	Final          bool          `json:"final"`
	DeliveredAt    time.Time     `json:"deliveredAt"`
}

// Succeeded reports whether the attempt received a 2xx response.
func (d *DeliveryLog) Succeeded() bool {
	return d.Error == "" && d.ResponseStatus >= 200 && d.ResponseStatus < 300
}
