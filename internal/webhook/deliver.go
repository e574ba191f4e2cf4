// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

// Request headers.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderID        = "X-Webhook-Id"
	HeaderAttempt   = "X-Webhook-Attempt"
)

const userAgent = "Switchboard-Webhooks/1.0"

// deliveryJob is the payload of a webhook.deliver task. Body is rendered
// once so every attempt signs identical bytes.
type deliveryJob struct {
	WebhookID string           `json:"webhookId"`
	EventID   string           `json:"eventId"`
	EventType models.EventType `json:"eventType"`
	Body      json.RawMessage  `json:"body"`
}

// Sign returns the X-Webhook-Signature value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Backoff is the delay before the attempt after attempt:
// min(2^attempt * base, max).
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 62 {
		return maxDelay
	}
	d := base << uint(attempt)
	if d <= 0 || d > maxDelay {
		return maxDelay
	}
	return d
}

// HandleDeliver runs one delivery attempt for a webhook.deliver task. It
// always records the attempt and schedules the next one while retries
// remain. It only returns an error when the retry could not be scheduled.
func (d *Dispatcher) HandleDeliver(ctx context.Context, task *scheduler.Task) error {
	var job deliveryJob
	if err := task.Decode(&job); err != nil {
		d.logger.Error().Err(err).Str("task_id", task.ID).Msg("Dropping undecodable delivery task")
		return nil
	}

	sub, err := d.store.GetWebhook(ctx, job.WebhookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !sub.IsActive {
		d.logger.Debug().Str("webhook_id", sub.ID).Str("event_id", job.EventID).Msg("Skipping delivery to inactive webhook")
		return nil
	}

	attempt := task.Attempt
	status, dur, deliverErr := d.attempt(ctx, sub, &job, attempt)
	final := deliverErr == nil || attempt >= sub.RetryCount

	entry := &models.DeliveryLog{
		ID:             uuid.NewString(),
		WebhookID:      sub.ID,
		EventID:        job.EventID,
		EventType:      job.EventType,
		Attempt:        attempt,
		ResponseStatus: status,
		Duration:       dur,
		Final:          final,
		DeliveredAt:    d.now(),
	}
	if deliverErr != nil {
		entry.Error = fmt.Sprintf("%s: %v", models.KindWebhookDeliveryFailed, deliverErr)
	}
	if err := d.store.AppendDeliveryLog(ctx, entry); err != nil {
		d.logger.Warn().Err(err).Str("webhook_id", sub.ID).Str("event_id", job.EventID).Msg("Failed to append delivery log")
	}

	log := d.logger.With().
		Str("webhook_id", sub.ID).
		Str("event_id", job.EventID).
		Str("event_type", string(job.EventType)).
		Int("attempt", attempt).
		Int("status", status).
		Logger()

	switch {
	case deliverErr == nil:
		metrics.RecordWebhookAttempt("success", dur)
		log.Debug().Dur("duration", dur).Msg("webhook delivered")
		return nil
	case final:
		metrics.RecordWebhookAttempt("failed", dur)
		log.Warn().Err(deliverErr).Msg("webhook delivery permanently failed")
		return nil
	}

	metrics.RecordWebhookAttempt("retry", dur)
	delay := Backoff(attempt, d.cfg.BaseDelay, d.cfg.MaxDelay)
	next, err := scheduler.NewTask(taskID(sub.ID, job.EventID, attempt+1), scheduler.KindWebhookDeliver, d.now().Add(delay), job)
	if err != nil {
		return err
	}
	next.Attempt = attempt + 1
	if err := d.tasks.Schedule(ctx, next); err != nil {
		return fmt.Errorf("schedule retry for %s: %w", sub.ID, err)
	}
	log.Info().Err(deliverErr).Dur("retry_in", delay).Msg("webhook delivery failed, retrying")
	return nil
}

// attempt posts the body once under the subscription's timeout.
func (d *Dispatcher) attempt(ctx context.Context, sub *models.WebhookSubscription, job *deliveryJob, attempt int) (int, time.Duration, error) {
	timeout := time.Duration(sub.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = d.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(job.Body))
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderSignature, Sign(sub.Secret, job.Body))
	req.Header.Set(HeaderEvent, string(job.EventType))
	req.Header.Set(HeaderID, job.EventID)
	req.Header.Set(HeaderAttempt, strconv.Itoa(attempt))

	start := time.Now()
	status, err := d.breaker(sub.ID).Execute(func() (int, error) {
		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	return status, time.Since(start), err
}

// breaker returns the circuit breaker guarding one subscription.
func (d *Dispatcher) breaker(webhookID string) *gobreaker.CircuitBreaker[int] {
	d.breakersMu.Lock()
	defer d.breakersMu.Unlock()
	if cb, ok := d.breakers[webhookID]; ok {
		return cb
	}
	threshold := d.cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "webhook:" + webhookID,
		MaxRequests: 1,
		Timeout:     d.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			d.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("webhook circuit breaker state changed")
		},
	})
	d.breakers[webhookID] = cb
	return cb
}

func (d *Dispatcher) dropBreaker(webhookID string) {
	d.breakersMu.Lock()
	delete(d.breakers, webhookID)
	d.breakersMu.Unlock()
}
