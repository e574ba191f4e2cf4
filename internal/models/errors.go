// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrorKind is a taxonomy code returned to REST and WebSocket callers.
type ErrorKind string

// Error kinds.
const (
	KindValidation            ErrorKind = "ValidationError"
	KindUnauthenticated       ErrorKind = "Unauthenticated"
	KindPermissionDenied      ErrorKind = "PermissionDenied"
	KindNotFound              ErrorKind = "NotFound"
	KindConflict              ErrorKind = "Conflict"
	KindPinLimitExceeded      ErrorKind = "PinLimitExceeded"
	KindSlowModeCooldown      ErrorKind = "SlowModeCooldown"
	KindChannelFrozen         ErrorKind = "ChannelFrozen"
	KindBanned                ErrorKind = "Banned"
	KindLastOwnerConstraint   ErrorKind = "LastOwnerConstraint"
	KindStorageUnavailable    ErrorKind = "StorageUnavailable"
	KindWebhookDeliveryFailed ErrorKind = "WebhookDeliveryFailed"
	KindInternal              ErrorKind = "InternalError"
)

// Error is the typed error every service returns for expected failures.
type Error struct {
	Kind       ErrorKind
	Message    string
	Details    map[string]any
	RetryAfter time.Duration
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels such as ErrNotFound
// work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrPinLimitExceeded    = &Error{Kind: KindPinLimitExceeded}
	ErrSlowModeCooldown    = &Error{Kind: KindSlowModeCooldown}
	ErrChannelFrozen       = &Error{Kind: KindChannelFrozen}
	ErrBanned              = &Error{Kind: KindBanned}
	ErrLastOwnerConstraint = &Error{Kind: KindLastOwnerConstraint}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable}
)

// Validation reports malformed input.
func Validation(message string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// Unauthenticated reports missing or invalid credentials.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// PermissionDenied reports that the actor's role does not allow the action.
func PermissionDenied(action string) *Error {
	return &Error{
		Kind:    KindPermissionDenied,
		Message: "not allowed to " + action,
		Details: map[string]any{"action": action},
	}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: resource + " not found",
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// Conflict reports a uniqueness or state conflict.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// PinLimitExceeded reports that the channel already holds the maximum pins.
func PinLimitExceeded(channelID string) *Error {
	return &Error{
		Kind:    KindPinLimitExceeded,
		Message: fmt.Sprintf("channel already has %d pinned messages", MaxPinnedPerChannel),
		Details: map[string]any{"channelId": channelID, "limit": MaxPinnedPerChannel},
	}
}

// SlowModeCooldown reports a rejected send with the remaining cooldown.
func SlowModeCooldown(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindSlowModeCooldown,
		Message:    "slow mode is enabled for this channel",
		RetryAfter: retryAfter,
		Details:    map[string]any{"retryAfter": RetryAfterSeconds(retryAfter)},
	}
}

// ChannelFrozen reports a mutation against a frozen channel.
func ChannelFrozen(channelID string) *Error {
	return &Error{
		Kind:    KindChannelFrozen,
		Message: "channel is frozen",
		Details: map[string]any{"channelId": channelID},
	}
}

// Banned reports that the actor is banned from the channel.
func Banned(channelID string) *Error {
	return &Error{
		Kind:    KindBanned,
		Message: "user is banned from this channel",
		Details: map[string]any{"channelId": channelID},
	}
}

// LastOwnerConstraint reports an attempt to remove the channel's only owner.
func LastOwnerConstraint(channelID string) *Error {
	return &Error{
		Kind:    KindLastOwnerConstraint,
		Message: "the last owner cannot leave; promote another member first",
		Details: map[string]any{"channelId": channelID},
	}
}

// StorageUnavailable wraps a transient storage failure.
func StorageUnavailable(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable", Err: err}
}

// KindOf extracts the taxonomy kind of err, or KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// RetryAfterSeconds rounds d up to whole seconds, minimum 1.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied, KindChannelFrozen, KindBanned:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindPinLimitExceeded, KindLastOwnerConstraint:
		return http.StatusConflict
	case KindSlowModeCooldown:
		return http.StatusTooManyRequests
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
