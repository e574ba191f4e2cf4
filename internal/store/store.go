// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package store defines the persistence contract used by the channel manager,
// the message pipeline and the webhook dispatcher.
//
// Adapters live in subpackages: memory (in-process, for tests and single-node
// development) and postgres (bun over pgdriver). Every adapter must honor the
// pre/post-conditions documented on each method; in particular the cascades
// are explicit and atomic:
//
//   - CreateChannel commits the channel and its initial members together or not at all
//   - DeleteChannel removes the channel, its members, messages, reactions and receipts
//   - DeleteMessage removes the message, its reactions and read receipts
//
// Adapters return ErrNotFound, ErrConflict and ErrPinLimit (possibly wrapped)
// for the expected failures. Any other error is treated as the store being
// unavailable.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/switchboard/internal/models"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
	ErrPinLimit = errors.New("store: pin limit reached")
)

// HistoryQuery selects a page of channel or thread messages ordered by
// (CreatedAt, ID).
//
// With neither cursor set the newest Limit messages are returned. Before
// pages backwards, After pages forwards. Results are always ascending.
type HistoryQuery struct {
	ChannelID string

	// ParentID lists the replies of one thread instead of the channel timeline.
	ParentID string

	Limit  int
	Before *models.Cursor
	After  *models.Cursor

	// Since excludes messages created at or before it (truncation cutoff).
	Since *time.Time

	// ViewerID hides shadowed messages that ViewerID did not author.
	ViewerID string

	// IncludeDeleted keeps soft-deleted rows, used when rendering threads.
	IncludeDeleted bool
}

// UnreadQuery counts visible timeline messages newer than Since that
// UserID did not author.
type UnreadQuery struct {
	ChannelID string
	UserID    string
	Since     *time.Time
}

// ThreadStats are the denormalized counters stored on a thread parent.
type ThreadStats struct {
	ReplyCount   int
	Participants int
	LastReplyAt  *time.Time
}

// ChannelStore persists channels and memberships.
type ChannelStore interface {
	// CreateChannel inserts ch and members atomically. For a distinct channel
	// it returns ErrConflict when another channel in the app has the same
	// MemberKey.
	CreateChannel(ctx context.Context, ch *models.Channel, members []*models.ChannelMember) error
	FindDistinctChannel(ctx context.Context, appID, memberKey string) (*models.Channel, error)
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	UpdateChannel(ctx context.Context, ch *models.Channel) error
	DeleteChannel(ctx context.Context, id string) error

	GetMember(ctx context.Context, channelID, userID string) (*models.ChannelMember, error)
	ListMembers(ctx context.Context, channelID string) ([]*models.ChannelMember, error)

	// AddMembers inserts members that are not already present and returns the
	// inserted rows. A distinct channel's MemberKey is recomputed in the same
	// unit; a collision with another distinct channel yields ErrConflict and
	// nothing is inserted.
	AddMembers(ctx context.Context, channelID string, members []*models.ChannelMember) ([]*models.ChannelMember, error)
	UpdateMember(ctx context.Context, m *models.ChannelMember) error

	// RemoveMember deletes the membership row, recomputing MemberKey like AddMembers.
	RemoveMember(ctx context.Context, channelID, userID string) error

	// ListUserChannelIDs returns the ids of the app's channels userID belongs to.
	ListUserChannelIDs(ctx context.Context, appID, userID string) ([]string, error)
}

// MessageStore persists messages, reactions and read receipts.
type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessage(ctx context.Context, m *models.Message) error

	// DeleteMessage hard-deletes the row and cascades reactions and receipts.
	// Messages quoting or replying to it keep their dangling reference.
	DeleteMessage(ctx context.Context, id string) error

	ListMessages(ctx context.Context, q HistoryQuery) ([]*models.Message, bool, error)

	// ThreadChannel returns the channel of any reply to parentID, so a thread
	// stays reachable after its parent is hard-deleted.
	ThreadChannel(ctx context.Context, parentID string) (string, error)
	CountUnread(ctx context.Context, q UnreadQuery) (int, error)

	// RecomputeThread recalculates the parent's thread counters from its
	// replies and stores them without touching the parent's UpdatedAt.
	RecomputeThread(ctx context.Context, parentID string) (*models.Message, error)

	// PinMessage pins a message if the channel holds fewer than max pins,
	// otherwise returns ErrPinLimit. Pinning an already pinned message is a
	// no-op. UpdatedAt is left untouched.
	PinMessage(ctx context.Context, id, by string, at time.Time, max int) (*models.Message, error)
	UnpinMessage(ctx context.Context, id string) (*models.Message, error)
	CountPinned(ctx context.Context, channelID string) (int, error)

	// UpsertReaction reports whether a new row was created.
	UpsertReaction(ctx context.Context, r *models.Reaction) (bool, error)
	// DeleteReaction reports whether a row was removed.
	DeleteReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageID string) ([]*models.Reaction, error)

	UpsertReadReceipt(ctx context.Context, r *models.ReadReceipt) error
}

// WebhookStore persists webhook subscriptions and their delivery log.
type WebhookStore interface {
	CreateWebhook(ctx context.Context, w *models.WebhookSubscription) error
	GetWebhook(ctx context.Context, id string) (*models.WebhookSubscription, error)
	ListWebhooks(ctx context.Context, appID string) ([]*models.WebhookSubscription, error)
	UpdateWebhook(ctx context.Context, w *models.WebhookSubscription) error

	// ListActiveWebhooks returns active subscriptions of appID matching eventType.
	ListActiveWebhooks(ctx context.Context, appID string, eventType models.EventType) ([]*models.WebhookSubscription, error)

	AppendDeliveryLog(ctx context.Context, l *models.DeliveryLog) error
	// ListDeliveryLogs returns the newest limit rows, newest first.
	ListDeliveryLogs(ctx context.Context, webhookID string, limit int) ([]*models.DeliveryLog, error)
}

// Store is the full persistence contract.
type Store interface {
	ChannelStore
	MessageStore
	WebhookStore

	Ping(ctx context.Context) error
	Close() error
}
