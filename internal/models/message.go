// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import "time"

// MessageType distinguishes user content from system notices and tombstones.
type MessageType string

// Message types.
const (
	MessageText    MessageType = "text"
	MessageSystem  MessageType = "system"
	MessageDeleted MessageType = "deleted"
)

// MessageStatus tracks the local-first send lifecycle.
type MessageStatus string

// Message statuses.
const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// MaxPinnedPerChannel caps simultaneously pinned messages in one channel.
const MaxPinnedPerChannel = 50

// UnavailableText is rendered in place of a hard-deleted message.
const UnavailableText = "message unavailable"

// Attachment is a file or link carried by a message.
type Attachment struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is a single chat message.
//
// ParentMessageID and QuotedMessageID are empty when unset. ThreadParticipantCount,
// ThreadLastMessageAt and ReplyCount are only maintained on thread parents.
type Message struct {
	ID              string        `json:"id"`
	ChannelID       string        `json:"channelId"`
	UserID          string        `json:"userId"`
	ParentMessageID string        `json:"parentMessageId,omitempty"`
	QuotedMessageID string        `json:"quotedMessageId,omitempty"`
	Text            string        `json:"text,omitempty"`
	Type            MessageType   `json:"type"`
	Status          MessageStatus `json:"status"`
	IsSilent        bool          `json:"isSilent"`
	IsPinned        bool          `json:"isPinned"`
	PinnedAt        *time.Time    `json:"pinnedAt,omitempty"`
	PinnedBy        string        `json:"pinnedBy,omitempty"`
	ShowInChannel   bool          `json:"showInChannel,omitempty"`
	Mentions        []string      `json:"mentions,omitempty"`
	Attachments     []Attachment  `json:"attachments,omitempty"`
	Metadata        Metadata      `json:"metadata,omitempty"`
	IsDeleted       bool          `json:"isDeleted"`

	// Shadowed marks a message sent while its author was shadow banned. It is
	// visible only to the author.
	Shadowed bool `json:"-"`

	ReplyCount             int        `json:"replyCount,omitempty"`
	ThreadParticipantCount int        `json:"threadParticipantCount,omitempty"`
	ThreadLastMessageAt    *time.Time `json:"threadLastMessageAt,omitempty"`

	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Resolved references, populated on read. A hard-deleted target resolves
	// to an unavailable tombstone instead of an error.
	QuotedMessage *Message `json:"quotedMessage,omitempty"`
	ParentMessage *Message `json:"parentMessage,omitempty"`
	Unavailable   bool     `json:"unavailable,omitempty"`
}

// IsEdited reports whether the message text changed after creation.
func (m *Message) IsEdited() bool {
	return !m.UpdatedAt.Equal(m.CreatedAt)
}

// IsReply reports whether m belongs to a thread.
func (m *Message) IsReply() bool {
	return m.ParentMessageID != ""
}

// VisibleTo reports whether viewer may see m.
func (m *Message) VisibleTo(viewer string) bool {
	return !m.Shadowed || m.UserID == viewer
}

// InTimeline reports whether m belongs in the channel's main history:
// top-level messages and replies that were also shown in channel.
func (m *Message) InTimeline() bool {
	return !m.IsReply() || m.ShowInChannel
}

// SoftDelete clears content while keeping the row and its thread/quote links.
// A deleted message gives up its pin slot.
func (m *Message) SoftDelete(now time.Time) {
	m.Text = ""
	m.Attachments = nil
	m.Mentions = nil
	m.Metadata = nil
	m.IsPinned = false
	m.PinnedAt = nil
	m.PinnedBy = ""
	m.IsDeleted = true
	m.Type = MessageDeleted
	m.UpdatedAt = now
}

// Tombstone returns the placeholder rendered for a hard-deleted message id.
func Tombstone(id, channelID string) *Message {
	return &Message{
		ID:          id,
		ChannelID:   channelID,
		Type:        MessageDeleted,
		IsDeleted:   true,
		Unavailable: true,
		Text:        UnavailableText,
	}
}

// AsTombstone returns the quote/thread rendering of a soft-deleted message.
func (m *Message) AsTombstone() *Message {
	return &Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		UserID:          m.UserID,
		ParentMessageID: m.ParentMessageID,
		Type:            MessageDeleted,
		Status:          m.Status,
		IsDeleted:       true,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// Reaction is unique per (MessageID, UserID, Emoji).
type Reaction struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReadReceipt is unique per (MessageID, UserID).
type ReadReceipt struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

// Cursor is a history position keyed by (CreatedAt, ID).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether position (t, id) sorts before c.
func (c Cursor) Before(t time.Time, id string) bool {
	if t.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return t.Before(c.CreatedAt)
}

// After reports whether position (t, id) sorts after c.
func (c Cursor) After(t time.Time, id string) bool {
	if t.Equal(c.CreatedAt) {
		return id > c.ID
	}
	return t.After(c.CreatedAt)
}

// CursorOf returns the cursor position of m.
func CursorOf(m *Message) Cursor {
	return Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}
