// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/models"
)

// Client to server command types.
const (
	CommandAuthenticate  = "authenticate"
	CommandJoin          = "channel.join"
	CommandLeave         = "channel.leave"
	CommandSend          = "message.send"
	CommandTypingStart   = "typing.start"
	CommandTypingStop    = "typing.stop"
	CommandPresenceQuery = "presence.query"
	CommandPing          = "ping"
)

// Server to client frame types that are not domain events.
const (
	FrameConnectionAck = "connection.ack"
	FrameJoined        = "channel.joined"
	FrameLeft          = "channel.left"
	FrameMessageAck    = "message.ack"
	FramePresenceState = "presence.state"
	FrameError         = "error"
	FramePong          = "pong"
)

// Command is an inbound frame.
type Command struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Frame is an outbound frame. Seq is set on frames fanned out to a channel's
// subscribers and increases by one per frame within that channel.
type Frame struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type authenticateData struct {
	Token string `json:"token"`
}

type channelData struct {
	ChannelID string `json:"channelId"`
}

type sendData struct {
	ChannelID       string              `json:"channelId"`
	Text            string              `json:"text"`
	Attachments     []models.Attachment `json:"attachments"`
	Mentions        []string            `json:"mentions"`
	QuotedMessageID string              `json:"quotedMessageId"`
	ParentMessageID string              `json:"parentMessageId"`
	ShowInChannel   bool                `json:"showInChannel"`
	Silent          bool                `json:"silent"`
	Metadata        models.Metadata     `json:"metadata"`
}

type presenceQueryData struct {
	UserIDs []string `json:"userIds"`
}

// PresenceState is one user's status in a presence.state reply.
type PresenceState struct {
	UserID string                `json:"userId"`
	Status models.PresenceStatus `json:"status"`
}

type connectionAck struct {
	ConnectionID uint64 `json:"connectionId"`
	UserID       string `json:"userId"`
}

type joinedData struct {
	ChannelID string `json:"channelId"`
	Seq       uint64 `json:"seq"`
}

type errorData struct {
	Code       models.ErrorKind `json:"code"`
	Message    string           `json:"message"`
	Details    map[string]any   `json:"details,omitempty"`
	RetryAfter int              `json:"retryAfter,omitempty"`
}

// errorFrame renders err in the error taxonomy. Untyped errors are reported
// as internal without their text.
func errorFrame(requestID string, err error) Frame {
	data := errorData{Code: models.KindOf(err), Message: "internal error"}
	var typed *models.Error
	if errors.As(err, &typed) {
		data.Message = typed.Message
		data.Details = typed.Details
		if typed.RetryAfter > 0 {
			data.RetryAfter = models.RetryAfterSeconds(typed.RetryAfter)
		}
	}
	return Frame{Type: FrameError, RequestID: requestID, Data: data}
}

// eventView hides moderation-only fields from clients.
func eventView(e *models.Event) *models.Event {
	view := *e
	view.Shadow = false
	return &view
}

func encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
