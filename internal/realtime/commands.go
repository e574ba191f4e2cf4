// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
)

// MaxPresenceQuery bounds the user ids accepted by one presence.query.
const MaxPresenceQuery = 100

var (
	errNotAuthenticated = models.Unauthenticated("authenticate first")
	errRateLimited      = models.Validation("too many frames", map[string]any{"reason": "rate_limited"})
)

// handle dispatches one inbound command.
func (g *Gateway) handle(c *Conn, cmd *Command) {
	switch cmd.Type {
	case CommandPing:
		c.reply(Frame{Type: FramePong, RequestID: cmd.RequestID})
		return
	case CommandAuthenticate:
		var data authenticateData
		if !decodeInto(c, cmd, &data) {
			return
		}
		g.authenticate(c, cmd.RequestID, data.Token)
		return
	}

	if c.Identity() == nil {
		c.reply(errorFrame(cmd.RequestID, errNotAuthenticated))
		return
	}
	if !c.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		c.reply(errorFrame(cmd.RequestID, errRateLimited))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case CommandJoin:
		err = g.handleJoin(ctx, c, cmd)
	case CommandLeave:
		err = g.handleLeave(c, cmd)
	case CommandSend:
		err = g.handleSend(ctx, c, cmd)
	case CommandTypingStart:
		err = g.handleTyping(ctx, c, cmd, true)
	case CommandTypingStop:
		err = g.handleTyping(ctx, c, cmd, false)
	case CommandPresenceQuery:
		err = g.handlePresenceQuery(c, cmd)
	default:
		err = models.Validation("unknown command", map[string]any{"type": cmd.Type})
	}
	if err != nil {
		c.reply(errorFrame(cmd.RequestID, err))
	}
}

func decodeInto(c *Conn, cmd *Command, v any) bool {
	if len(cmd.Data) == 0 {
		c.reply(errorFrame(cmd.RequestID, errMalformed))
		return false
	}
	if err := json.Unmarshal(cmd.Data, v); err != nil {
		c.reply(errorFrame(cmd.RequestID, errMalformed))
		return false
	}
	return true
}

func decodeChannel(cmd *Command) (string, error) {
	var data channelData
	if len(cmd.Data) == 0 || json.Unmarshal(cmd.Data, &data) != nil {
		return "", errMalformed
	}
	if data.ChannelID == "" {
		return "", models.Validation("channelId is required", nil)
	}
	return data.ChannelID, nil
}

// handleJoin subscribes the session to a channel it is a member of.
func (g *Gateway) handleJoin(ctx context.Context, c *Conn, cmd *Command) error {
	channelID, err := decodeChannel(cmd)
	if err != nil {
		return err
	}
	id := c.Identity()
	if _, err := g.members.Member(ctx, id.AppID, channelID, id.UserID); err != nil {
		return err
	}
	seq, ok := g.joinRoom(channelID, c)
	if !ok {
		return nil
	}
	c.reply(Frame{Type: FrameJoined, ChannelID: channelID, RequestID: cmd.RequestID, Data: joinedData{ChannelID: channelID, Seq: seq}})
	return nil
}

func (g *Gateway) handleLeave(c *Conn, cmd *Command) error {
	channelID, err := decodeChannel(cmd)
	if err != nil {
		return err
	}
	id := c.Identity()
	g.leaveRoom(channelID, c)
	g.typing.stopFor(typingKey{id.AppID, channelID, id.UserID}, c.id)
	c.reply(Frame{Type: FrameLeft, ChannelID: channelID, RequestID: cmd.RequestID, Data: channelData{ChannelID: channelID}})
	return nil
}

// handleSend submits a message. The ack carries the stored message, which
// may be in the failed state; the channel broadcast is separate.
func (g *Gateway) handleSend(ctx context.Context, c *Conn, cmd *Command) error {
	var data sendData
	if len(cmd.Data) == 0 || json.Unmarshal(cmd.Data, &data) != nil {
		return errMalformed
	}
	id := c.Identity()
	msg, err := g.sender.Send(ctx, message.SendParams{
		AppID:           id.AppID,
		ChannelID:       data.ChannelID,
		UserID:          id.UserID,
		Text:            data.Text,
		Attachments:     data.Attachments,
		Mentions:        data.Mentions,
		QuotedMessageID: data.QuotedMessageID,
		ParentMessageID: data.ParentMessageID,
		ShowInChannel:   data.ShowInChannel,
		Silent:          data.Silent,
		Metadata:        data.Metadata,
	})
	if err != nil {
		return err
	}
	g.typing.stop(id.AppID, data.ChannelID, id.UserID)
	c.reply(Frame{Type: FrameMessageAck, ChannelID: data.ChannelID, RequestID: cmd.RequestID, Data: msg})
	return nil
}

// handleTyping requires a subscription. Banned members are refused;
// shadow-banned members only see their own indicator.
func (g *Gateway) handleTyping(ctx context.Context, c *Conn, cmd *Command, started bool) error {
	channelID, err := decodeChannel(cmd)
	if err != nil {
		return err
	}
	id := c.Identity()
	if !c.joined(channelID) {
		return models.Validation("join the channel first", map[string]any{"channelId": channelID})
	}
	if !started {
		g.typing.stop(id.AppID, channelID, id.UserID)
		return nil
	}

	member, err := g.members.Member(ctx, id.AppID, channelID, id.UserID)
	if err != nil {
		return err
	}
	now := g.now()
	if member.Banned(now) {
		return models.Banned(channelID)
	}
	g.typing.start(typingKey{id.AppID, channelID, id.UserID}, c.id, member.ShadowBanned(now))
	return nil
}

func (g *Gateway) handlePresenceQuery(c *Conn, cmd *Command) error {
	var data presenceQueryData
	if len(cmd.Data) == 0 || json.Unmarshal(cmd.Data, &data) != nil {
		return errMalformed
	}
	if len(data.UserIDs) > MaxPresenceQuery {
		return models.Validation("too many user ids", map[string]any{"max": MaxPresenceQuery})
	}
	id := c.Identity()
	states := make([]PresenceState, 0, len(data.UserIDs))
	for _, u := range data.UserIDs {
		states = append(states, PresenceState{UserID: u, Status: g.presence.Status(id.AppID, u)})
	}
	c.reply(Frame{Type: FramePresenceState, RequestID: cmd.RequestID, Data: states})
	return nil
}
