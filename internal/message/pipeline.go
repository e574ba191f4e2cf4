// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package message

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/ratelimit"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

// Limits on message content.
const (
	MaxTextLength    = 10000
	MaxAttachments   = 30
	MaxMentions      = 100
	MaxEmojiLength   = 64
	DefaultPageSize  = 25
	MaxPageSize      = 100
	MaxScheduleAhead = 30 * 24 * time.Hour
)

// Store is the persistence the pipeline needs.
type Store interface {
	store.MessageStore
	UpdateMember(ctx context.Context, m *models.ChannelMember) error
}

// Channels resolves a channel and the caller's membership. A nil member
// means the caller may read but does not belong to the channel.
type Channels interface {
	Access(ctx context.Context, appID, channelID, userID string) (*models.Channel, *models.ChannelMember, error)
}

// Authorizer decides whether a role permits an action.
type Authorizer interface {
	Can(role models.Role, action authz.Action) bool
}

// TaskScheduler schedules delayed tasks.
type TaskScheduler interface {
	Schedule(ctx context.Context, task *scheduler.Task) error
}

// Pipeline implements message operations.
type Pipeline struct {
	store    Store
	channels Channels
	authz    Authorizer
	limiter  ratelimit.Limiter
	events   events.Publisher
	locks    *events.ChannelLocks
	tasks    TaskScheduler
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithScheduler enables ScheduleSend.
func WithScheduler(tasks TaskScheduler) Option {
	return func(p *Pipeline) { p.tasks = tasks }
}

// NewPipeline creates a message pipeline. locks must be the table shared with
// the channel manager.
func NewPipeline(st Store, channels Channels, az Authorizer, limiter ratelimit.Limiter, pub events.Publisher, locks *events.ChannelLocks, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		channels: channels,
		authz:    az,
		limiter:  limiter,
		events:   pub,
		locks:    locks,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logging.WithComponent("message-pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SendParams describes a new message.
type SendParams struct {
	AppID           string
	ChannelID       string
	UserID          string
	Text            string
	Attachments     []models.Attachment
	Mentions        []string
	QuotedMessageID string
	ParentMessageID string
	ShowInChannel   bool
	Silent          bool
	Metadata        models.Metadata
}

func (s *SendParams) validate() error {
	if s.AppID == "" || s.ChannelID == "" || s.UserID == "" {
		return models.Validation("channel and user are required", nil)
	}
	if s.Text == "" && len(s.Attachments) == 0 {
		return models.Validation("text or attachments are required", nil)
	}
	if len(s.Text) > MaxTextLength {
		return models.Validation("text is too long", map[string]any{"max": MaxTextLength})
	}
	if len(s.Attachments) > MaxAttachments {
		return models.Validation("too many attachments", map[string]any{"max": MaxAttachments})
	}
	for _, a := range s.Attachments {
		if a.Type == "" || a.URL == "" {
			return models.Validation("attachments need a type and url", nil)
		}
	}
	if len(s.Mentions) > MaxMentions {
		return models.Validation("too many mentions", map[string]any{"max": MaxMentions})
	}
	if s.ParentMessageID == "" && s.ShowInChannel {
		s.ShowInChannel = false
	}
	if s.Metadata != nil {
		return s.Metadata.Validate()
	}
	return nil
}

// admit runs the send checks in order. It must be called with the channel
// lock held. The returned member is never nil.
func (p *Pipeline) admit(ctx context.Context, sp *SendParams, now time.Time) (*models.Channel, *models.ChannelMember, error) {
	ch, member, err := p.channels.Access(ctx, sp.AppID, sp.ChannelID, sp.UserID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil || !p.authz.Can(member.Role, authz.ActionSend) {
		return nil, nil, models.PermissionDenied(string(authz.ActionSend))
	}
	if member.Banned(now) {
		return nil, nil, models.Banned(ch.ID)
	}
	if ch.IsFrozen {
		return nil, nil, models.ChannelFrozen(ch.ID)
	}

	decision, err := p.limiter.Admit(ctx, ch.ID, sp.UserID, ch.SlowMode())
	if err != nil {
		p.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Slow mode check failed, admitting send")
	} else if !decision.Allowed {
		return nil, nil, models.SlowModeCooldown(decision.RetryAfter)
	}

	if sp.ParentMessageID != "" {
		parent, err := p.sameChannel(ctx, ch.ID, sp.ParentMessageID, "parent message")
		if err != nil {
			return nil, nil, err
		}
		if parent.IsReply() {
			return nil, nil, models.Validation("replies cannot be nested", map[string]any{"parentMessageId": parent.ID})
		}
	}
	if sp.QuotedMessageID != "" {
		if _, err := p.sameChannel(ctx, ch.ID, sp.QuotedMessageID, "quoted message"); err != nil {
			return nil, nil, err
		}
	}
	return ch, member, nil
}

// sameChannel loads a referenced message and requires it to live in
// channelID.
func (p *Pipeline) sameChannel(ctx context.Context, channelID, messageID, what string) (*models.Message, error) {
	m, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, store.Translate(err, what, messageID)
	}
	if m.ChannelID != channelID {
		return nil, models.Validation(what+" belongs to another channel", map[string]any{"messageId": messageID})
	}
	if m.Status != models.StatusSent {
		return nil, models.NotFound(what, messageID)
	}
	return m, nil
}

// Send validates and commits a message, then publishes message.new.
//
// After admission a storage failure is not an error: the returned message
// carries status failed.
func (p *Pipeline) Send(ctx context.Context, sp SendParams) (*models.Message, error) {
	if err := sp.validate(); err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(sp.ChannelID)
	defer unlock()

	now := p.now()
	_, member, err := p.admit(ctx, &sp, now)
	if err != nil {
		metrics.RecordMessageSend(string(models.KindOf(err)))
		return nil, err
	}

	msg := newMessage(&sp, now)
	msg.Shadowed = member.ShadowBanned(now)

	if err := p.store.InsertMessage(ctx, msg); err != nil {
		msg.Status = models.StatusFailed
		metrics.RecordMessageSend(string(models.StatusFailed))
		p.logger.Error().Err(err).
			Str("channel_id", msg.ChannelID).
			Str("message_id", msg.ID).
			Msg("Failed to persist message")
		return msg, nil
	}

	p.commitSent(ctx, sp.AppID, msg)
	return msg, nil
}

// commitSent runs the post-commit side effects of a sent message. The
// channel lock must be held.
func (p *Pipeline) commitSent(ctx context.Context, appID string, msg *models.Message) {
	metrics.RecordMessageSend(string(models.StatusSent))
	if msg.ParentMessageID != "" {
		p.refreshThread(ctx, appID, msg.ParentMessageID, msg.Shadowed)
	}
	if msg.QuotedMessageID != "" {
		msg.QuotedMessage = p.resolveQuote(ctx, msg, msg.UserID)
	}
	p.publish(models.EventMessageNew, appID, msg, msg.UserID)
	p.logger.Debug().
		Str("channel_id", msg.ChannelID).
		Str("message_id", msg.ID).
		Bool("shadowed", msg.Shadowed).
		Msg("Message sent")
}

func newMessage(sp *SendParams, now time.Time) *models.Message {
	mentions := sp.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return &models.Message{
		ID:              newID(),
		ChannelID:       sp.ChannelID,
		UserID:          sp.UserID,
		ParentMessageID: sp.ParentMessageID,
		QuotedMessageID: sp.QuotedMessageID,
		Text:            sp.Text,
		Type:            models.MessageText,
		Status:          models.StatusSent,
		IsSilent:        sp.Silent,
		ShowInChannel:   sp.ShowInChannel,
		Mentions:        mentions,
		Attachments:     sp.Attachments,
		Metadata:        sp.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// refreshThread recomputes the parent's thread counters and announces them.
// A shadowed reply does not announce the change to other subscribers.
func (p *Pipeline) refreshThread(ctx context.Context, appID, parentID string, shadow bool) {
	parent, err := p.store.RecomputeThread(ctx, parentID)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", parentID).Msg("Failed to recompute thread")
		return
	}
	if shadow {
		return
	}
	p.publish(models.EventMessageUpdated, appID, parent, "")
}

func (p *Pipeline) publish(t models.EventType, appID string, msg *models.Message, actorID string) {
	e := models.NewEvent(t, appID, msg.ChannelID, actorID, p.now())
	e.Message = msg
	e.Shadow = msg.Shadowed
	p.events.Publish(e)
}

// Reply sends a message into parentID's thread.
func (p *Pipeline) Reply(ctx context.Context, parentID string, sp SendParams) (*models.Message, error) {
	parent, err := p.store.GetMessage(ctx, parentID)
	if err != nil {
		return nil, store.Translate(err, "message", parentID)
	}
	sp.ChannelID = parent.ChannelID
	sp.ParentMessageID = parentID
	return p.Send(ctx, sp)
}

// load fetches a message and the caller's access to its channel. Messages
// of other apps and shadowed messages of other users are reported as not
// found.
func (p *Pipeline) load(ctx context.Context, appID, messageID, userID string) (*models.Message, *models.Channel, *models.ChannelMember, error) {
	msg, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, nil, nil, store.Translate(err, "message", messageID)
	}
	if msg.Status != models.StatusSent && msg.UserID != userID {
		return nil, nil, nil, models.NotFound("message", messageID)
	}
	ch, member, err := p.channels.Access(ctx, appID, msg.ChannelID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, nil, models.NotFound("message", messageID)
		}
		return nil, nil, nil, err
	}
	if !msg.VisibleTo(userID) {
		return nil, nil, nil, models.NotFound("message", messageID)
	}
	return msg, ch, member, nil
}

// Edit replaces the text (and metadata when non-nil) of the caller's own
// message.
func (p *Pipeline) Edit(ctx context.Context, appID, messageID, userID, text string, metadata models.Metadata) (*models.Message, error) {
	if text == "" || len(text) > MaxTextLength {
		return nil, models.Validation("text must be 1-10000 characters", nil)
	}
	if metadata != nil {
		if err := metadata.Validate(); err != nil {
			return nil, err
		}
	}

	msg, ch, member, err := p.load(ctx, appID, messageID, userID)
	if err != nil {
		return nil, err
	}
	unlock := p.locks.Lock(ch.ID)
	defer unlock()

	// Reload under the lock so concurrent edits serialize on fresh state.
	if msg, err = p.store.GetMessage(ctx, messageID); err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	if msg.UserID != userID {
		return nil, models.PermissionDenied("edit")
	}
	if msg.IsDeleted || msg.Status != models.StatusSent {
		return nil, models.NotFound("message", messageID)
	}
	now := p.now()
	if member == nil {
		return nil, models.PermissionDenied("edit")
	}
	if member.Banned(now) {
		return nil, models.Banned(ch.ID)
	}
	if ch.IsFrozen {
		return nil, models.ChannelFrozen(ch.ID)
	}

	msg.Text = text
	if metadata != nil {
		msg.Metadata = metadata
	}
	msg.UpdatedAt = editTime(msg.CreatedAt, now)
	if err := p.store.UpdateMessage(ctx, msg); err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	p.publish(models.EventMessageUpdated, appID, msg, userID)
	return msg, nil
}

// editTime keeps UpdatedAt strictly after CreatedAt so IsEdited holds even
// when the clock has not advanced past storage precision.
func editTime(created, now time.Time) time.Time {
	if !now.After(created) {
		return created.Add(time.Microsecond)
	}
	return now
}

// Delete removes a message. The author or a moderator may delete. A soft
// delete keeps the row as a tombstone; a hard delete removes it together with
// its reactions and receipts.
func (p *Pipeline) Delete(ctx context.Context, appID, messageID, actorID string, hard bool) (*models.Message, error) {
	msg, ch, member, err := p.load(ctx, appID, messageID, actorID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != actorID && (member == nil || !p.authz.Can(member.Role, authz.ActionDeleteAny)) {
		return nil, models.PermissionDenied(string(authz.ActionDeleteAny))
	}

	unlock := p.locks.Lock(ch.ID)
	defer unlock()

	if msg, err = p.store.GetMessage(ctx, messageID); err != nil {
		return nil, store.Translate(err, "message", messageID)
	}
	now := p.now()

	var out *models.Message
	if hard {
		if err := p.store.DeleteMessage(ctx, messageID); err != nil {
			return nil, store.Translate(err, "message", messageID)
		}
		out = models.Tombstone(msg.ID, msg.ChannelID)
		out.ParentMessageID = msg.ParentMessageID
		out.Shadowed = msg.Shadowed
	} else {
		if msg.IsDeleted {
			return msg, nil
		}
		msg.SoftDelete(now)
		if err := p.store.UpdateMessage(ctx, msg); err != nil {
			return nil, store.Translate(err, "message", messageID)
		}
		out = msg
	}

	if hard && msg.ParentMessageID != "" {
		p.refreshThread(ctx, appID, msg.ParentMessageID, msg.Shadowed)
	}
	p.publish(models.EventMessageDeleted, appID, out, actorID)
	p.logger.Info().
		Str("channel_id", ch.ID).
		Str("message_id", messageID).
		Bool("hard", hard).
		Msg("Message deleted")
	return out, nil
}
