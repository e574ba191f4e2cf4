// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package channel

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/scheduler"
	"github.com/tomtom215/switchboard/internal/store"
)

// MaxSlowModeSeconds caps the slow mode cooldown (six hours).
const MaxSlowModeSeconds = 6 * 60 * 60

// MaxMembersPerRequest caps how many users one create or add call may name.
const MaxMembersPerRequest = 100

// Authorizer decides whether a role permits an action.
type Authorizer interface {
	Can(role models.Role, action authz.Action) bool
}

// TaskScheduler schedules and cancels delayed tasks.
type TaskScheduler interface {
	Schedule(ctx context.Context, task *scheduler.Task) error
	Cancel(ctx context.Context, id string) error
}

// Manager implements channel and membership operations.
type Manager struct {
	store  store.ChannelStore
	authz  Authorizer
	events events.Publisher
	locks  *events.ChannelLocks
	tasks  TaskScheduler
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithScheduler enables timed ban expiry through the scheduler.
func WithScheduler(tasks TaskScheduler) Option {
	return func(m *Manager) { m.tasks = tasks }
}

// NewManager creates a channel manager. locks must be shared with the
// message pipeline.
func NewManager(st store.ChannelStore, az Authorizer, pub events.Publisher, locks *events.ChannelLocks, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		authz:  az,
		events: pub,
		locks:  locks,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.WithComponent("channel-manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Locks returns the shared per-channel lock table.
func (m *Manager) Locks() *events.ChannelLocks {
	return m.locks
}

// CreateParams describes a new channel.
type CreateParams struct {
	AppID      string
	CreatorID  string
	Type       models.ChannelType
	Name       string
	Members    []string
	IsDistinct bool
	Metadata   models.Metadata
}

// Create creates a channel, or returns the existing distinct channel with the
// same member set. The bool result reports whether a channel was created.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*models.Channel, bool, error) {
	if err := validateCreate(&p); err != nil {
		return nil, false, err
	}

	normalized := models.NormalizeMembers(p.CreatorID, p.Members)
	if p.Type == models.ChannelDirect && len(normalized) != 2 {
		return nil, false, models.Validation("direct channels have exactly two members", map[string]any{"members": len(normalized)})
	}

	var key string
	if p.IsDistinct {
		key = models.MemberKey(normalized)
		existing, err := m.store.FindDistinctChannel(ctx, p.AppID, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, store.Translate(err, "channel", "")
		}
	}

	now := m.now()
	ch := &models.Channel{
		ID:         uuid.NewString(),
		AppID:      p.AppID,
		Type:       p.Type,
		Name:       p.Name,
		IsDistinct: p.IsDistinct,
		CreatedBy:  p.CreatorID,
		Metadata:   p.Metadata,
		MemberKey:  key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	members := make([]*models.ChannelMember, 0, len(normalized))
	for _, userID := range normalized {
		role := models.RoleMember
		if userID == p.CreatorID {
			role = models.RoleOwner
		}
		members = append(members, &models.ChannelMember{
			ChannelID: ch.ID,
			UserID:    userID,
			Role:      role,
			JoinedAt:  now,
		})
	}

	unlock := m.locks.Lock(ch.ID)
	defer unlock()

	if err := m.store.CreateChannel(ctx, ch, members); err != nil {
		if p.IsDistinct && errors.Is(err, store.ErrConflict) {
			// Lost a concurrent create of the same member set.
			existing, findErr := m.store.FindDistinctChannel(ctx, p.AppID, key)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, store.Translate(err, "channel", ch.ID)
	}

	e := models.NewEvent(models.EventChannelCreated, ch.AppID, ch.ID, p.CreatorID, now)
	e.Channel = ch
	m.events.Publish(e)

	m.logger.Info().
		Str("app_id", ch.AppID).
		Str("channel_id", ch.ID).
		Str("type", string(ch.Type)).
		Int("members", len(members)).
		Msg("Channel created")
	return ch, true, nil
}

func validateCreate(p *CreateParams) error {
	if p.AppID == "" || p.CreatorID == "" {
		return models.Validation("app and creator are required", nil)
	}
	if p.Type == "" {
		p.Type = models.ChannelGroup
	}
	if !p.Type.Valid() {
		return models.Validation("unknown channel type", map[string]any{"type": p.Type})
	}
	if p.Type == models.ChannelDirect {
		p.IsDistinct = true
	}
	if len(p.Members) > MaxMembersPerRequest {
		return models.Validation("too many members", map[string]any{"max": MaxMembersPerRequest})
	}
	if err := validateUserIDs(p.Members); err != nil {
		return err
	}
	if p.Metadata != nil {
		if err := p.Metadata.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateUserIDs(ids []string) error {
	for _, id := range ids {
		if strings.ContainsRune(id, '\x1f') || len(id) > 128 {
			return models.Validation("invalid user id", map[string]any{"userId": id})
		}
	}
	return nil
}

// load fetches a channel and hides channels of other apps.
func (m *Manager) load(ctx context.Context, appID, channelID string) (*models.Channel, error) {
	ch, err := m.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, store.Translate(err, "channel", channelID)
	}
	if ch.AppID != appID {
		return nil, models.NotFound("channel", channelID)
	}
	return ch, nil
}

// Access loads a channel and the caller's membership. A non-member gets
// PermissionDenied, except on public channels where a nil member is returned.
func (m *Manager) Access(ctx context.Context, appID, channelID, userID string) (*models.Channel, *models.ChannelMember, error) {
	ch, err := m.load(ctx, appID, channelID)
	if err != nil {
		return nil, nil, err
	}
	member, err := m.store.GetMember(ctx, channelID, userID)
	if errors.Is(err, store.ErrNotFound) {
		if ch.Type == models.ChannelPublic {
			return ch, nil, nil
		}
		return nil, nil, models.PermissionDenied(string(authz.ActionRead))
	}
	if err != nil {
		return nil, nil, store.Translate(err, "member", userID)
	}
	return ch, member, nil
}

// Member returns userID's membership in an app's channel.
func (m *Manager) Member(ctx context.Context, appID, channelID, userID string) (*models.ChannelMember, error) {
	_, member, err := m.Access(ctx, appID, channelID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, models.PermissionDenied(string(authz.ActionRead))
	}
	return member, nil
}

// UserChannelIDs lists the channels userID belongs to.
func (m *Manager) UserChannelIDs(ctx context.Context, appID, userID string) ([]string, error) {
	ids, err := m.store.ListUserChannelIDs(ctx, appID, userID)
	if err != nil {
		return nil, store.Translate(err, "member", userID)
	}
	return ids, nil
}

// require loads the actor's membership and checks action against its role.
// Banned actors are refused every moderation action.
func (m *Manager) require(ctx context.Context, appID, channelID, actorID string, action authz.Action) (*models.Channel, *models.ChannelMember, error) {
	ch, member, err := m.Access(ctx, appID, channelID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil || !m.authz.Can(member.Role, action) {
		return nil, nil, models.PermissionDenied(string(action))
	}
	if member.Banned(m.now()) {
		return nil, nil, models.Banned(channelID)
	}
	return ch, member, nil
}

// Get returns a channel visible to userID.
func (m *Manager) Get(ctx context.Context, appID, channelID, userID string) (*models.Channel, error) {
	ch, _, err := m.Access(ctx, appID, channelID, userID)
	return ch, err
}

// ListMembers returns the channel's members ordered by join time.
func (m *Manager) ListMembers(ctx context.Context, appID, channelID, userID string) ([]*models.ChannelMember, error) {
	if _, _, err := m.Access(ctx, appID, channelID, userID); err != nil {
		return nil, err
	}
	members, err := m.store.ListMembers(ctx, channelID)
	if err != nil {
		return nil, store.Translate(err, "channel", channelID)
	}
	return members, nil
}

func (m *Manager) publishMember(t models.EventType, ch *models.Channel, actorID string, member *models.ChannelMember) {
	e := models.NewEvent(t, ch.AppID, ch.ID, actorID, m.now())
	e.Member = member
	m.events.Publish(e)
}

func (m *Manager) publishChannel(t models.EventType, ch *models.Channel, actorID string) {
	e := models.NewEvent(t, ch.AppID, ch.ID, actorID, m.now())
	e.Channel = ch
	m.events.Publish(e)
}
