// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package memory implements store.Store in process memory.
//
// A single RWMutex guards all tables, which makes every multi-row operation
// (channel creation, cascades, pin cap checks) trivially atomic. Rows are
// copied on the way in and out so callers never share state with the store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

const defaultPageSize = 50

var errClosed = errors.New("memory store closed")

// Store is an in-memory store.Store.
type Store struct {
	mu sync.RWMutex

	channels map[string]*models.Channel
	distinct map[string]string                          // app + member key -> channel id
	members  map[string]map[string]*models.ChannelMember // channel -> user -> row

	messages  map[string]*models.Message
	byChannel map[string]map[string]struct{}
	reactions map[string]map[string]*models.Reaction // message -> user+emoji -> row
	receipts  map[string]map[string]*models.ReadReceipt

	webhooks map[string]*models.WebhookSubscription
	logs     map[string][]*models.DeliveryLog

	closed bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		channels:  make(map[string]*models.Channel),
		distinct:  make(map[string]string),
		members:   make(map[string]map[string]*models.ChannelMember),
		messages:  make(map[string]*models.Message),
		byChannel: make(map[string]map[string]struct{}),
		reactions: make(map[string]map[string]*models.Reaction),
		receipts:  make(map[string]map[string]*models.ReadReceipt),
		webhooks:  make(map[string]*models.WebhookSubscription),
		logs:      make(map[string][]*models.DeliveryLog),
	}
}

func distinctKey(appID, memberKey string) string {
	return appID + "\x00" + memberKey
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed. Subsequent calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Channels and members
// ---------------------------------------------------------------------------

// CreateChannel implements store.ChannelStore.
func (s *Store) CreateChannel(_ context.Context, ch *models.Channel, members []*models.ChannelMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	if _, exists := s.channels[ch.ID]; exists {
		return fmt.Errorf("channel %s: %w", ch.ID, store.ErrConflict)
	}
	if ch.IsDistinct {
		if _, taken := s.distinct[distinctKey(ch.AppID, ch.MemberKey)]; taken {
			return fmt.Errorf("distinct channel: %w", store.ErrConflict)
		}
		s.distinct[distinctKey(ch.AppID, ch.MemberKey)] = ch.ID
	}

	s.channels[ch.ID] = cloneChannel(ch)
	rows := make(map[string]*models.ChannelMember, len(members))
	for _, m := range members {
		rows[m.UserID] = cloneMember(m)
	}
	s.members[ch.ID] = rows
	s.byChannel[ch.ID] = make(map[string]struct{})
	return nil
}

// FindDistinctChannel implements store.ChannelStore.
func (s *Store) FindDistinctChannel(_ context.Context, appID, memberKey string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	id, ok := s.distinct[distinctKey(appID, memberKey)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneChannel(s.channels[id]), nil
}

// GetChannel implements store.ChannelStore.
func (s *Store) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	ch, ok := s.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneChannel(ch), nil
}

// UpdateChannel implements store.ChannelStore.
func (s *Store) UpdateChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.channels[ch.ID]; !ok {
		return store.ErrNotFound
	}
	s.channels[ch.ID] = cloneChannel(ch)
	return nil
}

// DeleteChannel implements store.ChannelStore.
func (s *Store) DeleteChannel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	ch, ok := s.channels[id]
	if !ok {
		return store.ErrNotFound
	}
	if ch.IsDistinct {
		delete(s.distinct, distinctKey(ch.AppID, ch.MemberKey))
	}
	for msgID := range s.byChannel[id] {
		s.deleteMessageLocked(msgID)
	}
	delete(s.byChannel, id)
	delete(s.members, id)
	delete(s.channels, id)
	return nil
}

// GetMember implements store.ChannelStore.
func (s *Store) GetMember(_ context.Context, channelID, userID string) (*models.ChannelMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	m, ok := s.members[channelID][userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMember(m), nil
}

// ListMembers implements store.ChannelStore. Rows are ordered by join time.
func (s *Store) ListMembers(_ context.Context, channelID string) ([]*models.ChannelMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	if _, ok := s.channels[channelID]; !ok {
		return nil, store.ErrNotFound
	}
	out := make([]*models.ChannelMember, 0, len(s.members[channelID]))
	for _, m := range s.members[channelID] {
		out = append(out, cloneMember(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// AddMembers implements store.ChannelStore.
func (s *Store) AddMembers(_ context.Context, channelID string, members []*models.ChannelMember) ([]*models.ChannelMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	ch, ok := s.channels[channelID]
	if !ok {
		return nil, store.ErrNotFound
	}

	rows := s.members[channelID]
	var added []*models.ChannelMember
	for _, m := range members {
		if _, present := rows[m.UserID]; present {
			continue
		}
		if slices.ContainsFunc(added, func(a *models.ChannelMember) bool { return a.UserID == m.UserID }) {
			continue
		}
		added = append(added, m)
	}
	if len(added) == 0 {
		return nil, nil
	}

	userIDs := slices.Collect(maps.Keys(rows))
	for _, m := range added {
		userIDs = append(userIDs, m.UserID)
	}
	if err := s.rekeyLocked(ch, userIDs); err != nil {
		return nil, err
	}

	out := make([]*models.ChannelMember, 0, len(added))
	for _, m := range added {
		rows[m.UserID] = cloneMember(m)
		out = append(out, cloneMember(m))
	}
	return out, nil
}

// UpdateMember implements store.ChannelStore.
func (s *Store) UpdateMember(_ context.Context, m *models.ChannelMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.members[m.ChannelID][m.UserID]; !ok {
		return store.ErrNotFound
	}
	s.members[m.ChannelID][m.UserID] = cloneMember(m)
	return nil
}

// RemoveMember implements store.ChannelStore.
func (s *Store) RemoveMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	rows := s.members[channelID]
	if _, ok := rows[userID]; !ok {
		return store.ErrNotFound
	}
	remaining := make([]string, 0, len(rows))
	for id := range rows {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	if err := s.rekeyLocked(s.channels[channelID], remaining); err != nil {
		return err
	}
	delete(rows, userID)
	return nil
}

// rekeyLocked moves a distinct channel to the member key of userIDs.
func (s *Store) rekeyLocked(ch *models.Channel, userIDs []string) error {
	if !ch.IsDistinct {
		return nil
	}
	key := models.MemberKey(models.NormalizeMembers("", userIDs))
	if key == ch.MemberKey {
		return nil
	}
	if owner, taken := s.distinct[distinctKey(ch.AppID, key)]; taken && owner != ch.ID {
		return fmt.Errorf("distinct member set: %w", store.ErrConflict)
	}
	delete(s.distinct, distinctKey(ch.AppID, ch.MemberKey))
	s.distinct[distinctKey(ch.AppID, key)] = ch.ID
	ch.MemberKey = key
	return nil
}

// ListUserChannelIDs implements store.ChannelStore.
func (s *Store) ListUserChannelIDs(_ context.Context, appID, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	var ids []string
	for channelID, rows := range s.members {
		if _, ok := rows[userID]; !ok {
			continue
		}
		if ch := s.channels[channelID]; ch != nil && ch.AppID == appID {
			ids = append(ids, channelID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// InsertMessage implements store.MessageStore.
func (s *Store) InsertMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.channels[m.ChannelID]; !ok {
		return fmt.Errorf("channel %s: %w", m.ChannelID, store.ErrNotFound)
	}
	if _, exists := s.messages[m.ID]; exists {
		return fmt.Errorf("message %s: %w", m.ID, store.ErrConflict)
	}
	s.messages[m.ID] = cloneMessage(m)
	s.byChannel[m.ChannelID][m.ID] = struct{}{}
	return nil
}

// GetMessage implements store.MessageStore.
func (s *Store) GetMessage(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMessage(m), nil
}

// UpdateMessage implements store.MessageStore.
func (s *Store) UpdateMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.messages[m.ID]; !ok {
		return store.ErrNotFound
	}
	s.messages[m.ID] = cloneMessage(m)
	return nil
}

// DeleteMessage implements store.MessageStore.
func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.messages[id]; !ok {
		return store.ErrNotFound
	}
	s.deleteMessageLocked(id)
	return nil
}

func (s *Store) deleteMessageLocked(id string) {
	if m, ok := s.messages[id]; ok {
		delete(s.byChannel[m.ChannelID], id)
	}
	delete(s.messages, id)
	delete(s.reactions, id)
	delete(s.receipts, id)
}

// ListMessages implements store.MessageStore.
func (s *Store) ListMessages(_ context.Context, q store.HistoryQuery) ([]*models.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, errClosed
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	var matched []*models.Message
	for id := range s.byChannel[q.ChannelID] {
		m := s.messages[id]
		if !historyMatch(m, q) {
			continue
		}
		matched = append(matched, m)
	}
	sortMessages(matched)

	var page []*models.Message
	hasMore := false
	if q.After != nil {
		if len(matched) > limit {
			matched, hasMore = matched[:limit], true
		}
		page = matched
	} else {
		if len(matched) > limit {
			matched, hasMore = matched[len(matched)-limit:], true
		}
		page = matched
	}

	out := make([]*models.Message, len(page))
	for i, m := range page {
		out[i] = cloneMessage(m)
	}
	return out, hasMore, nil
}

// ThreadChannel implements store.MessageStore.
func (s *Store) ThreadChannel(_ context.Context, parentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", errClosed
	}
	for _, m := range s.messages {
		if m.ParentMessageID == parentID {
			return m.ChannelID, nil
		}
	}
	return "", store.ErrNotFound
}

func historyMatch(m *models.Message, q store.HistoryQuery) bool {
	if m.Status != models.StatusSent {
		return false
	}
	if q.ParentID != "" {
		if m.ParentMessageID != q.ParentID {
			return false
		}
	} else if !m.InTimeline() {
		return false
	}
	if m.IsDeleted && !q.IncludeDeleted {
		return false
	}
	if q.Since != nil && !m.CreatedAt.After(*q.Since) {
		return false
	}
	if !m.VisibleTo(q.ViewerID) {
		return false
	}
	if q.Before != nil && !q.Before.Before(m.CreatedAt, m.ID) {
		return false
	}
	if q.After != nil && !q.After.After(m.CreatedAt, m.ID) {
		return false
	}
	return true
}

func sortMessages(ms []*models.Message) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}

// CountUnread implements store.MessageStore.
func (s *Store) CountUnread(_ context.Context, q store.UnreadQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed
	}
	n := 0
	for id := range s.byChannel[q.ChannelID] {
		m := s.messages[id]
		if m.Status != models.StatusSent || m.IsDeleted || !m.InTimeline() {
			continue
		}
		if m.UserID == q.UserID || !m.VisibleTo(q.UserID) {
			continue
		}
		if q.Since != nil && !m.CreatedAt.After(*q.Since) {
			continue
		}
		n++
	}
	return n, nil
}

// RecomputeThread implements store.MessageStore.
func (s *Store) RecomputeThread(_ context.Context, parentID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	parent, ok := s.messages[parentID]
	if !ok {
		return nil, store.ErrNotFound
	}

	participants := make(map[string]struct{})
	var count int
	var last *time.Time
	for id := range s.byChannel[parent.ChannelID] {
		r := s.messages[id]
		if r.ParentMessageID != parentID || r.Status != models.StatusSent {
			continue
		}
		count++
		participants[r.UserID] = struct{}{}
		if last == nil || r.CreatedAt.After(*last) {
			at := r.CreatedAt
			last = &at
		}
	}
	parent.ReplyCount = count
	parent.ThreadParticipantCount = len(participants)
	parent.ThreadLastMessageAt = last
	return cloneMessage(parent), nil
}

// PinMessage implements store.MessageStore.
func (s *Store) PinMessage(_ context.Context, id, by string, at time.Time, maxPins int) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if m.IsPinned {
		return cloneMessage(m), nil
	}
	if s.countPinnedLocked(m.ChannelID) >= maxPins {
		return nil, store.ErrPinLimit
	}
	m.IsPinned = true
	m.PinnedAt = &at
	m.PinnedBy = by
	return cloneMessage(m), nil
}

// UnpinMessage implements store.MessageStore.
func (s *Store) UnpinMessage(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.IsPinned = false
	m.PinnedAt = nil
	m.PinnedBy = ""
	return cloneMessage(m), nil
}

// CountPinned implements store.MessageStore.
func (s *Store) CountPinned(_ context.Context, channelID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed
	}
	return s.countPinnedLocked(channelID), nil
}

func (s *Store) countPinnedLocked(channelID string) int {
	n := 0
	for id := range s.byChannel[channelID] {
		if s.messages[id].IsPinned {
			n++
		}
	}
	return n
}

// UpsertReaction implements store.MessageStore.
func (s *Store) UpsertReaction(_ context.Context, r *models.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, errClosed
	}
	if _, ok := s.messages[r.MessageID]; !ok {
		return false, store.ErrNotFound
	}
	rows := s.reactions[r.MessageID]
	if rows == nil {
		rows = make(map[string]*models.Reaction)
		s.reactions[r.MessageID] = rows
	}
	key := r.UserID + "\x00" + r.Emoji
	if _, exists := rows[key]; exists {
		return false, nil
	}
	cp := *r
	rows[key] = &cp
	return true, nil
}

// DeleteReaction implements store.MessageStore.
func (s *Store) DeleteReaction(_ context.Context, messageID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, errClosed
	}
	if _, ok := s.messages[messageID]; !ok {
		return false, store.ErrNotFound
	}
	key := userID + "\x00" + emoji
	if _, exists := s.reactions[messageID][key]; !exists {
		return false, nil
	}
	delete(s.reactions[messageID], key)
	return true, nil
}

// ListReactions implements store.MessageStore. Rows are ordered by creation.
func (s *Store) ListReactions(_ context.Context, messageID string) ([]*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	if _, ok := s.messages[messageID]; !ok {
		return nil, store.ErrNotFound
	}
	out := make([]*models.Reaction, 0, len(s.reactions[messageID]))
	for _, r := range s.reactions[messageID] {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID+out[i].Emoji < out[j].UserID+out[j].Emoji
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpsertReadReceipt implements store.MessageStore.
func (s *Store) UpsertReadReceipt(_ context.Context, r *models.ReadReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.messages[r.MessageID]; !ok {
		return store.ErrNotFound
	}
	rows := s.receipts[r.MessageID]
	if rows == nil {
		rows = make(map[string]*models.ReadReceipt)
		s.receipts[r.MessageID] = rows
	}
	cp := *r
	rows[r.UserID] = &cp
	return nil
}

// ReadReceipt returns a stored receipt. It exists for tests.
func (s *Store) ReadReceipt(messageID, userID string) (*models.ReadReceipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[messageID][userID]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// CreateWebhook implements store.WebhookStore.
func (s *Store) CreateWebhook(_ context.Context, w *models.WebhookSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, exists := s.webhooks[w.ID]; exists {
		return store.ErrConflict
	}
	s.webhooks[w.ID] = cloneWebhook(w)
	return nil
}

// GetWebhook implements store.WebhookStore.
func (s *Store) GetWebhook(_ context.Context, id string) (*models.WebhookSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	w, ok := s.webhooks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneWebhook(w), nil
}

// ListWebhooks implements store.WebhookStore.
func (s *Store) ListWebhooks(_ context.Context, appID string) ([]*models.WebhookSubscription, error) {
	return s.filterWebhooks(func(w *models.WebhookSubscription) bool { return w.AppID == appID })
}

// ListActiveWebhooks implements store.WebhookStore.
func (s *Store) ListActiveWebhooks(_ context.Context, appID string, eventType models.EventType) ([]*models.WebhookSubscription, error) {
	return s.filterWebhooks(func(w *models.WebhookSubscription) bool {
		return w.AppID == appID && w.Matches(eventType)
	})
}

func (s *Store) filterWebhooks(keep func(*models.WebhookSubscription) bool) ([]*models.WebhookSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	var out []*models.WebhookSubscription
	for _, w := range s.webhooks {
		if keep(w) {
			out = append(out, cloneWebhook(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateWebhook implements store.WebhookStore.
func (s *Store) UpdateWebhook(_ context.Context, w *models.WebhookSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.webhooks[w.ID]; !ok {
		return store.ErrNotFound
	}
	s.webhooks[w.ID] = cloneWebhook(w)
	return nil
}

// AppendDeliveryLog implements store.WebhookStore.
func (s *Store) AppendDeliveryLog(_ context.Context, l *models.DeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, ok := s.webhooks[l.WebhookID]; !ok {
		return store.ErrNotFound
	}
	cp := *l
	s.logs[l.WebhookID] = append(s.logs[l.WebhookID], &cp)
	return nil
}

// ListDeliveryLogs implements store.WebhookStore.
func (s *Store) ListDeliveryLogs(_ context.Context, webhookID string, limit int) ([]*models.DeliveryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	if _, ok := s.webhooks[webhookID]; !ok {
		return nil, store.ErrNotFound
	}
	rows := s.logs[webhookID]
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	out := make([]*models.DeliveryLog, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Copy helpers
// ---------------------------------------------------------------------------

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneChannel(ch *models.Channel) *models.Channel {
	cp := *ch
	cp.TruncatedAt = cloneTime(ch.TruncatedAt)
	cp.Metadata = maps.Clone(ch.Metadata)
	return &cp
}

func cloneMember(m *models.ChannelMember) *models.ChannelMember {
	cp := *m
	cp.LastReadAt = cloneTime(m.LastReadAt)
	cp.BanExpiresAt = cloneTime(m.BanExpiresAt)
	return &cp
}

func cloneMessage(m *models.Message) *models.Message {
	cp := *m
	cp.PinnedAt = cloneTime(m.PinnedAt)
	cp.ThreadLastMessageAt = cloneTime(m.ThreadLastMessageAt)
	cp.ScheduledAt = cloneTime(m.ScheduledAt)
	cp.Mentions = slices.Clone(m.Mentions)
	cp.Attachments = slices.Clone(m.Attachments)
	cp.Metadata = maps.Clone(m.Metadata)
	cp.QuotedMessage = nil
	cp.ParentMessage = nil
	return &cp
}

func cloneWebhook(w *models.WebhookSubscription) *models.WebhookSubscription {
	cp := *w
	cp.EventTypes = slices.Clone(w.EventTypes)
	return &cp
}
