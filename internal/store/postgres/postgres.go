// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package postgres implements store.Store on PostgreSQL using bun.
//
// Cascades are performed explicitly inside transactions rather than through
// foreign-key ON DELETE rules, so the adapter's behavior matches the contract
// in package store regardless of how the schema was provisioned.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/store"
)

const defaultPageSize = 50

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

var _ store.Store = (*Postgres)(nil)

// Connect connects to the database, pings it and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pg := &Postgres{bun: bun.NewDB(sqlDB, pgdialect.New())}
	if err := pg.CreateSchema(ctx); err != nil {
		_ = pg.bun.Close()
		return nil, err
	}
	return pg, nil
}

// CreateSchema creates tables and indexes if they do not exist.
func (pg *Postgres) CreateSchema(ctx context.Context) error {
	tables := []any{
		(*channel)(nil),
		(*member)(nil),
		(*message)(nil),
		(*reaction)(nil),
		(*readReceipt)(nil),
		(*webhook)(nil),
		(*deliveryLog)(nil),
	}
	for _, model := range tables {
		if _, err := pg.bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		unique  bool
		columns []string
	}{
		{(*channel)(nil), "channels_distinct_members_idx", true, []string{"app_id", "member_key"}},
		{(*member)(nil), "channel_members_user_idx", false, []string{"user_id"}},
		{(*message)(nil), "messages_history_idx", false, []string{"channel_id", "created_at", "id"}},
		{(*message)(nil), "messages_parent_idx", false, []string{"parent_message_id"}},
		{(*deliveryLog)(nil), "delivery_logs_webhook_idx", false, []string{"webhook_id", "delivered_at"}},
		{(*webhook)(nil), "webhooks_app_idx", false, []string{"app_id"}},
	}
	for _, idx := range indexes {
		q := pg.bun.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (pg *Postgres) Ping(ctx context.Context) error {
	return pg.bun.PingContext(ctx)
}

// Close closes the connection pool.
func (pg *Postgres) Close() error {
	return pg.bun.Close()
}

// mapErr translates driver errors into store sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Channels and members
// ---------------------------------------------------------------------------

// CreateChannel implements store.ChannelStore.
func (pg *Postgres) CreateChannel(ctx context.Context, ch *models.Channel, members []*models.ChannelMember) error {
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(channelRow(ch)).Exec(ctx); err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		rows := make([]*member, len(members))
		for i, m := range members {
			rows[i] = memberRow(m)
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	return mapErr("create channel", err)
}

// FindDistinctChannel implements store.ChannelStore.
func (pg *Postgres) FindDistinctChannel(ctx context.Context, appID, memberKey string) (*models.Channel, error) {
	row := new(channel)
	err := pg.bun.NewSelect().Model(row).
		Where("app_id = ?", appID).
		Where("member_key = ?", memberKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapErr("find distinct channel", err)
	}
	return row.model(), nil
}

// GetChannel implements store.ChannelStore.
func (pg *Postgres) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	row := new(channel)
	if err := pg.bun.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr("get channel", err)
	}
	return row.model(), nil
}

// UpdateChannel implements store.ChannelStore.
func (pg *Postgres) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	res, err := pg.bun.NewUpdate().Model(channelRow(ch)).WherePK().Exec(ctx)
	if err != nil {
		return mapErr("update channel", err)
	}
	return requireAffected("update channel", res)
}

// DeleteChannel implements store.ChannelStore.
func (pg *Postgres) DeleteChannel(ctx context.Context, id string) error {
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		msgIDs := tx.NewSelect().Model((*message)(nil)).Column("id").Where("channel_id = ?", id)
		if _, err := tx.NewDelete().Model((*reaction)(nil)).Where("message_id IN (?)", msgIDs).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*readReceipt)(nil)).Where("message_id IN (?)", msgIDs).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*message)(nil)).Where("channel_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*member)(nil)).Where("channel_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*channel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected("delete channel", res)
	})
	return mapErr("delete channel", err)
}

// GetMember implements store.ChannelStore.
func (pg *Postgres) GetMember(ctx context.Context, channelID, userID string) (*models.ChannelMember, error) {
	row := new(member)
	err := pg.bun.NewSelect().Model(row).
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, mapErr("get member", err)
	}
	return row.model(), nil
}

// ListMembers implements store.ChannelStore.
func (pg *Postgres) ListMembers(ctx context.Context, channelID string) ([]*models.ChannelMember, error) {
	exists, err := pg.bun.NewSelect().Model((*channel)(nil)).Where("id = ?", channelID).Exists(ctx)
	if err != nil {
		return nil, mapErr("list members", err)
	}
	if !exists {
		return nil, fmt.Errorf("list members: %w", store.ErrNotFound)
	}
	var rows []member
	err = pg.bun.NewSelect().Model(&rows).
		Where("channel_id = ?", channelID).
		Order("joined_at ASC", "user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list members", err)
	}
	out := make([]*models.ChannelMember, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// AddMembers implements store.ChannelStore.
func (pg *Postgres) AddMembers(ctx context.Context, channelID string, members []*models.ChannelMember) ([]*models.ChannelMember, error) {
	var added []*models.ChannelMember
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ch, existing, err := lockChannelMembers(ctx, tx, channelID)
		if err != nil {
			return err
		}

		present := make(map[string]bool, len(existing))
		for _, id := range existing {
			present[id] = true
		}
		var rows []*member
		for _, m := range members {
			if present[m.UserID] {
				continue
			}
			present[m.UserID] = true
			rows = append(rows, memberRow(m))
			added = append(added, m)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}

		userIDs := existing
		for _, r := range rows {
			userIDs = append(userIDs, r.UserID)
		}
		return rekey(ctx, tx, ch, userIDs)
	})
	if err != nil {
		return nil, mapErr("add members", err)
	}
	return added, nil
}

// UpdateMember implements store.ChannelStore.
func (pg *Postgres) UpdateMember(ctx context.Context, m *models.ChannelMember) error {
	res, err := pg.bun.NewUpdate().Model(memberRow(m)).WherePK().Exec(ctx)
	if err != nil {
		return mapErr("update member", err)
	}
	return requireAffected("update member", res)
}

// RemoveMember implements store.ChannelStore.
func (pg *Postgres) RemoveMember(ctx context.Context, channelID, userID string) error {
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ch, existing, err := lockChannelMembers(ctx, tx, channelID)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*member)(nil)).
			Where("channel_id = ?", channelID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected("remove member", res); err != nil {
			return err
		}
		remaining := make([]string, 0, len(existing))
		for _, id := range existing {
			if id != userID {
				remaining = append(remaining, id)
			}
		}
		return rekey(ctx, tx, ch, remaining)
	})
	return mapErr("remove member", err)
}

// lockChannelMembers locks the channel row and returns its current member ids.
func lockChannelMembers(ctx context.Context, tx bun.Tx, channelID string) (*channel, []string, error) {
	ch := new(channel)
	if err := tx.NewSelect().Model(ch).Where("id = ?", channelID).For("UPDATE").Scan(ctx); err != nil {
		return nil, nil, err
	}
	var ids []string
	err := tx.NewSelect().Model((*member)(nil)).
		Column("user_id").
		Where("channel_id = ?", channelID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, nil, err
	}
	return ch, ids, nil
}

// rekey stores the member key of a distinct channel. The unique index turns
// a collision with another distinct channel into ErrConflict.
func rekey(ctx context.Context, tx bun.Tx, ch *channel, userIDs []string) error {
	if !ch.IsDistinct {
		return nil
	}
	key := models.MemberKey(models.NormalizeMembers("", userIDs))
	if key == ch.MemberKey {
		return nil
	}
	_, err := tx.NewUpdate().Model((*channel)(nil)).
		Set("member_key = ?", key).
		Where("id = ?", ch.ID).
		Exec(ctx)
	return err
}

// ListUserChannelIDs implements store.ChannelStore.
func (pg *Postgres) ListUserChannelIDs(ctx context.Context, appID, userID string) ([]string, error) {
	var ids []string
	err := pg.bun.NewSelect().
		TableExpr("channel_members AS cm").
		Join("JOIN channels AS ch ON ch.id = cm.channel_id").
		ColumnExpr("cm.channel_id").
		Where("cm.user_id = ?", userID).
		Where("ch.app_id = ?", appID).
		OrderExpr("cm.channel_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, mapErr("list user channels", err)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// InsertMessage implements store.MessageStore.
func (pg *Postgres) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := pg.bun.NewInsert().Model(messageRow(m)).Exec(ctx)
	return mapErr("insert message", err)
}

// GetMessage implements store.MessageStore.
func (pg *Postgres) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := new(message)
	if err := pg.bun.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr("get message", err)
	}
	return row.model(), nil
}

// UpdateMessage implements store.MessageStore.
func (pg *Postgres) UpdateMessage(ctx context.Context, m *models.Message) error {
	res, err := pg.bun.NewUpdate().Model(messageRow(m)).WherePK().Exec(ctx)
	if err != nil {
		return mapErr("update message", err)
	}
	return requireAffected("update message", res)
}

// DeleteMessage implements store.MessageStore.
func (pg *Postgres) DeleteMessage(ctx context.Context, id string) error {
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*reaction)(nil)).Where("message_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*readReceipt)(nil)).Where("message_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*message)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected("delete message", res)
	})
	return mapErr("delete message", err)
}

// ListMessages implements store.MessageStore.
func (pg *Postgres) ListMessages(ctx context.Context, q store.HistoryQuery) ([]*models.Message, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	var rows []message
	sel := pg.bun.NewSelect().Model(&rows).
		Where("channel_id = ?", q.ChannelID).
		Where("status = ?", string(models.StatusSent)).
		Where("(shadowed = FALSE OR user_id = ?)", q.ViewerID)

	if q.ParentID != "" {
		sel = sel.Where("parent_message_id = ?", q.ParentID)
	} else {
		sel = sel.Where("(parent_message_id IS NULL OR show_in_channel = TRUE)")
	}
	if !q.IncludeDeleted {
		sel = sel.Where("is_deleted = FALSE")
	}
	if q.Since != nil {
		sel = sel.Where("created_at > ?", *q.Since)
	}
	if q.Before != nil {
		sel = sel.Where("(created_at, id) < (?, ?)", q.Before.CreatedAt, q.Before.ID)
	}
	if q.After != nil {
		sel = sel.Where("(created_at, id) > (?, ?)", q.After.CreatedAt, q.After.ID)
	}

	ascending := q.After != nil
	if ascending {
		sel = sel.Order("created_at ASC", "id ASC")
	} else {
		sel = sel.Order("created_at DESC", "id DESC")
	}

	if err := sel.Limit(limit + 1).Scan(ctx); err != nil {
		return nil, false, mapErr("list messages", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	out := make([]*models.Message, len(rows))
	for i := range rows {
		if ascending {
			out[i] = rows[i].model()
		} else {
			out[len(rows)-1-i] = rows[i].model()
		}
	}
	return out, hasMore, nil
}

// ThreadChannel implements store.MessageStore.
func (pg *Postgres) ThreadChannel(ctx context.Context, parentID string) (string, error) {
	var channelID string
	err := pg.bun.NewSelect().Model((*message)(nil)).
		Column("channel_id").
		Where("parent_message_id = ?", parentID).
		Limit(1).
		Scan(ctx, &channelID)
	if err != nil {
		return "", mapErr("thread channel", err)
	}
	return channelID, nil
}

// CountUnread implements store.MessageStore.
func (pg *Postgres) CountUnread(ctx context.Context, q store.UnreadQuery) (int, error) {
	sel := pg.bun.NewSelect().Model((*message)(nil)).
		Where("channel_id = ?", q.ChannelID).
		Where("status = ?", string(models.StatusSent)).
		Where("is_deleted = FALSE").
		Where("shadowed = FALSE").
		Where("user_id <> ?", q.UserID).
		Where("(parent_message_id IS NULL OR show_in_channel = TRUE)")
	if q.Since != nil {
		sel = sel.Where("created_at > ?", *q.Since)
	}
	n, err := sel.Count(ctx)
	if err != nil {
		return 0, mapErr("count unread", err)
	}
	return n, nil
}

// RecomputeThread implements store.MessageStore.
func (pg *Postgres) RecomputeThread(ctx context.Context, parentID string) (*models.Message, error) {
	row := new(message)
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(row).Where("id = ?", parentID).For("UPDATE").Scan(ctx); err != nil {
			return err
		}

		var (
			count, participants int
			last                sql.NullTime
		)
		err := tx.NewSelect().Model((*message)(nil)).
			ColumnExpr("count(*)").
			ColumnExpr("count(DISTINCT user_id)").
			ColumnExpr("max(created_at)").
			Where("parent_message_id = ?", parentID).
			Where("status = ?", string(models.StatusSent)).
			Scan(ctx, &count, &participants, &last)
		if err != nil {
			return err
		}

		row.ReplyCount = count
		row.ThreadParticipantCount = participants
		row.ThreadLastMessageAt = nil
		if last.Valid {
			t := last.Time
			row.ThreadLastMessageAt = &t
		}
		_, err = tx.NewUpdate().Model(row).
			Column("reply_count", "thread_participant_count", "thread_last_message_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, mapErr("recompute thread", err)
	}
	return row.model(), nil
}

// PinMessage implements store.MessageStore. The channel row lock serializes
// concurrent pins so the cap cannot be overshot.
func (pg *Postgres) PinMessage(ctx context.Context, id, by string, at time.Time, maxPins int) (*models.Message, error) {
	row := new(message)
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
			return err
		}
		if row.IsPinned {
			return nil
		}
		if err := tx.NewSelect().Model((*channel)(nil)).Column("id").
			Where("id = ?", row.ChannelID).For("UPDATE").Scan(ctx, new(string)); err != nil {
			return err
		}
		n, err := tx.NewSelect().Model((*message)(nil)).
			Where("channel_id = ?", row.ChannelID).
			Where("is_pinned = TRUE").
			Count(ctx)
		if err != nil {
			return err
		}
		if n >= maxPins {
			return store.ErrPinLimit
		}
		row.IsPinned = true
		row.PinnedAt = &at
		row.PinnedBy = by
		_, err = tx.NewUpdate().Model(row).Column("is_pinned", "pinned_at", "pinned_by").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, mapErr("pin message", err)
	}
	return row.model(), nil
}

// UnpinMessage implements store.MessageStore.
func (pg *Postgres) UnpinMessage(ctx context.Context, id string) (*models.Message, error) {
	row := new(message)
	_, err := pg.bun.NewUpdate().Model(row).
		Set("is_pinned = FALSE").
		Set("pinned_at = NULL").
		Set("pinned_by = NULL").
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, mapErr("unpin message", err)
	}
	if row.ID == "" {
		return nil, fmt.Errorf("unpin message: %w", store.ErrNotFound)
	}
	return row.model(), nil
}

// CountPinned implements store.MessageStore.
func (pg *Postgres) CountPinned(ctx context.Context, channelID string) (int, error) {
	n, err := pg.bun.NewSelect().Model((*message)(nil)).
		Where("channel_id = ?", channelID).
		Where("is_pinned = TRUE").
		Count(ctx)
	return n, mapErr("count pinned", err)
}

// UpsertReaction implements store.MessageStore.
func (pg *Postgres) UpsertReaction(ctx context.Context, r *models.Reaction) (bool, error) {
	if err := pg.messageExists(ctx, r.MessageID); err != nil {
		return false, err
	}
	res, err := pg.bun.NewInsert().Model(&reaction{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}).On("CONFLICT (message_id, user_id, emoji) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, mapErr("upsert reaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert reaction: %w", err)
	}
	return n > 0, nil
}

// DeleteReaction implements store.MessageStore.
func (pg *Postgres) DeleteReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	if err := pg.messageExists(ctx, messageID); err != nil {
		return false, err
	}
	res, err := pg.bun.NewDelete().Model((*reaction)(nil)).
		Where("message_id = ?", messageID).
		Where("user_id = ?", userID).
		Where("emoji = ?", emoji).
		Exec(ctx)
	if err != nil {
		return false, mapErr("delete reaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	return n > 0, nil
}

// ListReactions implements store.MessageStore.
func (pg *Postgres) ListReactions(ctx context.Context, messageID string) ([]*models.Reaction, error) {
	if err := pg.messageExists(ctx, messageID); err != nil {
		return nil, err
	}
	var rows []reaction
	err := pg.bun.NewSelect().Model(&rows).
		Where("message_id = ?", messageID).
		Order("created_at ASC", "user_id ASC", "emoji ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list reactions", err)
	}
	out := make([]*models.Reaction, len(rows))
	for i, r := range rows {
		out[i] = &models.Reaction{MessageID: r.MessageID, UserID: r.UserID, Emoji: r.Emoji, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

// UpsertReadReceipt implements store.MessageStore.
func (pg *Postgres) UpsertReadReceipt(ctx context.Context, r *models.ReadReceipt) error {
	if err := pg.messageExists(ctx, r.MessageID); err != nil {
		return err
	}
	_, err := pg.bun.NewInsert().Model(&readReceipt{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		ReadAt:    r.ReadAt,
	}).On("CONFLICT (message_id, user_id) DO UPDATE").Set("read_at = EXCLUDED.read_at").Exec(ctx)
	return mapErr("upsert read receipt", err)
}

func (pg *Postgres) messageExists(ctx context.Context, id string) error {
	ok, err := pg.bun.NewSelect().Model((*message)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return mapErr("message exists", err)
	}
	if !ok {
		return fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// CreateWebhook implements store.WebhookStore.
func (pg *Postgres) CreateWebhook(ctx context.Context, w *models.WebhookSubscription) error {
	_, err := pg.bun.NewInsert().Model(webhookRow(w)).Exec(ctx)
	return mapErr("create webhook", err)
}

// GetWebhook implements store.WebhookStore.
func (pg *Postgres) GetWebhook(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	row := new(webhook)
	if err := pg.bun.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr("get webhook", err)
	}
	return row.model(), nil
}

// ListWebhooks implements store.WebhookStore.
func (pg *Postgres) ListWebhooks(ctx context.Context, appID string) ([]*models.WebhookSubscription, error) {
	var rows []webhook
	err := pg.bun.NewSelect().Model(&rows).
		Where("app_id = ?", appID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list webhooks", err)
	}
	out := make([]*models.WebhookSubscription, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// ListActiveWebhooks implements store.WebhookStore.
func (pg *Postgres) ListActiveWebhooks(ctx context.Context, appID string, eventType models.EventType) ([]*models.WebhookSubscription, error) {
	var rows []webhook
	err := pg.bun.NewSelect().Model(&rows).
		Where("app_id = ?", appID).
		Where("is_active = TRUE").
		Where("(? = ANY(event_types) OR ? = ANY(event_types))", string(eventType), models.WildcardEvent).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list active webhooks", err)
	}
	out := make([]*models.WebhookSubscription, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// UpdateWebhook implements store.WebhookStore.
func (pg *Postgres) UpdateWebhook(ctx context.Context, w *models.WebhookSubscription) error {
	res, err := pg.bun.NewUpdate().Model(webhookRow(w)).WherePK().Exec(ctx)
	if err != nil {
		return mapErr("update webhook", err)
	}
	return requireAffected("update webhook", res)
}

// AppendDeliveryLog implements store.WebhookStore.
func (pg *Postgres) AppendDeliveryLog(ctx context.Context, l *models.DeliveryLog) error {
	_, err := pg.bun.NewInsert().Model(deliveryLogRow(l)).Exec(ctx)
	return mapErr("append delivery log", err)
}

// ListDeliveryLogs implements store.WebhookStore.
func (pg *Postgres) ListDeliveryLogs(ctx context.Context, webhookID string, limit int) ([]*models.DeliveryLog, error) {
	if _, err := pg.GetWebhook(ctx, webhookID); err != nil {
		return nil, err
	}
	var rows []deliveryLog
	sel := pg.bun.NewSelect().Model(&rows).
		Where("webhook_id = ?", webhookID).
		Order("delivered_at DESC", "attempt DESC")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, mapErr("list delivery logs", err)
	}
	out := make([]*models.DeliveryLog, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}
