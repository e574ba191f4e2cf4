// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package models defines the data structures shared by every Switchboard
component.

Key Components:

  - Channel, ChannelMember: conversation containers and their membership rows
  - Message, Reaction, ReadReceipt, Attachment: message content and its owned rows
  - WebhookSubscription, DeliveryLog: outbound webhook configuration and attempt log
  - Event: the tagged union of domain events fanned out to the realtime gateway
    and the webhook dispatcher
  - Error: the error taxonomy returned by services and mapped to HTTP statuses

Ownership follows the storage cascade rules: a Channel owns its members and
messages, a Message owns its reactions and read receipts, and a
WebhookSubscription owns its delivery log.

All JSON field names are camelCase to match the public REST and WebSocket
contracts.
*/
package models
