// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package api exposes the chat backend over REST using the chi router.

Every route except health, metrics and /ws requires
"Authorization: Bearer <jwt>"; the token resolves to (appId, userId), and all
reads and writes are scoped to that app. /ws authenticates itself (query token
or an authenticate frame) and is handed straight to the realtime gateway.

Route groups:

	GET    /health/live                     liveness
	GET    /health/ready                    store ping
	GET    /metrics                         prometheus
	GET    /ws                              realtime gateway

	POST   /channels                        create (200 when a distinct channel already exists)
	GET    /channels/{id}                   get
	DELETE /channels/{id}                   delete (owner)
	GET    /channels/{id}/members           list members
	POST   /channels/{id}/members           add members
	PATCH  /channels/{id}/members/{userId}  change role
	DELETE /channels/{id}/members/{userId}  remove member
	POST   /channels/{id}/join              join a public channel
	POST   /channels/{id}/leave             leave
	PUT    /channels/{id}/hidden            hide / show for the caller
	POST   /channels/{id}/freeze            freeze
	DELETE /channels/{id}/freeze            unfreeze
	POST   /channels/{id}/truncate          truncate history
	PUT    /channels/{id}/slow-mode         set slow mode
	POST   /channels/{id}/bans              ban / shadow-ban
	DELETE /channels/{id}/bans/{userId}     unban
	GET    /channels/{id}/messages          history (?limit&before&after)
	POST   /channels/{id}/messages          send
	POST   /channels/{id}/scheduled-messages  schedule a send
	POST   /channels/{id}/read              mark read
	GET    /channels/{id}/unread            unread count

	GET    /messages/{id}                   get
	PATCH  /messages/{id}                   edit
	DELETE /messages/{id}                   delete (?hard=true)
	GET    /messages/{id}/replies           thread
	POST   /messages/{id}/replies           reply
	GET    /messages/{id}/reactions         list reactions
	POST   /messages/{id}/reactions         react
	DELETE /messages/{id}/reactions/{emoji} unreact
	POST   /messages/{id}/pin               pin
	DELETE /messages/{id}/pin               unpin

	GET    /webhooks                        list subscriptions
	POST   /webhooks                        subscribe (secret returned once)
	DELETE /webhooks/{id}                   deactivate
	GET    /webhooks/{id}/deliveries        delivery logs

The /webhooks routes require a token with scope "server"; end-user tokens
get PermissionDenied.

Errors use one envelope with the HTTP status taken from the error kind:

	{"error": {"code": "SlowModeCooldown", "message": "...", "details": {"retryAfter": 3}}}

Slow-mode rejections also carry a Retry-After header.
*/
package api
