// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

/*
Package realtime is the WebSocket gateway.

A client connects to /ws and authenticates either with a bearer token on the
upgrade request or with an authenticate frame sent within the grace period.
It then subscribes to channels it belongs to and receives every event for
those channels as JSON frames:

	┌──────────────┐  Broadcast   ┌───────────┐  enqueue   ┌──────────┐
	│  events.Bus  │ ───────────► │   room    │ ─────────► │  Conn 1  │
	└──────────────┘              │ seq, conns│            ├──────────┤
	                              └───────────┘ ─────────► │  Conn 2  │
	                                                       └──────────┘

Each connection has a readPump that decodes commands and a writePump that
owns data writes. Outbound frames are encoded once per broadcast and queued
per connection; the queue never blocks the broadcaster. A full queue either
evicts its oldest frame or disconnects the client, per
RealtimeConfig.OverflowPolicy.

Frames:

	{"type":"message.new","channelId":"...","seq":42,"data":{...event...}}
	{"type":"message.ack","requestId":"r1","data":{...message...}}
	{"type":"error","requestId":"r2","data":{"code":"Banned","message":"..."}}

seq increases by one per frame within a channel's room, so a client can
detect gaps. channel.joined reports the room's current seq. A room is
discarded when its last subscriber leaves and numbering restarts at the next
join.

Commands: authenticate, channel.join, channel.leave, message.send,
typing.start, typing.stop, presence.query, ping.

Presence is aggregated per user across sessions. The first session announces
online; the last one announces offline after RealtimeConfig.PresenceDebounce,
and a reconnect inside that window suppresses both transitions. Typing
indicators expire after RealtimeConfig.TypingTimeout without a refresh and
end when the session that started them closes.
*/
package realtime
