// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/events"
	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/message"
	"github.com/tomtom215/switchboard/internal/metrics"
	"github.com/tomtom215/switchboard/internal/models"
)

// ShutdownReason identifies why the gateway is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (e.g. SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// commandTimeout bounds the store work done for one inbound command.
const commandTimeout = 10 * time.Second

var errMalformed = models.Validation("malformed frame", nil)

// TokenVerifier authenticates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Membership answers channel membership questions for subscriptions,
// typing and presence fan-out.
type Membership interface {
	Member(ctx context.Context, appID, channelID, userID string) (*models.ChannelMember, error)
	UserChannelIDs(ctx context.Context, appID, userID string) ([]string, error)
}

// Sender submits messages on behalf of connected users.
type Sender interface {
	Send(ctx context.Context, p message.SendParams) (*models.Message, error)
}

// room is the subscriber set of one channel. seq numbers every frame fanned
// out to the channel while the room exists.
type room struct {
	mu    sync.Mutex
	seq   uint64
	conns map[*Conn]struct{}
}

type userKey struct {
	appID  string
	userID string
}

// Gateway owns WebSocket sessions, channel subscriptions, presence and
// typing state. It implements events.Broadcaster.
type Gateway struct {
	cfg      config.RealtimeConfig
	tokens   TokenVerifier
	members  Membership
	sender   Sender
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	now      func() time.Time

	roomsMu sync.RWMutex
	rooms   map[string]*room

	connsMu   sync.RWMutex
	conns     map[*Conn]struct{}
	userConns map[userKey]map[*Conn]struct{}

	presence *presenceRegistry
	typing   *typingTracker
}

var _ events.Broadcaster = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the time source used for ban checks and event stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithCheckOrigin sets the upgrader's origin policy.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(g *Gateway) { g.upgrader.CheckOrigin = check }
}

// New creates a gateway.
func New(cfg config.RealtimeConfig, tokens TokenVerifier, members Membership, sender Sender, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		tokens:  tokens,
		members: members,
		sender:  sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger:    logging.WithComponent("realtime-gateway"),
		now:       func() time.Time { return time.Now().UTC() },
		rooms:     make(map[string]*room),
		conns:     make(map[*Conn]struct{}),
		userConns: make(map[userKey]map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.presence = newPresenceRegistry(g)
	g.typing = newTypingTracker(g)
	return g
}

// ServeHTTP upgrades the request to a WebSocket session. A bearer token in
// the Authorization header or the token query parameter authenticates the
// session immediately; otherwise the client must send an authenticate frame
// within the grace period.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		g.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newConn(g, ws)
	g.register(c)

	go c.writePump()
	if token != "" {
		g.authenticate(c, "", token)
	} else {
		c.mu.Lock()
		if !c.closed && c.identity == nil {
			c.authTimer = time.AfterFunc(g.cfg.AuthGracePeriod, func() {
				if c.Identity() == nil {
					c.close(websocket.ClosePolicyViolation, "authentication timeout")
				}
			})
		}
		c.mu.Unlock()
	}
	go c.readPump()
}

func (g *Gateway) register(c *Conn) {
	g.connsMu.Lock()
	g.conns[c] = struct{}{}
	total := len(g.conns)
	g.connsMu.Unlock()
	metrics.WSConnections.Inc()
	g.logger.Debug().Uint64("conn_id", c.id).Int("total_connections", total).Msg("websocket connection opened")
}

// unregister drops every trace of a closed connection.
func (g *Gateway) unregister(c *Conn, identity *auth.Identity) {
	g.connsMu.Lock()
	if _, ok := g.conns[c]; !ok {
		g.connsMu.Unlock()
		return
	}
	delete(g.conns, c)
	if identity != nil {
		key := userKey{identity.AppID, identity.UserID}
		if set := g.userConns[key]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(g.userConns, key)
			}
		}
	}
	total := len(g.conns)
	g.connsMu.Unlock()
	metrics.WSConnections.Dec()

	if identity != nil {
		g.typing.dropConn(c.id)
		g.presence.disconnect(identity, c.id)
	}
	g.logger.Debug().Uint64("conn_id", c.id).Int("total_connections", total).Msg("websocket connection closed")
}

// authenticate binds the connection to the token's identity and starts its
// presence. A bad token closes the connection.
func (g *Gateway) authenticate(c *Conn, requestID, token string) {
	identity, err := g.tokens.Verify(token)
	if err != nil {
		c.closeAfter(errorFrame(requestID, models.Unauthenticated("invalid token")), websocket.ClosePolicyViolation, "authentication failed")
		return
	}
	if !c.setIdentity(identity) {
		c.reply(errorFrame(requestID, models.Validation("connection already authenticated", nil)))
		return
	}

	key := userKey{identity.AppID, identity.UserID}
	g.connsMu.Lock()
	if _, ok := g.conns[c]; ok {
		set := g.userConns[key]
		if set == nil {
			set = make(map[*Conn]struct{})
			g.userConns[key] = set
		}
		set[c] = struct{}{}
	}
	g.connsMu.Unlock()

	c.reply(Frame{Type: FrameConnectionAck, RequestID: requestID, Data: connectionAck{ConnectionID: c.id, UserID: identity.UserID}})
	g.presence.connect(identity, c.id)
}

// ConnectionCount returns the number of open sessions.
func (g *Gateway) ConnectionCount() int {
	g.connsMu.RLock()
	defer g.connsMu.RUnlock()
	return len(g.conns)
}

func (g *Gateway) connsOf(appID, userID string) []*Conn {
	g.connsMu.RLock()
	defer g.connsMu.RUnlock()
	set := g.userConns[userKey{appID, userID}]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// joinRoom subscribes c to channelID and returns the room's current seq.
func (g *Gateway) joinRoom(channelID string, c *Conn) (uint64, bool) {
	g.roomsMu.Lock()
	r := g.rooms[channelID]
	if r == nil {
		r = &room{conns: make(map[*Conn]struct{})}
		g.rooms[channelID] = r
	}
	r.mu.Lock()
	g.roomsMu.Unlock()
	defer r.mu.Unlock()

	if !c.addRoom(channelID) {
		return 0, false
	}
	r.conns[c] = struct{}{}
	return r.seq, true
}

// leaveRoom unsubscribes c. Empty rooms are discarded.
func (g *Gateway) leaveRoom(channelID string, c *Conn) {
	c.removeRoom(channelID)

	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()
	r := g.rooms[channelID]
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.conns, c)
	empty := len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(g.rooms, channelID)
	}
}

// Broadcast fans an event out to the channel's subscribers. Frames are
// encoded once and queued without blocking; a shadow event only reaches the
// connections of the user that caused it.
func (g *Gateway) Broadcast(e *models.Event) {
	if e == nil {
		return
	}
	if e.ChannelID == "" {
		return
	}
	view := eventView(e)

	g.roomsMu.RLock()
	r := g.rooms[e.ChannelID]
	if r != nil {
		r.mu.Lock()
	}
	g.roomsMu.RUnlock()

	delivered := make(map[*Conn]struct{})
	if r != nil {
		r.seq++
		b, err := encode(Frame{Type: string(e.Type), ChannelID: e.ChannelID, Seq: r.seq, Data: view})
		if err != nil {
			r.mu.Unlock()
			g.logger.Error().Err(err).Str("type", string(e.Type)).Msg("failed to encode event")
			return
		}
		for _, c := range sortedConns(r.conns) {
			if !g.audience(c, e) {
				continue
			}
			c.enqueue(b)
			delivered[c] = struct{}{}
		}
		r.mu.Unlock()
	}

	g.deliverTargeted(e, view, delivered)
	g.applyMembership(e)
}

// audience reports whether c may see e.
func (g *Gateway) audience(c *Conn, e *models.Event) bool {
	id := c.Identity()
	if id == nil || id.AppID != e.AppID {
		return false
	}
	if e.Shadow && id.UserID != e.UserID {
		return false
	}
	return true
}

// deliverTargeted sends membership-changing events to the affected user's
// sessions that are not subscribed to the channel.
func (g *Gateway) deliverTargeted(e *models.Event, view *models.Event, delivered map[*Conn]struct{}) {
	var target string
	switch e.Type {
	case models.EventMemberAdded, models.EventMemberRemoved:
		if e.Member != nil {
			target = e.Member.UserID
		}
	case models.EventChannelCreated:
		target = e.UserID
	default:
		return
	}
	if target == "" || (e.Shadow && target != e.UserID) {
		return
	}

	var b []byte
	for _, c := range g.connsOf(e.AppID, target) {
		if _, ok := delivered[c]; ok {
			continue
		}
		if b == nil {
			var err error
			if b, err = encode(Frame{Type: string(e.Type), ChannelID: e.ChannelID, Data: view}); err != nil {
				return
			}
		}
		c.enqueue(b)
	}
}

// applyMembership keeps subscriptions in line with membership changes.
func (g *Gateway) applyMembership(e *models.Event) {
	switch e.Type {
	case models.EventMemberRemoved:
		if e.Member == nil {
			return
		}
		for _, c := range g.connsOf(e.AppID, e.Member.UserID) {
			if c.joined(e.ChannelID) {
				g.leaveRoom(e.ChannelID, c)
			}
		}
		g.typing.stop(e.AppID, e.ChannelID, e.Member.UserID)
	case models.EventChannelDeleted:
		g.roomsMu.Lock()
		r := g.rooms[e.ChannelID]
		delete(g.rooms, e.ChannelID)
		g.roomsMu.Unlock()
		if r == nil {
			return
		}
		r.mu.Lock()
		conns := sortedConns(r.conns)
		r.conns = map[*Conn]struct{}{}
		r.mu.Unlock()
		for _, c := range conns {
			c.removeRoom(e.ChannelID)
		}
	}
}

// publishTransient stamps and fans out a gateway-originated event.
func (g *Gateway) publishTransient(e *models.Event) {
	metrics.RecordEvent(string(e.Type))
	g.Broadcast(e)
}

func sortedConns(set map[*Conn]struct{}) []*Conn {
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Serve runs until ctx is canceled and then closes every session.
func (g *Gateway) Serve(ctx context.Context) error {
	<-ctx.Done()
	g.shutdown(ctx)
	return ctx.Err()
}

// String names the service in supervisor logs.
func (g *Gateway) String() string {
	return "realtime-gateway"
}

func (g *Gateway) shutdown(ctx context.Context) {
	g.connsMu.RLock()
	conns := sortedConns(g.conns)
	g.connsMu.RUnlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	g.presence.stopTimers()
	g.typing.stopAll()

	g.logger.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("connections_closed", len(conns)).
		Msg("realtime gateway stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}
