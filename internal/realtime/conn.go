// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/config"
	"github.com/tomtom215/switchboard/internal/metrics"
)

// connIDCounter hands out process-unique, increasing connection ids.
var connIDCounter atomic.Uint64

// Conn is one WebSocket session. Outbound frames are queued pre-encoded and
// written by a single writer goroutine; the queue is bounded by
// RealtimeConfig.SendQueueSize.
type Conn struct {
	id      uint64
	gw      *Gateway
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	mu        sync.Mutex
	closed    bool
	identity  *auth.Identity
	rooms     map[string]struct{}
	presence  map[string]string // userID -> last status frame sent
	authTimer *time.Timer

	// set by closeAfter; a nil frame in send tells the writer to close
	closeCode   int
	closeReason string
}

func newConn(gw *Gateway, ws *websocket.Conn) *Conn {
	return &Conn{
		id:       connIDCounter.Add(1),
		gw:       gw,
		ws:       ws,
		send:     make(chan []byte, gw.cfg.SendQueueSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(gw.cfg.InboundRate), gw.cfg.InboundBurst),
		rooms:    make(map[string]struct{}),
		presence: make(map[string]string),
	}
}

// ID returns the connection id.
func (c *Conn) ID() uint64 {
	return c.id
}

// Identity returns the authenticated identity, or nil before authentication.
func (c *Conn) Identity() *auth.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// setIdentity binds the connection to a user once. It reports false if the
// connection is closed or already authenticated.
func (c *Conn) setIdentity(id *auth.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.identity != nil {
		return false
	}
	c.identity = id
	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}
	return true
}

func (c *Conn) userID() string {
	if id := c.Identity(); id != nil {
		return id.UserID
	}
	return ""
}

func (c *Conn) joined(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[channelID]
	return ok
}

func (c *Conn) addRoom(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.rooms[channelID] = struct{}{}
	return true
}

func (c *Conn) removeRoom(channelID string) {
	c.mu.Lock()
	delete(c.rooms, channelID)
	c.mu.Unlock()
}

// reply encodes and queues a frame addressed to this connection only.
func (c *Conn) reply(f Frame) {
	b, err := encode(f)
	if err != nil {
		c.gw.logger.Error().Err(err).Str("type", f.Type).Msg("failed to encode frame")
		return
	}
	c.enqueue(b)
}

// enqueue queues an encoded frame without blocking. When the queue is full
// the configured overflow policy applies: drop_oldest evicts the oldest
// queued frame, disconnect closes the connection.
func (c *Conn) enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enqueueLocked(b)
}

func (c *Conn) enqueueLocked(b []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
	}

	policy := c.gw.cfg.OverflowPolicy
	metrics.WSQueueOverflows.WithLabelValues(policy).Inc()
	if policy == config.OverflowDropOldest {
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- b:
			return true
		default:
			return false
		}
	}

	c.gw.logger.Warn().Uint64("conn_id", c.id).Msg("send queue full, disconnecting slow consumer")
	finish := c.shutdownLocked(websocket.ClosePolicyViolation, "send queue overflow")
	go finish()
	return false
}

// enqueuePresence queues a presence frame unless the connection already saw
// the same status for that user.
func (c *Conn) enqueuePresence(userID, status string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.presence[userID] == status {
		return
	}
	if c.enqueueLocked(b) {
		c.presence[userID] = status
	}
}

// closeAfter queues f and closes the session once it has been written.
func (c *Conn) closeAfter(f Frame, code int, reason string) {
	b, err := encode(f)
	if err != nil {
		c.close(code, reason)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCode, c.closeReason = code, reason
	if c.enqueueLocked(b) {
		c.enqueueLocked(nil)
	}
}

// close ends the session. Queued frames that were not yet written are
// discarded.
func (c *Conn) close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	finish := c.shutdownLocked(code, reason)
	c.mu.Unlock()
	finish()
}

// shutdownLocked marks the connection closed and returns the cleanup that
// must run without c.mu held.
func (c *Conn) shutdownLocked(code int, reason string) func() {
	c.closed = true
	close(c.done)
	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for ch := range c.rooms {
		rooms = append(rooms, ch)
	}
	c.rooms = map[string]struct{}{}
	identity := c.identity

	return func() {
		deadline := time.Now().Add(c.gw.cfg.WriteWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline) // best effort
		_ = c.ws.Close()
		for _, ch := range rooms {
			c.gw.leaveRoom(ch, c)
		}
		c.gw.unregister(c, identity)
	}
}

// readPump decodes inbound commands until the socket fails or closes.
func (c *Conn) readPump() {
	defer c.close(websocket.CloseNormalClosure, "")

	c.ws.SetReadLimit(c.gw.cfg.MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait)); err != nil {
		c.gw.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				c.gw.logger.Debug().Err(err).Uint64("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type == "" {
			metrics.WSErrors.WithLabelValues("decode").Inc()
			c.reply(errorFrame("", errMalformed))
			continue
		}
		c.gw.handle(c, &cmd)
	}
}

// writePump is the only writer of data frames on the socket.
func (c *Conn) writePump() {
	pingPeriod := (c.gw.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close() // best-effort cleanup
	}()

	for {
		select {
		case <-c.done:
			return

		case b := <-c.send:
			if b == nil {
				c.mu.Lock()
				code, reason := c.closeCode, c.closeReason
				c.mu.Unlock()
				c.close(code, reason)
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				go c.close(websocket.CloseAbnormalClosure, "")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				go c.close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}
