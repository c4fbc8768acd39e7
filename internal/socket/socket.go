// Package socket owns the single WebSocket connection to the simulator. It
// tracks connection state, records the session id the server hands out,
// keeps the append-only log of received frames and turns operator intents
// into command frames.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kickfaker/kickfaker-demo/internal/events"
	"github.com/kickfaker/kickfaker-demo/internal/protocol"
)

const closeGrace = time.Second

// Config holds connection settings.
type Config struct {
	BaseURL          string // page base URL, e.g. http://localhost:4400
	Path             string // socket path, e.g. /app/demo
	HandshakeTimeout time.Duration
}

// Entry is one received frame plus its local receive time.
type Entry struct {
	protocol.Message
	ReceivedAt time.Time
}

// Client manages one live socket at a time. The zero value is not usable;
// construct with New.
type Client struct {
	cfg      Config
	dialer   *websocket.Dialer
	listener events.Listener
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	conn      *websocket.Conn
	gen       uint64 // bumped whenever the current socket is replaced or closed
	connected bool
	started   bool
	input     string // session id the socket was opened with
	sessionID string // session id learned from the handshake
	url       string
	messages  []Entry

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// New returns a disconnected Client. listener may be nil.
func New(cfg Config, listener events.Listener, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		listener: listener,
		logger:   logger,
		now:      time.Now,
	}
}

// Connect closes any current socket and opens a new one, passing session as
// the session query parameter when non-empty. The message log is kept.
func (c *Client) Connect(ctx context.Context, session string) error {
	c.Close()

	u, err := protocol.BuildURL(c.cfg.BaseURL, c.cfg.Path, session)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.started = true
	c.input = session
	c.url = u
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		c.logger.Warn("socket: dial failed", "url", u, "err", err)
		return fmt.Errorf("dial %s: %w", u, err)
	}

	c.mu.Lock()
	if gen != c.gen {
		// Superseded by Close or another Connect while dialing.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	connID := uuid.NewString()
	c.logger.Info("socket: connected", "url", u, "conn", connID)
	events.Emit(c.listener, events.Event{Kind: events.KindState, Connected: true})

	c.wg.Add(1)
	go c.readLoop(conn, gen, connID)
	return nil
}

// SetSession reconnects with a new session input. It is a no-op when id
// matches the input of the current socket.
func (c *Client) SetSession(ctx context.Context, id string) error {
	c.mu.Lock()
	same := c.started && c.input == id
	c.mu.Unlock()
	if same {
		return nil
	}
	return c.Connect(ctx, id)
}

// Close closes the current socket, if any. Calling it again is harmless.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false
	c.gen++
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	err := conn.Close()
	if wasConnected {
		c.logger.Info("socket: closed", "url", c.URL())
		events.Emit(c.listener, events.Event{Kind: events.KindState, Connected: false})
	}
	return err
}

// Wait blocks until every read loop started by Connect has returned.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64, connID string) {
	defer c.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("socket: read failed", "conn", connID, "err", err)
			} else {
				c.logger.Debug("socket: read loop done", "conn", connID, "err", err)
			}
			break
		}
		c.receive(raw, gen, connID)
	}

	c.mu.Lock()
	current := gen == c.gen
	if current {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()
	conn.Close()

	if current {
		c.logger.Info("socket: disconnected", "conn", connID)
		events.Emit(c.listener, events.Event{Kind: events.KindState, Connected: false})
	}
}

func (c *Client) receive(raw []byte, gen uint64, connID string) {
	m, err := protocol.ParseFrame(raw)
	if err != nil {
		c.logger.Warn("socket: dropping frame", "conn", connID, "err", err)
		return
	}

	learned := false
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if m.Event == protocol.EventConnectionEstablished {
		if id, err := protocol.SessionFromHandshake(m.Data); err != nil {
			c.logger.Warn("socket: bad handshake", "conn", connID, "err", err)
		} else {
			c.sessionID = id
			learned = true
		}
	}
	c.messages = append(c.messages, Entry{Message: m, ReceivedAt: c.now()})
	index := len(c.messages) - 1
	sessionID := c.sessionID
	c.mu.Unlock()

	if learned {
		c.logger.Info("socket: session established", "conn", connID, "session", sessionID)
		events.Emit(c.listener, events.Event{Kind: events.KindSession, SessionID: sessionID})
	}
	events.Emit(c.listener, events.Event{Kind: events.KindMessage, Message: &m, Index: index})
}

// send writes cmd if the socket is open and silently drops it otherwise.
func (c *Client) send(cmd protocol.Command) {
	c.mu.Lock()
	conn := c.conn
	open := c.connected
	c.mu.Unlock()
	if conn == nil || !open {
		c.logger.Debug("socket: not open, dropping command", "event", cmd.Event)
		return
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		c.logger.Error("socket: encode command", "event", cmd.Event, "err", err)
		return
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Debug("socket: write failed", "event", cmd.Event, "err", err)
	}
}

func (c *Client) Subscribe(channel string) {
	c.send(protocol.Subscribe(channel))
}

func (c *Client) TriggerEvent(t protocol.EventType) {
	c.send(protocol.Trigger(t))
}

func (c *Client) SetMessageRate(rate int) {
	c.send(protocol.SetMessageRate(rate))
}

func (c *Client) ToggleChatInterval() {
	c.send(protocol.ToggleChatInterval())
}

func (c *Client) ToggleAllEventsInterval() {
	c.send(protocol.ToggleAllEventsInterval())
}

// Connected reports whether the socket is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionID returns the session id learned from the last handshake, or "".
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Input returns the session id the current socket was opened with.
func (c *Client) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// URL returns the URL of the most recent connection attempt.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Messages returns a copy of the log in arrival order.
func (c *Client) Messages() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of logged frames.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Entry returns the i-th logged frame.
func (c *Client) Entry(i int) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.messages) {
		return Entry{}, false
	}
	return c.messages[i], true
}

// LastReceived returns the receive time of the newest frame, or the zero
// time when the log is empty.
func (c *Client) LastReceived() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return time.Time{}
	}
	return c.messages[len(c.messages)-1].ReceivedAt
}
