package ui

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kickfaker/kickfaker-demo/internal/events"
	"github.com/kickfaker/kickfaker-demo/internal/notify"
	"github.com/kickfaker/kickfaker-demo/internal/protocol"
)

// Hook is the part of socket.Client the console drives.
type Hook interface {
	Connect(ctx context.Context, session string) error
	SetSession(ctx context.Context, id string) error
	Subscribe(channel string)
	TriggerEvent(t protocol.EventType)
	SetMessageRate(rate int)
	ToggleChatInterval()
	ToggleAllEventsInterval()
	Connected() bool
	Input() string
	SessionID() string
	URL() string
}

// SessionStore persists the session to resume and a short history per
// session.
type SessionStore interface {
	SetLastSession(id string) error
	TouchSession(id, baseURL string, now time.Time) error
	InsertSessionEvent(sessionID, eventType, detail string, now time.Time) error
	AddFrames(id string, n int) error
}

// Controls is the operator-side state. It is optimistic: nothing confirms
// that the server agrees with it.
type Controls struct {
	Rate            int
	ChatActive      bool
	AllEventsActive bool
}

// ControllerConfig holds what the controller needs besides its collaborators.
type ControllerConfig struct {
	BaseURL  string
	Channels []string
	Rate     int
	Session  string // session the console starts with, "" to let the server pick
	Persist  bool   // remember learned sessions for the next start
}

// Controller binds operator actions to the hook and reacts to hook updates.
// All methods run on the UI goroutine.
type Controller struct {
	hook     Hook
	store    SessionStore
	notifier *notify.Notifier
	logger   *slog.Logger
	cfg      ControllerConfig

	controls Controls
	session  string // address bar
	pending  int    // frames not yet counted in the store
	learned  string // last session id reported by a handshake
	// replacing is set while the console itself swaps an open socket, so
	// the close of the old one is not reported as a drop. Cleared by the
	// next connect or by a failed dial.
	replacing atomic.Bool

	ctx   context.Context
	now   func() time.Time
	spawn func(func())
}

// NewController returns a Controller. store and notifier may be nil.
func NewController(ctx context.Context, hook Hook, store SessionStore, notifier *notify.Notifier, cfg ControllerConfig, logger *slog.Logger) *Controller {
	return &Controller{
		hook:     hook,
		store:    store,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		controls: Controls{Rate: protocol.ClampRate(cfg.Rate)},
		session:  cfg.Session,
		ctx:      ctx,
		now:      time.Now,
		spawn:    func(f func()) { go f() },
	}
}

func (c *Controller) Controls() Controls { return c.controls }

// Session returns the session id the console is pinned to, or "".
func (c *Controller) Session() string { return c.session }

// Start opens the first socket. Dialing happens off the UI goroutine.
func (c *Controller) Start() {
	if c.session != "" {
		c.recordFor(c.session, "resumed", c.cfg.BaseURL)
	}
	c.connect()
}

// Reconnect reopens the socket with the current session.
func (c *Controller) Reconnect() {
	c.record("reconnect", c.cfg.BaseURL)
	c.replacing.Store(c.hook.Connected())
	c.connect()
}

func (c *Controller) connect() {
	session := c.session
	c.spawn(func() {
		if err := c.hook.Connect(c.ctx, session); err != nil {
			c.replacing.Store(false)
			c.logger.Warn("console: connect failed", "err", err)
		}
	})
}

// SwitchSession pins the console to id and reconnects if it changed.
func (c *Controller) SwitchSession(id string) {
	c.session = id
	if id == c.hook.Input() {
		if !c.hook.Connected() {
			c.connect()
		}
		return
	}
	c.replacing.Store(c.hook.Connected())
	c.spawn(func() {
		if err := c.hook.SetSession(c.ctx, id); err != nil {
			c.replacing.Store(false)
			c.logger.Warn("console: switch session failed", "session", id, "err", err)
		}
	})
}

// StepRate moves the message rate by delta, clamped to 1-10, and sends the
// new rate when it changed.
func (c *Controller) StepRate(delta int) bool {
	return c.SetRate(c.controls.Rate + delta)
}

func (c *Controller) SetRate(rate int) bool {
	rate = protocol.ClampRate(rate)
	if rate == c.controls.Rate {
		return false
	}
	c.controls.Rate = rate
	c.hook.SetMessageRate(rate)
	return true
}

func (c *Controller) ToggleChat() {
	c.controls.ChatActive = !c.controls.ChatActive
	c.hook.ToggleChatInterval()
}

func (c *Controller) ToggleAllEvents() {
	c.controls.AllEventsActive = !c.controls.AllEventsActive
	c.hook.ToggleAllEventsInterval()
}

// Trigger sends the i-th entry of protocol.EventTypes.
func (c *Controller) Trigger(i int) bool {
	if i < 0 || i >= len(protocol.EventTypes) {
		return false
	}
	c.hook.TriggerEvent(protocol.EventTypes[i])
	return true
}

// Replacing reports whether the console is swapping the socket itself, in
// which case the next disconnect is expected.
func (c *Controller) Replacing() bool { return c.replacing.Load() }

// IntervalsActive reports whether the operator left a server-side interval
// running.
func (c *Controller) IntervalsActive() bool {
	return c.controls.ChatActive || c.controls.AllEventsActive
}

// Handle reacts to one hook update.
func (c *Controller) Handle(e events.Event) {
	switch e.Kind {
	case events.KindState:
		if e.Connected {
			c.replacing.Store(false)
			for _, ch := range c.cfg.Channels {
				c.hook.Subscribe(ch)
			}
			// A new socket starts at the simulator's rate; carry ours over.
			if c.controls.Rate != protocol.DefaultRate {
				c.hook.SetMessageRate(c.controls.Rate)
			}
			c.record("connected", c.hook.URL())
			return
		}
		c.record("disconnected", "")
		if c.replacing.Load() {
			return
		}
		c.notify(notify.Notice{Kind: notify.KindDisconnected, SessionID: c.hook.SessionID(), URL: c.hook.URL()})
	case events.KindSession:
		c.learn(e.SessionID)
	case events.KindMessage:
		c.pending++
	}
}

func (c *Controller) learn(id string) {
	if id == "" || id == c.learned {
		return
	}
	c.learned = id
	c.recordFor(id, "learned", "")
	if c.store != nil && c.cfg.Persist {
		if err := c.store.SetLastSession(id); err != nil {
			c.logger.Warn("console: store last session", "session", id, "err", err)
		}
	}
	c.notify(notify.Notice{Kind: notify.KindSession, SessionID: id, URL: c.hook.URL()})

	// Pin the learned id the way the browser wrote it into the address bar;
	// the hook then reopens the socket with ?session=<id>.
	if c.session == "" {
		c.SwitchSession(id)
	}
}

// currentSession is the pinned session, else the one the server handed out.
func (c *Controller) currentSession() string {
	if c.session != "" {
		return c.session
	}
	return c.hook.SessionID()
}

func (c *Controller) record(eventType, detail string) {
	c.recordFor(c.currentSession(), eventType, detail)
}

func (c *Controller) recordFor(id, eventType, detail string) {
	if c.store == nil || id == "" {
		return
	}
	now := c.now()
	if err := c.store.TouchSession(id, c.cfg.BaseURL, now); err != nil {
		c.logger.Warn("console: store session", "session", id, "err", err)
		return
	}
	if err := c.store.InsertSessionEvent(id, eventType, detail, now); err != nil {
		c.logger.Debug("console: record session event", "event", eventType, "err", err)
	}
}

func (c *Controller) notify(n notify.Notice) {
	if c.notifier == nil {
		return
	}
	c.spawn(func() { c.notifier.Notify(n) })
}

// Flush writes the pending frame count to the store.
func (c *Controller) Flush() {
	id := c.currentSession()
	if c.store == nil || id == "" || c.pending == 0 {
		return
	}
	if err := c.store.AddFrames(id, c.pending); err != nil {
		c.logger.Debug("console: flush frame count", "err", err)
		return
	}
	c.pending = 0
}
