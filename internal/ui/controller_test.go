package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kickfaker/kickfaker-demo/internal/events"
	"github.com/kickfaker/kickfaker-demo/internal/notify"
	"github.com/kickfaker/kickfaker-demo/internal/protocol"
)

type fakeHook struct {
	connects  []string
	sessions  []string
	sent      []string
	learned   string
	url       string
	input     string
	connected bool
	dialErr   error
}

func (h *fakeHook) Connect(_ context.Context, s string) error {
	h.connects = append(h.connects, s)
	h.input = s
	return h.dialErr
}
func (h *fakeHook) SetSession(_ context.Context, id string) error {
	h.sessions = append(h.sessions, id)
	h.input = id
	return h.dialErr
}
func (h *fakeHook) Subscribe(ch string)               { h.sent = append(h.sent, "subscribe:"+ch) }
func (h *fakeHook) TriggerEvent(t protocol.EventType) { h.sent = append(h.sent, "trigger:"+string(t)) }
func (h *fakeHook) SetMessageRate(r int)              { h.sent = append(h.sent, "rate:"+strconv.Itoa(r)) }
func (h *fakeHook) ToggleChatInterval()               { h.sent = append(h.sent, "toggle_chat") }
func (h *fakeHook) ToggleAllEventsInterval()          { h.sent = append(h.sent, "toggle_all") }
func (h *fakeHook) Connected() bool                   { return h.connected }
func (h *fakeHook) Input() string                     { return h.input }
func (h *fakeHook) SessionID() string                 { return h.learned }
func (h *fakeHook) URL() string                       { return h.url }

type fakeStore struct {
	last    string
	touched []string
	events  []string
	frames  map[string]int
}

func (s *fakeStore) SetLastSession(id string) error { s.last = id; return nil }
func (s *fakeStore) TouchSession(id, _ string, _ time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}
func (s *fakeStore) InsertSessionEvent(id, ev, _ string, _ time.Time) error {
	s.events = append(s.events, id+":"+ev)
	return nil
}
func (s *fakeStore) AddFrames(id string, n int) error {
	if s.frames == nil {
		s.frames = map[string]int{}
	}
	s.frames[id] += n
	return nil
}

func countingNotifier(t *testing.T) (*notify.Notifier, *atomic.Int32) {
	t.Helper()
	posts := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
	}))
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notify.New(notify.Config{Enabled: true, Webhook: srv.URL}, logger), posts
}

func newTestController(cfg ControllerConfig) (*Controller, *fakeHook, *fakeStore) {
	hook := &fakeHook{url: "ws://localhost:4400/app/demo"}
	store := &fakeStore{}
	c := NewController(context.Background(), hook, store, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.spawn = func(f func()) { f() }
	return c, hook, store
}

func TestControllerStartConnectsWithSession(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Session: "abc", Rate: 1})
	c.Start()
	if len(hook.connects) != 1 || hook.connects[0] != "abc" {
		t.Errorf("connects: %v", hook.connects)
	}
	if len(store.events) != 1 || store.events[0] != "abc:resumed" {
		t.Errorf("events: %v", store.events)
	}
}

func TestControllerSubscribesOnConnect(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Channels: []string{"chatroom-1", "channel-1"}, Rate: 1})
	c.Handle(events.Event{Kind: events.KindState, Connected: true})
	want := []string{"subscribe:chatroom-1", "subscribe:channel-1"}
	if len(hook.sent) != 2 || hook.sent[0] != want[0] || hook.sent[1] != want[1] {
		t.Errorf("sent: %v", hook.sent)
	}

	hook.sent = nil
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	if len(hook.sent) != 0 {
		t.Errorf("disconnect should send nothing, got %v", hook.sent)
	}
}

func TestControllerPinsLearnedSession(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Persist: true, Rate: 1})
	hook.learned = "s1"
	c.Handle(events.Event{Kind: events.KindSession, SessionID: "s1"})

	if c.Session() != "s1" {
		t.Errorf("session: got %q", c.Session())
	}
	if store.last != "s1" {
		t.Errorf("last session: got %q", store.last)
	}
	if len(hook.sessions) != 1 || hook.sessions[0] != "s1" {
		t.Errorf("expected reconnect with s1, got %v", hook.sessions)
	}
	if len(store.events) != 1 || store.events[0] != "s1:learned" {
		t.Errorf("events: %v", store.events)
	}

	// The reconnect's handshake carries the same id: no further reconnect.
	c.Handle(events.Event{Kind: events.KindSession, SessionID: "s1"})
	if len(hook.sessions) != 1 {
		t.Errorf("unexpected reconnect: %v", hook.sessions)
	}
}

func TestControllerKeepsSuppliedSession(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Session: "mine", Rate: 1})
	hook.learned = "mine"
	c.Handle(events.Event{Kind: events.KindSession, SessionID: "mine"})
	if len(hook.sessions) != 0 {
		t.Errorf("supplied session must not trigger reconnect, got %v", hook.sessions)
	}
	if store.last != "" {
		t.Errorf("persist disabled, got last %q", store.last)
	}
}

func TestControllerRate(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Rate: 1})

	if c.StepRate(-1) {
		t.Error("rate below 1 should not change")
	}
	if !c.StepRate(1) || c.Controls().Rate != 2 {
		t.Errorf("rate: got %d", c.Controls().Rate)
	}
	c.SetRate(99)
	if c.Controls().Rate != 10 {
		t.Errorf("rate should clamp to 10, got %d", c.Controls().Rate)
	}
	if c.StepRate(1) {
		t.Error("rate above 10 should not change")
	}
	want := []string{"rate:2", "rate:10"}
	if len(hook.sent) != 2 || hook.sent[0] != want[0] || hook.sent[1] != want[1] {
		t.Errorf("sent: %v", hook.sent)
	}
}

func TestControllerTogglesFlipInLockstep(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Rate: 1})

	c.ToggleChat()
	c.ToggleAllEvents()
	if !c.Controls().ChatActive || !c.Controls().AllEventsActive || !c.IntervalsActive() {
		t.Errorf("controls: %+v", c.Controls())
	}
	c.ToggleChat()
	if c.Controls().ChatActive {
		t.Error("chat should be inactive after second toggle")
	}
	want := []string{"toggle_chat", "toggle_all", "toggle_chat"}
	for i, w := range want {
		if hook.sent[i] != w {
			t.Errorf("sent[%d]: got %q want %q", i, hook.sent[i], w)
		}
	}
}

func TestControllerTrigger(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Rate: 1})
	if !c.Trigger(4) {
		t.Fatal("trigger 4 should be valid")
	}
	if hook.sent[0] != "trigger:raid" {
		t.Errorf("got %q", hook.sent[0])
	}
	if c.Trigger(7) || c.Trigger(-1) {
		t.Error("out of range index should be rejected")
	}
	if len(hook.sent) != 1 {
		t.Errorf("sent: %v", hook.sent)
	}
}

func TestControllerFlushCountsFrames(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Session: "s9", Rate: 1})
	hook.learned = "s9"
	for i := 0; i < 3; i++ {
		c.Handle(events.Event{Kind: events.KindMessage, Index: i})
	}
	c.Flush()
	c.Flush()
	if store.frames["s9"] != 3 {
		t.Errorf("frames: got %d", store.frames["s9"])
	}
}

func TestControllerNotifiesOnlyUnexpectedDrops(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Session: "s1", Rate: 1})
	notifier, posts := countingNotifier(t)
	c.notifier = notifier
	hook.input, hook.connected = "s1", true

	c.SwitchSession("s2")
	if !c.Replacing() {
		t.Fatal("expected Replacing after SwitchSession")
	}
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	if n := posts.Load(); n != 0 {
		t.Fatalf("switching sessions should not notify, got %d posts", n)
	}
	c.Handle(events.Event{Kind: events.KindState, Connected: true})
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	if n := posts.Load(); n != 1 {
		t.Errorf("server-side close should notify once, got %d posts", n)
	}
}

func TestControllerSameSessionKeepsDropsVisible(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Session: "s1", Rate: 1})
	notifier, posts := countingNotifier(t)
	c.notifier = notifier
	hook.input, hook.connected = "s1", true

	c.SwitchSession("s1")
	if c.Replacing() {
		t.Fatal("switching to the current session should not expect a close")
	}
	if len(hook.sessions) != 0 || len(hook.connects) != 0 {
		t.Errorf("no reconnect expected, got sessions=%v connects=%v", hook.sessions, hook.connects)
	}
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	if n := posts.Load(); n != 1 {
		t.Errorf("server-side close should notify, got %d posts", n)
	}

	// Same id while disconnected dials again.
	hook.connected = false
	c.SwitchSession("s1")
	if len(hook.connects) != 1 || hook.connects[0] != "s1" {
		t.Errorf("connects: %v", hook.connects)
	}
}

func TestControllerFailedDialClearsReplacing(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Session: "s1", Rate: 1})
	notifier, posts := countingNotifier(t)
	c.notifier = notifier
	hook.input, hook.connected = "s1", true
	hook.dialErr = errors.New("connection refused")

	c.SwitchSession("s2")
	if c.Replacing() {
		t.Error("failed switch should clear Replacing")
	}
	c.Reconnect()
	if c.Replacing() {
		t.Error("failed reconnect should clear Replacing")
	}
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	if n := posts.Load(); n != 1 {
		t.Errorf("drop after failed dial should notify, got %d posts", n)
	}
}

func TestControllerRepeatedHandshakeLearnsOnce(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Persist: true, Rate: 1})
	notifier, posts := countingNotifier(t)
	c.notifier = notifier
	hook.learned, hook.connected = "s1", true

	c.Handle(events.Event{Kind: events.KindSession, SessionID: "s1"})
	c.Handle(events.Event{Kind: events.KindState, Connected: false})
	c.Handle(events.Event{Kind: events.KindState, Connected: true})
	c.Handle(events.Event{Kind: events.KindSession, SessionID: "s1"})

	if n := posts.Load(); n != 1 {
		t.Errorf("expected one session notice, got %d", n)
	}
	learned := 0
	for _, ev := range store.events {
		if ev == "s1:learned" {
			learned++
		}
	}
	if learned != 1 {
		t.Errorf("expected one learned row, got %v", store.events)
	}

	c.Handle(events.Event{Kind: events.KindSession, SessionID: "s2"})
	if n := posts.Load(); n != 2 {
		t.Errorf("new id should notify, got %d", n)
	}
}

func TestControllerSendsConfiguredRateOnConnect(t *testing.T) {
	c, hook, _ := newTestController(ControllerConfig{Channels: []string{"chatroom-1"}, Rate: 5})
	c.Handle(events.Event{Kind: events.KindState, Connected: true})
	want := []string{"subscribe:chatroom-1", "rate:5"}
	if len(hook.sent) != len(want) || hook.sent[0] != want[0] || hook.sent[1] != want[1] {
		t.Errorf("sent: %v", hook.sent)
	}

	c.SetRate(1)
	hook.sent = nil
	c.Handle(events.Event{Kind: events.KindState, Connected: true})
	if len(hook.sent) != 1 {
		t.Errorf("default rate should not be resent, got %v", hook.sent)
	}
}

func TestControllerReconnectRecordsReconnect(t *testing.T) {
	c, hook, store := newTestController(ControllerConfig{Session: "s1", Rate: 1})
	hook.input, hook.connected = "s1", true
	c.Reconnect()
	if len(store.events) != 1 || store.events[0] != "s1:reconnect" {
		t.Errorf("events: %v", store.events)
	}
	if len(hook.connects) != 1 || hook.connects[0] != "s1" {
		t.Errorf("connects: %v", hook.connects)
	}
}
