// Package protocol defines the JSON frames exchanged with the KickFaker
// simulator over its Pusher-style WebSocket endpoint.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server events.
const (
	EventSubscribe               = "pusher:subscribe"
	EventTrigger                 = "trigger_event"
	EventSetMessageRate          = "set_message_rate"
	EventToggleChatInterval      = "toggle_chat_interval"
	EventToggleAllEventsInterval = "toggle_all_events_interval"
)

// Server -> client events.
const (
	EventConnectionEstablished = "pusher:connection_established"
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventChatMessage           = `App\Events\ChatMessageEvent`
	EventSubscription          = `App\Events\SubscriptionEvent`
	EventGiftedSubscriptions   = `App\Events\GiftedSubscriptionsEvent`
	EventStreamHosted          = `App\Events\StreamHostedEvent`
	EventStreamerIsLive        = `App\Events\StreamerIsLive`
	EventStopStreamBroadcast   = `App\Events\StopStreamBroadcast`
)

// EventType is a kind of fake stream event the simulator can synthesize.
type EventType string

const (
	TypeChat                EventType = "chat"
	TypeChatCelebration     EventType = "chat_celebration"
	TypeSubscription        EventType = "subscription"
	TypeGiftedSubscriptions EventType = "gifted_subscriptions"
	TypeRaid                EventType = "raid"
	TypeLive                EventType = "live"
	TypeStopBroadcast       EventType = "stop_broadcast"
)

// EventTypes lists every trigger type in display order.
var EventTypes = []EventType{
	TypeChat,
	TypeChatCelebration,
	TypeSubscription,
	TypeGiftedSubscriptions,
	TypeRaid,
	TypeLive,
	TypeStopBroadcast,
}

// ValidEventType reports whether s names a trigger type the simulator knows.
func ValidEventType(s string) bool {
	for _, t := range EventTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Message rate bounds, in messages per second.
const (
	MinRate = 1
	MaxRate = 10

	// DefaultRate is the rate the simulator starts every session with.
	DefaultRate = 1
)

// ClampRate forces rate into [MinRate, MaxRate].
func ClampRate(rate int) int {
	switch {
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	default:
		return rate
	}
}

// ErrMalformedFrame is returned when an incoming frame is not a JSON object.
var ErrMalformedFrame = errors.New("malformed frame")

// Message is a frame received from the server. Data is kept verbatim.
type Message struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Channel string          `json:"channel,omitempty"`
}

// ParseFrame decodes one text frame from the server.
func ParseFrame(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return m, nil
}

type handshake struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
	SessionID       string `json:"session_id"`
}

// SessionFromHandshake extracts session_id from the data field of a
// pusher:connection_established frame. The simulator sends data as a JSON
// string holding a JSON object; a bare object is accepted too.
func SessionFromHandshake(data json.RawMessage) (string, error) {
	var h handshake
	if err := json.Unmarshal(unwrap(data), &h); err != nil {
		return "", fmt.Errorf("decode handshake: %w", err)
	}
	return h.SessionID, nil
}

// Command is a frame sent to the server. Data is omitted when nil.
type Command struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type subscribeData struct {
	Channel string `json:"channel"`
}

type triggerData struct {
	Type EventType `json:"type"`
}

type rateData struct {
	Rate int `json:"rate"`
}

func Subscribe(channel string) Command {
	return Command{Event: EventSubscribe, Data: subscribeData{Channel: channel}}
}

func Trigger(t EventType) Command {
	return Command{Event: EventTrigger, Data: triggerData{Type: t}}
}

// SetMessageRate does not clamp; callers decide what to send.
func SetMessageRate(rate int) Command {
	return Command{Event: EventSetMessageRate, Data: rateData{Rate: rate}}
}

func ToggleChatInterval() Command {
	return Command{Event: EventToggleChatInterval}
}

func ToggleAllEventsInterval() Command {
	return Command{Event: EventToggleAllEventsInterval}
}

// unwrap returns the contents of data when it is a JSON string, otherwise
// data itself.
func unwrap(data json.RawMessage) []byte {
	var s string
	if len(data) > 0 && data[0] == '"' && json.Unmarshal(data, &s) == nil {
		return []byte(s)
	}
	return data
}
