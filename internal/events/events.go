package events

import "github.com/kickfaker/kickfaker-demo/internal/protocol"

// Kind identifies what changed on a socket client.
type Kind string

const (
	KindState   Kind = "state"
	KindSession Kind = "session"
	KindMessage Kind = "message"
)

// Event is an update pushed from a socket client to the view.
type Event struct {
	Kind      Kind              `json:"kind"`
	Connected bool              `json:"connected,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Message   *protocol.Message `json:"message,omitempty"`
	Index     int               `json:"index,omitempty"`
}

// Listener receives client updates. Calls arrive on the client's read
// goroutine; implementations must hand off to their own loop.
type Listener interface {
	Notify(e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(e Event)

func (f ListenerFunc) Notify(e Event) { f(e) }

// Emit calls l.Notify, treating a nil Listener as a no-op.
func Emit(l Listener, e Event) {
	if l != nil {
		l.Notify(e)
	}
}
