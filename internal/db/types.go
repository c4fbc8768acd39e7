package db

import "time"

// Session is a simulator session id this console has used.
type Session struct {
	ID        string
	BaseURL   string
	FirstSeen time.Time
	LastUsed  time.Time
	Frames    int // frames received while the session was current
}

// SessionEvent is one entry in a session's connection history.
type SessionEvent struct {
	ID        int64
	SessionID string
	Ts        time.Time
	EventType string // "learned", "resumed", "connected", "disconnected"
	Detail    string
}
