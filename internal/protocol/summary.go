package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type badge struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatMessage struct {
	ID         string      `json:"id"`
	ChatroomID json.Number `json:"chatroom_id"`
	Content    string      `json:"content"`
	Type       string      `json:"type"`
	CreatedAt  string      `json:"created_at"`
	Sender     struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Slug     string `json:"slug"`
		Identity struct {
			Color  string  `json:"color"`
			Badges []badge `json:"badges"`
		} `json:"identity"`
	} `json:"sender"`
	Metadata struct {
		Celebration struct {
			Type        string      `json:"type"`
			TotalMonths json.Number `json:"total_months"`
		} `json:"celebration"`
	} `json:"metadata"`
}

type subscription struct {
	ChatroomID int    `json:"chatroom_id"`
	Username   string `json:"username"`
	Months     int    `json:"months"`
}

type giftedSubscriptions struct {
	GifterUsername  string   `json:"gifter_username"`
	GiftedUsernames []string `json:"gifted_usernames"`
	GifterTotal     int      `json:"gifter_total"`
}

type streamHosted struct {
	Message struct {
		NumberOfViewers uint `json:"numberOfViewers"`
	} `json:"message"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

type liveStream struct {
	Livestream struct {
		ID    int    `json:"id"`
		Title string `json:"session_title"`
	} `json:"livestream"`
}

// Summarize returns a one-line description of a known simulator frame, or ""
// when the event is unknown or its payload does not decode.
func Summarize(m Message) string {
	payload := unwrap(m.Data)
	switch m.Event {
	case EventConnectionEstablished:
		var h handshake
		if json.Unmarshal(payload, &h) != nil {
			return ""
		}
		return fmt.Sprintf("connected, session %s", h.SessionID)
	case EventSubscriptionSucceeded:
		return fmt.Sprintf("subscribed to %s", m.Channel)
	case EventChatMessage:
		var c chatMessage
		if json.Unmarshal(payload, &c) != nil {
			return ""
		}
		name := c.Sender.Username
		if len(c.Sender.Identity.Badges) > 0 {
			var labels []string
			for _, b := range c.Sender.Identity.Badges {
				labels = append(labels, b.Text)
			}
			name = fmt.Sprintf("%s [%s]", name, strings.Join(labels, ", "))
		}
		if c.Type == "celebration" {
			return fmt.Sprintf("%s celebrates %s months: %s", name, c.Metadata.Celebration.TotalMonths, c.Content)
		}
		return fmt.Sprintf("%s: %s", name, c.Content)
	case EventSubscription:
		var s subscription
		if json.Unmarshal(payload, &s) != nil {
			return ""
		}
		return fmt.Sprintf("%s subscribed (%d months)", s.Username, s.Months)
	case EventGiftedSubscriptions:
		var g giftedSubscriptions
		if json.Unmarshal(payload, &g) != nil {
			return ""
		}
		return fmt.Sprintf("%s gifted %d subs", g.GifterUsername, len(g.GiftedUsernames))
	case EventStreamHosted:
		var r streamHosted
		if json.Unmarshal(payload, &r) != nil {
			return ""
		}
		return fmt.Sprintf("%s raided with %d viewers", r.User.Username, r.Message.NumberOfViewers)
	case EventStreamerIsLive, EventStopStreamBroadcast:
		var l liveStream
		if json.Unmarshal(payload, &l) != nil {
			return ""
		}
		if m.Event == EventStopStreamBroadcast {
			return fmt.Sprintf("stream %d stopped", l.Livestream.ID)
		}
		return fmt.Sprintf("live: %s", l.Livestream.Title)
	}
	return ""
}

// PrettyData renders a payload as two-space indented JSON. A string holding
// JSON is unwrapped first.
func PrettyData(data json.RawMessage) string {
	if len(data) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, unwrap(data), "", "  "); err != nil {
		buf.Reset()
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return string(data)
		}
	}
	return buf.String()
}
