package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// Config holds notification settings.
type Config struct {
	Enabled bool
	Webhook string
	NtfyURL string
}

// Kind is the connection change being reported.
type Kind string

const (
	KindDisconnected Kind = "disconnected"
	KindSession      Kind = "session"
)

// Notice describes one connection change.
type Notice struct {
	Kind      Kind
	SessionID string
	URL       string
}

// Notifier fires desktop notifications and optional webhook/ntfy POSTs.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Notify reports n. It blocks for at most the HTTP timeout per target; call
// it off the UI goroutine.
func (n *Notifier) Notify(notice Notice) {
	if n == nil || !n.cfg.Enabled {
		return
	}

	n.sendSystemNotification(message(notice))
	if n.cfg.Webhook != "" {
		n.sendWebhook(notice)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(notice)
	}
}

func message(notice Notice) string {
	switch notice.Kind {
	case KindDisconnected:
		return fmt.Sprintf("Disconnected from %s", notice.URL)
	case KindSession:
		return fmt.Sprintf("Session %s established", notice.SessionID)
	default:
		return string(notice.Kind)
	}
}

func (n *Notifier) sendSystemNotification(msg string) {
	if runtime.GOOS != "darwin" {
		return
	}
	script := fmt.Sprintf(`display notification %q with title "kickfaker-demo"`, msg)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		n.logger.Debug("notify: osascript failed", "err", err)
	}
}

type webhookPayload struct {
	Event     string `json:"event"`
	Session   string `json:"session,omitempty"`
	URL       string `json:"url,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) sendWebhook(notice Notice) {
	n.post("webhook", n.cfg.Webhook, webhookPayload{
		Event:     string(notice.Kind),
		Session:   notice.SessionID,
		URL:       notice.URL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(notice Notice) {
	priority, tag := 3, "satellite"
	if notice.Kind == KindDisconnected {
		priority, tag = 4, "warning"
	}
	n.post("ntfy", n.cfg.NtfyURL, ntfyPayload{
		Title:    "kickfaker-demo",
		Message:  message(notice),
		Priority: priority,
		Tags:     []string{tag},
	})
}

func (n *Notifier) post(target, url string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("notify: "+target+" failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("notify: "+target+" rejected", "status", resp.StatusCode)
	}
}
