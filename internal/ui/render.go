package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"

	"github.com/kickfaker/kickfaker-demo/internal/protocol"
	"github.com/kickfaker/kickfaker-demo/internal/socket"
)

// headerState is everything the status line shows.
type headerState struct {
	Connected bool
	Session   string
	ShareURL  string
	Count     int
	Last      time.Time
}

func headerText(h headerState) string {
	icon, color, label := StatusIcon(h.Connected)
	var b strings.Builder
	fmt.Fprintf(&b, "%sKICKFAKER DEMO[-]   %s%s %s[-]", colorTag(ColorPrimary), colorTag(color), icon, label)
	if h.Session != "" {
		fmt.Fprintf(&b, "  session %s%s[-]", colorTag(ColorAccent), tview.Escape(h.Session))
	}
	if h.ShareURL != "" {
		fmt.Fprintf(&b, "  %s%s[-]", colorTag(ColorTextMuted), tview.Escape(h.ShareURL))
	}
	fmt.Fprintf(&b, "  %s messages", humanize.Comma(int64(h.Count)))
	if !h.Last.IsZero() {
		fmt.Fprintf(&b, ", last %s", humanize.Time(h.Last))
	}
	return b.String()
}

func controlsText(c Controls) string {
	bar := strings.Repeat(IconActive, c.Rate) + strings.Repeat(IconInactive, protocol.MaxRate-c.Rate)
	return fmt.Sprintf(
		"%sMessage rate[-]  %s %d/s\n\n%s\n%s",
		colorTag(ColorWarning), bar, c.Rate,
		toggleLine("c", "Chat", c.ChatActive),
		toggleLine("a", "All Events", c.AllEventsActive))
}

func toggleLine(key, name string, active bool) string {
	if active {
		return fmt.Sprintf("%s%s[-] %s%s[-] Stop %s", colorTag(ColorSuccess), key, colorTag(ColorSuccess), IconActive, name)
	}
	return fmt.Sprintf("%s%s[-] %s%s[-] Start %s", colorTag(ColorSuccess), key, colorTag(ColorTextMuted), IconInactive, name)
}

// formatEntry renders one log block: event name, summary, channel and the
// indented payload.
func formatEntry(e socket.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s[-] %s%s[-]",
		colorTag(ColorPrimary), tview.Escape(e.Event),
		colorTag(ColorTextMuted), e.ReceivedAt.Format("15:04:05"))
	if s := protocol.Summarize(e.Message); s != "" {
		fmt.Fprintf(&b, "  %s", tview.Escape(s))
	}
	b.WriteByte('\n')
	if e.Channel != "" {
		fmt.Fprintf(&b, "%sChannel:[-] %s\n", colorTag(ColorAccent), tview.Escape(e.Channel))
	}
	if len(e.Data) > 0 {
		b.WriteString(tview.Escape(protocol.PrettyData(e.Data)))
		b.WriteByte('\n')
	}
	return b.String()
}

// titleCase turns a trigger type into a button label: gifted_subscriptions
// becomes Gifted Subscriptions.
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
