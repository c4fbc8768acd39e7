package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/kickfaker/kickfaker-demo/internal/protocol"
	"github.com/kickfaker/kickfaker-demo/internal/socket"
)

// Console is the main screen: status header, controls, trigger list and the
// event log.
type Console struct {
	*tview.Flex
	header   *tview.TextView
	controls *tview.TextView
	triggers *tview.List
	log      *tview.TextView
	footer   *tview.TextView

	rendered int // log entries already written to the log view

	onTrigger func(i int)
}

func NewConsole() *Console {
	c := &Console{}

	c.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	c.header.SetBackgroundColor(ColorBackgroundPanel)

	c.controls = tview.NewTextView().
		SetDynamicColors(true)
	c.controls.SetBackgroundColor(ColorBackground)
	c.controls.SetBorder(true).SetTitle(" Controls ").SetTitleAlign(tview.AlignLeft)
	c.controls.SetBorderColor(ColorBorder)

	c.triggers = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(ColorSelected).
		SetSelectedTextColor(ColorSelectedText).
		SetMainTextColor(ColorText).
		SetShortcutColor(ColorSuccess)
	c.triggers.SetBackgroundColor(ColorBackground)
	c.triggers.SetBorder(true).SetTitle(" Trigger Events ").SetTitleAlign(tview.AlignLeft)
	c.triggers.SetBorderColor(ColorBorder)
	for i, t := range protocol.EventTypes {
		idx := i
		c.triggers.AddItem(titleCase(string(t)), "", rune('1'+i), func() {
			if c.onTrigger != nil {
				c.onTrigger(idx)
			}
		})
	}

	c.log = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	c.log.SetBackgroundColor(ColorBackground)
	c.log.SetBorder(true).SetTitle(" Events ").SetTitleAlign(tview.AlignLeft)
	c.log.SetBorderColor(ColorBorder)

	c.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	c.footer.SetBackgroundColor(ColorBackgroundPanel)
	c.footer.SetText(
		"[green]1-7[-] trigger  [green]+/-[-] rate  [green]c[-] chat  [green]a[-] all events  " +
			"[green]s[-] session  [green]r[-] reconnect  [green]Tab[-] focus  [green]?[-] help  [green]q[-] quit")

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.controls, 6, 0, false).
		AddItem(c.triggers, 0, 1, true)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 34, 0, true).
		AddItem(c.log, 0, 1, false)

	c.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.header, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(c.footer, 1, 0, false)

	return c
}

func (c *Console) SetTriggerFunc(fn func(i int)) {
	c.onTrigger = fn
}

func (c *Console) SetHeader(h headerState) {
	c.header.SetText(headerText(h))
}

func (c *Console) SetControls(ctl Controls) {
	c.controls.SetText(controlsText(ctl))
}

// Rendered is the number of log entries already written to the log view.
func (c *Console) Rendered() int { return c.rendered }

// AppendEntries writes entries below the ones already shown.
func (c *Console) AppendEntries(entries []socket.Entry) {
	if len(entries) == 0 {
		return
	}
	w := c.log.BatchWriter()
	for _, e := range entries {
		fmt.Fprintln(w, formatEntry(e))
	}
	w.Close()
	c.rendered += len(entries)
	c.log.ScrollToEnd()
}

// Focusables returns the widgets Tab cycles through.
func (c *Console) Focusables() []tview.Primitive {
	return []tview.Primitive{c.triggers, c.log}
}
