package dialogs

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpText = `[yellow]Trigger Events[-]

  [green]1[-]        Chat
  [green]2[-]        Chat Celebration
  [green]3[-]        Subscription
  [green]4[-]        Gifted Subscriptions
  [green]5[-]        Raid
  [green]6[-]        Live
  [green]7[-]        Stop Broadcast
  [green]Enter[-]    Trigger selected event

[yellow]Controls[-]

  [green]+/=[-]      Raise message rate
  [green]-[-]        Lower message rate
  [green]c[-]        Start/stop chat interval
  [green]a[-]        Start/stop all events interval

[yellow]Connection[-]

  [green]s[-]        Switch session
  [green]r[-]        Reconnect
  [green]Tab[-]      Focus triggers / event log
  [green]?[-]        This help
  [green]q[-]        Quit

Press [green]Escape[-] or [green]?[-] to close.`

func HelpDialog(onClose func()) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetBorder(true).SetTitle(" Help ").SetTitleAlign(tview.AlignLeft)
	tv.SetDynamicColors(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetText(helpText)
	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == '?' {
			onClose()
			return nil
		}
		return event
	})
	return tv
}
