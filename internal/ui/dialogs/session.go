package dialogs

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// SessionDialog asks for the session id to switch to. An empty id lets the
// server hand out a fresh one.
func SessionDialog(current string, onSubmit func(string), onCancel func()) *tview.Form {
	form := tview.NewForm()
	form.SetBorder(true).SetTitle(" Session ").SetTitleAlign(tview.AlignLeft)
	form.SetBackgroundColor(tcell.ColorDefault)
	form.SetFieldBackgroundColor(tcell.ColorDefault)

	form.AddInputField("Session id", current, 40, nil, nil)
	form.AddButton("Switch", func() {
		id := form.GetFormItemByLabel("Session id").(*tview.InputField).GetText()
		onSubmit(strings.TrimSpace(id))
	})
	form.AddButton("Cancel", onCancel)
	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			onCancel()
			return nil
		}
		return event
	})
	return form
}
