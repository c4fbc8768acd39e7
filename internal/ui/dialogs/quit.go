package dialogs

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// QuitDialog asks before leaving while server-side intervals keep running.
// running names the active intervals. q confirms, Escape stays.
func QuitDialog(running []string, onQuit, onStay func()) *tview.Modal {
	modal := tview.NewModal().
		SetText(quitMessage(running)).
		AddButtons([]string{"Quit", "Stay"}).
		SetDoneFunc(func(_ int, label string) {
			if label == "Quit" {
				onQuit()
			} else {
				onStay()
			}
		})
	modal.SetBorderColor(tcell.ColorYellow)
	modal.SetTitle(" Quit ")
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape:
			onStay()
			return nil
		case event.Rune() == 'q':
			onQuit()
			return nil
		}
		return event
	})
	return modal
}

func quitMessage(running []string) string {
	return fmt.Sprintf("The %s interval keeps sending events after you quit.\nQuit anyway?",
		strings.Join(running, " and "))
}
