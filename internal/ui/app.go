package ui

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kickfaker/kickfaker-demo/internal/config"
	"github.com/kickfaker/kickfaker-demo/internal/events"
	"github.com/kickfaker/kickfaker-demo/internal/monitor"
	"github.com/kickfaker/kickfaker-demo/internal/notify"
	"github.com/kickfaker/kickfaker-demo/internal/protocol"
	"github.com/kickfaker/kickfaker-demo/internal/socket"
	"github.com/kickfaker/kickfaker-demo/internal/ui/dialogs"
)

const consolePage = "console"

type App struct {
	tapp    *tview.Application
	pages   *tview.Pages
	console *Console
	client  *socket.Client
	ctrl    *Controller
	mon     *monitor.Monitor
	cfg     config.Config
	logger  *slog.Logger

	cancel  context.CancelFunc
	stopped atomic.Bool
	focus   int
}

// NewApp wires the console to a fresh socket client. session is the id to
// start with, "" to let the server pick. store may be nil.
func NewApp(cfg config.Config, store SessionStore, session string, logger *slog.Logger) *App {
	a := &App{
		cfg:    cfg,
		logger: logger,
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()
	a.console = NewConsole()

	a.client = socket.New(socket.Config{
		BaseURL:          cfg.Server.URL,
		Path:             cfg.Server.Path,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
	}, a, logger)

	notifier := notify.New(notify.Config{
		Enabled: cfg.Notifications.Enabled,
		Webhook: cfg.Notifications.Webhook,
		NtfyURL: cfg.Notifications.NtfyURL,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.ctrl = NewController(ctx, a.client, store, notifier, ControllerConfig{
		BaseURL:  cfg.Server.URL,
		Channels: cfg.Channels,
		Rate:     cfg.MessageRate,
		Session:  session,
		Persist:  cfg.Resume,
	}, logger)

	a.mon = monitor.New(cfg.RefreshInterval, func() {
		a.tapp.QueueUpdateDraw(func() {
			a.refresh()
			a.ctrl.Flush()
		})
	})

	a.console.SetTriggerFunc(func(i int) { a.ctrl.Trigger(i) })

	a.pages.AddPage(consolePage, a.console, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(false)
	a.tapp.SetInputCapture(a.handleKey)

	return a
}

// Notify receives hook updates from socket goroutines and applies them on
// the UI goroutine.
func (a *App) Notify(e events.Event) {
	if a.stopped.Load() {
		return
	}
	a.tapp.QueueUpdateDraw(func() {
		a.ctrl.Handle(e)
		a.refresh()
	})
}

func (a *App) Run() error {
	a.refresh()
	a.ctrl.Start()
	a.mon.Start()
	defer a.mon.Stop()

	err := a.tapp.Run()

	a.stopped.Store(true)
	a.cancel()
	a.ctrl.Flush()
	a.client.Close()
	a.client.Wait()
	return err
}

func (a *App) refresh() {
	session := a.ctrl.Session()
	if session == "" {
		session = a.client.SessionID()
	}
	h := headerState{
		Connected: a.client.Connected(),
		Session:   session,
		Count:     a.client.Len(),
		Last:      a.client.LastReceived(),
	}
	if session != "" {
		if u, err := protocol.BuildURL(a.cfg.Server.URL, a.cfg.Server.SharePath, session); err == nil {
			h.ShareURL = u
		}
	}
	a.console.SetHeader(h)
	a.console.SetControls(a.ctrl.Controls())

	n := a.client.Len()
	var fresh []socket.Entry
	for i := a.console.Rendered(); i < n; i++ {
		if e, ok := a.client.Entry(i); ok {
			fresh = append(fresh, e)
		}
	}
	a.console.AppendEntries(fresh)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if name, _ := a.pages.GetFrontPage(); name != consolePage {
		return event
	}

	if event.Key() == tcell.KeyTab {
		items := a.console.Focusables()
		a.focus = (a.focus + 1) % len(items)
		a.tapp.SetFocus(items[a.focus])
		return nil
	}

	switch r := event.Rune(); r {
	case '+', '=':
		a.ctrl.StepRate(1)
	case '-':
		a.ctrl.StepRate(-1)
	case 'c':
		a.ctrl.ToggleChat()
	case 'a':
		a.ctrl.ToggleAllEvents()
	case '1', '2', '3', '4', '5', '6', '7':
		a.ctrl.Trigger(int(r - '1'))
	case 's':
		a.showSession()
	case 'r':
		a.ctrl.Reconnect()
	case '?':
		a.showHelp()
	case 'q':
		a.quit()
	default:
		return event
	}
	a.refresh()
	return nil
}

func (a *App) showDialog(name string, widget tview.Primitive, width, height int) {
	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(widget, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, modal, true, true)
	a.tapp.SetFocus(widget)
}

func (a *App) closeDialog(name string) {
	a.pages.RemovePage(name)
	a.tapp.SetFocus(a.console.Focusables()[a.focus])
}

func (a *App) showHelp() {
	help := dialogs.HelpDialog(func() {
		a.closeDialog("help")
	})
	a.showDialog("help", help, 50, 30)
}

func (a *App) showSession() {
	current := a.ctrl.Session()
	if current == "" {
		current = a.client.SessionID()
	}
	form := dialogs.SessionDialog(current,
		func(id string) {
			a.closeDialog("session")
			a.ctrl.SwitchSession(id)
			a.refresh()
		},
		func() { a.closeDialog("session") },
	)
	a.showDialog("session", form, 56, 7)
}

func (a *App) quit() {
	if !a.ctrl.IntervalsActive() {
		a.tapp.Stop()
		return
	}
	ctl := a.ctrl.Controls()
	var running []string
	if ctl.ChatActive {
		running = append(running, "chat")
	}
	if ctl.AllEventsActive {
		running = append(running, "all events")
	}
	modal := dialogs.QuitDialog(running,
		func() { a.closeDialog("confirm-quit"); a.tapp.Stop() },
		func() { a.closeDialog("confirm-quit") },
	)
	a.pages.AddPage("confirm-quit", modal, true, true)
}
