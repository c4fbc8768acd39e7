package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/kickfaker/kickfaker-demo/internal/applog"
	"github.com/kickfaker/kickfaker-demo/internal/config"
	"github.com/kickfaker/kickfaker-demo/internal/db"
	"github.com/kickfaker/kickfaker-demo/internal/events"
	"github.com/kickfaker/kickfaker-demo/internal/protocol"
	"github.com/kickfaker/kickfaker-demo/internal/socket"
	"github.com/kickfaker/kickfaker-demo/internal/ui"
)

type rootOptions struct {
	configPath string
	session    string
	url        string
	logLevel   string
	fresh      bool
}

func (o *rootOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", config.DefaultPath(), "config file")
	fs.StringVar(&o.session, "session", "", "session id to join (default: last session when resume is on)")
	fs.StringVar(&o.url, "url", "", "simulator page URL, e.g. http://localhost:4400")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.fresh, "fresh", false, "ignore the stored session and let the server hand out a new one")
}

// env is what every command needs once flags are parsed.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	store  *db.DB
	close  func()
}

func (o *rootOptions) load(withLogFile bool) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.url != "" {
		cfg.Server.URL = o.url
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	e := &env{cfg: cfg, close: func() {}}
	var closers []io.Closer
	if withLogFile {
		logger, rotator, err := applog.Init(applog.InitConfig{
			LogDir:   cfg.LogDir,
			LogLevel: cfg.LogLevel,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
			e.logger = slog.Default()
		} else {
			e.logger = logger
			closers = append(closers, rotator)
		}
	} else {
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: applog.ParseLevel(cfg.LogLevel)}))
	}

	store, err := openDB()
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, fmt.Errorf("open state: %w", err)
	}
	e.store = store
	closers = append([]io.Closer{store}, closers...)
	e.close = func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return e, nil
}

// resolveSession picks the session to start with: the flag, else the stored
// one when resume is on.
func (o *rootOptions) resolveSession(e *env) string {
	if o.session != "" {
		return o.session
	}
	if o.fresh || !e.cfg.Resume {
		return ""
	}
	id, err := e.store.LastSession()
	if err != nil {
		e.logger.Warn("could not read last session", "err", err)
		return ""
	}
	return id
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "kickfaker-demo",
		Short: "Terminal console for the KickFaker stream event simulator",
		Long: `kickfaker-demo connects to a KickFaker simulator over its WebSocket
endpoint, shows the connection status and the stream of fake events, and
lets you trigger chat, subscription, raid and broadcast events.

Without a subcommand it opens the console when stdout is a terminal and
tails events as JSON lines otherwise.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return runUI(o)
			}
			return runTail(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	o.bind(root.PersistentFlags())

	root.AddCommand(
		newUICmd(o),
		newTailCmd(o),
		newTriggerCmd(o),
		newSessionsCmd(o),
		newURLCmd(o),
	)
	return root
}

func newUICmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(o)
		},
	}
}

func runUI(o *rootOptions) error {
	e, err := o.load(true)
	if err != nil {
		return err
	}
	defer e.close()

	session := o.resolveSession(e)
	e.logger.Info("console starting", "url", e.cfg.Server.URL, "session", session)
	return ui.NewApp(e.cfg, e.store, session, e.logger).Run()
}

func newTailCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print received frames as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
}

// tailLine is one line of tail output.
type tailLine struct {
	ReceivedAt time.Time       `json:"received_at"`
	Event      string          `json:"event"`
	Channel    string          `json:"channel,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func runTail(ctx context.Context, o *rootOptions, out io.Writer) error {
	e, err := o.load(false)
	if err != nil {
		return err
	}
	defer e.close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan events.Event, 64)
	done := make(chan struct{})
	client := socket.New(socket.Config{
		BaseURL:          e.cfg.Server.URL,
		Path:             e.cfg.Server.Path,
		HandshakeTimeout: e.cfg.Server.HandshakeTimeout,
	}, events.ListenerFunc(func(ev events.Event) {
		select {
		case updates <- ev:
		case <-done:
		}
	}), e.logger)
	defer client.Wait()
	defer client.Close()
	defer close(done)

	ctrl := ui.NewController(ctx, client, e.store, nil, ui.ControllerConfig{
		BaseURL:  e.cfg.Server.URL,
		Channels: e.cfg.Channels,
		Rate:     e.cfg.MessageRate,
		Session:  o.resolveSession(e),
		Persist:  e.cfg.Resume,
	}, e.logger)
	defer ctrl.Flush()

	if err := client.Connect(ctx, ctrl.Session()); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-updates:
			ctrl.Handle(ev)
			switch ev.Kind {
			case events.KindState:
				if !ev.Connected && !ctrl.Replacing() {
					return errors.New("connection closed by server")
				}
			case events.KindMessage:
				entry, ok := client.Entry(ev.Index)
				if !ok {
					continue
				}
				line := tailLine{
					ReceivedAt: entry.ReceivedAt,
					Event:      entry.Event,
					Channel:    entry.Channel,
					Summary:    protocol.Summarize(entry.Message),
					Data:       entry.Data,
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
		}
	}
}

func newTriggerCmd(o *rootOptions) *cobra.Command {
	names := make([]string, len(protocol.EventTypes))
	for i, t := range protocol.EventTypes {
		names[i] = string(t)
	}
	return &cobra.Command{
		Use:       "trigger <type>",
		Short:     "Ask the simulator for one event and exit",
		Long:      "Ask the simulator for one event and exit. Types: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !protocol.ValidEventType(args[0]) {
				return fmt.Errorf("unknown event type %q (want one of %s)", args[0], strings.Join(names, ", "))
			}
			e, err := o.load(false)
			if err != nil {
				return err
			}
			defer e.close()

			session := o.resolveSession(e)
			if session == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: no session; the event goes to a new session nobody is watching")
			}
			client := socket.New(socket.Config{
				BaseURL:          e.cfg.Server.URL,
				Path:             e.cfg.Server.Path,
				HandshakeTimeout: e.cfg.Server.HandshakeTimeout,
			}, nil, e.logger)
			if err := client.Connect(cmd.Context(), session); err != nil {
				return err
			}
			client.TriggerEvent(protocol.EventType(args[0]))
			client.Close()
			client.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "triggered %s on %s\n", args[0], client.URL())
			return nil
		},
	}
}

func newSessionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions this console has used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.load(false)
			if err != nil {
				return err
			}
			defer e.close()
			return listSessions(cmd.OutOrStdout(), e.store)
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the connection history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.load(false)
			if err != nil {
				return err
			}
			defer e.close()
			evs, err := e.store.GetSessionEvents(args[0], limit)
			if err != nil {
				return err
			}
			for _, ev := range evs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s %s\n", ev.Ts.Format(time.DateTime), ev.EventType, ev.Detail)
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Forget a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.load(false)
			if err != nil {
				return err
			}
			defer e.close()
			return e.store.DeleteSession(args[0])
		},
	}

	cmd.AddCommand(history, rm)
	return cmd
}

func listSessions(w io.Writer, store *db.DB) error {
	sessions, err := store.LoadSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions yet")
		return nil
	}
	last, err := store.LastSession()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		mark := " "
		if s.ID == last {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-36s %10s frames  %-16s %s\n",
			mark, s.ID, humanize.Comma(int64(s.Frames)), humanize.Time(s.LastUsed), s.BaseURL)
	}
	return nil
}

func newURLCmd(o *rootOptions) *cobra.Command {
	var share bool
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the WebSocket URL for the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.load(false)
			if err != nil {
				return err
			}
			defer e.close()
			path := e.cfg.Server.Path
			if share {
				path = e.cfg.Server.SharePath
			}
			u, err := protocol.BuildURL(e.cfg.Server.URL, path, o.resolveSession(e))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().BoolVar(&share, "share", false, "print the shareable "+config.Defaults().Server.SharePath+" URL instead")
	return cmd
}
