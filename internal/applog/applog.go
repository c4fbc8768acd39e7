// Package applog routes structured logs to a file, since the terminal is
// owned by the console UI.
package applog

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultPrefix  = "kickfaker-demo"
	defaultMaxDays = 7
	dateLayout     = "2006-01-02"
)

// Rotator is an io.Writer that appends to <prefix>-<date>.log in dir and
// switches files when the calendar day changes, keeping at most maxDays.
type Rotator struct {
	mu      sync.Mutex
	dir     string
	prefix  string
	maxDays int
	date    string
	file    *os.File
	now     func() time.Time
}

func NewRotator(dir, prefix string, maxDays int) *Rotator {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if maxDays <= 0 {
		maxDays = defaultMaxDays
	}
	return &Rotator{dir: dir, prefix: prefix, maxDays: maxDays, now: time.Now}
}

// SetNow replaces the clock. Tests only.
func (r *Rotator) SetNow(fn func() time.Time) {
	r.mu.Lock()
	r.now = fn
	r.mu.Unlock()
}

func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if today := r.now().Format(dateLayout); today != r.date {
		if err := r.open(today); err != nil {
			return 0, err
		}
	}
	return r.file.Write(p)
}

// Path returns the file currently written to, or "" before the first write.
func (r *Rotator) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.date == "" {
		return ""
	}
	return r.name(r.date)
}

func (r *Rotator) name(date string) string {
	return filepath.Join(r.dir, r.prefix+"-"+date+".log")
}

func (r *Rotator) open(date string) error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	f, err := os.OpenFile(r.name(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	r.file = f
	r.date = date
	r.prune()
	return nil
}

// prune relies on the date layout sorting lexically.
func (r *Rotator) prune() {
	matches, err := filepath.Glob(filepath.Join(r.dir, r.prefix+"-*.log"))
	if err != nil || len(matches) <= r.maxDays {
		return
	}
	sort.Strings(matches)
	for _, f := range matches[:len(matches)-r.maxDays] {
		os.Remove(f)
	}
}

func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.date = ""
	return err
}

// InitConfig holds configuration for Init.
type InitConfig struct {
	LogDir   string
	LogLevel string
	Prefix   string // file name prefix, defaults to kickfaker-demo
	MaxDays  int    // defaults to 7
}

// Init installs a slog text handler writing to a Rotator in cfg.LogDir as
// the default logger and points the stdlib log package at the same file.
// The caller must Close the returned Rotator.
func Init(cfg InitConfig) (*slog.Logger, *Rotator, error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := NewRotator(cfg.LogDir, cfg.Prefix, cfg.MaxDays)
	logger := slog.New(slog.NewTextHandler(rotator, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	log.SetOutput(rotator)
	log.SetFlags(0)
	return logger, rotator, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
