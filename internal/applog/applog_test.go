package applog_test

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kickfaker/kickfaker-demo/internal/applog"
)

func day(d int) func() time.Time {
	return func() time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }
}

func TestRotatorCreatesFileOnFirstWrite(t *testing.T) {
	dir := t.TempDir()
	r := applog.NewRotator(dir, "", 0)
	defer r.Close()

	if r.Path() != "" {
		t.Errorf("path before first write: got %q", r.Path())
	}
	r.SetNow(day(4))
	if _, err := r.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "kickfaker-demo-2026-03-04.log")
	if r.Path() != want {
		t.Errorf("path: got %q want %q", r.Path(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected %q to exist: %v", want, err)
	}
}

func TestRotatorRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	r := applog.NewRotator(dir, "demo", 2)

	for d := 1; d <= 4; d++ {
		r.SetNow(day(d))
		if _, err := r.Write([]byte("entry\n")); err != nil {
			t.Fatal(err)
		}
	}
	r.Close()

	matches, _ := filepath.Glob(filepath.Join(dir, "demo-*.log"))
	if len(matches) != 2 {
		t.Fatalf("expected 2 files after pruning, got %v", matches)
	}
	for _, name := range matches {
		base := filepath.Base(name)
		if base != "demo-2026-03-03.log" && base != "demo-2026-03-04.log" {
			t.Errorf("unexpected surviving file %q", base)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		" debug ": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := applog.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestInitRedirectsSlogAndStdlib(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, rotator, err := applog.Init(applog.InitConfig{LogDir: dir, LogLevel: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	defer rotator.Close()
	defer log.SetOutput(os.Stderr)

	logger.Debug("socket: connected", "conn", "abc")
	log.Print("stdlib-marker")

	data, err := os.ReadFile(rotator.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"socket: connected", "conn=abc", "stdlib-marker"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q: %q", want, string(data))
		}
	}
}
