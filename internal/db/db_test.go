package db_test

import (
	"testing"
	"time"

	"github.com/kickfaker/kickfaker-demo/internal/db"
)

func openStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestLastSession(t *testing.T) {
	store := openStore(t)

	got, err := store.LastSession()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("empty store: got %q", got)
	}

	if err := store.SetLastSession("s1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.LastSession(); got != "s1" {
		t.Errorf("got %q want s1", got)
	}

	if err := store.SetLastSession(""); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.LastSession(); got != "" {
		t.Errorf("after clear: got %q", got)
	}
}

func TestTouchSessionUpserts(t *testing.T) {
	store := openStore(t)
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	if err := store.TouchSession("s1", "http://localhost:4400", t0); err != nil {
		t.Fatal(err)
	}
	if err := store.TouchSession("s2", "http://localhost:4400", t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := store.TouchSession("s1", "https://sim.example.com", t1); err != nil {
		t.Fatal(err)
	}
	if err := store.AddFrames("s1", 3); err != nil {
		t.Fatal(err)
	}

	s, err := store.GetSession("s1")
	if err != nil {
		t.Fatal(err)
	}
	if !s.FirstSeen.Equal(t0) || !s.LastUsed.Equal(t1) {
		t.Errorf("times: first %v last %v", s.FirstSeen, s.LastUsed)
	}
	if s.BaseURL != "https://sim.example.com" {
		t.Errorf("base url: got %q", s.BaseURL)
	}
	if s.Frames != 3 {
		t.Errorf("frames: got %d", s.Frames)
	}

	sessions, err := store.LoadSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s1" {
		t.Fatalf("expected s1 first, got %+v", sessions)
	}
}

func TestDeleteSessionClearsHistoryAndLast(t *testing.T) {
	store := openStore(t)
	now := time.Now()
	store.TouchSession("s1", "http://localhost:4400", now)
	store.SetLastSession("s1")
	if err := store.InsertSessionEvent("s1", "learned", "", now); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteSession("s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSession("s1"); err == nil {
		t.Error("expected error fetching deleted session")
	}
	if got, _ := store.LastSession(); got != "" {
		t.Errorf("last session should be cleared, got %q", got)
	}
	evts, err := store.GetSessionEvents("s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 0 {
		t.Errorf("expected history to cascade, got %d events", len(evts))
	}
}

func TestSessionEventsNewestFirst(t *testing.T) {
	store := openStore(t)
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	store.TouchSession("s1", "", t0)
	store.InsertSessionEvent("s1", "connected", "ws://localhost:4400/app/demo", t0)
	store.InsertSessionEvent("s1", "learned", "", t0.Add(time.Second))
	store.InsertSessionEvent("s1", "disconnected", "", t0.Add(2*time.Second))

	evts, err := store.GetSessionEvents("s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 {
		t.Fatalf("limit: got %d events", len(evts))
	}
	if evts[0].EventType != "disconnected" || evts[1].EventType != "learned" {
		t.Errorf("order: got %s, %s", evts[0].EventType, evts[1].EventType)
	}
	if !evts[0].Ts.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("ts: got %v", evts[0].Ts)
	}
}
