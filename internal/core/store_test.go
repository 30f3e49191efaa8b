package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, agent := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, Session{Agent: agent, Org: "acme", Status: SessionStarted, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	failed, err := s.Record(ctx, Session{Agent: "d", Org: "acme", Status: SessionFailed, Error: "boom"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if failed.ID == "" || failed.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", failed)
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(recent))
	}
	if recent[0].Agent != "d" || recent[0].Error != "boom" || recent[0].Status != SessionFailed {
		t.Fatalf("unexpected newest session %+v", recent[0])
	}
	if recent[1].Agent != "c" {
		t.Fatalf("unexpected second session %+v", recent[1])
	}
}

func TestStoreReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "history.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := s.Record(ctx, Session{Agent: "bot", Org: "acme", URL: "https://x.example/room?t=abc", Status: SessionStarted}); err != nil {
		t.Fatalf("record: %v", err)
	}
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()
	recent, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].URL != "https://x.example/room?t=abc" {
		t.Fatalf("unexpected sessions %+v", recent)
	}
}
