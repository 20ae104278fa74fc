package config

import (
	"path/filepath"
	"testing"
)

func TestHistoryAppendPrependsNewestFirst(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

	if err := store.Append(HistoryEntry{Text: "first"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(HistoryEntry{Text: "second"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	hist, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hist.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(hist.Entries))
	}
	if hist.Entries[0].Text != "second" || hist.Entries[1].Text != "first" {
		t.Errorf("entries not newest-first: %+v", hist.Entries)
	}
}

func TestHistoryAppendEvictsBeyondCapacity(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

	for i := 0; i < HistoryCapacity+10; i++ {
		if err := store.Append(HistoryEntry{Text: "entry"}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	hist, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hist.Entries) != HistoryCapacity {
		t.Errorf("len(Entries) = %d, want capped at %d", len(hist.Entries), HistoryCapacity)
	}
}

func TestHistoryLoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "missing.json"))

	hist, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hist.Entries) != 0 {
		t.Errorf("expected empty history, got %+v", hist.Entries)
	}
}
