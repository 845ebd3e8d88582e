package raft

import (
	"path/filepath"
	"testing"
)

func encodedFor(t *testing.T, cmd Command) []byte {
	t.Helper()
	b, err := MarshalCommand(cmd)
	if err != nil {
		t.Fatalf("MarshalCommand: %v", err)
	}
	return b
}

func TestLogStoreAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	store, err := OpenLogStore(path)
	if err != nil {
		t.Fatalf("OpenLogStore: %v", err)
	}

	entries := []LogEntry{
		{Term: 1, Index: 1, Encoded: encodedFor(t, SetLeaderCommand{LeaderID: 217})},
		{Term: 1, Index: 2, Encoded: encodedFor(t, ReplicateFileCommand{Filename: "a.json", Bytes: []byte("abc")})},
	}
	if err := store.Append(entries...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reopened, err := OpenLogStore(path)
	if err != nil {
		t.Fatalf("reopen OpenLogStore: %v", err)
	}

	got := reopened.Entries()
	if len(got) != 2 {
		t.Fatalf("replayed %d entries, want 2", len(got))
	}
	if got[1].Command.(ReplicateFileCommand).Filename != "a.json" {
		t.Errorf("replayed filename = %q, want a.json", got[1].Command.(ReplicateFileCommand).Filename)
	}
}

func TestLogStoreTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	store, err := OpenLogStore(path)
	if err != nil {
		t.Fatalf("OpenLogStore: %v", err)
	}

	for i := uint64(1); i <= 5; i++ {
		entry := LogEntry{Term: 1, Index: i, Encoded: encodedFor(t, SetLeaderCommand{LeaderID: int(i)})}
		if err := store.Append(entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := store.Truncate(3); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	got := store.Entries()
	if len(got) != 2 {
		t.Fatalf("after truncate at 3, have %d entries, want 2", len(got))
	}
	lastIndex, _ := store.LastIndexTerm()
	if lastIndex != 2 {
		t.Errorf("LastIndexTerm index = %d, want 2", lastIndex)
	}
}

func TestLogStoreTermAtMissingIndex(t *testing.T) {
	store, err := OpenLogStore(filepath.Join(t.TempDir(), "log"))
	if err != nil {
		t.Fatalf("OpenLogStore: %v", err)
	}
	if got := store.TermAt(99); got != 0 {
		t.Errorf("TermAt(99) = %d, want 0", got)
	}
}
