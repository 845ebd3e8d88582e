package raft

import (
	"path/filepath"
	"testing"
)

func TestHardStateMissingFileDefaultsToTermZero(t *testing.T) {
	store := NewHardStateStore(filepath.Join(t.TempDir(), "term_217"))

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.CurrentTerm != 0 {
		t.Errorf("CurrentTerm = %d, want 0", state.CurrentTerm)
	}
	if state.VotedFor != -1 {
		t.Errorf("VotedFor = %d, want -1", state.VotedFor)
	}
}

func TestHardStateSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "term_217")
	store := NewHardStateStore(path)

	if err := store.Save(HardState{CurrentTerm: 7, VotedFor: 536}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewHardStateStore(path)
	state, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.CurrentTerm != 7 || state.VotedFor != 536 {
		t.Errorf("Load() = %+v, want {7 536}", state)
	}
}
