package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// PeerState records the outcome of the most recent sweep against one peer,
// adapted from the teacher's per-node hint map: instead of buffering writes
// for an unavailable node, this tracks when the node was last reachable and
// which files were pulled from it in the latest sweep, for observability.
type PeerState struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	FilesPulled []string  `json:"files_pulled"`
	LastError   string    `json:"last_error,omitempty"`
}

// SweepState tracks per-peer sweep outcomes and persists them to disk so a
// restarted node keeps its reconciliation history, mirroring the teacher's
// JSON-file-per-state persistence approach.
type SweepState struct {
	mu    sync.Mutex
	path  string
	peers map[int]PeerState
}

// NewSweepState loads existing state from path, if any.
func NewSweepState(path string) (*SweepState, error) {
	s := &SweepState{path: path, peers: make(map[int]PeerState)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sweep state: %w", err)
	}
	if err := json.Unmarshal(data, &s.peers); err != nil {
		// Corrupt state file is non-fatal: reconciliation just starts fresh.
		s.peers = make(map[int]PeerState)
	}
	return s, nil
}

// RecordAttempt notes a sweep attempt against a peer, with its outcome.
// pulled names the files pulled in this round; it replaces the previously
// recorded list rather than accumulating, so PeerState always reflects the
// most recent sweep.
func (s *SweepState) RecordAttempt(peerID int, pulled []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.peers[peerID]
	state.LastAttempt = time.Now()
	state.FilesPulled = pulled
	if err != nil {
		state.LastError = err.Error()
	} else {
		state.LastSuccess = time.Now()
		state.LastError = ""
	}
	s.peers[peerID] = state

	_ = s.persistLocked()
}

// Get returns the recorded state for a peer.
func (s *SweepState) Get(peerID int) PeerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[peerID]
}

// All returns a copy of every peer's recorded state, for the /reconcile
// response.
func (s *SweepState) All() map[int]PeerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]PeerState, len(s.peers))
	for id, state := range s.peers {
		out[id] = state
	}
	return out
}

func (s *SweepState) persistLocked() error {
	data, err := json.MarshalIndent(s.peers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
