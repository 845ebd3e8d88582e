package raft

import (
	"bufio"
	"fmt"
	"os"
)

// HardState is the durable (currentTerm, votedFor) pair every node must
// persist before replying to a vote request or starting an election
// (spec.md section 6). votedFor of -1 means "no vote cast this term".
type HardState struct {
	CurrentTerm uint64
	VotedFor    int
}

// HardStateStore persists HardState to the node's term_<NodeId> file as
// two whitespace-separated ASCII integers, matching the plain-text format
// the spec calls out for currentTerm and extending it with votedFor on a
// second line so a crash mid-vote can't forget who we promised.
type HardStateStore struct {
	path string
}

func NewHardStateStore(path string) *HardStateStore {
	return &HardStateStore{path: path}
}

// Load reads the persisted hard state. A missing file is not an error: a
// brand-new node starts at term 0 with no vote cast.
func (s *HardStateStore) Load() (HardState, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return HardState{CurrentTerm: 0, VotedFor: -1}, nil
	}
	if err != nil {
		return HardState{}, fmt.Errorf("open hard state file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	state := HardState{VotedFor: -1}

	if scanner.Scan() {
		if _, err := fmt.Sscanf(scanner.Text(), "%d", &state.CurrentTerm); err != nil {
			return HardState{}, fmt.Errorf("parse current term: %w", err)
		}
	}
	if scanner.Scan() {
		if _, err := fmt.Sscanf(scanner.Text(), "%d", &state.VotedFor); err != nil {
			return HardState{}, fmt.Errorf("parse voted for: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return HardState{}, fmt.Errorf("read hard state file: %w", err)
	}

	return state, nil
}

// Save persists state atomically: write to a temp file in the same
// directory, fsync, then rename over the real path so a crash never leaves
// a half-written term file behind.
func (s *HardStateStore) Save(state HardState) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp hard state file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n%d\n", state.CurrentTerm, state.VotedFor); err != nil {
		f.Close()
		return fmt.Errorf("write hard state: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync hard state: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close hard state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename hard state file: %w", err)
	}
	return nil
}
