// raft/append_entries.go
package raft

import (
	"context"
	"sort"
)

// appendCommand is called by a leader to append a new command to its own
// log and kick off replication. Not exposed outside the package: callers
// go through the API layer, which only accepts writes while this node is
// leader (spec.md section 5 — ErrNotLeader otherwise).
func (n *Node) appendCommand(cmd Command) (uint64, error) {
	encoded, err := MarshalCommand(cmd)
	if err != nil {
		return 0, err
	}

	n.mu.Lock()
	term := n.currentTerm
	lastIndex, _ := n.log.LastIndexTerm()
	index := lastIndex + 1
	n.mu.Unlock()

	entry := LogEntry{Term: term, Index: index, Command: cmd, Encoded: encoded}
	if err := n.log.Append(entry); err != nil {
		return 0, err
	}

	select {
	case n.newEntryCh <- struct{}{}:
	default:
	}

	return index, nil
}

// Propose appends a command to the leader's log. Returns ErrNotLeader if
// this node isn't currently leader.
func (n *Node) Propose(cmd Command) (uint64, error) {
	if n.Role() != Leader {
		return 0, ErrNotLeader
	}
	return n.appendCommand(cmd)
}

// sendHeartbeats issues AppendEntries to every peer through replicateToAll;
// the request is empty for a peer that is caught up and carries the missing
// entries for one that is not.
func (n *Node) sendHeartbeats() {
	n.replicateToAll()
}

// replicateToAll fans out AppendEntries to every peer concurrently. Each
// peer gets exactly the entries it's missing, computed from that peer's
// nextIndex.
func (n *Node) replicateToAll() {
	n.mu.RLock()
	term := n.currentTerm
	peers := n.members.Peers()
	n.mu.RUnlock()

	for _, peerID := range peers {
		go n.replicateToPeer(peerID, term)
	}
	n.logger.LogHeartbeatSent(term, len(peers))
}

func (n *Node) replicateToPeer(peerID int, term uint64) {
	addr, ok := n.members.Endpoint(peerID)
	if !ok {
		return
	}

	n.mu.RLock()
	if n.role != Leader || n.currentTerm != term {
		n.mu.RUnlock()
		return
	}
	nextIdx := n.nextIndex[peerID]
	prevIndex := nextIdx - 1
	prevTerm := n.log.TermAt(prevIndex)
	entries := n.log.Slice(nextIdx)
	commitIndex := n.commitIndex
	n.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), n.timing.AppendTimeout)
	defer cancel()

	resp, err := n.rpcClient.AppendEntries(ctx, addr, &AppendEntriesRequest{
		Term:         term,
		LeaderID:     n.members.Self(),
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: commitIndex,
	})
	if err != nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if resp.Term > n.currentTerm {
		n.stepDownLocked(resp.Term)
		return
	}
	if n.role != Leader || n.currentTerm != term {
		return
	}

	if resp.Success {
		n.matchIndex[peerID] = resp.MatchIndex
		n.nextIndex[peerID] = resp.MatchIndex + 1
		n.advanceCommitIndexLocked()
		return
	}

	// Conflict: back off nextIndex and retry next round. A full
	// implementation could jump straight to the conflicting term's first
	// index; stepping back by one keeps this simple and still converges.
	if n.nextIndex[peerID] > 1 {
		n.nextIndex[peerID]--
	}
}

// advanceCommitIndexLocked recomputes commitIndex as the highest index
// replicated to a majority of the cluster INCLUDING the leader itself,
// restricted to entries from the leader's current term (the Raft safety
// rule that prevents committing a previous leader's uncommitted entry).
// The caller must hold n.mu.
func (n *Node) advanceCommitIndexLocked() {
	selfIndex, _ := n.log.LastIndexTerm()

	matched := make([]uint64, 0, n.members.Size())
	matched = append(matched, selfIndex)
	for _, peer := range n.members.Peers() {
		matched = append(matched, n.matchIndex[peer])
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i] > matched[j] })

	// matched[quorum-1] is the highest index held by at least `quorum`
	// members, counting the leader as one of them.
	quorum := n.members.Quorum()
	candidate := matched[quorum-1]

	if candidate <= n.commitIndex {
		return
	}
	if n.log.TermAt(candidate) != n.currentTerm {
		return
	}

	n.commitIndex = candidate
	n.logger.LogCommit(candidate, n.currentTerm)
	n.metrics.ObserveCommitIndex(candidate)

	select {
	case n.newEntryCh <- struct{}{}:
	default:
	}
}

// HandleAppendEntries implements the AppendEntries RPC contract (spec.md
// section 4.2), including the empty-entries heartbeat case.
func (n *Node) HandleAppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if req.Term < n.currentTerm {
		return &AppendEntriesResponse{Term: n.currentTerm, Success: false}, nil
	}

	if req.Term > n.currentTerm || n.role == Candidate {
		n.stepDownLocked(req.Term)
	}

	n.leaderID = req.LeaderID
	n.resetElectionTimer()
	n.logger.LogHeartbeatReceived(req.LeaderID, req.Term)
	if len(req.Entries) > 0 {
		n.logger.LogAppendEntries(req.LeaderID, req.Term, req.PrevLogIndex, len(req.Entries))
	}

	if req.PrevLogIndex > 0 {
		if n.log.TermAt(req.PrevLogIndex) != req.PrevLogTerm {
			lastIndex, _ := n.log.LastIndexTerm()
			return &AppendEntriesResponse{Term: n.currentTerm, Success: false, MatchIndex: min64(lastIndex, req.PrevLogIndex)}, nil
		}
	}

	for _, entry := range req.Entries {
		existing, ok := n.log.Get(entry.Index)
		if ok && existing.Term != entry.Term {
			if err := n.log.Truncate(entry.Index); err != nil {
				return nil, err
			}
			ok = false
		}
		if !ok {
			if err := n.log.Append(entry); err != nil {
				return nil, err
			}
		}
	}

	if req.LeaderCommit > n.commitIndex {
		lastIndex, _ := n.log.LastIndexTerm()
		if req.LeaderCommit < lastIndex {
			n.commitIndex = req.LeaderCommit
		} else {
			n.commitIndex = lastIndex
		}
		n.metrics.ObserveCommitIndex(n.commitIndex)
	}

	lastIndex, _ := n.log.LastIndexTerm()
	return &AppendEntriesResponse{Term: n.currentTerm, Success: true, MatchIndex: lastIndex}, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
