// raft/election.go
package raft

import (
	"context"
	"sync"
)

// startElection converts this node to Candidate, votes for itself, and
// solicits votes from every peer in parallel. Becomes Leader immediately
// once a majority (including itself) has voted yes for the same term.
func (n *Node) startElection() {
	if !n.hasReachablePeer() {
		n.logger.LogElectionSkipped(n.CurrentTerm())
		n.resetElectionTimer()
		return
	}

	n.mu.Lock()
	n.currentTerm++
	term := n.currentTerm
	n.role = Candidate
	n.votedFor = n.members.Self()
	n.leaderID = -1
	lastIndex, lastTerm := n.log.LastIndexTerm()
	err := n.hardState.Save(HardState{CurrentTerm: n.currentTerm, VotedFor: n.votedFor})
	n.mu.Unlock()
	if err != nil {
		n.fatal(err)
	}

	n.resetElectionTimer()
	n.logger.LogElectionStart(term)
	n.metrics.IncElectionStarted()
	n.metrics.ObserveTerm(term)
	n.metrics.ObserveRole(Candidate)

	votes := 1 // vote for self
	needed := n.members.Quorum()
	peers := n.members.Peers()

	if needed <= votes {
		n.becomeLeader(term)
		return
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	done := false

	for _, peerID := range peers {
		addr, ok := n.members.Endpoint(peerID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), n.timing.VoteTimeout)
			defer cancel()

			resp, err := n.rpcClient.RequestVote(ctx, addr, &RequestVoteRequest{
				Term:         term,
				CandidateID:  n.members.Self(),
				LastLogIndex: lastIndex,
				LastLogTerm:  lastTerm,
			})
			if err != nil {
				return
			}

			n.mu.Lock()
			if resp.Term > n.currentTerm {
				n.stepDownLocked(resp.Term)
				n.mu.Unlock()
				return
			}
			stillCandidate := n.role == Candidate && n.currentTerm == term
			n.mu.Unlock()
			if !stillCandidate {
				return
			}

			if !resp.VoteGranted {
				return
			}

			mu.Lock()
			votes++
			v := votes
			win := !done && v >= needed
			if win {
				done = true
			}
			mu.Unlock()

			if win {
				n.becomeLeader(term)
			}
		}(addr)
	}

	wg.Wait()

	n.mu.Lock()
	stillCandidate := n.role == Candidate && n.currentTerm == term
	n.mu.Unlock()

	mu.Lock()
	finalVotes := votes
	mu.Unlock()

	if stillCandidate {
		n.logger.LogElectionLost(term, finalVotes, needed)
	}
}

// becomeLeader transitions to Leader for the given term, reinitializes
// leader-only volatile state, and immediately broadcasts a heartbeat so
// followers learn about the new leader without waiting out the interval.
func (n *Node) becomeLeader(term uint64) {
	n.mu.Lock()
	if n.role != Candidate || n.currentTerm != term {
		n.mu.Unlock()
		return
	}

	n.role = Leader
	n.leaderID = n.members.Self()
	lastIndex, _ := n.log.LastIndexTerm()
	for _, peer := range n.members.Peers() {
		n.nextIndex[peer] = lastIndex + 1
		n.matchIndex[peer] = 0
	}
	votes := n.members.Quorum()
	n.mu.Unlock()

	n.logger.LogElectionWon(term, votes, votes)
	n.logger.LogStateChange(Candidate, Leader, term)
	n.metrics.IncElectionWon()
	n.metrics.ObserveRole(Leader)

	n.appendCommand(SetLeaderCommand{LeaderID: n.members.Self()})

	n.resetHeartbeatTimer()
	n.sendHeartbeats()
}

// HandleRequestVote implements the RequestVote RPC contract (spec.md
// section 4.1): grant a vote only for a term at least as new as ours, to a
// candidate we haven't already voted against this term, whose log is at
// least as up to date as ours.
func (n *Node) HandleRequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if req.Term > n.currentTerm {
		n.stepDownLocked(req.Term)
	}

	if req.Term < n.currentTerm {
		n.logger.LogVoteDenied(req.CandidateID, req.Term, "stale term")
		return &RequestVoteResponse{Term: n.currentTerm, VoteGranted: false}, nil
	}

	canVote := n.votedFor == -1 || n.votedFor == req.CandidateID
	if !canVote {
		n.logger.LogVoteDenied(req.CandidateID, req.Term, "already voted")
		return &RequestVoteResponse{Term: n.currentTerm, VoteGranted: false}, nil
	}

	lastIndex, lastTerm := n.log.LastIndexTerm()
	logOK := req.LastLogTerm > lastTerm ||
		(req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)
	if !logOK {
		n.logger.LogVoteDenied(req.CandidateID, req.Term, "log not up to date")
		return &RequestVoteResponse{Term: n.currentTerm, VoteGranted: false}, nil
	}

	n.votedFor = req.CandidateID
	if err := n.hardState.Save(HardState{CurrentTerm: n.currentTerm, VotedFor: n.votedFor}); err != nil {
		n.fatal(err)
	}
	n.resetElectionTimer()
	n.logger.LogVoteGranted(req.CandidateID, req.Term)

	return &RequestVoteResponse{Term: n.currentTerm, VoteGranted: true}, nil
}

// hasReachablePeer probes every peer's health endpoint in parallel and
// reports whether at least one answered, so a partitioned or lone node
// doesn't keep burning term numbers on elections it cannot possibly win
// (spec.md section 4.1, grounded on original_source/raft.py's
// get_active_nodes gate on _run_election_timer). A cluster of one — no
// peers configured at all — is the one case exempt from the check.
func (n *Node) hasReachablePeer() bool {
	peers := n.members.Peers()
	if len(peers) == 0 {
		return true
	}

	var wg sync.WaitGroup
	reachable := make(chan struct{}, len(peers))

	for _, peerID := range peers {
		addr, ok := n.members.Endpoint(peerID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), n.timing.HealthTimeout)
			defer cancel()
			if _, err := n.rpcClient.Health(ctx, addr); err == nil {
				reachable <- struct{}{}
			}
		}(addr)
	}

	go func() {
		wg.Wait()
		close(reachable)
	}()

	_, ok := <-reachable
	return ok
}
