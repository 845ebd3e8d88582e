package raft

import "context"

// LogEntry is one entry of the replicated log.
type LogEntry struct {
	Term    uint64  `json:"term"`
	Index   uint64  `json:"index"`
	Command Command `json:"-"`
	// Encoded carries the tagged-JSON form of Command so LogEntry itself can
	// be marshaled without teaching encoding/json about the Command
	// interface directly.
	Encoded []byte `json:"command"`
}

// RequestVoteRequest is the RequestVote RPC contract (spec.md section 4.1).
type RequestVoteRequest struct {
	Term         uint64 `json:"term"`
	CandidateID  int    `json:"candidate_id"`
	LastLogIndex uint64 `json:"last_log_index"`
	LastLogTerm  uint64 `json:"last_log_term"`
}

// RequestVoteResponse is the RequestVote RPC reply.
type RequestVoteResponse struct {
	Term        uint64 `json:"term"`
	VoteGranted bool   `json:"vote_granted"`
}

// AppendEntriesRequest is the AppendEntries RPC contract, doubling as the
// heartbeat when Entries is empty.
type AppendEntriesRequest struct {
	Term         uint64     `json:"term"`
	LeaderID     int        `json:"leader_id"`
	PrevLogIndex uint64     `json:"prev_log_index"`
	PrevLogTerm  uint64     `json:"prev_log_term"`
	Entries      []LogEntry `json:"entries"`
	LeaderCommit uint64     `json:"leader_commit"`
}

// AppendEntriesResponse is the AppendEntries RPC reply.
type AppendEntriesResponse struct {
	Term    uint64 `json:"term"`
	Success bool   `json:"success"`
	// MatchIndex is the follower's last log index on success, which the
	// leader records as that peer's matchIndex. On a rejection it is filled
	// in but unused: the leader steps nextIndex back by one instead.
	MatchIndex uint64 `json:"match_index"`
}

// HealthResponse backs the raft transport's /health endpoint, used by the
// election liveness check and by operators.
type HealthResponse struct {
	NodeID int  `json:"node_id"`
	Role   Role `json:"role"`
	Term   uint64 `json:"term"`
}

// RPCClient is the outbound half of the transport: everything a node needs
// to talk to one peer. Implemented by transport.HTTPClient over JSON/HTTP;
// kept as an interface here (mirroring the teacher's RPCClient/RPCServer
// split) so raft stays transport-agnostic and testable with fakes.
type RPCClient interface {
	RequestVote(ctx context.Context, peer string, req *RequestVoteRequest) (*RequestVoteResponse, error)
	AppendEntries(ctx context.Context, peer string, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
	Health(ctx context.Context, peer string) (*HealthResponse, error)
}

// RPCServer is the inbound half: handlers the consensus module exposes for
// a transport implementation to route requests into.
type RPCServer interface {
	HandleRequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteResponse, error)
	HandleAppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
}
