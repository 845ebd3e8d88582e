package raft

import "errors"

// ErrNotLeader is returned by Propose when called on a non-leader node.
// The API layer checks the node's role itself before proposing and sends
// non-leader callers the known leader id; it does not inspect this error.
var ErrNotLeader = errors.New("raft: node is not the leader")

// ErrUnknownNode names a node id absent from the static membership table.
// No function in this package returns it.
var ErrUnknownNode = errors.New("raft: unknown node id")

// ErrLogMismatch names a follower log entry that conflicts with what the
// leader expects at that index. No function in this package returns it;
// HandleAppendEntries reports a mismatch as Success: false.
var ErrLogMismatch = errors.New("raft: log mismatch at index")
