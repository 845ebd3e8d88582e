package main

import (
	"pricecache/cache"
	"pricecache/raft"
)

// fileStateMachine applies committed raft commands to the node's local
// cache directory. ReplicateFileCommand writes are idempotent — rewriting
// identical bytes is harmless — so replaying the log after a crash never
// corrupts state. SetLeaderCommand carries no durable effect of its own;
// leader tracking is driven off the AppendEntries RPC term/leader fields
// directly, so applying it is just a no-op log marker.
type fileStateMachine struct {
	dir *cache.Dir
}

func newFileStateMachine(dir *cache.Dir) *fileStateMachine {
	return &fileStateMachine{dir: dir}
}

func (s *fileStateMachine) Apply(cmd raft.Command) error {
	switch c := cmd.(type) {
	case raft.ReplicateFileCommand:
		return s.dir.WriteAtomic(c.Filename, c.Bytes)
	case raft.SetLeaderCommand:
		return nil
	default:
		return nil
	}
}
