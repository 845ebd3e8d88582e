// Package reconcile implements the cache reconciler: a pull-only sweep
// protocol that catches whole cache files up to date independently of the
// replicated log, triggered on follower startup, on leader election, and
// on a periodic timer (spec.md section 4.3).
package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pricecache/cache"
	"pricecache/cluster"
)

// PeerClient is the subset of HTTP calls a sweep needs against one peer.
// Implemented by HTTPPeerClient, kept narrow here so the reconciler doesn't
// depend on the full raft RPC surface.
type PeerClient interface {
	ListCache(ctx context.Context, peer string) ([]string, error)
	CacheMeta(ctx context.Context, peer string, filename string) (mtime time.Time, ok bool, err error)
	GetCacheFile(ctx context.Context, peer string, filename string) ([]byte, error)
}

// Reconciler owns one node's local cache directory and sweeps peers for
// files that are newer than the local copy.
type Reconciler struct {
	members *cluster.Membership
	dir     *cache.Dir
	client  PeerClient
	state   *SweepState
	logger  Logger

	interval time.Duration
	timeout  time.Duration
}

// Logger is the narrow logging surface the reconciler needs; satisfied by
// raft.Logger without importing the raft package.
type Logger interface {
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
}

// New builds a Reconciler.
func New(members *cluster.Membership, dir *cache.Dir, client PeerClient, state *SweepState, logger Logger, interval, timeout time.Duration) *Reconciler {
	return &Reconciler{
		members:  members,
		dir:      dir,
		client:   client,
		state:    state,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled, so
// callers should invoke it with `go`. shouldSweep gates each tick — only
// the current leader should run the overwrite-if-newer sweep (spec.md
// section 4.3); pass nil to sweep unconditionally.
func (r *Reconciler) Run(ctx context.Context, shouldSweep func() bool) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if shouldSweep != nil && !shouldSweep() {
				continue
			}
			r.SweepAll(ctx)
		}
	}
}

// SweepAll runs the leader sweep against every peer in the cluster: a
// local file is overwritten whenever the peer's copy is newer. Only the
// current leader should call this (spec.md section 4.3).
func (r *Reconciler) SweepAll(ctx context.Context) {
	for _, peerID := range r.members.Peers() {
		addr, ok := r.members.Endpoint(peerID)
		if !ok {
			continue
		}
		pulled, err := r.sweepPeer(ctx, addr)
		r.state.RecordAttempt(peerID, pulled, err)
		if err != nil {
			r.logger.Warn("sweep failed", "peer", peerID, "error", err.Error())
		} else if len(pulled) > 0 {
			r.logger.Info("sweep pulled files", "peer", peerID, "files", pulled)
		}
	}
}

// PullMissingFromLeader runs the follower-startup pull against the current
// leader only: unlike SweepAll, it downloads a file only when this node
// doesn't already have a local copy, and never overwrites one that exists
// regardless of the leader's mtime (spec.md section 4.3). Meant to run
// once, as soon as a follower learns who the leader is, before it starts
// serving reads from a cache that might be missing entries.
func (r *Reconciler) PullMissingFromLeader(ctx context.Context, leaderID int) ([]string, error) {
	addr, ok := r.members.Endpoint(leaderID)
	if !ok {
		return nil, fmt.Errorf("no endpoint for leader %d", leaderID)
	}

	pulled, err := r.pullFrom(ctx, addr, func(filename string) (bool, error) {
		_, ourOK, err := r.dir.Mtime(filename)
		if err != nil {
			return false, err
		}
		return !ourOK, nil
	})
	r.state.RecordAttempt(leaderID, pulled, err)
	if err != nil {
		r.logger.Warn("startup pull failed", "leader", leaderID, "error", err.Error())
	} else if len(pulled) > 0 {
		r.logger.Info("startup pull fetched files", "leader", leaderID, "files", pulled)
	}
	return pulled, err
}

// GetSweepStats returns every peer's most recently recorded sweep outcome,
// backing the /reconcile response's updated list.
func (r *Reconciler) GetSweepStats() map[int]PeerState {
	return r.state.All()
}

// sweepPeer runs the three-step pull protocol against one peer: list its
// files, compare each one's mtime against the local copy, and fetch
// whichever are newer (spec.md section 4.3). It never pushes — a peer only
// ever learns about files that exist on it already.
func (r *Reconciler) sweepPeer(ctx context.Context, addr string) ([]string, error) {
	return r.pullFrom(ctx, addr, func(filename string) (bool, error) {
		theirMtime, ok, err := r.client.CacheMeta(ctx, addr, filename)
		if err != nil || !ok {
			return false, nil
		}

		ourMtime, ourOK, err := r.dir.Mtime(filename)
		if err != nil {
			return false, err
		}
		return !ourOK || theirMtime.After(ourMtime), nil
	})
}

// pullFrom lists addr's cache and downloads whichever files want reports
// true for. Both sweep protocols share this walk; they differ only in
// which files they decide are worth pulling.
func (r *Reconciler) pullFrom(ctx context.Context, addr string, want func(filename string) (bool, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	files, err := r.client.ListCache(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("list-cache from %s: %w", addr, err)
	}

	var pulled []string
	for _, filename := range files {
		ok, err := want(filename)
		if err != nil || !ok {
			continue
		}

		data, err := r.client.GetCacheFile(ctx, addr, filename)
		if err != nil {
			continue
		}
		if err := r.dir.WriteAtomic(filename, data); err != nil {
			continue
		}
		pulled = append(pulled, filename)
	}

	return pulled, nil
}

// isNotFound is a small helper used by PeerClient implementations to
// decide whether a response represents "file not found" (skip) versus a
// real failure (log and move on).
func isNotFound(statusCode int) bool {
	return statusCode == http.StatusNotFound
}
