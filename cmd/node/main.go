// Command node runs one member of the price-comparison cluster: the raft
// consensus engine, the cache reconciler, and the HTTP API, all sharing
// one node id's on-disk state.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pricecache/api"
	"pricecache/cache"
	"pricecache/cluster"
	"pricecache/config"
	"pricecache/listings"
	"pricecache/raft"
	"pricecache/reconcile"
	"pricecache/transport"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "node <NodeId>",
		Short: "Run one node of the price-comparison raft cluster",
		Args:  cobra.ExactArgs(1),
		RunE:  runNode,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file overriding cluster defaults")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	nodeID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid node id %q: %w", args[0], err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	members, err := cluster.New(nodeID, cfg.Cluster.Nodes)
	if err != nil {
		return err
	}

	logger := raft.NewLogger(nodeID)
	defer logger.Sync()

	dir, err := cache.NewDir(config.CacheDir(nodeID))
	if err != nil {
		return err
	}

	hardState := raft.NewHardStateStore(config.TermFile(nodeID))
	logStore, err := raft.OpenLogStore(config.CacheDir(nodeID) + "/raft.log")
	if err != nil {
		return fmt.Errorf("open raft log: %w", err)
	}

	stateMachine := newFileStateMachine(dir)

	httpClient := transport.NewHTTPClient(cfg.Timing.AppendTimeout)
	timing := raft.Timing{
		ElectionMin:   cfg.Timing.ElectionMin,
		ElectionMax:   cfg.Timing.ElectionMax,
		Heartbeat:     cfg.Timing.Heartbeat,
		TickInterval:  cfg.Timing.TickInterval,
		VoteTimeout:   cfg.Timing.VoteTimeout,
		AppendTimeout: cfg.Timing.AppendTimeout,
		HealthTimeout: cfg.Timing.HealthTimeout,
	}

	metrics := raft.NewMetrics(prometheus.DefaultRegisterer, nodeID)

	node, err := raft.NewNode(members, logger, timing, hardState, logStore, httpClient, stateMachine, metrics)
	if err != nil {
		return fmt.Errorf("construct raft node: %w", err)
	}

	rpcServer := transport.NewHTTPServer(node, node)
	addr, ok := members.Endpoint(nodeID)
	if !ok {
		return fmt.Errorf("node id %d has no endpoint in cluster config", nodeID)
	}
	if err := rpcServer.Start(addr); err != nil {
		return fmt.Errorf("start raft rpc server: %w", err)
	}
	defer rpcServer.Stop()

	registry := cluster.NewAdvisoryRegistry(config.DefaultNodeRegistry)
	_ = registry.Update(nodeID, true, node.Role().String(), false)

	upstream := listings.NewClient(cfg.ListingsBaseURL, cfg.ListingsAPIKey)

	sweepState, err := reconcile.NewSweepState(config.CacheDir(nodeID) + "/sweep_state.json")
	if err != nil {
		return fmt.Errorf("load sweep state: %w", err)
	}
	// Peers serve /list-cache, /cache-meta and /get-cache-file on their
	// client-facing API listener, so the reconciler addresses that port.
	apiTable := make(map[int]string, len(cfg.Cluster.Nodes))
	for id, raftAddr := range cfg.Cluster.Nodes {
		apiTable[id] = httpAPIAddr(raftAddr)
	}
	apiMembers, err := cluster.New(nodeID, apiTable)
	if err != nil {
		return err
	}
	reconciler := reconcile.New(apiMembers, dir, reconcile.NewHTTPPeerClient(), sweepState, logger, cfg.Timing.SweepInterval, cfg.Timing.AppendTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Trigger 1: follower startup pull, once this node learns who the
	// leader is — downloads files it's missing but never overwrites ones
	// it already has (spec.md section 4.3). Run against the leader
	// specifically, never against every peer before a leader is known.
	go waitAndPullFromLeader(ctx, node, reconciler, logger)
	// Trigger 2: periodic leader resweep, independent of consensus
	// activity. Gated to the current leader, since only the leader runs
	// the overwrite-if-newer protocol.
	go reconciler.Run(ctx, func() bool { return node.Role() == raft.Leader })
	// Trigger 3: a fresh leader resweeps immediately, since it's about to
	// start serving writes and can't trust a stale cache it inherited.
	go watchForLeadership(ctx, node, reconciler)

	apiServer := api.NewServer(node, members, dir, upstream, reconciler)
	httpAPI := &http.Server{Addr: httpAPIAddr(addr), Handler: apiServer.Router()}
	go func() {
		if err := httpAPI.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server stopped", "error", err.Error())
		}
	}()
	defer httpAPI.Shutdown(context.Background())

	node.Start()
	defer node.Shutdown()

	logger.Info("node started", "node_id", nodeID, "address", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("node shutting down", "node_id", nodeID)
	return nil
}

// watchForLeadership resweeps as soon as this node's own SetLeaderCommand
// commits, i.e. the moment it becomes leader (original_source/main.py's
// attempt_leader_reconciliation trigger). Applied entries, not role
// transitions, are watched so the sweep only fires once the election is
// actually durable in the log rather than on a transient role flip.
func watchForLeadership(ctx context.Context, node *raft.Node, reconciler *reconcile.Reconciler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-node.ApplyCh():
			if !ok {
				return
			}
			if cmd, isLeader := msg.Command.(raft.SetLeaderCommand); isLeader && cmd.LeaderID == node.ID() {
				reconciler.SweepAll(ctx)
			}
		}
	}
}

// waitAndPullFromLeader blocks until this node learns the current leader's
// id, then runs the one-shot follower-startup pull against it. If this
// node wins the first election itself, there's no leader to pull from, so
// it returns without sweeping.
func waitAndPullFromLeader(ctx context.Context, node *raft.Node, reconciler *reconcile.Reconciler, logger *raft.Logger) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			leaderID := node.LeaderID()
			if leaderID == -1 {
				continue
			}
			if leaderID == node.ID() {
				return
			}
			if _, err := reconciler.PullMissingFromLeader(ctx, leaderID); err != nil {
				logger.Warn("follower startup pull failed", "leader", leaderID, "error", err.Error())
			}
			return
		}
	}
}

// httpAPIAddr derives the client-facing API port from the raft RPC port:
// the API listens one port above the raft transport on the same host, so
// the cluster's NodeId -> Endpoint table stays the single source of truth
// for addresses while keeping the consensus RPC surface and the client
// query surface on separate listeners.
func httpAPIAddr(raftAddr string) string {
	host, portStr, err := net.SplitHostPort(raftAddr)
	if err != nil {
		return raftAddr
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return raftAddr
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}
