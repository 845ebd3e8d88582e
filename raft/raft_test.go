// raft/raft_test.go
package raft

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pricecache/cluster"
)

// fakeTransport wires every test node's RPCClient calls directly into the
// matching Node's handlers, in-process, so election/replication behavior
// can be exercised without a real HTTP server.
type fakeTransport struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nodes: make(map[string]*Node)}
}

func (f *fakeTransport) register(addr string, n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[addr] = n
}

func (f *fakeTransport) unregister(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, addr)
}

func (f *fakeTransport) lookup(addr string) (*Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.nodes[addr]
	return n, ok
}

func (f *fakeTransport) RequestVote(ctx context.Context, addr string, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	n, ok := f.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("fake transport: no node at %s", addr)
	}
	return n.HandleRequestVote(ctx, req)
}

func (f *fakeTransport) AppendEntries(ctx context.Context, addr string, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	n, ok := f.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("fake transport: no node at %s", addr)
	}
	return n.HandleAppendEntries(ctx, req)
}

func (f *fakeTransport) Health(ctx context.Context, addr string) (*HealthResponse, error) {
	n, ok := f.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("fake transport: no node at %s", addr)
	}
	return &HealthResponse{NodeID: n.members.Self(), Role: n.Role(), Term: n.CurrentTerm()}, nil
}

type mockStateMachine struct {
	mu      sync.Mutex
	applied []Command
}

func (m *mockStateMachine) Apply(cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, cmd)
	return nil
}

func (m *mockStateMachine) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func fastTiming() Timing {
	return Timing{
		ElectionMin:   60 * time.Millisecond,
		ElectionMax:   120 * time.Millisecond,
		Heartbeat:     30 * time.Millisecond,
		TickInterval:  10 * time.Millisecond,
		VoteTimeout:   50 * time.Millisecond,
		AppendTimeout: 50 * time.Millisecond,
		HealthTimeout: 30 * time.Millisecond,
	}
}

func addrFor(id int) string {
	return fmt.Sprintf("node-%d", id)
}

// createTestCluster builds n nodes wired together over a fakeTransport and
// returns them unstarted.
func createTestCluster(t *testing.T, n int) ([]*Node, *fakeTransport, []*mockStateMachine) {
	t.Helper()

	table := make(map[int]string, n)
	for i := 1; i <= n; i++ {
		table[i] = addrFor(i)
	}

	transport := newFakeTransport()
	nodes := make([]*Node, n)
	sms := make([]*mockStateMachine, n)

	for i := 1; i <= n; i++ {
		members, err := cluster.New(i, table)
		if err != nil {
			t.Fatalf("cluster.New: %v", err)
		}

		dir := t.TempDir()
		hs := NewHardStateStore(dir + "/term")
		ls, err := OpenLogStore(dir + "/log")
		if err != nil {
			t.Fatalf("OpenLogStore: %v", err)
		}

		sm := &mockStateMachine{}
		sms[i-1] = sm

		logger := NewLogger(i)
		node, err := NewNode(members, logger, fastTiming(), hs, ls, transport, sm, nil)
		if err != nil {
			t.Fatalf("NewNode: %v", err)
		}

		nodes[i-1] = node
		transport.register(addrFor(i), node)
	}

	return nodes, transport, sms
}

func startAll(nodes []*Node) {
	for _, n := range nodes {
		n.Start()
	}
}

func shutdownCluster(nodes []*Node) {
	for _, n := range nodes {
		n.Shutdown()
	}
}

func countLeaders(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		if n.Role() == Leader {
			count++
		}
	}
	return count
}

func TestInitialStateIsFollower(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 3)
	defer shutdownCluster(nodes)

	if nodes[0].Role() != Follower {
		t.Errorf("new node role = %s, want Follower", nodes[0].Role())
	}
	if nodes[0].CurrentTerm() != 0 {
		t.Errorf("new node term = %d, want 0", nodes[0].CurrentTerm())
	}
}

func TestSingleNodeBecomesLeader(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 1)
	defer shutdownCluster(nodes)

	startAll(nodes)
	time.Sleep(200 * time.Millisecond)

	if nodes[0].Role() != Leader {
		t.Error("a lone node should elect itself leader")
	}
}

func TestClusterElectsExactlyOneLeader(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 5)
	defer shutdownCluster(nodes)

	startAll(nodes)
	time.Sleep(400 * time.Millisecond)

	if got := countLeaders(nodes); got != 1 {
		t.Errorf("expected exactly 1 leader, got %d", got)
	}

	terms := map[uint64]int{}
	for _, n := range nodes {
		terms[n.CurrentTerm()]++
	}
	if len(terms) != 1 {
		t.Errorf("nodes disagree on term: %v", terms)
	}
}

func TestReElectionAfterLeaderFailure(t *testing.T) {
	nodes, transport, _ := createTestCluster(t, 3)
	defer shutdownCluster(nodes)

	startAll(nodes)
	time.Sleep(300 * time.Millisecond)

	var leader *Node
	for _, n := range nodes {
		if n.Role() == Leader {
			leader = n
			break
		}
	}
	if leader == nil {
		t.Fatal("no leader elected")
	}
	oldTerm := leader.CurrentTerm()

	transport.unregister(addrFor(leader.members.Self()))
	leader.Shutdown()

	time.Sleep(400 * time.Millisecond)

	remaining := make([]*Node, 0, len(nodes)-1)
	for _, n := range nodes {
		if n != leader {
			remaining = append(remaining, n)
		}
	}

	if got := countLeaders(remaining); got != 1 {
		t.Errorf("expected exactly 1 new leader, got %d", got)
	}
	if remaining[0].CurrentTerm() <= oldTerm {
		t.Errorf("term should increase after re-election: old=%d new=%d", oldTerm, remaining[0].CurrentTerm())
	}
}

func TestLeaderReplicatesCommandToFollowers(t *testing.T) {
	nodes, _, sms := createTestCluster(t, 3)
	defer shutdownCluster(nodes)

	startAll(nodes)
	time.Sleep(300 * time.Millisecond)

	var leader *Node
	for _, n := range nodes {
		if n.Role() == Leader {
			leader = n
		}
	}
	if leader == nil {
		t.Fatal("no leader elected")
	}

	if _, err := leader.Propose(ReplicateFileCommand{Filename: "toyota_camry_sf.json", Bytes: []byte("{}")}); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		allApplied := true
		for _, sm := range sms {
			if sm.count() < 2 { // the leader's own SetLeaderCommand plus this one
				allApplied = false
			}
		}
		if allApplied {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Error("command was not applied to all state machines in time")
}

func TestProposeFailsOnNonLeader(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 3)
	defer shutdownCluster(nodes)

	_, err := nodes[0].Propose(SetLeaderCommand{LeaderID: 1})
	if err != ErrNotLeader {
		t.Errorf("Propose on follower: got %v, want ErrNotLeader", err)
	}
}

func TestVoteRefusedForOutdatedLog(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 2)
	defer shutdownCluster(nodes)

	follower := nodes[0]
	encoded, _ := MarshalCommand(ReplicateFileCommand{Filename: "x", Bytes: []byte("x")})
	if err := follower.log.Append(LogEntry{Term: 5, Index: 1, Encoded: encoded}); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	follower.mu.Lock()
	follower.currentTerm = 5
	follower.mu.Unlock()

	resp, err := follower.HandleRequestVote(context.Background(), &RequestVoteRequest{
		Term:         6,
		CandidateID:  2,
		LastLogIndex: 1,
		LastLogTerm:  3,
	})
	if err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp.VoteGranted {
		t.Error("should not grant vote to a candidate with an outdated log")
	}
}

func TestOneVotePerTerm(t *testing.T) {
	nodes, _, _ := createTestCluster(t, 3)
	defer shutdownCluster(nodes)

	node := nodes[0]

	resp1, err := node.HandleRequestVote(context.Background(), &RequestVoteRequest{Term: 1, CandidateID: 2})
	if err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if !resp1.VoteGranted {
		t.Fatal("expected first vote in term 1 to be granted")
	}

	resp2, err := node.HandleRequestVote(context.Background(), &RequestVoteRequest{Term: 1, CandidateID: 3})
	if err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp2.VoteGranted {
		t.Error("should not grant a second vote in the same term to a different candidate")
	}
}
