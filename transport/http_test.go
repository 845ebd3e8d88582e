package transport

import (
	"context"
	"testing"
	"time"

	"pricecache/cluster"
	"pricecache/raft"
)

type fakeRPCServer struct {
	voteResp   *raft.RequestVoteResponse
	appendResp *raft.AppendEntriesResponse
}

func (f *fakeRPCServer) HandleRequestVote(ctx context.Context, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	return f.voteResp, nil
}

func (f *fakeRPCServer) HandleAppendEntries(ctx context.Context, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	return f.appendResp, nil
}

func newTestNode(t *testing.T) *raft.Node {
	t.Helper()
	members, err := cluster.New(1, map[int]string{1: "localhost:0"})
	if err != nil {
		t.Fatalf("cluster.New: %v", err)
	}
	dir := t.TempDir()
	hs := raft.NewHardStateStore(dir + "/term")
	ls, err := raft.OpenLogStore(dir + "/log")
	if err != nil {
		t.Fatalf("OpenLogStore: %v", err)
	}
	node, err := raft.NewNode(members, raft.NewLogger(1), raft.Timing{
		ElectionMin: 50 * time.Millisecond, ElectionMax: 100 * time.Millisecond,
		Heartbeat: 20 * time.Millisecond, TickInterval: 10 * time.Millisecond,
		VoteTimeout: 20 * time.Millisecond, AppendTimeout: 20 * time.Millisecond,
		HealthTimeout: 20 * time.Millisecond,
	}, hs, ls, nil, noopStateMachine{}, nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	return node
}

type noopStateMachine struct{}

func (noopStateMachine) Apply(raft.Command) error { return nil }

func TestHTTPRequestVoteRoundTrip(t *testing.T) {
	rpc := &fakeRPCServer{voteResp: &raft.RequestVoteResponse{Term: 4, VoteGranted: true}}
	node := newTestNode(t)

	server := NewHTTPServer(rpc, node)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	addr := server.listener.Addr().String()
	client := NewHTTPClient(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := client.RequestVote(ctx, addr, &raft.RequestVoteRequest{Term: 4, CandidateID: 1})
	if err != nil {
		t.Fatalf("RequestVote: %v", err)
	}
	if !resp.VoteGranted || resp.Term != 4 {
		t.Errorf("RequestVote response = %+v, want {Term:4 VoteGranted:true}", resp)
	}
}

func TestHTTPAppendEntriesRoundTrip(t *testing.T) {
	rpc := &fakeRPCServer{appendResp: &raft.AppendEntriesResponse{Term: 2, Success: true, MatchIndex: 5}}
	node := newTestNode(t)

	server := NewHTTPServer(rpc, node)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	addr := server.listener.Addr().String()
	client := NewHTTPClient(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := client.AppendEntries(ctx, addr, &raft.AppendEntriesRequest{Term: 2, LeaderID: 1})
	if err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}
	if !resp.Success || resp.MatchIndex != 5 {
		t.Errorf("AppendEntries response = %+v, want {Term:2 Success:true MatchIndex:5}", resp)
	}
}

func TestHTTPHealth(t *testing.T) {
	node := newTestNode(t)
	server := NewHTTPServer(&fakeRPCServer{}, node)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	addr := server.listener.Addr().String()
	client := NewHTTPClient(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	health, err := client.Health(ctx, addr)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.NodeID != 1 {
		t.Errorf("NodeID = %d, want 1", health.NodeID)
	}
}
