package cluster

import "testing"

func fiveNodeTable() map[int]string {
	return map[int]string{
		217: "localhost:8217",
		536: "localhost:8536",
		657: "localhost:8657",
		777: "localhost:8777",
		888: "localhost:8888",
	}
}

func TestNewRejectsUnknownSelf(t *testing.T) {
	if _, err := New(1, fiveNodeTable()); err == nil {
		t.Error("expected error when self is not in the membership table")
	}
}

func TestQuorumIsFloorHalfPlusOne(t *testing.T) {
	m, err := New(217, fiveNodeTable())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := m.Quorum(); got != 3 {
		t.Errorf("Quorum() = %d, want 3", got)
	}
}

func TestPeersExcludesSelf(t *testing.T) {
	m, err := New(217, fiveNodeTable())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	peers := m.Peers()
	if len(peers) != 4 {
		t.Fatalf("expected 4 peers, got %d", len(peers))
	}
	for _, id := range peers {
		if id == 217 {
			t.Error("Peers() should not include self")
		}
	}
}

func TestEndpointLookup(t *testing.T) {
	m, err := New(888, fiveNodeTable())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	addr, ok := m.Endpoint(217)
	if !ok || addr != "localhost:8217" {
		t.Errorf("Endpoint(217) = (%q, %v), want (localhost:8217, true)", addr, ok)
	}

	if _, ok := m.Endpoint(999); ok {
		t.Error("Endpoint(999) should not be found")
	}
}
