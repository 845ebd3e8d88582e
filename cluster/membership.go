// Package cluster holds the static cluster membership table. Unlike the
// teacher's NodeRegistry, membership here is fixed at process start and
// never mutated — the spec requires identical, static membership on every
// node (spec.md section 3) — so there is no RegisterNode/UnregisterNode.
package cluster

import "fmt"

// Membership is the NodeId -> Endpoint table every node loads identically.
type Membership struct {
	self  int
	nodes map[int]string
}

// New builds a Membership from a resolved config table. self must be a key
// of nodes.
func New(self int, nodes map[int]string) (*Membership, error) {
	if _, ok := nodes[self]; !ok {
		return nil, fmt.Errorf("node id %d not in cluster membership", self)
	}

	cp := make(map[int]string, len(nodes))
	for id, addr := range nodes {
		cp[id] = addr
	}

	return &Membership{self: self, nodes: cp}, nil
}

// Self returns this process's node id.
func (m *Membership) Self() int {
	return m.self
}

// Quorum returns floor(N/2)+1 for the cluster size.
func (m *Membership) Quorum() int {
	return len(m.nodes)/2 + 1
}

// Size returns the number of nodes in the cluster, including self.
func (m *Membership) Size() int {
	return len(m.nodes)
}

// Peers returns every node id other than self.
func (m *Membership) Peers() []int {
	peers := make([]int, 0, len(m.nodes)-1)
	for id := range m.nodes {
		if id != m.self {
			peers = append(peers, id)
		}
	}
	return peers
}

// Endpoint returns the network address for a node id.
func (m *Membership) Endpoint(id int) (string, bool) {
	addr, ok := m.nodes[id]
	return addr, ok
}

// All returns a copy of the full membership table.
func (m *Membership) All() map[int]string {
	cp := make(map[int]string, len(m.nodes))
	for id, addr := range m.nodes {
		cp[id] = addr
	}
	return cp
}
