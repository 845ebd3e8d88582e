package raft

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the consensus module's state as Prometheus collectors,
// registered once per node and scraped via the API layer's /metrics route.
type Metrics struct {
	term        prometheus.Gauge
	role        *prometheus.GaugeVec
	commitIndex prometheus.Gauge
	lastApplied prometheus.Gauge
	electionsStarted prometheus.Counter
	electionsWon     prometheus.Counter
}

// NewMetrics registers a fresh set of collectors scoped to one node id.
func NewMetrics(reg prometheus.Registerer, nodeID int) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"node_id": strconv.Itoa(nodeID)}

	return &Metrics{
		term: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_current_term",
			Help:        "Current Raft term observed by this node.",
			ConstLabels: labels,
		}),
		role: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "raft_role",
			Help:        "1 for the role this node currently holds, 0 otherwise.",
			ConstLabels: labels,
		}, []string{"role"}),
		commitIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_commit_index",
			Help:        "Highest log index known to be committed.",
			ConstLabels: labels,
		}),
		lastApplied: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_last_applied",
			Help:        "Highest log index applied to the state machine.",
			ConstLabels: labels,
		}),
		electionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name:        "raft_elections_started_total",
			Help:        "Number of elections this node has started.",
			ConstLabels: labels,
		}),
		electionsWon: factory.NewCounter(prometheus.CounterOpts{
			Name:        "raft_elections_won_total",
			Help:        "Number of elections this node has won.",
			ConstLabels: labels,
		}),
	}
}

// Every method is nil-safe so tests can build a Node with metrics omitted.

func (m *Metrics) ObserveRole(r Role) {
	if m == nil {
		return
	}
	for _, candidate := range []Role{Follower, Candidate, Leader} {
		v := 0.0
		if candidate == r {
			v = 1.0
		}
		m.role.WithLabelValues(candidate.String()).Set(v)
	}
}

func (m *Metrics) ObserveTerm(term uint64) {
	if m == nil {
		return
	}
	m.term.Set(float64(term))
}

func (m *Metrics) ObserveCommitIndex(idx uint64) {
	if m == nil {
		return
	}
	m.commitIndex.Set(float64(idx))
}

func (m *Metrics) ObserveLastApplied(idx uint64) {
	if m == nil {
		return
	}
	m.lastApplied.Set(float64(idx))
}

func (m *Metrics) IncElectionStarted() {
	if m == nil {
		return
	}
	m.electionsStarted.Inc()
}

func (m *Metrics) IncElectionWon() {
	if m == nil {
		return
	}
	m.electionsWon.Inc()
}
