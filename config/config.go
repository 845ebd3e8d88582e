// Package config loads the static cluster membership table and the
// consensus timing knobs a node runs with.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults mirror the spec: 2-4s randomized election window, 0.5s
// heartbeat, ~100ms timer granularity, 10s reconciliation sweep.
const (
	DefaultElectionMin     = 2 * time.Second
	DefaultElectionMax     = 4 * time.Second
	DefaultHeartbeat       = 500 * time.Millisecond
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultSweepInterval   = 10 * time.Second
	DefaultVoteRPCTimeout  = 500 * time.Millisecond
	DefaultAppendTimeout   = 200 * time.Millisecond
	DefaultHealthTimeout   = 100 * time.Millisecond
	DefaultCacheFreshFor   = 24 * time.Hour
	DefaultNodeRegistry    = "active_nodes.txt"
	DefaultCacheDirPattern = "cache/node_%d"
	DefaultTermFilePattern = "term_%d"
)

// Cluster is the static NodeId -> Endpoint membership table, identical on
// every node and fixed at process start (spec.md section 3).
type Cluster struct {
	Nodes map[int]string `mapstructure:"nodes" yaml:"nodes"`
}

// Timing holds the tunable consensus and reconciliation intervals.
type Timing struct {
	ElectionMin    time.Duration `mapstructure:"election_min" yaml:"election_min"`
	ElectionMax    time.Duration `mapstructure:"election_max" yaml:"election_max"`
	Heartbeat      time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	TickInterval   time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	VoteTimeout    time.Duration `mapstructure:"vote_timeout" yaml:"vote_timeout"`
	AppendTimeout  time.Duration `mapstructure:"append_timeout" yaml:"append_timeout"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout" yaml:"health_timeout"`
	CacheFreshness time.Duration `mapstructure:"cache_freshness" yaml:"cache_freshness"`
}

// Config is the fully resolved node configuration.
type Config struct {
	Cluster Cluster `mapstructure:"cluster"`
	Timing  Timing  `mapstructure:"timing"`

	// Listings is the upstream API the (out-of-scope) listings client
	// talks to. Kept here since it's the only other external dependency
	// a node process needs at startup.
	ListingsBaseURL string `mapstructure:"listings_base_url"`
	ListingsAPIKey  string `mapstructure:"listings_api_key"`
}

func defaultTiming() Timing {
	return Timing{
		ElectionMin:    DefaultElectionMin,
		ElectionMax:    DefaultElectionMax,
		Heartbeat:      DefaultHeartbeat,
		TickInterval:   DefaultTickInterval,
		SweepInterval:  DefaultSweepInterval,
		VoteTimeout:    DefaultVoteRPCTimeout,
		AppendTimeout:  DefaultAppendTimeout,
		HealthTimeout:  DefaultHealthTimeout,
		CacheFreshness: DefaultCacheFreshFor,
	}
}

func defaultCluster() Cluster {
	return Cluster{
		Nodes: map[int]string{
			217: "localhost:8217",
			536: "localhost:8536",
			657: "localhost:8657",
			777: "localhost:8777",
			888: "localhost:8888",
		},
	}
}

// Load reads cluster.yaml from the given path (if it exists) and layers it
// over the spec's defaults. An absent or unreadable config file is not an
// error; the node falls back to the default five-node membership table.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	cfg := &Config{
		Cluster: defaultCluster(),
		Timing:  defaultTiming(),
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if len(cfg.Cluster.Nodes) == 0 {
		cfg.Cluster.Nodes = defaultCluster().Nodes
	}
	fillTimingDefaults(&cfg.Timing)

	return cfg, nil
}

func fillTimingDefaults(t *Timing) {
	d := defaultTiming()
	if t.ElectionMin == 0 {
		t.ElectionMin = d.ElectionMin
	}
	if t.ElectionMax == 0 {
		t.ElectionMax = d.ElectionMax
	}
	if t.Heartbeat == 0 {
		t.Heartbeat = d.Heartbeat
	}
	if t.TickInterval == 0 {
		t.TickInterval = d.TickInterval
	}
	if t.SweepInterval == 0 {
		t.SweepInterval = d.SweepInterval
	}
	if t.VoteTimeout == 0 {
		t.VoteTimeout = d.VoteTimeout
	}
	if t.AppendTimeout == 0 {
		t.AppendTimeout = d.AppendTimeout
	}
	if t.HealthTimeout == 0 {
		t.HealthTimeout = d.HealthTimeout
	}
	if t.CacheFreshness == 0 {
		t.CacheFreshness = d.CacheFreshness
	}
}

// CacheDir returns the dedicated cache directory for a node id.
func CacheDir(nodeID int) string {
	return fmt.Sprintf(DefaultCacheDirPattern, nodeID)
}

// TermFile returns the term-file path for a node id.
func TermFile(nodeID int) string {
	return fmt.Sprintf(DefaultTermFilePattern, nodeID)
}
