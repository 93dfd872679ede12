// Package config defines the exchange's runtime configuration: loaded from
// a YAML file with CLOB_* environment variable overrides, in the same
// viper-based shape internal/config/config.go uses in the retrieval pack's
// market-making bot (SPEC_FULL.md §4.11 — an ambient-stack addition; the
// teacher repo takes its knobs as main.go flags/constants instead).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level exchange configuration. Maps directly onto the
// YAML file structure.
type Config struct {
	Ring     RingConfig     `mapstructure:"ring"`
	Sharding ShardingConfig `mapstructure:"sharding"`
	Matching MatchingConfig `mapstructure:"matching"`
	Grouping GroupingConfig `mapstructure:"grouping"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Risk     RiskConfig     `mapstructure:"risk"`
}

// RingConfig sizes the disruptor-style transport ring buffer.
type RingConfig struct {
	// Size must be a power of two (spec.md §5); NextN spins against the
	// slowest gating sequence when the ring is full.
	Size      int    `mapstructure:"size"`
	WaitStrategy string `mapstructure:"wait_strategy"` // "busy_spin" | "yielding" | "blocking"
}

// ShardingConfig sets how many risk shards to run; a uid belongs to shard
// uid & (RiskShards-1). MatchingShards is validated but not used:
// pipeline.Core keeps one order book per symbol and does not split symbols
// across matching shards.
type ShardingConfig struct {
	RiskShards     int `mapstructure:"risk_shards"`
	MatchingShards int `mapstructure:"matching_shards"`
}

// MatchingConfig selects which Matcher implementation backs each symbol's
// order book and how deep L2 snapshots go by default.
type MatchingConfig struct {
	Engine      string `mapstructure:"engine"` // "direct" | "naive"
	L2Depth     int    `mapstructure:"l2_depth"`
}

// GroupingConfig tunes the grouping stage's batch-boundary triggers
// (spec.md §4.3).
type GroupingConfig struct {
	MsgsInGroupLimit  int   `mapstructure:"msgs_in_group_limit"`
	MaxGroupDurationNs int64 `mapstructure:"max_group_duration_ns"`
}

// JournalConfig controls LZ4-compressed command journaling and snapshotting
// (spec.md §4.9).
type JournalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Directory      string `mapstructure:"directory"`
	SnapshotEveryN int64  `mapstructure:"snapshot_every_n"`
}

// LoggingConfig controls the zap logger (logging package).
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RiskConfig mirrors OrdersProcessingConfiguration's marginTradingMode:
// whether FuturesContract symbols accept PLACE_ORDER at all.
type RiskConfig struct {
	MarginTradingEnabled bool `mapstructure:"margin_trading_enabled"`
}

// Default returns a Config with sane defaults, the base every Load call
// starts from before the file/env layers are applied.
func Default() *Config {
	return &Config{
		Ring:     RingConfig{Size: 1 << 16, WaitStrategy: "yielding"},
		Sharding: ShardingConfig{RiskShards: 4, MatchingShards: 4},
		Matching: MatchingConfig{Engine: "direct", L2Depth: 10},
		Grouping: GroupingConfig{MsgsInGroupLimit: 4096, MaxGroupDurationNs: 2_000_000},
		Journal:  JournalConfig{Enabled: false, Directory: "./journal", SnapshotEveryN: 1_000_000},
		Logging:  LoggingConfig{Level: "info", Development: false},
		Risk:     RiskConfig{MarginTradingEnabled: false},
	}
}

// Load reads configuration from a YAML file (if path is non-empty) layered
// over Default(), with CLOB_* environment variables overriding both.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLOB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("ring", cfg.Ring)
	v.SetDefault("sharding", cfg.Sharding)
	v.SetDefault("matching", cfg.Matching)
	v.SetDefault("grouping", cfg.Grouping)
	v.SetDefault("journal", cfg.Journal)
	v.SetDefault("logging", cfg.Logging)
	v.SetDefault("risk", cfg.Risk)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks invariants Load cannot enforce via mapstructure tags
// alone: ring size and risk shard count are powers of two, the group
// message limit is at most a quarter of the ring size, and the other
// counts and names are in range.
func (c *Config) Validate() error {
	if c.Ring.Size <= 0 || c.Ring.Size&(c.Ring.Size-1) != 0 {
		return fmt.Errorf("ring.size must be a power of two, got %d", c.Ring.Size)
	}
	switch c.Ring.WaitStrategy {
	case "busy_spin", "yielding", "blocking":
	default:
		return fmt.Errorf("ring.wait_strategy must be one of busy_spin|yielding|blocking, got %q", c.Ring.WaitStrategy)
	}
	if c.Sharding.RiskShards <= 0 {
		return fmt.Errorf("sharding.risk_shards must be > 0")
	}
	if c.Sharding.RiskShards&(c.Sharding.RiskShards-1) != 0 {
		return fmt.Errorf("sharding.risk_shards must be a power of two, got %d", c.Sharding.RiskShards)
	}
	if c.Grouping.MsgsInGroupLimit > c.Ring.Size/4 {
		return fmt.Errorf("grouping.msgs_in_group_limit must be <= ring.size/4 (%d), got %d", c.Ring.Size/4, c.Grouping.MsgsInGroupLimit)
	}
	if c.Sharding.MatchingShards <= 0 {
		return fmt.Errorf("sharding.matching_shards must be > 0")
	}
	switch c.Matching.Engine {
	case "direct", "naive":
	default:
		return fmt.Errorf("matching.engine must be direct|naive, got %q", c.Matching.Engine)
	}
	return nil
}
