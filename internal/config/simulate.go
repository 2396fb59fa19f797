package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario        string
	Out             string
	Snapshot        string
	PGDSN           string
	RunName         string
	StartTime       uint64
	StableFeeBps    uint64
	VolatileFeeBps  uint64
	StableSkimBps   uint64
	VolatileSkimBps uint64
	// BribeRegistry is the address the pool-to-bribe directory is deployed at.
	BribeRegistry string
	LogLevel      string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":               "./data/events.jsonl",
		"snapshot":          "./data/pools.json",
		"run-name":          "default",
		"start-time":        uint64(1_700_000_000),
		"stable-fee-bps":    uint64(5),
		"volatile-fee-bps":  uint64(30),
		"stable-skim-bps":   uint64(2),
		"volatile-skim-bps": uint64(25),
		"log-level":         "info",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Scenario:        v.GetString("scenario"),
		Out:             v.GetString("out"),
		Snapshot:        v.GetString("snapshot"),
		PGDSN:           v.GetString("pg-dsn"),
		RunName:         v.GetString("run-name"),
		StartTime:       v.GetUint64("start-time"),
		StableFeeBps:    v.GetUint64("stable-fee-bps"),
		VolatileFeeBps:  v.GetUint64("volatile-fee-bps"),
		StableSkimBps:   v.GetUint64("stable-skim-bps"),
		VolatileSkimBps: v.GetUint64("volatile-skim-bps"),
		BribeRegistry:   v.GetString("bribe-registry"),
		LogLevel:        v.GetString("log-level"),
	}
	if cfg.Scenario == "" {
		return SimulateConfig{}, fmt.Errorf("scenario is required")
	}
	if cfg.BribeRegistry != "" && !common.IsHexAddress(cfg.BribeRegistry) {
		return SimulateConfig{}, fmt.Errorf("invalid bribe-registry address %q", cfg.BribeRegistry)
	}
	return cfg, nil
}
