package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// PairQuote names a deployed pool and the token sold into it.
type PairQuote struct {
	Pool    common.Address
	TokenIn common.Address
}

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	RPCURL         string
	Pairs          []PairQuote
	AmountIn       string
	Block          uint64
	StableFeeBps   uint64
	VolatileFeeBps uint64
	MaxRetries     int
	RetryBackoff   time.Duration
	JSON           bool
	LogLevel       string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"stable-fee-bps":   uint64(5),
		"volatile-fee-bps": uint64(30),
		"max-retries":      3,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:         v.GetString("rpc"),
		AmountIn:       v.GetString("amount-in"),
		Block:          v.GetUint64("block"),
		StableFeeBps:   v.GetUint64("stable-fee-bps"),
		VolatileFeeBps: v.GetUint64("volatile-fee-bps"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		JSON:           v.GetBool("json"),
		LogLevel:       v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return QuoteConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.AmountIn == "" {
		return QuoteConfig{}, fmt.Errorf("amount-in is required")
	}

	for _, raw := range getStringSlice(v, "pair") {
		pq, err := parsePairQuote(raw)
		if err != nil {
			return QuoteConfig{}, err
		}
		cfg.Pairs = append(cfg.Pairs, pq)
	}
	if len(cfg.Pairs) == 0 {
		return QuoteConfig{}, fmt.Errorf("at least one --pair is required")
	}
	return cfg, nil
}

// parsePairQuote reads "pool:tokenIn".
func parsePairQuote(raw string) (PairQuote, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[1]) {
		return PairQuote{}, fmt.Errorf("invalid pair %q, expected pool:tokenIn", raw)
	}
	return PairQuote{
		Pool:    common.HexToAddress(parts[0]),
		TokenIn: common.HexToAddress(parts[1]),
	}, nil
}
