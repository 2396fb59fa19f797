package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pairrouter",
		Short:        "Volatile/stable pair AMM with a multi-hop router",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scenario against a fresh in-memory deployment",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario file (YAML or JSON)")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	simulateCmd.Flags().String("snapshot", "./data/pools.json", "final pool snapshot path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and pool snapshots")
	simulateCmd.Flags().String("run-name", "default", "run name used to key Postgres rows")
	simulateCmd.Flags().Uint64("start-time", 1_700_000_000, "ledger start timestamp (unix seconds)")
	simulateCmd.Flags().Uint64("stable-fee-bps", 5, "stable pool trading fee in bps")
	simulateCmd.Flags().Uint64("volatile-fee-bps", 30, "volatile pool trading fee in bps")
	simulateCmd.Flags().Uint64("stable-skim-bps", 2, "bribe skim on stable first hops in bps")
	simulateCmd.Flags().Uint64("volatile-skim-bps", 25, "bribe skim on volatile first hops in bps")
	simulateCmd.Flags().String("bribe-registry", "", "address of the pool-to-bribe directory")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote swaps against deployed pairs over RPC",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL")
	quoteCmd.Flags().StringSlice("pair", nil, "pool:tokenIn pairs to quote (comma-separated)")
	quoteCmd.Flags().String("amount-in", "", "input amount in base units")
	quoteCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	quoteCmd.Flags().Uint64("stable-fee-bps", 5, "stable pool trading fee in bps")
	quoteCmd.Flags().Uint64("volatile-fee-bps", 30, "volatile pool trading fee in bps")
	quoteCmd.Flags().Int("max-retries", 3, "maximum retry attempts")
	quoteCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	quoteCmd.Flags().Bool("json", false, "print quotes as JSON lines")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
