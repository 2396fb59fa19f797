package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadSimulatePrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "pairrouter.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("scenario: from-file.yaml\nvolatile-skim-bps: 10\nout: file.jsonl\n"), 0o644))

	t.Setenv("PAIRROUTER_VOLATILE_SKIM_BPS", "20")

	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.String("out", "", "")
	require.NoError(t, flags.Parse([]string{"--out", "flag.jsonl"}))

	cfg, err := LoadSimulate(cfgFile, flags)
	require.NoError(t, err)
	require.Equal(t, "from-file.yaml", cfg.Scenario)
	require.Equal(t, "flag.jsonl", cfg.Out)
	require.Equal(t, uint64(20), cfg.VolatileSkimBps)
	require.Equal(t, uint64(2), cfg.StableSkimBps)
	require.Equal(t, uint64(30), cfg.VolatileFeeBps)
}

func TestLoadSimulateRequiresScenario(t *testing.T) {
	_, err := LoadSimulate("", nil)
	require.Error(t, err)
}

func TestLoadQuoteParsesPairs(t *testing.T) {
	flags := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.String("amount-in", "", "")
	flags.StringSlice("pair", nil, "")
	require.NoError(t, flags.Parse([]string{
		"--rpc", "http://localhost:8545",
		"--amount-in", "1000",
		"--pair", "0x0000000000000000000000000000000000000001:0x0000000000000000000000000000000000000002",
	}))

	cfg, err := LoadQuote("", flags)
	require.NoError(t, err)
	require.Len(t, cfg.Pairs, 1)
	require.Equal(t, common.HexToAddress("0x02"), cfg.Pairs[0].TokenIn)
	require.Equal(t, 3, cfg.MaxRetries)

	_, err = parsePairQuote("0x01")
	require.Error(t, err)
}
