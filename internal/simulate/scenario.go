package simulate

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Scenario is a scripted sequence of operations against a fresh ledger.
type Scenario struct {
	Name         string         `mapstructure:"name"`
	NativeSymbol string         `mapstructure:"native_symbol"`
	Accounts     []AccountSetup `mapstructure:"accounts"`
	Tokens       []TokenSetup   `mapstructure:"tokens"`
	Steps        []Step         `mapstructure:"steps"`
}

// AccountSetup funds a named account with native value.
type AccountSetup struct {
	Name   string `mapstructure:"name"`
	Native string `mapstructure:"native"`
}

// TokenSetup deploys a token and mints the listed balances.
type TokenSetup struct {
	Symbol         string            `mapstructure:"symbol"`
	Decimals       uint8             `mapstructure:"decimals"`
	TransferFeeBps uint64            `mapstructure:"transfer_fee_bps"`
	Balances       map[string]string `mapstructure:"balances"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op        string `mapstructure:"op"`
	Account   string `mapstructure:"account"`
	To        string `mapstructure:"to"`
	TokenA    string `mapstructure:"token_a"`
	TokenB    string `mapstructure:"token_b"`
	Stable    bool   `mapstructure:"stable"`
	AmountA   string `mapstructure:"amount_a"`
	AmountB   string `mapstructure:"amount_b"`
	MinA      string `mapstructure:"min_a"`
	MinB      string `mapstructure:"min_b"`
	Liquidity string `mapstructure:"liquidity"`
	// Path lists the tokens of a swap; Curves names the curve of each hop.
	Path     []string `mapstructure:"path"`
	Curves   []string `mapstructure:"curves"`
	AmountIn string   `mapstructure:"amount_in"`
	MinOut   string   `mapstructure:"min_out"`
	Amount   string   `mapstructure:"amount"`
	Seconds  uint64   `mapstructure:"seconds"`
	Bribe    string   `mapstructure:"bribe"`
	// Deadline is relative to the ledger time at the step.
	Deadline int64 `mapstructure:"deadline"`
	// ExpectError makes the step pass only if it fails with a message
	// containing this text.
	ExpectError string `mapstructure:"expect_error"`
}

const (
	OpAddLiquidity          = "add_liquidity"
	OpAddLiquidityNative    = "add_liquidity_native"
	OpRemoveLiquidity       = "remove_liquidity"
	OpRemoveLiquidityNative = "remove_liquidity_native"
	OpSwap                  = "swap"
	OpSwapFromNative        = "swap_from_native"
	OpSwapToNative          = "swap_to_native"
	OpRegisterBribe         = "register_bribe"
	OpAdvanceTime           = "advance_time"
	OpWrap                  = "wrap"
	OpUnwrap                = "unwrap"
	OpSync                  = "sync"
)

// LoadScenario decodes a YAML or JSON scenario file.
func LoadScenario(path string) (Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks names and ops before anything is deployed.
func (sc Scenario) Validate() error {
	seen := make(map[string]bool)
	for _, tok := range sc.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(tok.Symbol))
		if symbol == "" {
			return fmt.Errorf("token without symbol")
		}
		if seen[symbol] {
			return fmt.Errorf("duplicate token %s", symbol)
		}
		seen[symbol] = true
	}
	for i, step := range sc.Steps {
		switch step.Op {
		case OpAddLiquidity, OpAddLiquidityNative, OpRemoveLiquidity, OpRemoveLiquidityNative,
			OpSwap, OpSwapFromNative, OpSwapToNative, OpRegisterBribe, OpAdvanceTime, OpWrap, OpUnwrap, OpSync:
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}
