package simulate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"pairRouter/internal/model"
	"pairRouter/internal/registry"
	"pairRouter/internal/router"
	"pairRouter/internal/storage"
	"pairRouter/internal/token"
)

const startTime = 1_700_000_000

type recordingSink struct {
	events []model.Event
}

func (s *recordingSink) PutEventBatch(_ context.Context, events []model.Event) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) names() map[string]int {
	out := make(map[string]int)
	for _, ev := range s.events {
		out[ev.EventName]++
	}
	return out
}

func defaultOptions(sinks ...storage.Sink) Options {
	return Options{
		StartTime: startTime,
		Registry:  registry.DefaultConfig(),
		Router:    router.DefaultConfig(),
		Sinks:     sinks,
	}
}

func reserveOf(t *testing.T, pool model.PoolSnapshot, symbol string) string {
	t.Helper()
	addr := token.DeriveAddress("token", symbol).Hex()
	switch addr {
	case pool.Token0:
		return pool.Reserve0
	case pool.Token1:
		return pool.Reserve1
	}
	t.Fatalf("%s not in pool %s", symbol, pool.Address)
	return ""
}

func TestLoadScenarioAndRun(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "basic.yaml"))
	require.NoError(t, err)
	require.Equal(t, "basic", sc.Name)
	require.Len(t, sc.Tokens, 2)
	require.Equal(t, "10000000", sc.Tokens[0].Balances["alice"])
	require.Len(t, sc.Steps, 5)
	require.Equal(t, []string{"AAA", "BBB"}, sc.Steps[1].Path)
	require.Equal(t, int64(-1), sc.Steps[4].Deadline)

	sink := &recordingSink{}
	r, err := NewRunner(sc, defaultOptions(sink))
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.Equal(t, []string{"1000000", "1000000", "999000"}, results[0].Amounts)
	require.Contains(t, results[1].Error, "insufficient output amount")
	require.Equal(t, []string{"100000", "90661"}, results[2].Amounts)
	require.Equal(t, uint64(startTime+3600), results[3].Timestamp)
	require.Contains(t, results[4].Error, "deadline expired")

	bobB, err := r.Balance("bob", "BBB")
	require.NoError(t, err)
	require.Equal(t, uint64(90661), bobB.Uint64())
	aliceA, err := r.Balance("Alice", "aaa")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000-1_000_000-100_000), aliceA.Uint64())
	native, err := r.Balance("alice", "native")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", native.Dec())

	snap := r.Snapshot()
	require.Equal(t, uint64(startTime+3600), snap.Timestamp)
	require.Len(t, snap.Tokens, 3)
	require.Len(t, snap.Pools, 1)
	pool := snap.Pools[0]
	require.False(t, pool.Stable)
	require.Equal(t, uint64(30), pool.FeeBps)
	require.Equal(t, "1100000", reserveOf(t, pool, "AAA"))
	require.Equal(t, "909339", reserveOf(t, pool, "BBB"))
	require.Empty(t, pool.Bribe)

	names := sink.names()
	require.Equal(t, 1, names[model.EventPoolCreated])
	require.Equal(t, 1, names[model.EventSwap])
	require.Equal(t, 1, names[model.EventMint])
	require.Positive(t, names[model.EventApproval])

	var last uint64
	for _, ev := range sink.events {
		require.Greater(t, ev.Seq, last)
		last = ev.Seq
	}
}

func basicTokens() []TokenSetup {
	return []TokenSetup{
		{Symbol: "AAA", Balances: map[string]string{"alice": "10000000"}},
		{Symbol: "BBB", Balances: map[string]string{"alice": "10000000"}},
	}
}

func TestRunSkimsToRegisteredBribe(t *testing.T) {
	sc := Scenario{
		Name:     "bribed",
		Accounts: []AccountSetup{{Name: "alice"}, {Name: "bob"}},
		Tokens:   basicTokens(),
		Steps: []Step{
			{Op: OpAddLiquidity, Account: "alice", TokenA: "AAA", TokenB: "BBB", AmountA: "1000000", AmountB: "1000000"},
			{Op: OpRegisterBribe, TokenA: "AAA", TokenB: "BBB", Bribe: "aaa-bbb"},
			{Op: OpSwap, Account: "alice", To: "bob", Path: []string{"AAA", "BBB"}, AmountIn: "100000"},
		},
	}
	sink := &recordingSink{}
	r, err := NewRunner(sc, defaultOptions(sink))
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"100000", "90455"}, results[2].Amounts)

	bribeAddr := token.DeriveAddress("contract", "aaa-bbb")
	aaa, ok := r.tokens.BySymbol("AAA")
	require.True(t, ok)
	require.Equal(t, uint64(250), aaa.BalanceOf(bribeAddr).Uint64())

	snap := r.Snapshot()
	require.Equal(t, bribeAddr.Hex(), snap.Pools[0].Bribe)
	require.Equal(t, "1099750", reserveOf(t, snap.Pools[0], "AAA"))
	require.Equal(t, 1, sink.names()[model.EventRewardNotified])
}

func TestRunNativeFlows(t *testing.T) {
	sc := Scenario{
		Accounts: []AccountSetup{{Name: "alice", Native: "10000000"}, {Name: "bob"}},
		Tokens:   basicTokens(),
		Steps: []Step{
			{Op: OpAddLiquidityNative, Account: "alice", TokenA: "AAA", AmountA: "1000000", AmountB: "1000000"},
			{Op: OpSwapFromNative, Account: "alice", To: "bob", Path: []string{"WETH", "AAA"}, AmountIn: "100000"},
			{Op: OpWrap, Account: "alice", Amount: "500"},
			{Op: OpUnwrap, Account: "alice", Amount: "200"},
			{Op: OpRemoveLiquidityNative, Account: "alice", TokenA: "AAA", TokenB: "WETH", Liquidity: "all"},
		},
	}
	r, err := NewRunner(sc, defaultOptions())
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1000000", "1000000", "999000"}, results[0].Amounts)
	require.Equal(t, []string{"100000", "90661"}, results[1].Amounts)

	bobA, err := r.Balance("bob", "AAA")
	require.NoError(t, err)
	require.Equal(t, uint64(90661), bobA.Uint64())
	weth, err := r.Balance("alice", "WETH")
	require.NoError(t, err)
	require.Equal(t, uint64(300), weth.Uint64())

	snap := r.Snapshot()
	require.Len(t, snap.Pools, 1)
	require.Equal(t, "1000", snap.Pools[0].TotalSupply)
}

func TestRunStopsOnUnexpectedFailure(t *testing.T) {
	sc := Scenario{
		Accounts: []AccountSetup{{Name: "alice"}},
		Tokens:   basicTokens(),
		Steps: []Step{
			{Op: OpSwap, Account: "alice", Path: []string{"AAA", "BBB"}, AmountIn: "100"},
			{Op: OpAdvanceTime, Seconds: 10},
		},
	}
	r, err := NewRunner(sc, defaultOptions())
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.ErrorContains(t, err, "step 0 (swap)")
	require.Empty(t, results)

	sc.Steps[0].ExpectError = "something else"
	r, err = NewRunner(sc, defaultOptions())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "unexpected error")
}

func TestFailedRemovalLeavesNoApproval(t *testing.T) {
	sc := Scenario{
		Accounts: []AccountSetup{{Name: "alice"}},
		Tokens:   basicTokens(),
		Steps: []Step{
			{Op: OpAddLiquidity, Account: "alice", TokenA: "AAA", TokenB: "BBB", AmountA: "1000000", AmountB: "1000000"},
			{Op: OpRemoveLiquidity, Account: "alice", TokenA: "AAA", TokenB: "BBB", Liquidity: "all", MinA: "1000000000", ExpectError: "insufficient A amount"},
		},
	}
	sink := &recordingSink{}
	r, err := NewRunner(sc, defaultOptions(sink))
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Contains(t, results[1].Error, "insufficient A amount")

	aaa, ok := r.tokens.BySymbol("AAA")
	require.True(t, ok)
	bbb, ok := r.tokens.BySymbol("BBB")
	require.True(t, ok)
	p, err := r.pair(aaa.Address(), bbb.Address(), false)
	require.NoError(t, err)

	alice := AccountAddress("alice")
	require.True(t, p.Allowance(alice, r.router.Address()).IsZero())
	require.Equal(t, "999000", p.BalanceOf(alice).Dec())
	for _, ev := range sink.events {
		if ev.Address == p.Address().Hex() {
			require.NotEqual(t, model.EventApproval, ev.EventName)
		}
	}
}

func TestScenarioValidation(t *testing.T) {
	_, err := NewRunner(Scenario{Steps: []Step{{Op: "teleport"}}}, defaultOptions())
	require.ErrorContains(t, err, "unknown op")

	_, err = NewRunner(Scenario{Tokens: []TokenSetup{{Symbol: "AAA"}, {Symbol: "aaa"}}}, defaultOptions())
	require.ErrorContains(t, err, "duplicate token")

	_, err = NewRunner(Scenario{Tokens: []TokenSetup{{Symbol: "AAA", Balances: map[string]string{"alice": "1.5"}}}}, defaultOptions())
	require.ErrorContains(t, err, "non-negative integer")
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount("1e18")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", amount.Dec())

	amount, err = parseAmount("")
	require.NoError(t, err)
	require.True(t, amount.IsZero())

	_, err = parseAmount("-1")
	require.Error(t, err)
	_, err = parseAmount("1e80")
	require.ErrorContains(t, err, "overflows")
}

func TestRouteCurves(t *testing.T) {
	r, err := NewRunner(Scenario{Tokens: basicTokens()}, Options{
		Registry:       registry.DefaultConfig(),
		Router:         router.DefaultConfig(),
		BribeDirectory: common.HexToAddress("0x00000000000000000000000000000000000000b1"),
	})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b1"), r.bribes.Address())

	hops, err := r.route([]string{"AAA", "BBB", "WETH"}, []string{"stable", "v"})
	require.NoError(t, err)
	require.Len(t, hops, 2)
	require.True(t, hops[0].Stable)
	require.False(t, hops[1].Stable)

	_, err = r.route([]string{"AAA", "BBB", "WETH"}, []string{"stable", "v", "s"})
	require.ErrorContains(t, err, "curves")
	_, err = r.route([]string{"AAA"}, nil)
	require.Error(t, err)
}
