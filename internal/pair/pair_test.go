package pair

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/token"
)

var (
	addrA    = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB    = common.HexToAddress("0x000000000000000000000000000000000000000b")
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

func u(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

type fixture struct {
	store  *ledger.Store
	clock  *ledger.ManualClock
	tokenA *token.ERC20
	tokenB *token.ERC20
	pair   *Pair
}

func newFixture(t *testing.T, stable bool, feeBps uint64) *fixture {
	t.Helper()
	clock := ledger.NewManualClock(100)
	store := ledger.NewStore(clock.Now)
	a := token.NewERC20(store, addrA, token.Config{Symbol: "A", Decimals: 18})
	b := token.NewERC20(store, addrB, token.Config{Symbol: "B", Decimals: 18})
	require.NoError(t, a.Mint(alice, u("10000000000000000000000000")))
	require.NoError(t, b.Mint(alice, u("10000000000000000000000000")))

	p, err := New(store, Config{Address: poolAddr, Token0: a, Token1: b, Stable: stable, FeeBps: feeBps}, zap.NewNop())
	require.NoError(t, err)
	return &fixture{store: store, clock: clock, tokenA: a, tokenB: b, pair: p}
}

func (f *fixture) seed(t *testing.T, amountA, amountB string) *uint256.Int {
	t.Helper()
	require.True(t, f.tokenA.Transfer(alice, poolAddr, u(amountA)))
	require.True(t, f.tokenB.Transfer(alice, poolAddr, u(amountB)))
	liquidity, err := f.pair.Mint(alice, alice)
	require.NoError(t, err)
	return liquidity
}

func TestNewRejectsUnsortedTokens(t *testing.T) {
	store := ledger.NewStore(ledger.NewManualClock(1).Now)
	a := token.NewERC20(store, addrA, token.Config{Symbol: "A", Decimals: 18})
	b := token.NewERC20(store, addrB, token.Config{Symbol: "B", Decimals: 18})

	_, err := New(store, Config{Address: poolAddr, Token0: b, Token1: a}, nil)
	require.Error(t, err)
	_, err = New(store, Config{Address: poolAddr, Token0: a, Token1: a}, nil)
	require.ErrorIs(t, err, amm.ErrIdenticalAddresses)
}

func TestFirstMintLocksMinimumLiquidity(t *testing.T) {
	f := newFixture(t, false, 30)

	liquidity := f.seed(t, "1000000", "1000000")
	require.Equal(t, "999000", liquidity.Dec())
	require.Equal(t, "1000", f.pair.BalanceOf(common.Address{}).Dec())
	require.Equal(t, "1000000", f.pair.TotalSupply().Dec())

	r0, r1, ts := f.pair.Reserves()
	require.Equal(t, "1000000", r0.Dec())
	require.Equal(t, "1000000", r1.Dec())
	require.Equal(t, uint64(100), ts)
	require.Equal(t, "vAMM-A/B", f.pair.Symbol())
}

func TestFirstMintBelowFloorFails(t *testing.T) {
	f := newFixture(t, false, 30)
	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("1000")))
	require.True(t, f.tokenB.Transfer(alice, poolAddr, u("1000")))

	_, err := f.pair.Mint(alice, alice)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityMinted)
	require.True(t, f.pair.TotalSupply().IsZero())
}

func TestStableSeedRequiresMinimumK(t *testing.T) {
	f := newFixture(t, true, 5)
	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("1000000")))
	require.True(t, f.tokenB.Transfer(alice, poolAddr, u("1000000")))
	_, err := f.pair.Mint(alice, alice)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityMinted)

	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("1000000000000000000000")))
	require.True(t, f.tokenB.Transfer(alice, poolAddr, u("1000000000000000000000")))
	_, err = f.pair.Mint(alice, alice)
	require.NoError(t, err)
	require.Equal(t, "sAMM-A/B", f.pair.Symbol())
}

func TestSwapEnforcesInvariant(t *testing.T) {
	f := newFixture(t, false, 30)
	f.seed(t, "1000000", "1000000")
	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("100000")))

	err := f.pair.Swap(alice, u("0"), u("90662"), alice)
	require.ErrorIs(t, err, amm.ErrCurveInvariantViolation)

	before := f.tokenB.BalanceOf(alice)
	require.NoError(t, f.pair.Swap(alice, u("0"), u("90661"), alice))
	require.Equal(t, "90661", new(uint256.Int).Sub(f.tokenB.BalanceOf(alice), before).Dec())

	r0, r1, _ := f.pair.Reserves()
	require.Equal(t, "1100000", r0.Dec())
	require.Equal(t, "909339", r1.Dec())

	k, err := amm.VolatileCurve{}.K(r0, r1)
	require.NoError(t, err)
	require.False(t, k.Lt(u("1000000000000")))
}

func TestSwapMatchesQuote(t *testing.T) {
	for _, stable := range []bool{false, true} {
		f := newFixture(t, stable, 5)
		f.seed(t, "1000000000000000000000000", "1000000000000000000000000")

		quoted, err := f.pair.GetAmountOut(u("1000000000000000000000"), addrB)
		require.NoError(t, err)
		require.True(t, f.tokenB.Transfer(alice, poolAddr, u("1000000000000000000000")))
		require.NoError(t, f.pair.Swap(alice, quoted, u("0"), alice), "stable=%v", stable)
	}
}

func TestSwapArgumentChecks(t *testing.T) {
	f := newFixture(t, false, 30)
	f.seed(t, "1000000", "1000000")

	require.ErrorIs(t, f.pair.Swap(alice, u("0"), u("0"), alice), amm.ErrInsufficientOutputAmount)
	require.ErrorIs(t, f.pair.Swap(alice, u("1"), u("0"), addrA), ErrInvalidTo)
	require.ErrorIs(t, f.pair.Swap(alice, u("1000000"), u("0"), alice), amm.ErrInsufficientLiquidity)
	require.ErrorIs(t, f.pair.Swap(alice, u("10"), u("0"), alice), amm.ErrInsufficientInputAmount)

	r0, r1, _ := f.pair.Reserves()
	require.Equal(t, "1000000", r0.Dec())
	require.Equal(t, "1000000", r1.Dec())
}

func TestBurnReturnsProportionalShare(t *testing.T) {
	f := newFixture(t, false, 30)
	liquidity := f.seed(t, "4000000", "1000000")
	require.Equal(t, "1999000", liquidity.Dec())

	half := new(uint256.Int).Div(liquidity, uint256.NewInt(2))
	require.True(t, f.pair.Transfer(alice, poolAddr, half))
	beforeA, beforeB := f.tokenA.BalanceOf(alice), f.tokenB.BalanceOf(alice)

	amount0, amount1, err := f.pair.Burn(alice, alice)
	require.NoError(t, err)
	require.Equal(t, "1999000", amount0.Dec())
	require.Equal(t, "499750", amount1.Dec())
	require.Equal(t, amount0.Dec(), new(uint256.Int).Sub(f.tokenA.BalanceOf(alice), beforeA).Dec())
	require.Equal(t, amount1.Dec(), new(uint256.Int).Sub(f.tokenB.BalanceOf(alice), beforeB).Dec())

	_, _, err = f.pair.Burn(alice, alice)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityBurned)
}

func TestSkimAndSync(t *testing.T) {
	f := newFixture(t, false, 30)
	f.seed(t, "1000000", "1000000")
	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("500")))

	before := f.tokenA.BalanceOf(alice)
	require.NoError(t, f.pair.Skim(alice, alice))
	require.Equal(t, "500", new(uint256.Int).Sub(f.tokenA.BalanceOf(alice), before).Dec())

	require.True(t, f.tokenB.Transfer(alice, poolAddr, u("700")))
	require.NoError(t, f.pair.Sync(alice))
	_, r1, _ := f.pair.Reserves()
	require.Equal(t, "1000700", r1.Dec())
}

type reentrantToken struct {
	*token.ERC20
	reenter func() error
	err     error
}

func (r *reentrantToken) Transfer(caller, to common.Address, amount *uint256.Int) bool {
	if r.reenter != nil {
		r.err = r.reenter()
	}
	return r.ERC20.Transfer(caller, to, amount)
}

func TestPoolLockRejectsReentry(t *testing.T) {
	clock := ledger.NewManualClock(100)
	store := ledger.NewStore(clock.Now)
	a := &reentrantToken{ERC20: token.NewERC20(store, addrA, token.Config{Symbol: "A", Decimals: 18})}
	b := token.NewERC20(store, addrB, token.Config{Symbol: "B", Decimals: 18})
	require.NoError(t, a.Mint(alice, u("10000000")))
	require.NoError(t, b.Mint(alice, u("10000000")))

	p, err := New(store, Config{Address: poolAddr, Token0: a, Token1: b, FeeBps: 30}, nil)
	require.NoError(t, err)
	require.True(t, a.Transfer(alice, poolAddr, u("1000000")))
	require.True(t, b.Transfer(alice, poolAddr, u("1000000")))
	_, err = p.Mint(alice, alice)
	require.NoError(t, err)

	a.reenter = func() error { return p.Sync(alice) }
	require.True(t, b.Transfer(alice, poolAddr, u("100000")))
	require.NoError(t, p.Swap(alice, u("90000"), u("0"), alice))
	require.ErrorIs(t, a.err, ErrLocked)
}

func TestOracleTracksTimeWeightedReserves(t *testing.T) {
	f := newFixture(t, false, 30)
	f.seed(t, "1000000", "1000000")

	f.clock.Advance(PeriodSize)
	require.NoError(t, f.pair.Sync(alice))
	require.Len(t, f.pair.Observations(), 1)

	f.clock.Advance(1)
	require.NoError(t, f.pair.Sync(alice))
	observations := f.pair.Observations()
	require.Len(t, observations, 2)
	require.Equal(t, uint64(100+PeriodSize+1), observations[1].Timestamp)
	require.Equal(t, "1801000000", observations[1].Reserve0Cumulative.Dec())

	spot, err := f.pair.GetAmountOut(u("1000"), addrA)
	require.NoError(t, err)

	twap, err := f.pair.Quote(addrA, u("1000"), 1)
	require.NoError(t, err)
	require.Equal(t, spot.Dec(), twap.Dec())

	current, err := f.pair.Current(addrA, u("1000"))
	require.NoError(t, err)
	require.Equal(t, spot.Dec(), current.Dec())

	f.clock.Advance(100)
	c0, _, ts := f.pair.CurrentCumulativeReserves()
	require.Equal(t, "1901000000", c0.Dec())
	require.Equal(t, uint64(100+PeriodSize+101), ts)

	_, err = f.pair.Quote(addrA, u("1000"), 2)
	require.ErrorIs(t, err, ErrNotEnoughObservations)
}

func TestFailedSwapEmitsNothing(t *testing.T) {
	f := newFixture(t, false, 30)
	f.seed(t, "1000000", "1000000")
	f.store.TakeEvents()

	require.Error(t, f.pair.Swap(alice, u("0"), u("1"), alice))
	require.Empty(t, f.store.TakeEvents())

	require.True(t, f.tokenA.Transfer(alice, poolAddr, u("1000")))
	require.NoError(t, f.pair.Swap(alice, u("0"), u("900"), alice))
	var names []string
	for _, ev := range f.store.TakeEvents() {
		names = append(names, ev.EventName)
	}
	require.Equal(t, []string{model.EventTransfer, model.EventTransfer, model.EventSync, model.EventSwap}, names)
}
