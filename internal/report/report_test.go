package report

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairRouter/internal/amm"
)

var (
	weth = common.HexToAddress("0x000000000000000000000000000000000000000a")
	usdc = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func u(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.2345", FormatAmount(u("1234500"), 6))
	require.Equal(t, "42", FormatAmount(u("42"), 0))
	require.Equal(t, "0.000000000000000001", FormatAmount(u("1"), 18))
	require.Equal(t, "0", FormatAmount(nil, 18))
}

func TestSpotPriceAdjustsDecimals(t *testing.T) {
	pool := amm.PoolState{
		Token0: weth, Token1: usdc,
		Decimals0: 18, Decimals1: 6,
		Reserve0: u("1000000000000000000000"),
		Reserve1: u("2000000000"),
		FeeBps:   30,
	}
	price, err := SpotPrice(pool, weth)
	require.NoError(t, err)
	require.Equal(t, "2", price.String())

	price, err = SpotPrice(pool, usdc)
	require.NoError(t, err)
	require.Equal(t, "0.5", price.String())

	pool.Stable = true
	pool.Reserve1 = u("1000000000")
	price, err = SpotPrice(pool, weth)
	require.NoError(t, err)
	require.Equal(t, "1", price.String())
}

func TestPriceImpact(t *testing.T) {
	pool := amm.PoolState{
		Token0: weth, Token1: usdc,
		Decimals0: 0, Decimals1: 0,
		Reserve0: u("1000"), Reserve1: u("1000"),
		FeeBps: 30,
	}
	impact, err := PriceImpact(pool, weth, u("100"), u("90"))
	require.NoError(t, err)
	require.Equal(t, "10", impact.String())

	q, err := Describe(pool, weth, u("100"))
	require.NoError(t, err)
	require.Equal(t, "90", q.AmountOut)
	require.Equal(t, "10", q.PriceImpactPct)
	require.Equal(t, usdc.Hex(), q.TokenOut)

	_, err = SpotPrice(pool, common.HexToAddress("0xdead"))
	require.ErrorIs(t, err, amm.ErrInvalidPath)
}
