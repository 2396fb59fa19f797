package report

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"pairRouter/internal/amm"
)

const priceScale = 18

var (
	one     = decimal.NewFromInt(1)
	three   = decimal.NewFromInt(3)
	hundred = decimal.NewFromInt(100)
)

// FormatAmount renders a raw token amount in whole units.
func FormatAmount(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return toUnits(value, decimals).String()
}

func toUnits(value *uint256.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(value.ToBig(), -int32(decimals))
}

// SpotPrice is the marginal price of tokenIn in units of the other token.
func SpotPrice(pool amm.PoolState, tokenIn common.Address) (decimal.Decimal, error) {
	if !pool.Has(tokenIn) {
		return decimal.Decimal{}, fmt.Errorf("token %s not in pool: %w", tokenIn.Hex(), amm.ErrInvalidPath)
	}
	if pool.Reserve0.IsZero() || pool.Reserve1.IsZero() {
		return decimal.Decimal{}, amm.ErrInsufficientLiquidity
	}
	x := toUnits(pool.Reserve0, pool.Decimals0)
	y := toUnits(pool.Reserve1, pool.Decimals1)
	if tokenIn != pool.Token0 {
		x, y = y, x
	}
	if !pool.Stable {
		return y.DivRound(x, priceScale), nil
	}
	// -dy/dx of x³y + xy³ = k
	x2, y2 := x.Mul(x), y.Mul(y)
	numerator := three.Mul(x2).Mul(y).Add(y2.Mul(y))
	denominator := x2.Mul(x).Add(three.Mul(x).Mul(y2))
	return numerator.DivRound(denominator, priceScale), nil
}

// ExecutionPrice is amountOut per amountIn in whole units.
func ExecutionPrice(amountIn, amountOut *uint256.Int, decimalsIn, decimalsOut uint8) (decimal.Decimal, error) {
	if amountIn.IsZero() {
		return decimal.Decimal{}, amm.ErrInsufficientInputAmount
	}
	return toUnits(amountOut, decimalsOut).DivRound(toUnits(amountIn, decimalsIn), priceScale), nil
}

// PriceImpact is the percentage by which the execution price falls short of
// the spot price before the trade.
func PriceImpact(pool amm.PoolState, tokenIn common.Address, amountIn, amountOut *uint256.Int) (decimal.Decimal, error) {
	spot, err := SpotPrice(pool, tokenIn)
	if err != nil {
		return decimal.Decimal{}, err
	}
	decimalsIn, decimalsOut := pool.Decimals0, pool.Decimals1
	if tokenIn != pool.Token0 {
		decimalsIn, decimalsOut = decimalsOut, decimalsIn
	}
	exec, err := ExecutionPrice(amountIn, amountOut, decimalsIn, decimalsOut)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if spot.IsZero() {
		return decimal.Decimal{}, errors.New("spot price is zero")
	}
	return one.Sub(exec.DivRound(spot, priceScale)).Mul(hundred).Round(6), nil
}

// Quote is a printable single-hop quote.
type Quote struct {
	Pool           string `json:"pool"`
	Stable         bool   `json:"stable"`
	TokenIn        string `json:"token_in"`
	TokenOut       string `json:"token_out"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	SpotPrice      string `json:"spot_price"`
	ExecutionPrice string `json:"execution_price"`
	PriceImpactPct string `json:"price_impact_pct"`
	// Block and Timestamp locate the reserves the quote was read at.
	Block     uint64 `json:"block,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// Describe quotes amountIn of tokenIn against pool and formats the result.
func Describe(pool amm.PoolState, tokenIn common.Address, amountIn *uint256.Int) (Quote, error) {
	amountOut, err := amm.QuoteOut(pool, amountIn, tokenIn)
	if err != nil {
		return Quote{}, err
	}
	tokenOut, decimalsIn, decimalsOut := pool.Token1, pool.Decimals0, pool.Decimals1
	if tokenIn != pool.Token0 {
		tokenOut, decimalsIn, decimalsOut = pool.Token0, pool.Decimals1, pool.Decimals0
	}
	spot, err := SpotPrice(pool, tokenIn)
	if err != nil {
		return Quote{}, err
	}
	exec, err := ExecutionPrice(amountIn, amountOut, decimalsIn, decimalsOut)
	if err != nil {
		return Quote{}, err
	}
	impact, err := PriceImpact(pool, tokenIn, amountIn, amountOut)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Pool:           pool.Address.Hex(),
		Stable:         pool.Stable,
		TokenIn:        tokenIn.Hex(),
		TokenOut:       tokenOut.Hex(),
		AmountIn:       FormatAmount(amountIn, decimalsIn),
		AmountOut:      FormatAmount(amountOut, decimalsOut),
		SpotPrice:      spot.String(),
		ExecutionPrice: exec.String(),
		PriceImpactPct: impact.String(),
	}, nil
}
