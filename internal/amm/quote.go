package amm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/model"
)

// PoolState is a read-only snapshot of a pool, sufficient for quoting.
type PoolState struct {
	Address   common.Address
	Token0    common.Address
	Token1    common.Address
	Decimals0 uint8
	Decimals1 uint8
	Reserve0  *uint256.Int
	Reserve1  *uint256.Int
	Stable    bool
	FeeBps    uint64
}

// Curve returns the pricing curve selected by the pool's stable flag.
func (p PoolState) Curve() Curve {
	if p.Stable {
		return NewStableCurve(p.Decimals0, p.Decimals1)
	}
	return VolatileCurve{}
}

// K returns the invariant at the current reserves.
func (p PoolState) K() (*uint256.Int, error) {
	return p.Curve().K(p.Reserve0, p.Reserve1)
}

// Has reports whether token is one side of the pool.
func (p PoolState) Has(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}

func (p PoolState) reservesFor(tokenIn common.Address) (*uint256.Int, *uint256.Int, bool, error) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, true, nil
	case p.Token1:
		return p.Reserve1, p.Reserve0, false, nil
	default:
		return nil, nil, false, fmt.Errorf("token %s not in pool %s: %w", tokenIn.Hex(), p.Address.Hex(), ErrInvalidPath)
	}
}

// QuoteOut returns the output amount for amountIn of tokenIn against the pool's
// current reserves. It never mutates the pool.
func QuoteOut(pool PoolState, amountIn *uint256.Int, tokenIn common.Address) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	reserveIn, reserveOut, inIsToken0, err := pool.reservesFor(tokenIn)
	if err != nil {
		return nil, err
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	fee, err := FeeOf(amountIn, pool.FeeBps)
	if err != nil {
		return nil, err
	}
	net := new(uint256.Int).Sub(amountIn, fee)
	if net.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	return pool.Curve().AmountOut(net, reserveIn, reserveOut, inIsToken0)
}

// QuoteRoute chains QuoteOut across pools. The result holds one amount per hop
// boundary, starting with amountIn.
func QuoteRoute(pools []PoolState, route []model.Hop, amountIn *uint256.Int) ([]*uint256.Int, error) {
	if len(route) == 0 || len(pools) != len(route) {
		return nil, ErrInvalidPath
	}
	amounts := make([]*uint256.Int, 0, len(route)+1)
	amounts = append(amounts, amountIn.Clone())
	for i, hop := range route {
		pool := pools[i]
		if !pool.Has(hop.From) || !pool.Has(hop.To) || hop.From == hop.To || pool.Stable != hop.Stable {
			return nil, fmt.Errorf("hop %d: %w", i, ErrInvalidPath)
		}
		out, err := QuoteOut(pool, amounts[i], hop.From)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		amounts = append(amounts, out)
	}
	return amounts, nil
}

// SortTokens orders two token addresses the way pools store them.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	token0, token1 := tokenA, tokenB
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// ValidateRoute checks that a route is non-empty and contiguous.
func ValidateRoute(route []model.Hop) error {
	if len(route) == 0 {
		return fmt.Errorf("empty route: %w", ErrInvalidPath)
	}
	for i, hop := range route {
		if hop.From == hop.To {
			return fmt.Errorf("hop %d swaps a token for itself: %w", i, ErrInvalidPath)
		}
		if i > 0 && route[i-1].To != hop.From {
			return fmt.Errorf("hop %d does not start at %s: %w", i, route[i-1].To.Hex(), ErrInvalidPath)
		}
	}
	return nil
}
