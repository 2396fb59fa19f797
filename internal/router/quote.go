package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/amm"
	"pairRouter/internal/model"
)

// GetAmountOut quotes a single hop on whichever curve pays more and reports
// which one it used.
func (r *Router) GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, bool, error) {
	var (
		best       *uint256.Int
		bestStable bool
		lastErr    error
	)
	for _, stable := range []bool{false, true} {
		p, err := r.pair(tokenIn, tokenOut, stable)
		if err != nil {
			lastErr = err
			continue
		}
		out, err := p.GetAmountOut(amountIn, tokenIn)
		if err != nil {
			lastErr = err
			continue
		}
		if best == nil || out.Gt(best) {
			best, bestStable = out, stable
		}
	}
	if best == nil {
		return nil, false, lastErr
	}
	return best, bestStable, nil
}

// GetAmountsOut quotes route the way ExecuteSwap would execute it, including
// the bribe skim on the first hop. amounts[0] is amountIn.
func (r *Router) GetAmountsOut(amountIn *uint256.Int, route []model.Hop) ([]*uint256.Int, error) {
	pools, err := r.routePools(route)
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, amm.ErrInsufficientInputAmount
	}
	skim, err := r.skimAmount(pools[0], route[0].Stable, amountIn)
	if err != nil {
		return nil, err
	}
	states := make([]amm.PoolState, len(pools))
	for i, p := range pools {
		states[i] = p.PoolState()
	}
	amounts, err := amm.QuoteRoute(states, route, new(uint256.Int).Sub(amountIn, skim))
	if err != nil {
		return nil, err
	}
	amounts[0] = amountIn.Clone()
	return amounts, nil
}

// QuoteAddLiquidity previews AddLiquidity. A missing pool quotes as empty.
func (r *Router) QuoteAddLiquidity(tokenA, tokenB common.Address, stable bool, amountADesired, amountBDesired *uint256.Int) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	p, err := r.pair(tokenA, tokenB, stable)
	if err != nil {
		if _, _, sortErr := amm.SortTokens(tokenA, tokenB); sortErr != nil {
			return nil, nil, nil, sortErr
		}
		zero := new(uint256.Int)
		return amm.QuoteAddLiquidity(zero, zero, zero, amountADesired, amountBDesired)
	}
	reserveA, reserveB := reservesFor(p, tokenA)
	return amm.QuoteAddLiquidity(reserveA, reserveB, p.TotalSupply(), amountADesired, amountBDesired)
}

// QuoteRemoveLiquidity previews RemoveLiquidity.
func (r *Router) QuoteRemoveLiquidity(tokenA, tokenB common.Address, stable bool, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	p, err := r.pair(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, fmt.Errorf("quote remove: %w", err)
	}
	reserveA, reserveB := reservesFor(p, tokenA)
	return amm.QuoteRemoveLiquidity(reserveA, reserveB, p.TotalSupply(), liquidity)
}
