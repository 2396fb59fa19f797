package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/pair"
)

// AddLiquidity deposits the ratio-clamped amounts of tokenA and tokenB and
// mints liquidity to to. The pool is created on first use.
func (r *Router) AddLiquidity(caller, tokenA, tokenB common.Address, stable bool, amountADesired, amountBDesired, amountAMin, amountBMin *uint256.Int, to common.Address, deadline uint64) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	var amountA, amountB, liquidity *uint256.Int
	err := r.execute(deadline, func() error {
		p, err := r.pairOrCreate(tokenA, tokenB, stable)
		if err != nil {
			return err
		}
		amountA, amountB, err = r.optimalAmounts(p, tokenA, amountADesired, amountBDesired, amountAMin, amountBMin)
		if err != nil {
			return err
		}
		liquidity, err = r.deposit(p, tokenA, tokenB, amountA, amountB, caller, caller, to)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// AddLiquidityNative pairs tokenAddr with native value. Unused value is
// refunded to caller.
func (r *Router) AddLiquidityNative(caller, tokenAddr common.Address, stable bool, amountTokenDesired, amountTokenMin, amountNativeMin, value *uint256.Int, to common.Address, deadline uint64) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	var amountToken, amountNative, liquidity *uint256.Int
	err := r.execute(deadline, func() error {
		if err := r.requireWrapped(); err != nil {
			return err
		}
		native := r.wrapped.Address()
		if err := r.store.MoveNative(caller, r.cfg.Address, value); err != nil {
			return fmt.Errorf("receive native: %w", err)
		}
		p, err := r.pairOrCreate(tokenAddr, native, stable)
		if err != nil {
			return err
		}
		amountToken, amountNative, err = r.optimalAmounts(p, tokenAddr, amountTokenDesired, value, amountTokenMin, amountNativeMin)
		if err != nil {
			return err
		}
		if err := r.wrapped.Wrap(r.cfg.Address, amountNative); err != nil {
			return fmt.Errorf("wrap: %w", err)
		}
		liquidity, err = r.deposit(p, tokenAddr, native, amountToken, amountNative, caller, r.cfg.Address, to)
		if err != nil {
			return err
		}
		return r.payNative(caller, new(uint256.Int).Sub(value, amountNative))
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountToken, amountNative, liquidity, nil
}

// RemoveLiquidity burns liquidity taken from caller and pays both tokens to
// to.
func (r *Router) RemoveLiquidity(caller, tokenA, tokenB common.Address, stable bool, liquidity, amountAMin, amountBMin *uint256.Int, to common.Address, deadline uint64) (*uint256.Int, *uint256.Int, error) {
	var amountA, amountB *uint256.Int
	err := r.execute(deadline, func() error {
		var err error
		amountA, amountB, err = r.withdraw(caller, tokenA, tokenB, stable, liquidity, amountAMin, amountBMin, to)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// RemoveLiquidityNative withdraws from a tokenAddr/wrapped pool and pays the
// native side as native value.
func (r *Router) RemoveLiquidityNative(caller, tokenAddr common.Address, stable bool, liquidity, amountTokenMin, amountNativeMin *uint256.Int, to common.Address, deadline uint64) (*uint256.Int, *uint256.Int, error) {
	var amountToken, amountNative *uint256.Int
	err := r.execute(deadline, func() error {
		if err := r.requireWrapped(); err != nil {
			return err
		}
		t, err := r.token(tokenAddr)
		if err != nil {
			return err
		}
		before := t.BalanceOf(r.cfg.Address)
		_, amountNative, err = r.withdraw(caller, tokenAddr, r.wrapped.Address(), stable, liquidity, amountTokenMin, amountNativeMin, r.cfg.Address)
		if err != nil {
			return err
		}
		// pay out what arrived, which is less than the burned share for
		// fee-on-transfer tokens
		amountToken, err = amm.Sub(t.BalanceOf(r.cfg.Address), before)
		if err != nil {
			return err
		}
		if err := r.pay(t, r.cfg.Address, to, amountToken); err != nil {
			return err
		}
		if err := r.wrapped.Unwrap(r.cfg.Address, amountNative); err != nil {
			return fmt.Errorf("unwrap: %w", err)
		}
		return r.payNative(to, amountNative)
	})
	if err != nil {
		return nil, nil, err
	}
	return amountToken, amountNative, nil
}

func (r *Router) pairOrCreate(tokenA, tokenB common.Address, stable bool) (*pair.Pair, error) {
	if _, ok := r.pools.GetPool(tokenA, tokenB, stable); !ok {
		if _, err := r.pools.CreatePool(tokenA, tokenB, stable); err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
	}
	return r.pair(tokenA, tokenB, stable)
}

// optimalAmounts clamps the desired deposit to the pool ratio and enforces the
// caller's minimums.
func (r *Router) optimalAmounts(p *pair.Pair, tokenA common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	reserveA, reserveB := reservesFor(p, tokenA)
	amountA, amountB, _, err := amm.QuoteAddLiquidity(reserveA, reserveB, p.TotalSupply(), amountADesired, amountBDesired)
	if err != nil {
		return nil, nil, err
	}
	if amountA.Lt(amountAMin) {
		return nil, nil, fmt.Errorf("%s < %s: %w", amountA.Dec(), amountAMin.Dec(), amm.ErrInsufficientAmountA)
	}
	if amountB.Lt(amountBMin) {
		return nil, nil, fmt.Errorf("%s < %s: %w", amountB.Dec(), amountBMin.Dec(), amm.ErrInsufficientAmountB)
	}
	return amountA, amountB, nil
}

// deposit pays amountA from payerA and amountB from payerB into the pool and
// mints liquidity to to.
func (r *Router) deposit(p *pair.Pair, tokenA, tokenB common.Address, amountA, amountB *uint256.Int, payerA, payerB, to common.Address) (*uint256.Int, error) {
	tA, err := r.token(tokenA)
	if err != nil {
		return nil, err
	}
	tB, err := r.token(tokenB)
	if err != nil {
		return nil, err
	}
	if err := r.pay(tA, payerA, p.Address(), amountA); err != nil {
		return nil, err
	}
	if err := r.pay(tB, payerB, p.Address(), amountB); err != nil {
		return nil, err
	}
	liquidity, err := p.Mint(r.cfg.Address, to)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("liquidity added",
		zap.String("pool", p.Address().Hex()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
		zap.String("liquidity", liquidity.Dec()),
	)
	return liquidity, nil
}

func (r *Router) withdraw(caller, tokenA, tokenB common.Address, stable bool, liquidity, amountAMin, amountBMin *uint256.Int, to common.Address) (*uint256.Int, *uint256.Int, error) {
	p, err := r.pair(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, err
	}
	if !p.TransferFrom(r.cfg.Address, caller, p.Address(), liquidity) {
		return nil, nil, fmt.Errorf("pull %s liquidity: %w", liquidity.Dec(), amm.ErrTransferFailed)
	}
	amount0, amount1, err := p.Burn(r.cfg.Address, to)
	if err != nil {
		return nil, nil, err
	}
	amountA, amountB := amount0, amount1
	if token0, _ := p.Tokens(); tokenA != token0 {
		amountA, amountB = amount1, amount0
	}
	if amountA.Lt(amountAMin) {
		return nil, nil, fmt.Errorf("%s < %s: %w", amountA.Dec(), amountAMin.Dec(), amm.ErrInsufficientAmountA)
	}
	if amountB.Lt(amountBMin) {
		return nil, nil, fmt.Errorf("%s < %s: %w", amountB.Dec(), amountBMin.Dec(), amm.ErrInsufficientAmountB)
	}
	r.logger.Debug("liquidity removed",
		zap.String("pool", p.Address().Hex()),
		zap.String("liquidity", liquidity.Dec()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
	)
	return amountA, amountB, nil
}

func reservesFor(p *pair.Pair, tokenA common.Address) (*uint256.Int, *uint256.Int) {
	reserve0, reserve1, _ := p.Reserves()
	if token0, _ := p.Tokens(); tokenA != token0 {
		return reserve1, reserve0
	}
	return reserve0, reserve1
}
