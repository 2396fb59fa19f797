package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/model"
	"pairRouter/internal/pair"
	"pairRouter/internal/token"
)

// ExecuteSwap swaps amountIn of route[0].From along route and fails unless
// recipient receives at least amountOutMin of the last token.
func (r *Router) ExecuteSwap(caller common.Address, route []model.Hop, amountIn, amountOutMin *uint256.Int, recipient common.Address, deadline uint64) (*uint256.Int, error) {
	var amountOut *uint256.Int
	err := r.execute(deadline, func() error {
		var err error
		amountOut, err = r.swap(caller, route, amountIn, amountOutMin, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

// ExecuteSwapFromNative wraps value and swaps it along a route that starts at
// the wrapped native token.
func (r *Router) ExecuteSwapFromNative(caller common.Address, value *uint256.Int, route []model.Hop, amountOutMin *uint256.Int, recipient common.Address, deadline uint64) (*uint256.Int, error) {
	var amountOut *uint256.Int
	err := r.execute(deadline, func() error {
		if err := r.requireWrapped(); err != nil {
			return err
		}
		if len(route) == 0 || route[0].From != r.wrapped.Address() {
			return fmt.Errorf("route must start at %s: %w", r.wrapped.Symbol(), amm.ErrInvalidPath)
		}
		if err := r.store.MoveNative(caller, r.cfg.Address, value); err != nil {
			return fmt.Errorf("receive native: %w", err)
		}
		if err := r.wrapped.Wrap(r.cfg.Address, value); err != nil {
			return fmt.Errorf("wrap: %w", err)
		}
		var err error
		amountOut, err = r.swap(r.cfg.Address, route, value, amountOutMin, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

// ExecuteSwapToNative swaps along a route that ends at the wrapped native token
// and pays the output to recipient as native value.
func (r *Router) ExecuteSwapToNative(caller common.Address, route []model.Hop, amountIn, amountOutMin *uint256.Int, recipient common.Address, deadline uint64) (*uint256.Int, error) {
	var amountOut *uint256.Int
	err := r.execute(deadline, func() error {
		if err := r.requireWrapped(); err != nil {
			return err
		}
		if len(route) == 0 || route[len(route)-1].To != r.wrapped.Address() {
			return fmt.Errorf("route must end at %s: %w", r.wrapped.Symbol(), amm.ErrInvalidPath)
		}
		var err error
		amountOut, err = r.swap(caller, route, amountIn, amountOutMin, r.cfg.Address)
		if err != nil {
			return err
		}
		if err := r.wrapped.Unwrap(r.cfg.Address, amountOut); err != nil {
			return fmt.Errorf("unwrap: %w", err)
		}
		return r.payNative(recipient, amountOut)
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

// swap pays the first pool, skimming the bribe share first, and walks the
// route. It must run inside execute.
func (r *Router) swap(payer common.Address, route []model.Hop, amountIn, amountOutMin *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	pools, err := r.routePools(route)
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, amm.ErrInsufficientInputAmount
	}
	tokenIn, err := r.token(route[0].From)
	if err != nil {
		return nil, err
	}

	skim, err := r.skimAmount(pools[0], route[0].Stable, amountIn)
	if err != nil {
		return nil, err
	}
	net := new(uint256.Int).Sub(amountIn, skim)
	if net.IsZero() {
		return nil, amm.ErrInsufficientInputAmount
	}
	if !skim.IsZero() {
		if err := r.notifyBribe(tokenIn, payer, pools[0], skim); err != nil {
			return nil, err
		}
	}
	if err := r.pay(tokenIn, payer, pools[0].Address(), net); err != nil {
		return nil, err
	}

	amountOut, err := r.swapAlong(pools, route, recipient)
	if err != nil {
		return nil, err
	}
	if amountOut.Lt(amountOutMin) {
		return nil, fmt.Errorf("received %s < minimum %s: %w", amountOut.Dec(), amountOutMin.Dec(), amm.ErrInsufficientOutputAmount)
	}

	r.logger.Debug("swap executed",
		zap.String("payer", payer.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.Int("hops", len(route)),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("skim", skim.Dec()),
		zap.String("amount_out", amountOut.Dec()),
	)
	return amountOut, nil
}

// swapAlong executes each hop on what the pool actually received and returns
// the recipient's balance delta of the last token.
func (r *Router) swapAlong(pools []*pair.Pair, route []model.Hop, recipient common.Address) (*uint256.Int, error) {
	tokenOut, err := r.token(route[len(route)-1].To)
	if err != nil {
		return nil, err
	}
	before := tokenOut.BalanceOf(recipient)

	for i, hop := range route {
		p := pools[i]
		received, err := r.received(p, hop.From)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		out, err := p.GetAmountOut(received, hop.From)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		if out.IsZero() {
			return nil, fmt.Errorf("hop %d: %w", i, amm.ErrInsufficientOutputAmount)
		}

		to := recipient
		if i < len(route)-1 {
			to = pools[i+1].Address()
		}
		amount0Out, amount1Out := out, new(uint256.Int)
		if token0, _ := p.Tokens(); hop.From == token0 {
			amount0Out, amount1Out = amount1Out, amount0Out
		}
		if err := p.Swap(r.cfg.Address, amount0Out, amount1Out, to); err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
	}

	after := tokenOut.BalanceOf(recipient)
	if after.Lt(before) {
		return new(uint256.Int), nil
	}
	return after.Sub(after, before), nil
}

// received is the pool's balance of tokenIn above its stored reserve.
func (r *Router) received(p *pair.Pair, tokenIn common.Address) (*uint256.Int, error) {
	t, err := r.token(tokenIn)
	if err != nil {
		return nil, err
	}
	reserve0, reserve1, _ := p.Reserves()
	reserve := reserve1
	if token0, _ := p.Tokens(); tokenIn == token0 {
		reserve = reserve0
	}
	balance := t.BalanceOf(p.Address())
	if !balance.Gt(reserve) {
		return nil, amm.ErrInsufficientInputAmount
	}
	return balance.Sub(balance, reserve), nil
}

// skimAmount is the bribe share of amountIn for the first pool, zero when no
// reward target is linked to it.
func (r *Router) skimAmount(first *pair.Pair, stable bool, amountIn *uint256.Int) (*uint256.Int, error) {
	if r.bribes == nil {
		return new(uint256.Int), nil
	}
	if _, ok := r.bribes.RewardTarget(first.Address()); !ok {
		return new(uint256.Int), nil
	}
	return amm.FeeOf(amountIn, r.cfg.SkimBps(stable))
}

// notifyBribe moves the skim into the router and hands it to the pool's
// reward target.
func (r *Router) notifyBribe(t token.Token, payer common.Address, first *pair.Pair, skim *uint256.Int) error {
	target, ok := r.bribes.RewardTarget(first.Address())
	if !ok {
		return nil
	}
	// a router-funded swap already holds the skim
	held := skim
	if payer != r.cfg.Address {
		before := t.BalanceOf(r.cfg.Address)
		if err := r.pay(t, payer, r.cfg.Address, skim); err != nil {
			return err
		}
		var err error
		if held, err = amm.Sub(t.BalanceOf(r.cfg.Address), before); err != nil {
			return err
		}
	}
	if held.IsZero() {
		return nil
	}
	if !t.Approve(r.cfg.Address, target.Address(), held) {
		return fmt.Errorf("approve bribe %s: %w", target.Address().Hex(), amm.ErrTransferFailed)
	}
	if err := target.NotifyRewardAmount(r.cfg.Address, t.Address(), held); err != nil {
		return fmt.Errorf("notify bribe %s: %w", target.Address().Hex(), err)
	}
	return nil
}

func (r *Router) routePools(route []model.Hop) ([]*pair.Pair, error) {
	if err := amm.ValidateRoute(route); err != nil {
		return nil, err
	}
	pools := make([]*pair.Pair, len(route))
	for i, hop := range route {
		p, err := r.pair(hop.From, hop.To, hop.Stable)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		pools[i] = p
	}
	return pools, nil
}
