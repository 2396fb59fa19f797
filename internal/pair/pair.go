package pair

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/token"
)

var (
	ErrLocked    = errors.New("pool locked")
	ErrInvalidTo = errors.New("invalid to")
)

// Config holds the immutable parameters of a pool.
type Config struct {
	Address common.Address
	Token0  token.Token
	Token1  token.Token
	Stable  bool
	FeeBps  uint64
}

// State is the mutable part of a pool. It lives in the ledger as a record.
type State struct {
	Reserve0               uint256.Int
	Reserve1               uint256.Int
	BlockTimestampLast     uint64
	Reserve0CumulativeLast uint256.Int
	Reserve1CumulativeLast uint256.Int
	Observations           []Observation
}

// Pair is a two-token reserve pool. Its address doubles as the address of
// its liquidity token.
type Pair struct {
	store  *ledger.Store
	cfg    Config
	curve  amm.Curve
	locked bool
	logger *zap.Logger
}

// New binds a pool to the ledger and records its initial state if the ledger
// does not hold one yet.
func New(store *ledger.Store, cfg Config, logger *zap.Logger) (*Pair, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Token0 == nil || cfg.Token1 == nil {
		return nil, fmt.Errorf("pool tokens are required")
	}
	token0, _, err := amm.SortTokens(cfg.Token0.Address(), cfg.Token1.Address())
	if err != nil {
		return nil, err
	}
	if token0 != cfg.Token0.Address() {
		return nil, fmt.Errorf("tokens not sorted: %s > %s", cfg.Token0.Address().Hex(), cfg.Token1.Address().Hex())
	}
	if cfg.FeeBps >= amm.FeeDenominator {
		return nil, fmt.Errorf("fee %d bps out of range", cfg.FeeBps)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pair{
		store:  store,
		cfg:    cfg,
		logger: logger.With(zap.String("pool", cfg.Address.Hex())),
	}
	p.curve = p.PoolState().Curve()

	if _, ok := store.Record(stateKey(cfg.Address)); !ok {
		now := store.Timestamp()
		p.setState(State{
			BlockTimestampLast: now,
			Observations:       []Observation{{Timestamp: now}},
		})
	}
	return p, nil
}

func stateKey(address common.Address) string {
	return "pair/" + address.Hex()
}

func (p *Pair) state() State {
	rec, ok := p.store.Record(stateKey(p.cfg.Address))
	if !ok {
		return State{}
	}
	return rec.(State)
}

func (p *Pair) setState(st State) {
	p.store.SetRecord(stateKey(p.cfg.Address), st)
}

func (p *Pair) enter() (func(), error) {
	if p.locked {
		return nil, ErrLocked
	}
	p.locked = true
	return func() { p.locked = false }, nil
}

// Address returns the pool address, which is also its LP token address.
func (p *Pair) Address() common.Address { return p.cfg.Address }

// Token0 returns the lower-addressed token.
func (p *Pair) Token0() token.Token { return p.cfg.Token0 }

// Token1 returns the higher-addressed token.
func (p *Pair) Token1() token.Token { return p.cfg.Token1 }

// Stable reports whether the pool prices on the stable curve.
func (p *Pair) Stable() bool { return p.cfg.Stable }

// FeeBps returns the trading fee in basis points.
func (p *Pair) FeeBps() uint64 { return p.cfg.FeeBps }

// Tokens returns the sorted token addresses.
func (p *Pair) Tokens() (common.Address, common.Address) {
	return p.cfg.Token0.Address(), p.cfg.Token1.Address()
}

// Reserves returns copies of the stored reserves and the last update time.
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int, uint64) {
	st := p.state()
	return new(uint256.Int).Set(&st.Reserve0), new(uint256.Int).Set(&st.Reserve1), st.BlockTimestampLast
}

// PoolState snapshots the pool for the quoting engine.
func (p *Pair) PoolState() amm.PoolState {
	r0, r1, _ := p.Reserves()
	return amm.PoolState{
		Address:   p.cfg.Address,
		Token0:    p.cfg.Token0.Address(),
		Token1:    p.cfg.Token1.Address(),
		Decimals0: p.cfg.Token0.Decimals(),
		Decimals1: p.cfg.Token1.Decimals(),
		Reserve0:  r0,
		Reserve1:  r1,
		Stable:    p.cfg.Stable,
		FeeBps:    p.cfg.FeeBps,
	}
}

// GetAmountOut quotes amountIn of tokenIn against the current reserves.
func (p *Pair) GetAmountOut(amountIn *uint256.Int, tokenIn common.Address) (*uint256.Int, error) {
	return amm.QuoteOut(p.PoolState(), amountIn, tokenIn)
}

// Snapshot returns the serializable view of the pool.
func (p *Pair) Snapshot() model.PoolSnapshot {
	st := p.state()
	return model.PoolSnapshot{
		Address:            p.cfg.Address.Hex(),
		Token0:             p.cfg.Token0.Address().Hex(),
		Token1:             p.cfg.Token1.Address().Hex(),
		Stable:             p.cfg.Stable,
		FeeBps:             p.cfg.FeeBps,
		Reserve0:           st.Reserve0.Dec(),
		Reserve1:           st.Reserve1.Dec(),
		TotalSupply:        p.TotalSupply().Dec(),
		Reserve0Cumulative: st.Reserve0CumulativeLast.Dec(),
		Reserve1Cumulative: st.Reserve1CumulativeLast.Dec(),
		BlockTimestampLast: st.BlockTimestampLast,
	}
}

// Mint issues liquidity for whatever the pool holds above its reserves.
func (p *Pair) Mint(caller, to common.Address) (*uint256.Int, error) {
	release, err := p.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	var liquidity *uint256.Int
	err = p.store.Atomic(func() error {
		st := p.state()
		balance0, balance1 := p.balances()
		amount0, err := amm.Sub(balance0, &st.Reserve0)
		if err != nil {
			return err
		}
		amount1, err := amm.Sub(balance1, &st.Reserve1)
		if err != nil {
			return err
		}

		supply := p.TotalSupply()
		if supply.IsZero() {
			product, err := amm.Mul(amount0, amount1)
			if err != nil {
				return err
			}
			root := amm.Sqrt(product)
			floor := uint256.NewInt(amm.MinimumLiquidity)
			if !root.Gt(floor) {
				return amm.ErrInsufficientLiquidityMinted
			}
			if p.cfg.Stable {
				k, err := p.curve.K(amount0, amount1)
				if err != nil {
					return err
				}
				if !k.Gt(amm.MinimumK) {
					return fmt.Errorf("stable seed k %s below minimum: %w", k.Dec(), amm.ErrInsufficientLiquidityMinted)
				}
			}
			liquidity = root.Sub(root, floor)
			if err := p.mintLiquidity(common.Address{}, floor); err != nil {
				return err
			}
		} else {
			liquidity, err = amm.MintedLiquidity(amount0, amount1, &st.Reserve0, &st.Reserve1, supply)
			if err != nil {
				return err
			}
		}
		if liquidity.IsZero() {
			return amm.ErrInsufficientLiquidityMinted
		}
		if err := p.mintLiquidity(to, liquidity); err != nil {
			return err
		}

		p.update(st, balance0, balance1)
		p.store.Emit(p.cfg.Address, model.EventMint, model.MintEventData{
			Sender:    caller.Hex(),
			To:        to.Hex(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
			Liquidity: liquidity.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the liquidity tokens held by the pool itself and pays both
// tokens to to.
func (p *Pair) Burn(caller, to common.Address) (*uint256.Int, *uint256.Int, error) {
	release, err := p.enter()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var amount0, amount1 *uint256.Int
	err = p.store.Atomic(func() error {
		st := p.state()
		balance0, balance1 := p.balances()
		liquidity := p.BalanceOf(p.cfg.Address)
		supply := p.TotalSupply()

		amount0, amount1, err = amm.QuoteRemoveLiquidity(balance0, balance1, supply, liquidity)
		if err != nil {
			return err
		}
		if amount0.IsZero() || amount1.IsZero() {
			return amm.ErrInsufficientLiquidityBurned
		}
		if err := p.burnLiquidity(p.cfg.Address, liquidity); err != nil {
			return err
		}
		if err := safeTransfer(p.cfg.Token0, p.cfg.Address, to, amount0); err != nil {
			return err
		}
		if err := safeTransfer(p.cfg.Token1, p.cfg.Address, to, amount1); err != nil {
			return err
		}

		balance0, balance1 = p.balances()
		p.update(st, balance0, balance1)
		p.store.Emit(p.cfg.Address, model.EventBurn, model.BurnEventData{
			Sender:    caller.Hex(),
			To:        to.Hex(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
			Liquidity: liquidity.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Swap sends the requested outputs to to and requires that the pool was paid
// enough beforehand for the curve invariant, net of fees, not to decrease. The
// check uses the pool's own balances only.
func (p *Pair) Swap(caller common.Address, amount0Out, amount1Out *uint256.Int, to common.Address) error {
	release, err := p.enter()
	if err != nil {
		return err
	}
	defer release()

	if amount0Out.IsZero() && amount1Out.IsZero() {
		return amm.ErrInsufficientOutputAmount
	}
	token0, token1 := p.Tokens()
	if to == token0 || to == token1 {
		return ErrInvalidTo
	}

	return p.store.Atomic(func() error {
		st := p.state()
		if !amount0Out.Lt(&st.Reserve0) || !amount1Out.Lt(&st.Reserve1) {
			return amm.ErrInsufficientLiquidity
		}

		if !amount0Out.IsZero() {
			if err := safeTransfer(p.cfg.Token0, p.cfg.Address, to, amount0Out); err != nil {
				return err
			}
		}
		if !amount1Out.IsZero() {
			if err := safeTransfer(p.cfg.Token1, p.cfg.Address, to, amount1Out); err != nil {
				return err
			}
		}

		balance0, balance1 := p.balances()
		amount0In := amountIn(balance0, &st.Reserve0, amount0Out)
		amount1In := amountIn(balance1, &st.Reserve1, amount1Out)
		if amount0In.IsZero() && amount1In.IsZero() {
			return amm.ErrInsufficientInputAmount
		}

		adjusted0, err := p.netOfFee(balance0, amount0In)
		if err != nil {
			return err
		}
		adjusted1, err := p.netOfFee(balance1, amount1In)
		if err != nil {
			return err
		}
		kBefore, err := p.curve.K(&st.Reserve0, &st.Reserve1)
		if err != nil {
			return err
		}
		kAfter, err := p.curve.K(adjusted0, adjusted1)
		if err != nil {
			return err
		}
		if kAfter.Lt(kBefore) {
			return fmt.Errorf("k %s < %s: %w", kAfter.Dec(), kBefore.Dec(), amm.ErrCurveInvariantViolation)
		}

		p.update(st, balance0, balance1)
		p.store.Emit(p.cfg.Address, model.EventSwap, model.SwapEventData{
			Sender:     caller.Hex(),
			To:         to.Hex(),
			Amount0In:  amount0In.Dec(),
			Amount1In:  amount1In.Dec(),
			Amount0Out: amount0Out.Dec(),
			Amount1Out: amount1Out.Dec(),
		})
		p.logger.Debug("swap",
			zap.String("amount0_in", amount0In.Dec()),
			zap.String("amount1_in", amount1In.Dec()),
			zap.String("amount0_out", amount0Out.Dec()),
			zap.String("amount1_out", amount1Out.Dec()),
		)
		return nil
	})
}

// Skim sends any balance above the reserves to to.
func (p *Pair) Skim(caller, to common.Address) error {
	release, err := p.enter()
	if err != nil {
		return err
	}
	defer release()

	return p.store.Atomic(func() error {
		st := p.state()
		balance0, balance1 := p.balances()
		excess0 := amountIn(balance0, &st.Reserve0, new(uint256.Int))
		excess1 := amountIn(balance1, &st.Reserve1, new(uint256.Int))
		if !excess0.IsZero() {
			if err := safeTransfer(p.cfg.Token0, p.cfg.Address, to, excess0); err != nil {
				return err
			}
		}
		if !excess1.IsZero() {
			if err := safeTransfer(p.cfg.Token1, p.cfg.Address, to, excess1); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sync forces the reserves to match the balances.
func (p *Pair) Sync(caller common.Address) error {
	release, err := p.enter()
	if err != nil {
		return err
	}
	defer release()

	return p.store.Atomic(func() error {
		balance0, balance1 := p.balances()
		p.update(p.state(), balance0, balance1)
		return nil
	})
}

func (p *Pair) balances() (*uint256.Int, *uint256.Int) {
	return p.cfg.Token0.BalanceOf(p.cfg.Address), p.cfg.Token1.BalanceOf(p.cfg.Address)
}

func (p *Pair) netOfFee(balance, in *uint256.Int) (*uint256.Int, error) {
	fee, err := amm.FeeOf(in, p.cfg.FeeBps)
	if err != nil {
		return nil, err
	}
	return amm.Sub(balance, fee)
}

// amountIn is how much of balance arrived beyond reserve-out.
func amountIn(balance, reserve, out *uint256.Int) *uint256.Int {
	remaining := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(remaining) {
		return remaining.Sub(balance, remaining)
	}
	return new(uint256.Int)
}

func safeTransfer(t token.Token, from, to common.Address, amount *uint256.Int) error {
	if !t.Transfer(from, to, amount) {
		return fmt.Errorf("%s transfer of %s to %s: %w", t.Symbol(), amount.Dec(), to.Hex(), amm.ErrTransferFailed)
	}
	return nil
}
