package router

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/bribe"
	"pairRouter/internal/ledger"
	"pairRouter/internal/pair"
	"pairRouter/internal/token"
)

var ErrReentrant = errors.New("reentrant call")

// Config holds the router's address and its bribe skim rates.
type Config struct {
	Address         common.Address `mapstructure:"address"`
	StableSkimBps   uint64         `mapstructure:"stable_skim_bps"`
	VolatileSkimBps uint64         `mapstructure:"volatile_skim_bps"`
}

// DefaultConfig returns the default router address and skim rates.
func DefaultConfig() Config {
	return Config{
		Address:         token.DeriveAddress("contract", "router"),
		StableSkimBps:   2,
		VolatileSkimBps: 25,
	}
}

// SkimBps returns the skim rate for the first hop's curve.
func (c Config) SkimBps(stable bool) uint64 {
	if stable {
		return c.StableSkimBps
	}
	return c.VolatileSkimBps
}

// PoolRegistry finds and creates pools.
type PoolRegistry interface {
	GetPool(tokenA, tokenB common.Address, stable bool) (common.Address, bool)
	CreatePool(tokenA, tokenB common.Address, stable bool) (common.Address, error)
	Pair(pool common.Address) (*pair.Pair, bool)
}

// TokenResolver looks tokens up by address.
type TokenResolver interface {
	Token(address common.Address) (token.Token, bool)
}

// Wrapper is the wrapped native token.
type Wrapper interface {
	token.Token
	Wrap(caller common.Address, amount *uint256.Int) error
	Unwrap(caller common.Address, amount *uint256.Int) error
}

// BribeResolver finds the reward target linked to a pool.
type BribeResolver interface {
	RewardTarget(pool common.Address) (bribe.RewardNotifier, bool)
}

// Collaborators are the contracts the router calls into. Wrapped and Bribes
// are optional.
type Collaborators struct {
	Pools   PoolRegistry
	Tokens  TokenResolver
	Wrapped Wrapper
	Bribes  BribeResolver
}

// Router composes pools into multi-hop swaps and liquidity operations. Every
// entry point is all-or-nothing and rejects re-entry.
type Router struct {
	store   *ledger.Store
	cfg     Config
	pools   PoolRegistry
	tokens  TokenResolver
	wrapped Wrapper
	bribes  BribeResolver
	entered bool
	logger  *zap.Logger
}

// New wires a router to its collaborators. Pools and Tokens are required.
func New(store *ledger.Store, cfg Config, deps Collaborators, logger *zap.Logger) (*Router, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if deps.Pools == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("pool registry and token resolver are required")
	}
	if cfg.StableSkimBps >= amm.FeeDenominator || cfg.VolatileSkimBps >= amm.FeeDenominator {
		return nil, fmt.Errorf("skim bps out of range")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		store:   store,
		cfg:     cfg,
		pools:   deps.Pools,
		tokens:  deps.Tokens,
		wrapped: deps.Wrapped,
		bribes:  deps.Bribes,
		logger:  logger,
	}, nil
}

// Address returns the router account that holds funds mid-call.
func (r *Router) Address() common.Address { return r.cfg.Address }

// execute runs fn under the re-entrancy guard, after the deadline check, as one
// ledger transaction.
func (r *Router) execute(deadline uint64, fn func() error) error {
	if r.entered {
		return ErrReentrant
	}
	r.entered = true
	defer func() { r.entered = false }()

	if now := r.store.Timestamp(); now > deadline {
		return fmt.Errorf("now %d > deadline %d: %w", now, deadline, amm.ErrDeadlineExpired)
	}
	return r.store.Atomic(fn)
}

func (r *Router) token(address common.Address) (token.Token, error) {
	t, ok := r.tokens.Token(address)
	if !ok {
		return nil, fmt.Errorf("unknown token %s: %w", address.Hex(), amm.ErrInvalidPath)
	}
	return t, nil
}

func (r *Router) pair(tokenA, tokenB common.Address, stable bool) (*pair.Pair, error) {
	address, ok := r.pools.GetPool(tokenA, tokenB, stable)
	if !ok {
		return nil, fmt.Errorf("no %s pool for %s/%s: %w", curveName(stable), tokenA.Hex(), tokenB.Hex(), amm.ErrInsufficientLiquidity)
	}
	p, ok := r.pools.Pair(address)
	if !ok {
		return nil, fmt.Errorf("pool %s not bound: %w", address.Hex(), amm.ErrInsufficientLiquidity)
	}
	return p, nil
}

// pay moves amount of t from payer to to. The router pays from its own
// balance; anyone else must have approved the router.
func (r *Router) pay(t token.Token, payer, to common.Address, amount *uint256.Int) error {
	var ok bool
	if payer == r.cfg.Address {
		ok = t.Transfer(r.cfg.Address, to, amount)
	} else {
		ok = t.TransferFrom(r.cfg.Address, payer, to, amount)
	}
	if !ok {
		return fmt.Errorf("%s %s from %s to %s: %w", t.Symbol(), amount.Dec(), payer.Hex(), to.Hex(), amm.ErrTransferFailed)
	}
	return nil
}

func (r *Router) payNative(to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := r.store.MoveNative(r.cfg.Address, to, amount); err != nil {
		return fmt.Errorf("pay native: %w", err)
	}
	return nil
}

func (r *Router) requireWrapped() error {
	if r.wrapped == nil {
		return fmt.Errorf("no wrapped native token: %w", amm.ErrInvalidPath)
	}
	return nil
}

func curveName(stable bool) string {
	if stable {
		return "stable"
	}
	return "volatile"
}
