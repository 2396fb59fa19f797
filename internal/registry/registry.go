package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/pair"
	"pairRouter/internal/token"
)

var (
	ErrPoolExists   = errors.New("pool exists")
	ErrUnknownToken = errors.New("unknown token")
)

// pairCodeHash stands in for the init code hash of the deployed pool bytecode.
var pairCodeHash = crypto.Keccak256([]byte("pairRouter/pair"))

// Config holds the per-curve trading fees applied to new pools.
type Config struct {
	Address        common.Address `mapstructure:"address"`
	StableFeeBps   uint64         `mapstructure:"stable_fee_bps"`
	VolatileFeeBps uint64         `mapstructure:"volatile_fee_bps"`
}

// DefaultConfig returns the default registry address and trading fees.
func DefaultConfig() Config {
	return Config{
		Address:        token.DeriveAddress("contract", "registry"),
		StableFeeBps:   5,
		VolatileFeeBps: 30,
	}
}

// TokenResolver looks tokens up by address.
type TokenResolver interface {
	Token(address common.Address) (token.Token, bool)
}

// Registry creates pools and maps (tokenA, tokenB, stable) to them. The
// index lives in the ledger so a rolled back creation leaves no trace.
type Registry struct {
	store  *ledger.Store
	tokens TokenResolver
	cfg    Config
	pairs  map[common.Address]*pair.Pair
	logger *zap.Logger
}

// New returns a registry deployed at cfg.Address. A nil logger is replaced
// by a no-op one.
func New(store *ledger.Store, tokens TokenResolver, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		pairs:  make(map[common.Address]*pair.Pair),
		logger: logger,
	}
}

// Address returns the registry address pool addresses derive from.
func (r *Registry) Address() common.Address { return r.cfg.Address }

// FeeBps returns the trading fee for the curve.
func (r *Registry) FeeBps(stable bool) uint64 {
	if stable {
		return r.cfg.StableFeeBps
	}
	return r.cfg.VolatileFeeBps
}

// PoolFor computes the deterministic pool address without touching state.
func (r *Registry) PoolFor(tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	token0, token1, err := amm.SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	flag := byte(0)
	if stable {
		flag = 1
	}
	var salt [32]byte
	copy(salt[:], crypto.Keccak256(token0.Bytes(), token1.Bytes(), []byte{flag}))
	return crypto.CreateAddress2(r.cfg.Address, salt, pairCodeHash), nil
}

// GetPool returns the pool for the triple if one was created.
func (r *Registry) GetPool(tokenA, tokenB common.Address, stable bool) (common.Address, bool) {
	token0, token1, err := amm.SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, false
	}
	rec, ok := r.store.Record(poolKey(token0, token1, stable))
	if !ok {
		return common.Address{}, false
	}
	return rec.(common.Address), true
}

// CreatePool deploys a pool for the triple.
func (r *Registry) CreatePool(tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	token0, token1, err := amm.SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	if existing, ok := r.GetPool(token0, token1, stable); ok {
		return common.Address{}, fmt.Errorf("%s: %w", existing.Hex(), ErrPoolExists)
	}
	t0, ok := r.tokens.Token(token0)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: %w", token0.Hex(), ErrUnknownToken)
	}
	t1, ok := r.tokens.Token(token1)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: %w", token1.Hex(), ErrUnknownToken)
	}
	address, err := r.PoolFor(token0, token1, stable)
	if err != nil {
		return common.Address{}, err
	}

	err = r.store.Atomic(func() error {
		p, err := pair.New(r.store, pair.Config{
			Address: address,
			Token0:  t0,
			Token1:  t1,
			Stable:  stable,
			FeeBps:  r.FeeBps(stable),
		}, r.logger)
		if err != nil {
			return fmt.Errorf("new pair: %w", err)
		}
		pools := r.AllPools()
		r.store.SetRecord(poolKey(token0, token1, stable), address)
		r.store.SetRecord(poolsKey, append(pools, address))
		r.pairs[address] = p
		r.store.Emit(r.cfg.Address, model.EventPoolCreated, model.PoolCreatedEventData{
			Token0: token0.Hex(),
			Token1: token1.Hex(),
			Stable: stable,
			Pool:   address.Hex(),
			FeeBps: p.FeeBps(),
			Index:  len(pools),
		})
		return nil
	})
	if err != nil {
		return common.Address{}, err
	}

	r.logger.Info("pool created",
		zap.String("pool", address.Hex()),
		zap.String("token0", t0.Symbol()),
		zap.String("token1", t1.Symbol()),
		zap.Bool("stable", stable),
		zap.Uint64("fee_bps", r.FeeBps(stable)),
	)
	return address, nil
}

// Pair returns the pool bound to address.
func (r *Registry) Pair(address common.Address) (*pair.Pair, bool) {
	if !r.isPool(address) {
		return nil, false
	}
	p, ok := r.pairs[address]
	return p, ok
}

// AllPools lists pool addresses in creation order.
func (r *Registry) AllPools() []common.Address {
	rec, ok := r.store.Record(poolsKey)
	if !ok {
		return nil
	}
	pools := rec.([]common.Address)
	out := make([]common.Address, len(pools))
	copy(out, pools)
	return out
}

// Pairs returns every live pool in creation order.
func (r *Registry) Pairs() []*pair.Pair {
	pools := r.AllPools()
	out := make([]*pair.Pair, 0, len(pools))
	for _, address := range pools {
		if p, ok := r.pairs[address]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) isPool(address common.Address) bool {
	for _, pool := range r.AllPools() {
		if pool == address {
			return true
		}
	}
	return false
}

const poolsKey = "registry/pools"

func poolKey(token0, token1 common.Address, stable bool) string {
	return fmt.Sprintf("registry/pool/%s/%s/%t", token0.Hex(), token1.Hex(), stable)
}
