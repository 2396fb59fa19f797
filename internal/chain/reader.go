package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairRouter/internal/amm"
	"pairRouter/internal/model"
)

// Fees are the trading fees of the deployment, which pairs do not expose.
type Fees struct {
	StableBps   uint64
	VolatileBps uint64
}

// ReaderOptions tune RPC retries.
type ReaderOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// PairReader loads deployed pair state into quoting snapshots.
type PairReader struct {
	caller Caller
	fees   Fees
	opts   ReaderOptions
	logger *zap.Logger
}

// NewPairReader reads pairs through caller. A nil logger is replaced by a no-op one.
func NewPairReader(caller Caller, fees Fees, opts ReaderOptions, logger *zap.Logger) *PairReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairReader{caller: caller, fees: fees, opts: opts, logger: logger}
}

// ReadPool reads metadata() of pool at blockNumber (0 for latest).
func (r *PairReader) ReadPool(ctx context.Context, pool common.Address, blockNumber uint64) (amm.PoolState, error) {
	if r.caller == nil {
		return amm.PoolState{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PairABI()
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := r.call(ctx, pool, parsed, "metadata", blockNumber)
	if err != nil {
		return amm.PoolState{}, err
	}
	if len(values) != 7 {
		return amm.PoolState{}, fmt.Errorf("metadata: expected 7 values, got %d", len(values))
	}

	dec0, err := decimalsFromScale(values[0])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("dec0: %w", err)
	}
	dec1, err := decimalsFromScale(values[1])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("dec1: %w", err)
	}
	reserve0, err := asUint256(values[2])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("r0: %w", err)
	}
	reserve1, err := asUint256(values[3])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("r1: %w", err)
	}
	stable, ok := values[4].(bool)
	if !ok {
		return amm.PoolState{}, fmt.Errorf("st: unsupported type %T", values[4])
	}
	token0, err := asAddress(values[5])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("t0: %w", err)
	}
	token1, err := asAddress(values[6])
	if err != nil {
		return amm.PoolState{}, fmt.Errorf("t1: %w", err)
	}

	fee := r.fees.VolatileBps
	if stable {
		fee = r.fees.StableBps
	}
	state := amm.PoolState{
		Address:   pool,
		Token0:    token0,
		Token1:    token1,
		Decimals0: dec0,
		Decimals1: dec1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		Stable:    stable,
		FeeBps:    fee,
	}
	r.logger.Debug("pool loaded",
		zap.String("pool", pool.Hex()),
		zap.Bool("stable", stable),
		zap.String("reserve0", reserve0.Dec()),
		zap.String("reserve1", reserve1.Dec()),
	)
	return state, nil
}

// ReadToken loads decimals and symbol of an ERC20.
func (r *PairReader) ReadToken(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, parsed, "decimals", 0)
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("decimals: unsupported type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := r.call(ctx, token, parsed, "symbol", 0); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return meta, nil
}

func (r *PairReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, blockNumber uint64) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var block *big.Int
	if blockNumber > 0 {
		block = new(big.Int).SetUint64(blockNumber)
	}

	var resp []byte
	err = withRetry(ctx, r.opts.MaxRetries, r.opts.BaseDelay, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asUint256(value interface{}) (*uint256.Int, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, amm.ErrArithmeticOverflow
	}
	return out, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// decimalsFromScale turns 10**d back into d.
func decimalsFromScale(value interface{}) (uint8, error) {
	scale, err := asUint256(value)
	if err != nil {
		return 0, err
	}
	ten := uint256.NewInt(10)
	p := uint256.NewInt(1)
	for d := 0; d <= 77; d++ {
		if p.Eq(scale) {
			return uint8(d), nil
		}
		if p.Gt(scale) {
			break
		}
		p.Mul(p, ten)
	}
	return 0, fmt.Errorf("%s is not a power of ten", scale.Dec())
}
