package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairRouter/internal/amm"
)

type fakeCaller struct {
	failures int
	calls    int
	respond  func(method string) ([]byte, error)
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient")
	}
	parsed, err := PairABI()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		token, tokenErr := erc20ABIInstance()
		if tokenErr != nil {
			return nil, tokenErr
		}
		if method, err = token.MethodById(msg.Data[:4]); err != nil {
			return nil, err
		}
	}
	return f.respond(method.Name)
}

var (
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func metadataResponse(t *testing.T) func(string) ([]byte, error) {
	return func(method string) ([]byte, error) {
		parsed, err := PairABI()
		require.NoError(t, err)
		require.Equal(t, "metadata", method)
		return parsed.Methods["metadata"].Outputs.Pack(
			new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
			big.NewInt(1_000_000),
			new(big.Int).Mul(big.NewInt(5_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)),
			big.NewInt(5_000_000_000_000),
			true,
			dai,
			usdc,
		)
	}
}

func TestReadPoolDecodesMetadata(t *testing.T) {
	caller := &fakeCaller{respond: metadataResponse(t)}
	reader := NewPairReader(caller, Fees{StableBps: 5, VolatileBps: 30}, ReaderOptions{}, nil)

	pool, err := reader.ReadPool(context.Background(), common.HexToAddress("0x01"), 0)
	require.NoError(t, err)
	require.True(t, pool.Stable)
	require.Equal(t, uint64(5), pool.FeeBps)
	require.Equal(t, uint8(18), pool.Decimals0)
	require.Equal(t, uint8(6), pool.Decimals1)
	require.Equal(t, dai, pool.Token0)
	require.Equal(t, "5000000000000", pool.Reserve1.Dec())

	out, err := amm.QuoteOut(pool, uint256.NewInt(1_000_000), usdc)
	require.NoError(t, err)
	require.False(t, out.IsZero())
}

func TestReadPoolRetries(t *testing.T) {
	caller := &fakeCaller{failures: 2, respond: metadataResponse(t)}
	reader := NewPairReader(caller, Fees{}, ReaderOptions{MaxRetries: 2, BaseDelay: 1}, nil)

	_, err := reader.ReadPool(context.Background(), common.HexToAddress("0x01"), 0)
	require.NoError(t, err)
	require.Equal(t, 3, caller.calls)

	caller = &fakeCaller{failures: 5, respond: metadataResponse(t)}
	reader = NewPairReader(caller, Fees{}, ReaderOptions{MaxRetries: 1, BaseDelay: 1}, nil)
	_, err = reader.ReadPool(context.Background(), common.HexToAddress("0x01"), 0)
	require.Error(t, err)
	require.Equal(t, 2, caller.calls)
}

func TestReadToken(t *testing.T) {
	caller := &fakeCaller{respond: func(method string) ([]byte, error) {
		parsed, err := erc20ABIInstance()
		require.NoError(t, err)
		switch method {
		case "decimals":
			return parsed.Methods["decimals"].Outputs.Pack(uint8(6))
		default:
			return parsed.Methods["symbol"].Outputs.Pack("USDC")
		}
	}}
	reader := NewPairReader(caller, Fees{}, ReaderOptions{}, nil)

	meta, err := reader.ReadToken(context.Background(), usdc)
	require.NoError(t, err)
	require.Equal(t, uint8(6), meta.Decimals)
	require.Equal(t, "USDC", meta.Symbol)
}

func TestDecimalsFromScale(t *testing.T) {
	d, err := decimalsFromScale(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint8(0), d)

	d, err = decimalsFromScale(new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil))
	require.NoError(t, err)
	require.Equal(t, uint8(24), d)

	_, err = decimalsFromScale(big.NewInt(1_000_001))
	require.Error(t, err)
}
