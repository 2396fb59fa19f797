package bribe

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/token"
)

var (
	payer     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bribeAddr = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	pool      = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

func setup(t *testing.T, feeBps uint64) (*ledger.ManualClock, *ledger.Store, *token.ERC20, *Bribe) {
	t.Helper()
	clock := ledger.NewManualClock(EpochDuration*10 + 5)
	store := ledger.NewStore(clock.Now)
	dir := token.NewDirectory()
	tok := token.NewERC20(store, token.DeriveAddress("token", "VELO"), token.Config{Symbol: "VELO", Decimals: 18, TransferFeeBps: feeBps})
	dir.Register(tok)
	require.NoError(t, tok.Mint(payer, uint256.NewInt(1_000_000)))
	return clock, store, tok, New(store, bribeAddr, dir)
}

func TestNotifyRewardAmountBooksEpoch(t *testing.T) {
	clock, store, tok, b := setup(t, 0)
	store.TakeEvents()

	require.True(t, tok.Approve(payer, bribeAddr, uint256.NewInt(500)))
	require.NoError(t, b.NotifyRewardAmount(payer, tok.Address(), uint256.NewInt(300)))
	require.NoError(t, b.NotifyRewardAmount(payer, tok.Address(), uint256.NewInt(200)))

	require.Equal(t, uint64(500), b.Left(tok.Address()).Uint64())
	require.Equal(t, uint64(500), tok.BalanceOf(bribeAddr).Uint64())
	require.Equal(t, []common.Address{tok.Address()}, b.RewardTokens())

	var notified int
	for _, ev := range store.TakeEvents() {
		if ev.EventName == model.EventRewardNotified {
			notified++
			data := ev.Decoded.(model.RewardNotifiedEventData)
			require.Equal(t, uint64(EpochDuration*10), data.Epoch)
		}
	}
	require.Equal(t, 2, notified)

	clock.Advance(EpochDuration)
	require.True(t, b.Left(tok.Address()).IsZero())
	require.Equal(t, uint64(500), b.RewardForEpoch(tok.Address(), EpochDuration*10).Uint64())
}

func TestNotifyRewardAmountCreditsReceivedAmount(t *testing.T) {
	_, _, tok, b := setup(t, 100)

	require.True(t, tok.Approve(payer, bribeAddr, uint256.NewInt(1000)))
	require.NoError(t, b.NotifyRewardAmount(payer, tok.Address(), uint256.NewInt(1000)))
	require.Equal(t, uint64(990), b.Left(tok.Address()).Uint64())
}

func TestNotifyRewardAmountFailures(t *testing.T) {
	_, _, tok, b := setup(t, 0)

	require.ErrorIs(t, b.NotifyRewardAmount(payer, tok.Address(), uint256.NewInt(0)), amm.ErrInsufficientAmount)
	require.ErrorIs(t, b.NotifyRewardAmount(payer, common.HexToAddress("0xdead"), uint256.NewInt(1)), ErrUnknownToken)
	require.ErrorIs(t, b.NotifyRewardAmount(payer, tok.Address(), uint256.NewInt(1)), amm.ErrTransferFailed)
	require.True(t, b.Left(tok.Address()).IsZero())
}

func TestDirectoryResolvesAtLookup(t *testing.T) {
	_, store, _, b := setup(t, 0)
	dir := NewDirectory(store, common.HexToAddress("0x00000000000000000000000000000000000000d1"))

	_, ok := dir.RewardTarget(pool)
	require.False(t, ok)

	dir.Register(pool, b)
	target, ok := dir.RewardTarget(pool)
	require.True(t, ok)
	require.Equal(t, bribeAddr, target.Address())

	dir.Unregister(pool)
	_, ok = dir.RewardTarget(pool)
	require.False(t, ok)
}
