package bribe

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/token"
)

// EpochDuration is the length of a reward epoch in seconds.
const EpochDuration = 7 * 24 * 60 * 60

var ErrUnknownToken = errors.New("unknown reward token")

// RewardNotifier receives a slice of swap input as an incentive. The notifier
// pulls amount of token from caller, which must have approved it.
type RewardNotifier interface {
	Address() common.Address
	NotifyRewardAmount(caller, token common.Address, amount *uint256.Int) error
}

// TokenResolver looks tokens up by address.
type TokenResolver interface {
	Token(address common.Address) (token.Token, bool)
}

// EpochStart returns the start of the epoch containing ts.
func EpochStart(ts uint64) uint64 {
	return ts - ts%EpochDuration
}

// Bribe books notified rewards per token and epoch.
type Bribe struct {
	store   *ledger.Store
	address common.Address
	tokens  TokenResolver
}

// New binds a bribe deployed at address.
func New(store *ledger.Store, address common.Address, tokens TokenResolver) *Bribe {
	return &Bribe{store: store, address: address, tokens: tokens}
}

// Address returns the bribe address rewards are pulled into.
func (b *Bribe) Address() common.Address { return b.address }

// NotifyRewardAmount pulls the reward and credits what actually arrived to the
// current epoch.
func (b *Bribe) NotifyRewardAmount(caller, tokenAddr common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return amm.ErrInsufficientAmount
	}
	t, ok := b.tokens.Token(tokenAddr)
	if !ok {
		return fmt.Errorf("%s: %w", tokenAddr.Hex(), ErrUnknownToken)
	}
	return b.store.Atomic(func() error {
		before := t.BalanceOf(b.address)
		if !t.TransferFrom(b.address, caller, b.address, amount) {
			return fmt.Errorf("pull %s reward: %w", t.Symbol(), amm.ErrTransferFailed)
		}
		received, err := amm.Sub(t.BalanceOf(b.address), before)
		if err != nil {
			return err
		}

		epoch := EpochStart(b.store.Timestamp())
		total, err := amm.Add(b.RewardForEpoch(tokenAddr, epoch), received)
		if err != nil {
			return err
		}
		b.store.SetRecord(rewardKey(b.address, tokenAddr, epoch), *total)
		b.addRewardToken(tokenAddr)

		b.store.Emit(b.address, model.EventRewardNotified, model.RewardNotifiedEventData{
			From:   caller.Hex(),
			Token:  tokenAddr.Hex(),
			Epoch:  epoch,
			Amount: received.Dec(),
		})
		return nil
	})
}

// RewardForEpoch returns the rewards booked for token in the epoch starting at
// epoch.
func (b *Bribe) RewardForEpoch(tokenAddr common.Address, epoch uint64) *uint256.Int {
	rec, ok := b.store.Record(rewardKey(b.address, tokenAddr, epoch))
	if !ok {
		return new(uint256.Int)
	}
	v := rec.(uint256.Int)
	return &v
}

// Left returns the rewards of token booked for the current epoch.
func (b *Bribe) Left(tokenAddr common.Address) *uint256.Int {
	return b.RewardForEpoch(tokenAddr, EpochStart(b.store.Timestamp()))
}

// RewardTokens lists every token ever notified, in first-seen order.
func (b *Bribe) RewardTokens() []common.Address {
	rec, ok := b.store.Record(tokensKey(b.address))
	if !ok {
		return nil
	}
	tokens := rec.([]common.Address)
	out := make([]common.Address, len(tokens))
	copy(out, tokens)
	return out
}

func (b *Bribe) addRewardToken(tokenAddr common.Address) {
	tokens := b.RewardTokens()
	for _, t := range tokens {
		if t == tokenAddr {
			return
		}
	}
	b.store.SetRecord(tokensKey(b.address), append(tokens, tokenAddr))
}

func rewardKey(bribe, tokenAddr common.Address, epoch uint64) string {
	return fmt.Sprintf("bribe/%s/reward/%s/%d", bribe.Hex(), tokenAddr.Hex(), epoch)
}

func tokensKey(bribe common.Address) string {
	return "bribe/" + bribe.Hex() + "/tokens"
}
