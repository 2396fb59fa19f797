package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
)

// WrappedNative is an ERC20 backed one-to-one by native value held at its own
// address.
type WrappedNative struct {
	*ERC20
}

// NewWrappedNative binds an 18-decimal wrapped native token at address.
func NewWrappedNative(store *ledger.Store, address common.Address, symbol string) *WrappedNative {
	return &WrappedNative{ERC20: NewERC20(store, address, Config{Symbol: symbol, Decimals: 18})}
}

// Wrap turns caller's native value into wrapped tokens.
func (w *WrappedNative) Wrap(caller common.Address, amount *uint256.Int) error {
	return w.store.Atomic(func() error {
		if err := w.store.MoveNative(caller, w.address, amount); err != nil {
			return err
		}
		if err := w.store.Mint(w.address, caller, amount); err != nil {
			return err
		}
		w.store.Emit(w.address, model.EventDeposit, model.WrapEventData{Account: caller.Hex(), Amount: amount.Dec()})
		return nil
	})
}

// Unwrap burns caller's wrapped tokens and pays out native value.
func (w *WrappedNative) Unwrap(caller common.Address, amount *uint256.Int) error {
	return w.store.Atomic(func() error {
		if err := w.store.Burn(w.address, caller, amount); err != nil {
			return err
		}
		if err := w.store.MoveNative(w.address, caller, amount); err != nil {
			return err
		}
		w.store.Emit(w.address, model.EventWithdrawal, model.WrapEventData{Account: caller.Hex(), Amount: amount.Dec()})
		return nil
	})
}
