package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/amm"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
)

// Config describes a ledger-backed token.
type Config struct {
	Symbol   string
	Decimals uint8
	// TransferFeeBps burns this share of every transfer.
	TransferFeeBps uint64
}

// ERC20 is a fungible token whose balances live in the ledger store.
type ERC20 struct {
	store   *ledger.Store
	address common.Address
	cfg     Config
}

// NewERC20 binds a token at address to store.
func NewERC20(store *ledger.Store, address common.Address, cfg Config) *ERC20 {
	return &ERC20{store: store, address: address, cfg: cfg}
}

// Address returns the token address.
func (t *ERC20) Address() common.Address { return t.address }

// Symbol returns the ticker.
func (t *ERC20) Symbol() string { return t.cfg.Symbol }

// Decimals returns the token decimals.
func (t *ERC20) Decimals() uint8 { return t.cfg.Decimals }

// Meta returns the serializable description of the token.
func (t *ERC20) Meta() model.TokenMeta {
	return model.TokenMeta{
		Address:     t.address.Hex(),
		Decimals:    t.cfg.Decimals,
		Symbol:      t.cfg.Symbol,
		TransferFee: t.cfg.TransferFeeBps,
	}
}

// BalanceOf returns owner's balance.
func (t *ERC20) BalanceOf(owner common.Address) *uint256.Int {
	return t.store.BalanceOf(t.address, owner)
}

// TotalSupply returns the minted supply net of burns.
func (t *ERC20) TotalSupply() *uint256.Int {
	return t.store.TotalSupply(t.address)
}

// Allowance returns what spender may move on behalf of owner.
func (t *ERC20) Allowance(owner, spender common.Address) *uint256.Int {
	return t.store.Allowance(t.address, owner, spender)
}

// Mint credits new supply to an account.
func (t *ERC20) Mint(to common.Address, amount *uint256.Int) error {
	if err := t.store.Mint(t.address, to, amount); err != nil {
		return err
	}
	t.store.Emit(t.address, model.EventTransfer, model.TransferEventData{
		From:   common.Address{}.Hex(),
		To:     to.Hex(),
		Amount: amount.Dec(),
	})
	return nil
}

// Approve sets spender's allowance over caller's balance.
func (t *ERC20) Approve(caller, spender common.Address, amount *uint256.Int) bool {
	t.store.SetAllowance(t.address, caller, spender, amount)
	t.store.Emit(t.address, model.EventApproval, model.ApprovalEventData{
		Owner:   caller.Hex(),
		Spender: spender.Hex(),
		Amount:  amount.Dec(),
	})
	return true
}

// Transfer moves amount from caller to to. A transfer fee is burned from
// the sender.
func (t *ERC20) Transfer(caller, to common.Address, amount *uint256.Int) bool {
	return t.store.Atomic(func() error {
		return t.move(caller, to, amount)
	}) == nil
}

// TransferFrom moves amount from from to to, spending caller's allowance
// unless caller is from.
func (t *ERC20) TransferFrom(caller, from, to common.Address, amount *uint256.Int) bool {
	return t.store.Atomic(func() error {
		if caller != from {
			if err := t.store.SpendAllowance(t.address, from, caller, amount); err != nil {
				return err
			}
		}
		return t.move(from, to, amount)
	}) == nil
}

func (t *ERC20) move(from, to common.Address, amount *uint256.Int) error {
	received := amount
	if t.cfg.TransferFeeBps > 0 && from != to {
		fee, err := amm.FeeOf(amount, t.cfg.TransferFeeBps)
		if err != nil {
			return err
		}
		if !fee.IsZero() {
			if err := t.store.Burn(t.address, from, fee); err != nil {
				return err
			}
			received = new(uint256.Int).Sub(amount, fee)
		}
	}
	if err := t.store.Move(t.address, from, to, received); err != nil {
		return err
	}
	t.store.Emit(t.address, model.EventTransfer, model.TransferEventData{
		From:   from.Hex(),
		To:     to.Hex(),
		Amount: received.Dec(),
	})
	return nil
}
