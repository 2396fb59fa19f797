package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/model"
)

// LiquidityDecimals is the precision of every pool's liquidity token.
const LiquidityDecimals = 18

// Symbol names the liquidity token after the curve and the pool's tokens,
// e.g. "vAMM-WETH/USDC".
func (p *Pair) Symbol() string {
	prefix := "vAMM-"
	if p.cfg.Stable {
		prefix = "sAMM-"
	}
	return prefix + p.cfg.Token0.Symbol() + "/" + p.cfg.Token1.Symbol()
}

// Decimals returns the LP token decimals.
func (p *Pair) Decimals() uint8 { return LiquidityDecimals }

// BalanceOf returns owner's LP balance.
func (p *Pair) BalanceOf(owner common.Address) *uint256.Int {
	return p.store.BalanceOf(p.cfg.Address, owner)
}

// TotalSupply returns the LP supply, including the locked floor.
func (p *Pair) TotalSupply() *uint256.Int {
	return p.store.TotalSupply(p.cfg.Address)
}

// Allowance returns spender's LP allowance from owner.
func (p *Pair) Allowance(owner, spender common.Address) *uint256.Int {
	return p.store.Allowance(p.cfg.Address, owner, spender)
}

// Approve sets spender's LP allowance over caller's balance.
func (p *Pair) Approve(caller, spender common.Address, amount *uint256.Int) bool {
	p.store.SetAllowance(p.cfg.Address, caller, spender, amount)
	p.store.Emit(p.cfg.Address, model.EventApproval, model.ApprovalEventData{
		Owner:   caller.Hex(),
		Spender: spender.Hex(),
		Amount:  amount.Dec(),
	})
	return true
}

// Transfer moves LP from caller to to.
func (p *Pair) Transfer(caller, to common.Address, amount *uint256.Int) bool {
	return p.store.Atomic(func() error {
		return p.moveLiquidity(caller, to, amount)
	}) == nil
}

// TransferFrom moves LP from from to to, spending caller's allowance
// unless caller is from.
func (p *Pair) TransferFrom(caller, from, to common.Address, amount *uint256.Int) bool {
	return p.store.Atomic(func() error {
		if caller != from {
			if err := p.store.SpendAllowance(p.cfg.Address, from, caller, amount); err != nil {
				return err
			}
		}
		return p.moveLiquidity(from, to, amount)
	}) == nil
}

func (p *Pair) moveLiquidity(from, to common.Address, amount *uint256.Int) error {
	if err := p.store.Move(p.cfg.Address, from, to, amount); err != nil {
		return err
	}
	p.emitTransfer(from, to, amount)
	return nil
}

func (p *Pair) mintLiquidity(to common.Address, amount *uint256.Int) error {
	if err := p.store.Mint(p.cfg.Address, to, amount); err != nil {
		return err
	}
	p.emitTransfer(common.Address{}, to, amount)
	return nil
}

func (p *Pair) burnLiquidity(from common.Address, amount *uint256.Int) error {
	if err := p.store.Burn(p.cfg.Address, from, amount); err != nil {
		return err
	}
	p.emitTransfer(from, common.Address{}, amount)
	return nil
}

func (p *Pair) emitTransfer(from, to common.Address, amount *uint256.Int) {
	p.store.Emit(p.cfg.Address, model.EventTransfer, model.TransferEventData{
		From:   from.Hex(),
		To:     to.Hex(),
		Amount: amount.Dec(),
	})
}
