package amm

import "github.com/holiman/uint256"

// MinimumK is the smallest normalized invariant a stable pool may be seeded with.
var MinimumK = uint256.NewInt(10_000_000_000)

// Quote returns the amount of B worth amountA at the reserve ratio.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountA.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return MulDiv(amountA, reserveB, reserveA)
}

// QuoteAddLiquidity clamps the desired amounts to the pool ratio and returns
// the liquidity they would mint.
func QuoteAddLiquidity(reserveA, reserveB, totalSupply, amountADesired, amountBDesired *uint256.Int) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if amountADesired.IsZero() || amountBDesired.IsZero() {
		return nil, nil, nil, ErrInsufficientAmount
	}

	if totalSupply.IsZero() || (reserveA.IsZero() && reserveB.IsZero()) {
		product, err := Mul(amountADesired, amountBDesired)
		if err != nil {
			return nil, nil, nil, err
		}
		root := Sqrt(product)
		floor := uint256.NewInt(MinimumLiquidity)
		if !root.Gt(floor) {
			return nil, nil, nil, ErrInsufficientLiquidityMinted
		}
		return amountADesired.Clone(), amountBDesired.Clone(), root.Sub(root, floor), nil
	}

	amountA, amountB := amountADesired.Clone(), amountBDesired.Clone()
	amountBOptimal, err := Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}
	if !amountBOptimal.Gt(amountBDesired) {
		amountB = amountBOptimal
	} else {
		amountAOptimal, err := Quote(amountBDesired, reserveB, reserveA)
		if err != nil {
			return nil, nil, nil, err
		}
		amountA = amountAOptimal
	}

	liquidity, err := MintedLiquidity(amountA, amountB, reserveA, reserveB, totalSupply)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// MintedLiquidity is the smaller pro-rata share of two deposits against an
// existing supply.
func MintedLiquidity(amountA, amountB, reserveA, reserveB, totalSupply *uint256.Int) (*uint256.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	shareA, err := MulDiv(amountA, totalSupply, reserveA)
	if err != nil {
		return nil, err
	}
	shareB, err := MulDiv(amountB, totalSupply, reserveB)
	if err != nil {
		return nil, err
	}
	return Min(shareA, shareB), nil
}

// QuoteRemoveLiquidity returns the strictly proportional share of both reserves.
func QuoteRemoveLiquidity(reserveA, reserveB, totalSupply, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if totalSupply.IsZero() {
		return nil, nil, ErrInsufficientLiquidity
	}
	if liquidity.Gt(totalSupply) {
		return nil, nil, ErrInsufficientLiquidity
	}
	amountA, err := MulDiv(liquidity, reserveA, totalSupply)
	if err != nil {
		return nil, nil, err
	}
	amountB, err := MulDiv(liquidity, reserveB, totalSupply)
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}
