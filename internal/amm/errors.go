package amm

import "errors"

var (
	ErrDeadlineExpired          = errors.New("deadline expired")
	ErrInvalidPath              = errors.New("invalid path")
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	ErrInsufficientInputAmount  = errors.New("insufficient input amount")
	ErrInsufficientLiquidity    = errors.New("insufficient liquidity")
	ErrCurveInvariantViolation  = errors.New("curve invariant violation")
	ErrTransferFailed           = errors.New("transfer failed")
	ErrArithmeticOverflow       = errors.New("arithmetic overflow")

	ErrNoConvergence               = errors.New("stable curve did not converge")
	ErrInsufficientAmount          = errors.New("insufficient amount")
	ErrInsufficientAmountA         = errors.New("insufficient A amount")
	ErrInsufficientAmountB         = errors.New("insufficient B amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrIdenticalAddresses          = errors.New("identical addresses")
	ErrZeroAddress                 = errors.New("zero address")
)
