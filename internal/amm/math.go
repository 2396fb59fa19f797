package amm

import "github.com/holiman/uint256"

const (
	// FeeDenominator is the basis-point denominator for trading fees and skims.
	FeeDenominator = 10_000

	// MinimumLiquidity is locked forever on the first mint of every pool.
	MinimumLiquidity = 1_000
)

var (
	zero = uint256.NewInt(0)
	one  = uint256.NewInt(1)
	wad  = uint256.NewInt(1_000_000_000_000_000_000)
)

// Add returns x+y or ErrArithmeticOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// Sub returns x-y or ErrArithmeticOverflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// Mul returns x*y or ErrArithmeticOverflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// MulDiv returns ⌊x*y/d⌋. The product must fit in 256 bits.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrArithmeticOverflow
	}
	z, err := Mul(x, y)
	if err != nil {
		return nil, err
	}
	return z.Div(z, d), nil
}

// Sqrt returns ⌊√x⌋.
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}

// FeeOf returns ⌊amount*bps/FeeDenominator⌋.
func FeeOf(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(bps), uint256.NewInt(FeeDenominator))
}

// pow10 returns 10^decimals.
func pow10(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}
