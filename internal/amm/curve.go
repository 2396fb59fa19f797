package amm

import "github.com/holiman/uint256"

// Curve is a constant-function pricing formula over two reserves.
type Curve interface {
	// K returns the invariant for raw token0/token1 balances.
	K(x, y *uint256.Int) (*uint256.Int, error)
	// AmountOut returns the output for an input that has already been net of fees.
	AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, inIsToken0 bool) (*uint256.Int, error)
}

// VolatileCurve is the x*y=k curve.
type VolatileCurve struct{}

// K returns x*y.
func (VolatileCurve) K(x, y *uint256.Int) (*uint256.Int, error) {
	return Mul(x, y)
}

// AmountOut returns reserveOut*amountIn/(reserveIn+amountIn).
func (VolatileCurve) AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, _ bool) (*uint256.Int, error) {
	denominator, err := Add(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	return MulDiv(reserveOut, amountIn, denominator)
}

// StableCurve is the x*y*(x²+y²)=k curve evaluated on balances scaled to 18 decimals.
type StableCurve struct {
	precision0 *uint256.Int
	precision1 *uint256.Int
}

// NewStableCurve normalizes balances with the given token decimals.
func NewStableCurve(decimals0, decimals1 uint8) StableCurve {
	return StableCurve{precision0: pow10(decimals0), precision1: pow10(decimals1)}
}

// K returns f(x, y) on balances normalized to 18 decimals.
func (c StableCurve) K(x, y *uint256.Int) (*uint256.Int, error) {
	xn, err := MulDiv(x, wad, c.precision0)
	if err != nil {
		return nil, err
	}
	yn, err := MulDiv(y, wad, c.precision1)
	if err != nil {
		return nil, err
	}
	return stableF(xn, yn)
}

// AmountOut solves the curve for the output side with the Newton solver.
func (c StableCurve) AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, inIsToken0 bool) (*uint256.Int, error) {
	precisionIn, precisionOut := c.precision0, c.precision1
	if !inIsToken0 {
		precisionIn, precisionOut = c.precision1, c.precision0
	}

	reserveA, err := MulDiv(reserveIn, wad, precisionIn)
	if err != nil {
		return nil, err
	}
	reserveB, err := MulDiv(reserveOut, wad, precisionOut)
	if err != nil {
		return nil, err
	}
	in, err := MulDiv(amountIn, wad, precisionIn)
	if err != nil {
		return nil, err
	}

	xy, err := stableF(reserveA, reserveB)
	if err != nil {
		return nil, err
	}
	x0, err := Add(in, reserveA)
	if err != nil {
		return nil, err
	}
	y, err := stableY(x0, xy, reserveB, maxStableIterations)
	if err != nil {
		return nil, err
	}
	if !y.Lt(reserveB) {
		return new(uint256.Int), nil
	}
	dy := new(uint256.Int).Sub(reserveB, y)
	return MulDiv(dy, precisionOut, wad)
}

const maxStableIterations = 255

// stableF computes x0*y³ + x0³*y in 18-decimal fixed point. It is symmetric in
// its arguments and non-decreasing in each of them.
func stableF(x0, y *uint256.Int) (*uint256.Int, error) {
	y2, err := MulDiv(y, y, wad)
	if err != nil {
		return nil, err
	}
	y3, err := MulDiv(y2, y, wad)
	if err != nil {
		return nil, err
	}
	a, err := MulDiv(x0, y3, wad)
	if err != nil {
		return nil, err
	}

	x2, err := MulDiv(x0, x0, wad)
	if err != nil {
		return nil, err
	}
	x3, err := MulDiv(x2, x0, wad)
	if err != nil {
		return nil, err
	}
	b, err := MulDiv(x3, y, wad)
	if err != nil {
		return nil, err
	}
	return Add(a, b)
}

// stableD is ∂f/∂y.
func stableD(x0, y *uint256.Int) (*uint256.Int, error) {
	y2, err := MulDiv(y, y, wad)
	if err != nil {
		return nil, err
	}
	x0Triple, err := Mul(uint256.NewInt(3), x0)
	if err != nil {
		return nil, err
	}
	a, err := MulDiv(x0Triple, y2, wad)
	if err != nil {
		return nil, err
	}

	x2, err := MulDiv(x0, x0, wad)
	if err != nil {
		return nil, err
	}
	x3, err := MulDiv(x2, x0, wad)
	if err != nil {
		return nil, err
	}
	return Add(a, x3)
}

// stableY solves f(x0, y) >= xy for the smallest such y with at most
// iterations Newton steps, starting from the current reserve y.
func stableY(x0, xy, y *uint256.Int, iterations int) (*uint256.Int, error) {
	y = y.Clone()
	for i := 0; i < iterations; i++ {
		k, err := stableF(x0, y)
		if err != nil {
			return nil, err
		}
		d, err := stableD(x0, y)
		if err != nil {
			return nil, err
		}
		if d.IsZero() {
			return nil, ErrNoConvergence
		}

		if k.Lt(xy) {
			dy, err := MulDiv(new(uint256.Int).Sub(xy, k), wad, d)
			if err != nil {
				return nil, err
			}
			if dy.IsZero() {
				// rounding: y+1 is the closest value on the safe side
				next := new(uint256.Int).Add(y, one)
				kNext, err := stableF(x0, next)
				if err != nil {
					return nil, err
				}
				if !kNext.Lt(xy) {
					return next, nil
				}
				dy = uint256.NewInt(1)
			}
			if y, err = Add(y, dy); err != nil {
				return nil, err
			}
			continue
		}

		dy, err := MulDiv(new(uint256.Int).Sub(k, xy), wad, d)
		if err != nil {
			return nil, err
		}
		if dy.IsZero() {
			if k.Eq(xy) || y.IsZero() {
				return y, nil
			}
			kPrev, err := stableF(x0, new(uint256.Int).Sub(y, one))
			if err != nil {
				return nil, err
			}
			// y-1 would land below xy, so y is the answer
			if kPrev.Lt(xy) {
				return y, nil
			}
			dy = uint256.NewInt(1)
		}
		if y, err = Sub(y, dy); err != nil {
			return nil, err
		}
	}
	return nil, ErrNoConvergence
}
