// internal/curve/math.go
package curve

import (
	"github.com/holiman/uint256"
)

// mulDivFloor computes floor(a*b/d) in 256-bit space.
func mulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrArithmetic
	}
	x := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	x.Div(x, uint256.NewInt(d))
	return narrow(x)
}

// divCeil computes ceil(n/d) for a 256-bit numerator.
func divCeil(n *uint256.Int, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrArithmetic
	}
	den := uint256.NewInt(d)
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(n, den, r)
	if !r.IsZero() {
		if _, overflow := q.AddOverflow(q, uint256.NewInt(1)); overflow {
			return 0, ErrArithmetic
		}
	}
	return narrow(q)
}

func product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

func narrow(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrArithmetic
	}
	return x.Uint64(), nil
}

func add(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, ErrArithmetic
	}
	return s, nil
}

func sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmetic
	}
	return a - b, nil
}
