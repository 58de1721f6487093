package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

func toU256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

func fromU256(v *uint256.Int) (uint128.Uint128, error) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Zero, fmt.Errorf("value exceeds 128 bits: %w", swaperr.ErrOverflow)
	}
	return uint128.New(v[0], v[1]), nil
}

// MulDiv computes floor(a*b/c). The product is held in 256 bits so it never
// overflows; c == 0 or a quotient wider than 128 bits fails with ErrOverflow.
func MulDiv(a, b, c uint128.Uint128) (uint128.Uint128, error) {
	if c.IsZero() {
		return uint128.Zero, fmt.Errorf("mul div by zero: %w", swaperr.ErrOverflow)
	}
	prod := new(uint256.Int).Mul(toU256(a), toU256(b))
	return fromU256(prod.Div(prod, toU256(c)))
}

// MulDivRoundingUp computes ceil(a*b/c).
func MulDivRoundingUp(a, b, c uint128.Uint128) (uint128.Uint128, error) {
	if c.IsZero() {
		return uint128.Zero, fmt.Errorf("mul div by zero: %w", swaperr.ErrOverflow)
	}
	prod := new(uint256.Int).Mul(toU256(a), toU256(b))
	den := toU256(c)
	rem := new(uint256.Int).Mod(prod, den)
	prod.Div(prod, den)
	if !rem.IsZero() {
		prod.AddUint64(prod, 1)
	}
	return fromU256(prod)
}

// mulDivWide computes x*y/d over a 512-bit intermediate, rounding up on request.
func mulDivWide(x, y, d *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("mul div by zero: %w", swaperr.ErrOverflow)
	}
	quo, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("mul div exceeds 256 bits: %w", swaperr.ErrOverflow)
	}
	if roundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, carry := quo.AddOverflow(quo, uint256.NewInt(1)); carry {
			return nil, fmt.Errorf("mul div exceeds 256 bits: %w", swaperr.ErrOverflow)
		}
	}
	return quo, nil
}

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return uint128.Zero, fmt.Errorf("add %s + %s: %w", a, b, swaperr.ErrOverflow)
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrOverflow when b > a.
func CheckedSub(a, b uint128.Uint128) (uint128.Uint128, error) {
	if b.Cmp(a) > 0 {
		return uint128.Zero, fmt.Errorf("sub %s - %s: %w", a, b, swaperr.ErrOverflow)
	}
	return a.SubWrap(b), nil
}
