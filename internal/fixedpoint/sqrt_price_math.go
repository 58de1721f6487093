package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

func sortPrices(a, b uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

// Amount0Delta returns the token0 amount spanned by liquidity between two
// sqrt prices: L * (b - a) / (a * b), scaled out of Q64.64.
func Amount0Delta(sqrtA, sqrtB, liquidity uint128.Uint128, roundUp bool) (uint128.Uint128, error) {
	lower, upper := sortPrices(sqrtA, sqrtB)
	if lower.IsZero() {
		return uint128.Zero, fmt.Errorf("amount0 at zero price: %w", swaperr.ErrInvalidPriceLimit)
	}

	num1 := new(uint256.Int).Lsh(toU256(liquidity), 64)
	num2 := toU256(upper.Sub(lower))

	step, err := mulDivWide(num1, num2, toU256(upper), roundUp)
	if err != nil {
		return uint128.Zero, err
	}
	den := toU256(lower)
	rem := new(uint256.Int).Mod(step, den)
	step.Div(step, den)
	if roundUp && !rem.IsZero() {
		step.AddUint64(step, 1)
	}
	return fromU256(step)
}

// Amount1Delta returns the token1 amount spanned by liquidity between two
// sqrt prices: L * (b - a), scaled out of Q64.64.
func Amount1Delta(sqrtA, sqrtB, liquidity uint128.Uint128, roundUp bool) (uint128.Uint128, error) {
	lower, upper := sortPrices(sqrtA, sqrtB)
	if roundUp {
		return MulDivRoundingUp(liquidity, upper.Sub(lower), Q64)
	}
	return MulDiv(liquidity, upper.Sub(lower), Q64)
}

// NextSqrtPriceFromInput returns the sqrt price after adding amountIn of the
// input token to a range holding liquidity. Rounding always favors the pool.
func NextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn uint128.Uint128, zeroForOne bool) (uint128.Uint128, error) {
	if sqrtPrice.IsZero() {
		return uint128.Zero, fmt.Errorf("zero sqrt price: %w", swaperr.ErrInvalidPriceLimit)
	}
	if liquidity.IsZero() {
		return uint128.Zero, fmt.Errorf("price step without liquidity: %w", swaperr.ErrOverflow)
	}
	if amountIn.IsZero() {
		return sqrtPrice, nil
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0(sqrtPrice, liquidity, amountIn)
	}
	return nextSqrtPriceFromAmount1(sqrtPrice, liquidity, amountIn)
}

// ceil(L * P / (L + x * P)) with L scaled to Q64.64.
func nextSqrtPriceFromAmount0(sqrtPrice, liquidity, amount uint128.Uint128) (uint128.Uint128, error) {
	num1 := new(uint256.Int).Lsh(toU256(liquidity), 64)
	product := new(uint256.Int).Mul(toU256(amount), toU256(sqrtPrice))
	den, overflow := new(uint256.Int).AddOverflow(num1, product)
	if overflow {
		return uint128.Zero, fmt.Errorf("next price denominator: %w", swaperr.ErrOverflow)
	}
	next, err := mulDivWide(num1, toU256(sqrtPrice), den, true)
	if err != nil {
		return uint128.Zero, err
	}
	return fromU256(next)
}

// P + floor(y / L) with y scaled to Q64.64.
func nextSqrtPriceFromAmount1(sqrtPrice, liquidity, amount uint128.Uint128) (uint128.Uint128, error) {
	quo := new(uint256.Int).Lsh(toU256(amount), 64)
	quo.Div(quo, toU256(liquidity))
	next, overflow := quo.AddOverflow(quo, toU256(sqrtPrice))
	if overflow {
		return uint128.Zero, fmt.Errorf("next price: %w", swaperr.ErrOverflow)
	}
	return fromU256(next)
}
