// Package fixedpoint implements the Q64.64 price math used by the pool engine.
package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

// TickLimit bounds the tick index in both directions; beyond it the Q64.64
// sqrt price no longer fits in 128 bits.
const TickLimit int32 = 443636

const (
	MinTick = -TickLimit
	MaxTick = TickLimit
)

// Q64 is 1.0 in Q64.64.
var Q64 = uint128.New(0, 1)

var (
	// MinSqrtPrice is the sqrt price at MinTick.
	MinSqrtPrice uint128.Uint128
	// MaxSqrtPrice is the sqrt price at MaxTick.
	MaxSqrtPrice uint128.Uint128
)

// Q128.128 values of 1/sqrt(1.0001)^(2^i), one per bit of |tick|.
var (
	ratioOddBase = uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")
	ratioOneBase = uint256.MustFromHex("0x100000000000000000000000000000000")

	ratioBits = [...]*uint256.Int{
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"), // 0x2
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"), // 0x4
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"), // 0x8
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"), // 0x10
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"), // 0x20
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"), // 0x40
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"), // 0x80
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"), // 0x100
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"), // 0x200
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"), // 0x400
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"), // 0x800
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"), // 0x1000
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"), // 0x2000
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"), // 0x4000
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"), // 0x8000
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),  // 0x10000
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),   // 0x20000
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),     // 0x40000
	}

	maxUint256 = new(uint256.Int).SubUint64(new(uint256.Int), 1)
)

func init() {
	var err error
	if MinSqrtPrice, err = TickToSqrtPrice(MinTick); err != nil {
		panic(err)
	}
	if MaxSqrtPrice, err = TickToSqrtPrice(MaxTick); err != nil {
		panic(err)
	}
}

// CheckTick validates that tick lies within [MinTick, MaxTick].
func CheckTick(tick int32) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("tick %d outside [%d, %d]: %w", tick, MinTick, MaxTick, swaperr.ErrInvalidTick)
	}
	return nil
}

// TickToSqrtPrice returns sqrt(1.0001^tick) as a Q64.64 value.
func TickToSqrtPrice(tick int32) (uint128.Uint128, error) {
	if err := CheckTick(tick); err != nil {
		return uint128.Zero, err
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(ratioOddBase)
	} else {
		ratio.Set(ratioOneBase)
	}
	for i, factor := range ratioBits {
		if absTick&(2<<uint(i)) != 0 {
			ratio.Mul(ratio, factor)
			ratio.Rsh(ratio, 128)
		}
	}

	// ratio now holds 1/sqrt(1.0001)^|tick| in Q128.128.
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	ratio.Rsh(ratio, 64)
	return fromU256(ratio)
}

// SqrtPriceToTick returns the largest tick whose sqrt price does not exceed
// sqrtPrice.
func SqrtPriceToTick(sqrtPrice uint128.Uint128) (int32, error) {
	if sqrtPrice.IsZero() {
		return 0, fmt.Errorf("zero sqrt price: %w", swaperr.ErrInvalidPriceLimit)
	}
	if sqrtPrice.Cmp(MinSqrtPrice) < 0 || sqrtPrice.Cmp(MaxSqrtPrice) > 0 {
		return 0, fmt.Errorf("sqrt price %s outside [%s, %s]: %w",
			sqrtPrice, MinSqrtPrice, MaxSqrtPrice, swaperr.ErrInvalidPriceLimit)
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		price, err := TickToSqrtPrice(mid)
		if err != nil {
			return 0, err
		}
		if price.Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
