package fixedpoint

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

// Int128 is a two's complement signed 128-bit integer.
type Int128 struct {
	bits uint128.Uint128
}

var maxInt128 = uint128.New(^uint64(0), ^uint64(0)>>1)

// NewInt128 converts a non-negative u128 into an Int128.
func NewInt128(v uint128.Uint128) (Int128, error) {
	if v.Cmp(maxInt128) > 0 {
		return Int128{}, fmt.Errorf("%s exceeds i128: %w", v, swaperr.ErrOverflow)
	}
	return Int128{bits: v}, nil
}

// Int128FromInt64 converts a native integer.
func Int128FromInt64(v int64) Int128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{bits: uint128.New(uint64(v), hi)}
}

// Int128FromBytes decodes a little-endian i128.
func Int128FromBytes(b []byte) Int128 {
	return Int128{bits: uint128.New(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:16]))}
}

// PutBytes encodes x as little-endian into b[:16].
func (x Int128) PutBytes(b []byte) {
	x.bits.PutBytes(b)
}

func (x Int128) IsNeg() bool { return x.bits.Hi>>63 == 1 }

func (x Int128) IsZero() bool { return x.bits.IsZero() }

// Neg returns -x. The negation of the minimum value wraps to itself.
func (x Int128) Neg() Int128 {
	return Int128{bits: uint128.Zero.SubWrap(x.bits)}
}

// Abs returns |x| as an unsigned value.
func (x Int128) Abs() uint128.Uint128 {
	if x.IsNeg() {
		return x.Neg().bits
	}
	return x.bits
}

// Add returns x+y, failing with ErrOverflow when the sum leaves the i128 range.
func (x Int128) Add(y Int128) (Int128, error) {
	sum := Int128{bits: x.bits.AddWrap(y.bits)}
	if x.IsNeg() == y.IsNeg() && sum.IsNeg() != x.IsNeg() {
		return Int128{}, fmt.Errorf("add %s + %s: %w", x, y, swaperr.ErrOverflow)
	}
	return sum, nil
}

func (x Int128) Big() *big.Int {
	out := x.Abs().Big()
	if x.IsNeg() {
		out.Neg(out)
	}
	return out
}

func (x Int128) String() string {
	return x.Big().String()
}

// AddDelta applies a signed liquidity delta to an unsigned liquidity value.
func AddDelta(v uint128.Uint128, delta Int128) (uint128.Uint128, error) {
	if delta.IsNeg() {
		out, err := CheckedSub(v, delta.Abs())
		if err != nil {
			return uint128.Zero, fmt.Errorf("liquidity %s below zero after %s: %w", v, delta, swaperr.ErrOverflow)
		}
		return out, nil
	}
	return CheckedAdd(v, delta.Abs())
}
