package model

import (
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
)

// TickSize is the fixed encoded size of a Tick record.
const TickSize = 96

// Tick holds the liquidity and fee snapshots of one initialized tick.
type Tick struct {
	Index             int32
	LiquidityNet      fixedpoint.Int128
	LiquidityGross    uint128.Uint128
	FeeGrowthOutside0 uint128.Uint128
	FeeGrowthOutside1 uint128.Uint128
}

func (t Tick) MarshalBinary() ([]byte, error) {
	w := newWriter(TickSize)
	w.i32(t.Index)
	w.i128(t.LiquidityNet)
	w.u128(t.LiquidityGross)
	w.u128(t.FeeGrowthOutside0)
	w.u128(t.FeeGrowthOutside1)
	return w.buf, nil
}

func (t *Tick) UnmarshalBinary(data []byte) error {
	r, err := newReader("tick", data, TickSize)
	if err != nil {
		return err
	}
	t.Index = r.i32()
	t.LiquidityNet = r.i128()
	t.LiquidityGross = r.u128()
	t.FeeGrowthOutside0 = r.u128()
	t.FeeGrowthOutside1 = r.u128()
	return r.reserved("tick")
}
