package model

import (
	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"
)

// PositionSize is the fixed encoded size of a Position record.
const PositionSize = 192

// Position is one owner's liquidity over [TickLower, TickUpper).
type Position struct {
	Owner                common.Hash
	TickLower            int32
	TickUpper            int32
	Liquidity            uint128.Uint128
	FeeGrowthInside0Last uint128.Uint128
	FeeGrowthInside1Last uint128.Uint128
	// Accrued fees not yet paid out by Collect.
	TokensOwed0 uint128.Uint128
	TokensOwed1 uint128.Uint128
	// Lifetime totals of every fee accrued to the position.
	CollectedFee0 uint128.Uint128
	CollectedFee1 uint128.Uint128
}

// Empty reports whether the position holds neither liquidity nor owed fees.
func (p Position) Empty() bool {
	return p.Liquidity.IsZero() && p.TokensOwed0.IsZero() && p.TokensOwed1.IsZero()
}

func (p Position) MarshalBinary() ([]byte, error) {
	w := newWriter(PositionSize)
	w.hash(p.Owner)
	w.i32(p.TickLower)
	w.i32(p.TickUpper)
	w.u128(p.Liquidity)
	w.u128(p.FeeGrowthInside0Last)
	w.u128(p.FeeGrowthInside1Last)
	w.u128(p.TokensOwed0)
	w.u128(p.TokensOwed1)
	w.u128(p.CollectedFee0)
	w.u128(p.CollectedFee1)
	return w.buf, nil
}

func (p *Position) UnmarshalBinary(data []byte) error {
	r, err := newReader("position", data, PositionSize)
	if err != nil {
		return err
	}
	p.Owner = r.hash()
	p.TickLower = r.i32()
	p.TickUpper = r.i32()
	p.Liquidity = r.u128()
	p.FeeGrowthInside0Last = r.u128()
	p.FeeGrowthInside1Last = r.u128()
	p.TokensOwed0 = r.u128()
	p.TokensOwed1 = r.u128()
	p.CollectedFee0 = r.u128()
	p.CollectedFee1 = r.u128()
	return r.reserved("position")
}
