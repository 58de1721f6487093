package model

import (
	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"
)

// PoolSize is the fixed encoded size of a Pool record.
const PoolSize = 256

// Pool is the global state of one traded pair.
type Pool struct {
	Token0           common.Hash
	Token1           common.Hash
	Fee              uint32 // basis points
	TickSpacing      uint16
	TotalFee0        uint128.Uint128
	TotalFee1        uint128.Uint128
	ActiveLiquidity  uint128.Uint128
	SqrtPrice        uint128.Uint128
	CurrentTick      int32
	FeeGrowthGlobal0 uint128.Uint128
	FeeGrowthGlobal1 uint128.Uint128
}

// MarshalBinary encodes the pool into its fixed layout.
func (p Pool) MarshalBinary() ([]byte, error) {
	w := newWriter(PoolSize)
	w.hash(p.Token0)
	w.hash(p.Token1)
	w.u32(p.Fee)
	w.u16(p.TickSpacing)
	w.u128(p.TotalFee0)
	w.u128(p.TotalFee1)
	w.u128(p.ActiveLiquidity)
	w.u128(p.SqrtPrice)
	w.i32(p.CurrentTick)
	w.u128(p.FeeGrowthGlobal0)
	w.u128(p.FeeGrowthGlobal1)
	return w.buf, nil
}

// UnmarshalBinary decodes a pool record.
func (p *Pool) UnmarshalBinary(data []byte) error {
	r, err := newReader("pool", data, PoolSize)
	if err != nil {
		return err
	}
	p.Token0 = r.hash()
	p.Token1 = r.hash()
	p.Fee = r.u32()
	p.TickSpacing = r.u16()
	p.TotalFee0 = r.u128()
	p.TotalFee1 = r.u128()
	p.ActiveLiquidity = r.u128()
	p.SqrtPrice = r.u128()
	p.CurrentTick = r.i32()
	p.FeeGrowthGlobal0 = r.u128()
	p.FeeGrowthGlobal1 = r.u128()
	return r.reserved("pool")
}
