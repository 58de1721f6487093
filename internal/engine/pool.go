// Package engine implements the pool accounting state transitions. Every
// operation works on copies of the records it is given and reports the
// records to write back as a Changeset, so a failed operation leaves
// nothing behind.
package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
	"swapv3/internal/swaperr"
)

// FeeDenominator is the basis point scale of Pool.Fee.
const FeeDenominator = 10_000

// InitParams describes a new pool.
type InitParams struct {
	Token0      common.Hash
	Token1      common.Hash
	FeeBps      uint32
	TickSpacing uint16
	SqrtPrice   uint128.Uint128
}

// Initialize builds the record of a new pool priced at params.SqrtPrice.
func Initialize(params InitParams) (model.Pool, error) {
	if params.SqrtPrice.IsZero() {
		return model.Pool{}, fmt.Errorf("initial sqrt price is zero: %w", swaperr.ErrInvalidPriceLimit)
	}
	if params.TickSpacing == 0 || int32(params.TickSpacing) > fixedpoint.TickLimit {
		return model.Pool{}, fmt.Errorf("tick spacing %d: %w", params.TickSpacing, swaperr.ErrInvalidInstruction)
	}
	if params.FeeBps >= FeeDenominator {
		return model.Pool{}, fmt.Errorf("fee %d bps: %w", params.FeeBps, swaperr.ErrInvalidInstruction)
	}
	tick, err := fixedpoint.SqrtPriceToTick(params.SqrtPrice)
	if err != nil {
		return model.Pool{}, fmt.Errorf("initial tick: %w", err)
	}
	return model.Pool{
		Token0:      params.Token0,
		Token1:      params.Token1,
		Fee:         params.FeeBps,
		TickSpacing: params.TickSpacing,
		SqrtPrice:   params.SqrtPrice,
		CurrentTick: tick,
	}, nil
}

// PoolState is a working copy of a pool together with its declared ticks.
type PoolState struct {
	Pool  model.Pool
	Ticks *TickMap
}

func NewPoolState(pool model.Pool, ticks []model.Tick) *PoolState {
	return &PoolState{Pool: pool, Ticks: NewTickMap(ticks)}
}

// ValidateRange checks a position range against the pool's tick spacing.
func (s *PoolState) ValidateRange(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("range [%d, %d) is empty: %w", tickLower, tickUpper, swaperr.ErrInvalidTick)
	}
	if err := fixedpoint.CheckTick(tickLower); err != nil {
		return err
	}
	if err := fixedpoint.CheckTick(tickUpper); err != nil {
		return err
	}
	spacing := int32(s.Pool.TickSpacing)
	if spacing == 0 || tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return fmt.Errorf("range [%d, %d) not aligned to spacing %d: %w", tickLower, tickUpper, spacing, swaperr.ErrInvalidTick)
	}
	return nil
}

// InRange reports whether the current tick lies in [tickLower, tickUpper).
func (s *PoolState) InRange(tickLower, tickUpper int32) bool {
	return tickLower <= s.Pool.CurrentTick && s.Pool.CurrentTick < tickUpper
}

// ApplyLiquidityDelta updates both boundary ticks and, when the range
// contains the current tick, the active liquidity.
func (s *PoolState) ApplyLiquidityDelta(tickLower, tickUpper int32, delta fixedpoint.Int128) error {
	if err := s.ValidateRange(tickLower, tickUpper); err != nil {
		return err
	}
	p := &s.Pool
	if err := s.Ticks.UpdateLiquidity(tickLower, delta, false, p.CurrentTick, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1); err != nil {
		return err
	}
	if err := s.Ticks.UpdateLiquidity(tickUpper, delta, true, p.CurrentTick, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1); err != nil {
		return err
	}
	if s.InRange(tickLower, tickUpper) {
		active, err := fixedpoint.AddDelta(p.ActiveLiquidity, delta)
		if err != nil {
			return fmt.Errorf("active liquidity: %w", err)
		}
		p.ActiveLiquidity = active
	}
	return nil
}

// FeeGrowthInside returns the per-liquidity fee growth accumulated inside
// [tickLower, tickUpper). All arithmetic wraps.
func (s *PoolState) FeeGrowthInside(tickLower, tickUpper int32) (uint128.Uint128, uint128.Uint128) {
	p := s.Pool
	lower := s.Ticks.Get(tickLower)
	upper := s.Ticks.Get(tickUpper)

	below0, below1 := lower.FeeGrowthOutside0, lower.FeeGrowthOutside1
	if p.CurrentTick < tickLower {
		below0 = p.FeeGrowthGlobal0.SubWrap(below0)
		below1 = p.FeeGrowthGlobal1.SubWrap(below1)
	}
	above0, above1 := upper.FeeGrowthOutside0, upper.FeeGrowthOutside1
	if p.CurrentTick >= tickUpper {
		above0 = p.FeeGrowthGlobal0.SubWrap(above0)
		above1 = p.FeeGrowthGlobal1.SubWrap(above1)
	}
	return p.FeeGrowthGlobal0.SubWrap(below0).SubWrap(above0),
		p.FeeGrowthGlobal1.SubWrap(below1).SubWrap(above1)
}

// TokenAmounts returns the token amounts backing liquidity over a range at
// the current price. Deposits round up and withdrawals round down.
func (s *PoolState) TokenAmounts(tickLower, tickUpper int32, liquidity uint128.Uint128, roundUp bool) (uint128.Uint128, uint128.Uint128, error) {
	sqrtLower, err := fixedpoint.TickToSqrtPrice(tickLower)
	if err != nil {
		return uint128.Zero, uint128.Zero, err
	}
	sqrtUpper, err := fixedpoint.TickToSqrtPrice(tickUpper)
	if err != nil {
		return uint128.Zero, uint128.Zero, err
	}

	var amount0, amount1 uint128.Uint128
	switch {
	case s.Pool.CurrentTick < tickLower:
		amount0, err = fixedpoint.Amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	case s.Pool.CurrentTick < tickUpper:
		amount0, err = fixedpoint.Amount0Delta(s.Pool.SqrtPrice, sqrtUpper, liquidity, roundUp)
		if err == nil {
			amount1, err = fixedpoint.Amount1Delta(sqrtLower, s.Pool.SqrtPrice, liquidity, roundUp)
		}
	default:
		amount1, err = fixedpoint.Amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	}
	if err != nil {
		return uint128.Zero, uint128.Zero, fmt.Errorf("token amounts: %w", err)
	}
	return amount0, amount1, nil
}
