package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
)

// PositionKey identifies a position within a pool.
type PositionKey struct {
	Owner     common.Hash
	TickLower int32
	TickUpper int32
}

func keyOf(p model.Position) PositionKey {
	return PositionKey{Owner: p.Owner, TickLower: p.TickLower, TickUpper: p.TickUpper}
}

// PositionManager tracks the positions an operation declared.
type PositionManager struct {
	state     *PoolState
	positions map[PositionKey]*model.Position
	dirty     []PositionKey
}

func NewPositionManager(state *PoolState, positions []model.Position) *PositionManager {
	m := &PositionManager{
		state:     state,
		positions: make(map[PositionKey]*model.Position, len(positions)),
	}
	for _, p := range positions {
		p := p
		m.positions[keyOf(p)] = &p
	}
	return m
}

// Get returns the position for key, or an empty one owned by key.Owner.
func (m *PositionManager) Get(key PositionKey) model.Position {
	if p, ok := m.positions[key]; ok {
		return *p
	}
	return model.Position{Owner: key.Owner, TickLower: key.TickLower, TickUpper: key.TickUpper}
}

// UpdatePosition accrues the fees earned inside the range since the last
// checkpoint into both the unpaid balance and the lifetime collected totals,
// then applies delta to the position's liquidity. The boundary ticks must
// already reflect delta.
func (m *PositionManager) UpdatePosition(owner common.Hash, tickLower, tickUpper int32, delta fixedpoint.Int128) (model.Position, error) {
	if err := m.state.ValidateRange(tickLower, tickUpper); err != nil {
		return model.Position{}, err
	}
	key := PositionKey{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	pos := m.Get(key)

	liquidity, err := fixedpoint.AddDelta(pos.Liquidity, delta)
	if err != nil {
		return model.Position{}, fmt.Errorf("position liquidity: %w", err)
	}

	inside0, inside1 := m.state.FeeGrowthInside(tickLower, tickUpper)
	if !pos.Liquidity.IsZero() {
		owed0, err := accrued(inside0, pos.FeeGrowthInside0Last, pos.Liquidity)
		if err != nil {
			return model.Position{}, err
		}
		owed1, err := accrued(inside1, pos.FeeGrowthInside1Last, pos.Liquidity)
		if err != nil {
			return model.Position{}, err
		}
		if pos.TokensOwed0, err = fixedpoint.CheckedAdd(pos.TokensOwed0, owed0); err != nil {
			return model.Position{}, fmt.Errorf("tokens owed0: %w", err)
		}
		if pos.TokensOwed1, err = fixedpoint.CheckedAdd(pos.TokensOwed1, owed1); err != nil {
			return model.Position{}, fmt.Errorf("tokens owed1: %w", err)
		}
		if pos.CollectedFee0, err = fixedpoint.CheckedAdd(pos.CollectedFee0, owed0); err != nil {
			return model.Position{}, fmt.Errorf("collected fee0: %w", err)
		}
		if pos.CollectedFee1, err = fixedpoint.CheckedAdd(pos.CollectedFee1, owed1); err != nil {
			return model.Position{}, fmt.Errorf("collected fee1: %w", err)
		}
	}

	pos.Liquidity = liquidity
	pos.FeeGrowthInside0Last = inside0
	pos.FeeGrowthInside1Last = inside1
	m.store(key, pos)
	return pos, nil
}

// Collect pays out and zeroes the unpaid balance, which the collected totals
// already include. Collecting from a range without a position pays nothing.
func (m *PositionManager) Collect(owner common.Hash, tickLower, tickUpper int32) (uint128.Uint128, uint128.Uint128, error) {
	key := PositionKey{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	if _, ok := m.positions[key]; !ok {
		return uint128.Zero, uint128.Zero, nil
	}
	pos := m.Get(key)
	if !pos.Liquidity.IsZero() {
		var err error
		if pos, err = m.UpdatePosition(owner, tickLower, tickUpper, fixedpoint.Int128{}); err != nil {
			return uint128.Zero, uint128.Zero, err
		}
	}

	amount0, amount1 := pos.TokensOwed0, pos.TokensOwed1
	pos.TokensOwed0, pos.TokensOwed1 = uint128.Zero, uint128.Zero
	m.store(key, pos)
	return amount0, amount1, nil
}

func (m *PositionManager) store(key PositionKey, pos model.Position) {
	if !m.isDirty(key) {
		m.dirty = append(m.dirty, key)
	}
	m.positions[key] = &pos
}

func (m *PositionManager) isDirty(key PositionKey) bool {
	for _, k := range m.dirty {
		if k == key {
			return true
		}
	}
	return false
}

// changes splits the dirty positions into records to write and keys to delete.
func (m *PositionManager) changes() (writes []model.Position, deletes []PositionKey) {
	for _, key := range m.dirty {
		pos := m.positions[key]
		if pos.Empty() {
			deletes = append(deletes, key)
			continue
		}
		writes = append(writes, *pos)
	}
	return writes, deletes
}

// accrued returns the fees earned by liquidity for a fee growth delta
// expressed in Q64.64 per unit of liquidity.
func accrued(inside, last, liquidity uint128.Uint128) (uint128.Uint128, error) {
	owed, err := fixedpoint.MulDiv(inside.SubWrap(last), liquidity, fixedpoint.Q64)
	if err != nil {
		return uint128.Zero, fmt.Errorf("accrued fees: %w", err)
	}
	return owed, nil
}
