package engine

import (
	"fmt"
	"slices"

	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
	"swapv3/internal/swaperr"
)

// TickMap is a working copy of the ticks an operation declared, kept in
// ascending index order for swap stepping.
type TickMap struct {
	ticks map[int32]*model.Tick
	index []int32
	dirty map[int32]struct{}
}

// NewTickMap copies ticks into a new map. The input slice is not retained.
func NewTickMap(ticks []model.Tick) *TickMap {
	m := &TickMap{
		ticks: make(map[int32]*model.Tick, len(ticks)),
		index: make([]int32, 0, len(ticks)),
		dirty: make(map[int32]struct{}),
	}
	for _, t := range ticks {
		t := t
		if _, ok := m.ticks[t.Index]; !ok {
			m.index = append(m.index, t.Index)
		}
		m.ticks[t.Index] = &t
	}
	slices.Sort(m.index)
	return m
}

// Get returns the tick at index. Uninitialized ticks read as zero.
func (m *TickMap) Get(tick int32) model.Tick {
	if t, ok := m.ticks[tick]; ok {
		return *t
	}
	return model.Tick{Index: tick}
}

// Initialized reports whether any liquidity references tick.
func (m *TickMap) Initialized(tick int32) bool {
	t, ok := m.ticks[tick]
	return ok && !t.LiquidityGross.IsZero()
}

// Cross flips the outside fee snapshots of tick against the given globals and
// returns its net liquidity. Crossing downward applies the negated value.
func (m *TickMap) Cross(tick int32, feeGrowthGlobal0, feeGrowthGlobal1 uint128.Uint128) (fixedpoint.Int128, error) {
	t, ok := m.ticks[tick]
	if !ok {
		return fixedpoint.Int128{}, fmt.Errorf("cross tick %d: not initialized: %w", tick, swaperr.ErrInvalidTick)
	}
	t.FeeGrowthOutside0 = feeGrowthGlobal0.SubWrap(t.FeeGrowthOutside0)
	t.FeeGrowthOutside1 = feeGrowthGlobal1.SubWrap(t.FeeGrowthOutside1)
	m.dirty[tick] = struct{}{}
	return t.LiquidityNet, nil
}

// UpdateLiquidity adds delta to the gross liquidity of tick and to its net
// liquidity, negated when tick is the upper boundary of the range. A tick
// initialized at or below currentTick assumes all prior fee growth happened
// below it.
func (m *TickMap) UpdateLiquidity(tick int32, delta fixedpoint.Int128, upper bool, currentTick int32, feeGrowthGlobal0, feeGrowthGlobal1 uint128.Uint128) error {
	if err := fixedpoint.CheckTick(tick); err != nil {
		return err
	}

	t := m.Get(tick)
	gross, err := fixedpoint.AddDelta(t.LiquidityGross, delta)
	if err != nil {
		return fmt.Errorf("tick %d gross liquidity %s by %s: %w", tick, t.LiquidityGross, delta, swaperr.ErrInvalidTick)
	}

	netDelta := delta
	if upper {
		netDelta = delta.Neg()
	}
	net, err := t.LiquidityNet.Add(netDelta)
	if err != nil {
		return fmt.Errorf("tick %d net liquidity: %w", tick, err)
	}

	if t.LiquidityGross.IsZero() && !gross.IsZero() {
		t.FeeGrowthOutside0, t.FeeGrowthOutside1 = uint128.Zero, uint128.Zero
		if tick <= currentTick {
			t.FeeGrowthOutside0 = feeGrowthGlobal0
			t.FeeGrowthOutside1 = feeGrowthGlobal1
		}
	}
	t.LiquidityGross = gross
	t.LiquidityNet = net

	if _, ok := m.ticks[tick]; !ok {
		pos, _ := slices.BinarySearch(m.index, tick)
		m.index = slices.Insert(m.index, pos, tick)
	}
	m.ticks[tick] = &t
	m.dirty[tick] = struct{}{}
	return nil
}

// NextInitializedAtOrBelow returns the largest initialized tick <= tick.
func (m *TickMap) NextInitializedAtOrBelow(tick int32) (int32, bool) {
	pos, found := slices.BinarySearch(m.index, tick)
	if found {
		pos++
	}
	for i := pos - 1; i >= 0; i-- {
		if m.Initialized(m.index[i]) {
			return m.index[i], true
		}
	}
	return 0, false
}

// NextInitializedAbove returns the smallest initialized tick > tick.
func (m *TickMap) NextInitializedAbove(tick int32) (int32, bool) {
	pos, found := slices.BinarySearch(m.index, tick)
	if found {
		pos++
	}
	for i := pos; i < len(m.index); i++ {
		if m.Initialized(m.index[i]) {
			return m.index[i], true
		}
	}
	return 0, false
}

// changes splits the dirty ticks into records to write and indices to delete.
func (m *TickMap) changes() (writes []model.Tick, deletes []int32) {
	for _, idx := range m.index {
		if _, ok := m.dirty[idx]; !ok {
			continue
		}
		t := m.ticks[idx]
		if t.LiquidityGross.IsZero() {
			deletes = append(deletes, idx)
			continue
		}
		writes = append(writes, *t)
	}
	return writes, deletes
}
