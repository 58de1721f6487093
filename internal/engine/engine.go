package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
	"swapv3/internal/swaperr"
)

// RecordSet is the set of records an operation declared. Ticks and
// Positions hold every record of the pool the operation may touch.
type RecordSet struct {
	Pool      model.Pool
	Ticks     []model.Tick
	Positions []model.Position
}

// Changeset lists the records an operation writes back. Applying it is all
// or nothing.
type Changeset struct {
	Pool             *model.Pool
	Ticks            []model.Tick
	DeletedTicks     []int32
	Positions        []model.Position
	DeletedPositions []PositionKey
}

// Empty reports whether the changeset writes nothing.
func (c *Changeset) Empty() bool {
	return c.Pool == nil && len(c.Ticks) == 0 && len(c.DeletedTicks) == 0 &&
		len(c.Positions) == 0 && len(c.DeletedPositions) == 0
}

// LiquidityResult reports a liquidity change and the token amounts backing it.
type LiquidityResult struct {
	Position model.Position
	Amount0  uint128.Uint128
	Amount1  uint128.Uint128
}

// CollectResult reports fees paid out of a position.
type CollectResult struct {
	Amount0 uint128.Uint128
	Amount1 uint128.Uint128
}

type operation struct {
	state     *PoolState
	positions *PositionManager
}

func newOperation(rs RecordSet) *operation {
	state := NewPoolState(rs.Pool, rs.Ticks)
	return &operation{state: state, positions: NewPositionManager(state, rs.Positions)}
}

func (op *operation) changeset() *Changeset {
	pool := op.state.Pool
	cs := &Changeset{Pool: &pool}
	cs.Ticks, cs.DeletedTicks = op.state.Ticks.changes()
	cs.Positions, cs.DeletedPositions = op.positions.changes()
	return cs
}

// AddLiquidity adds amount to owner's position over [tickLower, tickUpper).
func AddLiquidity(rs RecordSet, owner common.Hash, tickLower, tickUpper int32, amount uint128.Uint128) (*Changeset, LiquidityResult, error) {
	if amount.IsZero() {
		return nil, LiquidityResult{}, fmt.Errorf("add zero liquidity: %w", swaperr.ErrInvalidInstruction)
	}
	delta, err := fixedpoint.NewInt128(amount)
	if err != nil {
		return nil, LiquidityResult{}, err
	}
	return modifyLiquidity(rs, owner, tickLower, tickUpper, delta)
}

// RemoveLiquidity withdraws amount from owner's position.
func RemoveLiquidity(rs RecordSet, owner common.Hash, tickLower, tickUpper int32, amount uint128.Uint128) (*Changeset, LiquidityResult, error) {
	if amount.IsZero() {
		return nil, LiquidityResult{}, fmt.Errorf("remove zero liquidity: %w", swaperr.ErrInvalidInstruction)
	}
	delta, err := fixedpoint.NewInt128(amount)
	if err != nil {
		return nil, LiquidityResult{}, err
	}
	return modifyLiquidity(rs, owner, tickLower, tickUpper, delta.Neg())
}

func modifyLiquidity(rs RecordSet, owner common.Hash, tickLower, tickUpper int32, delta fixedpoint.Int128) (*Changeset, LiquidityResult, error) {
	op := newOperation(rs)
	if err := op.state.ValidateRange(tickLower, tickUpper); err != nil {
		return nil, LiquidityResult{}, err
	}

	// The position is checked first so an oversized removal reports the
	// position rather than a boundary tick.
	current := op.positions.Get(PositionKey{Owner: owner, TickLower: tickLower, TickUpper: tickUpper})
	if _, err := fixedpoint.AddDelta(current.Liquidity, delta); err != nil {
		return nil, LiquidityResult{}, fmt.Errorf("position liquidity: %w", err)
	}

	if err := op.state.ApplyLiquidityDelta(tickLower, tickUpper, delta); err != nil {
		return nil, LiquidityResult{}, err
	}
	pos, err := op.positions.UpdatePosition(owner, tickLower, tickUpper, delta)
	if err != nil {
		return nil, LiquidityResult{}, err
	}
	amount0, amount1, err := op.state.TokenAmounts(tickLower, tickUpper, delta.Abs(), !delta.IsNeg())
	if err != nil {
		return nil, LiquidityResult{}, err
	}
	return op.changeset(), LiquidityResult{Position: pos, Amount0: amount0, Amount1: amount1}, nil
}

// Collect pays out the fees owed to owner's position.
func Collect(rs RecordSet, owner common.Hash, tickLower, tickUpper int32) (*Changeset, CollectResult, error) {
	op := newOperation(rs)
	if err := op.state.ValidateRange(tickLower, tickUpper); err != nil {
		return nil, CollectResult{}, err
	}
	amount0, amount1, err := op.positions.Collect(owner, tickLower, tickUpper)
	if err != nil {
		return nil, CollectResult{}, err
	}
	return op.changeset(), CollectResult{Amount0: amount0, Amount1: amount1}, nil
}

// Swap runs an exact-input swap against the pool.
func Swap(rs RecordSet, params SwapParams) (*Changeset, SwapResult, error) {
	op := newOperation(rs)
	res, err := NewSwapEngine(op.state).Swap(params)
	if err != nil {
		return nil, SwapResult{}, err
	}
	return op.changeset(), res, nil
}
