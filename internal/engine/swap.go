package engine

import (
	"fmt"

	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/swaperr"
)

// SwapState is the state of the swap stepping machine.
type SwapState int

const (
	Stepping SwapState = iota
	Done
	LimitReached
)

func (s SwapState) String() string {
	switch s {
	case Stepping:
		return "stepping"
	case Done:
		return "done"
	case LimitReached:
		return "limit_reached"
	default:
		return fmt.Sprintf("SwapState(%d)", int(s))
	}
}

// SwapParams describes an exact-input swap.
type SwapParams struct {
	ZeroForOne   bool
	AmountIn     uint128.Uint128
	MinAmountOut uint128.Uint128
	// SqrtPriceLimit bounds the final price; zero selects the curve bound.
	SqrtPriceLimit uint128.Uint128
}

// SwapResult reports what a swap consumed and produced.
type SwapResult struct {
	State        SwapState
	AmountIn     uint128.Uint128
	AmountOut    uint128.Uint128
	FeeAmount    uint128.Uint128
	TicksCrossed int
}

// SwapEngine steps a pool's price across its initialized ticks.
type SwapEngine struct {
	state *PoolState
}

func NewSwapEngine(state *PoolState) *SwapEngine {
	return &SwapEngine{state: state}
}

// priceLimit resolves and validates the caller's limit against the pool price.
func priceLimit(price uint128.Uint128, params SwapParams) (uint128.Uint128, error) {
	limit := params.SqrtPriceLimit
	if params.ZeroForOne {
		if limit.IsZero() {
			limit = fixedpoint.MinSqrtPrice
		}
		if limit.Cmp(price) >= 0 || limit.Cmp(fixedpoint.MinSqrtPrice) < 0 {
			return uint128.Zero, fmt.Errorf("limit %s for price %s selling token0: %w", limit, price, swaperr.ErrInvalidPriceLimit)
		}
		return limit, nil
	}
	if limit.IsZero() {
		limit = fixedpoint.MaxSqrtPrice
	}
	if limit.Cmp(price) <= 0 || limit.Cmp(fixedpoint.MaxSqrtPrice) > 0 {
		return uint128.Zero, fmt.Errorf("limit %s for price %s selling token1: %w", limit, price, swaperr.ErrInvalidPriceLimit)
	}
	return limit, nil
}

// Swap consumes params.AmountIn until it is exhausted or the price limit is
// reached. The output must cover params.MinAmountOut.
func (e *SwapEngine) Swap(params SwapParams) (SwapResult, error) {
	p := &e.state.Pool
	ticks := e.state.Ticks

	limit, err := priceLimit(p.SqrtPrice, params)
	if err != nil {
		return SwapResult{}, err
	}

	var (
		res       = SwapResult{State: Stepping}
		remaining = params.AmountIn
	)
	for res.State == Stepping {
		if remaining.IsZero() {
			res.State = Done
			break
		}
		if p.SqrtPrice.Equals(limit) {
			res.State = LimitReached
			break
		}

		next, initialized := e.nextTick(params.ZeroForOne)
		sqrtNext, err := fixedpoint.TickToSqrtPrice(next)
		if err != nil {
			return SwapResult{}, err
		}
		target := sqrtNext
		if (params.ZeroForOne && sqrtNext.Cmp(limit) < 0) || (!params.ZeroForOne && sqrtNext.Cmp(limit) > 0) {
			target = limit
		}

		start := p.SqrtPrice
		step, err := computeSwapStep(start, target, p.ActiveLiquidity, remaining, p.Fee, params.ZeroForOne)
		if err != nil {
			return SwapResult{}, err
		}
		if err := e.applyStep(&res, &remaining, step, params.ZeroForOne); err != nil {
			return SwapResult{}, err
		}
		p.SqrtPrice = step.sqrtNext

		switch {
		case p.SqrtPrice.Equals(sqrtNext):
			if initialized {
				if err := e.cross(next, params.ZeroForOne); err != nil {
					return SwapResult{}, err
				}
				res.TicksCrossed++
			}
			if params.ZeroForOne {
				p.CurrentTick = next - 1
			} else {
				p.CurrentTick = next
			}
		case !p.SqrtPrice.Equals(start):
			if p.CurrentTick, err = fixedpoint.SqrtPriceToTick(p.SqrtPrice); err != nil {
				return SwapResult{}, err
			}
		}
	}

	// A downward swap that stopped exactly on a tick it crossed still has
	// that tick as its current tick.
	if params.ZeroForOne && p.CurrentTick < fixedpoint.MaxTick {
		boundary := p.CurrentTick + 1
		sqrtBoundary, err := fixedpoint.TickToSqrtPrice(boundary)
		if err != nil {
			return SwapResult{}, err
		}
		if p.SqrtPrice.Equals(sqrtBoundary) {
			if ticks.Initialized(boundary) {
				if err := e.cross(boundary, false); err != nil {
					return SwapResult{}, err
				}
				res.TicksCrossed--
			}
			p.CurrentTick = boundary
		}
	}

	res.AmountIn = params.AmountIn.Sub(remaining)
	if res.AmountOut.Cmp(params.MinAmountOut) < 0 {
		return SwapResult{}, fmt.Errorf("output %s below minimum %s: %w", res.AmountOut, params.MinAmountOut, swaperr.ErrInvalidPriceLimit)
	}
	return res, nil
}

// nextTick returns the next initialized tick in the swap direction, or the
// curve bound when none is left.
func (e *SwapEngine) nextTick(zeroForOne bool) (int32, bool) {
	current := e.state.Pool.CurrentTick
	if zeroForOne {
		if t, ok := e.state.Ticks.NextInitializedAtOrBelow(current); ok {
			return t, true
		}
		return fixedpoint.MinTick, false
	}
	if t, ok := e.state.Ticks.NextInitializedAbove(current); ok {
		return t, true
	}
	return fixedpoint.MaxTick, false
}

// cross moves the active liquidity across tick.
func (e *SwapEngine) cross(tick int32, zeroForOne bool) error {
	p := &e.state.Pool
	net, err := e.state.Ticks.Cross(tick, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1)
	if err != nil {
		return err
	}
	if zeroForOne {
		net = net.Neg()
	}
	active, err := fixedpoint.AddDelta(p.ActiveLiquidity, net)
	if err != nil {
		return fmt.Errorf("cross tick %d: %w", tick, err)
	}
	p.ActiveLiquidity = active
	return nil
}

// applyStep books one step's amounts on the result and the pool's fee
// accumulators for the input token.
func (e *SwapEngine) applyStep(res *SwapResult, remaining *uint128.Uint128, step swapStep, zeroForOne bool) error {
	p := &e.state.Pool

	spent, err := fixedpoint.CheckedAdd(step.amountIn, step.feeAmount)
	if err != nil {
		return err
	}
	if *remaining, err = fixedpoint.CheckedSub(*remaining, spent); err != nil {
		return fmt.Errorf("step input: %w", err)
	}
	if res.AmountOut, err = fixedpoint.CheckedAdd(res.AmountOut, step.amountOut); err != nil {
		return fmt.Errorf("swap output: %w", err)
	}
	if res.FeeAmount, err = fixedpoint.CheckedAdd(res.FeeAmount, step.feeAmount); err != nil {
		return fmt.Errorf("swap fee: %w", err)
	}
	if step.feeAmount.IsZero() {
		return nil
	}

	var growth uint128.Uint128
	if !p.ActiveLiquidity.IsZero() {
		if growth, err = fixedpoint.MulDiv(step.feeAmount, fixedpoint.Q64, p.ActiveLiquidity); err != nil {
			return fmt.Errorf("fee growth: %w", err)
		}
	}
	if zeroForOne {
		p.FeeGrowthGlobal0 = p.FeeGrowthGlobal0.AddWrap(growth)
		p.TotalFee0, err = fixedpoint.CheckedAdd(p.TotalFee0, step.feeAmount)
	} else {
		p.FeeGrowthGlobal1 = p.FeeGrowthGlobal1.AddWrap(growth)
		p.TotalFee1, err = fixedpoint.CheckedAdd(p.TotalFee1, step.feeAmount)
	}
	if err != nil {
		return fmt.Errorf("total fee: %w", err)
	}
	return nil
}

type swapStep struct {
	sqrtNext  uint128.Uint128
	amountIn  uint128.Uint128
	amountOut uint128.Uint128
	feeAmount uint128.Uint128
}

// computeSwapStep moves the price from sqrtPrice toward target with the
// remaining input, net of the pool fee. When the target is reached the fee
// is charged on the input actually used; otherwise the whole remainder is
// spent and whatever did not move the price is kept as fee.
func computeSwapStep(sqrtPrice, target, liquidity, remaining uint128.Uint128, feeBps uint32, zeroForOne bool) (swapStep, error) {
	var step swapStep

	lessFee, err := fixedpoint.MulDiv(remaining, uint128.From64(uint64(FeeDenominator-feeBps)), uint128.From64(FeeDenominator))
	if err != nil {
		return step, err
	}

	if zeroForOne {
		step.amountIn, err = fixedpoint.Amount0Delta(target, sqrtPrice, liquidity, true)
	} else {
		step.amountIn, err = fixedpoint.Amount1Delta(sqrtPrice, target, liquidity, true)
	}
	if err != nil {
		return step, err
	}

	reached := lessFee.Cmp(step.amountIn) >= 0
	if reached {
		step.sqrtNext = target
	} else {
		if step.sqrtNext, err = fixedpoint.NextSqrtPriceFromInput(sqrtPrice, liquidity, lessFee, zeroForOne); err != nil {
			return step, err
		}
		if zeroForOne {
			step.amountIn, err = fixedpoint.Amount0Delta(step.sqrtNext, sqrtPrice, liquidity, true)
		} else {
			step.amountIn, err = fixedpoint.Amount1Delta(sqrtPrice, step.sqrtNext, liquidity, true)
		}
		if err != nil {
			return step, err
		}
	}

	if zeroForOne {
		step.amountOut, err = fixedpoint.Amount1Delta(step.sqrtNext, sqrtPrice, liquidity, false)
	} else {
		step.amountOut, err = fixedpoint.Amount0Delta(sqrtPrice, step.sqrtNext, liquidity, false)
	}
	if err != nil {
		return step, err
	}

	if reached {
		step.feeAmount, err = fixedpoint.MulDivRoundingUp(step.amountIn, uint128.From64(uint64(feeBps)), uint128.From64(uint64(FeeDenominator-feeBps)))
		if err != nil {
			return step, err
		}
	} else {
		if step.feeAmount, err = fixedpoint.CheckedSub(remaining, step.amountIn); err != nil {
			return step, err
		}
	}
	return step, nil
}
