package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/swaperr"
)

func TestInitialize(t *testing.T) {
	pool, err := Initialize(InitParams{Token0: token0, Token1: token1, FeeBps: 5, TickSpacing: 10, SqrtPrice: fixedpoint.Q64})
	require.NoError(t, err)
	require.Equal(t, int32(0), pool.CurrentTick)
	require.True(t, pool.ActiveLiquidity.IsZero())
	require.True(t, pool.FeeGrowthGlobal0.IsZero())

	price, _ := fixedpoint.TickToSqrtPrice(-887)
	pool, err = Initialize(InitParams{FeeBps: 30, TickSpacing: 1, SqrtPrice: price.Add64(1)})
	require.NoError(t, err)
	require.Equal(t, int32(-887), pool.CurrentTick)

	_, err = Initialize(InitParams{FeeBps: 5, TickSpacing: 10})
	require.ErrorIs(t, err, swaperr.ErrInvalidPriceLimit)
	_, err = Initialize(InitParams{FeeBps: 5, TickSpacing: 0, SqrtPrice: fixedpoint.Q64})
	require.ErrorIs(t, err, swaperr.ErrInvalidInstruction)
	_, err = Initialize(InitParams{FeeBps: FeeDenominator, TickSpacing: 10, SqrtPrice: fixedpoint.Q64})
	require.ErrorIs(t, err, swaperr.ErrInvalidInstruction)
	_, err = Initialize(InitParams{FeeBps: 5, TickSpacing: 10, SqrtPrice: fixedpoint.MaxSqrtPrice.Add64(1)})
	require.ErrorIs(t, err, swaperr.ErrInvalidPriceLimit)
}

func TestAddLiquidityInRange(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	res := m.add(t, alice, -100, 100, 1_000_000)

	require.True(t, m.pool.ActiveLiquidity.Equals64(1_000_000))
	require.Len(t, m.ticks, 2)
	require.Len(t, m.positions, 1)
	require.True(t, res.Position.Liquidity.Equals64(1_000_000))
	// symmetric range around price 1 needs the same amount of both tokens
	require.True(t, absDiff(res.Amount0, res.Amount1).Cmp64(1) <= 0, "%s vs %s", res.Amount0, res.Amount1)
	require.False(t, res.Amount0.IsZero())

	// out of range positions leave active liquidity alone
	above := m.add(t, bob, 200, 300, 5000)
	require.True(t, above.Amount1.IsZero())
	require.False(t, above.Amount0.IsZero())
	below := m.add(t, bob, -300, -200, 5000)
	require.True(t, below.Amount0.IsZero())
	require.False(t, below.Amount1.IsZero())
	require.True(t, m.pool.ActiveLiquidity.Equals64(1_000_000))
	m.checkInvariants(t)
}

func TestAddLiquidityInvalidRange(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)

	cases := []struct {
		lower, upper int32
	}{
		{100, 100},
		{100, -100},
		{-105, 100},
		{-100, 95},
		{-fixedpoint.TickLimit - 4, 100},
		{-100, fixedpoint.TickLimit + 4},
	}
	for _, tc := range cases {
		cs, _, err := AddLiquidity(m.records(), alice, tc.lower, tc.upper, uint128.From64(1000))
		if !errors.Is(err, swaperr.ErrInvalidTick) {
			t.Fatalf("[%d, %d): expected ErrInvalidTick, got %v", tc.lower, tc.upper, err)
		}
		if cs != nil {
			t.Fatalf("[%d, %d): failed add returned a changeset", tc.lower, tc.upper)
		}
	}
	if len(m.ticks) != 0 || len(m.positions) != 0 {
		t.Fatalf("records created by failed adds")
	}

	_, _, err := AddLiquidity(m.records(), alice, -100, 100, uint128.Zero)
	require.ErrorIs(t, err, swaperr.ErrInvalidInstruction)
}

func TestRemoveLiquidity(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)
	m.add(t, bob, -100, 50, 300)

	_, _, err := RemoveLiquidity(m.records(), bob, -100, 50, uint128.From64(301))
	require.ErrorIs(t, err, swaperr.ErrOverflow)
	_, _, err = RemoveLiquidity(m.records(), carol, -100, 100, uint128.From64(1))
	require.ErrorIs(t, err, swaperr.ErrOverflow)

	cs, res, err := RemoveLiquidity(m.records(), bob, -100, 50, uint128.From64(300))
	require.NoError(t, err)
	m.apply(cs)
	require.True(t, res.Position.Liquidity.IsZero())
	require.Equal(t, []int32{50}, cs.DeletedTicks)
	require.Len(t, cs.DeletedPositions, 1)
	require.Len(t, m.ticks, 2)
	require.Len(t, m.positions, 1)
	m.checkInvariants(t)

	cs, _, err = RemoveLiquidity(m.records(), alice, -100, 100, uint128.From64(1_000_000))
	require.NoError(t, err)
	m.apply(cs)
	require.Empty(t, m.ticks)
	require.Empty(t, m.positions)
	require.True(t, m.pool.ActiveLiquidity.IsZero())
}

func TestSwapSingleStep(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)

	res := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1000)})
	require.Equal(t, Done, res.State)
	require.Equal(t, 0, res.TicksCrossed)
	require.True(t, res.AmountIn.Equals64(1000))
	require.True(t, res.FeeAmount.Equals64(1), "fee %s", res.FeeAmount)
	require.True(t, res.AmountOut.Equals64(998), "out %s", res.AmountOut)

	// output follows the closed form L*(P - P')/2^64 of a single step
	want, err := fixedpoint.MulDiv(uint128.From64(1_000_000), fixedpoint.Q64.Sub(m.pool.SqrtPrice), fixedpoint.Q64)
	require.NoError(t, err)
	require.True(t, want.Equals(res.AmountOut))

	require.True(t, m.pool.ActiveLiquidity.Equals64(1_000_000))
	require.True(t, m.pool.TotalFee0.Equals64(1))
	require.True(t, m.pool.FeeGrowthGlobal0.Equals(fixedpoint.Q64.Div64(1_000_000)))
	m.checkInvariants(t)
}

func TestSwapMinAmountOutLeavesRecordsUntouched(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)

	rs := m.records()
	before := encodeAll(t, rs)

	cs, _, err := Swap(rs, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1000), MinAmountOut: uint128.From64(999)})
	require.ErrorIs(t, err, swaperr.ErrInvalidPriceLimit)
	require.Nil(t, cs)
	require.Equal(t, before, encodeAll(t, rs))
	require.Equal(t, before, encodeAll(t, m.records()))
}

func TestSwapPriceLimitValidation(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)

	for _, params := range []SwapParams{
		{ZeroForOne: true, AmountIn: uint128.From64(10), SqrtPriceLimit: fixedpoint.Q64},
		{ZeroForOne: true, AmountIn: uint128.From64(10), SqrtPriceLimit: fixedpoint.MinSqrtPrice.Sub64(1)},
		{ZeroForOne: false, AmountIn: uint128.From64(10), SqrtPriceLimit: fixedpoint.Q64.Sub64(1)},
		{ZeroForOne: false, AmountIn: uint128.From64(10), SqrtPriceLimit: fixedpoint.MaxSqrtPrice.Add64(1)},
	} {
		_, _, err := Swap(m.records(), params)
		require.ErrorIs(t, err, swaperr.ErrInvalidPriceLimit)
	}
}

func TestSwapStopsAtPriceLimit(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)

	limit, _ := fixedpoint.TickToSqrtPrice(50)
	res := m.swap(t, SwapParams{ZeroForOne: false, AmountIn: uint128.From64(1_000_000), SqrtPriceLimit: limit})
	require.Equal(t, LimitReached, res.State)
	require.True(t, m.pool.SqrtPrice.Equals(limit))
	require.Equal(t, int32(50), m.pool.CurrentTick)
	require.True(t, res.AmountIn.Cmp64(1_000_000) < 0)
	m.checkInvariants(t)
}

func TestSwapCrossesTicks(t *testing.T) {
	m := newMemPool(t, 30, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)
	m.add(t, bob, -300, -50, 2_000_000)

	res := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(15_000)})
	require.Equal(t, Done, res.State)
	require.Equal(t, 2, res.TicksCrossed)
	require.Less(t, m.pool.CurrentTick, int32(-100))
	require.True(t, m.pool.ActiveLiquidity.Equals64(2_000_000))
	m.checkInvariants(t)

	// back up through both ranges
	res = m.swap(t, SwapParams{ZeroForOne: false, AmountIn: uint128.From64(15_000)})
	require.Equal(t, Done, res.State)
	require.Greater(t, m.pool.CurrentTick, int32(-50))
	m.checkInvariants(t)
}

func TestSwapStoppingOnCrossedTickKeepsItCurrent(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000)
	m.add(t, bob, -200, -100, 3_000_000)

	limit, _ := fixedpoint.TickToSqrtPrice(-100)
	res := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1_000_000), SqrtPriceLimit: limit})
	require.Equal(t, LimitReached, res.State)
	require.Equal(t, 0, res.TicksCrossed)
	require.Equal(t, int32(-100), m.pool.CurrentTick)
	// at tick -100 only alice's range is active
	require.True(t, m.pool.ActiveLiquidity.Equals64(1_000_000))
	m.checkInvariants(t)
}

func TestSwapWithoutLiquidityJumpsToBound(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	res := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1000)})
	require.Equal(t, LimitReached, res.State)
	require.True(t, res.AmountIn.IsZero())
	require.True(t, res.AmountOut.IsZero())
	require.True(t, m.pool.SqrtPrice.Equals(fixedpoint.MinSqrtPrice))
	require.Equal(t, fixedpoint.MinTick, m.pool.CurrentTick)
	m.checkInvariants(t)
}

func TestCollectFees(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000_000)

	res := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1_000_000)})
	fee := res.FeeAmount
	require.True(t, fee.Cmp64(400) > 0)

	cs, collected, err := Collect(m.records(), alice, -100, 100)
	require.NoError(t, err)
	m.apply(cs)
	require.True(t, collected.Amount0.Cmp(fee) <= 0)
	require.True(t, collected.Amount0.Add64(1).Cmp(fee) >= 0, "collected %s of %s", collected.Amount0, fee)
	require.True(t, collected.Amount1.IsZero())

	pos := m.positions[PositionKey{Owner: alice, TickLower: -100, TickUpper: 100}]
	require.True(t, pos.TokensOwed0.IsZero())
	require.True(t, pos.CollectedFee0.Equals(collected.Amount0))

	// nothing new to collect
	_, again, err := Collect(m.records(), alice, -100, 100)
	require.NoError(t, err)
	require.True(t, again.Amount0.IsZero())

	// no position, nothing paid
	_, none, err := Collect(m.records(), bob, -100, 100)
	require.NoError(t, err)
	require.True(t, none.Amount0.IsZero())
}

func TestAddLiquidityAccruesCollectedFees(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000_000)
	fee := m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1_000_000)}).FeeAmount

	res := m.add(t, alice, -100, 100, 1)
	pos := res.Position
	require.True(t, pos.Liquidity.Equals64(1_000_000_001))
	require.False(t, pos.CollectedFee0.IsZero())
	require.True(t, pos.CollectedFee0.Cmp(fee) <= 0, "collected %s of %s", pos.CollectedFee0, fee)
	require.True(t, pos.CollectedFee0.Equals(pos.TokensOwed0))
	require.True(t, pos.CollectedFee1.IsZero())

	// paying out leaves the lifetime total alone
	cs, paid, err := Collect(m.records(), alice, -100, 100)
	require.NoError(t, err)
	m.apply(cs)
	require.True(t, paid.Amount0.Equals(pos.CollectedFee0))
	after := m.positions[PositionKey{Owner: alice, TickLower: -100, TickUpper: 100}]
	require.True(t, after.TokensOwed0.IsZero())
	require.True(t, after.CollectedFee0.Equals(pos.CollectedFee0))
}

func TestFeesSplitByLiquidity(t *testing.T) {
	m := newMemPool(t, 100, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 3_000_000_000)
	m.add(t, bob, -100, 100, 1_000_000_000)
	m.swap(t, SwapParams{ZeroForOne: false, AmountIn: uint128.From64(2_000_000)})

	collect := func(owner common.Hash) uint128.Uint128 {
		cs, res, err := Collect(m.records(), owner, -100, 100)
		require.NoError(t, err)
		m.apply(cs)
		require.True(t, res.Amount0.IsZero())
		return res.Amount1
	}
	a, b := collect(alice), collect(bob)
	// 3:1 within rounding
	require.True(t, absDiff(a, b.Mul64(3)).Cmp64(4) <= 0, "alice %s bob %s", a, b)
}

func TestRemoveThenCollectDeletesPosition(t *testing.T) {
	m := newMemPool(t, 5, 10, fixedpoint.Q64)
	m.add(t, alice, -100, 100, 1_000_000_000)
	m.swap(t, SwapParams{ZeroForOne: true, AmountIn: uint128.From64(1_000_000)})

	cs, _, err := RemoveLiquidity(m.records(), alice, -100, 100, uint128.From64(1_000_000_000))
	require.NoError(t, err)
	m.apply(cs)
	pos, ok := m.positions[PositionKey{Owner: alice, TickLower: -100, TickUpper: 100}]
	require.True(t, ok, "position with owed fees must survive")
	require.False(t, pos.TokensOwed0.IsZero())
	require.Empty(t, m.ticks)

	cs, res, err := Collect(m.records(), alice, -100, 100)
	require.NoError(t, err)
	m.apply(cs)
	require.True(t, res.Amount0.Equals(pos.TokensOwed0))
	require.Empty(t, m.positions)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m := newMemPool(t, 30, 10, fixedpoint.Q64)
	owners := []common.Hash{alice, bob, carol}

	for i := 0; i < 400; i++ {
		switch op := r.Intn(4); {
		case op == 0 || len(m.positions) == 0:
			lower := int32(r.Intn(40)-20) * 10
			upper := lower + int32(r.Intn(20)+1)*10
			m.add(t, owners[r.Intn(len(owners))], lower, upper, uint64(r.Intn(1_000_000)+1))
		case op == 1:
			var key PositionKey
			var liq uint128.Uint128
			for k, p := range m.positions {
				key, liq = k, p.Liquidity
				break
			}
			if liq.IsZero() {
				continue
			}
			amount := uint128.From64(uint64(r.Int63n(int64(liq.Lo)) + 1))
			cs, _, err := RemoveLiquidity(m.records(), key.Owner, key.TickLower, key.TickUpper, amount)
			if err != nil {
				t.Fatalf("step %d remove: %v", i, err)
			}
			m.apply(cs)
		default:
			params := SwapParams{ZeroForOne: r.Intn(2) == 0, AmountIn: uint128.From64(uint64(r.Intn(20_000) + 1))}
			cs, _, err := Swap(m.records(), params)
			if err != nil {
				if !errors.Is(err, swaperr.ErrInvalidPriceLimit) {
					t.Fatalf("step %d swap: %v", i, err)
				}
				continue
			}
			m.apply(cs)
		}
		m.checkInvariants(t)
	}
}
