package engine

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
	"swapv3/internal/swaperr"
)

func TestTickMapUpdateLiquidity(t *testing.T) {
	m := NewTickMap(nil)
	global0, global1 := uint128.From64(700), uint128.From64(900)

	if err := m.UpdateLiquidity(-10, fixedpoint.Int128FromInt64(500), false, 0, global0, global1); err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := m.UpdateLiquidity(10, fixedpoint.Int128FromInt64(500), true, 0, global0, global1); err != nil {
		t.Fatalf("upper: %v", err)
	}

	lower, upper := m.Get(-10), m.Get(10)
	if lower.LiquidityNet.String() != "500" || upper.LiquidityNet.String() != "-500" {
		t.Fatalf("net mismatch: %s / %s", lower.LiquidityNet, upper.LiquidityNet)
	}
	if !lower.LiquidityGross.Equals64(500) || !upper.LiquidityGross.Equals64(500) {
		t.Fatalf("gross mismatch")
	}
	if !lower.FeeGrowthOutside0.Equals(global0) || !lower.FeeGrowthOutside1.Equals(global1) {
		t.Fatalf("tick below current should start with global growth outside")
	}
	if !upper.FeeGrowthOutside0.IsZero() || !upper.FeeGrowthOutside1.IsZero() {
		t.Fatalf("tick above current should start with zero growth outside")
	}
}

func TestTickMapRejectsOverRemoval(t *testing.T) {
	m := NewTickMap([]model.Tick{{Index: 20, LiquidityNet: fixedpoint.Int128FromInt64(5), LiquidityGross: uint128.From64(5)}})
	err := m.UpdateLiquidity(20, fixedpoint.Int128FromInt64(-6), false, 0, uint128.Zero, uint128.Zero)
	if !errors.Is(err, swaperr.ErrInvalidTick) {
		t.Fatalf("expected ErrInvalidTick, got %v", err)
	}
	err = m.UpdateLiquidity(fixedpoint.MaxTick+1, fixedpoint.Int128FromInt64(1), false, 0, uint128.Zero, uint128.Zero)
	if !errors.Is(err, swaperr.ErrInvalidTick) {
		t.Fatalf("expected ErrInvalidTick, got %v", err)
	}
}

func TestTickMapCross(t *testing.T) {
	m := NewTickMap([]model.Tick{{
		Index:             30,
		LiquidityNet:      fixedpoint.Int128FromInt64(-40),
		LiquidityGross:    uint128.From64(40),
		FeeGrowthOutside0: uint128.From64(100),
		FeeGrowthOutside1: uint128.From64(3),
	}})

	net, err := m.Cross(30, uint128.From64(250), uint128.From64(1))
	if err != nil {
		t.Fatalf("cross: %v", err)
	}
	if net.String() != "-40" {
		t.Fatalf("net %s", net)
	}
	tick := m.Get(30)
	if !tick.FeeGrowthOutside0.Equals64(150) {
		t.Fatalf("outside0 %s", tick.FeeGrowthOutside0)
	}
	// 1 - 3 wraps around
	if !tick.FeeGrowthOutside1.Equals(uint128.Max.Sub64(1)) {
		t.Fatalf("outside1 %s", tick.FeeGrowthOutside1)
	}

	if _, err := m.Cross(31, uint128.Zero, uint128.Zero); !errors.Is(err, swaperr.ErrInvalidTick) {
		t.Fatalf("expected ErrInvalidTick, got %v", err)
	}
}

func TestTickMapNextInitialized(t *testing.T) {
	m := NewTickMap([]model.Tick{
		{Index: -50, LiquidityGross: uint128.From64(1)},
		{Index: 0, LiquidityGross: uint128.From64(1)},
		{Index: 40},
		{Index: 70, LiquidityGross: uint128.From64(1)},
	})

	cases := []struct {
		from    int32
		below   int32
		belowOK bool
		above   int32
		aboveOK bool
	}{
		{from: 0, below: 0, belowOK: true, above: 70, aboveOK: true},
		{from: -1, below: -50, belowOK: true, above: 0, aboveOK: true},
		{from: -51, belowOK: false, above: -50, aboveOK: true},
		{from: 70, below: 70, belowOK: true, aboveOK: false},
		{from: 45, below: 0, belowOK: true, above: 70, aboveOK: true},
	}
	for _, tc := range cases {
		below, ok := m.NextInitializedAtOrBelow(tc.from)
		if ok != tc.belowOK || (ok && below != tc.below) {
			t.Fatalf("below %d: got %d,%v", tc.from, below, ok)
		}
		above, ok := m.NextInitializedAbove(tc.from)
		if ok != tc.aboveOK || (ok && above != tc.above) {
			t.Fatalf("above %d: got %d,%v", tc.from, above, ok)
		}
	}
}
