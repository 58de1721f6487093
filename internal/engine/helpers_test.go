package engine

import (
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
	"swapv3/internal/model"
)

var (
	token0 = common.HexToHash("0xa0")
	token1 = common.HexToHash("0xa1")
	alice  = common.HexToHash("0x01")
	bob    = common.HexToHash("0x02")
	carol  = common.HexToHash("0x03")
)

// memPool applies changesets to plain maps, standing in for the ledger.
type memPool struct {
	pool      model.Pool
	ticks     map[int32]model.Tick
	positions map[PositionKey]model.Position
}

func newMemPool(t *testing.T, feeBps uint32, spacing uint16, sqrtPrice uint128.Uint128) *memPool {
	t.Helper()
	pool, err := Initialize(InitParams{Token0: token0, Token1: token1, FeeBps: feeBps, TickSpacing: spacing, SqrtPrice: sqrtPrice})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return &memPool{
		pool:      pool,
		ticks:     make(map[int32]model.Tick),
		positions: make(map[PositionKey]model.Position),
	}
}

func (m *memPool) records() RecordSet {
	rs := RecordSet{Pool: m.pool}
	for _, t := range m.ticks {
		rs.Ticks = append(rs.Ticks, t)
	}
	sort.Slice(rs.Ticks, func(i, j int) bool { return rs.Ticks[i].Index < rs.Ticks[j].Index })
	for _, p := range m.positions {
		rs.Positions = append(rs.Positions, p)
	}
	return rs
}

func (m *memPool) apply(cs *Changeset) {
	if cs.Pool != nil {
		m.pool = *cs.Pool
	}
	for _, t := range cs.Ticks {
		m.ticks[t.Index] = t
	}
	for _, idx := range cs.DeletedTicks {
		delete(m.ticks, idx)
	}
	for _, p := range cs.Positions {
		m.positions[keyOf(p)] = p
	}
	for _, key := range cs.DeletedPositions {
		delete(m.positions, key)
	}
}

func (m *memPool) add(t *testing.T, owner common.Hash, lower, upper int32, amount uint64) LiquidityResult {
	t.Helper()
	cs, res, err := AddLiquidity(m.records(), owner, lower, upper, uint128.From64(amount))
	if err != nil {
		t.Fatalf("add liquidity [%d, %d): %v", lower, upper, err)
	}
	m.apply(cs)
	return res
}

func (m *memPool) swap(t *testing.T, params SwapParams) SwapResult {
	t.Helper()
	cs, res, err := Swap(m.records(), params)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	m.apply(cs)
	return res
}

// checkInvariants verifies the pool accounting invariants.
func (m *memPool) checkInvariants(t *testing.T) {
	t.Helper()

	net := fixedpoint.Int128{}
	for _, tick := range m.ticks {
		var err error
		if net, err = net.Add(tick.LiquidityNet); err != nil {
			t.Fatalf("net sum: %v", err)
		}
		if tick.LiquidityGross.IsZero() {
			t.Fatalf("tick %d stored without gross liquidity", tick.Index)
		}
	}
	if !net.IsZero() {
		t.Fatalf("liquidity net sums to %s", net)
	}

	active := uint128.Zero
	for _, pos := range m.positions {
		if pos.TickLower <= m.pool.CurrentTick && m.pool.CurrentTick < pos.TickUpper {
			active = active.Add(pos.Liquidity)
		}
	}
	if !active.Equals(m.pool.ActiveLiquidity) {
		t.Fatalf("active liquidity %s, positions in range hold %s (tick %d)", m.pool.ActiveLiquidity, active, m.pool.CurrentTick)
	}

	lo, err := fixedpoint.TickToSqrtPrice(m.pool.CurrentTick)
	if err != nil {
		t.Fatalf("current tick %d: %v", m.pool.CurrentTick, err)
	}
	if m.pool.SqrtPrice.Cmp(lo) < 0 {
		t.Fatalf("price %s below tick %d", m.pool.SqrtPrice, m.pool.CurrentTick)
	}
	if m.pool.CurrentTick < fixedpoint.MaxTick {
		hi, _ := fixedpoint.TickToSqrtPrice(m.pool.CurrentTick + 1)
		if m.pool.SqrtPrice.Cmp(hi) >= 0 {
			t.Fatalf("price %s at or above tick %d", m.pool.SqrtPrice, m.pool.CurrentTick+1)
		}
	}
}

func encodeAll(t *testing.T, rs RecordSet) [][]byte {
	t.Helper()
	var out [][]byte
	data, err := rs.Pool.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal pool: %v", err)
	}
	out = append(out, data)
	for _, tick := range rs.Ticks {
		data, _ := tick.MarshalBinary()
		out = append(out, data)
	}
	for _, pos := range rs.Positions {
		data, _ := pos.MarshalBinary()
		out = append(out, data)
	}
	return out
}

func absDiff(a, b uint128.Uint128) uint128.Uint128 {
	if a.Cmp(b) < 0 {
		return b.Sub(a)
	}
	return a.Sub(b)
}
