package model

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
)

func TestPoolLayout(t *testing.T) {
	pool := Pool{
		Token0:           common.HexToHash("0x01"),
		Token1:           common.HexToHash("0x02"),
		Fee:              5,
		TickSpacing:      10,
		TotalFee0:        uint128.From64(9),
		ActiveLiquidity:  uint128.From64(1_000_000),
		SqrtPrice:        fixedpoint.Q64,
		CurrentTick:      -7,
		FeeGrowthGlobal0: uint128.New(1, 2),
	}
	data, err := pool.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, PoolSize)
	require.Equal(t, SchemaVersion, data[0])
	// fee sits right after the two ids
	require.Equal(t, byte(5), data[65])
	require.Equal(t, byte(10), data[69])

	var decoded Pool
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.Equal(t, pool, decoded)
}

func TestTickLayout(t *testing.T) {
	tick := Tick{
		Index:             -443636,
		LiquidityNet:      fixedpoint.Int128FromInt64(-250),
		LiquidityGross:    uint128.From64(250),
		FeeGrowthOutside1: uint128.Max,
	}
	data, err := tick.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, TickSize)

	var decoded Tick
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.Equal(t, tick, decoded)
}

func TestPositionLayout(t *testing.T) {
	pos := Position{
		Owner:         common.HexToHash("0xbeef"),
		TickLower:     -100,
		TickUpper:     100,
		Liquidity:     uint128.From64(42),
		TokensOwed1:   uint128.From64(3),
		CollectedFee0: uint128.From64(11),
	}
	data, err := pos.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, PositionSize)

	var decoded Position
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.Equal(t, pos, decoded)
	require.False(t, decoded.Empty())
	require.True(t, Position{}.Empty())
}

func TestLayoutRejectsCorruptBuffers(t *testing.T) {
	data, err := Tick{Index: 5}.MarshalBinary()
	require.NoError(t, err)

	var tick Tick
	require.True(t, errors.Is(tick.UnmarshalBinary(data[:TickSize-1]), ErrLayout))

	bad := append([]byte(nil), data...)
	bad[0] = 9
	require.True(t, errors.Is(tick.UnmarshalBinary(bad), ErrLayout))

	bad = append([]byte(nil), data...)
	bad[TickSize-1] = 1
	require.True(t, errors.Is(tick.UnmarshalBinary(bad), ErrLayout))
}
