package journal

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"swapv3/internal/instruction"
	"swapv3/internal/ledger"
)

func TestParseHash(t *testing.T) {
	got, err := ParseHash("0x01")
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x01"), got)

	got, err = ParseHash("  ")
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, got)

	_, err = ParseHash("0xzz")
	require.Error(t, err)

	_, err = ParseHash("0x" + common.Bytes2Hex(make([]byte, 33)))
	require.Error(t, err)
}

func TestOperationRecordRoundTrip(t *testing.T) {
	init := ledger.Request{Params: params, Instruction: instruction.InitializePool{InitialSqrtPrice: uint128.From64(1 << 40)}}
	rec, err := NewOperationRecord(1, init)
	require.NoError(t, err)
	require.Equal(t, poolID.Hex(), rec.Pool)
	require.Empty(t, rec.Owner)
	require.Equal(t, uint32(30), rec.Fee)

	req, err := BuildRequest(rec)
	require.NoError(t, err)
	require.Equal(t, init.Params, req.Params)
	require.Equal(t, init.Instruction, req.Instruction)

	add := ledger.Request{Pool: poolID, Owner: alice, Instruction: instruction.AddLiquidity{LiquidityAmount: uint128.From64(7), TickLower: -10, TickUpper: 10}}
	rec, err = NewOperationRecord(2, add)
	require.NoError(t, err)
	require.Zero(t, rec.Fee)

	req, err = BuildRequest(rec)
	require.NoError(t, err)
	require.Equal(t, add, req)
}
