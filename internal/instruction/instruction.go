// Package instruction encodes and decodes the operation envelope: one
// discriminant byte followed by the operation's fields, each fixed width
// and little-endian.
package instruction

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

// Kind is the envelope discriminant.
type Kind uint8

const (
	KindInitializePool Kind = iota
	KindAddLiquidity
	KindSwap
	KindRemoveLiquidity
	KindCollectFees
	KindSwapExactIn
)

func (k Kind) String() string {
	switch k {
	case KindInitializePool:
		return "InitializePool"
	case KindAddLiquidity:
		return "AddLiquidity"
	case KindSwap:
		return "Swap"
	case KindRemoveLiquidity:
		return "RemoveLiquidity"
	case KindCollectFees:
		return "CollectFees"
	case KindSwapExactIn:
		return "SwapExactIn"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Instruction is one decoded operation.
type Instruction interface {
	Kind() Kind
}

// InitializePool creates a pool at InitialSqrtPrice (Q64.64).
type InitializePool struct {
	InitialSqrtPrice uint128.Uint128
}

// AddLiquidity deposits liquidity over [TickLower, TickUpper).
type AddLiquidity struct {
	LiquidityAmount uint128.Uint128
	TickLower       int32
	TickUpper       int32
}

// Swap sells AmountIn of token0 for at least MinAmountOut of token1.
type Swap struct {
	AmountIn     uint64
	MinAmountOut uint64
}

// RemoveLiquidity withdraws liquidity from [TickLower, TickUpper).
type RemoveLiquidity struct {
	LiquidityAmount uint128.Uint128
	TickLower       int32
	TickUpper       int32
}

// CollectFees pays out the fees owed to a position.
type CollectFees struct {
	TickLower int32
	TickUpper int32
}

// SwapExactIn is a swap in either direction with an explicit price limit.
// A zero limit selects the curve bound.
type SwapExactIn struct {
	AmountIn       uint64
	MinAmountOut   uint64
	ZeroForOne     bool
	SqrtPriceLimit uint128.Uint128
}

func (InitializePool) Kind() Kind  { return KindInitializePool }
func (AddLiquidity) Kind() Kind    { return KindAddLiquidity }
func (Swap) Kind() Kind            { return KindSwap }
func (RemoveLiquidity) Kind() Kind { return KindRemoveLiquidity }
func (CollectFees) Kind() Kind     { return KindCollectFees }
func (SwapExactIn) Kind() Kind     { return KindSwapExactIn }

// payloadSize is the encoded size of each kind, discriminant excluded.
var payloadSize = map[Kind]int{
	KindInitializePool:  16,
	KindAddLiquidity:    24,
	KindSwap:            16,
	KindRemoveLiquidity: 24,
	KindCollectFees:     8,
	KindSwapExactIn:     33,
}

// Encode serializes ix into its envelope.
func Encode(ix Instruction) ([]byte, error) {
	size, ok := payloadSize[ix.Kind()]
	if !ok {
		return nil, fmt.Errorf("encode %s: %w", ix.Kind(), swaperr.ErrInvalidInstruction)
	}
	buf := make([]byte, 1+size)
	buf[0] = byte(ix.Kind())
	b := buf[1:]

	switch v := ix.(type) {
	case InitializePool:
		v.InitialSqrtPrice.PutBytes(b)
	case AddLiquidity:
		putRange(b, v.LiquidityAmount, v.TickLower, v.TickUpper)
	case RemoveLiquidity:
		putRange(b, v.LiquidityAmount, v.TickLower, v.TickUpper)
	case Swap:
		binary.LittleEndian.PutUint64(b[0:], v.AmountIn)
		binary.LittleEndian.PutUint64(b[8:], v.MinAmountOut)
	case CollectFees:
		binary.LittleEndian.PutUint32(b[0:], uint32(v.TickLower))
		binary.LittleEndian.PutUint32(b[4:], uint32(v.TickUpper))
	case SwapExactIn:
		binary.LittleEndian.PutUint64(b[0:], v.AmountIn)
		binary.LittleEndian.PutUint64(b[8:], v.MinAmountOut)
		if v.ZeroForOne {
			b[16] = 1
		}
		v.SqrtPriceLimit.PutBytes(b[17:])
	default:
		return nil, fmt.Errorf("encode %T: %w", ix, swaperr.ErrInvalidInstruction)
	}
	return buf, nil
}

func putRange(b []byte, amount uint128.Uint128, lower, upper int32) {
	amount.PutBytes(b[0:])
	binary.LittleEndian.PutUint32(b[16:], uint32(lower))
	binary.LittleEndian.PutUint32(b[20:], uint32(upper))
}

// Decode parses an envelope. Unknown kinds, wrong lengths and zero
// amounts fail with ErrInvalidInstruction.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty envelope: %w", swaperr.ErrInvalidInstruction)
	}
	kind := Kind(data[0])
	size, ok := payloadSize[kind]
	if !ok {
		return nil, fmt.Errorf("unknown discriminant %d: %w", data[0], swaperr.ErrInvalidInstruction)
	}
	b := data[1:]
	if len(b) != size {
		return nil, fmt.Errorf("%s payload is %d bytes, want %d: %w", kind, len(b), size, swaperr.ErrInvalidInstruction)
	}

	switch kind {
	case KindInitializePool:
		return InitializePool{InitialSqrtPrice: uint128.FromBytes(b)}, nil
	case KindAddLiquidity, KindRemoveLiquidity:
		amount := uint128.FromBytes(b[0:])
		if amount.IsZero() {
			return nil, fmt.Errorf("%s with zero liquidity: %w", kind, swaperr.ErrInvalidInstruction)
		}
		lower := int32(binary.LittleEndian.Uint32(b[16:]))
		upper := int32(binary.LittleEndian.Uint32(b[20:]))
		if kind == KindAddLiquidity {
			return AddLiquidity{LiquidityAmount: amount, TickLower: lower, TickUpper: upper}, nil
		}
		return RemoveLiquidity{LiquidityAmount: amount, TickLower: lower, TickUpper: upper}, nil
	case KindSwap:
		ix := Swap{
			AmountIn:     binary.LittleEndian.Uint64(b[0:]),
			MinAmountOut: binary.LittleEndian.Uint64(b[8:]),
		}
		if ix.AmountIn == 0 {
			return nil, fmt.Errorf("swap with zero input: %w", swaperr.ErrInvalidInstruction)
		}
		return ix, nil
	case KindCollectFees:
		return CollectFees{
			TickLower: int32(binary.LittleEndian.Uint32(b[0:])),
			TickUpper: int32(binary.LittleEndian.Uint32(b[4:])),
		}, nil
	default:
		ix := SwapExactIn{
			AmountIn:       binary.LittleEndian.Uint64(b[0:]),
			MinAmountOut:   binary.LittleEndian.Uint64(b[8:]),
			SqrtPriceLimit: uint128.FromBytes(b[17:]),
		}
		switch b[16] {
		case 0:
		case 1:
			ix.ZeroForOne = true
		default:
			return nil, fmt.Errorf("direction flag %d: %w", b[16], swaperr.ErrInvalidInstruction)
		}
		if ix.AmountIn == 0 {
			return nil, fmt.Errorf("swap with zero input: %w", swaperr.ErrInvalidInstruction)
		}
		return ix, nil
	}
}

// DecodeHex parses a 0x-prefixed hex envelope.
func DecodeHex(s string) (Instruction, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("envelope hex %q: %v: %w", s, err, swaperr.ErrInvalidInstruction)
	}
	return Decode(data)
}

// EncodeHex serializes ix as a 0x-prefixed hex string.
func EncodeHex(ix Instruction) (string, error) {
	data, err := Encode(ix)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}
