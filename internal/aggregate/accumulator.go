package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"swapv3/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	Pool          string
	PoolMeta      model.PoolMeta
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	MintCount     uint64
	BurnCount     uint64
	CollectCount  uint64
	Volume0       *big.Int
	Volume1       *big.Int
	Fee0          *big.Int
	Fee1          *big.Int
	FirstSequence uint64
	LastSequence  uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:          record.Pool,
		PoolMeta:      record.PoolMeta,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		Volume0:       big.NewInt(0),
		Volume1:       big.NewInt(0),
		Fee0:          big.NewInt(0),
		Fee1:          big.NewInt(0),
		FirstSequence: record.Sequence,
		LastSequence:  record.Sequence,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Sequence >= a.LastSequence {
		a.LastSequence = record.Sequence
		a.PoolMeta = record.PoolMeta
	}
	if record.Sequence < a.FirstSequence {
		a.FirstSequence = record.Sequence
	}

	switch record.EventName {
	case "Swap":
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case "Mint":
		a.MintCount++
	case "Burn":
		a.BurnCount++
	case "Collect":
		a.CollectCount++
	}
	return nil
}

// applySwap counts the gross input as volume of the input token and the
// output as volume of the other. The fee is charged in the input token.
func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.FeeAmount)
	if err != nil {
		return err
	}

	if swap.ZeroForOne {
		a.Volume0.Add(a.Volume0, amountIn)
		a.Volume1.Add(a.Volume1, amountOut)
		a.Fee0.Add(a.Fee0, fee)
	} else {
		a.Volume1.Add(a.Volume1, amountIn)
		a.Volume0.Add(a.Volume0, amountOut)
		a.Fee1.Add(a.Fee1, fee)
	}

	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
