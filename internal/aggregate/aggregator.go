// Package aggregate folds the ledger event log into per-pool time windows.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"go.uber.org/zap"

	"swapv3/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	// RecomputeFrom, when set, restarts at this event sequence instead of
	// the saved state.
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator aggregates typed events into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	// lastSeq is the highest sequence folded so far.
	lastSeq uint64
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a typed events JSONL file. Windows still open
// at the end of the input are written too; the saved state stops before them
// so the next run rebuilds them in full.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startSeq, err := a.loadStartSequence(ctx)
	if err != nil {
		return err
	}
	a.lastSeq = startSeq

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, windows, skipped, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if record.Sequence <= startSeq {
			skipped++
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		acc := a.accumulators[record.Pool]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.flushAccumulator(acc))
			windows++
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.EventName))
			continue
		}

		if record.Sequence > a.lastSeq {
			a.lastSeq = record.Sequence
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.PutWindowMetrics(ctx, batch); err != nil {
				return fmt.Errorf("store windows: %w", err)
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
		windows++
	}

	if len(batch) > 0 {
		if err := a.sink.PutWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("store windows: %w", err)
		}
	}

	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartSequence(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the sequence before the oldest open window, so a rerun
// starts every open window from its first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	safe := a.lastSeq
	if first := minOpenSequence(a.accumulators); first > 0 {
		safe = first - 1
	}
	return a.cfg.StateStore.Save(ctx, safe)
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	meta := acc.PoolMeta

	var sqrtPrice, liquidity *big.Int
	var closeTick int32
	if meta.Slot0 != nil {
		sqrtPrice, _ = new(big.Int).SetString(meta.Slot0.SqrtPriceX64, 10)
		closeTick = meta.Slot0.Tick
	}
	if meta.Liquidity != "" {
		liquidity, _ = new(big.Int).SetString(meta.Liquidity, 10)
	}

	reserve0, reserve1 := virtualReserves(liquidity, sqrtPrice)
	if reserve0 == nil {
		a.logger.Debug("no active liquidity at window close", zap.String("pool", acc.Pool))
	}
	feeRate0, feeRate1 := computeFeeRates(acc.Fee0, acc.Fee1, reserve0, reserve1)

	return model.PoolWindowMetrics{
		Pool:           acc.Pool,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		FirstSequence:  acc.FirstSequence,
		LastSequence:   acc.LastSequence,
		SwapCount:      acc.SwapCount,
		MintCount:      acc.MintCount,
		BurnCount:      acc.BurnCount,
		CollectCount:   acc.CollectCount,
		Volume0:        acc.Volume0.String(),
		Volume1:        acc.Volume1.String(),
		Fee0:           acc.Fee0.String(),
		Fee1:           acc.Fee1.String(),
		Reserve0:       optionalString(reserve0),
		Reserve1:       optionalString(reserve1),
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
		APR:            computeAPR(feeRate0, feeRate1, a.cfg.WindowSeconds),
		CloseSqrtPrice: bigString(sqrtPrice),
		CloseTick:      closeTick,
		CloseLiquidity: bigString(liquidity),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenSequence(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.FirstSequence < min {
			min = entry.FirstSequence
		}
	}
	return min
}
