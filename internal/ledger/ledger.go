// Package ledger loads the records an operation declares, runs the engine
// over them and commits the resulting changeset in one atomic write.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"swapv3/internal/engine"
	"swapv3/internal/instruction"
	"swapv3/internal/model"
	"swapv3/internal/storage"
)

var (
	ErrPoolExists   = errors.New("pool already initialized")
	ErrPoolNotFound = errors.New("pool not found")
	// ErrStorage wraps failures of the backend. Only these are safe to retry.
	ErrStorage = errors.New("storage failure")
)

// PoolParams are the immutable parameters of a new pool.
type PoolParams struct {
	Token0      common.Hash
	Token1      common.Hash
	FeeBps      uint32
	TickSpacing uint16
}

// Request is one operation against a pool.
type Request struct {
	// Pool is ignored for InitializePool, whose id derives from Params.
	Pool        common.Hash
	Owner       common.Hash
	Params      PoolParams
	Instruction instruction.Instruction
}

// Result describes a committed operation.
type Result struct {
	Sequence  uint64
	Pool      common.Hash
	Kind      instruction.Kind
	State     model.Pool
	Liquidity engine.LiquidityResult
	Collect   engine.CollectResult
	Swap      engine.SwapResult
}

// Ledger serializes operations and owns the backend writes.
type Ledger struct {
	backend storage.Backend
	sink    storage.EventSink
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

// New builds a Ledger. sink and metrics may be nil.
func New(backend storage.Backend, sink storage.EventSink, metrics *Metrics, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		backend: backend,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Execute runs req and commits its effects. On error nothing is written.
func (l *Ledger) Execute(ctx context.Context, req Request) (Result, error) {
	if req.Instruction == nil {
		return Result{}, fmt.Errorf("request without instruction")
	}
	kind := req.Instruction.Kind()
	start := l.now()

	l.mu.Lock()
	res, events, err := l.execute(ctx, req)
	l.mu.Unlock()

	l.metrics.observe(kind.String(), err, l.now().Sub(start))
	if err != nil {
		l.logger.Warn("operation rejected",
			zap.String("kind", kind.String()),
			zap.String("pool", req.Pool.Hex()),
			zap.Error(err),
		)
		return Result{}, err
	}
	if l.metrics != nil {
		l.metrics.Sequence.Set(float64(res.Sequence))
	}

	l.logger.Info("operation committed",
		zap.String("kind", kind.String()),
		zap.String("pool", res.Pool.Hex()),
		zap.Uint64("sequence", res.Sequence),
		zap.Int32("tick", res.State.CurrentTick),
		zap.String("liquidity", res.State.ActiveLiquidity.String()),
	)

	if l.sink != nil && len(events) > 0 {
		if err := l.sink.PutEvents(events); err != nil {
			// The commit stands; the event log can be rebuilt by replay.
			l.logger.Error("write events failed", zap.Uint64("sequence", res.Sequence), zap.Error(err))
		}
	}
	return res, nil
}

func (l *Ledger) execute(ctx context.Context, req Request) (Result, []model.TypedEvent, error) {
	res := Result{Pool: req.Pool, Kind: req.Instruction.Kind()}
	var (
		cs      *engine.Changeset
		decoded interface{}
		name    string
	)

	switch ix := req.Instruction.(type) {
	case instruction.InitializePool:
		p := req.Params
		res.Pool = PoolID(p.Token0, p.Token1, p.FeeBps, p.TickSpacing)
		if _, err := l.backend.Get(ctx, PoolKey(res.Pool)); err == nil {
			return Result{}, nil, fmt.Errorf("pool %s: %w", res.Pool.Hex(), ErrPoolExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return Result{}, nil, fmt.Errorf("load pool: %w: %w", ErrStorage, err)
		}
		pool, err := engine.Initialize(engine.InitParams{
			Token0:      p.Token0,
			Token1:      p.Token1,
			FeeBps:      p.FeeBps,
			TickSpacing: p.TickSpacing,
			SqrtPrice:   ix.InitialSqrtPrice,
		})
		if err != nil {
			return Result{}, nil, err
		}
		cs = &engine.Changeset{Pool: &pool}
		name = "Initialize"
		decoded = model.InitializeEventData{
			Token0:      pool.Token0.Hex(),
			Token1:      pool.Token1.Hex(),
			Fee:         pool.Fee,
			TickSpacing: pool.TickSpacing,
			SqrtPrice:   pool.SqrtPrice.String(),
			Tick:        pool.CurrentTick,
		}

	case instruction.AddLiquidity:
		rs, err := l.loadRange(ctx, req.Pool, req.Owner, ix.TickLower, ix.TickUpper)
		if err != nil {
			return Result{}, nil, err
		}
		if cs, res.Liquidity, err = engine.AddLiquidity(rs, req.Owner, ix.TickLower, ix.TickUpper, ix.LiquidityAmount); err != nil {
			return Result{}, nil, err
		}
		name = "Mint"
		decoded = model.MintEventData{
			Owner:     req.Owner.Hex(),
			TickLower: ix.TickLower,
			TickUpper: ix.TickUpper,
			Amount:    ix.LiquidityAmount.String(),
			Amount0:   res.Liquidity.Amount0.String(),
			Amount1:   res.Liquidity.Amount1.String(),
		}

	case instruction.RemoveLiquidity:
		rs, err := l.loadRange(ctx, req.Pool, req.Owner, ix.TickLower, ix.TickUpper)
		if err != nil {
			return Result{}, nil, err
		}
		if cs, res.Liquidity, err = engine.RemoveLiquidity(rs, req.Owner, ix.TickLower, ix.TickUpper, ix.LiquidityAmount); err != nil {
			return Result{}, nil, err
		}
		name = "Burn"
		decoded = model.BurnEventData{
			Owner:     req.Owner.Hex(),
			TickLower: ix.TickLower,
			TickUpper: ix.TickUpper,
			Amount:    ix.LiquidityAmount.String(),
			Amount0:   res.Liquidity.Amount0.String(),
			Amount1:   res.Liquidity.Amount1.String(),
		}

	case instruction.CollectFees:
		rs, err := l.loadRange(ctx, req.Pool, req.Owner, ix.TickLower, ix.TickUpper)
		if err != nil {
			return Result{}, nil, err
		}
		if cs, res.Collect, err = engine.Collect(rs, req.Owner, ix.TickLower, ix.TickUpper); err != nil {
			return Result{}, nil, err
		}
		name = "Collect"
		decoded = model.CollectEventData{
			Owner:     req.Owner.Hex(),
			TickLower: ix.TickLower,
			TickUpper: ix.TickUpper,
			Amount0:   res.Collect.Amount0.String(),
			Amount1:   res.Collect.Amount1.String(),
		}

	case instruction.Swap:
		params := engine.SwapParams{
			ZeroForOne:   true,
			AmountIn:     uint128.From64(ix.AmountIn),
			MinAmountOut: uint128.From64(ix.MinAmountOut),
		}
		var err error
		if cs, res.Swap, err = l.swap(ctx, req.Pool, params); err != nil {
			return Result{}, nil, err
		}
		name = "Swap"

	case instruction.SwapExactIn:
		params := engine.SwapParams{
			ZeroForOne:     ix.ZeroForOne,
			AmountIn:       uint128.From64(ix.AmountIn),
			MinAmountOut:   uint128.From64(ix.MinAmountOut),
			SqrtPriceLimit: ix.SqrtPriceLimit,
		}
		var err error
		if cs, res.Swap, err = l.swap(ctx, req.Pool, params); err != nil {
			return Result{}, nil, err
		}
		name = "Swap"

	default:
		return Result{}, nil, fmt.Errorf("unsupported instruction %T", req.Instruction)
	}

	res.State = *cs.Pool
	if name == "Swap" {
		decoded = model.SwapEventData{
			Sender:     req.Owner.Hex(),
			ZeroForOne: isZeroForOne(req.Instruction),
			AmountIn:   res.Swap.AmountIn.String(),
			AmountOut:  res.Swap.AmountOut.String(),
			FeeAmount:  res.Swap.FeeAmount.String(),
			SqrtPrice:  res.State.SqrtPrice.String(),
			Liquidity:  res.State.ActiveLiquidity.String(),
			Tick:       res.State.CurrentTick,
			Crossed:    res.Swap.TicksCrossed,
			State:      res.Swap.State.String(),
		}
	}

	seq, err := l.commit(ctx, res.Pool, cs)
	if err != nil {
		return Result{}, nil, err
	}
	res.Sequence = seq

	event := model.TypedEvent{
		Sequence:  seq,
		Pool:      res.Pool.Hex(),
		EventName: name,
		Timestamp: uint64(l.now().Unix()),
		Decoded:   decoded,
		PoolMeta:  model.MetaOf(res.State),
	}
	return res, []model.TypedEvent{event}, nil
}

func isZeroForOne(ix instruction.Instruction) bool {
	if v, ok := ix.(instruction.SwapExactIn); ok {
		return v.ZeroForOne
	}
	return true
}

func (l *Ledger) swap(ctx context.Context, pool common.Hash, params engine.SwapParams) (*engine.Changeset, engine.SwapResult, error) {
	p, err := l.Pool(ctx, pool)
	if err != nil {
		return nil, engine.SwapResult{}, err
	}
	ticks, err := l.Ticks(ctx, pool)
	if err != nil {
		return nil, engine.SwapResult{}, err
	}
	return engine.Swap(engine.RecordSet{Pool: p, Ticks: ticks}, params)
}

// loadRange reads the pool, both boundary ticks and the owner's position.
func (l *Ledger) loadRange(ctx context.Context, pool, owner common.Hash, tickLower, tickUpper int32) (engine.RecordSet, error) {
	p, err := l.Pool(ctx, pool)
	if err != nil {
		return engine.RecordSet{}, err
	}
	rs := engine.RecordSet{Pool: p}
	for _, idx := range []int32{tickLower, tickUpper} {
		var tick model.Tick
		ok, err := l.load(ctx, TickKey(pool, idx), &tick)
		if err != nil {
			return engine.RecordSet{}, err
		}
		if ok {
			rs.Ticks = append(rs.Ticks, tick)
		}
	}
	var pos model.Position
	ok, err := l.load(ctx, PositionKey(pool, owner, tickLower, tickUpper), &pos)
	if err != nil {
		return engine.RecordSet{}, err
	}
	if ok {
		rs.Positions = append(rs.Positions, pos)
	}
	return rs, nil
}

type binaryRecord interface {
	UnmarshalBinary(data []byte) error
}

func (l *Ledger) load(ctx context.Context, key []byte, into binaryRecord) (bool, error) {
	data, err := l.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %x: %w: %w", key, ErrStorage, err)
	}
	if err := into.UnmarshalBinary(data); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

// commit writes the changeset and the next sequence number in one batch.
func (l *Ledger) commit(ctx context.Context, pool common.Hash, cs *engine.Changeset) (uint64, error) {
	seq, err := l.Sequence(ctx)
	if err != nil {
		return 0, err
	}
	seq++

	batch := &storage.Batch{}
	if cs.Pool != nil {
		data, err := cs.Pool.MarshalBinary()
		if err != nil {
			return 0, fmt.Errorf("encode pool: %w", err)
		}
		batch.Set(PoolKey(pool), data)
	}
	for _, tick := range cs.Ticks {
		data, err := tick.MarshalBinary()
		if err != nil {
			return 0, fmt.Errorf("encode tick %d: %w", tick.Index, err)
		}
		batch.Set(TickKey(pool, tick.Index), data)
	}
	for _, idx := range cs.DeletedTicks {
		batch.Delete(TickKey(pool, idx))
	}
	for _, pos := range cs.Positions {
		data, err := pos.MarshalBinary()
		if err != nil {
			return 0, fmt.Errorf("encode position: %w", err)
		}
		batch.Set(PositionKey(pool, pos.Owner, pos.TickLower, pos.TickUpper), data)
	}
	for _, key := range cs.DeletedPositions {
		batch.Delete(PositionKey(pool, key.Owner, key.TickLower, key.TickUpper))
	}
	batch.Set([]byte(keySequence), binary.BigEndian.AppendUint64(nil, seq))

	if err := l.backend.Apply(ctx, batch); err != nil {
		return 0, fmt.Errorf("commit sequence %d: %w: %w", seq, ErrStorage, err)
	}
	return seq, nil
}

// Sequence returns the number of the last committed operation.
func (l *Ledger) Sequence(ctx context.Context) (uint64, error) {
	data, err := l.backend.Get(ctx, []byte(keySequence))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load sequence: %w: %w", ErrStorage, err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("sequence record is %d bytes: %w", len(data), model.ErrLayout)
	}
	return binary.BigEndian.Uint64(data), nil
}

// Pool returns the pool record.
func (l *Ledger) Pool(ctx context.Context, pool common.Hash) (model.Pool, error) {
	var p model.Pool
	ok, err := l.load(ctx, PoolKey(pool), &p)
	if err != nil {
		return model.Pool{}, err
	}
	if !ok {
		return model.Pool{}, fmt.Errorf("pool %s: %w", pool.Hex(), ErrPoolNotFound)
	}
	return p, nil
}

// Ticks returns every initialized tick of the pool in ascending order.
func (l *Ledger) Ticks(ctx context.Context, pool common.Hash) ([]model.Tick, error) {
	var ticks []model.Tick
	err := l.backend.Scan(ctx, TickPrefix(pool), func(key, value []byte) error {
		var t model.Tick
		if err := t.UnmarshalBinary(value); err != nil {
			return fmt.Errorf("decode %x: %w", key, err)
		}
		ticks = append(ticks, t)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrLayout) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ticks: %w: %w", ErrStorage, err)
	}
	return ticks, nil
}

// Positions returns every position of the pool.
func (l *Ledger) Positions(ctx context.Context, pool common.Hash) ([]model.Position, error) {
	var positions []model.Position
	err := l.backend.Scan(ctx, PositionPrefix(pool), func(key, value []byte) error {
		var p model.Position
		if err := p.UnmarshalBinary(value); err != nil {
			return fmt.Errorf("decode %x: %w", key, err)
		}
		positions = append(positions, p)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrLayout) {
			return nil, err
		}
		return nil, fmt.Errorf("scan positions: %w: %w", ErrStorage, err)
	}
	return positions, nil
}
