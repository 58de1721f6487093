// Package journal replays an operation journal against a ledger.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"swapv3/internal/ledger"
	"swapv3/internal/model"
	"swapv3/internal/storage"
	"swapv3/internal/swaperr"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	JournalPath  string
	FromSequence uint64
	ToSequence   uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Executor applies one request. *ledger.Ledger satisfies it.
type Executor interface {
	Execute(ctx context.Context, req ledger.Request) (ledger.Result, error)
}

// FailureSink receives rejected operations.
type FailureSink interface {
	PutFailures(failures []model.OperationFailure) error
}

// Stats summarizes a replay.
type Stats struct {
	Applied  int    `json:"applied"`
	Rejected int    `json:"rejected"`
	Skipped  int    `json:"skipped"`
	Last     uint64 `json:"last_sequence"`
}

// Runner reads journal records and feeds them to an Executor in sequence order.
type Runner struct {
	cfg        RunConfig
	exec       Executor
	failures   FailureSink
	checkpoint CheckpointStore
	logger     *zap.Logger
}

// NewRunner builds a Runner. failures and checkpoint may be nil.
func NewRunner(cfg RunConfig, exec Executor, failures FailureSink, checkpoint CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		exec:       exec,
		failures:   failures,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run replays the journal at cfg.JournalPath.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	ops, err := storage.ReadOperations(r.cfg.JournalPath)
	if err != nil {
		return Stats{}, err
	}
	return r.Replay(ctx, ops)
}

// Replay executes ops whose sequence falls in the configured window, resuming
// after the checkpoint when one exists. Rejected operations are recorded and
// skipped; storage failures are retried and then abort the replay.
func (r *Runner) Replay(ctx context.Context, ops []model.OperationRecord) (Stats, error) {
	var stats Stats
	if r.exec == nil {
		return stats, fmt.Errorf("executor is nil")
	}
	if r.cfg.BatchSize == 0 {
		return stats, fmt.Errorf("batch size must be greater than zero")
	}
	if len(ops) == 0 {
		r.logger.Info("journal is empty")
		return stats, nil
	}

	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Sequence < ops[j].Sequence })

	from := r.cfg.FromSequence
	to := r.cfg.ToSequence
	if to == 0 {
		to = ops[len(ops)-1].Sequence
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return stats, err
		}
		if ok && last >= from {
			if last == ^uint64(0) {
				return stats, nil
			}
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_sequence", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return stats, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	next := countBefore(ops, from)
	for _, seqRange := range ranges {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		var rejected []model.OperationFailure
		applied := 0
		for ; next < len(ops) && ops[next].Sequence <= seqRange.To; next++ {
			op := ops[next]
			failure, err := r.apply(ctx, op)
			if err != nil {
				return stats, fmt.Errorf("replay sequence %d: %w", op.Sequence, err)
			}
			if failure != nil {
				rejected = append(rejected, *failure)
				continue
			}
			applied++
		}

		if r.failures != nil && len(rejected) > 0 {
			if err := r.failures.PutFailures(rejected); err != nil {
				return stats, fmt.Errorf("store failures: %w", err)
			}
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, seqRange.To); err != nil {
				return stats, err
			}
		}

		stats.Applied += applied
		stats.Rejected += len(rejected)
		stats.Last = seqRange.To
		r.logger.Info("batch complete",
			zap.Int("applied", applied),
			zap.Int("rejected", len(rejected)),
			zap.Uint64("from", seqRange.From),
			zap.Uint64("to", seqRange.To),
		)
	}

	stats.Skipped = countBefore(ops, from) + len(ops) - next
	return stats, nil
}

// apply executes one record. A non-nil failure means the operation was
// rejected; a non-nil error means the replay cannot continue.
func (r *Runner) apply(ctx context.Context, op model.OperationRecord) (*model.OperationFailure, error) {
	req, err := BuildRequest(op)
	if err != nil {
		return r.reject(op, "", err), nil
	}

	err = withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, isRetryable, func(ctx context.Context) error {
		_, err := r.exec.Execute(ctx, req)
		if err != nil && isRetryable(err) {
			r.logger.Warn("execute failed", zap.Uint64("sequence", op.Sequence), zap.Error(err))
		}
		return err
	})
	switch {
	case err == nil:
		return nil, nil
	case isRetryable(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return r.reject(op, req.Instruction.Kind().String(), err), nil
	}
}

func (r *Runner) reject(op model.OperationRecord, kind string, err error) *model.OperationFailure {
	failure := &model.OperationFailure{
		Sequence: op.Sequence,
		Pool:     op.Pool,
		Kind:     kind,
		Error:    err.Error(),
	}
	if code, ok := swaperr.Code(err); ok {
		failure.Code = &code
	}
	r.logger.Info("operation rejected", zap.Uint64("sequence", op.Sequence), zap.String("kind", kind), zap.Error(err))
	return failure
}

func isRetryable(err error) bool {
	return errors.Is(err, ledger.ErrStorage)
}

func countBefore(ops []model.OperationRecord, from uint64) int {
	return sort.Search(len(ops), func(i int) bool { return ops[i].Sequence >= from })
}
