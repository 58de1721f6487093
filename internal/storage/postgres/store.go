package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapv3/internal/model"
	"swapv3/internal/storage"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	key        bytea PRIMARY KEY,
	value      bytea NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS journal_state (
	name          text PRIMARY KEY,
	last_sequence bigint NOT NULL,
	updated_at    timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool                text NOT NULL,
	window_size_seconds bigint NOT NULL,
	window_start_ts     timestamptz NOT NULL,
	window_end_ts       timestamptz NOT NULL,
	first_sequence      bigint NOT NULL,
	last_sequence       bigint NOT NULL,
	swap_count          bigint NOT NULL,
	mint_count          bigint NOT NULL,
	burn_count          bigint NOT NULL,
	collect_count       bigint NOT NULL,
	volume0             numeric NOT NULL,
	volume1             numeric NOT NULL,
	fee0                numeric NOT NULL,
	fee1                numeric NOT NULL,
	reserve0            numeric,
	reserve1            numeric,
	fee_rate0           numeric,
	fee_rate1           numeric,
	apr                 numeric,
	close_sqrt_price    numeric NOT NULL,
	close_tick          integer NOT NULL,
	close_liquidity     numeric NOT NULL,
	created_at          timestamptz NOT NULL DEFAULT now(),
	updated_at          timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (pool, window_size_seconds, window_start_ts)
);
`

// Store provides Postgres persistence for ledger records and replay state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	row := s.pool.QueryRow(ctx, `SELECT value FROM ledger_records WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Store) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	var (
		rows pgx.Rows
		err  error
	)
	if end := storage.PrefixEnd(prefix); end != nil {
		rows, err = s.pool.Query(ctx, `SELECT key, value FROM ledger_records WHERE key >= $1 AND key < $2 ORDER BY key`, prefix, end)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT key, value FROM ledger_records WHERE key >= $1 ORDER BY key`, prefix)
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Apply writes the batch in one transaction.
func (s *Store) Apply(ctx context.Context, batch *storage.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, op := range batch.Ops {
		if op.Delete {
			b.Queue(`DELETE FROM ledger_records WHERE key=$1`, op.Key)
			continue
		}
		b.Queue(`
			INSERT INTO ledger_records (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = now()
		`, op.Key, op.Value)
	}

	br := tx.SendBatch(ctx, b)
	for range batch.Ops {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PutWindowMetrics inserts or updates window metrics.
func (s *Store) PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool, window_size_seconds, window_start_ts, window_end_ts,
				first_sequence, last_sequence, swap_count, mint_count, burn_count, collect_count,
				volume0, volume1, fee0, fee1, reserve0, reserve1, fee_rate0, fee_rate1, apr,
				close_sqrt_price, close_tick, close_liquidity, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now(),now())
			ON CONFLICT (pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				first_sequence = EXCLUDED.first_sequence,
				last_sequence = EXCLUDED.last_sequence,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				collect_count = EXCLUDED.collect_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				apr = EXCLUDED.apr,
				close_sqrt_price = EXCLUDED.close_sqrt_price,
				close_tick = EXCLUDED.close_tick,
				close_liquidity = EXCLUDED.close_liquidity,
				updated_at = now()
		`,
			m.Pool,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.FirstSequence),
			int64(m.LastSequence),
			int64(m.SwapCount),
			int64(m.MintCount),
			int64(m.BurnCount),
			int64(m.CollectCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.Reserve0,
			m.Reserve1,
			m.FeeRate0,
			m.FeeRate1,
			m.APR,
			m.CloseSqrtPrice,
			m.CloseTick,
			m.CloseLiquidity,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_sequence FROM journal_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts last_sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal_state (name, last_sequence, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_sequence = EXCLUDED.last_sequence, updated_at = now()
	`, name, int64(seq))
	return err
}
