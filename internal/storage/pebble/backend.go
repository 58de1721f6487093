// Package pebble stores ledger records in a Pebble key-value database.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"swapv3/internal/storage"
)

var ErrDBClosed = errors.New("database is closed")

// Backend implements storage.Backend on top of a pebble.DB.
type Backend struct {
	db *pebble.DB
}

// Open opens or creates the database at path. A nil fs uses the OS
// filesystem.
func Open(path string, fs vfs.FS) (*Backend, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	if b.db == nil {
		return nil, ErrDBClosed
	}
	val, closer, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (b *Backend) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	if b.db == nil {
		return ErrDBClosed
	}
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: storage.PrefixEnd(prefix),
	})
	if err != nil {
		return fmt.Errorf("pebble iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Apply commits the batch with a synced write.
func (b *Backend) Apply(ctx context.Context, batch *storage.Batch) error {
	if b.db == nil {
		return ErrDBClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pb := b.db.NewBatch()
	defer pb.Close()

	for _, op := range batch.Ops {
		if op.Delete {
			if err := pb.Delete(op.Key, nil); err != nil {
				return fmt.Errorf("pebble batch delete: %w", err)
			}
			continue
		}
		if err := pb.Set(op.Key, op.Value, nil); err != nil {
			return fmt.Errorf("pebble batch set: %w", err)
		}
	}
	if err := pb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
