package storage

import (
	"context"
	"errors"

	"swapv3/internal/model"
)

// ErrNotFound is returned by Backend.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Backend is a key-value store whose batches are applied atomically.
type Backend interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Scan calls fn for every key with prefix, in ascending key order.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error
	Apply(ctx context.Context, batch *Batch) error
	Close() error
}

// EventSink receives the events of committed operations.
type EventSink interface {
	PutEvents(events []model.TypedEvent) error
}

// Op is one write of a Batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch collects writes to apply in one step.
type Batch struct {
	Ops []Op
}

func (b *Batch) Set(key, value []byte) {
	b.Ops = append(b.Ops, Op{Key: key, Value: value})
}

func (b *Batch) Delete(key []byte) {
	b.Ops = append(b.Ops, Op{Key: key, Delete: true})
}

func (b *Batch) Len() int { return len(b.Ops) }

// PrefixEnd returns the smallest key greater than every key with prefix,
// or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
