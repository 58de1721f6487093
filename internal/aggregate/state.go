package aggregate

import (
	"context"

	"swapv3/internal/model"
)

// StateStore persists the last event sequence whose windows are final.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, seq uint64) error
}

// Sink receives closed windows. Writing a window again replaces it.
type Sink interface {
	PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}
