package storage

import (
	"context"

	"pairRouter/internal/model"
)

// Sink receives committed ledger events.
type Sink interface {
	PutEventBatch(ctx context.Context, events []model.Event) error
}
