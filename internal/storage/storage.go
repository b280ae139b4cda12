package storage

import (
	"context"

	"lpIncentive/internal/model"
)

// Storage defines a sink for hook events.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.HookEvent) error
}

// Multi fans a batch out to several sinks, stopping at the first error.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []model.HookEvent) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
