package output

import (
	"context"

	"react-agent/internal/domain/entity"
)

// CheckpointStore persists conversation state by thread identifier.
// Implementations do not serialize concurrent runs of one thread.
type CheckpointStore interface {
	Save(ctx context.Context, cp entity.Checkpoint) error
	Load(ctx context.Context, threadID string) (*entity.Checkpoint, bool, error)
	// Delete removes the checkpoint of a thread. Deleting a missing thread is not an error.
	Delete(ctx context.Context, threadID string) error
	Close() error
}
