package checkpoint

import (
	"context"
	"sync"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

var _ output.CheckpointStore = (*MemoryStore)(nil)

// MemoryStore keeps checkpoints for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]entity.Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entity.Checkpoint)}
}

func (s *MemoryStore) Save(ctx context.Context, cp entity.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cp.ThreadID == "" {
		return errEmptyThread
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[cp.ThreadID] = cp.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, threadID string) (*entity.Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.items[threadID]
	if !ok {
		return nil, false, nil
	}
	out := cp.Clone()
	return &out, true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, threadID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
