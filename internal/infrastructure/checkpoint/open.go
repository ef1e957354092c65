// Package checkpoint persists conversation state between runs.
package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

// Open selects a store from a DB_URI value:
//
//	"", "memory"                  in-process map
//	file://<dir>                  JSON files under dir
//	mongodb://..., mongodb+srv:// MongoDB collection
func Open(ctx context.Context, uri string) (output.CheckpointStore, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "" || strings.EqualFold(uri, "memory") || strings.EqualFold(uri, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(uri, "file://"):
		store, err := NewFileStore(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", entity.ErrCheckpoint, err)
		}
		return store, nil
	case strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://"):
		store, err := NewMongoStore(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", entity.ErrCheckpoint, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unsupported checkpoint uri %q", entity.ErrConfiguration, uri)
	}
}
