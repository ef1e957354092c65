package input

import (
	"context"

	"react-agent/internal/domain/entity"
)

type RunResult struct {
	Messages   []entity.Message
	Iterations int
	Resumed    bool
}

type ConversationRunner interface {
	Run(ctx context.Context, threadID string, messages []entity.Message) (*RunResult, error)
}
