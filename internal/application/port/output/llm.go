package output

import (
	"context"

	"react-agent/internal/domain/entity"
)

// ModelProvider constructs chat model clients. Construction must not touch
// the network; the first request happens on Invoke.
type ModelProvider interface {
	NewChatModel() (ChatModel, error)
}

type ChatModel interface {
	BindTools(tools []entity.ToolDefinition) BoundModel
}

// BoundModel is a chat model that advertises a fixed set of tools.
type BoundModel interface {
	Invoke(ctx context.Context, messages []entity.Message) (entity.Message, error)
}

type ModelParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
	TopK        int
}
