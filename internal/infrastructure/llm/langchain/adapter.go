// Package langchain serves chat models through langchaingo's provider
// abstraction, currently backed by its OpenAI client.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

var (
	_ output.ModelProvider = (*Provider)(nil)
	_ output.ChatModel     = (*ChatModel)(nil)
	_ output.BoundModel    = (*boundModel)(nil)
)

// generator is the subset of llms.Model the adapter calls.
type generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Params  output.ModelParams
	Logger  output.LoggerPort
}

type Provider struct {
	cfg Config
	// newGenerator is swapped in tests.
	newGenerator func(Config) (generator, error)
}

func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg, newGenerator: newOpenAIGenerator}
}

func newOpenAIGenerator(cfg Config) (generator, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Params.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	return lcopenai.New(opts...)
}

func (p *Provider) NewChatModel() (output.ChatModel, error) {
	if p.cfg.APIKey == "" {
		return nil, errors.New("langchain: api key is empty")
	}
	if p.cfg.Params.Model == "" {
		return nil, errors.New("langchain: model is empty")
	}
	gen, err := p.newGenerator(p.cfg)
	if err != nil {
		return nil, fmt.Errorf("langchain: create client: %w", err)
	}
	return &ChatModel{gen: gen, cfg: p.cfg}, nil
}

type ChatModel struct {
	gen generator
	cfg Config
}

func (m *ChatModel) BindTools(tools []entity.ToolDefinition) output.BoundModel {
	return &boundModel{model: m, tools: convertTools(tools)}
}

type boundModel struct {
	model *ChatModel
	tools []llms.Tool
}

func (b *boundModel) Invoke(ctx context.Context, messages []entity.Message) (entity.Message, error) {
	p := b.model.cfg.Params
	opts := []llms.CallOption{
		llms.WithTemperature(float64(p.Temperature)),
		llms.WithTopP(float64(p.TopP)),
	}
	if p.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.MaxTokens))
	}
	if p.TopK > 0 {
		opts = append(opts, llms.WithTopK(p.TopK))
	}
	if len(b.tools) > 0 {
		opts = append(opts, llms.WithTools(b.tools))
	}

	if l := b.model.cfg.Logger; l != nil {
		l.Debug("Generating content", "model", p.Model, "messagesCount", len(messages), "toolsCount", len(b.tools))
	}

	resp, err := b.model.gen.GenerateContent(ctx, convertMessages(messages), opts...)
	if err != nil {
		return entity.Message{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return entity.Message{}, errors.New("no choices in response")
	}
	return convertChoice(resp.Choices[0]), nil
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case entity.RoleUser:
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case entity.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			result = append(result, mc)
		case entity.RoleTool:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		}
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name.String(),
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertChoice(choice *llms.ContentChoice) entity.Message {
	calls := make([]entity.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + entity.NewMessageID()
		}
		calls = append(calls, entity.ToolCall{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return entity.NewAssistantMessage(choice.Content, calls...)
}
