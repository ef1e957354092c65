package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"

	goopenai "github.com/sashabaranov/go-openai"
)

var (
	_ output.ModelProvider = (*Provider)(nil)
	_ output.ChatModel     = (*ChatModel)(nil)
	_ output.BoundModel    = (*boundModel)(nil)
)

// Config carries the connection settings and the sampling parameters.
// Params.TopK is ignored; chat completions have no top-k.
type Config struct {
	APIKey  string
	BaseURL string
	Params  output.ModelParams
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Params:  output.ModelParams{Model: model, TopP: 1},
	}
}

// Provider builds chat models against an OpenAI-compatible endpoint.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) NewChatModel() (output.ChatModel, error) {
	if p.cfg.APIKey == "" {
		return nil, errors.New("openai: api key is empty")
	}
	if p.cfg.Params.Model == "" {
		return nil, errors.New("openai: model is empty")
	}

	config := goopenai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		config.BaseURL = p.cfg.BaseURL
	}
	if p.cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{base: http.DefaultTransport, logger: p.cfg.Logger},
		}
	}

	return &ChatModel{
		client: goopenai.NewClientWithConfig(config),
		cfg:    p.cfg,
	}, nil
}

type ChatModel struct {
	client *goopenai.Client
	cfg    Config
}

func (m *ChatModel) BindTools(tools []entity.ToolDefinition) output.BoundModel {
	return &boundModel{model: m, tools: convertTools(tools)}
}

type boundModel struct {
	model *ChatModel
	tools []goopenai.Tool
}

func (b *boundModel) Invoke(ctx context.Context, messages []entity.Message) (entity.Message, error) {
	cfg := b.model.cfg
	req := goopenai.ChatCompletionRequest{
		Model:       cfg.Params.Model,
		Messages:    convertMessages(messages),
		Temperature: cfg.Params.Temperature,
		MaxTokens:   cfg.Params.MaxTokens,
		TopP:        cfg.Params.TopP,
	}
	if len(b.tools) > 0 {
		req.Tools = b.tools
		req.ToolChoice = "auto"
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("Creating chat completion",
			"model", cfg.Params.Model,
			"messagesCount", len(req.Messages),
			"toolsCount", len(req.Tools))
	}

	resp, err := b.model.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return entity.Message{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return entity.Message{}, errors.New("no choices in response")
	}

	return convertResponseMessage(resp.Choices[0].Message), nil
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	var requestData map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &requestData)
	}

	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", requestData,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return resp, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
	)
	return resp, nil
}

func convertMessages(messages []entity.Message) []goopenai.ChatCompletionMessage {
	result := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := goopenai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if msg.Role == entity.RoleTool && msg.Name != "" {
			oaiMsg.Name = msg.Name
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []goopenai.Tool {
	result := make([]goopenai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name.String(),
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

// convertResponseMessage always yields an assistant message. Tool calls that
// arrive without an id get a fresh one so results can be correlated.
func convertResponseMessage(msg goopenai.ChatCompletionMessage) entity.Message {
	calls := make([]entity.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + entity.NewMessageID()
		}
		calls = append(calls, entity.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return entity.NewAssistantMessage(msg.Content, calls...)
}
