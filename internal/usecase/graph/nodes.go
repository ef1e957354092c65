package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

// ToolErrorPolicy decides what a failing tool call does to the run.
type ToolErrorPolicy string

const (
	// ToolErrorFatal ends the run with the tool error.
	ToolErrorFatal ToolErrorPolicy = "fatal"
	// ToolErrorInBand records "Error: ..." as the tool result so the
	// assistant can react to it.
	ToolErrorInBand ToolErrorPolicy = "in_band"
)

func ParseToolErrorPolicy(s string) (ToolErrorPolicy, error) {
	switch p := ToolErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ToolErrorFatal, nil
	case ToolErrorFatal, ToolErrorInBand:
		return p, nil
	default:
		return "", fmt.Errorf("unknown tool error policy %q", s)
	}
}

// Nodes holds the steps of the assistant loop.
type Nodes struct {
	models output.ModelProvider
	tools  output.ToolRegistry
	logger output.LoggerPort
	policy ToolErrorPolicy
}

func NewNodes(models output.ModelProvider, tools output.ToolRegistry, logger output.LoggerPort, policy ToolErrorPolicy) *Nodes {
	if logger == nil {
		logger = nopLogger{}
	}
	if policy == "" {
		policy = ToolErrorFatal
	}
	return &Nodes{
		models: models,
		tools:  tools,
		logger: logger,
		policy: policy,
	}
}

// Initialize builds the model client and binds the registered tools to it.
// A state that already carries a model is returned unchanged.
func (n *Nodes) Initialize(ctx context.Context, s State) (State, error) {
	if err := ValidateConversation(s.messages); err != nil {
		return State{}, err
	}
	if s.Model() != nil {
		return s, nil
	}

	model, err := n.models.NewChatModel()
	if err != nil {
		n.logger.Error("LLM initialization failed", "error", err)
		return State{}, fmt.Errorf("%w: initialize model: %w", entity.ErrConfiguration, err)
	}

	defs := n.tools.Definitions()
	n.logger.Debug("LLM initialized", "tools", len(defs))
	return s.WithModel(model.BindTools(defs)), nil
}

// Assistant sends the whole conversation to the model and appends its reply.
func (n *Nodes) Assistant(ctx context.Context, s State) (State, error) {
	model := s.Model()
	if model == nil {
		return State{}, fmt.Errorf("%w: assistant step without an initialized model", entity.ErrInvalidState)
	}
	if s.Len() == 0 {
		return State{}, fmt.Errorf("%w: assistant step with an empty conversation", entity.ErrInvalidState)
	}

	start := time.Now()
	reply, err := model.Invoke(ctx, s.Messages())
	if err != nil {
		n.logger.Error("LLM failed to generate response",
			"error", err,
			"messages", s.Len(),
			"duration_ms", time.Since(start).Milliseconds())
		return State{}, fmt.Errorf("%w: %w", entity.ErrModelInvocation, err)
	}

	reply.Role = entity.RoleAssistant
	if reply.ID == "" {
		reply.ID = entity.NewMessageID()
	}
	n.logger.Debug("LLM responded",
		"tool_calls", len(reply.ToolCalls),
		"content_len", len(reply.Content),
		"duration_ms", time.Since(start).Milliseconds())

	return s.Append(reply), nil
}

// Tools executes every tool call of the last assistant message in request
// order and appends one tool result per call.
func (n *Nodes) Tools(ctx context.Context, s State) (State, error) {
	last, ok := s.Last()
	if !ok || last.Role != entity.RoleAssistant || !last.HasToolCalls() {
		return State{}, fmt.Errorf("%w: tools step without pending tool calls", entity.ErrInvalidState)
	}

	results := make([]entity.Message, 0, len(last.ToolCalls))
	for _, tc := range last.ToolCalls {
		content, err := n.execute(ctx, tc)
		if err != nil {
			toolErr := &entity.ToolError{Tool: tc.Name, CallID: tc.ID, Err: err}
			if n.policy == ToolErrorFatal {
				n.logger.Error("Tool execution failed", "name", tc.Name, "call_id", tc.ID, "args", tc.Arguments, "error", err)
				return State{}, toolErr
			}
			n.logger.Warn("Tool execution failed, reporting to assistant", "name", tc.Name, "call_id", tc.ID, "error", err)
			content = "Error: " + err.Error()
		}
		results = append(results, entity.NewToolMessage(tc.ID, tc.Name, content))
	}

	return s.Append(results...), nil
}

func (n *Nodes) execute(ctx context.Context, tc entity.ToolCall) (string, error) {
	name, err := entity.ParseToolName(tc.Name)
	if err != nil {
		return "", err
	}
	tool, ok := n.tools.Get(name)
	if !ok {
		return "", fmt.Errorf("tool %q is not registered", name)
	}

	n.logger.Info("Executing tool", "name", tc.Name, "call_id", tc.ID, "args", tc.Arguments)
	result, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		return "", err
	}
	n.logger.Debug("Tool completed", "name", tc.Name, "call_id", tc.ID, "result", result)
	return result, nil
}
