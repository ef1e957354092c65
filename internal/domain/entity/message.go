package entity

import "github.com/google/uuid"

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn of a conversation. Messages are treated as values:
// once appended to a conversation they are never changed.
type Message struct {
	ID         string      `json:"id" bson:"id"`
	Role       MessageRole `json:"role" bson:"role"`
	Content    string      `json:"content" bson:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
	Name       string      `json:"name,omitempty" bson:"name,omitempty"`
}

// ToolCall is a tool invocation requested by the assistant. Arguments holds
// the raw JSON object produced by the model.
type ToolCall struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	Arguments string `json:"arguments" bson:"arguments"`
}

type ToolDefinition struct {
	Name        ToolName
	Description string
	Parameters  map[string]interface{}
}

func NewMessageID() string {
	return uuid.NewString()
}

func NewSystemMessage(content string) Message {
	return Message{ID: NewMessageID(), Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{ID: NewMessageID(), Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string, calls ...ToolCall) Message {
	msg := Message{ID: NewMessageID(), Role: RoleAssistant, Content: content}
	if len(calls) > 0 {
		msg.ToolCalls = append([]ToolCall(nil), calls...)
	}
	return msg
}

func NewToolMessage(callID, name, content string) Message {
	return Message{
		ID:         NewMessageID(),
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		Name:       name,
	}
}

func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a copy that shares no memory with m.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}

func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg.Clone()
	}
	return out
}

type MessageStats struct {
	Total     int
	User      int
	Assistant int
	Tool      int
}

func CountMessages(messages []Message) MessageStats {
	stats := MessageStats{Total: len(messages)}
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			stats.User++
		case RoleAssistant:
			stats.Assistant++
		case RoleTool:
			stats.Tool++
		}
	}
	return stats
}
