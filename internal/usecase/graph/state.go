package graph

import (
	"fmt"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

// State is the value threaded through the graph. It is never modified in
// place: Append and WithModel return a new State and leave the receiver as is.
type State struct {
	messages []entity.Message
	model    output.BoundModel
}

func NewState(messages ...entity.Message) State {
	return State{messages: entity.CloneMessages(messages)}
}

// Messages returns a copy of the conversation.
func (s State) Messages() []entity.Message {
	return entity.CloneMessages(s.messages)
}

func (s State) Len() int {
	return len(s.messages)
}

func (s State) Last() (entity.Message, bool) {
	if len(s.messages) == 0 {
		return entity.Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}

func (s State) Model() output.BoundModel {
	return s.model
}

func (s State) Append(msgs ...entity.Message) State {
	next := make([]entity.Message, len(s.messages), len(s.messages)+len(msgs))
	copy(next, s.messages)
	for _, msg := range msgs {
		next = append(next, msg.Clone())
	}
	return State{messages: next, model: s.model}
}

func (s State) WithModel(model output.BoundModel) State {
	return State{messages: s.messages, model: model}
}

// extends checks that s is prev with zero or more messages appended.
func (s State) extends(prev State) error {
	if len(s.messages) < len(prev.messages) {
		return fmt.Errorf("%w: history shrank from %d to %d messages",
			entity.ErrInvalidState, len(prev.messages), len(s.messages))
	}
	for i, msg := range prev.messages {
		if s.messages[i].ID != msg.ID || s.messages[i].Role != msg.Role || s.messages[i].Content != msg.Content {
			return fmt.Errorf("%w: message %d was modified", entity.ErrInvalidState, i)
		}
	}
	return nil
}

// ValidateConversation checks the shape a run must start from: exactly one
// system message, first, directly followed by a user message.
func ValidateConversation(messages []entity.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: conversation is empty", entity.ErrInvalidState)
	}
	if messages[0].Role != entity.RoleSystem {
		return fmt.Errorf("%w: first message must be a system message, got %s",
			entity.ErrInvalidState, messages[0].Role)
	}
	if len(messages) < 2 || messages[1].Role != entity.RoleUser {
		return fmt.Errorf("%w: system message must be followed by a user message", entity.ErrInvalidState)
	}
	for i, msg := range messages[1:] {
		if msg.Role == entity.RoleSystem {
			return fmt.Errorf("%w: unexpected system message at position %d", entity.ErrInvalidState, i+1)
		}
	}
	return nil
}
