package graph

import "react-agent/internal/domain/entity"

// Route sends the run to the tools node when the latest assistant message
// requests tools, and to END otherwise.
func Route(s State) string {
	last, ok := s.Last()
	if !ok {
		return END
	}
	return RouteMessage(last)
}

func RouteMessage(msg entity.Message) string {
	if msg.Role == entity.RoleAssistant && msg.HasToolCalls() {
		return NodeTools
	}
	return END
}
