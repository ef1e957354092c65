package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or invalid settings and model client
	// construction failures.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelInvocation marks transport or provider failures of the model.
	ErrModelInvocation = errors.New("model invocation error")

	// ErrToolExecution marks unknown tools, bad arguments and tool failures.
	ErrToolExecution = errors.New("tool execution error")

	// ErrLoopBudgetExceeded is returned when the assistant keeps requesting
	// tools past the configured iteration limit.
	ErrLoopBudgetExceeded = errors.New("loop budget exceeded")

	// ErrInvalidState marks a conversation that breaks the message invariants.
	ErrInvalidState = errors.New("invalid conversation state")

	ErrCheckpoint = errors.New("checkpoint error")
)

// ToolError carries the tool and call that failed.
// Use errors.As to extract it from a wrapped error chain.
type ToolError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolError) Error() string {
	if e.CallID != "" {
		return fmt.Sprintf("tool %s (call %s): %v", e.Tool, e.CallID, e.Err)
	}
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

func (e *ToolError) Is(target error) bool {
	return target == ErrToolExecution
}

// ErrorKind names the error category for logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrModelInvocation):
		return "model_invocation"
	case errors.Is(err, ErrToolExecution):
		return "tool_execution"
	case errors.Is(err, ErrLoopBudgetExceeded):
		return "loop_budget_exceeded"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrCheckpoint):
		return "checkpoint"
	default:
		return "unknown"
	}
}
