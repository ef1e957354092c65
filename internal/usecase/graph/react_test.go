package graph

import (
	"context"
	"errors"
	"testing"

	"react-agent/internal/adapter/tool"
	"react-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initialMessages(query string) []entity.Message {
	return []entity.Message{
		entity.NewSystemMessage("You are a helpful assistant tasked with performing arithmetic."),
		entity.NewUserMessage(query),
	}
}

func newGraph(t *testing.T, model *scriptedModel, opts Options) *Compiled {
	t.Helper()
	g, err := NewReactGraph(model, arithmeticRegistry(), opts)
	require.NoError(t, err)
	return g
}

func TestReactGraph_SingleToolRoundTrip(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("call_1", "multiply", `{"a":2,"b":21}`)),
		entity.NewAssistantMessage("2 times 21 is 42."),
	}}
	g := newGraph(t, model, Options{})

	result, err := g.Run(context.Background(), "", initialMessages("what is 2 times 21?"))
	require.NoError(t, err)

	msgs := result.Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Equal(t, entity.RoleUser, msgs[1].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[2].Role)
	assert.True(t, msgs[2].HasToolCalls())
	assert.Equal(t, entity.RoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, "42", msgs[3].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[4].Role)
	assert.False(t, msgs[4].HasToolCalls())
	assert.Contains(t, msgs[4].Content, "42")

	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 1, model.inits)
	require.Len(t, model.requests, 2)
	assert.Len(t, model.requests[0], 2)
	assert.Len(t, model.requests[1], 4)

	require.Len(t, model.bound, 3)
	assert.Equal(t, entity.ToolAdd, model.bound[0].Name)
}

func TestReactGraph_TwoSequentialToolRoundTrips(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "add", `{"a":3,"b":4}`)),
		entity.NewAssistantMessage("", call("c2", "multiply", `{"a":7,"b":2}`)),
		entity.NewAssistantMessage("The result is 14."),
	}}
	g := newGraph(t, model, Options{})

	result, err := g.Run(context.Background(), "", initialMessages("add 3 and 4, then multiply by 2"))
	require.NoError(t, err)

	stats := entity.CountMessages(result.Messages)
	assert.Equal(t, entity.MessageStats{Total: 7, User: 1, Assistant: 3, Tool: 2}, stats)
	assert.Equal(t, "7", result.Messages[3].Content)
	assert.Equal(t, "14", result.Messages[5].Content)
	assert.Equal(t, 3, result.Iterations)
}

func TestReactGraph_ParallelCallsCorrelated(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("",
			call("c-div", "divide", `{"a":9,"b":3}`),
			call("c-add", "add", `{"a":1,"b":1}`),
			call("c-mul", "multiply", `{"a":5,"b":5}`),
		),
		entity.NewAssistantMessage("3, 2 and 25"),
	}}
	g := newGraph(t, model, Options{})

	result, err := g.Run(context.Background(), "", initialMessages("compute three things"))
	require.NoError(t, err)

	require.Len(t, result.Messages, 7)
	want := map[string]string{"c-div": "3", "c-add": "2", "c-mul": "25"}
	got := map[string]string{}
	order := []string{}
	for _, msg := range result.Messages[3:6] {
		require.Equal(t, entity.RoleTool, msg.Role)
		got[msg.ToolCallID] = msg.Content
		order = append(order, msg.ToolCallID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"c-div", "c-add", "c-mul"}, order)
	assert.Equal(t, 2, model.calls())
}

func TestReactGraph_HistoryIsAppendOnly(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "add", `{"a":3,"b":4}`)),
		entity.NewAssistantMessage("", call("c2", "multiply", `{"a":7,"b":2}`)),
		entity.NewAssistantMessage("14"),
	}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})

	_, err := g.Run(context.Background(), "thread-1", initialMessages("add 3 and 4, then multiply by 2"))
	require.NoError(t, err)

	require.NotEmpty(t, store.history)
	prev := store.history[0].Messages
	for _, cp := range store.history[1:] {
		require.GreaterOrEqual(t, len(cp.Messages), len(prev))
		assert.Equal(t, prev, cp.Messages[:len(prev)])
		prev = cp.Messages
	}
	assert.Equal(t, END, store.history[len(store.history)-1].Next)
}

func TestReactGraph_LoopBudgetExceeded(t *testing.T) {
	loop := entity.NewAssistantMessage("", call("again", "add", `{"a":1,"b":1}`))
	model := &scriptedModel{repeat: &loop}
	g := newGraph(t, model, Options{MaxIterations: 3})

	_, err := g.Run(context.Background(), "", initialMessages("never stop"))

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrLoopBudgetExceeded)
	assert.Equal(t, 3, model.calls())
}

func TestReactGraph_ToolFailureIsFatalByDefault(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("call_9", "divide", `{"a":1,"b":0}`)),
		entity.NewAssistantMessage("unreachable"),
	}}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", initialMessages("divide 1 by 0"))

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrToolExecution)
	assert.ErrorIs(t, err, tool.ErrDivisionByZero)
	var toolErr *entity.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "call_9", toolErr.CallID)
	assert.Equal(t, "divide", toolErr.Tool)
	assert.Equal(t, 1, model.calls())
}

func TestReactGraph_ToolFailureInBand(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("call_9", "divide", `{"a":1,"b":0}`)),
		entity.NewAssistantMessage("You cannot divide by zero."),
	}}
	g := newGraph(t, model, Options{ToolErrorPolicy: ToolErrorInBand})

	result, err := g.Run(context.Background(), "", initialMessages("divide 1 by 0"))
	require.NoError(t, err)

	require.Len(t, result.Messages, 5)
	assert.Equal(t, "call_9", result.Messages[3].ToolCallID)
	assert.Equal(t, "Error: division by zero", result.Messages[3].Content)
	assert.Equal(t, 2, model.calls())
}

func TestReactGraph_UnknownToolRejected(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "subtract", `{"a":1,"b":1}`)),
	}}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", initialMessages("subtract"))

	assert.ErrorIs(t, err, entity.ErrToolExecution)
	assert.Contains(t, err.Error(), "subtract")
}

func TestReactGraph_BadToolArguments(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "add", `{"a":"one","b":1}`)),
	}}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", initialMessages("add one and one"))

	assert.ErrorIs(t, err, entity.ErrToolExecution)
}

func TestReactGraph_ModelFailure(t *testing.T) {
	cause := errors.New("connection reset")
	model := &scriptedModel{errAt: map[int]error{0: cause}}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", initialMessages("hi"))

	assert.ErrorIs(t, err, entity.ErrModelInvocation)
	assert.ErrorIs(t, err, cause)
}

func TestReactGraph_InitializationFailure(t *testing.T) {
	model := &scriptedModel{initErr: errors.New("api key is empty")}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", initialMessages("hi"))

	assert.ErrorIs(t, err, entity.ErrConfiguration)
	assert.Equal(t, 0, model.calls())
}

func TestReactGraph_InvalidInitialConversation(t *testing.T) {
	model := &scriptedModel{}
	g := newGraph(t, model, Options{})

	_, err := g.Run(context.Background(), "", []entity.Message{entity.NewUserMessage("no system prompt")})

	assert.ErrorIs(t, err, entity.ErrInvalidState)
	assert.Equal(t, 0, model.inits)
}

func TestReactGraph_CanceledContext(t *testing.T) {
	model := &scriptedModel{}
	g := newGraph(t, model, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Run(ctx, "", initialMessages("hi"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, model.calls())
}

func TestReactGraph_ResumeCompletedThreadIsIdempotent(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("call_1", "multiply", `{"a":2,"b":21}`)),
		entity.NewAssistantMessage("42"),
	}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})
	input := initialMessages("what is 2 times 21?")

	first, err := g.Run(context.Background(), "1", input)
	require.NoError(t, err)
	assert.False(t, first.Resumed)

	second, err := g.Run(context.Background(), "1", input)
	require.NoError(t, err)

	assert.True(t, second.Resumed)
	assert.Equal(t, first.Messages, second.Messages)
	assert.Equal(t, 2, model.calls())
}

func TestReactGraph_ResumeWithFollowUpQuestion(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("call_1", "multiply", `{"a":2,"b":21}`)),
		entity.NewAssistantMessage("42"),
		entity.NewAssistantMessage("", call("call_2", "multiply", `{"a":42,"b":2}`)),
		entity.NewAssistantMessage("84"),
	}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})

	_, err := g.Run(context.Background(), "1", initialMessages("what is 2 times 21?"))
	require.NoError(t, err)

	// A fresh system prompt is dropped because the thread already has one.
	followUp := []entity.Message{
		entity.NewSystemMessage("You are a helpful assistant tasked with performing arithmetic."),
		entity.NewUserMessage("what is 2 times that number?"),
	}
	result, err := g.Run(context.Background(), "1", followUp)
	require.NoError(t, err)

	stats := entity.CountMessages(result.Messages)
	assert.Equal(t, entity.MessageStats{Total: 9, User: 2, Assistant: 4, Tool: 2}, stats)
	assert.Equal(t, entity.RoleSystem, result.Messages[0].Role)
	assert.Equal(t, "what is 2 times that number?", result.Messages[5].Content)
	assert.Equal(t, "84", result.Messages[7].Content)
	assert.Len(t, model.requests[2], 6)
}

func TestReactGraph_FatalToolErrorLeavesThreadUsable(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "divide", `{"a":1,"b":0}`)),
		entity.NewAssistantMessage("", call("c2", "multiply", `{"a":2,"b":21}`)),
		entity.NewAssistantMessage("42"),
	}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})

	_, err := g.Run(context.Background(), "1", initialMessages("what is 1 divided by 0?"))
	require.ErrorIs(t, err, entity.ErrToolExecution)

	_, saved := store.latest["1"]
	assert.False(t, saved)
	assert.Equal(t, []string{"1"}, store.deleted)

	result, err := g.Run(context.Background(), "1", initialMessages("what is 2 times 21?"))
	require.NoError(t, err)

	assert.False(t, result.Resumed)
	require.Len(t, result.Messages, 5)
	assert.Equal(t, "42", result.Messages[4].Content)
	require.Len(t, model.requests[1], 2)
	assert.Equal(t, "what is 2 times 21?", model.requests[1][1].Content)
}

func TestReactGraph_FailedFollowUpRestoresPreviousRun(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("", call("c1", "multiply", `{"a":2,"b":21}`)),
		entity.NewAssistantMessage("42"),
		entity.NewAssistantMessage("", call("c2", "divide", `{"a":42,"b":0}`)),
		entity.NewAssistantMessage("84"),
	}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})

	first, err := g.Run(context.Background(), "1", initialMessages("what is 2 times 21?"))
	require.NoError(t, err)

	_, err = g.Run(context.Background(), "1", []entity.Message{entity.NewUserMessage("divide that by 0")})
	require.ErrorIs(t, err, entity.ErrToolExecution)

	restored := store.latest["1"]
	assert.Equal(t, first.Messages, restored.Messages)
	assert.Equal(t, END, restored.Next)

	result, err := g.Run(context.Background(), "1", []entity.Message{entity.NewUserMessage("what is 2 times that number?")})
	require.NoError(t, err)

	require.Len(t, model.requests[3], 6)
	assert.Equal(t, first.Messages, model.requests[3][:5])
	assert.Equal(t, "what is 2 times that number?", model.requests[3][5].Content)
	require.Len(t, result.Messages, 7)
	assert.Equal(t, "84", result.Messages[6].Content)
}

func TestReactGraph_PendingToolsFinishBeforeNewInput(t *testing.T) {
	input := initialMessages("what is 2 times 21?")
	pending := entity.NewAssistantMessage("", call("call_1", "multiply", `{"a":2,"b":21}`))
	store := newRecordingStore()
	require.NoError(t, store.Save(context.Background(), entity.Checkpoint{
		ThreadID: "t",
		Messages: append(input, pending),
		Next:     NodeTools,
		Step:     2,
	}))

	model := &scriptedModel{replies: []entity.Message{
		entity.NewAssistantMessage("42"),
		entity.NewAssistantMessage("84"),
	}}
	g := newGraph(t, model, Options{Checkpointer: store})

	result, err := g.Run(context.Background(), "t", initialMessages("and 2 times that?"))
	require.NoError(t, err)

	require.Len(t, model.requests[0], 4)
	assert.Equal(t, entity.RoleTool, model.requests[0][3].Role)
	assert.Equal(t, "call_1", model.requests[0][3].ToolCallID)
	require.Len(t, model.requests[1], 6)
	assert.Equal(t, "and 2 times that?", model.requests[1][5].Content)

	stats := entity.CountMessages(result.Messages)
	assert.Equal(t, entity.MessageStats{Total: 7, User: 2, Assistant: 3, Tool: 1}, stats)
	assert.Equal(t, 1, model.inits)
}

func TestReactGraph_ResumeInterruptedRun(t *testing.T) {
	input := initialMessages("what is 2 times 21?")
	pending := entity.NewAssistantMessage("", call("call_1", "multiply", `{"a":2,"b":21}`))
	store := newRecordingStore()
	require.NoError(t, store.Save(context.Background(), entity.Checkpoint{
		ThreadID: "t",
		Messages: append(input, pending),
		Next:     NodeTools,
		Step:     2,
	}))

	model := &scriptedModel{replies: []entity.Message{entity.NewAssistantMessage("42")}}
	g := newGraph(t, model, Options{Checkpointer: store})

	result, err := g.Run(context.Background(), "t", input)
	require.NoError(t, err)

	require.Len(t, result.Messages, 5)
	assert.Equal(t, "42", result.Messages[3].Content)
	assert.Equal(t, 1, model.inits)
	assert.Equal(t, 1, model.calls())
	assert.Equal(t, 4, store.latest["t"].Step)
}

func TestReactGraph_CheckpointErrors(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{entity.NewAssistantMessage("hi")}}

	store := newRecordingStore()
	store.loadErr = errors.New("db down")
	g := newGraph(t, model, Options{Checkpointer: store})
	_, err := g.Run(context.Background(), "1", initialMessages("hi"))
	assert.ErrorIs(t, err, entity.ErrCheckpoint)

	store = newRecordingStore()
	store.saveErr = errors.New("disk full")
	g = newGraph(t, model, Options{Checkpointer: store})
	_, err = g.Run(context.Background(), "1", initialMessages("hi"))
	assert.ErrorIs(t, err, entity.ErrCheckpoint)
}

func TestReactGraph_NoThreadSkipsCheckpointer(t *testing.T) {
	model := &scriptedModel{replies: []entity.Message{entity.NewAssistantMessage("hi")}}
	store := newRecordingStore()
	g := newGraph(t, model, Options{Checkpointer: store})

	_, err := g.Run(context.Background(), "", initialMessages("hi"))
	require.NoError(t, err)
	assert.Empty(t, store.history)
}
