package graph

import "react-agent/internal/application/port/output"

const (
	NodeInitialize = "initialize_llm"
	NodeAssistant  = "assistant"
	NodeTools      = "tools"
)

const DefaultMaxIterations = 25

type Options struct {
	// MaxIterations caps assistant turns per run. Zero means DefaultMaxIterations.
	MaxIterations   int
	ToolErrorPolicy ToolErrorPolicy
	Checkpointer    output.CheckpointStore
	Logger          output.LoggerPort
}

// NewReactGraph wires initialize -> assistant -> (tools -> assistant)* -> END.
func NewReactGraph(models output.ModelProvider, tools output.ToolRegistry, opts Options) (*Compiled, error) {
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	nodes := NewNodes(models, tools, opts.Logger, opts.ToolErrorPolicy)

	compileOpts := []CompileOption{
		WithIterationLimit(NodeAssistant, maxIterations),
		WithLogger(opts.Logger),
	}
	if opts.Checkpointer != nil {
		compileOpts = append(compileOpts, WithCheckpointer(opts.Checkpointer))
	}

	return NewBuilder().
		AddNode(NodeInitialize, nodes.Initialize).
		AddNode(NodeAssistant, nodes.Assistant).
		AddNode(NodeTools, nodes.Tools).
		AddEdge(START, NodeInitialize).
		AddEdge(NodeInitialize, NodeAssistant).
		AddConditionalEdges(NodeAssistant, Route, NodeTools, END).
		AddEdge(NodeTools, NodeAssistant).
		Compile(compileOpts...)
}
