package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

const (
	START = "__start__"
	END   = "__end__"
)

var ErrInvalidGraph = errors.New("invalid graph")

// NodeFunc performs one step and returns the next state.
type NodeFunc func(ctx context.Context, s State) (State, error)

// RouterFunc picks the successor of a node from the state it produced.
type RouterFunc func(s State) string

type branch struct {
	router  RouterFunc
	targets []string
}

// Builder assembles a graph. Errors are collected and reported by Compile.
type Builder struct {
	nodes    map[string]NodeFunc
	edges    map[string]string
	branches map[string]branch
	entry    string
	errs     []error
}

func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	switch {
	case name == "" || name == START || name == END:
		b.fail("node name %q is reserved or empty", name)
	case fn == nil:
		b.fail("node %s has no function", name)
	case b.nodes[name] != nil:
		b.fail("node %s already added", name)
	default:
		b.nodes[name] = fn
	}
	return b
}

// AddEdge adds an unconditional edge. An edge from START sets the entry node.
func (b *Builder) AddEdge(from, to string) *Builder {
	if from == START {
		if b.entry != "" {
			b.fail("entry already set to %s", b.entry)
			return b
		}
		b.entry = to
		return b
	}
	if b.hasOutgoing(from) {
		b.fail("node %s already has an outgoing edge", from)
		return b
	}
	b.edges[from] = to
	return b
}

// AddConditionalEdges routes from a node through router. The router must
// return one of targets.
func (b *Builder) AddConditionalEdges(from string, router RouterFunc, targets ...string) *Builder {
	switch {
	case router == nil:
		b.fail("node %s has a nil router", from)
	case len(targets) == 0:
		b.fail("node %s has a router without targets", from)
	case b.hasOutgoing(from):
		b.fail("node %s already has an outgoing edge", from)
	default:
		b.branches[from] = branch{router: router, targets: slices.Clone(targets)}
	}
	return b
}

func (b *Builder) Compile(opts ...CompileOption) (*Compiled, error) {
	errs := slices.Clone(b.errs)

	if b.entry == "" {
		errs = append(errs, fmt.Errorf("%w: no edge from %s", ErrInvalidGraph, START))
	} else if b.nodes[b.entry] == nil {
		errs = append(errs, fmt.Errorf("%w: entry node %s does not exist", ErrInvalidGraph, b.entry))
	}
	for from, to := range b.edges {
		if b.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("%w: edge from unknown node %s", ErrInvalidGraph, from))
		}
		if to != END && b.nodes[to] == nil {
			errs = append(errs, fmt.Errorf("%w: edge to unknown node %s", ErrInvalidGraph, to))
		}
	}
	for from, br := range b.branches {
		if b.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("%w: conditional edge from unknown node %s", ErrInvalidGraph, from))
		}
		for _, to := range br.targets {
			if to != END && b.nodes[to] == nil {
				errs = append(errs, fmt.Errorf("%w: conditional edge to unknown node %s", ErrInvalidGraph, to))
			}
		}
	}
	for name := range b.nodes {
		if !b.hasOutgoing(name) {
			errs = append(errs, fmt.Errorf("%w: node %s has no outgoing edge", ErrInvalidGraph, name))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g := &Compiled{
		nodes:    b.nodes,
		edges:    b.edges,
		branches: b.branches,
		entry:    b.entry,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.limitNode != "" && b.nodes[g.limitNode] == nil {
		return nil, fmt.Errorf("%w: iteration limit on unknown node %s", ErrInvalidGraph, g.limitNode)
	}
	return g, nil
}

func (b *Builder) hasOutgoing(name string) bool {
	_, edge := b.edges[name]
	_, br := b.branches[name]
	return edge || br
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidGraph}, args...)...))
}
