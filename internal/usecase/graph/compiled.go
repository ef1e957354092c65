package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"react-agent/internal/application/port/input"
	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"
)

var _ input.ConversationRunner = (*Compiled)(nil)

type CompileOption func(*Compiled)

// WithCheckpointer saves the state after every node and resumes runs by
// thread identifier.
func WithCheckpointer(store output.CheckpointStore) CompileOption {
	return func(g *Compiled) {
		g.checkpointer = store
	}
}

// WithIterationLimit caps how many times node may run within one
// invocation. A non-positive max disables the cap.
func WithIterationLimit(node string, max int) CompileOption {
	return func(g *Compiled) {
		g.limitNode = node
		g.maxIterations = max
	}
}

func WithLogger(logger output.LoggerPort) CompileOption {
	return func(g *Compiled) {
		if logger != nil {
			g.logger = logger
		}
	}
}

type Compiled struct {
	nodes    map[string]NodeFunc
	edges    map[string]string
	branches map[string]branch
	entry    string

	checkpointer  output.CheckpointStore
	logger        output.LoggerPort
	limitNode     string
	maxIterations int
}

type runStats struct {
	iterations int
	resumed    bool
}

// Run implements input.ConversationRunner.
func (g *Compiled) Run(ctx context.Context, threadID string, messages []entity.Message) (*input.RunResult, error) {
	final, stats, err := g.invoke(ctx, NewState(messages...), threadID)
	if err != nil {
		return nil, err
	}
	return &input.RunResult{
		Messages:   final.Messages(),
		Iterations: stats.iterations,
		Resumed:    stats.resumed,
	}, nil
}

// Invoke runs the graph from input until END. When a checkpointer is set and
// threadID is not empty, the saved history of the thread is the starting point.
func (g *Compiled) Invoke(ctx context.Context, in State, threadID string) (State, error) {
	final, _, err := g.invoke(ctx, in, threadID)
	return final, err
}

// invoke resumes the thread's saved run when one is pending, then runs any
// new input from the entry node. A failed run restores the checkpoint the
// thread had before it, so no partial history survives an error.
func (g *Compiled) invoke(ctx context.Context, in State, threadID string) (State, runStats, error) {
	r := &run{g: g, threadID: threadID, log: g.logger}
	if threadID != "" {
		r.log = r.log.WithField("thread_id", threadID)
	}
	r.persist = g.checkpointer != nil && threadID != ""

	if !r.persist {
		final, err := r.loop(ctx, in, g.entry)
		return final, r.stats, err
	}

	cp, found, err := g.checkpointer.Load(ctx, threadID)
	if err != nil {
		return State{}, r.stats, fmt.Errorf("%w: load thread %s: %w", entity.ErrCheckpoint, threadID, err)
	}
	if !found {
		final, err := r.loop(ctx, in, g.entry)
		return final, r.stats, r.finish(ctx, err)
	}

	r.prior = cp
	r.stats.resumed = true
	r.step = cp.Step
	fresh := unseenMessages(cp.Messages, in.messages)
	state := NewState(cp.Messages...)

	if cp.Next != END {
		if len(fresh) == 0 {
			r.log.Info("Resuming interrupted run", "next", cp.Next, "step", cp.Step)
		} else {
			r.log.Info("Finishing interrupted run before new input", "next", cp.Next, "step", cp.Step, "new_messages", len(fresh))
		}
		// The bound model is not persisted; the entry node rebuilds it.
		state, err = g.runNode(ctx, g.entry, state)
		if err == nil {
			state, err = r.loop(ctx, state, cp.Next)
		}
		if err != nil {
			return State{}, r.stats, r.finish(ctx, err)
		}
	}

	if len(fresh) == 0 {
		if cp.Next == END {
			r.log.Info("Thread already completed, returning saved state", "messages", len(cp.Messages))
		}
		return state, r.stats, nil
	}
	final, err := r.loop(ctx, state.Append(fresh...), g.entry)
	return final, r.stats, r.finish(ctx, err)
}

// run carries the bookkeeping of one invocation.
type run struct {
	g        *Compiled
	log      output.LoggerPort
	threadID string
	persist  bool
	prior    *entity.Checkpoint
	saved    bool
	step     int
	stats    runStats
}

func (r *run) loop(ctx context.Context, state State, next string) (State, error) {
	g := r.g
	for next != END {
		if err := ctx.Err(); err != nil {
			return State{}, fmt.Errorf("run aborted before %s: %w", next, err)
		}

		if next == g.limitNode {
			r.stats.iterations++
			if g.maxIterations > 0 && r.stats.iterations > g.maxIterations {
				r.log.Error("Iteration limit reached", "node", next, "limit", g.maxIterations)
				return State{}, fmt.Errorf("%w: %s ran %d times", entity.ErrLoopBudgetExceeded, next, g.maxIterations)
			}
		}

		out, err := g.runNode(ctx, next, state)
		if err != nil {
			return State{}, err
		}
		state = out
		r.step++

		following, err := g.successor(next, state)
		if err != nil {
			return State{}, err
		}
		r.log.Debug("Step completed", "node", next, "next", following, "step", r.step, "messages", state.Len())
		next = following

		if r.persist {
			cp := entity.Checkpoint{
				ThreadID:  r.threadID,
				Messages:  state.messages,
				Next:      next,
				Step:      r.step,
				UpdatedAt: time.Now().UTC(),
			}
			if err := g.checkpointer.Save(ctx, cp); err != nil {
				return State{}, fmt.Errorf("%w: save thread %s: %w", entity.ErrCheckpoint, r.threadID, err)
			}
			r.saved = true
		}
	}
	return state, nil
}

// finish rolls the thread back to its checkpoint from before this run when
// err is not nil and the run has already saved.
func (r *run) finish(ctx context.Context, err error) error {
	if err == nil || !r.persist || !r.saved {
		return err
	}
	// ctx may be the reason the run failed.
	ctx = context.WithoutCancel(ctx)

	var rollbackErr error
	if r.prior != nil {
		rollbackErr = r.g.checkpointer.Save(ctx, *r.prior)
	} else {
		rollbackErr = r.g.checkpointer.Delete(ctx, r.threadID)
	}
	if rollbackErr != nil {
		r.log.Error("Failed to roll back thread", "error", rollbackErr)
		return errors.Join(err, fmt.Errorf("%w: roll back thread %s: %w", entity.ErrCheckpoint, r.threadID, rollbackErr))
	}
	r.log.Warn("Run failed, thread rolled back", "restored_previous", r.prior != nil, "error", err)
	return err
}

func (g *Compiled) runNode(ctx context.Context, name string, state State) (State, error) {
	fn, ok := g.nodes[name]
	if !ok {
		return State{}, fmt.Errorf("%w: unknown node %s", ErrInvalidGraph, name)
	}
	out, err := fn(ctx, state)
	if err != nil {
		return State{}, fmt.Errorf("node %s: %w", name, err)
	}
	if err := out.extends(state); err != nil {
		return State{}, fmt.Errorf("node %s: %w", name, err)
	}
	return out, nil
}

func (g *Compiled) successor(name string, state State) (string, error) {
	if to, ok := g.edges[name]; ok {
		return to, nil
	}
	br, ok := g.branches[name]
	if !ok {
		return "", fmt.Errorf("%w: node %s has no outgoing edge", ErrInvalidGraph, name)
	}
	to := br.router(state)
	for _, target := range br.targets {
		if target == to {
			return to, nil
		}
	}
	return "", fmt.Errorf("%w: router of %s returned unknown target %q", ErrInvalidGraph, name, to)
}

// unseenMessages returns the input messages not already in history. A
// system message is dropped when history already starts with one.
func unseenMessages(history, in []entity.Message) []entity.Message {
	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		if msg.ID != "" {
			seen[msg.ID] = struct{}{}
		}
	}
	hasSystem := len(history) > 0 && history[0].Role == entity.RoleSystem

	var fresh []entity.Message
	for _, msg := range in {
		if _, ok := seen[msg.ID]; ok && msg.ID != "" {
			continue
		}
		if msg.Role == entity.RoleSystem && hasSystem {
			continue
		}
		fresh = append(fresh, msg)
	}
	return fresh
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                          {}
func (nopLogger) Info(string, ...any)                           {}
func (nopLogger) Warn(string, ...any)                           {}
func (nopLogger) Error(string, ...any)                          {}
func (n nopLogger) WithField(string, any) output.LoggerPort     { return n }
func (n nopLogger) WithFields(map[string]any) output.LoggerPort { return n }
func (nopLogger) Close() error                                  { return nil }
