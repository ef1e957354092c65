package graph

import (
	"context"
	"errors"
	"sync"

	"react-agent/internal/adapter/tool"
	"react-agent/internal/application/port/output"
	"react-agent/internal/application/service"
	"react-agent/internal/domain/entity"
)

// scriptedModel replays canned assistant replies in order.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []entity.Message
	repeat   *entity.Message
	errAt    map[int]error
	initErr  error
	inits    int
	bound    []entity.ToolDefinition
	requests [][]entity.Message
}

func (m *scriptedModel) NewChatModel() (output.ChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	if m.initErr != nil {
		return nil, m.initErr
	}
	return m, nil
}

func (m *scriptedModel) BindTools(tools []entity.ToolDefinition) output.BoundModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = tools
	return m
}

func (m *scriptedModel) Invoke(ctx context.Context, messages []entity.Message) (entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, messages)
	if err, ok := m.errAt[i]; ok {
		return entity.Message{}, err
	}
	if i < len(m.replies) {
		return m.replies[i].Clone(), nil
	}
	if m.repeat != nil {
		reply := m.repeat.Clone()
		reply.ID = ""
		return reply, nil
	}
	return entity.Message{}, errors.New("script exhausted")
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func call(id, name, args string) entity.ToolCall {
	return entity.ToolCall{ID: id, Name: name, Arguments: args}
}

func arithmeticRegistry() output.ToolRegistry {
	registry := service.NewToolRegistry()
	for _, t := range tool.NewArithmeticTools(nil) {
		if err := registry.Register(t); err != nil {
			panic(err)
		}
	}
	return registry
}

// recordingStore keeps every saved checkpoint.
type recordingStore struct {
	mu      sync.Mutex
	latest  map[string]entity.Checkpoint
	history []entity.Checkpoint
	deleted []string
	loadErr error
	saveErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{latest: make(map[string]entity.Checkpoint)}
}

func (s *recordingStore) Save(ctx context.Context, cp entity.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cp = cp.Clone()
	s.latest[cp.ThreadID] = cp
	s.history = append(s.history, cp)
	return nil
}

func (s *recordingStore) Load(ctx context.Context, threadID string) (*entity.Checkpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	cp, ok := s.latest[threadID]
	if !ok {
		return nil, false, nil
	}
	cp = cp.Clone()
	return &cp, true, nil
}

func (s *recordingStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, threadID)
	s.deleted = append(s.deleted, threadID)
	return nil
}

func (s *recordingStore) Close() error { return nil }
