package di

import (
	"context"
	"errors"
	"fmt"
	"os"

	"react-agent/internal/adapter/tool"
	"react-agent/internal/application/port/input"
	"react-agent/internal/application/port/output"
	"react-agent/internal/application/service"
	"react-agent/internal/domain/entity"
	"react-agent/internal/infrastructure/checkpoint"
	"react-agent/internal/infrastructure/config"
	"react-agent/internal/infrastructure/console"
	"react-agent/internal/infrastructure/llm/langchain"
	"react-agent/internal/infrastructure/llm/openai"
	"react-agent/internal/infrastructure/logger"
	"react-agent/internal/infrastructure/prompts"
	"react-agent/internal/usecase/graph"
)

type Container struct {
	Settings     *config.Settings
	Logger       output.LoggerPort
	Tools        output.ToolRegistry
	Models       output.ModelProvider
	Checkpoints  output.CheckpointStore
	Runner       input.ConversationRunner
	Printer      *console.Printer
	SystemPrompt string
}

func NewContainer(ctx context.Context, settings *config.Settings) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		File:   settings.LogFile,
		Fields: map[string]any{"app": settings.AppName, "version": settings.AppVersion, "environment": settings.Environment},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create logger: %w", entity.ErrConfiguration, err)
	}
	c := &Container{Settings: settings, Logger: log, Printer: console.NewPrinter(os.Stdout)}

	if err := c.build(ctx, log); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, log output.LoggerPort) error {
	s := c.Settings

	tools := service.NewToolRegistry()
	if err := registerArithmeticTools(tools, log); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}
	c.Tools = tools

	models, err := newModelProvider(s, log)
	if err != nil {
		return err
	}
	c.Models = models

	policy, err := graph.ParseToolErrorPolicy(s.ToolErrorPolicy)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}

	log.Debug("Opening checkpoint store", "db_uri", config.RedactURI(s.DBURI))
	store, err := checkpoint.Open(ctx, s.DBURI)
	if err != nil {
		return err
	}
	c.Checkpoints = store

	c.SystemPrompt, err = prompts.GenerateSystemPrompt(prompts.DefaultSystemPrompt, tools)
	if err != nil {
		return fmt.Errorf("%w: render system prompt: %w", entity.ErrConfiguration, err)
	}

	runner, err := graph.NewReactGraph(models, tools, graph.Options{
		MaxIterations:   s.MaxIterations,
		ToolErrorPolicy: policy,
		Checkpointer:    store,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}
	c.Runner = runner
	return nil
}

// Close releases the checkpoint store and flushes the logger.
func (c *Container) Close() error {
	var err error
	if c.Checkpoints != nil {
		err = errors.Join(err, c.Checkpoints.Close())
	}
	if c.Logger != nil {
		err = errors.Join(err, c.Logger.Close())
	}
	return err
}

func newModelProvider(s *config.Settings, log output.LoggerPort) (output.ModelProvider, error) {
	params := output.ModelParams{
		Model:       s.OpenAIModel,
		Temperature: float32(s.Temperature),
		MaxTokens:   s.MaxTokens,
		TopP:        float32(s.TopP),
		TopK:        s.TopK,
	}

	switch s.LLMProvider {
	case "", config.ProviderOpenAI:
		cfg := openai.DefaultConfig(s.OpenAIAPIKey, s.OpenAIModel)
		if s.OpenAIBaseURL != "" {
			cfg.BaseURL = s.OpenAIBaseURL
		}
		cfg.Params = params
		if s.Debug {
			cfg.Logger = log
		}
		return openai.NewProvider(cfg), nil
	case config.ProviderLangChain:
		return langchain.NewProvider(langchain.Config{
			APIKey:  s.OpenAIAPIKey,
			BaseURL: s.OpenAIBaseURL,
			Params:  params,
			Logger:  log,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", entity.ErrConfiguration, s.LLMProvider)
	}
}

func registerArithmeticTools(registry *service.ToolRegistryImpl, log output.LoggerPort) error {
	for _, t := range tool.NewArithmeticTools(log) {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}
