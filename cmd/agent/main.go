package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"react-agent/internal/di"
	"react-agent/internal/domain/entity"
	"react-agent/internal/infrastructure/config"
	"react-agent/internal/infrastructure/env"
)

const userQuery = "what is 2 times 21?"

func main() {
	os.Exit(run())
}

func run() int {
	envService := env.NewEnvService()

	settings, err := config.Load(envService)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, settings.RunTimeout)
	defer cancel()

	container, err := di.NewContainer(ctx, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return 1
	}
	defer container.Close()
	log := container.Logger

	log.Info("React Agent starting...")
	log.Info("Application", "app", settings.AppName, "version", settings.AppVersion)
	log.Info("Environment", "environment", settings.Environment, "app_env", envService.AppEnv())
	for _, src := range envService.Sources() {
		log.Debug("Loaded env file", "path", src)
	}
	for _, note := range envService.Notes() {
		log.Debug(note)
	}
	log.Debug("Configuration", "settings", settings.Redacted())

	messages := []entity.Message{
		entity.NewSystemMessage(container.SystemPrompt),
		entity.NewUserMessage(userQuery),
	}

	log.Info("Processing user query", "query", userQuery, "thread_id", settings.ThreadID)
	result, err := container.Runner.Run(ctx, settings.ThreadID, messages)
	if err != nil {
		log.Error("Application error", "error", err, "kind", entity.ErrorKind(err))
		container.Printer.PrintError(err)
		return 1
	}
	log.Info("Agent processing completed successfully", "iterations", result.Iterations, "resumed", result.Resumed)

	container.Printer.PrintTranscript(result.Messages)

	stats := entity.CountMessages(result.Messages)
	log.Info("Agent execution summary",
		"total_messages", stats.Total,
		"user_messages", stats.User,
		"assistant_messages", stats.Assistant,
		"tool_messages", stats.Tool,
	)
	log.Info("Application completed successfully")
	return 0
}
