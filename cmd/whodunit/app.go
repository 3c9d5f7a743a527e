package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"whodunit/cmd/whodunit/ui"
	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/logging"
	"whodunit/internal/mystery/casefile"
	"whodunit/internal/mystery/memory"
	"whodunit/internal/mystery/session"
	"whodunit/internal/observability"
)

const memoryPath = "./memories.db"

func createApp() (ui.Model, func(), error) {
	// Missing .env is fine; the key may already be in the environment.
	_ = godotenv.Load()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return ui.Model{}, nil, fmt.Errorf("please set OPENAI_API_KEY environment variable")
	}

	debugMode := os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true"

	debugLogger := debug.NewLogger(debugMode)

	ctx := context.Background()
	tracingConfig := observability.LoadConfigFromEnv()
	tracerProvider, err := observability.InitTracing(ctx, tracingConfig)
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	llmService := llm.NewService(apiKey, debugLogger)
	debugLogger.Println("Starting murder mystery with debug logging")

	logger, err := logging.NewInterrogationLogger()
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize interrogation logger: %w", err)
	}

	memoryStore, err := memory.NewStore(memoryPath, llmService, debugLogger)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	castConfig := casefile.DefaultCastConfig()
	if path := os.Getenv("CAST_CONFIG"); path != "" {
		castConfig, err = casefile.LoadCastConfig(path)
		if err != nil {
			return ui.Model{}, nil, fmt.Errorf("failed to load cast config: %w", err)
		}
		debugLogger.Printf("Loaded cast config from %s", path)
	}

	debugLogger.Println("Generating case...")
	generator := casefile.NewGenerator(llmService, castConfig, debugLogger)
	caseModel, err := generator.Generate(ctx)
	if err != nil {
		debugLogger.Printf("Case generation failed, retrying once: %v", err)
		caseModel, err = generator.Generate(ctx)
	}
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to generate case: %w", err)
	}

	debugLogger.Printf("Case ready: victim %s, %d suspects", caseModel.Victim, len(caseModel.Roster)-1)

	sess := session.New(ctx, caseModel, llmService, memoryStore, logger, debugLogger)
	model := ui.NewModel(sess, llmService, debugLogger)

	cleanup := func() {
		sess.Wait()
		logger.Close()
		memoryStore.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
	}

	return model, cleanup, nil
}
