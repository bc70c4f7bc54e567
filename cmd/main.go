package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"wiki-agent/handler"
	"wiki-agent/internal/config"
	"wiki-agent/internal/generation"
	"wiki-agent/internal/history"
	"wiki-agent/internal/integrations/llm"
	"wiki-agent/internal/integrations/paramstore"
	"wiki-agent/internal/integrations/ragsearch"
	"wiki-agent/internal/registry"
	"wiki-agent/internal/repository"
	"wiki-agent/internal/retrieval"
	"wiki-agent/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	_ = godotenv.Load()
	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.Indices)
	if err != nil {
		logger.Error("failed to build index registry", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config (live mode and the DynamoDB backend only) ----
	var ssmAPI *awsssm.Client
	var dynamoClient *awsdynamodb.Client
	if cfg.Mode == config.ModeLive || cfg.History.Backend == config.HistoryBackendDynamoDB {
		loaded, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		ssmAPI = awsssm.NewFromConfig(loaded)
		dynamoClient = awsdynamodb.NewFromConfig(loaded)
	}

	// ---- Adapters ----
	simRetriever := retrieval.NewSimulated(cfg.Retrieval.MaxDocuments)
	simGenerator := generation.NewSimulated()

	var retriever usecase.Retriever = simRetriever
	var generator usecase.Generator = simGenerator
	var opts []usecase.Option
	opts = append(opts, usecase.WithLogger(logger))

	if cfg.Mode == config.ModeLive {
		paramPrefix := mustEnv("PARAM_PREFIX", logger)
		ssmClient, err := paramstore.New(ssmAPI)
		if err != nil {
			logger.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}

		searchClient, err := ragsearch.NewClient(ssmClient, paramPrefix, cfg.Retrieval.BaseURL,
			ragsearch.Params{
				NumCandidates:   cfg.Retrieval.NumCandidates,
				NumResultDoc:    cfg.Retrieval.MaxDocuments,
				RelevanceWeight: cfg.Retrieval.RelevanceWeight,
				DateWeight:      cfg.Retrieval.DateWeight,
			},
			ragsearch.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Retrieval.TimeoutSecs) * time.Second}),
		)
		if err != nil {
			logger.Error("failed to create search client", "err", err)
			os.Exit(1)
		}
		liveRetriever, err := retrieval.NewLive(searchClient, cfg.Retrieval.MaxDocuments)
		if err != nil {
			logger.Error("failed to create retrieval adapter", "err", err)
			os.Exit(1)
		}

		llmOpts := []llm.Option{
			llm.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Generation.TimeoutSecs) * time.Second}),
		}
		if cfg.Generation.BaseURL != "" {
			llmOpts = append(llmOpts, llm.WithBaseURL(cfg.Generation.BaseURL))
		}
		chatClient, err := llm.NewClient(ssmClient, paramPrefix, llmOpts...)
		if err != nil {
			logger.Error("failed to create chat client", "err", err)
			os.Exit(1)
		}
		liveGenerator, err := generation.NewLive(chatClient, cfg.Generation.Model, cfg.Generation.MaxHistoryTurns)
		if err != nil {
			logger.Error("failed to create generation adapter", "err", err)
			os.Exit(1)
		}

		retriever = liveRetriever
		generator = liveGenerator
		if cfg.FallbackToSimulated {
			opts = append(opts, usecase.WithFallback(simRetriever, simGenerator))
		}
	}

	// ---- Chat log ----
	var store usecase.HistoryStore
	switch cfg.History.Backend {
	case config.HistoryBackendDynamoDB:
		store, err = repository.New(dynamoClient, cfg.History.Table, cfg.History.Capacity)
	default:
		store, err = history.NewFileStore(cfg.History.FilePath, cfg.History.Capacity,
			history.WithLogger(logger), history.WithRecovery())
	}
	if err != nil {
		logger.Error("failed to create chat log store", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	pipeline, err := usecase.NewPipelineService(reg, retriever, generator, store, opts...)
	if err != nil {
		logger.Error("failed to create pipeline service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(pipeline)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string, logger *slog.Logger) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
