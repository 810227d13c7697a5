package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"election-agent/internal/analytics"
	"election-agent/internal/config"
	"election-agent/internal/domain"
	"election-agent/internal/electiondata"
	"election-agent/internal/integrations/anthropic"
	"election-agent/internal/integrations/openai"
	"election-agent/internal/integrations/paramstore"
	"election-agent/internal/metrics"
	"election-agent/internal/policy"
	"election-agent/internal/usecase"
)

// app holds the wired components shared by every command.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *metrics.Registry
	orchestrator *usecase.Orchestrator
	sessions     *usecase.SessionService
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{EnvFile: envFile, ConfigFile: cfgFile})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	reg := metrics.NewRegistry()

	keys, err := newKeySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	openaiAdapter := openai.New(openai.WithBaseURL(cfg.OpenAIBaseURL))
	anthropicAdapter := anthropic.New(anthropic.WithBaseURL(cfg.AnthropicBaseURL))
	defaults := map[domain.Provider]usecase.ProviderDefaults{
		domain.ProviderOpenAI: {
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		domain.ProviderAnthropic: {
			Model:       cfg.AnthropicModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}
	orch, err := usecase.NewOrchestrator(openaiAdapter, anthropicAdapter, keys, defaults,
		usecase.WithLogger(logger),
		usecase.WithMetrics(reg),
		usecase.WithAttemptTimeout(cfg.ProviderTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	src, err := newDataSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	loader, err := electiondata.NewLoader(src, electiondata.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating dataset loader: %w", err)
	}
	prompter, err := electiondata.NewPrompter(loader)
	if err != nil {
		return nil, fmt.Errorf("creating prompter: %w", err)
	}

	sessions, err := usecase.NewSessionService(orch, prompter, policy.NewFilter(), usecase.SessionConfig{
		Title:         cfg.AssistantTitle,
		Provider:      cfg.Provider(),
		HistoryWindow: cfg.HistoryWindow,
	},
		usecase.WithLogger(logger),
		usecase.WithMetrics(reg),
		usecase.WithTracker(analytics.New(logger, cfg.EmbedID)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session service: %w", err)
	}

	logger.Info("election agent configured",
		"default_provider", cfg.Provider(),
		"data_source", src.String(),
		"param_prefix", cfg.ParamPrefix,
	)
	return &app{
		cfg:          cfg,
		logger:       logger,
		metrics:      reg,
		orchestrator: orch,
		sessions:     sessions,
	}, nil
}

// newKeySource reads keys from the environment, and from SSM Parameter Store
// when a parameter prefix is configured.
func newKeySource(ctx context.Context, cfg *config.Config) (*paramstore.Client, error) {
	if cfg.ParamPrefix == "" {
		return paramstore.Static(cfg.APIKeys()), nil
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg),
		paramstore.WithPrefix(cfg.ParamPrefix),
		paramstore.WithStaticKeys(cfg.APIKeys()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating SSM client: %w", err)
	}
	return client, nil
}

func newDataSource(ctx context.Context, cfg *config.Config) (electiondata.Source, error) {
	if cfg.DataBucket == "" {
		src, err := electiondata.NewDirSource(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("creating dataset dir source: %w", err)
		}
		return src, nil
	}
	s3cfg := electiondata.S3Config{
		Bucket:    cfg.DataBucket,
		Prefix:    cfg.DataPrefix,
		Region:    cfg.AWSRegion,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}
	client, err := electiondata.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, fmt.Errorf("creating S3 client: %w", err)
	}
	src, err := electiondata.NewS3Source(client, s3cfg.Bucket, s3cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("creating S3 dataset source: %w", err)
	}
	return src, nil
}
