package main

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/prizm/config"
	"github.com/mohammad-safakhou/prizm/internal/assistant"
	"github.com/mohammad-safakhou/prizm/internal/matching"
	"github.com/mohammad-safakhou/prizm/internal/store"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/mohammad-safakhou/prizm/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	store     *store.Store
	matcher   *matching.Matcher
	assistant *assistant.Assistant
}

func newApp(ctx context.Context, metrics *telemetry.Metrics) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.General.Debug && !verbose {
		if logger, err = buildLogger(true); err != nil {
			return nil, err
		}
	}
	if cfg.Telemetry.Enabled {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}

	st, err := store.New(logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if cfg.General.SeedSampleData {
		if err := st.Seed(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	matchOracle, err := provider.NewProvider(ctx, cfg.LLM, cfg.LLM.MatchingModel, logger.Named("oracle"), metrics)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("matching provider: %w", err)
	}
	chatOracle, err := provider.NewProvider(ctx, cfg.LLM, cfg.LLM.Model, logger.Named("oracle"), metrics)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("chat provider: %w", err)
	}

	opts := []assistant.Option{
		assistant.WithWindowSize(cfg.Assistant.WindowSize),
		assistant.WithMaxTokens(cfg.LLM.ChatMaxTokens),
		assistant.WithMetrics(metrics),
	}
	if cfg.Assistant.FallbackReply != "" {
		opts = append(opts, assistant.WithFallbackReply(cfg.Assistant.FallbackReply))
	}

	return &app{
		cfg:       cfg,
		store:     st,
		matcher:   matching.NewMatcher(matchOracle, logger, metrics, cfg.LLM.MaxTokens),
		assistant: assistant.New(chatOracle, logger, opts...),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }
