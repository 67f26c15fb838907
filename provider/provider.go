package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/prizm/config"
	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	anthropic_provider "github.com/mohammad-safakhou/prizm/provider/anthropic"
	gemini_provider "github.com/mohammad-safakhou/prizm/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/prizm/provider/openai"
	"go.uber.org/zap"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// NewProvider creates an oracle for the configured provider using model.
// The returned oracle enforces cfg.Timeout and records metrics for every call.
func NewProvider(ctx context.Context, cfg config.LLMConfig, model string, logger *zap.Logger, metrics *telemetry.Metrics) (oracle.Oracle, error) {
	if model == "" {
		model = cfg.Model
	}
	var o oracle.Oracle
	switch Client(cfg.Provider) {
	case OpenAI:
		o = openai_provider.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, model, cfg.Temperature, cfg.Timeout)
	case Anthropic:
		o = anthropic_provider.NewAnthropicClient(cfg.APIKey, cfg.BaseURL, model, cfg.Temperature, cfg.Timeout)
	case Gemini:
		c, err := gemini_provider.NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, model, cfg.Temperature, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		o = c
	default:
		return nil, errors.New("unsupported LLM provider")
	}
	return Instrument(o, cfg.Provider, cfg.Timeout, logger, metrics), nil
}

// Instrument wraps o with a per-call timeout, metrics and debug logging.
func Instrument(o oracle.Oracle, name string, timeout time.Duration, logger *zap.Logger, metrics *telemetry.Metrics) oracle.Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: o, name: name, timeout: timeout, logger: logger, metrics: metrics}
}

type instrumented struct {
	next    oracle.Oracle
	name    string
	timeout time.Duration
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func (i *instrumented) Complete(ctx context.Context, req oracle.Request) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := i.next.Complete(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(oracle.KindOf(err))
		if outcome == "" {
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = string(oracle.KindTimeout)
			} else {
				outcome = string(oracle.KindTransport)
			}
			err = &oracle.Error{Provider: i.name, Kind: oracle.Kind(outcome), Err: err}
		}
	}
	i.metrics.ObserveOracle(i.name, req.Op, outcome, elapsed)
	i.logger.Debug("oracle call",
		zap.String("provider", i.name),
		zap.String("op", req.Op),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
		zap.Int("turns", len(req.Turns)),
	)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", i.name, err)
	}
	return reply, nil
}
