// Package assistant produces the AI assistant's chat replies.
package assistant

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/mohammad-safakhou/prizm/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// FallbackReply is returned whenever the oracle cannot produce a reply.
const FallbackReply = "I apologize, but I'm having trouble responding right now. Please try again."

const (
	DefaultWindowSize = 10
	defaultMaxTokens  = 1024
)

const systemPrompt = `You are PRIZM, a direct and focused home improvement assistant. Answer exactly what is asked, no more and no less. Keep responses to 1-2 concise sentences.

Key guidelines:
- Answer only what is specifically asked
- Use simple, clear English
- If asked about non-home topics, simply state you can only help with home improvement
- For dangerous tasks such as electrical, gas or structural work, briefly note professional help is needed
- No additional suggestions or recommendations unless specifically requested

Begin responses with a simple "PRIZM here." or "Let me assist."`

type Assistant struct {
	oracle     oracle.Oracle
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	windowSize int
	maxTokens  int
	fallback   string
}

type Option func(*Assistant)

func WithWindowSize(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.windowSize = n
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithFallbackReply overrides the apology text.
func WithFallbackReply(s string) Option {
	return func(a *Assistant) {
		if strings.TrimSpace(s) != "" {
			a.fallback = s
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

func New(o oracle.Oracle, logger *zap.Logger, opts ...Option) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assistant{
		oracle:     o,
		logger:     logger.Named("assistant"),
		windowSize: DefaultWindowSize,
		maxTokens:  defaultMaxTokens,
		fallback:   FallbackReply,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Respond returns the assistant's reply to the conversation history, oldest
// message first. It never fails: oracle errors yield the fallback reply.
func (a *Assistant) Respond(ctx context.Context, history []models.Message) string {
	ctx, span := telemetry.Tracer().Start(ctx, "assistant.Respond")
	defer span.End()

	turns := Window(history, a.windowSize)
	span.SetAttributes(attribute.Int("history", len(history)), attribute.Int("turns", len(turns)))

	reply, err := a.complete(ctx, turns)
	if err != nil {
		a.logger.Warn("oracle chat failed, returning fallback reply", zap.Int("turns", len(turns)), zap.Error(err))
		a.metrics.Fallback("chat")
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		return a.fallback
	}
	return reply
}

func (a *Assistant) complete(ctx context.Context, turns []oracle.Turn) (string, error) {
	if len(turns) == 0 {
		return "", &oracle.Error{Kind: oracle.KindEmpty}
	}
	reply, err := a.oracle.Complete(ctx, oracle.Request{
		Op:        "chat",
		System:    systemPrompt,
		Turns:     turns,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", oracle.ErrEmpty
	}
	return reply, nil
}

// Window maps the most recent n messages to oracle turns, oldest first.
func Window(history []models.Message, n int) []oracle.Turn {
	if n <= 0 {
		n = DefaultWindowSize
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	turns := make([]oracle.Turn, 0, len(history))
	for _, m := range history {
		role := oracle.RoleUser
		if m.IsAiAssistant {
			role = oracle.RoleAssistant
		}
		turns = append(turns, oracle.Turn{Role: role, Content: m.Content})
	}
	return turns
}
