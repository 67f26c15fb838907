// Package matching ranks business candidates against a free-text query with a
// hosted model, falling back to the unranked candidates when the model fails.
package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/mohammad-safakhou/prizm/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultMatchTokens = 300

// Result is the caller-facing outcome of a match.
type Result struct {
	// Businesses is a permutation of the input candidates.
	Businesses []models.Business
	// Matched counts the leading businesses the oracle named as relevant.
	Matched int
	// Fallback is set when the oracle or its reply was unusable and Businesses is the input order.
	Fallback bool
}

type Matcher struct {
	oracle    oracle.Oracle
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	maxTokens int
}

func NewMatcher(o oracle.Oracle, logger *zap.Logger, metrics *telemetry.Metrics, maxTokens int) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTokens <= 0 {
		maxTokens = defaultMatchTokens
	}
	return &Matcher{oracle: o, logger: logger.Named("matching"), metrics: metrics, maxTokens: maxTokens}
}

// Match orders candidates by relevance to query. It never fails: on any oracle
// error the candidates are returned unchanged with Fallback set.
func (m *Matcher) Match(ctx context.Context, query string, candidates []models.Business) Result {
	if len(candidates) == 0 {
		return Result{Businesses: []models.Business{}}
	}
	ctx, span := telemetry.Tracer().Start(ctx, "matching.Match")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	ordered, matched, err := m.rank(ctx, query, candidates)
	if err != nil {
		m.logger.Warn("oracle matching failed, returning unranked candidates",
			zap.String("query", query), zap.Int("candidates", len(candidates)), zap.Error(err))
		m.metrics.Fallback("match")
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		fallback := make([]models.Business, len(candidates))
		copy(fallback, candidates)
		return Result{Businesses: fallback, Fallback: true}
	}
	span.SetAttributes(attribute.Int("matched", matched))
	return Result{Businesses: ordered, Matched: matched}
}

func (m *Matcher) rank(ctx context.Context, query string, candidates []models.Business) ([]models.Business, int, error) {
	reply, err := m.oracle.Complete(ctx, oracle.Request{
		Op:        "match",
		System:    matchSystemPrompt,
		Turns:     []oracle.Turn{{Role: oracle.RoleUser, Content: BuildPrompt(query, candidates)}},
		MaxTokens: m.maxTokens,
	})
	if err != nil {
		return nil, 0, err
	}
	m.logger.Debug("oracle match reply", zap.String("query", query), zap.String("reply", reply))
	ids := ParseIDs(reply)
	if len(ids) == 0 && strings.TrimSpace(reply) != "" {
		return nil, 0, fmt.Errorf("%w: %q", ErrParse, reply)
	}
	ordered, matched := Reconcile(ids, candidates)
	return ordered, matched, nil
}
