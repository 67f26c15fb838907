package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/prizm/config"
	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), config.LLMConfig{Provider: "mistral", APIKey: "k"}, "", zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewProviderBuildsEachClient(t *testing.T) {
	for _, p := range []Client{OpenAI, Anthropic, Gemini} {
		cfg := config.LLMConfig{Provider: string(p), APIKey: "k"}.Normalize()
		o, err := NewProvider(context.Background(), cfg, "", zap.NewNop(), nil)
		require.NoError(t, err, p)
		assert.NotNil(t, o)
	}
}

func TestInstrumentRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	ok := Instrument(oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		return "1,2", nil
	}), "openai", time.Second, zap.NewNop(), m)
	reply, err := ok.Complete(context.Background(), oracle.Request{Op: "match"})
	require.NoError(t, err)
	assert.Equal(t, "1,2", reply)

	failing := Instrument(oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		return "", &oracle.Error{Provider: "openai", Kind: oracle.KindRateLimit}
	}), "openai", time.Second, zap.NewNop(), m)
	_, err = failing.Complete(context.Background(), oracle.Request{Op: "chat"})
	assert.ErrorIs(t, err, oracle.ErrOracle)

	n, err := testutil.GatherAndCount(reg, "prizm_oracle_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInstrumentEnforcesTimeout(t *testing.T) {
	slow := Instrument(oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), "anthropic", 20*time.Millisecond, nil, nil)

	_, err := slow.Complete(context.Background(), oracle.Request{Op: "chat"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, oracle.KindTimeout, oracle.KindOf(err))
}
