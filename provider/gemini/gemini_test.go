package gemini_provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsCandidateText(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"3,1"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "g-key", srv.URL, "gemini-test", 0, 5*time.Second)
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), oracle.Request{
		System:    "matcher",
		Turns:     []oracle.Turn{{Role: oracle.RoleUser, Content: "q"}, {Role: oracle.RoleAssistant, Content: "a"}},
		MaxTokens: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "3,1", reply)
	assert.Contains(t, body, `"maxOutputTokens":50`)
	assert.Contains(t, body, `"role":"model"`)
	assert.Contains(t, body, "matcher")
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "g-key", srv.URL, "gemini-test", 0, 5*time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), oracle.Request{Turns: []oracle.Turn{{Role: oracle.RoleUser, Content: "q"}}})
	assert.ErrorIs(t, err, oracle.ErrOracle)
	assert.Equal(t, oracle.KindRateLimit, oracle.KindOf(err))
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", "m", 0, time.Second)
	assert.Error(t, err)
}
