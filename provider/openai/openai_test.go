package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"2, 1"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, "gpt-4o", 0.2, 5*time.Second)
	reply, err := c.Complete(context.Background(), oracle.Request{
		System:    "sys",
		Turns:     []oracle.Turn{{Role: oracle.RoleUser, Content: "q"}, {Role: oracle.RoleAssistant, Content: "a"}},
		MaxTokens: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "2, 1", reply)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}}, got.Messages)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   oracle.Kind
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, oracle.KindAuth},
		{"rate limit", http.StatusTooManyRequests, `{}`, oracle.KindRateLimit},
		{"server", http.StatusBadGateway, ``, oracle.KindStatus},
		{"no choices", http.StatusOK, `{"choices":[]}`, oracle.KindEmpty},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`, oracle.KindEmpty},
		{"garbage", http.StatusOK, `<html>`, oracle.KindDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewOpenAIClient("k", srv.URL, "m", 0, time.Second)
			_, err := c.Complete(context.Background(), oracle.Request{Turns: []oracle.Turn{{Role: oracle.RoleUser, Content: "q"}}})
			require.Error(t, err)
			assert.ErrorIs(t, err, oracle.ErrOracle)
			assert.Equal(t, tc.kind, oracle.KindOf(err))
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m", 0, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, oracle.Request{Turns: []oracle.Turn{{Role: oracle.RoleUser, Content: "q"}}})
	assert.Equal(t, oracle.KindTimeout, oracle.KindOf(err))
}
