package anthropic_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	name          = "anthropic"
	defaultAPIURL = "https://api.anthropic.com/v1"
	apiVersion    = "2023-06-01"
	// placeholder opening turn for transcripts whose window starts mid-conversation
	continuedTurn = "(continuing our earlier conversation)"
)

// client implements oracle.Oracle using Anthropic's Messages API
type client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a new Anthropic client. An empty baseURL targets the public API.
func NewAnthropicClient(apiKey, baseURL, model string, temperature float64, timeout time.Duration) *client {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *client) Name() string { return name }

func (c *client) Complete(ctx context.Context, req oracle.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	msgs := make([]message, 0, len(req.Turns)+1)
	if len(req.Turns) > 0 && req.Turns[0].Role == oracle.RoleAssistant {
		msgs = append(msgs, message{Role: "user", Content: continuedTurn})
	}
	for _, t := range req.Turns {
		msgs = append(msgs, message{Role: string(t.Role), Content: t.Content})
	}
	reqBody := request{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    msgs,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", oracle.TransportError(ctx, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", oracle.TransportError(ctx, name, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", oracle.StatusError(name, resp.StatusCode, string(body))
	}

	var anthropicResp response
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindDecode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if anthropicResp.Error != nil {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindStatus, Err: fmt.Errorf("%s: %s", anthropicResp.Error.Type, anthropicResp.Error.Message)}
	}

	var result strings.Builder
	found := false
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			found = true
			result.WriteString(content.Text)
		}
	}
	if !found {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindEmpty, Err: fmt.Errorf("no text content in response")}
	}
	return strings.TrimSpace(result.String()), nil
}
