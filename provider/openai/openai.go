package openai_provider

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
	name          = "openai"
	defaultAPIURL = "https://api.openai.com/v1"
)

// client implements oracle.Oracle using OpenAI's chat completions API
type client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL targets the public API.
func NewOpenAIClient(apiKey, baseURL, model string, temperature float64, timeout time.Duration) *client {
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

// Complete sends the system instruction and turns as one chat completion request
func (c *client) Complete(ctx context.Context, req oracle.Request) (string, error) {
	messages := make([]Message, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	for _, t := range req.Turns {
		messages = append(messages, Message{Role: string(t.Role), Content: t.Content})
	}
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   req.MaxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", oracle.TransportError(ctx, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", oracle.TransportError(ctx, name, fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", oracle.StatusError(name, resp.StatusCode, string(body))
	}

	var openaiResp response
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindDecode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if openaiResp.Error != nil {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindStatus, Err: fmt.Errorf("%s: %s", openaiResp.Error.Type, openaiResp.Error.Message)}
	}
	if len(openaiResp.Choices) == 0 || openaiResp.Choices[0].Message.Content == nil {
		return "", &oracle.Error{Provider: name, Kind: oracle.KindEmpty, Err: fmt.Errorf("no choices in response")}
	}
	return *openaiResp.Choices[0].Message.Content, nil
}
