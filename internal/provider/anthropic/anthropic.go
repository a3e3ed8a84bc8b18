package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nvkhoa/agent-edge/internal/provider"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultModel     = "claude-3-5-sonnet-20241022"
	anthropicVersion = "2023-06-01"
)

var foreignModelFragments = []string{"gpt", "deepseek", "gemini", "llama", "mistral"}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   tokenUsage     `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type tokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}, nil
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) DefaultModel() string { return c.model }

func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(c.mapRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/messages", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.Error{Provider: c.Name(), Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.Error{Provider: c.Name(), Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.Error{Provider: c.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	var envelope messagesResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &provider.Error{
			Provider: c.Name(),
			Status:   resp.StatusCode,
			Body:     fmt.Sprintf("malformed response envelope: %v", err),
		}
	}
	if len(envelope.Content) == 0 {
		return nil, &provider.Error{Provider: c.Name(), Status: resp.StatusCode, Body: "no content returned"}
	}

	return &provider.Response{
		Content: envelope.Content[0].Text,
		Usage: provider.Usage{
			PromptTokens:     envelope.Usage.InputTokens,
			CompletionTokens: envelope.Usage.OutputTokens,
			TotalTokens:      envelope.Usage.InputTokens + envelope.Usage.OutputTokens,
		},
	}, nil
}

// mapRequest translates the canonical shape into the messages API. System
// messages move into the top-level system field; the structured-output
// directive has no equivalent on this wire format and is not forwarded.
func (c *Client) mapRequest(req *provider.Request) messagesRequest {
	var system string
	var messages []chatMessage

	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = provider.DefaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = provider.DefaultMaxTokens
	}

	return messagesRequest{
		Model:       c.normalizeModel(req.Model),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
		Messages:    messages,
	}
}

func (c *Client) normalizeModel(model string) string {
	if model == "" {
		return c.model
	}
	lower := strings.ToLower(model)
	for _, fragment := range foreignModelFragments {
		if strings.Contains(lower, fragment) {
			return c.model
		}
	}
	return model
}
