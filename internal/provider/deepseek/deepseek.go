package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/nvkhoa/agent-edge/internal/provider"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"
)

// Model-name fragments belonging to other backend families. A caller passing
// one of these misconfigured identifiers gets the default model instead.
var foreignModelFragments = []string{"gpt", "claude", "gemini", "llama", "mistral"}

type Config struct {
	APIKey  string // required, never logged
	Model   string // optional, defaults to deepseek-chat
	BaseURL string // optional, trailing slashes stripped
}

// Client is a stateless adapter for the DeepSeek chat completion API. All
// state is fixed at construction, so one Client is safe for concurrent use.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek: api key is required")
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

func (c *Client) Name() string { return "deepseek" }

func (c *Client) DefaultModel() string { return c.model }

func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(c.mapRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

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

	var envelope chatResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &provider.Error{
			Provider: c.Name(),
			Status:   resp.StatusCode,
			Body:     fmt.Sprintf("malformed response envelope: %v", err),
		}
	}
	if len(envelope.Choices) == 0 {
		return nil, &provider.Error{Provider: c.Name(), Status: resp.StatusCode, Body: "no choices returned"}
	}

	choice := envelope.Choices[0]
	if choice.Message.Content == "" && choice.FinishReason == "length" {
		// The call succeeded but output was truncated before any visible
		// content was produced.
		log.Printf("deepseek: empty content with finish_reason=length (max_tokens too small?)")
	}

	return &provider.Response{
		Content: choice.Message.Content,
		Usage: provider.Usage{
			PromptTokens:     envelope.Usage.PromptTokens,
			CompletionTokens: envelope.Usage.CompletionTokens,
			TotalTokens:      envelope.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) mapRequest(req *provider.Request) chatRequest {
	messages := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = provider.DefaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = provider.DefaultMaxTokens
	}

	return chatRequest{
		Model:          c.normalizeModel(req.Model),
		Messages:       messages,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: req.ResponseFormat,
	}
}

// normalizeModel guards against call sites configured for a different
// backend family: a model name carrying a known foreign fragment is silently
// replaced by this adapter's default.
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
