package provider

import (
	"context"
	"encoding/json"
)

// Defaults applied by adapters when the caller leaves a field unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat is a structured-output directive forwarded to the
	// backend verbatim when present.
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage holds the token counters reported by the backend. Counters absent
// from the backend envelope stay zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is one completion backend behind the canonical request/response
// shape. Implementations hold only fixed configuration and are safe for
// concurrent use.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Name() string
	DefaultModel() string
}
