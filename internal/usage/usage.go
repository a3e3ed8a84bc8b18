package usage

import (
	"context"
	"time"
)

// Record is one completed backend call's token accounting.
type Record struct {
	ID               string
	RequestID        string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
	CreatedAt        time.Time
}

// Summary aggregates records over a time window.
type Summary struct {
	Requests         int
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	From             time.Time
	To               time.Time
}

type Store interface {
	Log(ctx context.Context, rec *Record) error
	Summarize(ctx context.Context, from, to time.Time) (*Summary, error)
}
