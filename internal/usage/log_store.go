package usage

import (
	"context"
	"log"
	"time"
)

// LogStore writes records to the process log. It is the store for
// deployments without a database; summaries are always empty.
type LogStore struct{}

func NewLogStore() Store {
	return &LogStore{}
}

func (s *LogStore) Log(ctx context.Context, rec *Record) error {
	log.Printf("usage: provider=%s model=%s prompt=%d completion=%d total=%d latency_ms=%d",
		rec.Provider, rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.LatencyMs)
	return nil
}

func (s *LogStore) Summarize(ctx context.Context, from, to time.Time) (*Summary, error) {
	return &Summary{From: from, To: to}, nil
}
