package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nvkhoa/agent-edge/internal/provider"
)

// Metered wraps a provider so every successful completion is recorded in the
// store. Recording happens off the request path and never fails the call.
func Metered(p provider.Provider, store Store) provider.Provider {
	return &metered{p: p, store: store}
}

type metered struct {
	p     provider.Provider
	store Store
}

func (m *metered) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	start := time.Now()
	resp, err := m.p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		RequestID:        uuid.New().String(),
		Provider:         m.p.Name(),
		Model:            req.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		LatencyMs:        time.Since(start).Milliseconds(),
	}
	go func() {
		_ = m.store.Log(context.Background(), rec)
	}()

	return resp, nil
}

func (m *metered) Name() string { return m.p.Name() }

func (m *metered) DefaultModel() string { return m.p.DefaultModel() }
