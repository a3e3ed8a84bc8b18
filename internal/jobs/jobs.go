package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// Trigger is one scheduled invocation: the cron identifier that fired and
// when the platform scheduled it.
type Trigger struct {
	ID          string
	Cron        string
	ScheduledAt time.Time
}

type HandlerFunc func(ctx context.Context, t Trigger) error

// Runner executes scheduled job handlers in the background. Submission
// returns immediately; the process must Drain before exiting so in-flight
// jobs outlive the triggering call but not the process.
type Runner struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	wg       sync.WaitGroup
}

func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]HandlerFunc)}
}

func (r *Runner) Register(cron string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[cron] = h
}

// Submit hands the trigger to its registered handler without blocking.
func (r *Runner) Submit(t Trigger) {
	r.mu.RLock()
	h, ok := r.handlers[t.Cron]
	r.mu.RUnlock()

	if !ok {
		log.Printf("jobs: no handler registered for cron %q (trigger %s)", t.Cron, t.ID)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := h(context.Background(), t); err != nil {
			log.Printf("jobs: cron %q (trigger %s) failed: %v", t.Cron, t.ID, err)
		}
	}()
}

// Drain blocks until all submitted jobs finish or ctx expires.
func (r *Runner) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
