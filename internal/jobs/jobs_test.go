package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmit_RunsRegisteredHandler(t *testing.T) {
	r := NewRunner()
	ran := make(chan Trigger, 1)
	r.Register("nightly", func(ctx context.Context, tr Trigger) error {
		ran <- tr
		return nil
	})

	r.Submit(Trigger{ID: "t1", Cron: "nightly", ScheduledAt: time.Now()})

	select {
	case tr := <-ran:
		if tr.ID != "t1" {
			t.Errorf("trigger id = %q", tr.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestSubmit_UnknownCronIsIgnored(t *testing.T) {
	r := NewRunner()
	r.Submit(Trigger{ID: "t1", Cron: "nope"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Drain(ctx); err != nil {
		t.Errorf("Drain failed: %v", err)
	}
}

func TestSubmit_ReturnsBeforeJobFinishes(t *testing.T) {
	r := NewRunner()
	release := make(chan struct{})
	r.Register("slow", func(ctx context.Context, tr Trigger) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		r.Submit(Trigger{Cron: "slow"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on the job body")
	}
	close(release)
}

func TestDrain_WaitsForInFlightJobs(t *testing.T) {
	r := NewRunner()
	release := make(chan struct{})
	finished := make(chan struct{})
	r.Register("slow", func(ctx context.Context, tr Trigger) error {
		<-release
		close(finished)
		return nil
	})
	r.Submit(Trigger{Cron: "slow"})

	// Drain should time out while the job is held open.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while job in flight, got %v", err)
	}

	close(release)
	<-finished

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := r.Drain(ctx2); err != nil {
		t.Errorf("Drain after completion failed: %v", err)
	}
}

func TestSubmit_HandlerErrorDoesNotPanic(t *testing.T) {
	r := NewRunner()
	r.Register("failing", func(ctx context.Context, tr Trigger) error {
		return errors.New("job failed")
	})
	r.Submit(Trigger{Cron: "failing"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Drain(ctx); err != nil {
		t.Errorf("Drain failed: %v", err)
	}
}
