package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"newsplaces/internal/eventbus"
	logx "newsplaces/pkg/logx"
)

func startEngine(t *testing.T, cfg Config, bus eventbus.Bus) *Service {
	t.Helper()
	svc := New(cfg, logx.Nop(), bus)
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	})
	return svc
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) TaskEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev.Data.(TaskEvent)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestRunsTaskAndPublishesFinished(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()
	svc := startEngine(t, Config{Workers: 1}, bus)

	var ran atomic.Bool
	if err := svc.Enqueue(Task{Name: "send_digest", Run: func(context.Context) error {
		ran.Store(true)
		return nil
	}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ev := waitEvent(t, ch, eventbus.TaskFinished)
	if !ran.Load() || ev.Name != "send_digest" || ev.Attempts != 1 || ev.ID == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if h := svc.Snapshot().History; len(h) != 1 || h[0].Error != "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16, eventbus.TaskFinished, eventbus.TaskFailed)
	defer unsub()
	svc := startEngine(t, Config{Workers: 1, RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond}, bus)

	var calls atomic.Int32
	_ = svc.Enqueue(Task{Name: "fetch_weather", Run: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("upstream 502")
		}
		return nil
	}})

	ev := waitEvent(t, ch, eventbus.TaskFinished)
	if ev.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", ev.Attempts)
	}
}

func TestNoRetryStopsImmediately(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16, eventbus.TaskFinished, eventbus.TaskFailed)
	defer unsub()
	svc := startEngine(t, Config{Workers: 1, RetryMax: 5, RetryBase: time.Millisecond}, bus)

	var calls atomic.Int32
	_ = svc.Enqueue(Task{Name: "send_digest", Run: func(context.Context) error {
		calls.Add(1)
		return NoRetry(errors.New("no recipients"))
	}})

	ev := waitEvent(t, ch, eventbus.TaskFailed)
	if calls.Load() != 1 || ev.Attempts != 1 || ev.Error != "no recipients" {
		t.Fatalf("calls=%d event=%+v", calls.Load(), ev)
	}
}

func TestPanicIsContained(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16, eventbus.TaskFinished, eventbus.TaskFailed)
	defer unsub()
	svc := startEngine(t, Config{Workers: 1, RetryMax: 2, RetryBase: time.Millisecond}, bus)

	_ = svc.Enqueue(Task{Name: "bad", Run: func(context.Context) error { panic("nil map") }})
	ev := waitEvent(t, ch, eventbus.TaskFailed)
	if ev.Attempts != 1 {
		t.Fatalf("panics should not be retried, attempts = %d", ev.Attempts)
	}

	// The worker survives and keeps serving.
	_ = svc.Enqueue(Task{Name: "good", Run: func(context.Context) error { return nil }})
	waitEvent(t, ch, eventbus.TaskFinished)
}

func TestTimeoutApplies(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16, eventbus.TaskFailed)
	defer unsub()
	svc := startEngine(t, Config{Workers: 1, DefaultTimeout: 20 * time.Millisecond}, bus)

	_ = svc.Enqueue(Task{Name: "slow", Opt: TaskOptions{}, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	ev := waitEvent(t, ch, eventbus.TaskFailed)
	if ev.Error == "" {
		t.Fatalf("expected timeout error")
	}
}

func TestOverlapSkip(t *testing.T) {
	t.Parallel()
	svc := startEngine(t, Config{Workers: 1}, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	if err := svc.Enqueue(Task{Name: "fetch_weather", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-started

	err := svc.Enqueue(Task{Name: "fetch_weather", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrOverlapSkip) {
		t.Fatalf("second Enqueue err = %v, want ErrOverlapSkip", err)
	}
	err = svc.Enqueue(Task{Name: "other", Opt: TaskOptions{Overlap: OverlapAllow}, Run: func(context.Context) error { return nil }})
	if err != nil {
		t.Fatalf("Enqueue other: %v", err)
	}
	close(release)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()
	svc := startEngine(t, Config{Workers: 1, QueueSize: 1}, nil)

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	run := func(context.Context) error { <-block; return nil }

	_ = svc.Enqueue(Task{Name: "a", Run: func(context.Context) error { close(started); <-block; return nil }})
	<-started
	if err := svc.Enqueue(Task{Name: "b", Run: run}); err != nil {
		t.Fatalf("Enqueue b: %v", err)
	}
	if err := svc.Enqueue(Task{Name: "c", Run: run}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue c err = %v, want ErrQueueFull", err)
	}
	if svc.Snapshot().Dropped != 1 {
		t.Fatalf("Dropped = %d", svc.Snapshot().Dropped)
	}
}

func TestEnqueueValidation(t *testing.T) {
	t.Parallel()
	svc := New(Config{}, logx.Nop(), nil)

	if err := svc.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue before Start err = %v", err)
	}
	if err := svc.Enqueue(Task{Name: " "}); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("Enqueue invalid err = %v", err)
	}
}
