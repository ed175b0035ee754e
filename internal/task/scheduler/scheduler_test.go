package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsplaces/internal/eventbus"
	"newsplaces/internal/settings"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/task/schedule"
	logx "newsplaces/pkg/logx"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]time.Time
	err  error
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]time.Time{}} }

func (r *fakeRuns) LastRun(_ context.Context, name string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return time.Time{}, false, r.err
	}
	t, ok := r.runs[name]
	return t, ok, nil
}

func (r *fakeRuns) SetLastRun(_ context.Context, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[name] = at
	return nil
}

func (r *fakeRuns) get(name string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[name]
}

type fakeEngine struct {
	mu    sync.Mutex
	tasks []engine.Task
	err   error
}

func (e *fakeEngine) Enqueue(t engine.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, t)
	return nil
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

func (e *fakeEngine) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

type kv struct {
	mu   sync.Mutex
	vals map[string]string
}

func (s *kv) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	return v, ok, nil
}

func (s *kv) set(key, value string) {
	s.mu.Lock()
	s.vals[key] = value
	s.mu.Unlock()
}

type fixture struct {
	clock *fakeClock
	runs  *fakeRuns
	eng   *fakeEngine
	store *kv
	svc   *Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		clock: &fakeClock{now: now},
		runs:  newFakeRuns(),
		eng:   &fakeEngine{},
		store: &kv{vals: map[string]string{}},
	}
	f.svc = New(Config{Enabled: true}, f.eng, f.runs, logx.Nop(), nil, WithClock(f.clock.Now))
	return f
}

func (f *fixture) opts() []schedule.Option {
	return []schedule.Option{schedule.WithClock(f.clock.Now), schedule.WithLocation(time.UTC)}
}

func noop(context.Context) error { return nil }

func TestTickDispatchesDueIntervalAndRecordsRun(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.runs.runs["fetch_weather"] = now.Add(-90 * time.Minute)

	if err := f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), time.Minute, noop); err != nil {
		t.Fatalf("Register: %v", err)
	}

	sleep := f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("dispatched = %d, want 1", f.eng.count())
	}
	if got := f.runs.get("fetch_weather"); !got.Equal(now) {
		t.Fatalf("last run = %v, want %v", got, now)
	}
	if sleep != defaultMaxLoopInterval {
		t.Fatalf("sleep = %v, want cap %v", sleep, defaultMaxLoopInterval)
	}

	// Not due again until an hour has passed.
	f.clock.Advance(59 * time.Minute)
	f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("dispatched early: %d", f.eng.count())
	}
	f.clock.Advance(time.Minute)
	f.svc.Tick(context.Background())
	if f.eng.count() != 2 {
		t.Fatalf("dispatched = %d, want 2", f.eng.count())
	}
}

func TestMissingLastRunStartsNow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	sleep := f.svc.Tick(context.Background())
	if f.eng.count() != 0 {
		t.Fatalf("first pass must not dispatch")
	}
	if got := f.runs.get("fetch_weather"); !got.Equal(now) {
		t.Fatalf("persisted initial last run = %v, want %v", got, now)
	}
	if sleep != defaultMaxLoopInterval {
		t.Fatalf("sleep = %v", sleep)
	}
}

func TestSleepIsEarliestCheck(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.svc.Apply(Config{Enabled: true, MaxLoopInterval: time.Hour})
	f.runs.runs["fetch_weather"] = now.Add(-50 * time.Minute)
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	if got := f.svc.Tick(context.Background()); got != 10*time.Minute {
		t.Fatalf("sleep = %v, want 10m", got)
	}
}

func TestEnqueueFailureRetriesNextPass(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	prev := now.Add(-2 * time.Hour)
	f.runs.runs["fetch_weather"] = prev
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	f.eng.setErr(engine.ErrQueueFull)
	if got := f.svc.Tick(context.Background()); got != defaultRetryDelay {
		t.Fatalf("sleep = %v, want %v", got, defaultRetryDelay)
	}
	if got := f.runs.get("fetch_weather"); !got.Equal(prev) {
		t.Fatalf("last run must not move on enqueue failure: %v", got)
	}
	if e := f.svc.Snapshot().Entries[0]; e.LastError == "" {
		t.Fatalf("expected LastError in snapshot")
	}

	f.eng.setErr(nil)
	f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("expected retry to dispatch")
	}
	if e := f.svc.Snapshot().Entries[0]; e.LastError != "" || e.Dispatched != 1 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestOverlapSkipConsumesOccurrence(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.runs.runs["fetch_weather"] = now.Add(-2 * time.Hour)
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	f.eng.setErr(engine.ErrOverlapSkip)
	f.svc.Tick(context.Background())
	if got := f.runs.get("fetch_weather"); !got.Equal(now) {
		t.Fatalf("last run = %v, want %v", got, now)
	}
}

func TestDisabledDoesNothing(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.svc.Apply(Config{Enabled: false})
	f.runs.runs["fetch_weather"] = now.Add(-2 * time.Hour)
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	f.svc.Tick(context.Background())
	if f.eng.count() != 0 {
		t.Fatalf("disabled scheduler dispatched")
	}
}

func TestCalendarPicksUpNewSendTime(t *testing.T) {
	t.Parallel()
	// Ran yesterday at 08:00; now is 07:30.
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.runs.runs["send_digest"] = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	_ = f.svc.Register("send_digest", schedule.EmailDigest(f.store, f.opts()...), 0, noop)

	f.svc.Tick(context.Background())
	if f.eng.count() != 0 {
		t.Fatalf("not due before 08:00")
	}

	f.store.set(settings.EmailSendTime, "07:15")
	f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("expected dispatch after moving send time to 07:15")
	}
	if st := f.svc.Snapshot().Entries[0].Schedule; st.Active != "07:15" || st.Fallback {
		t.Fatalf("status = %+v", st)
	}

	// Garbage falls back to 08:00; today's 07:15 occurrence already ran.
	f.store.set(settings.EmailSendTime, "noon")
	f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("unexpected second dispatch")
	}
	if st := f.svc.Snapshot().Entries[0].Schedule; st.Active != "08:00" || !st.Fallback {
		t.Fatalf("status = %+v", st)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Now())
	eval := schedule.WeatherFetch(f.store, f.opts()...)

	cases := []struct {
		name string
		key  string
		eval schedule.Evaluator
		job  func(context.Context) error
	}{
		{name: "empty name", key: " ", eval: eval, job: noop},
		{name: "nil evaluator", key: "x", job: noop},
		{name: "nil job", key: "y", eval: eval},
	}
	for _, tc := range cases {
		if err := f.svc.Register(tc.key, tc.eval, 0, tc.job); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if err := f.svc.Register("fetch_weather", eval, 0, noop); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.svc.Register("fetch_weather", eval, 0, noop); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestPreviewDoesNotDispatch(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.runs.runs["fetch_weather"] = now.Add(-2 * time.Hour)
	f.store.set(settings.WeatherFetchInterval, "0:30")
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	infos := f.svc.Preview(context.Background())
	if f.eng.count() != 0 {
		t.Fatalf("Preview dispatched")
	}
	if len(infos) != 1 || !infos[0].Due || infos[0].Schedule.Active != "0:30" {
		t.Fatalf("preview = %+v", infos)
	}
	if want := now.Add(-90 * time.Minute); !infos[0].NextRun.Equal(want) {
		t.Fatalf("next run = %v, want %v", infos[0].NextRun, want)
	}
}

func TestPreviewLeavesRunStoreUntouched(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	infos := f.svc.Preview(context.Background())
	if len(infos) != 1 || infos[0].Due || !infos[0].LastRun.Equal(now) {
		t.Fatalf("preview = %+v", infos)
	}
	f.runs.mu.Lock()
	n := len(f.runs.runs)
	f.runs.mu.Unlock()
	if n != 0 {
		t.Fatalf("Preview persisted last runs: %v", f.runs.runs)
	}

	f.svc.Tick(context.Background())
	if got := f.runs.get("fetch_weather"); !got.Equal(now) {
		t.Fatalf("Tick should seed the last run, got %v", got)
	}
}

func TestLastRunLoadErrorIsRetried(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.runs.err = errors.New("database is locked")
	_ = f.svc.Register("fetch_weather", schedule.WeatherFetch(f.store, f.opts()...), 0, noop)

	f.svc.Tick(context.Background())

	f.runs.mu.Lock()
	f.runs.err = nil
	f.runs.runs["fetch_weather"] = now.Add(-2 * time.Hour)
	f.runs.mu.Unlock()

	f.svc.Tick(context.Background())
	if f.eng.count() != 1 {
		t.Fatalf("expected stored last run to be loaded on the next pass")
	}
}

func TestSettingChangeWakesLoop(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	eng := engine.New(engine.Config{Workers: 1}, logx.Nop(), bus)
	eng.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		eng.Stop(ctx)
	})

	store := &kv{vals: map[string]string{settings.WeatherFetchInterval: "24:00"}}
	runs := newFakeRuns()
	runs.runs["fetch_weather"] = time.Now().Add(-2 * time.Hour)

	svc := New(Config{Enabled: true, MaxLoopInterval: time.Hour}, eng, runs, logx.Nop(), bus)
	ran := make(chan struct{}, 1)
	var calls atomic.Int32
	_ = svc.Register("fetch_weather", schedule.WeatherFetch(store), time.Second, func(context.Context) error {
		calls.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	})
	if !svc.Snapshot().Running {
		t.Fatalf("expected running snapshot")
	}

	// Give the first pass time to sleep on the hour-long timer.
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("ran before interval change")
	}

	store.set(settings.WeatherFetchInterval, "1:00")
	bus.Publish(eventbus.Event{Type: eventbus.SettingChange, Data: settings.WeatherFetchInterval})

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("setting change did not wake the scheduler")
	}
	snap := svc.Snapshot()
	if snap.Engine == nil || snap.Engine.Workers != 1 {
		t.Fatalf("engine snapshot = %+v", snap.Engine)
	}
}
