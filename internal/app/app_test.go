package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsplaces/internal/config"
	"newsplaces/internal/eventbus"
	"newsplaces/internal/settings"
	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	logx "newsplaces/pkg/logx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body = strings.ReplaceAll(body, "$DIR", filepath.ToSlash(dir))
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMapTaskEngineConfig(t *testing.T) {
	t.Parallel()

	got, err := mapTaskEngineConfig(&config.Config{})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got.RetryMax != 3 || got.Workers != 0 {
		t.Fatalf("defaults = %+v", got)
	}

	got, err = mapTaskEngineConfig(&config.Config{TaskEngine: &config.TaskEngineConfig{
		Workers: 4, RetryMax: 1, RetryBase: "250ms", RetryMaxDelay: "5s", DefaultTimeout: "1m",
	}})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := engine.Config{Workers: 4, RetryMax: 1, RetryBase: 250 * time.Millisecond, RetryMaxDelay: 5 * time.Second, DefaultTimeout: time.Minute}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := mapTaskEngineConfig(&config.Config{TaskEngine: &config.TaskEngineConfig{RetryBase: "fast"}}); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestSchedulerLocation(t *testing.T) {
	t.Parallel()

	loc, err := schedulerLocation(&config.Config{})
	if err != nil || loc != time.Local {
		t.Fatalf("empty timezone = %v, %v", loc, err)
	}
	loc, err = schedulerLocation(&config.Config{Scheduler: config.SchedulerConfig{Timezone: "UTC"}})
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("UTC = %v, %v", loc, err)
	}
	if _, err := schedulerLocation(&config.Config{Scheduler: config.SchedulerConfig{Timezone: "Nowhere/Land"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRecordTaskRuns(t *testing.T) {
	t.Parallel()

	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "runs.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = recordTaskRuns(ctx, bus, db, logx.Nop())
	}()
	// Subscription happens inside the goroutine.
	deadline := time.Now().Add(2 * time.Second)

	started := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	var runs []storage.TaskRun
	for time.Now().Before(deadline) {
		bus.Publish(eventbus.Event{Type: eventbus.TaskFailed, Data: engine.TaskEvent{
			ID: "run-1", Name: TaskSendDigest, Started: started, Duration: time.Second, Attempts: 4, Error: "smtp down",
		}})
		time.Sleep(20 * time.Millisecond)
		runs, err = db.ListTaskRuns(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListTaskRuns: %v", err)
		}
		if len(runs) > 0 {
			break
		}
	}
	cancel()
	<-done

	if len(runs) == 0 {
		t.Fatalf("no task run recorded")
	}
	r := runs[0]
	if r.Name != TaskSendDigest || r.Status != "failed" || r.Attempts != 4 || r.Error != "smtp down" {
		t.Fatalf("run = %+v", r)
	}
	if !r.FinishedAt.Equal(started.Add(time.Second)) {
		t.Fatalf("finished at = %v", r.FinishedAt)
	}
}

func TestNewAppRegistersSchedules(t *testing.T) {
	// NewApp configures process-wide zerolog settings; keep these serial.
	path := writeConfig(t, `{
  "logging": {"level": "error"},
  "storage": {"path": "$DIR/newsplaces.db"},
  "scheduler": {"enabled": false, "timezone": "UTC"},
  "mail": {"backend": "log", "from": "news@example.com"}
}`)
	a, err := NewApp(path)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	if err := a.Settings().Set(ctx, settings.WeatherFetchInterval, "3:30"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	infos := a.Scheduler().Preview(ctx)
	if len(infos) != 2 {
		t.Fatalf("entries = %+v", infos)
	}
	byName := map[string]string{}
	for _, e := range infos {
		byName[e.Name] = e.Schedule.Active
	}
	if byName[TaskSendDigest] != "08:00" || byName[TaskFetchWeather] != "3:30" {
		t.Fatalf("active values = %v", byName)
	}
	if a.Location().String() != "UTC" {
		t.Fatalf("location = %v", a.Location())
	}
}

func TestApplyConfigTogglesScheduler(t *testing.T) {
	// NewApp configures process-wide zerolog settings; keep these serial.
	path := writeConfig(t, `{"logging":{"level":"error"},"storage":{"path":"$DIR/a.db"},"scheduler":{"enabled":false}}`)
	a, err := NewApp(path)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.Scheduler().Stop(ctx)
		_ = a.Close()
	})

	oldCfg := a.Config().Get()
	newCfg := *oldCfg
	newCfg.Scheduler.Enabled = true
	newCfg.Weather.Concurrency = 8

	a.applyConfig(context.Background(), oldCfg, &newCfg)
	snap := a.Scheduler().Snapshot()
	if !snap.Enabled || !snap.Running {
		t.Fatalf("scheduler not started: %+v", snap)
	}
}
