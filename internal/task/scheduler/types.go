package scheduler

import (
	"context"
	"sync"
	"time"

	"newsplaces/internal/eventbus"
	rtsup "newsplaces/internal/runtime/supervisor"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/task/schedule"
	logx "newsplaces/pkg/logx"
)

const (
	defaultMaxLoopInterval = time.Minute
	minLoopInterval        = 100 * time.Millisecond
)

// Config controls the trigger loop.
type Config struct {
	Enabled bool
	// MaxLoopInterval caps the sleep between passes. Default 1m.
	MaxLoopInterval time.Duration
}

// RunStore persists last-run timestamps. storage.DB implements it.
type RunStore interface {
	LastRun(ctx context.Context, name string) (time.Time, bool, error)
	SetLastRun(ctx context.Context, name string, at time.Time) error
}

// Enqueuer accepts tasks for execution. engine.Service implements it.
type Enqueuer interface {
	Enqueue(t engine.Task) error
}

type entry struct {
	name    string
	eval    schedule.Evaluator
	timeout time.Duration
	job     func(ctx context.Context) error
	opt     engine.TaskOptions

	loaded     bool
	lastRun    time.Time
	lastDue    bool
	nextCheck  time.Duration
	lastErr    string
	dispatched uint64
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log  logx.Logger
	bus  eventbus.Bus
	eng  Enqueuer
	runs RunStore
	now  func() time.Time

	entries []*entry

	wake chan struct{}
	sup  *rtsup.Supervisor

	// Enqueue error throttling: key is entry name.
	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time
}

type EntryInfo struct {
	Name       string
	Schedule   schedule.Status
	Timeout    time.Duration
	LastRun    time.Time
	NextRun    time.Time
	Due        bool
	NextCheck  time.Duration
	LastError  string
	Dispatched uint64
}

type Snapshot struct {
	Enabled         bool
	Running         bool
	MaxLoopInterval time.Duration
	Entries         []EntryInfo

	// Engine is set when the Enqueuer can report diagnostics.
	Engine *engine.Snapshot
}
