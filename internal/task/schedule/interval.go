package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Interval is a fixed-delay schedule whose period is read from a Store on every check.
type Interval struct {
	key   string
	def   time.Duration
	store Store
	opts  options

	mu    sync.Mutex
	every time.Duration
	last  Resolution[time.Duration]
}

var _ cron.Schedule = (*Interval)(nil)

// NewInterval builds an interval evaluator for spec. Before the first check the
// active interval is WithInitialInterval's value, else the default.
func NewInterval(store Store, spec IntervalSpec, opts ...Option) (*Interval, error) {
	if spec.DefaultHours <= 0 {
		return nil, fmt.Errorf("interval %s: default hours must be > 0", spec.ConfigKey)
	}
	def := time.Duration(spec.DefaultHours) * time.Hour
	i := &Interval{key: spec.ConfigKey, def: def, store: store, opts: buildOptions(opts)}
	i.every = def
	if i.opts.initial > 0 {
		i.every = i.opts.initial
	}
	return i, nil
}

func (i *Interval) ConfigKey() string      { return i.key }
func (i *Interval) Default() time.Duration { return i.def }

// UpdateInterval re-reads the configured period ("H:MM") and makes it active.
// On any failure the default becomes active.
func (i *Interval) UpdateInterval(ctx context.Context) Resolution[time.Duration] {
	res := resolveOrDefault(ctx, i.store, i.key, i.opts.lookupTimeout, ParseInterval, i.def)
	res.At = i.opts.now()

	i.mu.Lock()
	i.every = res.Value
	i.last = res
	i.mu.Unlock()
	return res
}

// IsDue refreshes the interval, then reports due once now - lastRunAt >= interval.
// The delay is the full interval when due and the remaining time otherwise.
func (i *Interval) IsDue(ctx context.Context, lastRunAt time.Time) (bool, time.Duration) {
	every := i.UpdateInterval(ctx).Value
	remaining := lastRunAt.Add(every).Sub(i.opts.now())
	if remaining <= 0 {
		return true, every
	}
	return false, remaining
}

// Next returns t plus the active interval, rounded to the second the way cron.Every does.
// It does not consult the Store.
func (i *Interval) Next(t time.Time) time.Time {
	return cron.Every(i.Interval()).Next(t)
}

// Interval returns the active period.
func (i *Interval) Interval() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.every
}

func (i *Interval) LastResolution() Resolution[time.Duration] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last
}

func (i *Interval) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return newStatus(KindInterval, i.key, FormatInterval(i.every), FormatInterval(i.def), i.last.Raw, i.last.Fallback, i.last.Cause, i.last.At)
}
