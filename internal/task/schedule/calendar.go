package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// FireTime is a wall-clock time of day.
type FireTime struct {
	Hour   int
	Minute int
}

func (f FireTime) String() string { return fmt.Sprintf("%02d:%02d", f.Hour, f.Minute) }

func (f FireTime) validate() error {
	if f.Hour < 0 || f.Hour > 23 {
		return fmt.Errorf("hour %d out of range 0-23", f.Hour)
	}
	if f.Minute < 0 || f.Minute > 59 {
		return fmt.Errorf("minute %d out of range 0-59", f.Minute)
	}
	return nil
}

var dailyParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// daily returns the robfig schedule firing every day at f in loc.
func daily(f FireTime, loc *time.Location) (*cron.SpecSchedule, error) {
	s, err := dailyParser.Parse(fmt.Sprintf("%d %d * * *", f.Minute, f.Hour))
	if err != nil {
		return nil, err
	}
	spec, ok := s.(*cron.SpecSchedule)
	if !ok {
		return nil, fmt.Errorf("unexpected schedule type %T", s)
	}
	spec.Location = loc
	return spec, nil
}

// Calendar is a daily schedule whose time of day is read from a Store on every check.
type Calendar struct {
	key   string
	def   FireTime
	store Store
	opts  options

	mu     sync.Mutex
	active FireTime
	sched  *cron.SpecSchedule
	last   Resolution[FireTime]
}

var _ cron.Schedule = (*Calendar)(nil)

// NewCalendar builds a calendar evaluator for spec. The active fire time starts
// at the default until the first check.
func NewCalendar(store Store, spec CalendarSpec, opts ...Option) (*Calendar, error) {
	def := FireTime{Hour: spec.DefaultHour, Minute: spec.DefaultMinute}
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("calendar %s: default: %w", spec.ConfigKey, err)
	}
	c := &Calendar{key: spec.ConfigKey, def: def, store: store, opts: buildOptions(opts)}
	sched, err := daily(def, c.opts.loc)
	if err != nil {
		return nil, err
	}
	c.active = def
	c.sched = sched
	return c, nil
}

func (c *Calendar) ConfigKey() string { return c.key }
func (c *Calendar) Default() FireTime { return c.def }

// Refresh re-reads the configured fire time and makes it active. On any failure the
// default becomes active. The returned Resolution describes what happened.
func (c *Calendar) Refresh(ctx context.Context) Resolution[FireTime] {
	res := resolveOrDefault(ctx, c.store, c.key, c.opts.lookupTimeout, ParseFireTime, c.def)
	res.At = c.opts.now()

	sched, err := daily(res.Value, c.opts.loc)
	if err != nil {
		// Unreachable for validated fire times; keep the check on the default.
		res = Resolution[FireTime]{Value: c.def, Raw: res.Raw, Fallback: true, Cause: fmt.Errorf("%w: %v", ErrConfigValueMalformed, err), At: res.At}
		sched, _ = daily(c.def, c.opts.loc)
	}

	c.mu.Lock()
	c.active = res.Value
	c.sched = sched
	c.last = res
	c.mu.Unlock()
	return res
}

// IsDue refreshes the fire time, then applies daily calendar semantics: the task is
// due when the first occurrence after lastRunAt is not after now. The delay is the
// time until the next occurrence after now when due, and until the pending
// occurrence otherwise.
func (c *Calendar) IsDue(ctx context.Context, lastRunAt time.Time) (bool, time.Duration) {
	c.Refresh(ctx)
	sched := c.schedule()
	now := c.opts.now()

	next := sched.Next(lastRunAt)
	if !next.After(now) {
		return true, sched.Next(now).Sub(now)
	}
	return false, next.Sub(now)
}

// Next returns the first occurrence of the active fire time after t.
// It does not consult the Store.
func (c *Calendar) Next(t time.Time) time.Time {
	return c.schedule().Next(t)
}

// FireTime returns the active fire time.
func (c *Calendar) FireTime() FireTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// LastResolution returns the outcome of the most recent Refresh.
func (c *Calendar) LastResolution() Resolution[FireTime] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Calendar) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return newStatus(KindCalendar, c.key, c.active.String(), c.def.String(), c.last.Raw, c.last.Fallback, c.last.Cause, c.last.At)
}

func (c *Calendar) schedule() *cron.SpecSchedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched
}
