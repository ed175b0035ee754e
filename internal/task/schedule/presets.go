package schedule

import (
	"context"
	"time"

	"newsplaces/internal/settings"
)

type Kind string

const (
	KindCalendar Kind = "calendar"
	KindInterval Kind = "interval"
)

// CalendarSpec binds a calendar evaluator to a settings key and default time of day.
type CalendarSpec struct {
	ConfigKey     string
	DefaultHour   int
	DefaultMinute int
}

// IntervalSpec binds an interval evaluator to a settings key and default period.
type IntervalSpec struct {
	ConfigKey    string
	DefaultHours int
}

var (
	EmailDigestSpec  = CalendarSpec{ConfigKey: settings.EmailSendTime, DefaultHour: 8, DefaultMinute: 0}
	WeatherFetchSpec = IntervalSpec{ConfigKey: settings.WeatherFetchInterval, DefaultHours: 1}
)

// EmailDigest is the daily digest schedule (EMAIL_SEND_TIME, default 08:00).
func EmailDigest(store Store, opts ...Option) *Calendar {
	c, err := NewCalendar(store, EmailDigestSpec, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// WeatherFetch is the weather refresh schedule (WEATHER_FETCH_INTERVAL, default 1h).
func WeatherFetch(store Store, opts ...Option) *Interval {
	i, err := NewInterval(store, WeatherFetchSpec, opts...)
	if err != nil {
		panic(err)
	}
	return i
}

// Evaluator is what the scheduler polls. Calendar and Interval implement it.
type Evaluator interface {
	IsDue(ctx context.Context, lastRunAt time.Time) (bool, time.Duration)
	Next(t time.Time) time.Time
	Status() Status
}

var (
	_ Evaluator = (*Calendar)(nil)
	_ Evaluator = (*Interval)(nil)
)

// Status is an operator-facing view of an evaluator's last check.
type Status struct {
	Kind      Kind
	ConfigKey string
	Active    string
	Default   string
	Raw       string
	Fallback  bool
	Cause     string
	CheckedAt time.Time
}

func newStatus(kind Kind, key, active, def, raw string, fallback bool, cause error, at time.Time) Status {
	st := Status{Kind: kind, ConfigKey: key, Active: active, Default: def, Raw: raw, Fallback: fallback, CheckedAt: at}
	if cause != nil {
		st.Cause = cause.Error()
	}
	return st
}
