package schedule

import "time"

type options struct {
	loc           *time.Location
	now           func() time.Time
	lookupTimeout time.Duration
	initial       time.Duration
}

type Option func(*options)

// WithLocation sets the zone calendar fire times are interpreted in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLookupTimeout bounds each Store read. Zero or negative disables the bound.
func WithLookupTimeout(d time.Duration) Option {
	return func(o *options) { o.lookupTimeout = d }
}

// WithInitialInterval sets the interval reported before the first refresh.
// Ignored by Calendar.
func WithInitialInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.initial = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{loc: time.Local, now: time.Now, lookupTimeout: defaultLookupTimeout}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
