package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrConfigKeyMissing       = errors.New("config key missing")
	ErrConfigValueMalformed   = errors.New("config value malformed")
	ErrConfigStoreUnavailable = errors.New("config store unavailable")
)

const defaultLookupTimeout = 2 * time.Second

// Store is the read side of the runtime settings store.
// settings.Service implements it.
type Store interface {
	Lookup(ctx context.Context, key string) (value string, ok bool, err error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, key string) (string, bool, error)

func (f StoreFunc) Lookup(ctx context.Context, key string) (string, bool, error) {
	return f(ctx, key)
}

// Resolution is the outcome of reading one setting.
//
// When Fallback is true, Value is the default and Cause wraps one of
// ErrConfigKeyMissing, ErrConfigValueMalformed or ErrConfigStoreUnavailable.
type Resolution[T any] struct {
	Value    T
	Raw      string
	Fallback bool
	Cause    error
	At       time.Time
}

// resolveOrDefault reads key from store and parses it. It never fails: every
// error becomes a fallback Resolution carrying def.
func resolveOrDefault[T any](ctx context.Context, store Store, key string, timeout time.Duration, parse func(string) (T, error), def T) Resolution[T] {
	fallback := func(raw string, cause error) Resolution[T] {
		return Resolution[T]{Value: def, Raw: raw, Fallback: true, Cause: cause}
	}
	if store == nil {
		return fallback("", fmt.Errorf("%w: no store", ErrConfigStoreUnavailable))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, ok, err := store.Lookup(ctx, key)
	switch {
	case err != nil:
		return fallback("", fmt.Errorf("%w: %s: %w", ErrConfigStoreUnavailable, key, err))
	case !ok:
		return fallback("", fmt.Errorf("%w: %s", ErrConfigKeyMissing, key))
	}

	v, err := parse(raw)
	if err != nil {
		if !errors.Is(err, ErrConfigValueMalformed) {
			err = fmt.Errorf("%w: %w", ErrConfigValueMalformed, err)
		}
		return fallback(raw, err)
	}
	return Resolution[T]{Value: v, Raw: raw}
}
