package settings

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"newsplaces/internal/eventbus"
	logx "newsplaces/pkg/logx"
)

type memBackend struct {
	mu   sync.Mutex
	vals map[string]string
	err  error
}

func newMemBackend() *memBackend { return &memBackend{vals: map[string]string{}} }

func (m *memBackend) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *memBackend) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.vals[key] = value
	return nil
}

func (m *memBackend) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

func (m *memBackend) ListSettings(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return out, nil
}

func TestLookupFallsBackToDefault(t *testing.T) {
	t.Parallel()
	svc := New(nil, newMemBackend(), nil, logx.Nop())
	ctx := context.Background()

	v, ok, err := svc.Lookup(ctx, EmailSendTime)
	if err != nil || !ok || v != "08:00" {
		t.Fatalf("Lookup default = %q ok:%v err:%v", v, ok, err)
	}
	if err := svc.Set(ctx, EmailSendTime, "10:15"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, _, _ = svc.Lookup(ctx, EmailSendTime)
	if v != "10:15" {
		t.Fatalf("Lookup after Set = %q", v)
	}
	if err := svc.Reset(ctx, EmailSendTime); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	v, _, _ = svc.Lookup(ctx, EmailSendTime)
	if v != "08:00" {
		t.Fatalf("Lookup after Reset = %q", v)
	}
}

func TestUnknownKey(t *testing.T) {
	t.Parallel()
	svc := New(nil, newMemBackend(), nil, logx.Nop())
	ctx := context.Background()

	if _, ok, err := svc.Lookup(ctx, "NOPE"); ok || err != nil {
		t.Fatalf("Lookup unknown ok:%v err:%v", ok, err)
	}
	if err := svc.Set(ctx, "NOPE", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Set unknown err = %v", err)
	}
	if _, err := svc.Get(ctx, "NOPE"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Get unknown err = %v", err)
	}
}

func TestLookupPropagatesBackendError(t *testing.T) {
	t.Parallel()
	be := newMemBackend()
	be.err = errors.New("database is locked")
	svc := New(nil, be, nil, logx.Nop())

	if _, _, err := svc.Lookup(context.Background(), WeatherFetchInterval); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestListMarksOverrides(t *testing.T) {
	t.Parallel()
	be := newMemBackend()
	be.vals[EmailSubject] = "Daily"
	svc := New(nil, be, nil, logx.Nop())

	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Key == EmailSubject {
			if !e.Overridden || e.Value != "Daily" || e.Default != "News for today" {
				t.Fatalf("unexpected entry %+v", e)
			}
		} else if e.Overridden {
			t.Fatalf("entry %s should not be overridden", e.Key)
		}
	}
}

func TestSetPublishesChange(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(2, eventbus.SettingChange)
	defer unsub()

	svc := New(nil, newMemBackend(), bus, logx.Nop())
	if err := svc.Set(context.Background(), WeatherFetchInterval, "2:30"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Data != WeatherFetchInterval {
			t.Fatalf("event data = %v", ev.Data)
		}
	default:
		t.Fatalf("expected settings.changed event")
	}
}

func TestRecipients(t *testing.T) {
	t.Parallel()
	be := newMemBackend()
	be.vals[EmailRecipients] = " a@x.org, ,b@x.org,, "
	svc := New(nil, be, nil, logx.Nop())

	got, err := svc.Recipients(context.Background())
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if want := []string{"a@x.org", "b@x.org"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Recipients = %v, want %v", got, want)
	}
}
