package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsplaces/internal/eventbus"
	logx "newsplaces/pkg/logx"
)

var ErrUnknownKey = errors.New("unknown setting")

// Backend persists overrides. storage.DB implements it.
type Backend interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	ListSettings(ctx context.Context) (map[string]string, error)
}

// Entry is a setting as shown to operators.
type Entry struct {
	Key        string
	Value      string
	Default    string
	Help       string
	Overridden bool
}

type Service struct {
	reg     Registry
	backend Backend
	bus     eventbus.Bus
	log     logx.Logger
}

// New returns a settings service. bus may be nil.
func New(reg Registry, backend Backend, bus eventbus.Bus, log logx.Logger) *Service {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Service{reg: reg, backend: backend, bus: bus, log: log.With(logx.String("comp", "settings"))}
}

func (s *Service) Registry() Registry { return s.reg }

// Lookup returns the stored override, else the registered default.
// Unregistered keys report ok=false. A backend failure is returned as-is.
func (s *Service) Lookup(ctx context.Context, key string) (string, bool, error) {
	def, known := s.reg[key]
	if !known {
		return "", false, nil
	}
	v, ok, err := s.backend.GetSetting(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("settings lookup %s: %w", key, err)
	}
	if !ok {
		return def.Default, true, nil
	}
	return v, true, nil
}

// Get is Lookup with an error for unregistered keys.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	v, ok, err := s.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	if _, ok := s.reg[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := s.backend.PutSetting(ctx, key, value); err != nil {
		return fmt.Errorf("settings set %s: %w", key, err)
	}
	s.log.Info("setting changed", logx.String("key", key), logx.String("value", value))
	s.notify(key)
	return nil
}

// Reset removes the override so the key reads as its default again.
func (s *Service) Reset(ctx context.Context, key string) error {
	if _, ok := s.reg[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := s.backend.DeleteSetting(ctx, key); err != nil {
		return fmt.Errorf("settings reset %s: %w", key, err)
	}
	s.log.Info("setting reset", logx.String("key", key))
	s.notify(key)
	return nil
}

// List returns every registered setting, sorted by key.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	stored, err := s.backend.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings list: %w", err)
	}
	out := make([]Entry, 0, len(s.reg))
	for _, k := range s.reg.Keys() {
		def := s.reg[k]
		e := Entry{Key: k, Value: def.Default, Default: def.Default, Help: def.Help}
		if v, ok := stored[k]; ok {
			e.Value = v
			e.Overridden = true
		}
		out = append(out, e)
	}
	return out, nil
}

// Recipients splits EMAIL_RECIPIENTS on commas, trimming blanks.
func (s *Service) Recipients(ctx context.Context) ([]string, error) {
	raw, err := s.Get(ctx, EmailRecipients)
	if err != nil {
		return nil, err
	}
	return SplitList(raw), nil
}

func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) notify(key string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.SettingChange, Data: key})
}
