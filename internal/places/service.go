// Package places manages points of interest and their weather history.
package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/weather"
	logx "newsplaces/pkg/logx"
)

const (
	maxNameLen         = 255
	maxRating          = 25
	defaultConcurrency = 4
)

var ErrInvalid = errors.New("invalid place")

// Store persists places and summaries. storage.DB implements it.
type Store interface {
	CreatePlace(ctx context.Context, p *storage.Place) error
	UpdatePlace(ctx context.Context, p *storage.Place) error
	GetPlace(ctx context.Context, id int64) (storage.Place, error)
	ListPlaces(ctx context.Context) ([]storage.Place, error)
	DeletePlace(ctx context.Context, id int64) error
	AddWeatherSummary(ctx context.Context, w *storage.WeatherSummary) error
	ListWeatherSummaries(ctx context.Context, placeID int64, limit int) ([]storage.WeatherSummary, error)
}

// WeatherSource returns current conditions. weather.Client implements it.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (weather.Reading, error)
}

type Service struct {
	store Store
	src   WeatherSource
	log   logx.Logger
	now   func() time.Time

	mu          sync.Mutex
	concurrency int
}

type Option func(*Service)

func WithConcurrency(n int) Option { return func(s *Service) { s.concurrency = n } }

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, src WeatherSource, log logx.Logger, opts ...Option) *Service {
	s := &Service{store: store, src: src, log: log.With(logx.String("comp", "places")), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetConcurrency bounds parallel fetches; applied on config reload.
func (s *Service) SetConcurrency(n int) {
	s.mu.Lock()
	s.concurrency = n
	s.mu.Unlock()
}

// SetSource replaces the weather client; applied on config reload.
func (s *Service) SetSource(src WeatherSource) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}

func (s *Service) source() WeatherSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func (s *Service) limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.concurrency <= 0 {
		return defaultConcurrency
	}
	return s.concurrency
}

func Validate(p storage.Place) error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name required", ErrInvalid)
	case utf8.RuneCountInString(name) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalid, maxNameLen)
	case p.Rating < 0 || p.Rating > maxRating:
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrInvalid, maxRating)
	case p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude out of range", ErrInvalid)
	case p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude out of range", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *storage.Place) error {
	if err := Validate(*p); err != nil {
		return err
	}
	return s.store.CreatePlace(ctx, p)
}

func (s *Service) Update(ctx context.Context, p *storage.Place) error {
	if err := Validate(*p); err != nil {
		return err
	}
	return s.store.UpdatePlace(ctx, p)
}

func (s *Service) Get(ctx context.Context, id int64) (storage.Place, error) {
	return s.store.GetPlace(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]storage.Place, error) {
	return s.store.ListPlaces(ctx)
}

// Delete removes the place and its weather history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeletePlace(ctx, id)
}

// Weather returns the place's summaries, newest first.
func (s *Service) Weather(ctx context.Context, placeID int64, limit int) ([]storage.WeatherSummary, error) {
	return s.store.ListWeatherSummaries(ctx, placeID, limit)
}

// FetchWeather stores a fresh summary for every place. Places are fetched
// concurrently; one failing place does not stop the others. An error is
// returned only when every place failed.
func (s *Service) FetchWeather(ctx context.Context) error {
	all, err := s.store.ListPlaces(ctx)
	if err != nil {
		return fmt.Errorf("list places: %w", err)
	}
	if len(all) == 0 {
		s.log.Debug("no places; weather fetch skipped")
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(s.limit())
	src := s.source()
	for _, p := range all {
		g.Go(func() error {
			if err := s.fetchOne(ctx, src, p); err != nil {
				s.log.Warn("weather fetch failed", logx.Int64("place_id", p.ID), logx.String("place", p.Name), logx.Err(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("place %d: %w", p.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("weather fetch done", logx.Int("places", len(all)), logx.Int("failed", len(errs)))
	if len(errs) < len(all) {
		return nil
	}
	joined := errors.Join(errs...)
	var se *weather.StatusError
	if errors.As(joined, &se) && se.RetryAfter > 0 {
		return engine.RetryAfter(joined, se.RetryAfter)
	}
	return joined
}

func (s *Service) fetchOne(ctx context.Context, src WeatherSource, p storage.Place) error {
	r, err := src.Current(ctx, p.Latitude, p.Longitude)
	if err != nil {
		return err
	}
	return s.store.AddWeatherSummary(ctx, &storage.WeatherSummary{
		PlaceID:       p.ID,
		Timestamp:     s.now(),
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		Pressure:      r.Pressure,
		WindDirection: r.WindDirection,
		WindSpeed:     r.WindSpeed,
	})
}
