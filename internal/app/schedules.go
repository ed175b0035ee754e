package app

import (
	"time"

	"newsplaces/internal/news"
	"newsplaces/internal/places"
	"newsplaces/internal/task/schedule"
	"newsplaces/internal/task/scheduler"
)

const (
	TaskSendDigest   = "news.send_digest"
	TaskFetchWeather = "places.fetch_weather"

	digestTimeout  = 2 * time.Minute
	weatherTimeout = 5 * time.Minute
)

// registerSchedules binds the two periodic jobs to their settings-driven evaluators.
func registerSchedules(s *scheduler.Service, store schedule.Store, loc *time.Location, lookupTimeout time.Duration, n *news.Service, p *places.Service) error {
	opts := []schedule.Option{schedule.WithLocation(loc)}
	if lookupTimeout > 0 {
		opts = append(opts, schedule.WithLookupTimeout(lookupTimeout))
	}

	if err := s.Register(TaskSendDigest, schedule.EmailDigest(store, opts...), digestTimeout, n.SendDigest); err != nil {
		return err
	}
	return s.Register(TaskFetchWeather, schedule.WeatherFetch(store, opts...), weatherTimeout, p.FetchWeather)
}
