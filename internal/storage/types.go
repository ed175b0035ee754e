package storage

import (
	"errors"
	"time"
)

var (
	ErrClosed   = errors.New("storage closed")
	ErrNotFound = errors.New("not found")
)

// Config configures the database.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default (5s)
}

// News is a published article. Images are stored inline; PreviewImage is derived
// from MainImage by the news service.
type News struct {
	ID           int64
	Title        string
	Content      string
	MainImage    []byte
	PreviewImage []byte
	PublishedAt  time.Time
	Author       string
}

// Place is a geocoded point of interest.
type Place struct {
	ID        int64
	Name      string
	Longitude float64
	Latitude  float64
	Rating    int
}

// WeatherSummary is one weather observation for a place. Pressure is in mmHg.
type WeatherSummary struct {
	ID            int64
	PlaceID       int64
	Timestamp     time.Time
	Temperature   float64
	Humidity      float64
	Pressure      float64
	WindDirection float64
	WindSpeed     float64
}

// TaskRun records one finished task execution.
type TaskRun struct {
	ID         string
	Name       string
	Status     string // "ok" | "failed"
	Attempts   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
