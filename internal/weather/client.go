// Package weather reads current conditions from the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "newsplaces/pkg/logx"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"
	defaultTimeout = 10 * time.Second

	hPaToMmHg = 0.75006
)

var (
	ErrNoCurrentWeather = errors.New("weather: no current weather in response")
	ErrNoHourlyTimes    = errors.New("weather: hourly times missing")
	ErrIncompleteHourly = errors.New("weather: incomplete hourly data")
)

// StatusError is a non-2xx reply from the API.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather: http %d: %s", e.Code, e.Body)
}

// Reading is the current weather at one point. Pressure is in mmHg.
type Reading struct {
	Time          string
	Temperature   float64
	Humidity      float64
	Pressure      float64
	WindSpeed     float64
	WindDirection float64
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int // 0 means unlimited
}

type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: lim,
		log:     log.With(logx.String("comp", "weather")),
	}
}

type forecast struct {
	CurrentWeather *struct {
		Temperature   float64 `json:"temperature"`
		WindSpeed     float64 `json:"windspeed"`
		WindDirection float64 `json:"winddirection"`
		Time          string  `json:"time"`
	} `json:"current_weather"`
	Hourly struct {
		Time     []string   `json:"time"`
		Humidity []*float64 `json:"relativehumidity_2m"`
		Pressure []*float64 `json:"pressure_msl"`
	} `json:"hourly"`
}

// Current fetches the conditions at (lat, lon).
func (c *Client) Current(ctx context.Context, lat, lon float64) (Reading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Reading{}, err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("hourly", "relativehumidity_2m,pressure_msl")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			se.RetryAfter = time.Duration(s) * time.Second
		}
		return Reading{}, se
	}

	var f forecast
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return Reading{}, fmt.Errorf("weather: decode: %w", err)
	}
	r, err := f.reading()
	if err != nil {
		return Reading{}, err
	}
	c.log.Debug("weather fetched",
		logx.Float64("lat", lat), logx.Float64("lon", lon),
		logx.String("time", r.Time), logx.Duration("took", time.Since(start)))
	return r, nil
}

func (f forecast) reading() (Reading, error) {
	cw := f.CurrentWeather
	if cw == nil {
		return Reading{}, ErrNoCurrentWeather
	}
	times := f.Hourly.Time
	if len(times) == 0 {
		return Reading{}, ErrNoHourlyTimes
	}

	// current_weather is reported at 15-minute steps; hourly arrays are on the hour.
	at := cw.Time
	if !slices.Contains(times, at) && len(at) >= 2 {
		at = at[:len(at)-2] + "00"
	}
	idx := slices.Index(times, at)
	if idx < 0 {
		return Reading{}, fmt.Errorf("weather: current time %q not in hourly data", cw.Time)
	}
	if idx >= len(f.Hourly.Humidity) || idx >= len(f.Hourly.Pressure) ||
		f.Hourly.Humidity[idx] == nil || f.Hourly.Pressure[idx] == nil {
		return Reading{}, ErrIncompleteHourly
	}

	return Reading{
		Time:          at,
		Temperature:   cw.Temperature,
		Humidity:      *f.Hourly.Humidity[idx],
		Pressure:      PressureMmHg(*f.Hourly.Pressure[idx]),
		WindSpeed:     cw.WindSpeed,
		WindDirection: cw.WindDirection,
	}, nil
}

// PressureMmHg converts hPa to mmHg rounded to two decimals.
func PressureMmHg(hpa float64) float64 {
	return math.Round(hpa*hPaToMmHg*100) / 100
}
