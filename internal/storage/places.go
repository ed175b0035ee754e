package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *DB) CreatePlace(ctx context.Context, p *Place) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO places(name, longitude, latitude, rating) VALUES(?,?,?,?)`,
		p.Name, p.Longitude, p.Latitude, p.Rating,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *DB) UpdatePlace(ctx context.Context, p *Place) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE places SET name=?, longitude=?, latitude=?, rating=? WHERE id=?`,
		p.Name, p.Longitude, p.Latitude, p.Rating, p.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "place", p.ID)
}

func (s *DB) GetPlace(ctx context.Context, id int64) (Place, error) {
	if err := s.ok(); err != nil {
		return Place{}, err
	}
	var p Place
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, longitude, latitude, rating FROM places WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Longitude, &p.Latitude, &p.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return Place{}, fmt.Errorf("place %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *DB) ListPlaces(ctx context.Context) ([]Place, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, longitude, latitude, rating FROM places ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Longitude, &p.Latitude, &p.Rating); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePlace removes the place and, through the foreign key, its weather history.
func (s *DB) DeletePlace(ctx context.Context, id int64) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "place", id)
}

func (s *DB) AddWeatherSummary(ctx context.Context, w *WeatherSummary) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO weather_summaries(place_id, ts, temperature, humidity, pressure, wind_direction, wind_speed)
		 VALUES(?,?,?,?,?,?,?)`,
		w.PlaceID, unixMilli(w.Timestamp), w.Temperature, w.Humidity, w.Pressure, w.WindDirection, w.WindSpeed,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = id
	return nil
}

// ListWeatherSummaries returns a place's weather history, newest first.
// limit <= 0 means no limit.
func (s *DB) ListWeatherSummaries(ctx context.Context, placeID int64, limit int) ([]WeatherSummary, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, ts, temperature, humidity, pressure, wind_direction, wind_speed
		 FROM weather_summaries WHERE place_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		placeID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WeatherSummary
	for rows.Next() {
		var (
			w  WeatherSummary
			ts int64
		)
		if err := rows.Scan(&w.ID, &w.PlaceID, &ts, &w.Temperature, &w.Humidity, &w.Pressure, &w.WindDirection, &w.WindSpeed); err != nil {
			return nil, err
		}
		w.Timestamp = fromMilli(ts)
		out = append(out, w)
	}
	return out, rows.Err()
}
