package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetSetting returns the stored override for key. ok is false when none is stored.
func (s *DB) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	if err := s.ok(); err != nil {
		return "", false, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *DB) PutSetting(ctx context.Context, key, value string) error {
	if err := s.ok(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	return err
}

// DeleteSetting removes the override for key. Deleting a missing key is not an error.
func (s *DB) DeleteSetting(ctx context.Context, key string) error {
	if err := s.ok(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ListSettings returns every stored override.
func (s *DB) ListSettings(ctx context.Context) (map[string]string, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
