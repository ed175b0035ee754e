package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	logx "newsplaces/pkg/logx"
)

// LastRun returns the persisted last-run time of a scheduled entry.
func (s *DB) LastRun(ctx context.Context, name string) (time.Time, bool, error) {
	if err := s.ok(); err != nil {
		return time.Time{}, false, err
	}
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_run_at FROM schedule_runs WHERE name = ?`, name).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *DB) SetLastRun(ctx context.Context, name string, at time.Time) error {
	if err := s.ok(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_runs(name, last_run_at) VALUES(?,?)
		 ON CONFLICT(name) DO UPDATE SET last_run_at=excluded.last_run_at`,
		name, at.UnixMilli(),
	)
	return err
}

// AppendTaskRun stores a finished run. Old rows are pruned every few hundred appends.
func (s *DB) AppendTaskRun(ctx context.Context, r TaskRun) error {
	if err := s.ok(); err != nil {
		return err
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_runs(id, name, status, attempts, err, started_at, finished_at) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.Name, r.Status, r.Attempts, nullStr(r.Error), r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if perr := s.pruneTaskRuns(pctx); perr != nil {
			s.log.Debug("task run prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

// ListTaskRuns returns the most recent runs first.
func (s *DB) ListTaskRuns(ctx context.Context, limit int) ([]TaskRun, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, attempts, err, started_at, finished_at
		 FROM task_runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRun
	for rows.Next() {
		var (
			r        TaskRun
			errText  sql.NullString
			from, to int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &r.Attempts, &errText, &from, &to); err != nil {
			return nil, err
		}
		r.Error = errText.String
		r.StartedAt = time.UnixMilli(from)
		r.FinishedAt = time.UnixMilli(to)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *DB) pruneTaskRuns(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM task_runs WHERE id NOT IN (SELECT id FROM task_runs ORDER BY finished_at DESC LIMIT ?)`,
		s.keepRuns,
	)
	return err
}
