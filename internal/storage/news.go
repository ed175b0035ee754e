package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const newsColumns = `id, title, content, main_image, preview_image, published_at, author`

func (s *DB) CreateNews(ctx context.Context, n *News) error {
	if err := s.ok(); err != nil {
		return err
	}
	if n.PublishedAt.IsZero() {
		n.PublishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO news(title, content, main_image, preview_image, published_at, author) VALUES(?,?,?,?,?,?)`,
		n.Title, n.Content, nullBlob(n.MainImage), nullBlob(n.PreviewImage), unixMilli(n.PublishedAt), nullStr(n.Author),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func (s *DB) UpdateNews(ctx context.Context, n *News) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE news SET title=?, content=?, main_image=?, preview_image=?, published_at=?, author=? WHERE id=?`,
		n.Title, n.Content, nullBlob(n.MainImage), nullBlob(n.PreviewImage), unixMilli(n.PublishedAt), nullStr(n.Author), n.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "news", n.ID)
}

func (s *DB) GetNews(ctx context.Context, id int64) (News, error) {
	if err := s.ok(); err != nil {
		return News{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+newsColumns+` FROM news WHERE id = ?`, id)
	n, err := scanNews(row)
	if errors.Is(err, sql.ErrNoRows) {
		return News{}, fmt.Errorf("news %d: %w", id, ErrNotFound)
	}
	return n, err
}

// ListNews returns all news, newest first.
func (s *DB) ListNews(ctx context.Context) ([]News, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	return s.queryNews(ctx, `SELECT `+newsColumns+` FROM news ORDER BY published_at DESC, id DESC`)
}

// NewsPublishedBetween returns news with from <= published_at < to, oldest first.
func (s *DB) NewsPublishedBetween(ctx context.Context, from, to time.Time) ([]News, error) {
	if err := s.ok(); err != nil {
		return nil, err
	}
	return s.queryNews(ctx,
		`SELECT `+newsColumns+` FROM news WHERE published_at >= ? AND published_at < ? ORDER BY published_at, id`,
		from.UnixMilli(), to.UnixMilli(),
	)
}

func (s *DB) DeleteNews(ctx context.Context, id int64) error {
	if err := s.ok(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "news", id)
}

func (s *DB) queryNews(ctx context.Context, query string, args ...any) ([]News, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []News
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNews(r rowScanner) (News, error) {
	var (
		n      News
		author sql.NullString
		pub    int64
	)
	if err := r.Scan(&n.ID, &n.Title, &n.Content, &n.MainImage, &n.PreviewImage, &pub, &author); err != nil {
		return News{}, err
	}
	n.PublishedAt = fromMilli(pub)
	n.Author = author.String
	return n, nil
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
