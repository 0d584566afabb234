// Package store persists tracked products as JSON documents in SQLite,
// keyed by product URL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lukman83/pricepulse/internal/models"
)

// Error is a persistence failure for one operation.
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is the product repository the pipeline depends on.
type Store interface {
	ListAll(ctx context.Context) ([]models.Product, error)
	FindByURL(ctx context.Context, url string) (*models.Product, error)
	Upsert(ctx context.Context, p models.Product) (models.Product, error)
}

// SQLite implements Store on a single table of JSON documents.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			url TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, &Error{Op: "migrate", Err: err}
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) ListAll(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, data FROM products ORDER BY url`)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var url, data string
		if err := rows.Scan(&url, &data); err != nil {
			return nil, &Error{Op: "list", Err: err}
		}
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, &Error{Op: "decode", URL: url, Err: err}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	return products, nil
}

// FindByURL returns nil, nil when the URL is not tracked.
func (s *SQLite) FindByURL(ctx context.Context, url string) (*models.Product, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM products WHERE url = ?`, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "find", URL: url, Err: err}
	}

	var p models.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, &Error{Op: "decode", URL: url, Err: err}
	}
	return &p, nil
}

func (s *SQLite) Upsert(ctx context.Context, p models.Product) (models.Product, error) {
	if p.URL == "" {
		return models.Product{}, &Error{Op: "upsert", Err: errors.New("product url is empty")}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	data, err := json.Marshal(p)
	if err != nil {
		return models.Product{}, &Error{Op: "encode", URL: p.URL, Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (url, platform, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(url)
		 DO UPDATE SET platform = excluded.platform, data = excluded.data, updated_at = excluded.updated_at`,
		p.URL, string(p.Platform), string(data), p.UpdatedAt,
	)
	if err != nil {
		return models.Product{}, &Error{Op: "upsert", URL: p.URL, Err: err}
	}
	return p, nil
}

// Raw returns the stored JSON document for url, byte for byte.
func (s *SQLite) Raw(ctx context.Context, url string) ([]byte, error) {
	var data string
	if err := s.db.QueryRowContext(ctx, `SELECT data FROM products WHERE url = ?`, url).Scan(&data); err != nil {
		return nil, &Error{Op: "raw", URL: url, Err: err}
	}
	return []byte(data), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
