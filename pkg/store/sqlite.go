package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

type SQLite struct {
	database *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path. WAL and a busy timeout let many connection
// goroutines write concurrently while SQLite serialises them on the primary key.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	slog.Info("Opening database", "driver", "sqlite3", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	s := &SQLite{database: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init(ctx context.Context) error {
	if _, err := s.database.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS pixels (
		x integer not null,
		y integer not null,
		color text not null,
		primary key (x, y)
		)`,
	); err != nil {
		return fmt.Errorf("failed to create pixels table: %w", err)
	}
	slog.Info("Ensured initial tables exist")
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, p pixel.Pixel) error {
	if _, err := s.database.ExecContext(ctx,
		`INSERT INTO pixels (x, y, color) VALUES (?, ?, ?)
		ON CONFLICT (x, y) DO UPDATE SET color = excluded.color`,
		p.X, p.Y, p.Color,
	); err != nil {
		return fmt.Errorf("failed to upsert pixel: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, c pixel.Coord) error {
	if _, err := s.database.ExecContext(ctx, `DELETE FROM pixels WHERE x = ? AND y = ?`, c.X, c.Y); err != nil {
		return fmt.Errorf("failed to delete pixel: %w", err)
	}
	return nil
}

func (s *SQLite) QueryRange(ctx context.Context, r pixel.Rect) ([]pixel.Pixel, error) {
	rows, err := s.database.QueryContext(ctx,
		`SELECT x, y, color FROM pixels WHERE x >= ? AND x <= ? AND y >= ? AND y <= ? ORDER BY x, y`,
		r.XMin, r.XMax, r.YMin, r.YMax,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "err", err)
		}
	}(rows)
	out := make([]pixel.Pixel, 0)
	for rows.Next() {
		var p pixel.Pixel
		if err := rows.Scan(&p.X, &p.Y, &p.Color); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.database.Close()
}
