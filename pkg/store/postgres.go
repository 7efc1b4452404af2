package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	slog.Info("Connected to PostgreSQL successfully.")
	p := &Postgres{pool: pool}
	if _, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS pixels (
		x integer not null,
		y integer not null,
		color text not null,
		primary key (x, y)
		)`,
	); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create pixels table: %w", err)
	}
	return p, nil
}

func (p *Postgres) Upsert(ctx context.Context, px pixel.Pixel) error {
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO pixels (x, y, color) VALUES ($1, $2, $3)
		ON CONFLICT (x, y) DO UPDATE SET color = EXCLUDED.color`,
		px.X, px.Y, px.Color,
	); err != nil {
		return fmt.Errorf("failed to upsert pixel: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, c pixel.Coord) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM pixels WHERE x = $1 AND y = $2`, c.X, c.Y); err != nil {
		return fmt.Errorf("failed to delete pixel: %w", err)
	}
	return nil
}

func (p *Postgres) QueryRange(ctx context.Context, r pixel.Rect) ([]pixel.Pixel, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT x, y, color FROM pixels WHERE x BETWEEN $1 AND $2 AND y BETWEEN $3 AND $4 ORDER BY x, y`,
		r.XMin, r.XMax, r.YMin, r.YMax,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	out := make([]pixel.Pixel, 0)
	for rows.Next() {
		var px pixel.Pixel
		var x, y int32
		if err := rows.Scan(&x, &y, &px.Color); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		px.X, px.Y = int(x), int(y)
		out = append(out, px)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
