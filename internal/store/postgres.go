package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cambista/fxhooks/internal/endpoint"
)

// Schema for the endpoint registry. Applied by EnsureSchema on startup.
const schema = `
CREATE SCHEMA IF NOT EXISTS fxhooks;
CREATE TABLE IF NOT EXISTS fxhooks.endpoints (
	id                   UUID PRIMARY KEY,
	url                  TEXT NOT NULL,
	events               TEXT[] NOT NULL,
	secret               TEXT NOT NULL,
	active               BOOLEAN NOT NULL DEFAULT TRUE,
	consecutive_failures INT NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL,
	last_used_at         TIMESTAMPTZ
);`

// Connect establishes a connection pool to the database and verifies it
// with a bounded ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Postgres persists endpoints in a fxhooks.endpoints table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the fxhooks schema and endpoints table if absent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Put(ctx context.Context, ep endpoint.Endpoint) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO fxhooks.endpoints (id, url, events, secret, active, consecutive_failures, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			events = EXCLUDED.events,
			secret = EXCLUDED.secret,
			active = EXCLUDED.active,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_used_at = EXCLUDED.last_used_at`,
		ep.ID, ep.URL, ep.Events, ep.Secret, ep.Active, ep.ConsecutiveFailures, ep.CreatedAt, ep.LastUsedAt,
	)
	return err
}

func (p *Postgres) Get(ctx context.Context, id string) (endpoint.Endpoint, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, url, events, secret, active, consecutive_failures, created_at, last_used_at
		FROM fxhooks.endpoints WHERE id = $1`, id)
	ep, err := scanEndpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return endpoint.Endpoint{}, endpoint.ErrNotFound
	}
	return ep, err
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM fxhooks.endpoints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return endpoint.ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]endpoint.Endpoint, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, url, events, secret, active, consecutive_failures, created_at, last_used_at
		FROM fxhooks.endpoints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []endpoint.Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// Ping satisfies the health handler's prober interface.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanEndpoint(row pgx.Row) (endpoint.Endpoint, error) {
	var ep endpoint.Endpoint
	var lastUsed *time.Time
	if err := row.Scan(&ep.ID, &ep.URL, &ep.Events, &ep.Secret, &ep.Active,
		&ep.ConsecutiveFailures, &ep.CreatedAt, &lastUsed); err != nil {
		return endpoint.Endpoint{}, err
	}
	ep.LastUsedAt = lastUsed
	return ep, nil
}
