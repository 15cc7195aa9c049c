package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leadline/crm-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'new',
	is_lead    BOOLEAN NOT NULL DEFAULT true,
	archived   BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone);
CREATE INDEX IF NOT EXISTS idx_clients_status ON clients(status);

CREATE TABLE IF NOT EXISTS statuses (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_default BOOLEAN NOT NULL DEFAULT false
);

INSERT INTO statuses (id, name, color, sort_order, is_default) VALUES
	('status-new', 'new', '#3b82f6', 1, true),
	('status-in-progress', 'in_progress', '#f59e0b', 2, false),
	('status-sold', 'sold', '#22c55e', 3, false),
	('status-rejected', 'rejected', '#ef4444', 4, false)
ON CONFLICT (name) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListPhones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT phone FROM clients`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list phones")
	}
	defer rows.Close()

	phones := make(map[string]struct{})
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, eris.Wrap(err, "postgres: scan phone")
		}
		phones[phone] = struct{}{}
	}
	return phones, eris.Wrap(rows.Err(), "postgres: iterate phones")
}

func (s *PostgresStore) CreateClient(ctx context.Context, client model.Client) (string, error) {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO clients (id, name, phone, source, status, is_lead, archived, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		client.ID, client.Name, client.Phone, client.Source, client.Status,
		client.IsLead, client.Archived, client.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicatePhone
		}
		return "", eris.Wrapf(err, "postgres: insert client %s", client.Phone)
	}
	return client.ID, nil
}

func (s *PostgresStore) ListStatuses(ctx context.Context) ([]model.Status, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, color, sort_order, is_default FROM statuses ORDER BY sort_order`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list statuses")
	}
	defer rows.Close()

	var statuses []model.Status
	for rows.Next() {
		var st model.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Color, &st.SortOrder, &st.IsDefault); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status")
		}
		statuses = append(statuses, st)
	}
	return statuses, eris.Wrap(rows.Err(), "postgres: iterate statuses")
}
