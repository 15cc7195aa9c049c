package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leadline/crm-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'new',
	is_lead    INTEGER NOT NULL DEFAULT 1,
	archived   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone);
CREATE INDEX IF NOT EXISTS idx_clients_status ON clients(status);

CREATE TABLE IF NOT EXISTS statuses (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_default INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO statuses (id, name, color, sort_order, is_default) VALUES
	('status-new', 'new', '#3b82f6', 1, 1),
	('status-in-progress', 'in_progress', '#f59e0b', 2, 0),
	('status-sold', 'sold', '#22c55e', 3, 0),
	('status-rejected', 'rejected', '#ef4444', 4, 0);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPhones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone FROM clients`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list phones")
	}
	defer rows.Close()

	phones := make(map[string]struct{})
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phone")
		}
		phones[phone] = struct{}{}
	}
	return phones, eris.Wrap(rows.Err(), "sqlite: iterate phones")
}

func (s *SQLiteStore) CreateClient(ctx context.Context, client model.Client) (string, error) {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, phone, source, status, is_lead, archived, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.Name, client.Phone, client.Source, client.Status,
		client.IsLead, client.Archived, client.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", ErrDuplicatePhone
		}
		return "", eris.Wrapf(err, "sqlite: insert client %s", client.Phone)
	}
	return client.ID, nil
}

func (s *SQLiteStore) ListStatuses(ctx context.Context) ([]model.Status, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, sort_order, is_default FROM statuses ORDER BY sort_order`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list statuses")
	}
	defer rows.Close()

	var statuses []model.Status
	for rows.Next() {
		var st model.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Color, &st.SortOrder, &st.IsDefault); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status")
		}
		statuses = append(statuses, st)
	}
	return statuses, eris.Wrap(rows.Err(), "sqlite: iterate statuses")
}
