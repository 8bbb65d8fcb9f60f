package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/card-ingest/internal/db"
	"github.com/sells-group/card-ingest/internal/model"
)

// SQLiteStore implements LeadStore using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	upsertSQL string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	upsertSQL, err := db.BuildCoalesceUpsert(leadUpsertConfig(false), db.Question)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build upsert")
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", eris.Wrap(err, "sqlite: open"))
	}
	// A single connection serializes writers and keeps the pragmas below in effect.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, storageErr("open", eris.Wrapf(err, "sqlite: exec %s", pragma))
		}
	}
	return &SQLiteStore{db: conn, upsertSQL: upsertSQL}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	email      TEXT UNIQUE,
	phone      TEXT,
	company    TEXT,
	job_title  TEXT,
	website    TEXT,
	source     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

const sqliteSelectLead = `SELECT id, name, email, phone, company, job_title, website, source, created_at, updated_at FROM leads`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return storageErr("migrate", eris.Wrap(err, "sqlite: migrate"))
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storageErr("ping", eris.Wrap(s.db.PingContext(ctx), "sqlite: ping"))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) (*model.StoredLead, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("upsert", eris.Wrap(err, "sqlite: begin tx"))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, s.upsertSQL, leadArgs(id, lead, now)...); err != nil {
		return nil, storageErr("upsert", eris.Wrap(err, "sqlite: upsert lead"))
	}

	// The merged row keeps its original id, so read it back by the natural key.
	var row *sql.Row
	if lead.Email != "" {
		row = tx.QueryRowContext(ctx, sqliteSelectLead+` WHERE email = ?`, lead.Email)
	} else {
		row = tx.QueryRowContext(ctx, sqliteSelectLead+` WHERE id = ?`, id)
	}
	stored, err := scanLead(row)
	if err != nil {
		return nil, storageErr("upsert", eris.Wrap(err, "sqlite: read upserted lead"))
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("upsert", eris.Wrap(err, "sqlite: commit tx"))
	}
	return stored, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.StoredLead, error) {
	stored, err := scanLead(s.db.QueryRowContext(ctx, sqliteSelectLead+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("get", eris.Wrapf(ErrNotFound, "sqlite: get lead %s", id))
	}
	if err != nil {
		return nil, storageErr("get", eris.Wrapf(err, "sqlite: get lead %s", id))
	}
	return stored, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.StoredLead, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(sqliteSelectLead + ` WHERE 1=1`)
	if filter.Email != "" {
		sb.WriteString(` AND email = ?`)
		args = append(args, filter.Email)
	}
	sb.WriteString(` ORDER BY created_at DESC, id`)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	sb.WriteString(` LIMIT ?`)
	args = append(args, limit)
	if filter.Offset > 0 {
		sb.WriteString(` OFFSET ?`)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("list", eris.Wrap(err, "sqlite: list leads"))
	}
	defer rows.Close()

	var leads []model.StoredLead
	for rows.Next() {
		sl, err := scanLead(rows)
		if err != nil {
			return nil, storageErr("list", eris.Wrap(err, "sqlite: scan lead"))
		}
		leads = append(leads, *sl)
	}
	return leads, storageErr("list", eris.Wrap(rows.Err(), "sqlite: list leads iterate"))
}
