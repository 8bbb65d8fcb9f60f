package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/db"
	"github.com/sells-group/card-ingest/internal/model"
)

// PostgresStore implements LeadStore using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	upsertSQL string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, storageErr("open", eris.Wrap(err, "postgres: parse config"))
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, storageErr("open", eris.Wrap(err, "postgres: create pool"))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageErr("open", eris.Wrap(err, "postgres: ping"))
	}

	s, err := newPostgresWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresWithPool(pool db.Pool) (*PostgresStore, error) {
	upsertSQL, err := db.BuildCoalesceUpsert(leadUpsertConfig(true), db.Dollar)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build upsert")
	}
	return &PostgresStore{pool: pool, upsertSQL: upsertSQL}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT,
	email      TEXT UNIQUE,
	phone      TEXT,
	company    TEXT,
	job_title  TEXT,
	website    TEXT,
	source     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
`

const postgresSelectLead = `SELECT id, name, email, phone, company, job_title, website, source, created_at, updated_at FROM leads`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return storageErr("ping", eris.Wrap(s.pool.Ping(ctx), "postgres: ping"))
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return storageErr("migrate", eris.Wrap(err, "postgres: migrate"))
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) (*model.StoredLead, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stored, err := scanLead(s.pool.QueryRow(ctx, s.upsertSQL, leadArgs(id, lead, now)...))
	if err != nil {
		return nil, storageErr("upsert", eris.Wrap(err, "postgres: upsert lead"))
	}
	return stored, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.StoredLead, error) {
	stored, err := scanLead(s.pool.QueryRow(ctx, postgresSelectLead+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storageErr("get", eris.Wrapf(ErrNotFound, "postgres: get lead %s", id))
	}
	if err != nil {
		return nil, storageErr("get", eris.Wrapf(err, "postgres: get lead %s", id))
	}
	return stored, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.StoredLead, error) {
	query := postgresSelectLead + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Email != "" {
		query += fmt.Sprintf(` AND email = $%d`, argIdx)
		args = append(args, filter.Email)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list", eris.Wrap(err, "postgres: list leads"))
	}
	defer rows.Close()

	var leads []model.StoredLead
	for rows.Next() {
		sl, err := scanLead(rows)
		if err != nil {
			return nil, storageErr("list", eris.Wrap(err, "postgres: scan lead"))
		}
		leads = append(leads, *sl)
	}
	return leads, storageErr("list", eris.Wrap(rows.Err(), "postgres: list leads iterate"))
}
