package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/card-ingest/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s, err := newPostgresWithPool(mock)
	require.NoError(t, err)
	return s, mock
}

func leadRows() *pgxmock.Rows {
	return pgxmock.NewRows(leadColumns)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_UpsertLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO "leads" .* ON CONFLICT \("email"\) DO UPDATE SET "name" = COALESCE\(EXCLUDED."name", "leads"."name"\).* RETURNING`).
		WithArgs(anyArgs(len(leadColumns))...).
		WillReturnRows(leadRows().AddRow(
			"lead-1", "Olivia Wilson", "hello@reallygreatsite.com", "+1234567890", "Acme",
			"Real Estate Agent", "reallygreatsite.com", "Mock OCR", now, now,
		))

	stored, err := s.UpsertLead(context.Background(), model.Lead{
		Name:  "Olivia Wilson",
		Email: "hello@reallygreatsite.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", stored.ID)
	assert.Equal(t, "Olivia Wilson", stored.Name)
	assert.Equal(t, "+1234567890", stored.Phone)
	assert.Equal(t, "Real Estate Agent", stored.JobTitle)
	assert.Equal(t, now, stored.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO "leads"`).
		WithArgs(anyArgs(len(leadColumns))...).
		WillReturnError(errors.New("connection refused"))

	_, err := s.UpsertLead(context.Background(), model.Lead{Name: "X"})
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upsert", se.Op)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, email, phone, company, job_title, website, source, created_at, updated_at FROM leads WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLead(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM leads WHERE true AND email = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("a@example.com", 5, 10).
		WillReturnRows(leadRows().AddRow(
			"lead-1", "A", "a@example.com", "123", "Co", "Title", "example.com", "src", now, now,
		))

	leads, err := s.ListLeads(context.Background(), LeadFilter{Email: "a@example.com", Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "A", leads[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM leads WHERE true ORDER BY created_at DESC, id LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(leadRows())

	leads, err := s.ListLeads(context.Background(), LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
