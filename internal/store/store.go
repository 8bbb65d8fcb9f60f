package store

import (
	"context"

	"github.com/sells-group/card-ingest/internal/db"
	"github.com/sells-group/card-ingest/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Email  string `json:"email,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// LeadStore persists leads deduplicated by email.
type LeadStore interface {
	// UpsertLead inserts the lead, or merges it into the row with the same
	// email. On merge every absent incoming field keeps the stored value.
	// Leads without an email are always inserted as new rows.
	UpsertLead(ctx context.Context, lead model.Lead) (*model.StoredLead, error)
	GetLead(ctx context.Context, id string) (*model.StoredLead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.StoredLead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// leadColumns is the column order used for inserts and reads.
var leadColumns = []string{
	"id", "name", "email", "phone", "company", "job_title", "website", "source", "created_at", "updated_at",
}

func leadUpsertConfig(returning bool) db.UpsertConfig {
	cfg := db.UpsertConfig{
		Table:        "leads",
		Columns:      leadColumns,
		ConflictKeys: []string{"email"},
		Overwrite:    []string{"updated_at"},
		Keep:         []string{"id", "created_at"},
	}
	if returning {
		cfg.Returning = leadColumns
	}
	return cfg
}

// leadArgs returns the insert arguments in leadColumns order. Absent fields
// are bound as NULL so the coalesce keeps stored values.
func leadArgs(id string, lead model.Lead, now any) []any {
	return []any{
		id,
		db.NullString(lead.Name),
		db.NullString(lead.Email),
		db.NullString(lead.Phone),
		db.NullString(lead.Company),
		db.NullString(lead.JobTitle),
		db.NullString(lead.Website),
		db.NullString(lead.Source),
		now,
		now,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.StoredLead, error) {
	var (
		sl                                                    model.StoredLead
		name, email, phone, company, jobTitle, website, source *string
	)
	if err := row.Scan(&sl.ID, &name, &email, &phone, &company, &jobTitle, &website, &source, &sl.CreatedAt, &sl.UpdatedAt); err != nil {
		return nil, err
	}
	sl.Name = deref(name)
	sl.Email = deref(email)
	sl.Phone = deref(phone)
	sl.Company = deref(company)
	sl.JobTitle = deref(jobTitle)
	sl.Website = deref(website)
	sl.Source = deref(source)
	return &sl, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
