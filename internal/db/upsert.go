package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder renders the bind parameter for the i-th (1-based) argument.
type Placeholder func(i int) string

// Dollar renders Postgres-style placeholders ($1, $2, ...).
func Dollar(i int) string { return "$" + strconv.Itoa(i) }

// Question renders SQLite/MySQL-style placeholders (?).
func Question(int) string { return "?" }

// UpsertConfig defines the shape of a single-row coalescing upsert.
type UpsertConfig struct {
	Table        string   // target table (e.g., "leads")
	Columns      []string // all columns being inserted, in argument order
	ConflictKeys []string // columns forming the unique constraint
	CoalesceCols []string // columns merged with COALESCE(incoming, existing); nil = all non-conflict columns not in Overwrite/Keep
	Overwrite    []string // columns always replaced on conflict (e.g., updated_at)
	Keep         []string // columns never touched on conflict (e.g., id, created_at)
	Returning    []string // columns returned by the statement; nil = none
}

// BuildCoalesceUpsert renders one INSERT ... ON CONFLICT ... DO UPDATE
// statement in which every merged column keeps its stored value when the
// incoming value is NULL. The merge happens inside the database in a single
// statement, so concurrent upserts of the same key cannot lose updates.
func BuildCoalesceUpsert(cfg UpsertConfig, ph Placeholder) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}
	if ph == nil {
		ph = Dollar
	}

	coalesceCols := cfg.CoalesceCols
	if coalesceCols == nil {
		skip := make(map[string]bool, len(cfg.ConflictKeys)+len(cfg.Overwrite)+len(cfg.Keep))
		for _, group := range [][]string{cfg.ConflictKeys, cfg.Overwrite, cfg.Keep} {
			for _, c := range group {
				skip[c] = true
			}
		}
		for _, c := range cfg.Columns {
			if !skip[c] {
				coalesceCols = append(coalesceCols, c)
			}
		}
	}

	table := sanitizeTable(cfg.Table)

	setClauses := make([]string, 0, len(coalesceCols)+len(cfg.Overwrite))
	for _, col := range coalesceCols {
		c := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, %s.%s)", c, c, table, c))
	}
	for _, col := range cfg.Overwrite {
		c := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	if len(setClauses) == 0 {
		return "", eris.New("db: upsert: no columns to update on conflict")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = ph(i + 1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	if len(cfg.Returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(quoteAndJoin(cfg.Returning))
	}
	return sb.String(), nil
}

// NullString maps the empty string to a SQL NULL.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sanitizeTable handles schema-qualified table names like "crm.leads".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
