package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// InsertConfig defines a single-row insert that ignores conflicts.
type InsertConfig struct {
	Table   string   // target table (e.g., "gis.countries")
	Columns []string // columns in argument order
	// Exprs wraps the placeholder of a column in an SQL expression, e.g.
	// "ST_GeomFromEWKB(%s)". Columns without an entry bind the placeholder as is.
	Exprs map[string]string
}

// InsertIgnoreSQL builds INSERT ... VALUES (...) ON CONFLICT DO NOTHING for cfg.
// Any unique constraint on the table counts as a conflict.
func InsertIgnoreSQL(cfg InsertConfig) string {
	values := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		ph := fmt.Sprintf("$%d", i+1)
		if expr, ok := cfg.Exprs[col]; ok {
			ph = fmt.Sprintf(expr, ph)
		}
		values[i] = ph
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		SanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(values, ", "),
	)
}

// InsertIgnore executes the insert described by cfg with args and reports
// whether a row was written. false with a nil error means the row conflicted
// with an existing one.
func InsertIgnore(ctx context.Context, pool Pool, cfg InsertConfig, args ...any) (bool, error) {
	if len(cfg.Columns) == 0 {
		return false, eris.New("db: insert: no columns specified")
	}
	if len(args) != len(cfg.Columns) {
		return false, eris.Errorf("db: insert: %d columns but %d args", len(cfg.Columns), len(args))
	}

	tag, err := pool.Exec(ctx, InsertIgnoreSQL(cfg), args...)
	if err != nil {
		return false, eris.Wrapf(err, "db: insert into %s", cfg.Table)
	}
	return tag.RowsAffected() > 0, nil
}

// SanitizeTable handles schema-qualified table names like "gis.countries".
func SanitizeTable(table string) string {
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
