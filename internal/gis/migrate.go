// Package gis owns the PostGIS schema the reference tables live in: embedded
// migrations, the ingestion run log and read-only verification queries.
package gis

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID keys the advisory lock held while migrating.
const migrationLockID = 4326001

type migration struct {
	name string
	sql  string
}

// Migrate applies pending migrations in file name order under an advisory
// lock, recording each one in gis.schema_migrations.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "gis.migrate"))

	all, err := loadMigrations()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "gis: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			log.Warn("gis: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := pool.Exec(ctx, migrationTableSQL); err != nil {
		return eris.Wrap(err, "gis: ensure migration table")
	}

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	todo := pending(all, applied)
	for _, m := range todo {
		log.Info("applying migration", zap.String("file", m.name))
		if err := apply(ctx, pool, m); err != nil {
			return err
		}
	}

	log.Info("schema up to date", zap.Int("applied", len(todo)), zap.Int("total", len(all)))
	return nil
}

// Pending returns the names of migrations not yet applied, without changing
// the database. A database that was never migrated reports every migration.
func Pending(ctx context.Context, pool db.Pool) ([]string, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := pool.QueryRow(ctx,
		"SELECT to_regclass('gis.schema_migrations') IS NOT NULL",
	).Scan(&exists); err != nil {
		return nil, eris.Wrap(err, "gis: check migration table")
	}

	applied := map[string]bool{}
	if exists {
		if applied, err = appliedMigrations(ctx, pool); err != nil {
			return nil, err
		}
	}

	var names []string
	for _, m := range pending(all, applied) {
		names = append(names, m.name)
	}
	return names, nil
}

const migrationTableSQL = `
	CREATE SCHEMA IF NOT EXISTS gis;
	CREATE TABLE IF NOT EXISTS gis.schema_migrations (
		id         SERIAL PRIMARY KEY,
		filename   TEXT NOT NULL UNIQUE,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

// loadMigrations reads the embedded migrations sorted by file name.
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "gis: read migration dir")
	}

	out := make([]migration, 0, len(entries))
	for _, e := range entries {
		data, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "gis: read migration %s", e.Name())
		}
		out = append(out, migration{name: e.Name(), sql: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func pending(all []migration, applied map[string]bool) []migration {
	var out []migration
	for _, m := range all {
		if !applied[m.name] {
			out = append(out, m)
		}
	}
	return out
}

func apply(ctx context.Context, pool db.Pool, m migration) error {
	if _, err := pool.Exec(ctx, m.sql); err != nil {
		return eris.Wrapf(err, "gis: apply migration %s", m.name)
	}
	if _, err := pool.Exec(ctx,
		"INSERT INTO gis.schema_migrations (filename, applied_at) VALUES ($1, now())",
		m.name,
	); err != nil {
		return eris.Wrapf(err, "gis: record migration %s", m.name)
	}
	return nil
}

// appliedMigrations returns the set of already-applied migration filenames.
func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM gis.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "gis: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "gis: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
