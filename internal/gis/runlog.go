package gis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/georef-cli/internal/db"
)

// Run statuses recorded in gis.ingest_log.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// Counts are the per-run feature counters.
type Counts struct {
	Attempted  int `json:"attempted"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
	Unlinked   int `json:"unlinked"`
}

// RunEntry represents a row in gis.ingest_log.
type RunEntry struct {
	ID          int64      `json:"id"`
	RunID       uuid.UUID  `json:"run_id"`
	Kind        string     `json:"kind"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Counts
	Error string `json:"error,omitempty"`
}

// RunLog provides read/write access to gis.ingest_log.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a run and returns its row id.
func (l *RunLog) Start(ctx context.Context, runID uuid.UUID, kind, source string) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO gis.ingest_log (run_id, kind, source, status, started_at)
		 VALUES ($1, $2, $3, 'running', now()) RETURNING id`,
		runID.String(), kind, source,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "runlog: start %s run", kind)
	}
	return id, nil
}

// Complete marks a run as finished with its counters.
func (l *RunLog) Complete(ctx context.Context, id int64, c Counts) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE gis.ingest_log
		 SET status = 'complete', completed_at = now(),
		     attempted = $1, inserted = $2, duplicates = $3, failed = $4, unlinked = $5
		 WHERE id = $6`,
		c.Attempted, c.Inserted, c.Duplicates, c.Failed, c.Unlinked, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %d", id)
	}
	return nil
}

// Fail marks a run as failed. Counters reflect whatever was processed before
// the failure.
func (l *RunLog) Fail(ctx context.Context, id int64, c Counts, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE gis.ingest_log
		 SET status = 'failed', completed_at = now(), error = $1,
		     attempted = $2, inserted = $3, duplicates = $4, failed = $5, unlinked = $6
		 WHERE id = $7`,
		errMsg, c.Attempted, c.Inserted, c.Duplicates, c.Failed, c.Unlinked, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %d", id)
	}
	return nil
}

// ListRecent returns up to limit runs, most recent first.
func (l *RunLog) ListRecent(ctx context.Context, limit int) ([]RunEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, run_id::text, kind, source, status, started_at, completed_at,
		        attempted, inserted, duplicates, failed, unlinked, error
		 FROM gis.ingest_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list recent")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var runID string
		var errStr *string
		if err := rows.Scan(&e.ID, &runID, &e.Kind, &e.Source, &e.Status, &e.StartedAt, &e.CompletedAt,
			&e.Attempted, &e.Inserted, &e.Duplicates, &e.Failed, &e.Unlinked, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		if e.RunID, err = uuid.Parse(runID); err != nil {
			return nil, eris.Wrapf(err, "runlog: parse run id %q", runID)
		}
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
