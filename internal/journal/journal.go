// Package journal keeps a local SQLite record of every invoiced project run.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
	"invoicer/pkg/services"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS invoice_runs (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    project_id TEXT NOT NULL,
    project_name TEXT NOT NULL,
    customer_name TEXT NOT NULL DEFAULT '',
    period_start TEXT NOT NULL,
    period_end TEXT NOT NULL,
    invoice_id TEXT NOT NULL DEFAULT '',
    invoice_number TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('SUCCEEDED', 'DEGRADED', 'FAILED', 'SKIPPED')),
    hours REAL NOT NULL DEFAULT 0,
    net_amount REAL NOT NULL DEFAULT 0,
    gross_amount REAL NOT NULL DEFAULT 0,
    entries_total INTEGER NOT NULL DEFAULT 0,
    entries_locked INTEGER NOT NULL DEFAULT 0,
    entries_failed INTEGER NOT NULL DEFAULT 0,
    warnings TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_project_period ON invoice_runs(project_id, period_start, period_end);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON invoice_runs(created_at);
`

const columns = `id, run_id, project_id, project_name, customer_name, period_start, period_end,
	invoice_id, invoice_number, status, hours, net_amount, gross_amount,
	entries_total, entries_locked, entries_failed, warnings, created_at`

// Journal stores invoice runs.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ services.RunRecorder = (*Journal)(nil)

// Open opens (and creates) the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}

	return &Journal{db: db, log: logger.WithComponent("journal")}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record implements services.RunRecorder.
func (j *Journal) Record(ctx context.Context, run *models.InvoiceRun) error {
	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return fmt.Errorf("journal: encode warnings: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `INSERT INTO invoice_runs (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunID,
		run.ProjectID,
		run.ProjectName,
		run.CustomerName,
		formatDate(run.PeriodStart),
		formatDate(run.PeriodEnd),
		run.InvoiceID,
		run.InvoiceNumber,
		string(run.Status),
		run.Hours,
		run.NetAmount,
		run.GrossAmount,
		run.EntriesTotal,
		run.EntriesLocked,
		run.EntriesFailed,
		string(warnings),
		run.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal: insert run: %w", err)
	}

	j.log.Debug().
		Str("run_id", run.RunID).
		Str("project_id", run.ProjectID).
		Str("status", string(run.Status)).
		Msg("Run recorded")
	return nil
}

// List returns the newest runs first. limit <= 0 returns all runs.
func (j *Journal) List(ctx context.Context, limit int) ([]models.InvoiceRun, error) {
	query := `SELECT ` + columns + ` FROM invoice_runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return j.query(ctx, query, args...)
}

// FindByProjectPeriod returns the runs recorded for a project and the exact period.
func (j *Journal) FindByProjectPeriod(ctx context.Context, projectID string, from, to time.Time) ([]models.InvoiceRun, error) {
	return j.query(ctx, `SELECT `+columns+` FROM invoice_runs
		WHERE project_id = ? AND period_start = ? AND period_end = ?
		ORDER BY created_at DESC, rowid DESC`,
		projectID, formatDate(from), formatDate(to))
}

// HasInvoiced reports whether an invoice was already created for the project
// and period, that is a SUCCEEDED or DEGRADED run exists.
func (j *Journal) HasInvoiced(ctx context.Context, projectID string, from, to time.Time) (bool, error) {
	runs, err := j.FindByProjectPeriod(ctx, projectID, from, to)
	if err != nil {
		return false, err
	}
	for _, run := range runs {
		if run.Status == models.RunStatusSucceeded || run.Status == models.RunStatusDegraded {
			return true, nil
		}
	}
	return false, nil
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]models.InvoiceRun, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.InvoiceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (*models.InvoiceRun, error) {
	var (
		run                               models.InvoiceRun
		status, warnings                  string
		periodStart, periodEnd, createdAt string
	)
	err := rows.Scan(
		&run.ID,
		&run.RunID,
		&run.ProjectID,
		&run.ProjectName,
		&run.CustomerName,
		&periodStart,
		&periodEnd,
		&run.InvoiceID,
		&run.InvoiceNumber,
		&status,
		&run.Hours,
		&run.NetAmount,
		&run.GrossAmount,
		&run.EntriesTotal,
		&run.EntriesLocked,
		&run.EntriesFailed,
		&warnings,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.PeriodStart, _ = time.Parse(models.DateLayout, periodStart)
	run.PeriodEnd, _ = time.Parse(models.DateLayout, periodEnd)
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return nil, fmt.Errorf("journal: decode warnings: %w", err)
	}
	return &run, nil
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
