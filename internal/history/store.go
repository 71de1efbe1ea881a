// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records digest runs in a SQLite database so past
// promotions and failures can be listed from the CLI.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrRunNotFound is returned when a run id (or prefix) matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Provider      string
	Fetched       int
	Promoted      int
	Analyzed      int
	Degraded      int
	FailedWindows int
	FailedBatches int
	NoPromotions  bool
	Reports       []string
}

// PaperRow is one paper recorded for a run, in fetch order.
type PaperRow struct {
	Position  int
	PaperID   string
	Title     string
	Score     *float64
	Promoted  bool
	Fallback  bool
	Outcome   string
	ErrorKind string
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			provider TEXT,
			fetched INTEGER NOT NULL,
			promoted INTEGER NOT NULL,
			analyzed INTEGER NOT NULL,
			degraded INTEGER NOT NULL,
			failed_windows INTEGER NOT NULL,
			failed_batches INTEGER NOT NULL,
			no_promotions INTEGER NOT NULL,
			reports TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_papers (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper_id TEXT NOT NULL,
			title TEXT,
			score REAL,
			promoted INTEGER NOT NULL,
			fallback INTEGER NOT NULL,
			outcome TEXT,
			error_kind TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_papers_paper_id ON run_papers(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records the digest summary and every paper in one transaction.
func (s *Store) SaveRun(ctx context.Context, d types.Digest, reports []string) error {
	sum := d.Summary
	if sum.RunID == "" {
		return errors.New("digest has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "finished_at", "provider", "fetched", "promoted",
			"analyzed", "degraded", "failed_windows", "failed_batches", "no_promotions", "reports").
		Values(sum.RunID, sum.StartedAt.UTC().Format(time.RFC3339), sum.FinishedAt.UTC().Format(time.RFC3339),
			sum.Provider, sum.Fetched, sum.Promoted, sum.Analyzed, sum.FullTextDegraded,
			sum.FailedWindows, sum.FailedBatches, sum.NoPromotions, strings.Join(reports, "\n")).
		ToSql()
	if err != nil {
		return fmt.Errorf("building run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting run %s: %w", sum.RunID, err)
	}

	if len(d.Papers) > 0 {
		ins := sq.Insert("run_papers").
			Columns("run_id", "position", "paper_id", "title", "score", "promoted", "fallback", "outcome", "error_kind")
		for i, p := range d.Papers {
			var outcome, kind string
			if p.Outcome != nil {
				outcome = string(p.Outcome.Kind)
				kind = p.Outcome.ErrorKind
			}
			ins = ins.Values(sum.RunID, i, p.ID, p.Title, p.Stage1Score, p.Promoted, p.Fallback, outcome, kind)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("building paper insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting papers for run %s: %w", sum.RunID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first, at most limit (all when <= 0).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	b := runColumns().From("runs").OrderBy("started_at DESC", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun resolves a run by full id or unique prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	query, args, err := runColumns().From("runs").
		Where(sq.Like{"id": idOrPrefix + "%"}).Limit(2).ToSql()
	if err != nil {
		return Run{}, fmt.Errorf("building run query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("run prefix %q is ambiguous", idOrPrefix)
	}
}

// RunPapers returns the papers recorded for runID in fetch order.
func (s *Store) RunPapers(ctx context.Context, runID string) ([]PaperRow, error) {
	query, args, err := sq.Select("position", "paper_id", "title", "score", "promoted", "fallback", "outcome", "error_kind").
		From("run_papers").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building paper query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var out []PaperRow
	for rows.Next() {
		var (
			p       PaperRow
			score   sql.NullFloat64
			title   sql.NullString
			outcome sql.NullString
			kind    sql.NullString
		)
		if err := rows.Scan(&p.Position, &p.PaperID, &title, &score, &p.Promoted, &p.Fallback, &outcome, &kind); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if score.Valid {
			v := score.Float64
			p.Score = &v
		}
		p.Title, p.Outcome, p.ErrorKind = title.String, outcome.String, kind.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// PaperHistory counts how often paperID was fetched and promoted across runs.
func (s *Store) PaperHistory(ctx context.Context, paperID string) (seen, promoted int, err error) {
	query, args, err := sq.Select("COUNT(*)", "COALESCE(SUM(promoted), 0)").
		From("run_papers").
		Where(sq.Eq{"paper_id": paperID}).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("building history query: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&seen, &promoted); err != nil {
		return 0, 0, fmt.Errorf("querying paper history: %w", err)
	}
	return seen, promoted, nil
}

func runColumns() sq.SelectBuilder {
	return sq.Select("id", "started_at", "finished_at", "provider", "fetched", "promoted",
		"analyzed", "degraded", "failed_windows", "failed_batches", "no_promotions", "reports")
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r                 Run
		started, finished string
		provider, reports sql.NullString
	)
	if err := rows.Scan(&r.ID, &started, &finished, &provider, &r.Fetched, &r.Promoted,
		&r.Analyzed, &r.Degraded, &r.FailedWindows, &r.FailedBatches, &r.NoPromotions, &reports); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	r.Provider = provider.String
	if reports.String != "" {
		r.Reports = strings.Split(reports.String, "\n")
	}
	return r, nil
}
