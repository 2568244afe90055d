package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"porter/internal/diag"
	"porter/internal/pipeline"
	"porter/internal/source"
)

// SQLiteStore is the local run-history database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			file TEXT,
			output_file TEXT,
			generated_at TEXT,
			completeness REAL,
			unresolved INTEGER,
			rejected INTEGER,
			report JSON
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT,
			seq INTEGER,
			code TEXT,
			severity TEXT,
			stage TEXT,
			node_id TEXT,
			message TEXT,
			span JSON,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, report *pipeline.Report, diags []diag.Diagnostic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	reportJSON, _ := json.Marshal(report)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, file, output_file, generated_at, completeness, unresolved, rejected, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			file=excluded.file,
			output_file=excluded.output_file,
			generated_at=excluded.generated_at,
			completeness=excluded.completeness,
			unresolved=excluded.unresolved,
			rejected=excluded.rejected,
			report=excluded.report
	`, report.RunID, report.File, report.OutputFile, report.GeneratedAt,
		report.Completeness, report.UnresolvedCount, report.RejectedPatches, reportJSON)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, code, severity, stage, node_id, message, span)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range diags {
		spanJSON, _ := json.Marshal(d.Span)
		if _, err := stmt.Exec(report.RunID, i, string(d.Code), string(d.Severity),
			d.Stage, string(d.NodeID), d.Message, spanJSON); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, file, generated_at, completeness, unresolved, rejected
		FROM runs ORDER BY generated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.File, &r.GeneratedAt, &r.Completeness, &r.Unresolved, &r.Rejected); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, severity, stage, node_id, message, span
		FROM diagnostics WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var code, severity, nodeID string
		var spanJSON []byte
		if err := rows.Scan(&code, &severity, &d.Stage, &nodeID, &d.Message, &spanJSON); err != nil {
			return nil, err
		}
		d.Code = diag.Code(code)
		d.Severity = diag.Severity(severity)
		d.NodeID = source.NodeID(nodeID)
		if len(spanJSON) > 0 && string(spanJSON) != "null" {
			var span source.Span
			if err := json.Unmarshal(spanJSON, &span); err == nil {
				d.Span = &span
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
