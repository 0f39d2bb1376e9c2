// Package storage keeps imported extracts in SQLite so the dashboard can
// serve the last good import without touching the source files.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"painel/internal/core"
	"painel/internal/log"
	"painel/internal/sheets"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when an extract was never imported.
var ErrNoSnapshot = errors.New("no snapshot")

const timeLayout = time.RFC3339Nano

var (
	_ sheets.TableReader = (*SQLiteRepository)(nil)
	_ sheets.TableWriter = (*SQLiteRepository)(nil)
	_ sheets.SourceNamer = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// SnapshotInfo describes a stored extract.
type SnapshotInfo struct {
	Kind       core.Kind `json:"kind"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// ImportRun records one execution of the importer.
type ImportRun struct {
	ID         int64
	MessageID  string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	TotalRows  int
	Status     string
	Error      string
}

const (
	ImportSucceeded = "succeeded"
	ImportFailed    = "failed"
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) SourceName() string { return "sqlite:" + r.path }

// ReadTable implements sheets.TableReader
func (r *SQLiteRepository) ReadTable(ctx context.Context, kind core.Kind) (core.Table, error) {
	var header, rows string
	err := r.db.QueryRowContext(ctx,
		`SELECT header, rows FROM snapshots WHERE kind = ?`, string(kind)).Scan(&header, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Table{}, fmt.Errorf("%w for %s", ErrNoSnapshot, kind)
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("query snapshot %s: %w", kind, err)
	}

	var t core.Table
	if err := json.Unmarshal([]byte(header), &t.Header); err != nil {
		return core.Table{}, fmt.Errorf("decode %s header: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(rows), &t.Rows); err != nil {
		return core.Table{}, fmt.Errorf("decode %s rows: %w", kind, err)
	}
	return t, nil
}

// WriteTable implements sheets.TableWriter
func (r *SQLiteRepository) WriteTable(ctx context.Context, kind core.Kind, t core.Table) error {
	return r.WriteTables(ctx, map[core.Kind]core.Table{kind: t})
}

// WriteTables replaces several snapshots in one transaction.
func (r *SQLiteRepository) WriteTables(ctx context.Context, tables map[core.Kind]core.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UTC().Format(timeLayout)
	for kind, t := range tables {
		if _, err := core.ParseKind(string(kind)); err != nil {
			return fmt.Errorf("write %q: %w", kind, err)
		}
		header, err := json.Marshal(nonNil(t.Header))
		if err != nil {
			return fmt.Errorf("encode %s header: %w", kind, err)
		}
		rows, err := json.Marshal(nonNilRows(t.Rows))
		if err != nil {
			return fmt.Errorf("encode %s rows: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (kind, header, rows, row_count, imported_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(kind) DO UPDATE SET
				header = excluded.header,
				rows = excluded.rows,
				row_count = excluded.row_count,
				imported_at = excluded.imported_at`,
			string(kind), string(header), string(rows), len(t.Rows), now); err != nil {
			return fmt.Errorf("upsert snapshot %s: %w", kind, err)
		}
		slog.DebugContext(ctx, "Snapshot stored", log.FieldDataset, kind, log.FieldRows, len(t.Rows))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// Snapshots lists the stored extracts in kind order.
func (r *SQLiteRepository) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, row_count, imported_at FROM snapshots ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var kind, importedAt string
		var info SnapshotInfo
		if err := rows.Scan(&kind, &info.Rows, &importedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.Kind = core.Kind(kind)
		if info.ImportedAt, err = time.Parse(timeLayout, importedAt); err != nil {
			return nil, fmt.Errorf("parse imported_at: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecordImport stores the outcome of an importer run and returns its id.
func (r *SQLiteRepository) RecordImport(ctx context.Context, run ImportRun) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO import_runs (message_id, source, started_at, finished_at, total_rows, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.MessageID, run.Source,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.TotalRows, run.Status, run.Error)
	if err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	return res.LastInsertId()
}

// LastImport returns the most recent importer run, or ErrNoSnapshot if none ran.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportRun, error) {
	var run ImportRun
	var started, finished string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, message_id, source, started_at, finished_at, total_rows, status, error
		FROM import_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.ID, &run.MessageID, &run.Source, &started, &finished, &run.TotalRows, &run.Status, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, ErrNoSnapshot
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("query last import: %w", err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return ImportRun{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return ImportRun{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRows(rows [][]string) [][]string {
	if rows == nil {
		return [][]string{}
	}
	return rows
}
