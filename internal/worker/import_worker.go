// Package worker copies the spreadsheet extracts into the SQLite snapshot and
// keeps dashboard caches in step with new imports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"painel/internal/amqp"
	"painel/internal/core"
	"painel/internal/dataset"
	"painel/internal/log"
	"painel/internal/sheets"
	"painel/internal/storage"
)

// SnapshotStore persists imported extracts and the history of runs.
type SnapshotStore interface {
	WriteTables(ctx context.Context, tables map[core.Kind]core.Table) error
	RecordImport(ctx context.Context, run storage.ImportRun) (int64, error)
}

// Publisher announces finished imports.
type Publisher interface {
	PublishDatasetRefreshed(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error
}

// ImportWorker reads the four extracts from a source and replaces the
// snapshot with them as one unit.
type ImportWorker struct {
	source    sheets.TableReader
	snapshots SnapshotStore
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewImportWorker creates a worker. A nil publisher disables notifications.
func NewImportWorker(source sheets.TableReader, snapshots SnapshotStore, publisher Publisher, logger *log.Logger) *ImportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ImportWorker{
		source:    source,
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// RunOnce performs a single import. Extracts that do not decode are rejected
// before anything is written, so the snapshot always holds loadable data.
// A failed run is still recorded.
func (w *ImportWorker) RunOnce(ctx context.Context) (storage.ImportRun, error) {
	run := storage.ImportRun{
		Source:    dataset.SourceKey(w.source),
		StartedAt: w.now(),
	}

	rows, err := w.importTables(ctx)
	run.FinishedAt = w.now()
	for _, n := range rows {
		run.TotalRows += n
	}

	var msg *amqp.DatasetRefreshedMessage
	if err == nil {
		msg = amqp.NewDatasetRefreshedMessage(run.Source, rows)
		run.MessageID = msg.ID
		run.Status = storage.ImportSucceeded
	} else {
		run.Status = storage.ImportFailed
		run.Error = err.Error()
	}

	log.NewStructuredLogger(w.logger).LogImport(ctx, run.Source, run.TotalRows, run.FinishedAt.Sub(run.StartedAt), err)

	// the outcome is recorded even when the caller has given up
	id, recErr := w.snapshots.RecordImport(context.WithoutCancel(ctx), run)
	if recErr != nil {
		w.logger.Error("Failed to record import run", log.FieldError, recErr)
	}
	run.ID = id

	if err != nil {
		return run, err
	}

	if w.publisher != nil {
		if pubErr := w.publisher.PublishDatasetRefreshed(ctx, msg); pubErr != nil {
			// caches still expire on their TTL
			w.logger.Warn("Failed to publish dataset refresh",
				log.FieldMessageID, msg.ID,
				log.FieldError, pubErr)
		}
	}
	return run, nil
}

func (w *ImportWorker) importTables(ctx context.Context) (map[core.Kind]int, error) {
	tables, err := dataset.ReadAll(ctx, w.source)
	if err != nil {
		return nil, fmt.Errorf("read extracts: %w", err)
	}
	if _, err := dataset.Decode(tables); err != nil {
		return nil, fmt.Errorf("validate extracts: %w", err)
	}
	if err := w.snapshots.WriteTables(ctx, tables); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	rows := make(map[core.Kind]int, len(tables))
	for kind, t := range tables {
		rows[kind] = len(t.Rows)
	}
	return rows, nil
}

// Run imports once immediately and then on every tick until ctx is done.
// Failed runs are logged and retried on the next tick.
func (w *ImportWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("import interval must be positive")
	}

	w.logger.Info("Import worker started", "interval", interval.String())
	_, _ = w.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Import worker stopped", log.FieldOperation, log.OpShutdown)
			return ctx.Err()
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}
