package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

// BatchWriter inserts a whole batch in one writer transaction.
type BatchWriter struct {
	writer *dbpkg.Worker
}

func NewBatchWriter(writer *dbpkg.Worker) *BatchWriter {
	return &BatchWriter{writer: writer}
}

func (w *BatchWriter) WriteBatch(ctx context.Context, b store.Batch) error {
	return w.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, g := range b.Gates {
			if err := insertGate(ctx, tx, g); err != nil {
				return fmt.Errorf("WriteBatch gate %s: %w", g.ID, err)
			}
		}
		for _, v := range b.Vehicles {
			if err := insertVehicle(ctx, tx, v); err != nil {
				return fmt.Errorf("WriteBatch vehicle %s: %w", v.ID, err)
			}
		}
		for _, sc := range b.Schedules {
			if err := insertSchedule(ctx, tx, sc); err != nil {
				return fmt.Errorf("WriteBatch schedule %s: %w", sc.ID, err)
			}
		}
		for _, rec := range b.AccessLogs {
			if err := insertAccessLog(ctx, tx, rec); err != nil {
				return fmt.Errorf("WriteBatch access log %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}
