// Package sqlite implements the store interfaces on modernc.org/sqlite.
// Reads go straight to the *sql.DB; writes are funnelled through db.Worker.
package sqlite

import (
	"database/sql"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

func New(db *sql.DB, writer *dbpkg.Worker) store.Stores {
	return store.Stores{
		Gates:      NewGateStore(db, writer),
		Vehicles:   NewVehicleStore(db, writer),
		Schedules:  NewScheduleStore(db, writer),
		AccessLogs: NewAccessLogStore(db, writer),
		Batch:      NewBatchWriter(writer),
	}
}

func toMs(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// expectOne maps a zero-row UPDATE to store.ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
