package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type ScheduleStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScheduleStore(db *sql.DB, writer *dbpkg.Worker) *ScheduleStore {
	return &ScheduleStore{db: db, writer: writer}
}

const scheduleColumns = `id, owner_id, vehicle_id, gate_id, scheduled_time_ms, purpose, created_at_ms, updated_at_ms`

func (s *ScheduleStore) CreateSchedule(ctx context.Context, sc types.Schedule) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertSchedule(ctx, tx, sc); err != nil {
			return fmt.Errorf("CreateSchedule insert: %w", err)
		}
		return nil
	})
}

func insertSchedule(ctx context.Context, tx *sql.Tx, sc types.Schedule) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO schedules(`+scheduleColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, sc.ID, sc.OwnerID, sc.VehicleID, sc.GateID, toMs(sc.ScheduledTime), sc.Purpose,
		toMs(sc.CreatedAt), toMs(sc.UpdatedAt))
	return err
}

func (s *ScheduleStore) GetSchedule(ctx context.Context, id string) (types.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?;`, id)
	sc, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Schedule{}, store.ErrNotFound
	}
	if err != nil {
		return types.Schedule{}, fmt.Errorf("GetSchedule: %w", err)
	}
	return sc, nil
}

func (s *ScheduleStore) ListSchedules(ctx context.Context, ownerID string) ([]types.Schedule, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at_ms, id;`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE owner_id = ? ORDER BY created_at_ms, id;`, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	return collectSchedules(rows)
}

func (s *ScheduleStore) UpdateSchedule(ctx context.Context, sc types.Schedule) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE schedules
SET vehicle_id = ?, gate_id = ?, scheduled_time_ms = ?, purpose = ?, updated_at_ms = ?
WHERE id = ?;
`, sc.VehicleID, sc.GateID, toMs(sc.ScheduledTime), sc.Purpose, toMs(sc.UpdatedAt), sc.ID)
		if err != nil {
			return fmt.Errorf("UpdateSchedule: %w", err)
		}
		return expectOne(res)
	})
}

func (s *ScheduleStore) ListSchedulesForEntry(ctx context.Context, vehicleID, gateID string, from, to time.Time) ([]types.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+scheduleColumns+` FROM schedules
WHERE vehicle_id = ? AND gate_id = ? AND scheduled_time_ms BETWEEN ? AND ?
ORDER BY scheduled_time_ms, id;
`, vehicleID, gateID, toMs(from), toMs(to))
	if err != nil {
		return nil, fmt.Errorf("ListSchedulesForEntry: %w", err)
	}
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]types.Schedule, error) {
	defer rows.Close()

	var out []types.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanSchedule(r scanner) (types.Schedule, error) {
	var (
		sc                            types.Schedule
		scheduledMs, createdMs, updMs int64
	)
	if err := r.Scan(&sc.ID, &sc.OwnerID, &sc.VehicleID, &sc.GateID, &scheduledMs, &sc.Purpose, &createdMs, &updMs); err != nil {
		return types.Schedule{}, err
	}
	sc.ScheduledTime = fromMs(scheduledMs)
	sc.CreatedAt = fromMs(createdMs)
	sc.UpdatedAt = fromMs(updMs)
	return sc, nil
}
