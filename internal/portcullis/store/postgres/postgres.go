// Package postgres implements the store interfaces on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Store serves all four record types from one pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Stores returns s as a store.Stores bundle.
func (s *Store) Stores() store.Stores {
	return store.Stores{Gates: s, Vehicles: s, Schedules: s, AccessLogs: s, Batch: s}
}

// execer is satisfied by both the pool and a pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WriteBatch inserts b in one transaction.
func (s *Store) WriteBatch(ctx context.Context, b store.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("WriteBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

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

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("WriteBatch commit: %w", err)
	}
	return nil
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// ── Gates ──

func (s *Store) CreateGate(ctx context.Context, g types.Gate) error {
	if err := insertGate(ctx, s.pool, g); err != nil {
		return fmt.Errorf("CreateGate: %w", err)
	}
	return nil
}

func insertGate(ctx context.Context, db execer, g types.Gate) error {
	_, err := db.Exec(ctx, `
INSERT INTO gates(id, location, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.Location, string(g.Status), g.CreatedAt, g.UpdatedAt)
	return err
}

func (s *Store) GetGate(ctx context.Context, id string) (types.Gate, error) {
	g, err := scanGate(s.pool.QueryRow(ctx, `
SELECT id, location, status, created_at, updated_at FROM gates WHERE id = $1`, id))
	if err != nil {
		return types.Gate{}, notFound(err)
	}
	return g, nil
}

func (s *Store) ListGates(ctx context.Context) ([]types.Gate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, location, status, created_at, updated_at FROM gates ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListGates: %w", err)
	}
	defer rows.Close()

	var out []types.Gate
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("ListGates scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGate(ctx context.Context, g types.Gate) error {
	return expectOne(s.pool.Exec(ctx, `
UPDATE gates SET location = $1, status = $2, updated_at = $3 WHERE id = $4`,
		g.Location, string(g.Status), g.UpdatedAt, g.ID))
}

func scanGate(r pgx.Row) (types.Gate, error) {
	var (
		g      types.Gate
		status string
	)
	if err := r.Scan(&g.ID, &g.Location, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return types.Gate{}, err
	}
	g.Status = types.GateStatus(status)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}

// ── Vehicles ──

const vehicleColumns = `id, owner_id, license_plate, type, owner, owner_email, created_at, updated_at`

func (s *Store) CreateVehicle(ctx context.Context, v types.Vehicle) error {
	if err := insertVehicle(ctx, s.pool, v); err != nil {
		return fmt.Errorf("CreateVehicle: %w", err)
	}
	return nil
}

func insertVehicle(ctx context.Context, db execer, v types.Vehicle) error {
	_, err := db.Exec(ctx, `
INSERT INTO vehicles(`+vehicleColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.OwnerID, v.LicensePlate, v.Type, v.Owner, v.OwnerEmail, v.CreatedAt, v.UpdatedAt)
	return err
}

func (s *Store) GetVehicle(ctx context.Context, id string) (types.Vehicle, error) {
	v, err := scanVehicle(s.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		return types.Vehicle{}, notFound(err)
	}
	return v, nil
}

func (s *Store) FindVehicleByPlate(ctx context.Context, plate string) (types.Vehicle, error) {
	v, err := scanVehicle(s.pool.QueryRow(ctx, `
SELECT `+vehicleColumns+` FROM vehicles
WHERE lower(license_plate) = lower($1)
ORDER BY created_at, id LIMIT 1`, plate))
	if err != nil {
		return types.Vehicle{}, notFound(err)
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context, ownerID string) ([]types.Vehicle, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+vehicleColumns+` FROM vehicles
WHERE $1 = '' OR owner_id = $1
ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListVehicles: %w", err)
	}
	defer rows.Close()

	var out []types.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("ListVehicles scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateVehicle(ctx context.Context, v types.Vehicle) error {
	return expectOne(s.pool.Exec(ctx, `
UPDATE vehicles
SET license_plate = $1, type = $2, owner = $3, owner_email = $4, updated_at = $5
WHERE id = $6`,
		v.LicensePlate, v.Type, v.Owner, v.OwnerEmail, v.UpdatedAt, v.ID))
}

func scanVehicle(r pgx.Row) (types.Vehicle, error) {
	var v types.Vehicle
	if err := r.Scan(&v.ID, &v.OwnerID, &v.LicensePlate, &v.Type, &v.Owner, &v.OwnerEmail, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return types.Vehicle{}, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// ── Schedules ──

const scheduleColumns = `id, owner_id, vehicle_id, gate_id, scheduled_time, purpose, created_at, updated_at`

func (s *Store) CreateSchedule(ctx context.Context, sc types.Schedule) error {
	if err := insertSchedule(ctx, s.pool, sc); err != nil {
		return fmt.Errorf("CreateSchedule: %w", err)
	}
	return nil
}

func insertSchedule(ctx context.Context, db execer, sc types.Schedule) error {
	_, err := db.Exec(ctx, `
INSERT INTO schedules(`+scheduleColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sc.ID, sc.OwnerID, sc.VehicleID, sc.GateID, sc.ScheduledTime, sc.Purpose, sc.CreatedAt, sc.UpdatedAt)
	return err
}

func (s *Store) GetSchedule(ctx context.Context, id string) (types.Schedule, error) {
	sc, err := scanSchedule(s.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		return types.Schedule{}, notFound(err)
	}
	return sc, nil
}

func (s *Store) ListSchedules(ctx context.Context, ownerID string) ([]types.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+scheduleColumns+` FROM schedules
WHERE $1 = '' OR owner_id = $1
ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	return collectSchedules(rows)
}

func (s *Store) UpdateSchedule(ctx context.Context, sc types.Schedule) error {
	return expectOne(s.pool.Exec(ctx, `
UPDATE schedules
SET vehicle_id = $1, gate_id = $2, scheduled_time = $3, purpose = $4, updated_at = $5
WHERE id = $6`,
		sc.VehicleID, sc.GateID, sc.ScheduledTime, sc.Purpose, sc.UpdatedAt, sc.ID))
}

func (s *Store) ListSchedulesForEntry(ctx context.Context, vehicleID, gateID string, from, to time.Time) ([]types.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+scheduleColumns+` FROM schedules
WHERE vehicle_id = $1 AND gate_id = $2 AND scheduled_time BETWEEN $3 AND $4
ORDER BY scheduled_time, id`, vehicleID, gateID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ListSchedulesForEntry: %w", err)
	}
	return collectSchedules(rows)
}

func collectSchedules(rows pgx.Rows) ([]types.Schedule, error) {
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

func scanSchedule(r pgx.Row) (types.Schedule, error) {
	var sc types.Schedule
	if err := r.Scan(&sc.ID, &sc.OwnerID, &sc.VehicleID, &sc.GateID, &sc.ScheduledTime, &sc.Purpose, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return types.Schedule{}, err
	}
	sc.ScheduledTime = sc.ScheduledTime.UTC()
	sc.CreatedAt = sc.CreatedAt.UTC()
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	return sc, nil
}

// ── Access logs ──

func (s *Store) AppendAccessLog(ctx context.Context, rec types.AccessLog) error {
	if err := insertAccessLog(ctx, s.pool, rec); err != nil {
		return fmt.Errorf("AppendAccessLog: %w", err)
	}
	return nil
}

func insertAccessLog(ctx context.Context, db execer, rec types.AccessLog) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `
INSERT INTO access_logs(id, vehicle_id, gate_id, ts, access, reason)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.VehicleID, rec.GateID, rec.Timestamp, string(rec.Access), rec.Reason)
	return err
}

func (s *Store) ListAccessLogs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLog, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.From != nil {
		add("ts >= $%d", *q.From)
	}
	if q.To != nil {
		add("ts <= $%d", *q.To)
	}
	if q.GateID != "" {
		add("gate_id = $%d", q.GateID)
	}
	if q.VehicleID != "" {
		add("vehicle_id = $%d", q.VehicleID)
	}

	var b strings.Builder
	b.WriteString("SELECT id, vehicle_id, gate_id, ts, access, reason FROM access_logs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ts DESC, id")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLog
	for rows.Next() {
		var (
			l      types.AccessLog
			access string
		)
		if err := rows.Scan(&l.ID, &l.VehicleID, &l.GateID, &l.Timestamp, &access, &l.Reason); err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		l.Timestamp = l.Timestamp.UTC()
		l.Access = types.AccessDecision(access)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM access_logs WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("PruneOlderThan: %w", err)
	}
	return tag.RowsAffected(), nil
}
