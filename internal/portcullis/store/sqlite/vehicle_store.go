package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type VehicleStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewVehicleStore(db *sql.DB, writer *dbpkg.Worker) *VehicleStore {
	return &VehicleStore{db: db, writer: writer}
}

const vehicleColumns = `id, owner_id, license_plate, type, owner, owner_email, created_at_ms, updated_at_ms`

func (s *VehicleStore) CreateVehicle(ctx context.Context, v types.Vehicle) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertVehicle(ctx, tx, v); err != nil {
			return fmt.Errorf("CreateVehicle insert: %w", err)
		}
		return nil
	})
}

func insertVehicle(ctx context.Context, tx *sql.Tx, v types.Vehicle) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO vehicles(`+vehicleColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, v.ID, v.OwnerID, v.LicensePlate, v.Type, v.Owner, v.OwnerEmail,
		toMs(v.CreatedAt), toMs(v.UpdatedAt))
	return err
}

func (s *VehicleStore) GetVehicle(ctx context.Context, id string) (types.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?;`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Vehicle{}, store.ErrNotFound
	}
	if err != nil {
		return types.Vehicle{}, fmt.Errorf("GetVehicle: %w", err)
	}
	return v, nil
}

func (s *VehicleStore) FindVehicleByPlate(ctx context.Context, plate string) (types.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+vehicleColumns+` FROM vehicles
WHERE license_plate = ? COLLATE NOCASE
ORDER BY created_at_ms, id LIMIT 1;
`, plate)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Vehicle{}, store.ErrNotFound
	}
	if err != nil {
		return types.Vehicle{}, fmt.Errorf("FindVehicleByPlate: %w", err)
	}
	return v, nil
}

func (s *VehicleStore) ListVehicles(ctx context.Context, ownerID string) ([]types.Vehicle, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY created_at_ms, id;`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE owner_id = ? ORDER BY created_at_ms, id;`, ownerID)
	}
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

func (s *VehicleStore) UpdateVehicle(ctx context.Context, v types.Vehicle) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE vehicles
SET license_plate = ?, type = ?, owner = ?, owner_email = ?, updated_at_ms = ?
WHERE id = ?;
`, v.LicensePlate, v.Type, v.Owner, v.OwnerEmail, toMs(v.UpdatedAt), v.ID)
		if err != nil {
			return fmt.Errorf("UpdateVehicle: %w", err)
		}
		return expectOne(res)
	})
}

func scanVehicle(r scanner) (types.Vehicle, error) {
	var (
		v                  types.Vehicle
		createdMs, updated int64
	)
	if err := r.Scan(&v.ID, &v.OwnerID, &v.LicensePlate, &v.Type, &v.Owner, &v.OwnerEmail, &createdMs, &updated); err != nil {
		return types.Vehicle{}, err
	}
	v.CreatedAt = fromMs(createdMs)
	v.UpdatedAt = fromMs(updated)
	return v, nil
}
