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

type GateStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGateStore(db *sql.DB, writer *dbpkg.Worker) *GateStore {
	return &GateStore{db: db, writer: writer}
}

func (s *GateStore) CreateGate(ctx context.Context, g types.Gate) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertGate(ctx, tx, g); err != nil {
			return fmt.Errorf("CreateGate insert: %w", err)
		}
		return nil
	})
}

func insertGate(ctx context.Context, tx *sql.Tx, g types.Gate) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO gates(id, location, status, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?);
`, g.ID, g.Location, string(g.Status), toMs(g.CreatedAt), toMs(g.UpdatedAt))
	return err
}

func (s *GateStore) GetGate(ctx context.Context, id string) (types.Gate, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, location, status, created_at_ms, updated_at_ms
FROM gates WHERE id = ?;
`, id)
	g, err := scanGate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Gate{}, store.ErrNotFound
	}
	if err != nil {
		return types.Gate{}, fmt.Errorf("GetGate: %w", err)
	}
	return g, nil
}

func (s *GateStore) ListGates(ctx context.Context) ([]types.Gate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, location, status, created_at_ms, updated_at_ms
FROM gates ORDER BY created_at_ms, id;
`)
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

func (s *GateStore) UpdateGate(ctx context.Context, g types.Gate) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE gates SET location = ?, status = ?, updated_at_ms = ?
WHERE id = ?;
`, g.Location, string(g.Status), toMs(g.UpdatedAt), g.ID)
		if err != nil {
			return fmt.Errorf("UpdateGate: %w", err)
		}
		return expectOne(res)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGate(r scanner) (types.Gate, error) {
	var (
		g                  types.Gate
		status             string
		createdMs, updated int64
	)
	if err := r.Scan(&g.ID, &g.Location, &status, &createdMs, &updated); err != nil {
		return types.Gate{}, err
	}
	g.Status = types.GateStatus(status)
	g.CreatedAt = fromMs(createdMs)
	g.UpdatedAt = fromMs(updated)
	return g, nil
}
