package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portcullis/server/internal/db"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) AppendAccessLog(ctx context.Context, rec types.AccessLog) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertAccessLog(ctx, tx, rec); err != nil {
			return fmt.Errorf("AppendAccessLog insert: %w", err)
		}
		return nil
	})
}

// insertAccessLog stamps a zero timestamp with the current time.
func insertAccessLog(ctx context.Context, tx *sql.Tx, rec types.AccessLog) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(id, vehicle_id, gate_id, timestamp_ms, access, reason)
VALUES (?, ?, ?, ?, ?, ?);
`, rec.ID, rec.VehicleID, rec.GateID, toMs(rec.Timestamp), string(rec.Access), rec.Reason)
	return err
}

func (s *AccessLogStore) ListAccessLogs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLog, error) {
	var (
		where []string
		args  []any
	)
	if q.From != nil {
		where = append(where, "timestamp_ms >= ?")
		args = append(args, toMs(*q.From))
	}
	if q.To != nil {
		where = append(where, "timestamp_ms <= ?")
		args = append(args, toMs(*q.To))
	}
	if q.GateID != "" {
		where = append(where, "gate_id = ?")
		args = append(args, q.GateID)
	}
	if q.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, q.VehicleID)
	}

	var b strings.Builder
	b.WriteString("SELECT id, vehicle_id, gate_id, timestamp_ms, access, reason FROM access_logs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY timestamp_ms DESC, id")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLog
	for rows.Next() {
		var (
			l      types.AccessLog
			tsMs   int64
			access string
		)
		if err := rows.Scan(&l.ID, &l.VehicleID, &l.GateID, &tsMs, &access, &l.Reason); err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		l.Timestamp = fromMs(tsMs)
		l.Access = types.AccessDecision(access)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM access_logs WHERE timestamp_ms < ?;`, toMs(cutoff))
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
