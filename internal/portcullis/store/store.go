package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ErrNotFound is returned by Get/Find/Update when no row matches.
var ErrNotFound = errors.New("store: not found")

type GateStore interface {
	CreateGate(ctx context.Context, g types.Gate) error
	GetGate(ctx context.Context, id string) (types.Gate, error)
	ListGates(ctx context.Context) ([]types.Gate, error)
	UpdateGate(ctx context.Context, g types.Gate) error
}

type VehicleStore interface {
	CreateVehicle(ctx context.Context, v types.Vehicle) error
	GetVehicle(ctx context.Context, id string) (types.Vehicle, error)
	// FindVehicleByPlate matches license plates case-insensitively.
	FindVehicleByPlate(ctx context.Context, plate string) (types.Vehicle, error)
	// ListVehicles returns the vehicles of ownerID, or every vehicle when
	// ownerID is empty.
	ListVehicles(ctx context.Context, ownerID string) ([]types.Vehicle, error)
	UpdateVehicle(ctx context.Context, v types.Vehicle) error
}

type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s types.Schedule) error
	GetSchedule(ctx context.Context, id string) (types.Schedule, error)
	ListSchedules(ctx context.Context, ownerID string) ([]types.Schedule, error)
	UpdateSchedule(ctx context.Context, s types.Schedule) error
	// ListSchedulesForEntry returns schedules of vehicleID at gateID whose
	// scheduled time lies in [from, to].
	ListSchedulesForEntry(ctx context.Context, vehicleID, gateID string, from, to time.Time) ([]types.Schedule, error)
}

// AccessLogStore persists access events as an append-only log.
type AccessLogStore interface {
	AppendAccessLog(ctx context.Context, rec types.AccessLog) error
	// ListAccessLogs returns matching records newest first. A zero Limit
	// means no limit.
	ListAccessLogs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLog, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Batch is a set of new records written together.
type Batch struct {
	Gates      []types.Gate
	Vehicles   []types.Vehicle
	Schedules  []types.Schedule
	AccessLogs []types.AccessLog
}

func (b Batch) Len() int {
	return len(b.Gates) + len(b.Vehicles) + len(b.Schedules) + len(b.AccessLogs)
}

// BatchWriter stores every record of a Batch or none of them.
type BatchWriter interface {
	WriteBatch(ctx context.Context, b Batch) error
}

// Stores bundles one backend's implementations. Batch may be nil.
type Stores struct {
	Gates      GateStore
	Vehicles   VehicleStore
	Schedules  ScheduleStore
	AccessLogs AccessLogStore
	Batch      BatchWriter
}
