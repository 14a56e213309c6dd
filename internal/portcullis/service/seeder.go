package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// SeedLogCount is how many access logs one Seed call appends.
const SeedLogCount = 40

var seedGates = []struct {
	location string
	status   types.GateStatus
}{
	{"North Entrance", types.GateClosed},
	{"East Cargo Bay", types.GateOpen},
	{"West Personnel Gate", types.GateClosed},
	{"South Maintenance Access", types.GateClosed},
}

var seedVehicles = []struct{ plate, kind string }{
	{"TRK-789", "Container Truck"},
	{"VAN-456", "Service Van"},
	{"CAR-123", "Executive Car"},
	{"CGO-101", "Cargo Hauler"},
}

// seedSchedules index into the seeded vehicles and gates.
var seedSchedules = []struct {
	vehicle, gate int
	in            time.Duration
	purpose       string
}{
	{0, 0, 2 * time.Hour, "Container Drop-off"},
	{1, 3, 4 * time.Hour, "Routine Maintenance"},
	{2, 2, 24 * time.Hour, "VIP Visit"},
	{0, 1, 48 * time.Hour, "Container Pickup"},
}

// Seeder fills an empty installation with demo data.
type Seeder struct {
	stores store.Stores
	logs   *AccessLogService
	logger *zap.Logger
}

func NewSeeder(st store.Stores, logs *AccessLogService, logger *zap.Logger) *Seeder {
	return &Seeder{stores: st, logs: logs, logger: logger}
}

// Seed creates gates if there are none, vehicles and schedules for the
// caller if they own no vehicles, and always appends SeedLogCount logs
// spread over the past week. Every record is planned first and written as
// one batch, so a failed seed leaves nothing behind.
func (s *Seeder) Seed(ctx context.Context, caller types.Identity) (types.SeedResult, error) {
	if caller.UserID == "" {
		return types.SeedResult{}, ErrNoIdentity
	}

	b, err := s.plan(ctx, caller, time.Now().UTC())
	if err != nil {
		return types.SeedResult{}, err
	}
	if err := s.write(ctx, b); err != nil {
		return types.SeedResult{}, err
	}
	for _, rec := range b.AccessLogs {
		s.logs.recorded(rec, SourceSeed)
	}

	res := types.SeedResult{
		GatesCreated:     len(b.Gates),
		VehiclesCreated:  len(b.Vehicles),
		SchedulesCreated: len(b.Schedules),
		LogsCreated:      len(b.AccessLogs),
	}
	s.logger.Info("seeded demo data",
		zap.String("user_id", caller.UserID),
		zap.Int("gates", res.GatesCreated),
		zap.Int("vehicles", res.VehiclesCreated),
		zap.Int("schedules", res.SchedulesCreated),
		zap.Int("logs", res.LogsCreated),
	)
	return res, nil
}

// plan builds the records one Seed call adds without writing any of them.
func (s *Seeder) plan(ctx context.Context, caller types.Identity, now time.Time) (store.Batch, error) {
	var b store.Batch

	gates, err := s.stores.Gates.ListGates(ctx)
	if err != nil {
		return b, err
	}
	gateIDs := make([]string, 0, len(seedGates))
	for _, g := range gates {
		gateIDs = append(gateIDs, g.ID)
	}
	if len(gates) == 0 {
		for _, sg := range seedGates {
			g := types.Gate{ID: uuid.NewString(), Location: sg.location, Status: sg.status, CreatedAt: now, UpdatedAt: now}
			b.Gates = append(b.Gates, g)
			gateIDs = append(gateIDs, g.ID)
		}
	}

	vehicles, err := s.stores.Vehicles.ListVehicles(ctx, caller.UserID)
	if err != nil {
		return b, err
	}
	vehicleIDs := make([]string, 0, len(seedVehicles))
	for _, v := range vehicles {
		vehicleIDs = append(vehicleIDs, v.ID)
	}
	if len(vehicles) == 0 {
		owner, email := caller.Name, caller.Email
		if owner == "" {
			owner = "Demo User"
		}
		if email == "" {
			email = "demo@example.com"
		}
		for _, sv := range seedVehicles {
			v := types.Vehicle{
				ID:           uuid.NewString(),
				OwnerID:      caller.UserID,
				LicensePlate: sv.plate,
				Type:         sv.kind,
				Owner:        owner,
				OwnerEmail:   email,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			b.Vehicles = append(b.Vehicles, v)
			vehicleIDs = append(vehicleIDs, v.ID)
		}

		for _, ss := range seedSchedules {
			if ss.vehicle >= len(vehicleIDs) || ss.gate >= len(gateIDs) {
				continue
			}
			b.Schedules = append(b.Schedules, types.Schedule{
				ID:            uuid.NewString(),
				OwnerID:       caller.UserID,
				VehicleID:     vehicleIDs[ss.vehicle],
				GateID:        gateIDs[ss.gate],
				ScheduledTime: now.Add(ss.in).Truncate(time.Millisecond),
				Purpose:       ss.purpose,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}

	if len(gateIDs) == 0 || len(vehicleIDs) == 0 {
		return b, nil
	}
	for _, rec := range generateAccessLogs(gateIDs, vehicleIDs, now) {
		b.AccessLogs = append(b.AccessLogs, prepareLog(rec))
	}
	return b, nil
}

// write stores b through the backend's BatchWriter, or record by record
// when the backend has none.
func (s *Seeder) write(ctx context.Context, b store.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	if s.stores.Batch != nil {
		return s.stores.Batch.WriteBatch(ctx, b)
	}

	for _, g := range b.Gates {
		if err := s.stores.Gates.CreateGate(ctx, g); err != nil {
			return err
		}
	}
	for _, v := range b.Vehicles {
		if err := s.stores.Vehicles.CreateVehicle(ctx, v); err != nil {
			return err
		}
	}
	for _, sc := range b.Schedules {
		if err := s.stores.Schedules.CreateSchedule(ctx, sc); err != nil {
			return err
		}
	}
	for _, rec := range b.AccessLogs {
		if err := s.stores.AccessLogs.AppendAccessLog(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// generateAccessLogs spreads SeedLogCount records evenly over the week
// before now, newest a minute ago, cycling through gates and vehicles. Every fourth is denied.
func generateAccessLogs(gateIDs, vehicleIDs []string, now time.Time) []types.AccessLog {
	step := 7 * 24 * time.Hour / SeedLogCount
	out := make([]types.AccessLog, 0, SeedLogCount)
	for i := 0; i < SeedLogCount; i++ {
		rec := types.AccessLog{
			GateID:    gateIDs[i%len(gateIDs)],
			VehicleID: vehicleIDs[(i*3+1)%len(vehicleIDs)],
			Timestamp: now.Add(-(time.Duration(i)*step + time.Minute)),
			Access:    types.AccessGranted,
		}
		if i%4 == 3 {
			rec.Access = types.AccessDenied
			rec.Reason = ReasonNoSchedule
		}
		out = append(out, rec)
	}
	return out
}
