package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func TestAccessLogStore_OrderAndPrune(t *testing.T) {
	s := memory.NewAccessLogStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_ = s.AppendAccessLog(ctx, types.AccessLog{ID: "b", Timestamp: base, Access: types.AccessGranted})
	_ = s.AppendAccessLog(ctx, types.AccessLog{ID: "a", Timestamp: base, Access: types.AccessDenied})
	_ = s.AppendAccessLog(ctx, types.AccessLog{ID: "c", Timestamp: base.Add(time.Hour), Access: types.AccessGranted})

	got, _ := s.ListAccessLogs(ctx, types.AccessLogQuery{})
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("expected [c a b], got %v", ids)
	}

	n, _ := s.PruneOlderThan(ctx, base.Add(time.Minute))
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	if ev := s.Events(); len(ev) != 1 || ev[0].ID != "c" {
		t.Errorf("unexpected events after prune: %+v", ev)
	}
}

func TestVehicleStore_PlateAndOwner(t *testing.T) {
	s := memory.NewVehicleStore()
	ctx := context.Background()

	_ = s.CreateVehicle(ctx, types.Vehicle{ID: "v1", OwnerID: "alice", LicensePlate: "CAR-123"})
	_ = s.CreateVehicle(ctx, types.Vehicle{ID: "v2", OwnerID: "bob", LicensePlate: "CGO-101"})

	if v, err := s.FindVehicleByPlate(ctx, "cgo-101"); err != nil || v.ID != "v2" {
		t.Errorf("FindVehicleByPlate: %+v, %v", v, err)
	}
	if _, err := s.FindVehicleByPlate(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if vs, _ := s.ListVehicles(ctx, "alice"); len(vs) != 1 {
		t.Errorf("expected 1 vehicle for alice, got %d", len(vs))
	}
	if err := s.UpdateVehicle(ctx, types.Vehicle{ID: "ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

// ── Batch ──

func TestBatchWriter_WritesEveryStoreOrNothing(t *testing.T) {
	st := memory.New()
	b := store.Batch{
		Gates:      []types.Gate{{ID: "g1", Location: "North Entrance"}},
		Vehicles:   []types.Vehicle{{ID: "v1", OwnerID: "alice", LicensePlate: "TRK-789"}},
		Schedules:  []types.Schedule{{ID: "s1", OwnerID: "alice", VehicleID: "v1", GateID: "g1"}},
		AccessLogs: []types.AccessLog{{ID: "l1", GateID: "g1", VehicleID: "v1", Access: types.AccessGranted}},
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := st.Batch.WriteBatch(cancelled, b); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if gs, _ := st.Gates.ListGates(context.Background()); len(gs) != 0 {
		t.Errorf("cancelled batch left %d gates", len(gs))
	}

	ctx := context.Background()
	if err := st.Batch.WriteBatch(ctx, b); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if _, err := st.Gates.GetGate(ctx, "g1"); err != nil {
		t.Errorf("GetGate: %v", err)
	}
	if vs, _ := st.Vehicles.ListVehicles(ctx, "alice"); len(vs) != 1 {
		t.Errorf("expected 1 vehicle, got %d", len(vs))
	}
	if _, err := st.Schedules.GetSchedule(ctx, "s1"); err != nil {
		t.Errorf("GetSchedule: %v", err)
	}
	if logs, _ := st.AccessLogs.ListAccessLogs(ctx, types.AccessLogQuery{}); len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}
}
