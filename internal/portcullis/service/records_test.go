package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ── Gates ──

func TestGateService_CreateDefaultsClosed(t *testing.T) {
	f := newFixture()
	g, err := f.gates.Create(context.Background(), types.CreateGateRequest{Location: "  North Entrance "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != types.GateClosed || g.Location != "North Entrance" || g.ID == "" {
		t.Errorf("unexpected gate: %+v", g)
	}
}

func TestGateService_CreateRequiresLocation(t *testing.T) {
	f := newFixture()
	_, err := f.gates.Create(context.Background(), types.CreateGateRequest{Location: "   "})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var verr *service.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 1 || verr.Fields[0] != "location is required" {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestGateService_ListSortedByLocation(t *testing.T) {
	f := newFixture()
	f.mustGate("west Personnel Gate")
	f.mustGate("East Cargo Bay")
	f.mustGate("North Entrance")

	gates, err := f.gates.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{gates[0].Location, gates[1].Location, gates[2].Location}
	want := []string{"East Cargo Bay", "North Entrance", "west Personnel Gate"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestGateService_UpdateAndToggle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	g := f.mustGate("North Entrance")

	empty := ""
	open := types.GateOpen
	upd, err := f.gates.Update(ctx, g.ID, types.UpdateGateRequest{Location: &empty, Status: &open})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Location != "North Entrance" {
		t.Errorf("empty location must not overwrite, got %q", upd.Location)
	}
	if upd.Status != types.GateOpen {
		t.Errorf("status = %s, want open", upd.Status)
	}

	tog, err := f.gates.Toggle(ctx, g.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if tog.Status != types.GateClosed {
		t.Errorf("toggle from open should close, got %s", tog.Status)
	}

	bad := types.GateStatus("ajar")
	if _, err := f.gates.Update(ctx, g.ID, types.UpdateGateRequest{Status: &bad}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad status, got %v", err)
	}
	if _, err := f.gates.Toggle(ctx, "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ── Vehicles ──

func TestVehicleService_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.vehicles.Create(context.Background(), alice, types.CreateVehicleRequest{
		LicensePlate: "TRK-789",
		Type:         "Container Truck",
		Owner:        "Global Logistics",
		OwnerEmail:   "not-an-email",
	})
	if err == nil || !strings.Contains(err.Error(), "ownerEmail must be a valid email") {
		t.Errorf("expected email validation error, got %v", err)
	}

	_, err = f.vehicles.Create(context.Background(), types.Identity{}, types.CreateVehicleRequest{})
	if !errors.Is(err, service.ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestVehicleService_OwnerScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.mustVehicle(alice, "TRK-789")
	f.mustVehicle(bob, "VAN-456")

	mine, _ := f.vehicles.List(ctx, alice)
	if len(mine) != 1 || mine[0].ID != v.ID {
		t.Errorf("alice should see only her vehicle, got %+v", mine)
	}

	if _, err := f.vehicles.Get(ctx, bob, v.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("bob must not see alice's vehicle, got %v", err)
	}

	plate := "TRK-790"
	upd, err := f.vehicles.Update(ctx, alice, v.ID, types.UpdateVehicleRequest{LicensePlate: &plate})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.LicensePlate != "TRK-790" || upd.Type != "Container Truck" {
		t.Errorf("unexpected update result: %+v", upd)
	}
}

// ── Schedules ──

func TestScheduleService_CreateAndListSorted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, off := range []time.Duration{48 * time.Hour, 2 * time.Hour, 24 * time.Hour} {
		_, err := f.schedules.Create(ctx, alice, types.CreateScheduleRequest{
			VehicleID:     "any-vehicle",
			GateID:        "any-gate",
			ScheduledTime: base.Add(off),
			Purpose:       "Container Pickup",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := f.schedules.List(ctx, alice)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 schedules, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].ScheduledTime.Before(list[i-1].ScheduledTime) {
			t.Errorf("schedules not sorted ascending at %d", i)
		}
	}

	if other, _ := f.schedules.List(ctx, bob); len(other) != 0 {
		t.Errorf("bob should have no schedules, got %d", len(other))
	}
}

func TestScheduleService_RequiresAllFields(t *testing.T) {
	f := newFixture()
	_, err := f.schedules.Create(context.Background(), alice, types.CreateScheduleRequest{VehicleID: "v1"})
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("expected 3 field errors (gateId, scheduledTime, purpose), got %v", verr.Fields)
	}
}

func TestScheduleService_Update(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, _ := f.schedules.Create(ctx, alice, types.CreateScheduleRequest{
		VehicleID: "v1", GateID: "g1", ScheduledTime: time.Now(), Purpose: "VIP Visit",
	})

	purpose := "Container Drop-off"
	upd, err := f.schedules.Update(ctx, alice, sc.ID, types.UpdateScheduleRequest{Purpose: &purpose})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Purpose != purpose || upd.GateID != "g1" {
		t.Errorf("unexpected update result: %+v", upd)
	}

	if _, err := f.schedules.Update(ctx, bob, sc.ID, types.UpdateScheduleRequest{Purpose: &purpose}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
}
