package service

import (
	"context"
	"errors"
	"strings"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/summary"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Directory answers "which gate / which vehicle is this" for display joins
// and access decisions.
type Directory struct {
	gates    store.GateStore
	vehicles store.VehicleStore
}

func NewDirectory(gates store.GateStore, vehicles store.VehicleStore) *Directory {
	return &Directory{gates: gates, vehicles: vehicles}
}

// GateLocations maps every gate id to its location.
func (d *Directory) GateLocations(ctx context.Context) (map[string]string, error) {
	gates, err := d.gates.ListGates(ctx)
	if err != nil {
		return nil, err
	}
	return summary.GateLocations(gates), nil
}

// VehiclePlates maps the vehicle ids owned by ownerID to license plates.
func (d *Directory) VehiclePlates(ctx context.Context, ownerID string) (map[string]string, error) {
	vehicles, err := d.vehicles.ListVehicles(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return summary.VehiclePlates(vehicles), nil
}

func (d *Directory) ResolveGate(ctx context.Context, id string) (types.Gate, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Gate{}, false, nil
	}
	g, err := d.gates.GetGate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Gate{}, false, nil
	}
	if err != nil {
		return types.Gate{}, false, err
	}
	return g, true, nil
}

// ResolveVehicle looks the vehicle up by id, falling back to the plate.
func (d *Directory) ResolveVehicle(ctx context.Context, id, plate string) (types.Vehicle, bool, error) {
	if id = strings.TrimSpace(id); id != "" {
		v, err := d.vehicles.GetVehicle(ctx, id)
		if err == nil {
			return v, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.Vehicle{}, false, err
		}
	}
	if plate = strings.TrimSpace(plate); plate != "" {
		v, err := d.vehicles.FindVehicleByPlate(ctx, plate)
		if err == nil {
			return v, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.Vehicle{}, false, err
		}
	}
	return types.Vehicle{}, false, nil
}
