package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type VehicleStore struct {
	mu       sync.RWMutex
	vehicles map[string]types.Vehicle
	order    []string
}

func NewVehicleStore() *VehicleStore {
	return &VehicleStore{vehicles: make(map[string]types.Vehicle)}
}

func (s *VehicleStore) CreateVehicle(_ context.Context, v types.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(v)
	return nil
}

// put requires s.mu held for writing.
func (s *VehicleStore) put(v types.Vehicle) {
	if _, ok := s.vehicles[v.ID]; !ok {
		s.order = append(s.order, v.ID)
	}
	s.vehicles[v.ID] = v
}

func (s *VehicleStore) GetVehicle(_ context.Context, id string) (types.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return types.Vehicle{}, store.ErrNotFound
	}
	return v, nil
}

func (s *VehicleStore) FindVehicleByPlate(_ context.Context, plate string) (types.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if v := s.vehicles[id]; strings.EqualFold(v.LicensePlate, plate) {
			return v, nil
		}
	}
	return types.Vehicle{}, store.ErrNotFound
}

func (s *VehicleStore) ListVehicles(_ context.Context, ownerID string) ([]types.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Vehicle, 0, len(s.order))
	for _, id := range s.order {
		v := s.vehicles[id]
		if ownerID != "" && v.OwnerID != ownerID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *VehicleStore) UpdateVehicle(_ context.Context, v types.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[v.ID]; !ok {
		return store.ErrNotFound
	}
	s.vehicles[v.ID] = v
	return nil
}
