package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type ScheduleStore struct {
	mu        sync.RWMutex
	schedules map[string]types.Schedule
	order     []string
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{schedules: make(map[string]types.Schedule)}
}

func (s *ScheduleStore) CreateSchedule(_ context.Context, sc types.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(sc)
	return nil
}

// put requires s.mu held for writing.
func (s *ScheduleStore) put(sc types.Schedule) {
	if _, ok := s.schedules[sc.ID]; !ok {
		s.order = append(s.order, sc.ID)
	}
	s.schedules[sc.ID] = sc
}

func (s *ScheduleStore) GetSchedule(_ context.Context, id string) (types.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schedules[id]
	if !ok {
		return types.Schedule{}, store.ErrNotFound
	}
	return sc, nil
}

func (s *ScheduleStore) ListSchedules(_ context.Context, ownerID string) ([]types.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Schedule, 0, len(s.order))
	for _, id := range s.order {
		sc := s.schedules[id]
		if ownerID != "" && sc.OwnerID != ownerID {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *ScheduleStore) UpdateSchedule(_ context.Context, sc types.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[sc.ID]; !ok {
		return store.ErrNotFound
	}
	s.schedules[sc.ID] = sc
	return nil
}

func (s *ScheduleStore) ListSchedulesForEntry(_ context.Context, vehicleID, gateID string, from, to time.Time) ([]types.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Schedule
	for _, id := range s.order {
		sc := s.schedules[id]
		if sc.VehicleID != vehicleID || sc.GateID != gateID {
			continue
		}
		if sc.ScheduledTime.Before(from) || sc.ScheduledTime.After(to) {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}
