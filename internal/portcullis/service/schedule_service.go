package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ScheduleService manages planned gate entries. VehicleID and GateID are
// stored as given; they are not checked against the other stores.
type ScheduleService struct {
	store    store.ScheduleStore
	validate *Validator
}

func NewScheduleService(st store.ScheduleStore, v *Validator) *ScheduleService {
	return &ScheduleService{store: st, validate: v}
}

func (s *ScheduleService) Create(ctx context.Context, caller types.Identity, req types.CreateScheduleRequest) (types.Schedule, error) {
	if caller.UserID == "" {
		return types.Schedule{}, ErrNoIdentity
	}

	req.VehicleID = strings.TrimSpace(req.VehicleID)
	req.GateID = strings.TrimSpace(req.GateID)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := s.validate.Struct(req); err != nil {
		return types.Schedule{}, err
	}

	now := time.Now().UTC()
	sc := types.Schedule{
		ID:            uuid.NewString(),
		OwnerID:       caller.UserID,
		VehicleID:     req.VehicleID,
		GateID:        req.GateID,
		ScheduledTime: req.ScheduledTime.UTC(),
		Purpose:       req.Purpose,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSchedule(ctx, sc); err != nil {
		return types.Schedule{}, err
	}
	return sc, nil
}

// List returns the caller's schedules, earliest entry first.
func (s *ScheduleService) List(ctx context.Context, caller types.Identity) ([]types.Schedule, error) {
	if caller.UserID == "" {
		return nil, ErrNoIdentity
	}
	out, err := s.store.ListSchedules(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out, nil
}

func (s *ScheduleService) Get(ctx context.Context, caller types.Identity, id string) (types.Schedule, error) {
	if caller.UserID == "" {
		return types.Schedule{}, ErrNoIdentity
	}
	sc, err := s.store.GetSchedule(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Schedule{}, err
	}
	if sc.OwnerID != caller.UserID {
		return types.Schedule{}, ErrNotFound
	}
	return sc, nil
}

func (s *ScheduleService) Update(ctx context.Context, caller types.Identity, id string, req types.UpdateScheduleRequest) (types.Schedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Schedule{}, err
	}

	sc, err := s.Get(ctx, caller, id)
	if err != nil {
		return types.Schedule{}, err
	}

	overwrite(&sc.VehicleID, req.VehicleID)
	overwrite(&sc.GateID, req.GateID)
	overwrite(&sc.Purpose, req.Purpose)
	if req.ScheduledTime != nil && !req.ScheduledTime.IsZero() {
		sc.ScheduledTime = req.ScheduledTime.UTC()
	}

	sc.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSchedule(ctx, sc); err != nil {
		return types.Schedule{}, err
	}
	return sc, nil
}
