package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// VehicleService manages the vehicles registered by one user account.
// Another account's vehicle looks exactly like a missing one.
type VehicleService struct {
	store    store.VehicleStore
	validate *Validator
}

func NewVehicleService(st store.VehicleStore, v *Validator) *VehicleService {
	return &VehicleService{store: st, validate: v}
}

func (s *VehicleService) Create(ctx context.Context, caller types.Identity, req types.CreateVehicleRequest) (types.Vehicle, error) {
	if caller.UserID == "" {
		return types.Vehicle{}, ErrNoIdentity
	}

	req.LicensePlate = strings.TrimSpace(req.LicensePlate)
	req.Type = strings.TrimSpace(req.Type)
	req.Owner = strings.TrimSpace(req.Owner)
	req.OwnerEmail = strings.TrimSpace(req.OwnerEmail)
	if err := s.validate.Struct(req); err != nil {
		return types.Vehicle{}, err
	}

	now := time.Now().UTC()
	v := types.Vehicle{
		ID:           uuid.NewString(),
		OwnerID:      caller.UserID,
		LicensePlate: req.LicensePlate,
		Type:         req.Type,
		Owner:        req.Owner,
		OwnerEmail:   req.OwnerEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return types.Vehicle{}, err
	}
	return v, nil
}

func (s *VehicleService) List(ctx context.Context, caller types.Identity) ([]types.Vehicle, error) {
	if caller.UserID == "" {
		return nil, ErrNoIdentity
	}
	return s.store.ListVehicles(ctx, caller.UserID)
}

func (s *VehicleService) Get(ctx context.Context, caller types.Identity, id string) (types.Vehicle, error) {
	if caller.UserID == "" {
		return types.Vehicle{}, ErrNoIdentity
	}
	v, err := s.store.GetVehicle(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Vehicle{}, err
	}
	if v.OwnerID != caller.UserID {
		return types.Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (s *VehicleService) Update(ctx context.Context, caller types.Identity, id string, req types.UpdateVehicleRequest) (types.Vehicle, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Vehicle{}, err
	}

	v, err := s.Get(ctx, caller, id)
	if err != nil {
		return types.Vehicle{}, err
	}

	overwrite(&v.LicensePlate, req.LicensePlate)
	overwrite(&v.Type, req.Type)
	overwrite(&v.Owner, req.Owner)
	overwrite(&v.OwnerEmail, req.OwnerEmail)

	v.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateVehicle(ctx, v); err != nil {
		return types.Vehicle{}, err
	}
	return v, nil
}

// overwrite replaces *dst with the trimmed *src when src is set and non-empty.
func overwrite(dst *string, src *string) {
	if src == nil {
		return
	}
	if s := strings.TrimSpace(*src); s != "" {
		*dst = s
	}
}
