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

type GateService struct {
	store    store.GateStore
	validate *Validator
}

func NewGateService(st store.GateStore, v *Validator) *GateService {
	return &GateService{store: st, validate: v}
}

// Create registers a gate. New gates start closed.
func (s *GateService) Create(ctx context.Context, req types.CreateGateRequest) (types.Gate, error) {
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validate.Struct(req); err != nil {
		return types.Gate{}, err
	}

	now := time.Now().UTC()
	g := types.Gate{
		ID:        uuid.NewString(),
		Location:  req.Location,
		Status:    types.GateClosed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateGate(ctx, g); err != nil {
		return types.Gate{}, err
	}
	return g, nil
}

// List returns every gate ordered by location, case-insensitively.
func (s *GateService) List(ctx context.Context) ([]types.Gate, error) {
	gates, err := s.store.ListGates(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(gates, func(i, j int) bool {
		li, lj := strings.ToLower(gates[i].Location), strings.ToLower(gates[j].Location)
		if li != lj {
			return li < lj
		}
		return gates[i].ID < gates[j].ID
	})
	return gates, nil
}

func (s *GateService) Get(ctx context.Context, id string) (types.Gate, error) {
	return s.store.GetGate(ctx, strings.TrimSpace(id))
}

// Update overwrites the location when a different non-empty one is given,
// and the status when one is given.
func (s *GateService) Update(ctx context.Context, id string, req types.UpdateGateRequest) (types.Gate, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Gate{}, err
	}

	g, err := s.store.GetGate(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Gate{}, err
	}

	if req.Location != nil {
		if loc := strings.TrimSpace(*req.Location); loc != "" && loc != g.Location {
			g.Location = loc
		}
	}
	if req.Status != nil {
		g.Status = *req.Status
	}

	g.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateGate(ctx, g); err != nil {
		return types.Gate{}, err
	}
	return g, nil
}

// Toggle flips the barrier between open and closed.
func (s *GateService) Toggle(ctx context.Context, id string) (types.Gate, error) {
	g, err := s.store.GetGate(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Gate{}, err
	}
	g.Status = g.Status.Toggled()
	g.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateGate(ctx, g); err != nil {
		return types.Gate{}, err
	}
	return g, nil
}
