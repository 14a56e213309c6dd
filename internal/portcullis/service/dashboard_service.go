package service

import (
	"context"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type DashboardService struct {
	stores store.Stores
}

func NewDashboardService(st store.Stores) *DashboardService {
	return &DashboardService{stores: st}
}

// Dashboard counts gates and events globally, vehicles and schedules for
// the caller only, and buckets every access log into the daily trend.
func (s *DashboardService) Dashboard(ctx context.Context, caller types.Identity) (types.Dashboard, error) {
	if caller.UserID == "" {
		return types.Dashboard{}, ErrNoIdentity
	}

	gates, err := s.stores.Gates.ListGates(ctx)
	if err != nil {
		return types.Dashboard{}, err
	}
	vehicles, err := s.stores.Vehicles.ListVehicles(ctx, caller.UserID)
	if err != nil {
		return types.Dashboard{}, err
	}
	schedules, err := s.stores.Schedules.ListSchedules(ctx, caller.UserID)
	if err != nil {
		return types.Dashboard{}, err
	}
	logs, err := s.stores.AccessLogs.ListAccessLogs(ctx, types.AccessLogQuery{})
	if err != nil {
		return types.Dashboard{}, err
	}

	ov := types.Overview{
		TotalGates:   len(gates),
		Vehicles:     len(vehicles),
		Schedules:    len(schedules),
		AccessEvents: len(logs),
	}
	for _, g := range gates {
		if g.Status == types.GateOpen {
			ov.OpenGates++
		}
	}

	for _, l := range logs {
		if l.Access == types.AccessDenied {
			ov.DeniedEvents++
		}
	}

	return types.Dashboard{Overview: ov, Trends: DailyTrends(logs)}, nil
}
