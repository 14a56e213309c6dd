package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// Decision reasons, as written to the access log.
const (
	ReasonUnknownGate    = "Unknown gate"
	ReasonUnknownVehicle = "Unknown vehicle"
	ReasonAllowAll       = "Allow-all policy"
	ReasonScheduled      = "Scheduled entry"
	ReasonNoSchedule     = "No active schedule"
)

type AccessPolicy struct {
	AllowAll bool
	// ScheduleWindow is how far a schedule's time may be from now and still
	// admit the vehicle.
	ScheduleWindow time.Duration
}

// AccessService decides whether a vehicle may pass a gate and writes the
// outcome to the access log.
type AccessService struct {
	directory *Directory
	schedules store.ScheduleStore
	logs      *AccessLogService
	policy    AccessPolicy
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewAccessService(dir *Directory, schedules store.ScheduleStore, logs *AccessLogService, policy AccessPolicy, m *metrics.Metrics, logger *zap.Logger) *AccessService {
	if policy.ScheduleWindow <= 0 {
		policy.ScheduleWindow = 30 * time.Minute
	}
	return &AccessService{directory: dir, schedules: schedules, logs: logs, policy: policy, metrics: m, logger: logger}
}

// Decide returns ErrUnknownGate together with a filled-in denial when the
// gate is not registered; the denial is still logged.
func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	now := time.Now().UTC()

	gateID := strings.TrimSpace(req.GateID)
	vehicleID := strings.TrimSpace(req.VehicleID)
	plate := strings.TrimSpace(req.LicensePlate)

	if gateID == "" {
		return types.AccessResponse{}, ErrInvalidGateID
	}
	if vehicleID == "" && plate == "" {
		return types.AccessResponse{}, ErrInvalidVehicleID
	}

	// Raw identifier for the log when the vehicle is not registered.
	logVehicle := vehicleID
	if logVehicle == "" {
		logVehicle = plate
	}

	resp := types.AccessResponse{
		GateID:     gateID,
		VehicleID:  logVehicle,
		ServerTime: now.Format(time.RFC3339Nano),
	}

	_, known, err := s.directory.ResolveGate(ctx, gateID)
	if err != nil {
		return types.AccessResponse{}, err
	}
	if !known {
		resp.Reason = ReasonUnknownGate
		s.recordEvent(ctx, req, gateID, logVehicle, false, ReasonUnknownGate, now)
		return resp, ErrUnknownGate
	}

	vehicle, known, err := s.directory.ResolveVehicle(ctx, vehicleID, plate)
	if err != nil {
		return types.AccessResponse{}, err
	}
	resp.OK = true
	if !known {
		resp.Reason = ReasonUnknownVehicle
		s.recordEvent(ctx, req, gateID, logVehicle, false, ReasonUnknownVehicle, now)
		return resp, nil
	}

	resp.Known = true
	resp.VehicleID = vehicle.ID

	granted := false
	reason := ReasonNoSchedule
	if s.policy.AllowAll {
		granted = true
		reason = ReasonAllowAll
	} else {
		w := s.policy.ScheduleWindow
		matches, err := s.schedules.ListSchedulesForEntry(ctx, vehicle.ID, gateID, now.Add(-w), now.Add(w))
		if err != nil {
			return types.AccessResponse{}, err
		}
		if len(matches) > 0 {
			granted = true
			reason = ReasonScheduled
		}
	}

	resp.Granted = granted
	resp.Reason = reason
	s.recordEvent(ctx, req, gateID, vehicle.ID, granted, reason, now)
	return resp, nil
}

// recordEvent appends the decision to the access log.  A failed write is
// logged and otherwise ignored: the controller still gets its answer.
func (s *AccessService) recordEvent(ctx context.Context, req types.AccessRequest, gateID, vehicleID string, granted bool, reason string, decidedAt time.Time) {
	access := types.AccessDenied
	if granted {
		access = types.AccessGranted
	}
	s.metrics.Decision(string(access), reason)

	at := decidedAt
	if t := parseOptionalTimestamp(req.RequestedAt); t != nil {
		at = *t
	}

	rec := types.AccessLog{
		VehicleID: vehicleID,
		GateID:    gateID,
		Timestamp: at,
		Access:    access,
	}
	if !granted {
		rec.Reason = reason
	}

	if _, err := s.logs.append(ctx, rec, SourceGate); err != nil {
		s.logger.Warn("access log write failed",
			zap.String("gate_id", gateID),
			zap.String("vehicle_id", vehicleID),
			zap.Error(err),
		)
	}
}

// parseOptionalTimestamp parses a controller-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
