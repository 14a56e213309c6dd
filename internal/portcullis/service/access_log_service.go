package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

const (
	DefaultLogLimit = 500
	MaxLogLimit     = 5000
)

// Sources label where a log record came from.
const (
	SourceAPI   = "api"
	SourceGate  = "gate"
	SourceQueue = "queue"
	SourceSeed  = "seed"
)

// AccessLogObserver is told about every record after it has been stored.
type AccessLogObserver interface {
	AccessLogRecorded(types.AccessLog)
}

type AccessLogService struct {
	store     store.AccessLogStore
	validate  *Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	observers []AccessLogObserver
}

func NewAccessLogService(st store.AccessLogStore, v *Validator, m *metrics.Metrics, logger *zap.Logger) *AccessLogService {
	return &AccessLogService{store: st, validate: v, metrics: m, logger: logger}
}

// Observe registers o. Not safe to call once requests are being served.
func (s *AccessLogService) Observe(o AccessLogObserver) {
	s.observers = append(s.observers, o)
}

// Record validates and appends a log record from an external producer.
func (s *AccessLogService) Record(ctx context.Context, req types.RecordAccessLogRequest, source string) (types.AccessLog, error) {
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	req.GateID = strings.TrimSpace(req.GateID)
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validate.Struct(req); err != nil {
		return types.AccessLog{}, err
	}

	rec := types.AccessLog{
		VehicleID: req.VehicleID,
		GateID:    req.GateID,
		Access:    req.Access,
		Reason:    req.Reason,
	}
	if req.Timestamp != nil {
		rec.Timestamp = req.Timestamp.UTC()
	}
	return s.append(ctx, rec, source)
}

func (s *AccessLogService) append(ctx context.Context, rec types.AccessLog, source string) (types.AccessLog, error) {
	rec = prepareLog(rec)
	if err := s.store.AppendAccessLog(ctx, rec); err != nil {
		return types.AccessLog{}, err
	}
	s.recorded(rec, source)
	return rec, nil
}

// prepareLog assigns an id and a timestamp where missing.
func prepareLog(rec types.AccessLog) types.AccessLog {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	// Millisecond precision is all any backend keeps.
	rec.Timestamp = rec.Timestamp.Truncate(time.Millisecond)
	return rec
}

// recorded reports a stored record to metrics and observers.
func (s *AccessLogService) recorded(rec types.AccessLog, source string) {
	s.metrics.LogRecorded(string(rec.Access), source)
	for _, o := range s.observers {
		o.AccessLogRecorded(rec)
	}
}

// List returns matching records newest first. A zero limit means
// DefaultLogLimit; larger limits are capped at MaxLogLimit.
func (s *AccessLogService) List(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLog, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, ErrInvalidRange
	}
	switch {
	case q.Limit < 0:
		return nil, invalid("limit must not be negative")
	case q.Limit == 0:
		q.Limit = DefaultLogLimit
	case q.Limit > MaxLogLimit:
		q.Limit = MaxLogLimit
	}
	q.GateID = strings.TrimSpace(q.GateID)
	q.VehicleID = strings.TrimSpace(q.VehicleID)

	return s.store.ListAccessLogs(ctx, q)
}

// Trends counts granted and denied events per UTC day in [from, to].
// Days without events are omitted; the result is sorted by date.
func (s *AccessLogService) Trends(ctx context.Context, from, to *time.Time) ([]types.DailyTrend, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidRange
	}
	logs, err := s.store.ListAccessLogs(ctx, types.AccessLogQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}
	return DailyTrends(logs), nil
}

func DailyTrends(logs []types.AccessLog) []types.DailyTrend {
	byDay := make(map[string]*types.DailyTrend)
	for _, l := range logs {
		day := l.Timestamp.UTC().Format(time.DateOnly)
		t, ok := byDay[day]
		if !ok {
			t = &types.DailyTrend{Date: day}
			byDay[day] = t
		}
		switch l.Access {
		case types.AccessGranted:
			t.Granted++
		case types.AccessDenied:
			t.Denied++
		}
	}

	out := make([]types.DailyTrend, 0, len(byDay))
	for _, t := range byDay {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
