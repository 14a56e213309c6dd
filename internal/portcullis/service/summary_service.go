package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/summary"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// DefaultSummaryRange is used when the caller gives no start time.
const DefaultSummaryRange = 7 * 24 * time.Hour

type SummaryService struct {
	flow      *summary.Flow
	directory *Directory
	logs      store.AccessLogStore
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewSummaryService(flow *summary.Flow, dir *Directory, logs store.AccessLogStore, m *metrics.Metrics, logger *zap.Logger) *SummaryService {
	return &SummaryService{flow: flow, directory: dir, logs: logs, metrics: m, logger: logger}
}

// RunFlow sends pre-serialized logs through the prompt template.
func (s *SummaryService) RunFlow(ctx context.Context, in summary.Input) (summary.Output, error) {
	start := time.Now()
	out, err := s.flow.Run(ctx, in)
	if err != nil {
		s.metrics.Summary("error", time.Since(start))
		s.logger.Warn("summary flow failed", zap.Error(err))
		return summary.Output{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}
	s.metrics.Summary("ok", time.Since(start))
	return out, nil
}

// Summarize builds the log window for the caller and runs it through the
// flow. A nil to means now; a nil from means DefaultSummaryRange before to.
func (s *SummaryService) Summarize(ctx context.Context, caller types.Identity, from, to *time.Time) (types.SummaryReport, error) {
	end := time.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	begin := end.Add(-DefaultSummaryRange)
	if from != nil {
		begin = from.UTC()
	}
	if begin.After(end) {
		return types.SummaryReport{}, ErrInvalidRange
	}

	gates, err := s.directory.GateLocations(ctx)
	if err != nil {
		return types.SummaryReport{}, err
	}
	vehicles, err := s.directory.VehiclePlates(ctx, caller.UserID)
	if err != nil {
		return types.SummaryReport{}, err
	}
	logs, err := s.logs.ListAccessLogs(ctx, types.AccessLogQuery{From: &begin, To: &end})
	if err != nil {
		return types.SummaryReport{}, err
	}

	rows := summary.BuildRows(logs, gates, vehicles, begin, end)
	encoded, err := summary.EncodeRows(rows)
	if err != nil {
		return types.SummaryReport{}, fmt.Errorf("encode rows: %w", err)
	}

	out, err := s.RunFlow(ctx, summary.Input{
		StartTime: summary.FormatTime(begin),
		EndTime:   summary.FormatTime(end),
		Logs:      encoded,
	})
	if err != nil {
		return types.SummaryReport{}, err
	}

	return types.SummaryReport{
		StartTime: begin,
		EndTime:   end,
		Records:   len(rows),
		Summary:   out.Summary,
	}, nil
}
