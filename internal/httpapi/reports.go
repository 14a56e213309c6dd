package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/summary"
)

type summarizeRequest struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// handleSummarize accepts an empty body, which means the last seven days.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badJSON(w)
		return
	}
	report, err := s.summaries.Summarize(r.Context(), identityFrom(r.Context()), req.StartTime, req.EndTime)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSummaryFlow runs the prompt over a caller-supplied log array.
func (s *Server) handleSummaryFlow(w http.ResponseWriter, r *http.Request) {
	var in summary.Input
	if err := decodeJSON(r, &in); err != nil {
		badJSON(w)
		return
	}
	out, err := s.summaries.RunFlow(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Dashboard(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	res, err := s.seeder.Seed(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
