package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// handleAccessRequest answers a gate controller in whichever encoding it
// sent: protobuf or JSON.
func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	useProto := isProtobuf(r)

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "could not read body")
		return
	}

	var req types.AccessRequest
	if useProto {
		req, err = decodeAccessRequest(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_protobuf", "invalid protobuf body")
			return
		}
	} else if err := json.Unmarshal(body, &req); err != nil {
		badJSON(w)
		return
	}

	resp, err := s.access.Decide(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		if !errors.Is(err, service.ErrUnknownGate) {
			s.fail(w, r, err)
			return
		}
		// Unknown gate is blocked from the access flow.
		s.logger.Warn("access request from unknown gate", zap.String("gate_id", req.GateID))
		status = http.StatusForbidden
	}

	if useProto {
		writeProto(w, status, encodeAccessResponse(resp))
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	logs, err := s.accessLogs.List(r.Context(), types.AccessLogQuery{
		From:      from,
		To:        to,
		GateID:    q.Get("gateId"),
		VehicleID: q.Get("vehicleId"),
		Limit:     limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleRecordAccessLog(w http.ResponseWriter, r *http.Request) {
	var req types.RecordAccessLogRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	rec, err := s.accessLogs.Record(r.Context(), req, service.SourceAPI)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	trends, err := s.accessLogs.Trends(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}
