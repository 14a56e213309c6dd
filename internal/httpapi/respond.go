package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
)

// maxJSONBody caps JSON request bodies. Summary flow requests carry a
// pre-serialized log array, so this is larger than any record payload needs.
const maxJSONBody = 4 << 20

// summaryFailureMessage is shown to users whenever the model call fails.
const summaryFailureMessage = "Failed to generate summary. Please try again later."

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fail maps service errors onto HTTP responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "invalid_input", ve.Error())
	case errors.Is(err, service.ErrInvalidGateID):
		writeError(w, http.StatusBadRequest, "invalid_gate_id", err.Error())
	case errors.Is(err, service.ErrInvalidVehicleID):
		writeError(w, http.StatusBadRequest, "invalid_vehicle_id", err.Error())
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, service.ErrNoIdentity):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, service.ErrSummaryUnavailable):
		writeError(w, http.StatusBadGateway, "summary_unavailable", summaryFailureMessage)
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, &service.ValidationError{Fields: []string{fmt.Sprintf("%s must be an RFC 3339 timestamp", key)}}
	}
	return &t, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &service.ValidationError{Fields: []string{fmt.Sprintf("%s must be an integer", key)}}
	}
	return n, nil
}

func badJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
}
