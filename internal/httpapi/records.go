package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ── Gates ────────────────────────────────────────────────────────────────────

func (s *Server) handleListGates(w http.ResponseWriter, r *http.Request) {
	gates, err := s.gates.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gates)
}

func (s *Server) handleCreateGate(w http.ResponseWriter, r *http.Request) {
	var req types.CreateGateRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	g, err := s.gates.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGate(w http.ResponseWriter, r *http.Request) {
	g, err := s.gates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGate(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateGateRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	g, err := s.gates.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleToggleGate(w http.ResponseWriter, r *http.Request) {
	g, err := s.gates.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// ── Vehicles ─────────────────────────────────────────────────────────────────

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.vehicles.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req types.CreateVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	v, err := s.vehicles.Create(r.Context(), identityFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.vehicles.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	v, err := s.vehicles.Update(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ── Schedules ────────────────────────────────────────────────────────────────

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.schedules.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req types.CreateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	sc, err := s.schedules.Create(r.Context(), identityFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := s.schedules.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	sc, err := s.schedules.Update(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
