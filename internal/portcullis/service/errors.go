package service

import (
	"errors"
	"strings"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = store.ErrNotFound
	ErrNoIdentity       = errors.New("caller identity is required")
	ErrInvalidGateID    = errors.New("gate_id is required")
	ErrInvalidVehicleID = errors.New("vehicle_id or license_plate is required")
	ErrUnknownGate      = errors.New("unknown gate")
	ErrInvalidRange     = errors.New("start time must not be after end time")

	// ErrSummaryUnavailable wraps every failure of the language model call.
	ErrSummaryUnavailable = errors.New("summary unavailable")
)

// ValidationError carries one human-readable message per offending field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	return strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(msgs ...string) error {
	return &ValidationError{Fields: msgs}
}
