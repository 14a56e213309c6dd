package types

import "time"

type GateStatus string

const (
	GateOpen   GateStatus = "open"
	GateClosed GateStatus = "closed"
)

// Toggled returns the opposite barrier state.
func (s GateStatus) Toggled() GateStatus {
	if s == GateOpen {
		return GateClosed
	}
	return GateOpen
}

type Gate struct {
	ID        string     `json:"id"`
	Location  string     `json:"location"`
	Status    GateStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CreateGateRequest struct {
	Location string `json:"location" validate:"required,max=200"`
}

type UpdateGateRequest struct {
	Location *string     `json:"location,omitempty" validate:"omitempty,max=200"`
	Status   *GateStatus `json:"status,omitempty" validate:"omitempty,oneof=open closed"`
}
