package types

import "time"

// Schedule is a planned entry of a vehicle through a gate. VehicleID and
// GateID are not checked against the vehicle or gate tables.
type Schedule struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	VehicleID     string    `json:"vehicleId"`
	GateID        string    `json:"gateId"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Purpose       string    `json:"purpose"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateScheduleRequest struct {
	VehicleID     string    `json:"vehicleId" validate:"required"`
	GateID        string    `json:"gateId" validate:"required"`
	ScheduledTime time.Time `json:"scheduledTime" validate:"required"`
	Purpose       string    `json:"purpose" validate:"required,max=500"`
}

type UpdateScheduleRequest struct {
	VehicleID     *string    `json:"vehicleId,omitempty" validate:"omitempty,min=1"`
	GateID        *string    `json:"gateId,omitempty" validate:"omitempty,min=1"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	Purpose       *string    `json:"purpose,omitempty" validate:"omitempty,min=1,max=500"`
}
