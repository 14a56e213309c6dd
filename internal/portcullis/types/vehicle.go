package types

import "time"

// Vehicle is a registered vehicle. OwnerID is the user account that manages
// it; Owner and OwnerEmail are the operating company as entered on the form.
type Vehicle struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	LicensePlate string    `json:"licensePlate"`
	Type         string    `json:"type"`
	Owner        string    `json:"owner"`
	OwnerEmail   string    `json:"ownerEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateVehicleRequest struct {
	LicensePlate string `json:"licensePlate" validate:"required,max=32"`
	Type         string `json:"type" validate:"required,max=64"`
	Owner        string `json:"owner" validate:"required,max=200"`
	OwnerEmail   string `json:"ownerEmail" validate:"required,email"`
}

type UpdateVehicleRequest struct {
	LicensePlate *string `json:"licensePlate,omitempty" validate:"omitempty,min=1,max=32"`
	Type         *string `json:"type,omitempty" validate:"omitempty,min=1,max=64"`
	Owner        *string `json:"owner,omitempty" validate:"omitempty,min=1,max=200"`
	OwnerEmail   *string `json:"ownerEmail,omitempty" validate:"omitempty,email"`
}
