package types

import "time"

type AccessDecision string

const (
	AccessGranted AccessDecision = "granted"
	AccessDenied  AccessDecision = "denied"
)

// AccessLog is one entry in the append-only vehicle access log.
type AccessLog struct {
	ID        string         `json:"id"`
	VehicleID string         `json:"vehicleId"`
	GateID    string         `json:"gateId"`
	Timestamp time.Time      `json:"timestamp"`
	Access    AccessDecision `json:"access"`
	Reason    string         `json:"reason,omitempty"`
}

// RecordAccessLogRequest is how external producers append to the log.
// A nil Timestamp means "now".
type RecordAccessLogRequest struct {
	VehicleID string         `json:"vehicleId" validate:"required"`
	GateID    string         `json:"gateId" validate:"required"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Access    AccessDecision `json:"access" validate:"required,oneof=granted denied"`
	Reason    string         `json:"reason,omitempty" validate:"max=500"`
}

type AccessLogQuery struct {
	From      *time.Time
	To        *time.Time
	GateID    string
	VehicleID string
	Limit     int
}

// AccessRequest is sent by a gate controller when a vehicle arrives.
// Either VehicleID or LicensePlate identifies the vehicle.
type AccessRequest struct {
	GateID       string `json:"gateId"`
	VehicleID    string `json:"vehicleId,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	RequestedAt  string `json:"requestedAt,omitempty"` // optional controller timestamp
}

type AccessResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason,omitempty"`
	GateID     string `json:"gateId"`
	VehicleID  string `json:"vehicleId,omitempty"`
	ServerTime string `json:"serverTime"`
}

type DailyTrend struct {
	Date    string `json:"date"`
	Granted int    `json:"granted"`
	Denied  int    `json:"denied"`
}
