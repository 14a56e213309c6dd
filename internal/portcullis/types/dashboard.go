package types

import "time"

// Identity is the caller as asserted by the identity provider.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

type Overview struct {
	TotalGates   int `json:"totalGates"`
	OpenGates    int `json:"openGates"`
	Vehicles     int `json:"vehicles"`
	Schedules    int `json:"schedules"`
	AccessEvents int `json:"accessEvents"`
	DeniedEvents int `json:"deniedEvents"`
}

type SeedResult struct {
	GatesCreated     int `json:"gatesCreated"`
	VehiclesCreated  int `json:"vehiclesCreated"`
	SchedulesCreated int `json:"schedulesCreated"`
	LogsCreated      int `json:"logsCreated"`
}

// Dashboard is the landing-page payload: counts plus the daily trend.
type Dashboard struct {
	Overview Overview     `json:"overview"`
	Trends   []DailyTrend `json:"trends"`
}

// SummaryReport is a generated summary together with the range it covers.
type SummaryReport struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Records   int       `json:"records"`
	Summary   string    `json:"summary"`
}
