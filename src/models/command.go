package models

import "time"

// -----------------------------------------------------------------------------
// Pending command (user-issued mutation in flight)
// -----------------------------------------------------------------------------

type CommandOutcome string

const (
	CommandPending   CommandOutcome = "pending"
	CommandConfirmed CommandOutcome = "confirmed"
	CommandFailed    CommandOutcome = "failed"
)

type MPendingCommand struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"` // "mode" | "timing" | "diversion" | "emergency_route"
	EntityKey string         `json:"entity_key"`
	Fields    map[string]any `json:"fields"`
	IssuedAt  time.Time      `json:"issued_at"`
	Outcome   CommandOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------
// Signal timing bounds (seconds). Each field is validated independently.
// -----------------------------------------------------------------------------

const (
	MinGreenTime  = 10
	MaxGreenTime  = 120
	MinYellowTime = 3
	MaxYellowTime = 10
	MinRedTime    = 10
	MaxRedTime    = 120
)

// MTimingUpdate carries the per-field timing edit; nil means "leave as is".
type MTimingUpdate struct {
	GreenTime  *int `json:"green_time,omitempty"`
	YellowTime *int `json:"yellow_time,omitempty"`
	RedTime    *int `json:"red_time,omitempty"`
}

// -----------------------------------------------------------------------------
// Diversion (local overlay entity; the backend has no diversion resource, the
// dashboard tracks them client-side against the road catalog)
// -----------------------------------------------------------------------------

type MDiversion struct {
	ID        string    `json:"id"`
	FromRoad  string    `json:"from_road"`
	ToRoad    string    `json:"to_road"`
	Reason    string    `json:"reason"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Emergency route creation request
// -----------------------------------------------------------------------------

type MEmergencyRouteCreate struct {
	Name           string  `json:"name,omitempty"`
	StartLatitude  float64 `json:"start_latitude"`
	StartLongitude float64 `json:"start_longitude"`
	EndLatitude    float64 `json:"end_latitude"`
	EndLongitude   float64 `json:"end_longitude"`
	VehicleType    string  `json:"vehicle_type"`
	Priority       int     `json:"priority"`
	ClearSignals   bool    `json:"clear_signals"`
}
