package models

// -----------------------------------------------------------------------------
// Signal view-model (reconciled, display-ready representation of one signal)
// -----------------------------------------------------------------------------

type MSignalView struct {
	ID           string  `json:"id"`
	SignalID     string  `json:"signal_id"`
	ZoneID       string  `json:"zone_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Status       string  `json:"status"`        // "active" | "inactive" | "maintenance"
	CurrentPhase string  `json:"current_phase"` // "red" | "yellow" | "green"
	GreenTime    int     `json:"green_time"`
	YellowTime   int     `json:"yellow_time"`
	RedTime      int     `json:"red_time"`
	Mode         string  `json:"mode"` // "auto" | "manual" | "emergency"
	Density      float64 `json:"density"`
	VehicleCount int     `json:"vehicle_count"`
}

// -----------------------------------------------------------------------------

// Key returns the stable entity key used to address this view-model.
func (s *MSignalView) Key() string {
	return s.ID
}

// -----------------------------------------------------------------------------
// MSignalTelemetry is the per-signal payload carried by realtime push frames.
// Missing fields mean "unchanged", so everything optional is a pointer.
// -----------------------------------------------------------------------------

type MSignalTelemetry struct {
	SignalID     string   `json:"signal_id"`
	ZoneID       string   `json:"zone_id"`
	Density      *float64 `json:"density"`
	VehicleCount *int     `json:"vehicle_count"`
	Speed        *float64 `json:"speed"`
	Status       string   `json:"status"`
	CurrentPhase string   `json:"current_phase"`
	Timestamp    int64    `json:"timestamp"`
}
