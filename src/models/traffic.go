package models

import "time"

// -----------------------------------------------------------------------------
// Traffic statistics (stat tiles)
// -----------------------------------------------------------------------------

type MTrafficStats struct {
	TotalVehicles     int     `json:"total_vehicles"`
	TotalSignals      int     `json:"total_signals"`
	ActiveSignals     int     `json:"active_signals"`
	AvgSpeed          float64 `json:"avg_speed"`
	CongestionLevel   string  `json:"congestion_level"`
	CurrentCongestion float64 `json:"current_congestion"` // percentage 0-100
	ZoneID            string  `json:"zone_id,omitempty"`
}

// -----------------------------------------------------------------------------
// Zone / operator reference entities
// -----------------------------------------------------------------------------

type MZone struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Pincode   string  `json:"pincode,omitempty"`
	Pincodes  string  `json:"pincodes,omitempty"`
}

type MOperator struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	ZoneID string `json:"zone_id,omitempty"`
}

// -----------------------------------------------------------------------------
// Emergency route
// -----------------------------------------------------------------------------

type MEmergencyRoute struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	StartLatitude    float64    `json:"start_latitude"`
	StartLongitude   float64    `json:"start_longitude"`
	EndLatitude      float64    `json:"end_latitude"`
	EndLongitude     float64    `json:"end_longitude"`
	VehicleType      string     `json:"vehicle_type"`
	Priority         int        `json:"priority"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	SignalsCleared   []string   `json:"signals_cleared"`
	CreatedBy        string     `json:"created_by,omitempty"`
}

func (r *MEmergencyRoute) Key() string {
	return r.ID
}

// -----------------------------------------------------------------------------
// Live operating context (weather, rush hour) shown on stat tiles
// -----------------------------------------------------------------------------

type MLiveContext struct {
	Weather     string  `json:"weather"`
	Temperature float64 `json:"temperature"`
	IsRushHour  bool    `json:"is_rush_hour"`
	Pattern     string  `json:"pattern"`
}

// -----------------------------------------------------------------------------
// Traffic history data point (stored locally for the history view)
// -----------------------------------------------------------------------------

type MTrafficLogPoint struct {
	SignalID     string    `json:"signal_id"`
	Timestamp    int64     `json:"timestamp"`
	Density      float64   `json:"density"`
	VehicleCount int       `json:"vehicle_count"`
	Speed        float64   `json:"speed"`
	CreatedAt    time.Time `json:"created_at"`
}
