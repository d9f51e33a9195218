package models

// -----------------------------------------------------------------------------
// Congestion buckets derived from continuous density values.
// -----------------------------------------------------------------------------

const (
	CongestionLow    = "low"
	CongestionMedium = "medium"
	CongestionHigh   = "high"
	CongestionSevere = "severe"
)

// -----------------------------------------------------------------------------

// CongestionFromDensity maps a continuous density value onto a display bucket.
// Lower bounds are inclusive: 0.8 is severe, 0.6 is high, 0.4 is medium.
func CongestionFromDensity(density float64) string {
	switch {
	case density >= 0.8:
		return CongestionSevere
	case density >= 0.6:
		return CongestionHigh
	case density >= 0.4:
		return CongestionMedium
	default:
		return CongestionLow
	}
}

// -----------------------------------------------------------------------------

// SpeedFromDensity estimates free-flow speed in km/h from density.
// 60 km/h at zero density down to 20 km/h at full saturation.
func SpeedFromDensity(density float64) float64 {
	speed := 60 - density*40
	if speed < 20 {
		return 20
	}
	return speed
}

// -----------------------------------------------------------------------------
// Road-segment view-model
// -----------------------------------------------------------------------------

type MRoadSegmentView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Coordinates  [][2]float64 `json:"coordinates"`
	ZoneID       string       `json:"zone_id"`
	ZoneName     string       `json:"zone_name"`
	Pincode      string       `json:"pincode"`
	Congestion   string       `json:"congestion"`
	Speed        float64      `json:"speed"`
	VehicleCount int          `json:"vehicle_count"`
}

// -----------------------------------------------------------------------------

func (r *MRoadSegmentView) Key() string {
	return r.ID
}
