package models

import "encoding/json"

// -----------------------------------------------------------------------------
// Push channel envelope. Every inbound frame is {type, data}; the data shape
// depends on the type. Unknown types still dispatch (forward-compatible).
// -----------------------------------------------------------------------------

type MEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// -----------------------------------------------------------------------------
// Recognized event types. The registry accepts any string key, these are the
// types the backend is known to emit.
// -----------------------------------------------------------------------------

const (
	EventTrafficUpdate   = "traffic_update"
	EventSignalUpdate    = "signal_update"
	EventEmergencyAlert  = "emergency_alert"
	EventEdgeUpdate      = "edge_update"
	EventRealtimeTraffic = "realtime_traffic_update"
	EventRoadCongestion  = "road_congestion_update"
	EventConnected       = "connected"
	EventPong            = "pong"
	EventError           = "error"
)

// -----------------------------------------------------------------------------
// Typed payloads per event tag
// -----------------------------------------------------------------------------

// MRealtimeTrafficPayload carries per-signal telemetry batches.
type MRealtimeTrafficPayload struct {
	Signals   []MSignalTelemetry `json:"signals"`
	Timestamp int64              `json:"timestamp"`
}

// MRoadCongestionPayload carries a blanket congestion level. The backend does
// not attach segment identities to this frame, so consumers apply it to every
// tracked segment (explicit fallback policy).
type MRoadCongestionPayload struct {
	Congestion string `json:"congestion"`
	ZoneID     string `json:"zone_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// MEmergencyAlertPayload announces an emergency corridor activation.
type MEmergencyAlertPayload struct {
	RouteID     string   `json:"route_id"`
	VehicleType string   `json:"vehicle_type"`
	Message     string   `json:"message"`
	SignalIDs   []string `json:"signal_ids"`
}

// MSignalUpdatePayload flags that signal state changed server-side; consumers
// refresh from the snapshot endpoint rather than trusting the delta alone.
type MSignalUpdatePayload struct {
	SignalsUpdated bool   `json:"signals_updated"`
	ZoneID         string `json:"zone_id,omitempty"`
}
