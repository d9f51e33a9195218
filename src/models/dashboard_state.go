package models

// -----------------------------------------------------------------------------
// Dashboard State Structure (broadcast to browser clients over the hub)
// -----------------------------------------------------------------------------

type MDashboardState struct {
	Type       string                      `json:"type"` // "INITIAL" or "UPDATE"
	Signals    map[string]MSignalView      `json:"signals"`
	Roads      map[string]MRoadSegmentView `json:"roads"`
	Stats      MTrafficStats               `json:"stats"`
	Routes     map[string]MEmergencyRoute  `json:"routes"`
	Diversions map[string]MDiversion       `json:"diversions"`
	Context    MLiveContext                `json:"context"`
	Timestamp  int64                       `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for dashboard clients
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string `json:"command"`
	ClientType string `json:"clientType"` // "dashboard" or "map"
	ZoneID     string `json:"zone_id"`
}
