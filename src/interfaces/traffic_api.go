package interfaces

import "traffic-observer/src/models"

// -----------------------------------------------------------------------------
// ITrafficAPI defines the backend REST contract consumed by the observer.
// Every mutation returns the authoritative resource which is what gets
// reconciled into the view-model; locally submitted values are never trusted.
// -----------------------------------------------------------------------------

type ITrafficAPI interface {

	// -----------------------------------------------------------------------------
	// Auth

	Login(email, password string) (*models.MToken, error)
	Logout() error
	CurrentUser() (*models.MUser, error)

	// -----------------------------------------------------------------------------
	// Signals

	GetSignals(zoneID string) ([]models.MSignalView, error)
	GetSignal(id string) (*models.MSignalView, error)
	UpdateSignal(id string, fields map[string]any) (*models.MSignalView, error)
	UpdateSignalTiming(id string, timing models.MTimingUpdate) (*models.MSignalView, error)

	// -----------------------------------------------------------------------------
	// Traffic

	GetTrafficStats(zoneID string) (*models.MTrafficStats, error)
	GetTrafficHistory(start, end, zoneID string) ([]models.MTrafficLogPoint, error)
	GetPredictions(hours int, zoneID string) ([]models.MTrafficLogPoint, error)

	// -----------------------------------------------------------------------------
	// Zones / operators

	GetZones() ([]models.MZone, error)
	CreateZone(zone models.MZone) (*models.MZone, error)
	GetOperators() ([]models.MOperator, error)
	CreateOperator(op models.MOperator, password string) (*models.MOperator, error)
	AssignOperatorZone(operatorID, zoneID string) (*models.MOperator, error)

	// -----------------------------------------------------------------------------
	// Emergency

	CreateEmergencyRoute(req models.MEmergencyRouteCreate) (*models.MEmergencyRoute, error)
	GetActiveEmergencyRoutes() ([]models.MEmergencyRoute, error)
	DeactivateEmergencyRoute(id string) (*models.MEmergencyRoute, error)

	// -----------------------------------------------------------------------------
	// Realtime reference feeds

	GetTrafficPattern() (*models.MLiveContext, error)
	GetWeather() (*models.MLiveContext, error)
	GetRoadCongestion() (*models.MRoadCongestionPayload, error)
}
