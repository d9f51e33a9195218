package interfaces

import "traffic-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems
// (dashboard server / push to browsers).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes an updated state slice to connected dashboard clients.
	Broadcast(state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// UpdateState replaces the internal state without broadcasting.
	UpdateState(state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
