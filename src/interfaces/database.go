package interfaces

import "traffic-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for local persistence. The observer caches
// the reconciled view and traffic history so a restart can serve last-known
// state before the first backend round trip completes.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTrafficLogsBulk inserts a batch of traffic history points.
	SaveTrafficLogsBulk(points []models.MTrafficLogPoint) error

	// -----------------------------------------------------------------------------

	// SaveViewSnapshot persists the full reconciled dashboard state.
	SaveViewSnapshot(state *models.MDashboardState) error

	// -----------------------------------------------------------------------------

	// LoadViewSnapshot returns the most recently persisted dashboard state,
	// or nil when none has been saved yet.
	LoadViewSnapshot() (*models.MDashboardState, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes history older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// ICredentialStore is the injected storage port for persisted session
// credentials. Implementations decide where the token lives; consumers never
// reach for ambient global state.
// -----------------------------------------------------------------------------

type ICredentialStore interface {

	// SaveToken persists the session token for the given account.
	SaveToken(email, token string) error

	// LoadToken returns the persisted token, or empty string when absent.
	LoadToken(email string) (string, error)

	// ClearToken removes the persisted token (logout).
	ClearToken(email string) error
}
