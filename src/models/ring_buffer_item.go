package models

// -----------------------------------------------------------------------------
// Ring buffer layout for traffic history points.
// Stored as fixed-width float rows to keep the buffer allocation flat.
// -----------------------------------------------------------------------------

const (
	RB_IDX_TIMESTAMP = 0
	RB_IDX_DENSITY   = 1
	RB_IDX_VEHICLES  = 2
	RB_IDX_SPEED     = 3

	RB_NUM_FEATURES = 4
)
