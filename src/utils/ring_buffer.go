package utils

import (
	"traffic-observer/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer with structured data.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	// Data storage as 2D slice (rows x features)
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a structured data point (Strict Type)
func (rb *RingBuffer) Append(point models.MTrafficLogPoint) {
	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(point.Timestamp),
		point.Density,
		float64(point.VehicleCount),
		point.Speed,
	}

	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns n latest records as traffic log points
func (rb *RingBuffer) GetLatest(signalID string, n int) []models.MTrafficLogPoint {
	if rb.size == 0 || n <= 0 {
		return []models.MTrafficLogPoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MTrafficLogPoint, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.rowToPoint(signalID, idx)
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll(signalID string) []models.MTrafficLogPoint {
	if rb.size == 0 {
		return []models.MTrafficLogPoint{}
	}

	result := make([]models.MTrafficLogPoint, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	} else {
		startIdx = 0
	}

	for i := 0; i < rb.size; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.rowToPoint(signalID, idx)
	}

	return result
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) rowToPoint(signalID string, idx int) models.MTrafficLogPoint {
	row := rb.data[idx]
	return models.MTrafficLogPoint{
		SignalID:     signalID,
		Timestamp:    int64(row[models.RB_IDX_TIMESTAMP]),
		Density:      row[models.RB_IDX_DENSITY],
		VehicleCount: int(row[models.RB_IDX_VEHICLES]),
		Speed:        row[models.RB_IDX_SPEED],
	}
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}
