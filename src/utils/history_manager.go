package utils

import (
	"sync"

	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
)

// -----------------------------------------------------------------------------
// HistoryManager keeps a bounded in-memory window of telemetry per signal and
// stages points for bulk persistence. Memory stays flat regardless of uptime;
// the ring buffers overwrite and the staging slice drains on every flush.
// -----------------------------------------------------------------------------

type HistoryManager struct {
	Logger *logger.Logger

	mu            sync.RWMutex
	buffers       map[string]*RingBuffer
	pending       []models.MTrafficLogPoint
	maxDataPoints int
}

// -----------------------------------------------------------------------------

func NewHistoryManager(maxDataPoints int, log *logger.Logger) *HistoryManager {
	if maxDataPoints <= 0 {
		maxDataPoints = 1000
	}
	return &HistoryManager{
		Logger:        log,
		buffers:       make(map[string]*RingBuffer),
		maxDataPoints: maxDataPoints,
	}
}

// -----------------------------------------------------------------------------

// Record appends one telemetry point to the signal's window and stages it for
// the next flush.
func (hm *HistoryManager) Record(point models.MTrafficLogPoint) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	buf, ok := hm.buffers[point.SignalID]
	if !ok {
		buf = NewRingBuffer(hm.maxDataPoints)
		hm.buffers[point.SignalID] = buf
	}
	buf.Append(point)
	hm.pending = append(hm.pending, point)
}

// -----------------------------------------------------------------------------

// Latest returns up to n most recent points for one signal, oldest first.
func (hm *HistoryManager) Latest(signalID string, n int) []models.MTrafficLogPoint {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	buf, ok := hm.buffers[signalID]
	if !ok {
		return []models.MTrafficLogPoint{}
	}
	return buf.GetLatest(signalID, n)
}

// -----------------------------------------------------------------------------

// All returns the full window for one signal, oldest first.
func (hm *HistoryManager) All(signalID string) []models.MTrafficLogPoint {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	buf, ok := hm.buffers[signalID]
	if !ok {
		return []models.MTrafficLogPoint{}
	}
	return buf.GetAll(signalID)
}

// -----------------------------------------------------------------------------

// Signals lists the signal IDs with recorded history.
func (hm *HistoryManager) Signals() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	ids := make([]string, 0, len(hm.buffers))
	for id := range hm.buffers {
		ids = append(ids, id)
	}
	return ids
}

// -----------------------------------------------------------------------------

// Flush drains the staged points into the database in one bulk insert. On
// failure the points are re-staged so nothing is lost.
func (hm *HistoryManager) Flush(db interfaces.IDatabase) error {
	hm.mu.Lock()
	batch := hm.pending
	hm.pending = nil
	hm.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := db.SaveTrafficLogsBulk(batch); err != nil {
		hm.mu.Lock()
		hm.pending = append(batch, hm.pending...)
		hm.mu.Unlock()
		return err
	}

	hm.Logger.Debug("Flushed %d traffic log points", len(batch))
	return nil
}

// -----------------------------------------------------------------------------

// PendingCount reports how many points await the next flush.
func (hm *HistoryManager) PendingCount() int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return len(hm.pending)
}
