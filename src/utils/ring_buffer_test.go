package utils

import (
	"errors"
	"testing"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("ERROR", "test")
}

// -----------------------------------------------------------------------------

func point(ts int64, density float64) models.MTrafficLogPoint {
	return models.MTrafficLogPoint{Timestamp: ts, Density: density, VehicleCount: int(ts), Speed: 40}
}

// -----------------------------------------------------------------------------

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := int64(1); i <= 5; i++ {
		rb.Append(point(i, float64(i)/10))
	}

	if rb.Size() != 3 {
		t.Fatalf("size = %d, want capacity 3", rb.Size())
	}

	all := rb.GetAll("s1")
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	// Oldest two were overwritten.
	for i, wantTs := range []int64{3, 4, 5} {
		if all[i].Timestamp != wantTs {
			t.Errorf("all[%d].Timestamp = %d, want %d", i, all[i].Timestamp, wantTs)
		}
		if all[i].SignalID != "s1" {
			t.Errorf("all[%d].SignalID = %q", i, all[i].SignalID)
		}
	}
}

// -----------------------------------------------------------------------------

func TestRingBufferGetLatest(t *testing.T) {
	rb := NewRingBuffer(10)
	for i := int64(1); i <= 4; i++ {
		rb.Append(point(i, 0.5))
	}

	latest := rb.GetLatest("s1", 2)
	if len(latest) != 2 || latest[0].Timestamp != 3 || latest[1].Timestamp != 4 {
		t.Errorf("latest = %+v, want timestamps [3 4]", latest)
	}

	// Asking for more than stored returns what exists.
	all := rb.GetLatest("s1", 99)
	if len(all) != 4 {
		t.Errorf("len = %d, want 4", len(all))
	}

	if got := rb.GetLatest("s1", 0); len(got) != 0 {
		t.Errorf("n=0 should return empty, got %d", len(got))
	}
}

// -----------------------------------------------------------------------------

func TestHistoryManagerRecordAndQuery(t *testing.T) {
	hm := NewHistoryManager(5, testLogger())

	hm.Record(models.MTrafficLogPoint{SignalID: "s1", Timestamp: 1, Density: 0.3})
	hm.Record(models.MTrafficLogPoint{SignalID: "s1", Timestamp: 2, Density: 0.4})
	hm.Record(models.MTrafficLogPoint{SignalID: "s2", Timestamp: 1, Density: 0.9})

	if got := hm.All("s1"); len(got) != 2 {
		t.Errorf("s1 points = %d, want 2", len(got))
	}
	if got := hm.All("s2"); len(got) != 1 || got[0].Density != 0.9 {
		t.Errorf("s2 points = %+v", got)
	}
	if got := hm.All("unknown"); len(got) != 0 {
		t.Errorf("unknown signal should have no history, got %d", len(got))
	}
	if hm.PendingCount() != 3 {
		t.Errorf("pending = %d, want 3", hm.PendingCount())
	}

	ids := hm.Signals()
	if len(ids) != 2 {
		t.Errorf("signals = %v, want 2 ids", ids)
	}
}

// -----------------------------------------------------------------------------

// fakeDB implements just enough of the database contract for flush tests.
type fakeDB struct {
	saved  []models.MTrafficLogPoint
	fail   bool
	failed int
}

func (f *fakeDB) Initialize() error { return nil }
func (f *fakeDB) SaveTrafficLogsBulk(points []models.MTrafficLogPoint) error {
	if f.fail {
		f.failed++
		return errors.New("flush failed")
	}
	f.saved = append(f.saved, points...)
	return nil
}
func (f *fakeDB) SaveViewSnapshot(*models.MDashboardState) error     { return nil }
func (f *fakeDB) LoadViewSnapshot() (*models.MDashboardState, error) { return nil, nil }
func (f *fakeDB) CleanupOldData() error                              { return nil }
func (f *fakeDB) Close() error                                       { return nil }

// -----------------------------------------------------------------------------

func TestHistoryFlushDrainsAndRestagesOnFailure(t *testing.T) {
	hm := NewHistoryManager(5, testLogger())
	db := &fakeDB{}

	hm.Record(models.MTrafficLogPoint{SignalID: "s1", Timestamp: 1})
	hm.Record(models.MTrafficLogPoint{SignalID: "s1", Timestamp: 2})

	if err := hm.Flush(db); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(db.saved) != 2 || hm.PendingCount() != 0 {
		t.Errorf("saved=%d pending=%d, want 2/0", len(db.saved), hm.PendingCount())
	}

	// A failing flush keeps the points staged.
	db.fail = true
	hm.Record(models.MTrafficLogPoint{SignalID: "s1", Timestamp: 3})
	if err := hm.Flush(db); err == nil {
		t.Fatal("expected flush error")
	}
	if hm.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1 after failed flush", hm.PendingCount())
	}

	db.fail = false
	if err := hm.Flush(db); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if len(db.saved) != 3 {
		t.Errorf("saved = %d, want 3 after retry", len(db.saved))
	}
}

