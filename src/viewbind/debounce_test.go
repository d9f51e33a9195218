package viewbind

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------

type flushRecorder struct {
	mu      sync.Mutex
	flushes [][]string
}

func (r *flushRecorder) flush(keys []string) {
	sort.Strings(keys)
	r.mu.Lock()
	r.flushes = append(r.flushes, keys)
	r.mu.Unlock()
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushes)
}

func (r *flushRecorder) get(i int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes[i]
}

// -----------------------------------------------------------------------------

func TestBurstCoalescesIntoOneFlush(t *testing.T) {
	var rec flushRecorder
	d := NewDebouncer(30*time.Millisecond, rec.flush)
	defer d.Stop()

	// Twenty rapid updates across three keys.
	for i := 0; i < 20; i++ {
		d.Add("s1", "s2")
		d.Add("s3")
	}

	time.Sleep(80 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("flushes = %d, want 1", rec.count())
	}
	if got := rec.get(0); len(got) != 3 || got[0] != "s1" || got[1] != "s2" || got[2] != "s3" {
		t.Errorf("flushed keys = %v, want [s1 s2 s3]", got)
	}
}

// -----------------------------------------------------------------------------

func TestSeparateWindowsFlushSeparately(t *testing.T) {
	var rec flushRecorder
	d := NewDebouncer(20*time.Millisecond, rec.flush)
	defer d.Stop()

	d.Add("s1")
	time.Sleep(60 * time.Millisecond)
	d.Add("s2")
	time.Sleep(60 * time.Millisecond)

	if rec.count() != 2 {
		t.Fatalf("flushes = %d, want 2", rec.count())
	}
}

// -----------------------------------------------------------------------------

func TestStopDiscardsPending(t *testing.T) {
	var rec flushRecorder
	d := NewDebouncer(20*time.Millisecond, rec.flush)

	d.Add("s1")
	d.Stop()

	time.Sleep(60 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("flushes after Stop = %d, want 0", rec.count())
	}

	// Adds after Stop are ignored too.
	d.Add("s2")
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("flushes after post-Stop add = %d, want 0", rec.count())
	}
}

// -----------------------------------------------------------------------------

func TestEmptyAddDoesNotArmTimer(t *testing.T) {
	var rec flushRecorder
	d := NewDebouncer(10*time.Millisecond, rec.flush)
	defer d.Stop()

	d.Add()
	time.Sleep(40 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("flushes = %d, want 0 for empty add", rec.count())
	}
}
