package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------

func testLogger() *logger.Logger {
	return logger.NewLogger("ERROR", "test")
}

// -----------------------------------------------------------------------------

func TestPollerFiresImmediatelyThenOnInterval(t *testing.T) {
	var fetches atomic.Int32
	p := NewPoller("test", 20*time.Millisecond, testLogger(), func(ctx context.Context) error {
		fetches.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	if err := p.Start(context.Background(), &wg); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if fetches.Load() < 1 {
		t.Error("expected an immediate first fetch")
	}

	time.Sleep(60 * time.Millisecond)
	if fetches.Load() < 3 {
		t.Errorf("fetches = %d, want at least 3 after three intervals", fetches.Load())
	}

	_ = p.Stop()
	wg.Wait()
}

// -----------------------------------------------------------------------------

func TestStopIsDeterministic(t *testing.T) {
	var fetches atomic.Int32
	p := NewPoller("test", 10*time.Millisecond, testLogger(), func(ctx context.Context) error {
		fetches.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	_ = p.Start(context.Background(), &wg)
	time.Sleep(25 * time.Millisecond)

	_ = p.Stop()
	wg.Wait()

	after := fetches.Load()
	time.Sleep(40 * time.Millisecond)

	if fetches.Load() != after {
		t.Errorf("fetch fired after Stop: %d -> %d", after, fetches.Load())
	}
	if p.IsRunning() {
		t.Error("poller still reports running after Stop")
	}
}

// -----------------------------------------------------------------------------

func TestDoubleStartRejected(t *testing.T) {
	p := NewPoller("test", time.Hour, testLogger(), func(ctx context.Context) error { return nil })

	var wg sync.WaitGroup
	if err := p.Start(context.Background(), &wg); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(context.Background(), &wg); err == nil {
		t.Error("second Start should fail while running")
	}

	_ = p.Stop()
	wg.Wait()

	if err := p.Stop(); err == nil {
		t.Error("Stop on a stopped poller should fail")
	}
}

// -----------------------------------------------------------------------------

func TestFetchErrorsKeepCadenceAndReachOnError(t *testing.T) {
	var fetches atomic.Int32
	var reported atomic.Int32

	p := NewPoller("test", 15*time.Millisecond, testLogger(), func(ctx context.Context) error {
		fetches.Add(1)
		return errors.New("backend down")
	})
	p.OnError = func(err error) { reported.Add(1) }

	var wg sync.WaitGroup
	_ = p.Start(context.Background(), &wg)
	time.Sleep(50 * time.Millisecond)
	_ = p.Stop()
	wg.Wait()

	if fetches.Load() < 2 {
		t.Errorf("fetches = %d, errors should not break the cadence", fetches.Load())
	}
	if reported.Load() != fetches.Load() {
		t.Errorf("OnError calls = %d, want %d", reported.Load(), fetches.Load())
	}
}

// -----------------------------------------------------------------------------

func TestSetStartsAndStopsTogether(t *testing.T) {
	var a, b atomic.Int32

	set := NewSet(testLogger())
	set.Add(NewPoller("a", 10*time.Millisecond, testLogger(), func(ctx context.Context) error {
		a.Add(1)
		return nil
	}))
	set.Add(NewPoller("b", 10*time.Millisecond, testLogger(), func(ctx context.Context) error {
		b.Add(1)
		return nil
	}))

	set.StartAll(context.Background())
	time.Sleep(30 * time.Millisecond)
	set.StopAll()

	if a.Load() == 0 || b.Load() == 0 {
		t.Errorf("both pollers should have fetched: a=%d b=%d", a.Load(), b.Load())
	}

	aAfter, bAfter := a.Load(), b.Load()
	time.Sleep(30 * time.Millisecond)
	if a.Load() != aAfter || b.Load() != bAfter {
		t.Error("pollers fetched after StopAll")
	}
}
