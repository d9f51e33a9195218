package pushchannel

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/registry"
)

// -----------------------------------------------------------------------------
// Fake transport
// -----------------------------------------------------------------------------

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return 0, nil, errors.New("connection closed")
		}
		return 1, frame, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// -----------------------------------------------------------------------------

func testConfig() *models.MConfig {
	return &models.MConfig{
		LogLevel: "ERROR",
		Backend:  models.MBackendConfig{WsURL: "ws://backend/ws"},
		Push:     models.MPushConfig{BaseDelaySeconds: 2, MaxReconnectAttempts: 5},
	}
}

func newTestChannel(dial Dialer) (*Channel, *registry.Registry) {
	log := logger.NewLogger("ERROR", "test")
	reg := registry.NewRegistry(log)
	ch := NewChannelWithDialer(testConfig(), log, reg, dial)
	return ch, reg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// -----------------------------------------------------------------------------

func TestFramesDispatchedInArrivalOrder(t *testing.T) {
	conn := newFakeConn()
	ch, reg := newTestChannel(func(url string) (Conn, error) { return conn, nil })

	received := make(chan string, 8)
	reg.Subscribe("traffic_update", func(data json.RawMessage) {
		var m map[string]string
		_ = json.Unmarshal(data, &m)
		received <- m["seq"]
	})

	if err := ch.Connect("tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	conn.frames <- []byte(`{"type":"traffic_update","data":{"seq":"a"}}`)
	conn.frames <- []byte(`{"type":"traffic_update","data":{"seq":"b"}}`)

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("frame not dispatched")
		}
	}
}

// -----------------------------------------------------------------------------

func TestMalformedFramesDropped(t *testing.T) {
	conn := newFakeConn()
	ch, reg := newTestChannel(func(url string) (Conn, error) { return conn, nil })

	received := make(chan struct{}, 4)
	reg.Subscribe("traffic_update", func(json.RawMessage) { received <- struct{}{} })

	if err := ch.Connect("tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	conn.frames <- []byte(`not json at all`)
	conn.frames <- []byte(`{"data":{"x":1}}`) // missing type
	conn.frames <- []byte(`{"type":"traffic_update","data":{}}`)

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("valid frame after malformed ones was not dispatched")
	}

	select {
	case <-received:
		t.Error("malformed frame reached a handler")
	case <-time.After(20 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------

func TestConnectIdempotentWhileOpen(t *testing.T) {
	var dials atomic.Int32
	conn := newFakeConn()
	ch, _ := newTestChannel(func(url string) (Conn, error) {
		dials.Add(1)
		return conn, nil
	})

	if err := ch.Connect("tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	if err := ch.Connect("tok"); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	if dials.Load() != 1 {
		t.Errorf("dials = %d, want 1", dials.Load())
	}
	if ch.State() != interfaces.ChannelOpen {
		t.Errorf("state = %v, want open", ch.State())
	}
}

// -----------------------------------------------------------------------------

func TestBackoffDelayLinearAndNonDecreasing(t *testing.T) {
	ch, _ := newTestChannel(func(url string) (Conn, error) { return nil, errors.New("down") })

	prev := time.Duration(0)
	for attempt := 1; attempt <= ch.MaxAttempts; attempt++ {
		delay := ch.ReconnectDelay(attempt)
		if delay != ch.BaseDelay*time.Duration(attempt) {
			t.Errorf("delay(%d) = %v, want %v", attempt, delay, ch.BaseDelay*time.Duration(attempt))
		}
		if delay < prev {
			t.Errorf("delay decreased at attempt %d", attempt)
		}
		prev = delay
	}
}

// -----------------------------------------------------------------------------

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	var dials atomic.Int32
	ch, _ := newTestChannel(func(url string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("down")
	})
	ch.BaseDelay = time.Millisecond
	ch.MaxAttempts = 3

	_ = ch.Connect("tok")

	waitFor(t, time.Second, func() bool { return ch.State() == interfaces.ChannelClosed })

	// Initial dial plus one per allowed attempt.
	if got := dials.Load(); got != 4 {
		t.Errorf("dials = %d, want 4", got)
	}
}

// -----------------------------------------------------------------------------

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	var dials atomic.Int32
	ch, _ := newTestChannel(func(url string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("down")
	})
	ch.BaseDelay = time.Hour // timer must never fire on its own

	_ = ch.Connect("tok")
	ch.Disconnect()

	time.Sleep(20 * time.Millisecond)

	if got := dials.Load(); got != 1 {
		t.Errorf("dials = %d, want 1 (reconnect timer should be cancelled)", got)
	}
	if ch.State() != interfaces.ChannelClosed {
		t.Errorf("state = %v, want closed", ch.State())
	}
}

// -----------------------------------------------------------------------------

func TestSuccessfulReconnectResetsAttempts(t *testing.T) {
	var dials atomic.Int32
	conn := newFakeConn()
	ch, _ := newTestChannel(func(url string) (Conn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("down")
		}
		return conn, nil
	})
	ch.BaseDelay = time.Millisecond

	_ = ch.Connect("tok")

	waitFor(t, time.Second, func() bool { return ch.State() == interfaces.ChannelOpen })
	defer ch.Disconnect()

	if ch.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0 after successful connect", ch.Attempts())
	}
}

// -----------------------------------------------------------------------------

func TestUnexpectedClosureSchedulesReconnect(t *testing.T) {
	var dials atomic.Int32
	ch, _ := newTestChannel(func(url string) (Conn, error) {
		dials.Add(1)
		return newFakeConn(), nil
	})
	ch.BaseDelay = time.Millisecond

	if err := ch.Connect("tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Simulate the backend dropping the connection.
	first := dials.Load()
	chConnClose(ch)

	waitFor(t, time.Second, func() bool { return dials.Load() > first })
	ch.Disconnect()
}

// chConnClose closes the channel's live connection without going through
// Disconnect, mimicking a network drop.
func chConnClose(ch *Channel) {
	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
