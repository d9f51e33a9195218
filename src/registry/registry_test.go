package registry

import (
	"encoding/json"
	"testing"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------

func newTestRegistry() *Registry {
	return NewRegistry(logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestDispatchInRegistrationOrder(t *testing.T) {
	r := newTestRegistry()

	var order []int
	r.Subscribe("traffic_update", func(json.RawMessage) { order = append(order, 1) })
	r.Subscribe("traffic_update", func(json.RawMessage) { order = append(order, 2) })
	r.Subscribe("traffic_update", func(json.RawMessage) { order = append(order, 3) })

	r.Dispatch("traffic_update", nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("handlers fired out of order: %v", order)
	}
}

// -----------------------------------------------------------------------------

func TestPanicIsolation(t *testing.T) {
	r := newTestRegistry()

	var after bool
	r.Subscribe("signal_update", func(json.RawMessage) { panic("boom") })
	r.Subscribe("signal_update", func(json.RawMessage) { after = true })

	// Must not propagate to the caller either.
	r.Dispatch("signal_update", json.RawMessage(`{}`))

	if !after {
		t.Error("handler after a panicking sibling did not run")
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribe(t *testing.T) {
	r := newTestRegistry()

	var calls int
	h1 := r.Subscribe("traffic_update", func(json.RawMessage) { calls++ })
	r.Subscribe("traffic_update", func(json.RawMessage) { calls++ })

	r.Unsubscribe(h1)
	r.Dispatch("traffic_update", nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 after unsubscribe", calls)
	}

	// Double unsubscribe and a foreign handle are both no-ops.
	r.Unsubscribe(h1)
	r.Unsubscribe(Handle{eventType: "never_registered", id: 999})

	if r.Count("traffic_update") != 1 {
		t.Errorf("count = %d, want 1", r.Count("traffic_update"))
	}
}

// -----------------------------------------------------------------------------

func TestSameHandlerMultipleTypes(t *testing.T) {
	r := newTestRegistry()

	var calls int
	fn := func(json.RawMessage) { calls++ }
	r.Subscribe("traffic_update", fn)
	r.Subscribe("signal_update", fn)

	r.Dispatch("traffic_update", nil)
	r.Dispatch("signal_update", nil)
	r.Dispatch("unknown_event", nil)

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

// -----------------------------------------------------------------------------

func TestClearRemovesEverything(t *testing.T) {
	r := newTestRegistry()

	var calls int
	r.Subscribe("traffic_update", func(json.RawMessage) { calls++ })
	r.Subscribe("emergency_alert", func(json.RawMessage) { calls++ })

	r.Clear()
	r.Dispatch("traffic_update", nil)
	r.Dispatch("emergency_alert", nil)

	if calls != 0 {
		t.Errorf("handlers fired after Clear: %d", calls)
	}
	if r.Count("traffic_update") != 0 || r.Count("emergency_alert") != 0 {
		t.Error("counts non-zero after Clear")
	}
}

// -----------------------------------------------------------------------------

func TestPayloadDelivered(t *testing.T) {
	r := newTestRegistry()

	var got string
	r.Subscribe("connected", func(data json.RawMessage) {
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Errorf("bad payload: %v", err)
			return
		}
		got = m["client_id"]
	})

	r.Dispatch("connected", json.RawMessage(`{"client_id":"abc"}`))

	if got != "abc" {
		t.Errorf("payload not delivered, got %q", got)
	}
}
