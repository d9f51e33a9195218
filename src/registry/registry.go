package registry

import (
	"encoding/json"
	"sync"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Registry decouples the push channel (producer) from its consumers. Handlers
// are registered per event type and fire in registration order; a panicking
// handler never prevents the remaining handlers from running.
// -----------------------------------------------------------------------------

// Handler receives the raw data portion of a push envelope.
type Handler func(data json.RawMessage)

// Handle identifies one registration; it is the token used to unsubscribe.
type Handle struct {
	eventType string
	id        uint64
}

type registration struct {
	id      uint64
	handler Handler
}

// -----------------------------------------------------------------------------

type Registry struct {
	Logger *logger.Logger

	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]registration
}

// -----------------------------------------------------------------------------

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		Logger:   log,
		handlers: make(map[string][]registration),
	}
}

// -----------------------------------------------------------------------------

// Subscribe registers handler for eventType. The same function may be
// registered for multiple types (or multiple times for one type); each
// registration is independent and fires at most once per event.
func (r *Registry) Subscribe(eventType string, handler Handler) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.handlers[eventType] = append(r.handlers[eventType], registration{id: r.nextID, handler: handler})
	return Handle{eventType: eventType, id: r.nextID}
}

// -----------------------------------------------------------------------------

// Unsubscribe removes the registration behind h. Unsubscribing a handle that
// was never registered, or twice, is a no-op.
func (r *Registry) Unsubscribe(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.handlers[h.eventType]
	for i, reg := range regs {
		if reg.id == h.id {
			r.handlers[h.eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(r.handlers[h.eventType]) == 0 {
		delete(r.handlers, h.eventType)
	}
}

// -----------------------------------------------------------------------------

// Dispatch invokes every currently-registered handler for eventType with the
// payload, in registration order. A handler panic is logged and isolated so
// sibling handlers still run; nothing propagates to the caller.
func (r *Registry) Dispatch(eventType string, payload json.RawMessage) {
	r.mu.Lock()
	regs := make([]registration, len(r.handlers[eventType]))
	copy(regs, r.handlers[eventType])
	r.mu.Unlock()

	for _, reg := range regs {
		r.invoke(eventType, reg, payload)
	}
}

// -----------------------------------------------------------------------------

func (r *Registry) invoke(eventType string, reg registration, payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("Handler for %q panicked: %v", eventType, rec)
		}
	}()
	reg.handler(payload)
}

// -----------------------------------------------------------------------------

// Clear removes all registrations for all event types (full teardown on
// logout, so stale views cannot leak handlers into the next session).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]registration)
}

// -----------------------------------------------------------------------------

// Count returns the number of live registrations for eventType.
func (r *Registry) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[eventType])
}
