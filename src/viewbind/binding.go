package viewbind

import (
	"sync"
	"time"

	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/reconcile"
)

// -----------------------------------------------------------------------------
// Binder keeps the map renderer in sync with the reconciled view-model. It
// subscribes to the engine's change sets, coalesces bursts through the
// debouncer, and re-reads current state at flush time so only the entities
// that actually changed get touched.
// -----------------------------------------------------------------------------

const (
	colorCongestionLow    = "#2ecc71"
	colorCongestionMedium = "#f1c40f"
	colorCongestionHigh   = "#e67e22"
	colorCongestionSevere = "#e74c3c"

	colorPhaseGreen  = "#27ae60"
	colorPhaseYellow = "#f39c12"
	colorPhaseRed    = "#c0392b"
	colorInactive    = "#7f8c8d"

	segmentWidth = 5
)

// -----------------------------------------------------------------------------

func congestionColor(level string) string {
	switch level {
	case models.CongestionSevere:
		return colorCongestionSevere
	case models.CongestionHigh:
		return colorCongestionHigh
	case models.CongestionMedium:
		return colorCongestionMedium
	default:
		return colorCongestionLow
	}
}

// -----------------------------------------------------------------------------

func signalColor(sig *models.MSignalView) string {
	if sig.Status != "active" {
		return colorInactive
	}
	switch sig.CurrentPhase {
	case "green":
		return colorPhaseGreen
	case "yellow":
		return colorPhaseYellow
	default:
		return colorPhaseRed
	}
}

// -----------------------------------------------------------------------------

type Binder struct {
	Engine   *reconcile.Engine
	Renderer interfaces.IMapRenderer
	Logger   *logger.Logger

	signalDebounce *Debouncer
	roadDebounce   *Debouncer

	mu    sync.Mutex
	drawn map[string]bool // segment overlays already created
}

// -----------------------------------------------------------------------------

func NewBinder(engine *reconcile.Engine, renderer interfaces.IMapRenderer,
	log *logger.Logger, debounceWindow time.Duration) *Binder {
	b := &Binder{
		Engine:   engine,
		Renderer: renderer,
		Logger:   log,
		drawn:    make(map[string]bool),
	}
	b.signalDebounce = NewDebouncer(debounceWindow, b.flushSignals)
	b.roadDebounce = NewDebouncer(debounceWindow, b.flushRoads)

	engine.OnChange(b.onChange)
	return b
}

// -----------------------------------------------------------------------------

func (b *Binder) onChange(cs reconcile.ChangeSet) {
	// Removals are applied immediately; a stale marker is worse than an extra
	// repaint. Everything else rides the debounce window.
	for _, id := range cs.RemovedSignals {
		b.Renderer.RemoveMarker(id)
	}

	b.signalDebounce.Add(cs.Signals...)
	b.roadDebounce.Add(cs.Roads...)
}

// -----------------------------------------------------------------------------

func (b *Binder) flushSignals(keys []string) {
	for _, key := range keys {
		sig := b.Engine.GetSignal(key)
		if sig == nil {
			// Removed while queued; the removal already cleaned up.
			continue
		}
		if sig.Latitude == 0 && sig.Longitude == 0 {
			// Telemetry-only signal, geometry not yet known.
			continue
		}
		b.Renderer.PlaceMarker(sig.ID, sig.Latitude, sig.Longitude, signalColor(sig))
	}
}

// -----------------------------------------------------------------------------

func (b *Binder) flushRoads(keys []string) {
	for _, key := range keys {
		seg := b.Engine.GetRoad(key)
		if seg == nil {
			b.Renderer.RemoveSegment(key)
			b.mu.Lock()
			delete(b.drawn, key)
			b.mu.Unlock()
			continue
		}

		color := congestionColor(seg.Congestion)

		b.mu.Lock()
		created := b.drawn[key]
		b.drawn[key] = true
		b.mu.Unlock()

		if !created {
			b.Renderer.DrawSegment(seg.ID, seg.Coordinates, color, segmentWidth)
		} else {
			b.Renderer.PaintSegment(seg.ID, color, segmentWidth)
		}
	}
}

// -----------------------------------------------------------------------------

// Stop cancels pending flushes. Used during session teardown.
func (b *Binder) Stop() {
	b.signalDebounce.Stop()
	b.roadDebounce.Stop()
}
