package reconcile

import (
	"encoding/json"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/registry"
)

// -----------------------------------------------------------------------------
// Feed subscribes the engine to the push channel's event stream. Each handler
// decodes one payload shape; a payload that does not decode is logged and
// dropped without touching the view.
// -----------------------------------------------------------------------------

type Feed struct {
	Engine   *Engine
	Registry *registry.Registry
	Logger   *logger.Logger

	// RefreshSignals is invoked when the backend flags that signal state
	// changed server-side. The delta frame is advisory; authority comes from
	// the snapshot endpoint.
	RefreshSignals func()

	handles []registry.Handle
}

// -----------------------------------------------------------------------------

func BindFeed(reg *registry.Registry, engine *Engine, log *logger.Logger, refreshSignals func()) *Feed {
	f := &Feed{
		Engine:         engine,
		Registry:       reg,
		Logger:         log,
		RefreshSignals: refreshSignals,
	}

	f.handles = append(f.handles,
		reg.Subscribe(models.EventRealtimeTraffic, f.onRealtimeTraffic),
		reg.Subscribe(models.EventTrafficUpdate, f.onRealtimeTraffic),
		reg.Subscribe(models.EventRoadCongestion, f.onRoadCongestion),
		reg.Subscribe(models.EventEmergencyAlert, f.onEmergencyAlert),
		reg.Subscribe(models.EventSignalUpdate, f.onSignalUpdate),
		reg.Subscribe(models.EventConnected, f.onConnected),
		reg.Subscribe(models.EventError, f.onServerError),
	)
	return f
}

// -----------------------------------------------------------------------------

// Unbind removes every subscription this feed holds.
func (f *Feed) Unbind() {
	for _, h := range f.handles {
		f.Registry.Unsubscribe(h)
	}
	f.handles = nil
}

// -----------------------------------------------------------------------------

func (f *Feed) onRealtimeTraffic(data json.RawMessage) {
	var payload models.MRealtimeTrafficPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		f.Logger.Warning("Dropping undecodable traffic payload: %v", err)
		return
	}
	f.Engine.ApplyTelemetry(payload)
}

// -----------------------------------------------------------------------------

func (f *Feed) onRoadCongestion(data json.RawMessage) {
	var payload models.MRoadCongestionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		f.Logger.Warning("Dropping undecodable congestion payload: %v", err)
		return
	}
	f.Engine.ApplyRoadCongestion(payload)
}

// -----------------------------------------------------------------------------

func (f *Feed) onEmergencyAlert(data json.RawMessage) {
	var payload models.MEmergencyAlertPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		f.Logger.Warning("Dropping undecodable emergency alert: %v", err)
		return
	}
	f.Logger.Info("Emergency corridor %s: %s", payload.RouteID, payload.Message)
	f.Engine.ApplyEmergencyAlert(payload)
}

// -----------------------------------------------------------------------------

func (f *Feed) onSignalUpdate(data json.RawMessage) {
	var payload models.MSignalUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		f.Logger.Warning("Dropping undecodable signal update: %v", err)
		return
	}
	if payload.SignalsUpdated && f.RefreshSignals != nil {
		f.RefreshSignals()
	}
}

// -----------------------------------------------------------------------------

func (f *Feed) onConnected(data json.RawMessage) {
	f.Logger.Info("Push channel acknowledged by backend")
}

// -----------------------------------------------------------------------------

func (f *Feed) onServerError(data json.RawMessage) {
	f.Logger.Warning("Backend error frame: %s", string(data))
}
