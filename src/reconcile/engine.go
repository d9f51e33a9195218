package reconcile

import (
	"sync"
	"time"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"
)

// -----------------------------------------------------------------------------
// Engine merges every inbound feed (push frames, poll snapshots, command
// responses) into one view-model. Entities are mutated in place so references
// held by binders stay valid. A merge that produces no field difference marks
// nothing as changed, which is what keeps the map from flickering.
//
// Recency: updates carrying a source timestamp strictly older than the last
// accepted one for that entity are rejected. Updates without a timestamp are
// applied in arrival order. Equal timestamps are allowed; a duplicate frame
// merges to zero diff and is therefore a no-op.
// -----------------------------------------------------------------------------

// ChangeSet lists the entity keys that actually changed in one apply call.
type ChangeSet struct {
	Signals        []string
	RemovedSignals []string
	Roads          []string
	Routes         []string
	RemovedRoutes  []string
	Diversions     []string
	Stats          bool
	Context        bool
}

// -----------------------------------------------------------------------------

func (c *ChangeSet) Empty() bool {
	return len(c.Signals) == 0 && len(c.RemovedSignals) == 0 &&
		len(c.Roads) == 0 && len(c.Routes) == 0 && len(c.RemovedRoutes) == 0 &&
		len(c.Diversions) == 0 && !c.Stats && !c.Context
}

// -----------------------------------------------------------------------------

// ChangeFunc receives the change set after a merge. Invoked outside the
// engine lock, in subscription order.
type ChangeFunc func(ChangeSet)

// -----------------------------------------------------------------------------

type Engine struct {
	Logger *logger.Logger

	mu         sync.Mutex
	signals    map[string]*models.MSignalView
	roads      map[string]*models.MRoadSegmentView
	routes     map[string]*models.MEmergencyRoute
	diversions map[string]*models.MDiversion
	stats      models.MTrafficStats
	statsSet   bool
	context    models.MLiveContext

	signalTimes map[string]int64
	roadTimes   map[string]int64

	subscribers []ChangeFunc
}

// -----------------------------------------------------------------------------

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		Logger:      log,
		signals:     make(map[string]*models.MSignalView),
		roads:       make(map[string]*models.MRoadSegmentView),
		routes:      make(map[string]*models.MEmergencyRoute),
		diversions:  make(map[string]*models.MDiversion),
		signalTimes: make(map[string]int64),
		roadTimes:   make(map[string]int64),
	}
}

// -----------------------------------------------------------------------------

// OnChange registers a subscriber for merge results.
func (e *Engine) OnChange(fn ChangeFunc) {
	e.mu.Lock()
	e.subscribers = append(e.subscribers, fn)
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// notify delivers a non-empty change set to subscribers. Caller must NOT hold
// the engine lock.
func (e *Engine) notify(cs ChangeSet) {
	if cs.Empty() {
		return
	}

	e.mu.Lock()
	subs := make([]ChangeFunc, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	for _, fn := range subs {
		fn(cs)
	}
}

// -----------------------------------------------------------------------------
// Signals
// -----------------------------------------------------------------------------

// ApplySignalSnapshot reconciles an authoritative signal list. Entities
// present in the view but absent from the snapshot are removed; snapshots are
// the only source allowed to delete.
func (e *Engine) ApplySignalSnapshot(signals []models.MSignalView) {
	var cs ChangeSet

	e.mu.Lock()
	seen := make(map[string]bool, len(signals))
	for i := range signals {
		incoming := &signals[i]
		seen[incoming.Key()] = true
		if e.mergeSignalLocked(incoming, 0) {
			cs.Signals = append(cs.Signals, incoming.Key())
		}
	}
	for key := range e.signals {
		if !seen[key] {
			delete(e.signals, key)
			delete(e.signalTimes, key)
			cs.RemovedSignals = append(cs.RemovedSignals, key)
		}
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// ApplySignalDelta merges a single authoritative signal, e.g. a command
// response. Push-driven, so it never deletes.
func (e *Engine) ApplySignalDelta(signal *models.MSignalView) {
	var cs ChangeSet

	e.mu.Lock()
	if e.mergeSignalLocked(signal, 0) {
		cs.Signals = append(cs.Signals, signal.Key())
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// mergeSignalLocked merges incoming into the tracked entity, creating it if
// unknown. Returns true when at least one field actually changed. A source
// timestamp strictly older than the last accepted one rejects the merge.
func (e *Engine) mergeSignalLocked(incoming *models.MSignalView, ts int64) bool {
	key := incoming.Key()

	if ts > 0 {
		if last, ok := e.signalTimes[key]; ok && ts < last {
			e.Logger.Debug("Rejecting stale update for signal %s (%d < %d)", key, ts, last)
			return false
		}
		e.signalTimes[key] = ts
	}

	current, ok := e.signals[key]
	if !ok {
		clone := *incoming
		e.signals[key] = &clone
		return true
	}

	changed := false
	if current.SignalID != incoming.SignalID && incoming.SignalID != "" {
		current.SignalID = incoming.SignalID
		changed = true
	}
	if current.ZoneID != incoming.ZoneID && incoming.ZoneID != "" {
		current.ZoneID = incoming.ZoneID
		changed = true
	}
	if current.Latitude != incoming.Latitude {
		current.Latitude = incoming.Latitude
		changed = true
	}
	if current.Longitude != incoming.Longitude {
		current.Longitude = incoming.Longitude
		changed = true
	}
	if current.Status != incoming.Status && incoming.Status != "" {
		current.Status = incoming.Status
		changed = true
	}
	if current.CurrentPhase != incoming.CurrentPhase && incoming.CurrentPhase != "" {
		current.CurrentPhase = incoming.CurrentPhase
		changed = true
	}
	if current.GreenTime != incoming.GreenTime && incoming.GreenTime > 0 {
		current.GreenTime = incoming.GreenTime
		changed = true
	}
	if current.YellowTime != incoming.YellowTime && incoming.YellowTime > 0 {
		current.YellowTime = incoming.YellowTime
		changed = true
	}
	if current.RedTime != incoming.RedTime && incoming.RedTime > 0 {
		current.RedTime = incoming.RedTime
		changed = true
	}
	if current.Mode != incoming.Mode && incoming.Mode != "" {
		current.Mode = incoming.Mode
		changed = true
	}
	if current.Density != incoming.Density {
		current.Density = incoming.Density
		changed = true
	}
	if current.VehicleCount != incoming.VehicleCount {
		current.VehicleCount = incoming.VehicleCount
		changed = true
	}
	return changed
}

// -----------------------------------------------------------------------------
// Telemetry (realtime push frames)
// -----------------------------------------------------------------------------

// ApplyTelemetry merges a batch of per-signal telemetry. Nil fields mean
// "unchanged". Density flows on to the road segments in the same zone; when a
// reading names no zone or matches no segment it is applied to every segment.
func (e *Engine) ApplyTelemetry(payload models.MRealtimeTrafficPayload) {
	var cs ChangeSet

	e.mu.Lock()
	for i := range payload.Signals {
		t := &payload.Signals[i]
		if t.SignalID == "" {
			continue
		}

		ts := t.Timestamp
		if ts == 0 {
			ts = payload.Timestamp
		}

		if changed, stale := e.mergeTelemetryLocked(t, ts); changed {
			cs.Signals = append(cs.Signals, t.SignalID)
		} else if stale {
			continue
		}

		if t.Density != nil {
			cs.Roads = append(cs.Roads, e.spreadDensityLocked(t.ZoneID, *t.Density, t.VehicleCount, ts)...)
		}
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

func (e *Engine) mergeTelemetryLocked(t *models.MSignalTelemetry, ts int64) (changed, stale bool) {
	key := t.SignalID

	if ts > 0 {
		if last, ok := e.signalTimes[key]; ok && ts < last {
			e.Logger.Debug("Rejecting stale telemetry for signal %s (%d < %d)", key, ts, last)
			return false, true
		}
		e.signalTimes[key] = ts
	}

	current, ok := e.signals[key]
	if !ok {
		// Telemetry for a signal the snapshot has not introduced yet. Track it
		// so the reading is not lost; the next snapshot fills in geometry.
		current = &models.MSignalView{ID: key, SignalID: key, ZoneID: t.ZoneID}
		e.signals[key] = current
		changed = true
	}

	if t.ZoneID != "" && current.ZoneID != t.ZoneID {
		current.ZoneID = t.ZoneID
		changed = true
	}
	if t.Status != "" && current.Status != t.Status {
		current.Status = t.Status
		changed = true
	}
	if t.CurrentPhase != "" && current.CurrentPhase != t.CurrentPhase {
		current.CurrentPhase = t.CurrentPhase
		changed = true
	}
	if t.Density != nil && current.Density != *t.Density {
		current.Density = *t.Density
		changed = true
	}
	if t.VehicleCount != nil && current.VehicleCount != *t.VehicleCount {
		current.VehicleCount = *t.VehicleCount
		changed = true
	}
	return changed, false
}

// -----------------------------------------------------------------------------

// spreadDensityLocked projects a density reading onto road segments. Segments
// in the reading's zone are preferred; with no zone or no match every segment
// gets the reading. A segment counts as changed only when its congestion
// bucket moves, repainting is keyed off the bucket and not the raw number.
// Each touched segment takes the reading's timestamp so a later blanket frame
// carrying an older timestamp cannot roll it back.
func (e *Engine) spreadDensityLocked(zoneID string, density float64, vehicleCount *int, ts int64) []string {
	var targets []*models.MRoadSegmentView
	if zoneID != "" {
		for _, seg := range e.roads {
			if seg.ZoneID == zoneID {
				targets = append(targets, seg)
			}
		}
	}
	if len(targets) == 0 {
		for _, seg := range e.roads {
			targets = append(targets, seg)
		}
	}

	bucket := models.CongestionFromDensity(density)
	speed := models.SpeedFromDensity(density)

	var changed []string
	for _, seg := range targets {
		if ts > 0 {
			if last, ok := e.roadTimes[seg.ID]; ok && ts < last {
				continue
			}
			e.roadTimes[seg.ID] = ts
		}
		if seg.Congestion != bucket {
			seg.Congestion = bucket
			changed = append(changed, seg.ID)
		}
		seg.Speed = speed
		if vehicleCount != nil {
			seg.VehicleCount = *vehicleCount
		}
	}
	return changed
}

// -----------------------------------------------------------------------------
// Roads
// -----------------------------------------------------------------------------

// SeedRoads installs the static road catalog. Called once at startup, before
// any feed is applied.
func (e *Engine) SeedRoads(segments []models.MRoadSegmentView) {
	var cs ChangeSet

	e.mu.Lock()
	for i := range segments {
		seg := segments[i]
		if seg.Congestion == "" {
			seg.Congestion = models.CongestionLow
		}
		if seg.Speed == 0 {
			seg.Speed = models.SpeedFromDensity(0)
		}
		e.roads[seg.ID] = &seg
		cs.Roads = append(cs.Roads, seg.ID)
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// ApplyRoadCongestion applies a blanket congestion frame. The backend attaches
// no segment identity to these, so every tracked segment (or every segment in
// the named zone) takes the level.
func (e *Engine) ApplyRoadCongestion(payload models.MRoadCongestionPayload) {
	if payload.Congestion == "" {
		return
	}

	var cs ChangeSet

	e.mu.Lock()
	for _, seg := range e.roads {
		if payload.ZoneID != "" && seg.ZoneID != payload.ZoneID {
			continue
		}
		if payload.Timestamp > 0 {
			if last, ok := e.roadTimes[seg.ID]; ok && payload.Timestamp < last {
				continue
			}
			e.roadTimes[seg.ID] = payload.Timestamp
		}
		if seg.Congestion != payload.Congestion {
			seg.Congestion = payload.Congestion
			cs.Roads = append(cs.Roads, seg.ID)
		}
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------
// Stats / context
// -----------------------------------------------------------------------------

func (e *Engine) ApplyStats(stats *models.MTrafficStats) {
	var cs ChangeSet

	e.mu.Lock()
	if !e.statsSet || e.stats != *stats {
		e.stats = *stats
		e.statsSet = true
		cs.Stats = true
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// ApplyContext merges live operating context. Zero-value fields leave the
// current value in place so the weather poll and the pattern poll can each
// update their half.
func (e *Engine) ApplyContext(ctx *models.MLiveContext) {
	var cs ChangeSet

	e.mu.Lock()
	if ctx.Weather != "" && e.context.Weather != ctx.Weather {
		e.context.Weather = ctx.Weather
		cs.Context = true
	}
	if ctx.Temperature != 0 && e.context.Temperature != ctx.Temperature {
		e.context.Temperature = ctx.Temperature
		cs.Context = true
	}
	if e.context.IsRushHour != ctx.IsRushHour && ctx.Pattern != "" {
		e.context.IsRushHour = ctx.IsRushHour
		cs.Context = true
	}
	if ctx.Pattern != "" && e.context.Pattern != ctx.Pattern {
		e.context.Pattern = ctx.Pattern
		cs.Context = true
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------
// Emergency routes
// -----------------------------------------------------------------------------

// ApplyRoutesSnapshot reconciles the active emergency routes. Routes absent
// from the snapshot are removed (deactivated server-side).
func (e *Engine) ApplyRoutesSnapshot(routes []models.MEmergencyRoute) {
	var cs ChangeSet

	e.mu.Lock()
	seen := make(map[string]bool, len(routes))
	for i := range routes {
		incoming := routes[i]
		seen[incoming.ID] = true
		current, ok := e.routes[incoming.ID]
		if !ok {
			clone := incoming
			e.routes[incoming.ID] = &clone
			cs.Routes = append(cs.Routes, incoming.ID)
			continue
		}
		if !routesEqual(current, &incoming) {
			*current = incoming
			cs.Routes = append(cs.Routes, incoming.ID)
		}
	}
	for id := range e.routes {
		if !seen[id] {
			delete(e.routes, id)
			cs.RemovedRoutes = append(cs.RemovedRoutes, id)
		}
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// ApplyRoute merges a single route, e.g. a creation response or push alert.
func (e *Engine) ApplyRoute(route *models.MEmergencyRoute) {
	var cs ChangeSet

	e.mu.Lock()
	current, ok := e.routes[route.ID]
	if !ok {
		clone := *route
		e.routes[route.ID] = &clone
		cs.Routes = append(cs.Routes, route.ID)
	} else if !routesEqual(current, route) {
		*current = *route
		cs.Routes = append(cs.Routes, route.ID)
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// RemoveRoute drops a deactivated route from the view.
func (e *Engine) RemoveRoute(id string) {
	var cs ChangeSet

	e.mu.Lock()
	if _, ok := e.routes[id]; ok {
		delete(e.routes, id)
		cs.RemovedRoutes = append(cs.RemovedRoutes, id)
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

// ApplyEmergencyAlert flips the named signals into emergency mode and green
// phase; the corridor is being cleared.
func (e *Engine) ApplyEmergencyAlert(payload models.MEmergencyAlertPayload) {
	var cs ChangeSet

	e.mu.Lock()
	for _, id := range payload.SignalIDs {
		sig, ok := e.signals[id]
		if !ok {
			continue
		}
		if sig.Mode != "emergency" || sig.CurrentPhase != "green" {
			sig.Mode = "emergency"
			sig.CurrentPhase = "green"
			cs.Signals = append(cs.Signals, id)
		}
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------
// Diversions
// -----------------------------------------------------------------------------

func (e *Engine) UpsertDiversion(d models.MDiversion) {
	var cs ChangeSet

	e.mu.Lock()
	current, ok := e.diversions[d.ID]
	if !ok {
		clone := d
		e.diversions[d.ID] = &clone
		cs.Diversions = append(cs.Diversions, d.ID)
	} else if *current != d {
		*current = d
		cs.Diversions = append(cs.Diversions, d.ID)
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

func (e *Engine) RemoveDiversion(id string) {
	var cs ChangeSet

	e.mu.Lock()
	if _, ok := e.diversions[id]; ok {
		delete(e.diversions, id)
		cs.Diversions = append(cs.Diversions, id)
	}
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// GetSignal returns a copy of one signal view, or nil when untracked.
func (e *Engine) GetSignal(key string) *models.MSignalView {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sig, ok := e.signals[key]; ok {
		clone := *sig
		return &clone
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetRoad returns a copy of one road segment view, or nil when untracked.
func (e *Engine) GetRoad(key string) *models.MRoadSegmentView {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seg, ok := e.roads[key]; ok {
		clone := *seg
		return &clone
	}
	return nil
}

// -----------------------------------------------------------------------------

// Snapshot materializes the full reconciled state for broadcast or
// persistence. Returned maps are deep copies.
func (e *Engine) Snapshot(stateType string) *models.MDashboardState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := &models.MDashboardState{
		Type:       stateType,
		Signals:    make(map[string]models.MSignalView, len(e.signals)),
		Roads:      make(map[string]models.MRoadSegmentView, len(e.roads)),
		Routes:     make(map[string]models.MEmergencyRoute, len(e.routes)),
		Diversions: make(map[string]models.MDiversion, len(e.diversions)),
		Stats:      e.stats,
		Context:    e.context,
		Timestamp:  time.Now().UnixMilli(),
	}
	for k, v := range e.signals {
		state.Signals[k] = *v
	}
	for k, v := range e.roads {
		state.Roads[k] = *v
	}
	for k, v := range e.routes {
		state.Routes[k] = *v
	}
	for k, v := range e.diversions {
		state.Diversions[k] = *v
	}
	return state
}

// -----------------------------------------------------------------------------

// Restore loads a persisted dashboard state, typically the snapshot saved at
// last shutdown. Feeds applied afterwards win on conflict.
func (e *Engine) Restore(state *models.MDashboardState) {
	if state == nil {
		return
	}

	var cs ChangeSet

	e.mu.Lock()
	for k, v := range state.Signals {
		clone := v
		e.signals[k] = &clone
		cs.Signals = append(cs.Signals, k)
	}
	for k, v := range state.Roads {
		clone := v
		e.roads[k] = &clone
		cs.Roads = append(cs.Roads, k)
	}
	for k, v := range state.Routes {
		clone := v
		e.routes[k] = &clone
		cs.Routes = append(cs.Routes, k)
	}
	for k, v := range state.Diversions {
		clone := v
		e.diversions[k] = &clone
		cs.Diversions = append(cs.Diversions, k)
	}
	e.stats = state.Stats
	e.statsSet = true
	e.context = state.Context
	cs.Stats = true
	cs.Context = true
	e.mu.Unlock()

	e.notify(cs)
}

// -----------------------------------------------------------------------------

func routesEqual(a, b *models.MEmergencyRoute) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Active != b.Active ||
		a.VehicleType != b.VehicleType || a.Priority != b.Priority ||
		a.StartLatitude != b.StartLatitude || a.StartLongitude != b.StartLongitude ||
		a.EndLatitude != b.EndLatitude || a.EndLongitude != b.EndLongitude {
		return false
	}
	if len(a.SignalsCleared) != len(b.SignalsCleared) {
		return false
	}
	for i := range a.SignalsCleared {
		if a.SignalsCleared[i] != b.SignalsCleared[i] {
			return false
		}
	}
	return true
}
