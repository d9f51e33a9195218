package viewbind

import (
	"fmt"
	"sync"
	"time"

	"traffic-observer/src/helpers"
	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/reconcile"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Commander issues operator mutations. Every command goes to the backend
// first; on success the authoritative response is reconciled into the view.
// The locally submitted values never touch the view-model directly, so a
// rejected command leaves the display exactly as it was.
// -----------------------------------------------------------------------------

type Commander struct {
	API    interfaces.ITrafficAPI
	Engine *reconcile.Engine
	Logger *logger.Logger

	// OnFailure receives every command error after logging. The session
	// manager hangs its auth teardown here.
	OnFailure func(error)

	mu      sync.Mutex
	history []*models.MPendingCommand
}

// -----------------------------------------------------------------------------

func NewCommander(api interfaces.ITrafficAPI, engine *reconcile.Engine, log *logger.Logger) *Commander {
	return &Commander{
		API:    api,
		Engine: engine,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (c *Commander) begin(kind, entityKey string, fields map[string]any) *models.MPendingCommand {
	cmd := &models.MPendingCommand{
		ID:        uuid.NewString(),
		Kind:      kind,
		EntityKey: entityKey,
		Fields:    fields,
		IssuedAt:  time.Now(),
		Outcome:   models.CommandPending,
	}

	c.mu.Lock()
	c.history = append(c.history, cmd)
	c.mu.Unlock()

	return cmd
}

// -----------------------------------------------------------------------------

func (c *Commander) settle(cmd *models.MPendingCommand, err error) {
	c.mu.Lock()
	if err != nil {
		cmd.Outcome = models.CommandFailed
		cmd.Error = err.Error()
	} else {
		cmd.Outcome = models.CommandConfirmed
	}
	c.mu.Unlock()

	if err != nil {
		c.Logger.Warning("Command %s (%s) failed: %v", cmd.ID, cmd.Kind, err)
		if c.OnFailure != nil {
			c.OnFailure(err)
		}
	}
}

// -----------------------------------------------------------------------------

// SetSignalMode switches a signal between automatic, manual and emergency
// control.
func (c *Commander) SetSignalMode(signalID, mode string) error {
	switch mode {
	case "auto", "manual", "emergency":
	default:
		return helpers.NewCommandError(fmt.Sprintf("unknown signal mode %q", mode), nil)
	}

	cmd := c.begin("mode", signalID, map[string]any{"mode": mode})

	updated, err := c.API.UpdateSignal(signalID, map[string]any{"mode": mode})
	c.settle(cmd, err)
	if err != nil {
		return err
	}

	c.Engine.ApplySignalDelta(updated)
	return nil
}

// -----------------------------------------------------------------------------

// SetSignalPhase forces the current phase of a manually controlled signal.
func (c *Commander) SetSignalPhase(signalID, phase string) error {
	switch phase {
	case "red", "yellow", "green":
	default:
		return helpers.NewCommandError(fmt.Sprintf("unknown signal phase %q", phase), nil)
	}

	cmd := c.begin("phase", signalID, map[string]any{"current_phase": phase})

	updated, err := c.API.UpdateSignal(signalID, map[string]any{"current_phase": phase})
	c.settle(cmd, err)
	if err != nil {
		return err
	}

	c.Engine.ApplySignalDelta(updated)
	return nil
}

// -----------------------------------------------------------------------------

// SetSignalTiming adjusts phase durations. Each provided field is bounds
// checked before anything leaves the process.
func (c *Commander) SetSignalTiming(signalID string, timing models.MTimingUpdate) error {
	if err := validateTiming(timing); err != nil {
		return err
	}

	fields := map[string]any{}
	if timing.GreenTime != nil {
		fields["green_time"] = *timing.GreenTime
	}
	if timing.YellowTime != nil {
		fields["yellow_time"] = *timing.YellowTime
	}
	if timing.RedTime != nil {
		fields["red_time"] = *timing.RedTime
	}
	if len(fields) == 0 {
		return helpers.NewCommandError("timing update carries no fields", nil)
	}

	cmd := c.begin("timing", signalID, fields)

	updated, err := c.API.UpdateSignalTiming(signalID, timing)
	c.settle(cmd, err)
	if err != nil {
		return err
	}

	c.Engine.ApplySignalDelta(updated)
	return nil
}

// -----------------------------------------------------------------------------

func validateTiming(timing models.MTimingUpdate) error {
	if timing.GreenTime != nil && (*timing.GreenTime < models.MinGreenTime || *timing.GreenTime > models.MaxGreenTime) {
		return helpers.NewCommandError(
			fmt.Sprintf("green time %d outside [%d, %d]", *timing.GreenTime, models.MinGreenTime, models.MaxGreenTime), nil)
	}
	if timing.YellowTime != nil && (*timing.YellowTime < models.MinYellowTime || *timing.YellowTime > models.MaxYellowTime) {
		return helpers.NewCommandError(
			fmt.Sprintf("yellow time %d outside [%d, %d]", *timing.YellowTime, models.MinYellowTime, models.MaxYellowTime), nil)
	}
	if timing.RedTime != nil && (*timing.RedTime < models.MinRedTime || *timing.RedTime > models.MaxRedTime) {
		return helpers.NewCommandError(
			fmt.Sprintf("red time %d outside [%d, %d]", *timing.RedTime, models.MinRedTime, models.MaxRedTime), nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

// CreateDiversion records a road diversion. Diversions are a client-side
// overlay against the road catalog; there is no backend resource behind them.
func (c *Commander) CreateDiversion(fromRoad, toRoad, reason string) (*models.MDiversion, error) {
	if fromRoad == "" || toRoad == "" {
		return nil, helpers.NewCommandError("diversion needs both a from and a to road", nil)
	}
	if fromRoad == toRoad {
		return nil, helpers.NewCommandError("diversion cannot target its own road", nil)
	}

	d := models.MDiversion{
		ID:        uuid.NewString(),
		FromRoad:  fromRoad,
		ToRoad:    toRoad,
		Reason:    reason,
		Active:    true,
		Timestamp: time.Now(),
	}

	cmd := c.begin("diversion", d.ID, map[string]any{"from": fromRoad, "to": toRoad})
	c.settle(cmd, nil)

	c.Engine.UpsertDiversion(d)
	return &d, nil
}

// -----------------------------------------------------------------------------

// EndDiversion deactivates and removes a diversion overlay.
func (c *Commander) EndDiversion(id string) {
	c.Engine.RemoveDiversion(id)
}

// -----------------------------------------------------------------------------

// ActivateEmergencyRoute asks the backend to open an emergency corridor and
// reconciles the created route into the view.
func (c *Commander) ActivateEmergencyRoute(req models.MEmergencyRouteCreate) (*models.MEmergencyRoute, error) {
	cmd := c.begin("emergency_route", "", map[string]any{
		"vehicle_type": req.VehicleType,
		"priority":     req.Priority,
	})

	route, err := c.API.CreateEmergencyRoute(req)
	c.settle(cmd, err)
	if err != nil {
		return nil, err
	}

	c.Engine.ApplyRoute(route)
	return route, nil
}

// -----------------------------------------------------------------------------

// DeactivateEmergencyRoute closes a corridor and drops it from the view.
func (c *Commander) DeactivateEmergencyRoute(id string) error {
	cmd := c.begin("emergency_route_end", id, nil)

	_, err := c.API.DeactivateEmergencyRoute(id)
	c.settle(cmd, err)
	if err != nil {
		return err
	}

	c.Engine.RemoveRoute(id)
	return nil
}

// -----------------------------------------------------------------------------

// History returns a copy of the command log, newest last.
func (c *Commander) History() []models.MPendingCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MPendingCommand, 0, len(c.history))
	for _, cmd := range c.history {
		out = append(out, *cmd)
	}
	return out
}
