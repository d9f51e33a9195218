package viewbind

import (
	"testing"

	"traffic-observer/src/helpers"
	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/reconcile"
)

// -----------------------------------------------------------------------------
// fakeAPI implements only the calls the commander makes; everything else
// panics through the embedded nil interface.
// -----------------------------------------------------------------------------

type fakeAPI struct {
	interfaces.ITrafficAPI

	updateSignalResp *models.MSignalView
	updateSignalErr  error
	updateCalls      int

	timingResp *models.MSignalView
	timingErr  error

	createRouteResp *models.MEmergencyRoute
	createRouteErr  error

	deactivateErr error
}

func (f *fakeAPI) UpdateSignal(id string, fields map[string]any) (*models.MSignalView, error) {
	f.updateCalls++
	return f.updateSignalResp, f.updateSignalErr
}

func (f *fakeAPI) UpdateSignalTiming(id string, timing models.MTimingUpdate) (*models.MSignalView, error) {
	return f.timingResp, f.timingErr
}

func (f *fakeAPI) CreateEmergencyRoute(req models.MEmergencyRouteCreate) (*models.MEmergencyRoute, error) {
	return f.createRouteResp, f.createRouteErr
}

func (f *fakeAPI) DeactivateEmergencyRoute(id string) (*models.MEmergencyRoute, error) {
	return &models.MEmergencyRoute{ID: id, Active: false}, f.deactivateErr
}

// -----------------------------------------------------------------------------

func newCommanderFixture(api *fakeAPI) (*Commander, *reconcile.Engine) {
	log := logger.NewLogger("ERROR", "test")
	engine := reconcile.NewEngine(log)
	return NewCommander(api, engine, log), engine
}

// -----------------------------------------------------------------------------

func TestModeCommandReconcilesAuthoritativeResponse(t *testing.T) {
	api := &fakeAPI{
		// Backend honors the switch but also reports its own phase.
		updateSignalResp: &models.MSignalView{ID: "s1", Mode: "manual", CurrentPhase: "yellow", Status: "active"},
	}
	c, engine := newCommanderFixture(api)
	engine.ApplySignalSnapshot([]models.MSignalView{{ID: "s1", Mode: "auto", CurrentPhase: "red", Status: "active"}})

	if err := c.SetSignalMode("s1", "manual"); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	sig := engine.GetSignal("s1")
	if sig.Mode != "manual" || sig.CurrentPhase != "yellow" {
		t.Errorf("authoritative response not reconciled: %+v", sig)
	}

	history := c.History()
	if len(history) != 1 || history[0].Outcome != models.CommandConfirmed {
		t.Errorf("unexpected command history: %+v", history)
	}
}

// -----------------------------------------------------------------------------

func TestFailedCommandLeavesViewUntouched(t *testing.T) {
	api := &fakeAPI{
		updateSignalErr: helpers.NewCommandError("signal offline", nil),
	}
	c, engine := newCommanderFixture(api)
	engine.ApplySignalSnapshot([]models.MSignalView{{ID: "s1", Mode: "auto", CurrentPhase: "red", Status: "active"}})

	err := c.SetSignalMode("s1", "manual")
	if err == nil {
		t.Fatal("expected command error")
	}

	sig := engine.GetSignal("s1")
	if sig.Mode != "auto" || sig.CurrentPhase != "red" {
		t.Errorf("rejected command mutated the view: %+v", sig)
	}

	history := c.History()
	if len(history) != 1 || history[0].Outcome != models.CommandFailed || history[0].Error == "" {
		t.Errorf("failure not recorded: %+v", history)
	}
}

// -----------------------------------------------------------------------------

func TestInvalidModeRejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newCommanderFixture(api)

	if err := c.SetSignalMode("s1", "turbo"); err == nil {
		t.Fatal("expected rejection of unknown mode")
	}
	if api.updateCalls != 0 {
		t.Error("invalid mode should never reach the backend")
	}
}

// -----------------------------------------------------------------------------

func TestTimingBoundsValidation(t *testing.T) {
	api := &fakeAPI{timingResp: &models.MSignalView{ID: "s1"}}
	c, _ := newCommanderFixture(api)

	bad := []models.MTimingUpdate{
		{GreenTime: intPtr2(5)},    // below MinGreenTime
		{GreenTime: intPtr2(300)},  // above MaxGreenTime
		{YellowTime: intPtr2(2)},   // below MinYellowTime
		{YellowTime: intPtr2(15)},  // above MaxYellowTime
		{RedTime: intPtr2(5)},      // below MinRedTime
		{RedTime: intPtr2(999)},    // above MaxRedTime
		{},                         // no fields
	}

	for i, timing := range bad {
		err := c.SetSignalTiming("s1", timing)
		if err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, timing)
			continue
		}
		if !helpers.IsCommandError(err) {
			t.Errorf("case %d: validation error has wrong type: %v", i, err)
		}
	}

	good := models.MTimingUpdate{GreenTime: intPtr2(45), YellowTime: intPtr2(5), RedTime: intPtr2(60)}
	if err := c.SetSignalTiming("s1", good); err != nil {
		t.Errorf("in-bounds timing rejected: %v", err)
	}
}

func intPtr2(i int) *int { return &i }

// -----------------------------------------------------------------------------

func TestDiversionLifecycle(t *testing.T) {
	api := &fakeAPI{}
	c, engine := newCommanderFixture(api)

	d, err := c.CreateDiversion("road_a", "road_b", "waterlogging")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	state := engine.Snapshot("INITIAL")
	if _, ok := state.Diversions[d.ID]; !ok {
		t.Fatal("diversion not in view")
	}

	c.EndDiversion(d.ID)
	state = engine.Snapshot("INITIAL")
	if _, ok := state.Diversions[d.ID]; ok {
		t.Error("ended diversion still in view")
	}

	// Self-referencing diversion is rejected.
	if _, err := c.CreateDiversion("road_a", "road_a", "test"); err == nil {
		t.Error("expected rejection of self-diversion")
	}
}

// -----------------------------------------------------------------------------

func TestEmergencyRouteCommands(t *testing.T) {
	api := &fakeAPI{
		createRouteResp: &models.MEmergencyRoute{ID: "er1", Active: true, VehicleType: "ambulance", SignalsCleared: []string{"s1"}},
	}
	c, engine := newCommanderFixture(api)

	route, err := c.ActivateEmergencyRoute(models.MEmergencyRouteCreate{VehicleType: "ambulance", Priority: 1})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if route.ID != "er1" {
		t.Errorf("route = %+v", route)
	}

	state := engine.Snapshot("INITIAL")
	if _, ok := state.Routes["er1"]; !ok {
		t.Fatal("route not reconciled into view")
	}

	if err := c.DeactivateEmergencyRoute("er1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	state = engine.Snapshot("INITIAL")
	if _, ok := state.Routes["er1"]; ok {
		t.Error("deactivated route still in view")
	}
}
