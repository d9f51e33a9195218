package server

import (
	"traffic-observer/src/helpers"
	"traffic-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Command endpoints. Every mutation funnels through the commander so the
// backend response, not the submitted value, is what lands in the view.
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupCommandRoutes() {
	s.engine.PUT("/api/signals/:id/mode", s.putSignalMode)
	s.engine.PUT("/api/signals/:id/phase", s.putSignalPhase)
	s.engine.PUT("/api/signals/:id/timing", s.putSignalTiming)
	s.engine.POST("/api/diversions", s.postDiversion)
	s.engine.PUT("/api/diversions/:id/end", s.putEndDiversion)
	s.engine.POST("/api/emergency/routes", s.postEmergencyRoute)
	s.engine.PUT("/api/emergency/routes/:id/deactivate", s.putDeactivateRoute)
	s.engine.GET("/api/commands", s.getCommands)
}

// -----------------------------------------------------------------------------

func commandStatus(err error) int {
	if helpers.IsCommandError(err) {
		return 422
	}
	if helpers.IsAuthError(err) {
		return 401
	}
	return 502
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) putSignalMode(c *gin.Context) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.Commander.SetSignalMode(c.Param("id"), body.Mode); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) putSignalPhase(c *gin.Context) {
	var body struct {
		Phase string `json:"phase"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.Commander.SetSignalPhase(c.Param("id"), body.Phase); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) putSignalTiming(c *gin.Context) {
	var timing models.MTimingUpdate
	if err := c.ShouldBindJSON(&timing); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.Commander.SetSignalTiming(c.Param("id"), timing); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postDiversion(c *gin.Context) {
	var body struct {
		FromRoad string `json:"from_road"`
		ToRoad   string `json:"to_road"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	d, err := s.Commander.CreateDiversion(body.FromRoad, body.ToRoad, body.Reason)
	if err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(201, d)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) putEndDiversion(c *gin.Context) {
	s.Commander.EndDiversion(c.Param("id"))
	c.JSON(200, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postEmergencyRoute(c *gin.Context) {
	var req models.MEmergencyRouteCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	route, err := s.Commander.ActivateEmergencyRoute(req)
	if err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(201, route)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) putDeactivateRoute(c *gin.Context) {
	if err := s.Commander.DeactivateEmergencyRoute(c.Param("id")); err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getCommands(c *gin.Context) {
	c.JSON(200, s.Commander.History())
}
