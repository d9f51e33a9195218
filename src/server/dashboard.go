package server

import (
	"fmt"
	"strings"
	"sync"

	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/utils"
	"traffic-observer/src/viewbind"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

// DashboardServer exposes the reconciled view to browser clients: REST
// endpoints for state and history, and a websocket hub that pushes every
// state update.
type DashboardServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	History   *utils.HistoryManager
	Channel   interfaces.IPushChannel
	Commander *viewbind.Commander
	engine    *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MDashboardState
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}
	stopOnce   sync.Once

	// Local cache
	latestState *models.MDashboardState
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, log *logger.Logger,
	history *utils.HistoryManager, channel interfaces.IPushChannel,
	commander *viewbind.Commander) *DashboardServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:    cfg,
		Logger:    log,
		History:   history,
		Channel:   channel,
		Commander: commander,
		engine:    gin.Default(),
		clients:   make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		broadcast:  make(chan *models.MDashboardState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
		latestState: &models.MDashboardState{
			Type:       "INITIAL",
			Signals:    make(map[string]models.MSignalView),
			Roads:      make(map[string]models.MRoadSegmentView),
			Routes:     make(map[string]models.MEmergencyRoute),
			Diversions: make(map[string]models.MDiversion),
		},
	}

	// CORS for the local dashboard frontend
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/state", s.getState)
	s.engine.GET("/api/history/:signal_id", s.getHistory)
	s.engine.GET("/api/zones", s.getZones)
	s.engine.GET("/api/operators", s.getOperators)

	// Command endpoints
	s.setupCommandRoutes()

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting dashboard server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop signals the hub loop to drop every client and exit. Safe to call more
// than once; the channels stay open so late pump goroutines cannot panic.
func (s *DashboardServer) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"push_channel":  s.Channel.State().String(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getState(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	zoneID := c.Query("zone_id")
	if zoneID == "" {
		c.JSON(200, s.latestState)
		return
	}
	c.JSON(200, filterByZone(s.latestState, zoneID))
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHistory(c *gin.Context) {
	signalID := c.Param("signal_id")
	points := s.History.All(signalID)
	c.JSON(200, gin.H{
		"signal_id": signalID,
		"points":    points,
	})
}

// -----------------------------------------------------------------------------
// Reference data fetched from the backend on demand. Zones and operators
// change rarely, so they are not part of the polled state.
// -----------------------------------------------------------------------------

func (s *DashboardServer) getZones(c *gin.Context) {
	zones, err := s.Commander.API.GetZones()
	if err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"zones": zones})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getOperators(c *gin.Context) {
	operators, err := s.Commander.API.GetOperators()
	if err != nil {
		c.JSON(commandStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"operators": operators})
}
